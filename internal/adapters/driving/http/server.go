package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
	"github.com/custodia-labs/socialauth-core/internal/core/ports/driving"
)

// Server exposes the session coordinator to UI processes over REST
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	sessions driving.SessionCoordinator
	tokens   driven.TokenIssuer
	events   *EventBuffer
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server. The event buffer is registered as a
// session observer so UI clients can poll lifecycle events.
func NewServer(
	cfg Config,
	sessions driving.SessionCoordinator,
	tokens driven.TokenIssuer,
) *Server {
	s := &Server{
		router:   http.NewServeMux(),
		version:  cfg.Version,
		sessions: sessions,
		tokens:   tokens,
		events:   NewEventBuffer(),
	}

	sessions.AddObserver(s.events)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	tokenMiddleware := NewTokenMiddleware(s.tokens)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Provider catalog endpoints (public)
	s.router.HandleFunc("GET /api/v1/providers", s.handleListProviders)
	s.router.HandleFunc("GET /api/v1/providers/basic", s.handleListBasicProviders)
	s.router.HandleFunc("GET /api/v1/providers/social", s.handleListSocialProviders)
	s.router.HandleFunc("POST /api/v1/providers/{id}/force-reauth", s.handleForceReauth)

	// Session configuration endpoints (public)
	s.router.HandleFunc("GET /api/v1/session", s.handleGetSession)
	s.router.HandleFunc("POST /api/v1/session/resync", s.handleResync)
	s.router.HandleFunc("POST /api/v1/session/ui-active", s.handleSetUIActive)
	s.router.HandleFunc("PUT /api/v1/session/token-url", s.handleSetTokenURL)

	// Authentication flow (public; success mints the session token)
	s.router.HandleFunc("POST /api/v1/auth/start", s.handleAuthStart)
	s.router.HandleFunc("POST /api/v1/auth/complete", s.handleAuthComplete)
	s.router.HandleFunc("POST /api/v1/auth/fail", s.handleAuthFail)
	s.router.HandleFunc("POST /api/v1/auth/cancel", s.handleAuthCancel)

	// Publishing flow (needs a session token)
	s.router.Handle("POST /api/v1/publish",
		tokenMiddleware.Authenticate(http.HandlerFunc(s.handlePublish)))
	s.router.Handle("POST /api/v1/publish/complete",
		tokenMiddleware.Authenticate(http.HandlerFunc(s.handlePublishComplete)))
	s.router.Handle("POST /api/v1/publish/cancel",
		tokenMiddleware.Authenticate(http.HandlerFunc(s.handlePublishCancel)))

	// Credential management (needs a session token)
	s.router.Handle("DELETE /api/v1/credentials/{id}",
		tokenMiddleware.Authenticate(http.HandlerFunc(s.handleForget)))
	s.router.Handle("DELETE /api/v1/credentials",
		tokenMiddleware.Authenticate(http.HandlerFunc(s.handleForgetAll)))

	// Event polling (public)
	s.router.HandleFunc("GET /api/v1/events", s.handleEvents)
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
