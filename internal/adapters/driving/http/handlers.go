package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/custodia-labs/socialauth-core/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// SessionResponse summarizes the coordinator's configuration state
// @Description Session configuration summary
type SessionResponse struct {
	BaseURL                 string `json:"base_url"`
	HideBranding            bool   `json:"hide_branding"`
	CurrentProvider         string `json:"current_provider,omitempty"`
	ReturningBasicProvider  string `json:"returning_basic_provider,omitempty"`
	ReturningSocialProvider string `json:"returning_social_provider,omitempty"`
	SocialSharing           bool   `json:"social_sharing"`
	ConfigError             string `json:"config_error,omitempty"`
}

// AuthStartRequest selects a provider for authentication
type AuthStartRequest struct {
	Provider  string `json:"provider"`
	UserInput string `json:"user_input,omitempty"`
}

// AuthStartResponse carries the login URL the UI must drive
type AuthStartResponse struct {
	LoginURL string `json:"login_url"`
}

// AuthCompleteResponse carries the minted application session token
type AuthCompleteResponse struct {
	Provider string `json:"provider"`
	Token    string `json:"token"`
}

// AuthFailRequest reports a login failure from the UI flow
type AuthFailRequest struct {
	Message string `json:"message"`
}

// PublishRequest submits an activity to a social provider
type PublishRequest struct {
	Provider string           `json:"provider"`
	Activity *domain.Activity `json:"activity"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleVersion godoc
// @Summary      Get API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Provider catalog endpoints

// handleListProviders godoc
// @Summary      List all providers
// @Description  Returns every provider in the current catalog, keyed by id
// @Tags         Providers
// @Produce      json
// @Success      200  {object}  map[string]domain.Provider
// @Router       /providers [get]
func (s *Server) handleListProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.Providers())
}

// handleListBasicProviders godoc
// @Summary      List sign-in providers
// @Description  Returns the sign-in providers in display order
// @Tags         Providers
// @Produce      json
// @Success      200  {array}  domain.Provider
// @Router       /providers/basic [get]
func (s *Server) handleListBasicProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.BasicProviders())
}

// handleListSocialProviders godoc
// @Summary      List sharing providers
// @Description  Returns the sharing providers in display order
// @Tags         Providers
// @Produce      json
// @Success      200  {array}  domain.Provider
// @Router       /providers/social [get]
func (s *Server) handleListSocialProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessions.SocialProviders())
}

// handleForceReauth godoc
// @Summary      Force re-authentication
// @Description  Marks a provider so its next login bypasses cached broker session state
// @Tags         Providers
// @Produce      json
// @Param        id   path      string  true  "Provider id"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Provider not found"
// @Router       /providers/{id}/force-reauth [post]
func (s *Server) handleForceReauth(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.RequestForceReauth(r.PathValue("id")); err != nil {
		writeError(w, http.StatusNotFound, "provider not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Session configuration endpoints

// handleGetSession godoc
// @Summary      Session summary
// @Description  Returns the coordinator's configuration state
// @Tags         Session
// @Produce      json
// @Success      200  {object}  SessionResponse
// @Router       /session [get]
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	resp := SessionResponse{
		BaseURL:                 s.sessions.BaseURL(),
		HideBranding:            s.sessions.HideBranding(),
		CurrentProvider:         s.sessions.CurrentProvider(),
		ReturningBasicProvider:  s.sessions.ReturningBasicProvider(),
		ReturningSocialProvider: s.sessions.ReturningSocialProvider(),
		SocialSharing:           s.sessions.SocialSharing(),
	}
	if err := s.sessions.ConfigError(); err != nil {
		resp.ConfigError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleResync godoc
// @Summary      Refresh provider configuration
// @Description  Re-fetches the provider configuration from the identity broker
// @Tags         Session
// @Produce      json
// @Success      202  {object}  StatusResponse
// @Failure      502  {object}  ErrorResponse  "Broker unreachable"
// @Router       /session/resync [post]
func (s *Server) handleResync(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Resync(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "syncing"})
}

// handleSetUIActive godoc
// @Summary      Signal UI activity
// @Description  Tells the coordinator whether a screen is displaying provider data. Deactivating flushes deferred configuration updates.
// @Tags         Session
// @Accept       json
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      400  {object}  ErrorResponse  "Invalid request body"
// @Router       /session/ui-active [post]
func (s *Server) handleSetUIActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.sessions.SetUIActive(r.Context(), req.Active)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSetTokenURL godoc
// @Summary      Set token URL
// @Description  Replaces the relying-party token URL used after login
// @Tags         Session
// @Accept       json
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      400  {object}  ErrorResponse  "Invalid request body"
// @Router       /session/token-url [put]
func (s *Server) handleSetTokenURL(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TokenURL string `json:"token_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.sessions.SetTokenURL(req.TokenURL)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication flow endpoints

// handleAuthStart godoc
// @Summary      Start authentication
// @Description  Selects a provider and returns the login URL the UI must drive
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        request  body      AuthStartRequest  true  "Provider selection"
// @Success      200      {object}  AuthStartResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      404      {object}  ErrorResponse  "Provider not found"
// @Router       /auth/start [post]
func (s *Server) handleAuthStart(w http.ResponseWriter, r *http.Request) {
	var req AuthStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	loginURL, err := s.sessions.StartAuthentication(r.Context(), req.Provider, req.UserInput)
	if err != nil {
		if errors.Is(err, domain.ErrProviderNotFound) {
			writeError(w, http.StatusNotFound, "provider not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, AuthStartResponse{LoginURL: loginURL})
}

// handleAuthComplete godoc
// @Summary      Complete authentication
// @Description  Hands over the completion payload captured by the login flow. On success a signed application session token is minted.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Success      200  {object}  AuthCompleteResponse
// @Failure      400  {object}  ErrorResponse  "Malformed completion payload"
// @Failure      409  {object}  ErrorResponse  "No authentication in progress"
// @Router       /auth/complete [post]
func (s *Server) handleAuthComplete(w http.ResponseWriter, r *http.Request) {
	providerID := s.sessions.CurrentProvider()
	if providerID == "" {
		writeError(w, http.StatusConflict, "no authentication in progress")
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.sessions.AuthenticationCompleted(r.Context(), payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cred, err := s.sessions.Credential(providerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "credential not cached")
		return
	}
	token, err := s.tokens.Issue(cred)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue session token")
		return
	}

	writeJSON(w, http.StatusOK, AuthCompleteResponse{Provider: providerID, Token: token})
}

// handleAuthFail godoc
// @Summary      Report authentication failure
// @Description  Ends the current login attempt with an error from the UI flow
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /auth/fail [post]
func (s *Server) handleAuthFail(w http.ResponseWriter, r *http.Request) {
	var req AuthFailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		req.Message = "authentication failed"
	}

	s.sessions.AuthenticationFailed(r.Context(), errors.New(req.Message))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAuthCancel godoc
// @Summary      Cancel authentication
// @Description  Ends the current login attempt without an error
// @Tags         Authentication
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /auth/cancel [post]
func (s *Server) handleAuthCancel(w http.ResponseWriter, r *http.Request) {
	s.sessions.AuthenticationCanceled(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Publishing flow endpoints

// handlePublish godoc
// @Summary      Publish an activity
// @Description  Submits an activity to a social provider using the cached credential. The outcome arrives on the event feed.
// @Tags         Publishing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      PublishRequest  true  "Activity"
// @Success      202      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "No credential for provider"
// @Failure      404      {object}  ErrorResponse  "Provider not found"
// @Router       /publish [post]
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Provider == "" {
		req.Provider = TokenProvider(r.Context())
	}

	err := s.sessions.PublishActivity(r.Context(), req.Provider, req.Activity)
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "publishing"})
	case errors.Is(err, domain.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider not found")
	case errors.Is(err, domain.ErrNoCredential):
		writeError(w, http.StatusUnauthorized, "no credential for provider")
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "activity is required")
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

// handlePublishComplete godoc
// @Summary      Complete publishing
// @Description  Tears the publishing flow down after the UI has shown its outcome
// @Tags         Publishing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /publish/complete [post]
func (s *Server) handlePublishComplete(w http.ResponseWriter, r *http.Request) {
	s.sessions.CompletePublishing(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePublishCancel godoc
// @Summary      Cancel publishing
// @Description  Reports a user-initiated cancel of the publishing flow
// @Tags         Publishing
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /publish/cancel [post]
func (s *Server) handlePublishCancel(w http.ResponseWriter, r *http.Request) {
	s.sessions.CancelPublishing(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Credential management endpoints

// handleForget godoc
// @Summary      Forget a credential
// @Description  Removes the cached credential for a provider and marks it for forced re-authentication
// @Tags         Credentials
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Provider id"
// @Success      200  {object}  StatusResponse
// @Failure      404  {object}  ErrorResponse  "Provider not found"
// @Router       /credentials/{id} [delete]
func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Forget(r.Context(), r.PathValue("id")); err != nil {
		if errors.Is(err, domain.ErrProviderNotFound) {
			writeError(w, http.StatusNotFound, "provider not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleForgetAll godoc
// @Summary      Forget all credentials
// @Description  Drops every cached credential and marks all providers for forced re-authentication
// @Tags         Credentials
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  StatusResponse
// @Router       /credentials [delete]
func (s *Server) handleForgetAll(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.ForgetAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Event polling

// handleEvents godoc
// @Summary      Poll session events
// @Description  Drains buffered session lifecycle events. Each event is delivered at most once.
// @Tags         Events
// @Produce      json
// @Success      200  {array}  Event
// @Router       /events [get]
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	events := s.events.Drain()
	if events == nil {
		events = []Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
