package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
)

// Context keys
type contextKey string

const providerContextKey contextKey = "session_provider"

// TokenMiddleware validates application session tokens minted after a
// successful provider login.
type TokenMiddleware struct {
	tokens driven.TokenIssuer
}

// NewTokenMiddleware creates a new TokenMiddleware
func NewTokenMiddleware(tokens driven.TokenIssuer) *TokenMiddleware {
	return &TokenMiddleware{tokens: tokens}
}

// Authenticate validates the bearer token and records the provider identity
// it was issued for in the request context.
func (m *TokenMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization token")
			return
		}

		providerID, err := m.tokens.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), providerContextKey, providerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// TokenProvider retrieves the provider id the request's session token was
// issued for, or "" when unauthenticated.
func TokenProvider(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	providerID, _ := ctx.Value(providerContextKey).(string)
	return providerID
}

// extractBearerToken extracts the Bearer token from Authorization header
func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}

	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
