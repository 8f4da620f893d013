package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/custodia-labs/socialauth-core/internal/core/domain"
	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
)

// reauthCookieOrigins lists, per provider, the cookie origins that must be
// dropped before a forced re-authentication so the provider does not silently
// resume the previous session.
var reauthCookieOrigins = map[string][]string{
	"facebook": {"http://login.facebook.com"},
	"live_id":  {"http://live.com"},
}

// extPermissions lists provider-specific extra query parameters appended to
// the login URL.
var extPermissions = map[string]string{
	"facebook": "ext_perm=publish_stream,offline_access&",
}

// welcomeCookieName is the broker cookie carrying the returning user's
// display name after a basic sign-in.
const welcomeCookieName = "welcome_info"

// authCompletion is the payload delivered by the web or native login flow
// when it reaches the broker's completion page.
type authCompletion struct {
	Result struct {
		Token    string         `json:"token"`
		AuthInfo map[string]any `json:"auth_info"`
	} `json:"rpx_result"`
}

// StartAuthentication selects a provider as current and returns the login
// URL for the UI or native bridge to drive. userInput supplies the
// user-entered identifier for providers that require one; it is ignored
// otherwise.
func (c *Coordinator) StartAuthentication(ctx context.Context, providerID, userInput string) (string, error) {
	provider, err := c.currentCatalog().Lookup(providerID)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	if c.currentProvider != nil {
		// Callers must serialize flows; log and carry on with the new one.
		c.logger.Warn("starting authentication while another is in progress",
			"previous", c.currentProvider.ID, "next", providerID)
	}
	c.currentProvider = provider
	baseURL := c.baseURL
	force := c.alwaysForceReauth || provider.ForceReauth
	c.mu.Unlock()

	if force {
		for _, origin := range reauthCookieOrigins[provider.ID] {
			c.transport.ClearCookies(origin)
		}
	}

	loginURL := buildLoginURL(baseURL, provider, userInput, force)

	c.mu.Lock()
	provider.ForceReauth = false
	c.mu.Unlock()

	c.logger.Debug("authentication started", "provider", providerID, "url", loginURL)
	return loginURL, nil
}

// buildLoginURL assembles the provider login URL from the base URL, the
// provider's path, the optional openid identifier and the force-reauth and
// provider-specific permission parameters.
func buildLoginURL(baseURL string, p *domain.Provider, userInput string, forceReauth bool) string {
	var oid string
	if p.OpenIDIdentifier != "" {
		identifier := p.OpenIDIdentifier
		if p.RequiresInput {
			identifier = strings.ReplaceAll(identifier, "%@", url.QueryEscape(userInput))
		} else {
			identifier = strings.ReplaceAll(identifier, "%@", "")
		}
		oid = "openid_identifier=" + identifier + "&"
	}

	var force string
	if forceReauth {
		force = "force_reauth=true&"
	}

	return fmt.Sprintf("%s%s?%s%s%sversion=iphone_two&device=iphone",
		baseURL, p.LoginPath, oid, force, extPermissions[p.ID])
}

// AuthenticationCompleted finishes a login attempt with the payload captured
// by the web or native flow. It caches the credential, updates the
// returning-provider markers, notifies observers and, when a relying-party
// token URL is configured, issues the follow-up call to it. The current
// provider is cleared only after the whole sequence.
//
// A completion arriving after the attempt was cancelled or failed is a no-op.
func (c *Coordinator) AuthenticationCompleted(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	provider := c.currentProvider
	c.mu.Unlock()
	if provider == nil {
		c.logger.Debug("dropping stale authentication completion")
		return nil
	}

	var completion authCompletion
	if err := json.Unmarshal(payload, &completion); err != nil {
		authErr := domain.WrapError("authentication completion payload is malformed",
			domain.KindAuthenticationFailed, domain.CategoryAuthenticationFailed, err)
		c.AuthenticationFailed(ctx, authErr)
		return authErr
	}
	if completion.Result.Token == "" || completion.Result.AuthInfo == nil {
		authErr := domain.NewError("authentication completion payload is missing the result section",
			domain.KindAuthenticationFailed, domain.CategoryAuthenticationFailed)
		c.AuthenticationFailed(ctx, authErr)
		return authErr
	}

	cred := &domain.Credential{
		ProviderID:  provider.ID,
		DeviceToken: completion.Result.Token,
		AuthInfo:    completion.Result.AuthInfo,
		CreatedAt:   time.Now(),
	}

	c.mu.Lock()
	catalog := c.catalog
	baseURL := c.baseURL
	if catalog.IsBasic(provider.ID) {
		cred.WelcomeString = welcomeFromCookie(c.transport.CookieValue(baseURL, welcomeCookieName))
	}
	c.credentials[provider.ID] = cred
	c.mu.Unlock()

	if err := c.objects.Save(ctx, objCredentials, c.snapshotCredentials()); err != nil {
		// The login itself succeeded; a failed archive only costs the next
		// restart its cache.
		c.logger.Warn("persisting credential cache failed", "provider", provider.ID, "error", err)
	}

	if catalog.IsBasic(provider.ID) {
		c.mu.Lock()
		c.returningBasic = provider.ID
		c.mu.Unlock()
		if err := c.kv.PutString(ctx, kvKeyLastBasicProvider, provider.ID); err != nil {
			c.logger.Warn("persisting last basic provider failed", "error", err)
		}
	}
	if catalog.IsSocial(provider.ID) {
		c.mu.Lock()
		c.returningSocial = provider.ID
		c.mu.Unlock()
		if err := c.kv.PutString(ctx, kvKeyLastSocialProvider, provider.ID); err != nil {
			c.logger.Warn("persisting last social provider failed", "error", err)
		}
	}

	c.observers.notify(func(o driven.SessionObserver) {
		o.AuthenticationDidComplete(cred.AuthInfo, provider.ID)
	})

	c.mu.Lock()
	tokenURL := c.tokenURL
	c.mu.Unlock()
	if tokenURL != "" {
		c.callTokenURL(ctx, tokenURL, completion.Result.Token, provider.ID)
	}

	c.mu.Lock()
	c.currentProvider = nil
	c.mu.Unlock()

	c.logger.Info("authentication completed", "provider", provider.ID)
	return nil
}

// AuthenticationFailed ends the current login attempt with an error. Both
// returning-provider markers are reset so the next screen does not offer a
// broken return experience.
func (c *Coordinator) AuthenticationFailed(ctx context.Context, err error) {
	c.mu.Lock()
	provider := c.currentProvider
	if provider == nil {
		c.mu.Unlock()
		c.logger.Debug("dropping stale authentication failure", "error", err)
		return
	}
	providerID := provider.ID
	c.currentProvider = nil
	c.returningBasic = ""
	c.returningSocial = ""
	c.mu.Unlock()

	authErr := asSessionError(err, "authentication failed",
		domain.KindAuthenticationFailed, domain.CategoryAuthenticationFailed)

	c.observers.notify(func(o driven.SessionObserver) {
		o.AuthenticationDidFail(authErr, providerID)
	})

	c.logger.Info("authentication failed", "provider", providerID, "error", err)
}

// AuthenticationCanceled ends the current login attempt without an error.
// Only the basic returning-provider marker is reset.
func (c *Coordinator) AuthenticationCanceled(ctx context.Context) {
	c.mu.Lock()
	c.currentProvider = nil
	c.returningBasic = ""
	c.mu.Unlock()

	c.observers.notify(func(o driven.SessionObserver) {
		o.AuthenticationDidCancel()
	})

	c.logger.Info("authentication canceled")
}

// callTokenURL posts the broker token to the relying party's token endpoint.
// The call's own outcome is reported to observers separately from the login.
func (c *Coordinator) callTokenURL(ctx context.Context, tokenURL, token, providerID string) {
	body := []byte("token=" + url.QueryEscape(token))
	tag := &pendingOp{kind: opTokenCallback, tokenURL: tokenURL, providerName: providerID}

	if err := c.transport.CreateConnection(ctx, tokenURL, body, c, true, tag); err != nil {
		tokenErr := domain.WrapError("problem initializing the connection to the token url",
			domain.KindAuthenticationFailed, domain.CategoryAuthenticationFailed, err)
		c.observers.notify(func(o driven.SessionObserver) {
			o.AuthenticationCallToTokenURLDidFail(tokenURL, tokenErr, providerID)
		})
	}
}

// welcomeFromCookie extracts the returning user's display name from the
// broker's welcome_info cookie. The cookie packs the name as the sixth
// %22-separated segment, URL-encoded.
func welcomeFromCookie(cookieValue string) string {
	const fallback = "Welcome, user!"

	if cookieValue == "" {
		return fallback
	}
	parts := strings.Split(cookieValue, "%22")
	if len(parts) <= 5 {
		return fallback
	}
	name, err := url.QueryUnescape(parts[5])
	if err != nil || name == "" {
		return fallback
	}
	return "Sign in as " + name
}

// snapshotCredentials copies the credential map for persistence outside the
// session lock.
func (c *Coordinator) snapshotCredentials() map[string]*domain.Credential {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]*domain.Credential, len(c.credentials))
	for k, v := range c.credentials {
		out[k] = v
	}
	return out
}

// asSessionError returns err as a *domain.Error, wrapping it when the caller
// handed over a plain error.
func asSessionError(err error, message string, kind domain.Kind, category domain.Category) *domain.Error {
	if sessionErr, ok := err.(*domain.Error); ok {
		return sessionErr
	}
	return domain.WrapError(message, kind, category, err)
}
