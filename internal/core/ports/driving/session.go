package driving

import (
	"context"

	"github.com/custodia-labs/socialauth-core/internal/core/domain"
	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
)

// SessionCoordinator is the single entry point used by UI screens and native
// provider bridges. One instance exists per process; its lifetime is owned by
// the application wiring.
//
// Calls are safe from any goroutine. Network completions re-enter the
// coordinator on transport goroutines; no method blocks on network I/O.
type SessionCoordinator interface {
	// Provider catalog access.
	Providers() map[string]*domain.Provider
	BasicProviders() []*domain.Provider
	SocialProviders() []*domain.Provider
	Provider(id string) (*domain.Provider, error)
	HideBranding() bool
	BaseURL() string

	// Configuration sync. StartSync and Resync return immediately after
	// dispatching the fetch; a synchronous error means the connection could
	// not be created. Later failures are recorded and visible via ConfigError.
	StartSync(ctx context.Context) error
	Resync(ctx context.Context) error
	ConfigError() error

	// SetUIActive tells the coordinator whether a screen is currently
	// displaying provider data. Turning it off flushes any configuration
	// update that was deferred while the screen was up.
	SetUIActive(ctx context.Context, active bool)

	// Authentication flow. StartAuthentication selects the provider and
	// returns the login URL for the UI or bridge to drive. The completion
	// trio re-enters the coordinator when the web/native flow ends.
	StartAuthentication(ctx context.Context, providerID, userInput string) (string, error)
	AuthenticationCompleted(ctx context.Context, payload []byte) error
	AuthenticationFailed(ctx context.Context, err error)
	AuthenticationCanceled(ctx context.Context)
	CurrentProvider() string

	// Publishing flow.
	PublishActivity(ctx context.Context, providerID string, activity *domain.Activity) error
	CompletePublishing(ctx context.Context)
	CancelPublishing(ctx context.Context)

	// Credential cache.
	Credential(providerID string) (*domain.Credential, error)
	Forget(ctx context.Context, providerID string) error
	ForgetAll(ctx context.Context) error

	// Force re-authentication.
	RequestForceReauth(providerID string) error
	RequestForceReauthAll()
	SetAlwaysForceReauth(force bool)

	// Return experience. While social-sharing mode is on,
	// ReturningBasicProvider reports "" so a sharing flow never lands on the
	// sign-in return experience.
	ReturningBasicProvider() string
	ReturningSocialProvider() string
	SetSocialSharing(social bool)
	SocialSharing() bool

	// SetTokenURL replaces the relying-party token URL used after login.
	SetTokenURL(tokenURL string)

	// Observer registration.
	AddObserver(o driven.SessionObserver)
	RemoveObserver(o driven.SessionObserver)
}
