package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/custodia-labs/socialauth-core/internal/core/domain"
	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
	"github.com/custodia-labs/socialauth-core/internal/core/ports/driving"
)

// Ensure Coordinator implements the driving interface and the transport
// delegate contract.
var (
	_ driving.SessionCoordinator = (*Coordinator)(nil)
	_ driven.ConnectionDelegate  = (*Coordinator)(nil)
)

// Persistent key-value keys.
const (
	kvKeyBaseURL            = "base_url"
	kvKeyHideBranding       = "hide_branding"
	kvKeyConfigETag         = "config_etag"
	kvKeyLastBasicProvider  = "last_used_basic_provider"
	kvKeyLastSocialProvider = "last_used_social_provider"
)

// Object store names.
const (
	objAllProviders    = "all_providers"
	objBasicProviders  = "basic_providers"
	objSocialProviders = "social_providers"
	objCredentials     = "credentials"
)

// CoordinatorConfig holds dependencies for the session coordinator.
type CoordinatorConfig struct {
	// AppID identifies the application to the identity broker. Required.
	AppID string

	// TokenURL is the relying party's token endpoint, called after a
	// successful login. Empty disables the call.
	TokenURL string

	// ServerURL is the broker origin used for configuration fetches and
	// activity publishing. The base URL for login flows arrives with the
	// configuration payload and may differ.
	ServerURL string

	Transport     driven.Transport
	KeyValueStore driven.KeyValueStore
	ObjectStore   driven.ObjectStore
	Logger        *slog.Logger
}

// Coordinator owns the session state for federated login: the provider
// catalog, the credential cache, the configuration snapshot and the
// authentication/publishing flows. It mediates between transport callbacks
// and registered observers.
//
// All exported methods are safe from any goroutine. mu guards the session
// state; applyMu serializes the deferred-configuration check-and-apply so
// two syncs cannot both decide the catalog is safe to swap.
type Coordinator struct {
	mu      sync.Mutex
	applyMu sync.Mutex

	appID     string
	tokenURL  string
	serverURL string

	catalog      *domain.Catalog
	credentials  map[string]*domain.Credential
	baseURL      string
	hideBranding bool

	currentProvider *domain.Provider
	activity        *domain.Activity

	returningBasic  string
	returningSocial string

	alwaysForceReauth bool
	socialSharing     bool
	uiActive          bool

	pendingConfig []byte
	pendingETag   string
	configErr     error

	transport driven.Transport
	kv        driven.KeyValueStore
	objects   driven.ObjectStore
	observers *observerRegistry
	logger    *slog.Logger
}

// NewCoordinator creates the process-wide session coordinator. It restores
// the persisted catalog, credential cache and settings, then dispatches the
// initial configuration sync. A failed initial sync does not fail
// construction; the error is recorded and visible via ConfigError.
func NewCoordinator(ctx context.Context, cfg CoordinatorConfig) (*Coordinator, error) {
	if cfg.AppID == "" {
		return nil, fmt.Errorf("app id: %w", domain.ErrInvalidInput)
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("transport is required: %w", domain.ErrInvalidInput)
	}
	if cfg.KeyValueStore == nil || cfg.ObjectStore == nil {
		return nil, fmt.Errorf("stores are required: %w", domain.ErrInvalidInput)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Coordinator{
		appID:       cfg.AppID,
		tokenURL:    cfg.TokenURL,
		serverURL:   cfg.ServerURL,
		catalog:     domain.EmptyCatalog(),
		credentials: map[string]*domain.Credential{},
		transport:   cfg.Transport,
		kv:          cfg.KeyValueStore,
		objects:     cfg.ObjectStore,
		observers:   newObserverRegistry(),
		logger:      logger,
	}

	if err := c.restore(ctx); err != nil {
		return nil, fmt.Errorf("restore session state: %w", err)
	}

	if err := c.StartSync(ctx); err != nil {
		// Stale catalog is preferred over no catalog; record and carry on.
		logger.Warn("initial configuration sync failed", "error", err)
	}

	return c, nil
}

// restore loads the persisted catalog, credential map and scalar settings.
func (c *Coordinator) restore(ctx context.Context) error {
	var providers map[string]*domain.Provider
	if err := c.objects.Load(ctx, objAllProviders, &providers); err != nil {
		return fmt.Errorf("load providers: %w", err)
	}

	var basic, social []string
	if err := c.objects.Load(ctx, objBasicProviders, &basic); err != nil {
		return fmt.Errorf("load basic providers: %w", err)
	}
	if err := c.objects.Load(ctx, objSocialProviders, &social); err != nil {
		return fmt.Errorf("load social providers: %w", err)
	}

	catalog, err := domain.NewCatalog(providers, basic, social)
	if err != nil {
		// A torn archive should not brick the coordinator; start empty and
		// let the next sync rebuild it.
		c.logger.Warn("persisted catalog inconsistent, starting empty", "error", err)
		catalog = domain.EmptyCatalog()
	}
	c.catalog = catalog

	if err := c.objects.Load(ctx, objCredentials, &c.credentials); err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	if c.credentials == nil {
		c.credentials = map[string]*domain.Credential{}
	}

	if c.baseURL, err = c.kv.GetString(ctx, kvKeyBaseURL); err != nil {
		return fmt.Errorf("load base url: %w", err)
	}
	if c.hideBranding, err = c.kv.GetBool(ctx, kvKeyHideBranding); err != nil {
		return fmt.Errorf("load branding flag: %w", err)
	}
	if c.returningBasic, err = c.kv.GetString(ctx, kvKeyLastBasicProvider); err != nil {
		return fmt.Errorf("load last basic provider: %w", err)
	}
	if c.returningSocial, err = c.kv.GetString(ctx, kvKeyLastSocialProvider); err != nil {
		return fmt.Errorf("load last social provider: %w", err)
	}

	c.logger.Debug("session state restored",
		"providers", len(catalog.All()),
		"credentials", len(c.credentials),
		"base_url", c.baseURL)

	return nil
}

// Providers returns the full provider map of the current catalog. The
// returned values are copies; force-reauth flags mutate under the session
// lock, which callers of these accessors do not hold.
func (c *Coordinator) Providers() map[string]*domain.Provider {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := c.catalog.All()
	out := make(map[string]*domain.Provider, len(all))
	for id, p := range all {
		cp := *p
		out[id] = &cp
	}
	return out
}

// BasicProviders returns copies of the sign-in providers in display order.
func (c *Coordinator) BasicProviders() []*domain.Provider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyProviders(c.catalog.Basic())
}

// SocialProviders returns copies of the sharing providers in display order.
func (c *Coordinator) SocialProviders() []*domain.Provider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyProviders(c.catalog.Social())
}

// Provider looks up a provider by id and returns a copy.
func (c *Coordinator) Provider(id string) (*domain.Provider, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, err := c.catalog.Lookup(id)
	if err != nil {
		return nil, err
	}
	cp := *p
	return &cp, nil
}

// HideBranding reports the broker's hide-branding flag.
func (c *Coordinator) HideBranding() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hideBranding
}

// BaseURL returns the broker base URL from the last applied configuration.
func (c *Coordinator) BaseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.baseURL
}

// CurrentProvider returns the id of the provider with an authentication or
// publish attempt in progress, or "".
func (c *Coordinator) CurrentProvider() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentProvider == nil {
		return ""
	}
	return c.currentProvider.ID
}

// Credential returns the cached credential for a provider.
func (c *Coordinator) Credential(providerID string) (*domain.Credential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cred, ok := c.credentials[providerID]
	if !ok {
		return nil, fmt.Errorf("%q: %w", providerID, domain.ErrNoCredential)
	}
	return cred, nil
}

// Forget removes the cached credential for a provider and marks it for
// forced re-authentication. The cache is persisted before returning.
func (c *Coordinator) Forget(ctx context.Context, providerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.catalog.RequestForceReauth(providerID); err != nil {
		return err
	}
	delete(c.credentials, providerID)

	return c.objects.Save(ctx, objCredentials, c.credentials)
}

// ForgetAll drops every cached credential and marks all providers for forced
// re-authentication.
func (c *Coordinator) ForgetAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.catalog.RequestForceReauthAll()
	c.credentials = map[string]*domain.Credential{}

	return c.objects.Save(ctx, objCredentials, c.credentials)
}

// RequestForceReauth marks one provider so its next login bypasses cached
// broker session state.
func (c *Coordinator) RequestForceReauth(providerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog.RequestForceReauth(providerID)
}

// RequestForceReauthAll marks every provider.
func (c *Coordinator) RequestForceReauthAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalog.RequestForceReauthAll()
}

// SetAlwaysForceReauth toggles forced re-authentication for every login.
func (c *Coordinator) SetAlwaysForceReauth(force bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.alwaysForceReauth = force
}

// ReturningBasicProvider returns the id of the last provider used for a
// successful basic sign-in, or "" while the session is in social-sharing
// mode. A sharing flow must not land the user on the sign-in return
// experience.
func (c *Coordinator) ReturningBasicProvider() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.socialSharing {
		return ""
	}
	return c.returningBasic
}

// ReturningSocialProvider returns the id of the last provider used for a
// successful publish.
func (c *Coordinator) ReturningSocialProvider() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.returningSocial
}

// SetSocialSharing marks the session as authenticating for publishing, which
// suppresses the basic-provider return experience. PublishActivity sets the
// mode itself; CompletePublishing clears it.
func (c *Coordinator) SetSocialSharing(social bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.socialSharing = social
}

// SocialSharing reports whether the session is in social-sharing mode.
func (c *Coordinator) SocialSharing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.socialSharing
}

// SetTokenURL replaces the relying-party token URL for subsequent logins.
func (c *Coordinator) SetTokenURL(tokenURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenURL = tokenURL
}

// AddObserver registers a session observer.
func (c *Coordinator) AddObserver(o driven.SessionObserver) {
	c.observers.add(o)
}

// RemoveObserver unregisters a session observer.
func (c *Coordinator) RemoveObserver(o driven.SessionObserver) {
	c.observers.remove(o)
}

// SetUIActive records whether a screen is displaying provider data. Turning
// the flag off is the single trigger point that flushes a configuration
// payload deferred while the screen was up; the flush completes before the
// call returns.
func (c *Coordinator) SetUIActive(ctx context.Context, active bool) {
	c.mu.Lock()
	c.uiActive = active
	if active || c.pendingConfig == nil {
		c.mu.Unlock()
		return
	}
	payload := c.pendingConfig
	etag := c.pendingETag
	c.pendingConfig = nil
	c.pendingETag = ""
	c.mu.Unlock()

	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	c.logger.Debug("applying deferred configuration", "etag", etag)
	if err := c.applyConfiguration(ctx, payload, etag); err != nil {
		c.mu.Lock()
		c.configErr = err
		c.mu.Unlock()
	}
}

// currentCatalog reads the catalog pointer under the session lock for the
// internal flows, which share the live provider values and mutate their
// force-reauth flags under the same lock. The exported accessors hand out
// copies instead.
func (c *Coordinator) currentCatalog() *domain.Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.catalog
}

func copyProviders(in []*domain.Provider) []*domain.Provider {
	out := make([]*domain.Provider, 0, len(in))
	for _, p := range in {
		cp := *p
		out = append(out, &cp)
	}
	return out
}
