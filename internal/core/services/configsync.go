package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/socialauth-core/internal/core/domain"
)

// configURLFormat is the broker's configuration endpoint. The path is fixed
// by the broker's API contract.
const configURLFormat = "%s/openid/iphone_config_and_baseurl?appId=%s&skipXdReceiver=true"

// configPayload is the broker's configuration response.
type configPayload struct {
	BaseURL          string                        `json:"baseurl"`
	ProviderInfo     map[string]providerDescriptor `json:"provider_info"`
	EnabledProviders []string                      `json:"enabled_providers"`
	SocialProviders  []string                      `json:"social_providers"`
	HideTagline      bool                          `json:"hide_tagline"`
}

type providerDescriptor struct {
	FriendlyName     string `json:"friendly_name"`
	URL              string `json:"url"`
	OpenIDIdentifier string `json:"openid_identifier"`
	RequiresInput    bool   `json:"requires_input"`
	InputPrompt      string `json:"input_prompt"`
}

// StartSync fetches the broker configuration. It returns after the request
// is dispatched; a non-nil return means the connection could not be created
// and is also recorded as the configuration error.
func (c *Coordinator) StartSync(ctx context.Context) error {
	url := fmt.Sprintf(configURLFormat, c.serverURL, c.appID)
	c.logger.Debug("starting configuration sync", "url", url)

	if err := c.transport.CreateConnection(ctx, url, nil, c, true, &pendingOp{kind: opConfigSync}); err != nil {
		cfgErr := domain.WrapError(
			"there was a problem connecting to the authentication server while configuring",
			domain.KindConfigurationURL, domain.CategoryConfigurationFailed, err)
		c.mu.Lock()
		c.configErr = cfgErr
		c.mu.Unlock()
		return cfgErr
	}
	return nil
}

// Resync clears any prior configuration error and re-issues the fetch. Used
// for explicit retry after a failed sync.
func (c *Coordinator) Resync(ctx context.Context) error {
	c.mu.Lock()
	c.configErr = nil
	c.mu.Unlock()
	return c.StartSync(ctx)
}

// ConfigError returns the last configuration error, or nil.
func (c *Coordinator) ConfigError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.configErr == nil {
		return nil
	}
	return c.configErr
}

// handleConfigResponse runs on the transport goroutine when a configuration
// fetch succeeds. The payload must contain a provider_info section; anything
// else is an information error and the previous catalog stays in effect.
func (c *Coordinator) handleConfigResponse(ctx context.Context, payload []byte, etag string) {
	if !strings.Contains(string(payload), `"provider_info"`) {
		c.mu.Lock()
		c.configErr = domain.NewError(
			"there was a problem communicating with the authentication server while configuring",
			domain.KindConfigurationInformation, domain.CategoryConfigurationFailed)
		c.mu.Unlock()
		return
	}

	if err := c.finishConfiguration(ctx, payload, etag); err != nil {
		c.mu.Lock()
		c.configErr = err
		c.mu.Unlock()
	}
}

// finishConfiguration applies the freshness check and the deferred-apply
// rule. The check-and-apply step runs under applyMu so that a sync completing
// concurrently with a UI-idle flush cannot both swap the catalog.
func (c *Coordinator) finishConfiguration(ctx context.Context, payload []byte, etag string) *domain.Error {
	oldETag, err := c.kv.GetString(ctx, kvKeyConfigETag)
	if err != nil {
		return domain.WrapError("reading stored configuration etag failed",
			domain.KindConfigurationInformation, domain.CategoryConfigurationFailed, err)
	}
	if oldETag == etag {
		c.logger.Debug("configuration unchanged", "etag", etag)
		return nil
	}

	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	c.mu.Lock()
	// A screen mid-render of a provider list must never observe the list
	// being resized or reordered underneath it. Defer the swap until the UI
	// signals idle, unless there is no catalog to corrupt yet.
	if c.uiActive && !c.catalog.Empty() {
		c.pendingConfig = payload
		c.pendingETag = etag
		c.mu.Unlock()
		c.logger.Debug("configuration deferred until ui idle", "etag", etag)
		return nil
	}
	c.mu.Unlock()

	return c.applyConfiguration(ctx, payload, etag)
}

// applyConfiguration parses the payload, swaps the catalog atomically and
// persists the new state. The etag is persisted last, once everything else
// is known saved.
func (c *Coordinator) applyConfiguration(ctx context.Context, payload []byte, etag string) *domain.Error {
	var parsed configPayload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return domain.WrapError(
			"there was a problem communicating with the authentication server while configuring",
			domain.KindConfigurationJSON, domain.CategoryConfigurationFailed, err)
	}
	if parsed.ProviderInfo == nil {
		return domain.NewError(
			"there was a problem communicating with the authentication server while configuring",
			domain.KindConfigurationInformation, domain.CategoryConfigurationFailed)
	}

	providers := make(map[string]*domain.Provider, len(parsed.ProviderInfo))
	for id, desc := range parsed.ProviderInfo {
		providers[id] = &domain.Provider{
			ID:               id,
			Name:             desc.FriendlyName,
			LoginPath:        desc.URL,
			OpenIDIdentifier: desc.OpenIDIdentifier,
			RequiresInput:    desc.RequiresInput,
			InputPrompt:      desc.InputPrompt,
		}
	}

	catalog, err := domain.NewCatalog(providers, parsed.EnabledProviders, parsed.SocialProviders)
	if err != nil {
		return domain.WrapError("configuration lists providers missing from provider_info",
			domain.KindConfigurationInformation, domain.CategoryConfigurationFailed, err)
	}

	baseURL := strings.TrimSuffix(parsed.BaseURL, "/")

	if err := c.kv.PutString(ctx, kvKeyBaseURL, baseURL); err != nil {
		return c.persistError(err)
	}
	if err := c.objects.Save(ctx, objAllProviders, providers); err != nil {
		return c.persistError(err)
	}
	if err := c.objects.Save(ctx, objBasicProviders, parsed.EnabledProviders); err != nil {
		return c.persistError(err)
	}
	if err := c.objects.Save(ctx, objSocialProviders, parsed.SocialProviders); err != nil {
		return c.persistError(err)
	}
	if err := c.kv.PutBool(ctx, kvKeyHideBranding, parsed.HideTagline); err != nil {
		return c.persistError(err)
	}
	if err := c.kv.PutString(ctx, kvKeyConfigETag, etag); err != nil {
		return c.persistError(err)
	}

	c.mu.Lock()
	c.catalog = catalog
	c.baseURL = baseURL
	c.hideBranding = parsed.HideTagline
	c.pendingConfig = nil
	c.pendingETag = ""
	c.mu.Unlock()

	c.logger.Info("configuration applied",
		"etag", etag,
		"providers", len(providers),
		"basic", len(parsed.EnabledProviders),
		"social", len(parsed.SocialProviders))

	return nil
}

func (c *Coordinator) persistError(err error) *domain.Error {
	return domain.WrapError("persisting configuration failed",
		domain.KindConfigurationInformation, domain.CategoryConfigurationFailed, err)
}
