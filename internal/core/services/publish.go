package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/socialauth-core/internal/core/domain"
	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
)

// publishPath is the broker's activity endpoint, relative to the server URL.
const publishPath = "/api/v2/activity?"

// publishErrorCodeFallback is the sentinel used when the broker response
// carries no parseable error code. The broker also uses 1000 for "extracting
// the code failed"; the two are deliberately not distinguished.
const publishErrorCodeFallback = 1000

// publishErrorSpec maps one broker error code to its error kind and category.
type publishErrorSpec struct {
	kind     domain.Kind
	category domain.Category
}

// publishErrorCodes is the broker error-code table. New provider codes are
// added here without touching the dispatch below.
var publishErrorCodes = map[int]publishErrorSpec{
	0:   {domain.KindMissingAPIKey, domain.CategoryPublishNeedsReauth},     // "Missing parameter: apiKey"
	4:   {domain.KindInvalidOAuthToken, domain.CategoryPublishNeedsReauth}, // invalid OAuth access token
	100: {domain.KindContentTooLong, domain.CategoryPublishInvalidActivity},
	6:   {domain.KindDuplicateContent, domain.CategoryPublishInvalidActivity},
}

// publishResponse is the broker's activity endpoint response.
type publishResponse struct {
	Stat string `json:"stat"`
	Err  *struct {
		Code json.RawMessage `json:"code"`
		Msg  string          `json:"msg"`
	} `json:"err"`
}

// PublishActivity submits an activity to a social provider on behalf of the
// user authenticated against it. The request carries the cached credential's
// device token; completion arrives through observer callbacks.
func (c *Coordinator) PublishActivity(ctx context.Context, providerID string, activity *domain.Activity) error {
	if activity == nil {
		return fmt.Errorf("activity: %w", domain.ErrInvalidInput)
	}

	provider, err := c.currentCatalog().Lookup(providerID)
	if err != nil {
		return err
	}

	cred, err := c.Credential(providerID)
	if err != nil {
		return err
	}

	activityJSON, err := json.Marshal(activity)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}

	c.mu.Lock()
	c.currentProvider = provider
	c.socialSharing = true
	c.activity = activity
	serverURL := c.serverURL
	c.mu.Unlock()

	body := []byte("device_token=" + cred.DeviceToken +
		"&activity=" + string(activityJSON) +
		`&options={"urlShortening":"true"}`)

	tag := &pendingOp{kind: opPublish}
	if err := c.transport.CreateConnection(ctx, serverURL+publishPath, body, c, true, tag); err != nil {
		c.mu.Lock()
		c.currentProvider = nil
		c.activity = nil
		c.mu.Unlock()
		return domain.WrapError("there was a problem connecting to the server to publish",
			domain.KindPublishFailed, domain.CategoryPublishFailed, err)
	}

	c.logger.Debug("publish started", "provider", providerID)
	return nil
}

// CompletePublishing tears the publishing flow down after the UI has shown
// its outcome.
func (c *Coordinator) CompletePublishing(ctx context.Context) {
	c.mu.Lock()
	c.currentProvider = nil
	c.activity = nil
	c.socialSharing = false
	c.mu.Unlock()

	c.observers.notify(func(o driven.SessionObserver) {
		o.PublishingDidComplete()
	})
}

// CancelPublishing reports a user-initiated cancel to observers. The
// in-flight request, if any, is left to finish; its late completion is
// dropped once the current provider is cleared.
func (c *Coordinator) CancelPublishing(ctx context.Context) {
	c.mu.Lock()
	c.currentProvider = nil
	c.activity = nil
	c.mu.Unlock()

	c.observers.notify(func(o driven.SessionObserver) {
		o.PublishingDidCancel()
	})

	c.logger.Info("publishing canceled")
}

// handlePublishResponse interprets the broker's activity endpoint response
// on the transport goroutine.
func (c *Coordinator) handlePublishResponse(ctx context.Context, payload []byte) {
	c.mu.Lock()
	provider := c.currentProvider
	activity := c.activity
	c.mu.Unlock()
	if provider == nil {
		c.logger.Debug("dropping stale publish response")
		return
	}

	var resp publishResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		c.notifyPublishFailure(activity, provider.ID, domain.WrapError(string(payload),
			domain.KindPublishFailed, domain.CategoryPublishFailed, err))
		return
	}

	if resp.Stat == "ok" {
		c.mu.Lock()
		c.returningSocial = provider.ID
		c.mu.Unlock()
		if err := c.kv.PutString(ctx, kvKeyLastSocialProvider, provider.ID); err != nil {
			c.logger.Warn("persisting last social provider failed", "error", err)
		}

		c.observers.notify(func(o driven.SessionObserver) {
			o.PublishingDidSucceed(activity, provider.ID)
		})
		c.logger.Info("publish succeeded", "provider", provider.ID)
		return
	}

	c.notifyPublishFailure(activity, provider.ID, publishErrorFromResponse(&resp))
}

// publishErrorFromResponse maps the response's nested error code through the
// code table. Absent or unparseable codes fall back to the 1000 sentinel,
// which the table does not list, yielding the generic failure.
func publishErrorFromResponse(resp *publishResponse) *domain.Error {
	if resp.Err == nil {
		return domain.NewError("there was a problem publishing with this activity",
			domain.KindPublishFailed, domain.CategoryPublishFailed)
	}

	code := publishErrorCodeFallback
	if len(resp.Err.Code) > 0 {
		var parsed int
		if err := json.Unmarshal(resp.Err.Code, &parsed); err == nil {
			code = parsed
		}
	}

	if spec, ok := publishErrorCodes[code]; ok {
		return domain.NewError(resp.Err.Msg, spec.kind, spec.category)
	}

	return domain.NewError("there was a problem publishing this activity",
		domain.KindPublishFailed, domain.CategoryPublishFailed)
}

func (c *Coordinator) notifyPublishFailure(activity *domain.Activity, providerID string, pubErr *domain.Error) {
	c.observers.notify(func(o driven.SessionObserver) {
		o.PublishingDidFail(activity, pubErr, providerID)
	})
	c.logger.Info("publish failed", "provider", providerID, "kind", string(pubErr.Kind))
}
