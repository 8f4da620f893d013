package services

import (
	"context"
	"net/http"

	"github.com/custodia-labs/socialauth-core/internal/core/domain"
	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
)

// The coordinator is its own connection delegate: every transport completion
// re-enters here, on the transport's goroutine, and is routed by the
// pendingOp carried as the tag. The switch over opKind is exhaustive; an
// unknown tag is a programming error and is logged and dropped.

// ConnectionFailed handles transport-level failure of any pending operation.
func (c *Coordinator) ConnectionFailed(err error, requestURL string, tag any) {
	op, ok := tag.(*pendingOp)
	if !ok {
		c.logger.Warn("connection failed with unknown tag", "url", requestURL, "error", err)
		return
	}

	c.logger.Debug("connection failed", "op", op.kind.String(), "url", requestURL, "error", err)

	switch op.kind {
	case opConfigSync:
		c.mu.Lock()
		c.configErr = domain.WrapError(
			"there was a problem communicating with the authentication server while configuring",
			domain.KindConfigurationInformation, domain.CategoryConfigurationFailed, err)
		c.mu.Unlock()

	case opPublish:
		c.mu.Lock()
		provider := c.currentProvider
		activity := c.activity
		c.mu.Unlock()
		if provider == nil {
			c.logger.Debug("dropping stale publish failure")
			return
		}
		c.notifyPublishFailure(activity, provider.ID, domain.WrapError("session error",
			domain.KindUnknown, domain.CategoryPublishFailed, err))

	case opTokenCallback:
		tokenErr := domain.WrapError("session error",
			domain.KindUnknown, domain.CategoryAuthenticationFailed, err)
		c.observers.notify(func(o driven.SessionObserver) {
			o.AuthenticationCallToTokenURLDidFail(op.tokenURL, tokenErr, op.providerName)
		})
	}
}

// ConnectionFinished handles success callbacks that carry only a body.
func (c *Coordinator) ConnectionFinished(payload []byte, requestURL string, tag any) {
	op, ok := tag.(*pendingOp)
	if !ok {
		c.logger.Warn("connection finished with unknown tag", "url", requestURL)
		return
	}

	switch op.kind {
	case opPublish:
		c.handlePublishResponse(context.Background(), payload)

	case opTokenCallback:
		c.observers.notify(func(o driven.SessionObserver) {
			o.AuthenticationDidReachTokenURL(op.tokenURL, payload, op.providerName)
		})

	case opConfigSync:
		// Configuration responses need the ETag header; a transport that
		// cannot capture headers cannot serve the configuration fetch.
		c.logger.Warn("configuration response arrived without headers", "url", requestURL)
	}
}

// ConnectionFinishedWithHeaders handles success callbacks that carry headers.
func (c *Coordinator) ConnectionFinishedWithHeaders(headers http.Header, payload []byte, requestURL string, tag any) {
	op, ok := tag.(*pendingOp)
	if !ok {
		c.logger.Warn("connection finished with unknown tag", "url", requestURL)
		return
	}

	switch op.kind {
	case opConfigSync:
		c.handleConfigResponse(context.Background(), payload, headers.Get("Etag"))

	case opTokenCallback:
		c.observers.notify(func(o driven.SessionObserver) {
			o.AuthenticationDidReachTokenURL(op.tokenURL, payload, op.providerName)
		})

	case opPublish:
		c.handlePublishResponse(context.Background(), payload)
	}
}
