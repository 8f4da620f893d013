package driven

import (
	"context"
	"net/http"
)

// ConnectionDelegate receives the terminal outcome of an asynchronous
// connection. Exactly one method is invoked per connection, on an arbitrary
// goroutine, with the caller-supplied tag echoed back verbatim.
type ConnectionDelegate interface {
	// ConnectionFailed reports a transport-level failure.
	ConnectionFailed(err error, requestURL string, tag any)

	// ConnectionFinished reports success with the response body.
	ConnectionFinished(payload []byte, requestURL string, tag any)

	// ConnectionFinishedWithHeaders reports success with the response headers
	// and body, for callers that need header data such as the ETag.
	ConnectionFinishedWithHeaders(headers http.Header, payload []byte, requestURL string, tag any)
}

// Transport issues asynchronous HTTP requests on behalf of the session
// coordinator. CreateConnection returns once the request has been dispatched;
// the outcome arrives later through the delegate. Retry and backoff are the
// transport's concern - delegates see a single terminal callback.
type Transport interface {
	// CreateConnection starts a request. A nil body means GET, otherwise a
	// form-encoded POST. The tag is opaque to the transport.
	// An error is returned only when the connection cannot be created at all
	// (e.g. an unparseable URL); every later outcome goes to the delegate.
	CreateConnection(ctx context.Context, url string, body []byte, delegate ConnectionDelegate, useCache bool, tag any) error

	// ClearCookies drops all cookies stored for the given origin URL.
	ClearCookies(originURL string)

	// CookieValue returns the value of a named cookie for the origin, or ""
	// if not present.
	CookieValue(originURL, name string) string
}
