package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Transport = (*Transport)(nil)

// maxResponseBytes caps how much of a broker response is read into memory.
const maxResponseBytes = 4 << 20

// Config holds transport configuration
type Config struct {
	// Timeout bounds each request end to end
	Timeout time.Duration

	// UserAgent is sent with every request when non-empty
	UserAgent string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
	}
}

// Transport implements driven.Transport on net/http. Requests are dispatched
// on their own goroutine; the delegate receives exactly one terminal
// callback per connection.
//
// Cookies live in an in-process jar keyed by host. The standard cookiejar
// cannot enumerate or drop cookies per origin, which the force-reauth flow
// and the welcome cookie lookup both need.
type Transport struct {
	client    *http.Client
	userAgent string
	jar       *cookieJar
}

// New creates a transport with its own cookie jar
func New(cfg Config) *Transport {
	jar := newCookieJar()
	return &Transport{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		userAgent: cfg.UserAgent,
		jar:       jar,
	}
}

// CreateConnection dispatches a request. A nil body means GET, otherwise a
// form-encoded POST. The response, whatever its status, goes to the
// delegate; the body may be a broker error payload the caller interprets.
func (t *Transport) CreateConnection(ctx context.Context, requestURL string, body []byte, delegate driven.ConnectionDelegate, useCache bool, tag any) error {
	if _, err := url.Parse(requestURL); err != nil {
		return fmt.Errorf("invalid request url: %w", err)
	}
	if delegate == nil {
		return fmt.Errorf("delegate is required")
	}

	method := http.MethodGet
	var reqBody io.Reader
	if body != nil {
		method = http.MethodPost
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if !useCache {
		req.Header.Set("Cache-Control", "no-cache")
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	go t.run(req, delegate, tag)
	return nil
}

// run executes the request and delivers the terminal callback
func (t *Transport) run(req *http.Request, delegate driven.ConnectionDelegate, tag any) {
	resp, err := t.client.Do(req)
	if err != nil {
		delegate.ConnectionFailed(err, req.URL.String(), tag)
		return
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		delegate.ConnectionFailed(fmt.Errorf("read response body: %w", err), req.URL.String(), tag)
		return
	}

	delegate.ConnectionFinishedWithHeaders(resp.Header, payload, req.URL.String(), tag)
}

// ClearCookies drops all cookies stored for the origin
func (t *Transport) ClearCookies(originURL string) {
	t.jar.clearHost(hostOf(originURL))
}

// CookieValue returns the named cookie's value for the origin, or ""
func (t *Transport) CookieValue(originURL, name string) string {
	return t.jar.value(hostOf(originURL), name)
}

func hostOf(originURL string) string {
	u, err := url.Parse(originURL)
	if err != nil || u.Host == "" {
		return originURL
	}
	return u.Host
}

// cookieJar is a host-keyed cookie jar. It ignores Path, Domain and Expires
// attributes; the broker cookies the coordinator cares about are plain
// host-scoped session cookies.
type cookieJar struct {
	mu      sync.Mutex
	cookies map[string]map[string]*http.Cookie
}

var _ http.CookieJar = (*cookieJar)(nil)

func newCookieJar() *cookieJar {
	return &cookieJar{cookies: map[string]map[string]*http.Cookie{}}
}

// SetCookies implements http.CookieJar
func (j *cookieJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	host := u.Host
	if j.cookies[host] == nil {
		j.cookies[host] = map[string]*http.Cookie{}
	}
	for _, c := range cookies {
		if c.MaxAge < 0 {
			delete(j.cookies[host], c.Name)
			continue
		}
		j.cookies[host][c.Name] = c
	}
}

// Cookies implements http.CookieJar
func (j *cookieJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]*http.Cookie, 0, len(j.cookies[u.Host]))
	for _, c := range j.cookies[u.Host] {
		out = append(out, c)
	}
	return out
}

func (j *cookieJar) clearHost(host string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.cookies, host)
}

func (j *cookieJar) value(host, name string) string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if c, ok := j.cookies[host][name]; ok {
		return c.Value
	}
	return ""
}
