package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/custodia-labs/socialauth-core/internal/core/domain"
	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
)

// capturedRequest records one CreateConnection call so tests can complete it
// manually through the delegate.
type capturedRequest struct {
	url      string
	body     []byte
	delegate driven.ConnectionDelegate
	useCache bool
	tag      any
}

// fakeTransport implements driven.Transport for tests. Requests are captured
// instead of dispatched; tests drive completions by calling the captured
// delegate.
type fakeTransport struct {
	mu             sync.Mutex
	requests       []capturedRequest
	failCreate     bool
	clearedOrigins []string
	cookies        map[string]map[string]string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{cookies: map[string]map[string]string{}}
}

func (t *fakeTransport) CreateConnection(ctx context.Context, url string, body []byte, delegate driven.ConnectionDelegate, useCache bool, tag any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failCreate {
		return errors.New("connection refused")
	}
	t.requests = append(t.requests, capturedRequest{url, body, delegate, useCache, tag})
	return nil
}

func (t *fakeTransport) ClearCookies(originURL string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearedOrigins = append(t.clearedOrigins, originURL)
	delete(t.cookies, originURL)
}

func (t *fakeTransport) CookieValue(originURL, name string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cookies[originURL][name]
}

func (t *fakeTransport) setCookie(originURL, name, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cookies[originURL] == nil {
		t.cookies[originURL] = map[string]string{}
	}
	t.cookies[originURL][name] = value
}

func (t *fakeTransport) lastRequest() capturedRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.requests[len(t.requests)-1]
}

func (t *fakeTransport) requestCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

// fakeKV implements driven.KeyValueStore on maps.
type fakeKV struct {
	mu      sync.Mutex
	strings map[string]string
	bools   map[string]bool
}

func newFakeKV() *fakeKV {
	return &fakeKV{strings: map[string]string{}, bools: map[string]bool{}}
}

func (s *fakeKV) GetString(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.strings[key], nil
}

func (s *fakeKV) PutString(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strings[key] = value
	return nil
}

func (s *fakeKV) GetBool(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bools[key], nil
}

func (s *fakeKV) PutBool(ctx context.Context, key string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bools[key] = value
	return nil
}

// fakeObjectStore implements driven.ObjectStore on a map of JSON blobs.
type fakeObjectStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{blobs: map[string][]byte{}}
}

func (s *fakeObjectStore) Save(ctx context.Context, name string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = data
	return nil
}

func (s *fakeObjectStore) Load(ctx context.Context, name string, out any) error {
	s.mu.Lock()
	data, ok := s.blobs[name]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return json.Unmarshal(data, out)
}

// recordingObserver records every delivered event by name.
type recordingObserver struct {
	mu     sync.Mutex
	events []string

	lastAuthInfo     map[string]any
	lastProvider     string
	lastError        error
	lastTokenURL     string
	lastTokenPayload []byte
	lastActivity     *domain.Activity
}

func (r *recordingObserver) record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingObserver) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recordingObserver) count(event string) int {
	n := 0
	for _, e := range r.Events() {
		if e == event {
			n++
		}
	}
	return n
}

func (r *recordingObserver) AuthenticationDidComplete(authInfo map[string]any, providerName string) {
	r.mu.Lock()
	r.lastAuthInfo = authInfo
	r.lastProvider = providerName
	r.mu.Unlock()
	r.record("auth_complete")
}

func (r *recordingObserver) AuthenticationDidFail(err error, providerName string) {
	r.mu.Lock()
	r.lastError = err
	r.lastProvider = providerName
	r.mu.Unlock()
	r.record("auth_fail")
}

func (r *recordingObserver) AuthenticationDidCancel() {
	r.record("auth_cancel")
}

func (r *recordingObserver) AuthenticationDidReachTokenURL(tokenURL string, payload []byte, providerName string) {
	r.mu.Lock()
	r.lastTokenURL = tokenURL
	r.lastTokenPayload = payload
	r.mu.Unlock()
	r.record("token_url_reached")
}

func (r *recordingObserver) AuthenticationCallToTokenURLDidFail(tokenURL string, err error, providerName string) {
	r.mu.Lock()
	r.lastTokenURL = tokenURL
	r.lastError = err
	r.mu.Unlock()
	r.record("token_url_fail")
}

func (r *recordingObserver) PublishingDidSucceed(activity *domain.Activity, providerName string) {
	r.mu.Lock()
	r.lastActivity = activity
	r.lastProvider = providerName
	r.mu.Unlock()
	r.record("publish_success")
}

func (r *recordingObserver) PublishingDidFail(activity *domain.Activity, err error, providerName string) {
	r.mu.Lock()
	r.lastActivity = activity
	r.lastError = err
	r.lastProvider = providerName
	r.mu.Unlock()
	r.record("publish_fail")
}

func (r *recordingObserver) PublishingDidComplete() {
	r.record("publish_complete")
}

func (r *recordingObserver) PublishingDidCancel() {
	r.record("publish_cancel")
}

// newTestCoordinator builds a coordinator on fakes and completes the initial
// configuration sync with the given provider setup.
func newTestCoordinator(ctx context.Context) (*Coordinator, *fakeTransport, *fakeKV, *fakeObjectStore, error) {
	transport := newFakeTransport()
	kv := newFakeKV()
	objects := newFakeObjectStore()

	c, err := NewCoordinator(ctx, CoordinatorConfig{
		AppID:         "test-app",
		TokenURL:      "",
		ServerURL:     "https://broker.example.com",
		Transport:     transport,
		KeyValueStore: kv,
		ObjectStore:   objects,
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return c, transport, kv, objects, nil
}

// defaultConfigPayload is a broker configuration body with facebook as the
// basic provider and twitter as the social provider.
func defaultConfigPayload() []byte {
	return []byte(`{
		"baseurl": "https://broker.example.com/",
		"provider_info": {
			"facebook": {"friendly_name": "Facebook", "url": "/facebook/start"},
			"twitter": {"friendly_name": "Twitter", "url": "/twitter/start"},
			"openid": {"friendly_name": "OpenID", "url": "/openid/start",
				"openid_identifier": "%@", "requires_input": true,
				"input_prompt": "Your OpenID"}
		},
		"enabled_providers": ["facebook", "openid"],
		"social_providers": ["twitter"],
		"hide_tagline": true
	}`)
}

// completeConfigSync finishes the configuration request at index i with the
// payload and etag.
func completeConfigSync(t *fakeTransport, i int, payload []byte, etag string) error {
	t.mu.Lock()
	if i >= len(t.requests) {
		t.mu.Unlock()
		return fmt.Errorf("no request at index %d", i)
	}
	req := t.requests[i]
	t.mu.Unlock()

	headers := http.Header{}
	headers.Set("Etag", etag)
	req.delegate.ConnectionFinishedWithHeaders(headers, payload, req.url, req.tag)
	return nil
}
