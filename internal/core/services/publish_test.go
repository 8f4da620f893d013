package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/custodia-labs/socialauth-core/internal/core/domain"
)

// publishReadyCoordinator returns a synced coordinator holding a twitter
// credential with device token "tok-social".
func publishReadyCoordinator(t *testing.T, ctx context.Context) (*Coordinator, *fakeTransport, *fakeKV) {
	t.Helper()
	c, transport, kv, _ := syncedCoordinator(t, ctx)

	if _, err := c.StartAuthentication(ctx, "twitter", ""); err != nil {
		t.Fatal(err)
	}
	if err := c.AuthenticationCompleted(ctx, []byte(`{"rpx_result": {"token": "tok-social", "auth_info": {}}}`)); err != nil {
		t.Fatal(err)
	}
	return c, transport, kv
}

func sampleActivity() *domain.Activity {
	return &domain.Activity{
		Action: "posted a link",
		URL:    "https://example.com/article",
		Title:  "An Article",
	}
}

func TestPublishActivity_PostsToActivityEndpoint(t *testing.T) {
	ctx := context.Background()
	c, transport, _ := publishReadyCoordinator(t, ctx)

	if err := c.PublishActivity(ctx, "twitter", sampleActivity()); err != nil {
		t.Fatalf("PublishActivity() error = %v", err)
	}

	req := transport.lastRequest()
	if req.url != "https://broker.example.com/api/v2/activity?" {
		t.Errorf("publish url = %q", req.url)
	}
	body := string(req.body)
	if !strings.HasPrefix(body, "device_token=tok-social&activity=") {
		t.Errorf("publish body = %q, want device token prefix", body)
	}
	if !strings.HasSuffix(body, `&options={"urlShortening":"true"}`) {
		t.Errorf("publish body = %q, want url-shortening options suffix", body)
	}
	if c.CurrentProvider() != "twitter" {
		t.Errorf("current provider = %q, want twitter while publish is in flight", c.CurrentProvider())
	}
}

func TestPublishActivity_RequiresCredential(t *testing.T) {
	ctx := context.Background()
	c, _, _, _ := syncedCoordinator(t, ctx)

	err := c.PublishActivity(ctx, "twitter", sampleActivity())
	if !errors.Is(err, domain.ErrNoCredential) {
		t.Errorf("PublishActivity() without credential error = %v, want ErrNoCredential", err)
	}
}

func TestPublishActivity_NilActivity(t *testing.T) {
	ctx := context.Background()
	c, _, _ := publishReadyCoordinator(t, ctx)

	if err := c.PublishActivity(ctx, "twitter", nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("PublishActivity(nil) error = %v, want ErrInvalidInput", err)
	}
}

func TestPublishActivity_ConnectionFailureClearsState(t *testing.T) {
	ctx := context.Background()
	c, transport, _ := publishReadyCoordinator(t, ctx)
	transport.failCreate = true

	err := c.PublishActivity(ctx, "twitter", sampleActivity())
	var pubErr *domain.Error
	if !errors.As(err, &pubErr) {
		t.Fatalf("error = %v, want *domain.Error", err)
	}
	if pubErr.Kind != domain.KindPublishFailed {
		t.Errorf("kind = %s, want %s", pubErr.Kind, domain.KindPublishFailed)
	}
	if c.CurrentProvider() != "" {
		t.Error("current provider should clear when the connection cannot start")
	}
}

func TestPublishResponse_Success(t *testing.T) {
	ctx := context.Background()
	c, transport, kv := publishReadyCoordinator(t, ctx)

	obs := &recordingObserver{}
	c.AddObserver(obs)

	if err := c.PublishActivity(ctx, "twitter", sampleActivity()); err != nil {
		t.Fatal(err)
	}
	req := transport.lastRequest()
	req.delegate.ConnectionFinishedWithHeaders(nil, []byte(`{"stat": "ok"}`), req.url, req.tag)

	if got := obs.count("publish_success"); got != 1 {
		t.Errorf("success notified %d times, want 1", got)
	}
	if c.ReturningSocialProvider() != "twitter" {
		t.Errorf("returning social = %q, want twitter", c.ReturningSocialProvider())
	}
	last, _ := kv.GetString(ctx, kvKeyLastSocialProvider)
	if last != "twitter" {
		t.Errorf("persisted last social = %q, want twitter", last)
	}
}

func TestPublishResponse_ErrorCodeMapping(t *testing.T) {
	tests := []struct {
		name         string
		payload      string
		wantKind     domain.Kind
		wantCategory domain.Category
		wantMessage  string
	}{
		{
			name:         "missing api key",
			payload:      `{"stat": "fail", "err": {"code": 0, "msg": "Missing parameter: apiKey"}}`,
			wantKind:     domain.KindMissingAPIKey,
			wantCategory: domain.CategoryPublishNeedsReauth,
			wantMessage:  "Missing parameter: apiKey",
		},
		{
			name:         "invalid oauth token",
			payload:      `{"stat": "fail", "err": {"code": 4, "msg": "bad token"}}`,
			wantKind:     domain.KindInvalidOAuthToken,
			wantCategory: domain.CategoryPublishNeedsReauth,
			wantMessage:  "bad token",
		},
		{
			name:         "content too long",
			payload:      `{"stat": "fail", "err": {"code": 100, "msg": "status is too long"}}`,
			wantKind:     domain.KindContentTooLong,
			wantCategory: domain.CategoryPublishInvalidActivity,
			wantMessage:  "status is too long",
		},
		{
			name:         "duplicate content",
			payload:      `{"stat": "fail", "err": {"code": 6, "msg": "duplicate status"}}`,
			wantKind:     domain.KindDuplicateContent,
			wantCategory: domain.CategoryPublishInvalidActivity,
			wantMessage:  "duplicate status",
		},
		{
			name:         "unlisted code",
			payload:      `{"stat": "fail", "err": {"code": 42, "msg": "whatever"}}`,
			wantKind:     domain.KindPublishFailed,
			wantCategory: domain.CategoryPublishFailed,
		},
		{
			name:         "unparseable code",
			payload:      `{"stat": "fail", "err": {"code": "NaN", "msg": "whatever"}}`,
			wantKind:     domain.KindPublishFailed,
			wantCategory: domain.CategoryPublishFailed,
		},
		{
			name:         "missing err section",
			payload:      `{"stat": "fail"}`,
			wantKind:     domain.KindPublishFailed,
			wantCategory: domain.CategoryPublishFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			c, transport, _ := publishReadyCoordinator(t, ctx)

			obs := &recordingObserver{}
			c.AddObserver(obs)

			if err := c.PublishActivity(ctx, "twitter", sampleActivity()); err != nil {
				t.Fatal(err)
			}
			req := transport.lastRequest()
			req.delegate.ConnectionFinishedWithHeaders(nil, []byte(tt.payload), req.url, req.tag)

			if got := obs.count("publish_fail"); got != 1 {
				t.Fatalf("failure notified %d times, want 1", got)
			}
			obs.mu.Lock()
			err := obs.lastError
			obs.mu.Unlock()

			var pubErr *domain.Error
			if !errors.As(err, &pubErr) {
				t.Fatalf("observer error = %v, want *domain.Error", err)
			}
			if pubErr.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", pubErr.Kind, tt.wantKind)
			}
			if pubErr.Category != tt.wantCategory {
				t.Errorf("category = %s, want %s", pubErr.Category, tt.wantCategory)
			}
			if tt.wantMessage != "" && pubErr.Message != tt.wantMessage {
				t.Errorf("message = %q, want %q", pubErr.Message, tt.wantMessage)
			}
			wantReauth := tt.wantCategory == domain.CategoryPublishNeedsReauth
			if pubErr.NeedsReauthentication() != wantReauth {
				t.Errorf("NeedsReauthentication() = %v, want %v", !wantReauth, wantReauth)
			}
		})
	}
}

func TestPublishResponse_UnparseableBodyCarriesPayload(t *testing.T) {
	ctx := context.Background()
	c, transport, _ := publishReadyCoordinator(t, ctx)

	obs := &recordingObserver{}
	c.AddObserver(obs)

	if err := c.PublishActivity(ctx, "twitter", sampleActivity()); err != nil {
		t.Fatal(err)
	}
	req := transport.lastRequest()
	req.delegate.ConnectionFinishedWithHeaders(nil, []byte("<html>gateway timeout</html>"), req.url, req.tag)

	if got := obs.count("publish_fail"); got != 1 {
		t.Fatalf("failure notified %d times, want 1", got)
	}
	obs.mu.Lock()
	err := obs.lastError
	obs.mu.Unlock()

	var pubErr *domain.Error
	if !errors.As(err, &pubErr) {
		t.Fatalf("observer error = %v, want *domain.Error", err)
	}
	if pubErr.Message != "<html>gateway timeout</html>" {
		t.Errorf("message = %q, want raw body", pubErr.Message)
	}
}

func TestPublishResponse_StaleIsDropped(t *testing.T) {
	ctx := context.Background()
	c, transport, _ := publishReadyCoordinator(t, ctx)

	obs := &recordingObserver{}
	c.AddObserver(obs)

	if err := c.PublishActivity(ctx, "twitter", sampleActivity()); err != nil {
		t.Fatal(err)
	}
	req := transport.lastRequest()
	c.CancelPublishing(ctx)

	req.delegate.ConnectionFinishedWithHeaders(nil, []byte(`{"stat": "ok"}`), req.url, req.tag)

	if got := obs.count("publish_success"); got != 0 {
		t.Errorf("stale response notified success %d times, want 0", got)
	}
	if got := obs.count("publish_cancel"); got != 1 {
		t.Errorf("cancel notified %d times, want 1", got)
	}
}

func TestPublishResponse_TransportFailure(t *testing.T) {
	ctx := context.Background()
	c, transport, _ := publishReadyCoordinator(t, ctx)

	obs := &recordingObserver{}
	c.AddObserver(obs)

	if err := c.PublishActivity(ctx, "twitter", sampleActivity()); err != nil {
		t.Fatal(err)
	}
	req := transport.lastRequest()
	req.delegate.ConnectionFailed(errors.New("reset by peer"), req.url, req.tag)

	if got := obs.count("publish_fail"); got != 1 {
		t.Errorf("failure notified %d times, want 1", got)
	}
}

func TestCompletePublishing_ClearsSharingState(t *testing.T) {
	ctx := context.Background()
	c, transport, _ := publishReadyCoordinator(t, ctx)

	obs := &recordingObserver{}
	c.AddObserver(obs)

	if err := c.PublishActivity(ctx, "twitter", sampleActivity()); err != nil {
		t.Fatal(err)
	}
	req := transport.lastRequest()
	req.delegate.ConnectionFinishedWithHeaders(nil, []byte(`{"stat": "ok"}`), req.url, req.tag)
	c.CompletePublishing(ctx)

	if got := obs.count("publish_complete"); got != 1 {
		t.Errorf("complete notified %d times, want 1", got)
	}
	if c.CurrentProvider() != "" {
		t.Error("current provider should clear after completion")
	}
}
