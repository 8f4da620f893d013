package http

import (
	"sync"
	"time"

	"github.com/custodia-labs/socialauth-core/internal/core/domain"
	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SessionObserver = (*EventBuffer)(nil)

// maxBufferedEvents caps the buffer; older events are dropped first
const maxBufferedEvents = 256

// Event is one session lifecycle notification exposed to polling UI clients
type Event struct {
	Type      string    `json:"type"`
	Provider  string    `json:"provider,omitempty"`
	Error     string    `json:"error,omitempty"`
	TokenURL  string    `json:"token_url,omitempty"`
	Payload   string    `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventBuffer is a session observer that buffers lifecycle events until a UI
// client polls them. Clients drain the buffer; events are delivered at most
// once.
type EventBuffer struct {
	mu     sync.Mutex
	events []Event
}

// NewEventBuffer creates an empty event buffer
func NewEventBuffer() *EventBuffer {
	return &EventBuffer{}
}

// Drain returns all buffered events and clears the buffer
func (b *EventBuffer) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.events
	b.events = nil
	return out
}

func (b *EventBuffer) push(e Event) {
	e.Timestamp = time.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.events) >= maxBufferedEvents {
		b.events = b.events[1:]
	}
	b.events = append(b.events, e)
}

func (b *EventBuffer) AuthenticationDidComplete(authInfo map[string]any, providerName string) {
	b.push(Event{Type: "authentication_completed", Provider: providerName})
}

func (b *EventBuffer) AuthenticationDidFail(err error, providerName string) {
	b.push(Event{Type: "authentication_failed", Provider: providerName, Error: err.Error()})
}

func (b *EventBuffer) AuthenticationDidCancel() {
	b.push(Event{Type: "authentication_canceled"})
}

func (b *EventBuffer) AuthenticationDidReachTokenURL(tokenURL string, payload []byte, providerName string) {
	b.push(Event{Type: "token_url_reached", Provider: providerName, TokenURL: tokenURL, Payload: string(payload)})
}

func (b *EventBuffer) AuthenticationCallToTokenURLDidFail(tokenURL string, err error, providerName string) {
	b.push(Event{Type: "token_url_failed", Provider: providerName, TokenURL: tokenURL, Error: err.Error()})
}

func (b *EventBuffer) PublishingDidSucceed(activity *domain.Activity, providerName string) {
	b.push(Event{Type: "publishing_succeeded", Provider: providerName})
}

func (b *EventBuffer) PublishingDidFail(activity *domain.Activity, err error, providerName string) {
	b.push(Event{Type: "publishing_failed", Provider: providerName, Error: err.Error()})
}

func (b *EventBuffer) PublishingDidComplete() {
	b.push(Event{Type: "publishing_completed"})
}

func (b *EventBuffer) PublishingDidCancel() {
	b.push(Event{Type: "publishing_canceled"})
}
