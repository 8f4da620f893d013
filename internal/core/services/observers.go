package services

import (
	"sync"

	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
)

// observerRegistry holds the dynamic set of session observers. Mutation and
// fan-out can happen concurrently from UI and transport goroutines, so the
// set is guarded by a mutex and fan-out always iterates over a snapshot:
// an observer unregistering itself (or another observer) mid-notification
// neither crashes the loop nor changes who receives the current event.
type observerRegistry struct {
	mu        sync.Mutex
	observers []driven.SessionObserver
}

func newObserverRegistry() *observerRegistry {
	return &observerRegistry{}
}

// add registers an observer. Duplicate registrations are kept; each receives
// its own delivery, matching whatever the caller registered.
func (r *observerRegistry) add(o driven.SessionObserver) {
	if o == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// remove unregisters the first matching observer, comparing by interface
// identity. Removing an unknown observer is a no-op.
func (r *observerRegistry) remove(o driven.SessionObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.observers {
		if existing == o {
			r.observers = append(r.observers[:i], r.observers[i+1:]...)
			return
		}
	}
}

// snapshot returns a copy of the current observer set for fan-out.
func (r *observerRegistry) snapshot() []driven.SessionObserver {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]driven.SessionObserver, len(r.observers))
	copy(out, r.observers)
	return out
}

// notify runs fn once for every observer registered at the start of the call.
func (r *observerRegistry) notify(fn func(driven.SessionObserver)) {
	for _, o := range r.snapshot() {
		fn(o)
	}
}
