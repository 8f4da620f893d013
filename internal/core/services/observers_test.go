package services

import (
	"sync"
	"testing"

	"github.com/custodia-labs/socialauth-core/internal/core/ports/driven"
)

func TestObserverRegistry_ExactlyOneDelivery(t *testing.T) {
	reg := newObserverRegistry()

	a := &recordingObserver{}
	b := &recordingObserver{}
	reg.add(a)
	reg.add(b)

	reg.notify(func(o driven.SessionObserver) {
		o.AuthenticationDidCancel()
	})

	if got := a.count("auth_cancel"); got != 1 {
		t.Errorf("observer a received %d deliveries, want 1", got)
	}
	if got := b.count("auth_cancel"); got != 1 {
		t.Errorf("observer b received %d deliveries, want 1", got)
	}
}

// selfRemovingObserver unregisters itself on its first delivery.
type selfRemovingObserver struct {
	recordingObserver
	reg *observerRegistry
}

func (s *selfRemovingObserver) AuthenticationDidCancel() {
	s.reg.remove(s)
	s.recordingObserver.AuthenticationDidCancel()
}

func TestObserverRegistry_UnregisterDuringFanout(t *testing.T) {
	reg := newObserverRegistry()

	first := &selfRemovingObserver{}
	first.reg = reg
	second := &recordingObserver{}
	reg.add(first)
	reg.add(second)

	reg.notify(func(o driven.SessionObserver) {
		o.AuthenticationDidCancel()
	})

	// Both observers were registered when fan-out started; both get exactly
	// one delivery even though the first removed itself mid-notification.
	if got := first.count("auth_cancel"); got != 1 {
		t.Errorf("self-removing observer received %d deliveries, want 1", got)
	}
	if got := second.count("auth_cancel"); got != 1 {
		t.Errorf("remaining observer received %d deliveries, want 1", got)
	}

	// The removed observer receives nothing on the next event.
	reg.notify(func(o driven.SessionObserver) {
		o.AuthenticationDidCancel()
	})
	if got := first.count("auth_cancel"); got != 1 {
		t.Errorf("removed observer received %d total deliveries, want 1", got)
	}
	if got := second.count("auth_cancel"); got != 2 {
		t.Errorf("remaining observer received %d total deliveries, want 2", got)
	}
}

func TestObserverRegistry_RemoveUnknownIsNoop(t *testing.T) {
	reg := newObserverRegistry()
	a := &recordingObserver{}
	reg.add(a)

	reg.remove(&recordingObserver{})

	if len(reg.snapshot()) != 1 {
		t.Error("removing an unregistered observer should not change the set")
	}
}

func TestObserverRegistry_ConcurrentMutation(t *testing.T) {
	reg := newObserverRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o := &recordingObserver{}
			reg.add(o)
			reg.notify(func(obs driven.SessionObserver) {
				obs.AuthenticationDidCancel()
			})
			reg.remove(o)
		}()
	}
	wg.Wait()

	if len(reg.snapshot()) != 0 {
		t.Errorf("registry should be empty, has %d observers", len(reg.snapshot()))
	}
}
