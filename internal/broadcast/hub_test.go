package broadcast

import (
	"testing"
	"time"
)

func TestHub_NotifyReachesSubscribers(t *testing.T) {
	h := NewHub()
	a, cancelA := h.Subscribe()
	b, cancelB := h.Subscribe()
	defer cancelA()
	defer cancelB()

	h.Notify()

	for name, ch := range map[string]<-chan struct{}{"a": a, "b": b} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Errorf("Subscriber %s was not notified", name)
		}
	}
}

func TestHub_SignalsCoalesce(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Notify()
	h.Notify()
	h.Notify()

	<-ch
	select {
	case <-ch:
		t.Error("Expected pending notifications to collapse into one")
	default:
	}
}

func TestHub_CancelRemovesSubscriber(t *testing.T) {
	h := NewHub()
	_, cancel := h.Subscribe()

	if h.size() != 1 {
		t.Fatalf("Expected 1 subscriber, got %d", h.size())
	}
	cancel()
	cancel()
	if h.size() != 0 {
		t.Errorf("Expected 0 subscribers, got %d", h.size())
	}

	h.Notify()
}
