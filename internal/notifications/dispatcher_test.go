package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brainloop/brainloop/internal/services"
)

type recordingDeliverer struct {
	mu     sync.Mutex
	events []services.NotificationEvent
	fail   bool
	block  chan struct{}
}

func (d *recordingDeliverer) CreateFromEvent(_ context.Context, event services.NotificationEvent) error {
	if d.block != nil {
		<-d.block
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	if d.fail {
		return errors.New("store unavailable")
	}
	return nil
}

func (d *recordingDeliverer) delivered() []services.NotificationEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]services.NotificationEvent, len(d.events))
	copy(out, d.events)
	return out
}

func TestDispatcherDeliversQueuedEvents(t *testing.T) {
	deliverer := &recordingDeliverer{}
	dispatcher := NewDispatcher(deliverer, 8)

	dispatcher.Notify(services.NotificationEvent{Type: "WORKSPACE_INVITATION", UserIDs: []string{"u1"}})
	dispatcher.Notify(services.NotificationEvent{Type: "BRAIN_INVITATION", UserIDs: []string{"u2"}})
	dispatcher.Close()

	events := deliverer.delivered()
	require.Len(t, events, 2)
	require.Equal(t, "WORKSPACE_INVITATION", events[0].Type)
	require.Equal(t, "BRAIN_INVITATION", events[1].Type)
}

func TestDispatcherSwallowsDeliveryErrors(t *testing.T) {
	deliverer := &recordingDeliverer{fail: true}
	dispatcher := NewDispatcher(deliverer, 8)

	// A failing store must not panic or block producers.
	dispatcher.Notify(services.NotificationEvent{Type: "CHAT_INVITATION", UserIDs: []string{"u1"}})
	dispatcher.Close()

	require.Len(t, deliverer.delivered(), 1)
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	deliverer := &recordingDeliverer{block: release}
	dispatcher := NewDispatcher(deliverer, 1)

	// First event occupies the worker, second fills the queue, third drops.
	dispatcher.Notify(services.NotificationEvent{Type: "A", UserIDs: []string{"u1"}})
	time.Sleep(20 * time.Millisecond)
	dispatcher.Notify(services.NotificationEvent{Type: "B", UserIDs: []string{"u1"}})
	dispatcher.Notify(services.NotificationEvent{Type: "C", UserIDs: []string{"u1"}})

	close(release)
	dispatcher.Close()

	events := deliverer.delivered()
	require.Len(t, events, 2)
	for _, event := range events {
		require.NotEqual(t, "C", event.Type)
	}
}

func TestDispatcherNotifyConcurrentWithClose(t *testing.T) {
	deliverer := &recordingDeliverer{}
	dispatcher := NewDispatcher(deliverer, 2)

	// Producers keep publishing while Close runs; the dispatcher must shut
	// down without a send on a closed channel.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				dispatcher.Notify(services.NotificationEvent{Type: "A", UserIDs: []string{"u1"}})
			}
		}()
	}
	dispatcher.Close()
	wg.Wait()
}

func TestDispatcherIgnoresNotifyAfterClose(t *testing.T) {
	deliverer := &recordingDeliverer{}
	dispatcher := NewDispatcher(deliverer, 4)
	dispatcher.Close()

	require.NotPanics(t, func() {
		dispatcher.Notify(services.NotificationEvent{Type: "A", UserIDs: []string{"u1"}})
	})
	require.Empty(t, deliverer.delivered())
}
