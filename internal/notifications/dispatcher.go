// Package notifications decouples grant cascades from notification delivery.
// The propagation engine enqueues events and returns immediately; a single
// background worker persists and broadcasts them. A delivery failure never
// unwinds the grant commit that produced the event.
package notifications

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/brainloop/brainloop/internal/services"
	"github.com/brainloop/brainloop/pkg/logger"
	"github.com/brainloop/brainloop/pkg/metrics"
)

const (
	defaultQueueSize = 256
	deliveryTimeout  = 10 * time.Second
)

// Deliverer persists and fans out a single notification event.
type Deliverer interface {
	CreateFromEvent(ctx context.Context, event services.NotificationEvent) error
}

// Dispatcher is a bounded fire-and-forget queue between the propagation
// engine and the notification store. When the queue is full events are
// dropped and counted rather than blocking the producer.
type Dispatcher struct {
	queue     chan services.NotificationEvent
	deliverer Deliverer
	log       *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewDispatcher starts a dispatcher with the given queue capacity. A size of
// zero or less uses the default.
func NewDispatcher(deliverer Deliverer, size int) *Dispatcher {
	if size <= 0 {
		size = defaultQueueSize
	}
	d := &Dispatcher{
		queue:     make(chan services.NotificationEvent, size),
		deliverer: deliverer,
		log:       logger.WithModule("notifications"),
		done:      make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Notify enqueues an event without blocking. Implements
// services.NotificationSink.
func (d *Dispatcher) Notify(event services.NotificationEvent) {
	select {
	case <-d.done:
		return
	default:
	}

	select {
	case d.queue <- event:
		metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
	default:
		metrics.NotificationDrops.Inc()
		d.log.Warn("notification queue full, dropping event",
			zap.String("type", event.Type),
			zap.String("resource_id", event.ResourceID))
	}
}

// Close stops accepting events, drains what is already queued, and waits for
// the worker to exit. The queue channel is never closed so a Notify racing
// Close can at worst lose its event, not panic.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.done)
	})
	d.wg.Wait()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.queue:
			metrics.NotificationQueueDepth.Set(float64(len(d.queue)))
			d.deliver(event)
		case <-d.done:
			for {
				select {
				case event := <-d.queue:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(event services.NotificationEvent) {
	if d.deliverer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	if err := d.deliverer.CreateFromEvent(ctx, event); err != nil {
		d.log.Error("notification delivery failed",
			zap.String("type", event.Type),
			zap.String("resource_id", event.ResourceID),
			zap.Int("recipients", len(event.UserIDs)),
			zap.Error(err))
	}
}
