// internal/domain/notification/dispatcher.go
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/ruralcare/medreserve/internal/pkg/metrics"
	"github.com/sirupsen/logrus"
)

const deliveryTimeout = 10 * time.Second

// Dispatcher queues events and delivers them to a gateway from worker
// goroutines. Notify never blocks: a full queue drops the event.
type Dispatcher struct {
	gateway Gateway
	queue   chan Event
	workers int
	logger  logrus.FieldLogger
	metrics *metrics.Metrics

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	stopped chan struct{}
}

// NewDispatcher creates a dispatcher. Call Start to begin delivery.
func NewDispatcher(gateway Gateway, queueSize, workers int, logger logrus.FieldLogger, m *metrics.Metrics) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{
		gateway: gateway,
		queue:   make(chan Event, queueSize),
		workers: workers,
		logger:  logger.WithField("component", "notifier"),
		metrics: m,
		stopped: make(chan struct{}),
	}
}

// Start launches the workers
func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
}

// Notify implements Notifier
func (d *Dispatcher) Notify(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.logger.WithField("event_type", event.Type).Warn("Notifier closed, dropping event")
		d.metrics.NotificationsDropped.Inc()
		return
	}

	select {
	case d.queue <- event:
	default:
		d.logger.WithFields(logrus.Fields{
			"event_type":       event.Type,
			"reservation_code": event.ReservationCode,
		}).Warn("Notification queue full, dropping event")
		d.metrics.NotificationsDropped.Inc()
	}
}

// Close stops accepting events and waits until queued events are
// delivered or ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
		go func() {
			d.wg.Wait()
			close(d.stopped)
		}()
	}
	d.mu.Unlock()

	select {
	case <-d.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for event := range d.queue {
		d.deliver(event)
	}
}

func (d *Dispatcher) deliver(event Event) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.logger.WithField("panic", r).Error("Notification gateway panicked")
			d.metrics.NotificationsFailed.WithLabelValues(d.gateway.Name()).Inc()
		}
	}()

	if err := d.gateway.Deliver(ctx, event); err != nil {
		d.logger.WithError(err).WithFields(logrus.Fields{
			"gateway":    d.gateway.Name(),
			"event_type": event.Type,
			"event_id":   event.ID,
		}).Warn("Failed to deliver notification")
		d.metrics.NotificationsFailed.WithLabelValues(d.gateway.Name()).Inc()
	}
}
