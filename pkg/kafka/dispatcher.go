package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrQueueFull is returned when the dispatcher queue has no free slot.
var ErrQueueFull = errors.New("kafka: event queue full")

// ErrDispatcherClosed is returned by Publish after Close.
var ErrDispatcherClosed = errors.New("kafka: dispatcher closed")

// EventPublisher writes one event to a topic. *Producer satisfies it.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
}

// DispatcherConfig sizes the queue and bounds each background write.
type DispatcherConfig struct {
	QueueSize    int
	WriteTimeout time.Duration
}

// DefaultDispatcherConfig returns the dispatcher defaults.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{QueueSize: 256, WriteTimeout: 5 * time.Second}
}

type queued struct {
	ctx   context.Context
	topic string
	event *Event
}

// Dispatcher hands events to a publisher from a single background goroutine,
// so callers never wait on the broker. Events keep their enqueue order.
type Dispatcher struct {
	next    EventPublisher
	timeout time.Duration
	logger  *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan queued
	done   chan struct{}
}

// NewDispatcher starts the background writer.
func NewDispatcher(next EventPublisher, cfg DispatcherConfig, logger *slog.Logger) *Dispatcher {
	def := DefaultDispatcherConfig()
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	d := &Dispatcher{
		next:    next,
		timeout: cfg.WriteTimeout,
		logger:  logger,
		queue:   make(chan queued, cfg.QueueSize),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Publish enqueues event and returns at once. The request context is kept
// for its values only, so trace and correlation ids survive the hand-off.
func (d *Dispatcher) Publish(ctx context.Context, topic string, event *Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}

	select {
	case d.queue <- queued{ctx: context.WithoutCancel(ctx), topic: topic, event: event}:
		return nil
	default:
		eventsPublished.WithLabelValues(topic, resultDropped).Inc()
		return ErrQueueFull
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for item := range d.queue {
		ctx, cancel := context.WithTimeout(item.ctx, d.timeout)
		if err := d.next.Publish(ctx, item.topic, item.event); err != nil {
			d.logger.WarnContext(ctx, "background event publish failed",
				slog.String("topic", item.topic),
				slog.String("event_type", item.event.EventType),
				slog.String("error", err.Error()),
			)
		}
		cancel()
	}
}

// Pending reports how many events are waiting to be written.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Close stops accepting events and waits for the queue to drain or ctx to
// end, whichever comes first.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
