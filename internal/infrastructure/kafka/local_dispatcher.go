package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/bibbank/bureau-service/internal/domain/event"
	"github.com/bibbank/bureau-service/internal/domain/port"
	pkgkafka "github.com/bibbank/bureau-service/pkg/kafka"
)

const defaultDispatchQueue = 256

var (
	// ErrDispatcherClosed is returned by Publish after Close.
	ErrDispatcherClosed = errors.New("local dispatcher closed")
	// ErrDispatchQueueFull is returned when the workers are behind by more
	// than the queue size.
	ErrDispatchQueueFull = errors.New("local dispatch queue full")
)

// LocalDispatcherOption customises a LocalDispatcher.
type LocalDispatcherOption func(*LocalDispatcher)

// WithEventTypes restricts dispatch to the named event types. Other events
// are accepted and dropped without taking a worker.
func WithEventTypes(types ...string) LocalDispatcherOption {
	return func(d *LocalDispatcher) {
		d.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			d.types[t] = struct{}{}
		}
	}
}

// WithQueueSize sets how many events may wait for a worker.
func WithQueueSize(n int) LocalDispatcherOption {
	return func(d *LocalDispatcher) {
		if n > 0 {
			d.queue = make(chan pkgkafka.Message, n)
		}
	}
}

// LocalDispatcher is the event publisher used when no brokers are
// configured. Events are encoded exactly as for Kafka, queued, and handed to
// the handler in-process by a fixed pool of workers. Publish never waits on
// a running handler.
type LocalDispatcher struct {
	handler pkgkafka.Handler
	types   map[string]struct{}
	queue   chan pkgkafka.Message
	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger
}

var _ port.EventPublisher = (*LocalDispatcher)(nil)

func NewLocalDispatcher(handler pkgkafka.Handler, workers int, logger *slog.Logger, opts ...LocalDispatcherOption) *LocalDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &LocalDispatcher{
		handler: handler,
		queue:   make(chan pkgkafka.Message, defaultDispatchQueue),
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}
	return d
}

// Publish queues each event for the workers. Handlers run on the
// dispatcher's own context so they outlive the request.
func (d *LocalDispatcher) Publish(ctx context.Context, evts ...event.DomainEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	for _, evt := range evts {
		if d.types != nil {
			if _, ok := d.types[evt.EventType()]; !ok {
				continue
			}
		}
		msg, err := EncodeEvent(evt)
		if err != nil {
			return err
		}
		select {
		case d.queue <- msg:
			d.logger.DebugContext(ctx, "dispatching domain event locally",
				"event_type", evt.EventType(),
				"aggregate_id", evt.AggregateID(),
			)
		default:
			return ErrDispatchQueueFull
		}
	}
	return nil
}

func (d *LocalDispatcher) work() {
	defer d.wg.Done()
	for msg := range d.queue {
		if err := d.handler(d.ctx, msg); err != nil {
			d.logger.Error("local event handler failed", "event_type", msg.Headers[HeaderEventType], "error", err)
		}
	}
}

// Close cancels running handlers, lets the workers drain the queue on the
// cancelled context, and waits for them to return.
func (d *LocalDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.cancel()
	d.wg.Wait()
}
