package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MarkoPoloResearchLab/booking/pkg/booking"
	"go.uber.org/zap"
)

const (
	defaultQueueCapacity   = 256
	defaultWorkerCount     = 1
	defaultDeliveryTimeout = 5 * time.Second
)

var (
	ErrInvalidDispatcherConfig = errors.New("notify: invalid dispatcher config")
	ErrDispatcherClosed        = errors.New("notify: dispatcher closed")
	ErrQueueFull               = errors.New("notify: queue full")
	ErrInvalidMessage          = errors.New("notify: invalid message")
)

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithQueueCapacity bounds the number of pending notifications.
func WithQueueCapacity(capacity int) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		if capacity > 0 {
			dispatcher.capacity = capacity
		}
	}
}

// WithWorkers sets how many goroutines deliver concurrently.
func WithWorkers(workers int) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		if workers > 0 {
			dispatcher.workers = workers
		}
	}
}

// WithDeliveryTimeout bounds a single sink call.
func WithDeliveryTimeout(timeout time.Duration) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		if timeout > 0 {
			dispatcher.timeout = timeout
		}
	}
}

// WithDispatcherLogger reports delivery failures.
func WithDispatcherLogger(logger *zap.Logger) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		if logger != nil {
			dispatcher.logger = logger
		}
	}
}

// WithClock overrides the timestamp source for messages.
func WithClock(now func() int64) DispatcherOption {
	return func(dispatcher *Dispatcher) {
		if now != nil {
			dispatcher.now = now
		}
	}
}

// Dispatcher implements booking.Notifier. Notify only enqueues; a pool of
// workers delivers to the sink after the caller has moved on.
type Dispatcher struct {
	sink     Sink
	capacity int
	workers  int
	timeout  time.Duration
	logger   *zap.Logger
	now      func() int64

	queue     chan Message
	mu        sync.RWMutex
	closed    bool
	waitGroup sync.WaitGroup
}

// NewDispatcher starts the delivery workers.
func NewDispatcher(sink Sink, options ...DispatcherOption) (*Dispatcher, error) {
	if sink == nil {
		return nil, ErrInvalidDispatcherConfig
	}
	dispatcher := &Dispatcher{
		sink:     sink,
		capacity: defaultQueueCapacity,
		workers:  defaultWorkerCount,
		timeout:  defaultDeliveryTimeout,
		logger:   zap.NewNop(),
		now:      func() int64 { return time.Now().UTC().Unix() },
	}
	for _, option := range options {
		option(dispatcher)
	}
	dispatcher.queue = make(chan Message, dispatcher.capacity)
	for index := 0; index < dispatcher.workers; index++ {
		dispatcher.waitGroup.Add(1)
		go dispatcher.run()
	}
	return dispatcher, nil
}

// Notify queues the notification without waiting for delivery.
func (dispatcher *Dispatcher) Notify(ctx context.Context, notification booking.Notification) error {
	dispatcher.mu.RLock()
	defer dispatcher.mu.RUnlock()
	if dispatcher.closed {
		return ErrDispatcherClosed
	}
	message := NewMessage(notification, dispatcher.now())
	select {
	case dispatcher.queue <- message:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting notifications and waits for queued ones to drain
// or for ctx to end.
func (dispatcher *Dispatcher) Close(ctx context.Context) error {
	dispatcher.mu.Lock()
	if !dispatcher.closed {
		dispatcher.closed = true
		close(dispatcher.queue)
	}
	dispatcher.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		dispatcher.waitGroup.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (dispatcher *Dispatcher) run() {
	defer dispatcher.waitGroup.Done()
	for message := range dispatcher.queue {
		dispatcher.deliver(message)
	}
}

func (dispatcher *Dispatcher) deliver(message Message) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatcher.timeout)
	defer cancel()
	if err := dispatcher.sink.Publish(ctx, message); err != nil {
		dispatcher.logger.Warn("notification delivery failed",
			zap.String("member_id", message.MemberID),
			zap.String("reservation_id", message.ReservationID),
			zap.String("event", message.Event),
			zap.Error(err),
		)
	}
}
