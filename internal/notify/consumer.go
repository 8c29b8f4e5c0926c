package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	defaultPrefetch   = 50
	defaultMinBackoff = time.Second
	defaultMaxBackoff = 30 * time.Second
	defaultQueueRetry = 2 * time.Second
)

var (
	ErrInvalidConsumerConfig = errors.New("notify: invalid consumer config")
	errDeliveriesClosed      = errors.New("deliveries channel closed")
)

// Handler processes one decoded notification.
type Handler func(ctx context.Context, message Message) error

// ConsumerOption configures a Consumer.
type ConsumerOption func(*Consumer)

// WithPrefetch sets the channel QoS prefetch count.
func WithPrefetch(prefetch int) ConsumerOption {
	return func(consumer *Consumer) {
		if prefetch > 0 {
			consumer.prefetch = prefetch
		}
	}
}

// WithBackoff bounds the reconnect delay.
func WithBackoff(minimum time.Duration, maximum time.Duration) ConsumerOption {
	return func(consumer *Consumer) {
		if minimum > 0 && maximum >= minimum {
			consumer.minBackoff = minimum
			consumer.maxBackoff = maximum
		}
	}
}

// WithConsumerLogger reports connection and handler failures.
func WithConsumerLogger(logger *zap.Logger) ConsumerOption {
	return func(consumer *Consumer) {
		if logger != nil {
			consumer.logger = logger
		}
	}
}

// Consumer reads notifications from a durable queue, reconnecting with
// exponential backoff. Messages are acked after the handler succeeds and
// dropped without requeue when decoding or handling fails.
type Consumer struct {
	url        string
	queueName  string
	handler    Handler
	prefetch   int
	minBackoff time.Duration
	maxBackoff time.Duration
	logger     *zap.Logger
}

// NewConsumer validates the consumer configuration.
func NewConsumer(url string, queueName string, handler Handler, options ...ConsumerOption) (*Consumer, error) {
	if url == "" || handler == nil {
		return nil, ErrInvalidConsumerConfig
	}
	if queueName == "" {
		queueName = DefaultQueueName
	}
	consumer := &Consumer{
		url:        url,
		queueName:  queueName,
		handler:    handler,
		prefetch:   defaultPrefetch,
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
		logger:     zap.NewNop(),
	}
	for _, option := range options {
		option(consumer)
	}
	return consumer, nil
}

// Run consumes until ctx ends.
func (consumer *Consumer) Run(ctx context.Context) error {
	backoff := consumer.minBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}
		connection, err := amqp.Dial(consumer.url)
		if err != nil {
			consumer.logger.Warn("notification consumer dial failed", zap.Duration("retry_in", backoff), zap.Error(err))
			if !sleepContext(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff, consumer.maxBackoff)
			continue
		}
		backoff = consumer.minBackoff
		err = consumer.consume(ctx, connection)
		_ = connection.Close()
		if ctx.Err() != nil {
			return nil
		}
		consumer.logger.Warn("notification consumer loop ended", zap.Error(err))
		if !sleepContext(ctx, defaultQueueRetry) {
			return nil
		}
	}
}

func (consumer *Consumer) consume(ctx context.Context, connection *amqp.Connection) error {
	channel, err := connection.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = channel.Close() }()

	if err := channel.Qos(consumer.prefetch, 0, false); err != nil {
		consumer.logger.Warn("notification consumer qos failed", zap.Error(err))
	}
	if _, err := channel.QueueDeclare(consumer.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	deliveries, err := channel.Consume(consumer.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			consumer.handle(ctx, delivery)
		}
	}
}

func (consumer *Consumer) handle(ctx context.Context, delivery amqp.Delivery) {
	message, err := DecodeMessage(delivery.Body)
	if err == nil {
		err = consumer.handler(ctx, message)
	}
	if err != nil {
		consumer.logger.Warn("notification rejected", zap.Uint64("delivery_tag", delivery.DeliveryTag), zap.Error(err))
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			consumer.logger.Warn("notification nack failed", zap.Error(nackErr))
		}
		return
	}
	if ackErr := delivery.Ack(false); ackErr != nil {
		consumer.logger.Warn("notification ack failed", zap.Error(ackErr))
	}
}

func nextBackoff(current time.Duration, maximum time.Duration) time.Duration {
	next := current * 2
	if next > maximum {
		return maximum
	}
	return next
}

// sleepContext waits for duration and reports false when ctx ended first.
func sleepContext(ctx context.Context, duration time.Duration) bool {
	timer := time.NewTimer(duration)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
