package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	contentTypeJSON = "application/json"
	// A failed publish reopens the channel and tries once more.
	publishAttempts = 2
)

var ErrInvalidPublisherConfig = errors.New("notify: invalid publisher config")

type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// channelOpener returns an open channel and a func releasing its connection.
type channelOpener func() (amqpChannel, func() error, error)

// AMQPPublisher publishes persistent JSON messages to a durable queue on the
// default exchange. The connection is opened lazily; a publish that fails on
// a stale channel is retried once on a fresh connection.
type AMQPPublisher struct {
	open      channelOpener
	queueName string

	mu      sync.Mutex
	channel amqpChannel
	release func() error
}

// NewAMQPPublisher targets queueName on the broker at url.
func NewAMQPPublisher(url string, queueName string) (*AMQPPublisher, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty url", ErrInvalidPublisherConfig)
	}
	return newAMQPPublisher(dialChannel(url), queueName)
}

func newAMQPPublisher(open channelOpener, queueName string) (*AMQPPublisher, error) {
	if open == nil {
		return nil, ErrInvalidPublisherConfig
	}
	if queueName == "" {
		queueName = DefaultQueueName
	}
	return &AMQPPublisher{open: open, queueName: queueName}, nil
}

func dialChannel(url string) channelOpener {
	return func() (amqpChannel, func() error, error) {
		connection, err := amqp.Dial(url)
		if err != nil {
			return nil, nil, fmt.Errorf("amqp dial: %w", err)
		}
		channel, err := connection.Channel()
		if err != nil {
			_ = connection.Close()
			return nil, nil, fmt.Errorf("amqp channel: %w", err)
		}
		return channel, connection.Close, nil
	}
}

func (publisher *AMQPPublisher) Publish(ctx context.Context, message Message) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}
	publishing := amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Unix(message.CreatedUnixUTC, 0).UTC(),
		Type:         message.Event,
		Body:         body,
	}
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	var publishErr error
	for attempt := 0; attempt < publishAttempts; attempt++ {
		channel, err := publisher.ensureChannel()
		if err != nil {
			return err
		}
		publishErr = channel.PublishWithContext(ctx, "", publisher.queueName, false, false, publishing)
		if publishErr == nil {
			return nil
		}
		_ = publisher.reset()
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("amqp publish: %w", publishErr)
}

// Close releases the channel and connection.
func (publisher *AMQPPublisher) Close() error {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	return publisher.reset()
}

func (publisher *AMQPPublisher) ensureChannel() (amqpChannel, error) {
	if publisher.channel != nil {
		return publisher.channel, nil
	}
	channel, release, err := publisher.open()
	if err != nil {
		return nil, err
	}
	if _, err := channel.QueueDeclare(publisher.queueName, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		if release != nil {
			_ = release()
		}
		return nil, fmt.Errorf("amqp queue declare: %w", err)
	}
	publisher.channel = channel
	publisher.release = release
	return channel, nil
}

func (publisher *AMQPPublisher) reset() error {
	var err error
	if publisher.channel != nil {
		err = publisher.channel.Close()
		publisher.channel = nil
	}
	if publisher.release != nil {
		if releaseErr := publisher.release(); err == nil {
			err = releaseErr
		}
		publisher.release = nil
	}
	return err
}
