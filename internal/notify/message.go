// Package notify delivers member notifications asynchronously.
package notify

import (
	"context"
	"encoding/json"

	"github.com/MarkoPoloResearchLab/booking/pkg/booking"
	"github.com/google/uuid"
)

// DefaultQueueName is the durable RabbitMQ queue notifications flow through.
const DefaultQueueName = "booking.notifications"

// Message is the wire form of a booking.Notification.
type Message struct {
	MessageID      string `json:"message_id"`
	MemberID       string `json:"member_id"`
	ReservationID  string `json:"reservation_id"`
	Event          string `json:"event"`
	Body           string `json:"body"`
	CreatedUnixUTC int64  `json:"created_unix_utc"`
}

// NewMessage stamps a notification for delivery.
func NewMessage(notification booking.Notification, createdUnixUTC int64) Message {
	return Message{
		MessageID:      uuid.NewString(),
		MemberID:       notification.MemberID.String(),
		ReservationID:  notification.ReservationID.String(),
		Event:          string(notification.Event),
		Body:           notification.Body,
		CreatedUnixUTC: createdUnixUTC,
	}
}

// DecodeMessage parses a delivery body.
func DecodeMessage(body []byte) (Message, error) {
	var message Message
	if err := json.Unmarshal(body, &message); err != nil {
		return Message{}, err
	}
	if message.MemberID == "" || message.Event == "" {
		return Message{}, ErrInvalidMessage
	}
	return message, nil
}

// Sink hands a message to a transport.
type Sink interface {
	Publish(ctx context.Context, message Message) error
}
