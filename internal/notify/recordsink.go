package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidRecordingSink = errors.New("notify: invalid recording sink")

// StoredMessage mirrors the messages table.
type StoredMessage struct {
	MessageID     string `gorm:"column:message_id;primaryKey"`
	MemberID      string `gorm:"column:member_id;not null"`
	ReservationID string `gorm:"column:reservation_id;not null"`
	Event         string `gorm:"column:event;not null"`
	Body          string `gorm:"column:body;not null"`
	CreatedUnix   int64  `gorm:"column:created_unix;not null"`
	RecordedUnix  int64  `gorm:"column:recorded_unix;not null"`
}

func (StoredMessage) TableName() string { return "messages" }

// RecordingSink writes every message to the messages table and then hands it
// to the next sink. A redelivered message keeps its first row.
type RecordingSink struct {
	db   *gorm.DB
	next Sink
	now  func() int64
}

// NewRecordingSink wraps next. A nil clock reads the wall clock.
func NewRecordingSink(db *gorm.DB, next Sink, now func() int64) (*RecordingSink, error) {
	if db == nil || next == nil {
		return nil, ErrInvalidRecordingSink
	}
	if now == nil {
		now = func() int64 { return time.Now().UTC().Unix() }
	}
	return &RecordingSink{db: db, next: next, now: now}, nil
}

func (sink *RecordingSink) Publish(ctx context.Context, message Message) error {
	if message.MessageID == "" {
		message.MessageID = uuid.NewString()
	}
	row := StoredMessage{
		MessageID:     message.MessageID,
		MemberID:      message.MemberID,
		ReservationID: message.ReservationID,
		Event:         message.Event,
		Body:          message.Body,
		CreatedUnix:   message.CreatedUnixUTC,
		RecordedUnix:  sink.now(),
	}
	err := sink.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "message_id"}}, DoNothing: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("record message: %w", err)
	}
	return sink.next.Publish(ctx, message)
}

// ListMemberMessages returns the recorded messages for memberID, oldest first.
func (sink *RecordingSink) ListMemberMessages(ctx context.Context, memberID string) ([]StoredMessage, error) {
	var rows []StoredMessage
	err := sink.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("created_unix, message_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return rows, nil
}
