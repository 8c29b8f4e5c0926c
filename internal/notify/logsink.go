package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes notifications to a zap logger. Used when no broker is configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a sink logging at info level.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (sink *LogSink) Publish(ctx context.Context, message Message) error {
	sink.logger.Info("notification",
		zap.String("message_id", message.MessageID),
		zap.String("member_id", message.MemberID),
		zap.String("reservation_id", message.ReservationID),
		zap.String("event", message.Event),
		zap.String("body", message.Body),
		zap.Int64("created_unix_utc", message.CreatedUnixUTC),
	)
	return nil
}
