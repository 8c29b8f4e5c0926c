// Package oplog writes booking operation logs through zap.
package oplog

import (
	"context"

	"github.com/MarkoPoloResearchLab/booking/pkg/booking"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const messageOperation = "booking operation"

// Logger adapts a zap.Logger to booking.OperationLogger.
type Logger struct {
	logger *zap.Logger
}

// New returns a Logger. A nil zap logger yields a no-op logger.
func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger}
}

// LogOperation emits one structured line per operation. Domain rejections
// log at warn level and infrastructure failures at error level.
func (operationLogger *Logger) LogOperation(ctx context.Context, entry booking.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	fields = appendIfSet(fields, "member_id", entry.MemberID.String())
	fields = appendIfSet(fields, "facility_id", entry.FacilityID.String())
	fields = appendIfSet(fields, "reservation_id", entry.ReservationID.String())
	fields = appendIfSet(fields, "instrument_id", entry.InstrumentID.String())
	fields = appendIfSet(fields, "payment_id", entry.PaymentID.String())
	fields = appendIfSet(fields, "detail", entry.Detail)
	if entry.Amount != 0 {
		fields = append(fields, zap.Int64("amount", entry.Amount.Int64()))
	}
	level := zapcore.InfoLevel
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		level = zapcore.WarnLevel
		if booking.Kind(entry.Error) == nil {
			level = zapcore.ErrorLevel
		}
	}
	if checked := operationLogger.logger.Check(level, messageOperation); checked != nil {
		checked.Write(fields...)
	}
}

func appendIfSet(fields []zap.Field, key string, value string) []zap.Field {
	if value == "" {
		return fields
	}
	return append(fields, zap.String(key, value))
}
