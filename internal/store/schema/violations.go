package schema

import (
	"errors"
	"strings"

	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
)

// Violation names a store-level guard that rejected a write.
type Violation int

const (
	ViolationNone Violation = iota
	ViolationReservationOverlap
	ViolationInstrumentNumber
	ViolationPrimaryInstrumentRef
	ViolationInstrumentInUse
	ViolationOpenPayment
	ViolationPaymentLogTransition
	// ViolationForeignKey is a foreign key failure whose constraint the
	// driver does not name; callers resolve it from the statement they ran.
	ViolationForeignKey
	ViolationOther
)

const (
	pgUniqueViolationCode     = "23505"
	pgForeignKeyViolationCode = "23503"
	pgExclusionViolationCode  = "23P01"
	sqliteConstraintCode      = 19
)

// sqlite reports failing columns rather than constraint names.
var sqliteMessageViolations = []struct {
	fragment  string
	violation Violation
}{
	{fragment: sqliteOverlapMessage, violation: ViolationReservationOverlap},
	{fragment: "payment_instruments.kind, payment_instruments.number", violation: ViolationInstrumentNumber},
	{fragment: "payments.reservation_id", violation: ViolationOpenPayment},
	{fragment: "payment_logs.payment_id, payment_logs.before_status, payment_logs.after_status", violation: ViolationPaymentLogTransition},
	{fragment: "FOREIGN KEY constraint failed", violation: ViolationForeignKey},
}

// Classify maps a driver error to the guard that raised it.
func Classify(err error) Violation {
	if err == nil {
		return ViolationNone
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPostgres(pgErr)
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code()&0xFF != sqliteConstraintCode {
			return ViolationNone
		}
		return classifySQLiteMessage(sqliteErr.Error())
	}
	return ViolationNone
}

func classifyPostgres(pgErr *pgconn.PgError) Violation {
	switch pgErr.Code {
	case pgExclusionViolationCode:
		if pgErr.ConstraintName == ConstraintReservationOverlap {
			return ViolationReservationOverlap
		}
	case pgUniqueViolationCode:
		switch pgErr.ConstraintName {
		case ConstraintInstrumentNumber:
			return ViolationInstrumentNumber
		case ConstraintOpenPayment:
			return ViolationOpenPayment
		case ConstraintPaymentLogTransition:
			return ViolationPaymentLogTransition
		}
	case pgForeignKeyViolationCode:
		switch pgErr.ConstraintName {
		case ConstraintPrimaryInstrumentRef:
			return ViolationPrimaryInstrumentRef
		case ConstraintPaymentAccountRef, ConstraintPaymentCardRef:
			return ViolationInstrumentInUse
		}
		return ViolationForeignKey
	default:
		return ViolationNone
	}
	return ViolationOther
}

func classifySQLiteMessage(message string) Violation {
	for _, candidate := range sqliteMessageViolations {
		if strings.Contains(message, candidate.fragment) {
			return candidate.violation
		}
	}
	return ViolationOther
}
