package booking

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error unwraps to exactly one of these.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidState    = errors.New("invalid state")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Domain-level error values returned by the booking service and its stores.
var (
	ErrUnknownMember      = newKindError(ErrNotFound, "unknown member")
	ErrUnknownFacility    = newKindError(ErrNotFound, "unknown facility")
	ErrUnknownReservation = newKindError(ErrNotFound, "unknown reservation")
	ErrUnknownInstrument  = newKindError(ErrNotFound, "unknown payment instrument")
	ErrUnknownPayment     = newKindError(ErrNotFound, "unknown payment")

	ErrReservationOverlap     = newKindError(ErrConflict, "reservation window overlaps an existing reservation")
	ErrInstrumentNumberTaken  = newKindError(ErrConflict, "instrument number is already registered")
	ErrInstrumentAlreadyYours = newKindError(ErrConflict, "instrument number is already registered to this member")
	ErrStaleStatus            = newKindError(ErrConflict, "status changed concurrently")
	ErrDuplicateTransition    = newKindError(ErrConflict, "payment transition already recorded")

	ErrReservationForbidden = newKindError(ErrForbidden, "reservation belongs to another member")
	ErrInstrumentForbidden  = newKindError(ErrForbidden, "payment instrument belongs to another member")
	ErrPaymentForbidden     = newKindError(ErrForbidden, "payment belongs to another member")

	ErrPrimaryInstrument         = newKindError(ErrInvalidState, "primary instrument cannot be deleted")
	ErrInstrumentInUse           = newKindError(ErrInvalidState, "instrument is referenced by payments")
	ErrInstrumentKindMismatch    = newKindError(ErrInvalidState, "instrument kind does not match reference")
	ErrNonPositiveAmount         = newKindError(ErrInvalidState, "payment amount must be positive")
	ErrAmountOverflow            = newKindError(ErrInvalidState, "payment amount exceeds the representable range")
	ErrPaymentTransition         = newKindError(ErrInvalidState, "payment status transition not allowed")
	ErrReservationTransition     = newKindError(ErrInvalidState, "reservation status transition not allowed")
	ErrReservationCancelled      = newKindError(ErrInvalidState, "reservation is cancelled")
	ErrReservationAlreadyPaid    = newKindError(ErrInvalidState, "reservation already has an open payment")
	ErrReservationNotCancellable = newKindError(ErrInvalidState, "reservation cannot be cancelled directly")
	ErrOutsideOperatingHours     = newKindError(ErrInvalidState, "reservation window is outside facility operating hours")

	ErrInvalidMemberID        = newKindError(ErrInvalidArgument, "invalid member id")
	ErrInvalidFacilityID      = newKindError(ErrInvalidArgument, "invalid facility id")
	ErrInvalidReservationID   = newKindError(ErrInvalidArgument, "invalid reservation id")
	ErrInvalidInstrumentID    = newKindError(ErrInvalidArgument, "invalid instrument id")
	ErrInvalidPaymentID       = newKindError(ErrInvalidArgument, "invalid payment id")
	ErrInvalidTimeWindow      = newKindError(ErrInvalidArgument, "invalid time window")
	ErrInvalidRequestedDate   = newKindError(ErrInvalidArgument, "invalid requested date")
	ErrInvalidHeadcount       = newKindError(ErrInvalidArgument, "invalid headcount")
	ErrInvalidInstrumentKind  = newKindError(ErrInvalidArgument, "invalid instrument kind")
	ErrInvalidInstrumentRef   = newKindError(ErrInvalidArgument, "exactly one of account or card must be referenced")
	ErrInvalidInstrument      = newKindError(ErrInvalidArgument, "invalid instrument details")
	ErrInvalidStatus          = newKindError(ErrInvalidArgument, "invalid status")
	ErrInvalidTargetStatus    = newKindError(ErrInvalidArgument, "payment can only be moved to completed or cancelled")
	ErrInvalidActor           = newKindError(ErrInvalidArgument, "invalid actor")
	ErrInvalidFacility        = newKindError(ErrInvalidArgument, "invalid facility")
	ErrInvalidServiceConfig   = errors.New("invalid service config")
	ErrInvalidOperatingWindow = newKindError(ErrInvalidArgument, "invalid operating hours")
)

type kindError struct {
	kind    error
	message string
}

func newKindError(kind error, message string) error {
	return &kindError{kind: kind, message: message}
}

func (err *kindError) Error() string {
	return err.message
}

func (err *kindError) Unwrap() error {
	return err.kind
}

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}

// Kind reports which error kind err belongs to, or nil when it carries none.
func Kind(err error) error {
	for _, kind := range []error{ErrNotFound, ErrConflict, ErrForbidden, ErrInvalidState, ErrInvalidArgument} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
