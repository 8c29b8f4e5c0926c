// Package apierror names domain errors with stable codes for the gRPC and HTTP surfaces.
package apierror

import (
	"errors"

	"github.com/MarkoPoloResearchLab/booking/pkg/booking"
)

const (
	CodeInternal        = "internal_error"
	CodeInvalidArgument = "invalid_argument"
)

type codedError struct {
	err  error
	code string
}

var codedErrors = []codedError{
	{booking.ErrUnknownMember, "unknown_member"},
	{booking.ErrUnknownFacility, "unknown_facility"},
	{booking.ErrUnknownReservation, "unknown_reservation"},
	{booking.ErrUnknownInstrument, "unknown_instrument"},
	{booking.ErrUnknownPayment, "unknown_payment"},
	{booking.ErrReservationOverlap, "reservation_overlap"},
	{booking.ErrInstrumentNumberTaken, "instrument_number_taken"},
	{booking.ErrInstrumentAlreadyYours, "instrument_already_registered"},
	{booking.ErrStaleStatus, "stale_status"},
	{booking.ErrDuplicateTransition, "duplicate_transition"},
	{booking.ErrReservationForbidden, "reservation_forbidden"},
	{booking.ErrInstrumentForbidden, "instrument_forbidden"},
	{booking.ErrPaymentForbidden, "payment_forbidden"},
	{booking.ErrPrimaryInstrument, "primary_instrument"},
	{booking.ErrInstrumentInUse, "instrument_in_use"},
	{booking.ErrInstrumentKindMismatch, "instrument_kind_mismatch"},
	{booking.ErrNonPositiveAmount, "non_positive_amount"},
	{booking.ErrAmountOverflow, "amount_overflow"},
	{booking.ErrPaymentTransition, "payment_transition"},
	{booking.ErrReservationTransition, "reservation_transition"},
	{booking.ErrReservationCancelled, "reservation_cancelled"},
	{booking.ErrReservationAlreadyPaid, "reservation_already_paid"},
	{booking.ErrReservationNotCancellable, "reservation_not_cancellable"},
	{booking.ErrOutsideOperatingHours, "outside_operating_hours"},
	{booking.ErrInvalidMemberID, "invalid_member_id"},
	{booking.ErrInvalidFacilityID, "invalid_facility_id"},
	{booking.ErrInvalidReservationID, "invalid_reservation_id"},
	{booking.ErrInvalidInstrumentID, "invalid_instrument_id"},
	{booking.ErrInvalidPaymentID, "invalid_payment_id"},
	{booking.ErrInvalidTimeWindow, "invalid_time_window"},
	{booking.ErrInvalidRequestedDate, "invalid_requested_date"},
	{booking.ErrInvalidHeadcount, "invalid_headcount"},
	{booking.ErrInvalidInstrumentKind, "invalid_instrument_kind"},
	{booking.ErrInvalidInstrumentRef, "invalid_instrument_ref"},
	{booking.ErrInvalidInstrument, "invalid_instrument"},
	{booking.ErrInvalidStatus, "invalid_status"},
	{booking.ErrInvalidTargetStatus, "invalid_target_status"},
	{booking.ErrInvalidActor, "invalid_actor"},
}

// Code returns the stable code for err. Errors outside the domain get
// CodeInternal; domain errors without a dedicated code fall back to their kind.
func Code(err error) string {
	for _, candidate := range codedErrors {
		if errors.Is(err, candidate.err) {
			return candidate.code
		}
	}
	switch booking.Kind(err) {
	case booking.ErrNotFound:
		return "not_found"
	case booking.ErrConflict:
		return "conflict"
	case booking.ErrForbidden:
		return "forbidden"
	case booking.ErrInvalidState:
		return "invalid_state"
	case booking.ErrInvalidArgument:
		return CodeInvalidArgument
	}
	return CodeInternal
}

// Message returns the client-safe text for err. Internal failures are not echoed.
func Message(err error) string {
	if booking.Kind(err) == nil {
		return "internal error"
	}
	for _, candidate := range codedErrors {
		if errors.Is(err, candidate.err) {
			return candidate.err.Error()
		}
	}
	return err.Error()
}
