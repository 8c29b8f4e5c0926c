package booking

import "context"

// Store is the persistence contract used by Service.
// Both gormstore and pgstore implement it. Reads of reservations and payments
// inside WithTx lock the row where the backing database supports it.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error

	HasOverlappingReservation(ctx context.Context, facilityID FacilityID, window TimeWindow) (bool, error)
	// CreateReservation returns ErrReservationOverlap when the store-level
	// exclusion guard rejects the insert.
	CreateReservation(ctx context.Context, draft ReservationDraft) (Reservation, error)
	GetReservation(ctx context.Context, reservationID ReservationID) (Reservation, error)
	// ListReservations returns the member's reservations by window start. A
	// zero facilityID matches every facility.
	ListReservations(ctx context.Context, memberID MemberID, facilityID FacilityID) ([]Reservation, error)
	// MarkCancellationRequested flips the flag only when it is still false and
	// reports whether a row changed.
	MarkCancellationRequested(ctx context.Context, reservationID ReservationID, reason string, atUnixUTC int64) (bool, error)
	// UpdateReservationStatus returns ErrStaleStatus when the row is no longer in from.
	UpdateReservationStatus(ctx context.Context, reservationID ReservationID, from ReservationStatus, to ReservationStatus, atUnixUTC int64) error

	// CreateInstrument returns ErrInstrumentNumberTaken on a (kind, number) clash.
	CreateInstrument(ctx context.Context, draft InstrumentDraft) (Instrument, error)
	GetInstrument(ctx context.Context, instrumentID InstrumentID) (Instrument, error)
	ListInstruments(ctx context.Context, memberID MemberID, kind InstrumentKind) ([]Instrument, error)
	// ClaimPrimaryIfVacant points the member's primary for kind at the
	// instrument only when no primary exists yet, reporting whether it did.
	ClaimPrimaryIfVacant(ctx context.Context, memberID MemberID, kind InstrumentKind, instrumentID InstrumentID, atUnixUTC int64) (bool, error)
	// SetPrimaryInstrument moves the member's primary pointer in one write.
	SetPrimaryInstrument(ctx context.Context, memberID MemberID, kind InstrumentKind, instrumentID InstrumentID, atUnixUTC int64) error
	// DeleteInstrument returns ErrPrimaryInstrument or ErrInstrumentInUse when
	// a store-level reference blocks the delete.
	DeleteInstrument(ctx context.Context, instrumentID InstrumentID) error

	// CreatePayment returns ErrReservationAlreadyPaid when another open payment exists.
	CreatePayment(ctx context.Context, draft PaymentDraft) (Payment, error)
	GetPayment(ctx context.Context, paymentID PaymentID) (Payment, error)
	ListPaymentsByReservation(ctx context.Context, reservationID ReservationID) ([]Payment, error)
	ListPayments(ctx context.Context, memberID MemberID, filter PaymentFilter) ([]Payment, error)
	// UpdatePaymentStatus returns ErrStaleStatus when the row is no longer in from.
	UpdatePaymentStatus(ctx context.Context, paymentID PaymentID, from PaymentStatus, to PaymentStatus, atUnixUTC int64) error
	// AppendPaymentLog returns ErrDuplicateTransition when the same
	// before/after pair is already recorded for the payment.
	AppendPaymentLog(ctx context.Context, draft PaymentLogDraft) (PaymentLogEntry, error)
	ListPaymentLogs(ctx context.Context, paymentID PaymentID) ([]PaymentLogEntry, error)
	// ListMemberPaymentLogs returns the logs of every payment made by the member.
	ListMemberPaymentLogs(ctx context.Context, memberID MemberID) ([]PaymentLogEntry, error)
}

// FacilityCatalog resolves facilities. Missing facilities yield ErrUnknownFacility.
type FacilityCatalog interface {
	GetFacility(ctx context.Context, facilityID FacilityID) (Facility, error)
}

// MemberDirectory answers whether a member is registered.
type MemberDirectory interface {
	MemberExists(ctx context.Context, memberID MemberID) (bool, error)
}

// Notifier delivers member notifications. Errors are logged by the service
// and never returned to its callers.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}
