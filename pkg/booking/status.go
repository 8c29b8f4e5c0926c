package booking

import (
	"fmt"
	"strings"
)

// ReservationStatus defines the reservation lifecycle.
type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

var reservationTransitions = map[ReservationStatus][]ReservationStatus{
	ReservationStatusPending:   {ReservationStatusConfirmed, ReservationStatusCancelled},
	ReservationStatusConfirmed: {ReservationStatusCancelled},
	ReservationStatusCancelled: nil,
}

// ParseReservationStatus accepts only the closed set of reservation statuses.
func ParseReservationStatus(raw string) (ReservationStatus, error) {
	status := ReservationStatus(strings.ToLower(strings.TrimSpace(raw)))
	if _, known := reservationTransitions[status]; !known {
		return "", fmt.Errorf("%w: reservation status %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

// CanTransitionTo reports whether next is reachable from status in one step.
func (status ReservationStatus) CanTransitionTo(next ReservationStatus) bool {
	for _, allowed := range reservationTransitions[status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// String returns the stored representation.
func (status ReservationStatus) String() string {
	return string(status)
}

// PaymentStatus defines the payment lifecycle.
type PaymentStatus string

const (
	PaymentStatusReserved  PaymentStatus = "reserved"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusReserved:  {PaymentStatusCompleted, PaymentStatusCancelled},
	PaymentStatusCompleted: nil,
	PaymentStatusCancelled: nil,
}

// ParsePaymentStatus accepts only the closed set of payment statuses.
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	status := PaymentStatus(strings.ToLower(strings.TrimSpace(raw)))
	if _, known := paymentTransitions[status]; !known {
		return "", fmt.Errorf("%w: payment status %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

// CanTransitionTo reports whether next is reachable from status in one step.
func (status PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves status.
func (status PaymentStatus) IsTerminal() bool {
	return len(paymentTransitions[status]) == 0
}

// String returns the stored representation.
func (status PaymentStatus) String() string {
	return string(status)
}

// InstrumentKind distinguishes bank accounts from cards.
type InstrumentKind string

const (
	InstrumentKindAccount InstrumentKind = "account"
	InstrumentKindCard    InstrumentKind = "card"
)

// ParseInstrumentKind accepts "account" or "card".
func ParseInstrumentKind(raw string) (InstrumentKind, error) {
	switch kind := InstrumentKind(strings.ToLower(strings.TrimSpace(raw))); kind {
	case InstrumentKindAccount, InstrumentKindCard:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidInstrumentKind, raw)
	}
}

// String returns the stored representation.
func (kind InstrumentKind) String() string {
	return string(kind)
}

// NotificationEvent names the kind of message sent to a member.
type NotificationEvent string

const (
	EventCancellationRequested NotificationEvent = "reservation_cancel_requested"
	EventReservationCancelled  NotificationEvent = "reservation_cancelled"
	EventPaymentCompleted      NotificationEvent = "payment_completed"
	EventPaymentCancelled      NotificationEvent = "payment_cancelled"
)
