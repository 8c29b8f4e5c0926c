package booking

import (
	"fmt"
	"strings"
	"time"
)

// Amount is an integer number of whole currency units.
type Amount int64

// Int64 returns the raw amount.
func (amount Amount) Int64() int64 {
	return int64(amount)
}

// MemberID identifies a registered member.
type MemberID struct {
	value string
}

// FacilityID identifies a bookable facility.
type FacilityID struct {
	value string
}

// ReservationID identifies a reservation.
type ReservationID struct {
	value string
}

// InstrumentID identifies a stored bank account or card.
type InstrumentID struct {
	value string
}

// PaymentID identifies a payment.
type PaymentID struct {
	value string
}

// Actor names whoever performed a payment transition (member id, staff id, or system).
type Actor struct {
	value string
}

func normalizeIdentifier(raw string, sentinel error) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty value", sentinel)
	}
	return trimmed, nil
}

// NewMemberID validates and normalizes a member id.
func NewMemberID(raw string) (MemberID, error) {
	value, err := normalizeIdentifier(raw, ErrInvalidMemberID)
	if err != nil {
		return MemberID{}, err
	}
	return MemberID{value: value}, nil
}

// String returns the normalized identifier.
func (id MemberID) String() string {
	return id.value
}

// NewFacilityID validates and normalizes a facility id.
func NewFacilityID(raw string) (FacilityID, error) {
	value, err := normalizeIdentifier(raw, ErrInvalidFacilityID)
	if err != nil {
		return FacilityID{}, err
	}
	return FacilityID{value: value}, nil
}

// String returns the normalized identifier.
func (id FacilityID) String() string {
	return id.value
}

// NewReservationID validates and normalizes a reservation id.
func NewReservationID(raw string) (ReservationID, error) {
	value, err := normalizeIdentifier(raw, ErrInvalidReservationID)
	if err != nil {
		return ReservationID{}, err
	}
	return ReservationID{value: value}, nil
}

// String returns the normalized identifier.
func (id ReservationID) String() string {
	return id.value
}

// NewInstrumentID validates and normalizes an instrument id.
func NewInstrumentID(raw string) (InstrumentID, error) {
	value, err := normalizeIdentifier(raw, ErrInvalidInstrumentID)
	if err != nil {
		return InstrumentID{}, err
	}
	return InstrumentID{value: value}, nil
}

// String returns the normalized identifier.
func (id InstrumentID) String() string {
	return id.value
}

// IsZero reports whether the id was never set.
func (id InstrumentID) IsZero() bool {
	return id.value == ""
}

// NewPaymentID validates and normalizes a payment id.
func NewPaymentID(raw string) (PaymentID, error) {
	value, err := normalizeIdentifier(raw, ErrInvalidPaymentID)
	if err != nil {
		return PaymentID{}, err
	}
	return PaymentID{value: value}, nil
}

// String returns the normalized identifier.
func (id PaymentID) String() string {
	return id.value
}

// NewActor validates and normalizes an actor name.
func NewActor(raw string) (Actor, error) {
	value, err := normalizeIdentifier(raw, ErrInvalidActor)
	if err != nil {
		return Actor{}, err
	}
	return Actor{value: value}, nil
}

// String returns the normalized actor.
func (actor Actor) String() string {
	return actor.value
}

// TimeWindow is a half-open interval [start, end) at second resolution.
type TimeWindow struct {
	startUnixUTC int64
	endUnixUTC   int64
}

// NewTimeWindow requires start strictly before end.
func NewTimeWindow(start time.Time, end time.Time) (TimeWindow, error) {
	return NewTimeWindowUnix(start.Unix(), end.Unix())
}

// NewTimeWindowUnix builds a window from unix seconds.
func NewTimeWindowUnix(startUnixUTC int64, endUnixUTC int64) (TimeWindow, error) {
	if startUnixUTC >= endUnixUTC {
		return TimeWindow{}, fmt.Errorf("%w: start must be before end", ErrInvalidTimeWindow)
	}
	return TimeWindow{startUnixUTC: startUnixUTC, endUnixUTC: endUnixUTC}, nil
}

// StartUnixUTC returns the inclusive start.
func (window TimeWindow) StartUnixUTC() int64 {
	return window.startUnixUTC
}

// EndUnixUTC returns the exclusive end.
func (window TimeWindow) EndUnixUTC() int64 {
	return window.endUnixUTC
}

// Start returns the inclusive start in UTC.
func (window TimeWindow) Start() time.Time {
	return time.Unix(window.startUnixUTC, 0).UTC()
}

// End returns the exclusive end in UTC.
func (window TimeWindow) End() time.Time {
	return time.Unix(window.endUnixUTC, 0).UTC()
}

// DurationSeconds returns end minus start.
func (window TimeWindow) DurationSeconds() int64 {
	return window.endUnixUTC - window.startUnixUTC
}

// Overlaps reports whether the two windows share any instant.
// Windows that only touch at a boundary do not overlap.
func (window TimeWindow) Overlaps(other TimeWindow) bool {
	return window.startUnixUTC < other.endUnixUTC && window.endUnixUTC > other.startUnixUTC
}

// RequestedDate is the civil date a reservation was asked for.
type RequestedDate struct {
	value string
}

// NewRequestedDate parses a YYYY-MM-DD date.
func NewRequestedDate(raw string) (RequestedDate, error) {
	trimmed := strings.TrimSpace(raw)
	if _, err := time.Parse(requestedDateLayout, trimmed); err != nil {
		return RequestedDate{}, fmt.Errorf("%w: %q", ErrInvalidRequestedDate, raw)
	}
	return RequestedDate{value: trimmed}, nil
}

// RequestedDateOf returns the UTC civil date of the instant.
func RequestedDateOf(instant time.Time) RequestedDate {
	return RequestedDateIn(instant, time.UTC)
}

// RequestedDateIn returns the civil date of the instant in location.
func RequestedDateIn(instant time.Time, location *time.Location) RequestedDate {
	if location == nil {
		location = time.UTC
	}
	return RequestedDate{value: instant.In(location).Format(requestedDateLayout)}
}

// String returns the date as YYYY-MM-DD.
func (date RequestedDate) String() string {
	return date.value
}

// IsZero reports whether the date was never set.
func (date RequestedDate) IsZero() bool {
	return date.value == ""
}

// Headcount is the number of people attending a reservation.
type Headcount int

// NewHeadcount requires a positive count.
func NewHeadcount(raw int) (Headcount, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidHeadcount)
	}
	return Headcount(raw), nil
}

// Int returns the raw count.
func (headcount Headcount) Int() int {
	return int(headcount)
}

// Outcome reports whether a state-changing call changed anything.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeNoOp    Outcome = "noop"
)
