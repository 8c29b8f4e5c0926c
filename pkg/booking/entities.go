package booking

import (
	"fmt"
	"math"
	"math/bits"
	"strings"
	"time"
)

// Reservation is a member's claim on a facility for a time window.
type Reservation struct {
	ID              ReservationID
	MemberID        MemberID
	FacilityID      FacilityID
	RequestedDate   RequestedDate
	Window          TimeWindow
	Headcount       Headcount
	Content         string
	Status          ReservationStatus
	CancelRequested bool
	CancelReason    string
	CreatedUnixUTC  int64
	UpdatedUnixUTC  int64
}

// ReservationDraft is what the store needs to insert a pending reservation.
type ReservationDraft struct {
	MemberID       MemberID
	FacilityID     FacilityID
	RequestedDate  RequestedDate
	Window         TimeWindow
	Headcount      Headcount
	Content        string
	CreatedUnixUTC int64
}

// InstrumentDetails holds the identifying data of an account or card.
type InstrumentDetails struct {
	issuer   string
	number   string
	approval string
}

// NewInstrumentDetails validates issuer and number; the approval code is optional.
// Spaces and dashes are stripped from the number so formatting variants collide.
func NewInstrumentDetails(issuer string, number string, approval string) (InstrumentDetails, error) {
	trimmedIssuer := strings.TrimSpace(issuer)
	if trimmedIssuer == "" {
		return InstrumentDetails{}, fmt.Errorf("%w: empty issuer", ErrInvalidInstrument)
	}
	normalizedNumber := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(number))
	if normalizedNumber == "" {
		return InstrumentDetails{}, fmt.Errorf("%w: empty number", ErrInvalidInstrument)
	}
	return InstrumentDetails{
		issuer:   trimmedIssuer,
		number:   normalizedNumber,
		approval: strings.TrimSpace(approval),
	}, nil
}

// Issuer returns the bank or card company.
func (details InstrumentDetails) Issuer() string {
	return details.issuer
}

// Number returns the normalized account or card number.
func (details InstrumentDetails) Number() string {
	return details.number
}

// Approval returns the optional approval code.
func (details InstrumentDetails) Approval() string {
	return details.approval
}

// Instrument is a stored payment instrument. Primary is derived from the
// member's primary pointer for the instrument's kind.
type Instrument struct {
	ID             InstrumentID
	MemberID       MemberID
	Kind           InstrumentKind
	Details        InstrumentDetails
	Primary        bool
	CreatedUnixUTC int64
}

// InstrumentDraft is what the store needs to insert an instrument.
type InstrumentDraft struct {
	MemberID       MemberID
	Kind           InstrumentKind
	Details        InstrumentDetails
	CreatedUnixUTC int64
}

// InstrumentRef points at exactly one account or card.
type InstrumentRef struct {
	kind InstrumentKind
	id   InstrumentID
}

// NewInstrumentRef requires exactly one of accountID and cardID.
func NewInstrumentRef(accountID string, cardID string) (InstrumentRef, error) {
	trimmedAccount := strings.TrimSpace(accountID)
	trimmedCard := strings.TrimSpace(cardID)
	switch {
	case trimmedAccount != "" && trimmedCard != "":
		return InstrumentRef{}, fmt.Errorf("%w: both supplied", ErrInvalidInstrumentRef)
	case trimmedAccount != "":
		id, err := NewInstrumentID(trimmedAccount)
		if err != nil {
			return InstrumentRef{}, err
		}
		return InstrumentRef{kind: InstrumentKindAccount, id: id}, nil
	case trimmedCard != "":
		id, err := NewInstrumentID(trimmedCard)
		if err != nil {
			return InstrumentRef{}, err
		}
		return InstrumentRef{kind: InstrumentKindCard, id: id}, nil
	default:
		return InstrumentRef{}, fmt.Errorf("%w: none supplied", ErrInvalidInstrumentRef)
	}
}

// Kind returns the referenced instrument kind.
func (ref InstrumentRef) Kind() InstrumentKind {
	return ref.kind
}

// ID returns the referenced instrument.
func (ref InstrumentRef) ID() InstrumentID {
	return ref.id
}

// AccountID returns the instrument id when the ref points at an account.
func (ref InstrumentRef) AccountID() (InstrumentID, bool) {
	return ref.id, ref.kind == InstrumentKindAccount
}

// CardID returns the instrument id when the ref points at a card.
func (ref InstrumentRef) CardID() (InstrumentID, bool) {
	return ref.id, ref.kind == InstrumentKindCard
}

// Payment is a charge against one reservation through one instrument.
type Payment struct {
	ID             PaymentID
	ReservationID  ReservationID
	MemberID       MemberID
	Instrument     InstrumentRef
	Amount         Amount
	Status         PaymentStatus
	CreatedUnixUTC int64
	UpdatedUnixUTC int64
}

// PaymentDraft is what the store needs to insert a reserved payment.
type PaymentDraft struct {
	ReservationID  ReservationID
	MemberID       MemberID
	Instrument     InstrumentRef
	Amount         Amount
	CreatedUnixUTC int64
}

// PaymentSnapshot captures the payment as it was when a transition happened.
type PaymentSnapshot struct {
	ReservationID  string         `json:"reservation_id"`
	Amount         Amount         `json:"amount"`
	InstrumentKind InstrumentKind `json:"instrument_kind"`
	InstrumentID   string         `json:"instrument_id"`
}

// PaymentLogEntry records one payment status transition. Entries are never mutated.
type PaymentLogEntry struct {
	ID             string
	PaymentID      PaymentID
	Before         PaymentStatus
	After          PaymentStatus
	Actor          Actor
	Memo           string
	Snapshot       PaymentSnapshot
	CreatedUnixUTC int64
}

// PaymentFilter narrows a member's payment list. Zero fields match anything.
type PaymentFilter struct {
	ReservationID ReservationID
	Kind          InstrumentKind
	Status        PaymentStatus
}

// Validate rejects a kind or status outside the known values.
func (filter PaymentFilter) Validate() error {
	if filter.Kind != "" {
		if _, err := ParseInstrumentKind(string(filter.Kind)); err != nil {
			return err
		}
	}
	if filter.Status != "" {
		if _, err := ParsePaymentStatus(string(filter.Status)); err != nil {
			return err
		}
	}
	return nil
}

// PaymentLogDraft is what the store needs to append a log entry.
type PaymentLogDraft struct {
	PaymentID      PaymentID
	Before         PaymentStatus
	After          PaymentStatus
	Actor          Actor
	Memo           string
	Snapshot       PaymentSnapshot
	CreatedUnixUTC int64
}

// OperatingHours bounds bookable minutes within a wall-clock day. The day is
// read in the location the service runs with (UTC unless configured).
type OperatingHours struct {
	opensMinute  int
	closesMinute int
}

// NewOperatingHours requires 0 <= opens < closes <= 1440.
func NewOperatingHours(opensMinute int, closesMinute int) (OperatingHours, error) {
	if opensMinute < 0 || closesMinute > minutesPerDay || opensMinute >= closesMinute {
		return OperatingHours{}, fmt.Errorf("%w: opens %d closes %d", ErrInvalidOperatingWindow, opensMinute, closesMinute)
	}
	return OperatingHours{opensMinute: opensMinute, closesMinute: closesMinute}, nil
}

// OpensMinute returns minutes after local midnight.
func (hours OperatingHours) OpensMinute() int {
	return hours.opensMinute
}

// ClosesMinute returns minutes after local midnight.
func (hours OperatingHours) ClosesMinute() int {
	return hours.closesMinute
}

// Contains reports whether the window lies within one UTC day's opening hours.
func (hours OperatingHours) Contains(window TimeWindow) bool {
	return hours.ContainsIn(window, time.UTC)
}

// ContainsIn reports whether the window lies within one day's opening hours
// on the wall clock of location. A window may end exactly at the following
// midnight when the facility closes at 24:00.
func (hours OperatingHours) ContainsIn(window TimeWindow, location *time.Location) bool {
	if location == nil {
		location = time.UTC
	}
	start := window.Start().In(location)
	end := window.End().In(location)
	startSecond := secondOfDay(start)
	endSecond := secondOfDay(end)
	startYear, startMonth, startDay := start.Date()
	endYear, endMonth, endDay := end.Date()
	if endYear != startYear || endMonth != startMonth || endDay != startDay {
		nextYear, nextMonth, nextDay := start.AddDate(0, 0, 1).Date()
		if endYear != nextYear || endMonth != nextMonth || endDay != nextDay || endSecond != 0 {
			return false
		}
		endSecond = minutesPerDay * 60
	}
	return startSecond >= hours.opensMinute*60 && endSecond <= hours.closesMinute*60
}

func secondOfDay(instant time.Time) int {
	hour, minute, second := instant.Clock()
	return hour*3600 + minute*60 + second
}

// Facility is the catalog view of a bookable resource.
type Facility struct {
	ID         FacilityID
	Name       string
	HourlyRate Amount
	Hours      *OperatingHours
}

// NewFacility validates a catalog record.
func NewFacility(id FacilityID, name string, hourlyRate Amount, hours *OperatingHours) (Facility, error) {
	if hourlyRate < 0 {
		return Facility{}, fmt.Errorf("%w: negative hourly rate", ErrInvalidFacility)
	}
	return Facility{ID: id, Name: strings.TrimSpace(name), HourlyRate: hourlyRate, Hours: hours}, nil
}

// ChargeFor returns hourlyRate times the window duration in hours, rounded
// half-up to the nearest unit. The result must be strictly positive and fit
// in an Amount; the product is formed in 128 bits.
func ChargeFor(hourlyRate Amount, window TimeWindow) (Amount, error) {
	if hourlyRate <= 0 || window.DurationSeconds() <= 0 {
		return 0, fmt.Errorf("%w: rate %d for %ds", ErrNonPositiveAmount, hourlyRate, window.DurationSeconds())
	}
	high, low := bits.Mul64(uint64(hourlyRate.Int64()), uint64(window.DurationSeconds()))
	low, carry := bits.Add64(low, secondsPerHour/2, 0)
	high += carry
	if high >= secondsPerHour {
		return 0, fmt.Errorf("%w: rate %d for %ds", ErrAmountOverflow, hourlyRate, window.DurationSeconds())
	}
	quotient, _ := bits.Div64(high, low, secondsPerHour)
	if quotient > math.MaxInt64 {
		return 0, fmt.Errorf("%w: rate %d for %ds", ErrAmountOverflow, hourlyRate, window.DurationSeconds())
	}
	amount := Amount(quotient)
	if amount <= 0 {
		return 0, fmt.Errorf("%w: computed %d", ErrNonPositiveAmount, amount)
	}
	return amount, nil
}

// Notification is a fixed-text message for one member.
type Notification struct {
	MemberID      MemberID
	ReservationID ReservationID
	Event         NotificationEvent
	Body          string
}
