package gormstore

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Member mirrors the members table.
type Member struct {
	MemberID    string `gorm:"column:member_id;primaryKey"`
	DisplayName string `gorm:"column:display_name;not null"`
	Mobile      string `gorm:"column:mobile;not null"`
	CreatedUnix int64  `gorm:"column:created_unix;not null"`
}

func (Member) TableName() string { return "members" }

// Facility mirrors the facilities table. Nil opening minutes mean the
// facility is bookable around the clock.
type Facility struct {
	FacilityID   string `gorm:"column:facility_id;primaryKey"`
	Name         string `gorm:"column:name;not null"`
	HourlyRate   int64  `gorm:"column:hourly_rate;not null"`
	OpensMinute  *int   `gorm:"column:opens_minute"`
	ClosesMinute *int   `gorm:"column:closes_minute"`
	InUse        bool   `gorm:"column:in_use;not null"`
}

func (Facility) TableName() string { return "facilities" }

// Reservation mirrors the reservations table.
type Reservation struct {
	ReservationID   string  `gorm:"column:reservation_id;primaryKey"`
	MemberID        string  `gorm:"column:member_id;not null"`
	FacilityID      string  `gorm:"column:facility_id;not null"`
	RequestedDate   string  `gorm:"column:requested_date;not null"`
	StartsAtUnix    int64   `gorm:"column:starts_at_unix;not null"`
	EndsAtUnix      int64   `gorm:"column:ends_at_unix;not null"`
	Headcount       int     `gorm:"column:headcount;not null"`
	Content         string  `gorm:"column:content;not null"`
	Status          string  `gorm:"column:status;not null"`
	CancelRequested bool    `gorm:"column:cancel_requested;not null"`
	CancelReason    *string `gorm:"column:cancel_reason"`
	CreatedUnix     int64   `gorm:"column:created_unix;not null"`
	UpdatedUnix     int64   `gorm:"column:updated_unix;not null"`
}

func (Reservation) TableName() string { return "reservations" }

func (reservation *Reservation) BeforeCreate(tx *gorm.DB) error {
	if reservation.ReservationID == "" {
		reservation.ReservationID = uuid.NewString()
	}
	return nil
}

// PaymentInstrument mirrors the payment_instruments table.
type PaymentInstrument struct {
	InstrumentID string `gorm:"column:instrument_id;primaryKey"`
	MemberID     string `gorm:"column:member_id;not null"`
	Kind         string `gorm:"column:kind;not null"`
	Issuer       string `gorm:"column:issuer;not null"`
	Number       string `gorm:"column:number;not null"`
	Approval     string `gorm:"column:approval;not null"`
	CreatedUnix  int64  `gorm:"column:created_unix;not null"`
}

func (PaymentInstrument) TableName() string { return "payment_instruments" }

func (instrument *PaymentInstrument) BeforeCreate(tx *gorm.DB) error {
	if instrument.InstrumentID == "" {
		instrument.InstrumentID = uuid.NewString()
	}
	return nil
}

// PrimaryInstrument is the per-member, per-kind primary pointer.
type PrimaryInstrument struct {
	MemberID     string `gorm:"column:member_id;primaryKey"`
	Kind         string `gorm:"column:kind;primaryKey"`
	InstrumentID string `gorm:"column:instrument_id;not null"`
	UpdatedUnix  int64  `gorm:"column:updated_unix;not null"`
}

func (PrimaryInstrument) TableName() string { return "primary_instruments" }

// Payment mirrors the payments table. Exactly one of AccountID and CardID is set.
type Payment struct {
	PaymentID     string  `gorm:"column:payment_id;primaryKey"`
	ReservationID string  `gorm:"column:reservation_id;not null"`
	MemberID      string  `gorm:"column:member_id;not null"`
	AccountID     *string `gorm:"column:account_id"`
	CardID        *string `gorm:"column:card_id"`
	Amount        int64   `gorm:"column:amount;not null"`
	Status        string  `gorm:"column:status;not null"`
	CreatedUnix   int64   `gorm:"column:created_unix;not null"`
	UpdatedUnix   int64   `gorm:"column:updated_unix;not null"`
}

func (Payment) TableName() string { return "payments" }

func (payment *Payment) BeforeCreate(tx *gorm.DB) error {
	if payment.PaymentID == "" {
		payment.PaymentID = uuid.NewString()
	}
	return nil
}

// PaymentLog mirrors the append-only payment_logs table.
type PaymentLog struct {
	LogID        string         `gorm:"column:log_id;primaryKey"`
	PaymentID    string         `gorm:"column:payment_id;not null"`
	BeforeStatus string         `gorm:"column:before_status;not null"`
	AfterStatus  string         `gorm:"column:after_status;not null"`
	Actor        string         `gorm:"column:actor;not null"`
	Memo         string         `gorm:"column:memo;not null"`
	Snapshot     datatypes.JSON `gorm:"column:snapshot;not null"`
	CreatedUnix  int64          `gorm:"column:created_unix;not null"`
}

func (PaymentLog) TableName() string { return "payment_logs" }

func (entry *PaymentLog) BeforeCreate(tx *gorm.DB) error {
	if entry.LogID == "" {
		entry.LogID = uuid.NewString()
	}
	return nil
}

// instrumentWithPrimary is an instrument row joined with its primary pointer.
type instrumentWithPrimary struct {
	PaymentInstrument `gorm:"embedded"`
	PrimaryFlag       int `gorm:"column:primary_flag"`
}
