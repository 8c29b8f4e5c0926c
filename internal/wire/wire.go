// Package wire holds the JSON documents exchanged over the HTTP and gRPC
// surfaces and their conversion to and from booking types.
package wire

import (
	"github.com/MarkoPoloResearchLab/booking/pkg/booking"
)

// ReservationInput creates a reservation.
type ReservationInput struct {
	FacilityID    string `json:"facility_id"`
	RequestedDate string `json:"requested_date"`
	StartsAtUnix  int64  `json:"starts_at_unix"`
	EndsAtUnix    int64  `json:"ends_at_unix"`
	Headcount     int    `json:"headcount"`
	Content       string `json:"content"`
}

// Request validates the input for memberID.
func (input ReservationInput) Request(memberID booking.MemberID) (booking.ReservationRequest, error) {
	facilityID, err := booking.NewFacilityID(input.FacilityID)
	if err != nil {
		return booking.ReservationRequest{}, err
	}
	window, err := booking.NewTimeWindowUnix(input.StartsAtUnix, input.EndsAtUnix)
	if err != nil {
		return booking.ReservationRequest{}, err
	}
	headcount, err := booking.NewHeadcount(input.Headcount)
	if err != nil {
		return booking.ReservationRequest{}, err
	}
	request := booking.ReservationRequest{
		MemberID:   memberID,
		FacilityID: facilityID,
		Window:     window,
		Headcount:  headcount,
		Content:    input.Content,
	}
	if input.RequestedDate != "" {
		if request.RequestedDate, err = booking.NewRequestedDate(input.RequestedDate); err != nil {
			return booking.ReservationRequest{}, err
		}
	}
	return request, nil
}

// OverlapInput asks whether a window is free.
type OverlapInput struct {
	FacilityID   string `json:"facility_id"`
	StartsAtUnix int64  `json:"starts_at_unix"`
	EndsAtUnix   int64  `json:"ends_at_unix"`
}

// Parse validates the input.
func (input OverlapInput) Parse() (booking.FacilityID, booking.TimeWindow, error) {
	facilityID, err := booking.NewFacilityID(input.FacilityID)
	if err != nil {
		return booking.FacilityID{}, booking.TimeWindow{}, err
	}
	window, err := booking.NewTimeWindowUnix(input.StartsAtUnix, input.EndsAtUnix)
	if err != nil {
		return booking.FacilityID{}, booking.TimeWindow{}, err
	}
	return facilityID, window, nil
}

// CancellationInput carries an optional reason.
type CancellationInput struct {
	Reason string `json:"reason"`
}

// InstrumentInput registers an account or card.
type InstrumentInput struct {
	Kind        string `json:"kind"`
	Issuer      string `json:"issuer"`
	Number      string `json:"number"`
	Approval    string `json:"approval"`
	MakePrimary bool   `json:"make_primary"`
}

// Request validates the input for memberID.
func (input InstrumentInput) Request(memberID booking.MemberID) (booking.InstrumentRequest, error) {
	kind, err := booking.ParseInstrumentKind(input.Kind)
	if err != nil {
		return booking.InstrumentRequest{}, err
	}
	details, err := booking.NewInstrumentDetails(input.Issuer, input.Number, input.Approval)
	if err != nil {
		return booking.InstrumentRequest{}, err
	}
	return booking.InstrumentRequest{MemberID: memberID, Kind: kind, Details: details, MakePrimary: input.MakePrimary}, nil
}

// PaymentInput submits a payment through exactly one instrument.
type PaymentInput struct {
	ReservationID string `json:"reservation_id"`
	AccountID     string `json:"account_id"`
	CardID        string `json:"card_id"`
}

// Request validates the input for memberID.
func (input PaymentInput) Request(memberID booking.MemberID) (booking.PaymentRequest, error) {
	reservationID, err := booking.NewReservationID(input.ReservationID)
	if err != nil {
		return booking.PaymentRequest{}, err
	}
	ref, err := booking.NewInstrumentRef(input.AccountID, input.CardID)
	if err != nil {
		return booking.PaymentRequest{}, err
	}
	return booking.PaymentRequest{MemberID: memberID, ReservationID: reservationID, Instrument: ref}, nil
}

// TransitionInput moves a payment to a terminal status.
type TransitionInput struct {
	Status string `json:"status"`
	Memo   string `json:"memo"`
}

// Request validates the input for paymentID performed by actor.
func (input TransitionInput) Request(paymentID booking.PaymentID, actor string) (booking.TransitionRequest, error) {
	status, err := booking.ParsePaymentStatus(input.Status)
	if err != nil {
		return booking.TransitionRequest{}, err
	}
	parsedActor, err := booking.NewActor(actor)
	if err != nil {
		return booking.TransitionRequest{}, err
	}
	return booking.TransitionRequest{PaymentID: paymentID, Status: status, Actor: parsedActor, Memo: input.Memo}, nil
}

// ReservationListInput narrows a member's reservation list.
type ReservationListInput struct {
	FacilityID string `json:"facility_id" form:"facility_id"`
}

// Parse validates the input. A blank facility matches every facility.
func (input ReservationListInput) Parse() (booking.FacilityID, error) {
	if input.FacilityID == "" {
		return booking.FacilityID{}, nil
	}
	return booking.NewFacilityID(input.FacilityID)
}

// PaymentListInput narrows a member's payment list.
type PaymentListInput struct {
	ReservationID string `json:"reservation_id" form:"reservation_id"`
	Kind          string `json:"kind" form:"kind"`
	Status        string `json:"status" form:"status"`
}

// Filter validates the input. Blank fields match anything.
func (input PaymentListInput) Filter() (booking.PaymentFilter, error) {
	var (
		filter booking.PaymentFilter
		err    error
	)
	if input.ReservationID != "" {
		if filter.ReservationID, err = booking.NewReservationID(input.ReservationID); err != nil {
			return booking.PaymentFilter{}, err
		}
	}
	if input.Kind != "" {
		if filter.Kind, err = booking.ParseInstrumentKind(input.Kind); err != nil {
			return booking.PaymentFilter{}, err
		}
	}
	if input.Status != "" {
		if filter.Status, err = booking.ParsePaymentStatus(input.Status); err != nil {
			return booking.PaymentFilter{}, err
		}
	}
	return filter, nil
}

type ReservationView struct {
	ReservationID   string `json:"reservation_id"`
	MemberID        string `json:"member_id"`
	FacilityID      string `json:"facility_id"`
	RequestedDate   string `json:"requested_date"`
	StartsAtUnix    int64  `json:"starts_at_unix"`
	EndsAtUnix      int64  `json:"ends_at_unix"`
	Headcount       int    `json:"headcount"`
	Content         string `json:"content"`
	Status          string `json:"status"`
	CancelRequested bool   `json:"cancel_requested"`
	CancelReason    string `json:"cancel_reason,omitempty"`
	CreatedUnix     int64  `json:"created_unix"`
	UpdatedUnix     int64  `json:"updated_unix"`
}

func NewReservationView(reservation booking.Reservation) ReservationView {
	return ReservationView{
		ReservationID:   reservation.ID.String(),
		MemberID:        reservation.MemberID.String(),
		FacilityID:      reservation.FacilityID.String(),
		RequestedDate:   reservation.RequestedDate.String(),
		StartsAtUnix:    reservation.Window.StartUnixUTC(),
		EndsAtUnix:      reservation.Window.EndUnixUTC(),
		Headcount:       reservation.Headcount.Int(),
		Content:         reservation.Content,
		Status:          reservation.Status.String(),
		CancelRequested: reservation.CancelRequested,
		CancelReason:    reservation.CancelReason,
		CreatedUnix:     reservation.CreatedUnixUTC,
		UpdatedUnix:     reservation.UpdatedUnixUTC,
	}
}

func NewReservationViews(reservations []booking.Reservation) []ReservationView {
	views := make([]ReservationView, 0, len(reservations))
	for _, reservation := range reservations {
		views = append(views, NewReservationView(reservation))
	}
	return views
}

type InstrumentView struct {
	InstrumentID string `json:"instrument_id"`
	Kind         string `json:"kind"`
	Issuer       string `json:"issuer"`
	Number       string `json:"number"`
	Approval     string `json:"approval,omitempty"`
	Primary      bool   `json:"primary"`
	CreatedUnix  int64  `json:"created_unix"`
}

func NewInstrumentView(instrument booking.Instrument) InstrumentView {
	return InstrumentView{
		InstrumentID: instrument.ID.String(),
		Kind:         instrument.Kind.String(),
		Issuer:       instrument.Details.Issuer(),
		Number:       instrument.Details.Number(),
		Approval:     instrument.Details.Approval(),
		Primary:      instrument.Primary,
		CreatedUnix:  instrument.CreatedUnixUTC,
	}
}

// NewInstrumentViews keeps an empty result as an empty list.
func NewInstrumentViews(instruments []booking.Instrument) []InstrumentView {
	views := make([]InstrumentView, 0, len(instruments))
	for _, instrument := range instruments {
		views = append(views, NewInstrumentView(instrument))
	}
	return views
}

type PaymentView struct {
	PaymentID     string `json:"payment_id"`
	ReservationID string `json:"reservation_id"`
	MemberID      string `json:"member_id"`
	AccountID     string `json:"account_id,omitempty"`
	CardID        string `json:"card_id,omitempty"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	CreatedUnix   int64  `json:"created_unix"`
	UpdatedUnix   int64  `json:"updated_unix"`
}

func NewPaymentView(payment booking.Payment) PaymentView {
	view := PaymentView{
		PaymentID:     payment.ID.String(),
		ReservationID: payment.ReservationID.String(),
		MemberID:      payment.MemberID.String(),
		Amount:        payment.Amount.Int64(),
		Status:        payment.Status.String(),
		CreatedUnix:   payment.CreatedUnixUTC,
		UpdatedUnix:   payment.UpdatedUnixUTC,
	}
	if accountID, ok := payment.Instrument.AccountID(); ok {
		view.AccountID = accountID.String()
	}
	if cardID, ok := payment.Instrument.CardID(); ok {
		view.CardID = cardID.String()
	}
	return view
}

func NewPaymentViews(payments []booking.Payment) []PaymentView {
	views := make([]PaymentView, 0, len(payments))
	for _, payment := range payments {
		views = append(views, NewPaymentView(payment))
	}
	return views
}

type PaymentLogView struct {
	LogID        string                  `json:"log_id"`
	PaymentID    string                  `json:"payment_id"`
	BeforeStatus string                  `json:"before_status"`
	AfterStatus  string                  `json:"after_status"`
	Actor        string                  `json:"actor"`
	Memo         string                  `json:"memo,omitempty"`
	Snapshot     booking.PaymentSnapshot `json:"snapshot"`
	CreatedUnix  int64                   `json:"created_unix"`
}

func NewPaymentLogViews(entries []booking.PaymentLogEntry) []PaymentLogView {
	views := make([]PaymentLogView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, PaymentLogView{
			LogID:        entry.ID,
			PaymentID:    entry.PaymentID.String(),
			BeforeStatus: entry.Before.String(),
			AfterStatus:  entry.After.String(),
			Actor:        entry.Actor.String(),
			Memo:         entry.Memo,
			Snapshot:     entry.Snapshot,
			CreatedUnix:  entry.CreatedUnixUTC,
		})
	}
	return views
}

// OutcomeView reports whether a state-changing call applied or was a no-op.
type OutcomeView struct {
	Outcome string `json:"outcome"`
}

type TransitionView struct {
	Outcome           string      `json:"outcome"`
	Payment           PaymentView `json:"payment"`
	ReservationStatus string      `json:"reservation_status"`
}

func NewTransitionView(result booking.TransitionResult) TransitionView {
	return TransitionView{
		Outcome:           string(result.Outcome),
		Payment:           NewPaymentView(result.Payment),
		ReservationStatus: result.ReservationStatus.String(),
	}
}

type OverlapView struct {
	Overlap bool `json:"overlap"`
}
