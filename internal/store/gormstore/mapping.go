package gormstore

import (
	"encoding/json"

	"github.com/MarkoPoloResearchLab/booking/pkg/booking"
)

func mapFacility(model Facility) (booking.Facility, error) {
	facilityID, err := booking.NewFacilityID(model.FacilityID)
	if err != nil {
		return booking.Facility{}, err
	}
	var hours *booking.OperatingHours
	if model.OpensMinute != nil && model.ClosesMinute != nil {
		parsed, err := booking.NewOperatingHours(*model.OpensMinute, *model.ClosesMinute)
		if err != nil {
			return booking.Facility{}, err
		}
		hours = &parsed
	}
	return booking.NewFacility(facilityID, model.Name, booking.Amount(model.HourlyRate), hours)
}

func mapReservation(model Reservation) (booking.Reservation, error) {
	reservationID, err := booking.NewReservationID(model.ReservationID)
	if err != nil {
		return booking.Reservation{}, err
	}
	memberID, err := booking.NewMemberID(model.MemberID)
	if err != nil {
		return booking.Reservation{}, err
	}
	facilityID, err := booking.NewFacilityID(model.FacilityID)
	if err != nil {
		return booking.Reservation{}, err
	}
	requestedDate, err := booking.NewRequestedDate(model.RequestedDate)
	if err != nil {
		return booking.Reservation{}, err
	}
	window, err := booking.NewTimeWindowUnix(model.StartsAtUnix, model.EndsAtUnix)
	if err != nil {
		return booking.Reservation{}, err
	}
	headcount, err := booking.NewHeadcount(model.Headcount)
	if err != nil {
		return booking.Reservation{}, err
	}
	status, err := booking.ParseReservationStatus(model.Status)
	if err != nil {
		return booking.Reservation{}, err
	}
	reservation := booking.Reservation{
		ID:              reservationID,
		MemberID:        memberID,
		FacilityID:      facilityID,
		RequestedDate:   requestedDate,
		Window:          window,
		Headcount:       headcount,
		Content:         model.Content,
		Status:          status,
		CancelRequested: model.CancelRequested,
		CreatedUnixUTC:  model.CreatedUnix,
		UpdatedUnixUTC:  model.UpdatedUnix,
	}
	if model.CancelReason != nil {
		reservation.CancelReason = *model.CancelReason
	}
	return reservation, nil
}

func mapInstrument(row instrumentWithPrimary) (booking.Instrument, error) {
	instrumentID, err := booking.NewInstrumentID(row.InstrumentID)
	if err != nil {
		return booking.Instrument{}, err
	}
	memberID, err := booking.NewMemberID(row.MemberID)
	if err != nil {
		return booking.Instrument{}, err
	}
	kind, err := booking.ParseInstrumentKind(row.Kind)
	if err != nil {
		return booking.Instrument{}, err
	}
	details, err := booking.NewInstrumentDetails(row.Issuer, row.Number, row.Approval)
	if err != nil {
		return booking.Instrument{}, err
	}
	return booking.Instrument{
		ID:             instrumentID,
		MemberID:       memberID,
		Kind:           kind,
		Details:        details,
		Primary:        row.PrimaryFlag > 0,
		CreatedUnixUTC: row.CreatedUnix,
	}, nil
}

func mapPayment(model Payment) (booking.Payment, error) {
	paymentID, err := booking.NewPaymentID(model.PaymentID)
	if err != nil {
		return booking.Payment{}, err
	}
	reservationID, err := booking.NewReservationID(model.ReservationID)
	if err != nil {
		return booking.Payment{}, err
	}
	memberID, err := booking.NewMemberID(model.MemberID)
	if err != nil {
		return booking.Payment{}, err
	}
	ref, err := booking.NewInstrumentRef(stringOrEmpty(model.AccountID), stringOrEmpty(model.CardID))
	if err != nil {
		return booking.Payment{}, err
	}
	status, err := booking.ParsePaymentStatus(model.Status)
	if err != nil {
		return booking.Payment{}, err
	}
	return booking.Payment{
		ID:             paymentID,
		ReservationID:  reservationID,
		MemberID:       memberID,
		Instrument:     ref,
		Amount:         booking.Amount(model.Amount),
		Status:         status,
		CreatedUnixUTC: model.CreatedUnix,
		UpdatedUnixUTC: model.UpdatedUnix,
	}, nil
}

func mapPaymentLog(model PaymentLog) (booking.PaymentLogEntry, error) {
	paymentID, err := booking.NewPaymentID(model.PaymentID)
	if err != nil {
		return booking.PaymentLogEntry{}, err
	}
	before, err := booking.ParsePaymentStatus(model.BeforeStatus)
	if err != nil {
		return booking.PaymentLogEntry{}, err
	}
	after, err := booking.ParsePaymentStatus(model.AfterStatus)
	if err != nil {
		return booking.PaymentLogEntry{}, err
	}
	actor, err := booking.NewActor(model.Actor)
	if err != nil {
		return booking.PaymentLogEntry{}, err
	}
	var snapshot booking.PaymentSnapshot
	if err := json.Unmarshal(model.Snapshot, &snapshot); err != nil {
		return booking.PaymentLogEntry{}, err
	}
	return booking.PaymentLogEntry{
		ID:             model.LogID,
		PaymentID:      paymentID,
		Before:         before,
		After:          after,
		Actor:          actor,
		Memo:           model.Memo,
		Snapshot:       snapshot,
		CreatedUnixUTC: model.CreatedUnix,
	}, nil
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
