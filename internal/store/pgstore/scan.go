package pgstore

import (
	"encoding/json"

	"github.com/MarkoPoloResearchLab/booking/pkg/booking"
)

func scanReservation(row rowScanner) (booking.Reservation, error) {
	var (
		idValue        string
		memberValue    string
		facilityValue  string
		dateValue      string
		startsAt       int64
		endsAt         int64
		headcountValue int
		statusValue    string
		reservation    booking.Reservation
	)
	if err := row.Scan(
		&idValue,
		&memberValue,
		&facilityValue,
		&dateValue,
		&startsAt,
		&endsAt,
		&headcountValue,
		&reservation.Content,
		&statusValue,
		&reservation.CancelRequested,
		&reservation.CancelReason,
		&reservation.CreatedUnixUTC,
		&reservation.UpdatedUnixUTC,
	); err != nil {
		return booking.Reservation{}, err
	}
	var err error
	if reservation.ID, err = booking.NewReservationID(idValue); err != nil {
		return booking.Reservation{}, err
	}
	if reservation.MemberID, err = booking.NewMemberID(memberValue); err != nil {
		return booking.Reservation{}, err
	}
	if reservation.FacilityID, err = booking.NewFacilityID(facilityValue); err != nil {
		return booking.Reservation{}, err
	}
	if reservation.RequestedDate, err = booking.NewRequestedDate(dateValue); err != nil {
		return booking.Reservation{}, err
	}
	if reservation.Window, err = booking.NewTimeWindowUnix(startsAt, endsAt); err != nil {
		return booking.Reservation{}, err
	}
	if reservation.Headcount, err = booking.NewHeadcount(headcountValue); err != nil {
		return booking.Reservation{}, err
	}
	if reservation.Status, err = booking.ParseReservationStatus(statusValue); err != nil {
		return booking.Reservation{}, err
	}
	return reservation, nil
}

func scanInstrument(row rowScanner) (booking.Instrument, error) {
	var (
		idValue       string
		memberValue   string
		kindValue     string
		issuerValue   string
		numberValue   string
		approvalValue string
		instrument    booking.Instrument
	)
	if err := row.Scan(
		&idValue,
		&memberValue,
		&kindValue,
		&issuerValue,
		&numberValue,
		&approvalValue,
		&instrument.CreatedUnixUTC,
		&instrument.Primary,
	); err != nil {
		return booking.Instrument{}, err
	}
	var err error
	if instrument.ID, err = booking.NewInstrumentID(idValue); err != nil {
		return booking.Instrument{}, err
	}
	if instrument.MemberID, err = booking.NewMemberID(memberValue); err != nil {
		return booking.Instrument{}, err
	}
	if instrument.Kind, err = booking.ParseInstrumentKind(kindValue); err != nil {
		return booking.Instrument{}, err
	}
	if instrument.Details, err = booking.NewInstrumentDetails(issuerValue, numberValue, approvalValue); err != nil {
		return booking.Instrument{}, err
	}
	return instrument, nil
}

func scanPayment(row rowScanner) (booking.Payment, error) {
	var (
		idValue          string
		reservationValue string
		memberValue      string
		accountValue     string
		cardValue        string
		amountValue      int64
		statusValue      string
		payment          booking.Payment
	)
	if err := row.Scan(
		&idValue,
		&reservationValue,
		&memberValue,
		&accountValue,
		&cardValue,
		&amountValue,
		&statusValue,
		&payment.CreatedUnixUTC,
		&payment.UpdatedUnixUTC,
	); err != nil {
		return booking.Payment{}, err
	}
	var err error
	if payment.ID, err = booking.NewPaymentID(idValue); err != nil {
		return booking.Payment{}, err
	}
	if payment.ReservationID, err = booking.NewReservationID(reservationValue); err != nil {
		return booking.Payment{}, err
	}
	if payment.MemberID, err = booking.NewMemberID(memberValue); err != nil {
		return booking.Payment{}, err
	}
	if payment.Instrument, err = booking.NewInstrumentRef(accountValue, cardValue); err != nil {
		return booking.Payment{}, err
	}
	if payment.Status, err = booking.ParsePaymentStatus(statusValue); err != nil {
		return booking.Payment{}, err
	}
	payment.Amount = booking.Amount(amountValue)
	return payment, nil
}

func scanPaymentLog(row rowScanner) (booking.PaymentLogEntry, error) {
	var (
		paymentValue  string
		beforeValue   string
		afterValue    string
		actorValue    string
		snapshotValue string
		entry         booking.PaymentLogEntry
	)
	if err := row.Scan(
		&entry.ID,
		&paymentValue,
		&beforeValue,
		&afterValue,
		&actorValue,
		&entry.Memo,
		&snapshotValue,
		&entry.CreatedUnixUTC,
	); err != nil {
		return booking.PaymentLogEntry{}, err
	}
	var err error
	if entry.PaymentID, err = booking.NewPaymentID(paymentValue); err != nil {
		return booking.PaymentLogEntry{}, err
	}
	if entry.Before, err = booking.ParsePaymentStatus(beforeValue); err != nil {
		return booking.PaymentLogEntry{}, err
	}
	if entry.After, err = booking.ParsePaymentStatus(afterValue); err != nil {
		return booking.PaymentLogEntry{}, err
	}
	if entry.Actor, err = booking.NewActor(actorValue); err != nil {
		return booking.PaymentLogEntry{}, err
	}
	if err := json.Unmarshal([]byte(snapshotValue), &entry.Snapshot); err != nil {
		return booking.PaymentLogEntry{}, err
	}
	return entry, nil
}
