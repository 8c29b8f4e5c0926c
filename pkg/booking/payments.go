package booking

import (
	"context"
	"fmt"
	"strings"
)

// PaymentRequest pays for a reservation through one instrument.
type PaymentRequest struct {
	MemberID      MemberID
	ReservationID ReservationID
	Instrument    InstrumentRef
}

func (request PaymentRequest) validate() error {
	if request.MemberID.String() == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidMemberID)
	}
	if request.ReservationID.String() == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidReservationID)
	}
	if request.Instrument.ID().IsZero() {
		return fmt.Errorf("%w: none supplied", ErrInvalidInstrumentRef)
	}
	return nil
}

// TransitionRequest moves a payment to completed or cancelled.
type TransitionRequest struct {
	PaymentID PaymentID
	Status    PaymentStatus
	Actor     Actor
	Memo      string
}

// TransitionResult reports the payment after a transition and the reservation
// status it was synchronized to.
type TransitionResult struct {
	Outcome           Outcome
	Payment           Payment
	ReservationStatus ReservationStatus
}

// SubmitPayment creates a reserved payment for the member's own reservation.
func (service *Service) SubmitPayment(ctx context.Context, request PaymentRequest) (Payment, error) {
	var created Payment
	operationError := func() error {
		if err := request.validate(); err != nil {
			return err
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			reservation, err := transactionStore.GetReservation(ctx, request.ReservationID)
			if err != nil {
				return err
			}
			if reservation.MemberID != request.MemberID {
				return ErrReservationForbidden
			}
			if reservation.Status == ReservationStatusCancelled {
				return ErrReservationCancelled
			}
			instrument, err := transactionStore.GetInstrument(ctx, request.Instrument.ID())
			if err != nil {
				return err
			}
			if instrument.MemberID != request.MemberID {
				return ErrInstrumentForbidden
			}
			if instrument.Kind != request.Instrument.Kind() {
				return fmt.Errorf("%w: %s is a %s", ErrInstrumentKindMismatch, instrument.ID, instrument.Kind)
			}
			existing, err := transactionStore.ListPaymentsByReservation(ctx, request.ReservationID)
			if err != nil {
				return err
			}
			for _, payment := range existing {
				if payment.Status != PaymentStatusCancelled {
					return ErrReservationAlreadyPaid
				}
			}
			facility, err := service.catalog.GetFacility(ctx, reservation.FacilityID)
			if err != nil {
				return err
			}
			amount, err := ChargeFor(facility.HourlyRate, reservation.Window)
			if err != nil {
				return err
			}
			created, err = transactionStore.CreatePayment(ctx, PaymentDraft{
				ReservationID:  request.ReservationID,
				MemberID:       request.MemberID,
				Instrument:     request.Instrument,
				Amount:         amount,
				CreatedUnixUTC: service.nowFn(),
			})
			return err
		})
	}()
	service.logOperation(ctx, OperationLog{
		Operation:     operationSubmitPayment,
		MemberID:      request.MemberID,
		ReservationID: request.ReservationID,
		InstrumentID:  request.Instrument.ID(),
		PaymentID:     created.ID,
		Amount:        created.Amount,
		Error:         operationError,
	})
	if operationError != nil {
		return Payment{}, operationError
	}
	return created, nil
}

// TransitionPayment applies a terminal payment status. The status update, the
// log entry and the reservation sync commit together; the member is notified
// afterwards. Asking for the status the payment already has is a no-op.
func (service *Service) TransitionPayment(ctx context.Context, request TransitionRequest) (TransitionResult, error) {
	var result TransitionResult
	operationError := func() error {
		if request.PaymentID.String() == "" {
			return fmt.Errorf("%w: empty value", ErrInvalidPaymentID)
		}
		if request.Status != PaymentStatusCompleted && request.Status != PaymentStatusCancelled {
			return fmt.Errorf("%w: got %q", ErrInvalidTargetStatus, request.Status)
		}
		if request.Actor.String() == "" {
			return fmt.Errorf("%w: empty value", ErrInvalidActor)
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			payment, err := transactionStore.GetPayment(ctx, request.PaymentID)
			if err != nil {
				return err
			}
			if payment.Status == request.Status {
				reservation, err := transactionStore.GetReservation(ctx, payment.ReservationID)
				if err != nil {
					return err
				}
				result = TransitionResult{Outcome: OutcomeNoOp, Payment: payment, ReservationStatus: reservation.Status}
				return nil
			}
			if !payment.Status.CanTransitionTo(request.Status) {
				return fmt.Errorf("%w: %s to %s", ErrPaymentTransition, payment.Status, request.Status)
			}
			nowUnixUTC := service.nowFn()
			if err := transactionStore.UpdatePaymentStatus(ctx, payment.ID, payment.Status, request.Status, nowUnixUTC); err != nil {
				return err
			}
			if _, err := transactionStore.AppendPaymentLog(ctx, PaymentLogDraft{
				PaymentID: payment.ID,
				Before:    payment.Status,
				After:     request.Status,
				Actor:     request.Actor,
				Memo:      strings.TrimSpace(request.Memo),
				Snapshot: PaymentSnapshot{
					ReservationID:  payment.ReservationID.String(),
					Amount:         payment.Amount,
					InstrumentKind: payment.Instrument.Kind(),
					InstrumentID:   payment.Instrument.ID().String(),
				},
				CreatedUnixUTC: nowUnixUTC,
			}); err != nil {
				return err
			}
			reservationStatus, err := syncReservation(ctx, transactionStore, payment.ReservationID, request.Status, nowUnixUTC)
			if err != nil {
				return err
			}
			payment.Status = request.Status
			payment.UpdatedUnixUTC = nowUnixUTC
			result = TransitionResult{Outcome: OutcomeApplied, Payment: payment, ReservationStatus: reservationStatus}
			return nil
		})
	}()
	service.logOperation(ctx, OperationLog{
		Operation:     operationTransitionPayment,
		MemberID:      result.Payment.MemberID,
		ReservationID: result.Payment.ReservationID,
		PaymentID:     request.PaymentID,
		Amount:        result.Payment.Amount,
		Detail:        string(request.Status),
		Status:        statusForOutcome(result.Outcome, operationError),
		Error:         operationError,
	})
	if operationError != nil {
		return TransitionResult{}, operationError
	}
	if result.Outcome == OutcomeApplied {
		notification := Notification{
			MemberID:      result.Payment.MemberID,
			ReservationID: result.Payment.ReservationID,
			Event:         EventPaymentCompleted,
			Body:          MessagePaymentCompleted,
		}
		if request.Status == PaymentStatusCancelled {
			notification.Event = EventPaymentCancelled
			notification.Body = MessagePaymentCancelled
		}
		service.notify(ctx, notification)
	}
	return result, nil
}

// GetPayment returns a payment made by memberID.
func (service *Service) GetPayment(ctx context.Context, paymentID PaymentID, memberID MemberID) (Payment, error) {
	payment, err := service.store.GetPayment(ctx, paymentID)
	if err != nil {
		return Payment{}, err
	}
	if payment.MemberID != memberID {
		return Payment{}, ErrPaymentForbidden
	}
	return payment, nil
}

// ListPaymentLogs returns the transition history of a payment made by memberID, oldest first.
func (service *Service) ListPaymentLogs(ctx context.Context, paymentID PaymentID, memberID MemberID) ([]PaymentLogEntry, error) {
	if _, err := service.GetPayment(ctx, paymentID, memberID); err != nil {
		return nil, err
	}
	return service.store.ListPaymentLogs(ctx, paymentID)
}

// ListPayments returns the payments made by memberID that match filter, oldest first.
func (service *Service) ListPayments(ctx context.Context, memberID MemberID, filter PaymentFilter) ([]Payment, error) {
	if memberID.String() == "" {
		return nil, ErrInvalidMemberID
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return service.store.ListPayments(ctx, memberID, filter)
}

// ListMemberPaymentLogs returns the transition history of every payment made by memberID.
func (service *Service) ListMemberPaymentLogs(ctx context.Context, memberID MemberID) ([]PaymentLogEntry, error) {
	if memberID.String() == "" {
		return nil, ErrInvalidMemberID
	}
	return service.store.ListMemberPaymentLogs(ctx, memberID)
}
