package booking

import (
	"context"
	"fmt"
	"strings"
)

// ReservationRequest asks for a facility time window. RequestedDate defaults
// to the UTC date of the window start.
type ReservationRequest struct {
	MemberID      MemberID
	FacilityID    FacilityID
	RequestedDate RequestedDate
	Window        TimeWindow
	Headcount     Headcount
	Content       string
}

func (request ReservationRequest) validate() error {
	if request.MemberID.String() == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidMemberID)
	}
	if request.FacilityID.String() == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidFacilityID)
	}
	if request.Window.DurationSeconds() <= 0 {
		return fmt.Errorf("%w: start must be before end", ErrInvalidTimeWindow)
	}
	if request.Headcount <= 0 {
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidHeadcount)
	}
	return nil
}

// CreateReservation books a pending reservation when the window is free.
func (service *Service) CreateReservation(ctx context.Context, request ReservationRequest) (Reservation, error) {
	var created Reservation
	operationError := func() error {
		if err := request.validate(); err != nil {
			return err
		}
		if err := service.requireMember(ctx, request.MemberID); err != nil {
			return err
		}
		facility, err := service.catalog.GetFacility(ctx, request.FacilityID)
		if err != nil {
			return err
		}
		if facility.Hours != nil && !facility.Hours.ContainsIn(request.Window, service.location) {
			return ErrOutsideOperatingHours
		}
		requestedDate := request.RequestedDate
		if requestedDate.IsZero() {
			requestedDate = RequestedDateIn(request.Window.Start(), service.location)
		}
		return service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			overlap, err := NewConflictChecker(transactionStore).HasOverlap(ctx, request.FacilityID, request.Window)
			if err != nil {
				return err
			}
			if overlap {
				return ErrReservationOverlap
			}
			created, err = transactionStore.CreateReservation(ctx, ReservationDraft{
				MemberID:       request.MemberID,
				FacilityID:     request.FacilityID,
				RequestedDate:  requestedDate,
				Window:         request.Window,
				Headcount:      request.Headcount,
				Content:        strings.TrimSpace(request.Content),
				CreatedUnixUTC: service.nowFn(),
			})
			return err
		})
	}()
	service.logOperation(ctx, OperationLog{
		Operation:     operationCreateReservation,
		MemberID:      request.MemberID,
		FacilityID:    request.FacilityID,
		ReservationID: created.ID,
		Error:         operationError,
	})
	if operationError != nil {
		return Reservation{}, operationError
	}
	return created, nil
}

// GetReservation returns a reservation owned by memberID.
func (service *Service) GetReservation(ctx context.Context, reservationID ReservationID, memberID MemberID) (Reservation, error) {
	reservation, err := service.store.GetReservation(ctx, reservationID)
	if err != nil {
		return Reservation{}, err
	}
	if reservation.MemberID != memberID {
		return Reservation{}, ErrReservationForbidden
	}
	return reservation, nil
}

// ListReservations returns memberID's reservations ordered by window start,
// limited to one facility when facilityID is set.
func (service *Service) ListReservations(ctx context.Context, memberID MemberID, facilityID FacilityID) ([]Reservation, error) {
	if memberID.String() == "" {
		return nil, ErrInvalidMemberID
	}
	return service.store.ListReservations(ctx, memberID, facilityID)
}

// RequestCancellation records the member's wish to cancel. Status does not
// change. Repeating the request is a no-op and sends no second notification.
func (service *Service) RequestCancellation(ctx context.Context, reservationID ReservationID, memberID MemberID, reason string) (Outcome, error) {
	outcome := OutcomeNoOp
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		reservation, err := transactionStore.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if reservation.MemberID != memberID {
			return ErrReservationForbidden
		}
		if reservation.CancelRequested {
			return nil
		}
		if reservation.Status == ReservationStatusCancelled {
			return ErrReservationCancelled
		}
		changed, err := transactionStore.MarkCancellationRequested(ctx, reservationID, strings.TrimSpace(reason), service.nowFn())
		if err != nil {
			return err
		}
		if changed {
			outcome = OutcomeApplied
		}
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationRequestCancellation,
		MemberID:      memberID,
		ReservationID: reservationID,
		Status:        statusForOutcome(outcome, operationError),
		Error:         operationError,
	})
	if operationError != nil {
		return "", operationError
	}
	if outcome == OutcomeApplied {
		service.notify(ctx, Notification{
			MemberID:      memberID,
			ReservationID: reservationID,
			Event:         EventCancellationRequested,
			Body:          MessageCancellationRequested,
		})
	}
	return outcome, nil
}

// CancelUnpaidReservation cancels a pending reservation that has no open
// payment. Reservations with a reserved or completed payment are cancelled by
// cancelling the payment instead.
func (service *Service) CancelUnpaidReservation(ctx context.Context, reservationID ReservationID, memberID MemberID, reason string) (Outcome, error) {
	outcome := OutcomeNoOp
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		reservation, err := transactionStore.GetReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		if reservation.MemberID != memberID {
			return ErrReservationForbidden
		}
		if reservation.Status == ReservationStatusCancelled {
			return nil
		}
		if reservation.Status != ReservationStatusPending {
			return fmt.Errorf("%w: status %s", ErrReservationNotCancellable, reservation.Status)
		}
		payments, err := transactionStore.ListPaymentsByReservation(ctx, reservationID)
		if err != nil {
			return err
		}
		for _, payment := range payments {
			if payment.Status != PaymentStatusCancelled {
				return fmt.Errorf("%w: payment %s is %s", ErrReservationNotCancellable, payment.ID, payment.Status)
			}
		}
		nowUnixUTC := service.nowFn()
		if !reservation.CancelRequested {
			if _, err := transactionStore.MarkCancellationRequested(ctx, reservationID, strings.TrimSpace(reason), nowUnixUTC); err != nil {
				return err
			}
		}
		if err := transactionStore.UpdateReservationStatus(ctx, reservationID, ReservationStatusPending, ReservationStatusCancelled, nowUnixUTC); err != nil {
			return err
		}
		outcome = OutcomeApplied
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:     operationCancelReservation,
		MemberID:      memberID,
		ReservationID: reservationID,
		Status:        statusForOutcome(outcome, operationError),
		Error:         operationError,
	})
	if operationError != nil {
		return "", operationError
	}
	if outcome == OutcomeApplied {
		service.notify(ctx, Notification{
			MemberID:      memberID,
			ReservationID: reservationID,
			Event:         EventReservationCancelled,
			Body:          MessageReservationCancelled,
		})
	}
	return outcome, nil
}

// syncReservation moves the reservation to mirror a payment transition.
// A cancelled reservation is never moved back to confirmed.
func syncReservation(ctx context.Context, transactionStore Store, reservationID ReservationID, paymentStatus PaymentStatus, nowUnixUTC int64) (ReservationStatus, error) {
	reservation, err := transactionStore.GetReservation(ctx, reservationID)
	if err != nil {
		return "", err
	}
	var target ReservationStatus
	switch paymentStatus {
	case PaymentStatusCompleted:
		target = ReservationStatusConfirmed
	case PaymentStatusCancelled:
		target = ReservationStatusCancelled
	default:
		return reservation.Status, nil
	}
	if reservation.Status == target {
		return reservation.Status, nil
	}
	if reservation.Status == ReservationStatusCancelled {
		return reservation.Status, nil
	}
	if !reservation.Status.CanTransitionTo(target) {
		return "", fmt.Errorf("%w: %s to %s", ErrReservationTransition, reservation.Status, target)
	}
	if err := transactionStore.UpdateReservationStatus(ctx, reservationID, reservation.Status, target, nowUnixUTC); err != nil {
		return "", err
	}
	return target, nil
}
