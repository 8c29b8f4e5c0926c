package booking

import (
	"context"
	"fmt"
	"time"
)

// Service contains the reservation and payment lifecycle logic over a Store.
type Service struct {
	store    Store
	catalog  FacilityCatalog
	members  MemberDirectory
	nowFn    func() int64
	logger   OperationLogger
	notifier Notifier
	location *time.Location
}

// NewService wires a Service.
func NewService(store Store, catalog FacilityCatalog, members MemberDirectory, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if catalog == nil {
		return nil, fmt.Errorf("%w: facility catalog dependency is nil", ErrInvalidServiceConfig)
	}
	if members == nil {
		return nil, fmt.Errorf("%w: member directory dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, catalog: catalog, members: members, nowFn: now, location: time.UTC}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// HasOverlap runs the conflict check outside any transaction.
func (service *Service) HasOverlap(ctx context.Context, facilityID FacilityID, window TimeWindow) (bool, error) {
	return NewConflictChecker(service.store).HasOverlap(ctx, facilityID, window)
}

func (service *Service) requireMember(ctx context.Context, memberID MemberID) error {
	exists, err := service.members.MemberExists(ctx, memberID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownMember, memberID)
	}
	return nil
}

// notify hands the notification to the notifier after the triggering
// transaction has committed. Failures are logged only.
func (service *Service) notify(ctx context.Context, notification Notification) {
	if service.notifier == nil {
		return
	}
	err := service.notifier.Notify(ctx, notification)
	service.logOperation(ctx, OperationLog{
		Operation:     operationNotify,
		MemberID:      notification.MemberID,
		ReservationID: notification.ReservationID,
		Detail:        string(notification.Event),
		Error:         err,
	})
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}

func statusForOutcome(outcome Outcome, err error) string {
	if err == nil && outcome == OutcomeNoOp {
		return operationStatusNoOp
	}
	return ""
}

// ConflictChecker answers whether a window collides with live reservations.
type ConflictChecker struct {
	reader overlapReader
}

type overlapReader interface {
	HasOverlappingReservation(ctx context.Context, facilityID FacilityID, window TimeWindow) (bool, error)
}

// NewConflictChecker builds a checker over any store view, including a transaction store.
func NewConflictChecker(reader overlapReader) ConflictChecker {
	return ConflictChecker{reader: reader}
}

// HasOverlap reports whether a non-cancelled reservation on the facility
// intersects [start, end). It is a plain read and takes no locks; the store's
// exclusion guard closes the race between this check and the insert.
func (checker ConflictChecker) HasOverlap(ctx context.Context, facilityID FacilityID, window TimeWindow) (bool, error) {
	return checker.reader.HasOverlappingReservation(ctx, facilityID, window)
}
