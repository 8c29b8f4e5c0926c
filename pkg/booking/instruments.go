package booking

import (
	"context"
	"errors"
	"fmt"
)

// InstrumentRequest registers an account or card. MakePrimary asks for the
// new instrument to become primary even when the member already has one.
type InstrumentRequest struct {
	MemberID    MemberID
	Kind        InstrumentKind
	Details     InstrumentDetails
	MakePrimary bool
}

func (request InstrumentRequest) validate() error {
	if request.MemberID.String() == "" {
		return fmt.Errorf("%w: empty value", ErrInvalidMemberID)
	}
	if _, err := ParseInstrumentKind(string(request.Kind)); err != nil {
		return err
	}
	if request.Details.Number() == "" || request.Details.Issuer() == "" {
		return fmt.Errorf("%w: details not set", ErrInvalidInstrument)
	}
	return nil
}

// RegisterInstrument stores a new instrument. The member's first instrument
// of a kind becomes primary. A requested primary designation for a later
// instrument is applied as a separate step after the insert commits.
func (service *Service) RegisterInstrument(ctx context.Context, request InstrumentRequest) (Instrument, error) {
	var created Instrument
	operationError := func() error {
		if err := request.validate(); err != nil {
			return err
		}
		if err := service.requireMember(ctx, request.MemberID); err != nil {
			return err
		}
		err := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
			var err error
			created, err = transactionStore.CreateInstrument(ctx, InstrumentDraft{
				MemberID:       request.MemberID,
				Kind:           request.Kind,
				Details:        request.Details,
				CreatedUnixUTC: service.nowFn(),
			})
			if err != nil {
				return err
			}
			claimed, err := transactionStore.ClaimPrimaryIfVacant(ctx, request.MemberID, request.Kind, created.ID, service.nowFn())
			if err != nil {
				return err
			}
			created.Primary = claimed
			return nil
		})
		if errors.Is(err, ErrInstrumentNumberTaken) {
			return service.explainNumberConflict(ctx, request)
		}
		if err != nil {
			return err
		}
		if request.MakePrimary && !created.Primary {
			if err := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
				return transactionStore.SetPrimaryInstrument(ctx, request.MemberID, request.Kind, created.ID, service.nowFn())
			}); err != nil {
				return err
			}
			created.Primary = true
		}
		return nil
	}()
	service.logOperation(ctx, OperationLog{
		Operation:    operationRegisterInstrument,
		MemberID:     request.MemberID,
		InstrumentID: created.ID,
		Detail:       string(request.Kind),
		Error:        operationError,
	})
	if operationError != nil {
		return Instrument{}, operationError
	}
	return created, nil
}

// explainNumberConflict tells a member apart from someone else holding the same number.
func (service *Service) explainNumberConflict(ctx context.Context, request InstrumentRequest) error {
	owned, err := service.store.ListInstruments(ctx, request.MemberID, request.Kind)
	if err != nil {
		return err
	}
	for _, instrument := range owned {
		if instrument.Details.Number() == request.Details.Number() {
			return ErrInstrumentAlreadyYours
		}
	}
	return ErrInstrumentNumberTaken
}

// SetPrimaryInstrument makes the instrument the member's primary for its kind.
// The previous primary loses the flag in the same write.
func (service *Service) SetPrimaryInstrument(ctx context.Context, instrumentID InstrumentID, memberID MemberID) (Outcome, error) {
	outcome := OutcomeNoOp
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		instrument, err := transactionStore.GetInstrument(ctx, instrumentID)
		if err != nil {
			return err
		}
		if instrument.MemberID != memberID {
			return ErrInstrumentForbidden
		}
		if instrument.Primary {
			return nil
		}
		if err := transactionStore.SetPrimaryInstrument(ctx, memberID, instrument.Kind, instrumentID, service.nowFn()); err != nil {
			return err
		}
		outcome = OutcomeApplied
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:    operationSetPrimary,
		MemberID:     memberID,
		InstrumentID: instrumentID,
		Status:       statusForOutcome(outcome, operationError),
		Error:        operationError,
	})
	if operationError != nil {
		return "", operationError
	}
	return outcome, nil
}

// DeleteInstrument removes a non-primary instrument.
func (service *Service) DeleteInstrument(ctx context.Context, instrumentID InstrumentID, memberID MemberID) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		instrument, err := transactionStore.GetInstrument(ctx, instrumentID)
		if err != nil {
			return err
		}
		if instrument.MemberID != memberID {
			return ErrInstrumentForbidden
		}
		if instrument.Primary {
			return ErrPrimaryInstrument
		}
		return transactionStore.DeleteInstrument(ctx, instrumentID)
	})
	service.logOperation(ctx, OperationLog{
		Operation:    operationDeleteInstrument,
		MemberID:     memberID,
		InstrumentID: instrumentID,
		Error:        operationError,
	})
	return operationError
}

// ListInstruments returns the member's instruments of kind, or of both kinds when kind is empty.
func (service *Service) ListInstruments(ctx context.Context, memberID MemberID, kind InstrumentKind) ([]Instrument, error) {
	if kind != "" {
		if _, err := ParseInstrumentKind(string(kind)); err != nil {
			return nil, err
		}
	}
	return service.store.ListInstruments(ctx, memberID, kind)
}
