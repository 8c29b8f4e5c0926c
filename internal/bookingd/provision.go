package bookingd

import (
	"context"
	"fmt"
	"time"

	"github.com/MarkoPoloResearchLab/booking/internal/catalogcache"
	"github.com/MarkoPoloResearchLab/booking/pkg/booking"
	"go.uber.org/zap"
)

// FacilityDefinition describes a facility to publish. Negative minutes mean the
// facility has no operating hours.
type FacilityDefinition struct {
	ID           string
	Name         string
	HourlyRate   int64
	OpensMinute  int
	ClosesMinute int
}

// Migrate applies the schema for the configured database.
func Migrate(ctx context.Context, cfg Config) error {
	if err := cfg.ValidateStorage(); err != nil {
		return err
	}
	backend, closeBackend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeBackend() }()
	return backend.ApplySchema(ctx)
}

// AddMember registers or renames a member.
func AddMember(ctx context.Context, cfg Config, rawMemberID string, displayName string) error {
	memberID, err := booking.NewMemberID(rawMemberID)
	if err != nil {
		return err
	}
	return withBackend(ctx, cfg, func(backend Backend) error {
		return backend.SaveMember(ctx, memberID, displayName, time.Now().UTC().Unix())
	})
}

// AddFacility publishes a facility and evicts any cached copy.
func AddFacility(ctx context.Context, cfg Config, definition FacilityDefinition, logger *zap.Logger) error {
	facility, err := definition.facility()
	if err != nil {
		return err
	}
	return withBackend(ctx, cfg, func(backend Backend) error {
		if err := backend.SaveFacility(ctx, facility); err != nil {
			return err
		}
		if cfg.RedisAddr == "" {
			return nil
		}
		client, err := catalogcache.Dial(ctx, catalogcache.ClientConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		cache, err := catalogcache.New(backend, client, catalogcache.WithLogger(logger))
		if err != nil {
			return err
		}
		return cache.Invalidate(ctx, facility.ID)
	})
}

func (definition FacilityDefinition) facility() (booking.Facility, error) {
	facilityID, err := booking.NewFacilityID(definition.ID)
	if err != nil {
		return booking.Facility{}, err
	}
	var hours *booking.OperatingHours
	if definition.OpensMinute >= 0 && definition.ClosesMinute >= 0 {
		parsed, err := booking.NewOperatingHours(definition.OpensMinute, definition.ClosesMinute)
		if err != nil {
			return booking.Facility{}, err
		}
		hours = &parsed
	}
	return booking.NewFacility(facilityID, definition.Name, booking.Amount(definition.HourlyRate), hours)
}

func withBackend(ctx context.Context, cfg Config, fn func(Backend) error) error {
	if err := cfg.ValidateStorage(); err != nil {
		return err
	}
	backend, closeBackend, err := OpenBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeBackend() }()
	if err := backend.ApplySchema(ctx); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return fn(backend)
}
