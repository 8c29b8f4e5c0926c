// Package catalogcache caches facility catalog lookups in Redis.
package catalogcache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/booking/pkg/booking"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultTTL       = 5 * time.Minute
	defaultKeyPrefix = "booking:facility:"
)

var ErrInvalidCacheConfig = errors.New("catalogcache: invalid config")

// Client is the subset of *redis.Client the cache uses.
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithTTL overrides how long facilities stay cached.
func WithTTL(ttl time.Duration) Option {
	return func(catalog *Catalog) {
		if ttl > 0 {
			catalog.ttl = ttl
		}
	}
}

// WithKeyPrefix overrides the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(catalog *Catalog) {
		if prefix != "" {
			catalog.prefix = prefix
		}
	}
}

// WithLogger reports cache faults. Faults never fail a lookup.
func WithLogger(logger *zap.Logger) Option {
	return func(catalog *Catalog) {
		if logger != nil {
			catalog.logger = logger
		}
	}
}

// Catalog is a read-through booking.FacilityCatalog. With a nil client it
// passes every lookup to the wrapped catalog.
type Catalog struct {
	next   booking.FacilityCatalog
	client Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// New wraps next with a Redis read-through cache.
func New(next booking.FacilityCatalog, client Client, options ...Option) (*Catalog, error) {
	if next == nil {
		return nil, ErrInvalidCacheConfig
	}
	catalog := &Catalog{
		next:   next,
		client: client,
		ttl:    defaultTTL,
		prefix: defaultKeyPrefix,
		logger: zap.NewNop(),
	}
	for _, option := range options {
		option(catalog)
	}
	return catalog, nil
}

type facilityRecord struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	HourlyRate   int64  `json:"hourly_rate"`
	OpensMinute  *int   `json:"opens_minute,omitempty"`
	ClosesMinute *int   `json:"closes_minute,omitempty"`
}

// GetFacility serves from Redis when possible. Unknown facilities are not cached.
func (catalog *Catalog) GetFacility(ctx context.Context, facilityID booking.FacilityID) (booking.Facility, error) {
	if catalog.client == nil {
		return catalog.next.GetFacility(ctx, facilityID)
	}
	key := catalog.key(facilityID)
	payload, err := catalog.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		facility, decodeErr := decodeFacility(payload)
		if decodeErr == nil {
			return facility, nil
		}
		catalog.logger.Warn("catalog cache decode failed", zap.String("key", key), zap.Error(decodeErr))
	case !errors.Is(err, redis.Nil):
		catalog.logger.Warn("catalog cache read failed", zap.String("key", key), zap.Error(err))
	}

	facility, err := catalog.next.GetFacility(ctx, facilityID)
	if err != nil {
		return booking.Facility{}, err
	}
	encoded, err := encodeFacility(facility)
	if err != nil {
		catalog.logger.Warn("catalog cache encode failed", zap.String("key", key), zap.Error(err))
		return facility, nil
	}
	if err := catalog.client.Set(ctx, key, encoded, catalog.ttl).Err(); err != nil {
		catalog.logger.Warn("catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
	return facility, nil
}

// Invalidate drops the cached copy of a facility.
func (catalog *Catalog) Invalidate(ctx context.Context, facilityID booking.FacilityID) error {
	if catalog.client == nil {
		return nil
	}
	return catalog.client.Del(ctx, catalog.key(facilityID)).Err()
}

func (catalog *Catalog) key(facilityID booking.FacilityID) string {
	return catalog.prefix + facilityID.String()
}

func encodeFacility(facility booking.Facility) ([]byte, error) {
	record := facilityRecord{
		ID:         facility.ID.String(),
		Name:       facility.Name,
		HourlyRate: facility.HourlyRate.Int64(),
	}
	if facility.Hours != nil {
		opens := facility.Hours.OpensMinute()
		closes := facility.Hours.ClosesMinute()
		record.OpensMinute = &opens
		record.ClosesMinute = &closes
	}
	return json.Marshal(record)
}

func decodeFacility(payload []byte) (booking.Facility, error) {
	var record facilityRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		return booking.Facility{}, err
	}
	facilityID, err := booking.NewFacilityID(record.ID)
	if err != nil {
		return booking.Facility{}, err
	}
	var hours *booking.OperatingHours
	if record.OpensMinute != nil && record.ClosesMinute != nil {
		parsed, err := booking.NewOperatingHours(*record.OpensMinute, *record.ClosesMinute)
		if err != nil {
			return booking.Facility{}, err
		}
		hours = &parsed
	}
	return booking.NewFacility(facilityID, record.Name, booking.Amount(record.HourlyRate), hours)
}
