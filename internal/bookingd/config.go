// Package bookingd assembles the booking daemon: storage, catalog cache,
// notification dispatch, and the gRPC and HTTP servers.
package bookingd

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/MarkoPoloResearchLab/booking/internal/httpapi"
	"github.com/MarkoPoloResearchLab/booking/internal/notify"
)

const (
	StoreDriverGorm = "gorm"
	StoreDriverPgx  = "pgx"

	defaultDatabaseURL     = "sqlite:///tmp/booking.db"
	defaultGRPCListenAddr  = ":7000"
	defaultHTTPListenAddr  = ":9090"
	defaultCacheTTL        = 5 * time.Minute
	defaultShutdownTimeout = 10 * time.Second
	defaultTimeZone        = "UTC"
)

// Config aggregates runtime settings for bookingd.
type Config struct {
	DatabaseURL     string
	StoreDriver     string
	GRPCListenAddr  string
	HTTPListenAddr  string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	CacheTTL        time.Duration
	AMQPURL         string
	NotifyQueue     string
	ShutdownTimeout time.Duration
	// TimeZone is the IANA zone facility operating hours are read in.
	TimeZone        string
	HTTP            httpapi.Config
}

// Validate fills defaults and rejects unusable combinations.
func (cfg *Config) Validate() error {
	if err := cfg.ValidateStorage(); err != nil {
		return err
	}
	cfg.GRPCListenAddr = defaultIfEmpty(cfg.GRPCListenAddr, defaultGRPCListenAddr)
	cfg.HTTPListenAddr = defaultIfEmpty(cfg.HTTPListenAddr, defaultHTTPListenAddr)
	cfg.NotifyQueue = defaultIfEmpty(cfg.NotifyQueue, notify.DefaultQueueName)
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.RedisDB < 0 {
		return fmt.Errorf("redis db must not be negative")
	}
	cfg.TimeZone = defaultIfEmpty(cfg.TimeZone, defaultTimeZone)
	if _, err := cfg.Location(); err != nil {
		return err
	}
	return cfg.HTTP.Validate()
}

// Location resolves TimeZone, defaulting to UTC.
func (cfg Config) Location() (*time.Location, error) {
	location, err := time.LoadLocation(defaultIfEmpty(cfg.TimeZone, defaultTimeZone))
	if err != nil {
		return nil, fmt.Errorf("time zone %q: %w", cfg.TimeZone, err)
	}
	return location, nil
}

// ValidateStorage checks only the database settings, for commands that do
// not serve traffic.
func (cfg *Config) ValidateStorage() error {
	cfg.DatabaseURL = defaultIfEmpty(cfg.DatabaseURL, defaultDatabaseURL)
	cfg.StoreDriver = strings.ToLower(defaultIfEmpty(cfg.StoreDriver, StoreDriverGorm))
	switch cfg.StoreDriver {
	case StoreDriverGorm:
	case StoreDriverPgx:
		if !isPostgresURL(cfg.DatabaseURL) {
			return fmt.Errorf("store driver %q requires a postgres database url", cfg.StoreDriver)
		}
	default:
		return fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
	return nil
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

func isPostgresURL(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}
