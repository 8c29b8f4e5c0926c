// Package schema holds the DDL for the booking tables and recognises the
// constraint violations those tables raise.
package schema

import (
	"context"
	"fmt"
)

// Dialect selects the SQL flavour.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Constraint names shared by the DDL and the violation classifier.
const (
	ConstraintReservationOverlap   = "reservations_no_overlap"
	ConstraintInstrumentNumber     = "payment_instruments_kind_number_key"
	ConstraintPrimaryInstrumentRef = "primary_instruments_instrument_fkey"
	ConstraintPaymentAccountRef    = "payments_account_id_fkey"
	ConstraintPaymentCardRef       = "payments_card_id_fkey"
	ConstraintOpenPayment          = "payments_open_reservation_key"
	ConstraintPaymentLogTransition = "payment_logs_transition_key"

	sqliteOverlapMessage = "reservation_overlap"
)

var postgresStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,
	`CREATE TABLE IF NOT EXISTS members (
		member_id text PRIMARY KEY,
		display_name text NOT NULL DEFAULT '',
		mobile text NOT NULL DEFAULT '',
		created_unix bigint NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS facilities (
		facility_id text PRIMARY KEY,
		name text NOT NULL,
		hourly_rate bigint NOT NULL CHECK (hourly_rate >= 0),
		opens_minute integer,
		closes_minute integer,
		in_use boolean NOT NULL DEFAULT true
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		reservation_id text PRIMARY KEY,
		member_id text NOT NULL REFERENCES members(member_id),
		facility_id text NOT NULL REFERENCES facilities(facility_id),
		requested_date text NOT NULL,
		starts_at_unix bigint NOT NULL,
		ends_at_unix bigint NOT NULL,
		headcount integer NOT NULL CHECK (headcount > 0),
		content text NOT NULL DEFAULT '',
		status text NOT NULL CHECK (status IN ('pending', 'confirmed', 'cancelled')),
		cancel_requested boolean NOT NULL DEFAULT false,
		cancel_reason text,
		created_unix bigint NOT NULL,
		updated_unix bigint NOT NULL,
		CHECK (starts_at_unix < ends_at_unix),
		CHECK (cancel_requested OR cancel_reason IS NULL),
		CONSTRAINT ` + ConstraintReservationOverlap + ` EXCLUDE USING gist (
			facility_id WITH =,
			int8range(starts_at_unix, ends_at_unix) WITH &&
		) WHERE (status <> 'cancelled')
	)`,
	`CREATE INDEX IF NOT EXISTS reservations_member_idx ON reservations (member_id, starts_at_unix)`,
	`CREATE TABLE IF NOT EXISTS payment_instruments (
		instrument_id text PRIMARY KEY,
		member_id text NOT NULL REFERENCES members(member_id),
		kind text NOT NULL CHECK (kind IN ('account', 'card')),
		issuer text NOT NULL,
		number text NOT NULL,
		approval text NOT NULL DEFAULT '',
		created_unix bigint NOT NULL,
		CONSTRAINT ` + ConstraintInstrumentNumber + ` UNIQUE (kind, number),
		CONSTRAINT payment_instruments_owner_key UNIQUE (instrument_id, member_id, kind)
	)`,
	`CREATE INDEX IF NOT EXISTS payment_instruments_member_idx ON payment_instruments (member_id, kind)`,
	`CREATE TABLE IF NOT EXISTS primary_instruments (
		member_id text NOT NULL,
		kind text NOT NULL,
		instrument_id text NOT NULL,
		updated_unix bigint NOT NULL,
		PRIMARY KEY (member_id, kind),
		CONSTRAINT ` + ConstraintPrimaryInstrumentRef + ` FOREIGN KEY (instrument_id, member_id, kind)
			REFERENCES payment_instruments (instrument_id, member_id, kind) ON DELETE RESTRICT
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		payment_id text PRIMARY KEY,
		reservation_id text NOT NULL REFERENCES reservations(reservation_id) ON DELETE RESTRICT,
		member_id text NOT NULL REFERENCES members(member_id),
		account_id text,
		card_id text,
		amount bigint NOT NULL CHECK (amount > 0),
		status text NOT NULL CHECK (status IN ('reserved', 'completed', 'cancelled')),
		created_unix bigint NOT NULL,
		updated_unix bigint NOT NULL,
		CONSTRAINT ` + ConstraintPaymentAccountRef + ` FOREIGN KEY (account_id) REFERENCES payment_instruments(instrument_id) ON DELETE RESTRICT,
		CONSTRAINT ` + ConstraintPaymentCardRef + ` FOREIGN KEY (card_id) REFERENCES payment_instruments(instrument_id) ON DELETE RESTRICT,
		CONSTRAINT payments_single_instrument CHECK ((account_id IS NULL) <> (card_id IS NULL))
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + ConstraintOpenPayment + ` ON payments (reservation_id) WHERE status <> 'cancelled'`,
	`CREATE TABLE IF NOT EXISTS payment_logs (
		log_id text PRIMARY KEY,
		payment_id text NOT NULL REFERENCES payments(payment_id) ON DELETE RESTRICT,
		before_status text NOT NULL,
		after_status text NOT NULL,
		actor text NOT NULL,
		memo text NOT NULL DEFAULT '',
		snapshot jsonb NOT NULL DEFAULT '{}',
		created_unix bigint NOT NULL,
		CONSTRAINT ` + ConstraintPaymentLogTransition + ` UNIQUE (payment_id, before_status, after_status)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		message_id text PRIMARY KEY,
		member_id text NOT NULL,
		reservation_id text NOT NULL DEFAULT '',
		event text NOT NULL,
		body text NOT NULL DEFAULT '',
		created_unix bigint NOT NULL,
		recorded_unix bigint NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS messages_member_idx ON messages (member_id, created_unix)`,
}

var sqliteStatements = []string{
	`CREATE TABLE IF NOT EXISTS members (
		member_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		mobile TEXT NOT NULL DEFAULT '',
		created_unix INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS facilities (
		facility_id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		hourly_rate INTEGER NOT NULL CHECK (hourly_rate >= 0),
		opens_minute INTEGER,
		closes_minute INTEGER,
		in_use INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		reservation_id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL REFERENCES members(member_id),
		facility_id TEXT NOT NULL REFERENCES facilities(facility_id),
		requested_date TEXT NOT NULL,
		starts_at_unix INTEGER NOT NULL,
		ends_at_unix INTEGER NOT NULL,
		headcount INTEGER NOT NULL CHECK (headcount > 0),
		content TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL CHECK (status IN ('pending', 'confirmed', 'cancelled')),
		cancel_requested INTEGER NOT NULL DEFAULT 0,
		cancel_reason TEXT,
		created_unix INTEGER NOT NULL,
		updated_unix INTEGER NOT NULL,
		CHECK (starts_at_unix < ends_at_unix),
		CHECK (cancel_requested = 1 OR cancel_reason IS NULL)
	)`,
	`CREATE INDEX IF NOT EXISTS reservations_facility_window_idx ON reservations (facility_id, starts_at_unix, ends_at_unix)`,
	`CREATE INDEX IF NOT EXISTS reservations_member_idx ON reservations (member_id, starts_at_unix)`,
	`CREATE TRIGGER IF NOT EXISTS ` + ConstraintReservationOverlap + `
	BEFORE INSERT ON reservations
	WHEN NEW.status <> 'cancelled' AND EXISTS (
		SELECT 1 FROM reservations existing
		WHERE existing.facility_id = NEW.facility_id
			AND existing.status <> 'cancelled'
			AND existing.starts_at_unix < NEW.ends_at_unix
			AND existing.ends_at_unix > NEW.starts_at_unix
	)
	BEGIN
		SELECT RAISE(ABORT, '` + sqliteOverlapMessage + `');
	END`,
	`CREATE TABLE IF NOT EXISTS payment_instruments (
		instrument_id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL REFERENCES members(member_id),
		kind TEXT NOT NULL CHECK (kind IN ('account', 'card')),
		issuer TEXT NOT NULL,
		number TEXT NOT NULL,
		approval TEXT NOT NULL DEFAULT '',
		created_unix INTEGER NOT NULL,
		CONSTRAINT ` + ConstraintInstrumentNumber + ` UNIQUE (kind, number),
		CONSTRAINT payment_instruments_owner_key UNIQUE (instrument_id, member_id, kind)
	)`,
	`CREATE INDEX IF NOT EXISTS payment_instruments_member_idx ON payment_instruments (member_id, kind)`,
	`CREATE TABLE IF NOT EXISTS primary_instruments (
		member_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		instrument_id TEXT NOT NULL,
		updated_unix INTEGER NOT NULL,
		PRIMARY KEY (member_id, kind),
		CONSTRAINT ` + ConstraintPrimaryInstrumentRef + ` FOREIGN KEY (instrument_id, member_id, kind)
			REFERENCES payment_instruments (instrument_id, member_id, kind) ON DELETE RESTRICT
	)`,
	`CREATE TABLE IF NOT EXISTS payments (
		payment_id TEXT PRIMARY KEY,
		reservation_id TEXT NOT NULL REFERENCES reservations(reservation_id) ON DELETE RESTRICT,
		member_id TEXT NOT NULL REFERENCES members(member_id),
		account_id TEXT REFERENCES payment_instruments(instrument_id) ON DELETE RESTRICT,
		card_id TEXT REFERENCES payment_instruments(instrument_id) ON DELETE RESTRICT,
		amount INTEGER NOT NULL CHECK (amount > 0),
		status TEXT NOT NULL CHECK (status IN ('reserved', 'completed', 'cancelled')),
		created_unix INTEGER NOT NULL,
		updated_unix INTEGER NOT NULL,
		CHECK ((account_id IS NULL) <> (card_id IS NULL))
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + ConstraintOpenPayment + ` ON payments (reservation_id) WHERE status <> 'cancelled'`,
	`CREATE TABLE IF NOT EXISTS payment_logs (
		log_id TEXT PRIMARY KEY,
		payment_id TEXT NOT NULL REFERENCES payments(payment_id) ON DELETE RESTRICT,
		before_status TEXT NOT NULL,
		after_status TEXT NOT NULL,
		actor TEXT NOT NULL,
		memo TEXT NOT NULL DEFAULT '',
		snapshot TEXT NOT NULL DEFAULT '{}',
		created_unix INTEGER NOT NULL,
		CONSTRAINT ` + ConstraintPaymentLogTransition + ` UNIQUE (payment_id, before_status, after_status)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		message_id TEXT PRIMARY KEY,
		member_id TEXT NOT NULL,
		reservation_id TEXT NOT NULL DEFAULT '',
		event TEXT NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		created_unix INTEGER NOT NULL,
		recorded_unix INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS messages_member_idx ON messages (member_id, created_unix)`,
}

// Statements returns the ordered DDL for a dialect.
func Statements(dialect Dialect) ([]string, error) {
	switch dialect {
	case DialectPostgres:
		return append([]string(nil), postgresStatements...), nil
	case DialectSQLite:
		return append([]string(nil), sqliteStatements...), nil
	default:
		return nil, fmt.Errorf("schema: unsupported dialect %q", dialect)
	}
}

// Executor runs a single DDL statement.
type Executor func(ctx context.Context, statement string) error

// Apply runs every statement for the dialect in order. All statements are idempotent.
func Apply(ctx context.Context, dialect Dialect, execute Executor) error {
	statements, err := Statements(dialect)
	if err != nil {
		return err
	}
	for index, statement := range statements {
		if err := execute(ctx, statement); err != nil {
			return fmt.Errorf("schema: statement %d: %w", index, err)
		}
	}
	return nil
}
