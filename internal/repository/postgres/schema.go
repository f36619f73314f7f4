package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied idempotently at startup when migrations are enabled.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS riders (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		phone      TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT riders_phone_key UNIQUE (phone)
	)`,
	`CREATE TABLE IF NOT EXISTS vehicles (
		id               TEXT PRIMARY KEY,
		driver_name      TEXT NOT NULL,
		total_seats      INTEGER NOT NULL DEFAULT 4 CHECK (total_seats >= 1),
		luggage_capacity INTEGER NOT NULL DEFAULT 4 CHECK (luggage_capacity >= 0),
		current_lat      DOUBLE PRECISION NOT NULL,
		current_lng      DOUBLE PRECISION NOT NULL,
		status           TEXT NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS vehicles_status_idx ON vehicles (status)`,
	`CREATE TABLE IF NOT EXISTS ride_requests (
		id                       TEXT PRIMARY KEY,
		rider_id                 TEXT NOT NULL REFERENCES riders (id),
		pickup_lat               DOUBLE PRECISION NOT NULL,
		pickup_lng               DOUBLE PRECISION NOT NULL,
		drop_lat                 DOUBLE PRECISION NOT NULL,
		drop_lng                 DOUBLE PRECISION NOT NULL,
		seats                    INTEGER NOT NULL CHECK (seats >= 1),
		luggage                  INTEGER NOT NULL CHECK (luggage >= 0),
		detour_tolerance_minutes INTEGER NOT NULL CHECK (detour_tolerance_minutes >= 0),
		status                   TEXT NOT NULL,
		created_at               TIMESTAMPTZ NOT NULL DEFAULT now(),
		cancelled_at             TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS ride_requests_pending_idx ON ride_requests (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS pools (
		id         TEXT PRIMARY KEY,
		vehicle_id TEXT NOT NULL REFERENCES vehicles (id),
		status     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS pools_status_idx ON pools (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS pool_members (
		id             TEXT PRIMARY KEY,
		pool_id        TEXT NOT NULL REFERENCES pools (id) ON DELETE CASCADE,
		request_id     TEXT NOT NULL REFERENCES ride_requests (id) ON DELETE CASCADE,
		sequence_order INTEGER NOT NULL,
		drop_order     INTEGER NOT NULL DEFAULT 0,
		pickup_eta     TIMESTAMPTZ,
		drop_eta       TIMESTAMPTZ,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT pool_members_request_key UNIQUE (request_id)
	)`,
	`CREATE INDEX IF NOT EXISTS pool_members_pool_idx ON pool_members (pool_id, sequence_order)`,
}

// Migrate creates the tables used by the repositories if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
