package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS providers (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT   NOT NULL,
	phone       TEXT   NOT NULL DEFAULT '',
	address     TEXT   NOT NULL DEFAULT '',
	external_id BIGINT NOT NULL UNIQUE,
	card_number TEXT   NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS slots (
	id             BIGSERIAL PRIMARY KEY,
	provider_id    BIGINT NOT NULL REFERENCES providers(id) ON DELETE CASCADE,
	slot_date      TEXT   NOT NULL,
	slot_time      TEXT   NOT NULL,
	status         TEXT   NOT NULL DEFAULT 'empty',
	user_id        BIGINT NOT NULL DEFAULT 0,
	name           TEXT   NOT NULL DEFAULT '',
	phone          TEXT   NOT NULL DEFAULT '',
	service        TEXT   NOT NULL DEFAULT '',
	payment_status TEXT   NOT NULL DEFAULT 'unpaid',
	tracking_code  TEXT   NOT NULL DEFAULT '',
	UNIQUE (provider_id, slot_date, slot_time)
);

CREATE INDEX IF NOT EXISTS idx_slots_status ON slots(status);

CREATE TABLE IF NOT EXISTS bookings (
	id             BIGSERIAL PRIMARY KEY,
	user_id        BIGINT      NOT NULL,
	provider_id    BIGINT      NOT NULL,
	booking_date   TEXT        NOT NULL,
	booking_time   TEXT        NOT NULL,
	pair_time      TEXT        NOT NULL DEFAULT '',
	service        TEXT        NOT NULL,
	name           TEXT        NOT NULL DEFAULT '',
	phone          TEXT        NOT NULL DEFAULT '',
	status         TEXT        NOT NULL,
	payment_status TEXT        NOT NULL,
	tracking_code  TEXT        NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id);
CREATE INDEX IF NOT EXISTS idx_bookings_tracking_code ON bookings(tracking_code);
CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_one_active ON bookings(user_id) WHERE status = 'active';
`

// MigratePG creates the postgres schema when it is missing.
func MigratePG(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
