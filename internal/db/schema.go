package db

import (
	"context"
	"database/sql"
)

// Migrate creates the tables and the unique constraints the engine relies on.
// The partial unique indexes are the idempotency boundaries: one earning per
// reservation, one pending withdrawal per owner, one payment per reservation.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id     SERIAL PRIMARY KEY,
			name   TEXT NOT NULL DEFAULT '',
			email  TEXT NOT NULL DEFAULT '',
			phone  TEXT NOT NULL DEFAULT '',
			role   VARCHAR(20) NOT NULL DEFAULT 'client'
		);

		CREATE TABLE IF NOT EXISTS parkings (
			id         SERIAL PRIMARY KEY,
			owner_id   INTEGER NOT NULL,
			name       TEXT NOT NULL,
			address    TEXT NOT NULL DEFAULT '',
			status     VARCHAR(20) NOT NULL DEFAULT 'active'
		);

		CREATE TABLE IF NOT EXISTS parking_spaces (
			id            SERIAL PRIMARY KEY,
			parking_id    INTEGER NOT NULL REFERENCES parkings(id),
			space_number  TEXT NOT NULL,
			status        VARCHAR(20) NOT NULL DEFAULT 'available',
			hourly_rate   NUMERIC(10,2) NOT NULL
		);

		CREATE TABLE IF NOT EXISTS reservations (
			id            SERIAL PRIMARY KEY,
			space_id      INTEGER NOT NULL REFERENCES parking_spaces(id),
			user_id       INTEGER NOT NULL,
			start_time    TIMESTAMPTZ NOT NULL,
			end_time      TIMESTAMPTZ NOT NULL,
			vehicle_plate TEXT NOT NULL DEFAULT '',
			total_amount  NUMERIC(10,2) NOT NULL,
			status        VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			paid_at       TIMESTAMPTZ,
			confirmed_at  TIMESTAMPTZ,
			cancelled_at  TIMESTAMPTZ,
			completed_at  TIMESTAMPTZ,
			expired_at    TIMESTAMPTZ,
			CONSTRAINT chk_interval CHECK (end_time > start_time)
		);
		CREATE INDEX IF NOT EXISTS idx_reservations_space_status
			ON reservations(space_id, status);
		CREATE INDEX IF NOT EXISTS idx_reservations_user
			ON reservations(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_reservations_pending_created
			ON reservations(created_at) WHERE status = 'pending';

		CREATE TABLE IF NOT EXISTS payments (
			id                  SERIAL PRIMARY KEY,
			reservation_id      INTEGER NOT NULL UNIQUE REFERENCES reservations(id),
			user_id             INTEGER NOT NULL,
			amount              NUMERIC(10,2) NOT NULL,
			status              VARCHAR(20) NOT NULL DEFAULT 'pending',
			provider_intent_id  TEXT NOT NULL UNIQUE,
			card_brand          TEXT,
			card_last4          VARCHAR(4),
			charge_id           TEXT,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at        TIMESTAMPTZ,
			failed_at           TIMESTAMPTZ,
			refunded_at         TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS refunds (
			id            SERIAL PRIMARY KEY,
			payment_id    INTEGER NOT NULL REFERENCES payments(id),
			amount        NUMERIC(10,2) NOT NULL,
			reason        TEXT NOT NULL DEFAULT '',
			processed_by  INTEGER NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS owner_balances (
			owner_id            INTEGER PRIMARY KEY,
			current_balance     NUMERIC(12,2) NOT NULL DEFAULT 0,
			total_earned        NUMERIC(12,2) NOT NULL DEFAULT 0,
			last_transaction_at TIMESTAMPTZ,
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS balance_transactions (
			id             SERIAL PRIMARY KEY,
			owner_id       INTEGER NOT NULL,
			reservation_id INTEGER,
			type           VARCHAR(20) NOT NULL,
			amount         NUMERIC(12,2) NOT NULL,
			description    TEXT NOT NULL DEFAULT '',
			status         VARCHAR(20) NOT NULL DEFAULT 'completed',
			created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_txn_one_earning_per_reservation
			ON balance_transactions(reservation_id) WHERE type = 'earning';
		CREATE INDEX IF NOT EXISTS idx_txn_owner_created
			ON balance_transactions(owner_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS withdrawal_requests (
			id               SERIAL PRIMARY KEY,
			owner_id         INTEGER NOT NULL,
			amount           NUMERIC(12,2) NOT NULL,
			payment_method   TEXT NOT NULL,
			payment_details  TEXT NOT NULL DEFAULT '',
			status           VARCHAR(20) NOT NULL DEFAULT 'pending',
			processed_by     INTEGER,
			processed_at     TIMESTAMPTZ,
			admin_notes      TEXT,
			rejection_reason TEXT,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_withdrawal_one_pending_per_owner
			ON withdrawal_requests(owner_id) WHERE status = 'pending';
	`)
	return err
}
