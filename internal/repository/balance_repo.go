package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"parkly/internal/db"
	"parkly/internal/entities"
	apperrors "parkly/internal/errors"
)

type BalanceRepository struct {
	DB *sql.DB
}

func NewBalanceRepository(database *sql.DB) *BalanceRepository {
	return &BalanceRepository{DB: database}
}

// GetOwnerForReservation resolves the lot owner who earns from a reservation.
func (r *BalanceRepository) GetOwnerForReservation(ctx context.Context, reservationID int) (ownerID int, totalAmount float64, parkingName string, err error) {
	err = r.DB.QueryRowContext(ctx, `
		SELECT p.owner_id, r.total_amount, p.name
		FROM reservations r
		JOIN parking_spaces ps ON r.space_id = ps.id
		JOIN parkings p ON ps.parking_id = p.id
		WHERE r.id = $1`, reservationID).Scan(&ownerID, &totalAmount, &parkingName)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return 0, 0, "", apperrors.NotFound("reservation not found")
		}
		return 0, 0, "", fmt.Errorf("error resolving owner for reservation %d: %w", reservationID, err)
	}
	return ownerID, totalAmount, parkingName, nil
}

// PostEarning inserts the earning/fee transaction pair and bumps the cached
// balance in one transaction. The partial unique index on
// (reservation_id) WHERE type='earning' makes a replay a detectable no-op:
// posted is false and nothing was written.
func (r *BalanceRepository) PostEarning(ctx context.Context, ownerID, reservationID int, earning, fee float64, parkingName string) (posted bool, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("error starting earning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO balance_transactions (owner_id, reservation_id, type, amount, description, status)
		VALUES ($1, $2, 'earning', $3, $4, 'completed')`,
		ownerID, reservationID, earning,
		fmt.Sprintf("Reservation #%d earnings - %s", reservationID, parkingName))
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("error inserting earning for reservation %d: %w", reservationID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO balance_transactions (owner_id, reservation_id, type, amount, description, status)
		VALUES ($1, $2, 'fee', $3, $4, 'completed')`,
		ownerID, reservationID, -fee,
		fmt.Sprintf("Platform commission - reservation #%d", reservationID))
	if err != nil {
		return false, fmt.Errorf("error inserting fee for reservation %d: %w", reservationID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO owner_balances (owner_id, current_balance, total_earned, last_transaction_at)
		VALUES ($1, $2, $2, NOW())
		ON CONFLICT (owner_id) DO UPDATE SET
			current_balance = owner_balances.current_balance + $2,
			total_earned = owner_balances.total_earned + $2,
			last_transaction_at = NOW()`,
		ownerID, earning)
	if err != nil {
		return false, fmt.Errorf("error updating balance for owner %d: %w", ownerID, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("error committing earning for reservation %d: %w", reservationID, err)
	}
	return true, nil
}

// ReverseEarning posts a negative refund transaction and debits the cached
// balance. The new balance is returned so the caller can flag a negative
// value instead of clamping it.
func (r *BalanceRepository) ReverseEarning(ctx context.Context, ownerID, reservationID int, amount float64, description string) (newBalance float64, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting reversal transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO balance_transactions (owner_id, reservation_id, type, amount, description, status)
		VALUES ($1, $2, 'refund', $3, $4, 'completed')`,
		ownerID, reservationID, -amount, description)
	if err != nil {
		return 0, fmt.Errorf("error inserting refund transaction for reservation %d: %w", reservationID, err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO owner_balances (owner_id, current_balance, total_earned, last_transaction_at)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (owner_id) DO UPDATE SET
			current_balance = owner_balances.current_balance - $3,
			last_transaction_at = NOW()
		RETURNING current_balance`,
		ownerID, -amount, amount).Scan(&newBalance)
	if err != nil {
		return 0, fmt.Errorf("error debiting balance for owner %d: %w", ownerID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing reversal for reservation %d: %w", reservationID, err)
	}
	return newBalance, nil
}

// GetBalance returns the owner's balance row, creating a zero row on first
// access.
func (r *BalanceRepository) GetBalance(ctx context.Context, ownerID int) (*db.OwnerBalance, error) {
	if _, err := r.DB.ExecContext(ctx, `
		INSERT INTO owner_balances (owner_id) VALUES ($1)
		ON CONFLICT (owner_id) DO NOTHING`, ownerID); err != nil {
		return nil, fmt.Errorf("error ensuring balance row for owner %d: %w", ownerID, err)
	}

	var b db.OwnerBalance
	err := r.DB.QueryRowContext(ctx, `
		SELECT owner_id, current_balance, total_earned, last_transaction_at, created_at
		FROM owner_balances WHERE owner_id = $1`, ownerID,
	).Scan(&b.OwnerID, &b.CurrentBalance, &b.TotalEarned, &b.LastTransactionAt, &b.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("error querying balance for owner %d: %w", ownerID, err)
	}
	return &b, nil
}

func (r *BalanceRepository) ListTransactions(ctx context.Context, ownerID int, page entities.Page) ([]db.BalanceTransaction, int, error) {
	query := fmt.Sprintf(`
		SELECT id, owner_id, reservation_id, type, amount, description, status, created_at
		FROM balance_transactions
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT %d OFFSET %d`, page.Limit(), page.Offset())

	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing transactions for owner %d: %w", ownerID, err)
	}
	defer rows.Close()

	var out []db.BalanceTransaction
	for rows.Next() {
		var t db.BalanceTransaction
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.ReservationID, &t.Type, &t.Amount, &t.Description, &t.Status, &t.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("error scanning transaction row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating transaction rows: %w", err)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM balance_transactions WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting transactions for owner %d: %w", ownerID, err)
	}
	return out, total, nil
}

// GetStats aggregates settled activity since the given time, with per-day
// earning rollups for the dashboard.
func (r *BalanceRepository) GetStats(ctx context.Context, ownerID int, since time.Time) (db.BalanceStats, []db.DailyEarning, error) {
	var stats db.BalanceStats
	err := r.DB.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE type = 'earning'),
			COALESCE(SUM(amount) FILTER (WHERE type = 'earning'), 0),
			COALESCE(SUM(ABS(amount)) FILTER (WHERE type = 'fee'), 0),
			COALESCE(AVG(amount) FILTER (WHERE type = 'earning'), 0)
		FROM balance_transactions
		WHERE owner_id = $1 AND created_at >= $2 AND status = 'completed'`,
		ownerID, since,
	).Scan(&stats.TotalReservations, &stats.TotalEarnings, &stats.TotalFees, &stats.AvgEarning)
	if err != nil {
		return db.BalanceStats{}, nil, fmt.Errorf("error aggregating stats for owner %d: %w", ownerID, err)
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT
			DATE(created_at) AS day,
			COALESCE(SUM(amount) FILTER (WHERE type = 'earning'), 0),
			COUNT(*) FILTER (WHERE type = 'earning')
		FROM balance_transactions
		WHERE owner_id = $1 AND created_at >= $2 AND status = 'completed'
		GROUP BY DATE(created_at)
		ORDER BY day DESC
		LIMIT 30`, ownerID, since)
	if err != nil {
		return db.BalanceStats{}, nil, fmt.Errorf("error querying daily earnings for owner %d: %w", ownerID, err)
	}
	defer rows.Close()

	var daily []db.DailyEarning
	for rows.Next() {
		var d db.DailyEarning
		if err := rows.Scan(&d.Date, &d.Earnings, &d.Reservations); err != nil {
			return db.BalanceStats{}, nil, fmt.Errorf("error scanning daily earning row: %w", err)
		}
		daily = append(daily, d)
	}
	if err := rows.Err(); err != nil {
		return db.BalanceStats{}, nil, fmt.Errorf("error iterating daily earning rows: %w", err)
	}
	return stats, daily, nil
}

// ListSummaries is the admin projection over every owner balance.
func (r *BalanceRepository) ListSummaries(ctx context.Context) ([]db.OwnerBalanceSummary, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT owner_id, current_balance, total_earned, last_transaction_at
		FROM owner_balances
		ORDER BY current_balance DESC`)
	if err != nil {
		return nil, fmt.Errorf("error listing balance summaries: %w", err)
	}
	defer rows.Close()

	var out []db.OwnerBalanceSummary
	for rows.Next() {
		var s db.OwnerBalanceSummary
		if err := rows.Scan(&s.OwnerID, &s.CurrentBalance, &s.TotalEarned, &s.LastTransactionAt); err != nil {
			return nil, fmt.Errorf("error scanning balance summary row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
