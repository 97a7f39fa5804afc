package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log"

	"parkly/internal/db"
	"parkly/internal/entities"
	apperrors "parkly/internal/errors"
)

type WithdrawalRepository struct {
	DB *sql.DB
}

func NewWithdrawalRepository(database *sql.DB) *WithdrawalRepository {
	return &WithdrawalRepository{DB: database}
}

const withdrawalColumns = `
	id, owner_id, amount, payment_method, payment_details, status,
	processed_by, processed_at, admin_notes, rejection_reason, created_at`

func scanWithdrawal(row interface{ Scan(...any) error }) (*db.WithdrawalRequest, error) {
	var w db.WithdrawalRequest
	err := row.Scan(
		&w.ID, &w.OwnerID, &w.Amount, &w.PaymentMethod, &w.PaymentDetails, &w.Status,
		&w.ProcessedBy, &w.ProcessedAt, &w.AdminNotes, &w.RejectionReason, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts a pending request. The partial unique index on
// (owner_id) WHERE status='pending' enforces the one-in-flight rule.
func (r *WithdrawalRepository) Create(ctx context.Context, w *db.WithdrawalRequest) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO withdrawal_requests (owner_id, amount, payment_method, payment_details, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING id, status, created_at`,
		w.OwnerID, w.Amount, w.PaymentMethod, w.PaymentDetails,
	).Scan(&w.ID, &w.Status, &w.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("a pending withdrawal request already exists")
		}
		return fmt.Errorf("error inserting withdrawal request for owner %d: %w", w.OwnerID, err)
	}
	return nil
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id int) (*db.WithdrawalRequest, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT`+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1`, id)
	w, err := scanWithdrawal(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("withdrawal request not found")
		}
		return nil, fmt.Errorf("error querying withdrawal request %d: %w", id, err)
	}
	return w, nil
}

func (r *WithdrawalRepository) list(ctx context.Context, where string, args []any, page entities.Page) ([]db.WithdrawalRequest, int, error) {
	query := `SELECT` + withdrawalColumns + ` FROM withdrawal_requests` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, page.Limit(), page.Offset())
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing withdrawal requests: %w", err)
	}
	defer rows.Close()

	var out []db.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning withdrawal row: %w", err)
		}
		out = append(out, *w)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating withdrawal rows: %w", err)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM withdrawal_requests`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting withdrawal requests: %w", err)
	}
	return out, total, nil
}

func (r *WithdrawalRepository) ListByOwner(ctx context.Context, ownerID int, page entities.Page) ([]db.WithdrawalRequest, int, error) {
	return r.list(ctx, ` WHERE owner_id = $1`, []any{ownerID}, page)
}

func (r *WithdrawalRepository) ListAll(ctx context.Context, status string, page entities.Page) ([]db.WithdrawalRequest, int, error) {
	if status != "" {
		return r.list(ctx, ` WHERE status = $1`, []any{status}, page)
	}
	return r.list(ctx, ``, nil, page)
}

// Approve re-validates the balance under a row lock, debits it and records the
// withdrawal transaction atomically with the status update. Either all of it
// commits or none of it does.
func (r *WithdrawalRepository) Approve(ctx context.Context, id, adminID int, notes string) (*db.WithdrawalRequest, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting approval transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT`+withdrawalColumns+` FROM withdrawal_requests WHERE id = $1 AND status = 'pending' FOR UPDATE`, id)
	w, err := scanWithdrawal(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("pending withdrawal request not found")
		}
		return nil, fmt.Errorf("error locking withdrawal request %d: %w", id, err)
	}

	// The balance may have shrunk since the request was filed (refunds);
	// re-check under lock so approval can never overdraw.
	var balance float64
	err = tx.QueryRowContext(ctx,
		`SELECT current_balance FROM owner_balances WHERE owner_id = $1 FOR UPDATE`, w.OwnerID).Scan(&balance)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.InsufficientBalance("owner has no balance")
		}
		return nil, fmt.Errorf("error locking balance for owner %d: %w", w.OwnerID, err)
	}
	if balance < w.Amount {
		return nil, apperrors.InsufficientBalance(
			fmt.Sprintf("balance %.2f is below the requested %.2f", balance, w.Amount))
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE withdrawal_requests
		SET status = 'approved', processed_by = $2, processed_at = NOW(), admin_notes = NULLIF($3, '')
		WHERE id = $1`, id, adminID, notes); err != nil {
		return nil, fmt.Errorf("error approving withdrawal request %d: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO balance_transactions (owner_id, type, amount, description, status)
		VALUES ($1, 'withdrawal', $2, $3, 'completed')`,
		w.OwnerID, -w.Amount, fmt.Sprintf("Withdrawal request #%d approved", id)); err != nil {
		return nil, fmt.Errorf("error inserting withdrawal transaction for request %d: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE owner_balances
		SET current_balance = current_balance - $2, last_transaction_at = NOW()
		WHERE owner_id = $1`, w.OwnerID, w.Amount); err != nil {
		return nil, fmt.Errorf("error debiting balance for owner %d: %w", w.OwnerID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing approval of request %d: %w", id, err)
	}

	w.Status = db.WithdrawalApproved
	return w, nil
}

// Reject closes a pending request without touching the balance.
func (r *WithdrawalRepository) Reject(ctx context.Context, id, adminID int, notes, reason string) (*db.WithdrawalRequest, error) {
	row := r.DB.QueryRowContext(ctx, `
		UPDATE withdrawal_requests
		SET status = 'rejected', processed_by = $2, processed_at = NOW(),
		    admin_notes = NULLIF($3, ''), rejection_reason = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING`+withdrawalColumns, id, adminID, notes, reason)
	w, err := scanWithdrawal(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("pending withdrawal request not found")
		}
		return nil, fmt.Errorf("error rejecting withdrawal request %d: %w", id, err)
	}
	return w, nil
}

// MarkAllPaid debits every positive balance to zero, one transaction per
// owner, and logs a withdrawal transaction for each. A failure for one owner
// does not roll back the others.
func (r *WithdrawalRepository) MarkAllPaid(ctx context.Context, adminID int) ([]db.Payout, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT owner_id FROM owner_balances WHERE current_balance > 0`)
	if err != nil {
		return nil, fmt.Errorf("error listing owners with positive balance: %w", err)
	}
	var ownerIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning owner id: %w", err)
		}
		ownerIDs = append(ownerIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating owner ids: %w", err)
	}

	var payouts []db.Payout
	for _, ownerID := range ownerIDs {
		amount, err := r.payOutOwner(ctx, ownerID, adminID)
		if err != nil {
			log.Printf("mark-all-paid: owner %d failed: %v", ownerID, err)
			continue
		}
		if amount > 0 {
			payouts = append(payouts, db.Payout{OwnerID: ownerID, Amount: amount})
		}
	}
	return payouts, nil
}

func (r *WithdrawalRepository) payOutOwner(ctx context.Context, ownerID, adminID int) (float64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("error starting payout transaction: %w", err)
	}
	defer tx.Rollback()

	var balance float64
	err = tx.QueryRowContext(ctx,
		`SELECT current_balance FROM owner_balances WHERE owner_id = $1 FOR UPDATE`, ownerID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("error locking balance for owner %d: %w", ownerID, err)
	}
	if balance <= 0 {
		return 0, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO balance_transactions (owner_id, type, amount, description, status)
		VALUES ($1, 'withdrawal', $2, $3, 'completed')`,
		ownerID, -balance, fmt.Sprintf("Bulk payout by admin %d", adminID)); err != nil {
		return 0, fmt.Errorf("error inserting payout transaction for owner %d: %w", ownerID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE owner_balances
		SET current_balance = 0, last_transaction_at = NOW()
		WHERE owner_id = $1`, ownerID); err != nil {
		return 0, fmt.Errorf("error zeroing balance for owner %d: %w", ownerID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing payout for owner %d: %w", ownerID, err)
	}
	return balance, nil
}
