package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"github.com/lib/pq"

	"parkly/internal/db"
	"parkly/internal/entities"
	apperrors "parkly/internal/errors"
)

type PaymentRepository struct {
	DB *sql.DB
}

func NewPaymentRepository(database *sql.DB) *PaymentRepository {
	return &PaymentRepository{DB: database}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

const paymentColumns = `
	id, reservation_id, user_id, amount, status, provider_intent_id,
	card_brand, card_last4, charge_id,
	created_at, completed_at, failed_at, refunded_at`

func scanPayment(row interface{ Scan(...any) error }) (*db.Payment, error) {
	var p db.Payment
	err := row.Scan(
		&p.ID, &p.ReservationID, &p.UserID, &p.Amount, &p.Status, &p.ProviderIntentID,
		&p.CardBrand, &p.CardLast4, &p.ChargeID,
		&p.CreatedAt, &p.CompletedAt, &p.FailedAt, &p.RefundedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePayment inserts a pending payment row. The unique constraint on
// reservation_id enforces the one-payment-per-reservation rule at the store
// level, not only in application code.
func (r *PaymentRepository) CreatePayment(ctx context.Context, p *db.Payment) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO payments (reservation_id, user_id, amount, status, provider_intent_id)
		VALUES ($1, $2, $3, 'pending', $4)
		RETURNING id, status, created_at`,
		p.ReservationID, p.UserID, p.Amount, p.ProviderIntentID,
	).Scan(&p.ID, &p.Status, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("a payment already exists for this reservation")
		}
		return fmt.Errorf("error inserting payment for reservation %d: %w", p.ReservationID, err)
	}
	return nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int) (*db.Payment, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT`+paymentColumns+` FROM payments WHERE id = $1`, id)
	p, err := scanPayment(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("payment not found")
		}
		return nil, fmt.Errorf("error querying payment %d: %w", id, err)
	}
	return p, nil
}

// GetByProviderIntentID is the idempotency lookup run before any webhook
// mutation.
func (r *PaymentRepository) GetByProviderIntentID(ctx context.Context, intentID string) (*db.Payment, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT`+paymentColumns+` FROM payments WHERE provider_intent_id = $1`, intentID)
	p, err := scanPayment(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("no payment for provider intent " + intentID)
		}
		return nil, fmt.Errorf("error querying payment by intent %s: %w", intentID, err)
	}
	return p, nil
}

// GetByReservationID finds the one payment a reservation can have.
func (r *PaymentRepository) GetByReservationID(ctx context.Context, reservationID int) (*db.Payment, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT`+paymentColumns+` FROM payments WHERE reservation_id = $1`, reservationID)
	p, err := scanPayment(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("no payment for this reservation")
		}
		return nil, fmt.Errorf("error querying payment for reservation %d: %w", reservationID, err)
	}
	return p, nil
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID int, status string, page entities.Page) ([]db.Payment, int, error) {
	where := ` WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		where += ` AND status = $2`
		args = append(args, status)
	}

	query := `SELECT` + paymentColumns + ` FROM payments` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, page.Limit(), page.Offset())
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing payments: %w", err)
	}
	defer rows.Close()

	var out []db.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning payment row: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating payment rows: %w", err)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM payments`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting payments: %w", err)
	}
	return out, total, nil
}

// CompleteByIntentID applies a successful provider callback: payment
// completed, reservation paid, space occupied. Every step is a conditional
// update so replays and races resolve to exactly one winner.
//
// applied is false when the payment was already terminal (duplicate webhook).
// anomaly is true when the payment completed but the reservation had already
// left the payable states. Money moved at the provider, so the payment row is
// still marked completed, and the caller must flag the gap instead of posting
// earnings.
func (r *PaymentRepository) CompleteByIntentID(ctx context.Context, intentID string, card entities.CardMeta) (reservationID int, applied, anomaly bool, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, false, fmt.Errorf("error starting completion transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		UPDATE payments
		SET status = 'completed', completed_at = NOW(),
		    card_brand = NULLIF($2, ''), card_last4 = NULLIF($3, ''), charge_id = NULLIF($4, '')
		WHERE provider_intent_id = $1 AND status = 'pending'
		RETURNING reservation_id`,
		intentID, card.Brand, card.Last4, card.ChargeID,
	).Scan(&reservationID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return 0, false, false, nil
		}
		return 0, false, false, fmt.Errorf("error completing payment %s: %w", intentID, err)
	}

	var spaceID int
	err = tx.QueryRowContext(ctx, `
		UPDATE reservations
		SET status = 'paid', paid_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'active')
		RETURNING space_id`, reservationID).Scan(&spaceID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			// Late success for a cancelled/expired reservation. Keep the
			// payment completed, leave the reservation and space alone.
			if err := tx.Commit(); err != nil {
				return 0, false, false, fmt.Errorf("error committing anomalous completion: %w", err)
			}
			return reservationID, true, true, nil
		}
		return 0, false, false, fmt.Errorf("error marking reservation %d paid: %w", reservationID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE parking_spaces SET status = 'occupied' WHERE id = $1`, spaceID); err != nil {
		return 0, false, false, fmt.Errorf("error marking space %d occupied: %w", spaceID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, false, fmt.Errorf("error committing completion: %w", err)
	}
	return reservationID, true, false, nil
}

// FailByIntentID applies a failed provider callback: payment failed,
// reservation cancelled so the user can retry. The space was never occupied.
func (r *PaymentRepository) FailByIntentID(ctx context.Context, intentID string) (reservationID int, applied bool, err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("error starting failure transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		UPDATE payments
		SET status = 'failed', failed_at = NOW()
		WHERE provider_intent_id = $1 AND status = 'pending'
		RETURNING reservation_id`, intentID).Scan(&reservationID)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("error failing payment %s: %w", intentID, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE reservations
		SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'active')`, reservationID); err != nil {
		return 0, false, fmt.Errorf("error cancelling reservation %d after failed payment: %w", reservationID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("error committing failure: %w", err)
	}
	return reservationID, true, nil
}

// MarkRefunded records the refund and flips the payment atomically.
func (r *PaymentRepository) MarkRefunded(ctx context.Context, refund *db.Refund) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting refund transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE payments SET status = 'refunded', refunded_at = NOW()
		WHERE id = $1 AND status = 'completed'`, refund.PaymentID)
	if err != nil {
		return fmt.Errorf("error marking payment %d refunded: %w", refund.PaymentID, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return apperrors.Conflict("payment is not refundable")
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO refunds (payment_id, amount, reason, processed_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		refund.PaymentID, refund.Amount, refund.Reason, refund.ProcessedBy,
	).Scan(&refund.ID, &refund.CreatedAt)
	if err != nil {
		return fmt.Errorf("error inserting refund for payment %d: %w", refund.PaymentID, err)
	}

	return tx.Commit()
}
