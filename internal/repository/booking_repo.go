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

type BookingRepository struct {
	DB *sql.DB
}

func NewBookingRepository(database *sql.DB) *BookingRepository {
	return &BookingRepository{DB: database}
}

const reservationDetailColumns = `
	r.id, r.space_id, r.user_id, r.start_time, r.end_time, r.vehicle_plate,
	r.total_amount, r.status, r.created_at, r.updated_at,
	r.paid_at, r.confirmed_at, r.cancelled_at, r.completed_at, r.expired_at,
	ps.space_number, p.id, p.name, p.owner_id, ps.hourly_rate`

const reservationDetailJoins = `
	FROM reservations r
	JOIN parking_spaces ps ON r.space_id = ps.id
	JOIN parkings p ON ps.parking_id = p.id`

func scanReservationDetail(row interface{ Scan(...any) error }) (*db.ReservationDetail, error) {
	var d db.ReservationDetail
	err := row.Scan(
		&d.ID, &d.SpaceID, &d.UserID, &d.StartTime, &d.EndTime, &d.VehiclePlate,
		&d.TotalAmount, &d.Status, &d.CreatedAt, &d.UpdatedAt,
		&d.PaidAt, &d.ConfirmedAt, &d.CancelledAt, &d.CompletedAt, &d.ExpiredAt,
		&d.SpaceNumber, &d.ParkingID, &d.ParkingName, &d.OwnerID, &d.HourlyRate,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ReserveInLot finds the first free space of the lot with no overlapping
// reservation and inserts the new reservation, all inside one transaction.
// Candidate space rows are locked for the duration of the conflict scan so two
// concurrent requests for the last space cannot both pass the check.
func (r *BookingRepository) ReserveInLot(ctx context.Context, parkingID, userID int, start, end time.Time, plate string, hours int) (*db.ReservationDetail, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("error starting reservation transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT ps.id, ps.space_number, ps.hourly_rate, p.id, p.name, p.owner_id
		FROM parking_spaces ps
		JOIN parkings p ON ps.parking_id = p.id
		WHERE ps.parking_id = $1 AND ps.status = 'available' AND p.status = 'active'
		ORDER BY ps.id
		FOR UPDATE OF ps`, parkingID)
	if err != nil {
		return nil, fmt.Errorf("error locking candidate spaces: %w", err)
	}

	type candidate struct {
		spaceID     int
		spaceNumber string
		hourlyRate  float64
		parkingID   int
		parkingName string
		ownerID     int
	}
	var candidates []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.spaceID, &c.spaceNumber, &c.hourlyRate, &c.parkingID, &c.parkingName, &c.ownerID); err != nil {
			rows.Close()
			return nil, fmt.Errorf("error scanning candidate space: %w", err)
		}
		candidates = append(candidates, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidate spaces: %w", err)
	}

	if len(candidates) == 0 {
		return nil, apperrors.NotFound("no available space in this parking")
	}

	for _, c := range candidates {
		// Closed-open overlap: existing.start < requested.end AND
		// existing.end > requested.start.
		var conflict bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM reservations
				WHERE space_id = $1
				  AND status IN ('pending', 'active', 'paid')
				  AND start_time < $3 AND end_time > $2
			)`, c.spaceID, start, end).Scan(&conflict)
		if err != nil {
			return nil, fmt.Errorf("error checking reservation conflicts for space %d: %w", c.spaceID, err)
		}
		if conflict {
			continue
		}

		total := float64(hours) * c.hourlyRate
		var d db.ReservationDetail
		err = tx.QueryRowContext(ctx, `
			INSERT INTO reservations (space_id, user_id, start_time, end_time, vehicle_plate, total_amount, status)
			VALUES ($1, $2, $3, $4, $5, $6, 'pending')
			RETURNING id, status, created_at, updated_at`,
			c.spaceID, userID, start, end, plate, total,
		).Scan(&d.ID, &d.Status, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("error inserting reservation: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("error committing reservation: %w", err)
		}

		d.SpaceID = c.spaceID
		d.UserID = userID
		d.StartTime = start
		d.EndTime = end
		d.VehiclePlate = plate
		d.TotalAmount = total
		d.SpaceNumber = c.spaceNumber
		d.ParkingID = c.parkingID
		d.ParkingName = c.parkingName
		d.OwnerID = c.ownerID
		d.HourlyRate = c.hourlyRate
		return &d, nil
	}

	return nil, apperrors.Conflict("no space available for the requested interval")
}

func (r *BookingRepository) GetParking(ctx context.Context, id int) (*db.Parking, error) {
	var p db.Parking
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, owner_id, name, address, status FROM parkings WHERE id = $1`, id,
	).Scan(&p.ID, &p.OwnerID, &p.Name, &p.Address, &p.Status)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("parking not found")
		}
		return nil, fmt.Errorf("error querying parking %d: %w", id, err)
	}
	return &p, nil
}

func (r *BookingRepository) GetReservationDetail(ctx context.Context, id int) (*db.ReservationDetail, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT`+reservationDetailColumns+reservationDetailJoins+` WHERE r.id = $1`, id)
	d, err := scanReservationDetail(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("reservation not found")
		}
		return nil, fmt.Errorf("error querying reservation %d: %w", id, err)
	}
	return d, nil
}

func (r *BookingRepository) listReservations(ctx context.Context, where string, countWhere string, args []any, page entities.Page) ([]db.ReservationDetail, int, error) {
	query := `SELECT` + reservationDetailColumns + reservationDetailJoins + where +
		fmt.Sprintf(` ORDER BY r.created_at DESC LIMIT %d OFFSET %d`, page.Limit(), page.Offset())

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing reservations: %w", err)
	}
	defer rows.Close()

	var out []db.ReservationDetail
	for rows.Next() {
		d, err := scanReservationDetail(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning reservation row: %w", err)
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating reservation rows: %w", err)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*)`+reservationDetailJoins+countWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting reservations: %w", err)
	}
	return out, total, nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID int, status string, page entities.Page) ([]db.ReservationDetail, int, error) {
	where := ` WHERE r.user_id = $1`
	args := []any{userID}
	if status != "" {
		where += ` AND r.status = $2`
		args = append(args, status)
	}
	return r.listReservations(ctx, where, where, args, page)
}

func (r *BookingRepository) ListByParking(ctx context.Context, parkingID int, status string, page entities.Page) ([]db.ReservationDetail, int, error) {
	where := ` WHERE p.id = $1`
	args := []any{parkingID}
	if status != "" {
		where += ` AND r.status = $2`
		args = append(args, status)
	}
	return r.listReservations(ctx, where, where, args, page)
}

// CancelReservation flips pending/active to cancelled. The conditional update
// makes cancellation race-safe against a concurrent payment or expiry.
func (r *BookingRepository) CancelReservation(ctx context.Context, id int) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE reservations
		SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('pending', 'active')`, id)
	if err != nil {
		return fmt.Errorf("error cancelling reservation %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading cancel result: %w", err)
	}
	if affected == 0 {
		return apperrors.Conflict("reservation can no longer be cancelled")
	}
	return nil
}

// ConfirmReservation is the owner's manual pending→active transition. The
// space moves to reserved in the same transaction.
func (r *BookingRepository) ConfirmReservation(ctx context.Context, id, spaceID int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting confirm transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE reservations
		SET status = 'active', confirmed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return fmt.Errorf("error confirming reservation %d: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return apperrors.Conflict("reservation can no longer be confirmed")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE parking_spaces SET status = 'reserved' WHERE id = $1`, spaceID); err != nil {
		return fmt.Errorf("error marking space %d reserved: %w", spaceID, err)
	}
	return tx.Commit()
}

// CompleteReservation closes an active or paid stay and releases the space.
func (r *BookingRepository) CompleteReservation(ctx context.Context, id, spaceID int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting complete transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE reservations
		SET status = 'completed', completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND status IN ('active', 'paid')`, id)
	if err != nil {
		return fmt.Errorf("error completing reservation %d: %w", id, err)
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return apperrors.Conflict("reservation cannot be completed")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE parking_spaces SET status = 'available' WHERE id = $1`, spaceID); err != nil {
		return fmt.Errorf("error releasing space %d: %w", spaceID, err)
	}
	return tx.Commit()
}
