package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"parkly/internal/db"
	apperrors "parkly/internal/errors"
)

type ContactRepository struct {
	DB *sql.DB
}

func NewContactRepository(database *sql.DB) *ContactRepository {
	return &ContactRepository{DB: database}
}

func (r *ContactRepository) GetContact(ctx context.Context, userID int) (*db.UserContact, error) {
	var c db.UserContact
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, email, phone, role FROM users WHERE id = $1`, userID,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Role)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, fmt.Errorf("error querying contact for user %d: %w", userID, err)
	}
	return &c, nil
}

// ListAdminContacts resolves the audience for admin-facing notifications.
func (r *ContactRepository) ListAdminContacts(ctx context.Context) ([]db.UserContact, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name, email, phone, role FROM users WHERE role = 'admin'`)
	if err != nil {
		return nil, fmt.Errorf("error listing admin contacts: %w", err)
	}
	defer rows.Close()

	var out []db.UserContact
	for rows.Next() {
		var c db.UserContact
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Role); err != nil {
			return nil, fmt.Errorf("error scanning admin contact: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating admin contacts: %w", err)
	}
	return out, nil
}
