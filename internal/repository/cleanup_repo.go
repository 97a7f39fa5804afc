package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type CleanupRepository struct {
	DB *sql.DB
}

func NewCleanupRepository(database *sql.DB) *CleanupRepository {
	return &CleanupRepository{DB: database}
}

// ExpirePendingOlderThan flips stale pending reservations to expired and
// returns their ids. The status guard in the WHERE clause is what makes
// pending→paid and pending→expired mutually exclusive when a webhook and a
// sweep race: only one conditional update wins.
func (r *CleanupRepository) ExpirePendingOlderThan(ctx context.Context, cutoff time.Time) ([]int, error) {
	rows, err := r.DB.QueryContext(ctx, `
		UPDATE reservations
		SET status = 'expired', expired_at = NOW(), updated_at = NOW()
		WHERE status = 'pending' AND created_at < $1
		RETURNING id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("error expiring pending reservations: %w", err)
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning expired reservation id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expired reservation ids: %w", err)
	}
	return ids, nil
}
