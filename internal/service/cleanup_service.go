package service

import (
	"context"
	"log"
	"time"

	"parkly/internal/metrics"
)

// CleanupStore is the persistence surface of the expiry sweep.
type CleanupStore interface {
	ExpirePendingOlderThan(ctx context.Context, cutoff time.Time) ([]int, error)
}

type CleanupService struct {
	store  CleanupStore
	expiry time.Duration
}

func NewCleanupService(store CleanupStore, expiry time.Duration) *CleanupService {
	return &CleanupService{store: store, expiry: expiry}
}

// SweepExpired expires every pending reservation older than the payment
// window. Safe to run concurrently with webhooks: the store's conditional
// update guarantees a reservation ends up paid or expired, never both.
func (s *CleanupService) SweepExpired(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-s.expiry)
	ids, err := s.store.ExpirePendingOlderThan(ctx, cutoff)
	if err != nil {
		metrics.SweepFailures.Inc()
		log.Printf("Cron Job: expiry sweep failed: %v", err)
		return 0, err
	}
	if len(ids) > 0 {
		metrics.SweepExpired.Add(float64(len(ids)))
		log.Printf("Cron Job: expired %d stale pending reservations: %v", len(ids), ids)
	}
	return len(ids), nil
}
