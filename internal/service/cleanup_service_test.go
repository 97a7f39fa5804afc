package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCleanupStore struct {
	cutoff  time.Time
	expired []int
	err     error
}

func (f *fakeCleanupStore) ExpirePendingOlderThan(ctx context.Context, cutoff time.Time) ([]int, error) {
	f.cutoff = cutoff
	if f.err != nil {
		return nil, f.err
	}
	return f.expired, nil
}

func TestSweepExpired(t *testing.T) {
	store := &fakeCleanupStore{expired: []int{1, 2, 3}}
	svc := NewCleanupService(store, 15*time.Minute)

	n, err := svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.WithinDuration(t, time.Now().Add(-15*time.Minute), store.cutoff, 5*time.Second,
		"the cutoff is the payment window before now")
}

func TestSweepExpiredNothingStale(t *testing.T) {
	store := &fakeCleanupStore{}
	svc := NewCleanupService(store, 15*time.Minute)

	n, err := svc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepExpiredPropagatesError(t *testing.T) {
	store := &fakeCleanupStore{err: fmt.Errorf("db down")}
	svc := NewCleanupService(store, 15*time.Minute)

	_, err := svc.SweepExpired(context.Background())
	require.Error(t, err)
}
