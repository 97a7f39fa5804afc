package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkly/internal/db"
	"parkly/internal/entities"
	apperrors "parkly/internal/errors"
)

// fakeWithdrawalStore is an in-memory WithdrawalStore for testing.
type fakeWithdrawalStore struct {
	requests map[int]*db.WithdrawalRequest
	nextID   int

	approveErr error
	payouts    []db.Payout
}

func newFakeWithdrawalStore() *fakeWithdrawalStore {
	return &fakeWithdrawalStore{requests: make(map[int]*db.WithdrawalRequest), nextID: 1}
}

func (f *fakeWithdrawalStore) Create(ctx context.Context, w *db.WithdrawalRequest) error {
	for _, existing := range f.requests {
		if existing.OwnerID == w.OwnerID && existing.Status == db.WithdrawalPending {
			return apperrors.Conflict("a pending withdrawal request already exists")
		}
	}
	w.ID = f.nextID
	f.nextID++
	w.Status = db.WithdrawalPending
	f.requests[w.ID] = w
	return nil
}

func (f *fakeWithdrawalStore) GetByID(ctx context.Context, id int) (*db.WithdrawalRequest, error) {
	w, ok := f.requests[id]
	if !ok {
		return nil, apperrors.NotFound("withdrawal request not found")
	}
	return w, nil
}

func (f *fakeWithdrawalStore) ListByOwner(ctx context.Context, ownerID int, page entities.Page) ([]db.WithdrawalRequest, int, error) {
	return nil, 0, nil
}

func (f *fakeWithdrawalStore) ListAll(ctx context.Context, status string, page entities.Page) ([]db.WithdrawalRequest, int, error) {
	return nil, 0, nil
}

func (f *fakeWithdrawalStore) Approve(ctx context.Context, id, adminID int, notes string) (*db.WithdrawalRequest, error) {
	if f.approveErr != nil {
		return nil, f.approveErr
	}
	w, ok := f.requests[id]
	if !ok || w.Status != db.WithdrawalPending {
		return nil, apperrors.NotFound("pending withdrawal request not found")
	}
	w.Status = db.WithdrawalApproved
	return w, nil
}

func (f *fakeWithdrawalStore) Reject(ctx context.Context, id, adminID int, notes, reason string) (*db.WithdrawalRequest, error) {
	w, ok := f.requests[id]
	if !ok || w.Status != db.WithdrawalPending {
		return nil, apperrors.NotFound("pending withdrawal request not found")
	}
	w.Status = db.WithdrawalRejected
	return w, nil
}

func (f *fakeWithdrawalStore) MarkAllPaid(ctx context.Context, adminID int) ([]db.Payout, error) {
	return f.payouts, nil
}

type fakeBalanceReader struct {
	balance float64
}

func (f *fakeBalanceReader) GetBalance(ctx context.Context, ownerID int) (*db.OwnerBalance, error) {
	return &db.OwnerBalance{OwnerID: ownerID, CurrentBalance: f.balance}, nil
}

func TestWithdrawalRequest(t *testing.T) {
	store := newFakeWithdrawalStore()
	svc := NewWithdrawalService(store, &fakeBalanceReader{balance: 100})

	w, events, err := svc.Request(context.Background(), 7, 60, "bank_transfer", "IBAN ...")
	require.NoError(t, err)
	assert.Equal(t, db.WithdrawalPending, w.Status)

	require.Len(t, events, 1)
	assert.Equal(t, entities.EventWithdrawalRequest, events[0].Type)
	assert.Equal(t, 0, events[0].RecipientID, "withdrawal requests go to the admin audience")
}

func TestWithdrawalRequestValidation(t *testing.T) {
	svc := NewWithdrawalService(newFakeWithdrawalStore(), &fakeBalanceReader{balance: 100})

	_, _, err := svc.Request(context.Background(), 7, 0, "bank_transfer", "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, _, err = svc.Request(context.Background(), 7, -5, "bank_transfer", "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, _, err = svc.Request(context.Background(), 7, 10, "", "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestWithdrawalRequestInsufficientBalance(t *testing.T) {
	svc := NewWithdrawalService(newFakeWithdrawalStore(), &fakeBalanceReader{balance: 50})

	_, _, err := svc.Request(context.Background(), 7, 60, "bank_transfer", "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindInsufficientBalance))
}

func TestWithdrawalRequestOneInFlight(t *testing.T) {
	store := newFakeWithdrawalStore()
	svc := NewWithdrawalService(store, &fakeBalanceReader{balance: 100})

	_, _, err := svc.Request(context.Background(), 7, 30, "bank_transfer", "")
	require.NoError(t, err)

	_, _, err = svc.Request(context.Background(), 7, 20, "bank_transfer", "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
}

func TestDecideApprove(t *testing.T) {
	store := newFakeWithdrawalStore()
	svc := NewWithdrawalService(store, &fakeBalanceReader{balance: 100})
	w, _, err := svc.Request(context.Background(), 7, 60, "bank_transfer", "")
	require.NoError(t, err)

	decided, events, err := svc.Decide(context.Background(), 1, w.ID, true, "wired today", "")
	require.NoError(t, err)
	assert.Equal(t, db.WithdrawalApproved, decided.Status)

	require.Len(t, events, 1)
	assert.Equal(t, entities.EventWithdrawalApproved, events[0].Type)
	assert.Equal(t, 7, events[0].RecipientID)
}

func TestDecideRejectRequiresReason(t *testing.T) {
	store := newFakeWithdrawalStore()
	svc := NewWithdrawalService(store, &fakeBalanceReader{balance: 100})
	w, _, err := svc.Request(context.Background(), 7, 60, "bank_transfer", "")
	require.NoError(t, err)

	_, _, err = svc.Decide(context.Background(), 1, w.ID, false, "", "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
	assert.Equal(t, db.WithdrawalPending, store.requests[w.ID].Status, "the request stays pending")

	decided, events, err := svc.Decide(context.Background(), 1, w.ID, false, "", "unverified account")
	require.NoError(t, err)
	assert.Equal(t, db.WithdrawalRejected, decided.Status)
	require.Len(t, events, 1)
	assert.Equal(t, entities.EventWithdrawalRejected, events[0].Type)
	assert.Equal(t, "unverified account", events[0].Payload["reason"])
}

func TestDecidePropagatesInsufficientBalance(t *testing.T) {
	store := newFakeWithdrawalStore()
	store.approveErr = apperrors.InsufficientBalance("balance 10.00 is below the requested 60.00")
	svc := NewWithdrawalService(store, &fakeBalanceReader{balance: 100})
	w, _, err := svc.Request(context.Background(), 7, 60, "bank_transfer", "")
	require.NoError(t, err)

	// The balance shrank between request and approval (a refund landed).
	_, _, err = svc.Decide(context.Background(), 1, w.ID, true, "", "")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindInsufficientBalance))
}

func TestGetVisibilityForWithdrawals(t *testing.T) {
	store := newFakeWithdrawalStore()
	svc := NewWithdrawalService(store, &fakeBalanceReader{balance: 100})
	w, _, err := svc.Request(context.Background(), 7, 60, "bank_transfer", "")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), entities.Principal{ID: 7, Role: entities.RoleOwner}, w.ID)
	assert.NoError(t, err)

	_, err = svc.Get(context.Background(), entities.Principal{ID: 8, Role: entities.RoleOwner}, w.ID)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))
}
