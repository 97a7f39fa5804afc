package service

import (
	"context"
	"fmt"
	"strconv"

	"parkly/internal/db"
	"parkly/internal/entities"
	apperrors "parkly/internal/errors"
)

// WithdrawalStore is the persistence surface of the withdrawal workflow.
type WithdrawalStore interface {
	Create(ctx context.Context, w *db.WithdrawalRequest) error
	GetByID(ctx context.Context, id int) (*db.WithdrawalRequest, error)
	ListByOwner(ctx context.Context, ownerID int, page entities.Page) ([]db.WithdrawalRequest, int, error)
	ListAll(ctx context.Context, status string, page entities.Page) ([]db.WithdrawalRequest, int, error)
	Approve(ctx context.Context, id, adminID int, notes string) (*db.WithdrawalRequest, error)
	Reject(ctx context.Context, id, adminID int, notes, reason string) (*db.WithdrawalRequest, error)
	MarkAllPaid(ctx context.Context, adminID int) ([]db.Payout, error)
}

// BalanceReader is the slice of the ledger the withdrawal flow reads.
type BalanceReader interface {
	GetBalance(ctx context.Context, ownerID int) (*db.OwnerBalance, error)
}

type WithdrawalService struct {
	store    WithdrawalStore
	balances BalanceReader
}

func NewWithdrawalService(store WithdrawalStore, balances BalanceReader) *WithdrawalService {
	return &WithdrawalService{store: store, balances: balances}
}

// Request files a pending withdrawal. The balance check here is advisory; the
// binding check happens again under lock at approval time. One pending request
// per owner is enforced by the store.
func (s *WithdrawalService) Request(ctx context.Context, ownerID int, amount float64, method, details string) (*db.WithdrawalRequest, []entities.Event, error) {
	if amount <= 0 {
		return nil, nil, apperrors.Validation("amount must be positive")
	}
	if method == "" {
		return nil, nil, apperrors.Validation("payment method is required")
	}

	balance, err := s.balances.GetBalance(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	if balance.CurrentBalance < amount {
		return nil, nil, apperrors.InsufficientBalance(
			fmt.Sprintf("balance %.2f is below the requested %.2f", balance.CurrentBalance, amount))
	}

	w := &db.WithdrawalRequest{
		OwnerID:        ownerID,
		Amount:         amount,
		PaymentMethod:  method,
		PaymentDetails: details,
	}
	if err := s.store.Create(ctx, w); err != nil {
		return nil, nil, err
	}

	// Zero recipient addresses the admin audience.
	events := []entities.Event{{
		Type:        entities.EventWithdrawalRequest,
		RecipientID: 0,
		Payload: map[string]string{
			"request_id": strconv.Itoa(w.ID),
			"owner_id":   strconv.Itoa(ownerID),
			"amount":     fmt.Sprintf("%.2f", amount),
		},
	}}
	return w, events, nil
}

func (s *WithdrawalService) Get(ctx context.Context, principal entities.Principal, id int) (*db.WithdrawalRequest, error) {
	w, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if w.OwnerID != principal.ID && !principal.IsAdmin() {
		return nil, apperrors.Forbidden("not allowed to view this withdrawal request")
	}
	return w, nil
}

func (s *WithdrawalService) ListMine(ctx context.Context, ownerID int, page entities.Page) ([]db.WithdrawalRequest, int, error) {
	return s.store.ListByOwner(ctx, ownerID, page)
}

func (s *WithdrawalService) ListAll(ctx context.Context, status string, page entities.Page) ([]db.WithdrawalRequest, int, error) {
	return s.store.ListAll(ctx, status, page)
}

// Decide settles a pending request. Approval debits the balance atomically
// with the status flip; rejection needs an explicit reason for the owner.
func (s *WithdrawalService) Decide(ctx context.Context, adminID, id int, approve bool, notes, rejectionReason string) (*db.WithdrawalRequest, []entities.Event, error) {
	var (
		w   *db.WithdrawalRequest
		err error
	)
	if approve {
		w, err = s.store.Approve(ctx, id, adminID, notes)
	} else {
		if rejectionReason == "" {
			return nil, nil, apperrors.Validation("rejection reason is required")
		}
		w, err = s.store.Reject(ctx, id, adminID, notes, rejectionReason)
	}
	if err != nil {
		return nil, nil, err
	}

	eventType := entities.EventWithdrawalApproved
	payload := map[string]string{
		"request_id": strconv.Itoa(w.ID),
		"amount":     fmt.Sprintf("%.2f", w.Amount),
	}
	if !approve {
		eventType = entities.EventWithdrawalRejected
		payload["reason"] = rejectionReason
	}
	events := []entities.Event{{
		Type:        eventType,
		RecipientID: w.OwnerID,
		Payload:     payload,
	}}
	return w, events, nil
}

// MarkAllPaid zeroes every positive owner balance. Used for off-platform bulk
// payouts.
func (s *WithdrawalService) MarkAllPaid(ctx context.Context, adminID int) ([]db.Payout, error) {
	return s.store.MarkAllPaid(ctx, adminID)
}
