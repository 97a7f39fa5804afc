package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"parkly/internal/db"
	"parkly/internal/entities"
	apperrors "parkly/internal/errors"
	"parkly/internal/metrics"
)

// LedgerStore is the persistence surface of the settlement ledger.
type LedgerStore interface {
	GetOwnerForReservation(ctx context.Context, reservationID int) (ownerID int, totalAmount float64, parkingName string, err error)
	PostEarning(ctx context.Context, ownerID, reservationID int, earning, fee float64, parkingName string) (bool, error)
	ReverseEarning(ctx context.Context, ownerID, reservationID int, amount float64, description string) (float64, error)
	GetBalance(ctx context.Context, ownerID int) (*db.OwnerBalance, error)
	ListTransactions(ctx context.Context, ownerID int, page entities.Page) ([]db.BalanceTransaction, int, error)
	GetStats(ctx context.Context, ownerID int, since time.Time) (db.BalanceStats, []db.DailyEarning, error)
	ListSummaries(ctx context.Context) ([]db.OwnerBalanceSummary, error)
}

// BalanceService settles completed payments into the owner ledger and serves
// its read-only projections.
type BalanceService struct {
	store          LedgerStore
	commissionRate decimal.Decimal
}

func NewBalanceService(store LedgerStore, commissionRate float64) *BalanceService {
	return &BalanceService{
		store:          store,
		commissionRate: decimal.NewFromFloat(commissionRate),
	}
}

// Split computes the commission split for a reservation total. The fee is
// rounded to the cent and the earning is the exact remainder, so
// fee + earning always equals the total.
func (s *BalanceService) Split(total float64) (earning, fee float64) {
	t := decimal.NewFromFloat(total)
	f := t.Mul(s.commissionRate).Round(2)
	e := t.Sub(f)
	earning, _ = e.Float64()
	fee, _ = f.Float64()
	return earning, fee
}

// PostEarning credits the owner with their share of a paid reservation.
// Idempotent per reservation: a replay changes nothing and still reports the
// same split.
func (s *BalanceService) PostEarning(ctx context.Context, reservationID int) (*entities.EarningSplit, error) {
	ownerID, total, parkingName, err := s.store.GetOwnerForReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	earning, fee := s.Split(total)
	posted, err := s.store.PostEarning(ctx, ownerID, reservationID, earning, fee, parkingName)
	if err != nil {
		return nil, apperrors.LedgerInconsistency(
			fmt.Sprintf("posting earnings for reservation %d (owner %d, earning %.2f, fee %.2f)", reservationID, ownerID, earning, fee), err)
	}
	if !posted {
		log.Printf("Earnings for reservation %d already posted, skipping", reservationID)
	} else {
		log.Printf("Reservation %d settled: owner %d +%.2f, platform fee %.2f", reservationID, ownerID, earning, fee)
	}

	return &entities.EarningSplit{
		OwnerID:      ownerID,
		TotalAmount:  total,
		OwnerEarning: earning,
		PlatformFee:  fee,
	}, nil
}

// ReverseEarning claws back the owner's share of a refunded amount. The
// reversal uses the current commission rate; if the rate ever becomes
// configurable per transaction this must read the rate stored with the
// original earning instead.
func (s *BalanceService) ReverseEarning(ctx context.Context, reservationID int, refundAmount float64, reason string) error {
	ownerID, _, parkingName, err := s.store.GetOwnerForReservation(ctx, reservationID)
	if err != nil {
		return err
	}

	ownerShare, _ := s.Split(refundAmount)
	description := fmt.Sprintf("%s - reservation #%d - %s", reason, reservationID, parkingName)
	newBalance, err := s.store.ReverseEarning(ctx, ownerID, reservationID, ownerShare, description)
	if err != nil {
		return apperrors.LedgerInconsistency(
			fmt.Sprintf("reversing earnings for reservation %d (owner %d, amount %.2f)", reservationID, ownerID, ownerShare), err)
	}

	if newBalance < 0 {
		// Allowed transiently; needs manual correction, never clamped.
		metrics.NegativeBalances.Inc()
		log.Printf("ALERT: owner %d balance is negative (%.2f) after refund on reservation %d", ownerID, newBalance, reservationID)
	}
	log.Printf("Refund reversal applied for reservation %d: owner %d -%.2f", reservationID, ownerID, ownerShare)
	return nil
}

func (s *BalanceService) GetBalance(ctx context.Context, ownerID int) (*db.OwnerBalance, error) {
	return s.store.GetBalance(ctx, ownerID)
}

func (s *BalanceService) ListTransactions(ctx context.Context, ownerID int, page entities.Page) ([]db.BalanceTransaction, int, error) {
	return s.store.ListTransactions(ctx, ownerID, page)
}

// GetStats aggregates settled activity over a rolling window.
func (s *BalanceService) GetStats(ctx context.Context, ownerID int, period string) (*entities.OwnerStats, error) {
	var window time.Duration
	switch period {
	case "week":
		window = 7 * 24 * time.Hour
	case "year":
		window = 365 * 24 * time.Hour
	case "month", "":
		period = "month"
		window = 30 * 24 * time.Hour
	default:
		return nil, apperrors.Validation("period must be week, month or year")
	}

	stats, daily, err := s.store.GetStats(ctx, ownerID, time.Now().Add(-window))
	if err != nil {
		return nil, err
	}
	balance, err := s.store.GetBalance(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return &entities.OwnerStats{
		Period:  period,
		Balance: balance,
		Stats:   stats,
		Daily:   daily,
	}, nil
}

// ListSummaries is the admin view over all owner balances.
func (s *BalanceService) ListSummaries(ctx context.Context) ([]db.OwnerBalanceSummary, error) {
	return s.store.ListSummaries(ctx)
}
