package service

import (
	"context"
	"fmt"
	"log"
	"math"
	"strconv"

	"parkly/internal/db"
	"parkly/internal/entities"
	apperrors "parkly/internal/errors"
	"parkly/internal/metrics"
)

// PaymentStore is the persistence surface of the payment lifecycle.
type PaymentStore interface {
	CreatePayment(ctx context.Context, p *db.Payment) error
	GetByID(ctx context.Context, id int) (*db.Payment, error)
	GetByReservationID(ctx context.Context, reservationID int) (*db.Payment, error)
	GetByProviderIntentID(ctx context.Context, intentID string) (*db.Payment, error)
	ListByUser(ctx context.Context, userID int, status string, page entities.Page) ([]db.Payment, int, error)
	CompleteByIntentID(ctx context.Context, intentID string, card entities.CardMeta) (reservationID int, applied, anomaly bool, err error)
	FailByIntentID(ctx context.Context, intentID string) (reservationID int, applied bool, err error)
	MarkRefunded(ctx context.Context, refund *db.Refund) error
}

// ReservationReader is the slice of the booking store the payment flow needs.
type ReservationReader interface {
	GetReservationDetail(ctx context.Context, id int) (*db.ReservationDetail, error)
}

// Settler posts and reverses owner earnings once money has moved.
type Settler interface {
	PostEarning(ctx context.Context, reservationID int) (*entities.EarningSplit, error)
	ReverseEarning(ctx context.Context, reservationID int, refundAmount float64, reason string) error
}

// PaymentProvider abstracts the external processor. Amounts are in minor units.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, amountCents int64, metadata map[string]string) (intentID, clientSecret string, err error)
	Refund(ctx context.Context, intentID string, amountCents int64) (refundID string, err error)
}

type PaymentService struct {
	store        PaymentStore
	reservations ReservationReader
	settler      Settler
	provider     PaymentProvider
	currency     string
}

func NewPaymentService(store PaymentStore, reservations ReservationReader, settler Settler, provider PaymentProvider, currency string) *PaymentService {
	return &PaymentService{
		store:        store,
		reservations: reservations,
		settler:      settler,
		provider:     provider,
		currency:     currency,
	}
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreateIntent opens a provider payment intent for a pending reservation. The
// charged amount always comes from the stored reservation total; a tampered or
// stale client amount is logged and overridden, never trusted.
func (s *PaymentService) CreateIntent(ctx context.Context, userID, reservationID int, clientAmount float64) (*entities.ProviderIntentHandle, error) {
	res, err := s.reservations.GetReservationDetail(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		return nil, apperrors.Forbidden("not allowed to pay for this reservation")
	}
	if res.Status != db.ReservationPending && res.Status != db.ReservationActive {
		return nil, apperrors.Conflict("reservation is not payable")
	}
	if math.Abs(clientAmount-res.TotalAmount) > 0.01 {
		log.Printf("Payment: client sent %.2f for reservation %d, charging the stored total %.2f",
			clientAmount, reservationID, res.TotalAmount)
	}

	// A reservation can hold one payment. Checking before calling out keeps
	// a duplicate request from leaving an orphaned intent at the provider.
	if _, err := s.store.GetByReservationID(ctx, reservationID); err == nil {
		return nil, apperrors.Conflict("a payment already exists for this reservation")
	} else if !apperrors.Is(err, apperrors.KindNotFound) {
		return nil, err
	}

	intentID, clientSecret, err := s.provider.CreateIntent(ctx, toCents(res.TotalAmount), map[string]string{
		"reservation_id": strconv.Itoa(reservationID),
		"user_id":        strconv.Itoa(userID),
	})
	if err != nil {
		return nil, err
	}

	payment := &db.Payment{
		ReservationID:    reservationID,
		UserID:           userID,
		Amount:           res.TotalAmount,
		ProviderIntentID: intentID,
	}
	if err := s.store.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}

	return &entities.ProviderIntentHandle{
		PaymentID:    payment.ID,
		IntentID:     intentID,
		ClientSecret: clientSecret,
		Amount:       res.TotalAmount,
		Currency:     s.currency,
	}, nil
}

func (s *PaymentService) Get(ctx context.Context, principal entities.Principal, id int) (*db.Payment, error) {
	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != principal.ID && !principal.IsAdmin() {
		return nil, apperrors.Forbidden("not allowed to view this payment")
	}
	return p, nil
}

func (s *PaymentService) ListMine(ctx context.Context, userID int, status string, page entities.Page) ([]db.Payment, int, error) {
	return s.store.ListByUser(ctx, userID, status, page)
}

// Reconcile applies a verified provider callback. It is safe to call any
// number of times with the same intent: replays resolve to no-ops. The ledger
// posting happens after the payment commit and its failure never surfaces as a
// webhook error; the provider must not retry a payment that already settled.
func (s *PaymentService) Reconcile(ctx context.Context, intentID, status string, card entities.CardMeta) ([]entities.Event, error) {
	switch status {
	case entities.IntentSucceeded:
		return s.reconcileSuccess(ctx, intentID, card)
	case entities.IntentFailed:
		return s.reconcileFailure(ctx, intentID)
	default:
		log.Printf("Webhook: ignoring intent %s with unhandled status %q", intentID, status)
		return nil, nil
	}
}

func (s *PaymentService) reconcileSuccess(ctx context.Context, intentID string, card entities.CardMeta) ([]entities.Event, error) {
	reservationID, applied, anomaly, err := s.store.CompleteByIntentID(ctx, intentID, card)
	if err != nil {
		return nil, err
	}
	if !applied {
		log.Printf("Webhook: intent %s already reconciled, skipping", intentID)
		return nil, nil
	}
	if anomaly {
		metrics.AnomalousWebhooks.Inc()
		log.Printf("ALERT: intent %s succeeded for reservation %d after it left the payable states, manual review needed", intentID, reservationID)
		return nil, nil
	}

	if _, err := s.settler.PostEarning(ctx, reservationID); err != nil {
		// The payment is committed and must stay committed. The missing
		// ledger entry is recoverable by replaying the posting later.
		metrics.LedgerPostFailures.Inc()
		log.Printf("ALERT: payment for reservation %d completed but ledger posting failed: %v", reservationID, err)
	}

	res, err := s.reservations.GetReservationDetail(ctx, reservationID)
	if err != nil {
		log.Printf("Webhook: reservation %d reconciled but detail lookup failed: %v", reservationID, err)
		return nil, nil
	}
	return []entities.Event{{
		Type:        entities.EventReservationConfirmed,
		RecipientID: res.UserID,
		Payload: map[string]string{
			"reservation_id": strconv.Itoa(res.ID),
			"parking_name":   res.ParkingName,
			"total_amount":   fmt.Sprintf("%.2f", res.TotalAmount),
		},
	}}, nil
}

func (s *PaymentService) reconcileFailure(ctx context.Context, intentID string) ([]entities.Event, error) {
	reservationID, applied, err := s.store.FailByIntentID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if !applied {
		log.Printf("Webhook: failed intent %s already reconciled, skipping", intentID)
		return nil, nil
	}

	res, err := s.reservations.GetReservationDetail(ctx, reservationID)
	if err != nil {
		log.Printf("Webhook: reservation %d failed but detail lookup failed: %v", reservationID, err)
		return nil, nil
	}
	return []entities.Event{{
		Type:        entities.EventPaymentFailed,
		RecipientID: res.UserID,
		Payload: map[string]string{
			"reservation_id": strconv.Itoa(res.ID),
			"parking_name":   res.ParkingName,
		},
	}}, nil
}

// Refund pushes a refund through the provider, flips the payment and claws
// back the owner's earning. amount 0 refunds the full payment; a partial
// amount must stay within what was charged. Only the lot owner or an admin
// can refund.
func (s *PaymentService) Refund(ctx context.Context, principal entities.Principal, paymentID int, amount float64, reason string) (*db.Refund, error) {
	payment, err := s.store.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	res, err := s.reservations.GetReservationDetail(ctx, payment.ReservationID)
	if err != nil {
		return nil, err
	}
	if res.OwnerID != principal.ID && !principal.IsAdmin() {
		return nil, apperrors.Forbidden("not allowed to refund this payment")
	}
	if payment.Status != db.PaymentCompleted {
		return nil, apperrors.Conflict("only completed payments can be refunded")
	}
	if amount == 0 {
		amount = payment.Amount
	}
	if amount < 0 || amount > payment.Amount {
		return nil, apperrors.Validation(
			fmt.Sprintf("refund amount %.2f must be positive and at most %.2f", amount, payment.Amount))
	}

	if _, err := s.provider.Refund(ctx, payment.ProviderIntentID, toCents(amount)); err != nil {
		return nil, err
	}

	refund := &db.Refund{
		PaymentID:   paymentID,
		Amount:      amount,
		Reason:      reason,
		ProcessedBy: principal.ID,
	}
	if err := s.store.MarkRefunded(ctx, refund); err != nil {
		// Money already moved back at the provider; the local rows are
		// behind and need the same manual recovery as a failed posting.
		metrics.LedgerPostFailures.Inc()
		log.Printf("ALERT: provider refund for payment %d succeeded but local refund failed: %v", paymentID, err)
		return nil, err
	}

	if err := s.settler.ReverseEarning(ctx, payment.ReservationID, amount, "Refund"); err != nil {
		metrics.LedgerPostFailures.Inc()
		log.Printf("ALERT: refund for payment %d recorded but earning reversal failed: %v", paymentID, err)
	}
	return refund, nil
}
