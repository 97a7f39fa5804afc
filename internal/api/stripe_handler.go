package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"parkly/internal/entities"
	"parkly/internal/service"
)

// StripeWebhookHandler is the only unauthenticated mutation path. Trust comes
// from the webhook signature, never from the payload.
type StripeWebhookHandler struct {
	WebhookSecret string
	Payments      *service.PaymentService
	Notifier      EventDispatcher
}

func NewStripeWebhookHandler(webhookSecret string, payments *service.PaymentService, notifier EventDispatcher) *StripeWebhookHandler {
	return &StripeWebhookHandler{
		WebhookSecret: webhookSecret,
		Payments:      payments,
		Notifier:      notifier,
	}
}

func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Webhook: error reading body: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEvent(payload, sigHeader, h.WebhookSecret)
	if err != nil {
		log.Printf("Webhook: signature verification failed: %v", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			log.Printf("Webhook: error parsing payment_intent: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.reconcile(w, r.Context(), pi.ID, entities.IntentSucceeded, cardMetaFromIntent(&pi))

	case "payment_intent.payment_failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			log.Printf("Webhook: error parsing payment_intent: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		h.reconcile(w, r.Context(), pi.ID, entities.IntentFailed, entities.CardMeta{})

	default:
		log.Printf("Webhook: unhandled event type: %s", event.Type)
		w.WriteHeader(http.StatusOK)
	}
}

// reconcile answers non-2xx only on storage errors so the provider retries
// them. Duplicate or anomalous deliveries are acknowledged.
func (h *StripeWebhookHandler) reconcile(w http.ResponseWriter, ctx context.Context, intentID, status string, card entities.CardMeta) {
	events, err := h.Payments.Reconcile(ctx, intentID, status, card)
	if err != nil {
		log.Printf("Webhook: reconciling intent %s failed: %v", intentID, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	h.Notifier.Dispatch(events)
	w.WriteHeader(http.StatusOK)
}

func cardMetaFromIntent(pi *stripe.PaymentIntent) entities.CardMeta {
	var meta entities.CardMeta
	charge := pi.LatestCharge
	if charge == nil {
		return meta
	}
	meta.ChargeID = charge.ID
	if charge.PaymentMethodDetails != nil && charge.PaymentMethodDetails.Card != nil {
		meta.Brand = string(charge.PaymentMethodDetails.Card.Brand)
		meta.Last4 = charge.PaymentMethodDetails.Card.Last4
	}
	return meta
}
