package service

import (
	"context"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/refund"

	apperrors "parkly/internal/errors"
)

// StripeProvider implements PaymentProvider on Stripe payment intents.
type StripeProvider struct {
	currency string
}

func NewStripeProvider(currency string) *StripeProvider {
	return &StripeProvider{currency: currency}
}

func (s *StripeProvider) CreateIntent(ctx context.Context, amountCents int64, metadata map[string]string) (string, string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(s.currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", "", apperrors.Provider("creating payment intent", err)
	}
	return pi.ID, pi.ClientSecret, nil
}

func (s *StripeProvider) Refund(ctx context.Context, intentID string, amountCents int64) (string, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
		Amount:        stripe.Int64(amountCents),
	}
	params.Context = ctx

	r, err := refund.New(params)
	if err != nil {
		return "", apperrors.Provider("refunding payment intent "+intentID, err)
	}
	return r.ID, nil
}
