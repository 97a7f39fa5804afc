package entities

// Provider intent statuses as normalized by the webhook boundary.
const (
	IntentSucceeded = "succeeded"
	IntentFailed    = "failed"
)

// ProviderIntentHandle is returned to the client so it can finish the payment
// with the provider's SDK.
type ProviderIntentHandle struct {
	PaymentID    int     `json:"payment_id"`
	IntentID     string  `json:"intent_id"`
	ClientSecret string  `json:"client_secret"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}

// CardMeta is the card detail captured from the provider on completion.
type CardMeta struct {
	Brand    string
	Last4    string
	ChargeID string
}

// EarningSplit is the result of settling one reservation total.
type EarningSplit struct {
	OwnerID      int     `json:"owner_id"`
	TotalAmount  float64 `json:"total_amount"`
	OwnerEarning float64 `json:"owner_earning"`
	PlatformFee  float64 `json:"platform_fee"`
}
