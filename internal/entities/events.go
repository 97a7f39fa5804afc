package entities

// Event types emitted by core operations.
const (
	EventNewReservation       = "NEW_RESERVATION"
	EventReservationConfirmed = "RESERVATION_CONFIRMED"
	EventReservationCancelled = "RESERVATION_CANCELLED"
	EventPaymentFailed        = "PAYMENT_FAILED"
	EventWithdrawalRequest    = "WITHDRAWAL_REQUEST"
	EventWithdrawalApproved   = "WITHDRAWAL_APPROVED"
	EventWithdrawalRejected   = "WITHDRAWAL_REJECTED"
)

// Event is a post-commit notification. Core operations return these instead of
// calling the notifier inline; the boundary dispatches them after the
// transaction has committed, so delivery failures can never affect core state.
type Event struct {
	Type        string
	RecipientID int
	Payload     map[string]string
}
