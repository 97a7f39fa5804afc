package db

import (
	"database/sql"
	"time"
)

// Space statuses.
const (
	SpaceAvailable   = "available"
	SpaceReserved    = "reserved"
	SpaceOccupied    = "occupied"
	SpaceMaintenance = "maintenance"
)

// Reservation statuses. Completed, cancelled and expired are terminal.
const (
	ReservationPending   = "pending"
	ReservationActive    = "active"
	ReservationPaid      = "paid"
	ReservationCompleted = "completed"
	ReservationCancelled = "cancelled"
	ReservationExpired   = "expired"
)

// Payment statuses. A payment makes exactly one pending→completed/failed
// transition; refunded follows completed.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Balance transaction types. Earnings are positive, everything else negative.
const (
	TxnEarning    = "earning"
	TxnFee        = "fee"
	TxnRefund     = "refund"
	TxnWithdrawal = "withdrawal"
)

// Withdrawal request statuses.
const (
	WithdrawalPending  = "pending"
	WithdrawalApproved = "approved"
	WithdrawalRejected = "rejected"
)

// UserContact is the notification-facing slice of a user row. Accounts are
// provisioned outside this service; only contact resolution lives here.
type UserContact struct {
	ID    int
	Name  string
	Email string
	Phone string
	Role  string
}

type Parking struct {
	ID      int
	OwnerID int
	Name    string
	Address string
	Status  string
}

type ParkingSpace struct {
	ID          int
	ParkingID   int
	SpaceNumber string
	Status      string
	HourlyRate  float64
}

type Reservation struct {
	ID           int
	SpaceID      int
	UserID       int
	StartTime    time.Time
	EndTime      time.Time
	VehiclePlate string
	TotalAmount  float64
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	PaidAt       sql.NullTime
	ConfirmedAt  sql.NullTime
	CancelledAt  sql.NullTime
	CompletedAt  sql.NullTime
	ExpiredAt    sql.NullTime
}

// ReservationDetail is a reservation joined with its space and lot, enough to
// run ownership checks and settlement without extra round trips.
type ReservationDetail struct {
	Reservation
	SpaceNumber string
	ParkingID   int
	ParkingName string
	OwnerID     int
	HourlyRate  float64
}

type Payment struct {
	ID               int
	ReservationID    int
	UserID           int
	Amount           float64
	Status           string
	ProviderIntentID string
	CardBrand        sql.NullString
	CardLast4        sql.NullString
	ChargeID         sql.NullString
	CreatedAt        time.Time
	CompletedAt      sql.NullTime
	FailedAt         sql.NullTime
	RefundedAt       sql.NullTime
}

type Refund struct {
	ID          int
	PaymentID   int
	Amount      float64
	Reason      string
	ProcessedBy int
	CreatedAt   time.Time
}

type OwnerBalance struct {
	OwnerID           int
	CurrentBalance    float64
	TotalEarned       float64
	LastTransactionAt sql.NullTime
	CreatedAt         time.Time
}

type BalanceTransaction struct {
	ID            int
	OwnerID       int
	ReservationID sql.NullInt64
	Type          string
	Amount        float64
	Description   string
	Status        string
	CreatedAt     time.Time
}

type WithdrawalRequest struct {
	ID              int
	OwnerID         int
	Amount          float64
	PaymentMethod   string
	PaymentDetails  string
	Status          string
	ProcessedBy     sql.NullInt64
	ProcessedAt     sql.NullTime
	AdminNotes      sql.NullString
	RejectionReason sql.NullString
	CreatedAt       time.Time
}

// BalanceStats aggregates an owner's settled activity over a window.
type BalanceStats struct {
	TotalReservations int
	TotalEarnings     float64
	TotalFees         float64
	AvgEarning        float64
}

type DailyEarning struct {
	Date         time.Time
	Earnings     float64
	Reservations int
}

// Payout records one owner's debit during a bulk mark-all-paid pass.
type Payout struct {
	OwnerID int
	Amount  float64
}

// OwnerBalanceSummary is the admin projection of one owner's balance.
type OwnerBalanceSummary struct {
	OwnerID           int
	CurrentBalance    float64
	TotalEarned       float64
	LastTransactionAt sql.NullTime
}
