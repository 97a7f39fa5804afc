package api

import (
	"database/sql"
	"time"

	"parkly/internal/db"
	"parkly/internal/entities"
)

type createReservationRequest struct {
	ParkingID    int       `json:"parking_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	VehiclePlate string    `json:"vehicle_plate"`
}

type createIntentRequest struct {
	ReservationID int     `json:"reservation_id"`
	Amount        float64 `json:"amount"`
}

type refundRequest struct {
	// Amount 0 refunds the full payment.
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
}

type createWithdrawalRequest struct {
	Amount         float64 `json:"amount"`
	PaymentMethod  string  `json:"payment_method"`
	PaymentDetails string  `json:"payment_details"`
}

type decideWithdrawalRequest struct {
	Action          string `json:"action"`
	Notes           string `json:"notes"`
	RejectionReason string `json:"rejection_reason"`
}

type listResponse struct {
	Data       any                 `json:"data"`
	Pagination entities.Pagination `json:"pagination"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func nullString(s sql.NullString) string {
	if !s.Valid {
		return ""
	}
	return s.String
}

func nullInt(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	return &n.Int64
}

type reservationResponse struct {
	ID           int        `json:"id"`
	SpaceID      int        `json:"space_id"`
	SpaceNumber  string     `json:"space_number"`
	ParkingID    int        `json:"parking_id"`
	ParkingName  string     `json:"parking_name"`
	UserID       int        `json:"user_id"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      time.Time  `json:"end_time"`
	VehiclePlate string     `json:"vehicle_plate,omitempty"`
	TotalAmount  float64    `json:"total_amount"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ExpiredAt    *time.Time `json:"expired_at,omitempty"`
}

func toReservationResponse(d *db.ReservationDetail) reservationResponse {
	return reservationResponse{
		ID:           d.ID,
		SpaceID:      d.SpaceID,
		SpaceNumber:  d.SpaceNumber,
		ParkingID:    d.ParkingID,
		ParkingName:  d.ParkingName,
		UserID:       d.UserID,
		StartTime:    d.StartTime,
		EndTime:      d.EndTime,
		VehiclePlate: d.VehiclePlate,
		TotalAmount:  d.TotalAmount,
		Status:       d.Status,
		CreatedAt:    d.CreatedAt,
		PaidAt:       nullTime(d.PaidAt),
		ConfirmedAt:  nullTime(d.ConfirmedAt),
		CancelledAt:  nullTime(d.CancelledAt),
		CompletedAt:  nullTime(d.CompletedAt),
		ExpiredAt:    nullTime(d.ExpiredAt),
	}
}

func toReservationResponses(list []db.ReservationDetail) []reservationResponse {
	out := make([]reservationResponse, 0, len(list))
	for i := range list {
		out = append(out, toReservationResponse(&list[i]))
	}
	return out
}

type paymentResponse struct {
	ID               int        `json:"id"`
	ReservationID    int        `json:"reservation_id"`
	UserID           int        `json:"user_id"`
	Amount           float64    `json:"amount"`
	Status           string     `json:"status"`
	ProviderIntentID string     `json:"provider_intent_id"`
	CardBrand        string     `json:"card_brand,omitempty"`
	CardLast4        string     `json:"card_last4,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	FailedAt         *time.Time `json:"failed_at,omitempty"`
	RefundedAt       *time.Time `json:"refunded_at,omitempty"`
}

func toPaymentResponse(p *db.Payment) paymentResponse {
	return paymentResponse{
		ID:               p.ID,
		ReservationID:    p.ReservationID,
		UserID:           p.UserID,
		Amount:           p.Amount,
		Status:           p.Status,
		ProviderIntentID: p.ProviderIntentID,
		CardBrand:        nullString(p.CardBrand),
		CardLast4:        nullString(p.CardLast4),
		CreatedAt:        p.CreatedAt,
		CompletedAt:      nullTime(p.CompletedAt),
		FailedAt:         nullTime(p.FailedAt),
		RefundedAt:       nullTime(p.RefundedAt),
	}
}

func toPaymentResponses(list []db.Payment) []paymentResponse {
	out := make([]paymentResponse, 0, len(list))
	for i := range list {
		out = append(out, toPaymentResponse(&list[i]))
	}
	return out
}

type refundResponse struct {
	ID        int       `json:"id"`
	PaymentID int       `json:"payment_id"`
	Amount    float64   `json:"amount"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toRefundResponse(r *db.Refund) refundResponse {
	return refundResponse{
		ID:        r.ID,
		PaymentID: r.PaymentID,
		Amount:    r.Amount,
		Reason:    r.Reason,
		CreatedAt: r.CreatedAt,
	}
}

type withdrawalResponse struct {
	ID              int        `json:"id"`
	OwnerID         int        `json:"owner_id"`
	Amount          float64    `json:"amount"`
	PaymentMethod   string     `json:"payment_method"`
	PaymentDetails  string     `json:"payment_details,omitempty"`
	Status          string     `json:"status"`
	ProcessedBy     *int64     `json:"processed_by,omitempty"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	AdminNotes      string     `json:"admin_notes,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toWithdrawalResponse(w *db.WithdrawalRequest) withdrawalResponse {
	return withdrawalResponse{
		ID:              w.ID,
		OwnerID:         w.OwnerID,
		Amount:          w.Amount,
		PaymentMethod:   w.PaymentMethod,
		PaymentDetails:  w.PaymentDetails,
		Status:          w.Status,
		ProcessedBy:     nullInt(w.ProcessedBy),
		ProcessedAt:     nullTime(w.ProcessedAt),
		AdminNotes:      nullString(w.AdminNotes),
		RejectionReason: nullString(w.RejectionReason),
		CreatedAt:       w.CreatedAt,
	}
}

func toWithdrawalResponses(list []db.WithdrawalRequest) []withdrawalResponse {
	out := make([]withdrawalResponse, 0, len(list))
	for i := range list {
		out = append(out, toWithdrawalResponse(&list[i]))
	}
	return out
}

type balanceResponse struct {
	OwnerID           int        `json:"owner_id"`
	CurrentBalance    float64    `json:"current_balance"`
	TotalEarned       float64    `json:"total_earned"`
	LastTransactionAt *time.Time `json:"last_transaction_at,omitempty"`
}

func toBalanceResponse(b *db.OwnerBalance) balanceResponse {
	return balanceResponse{
		OwnerID:           b.OwnerID,
		CurrentBalance:    b.CurrentBalance,
		TotalEarned:       b.TotalEarned,
		LastTransactionAt: nullTime(b.LastTransactionAt),
	}
}

type transactionResponse struct {
	ID            int       `json:"id"`
	OwnerID       int       `json:"owner_id"`
	ReservationID *int64    `json:"reservation_id,omitempty"`
	Type          string    `json:"type"`
	Amount        float64   `json:"amount"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func toTransactionResponses(list []db.BalanceTransaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(list))
	for _, t := range list {
		out = append(out, transactionResponse{
			ID:            t.ID,
			OwnerID:       t.OwnerID,
			ReservationID: nullInt(t.ReservationID),
			Type:          t.Type,
			Amount:        t.Amount,
			Description:   t.Description,
			CreatedAt:     t.CreatedAt,
		})
	}
	return out
}

type statsResponse struct {
	Period  string          `json:"period"`
	Balance balanceResponse `json:"balance"`
	Stats   struct {
		TotalReservations int     `json:"total_reservations"`
		TotalEarnings     float64 `json:"total_earnings"`
		TotalFees         float64 `json:"total_fees"`
		AvgEarning        float64 `json:"avg_earning"`
	} `json:"stats"`
	Daily []dailyEarningResponse `json:"daily_earnings"`
}

type dailyEarningResponse struct {
	Date         time.Time `json:"date"`
	Earnings     float64   `json:"earnings"`
	Reservations int       `json:"reservations"`
}

func toStatsResponse(s *entities.OwnerStats) statsResponse {
	resp := statsResponse{Period: s.Period, Balance: toBalanceResponse(s.Balance)}
	resp.Stats.TotalReservations = s.Stats.TotalReservations
	resp.Stats.TotalEarnings = s.Stats.TotalEarnings
	resp.Stats.TotalFees = s.Stats.TotalFees
	resp.Stats.AvgEarning = s.Stats.AvgEarning
	for _, d := range s.Daily {
		resp.Daily = append(resp.Daily, dailyEarningResponse{Date: d.Date, Earnings: d.Earnings, Reservations: d.Reservations})
	}
	return resp
}

type summaryResponse struct {
	OwnerID           int        `json:"owner_id"`
	CurrentBalance    float64    `json:"current_balance"`
	TotalEarned       float64    `json:"total_earned"`
	LastTransactionAt *time.Time `json:"last_transaction_at,omitempty"`
}

type payoutResponse struct {
	OwnerID int     `json:"owner_id"`
	Amount  float64 `json:"amount"`
}
