package entities

import "parkly/internal/db"

// OwnerStats is the owner dashboard aggregate over a rolling window.
type OwnerStats struct {
	Period  string            `json:"period"`
	Balance *db.OwnerBalance  `json:"balance"`
	Stats   db.BalanceStats   `json:"stats"`
	Daily   []db.DailyEarning `json:"daily_earnings"`
}
