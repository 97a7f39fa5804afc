package api

import (
	"net/http"

	"parkly/internal/auth"
	"parkly/internal/entities"
	"parkly/internal/service"
)

type BalanceHandler struct {
	Service *service.BalanceService
}

func NewBalanceHandler(svc *service.BalanceService) *BalanceHandler {
	return &BalanceHandler{Service: svc}
}

func (h *BalanceHandler) GetMyBalance(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())

	balance, err := h.Service.GetBalance(r.Context(), principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceResponse(balance))
}

func (h *BalanceHandler) ListMyTransactions(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())
	page := parsePage(r)

	list, total, err := h.Service.ListTransactions(r.Context(), principal.ID, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: toTransactionResponses(list), Pagination: entities.NewPagination(page, total)})
}

func (h *BalanceHandler) GetMyStats(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())

	stats, err := h.Service.GetStats(r.Context(), principal.ID, r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsResponse(stats))
}

// ListSummaries is the admin view over every owner balance.
func (h *BalanceHandler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.Service.ListSummaries(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var totalBalance, totalEarned float64
	owners := make([]summaryResponse, 0, len(summaries))
	for _, s := range summaries {
		totalBalance += s.CurrentBalance
		totalEarned += s.TotalEarned
		owners = append(owners, summaryResponse{
			OwnerID:           s.OwnerID,
			CurrentBalance:    s.CurrentBalance,
			TotalEarned:       s.TotalEarned,
			LastTransactionAt: nullTime(s.LastTransactionAt),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owners":        owners,
		"total_balance": totalBalance,
		"total_earned":  totalEarned,
	})
}
