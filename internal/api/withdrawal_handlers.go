package api

import (
	"net/http"

	"parkly/internal/auth"
	"parkly/internal/entities"
	apperrors "parkly/internal/errors"
	"parkly/internal/service"
)

type WithdrawalHandler struct {
	Service  *service.WithdrawalService
	Notifier EventDispatcher
}

func NewWithdrawalHandler(svc *service.WithdrawalService, notifier EventDispatcher) *WithdrawalHandler {
	return &WithdrawalHandler{Service: svc, Notifier: notifier}
}

func (h *WithdrawalHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())

	var req createWithdrawalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	request, events, err := h.Service.Request(r.Context(), principal.ID, req.Amount, req.PaymentMethod, req.PaymentDetails)
	if err != nil {
		writeError(w, err)
		return
	}
	h.Notifier.Dispatch(events)
	writeJSON(w, http.StatusCreated, toWithdrawalResponse(request))
}

func (h *WithdrawalHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	request, err := h.Service.Get(r.Context(), principal, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWithdrawalResponse(request))
}

func (h *WithdrawalHandler) ListMyRequests(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())
	page := parsePage(r)

	list, total, err := h.Service.ListMine(r.Context(), principal.ID, page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: toWithdrawalResponses(list), Pagination: entities.NewPagination(page, total)})
}

func (h *WithdrawalHandler) ListAllRequests(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)

	list, total, err := h.Service.ListAll(r.Context(), r.URL.Query().Get("status"), page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: toWithdrawalResponses(list), Pagination: entities.NewPagination(page, total)})
}

func (h *WithdrawalHandler) DecideRequest(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req decideWithdrawalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Action != "approve" && req.Action != "reject" {
		writeError(w, apperrors.Validation("action must be approve or reject"))
		return
	}

	request, events, err := h.Service.Decide(r.Context(), principal.ID, id, req.Action == "approve", req.Notes, req.RejectionReason)
	if err != nil {
		writeError(w, err)
		return
	}
	h.Notifier.Dispatch(events)
	writeJSON(w, http.StatusOK, toWithdrawalResponse(request))
}

// MarkAllPaid zeroes every positive owner balance for an off-platform bulk
// payout run.
func (h *WithdrawalHandler) MarkAllPaid(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())

	payouts, err := h.Service.MarkAllPaid(r.Context(), principal.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]payoutResponse, 0, len(payouts))
	for _, p := range payouts {
		out = append(out, payoutResponse{OwnerID: p.OwnerID, Amount: p.Amount})
	}
	writeJSON(w, http.StatusOK, map[string]any{"payouts": out, "count": len(out)})
}
