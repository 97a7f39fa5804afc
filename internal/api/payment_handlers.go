package api

import (
	"net/http"

	"parkly/internal/auth"
	"parkly/internal/entities"
	"parkly/internal/service"
)

type PaymentHandler struct {
	Service  *service.PaymentService
	Notifier EventDispatcher
}

func NewPaymentHandler(svc *service.PaymentService, notifier EventDispatcher) *PaymentHandler {
	return &PaymentHandler{Service: svc, Notifier: notifier}
}

// CreateIntent answers 202: the payment is opened at the provider but stays
// pending until the webhook settles it.
func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())

	var req createIntentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	handle, err := h.Service.CreateIntent(r.Context(), principal.ID, req.ReservationID, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, handle)
}

func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	p, err := h.Service.Get(r.Context(), principal, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentResponse(p))
}

func (h *PaymentHandler) ListMyPayments(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())
	page := parsePage(r)

	list, total, err := h.Service.ListMine(r.Context(), principal.ID, r.URL.Query().Get("status"), page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: toPaymentResponses(list), Pagination: entities.NewPagination(page, total)})
}

func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req refundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	refund, err := h.Service.Refund(r.Context(), principal, id, req.Amount, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRefundResponse(refund))
}
