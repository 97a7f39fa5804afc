package api

import (
	"net/http"

	"parkly/internal/auth"
	"parkly/internal/entities"
	apperrors "parkly/internal/errors"
	"parkly/internal/service"
)

type BookingHandler struct {
	Service  *service.BookingService
	Notifier EventDispatcher
}

func NewBookingHandler(svc *service.BookingService, notifier EventDispatcher) *BookingHandler {
	return &BookingHandler{Service: svc, Notifier: notifier}
}

func (h *BookingHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, apperrors.Forbidden("missing credentials"))
		return
	}

	var req createReservationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, events, err := h.Service.Reserve(r.Context(), principal.ID, req.ParkingID, req.StartTime, req.EndTime, req.VehiclePlate)
	if err != nil {
		writeError(w, err)
		return
	}
	h.Notifier.Dispatch(events)
	writeJSON(w, http.StatusCreated, toReservationResponse(res))
}

func (h *BookingHandler) GetReservation(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := h.Service.Get(r.Context(), principal, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}

func (h *BookingHandler) ListMyReservations(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())
	page := parsePage(r)

	list, total, err := h.Service.ListMine(r.Context(), principal.ID, r.URL.Query().Get("status"), page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: toReservationResponses(list), Pagination: entities.NewPagination(page, total)})
}

func (h *BookingHandler) ListParkingReservations(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())
	parkingID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	page := parsePage(r)

	list, total, err := h.Service.ListForParking(r.Context(), principal, parkingID, r.URL.Query().Get("status"), page)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Data: toReservationResponses(list), Pagination: entities.NewPagination(page, total)})
}

func (h *BookingHandler) CancelReservation(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	events, err := h.Service.Cancel(r.Context(), principal, id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.Notifier.Dispatch(events)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Reservation cancelled"})
}

func (h *BookingHandler) ConfirmReservation(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	events, err := h.Service.Confirm(r.Context(), principal, id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.Notifier.Dispatch(events)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Reservation confirmed"})
}

func (h *BookingHandler) CompleteReservation(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.Service.Complete(r.Context(), principal, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Reservation completed"})
}
