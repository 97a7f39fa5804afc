package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"parkly/internal/db"
	"parkly/internal/entities"
	apperrors "parkly/internal/errors"
)

// BookingStore is the persistence surface the booking manager needs.
type BookingStore interface {
	ReserveInLot(ctx context.Context, parkingID, userID int, start, end time.Time, plate string, hours int) (*db.ReservationDetail, error)
	GetParking(ctx context.Context, id int) (*db.Parking, error)
	GetReservationDetail(ctx context.Context, id int) (*db.ReservationDetail, error)
	ListByUser(ctx context.Context, userID int, status string, page entities.Page) ([]db.ReservationDetail, int, error)
	ListByParking(ctx context.Context, parkingID int, status string, page entities.Page) ([]db.ReservationDetail, int, error)
	CancelReservation(ctx context.Context, id int) error
	ConfirmReservation(ctx context.Context, id, spaceID int) error
	CompleteReservation(ctx context.Context, id, spaceID int) error
}

type BookingService struct {
	store BookingStore
}

func NewBookingService(store BookingStore) *BookingService {
	return &BookingService{store: store}
}

// ceilHours rounds a reservation window up to whole billable hours.
func ceilHours(start, end time.Time) int {
	d := end.Sub(start)
	hours := int(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	if hours < 1 {
		hours = 1
	}
	return hours
}

// Reserve creates a pending reservation on the first conflict-free space of
// the lot. Returns the reservation and the post-commit events to dispatch.
func (s *BookingService) Reserve(ctx context.Context, userID, parkingID int, start, end time.Time, plate string) (*db.ReservationDetail, []entities.Event, error) {
	if !end.After(start) {
		return nil, nil, apperrors.Validation("end time must be after start time")
	}
	if start.Before(time.Now().Add(-time.Minute)) {
		return nil, nil, apperrors.Validation("start time cannot be in the past")
	}

	res, err := s.store.ReserveInLot(ctx, parkingID, userID, start, end, plate, ceilHours(start, end))
	if err != nil {
		return nil, nil, err
	}

	events := []entities.Event{{
		Type:        entities.EventNewReservation,
		RecipientID: res.OwnerID,
		Payload: map[string]string{
			"reservation_id": strconv.Itoa(res.ID),
			"parking_name":   res.ParkingName,
			"client_id":      strconv.Itoa(userID),
			"total_amount":   fmt.Sprintf("%.2f", res.TotalAmount),
		},
	}}
	return res, events, nil
}

// Get returns a reservation visible to the requester, the lot owner or an
// admin.
func (s *BookingService) Get(ctx context.Context, principal entities.Principal, id int) (*db.ReservationDetail, error) {
	res, err := s.store.GetReservationDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.UserID != principal.ID && res.OwnerID != principal.ID && !principal.IsAdmin() {
		return nil, apperrors.Forbidden("not allowed to view this reservation")
	}
	return res, nil
}

func (s *BookingService) ListMine(ctx context.Context, userID int, status string, page entities.Page) ([]db.ReservationDetail, int, error) {
	return s.store.ListByUser(ctx, userID, status, page)
}

// ListForParking lists a lot's reservations for its owner or an admin.
func (s *BookingService) ListForParking(ctx context.Context, principal entities.Principal, parkingID int, status string, page entities.Page) ([]db.ReservationDetail, int, error) {
	parking, err := s.store.GetParking(ctx, parkingID)
	if err != nil {
		return nil, 0, err
	}
	if parking.OwnerID != principal.ID && !principal.IsAdmin() {
		return nil, 0, apperrors.Forbidden("not allowed to view this parking's reservations")
	}
	return s.store.ListByParking(ctx, parkingID, status, page)
}

// Cancel is the requester's pre-start cancellation. No payment can exist for
// the reservation in a cancellable state, so the ledger is never touched.
func (s *BookingService) Cancel(ctx context.Context, principal entities.Principal, id int) ([]entities.Event, error) {
	res, err := s.store.GetReservationDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.UserID != principal.ID && !principal.IsAdmin() {
		return nil, apperrors.Forbidden("not allowed to cancel this reservation")
	}
	if res.Status != db.ReservationPending && res.Status != db.ReservationActive {
		return nil, apperrors.Conflict("reservation can no longer be cancelled")
	}
	if !time.Now().Before(res.StartTime) {
		return nil, apperrors.Conflict("reservation has already started")
	}

	if err := s.store.CancelReservation(ctx, id); err != nil {
		return nil, err
	}

	events := []entities.Event{{
		Type:        entities.EventReservationCancelled,
		RecipientID: res.OwnerID,
		Payload: map[string]string{
			"reservation_id": strconv.Itoa(res.ID),
			"parking_name":   res.ParkingName,
		},
	}}
	return events, nil
}

// Confirm is the owner's manual pending→active transition, independent of
// payment.
func (s *BookingService) Confirm(ctx context.Context, principal entities.Principal, id int) ([]entities.Event, error) {
	res, err := s.store.GetReservationDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.OwnerID != principal.ID && !principal.IsAdmin() {
		return nil, apperrors.Forbidden("not allowed to confirm this reservation")
	}
	if res.Status != db.ReservationPending {
		return nil, apperrors.Conflict("reservation can no longer be confirmed")
	}

	if err := s.store.ConfirmReservation(ctx, id, res.SpaceID); err != nil {
		return nil, err
	}

	events := []entities.Event{{
		Type:        entities.EventReservationConfirmed,
		RecipientID: res.UserID,
		Payload: map[string]string{
			"reservation_id": strconv.Itoa(res.ID),
			"parking_name":   res.ParkingName,
		},
	}}
	return events, nil
}

// Complete closes the stay and releases the space.
func (s *BookingService) Complete(ctx context.Context, principal entities.Principal, id int) error {
	res, err := s.store.GetReservationDetail(ctx, id)
	if err != nil {
		return err
	}
	if res.OwnerID != principal.ID && !principal.IsAdmin() {
		return apperrors.Forbidden("not allowed to complete this reservation")
	}
	if res.Status != db.ReservationActive && res.Status != db.ReservationPaid {
		return apperrors.Conflict("reservation cannot be completed")
	}
	return s.store.CompleteReservation(ctx, id, res.SpaceID)
}
