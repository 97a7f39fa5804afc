package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkly/internal/db"
	"parkly/internal/entities"
	apperrors "parkly/internal/errors"
)

// fakeBookingStore is an in-memory BookingStore for testing.
type fakeBookingStore struct {
	parking *db.Parking
	detail  *db.ReservationDetail

	reserveErr   error
	reservedArgs struct {
		parkingID int
		userID    int
		hours     int
	}

	cancelled []int
	confirmed []int
	completed []int
}

func (f *fakeBookingStore) ReserveInLot(ctx context.Context, parkingID, userID int, start, end time.Time, plate string, hours int) (*db.ReservationDetail, error) {
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}
	f.reservedArgs.parkingID = parkingID
	f.reservedArgs.userID = userID
	f.reservedArgs.hours = hours
	d := *f.detail
	d.UserID = userID
	d.StartTime = start
	d.EndTime = end
	d.TotalAmount = float64(hours) * d.HourlyRate
	return &d, nil
}

func (f *fakeBookingStore) GetParking(ctx context.Context, id int) (*db.Parking, error) {
	if f.parking == nil {
		return nil, apperrors.NotFound("parking not found")
	}
	return f.parking, nil
}

func (f *fakeBookingStore) GetReservationDetail(ctx context.Context, id int) (*db.ReservationDetail, error) {
	if f.detail == nil {
		return nil, apperrors.NotFound("reservation not found")
	}
	return f.detail, nil
}

func (f *fakeBookingStore) ListByUser(ctx context.Context, userID int, status string, page entities.Page) ([]db.ReservationDetail, int, error) {
	return nil, 0, nil
}

func (f *fakeBookingStore) ListByParking(ctx context.Context, parkingID int, status string, page entities.Page) ([]db.ReservationDetail, int, error) {
	return nil, 0, nil
}

func (f *fakeBookingStore) CancelReservation(ctx context.Context, id int) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeBookingStore) ConfirmReservation(ctx context.Context, id, spaceID int) error {
	f.confirmed = append(f.confirmed, id)
	return nil
}

func (f *fakeBookingStore) CompleteReservation(ctx context.Context, id, spaceID int) error {
	f.completed = append(f.completed, id)
	return nil
}

func bookingDetail(status string, start time.Time) *db.ReservationDetail {
	d := &db.ReservationDetail{
		SpaceNumber: "A-12",
		ParkingID:   3,
		ParkingName: "Central Lot",
		OwnerID:     7,
		HourlyRate:  10,
	}
	d.ID = 42
	d.SpaceID = 5
	d.UserID = 9
	d.StartTime = start
	d.EndTime = start.Add(2 * time.Hour)
	d.TotalAmount = 20.00
	d.Status = status
	return d
}

func TestCeilHours(t *testing.T) {
	base := time.Now()
	tests := []struct {
		d     time.Duration
		hours int
	}{
		{30 * time.Minute, 1},
		{time.Hour, 1},
		{61 * time.Minute, 2},
		{2 * time.Hour, 2},
		{2*time.Hour + time.Second, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.hours, ceilHours(base, base.Add(tt.d)), "duration %s", tt.d)
	}
}

func TestReserve(t *testing.T) {
	store := &fakeBookingStore{detail: bookingDetail(db.ReservationPending, time.Now().Add(time.Hour))}
	svc := NewBookingService(store)

	start := time.Now().Add(time.Hour)
	res, events, err := svc.Reserve(context.Background(), 9, 3, start, start.Add(90*time.Minute), "AB-123-CD")
	require.NoError(t, err)

	assert.Equal(t, 2, store.reservedArgs.hours, "partial hours round up")
	assert.InDelta(t, 20.00, res.TotalAmount, 0.0001)

	require.Len(t, events, 1)
	assert.Equal(t, entities.EventNewReservation, events[0].Type)
	assert.Equal(t, 7, events[0].RecipientID, "the lot owner is notified")
	assert.Equal(t, "42", events[0].Payload["reservation_id"])
}

func TestReserveRejectsInvalidInterval(t *testing.T) {
	svc := NewBookingService(&fakeBookingStore{})
	start := time.Now().Add(time.Hour)

	_, _, err := svc.Reserve(context.Background(), 9, 3, start, start, "AB-123-CD")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	_, _, err = svc.Reserve(context.Background(), 9, 3, start, start.Add(-time.Hour), "AB-123-CD")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestReserveRejectsPastStart(t *testing.T) {
	svc := NewBookingService(&fakeBookingStore{})
	start := time.Now().Add(-time.Hour)

	_, _, err := svc.Reserve(context.Background(), 9, 3, start, start.Add(2*time.Hour), "AB-123-CD")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestReservePropagatesConflict(t *testing.T) {
	store := &fakeBookingStore{reserveErr: apperrors.Conflict("no space available for the requested interval")}
	svc := NewBookingService(store)
	start := time.Now().Add(time.Hour)

	_, _, err := svc.Reserve(context.Background(), 9, 3, start, start.Add(time.Hour), "AB-123-CD")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
}

func TestGetVisibility(t *testing.T) {
	store := &fakeBookingStore{detail: bookingDetail(db.ReservationPending, time.Now().Add(time.Hour))}
	svc := NewBookingService(store)
	ctx := context.Background()

	_, err := svc.Get(ctx, entities.Principal{ID: 9, Role: entities.RoleClient}, 42)
	assert.NoError(t, err, "the requester can see it")

	_, err = svc.Get(ctx, entities.Principal{ID: 7, Role: entities.RoleOwner}, 42)
	assert.NoError(t, err, "the lot owner can see it")

	_, err = svc.Get(ctx, entities.Principal{ID: 1, Role: entities.RoleAdmin}, 42)
	assert.NoError(t, err, "admins can see it")

	_, err = svc.Get(ctx, entities.Principal{ID: 8, Role: entities.RoleClient}, 42)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))
}

func TestCancel(t *testing.T) {
	store := &fakeBookingStore{detail: bookingDetail(db.ReservationPending, time.Now().Add(time.Hour))}
	svc := NewBookingService(store)

	events, err := svc.Cancel(context.Background(), entities.Principal{ID: 9, Role: entities.RoleClient}, 42)
	require.NoError(t, err)
	assert.Equal(t, []int{42}, store.cancelled)

	require.Len(t, events, 1)
	assert.Equal(t, entities.EventReservationCancelled, events[0].Type)
	assert.Equal(t, 7, events[0].RecipientID)
}

func TestCancelForbiddenForOtherClient(t *testing.T) {
	store := &fakeBookingStore{detail: bookingDetail(db.ReservationPending, time.Now().Add(time.Hour))}
	svc := NewBookingService(store)

	_, err := svc.Cancel(context.Background(), entities.Principal{ID: 8, Role: entities.RoleClient}, 42)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))
	assert.Empty(t, store.cancelled)
}

func TestCancelRejectsTerminalStates(t *testing.T) {
	for _, status := range []string{db.ReservationPaid, db.ReservationCompleted, db.ReservationCancelled, db.ReservationExpired} {
		store := &fakeBookingStore{detail: bookingDetail(status, time.Now().Add(time.Hour))}
		svc := NewBookingService(store)

		_, err := svc.Cancel(context.Background(), entities.Principal{ID: 9, Role: entities.RoleClient}, 42)
		require.Error(t, err, "status %s", status)
		assert.True(t, apperrors.Is(err, apperrors.KindConflict), "status %s", status)
	}
}

func TestCancelRejectsStartedReservation(t *testing.T) {
	store := &fakeBookingStore{detail: bookingDetail(db.ReservationActive, time.Now().Add(-time.Minute))}
	svc := NewBookingService(store)

	_, err := svc.Cancel(context.Background(), entities.Principal{ID: 9, Role: entities.RoleClient}, 42)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
}

func TestConfirm(t *testing.T) {
	store := &fakeBookingStore{detail: bookingDetail(db.ReservationPending, time.Now().Add(time.Hour))}
	svc := NewBookingService(store)

	events, err := svc.Confirm(context.Background(), entities.Principal{ID: 7, Role: entities.RoleOwner}, 42)
	require.NoError(t, err)
	assert.Equal(t, []int{42}, store.confirmed)

	require.Len(t, events, 1)
	assert.Equal(t, entities.EventReservationConfirmed, events[0].Type)
	assert.Equal(t, 9, events[0].RecipientID, "the client is notified")
}

func TestConfirmOnlyPending(t *testing.T) {
	store := &fakeBookingStore{detail: bookingDetail(db.ReservationPaid, time.Now().Add(time.Hour))}
	svc := NewBookingService(store)

	_, err := svc.Confirm(context.Background(), entities.Principal{ID: 7, Role: entities.RoleOwner}, 42)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindConflict))
}

func TestCompleteOnlyByOwnerOrAdmin(t *testing.T) {
	store := &fakeBookingStore{detail: bookingDetail(db.ReservationPaid, time.Now().Add(-3*time.Hour))}
	svc := NewBookingService(store)

	err := svc.Complete(context.Background(), entities.Principal{ID: 9, Role: entities.RoleClient}, 42)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	err = svc.Complete(context.Background(), entities.Principal{ID: 7, Role: entities.RoleOwner}, 42)
	require.NoError(t, err)
	assert.Equal(t, []int{42}, store.completed)
}

func TestListForParkingChecksOwnership(t *testing.T) {
	store := &fakeBookingStore{parking: &db.Parking{ID: 3, OwnerID: 7, Name: "Central Lot"}}
	svc := NewBookingService(store)

	_, _, err := svc.ListForParking(context.Background(), entities.Principal{ID: 8, Role: entities.RoleOwner}, 3, "", entities.NewPage(1, 10))
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	_, _, err = svc.ListForParking(context.Background(), entities.Principal{ID: 7, Role: entities.RoleOwner}, 3, "", entities.NewPage(1, 10))
	assert.NoError(t, err)
}
