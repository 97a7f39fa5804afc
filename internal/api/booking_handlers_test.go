package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkly/internal/auth"
	"parkly/internal/db"
	"parkly/internal/entities"
	apperrors "parkly/internal/errors"
	"parkly/internal/service"
)

const testSecret = "test-secret"

// fakeBookingStore implements service.BookingStore for handler tests.
type fakeBookingStore struct {
	detail     *db.ReservationDetail
	reserveErr error
}

func (f *fakeBookingStore) ReserveInLot(ctx context.Context, parkingID, userID int, start, end time.Time, plate string, hours int) (*db.ReservationDetail, error) {
	if f.reserveErr != nil {
		return nil, f.reserveErr
	}
	d := *f.detail
	d.UserID = userID
	d.StartTime = start
	d.EndTime = end
	return &d, nil
}

func (f *fakeBookingStore) GetParking(ctx context.Context, id int) (*db.Parking, error) {
	return nil, apperrors.NotFound("parking not found")
}

func (f *fakeBookingStore) GetReservationDetail(ctx context.Context, id int) (*db.ReservationDetail, error) {
	if f.detail == nil {
		return nil, apperrors.NotFound("reservation not found")
	}
	return f.detail, nil
}

func (f *fakeBookingStore) ListByUser(ctx context.Context, userID int, status string, page entities.Page) ([]db.ReservationDetail, int, error) {
	return []db.ReservationDetail{*f.detail}, 1, nil
}

func (f *fakeBookingStore) ListByParking(ctx context.Context, parkingID int, status string, page entities.Page) ([]db.ReservationDetail, int, error) {
	return nil, 0, nil
}

func (f *fakeBookingStore) CancelReservation(ctx context.Context, id int) error  { return nil }
func (f *fakeBookingStore) ConfirmReservation(ctx context.Context, id, spaceID int) error {
	return nil
}
func (f *fakeBookingStore) CompleteReservation(ctx context.Context, id, spaceID int) error {
	return nil
}

type fakeDispatcher struct {
	events []entities.Event
}

func (f *fakeDispatcher) Dispatch(events []entities.Event) {
	f.events = append(f.events, events...)
}

func testDetail() *db.ReservationDetail {
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
	d.StartTime = time.Now().Add(time.Hour)
	d.EndTime = time.Now().Add(3 * time.Hour)
	d.TotalAmount = 20.00
	d.Status = db.ReservationPending
	return d
}

func newBookingRouter(store *fakeBookingStore, dispatcher *fakeDispatcher) *mux.Router {
	handler := NewBookingHandler(service.NewBookingService(store), dispatcher)
	r := mux.NewRouter()
	authed := r.PathPrefix("/api").Subrouter()
	authed.Use(auth.Middleware(testSecret))
	authed.HandleFunc("/reservations", handler.CreateReservation).Methods("POST")
	authed.HandleFunc("/reservations", handler.ListMyReservations).Methods("GET")
	authed.HandleFunc("/reservations/{id}", handler.GetReservation).Methods("GET")
	return r
}

func clientToken(t *testing.T, userID int) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": float64(userID),
		"role":    entities.RoleClient,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	s, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func doJSON(t *testing.T, router *mux.Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateReservationEndpoint(t *testing.T) {
	store := &fakeBookingStore{detail: testDetail()}
	dispatcher := &fakeDispatcher{}
	router := newBookingRouter(store, dispatcher)

	start := time.Now().Add(time.Hour).UTC()
	rec := doJSON(t, router, "POST", "/api/reservations", clientToken(t, 9), createReservationRequest{
		ParkingID:    3,
		StartTime:    start,
		EndTime:      start.Add(2 * time.Hour),
		VehiclePlate: "AB-123-CD",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, dispatcher.events, 1)
	assert.Equal(t, entities.EventNewReservation, dispatcher.events[0].Type)
}

func TestCreateReservationConflictMapsTo409(t *testing.T) {
	store := &fakeBookingStore{
		detail:     testDetail(),
		reserveErr: apperrors.Conflict("no space available for the requested interval"),
	}
	router := newBookingRouter(store, &fakeDispatcher{})

	start := time.Now().Add(time.Hour).UTC()
	rec := doJSON(t, router, "POST", "/api/reservations", clientToken(t, 9), createReservationRequest{
		ParkingID: 3,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateReservationInvalidIntervalMapsTo422(t *testing.T) {
	router := newBookingRouter(&fakeBookingStore{detail: testDetail()}, &fakeDispatcher{})

	start := time.Now().Add(time.Hour).UTC()
	rec := doJSON(t, router, "POST", "/api/reservations", clientToken(t, 9), createReservationRequest{
		ParkingID: 3,
		StartTime: start,
		EndTime:   start.Add(-time.Hour),
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestReservationEndpointsRequireAuth(t *testing.T) {
	router := newBookingRouter(&fakeBookingStore{detail: testDetail()}, &fakeDispatcher{})

	req := httptest.NewRequest("GET", "/api/reservations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetReservationHidesOthers(t *testing.T) {
	router := newBookingRouter(&fakeBookingStore{detail: testDetail()}, &fakeDispatcher{})

	rec := doJSON(t, router, "GET", fmt.Sprintf("/api/reservations/%d", 42), clientToken(t, 8), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, router, "GET", fmt.Sprintf("/api/reservations/%d", 42), clientToken(t, 9), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
