package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/service"
)

// stubService answers from a single reservation and records calls.
type stubService struct {
	ReservationService // unimplemented methods panic

	res       model.Reservation
	err       error
	verified  bool
	gotInput  service.CreateReservationInput
	gotPatch  service.ReservationPatch
	gotUser   uint64
	gotRest   uint64
	gotWindow [2]time.Time
	free      int
}

func (s *stubService) result() (*model.Reservation, error) {
	if s.err != nil {
		return nil, s.err
	}
	r := s.res
	return &r, nil
}

func (s *stubService) CreateReservation(_ context.Context, in service.CreateReservationInput) (*model.Reservation, error) {
	s.gotInput = in
	return s.result()
}
func (s *stubService) GetReservationByToken(context.Context, string) (*model.Reservation, error) {
	return s.result()
}
func (s *stubService) CheckInReservationByToken(context.Context, string) (*model.Reservation, error) {
	return s.result()
}
func (s *stubService) ConfirmReservation(context.Context, uint64) (*model.Reservation, error) {
	return s.result()
}
func (s *stubService) CancelReservation(context.Context, uint64) (*model.Reservation, error) {
	return s.result()
}
func (s *stubService) CancelOwnReservation(_ context.Context, _ uint64, uid uint64) (*model.Reservation, error) {
	s.gotUser = uid
	return s.result()
}
func (s *stubService) VerifyReservation(context.Context, string) (*model.Reservation, bool, error) {
	r, err := s.result()
	return r, s.verified, err
}
func (s *stubService) UpdateReservation(_ context.Context, _ uint64, p service.ReservationPatch) (*model.Reservation, error) {
	s.gotPatch = p
	return s.result()
}
func (s *stubService) DeleteReservation(context.Context, uint64) error { return s.err }
func (s *stubService) ListByDateRange(_ context.Context, start, end time.Time) ([]model.Reservation, error) {
	s.gotWindow = [2]time.Time{start, end}
	return []model.Reservation{s.res}, s.err
}
func (s *stubService) ListByRestaurant(_ context.Context, id uint64) ([]model.Reservation, error) {
	s.gotRest = id
	early := s.res
	early.ReservationTime = dinner.Add(-3 * time.Hour)
	return []model.Reservation{s.res, early}, s.err
}
func (s *stubService) ListReservations(context.Context) ([]model.Reservation, error) {
	return []model.Reservation{s.res, s.res}, s.err
}
func (s *stubService) AvailableCapacity(_ context.Context, _ uint64, start, end time.Time) (int, error) {
	s.gotWindow = [2]time.Time{start, end}
	return s.free, s.err
}

var dinner = time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC)

func serve(h echo.HandlerFunc, method, route, path, body string, setup func(echo.Context)) *httptest.ResponseRecorder {
	e := echo.New()
	e.Add(method, route, func(c echo.Context) error {
		if setup != nil {
			setup(c)
		}
		return h(c)
	})
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func asUser(id uint64, role string) func(echo.Context) {
	return func(c echo.Context) {
		c.Set("user_id", id)
		c.Set("role", role)
	}
}

func TestCreateAttachesAuthenticatedUser(t *testing.T) {
	stub := &stubService{res: model.Reservation{ID: 1, Status: model.StatusPending, Token: "tok"}}
	h := NewReservationHandler(stub)
	body := `{"restaurant_id":3,"customer_name":"Ana","customer_email":"ana@x.io","customer_phone":"1","party_size":4,"reservation_time":"2026-06-01T19:00:00Z","meal_type":"dinner"}`

	rec := serve(h.Create, http.MethodPost, "/v1/reservations", "/v1/reservations", body, asUser(7, model.RoleCustomer))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token":"tok"`)
	require.NotNil(t, stub.gotInput.UserID)
	assert.Equal(t, uint64(7), *stub.gotInput.UserID)
	assert.Equal(t, dinner, stub.gotInput.ReservationTime)
	assert.Equal(t, uint64(3), stub.gotInput.RestaurantID)

	rec = serve(h.Create, http.MethodPost, "/v1/reservations", "/v1/reservations", body, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, stub.gotInput.UserID)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{service.ErrRestaurantNotFound, http.StatusNotFound},
		{service.ErrReservationNotFound, http.StatusNotFound},
		{&service.ValidationError{Field: "party_size", Reason: "must be positive"}, http.StatusBadRequest},
		{fmt.Errorf("%w: 4 seats requested, 2 available", service.ErrInsufficientCapacity), http.StatusConflict},
		{&model.TransitionError{From: model.StatusCompleted, Event: model.EventCancel}, http.StatusConflict},
		{service.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h := NewReservationHandler(&stubService{err: tc.err})
		rec := serve(h.Cancel, http.MethodPut, "/r/:id/cancel", "/r/5/cancel", "", nil)
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
	}
}

func TestInvalidIDIsBadRequest(t *testing.T) {
	h := NewReservationHandler(&stubService{})
	rec := serve(h.Confirm, http.MethodPut, "/r/:id/confirm", "/r/abc/confirm", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyByToken(t *testing.T) {
	stub := &stubService{res: model.Reservation{ID: 1, Status: model.StatusCompleted}, verified: true}
	h := NewReservationHandler(stub)
	rec := serve(h.VerifyByToken, http.MethodPut, "/t/:token/verify", "/t/abc/verify", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	stub.verified = false
	stub.res.Status = model.StatusPending
	rec = serve(h.VerifyByToken, http.MethodPut, "/t/:token/verify", "/t/abc/verify", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Error       string            `json:"error"`
		Reservation model.Reservation `json:"reservation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, model.StatusPending, body.Reservation.Status)
}

func TestCancelMineRequiresUser(t *testing.T) {
	stub := &stubService{res: model.Reservation{ID: 5, Status: model.StatusCancelled}}
	h := NewReservationHandler(stub)

	rec := serve(h.CancelMine, http.MethodPut, "/me/:id/cancel", "/me/5/cancel", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h.CancelMine, http.MethodPut, "/me/:id/cancel", "/me/5/cancel", "", asUser(9, model.RoleCustomer))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(9), stub.gotUser)
}

func TestUpdatePassesPatch(t *testing.T) {
	stub := &stubService{res: model.Reservation{ID: 5}}
	h := NewReservationHandler(stub)
	rec := serve(h.Update, http.MethodPatch, "/r/:id", "/r/5", `{"party_size":6,"meal_type":"lunch"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, stub.gotPatch.PartySize)
	assert.Equal(t, 6, *stub.gotPatch.PartySize)
	assert.Equal(t, "lunch", *stub.gotPatch.MealType)
	assert.Nil(t, stub.gotPatch.CustomerName)
}

func TestDelete(t *testing.T) {
	h := NewReservationHandler(&stubService{})
	rec := serve(h.Delete, http.MethodDelete, "/r/:id", "/r/5", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestListByDateRange(t *testing.T) {
	stub := &stubService{res: model.Reservation{ID: 1}}
	h := NewReservationHandler(stub)

	rec := serve(h.List, http.MethodGet, "/r", "/r?start=2026-06-01T18:00:00Z&end=2026-06-01T20:00:00Z", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, dinner.Add(-time.Hour), stub.gotWindow[0])
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = serve(h.List, http.MethodGet, "/r", "/r?start=2026-06-01T18:00:00Z", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h.List, http.MethodGet, "/r", "/r", "", nil)
	assert.Contains(t, rec.Body.String(), `"total":2`)
}

func TestListByRestaurantQuery(t *testing.T) {
	stub := &stubService{res: model.Reservation{ID: 1, ReservationTime: dinner}}
	h := NewReservationHandler(stub)

	rec := serve(h.List, http.MethodGet, "/r", "/r?restaurant_id=3", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(3), stub.gotRest)
	assert.Contains(t, rec.Body.String(), `"total":2`)

	rec = serve(h.List, http.MethodGet, "/r", "/r?restaurant_id=3&start=2026-06-01T18:00:00Z&end=2026-06-01T20:00:00Z", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":1`)

	rec = serve(h.List, http.MethodGet, "/r", "/r?restaurant_id=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailability(t *testing.T) {
	stub := &stubService{free: 12}
	h := NewReservationHandler(stub)

	rec := serve(h.Availability, http.MethodGet, "/x/:id/availability", "/x/3/availability?at=2026-06-01T19:00:00Z", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":12`)
	assert.Equal(t, [2]time.Time{dinner.Add(-time.Hour), dinner.Add(time.Hour)}, stub.gotWindow)

	rec = serve(h.Availability, http.MethodGet, "/x/:id/availability", "/x/3/availability", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = serve(h.Availability, http.MethodGet, "/x/:id/availability", "/x/3/availability?at=tomorrow", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
