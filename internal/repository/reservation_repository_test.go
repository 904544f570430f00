package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/table-reservation/internal/model"
)

var reservationCols = []string{
	"id", "restaurant_id", "user_id", "customer_name", "customer_email", "customer_phone",
	"party_size", "reservation_time", "meal_type", "special_requests", "is_group_reservation",
	"menus_required", "status", "token", "created_at", "updated_at",
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db), mock
}

func TestGetReservationScansNullableColumns(t *testing.T) {
	s, mock := newMockStore(t)
	at := time.Date(2026, 6, 1, 19, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE id = ?")).
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows(reservationCols).AddRow(
			7, 3, nil, "Ana", "ana@example.com", "555", 4, at, "dinner", nil, false, 4,
			"CONFIRMED", "tok-7", at, at))

	r, err := s.GetReservation(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), r.RestaurantID)
	assert.Nil(t, r.UserID)
	assert.Nil(t, r.SpecialRequests)
	assert.Equal(t, model.StatusConfirmed, r.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReservationByTokenNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE token = ?")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetReservationByToken(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestFindReservationsInWindowBuildsFilter(t *testing.T) {
	s, mock := newMockStore(t)
	start := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(
		"WHERE restaurant_id = ? AND reservation_time >= ? AND reservation_time <= ? AND status IN (?,?) ORDER BY reservation_time ASC, id ASC")).
		WithArgs(uint64(3), start, end, "CONFIRMED", "CHECKED_IN").
		WillReturnRows(sqlmock.NewRows(reservationCols).
			AddRow(1, 3, 9, "A", "a@x", "1", 2, start, "lunch", "window seat", false, 2, "CONFIRMED", "t1", start, start).
			AddRow(2, 3, nil, "B", "b@x", "2", 8, end, "lunch", nil, true, 8, "CHECKED_IN", "t2", start, start))

	out, err := s.FindReservationsInWindow(context.Background(), 3, start, end, model.ActiveStatuses)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.NotNil(t, out[0].UserID)
	assert.Equal(t, uint64(9), *out[0].UserID)
	assert.Equal(t, "window seat", *out[0].SpecialRequests)
	assert.True(t, out[1].IsGroupReservation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListReservationsWithoutFilter(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE 1=1 ORDER BY")).
		WillReturnRows(sqlmock.NewRows(reservationCols))

	out, err := s.ListReservations(context.Background(), ReservationFilter{})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestInsertReservationSetsID(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	r := &model.Reservation{
		RestaurantID: 3, CustomerName: "Ana", CustomerEmail: "ana@x", CustomerPhone: "1",
		PartySize: 4, ReservationTime: now, MealType: "dinner", MenusRequired: 4,
		Status: model.StatusPending, Token: "tok", CreatedAt: now, UpdatedAt: now,
	}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WithArgs(uint64(3), nil, "Ana", "ana@x", "1", 4, now, "dinner", sqlmock.AnyArg(), false, 4, "PENDING", "tok", now, now).
		WillReturnResult(sqlmock.NewResult(42, 1))

	require.NoError(t, s.InsertReservation(context.Background(), r))
	assert.Equal(t, uint64(42), r.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReservationDuplicateToken(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'reservations.uq_reservations_token'"})

	err := s.InsertReservation(context.Background(), &model.Reservation{Status: model.StatusPending})
	assert.ErrorIs(t, err, ErrDuplicateToken)
}

func TestUpdateReservationMissingRow(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE id = ?")).
		WithArgs(uint64(5)).
		WillReturnError(sql.ErrNoRows)

	err := s.UpdateReservation(context.Background(), &model.Reservation{ID: 5, Status: model.StatusConfirmed})
	assert.ErrorIs(t, err, ErrReservationNotFound)
}

func TestDeleteReservation(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reservations WHERE id = ?")).
		WithArgs(uint64(5)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reservations WHERE id = ?")).
		WithArgs(uint64(6)).WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, s.DeleteReservation(context.Background(), 5))
	assert.ErrorIs(t, s.DeleteReservation(context.Background(), 6), ErrReservationNotFound)
}

func TestWithRestaurantLockCommits(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM restaurants WHERE id = ? FOR UPDATE")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reservations")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.WithRestaurantLock(context.Background(), 3, func(q Queries) error {
		return q.DeleteReservation(context.Background(), 1)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithRestaurantLockRollsBack(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("boom")
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectRollback()

	err := s.WithRestaurantLock(context.Background(), 3, func(Queries) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithRestaurantLockUnknownRestaurant(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	called := false
	err := s.WithRestaurantLock(context.Background(), 99, func(Queries) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrRestaurantNotFound)
	assert.False(t, called)
}

func TestGetRestaurant(t *testing.T) {
	s, mock := newMockStore(t)
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM restaurants WHERE id = ?")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "description", "capacity", "location_id", "created_at"}).
			AddRow(3, "Casa", nil, 50, 12, created))
	mock.ExpectQuery(regexp.QuoteMeta("FROM restaurants WHERE id = ?")).
		WithArgs(uint64(4)).
		WillReturnError(sql.ErrNoRows)

	r, err := s.GetRestaurant(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 50, r.Capacity)
	require.NotNil(t, r.LocationID)
	assert.Equal(t, uint64(12), *r.LocationID)

	_, err = s.GetRestaurant(context.Background(), 4)
	assert.ErrorIs(t, err, ErrRestaurantNotFound)
}
