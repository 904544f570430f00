package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

const reservationColumns = `id, restaurant_id, user_id, customer_name, customer_email, customer_phone,
	party_size, reservation_time, meal_type, special_requests, is_group_reservation,
	menus_required, status, token, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (model.Reservation, error) {
	var (
		r        model.Reservation
		userID   sql.NullInt64
		requests sql.NullString
		status   string
	)
	err := row.Scan(&r.ID, &r.RestaurantID, &userID, &r.CustomerName, &r.CustomerEmail, &r.CustomerPhone,
		&r.PartySize, &r.ReservationTime, &r.MealType, &requests, &r.IsGroupReservation,
		&r.MenusRequired, &status, &r.Token, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}
	if userID.Valid {
		u := uint64(userID.Int64)
		r.UserID = &u
	}
	if requests.Valid {
		s := requests.String
		r.SpecialRequests = &s
	}
	r.Status = model.Status(status)
	return r, nil
}

func (s *Store) getReservationWhere(ctx context.Context, cond string, arg any) (*model.Reservation, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE `+cond, arg)
	r, err := scanReservation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) GetReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	return s.getReservationWhere(ctx, "id = ?", id)
}

func (s *Store) GetReservationByToken(ctx context.Context, token string) (*model.Reservation, error) {
	return s.getReservationWhere(ctx, "token = ?", token)
}

// FindReservationsInWindow returns the restaurant's reservations whose time
// lies in [start, end] and whose status is one of statuses.
func (s *Store) FindReservationsInWindow(ctx context.Context, restaurantID uint64, start, end time.Time, statuses []model.Status) ([]model.Reservation, error) {
	return s.ListReservations(ctx, ReservationFilter{
		RestaurantID: restaurantID,
		From:         &start,
		To:           &end,
		Statuses:     statuses,
	})
}

// ListReservations returns reservations matching f ordered by time then id.
func (s *Store) ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error) {
	where := []string{}
	args := []any{}

	if f.RestaurantID != 0 {
		where = append(where, "restaurant_id = ?")
		args = append(args, f.RestaurantID)
	}
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.From != nil {
		where = append(where, "reservation_time >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where = append(where, "reservation_time <= ?")
		args = append(args, f.To.UTC())
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			marks[i] = "?"
			args = append(args, string(st))
		}
		where = append(where, "status IN ("+strings.Join(marks, ",")+")")
	}

	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE `+cond+` ORDER BY reservation_time ASC, id ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertReservation stores a new reservation and sets its ID.
func (s *Store) InsertReservation(ctx context.Context, r *model.Reservation) error {
	const q = `INSERT INTO reservations (restaurant_id, user_id, customer_name, customer_email, customer_phone,
		party_size, reservation_time, meal_type, special_requests, is_group_reservation,
		menus_required, status, token, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
	res, err := s.q.ExecContext(ctx, q,
		r.RestaurantID, nullableID(r.UserID), r.CustomerName, r.CustomerEmail, r.CustomerPhone,
		r.PartySize, r.ReservationTime.UTC(), r.MealType, r.SpecialRequests, r.IsGroupReservation,
		r.MenusRequired, string(r.Status), r.Token, r.CreatedAt.UTC(), r.UpdatedAt.UTC())
	if err != nil {
		if isDuplicateOn(err, "token") {
			return ErrDuplicateToken
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	r.ID = uint64(id)
	return nil
}

// UpdateReservation writes every mutable column of r.  The token and
// creation time never change.
func (s *Store) UpdateReservation(ctx context.Context, r *model.Reservation) error {
	const q = `UPDATE reservations SET user_id = ?, customer_name = ?, customer_email = ?, customer_phone = ?,
		party_size = ?, reservation_time = ?, meal_type = ?, special_requests = ?, is_group_reservation = ?,
		menus_required = ?, status = ?, updated_at = ?
		WHERE id = ?`
	res, err := s.q.ExecContext(ctx, q,
		nullableID(r.UserID), r.CustomerName, r.CustomerEmail, r.CustomerPhone,
		r.PartySize, r.ReservationTime.UTC(), r.MealType, r.SpecialRequests, r.IsGroupReservation,
		r.MenusRequired, string(r.Status), r.UpdatedAt.UTC(), r.ID)
	if err != nil {
		return fmt.Errorf("update reservation %d: %w", r.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 for unchanged rows too, so confirm the row exists.
		if _, err := s.GetReservation(ctx, r.ID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) DeleteReservation(ctx context.Context, id uint64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete reservation %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrReservationNotFound
	}
	return nil
}

func nullableID(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}
