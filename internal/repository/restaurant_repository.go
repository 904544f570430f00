package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/table-reservation/internal/model"
)

// GetRestaurant loads a restaurant by id.
func (s *Store) GetRestaurant(ctx context.Context, id uint64) (*model.Restaurant, error) {
	const q = `SELECT id, name, description, capacity, location_id, created_at FROM restaurants WHERE id = ?`
	var (
		r     model.Restaurant
		desc  sql.NullString
		locID sql.NullInt64
	)
	err := s.q.QueryRowContext(ctx, q, id).Scan(&r.ID, &r.Name, &desc, &r.Capacity, &locID, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRestaurantNotFound
	}
	if err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		r.Description = &d
	}
	if locID.Valid {
		l := uint64(locID.Int64)
		r.LocationID = &l
	}
	return &r, nil
}
