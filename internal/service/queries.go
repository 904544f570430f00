package service

import (
	"context"
	"time"

	"github.com/iliyamo/table-reservation/internal/cache"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

func (s *ReservationService) GetReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	return cache.Fetch(ctx, s.cache, cache.ReservationByID(id), s.cacheTTL,
		func(ctx context.Context) (*model.Reservation, error) { return s.store.GetReservation(ctx, id) })
}

func (s *ReservationService) GetReservationByToken(ctx context.Context, token string) (*model.Reservation, error) {
	if token == "" {
		return nil, ErrReservationNotFound
	}
	return cache.Fetch(ctx, s.cache, cache.ReservationByToken(token), s.cacheTTL,
		func(ctx context.Context) (*model.Reservation, error) { return s.store.GetReservationByToken(ctx, token) })
}

func (s *ReservationService) ListReservations(ctx context.Context) ([]model.Reservation, error) {
	return s.list(ctx, cache.AllReservations(), repository.ReservationFilter{})
}

func (s *ReservationService) ListByRestaurant(ctx context.Context, restaurantID uint64) ([]model.Reservation, error) {
	if _, err := s.store.GetRestaurant(ctx, restaurantID); err != nil {
		return nil, err
	}
	return s.list(ctx, cache.ReservationsByRestaurant(restaurantID), repository.ReservationFilter{RestaurantID: restaurantID})
}

func (s *ReservationService) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return s.list(ctx, cache.ReservationsByUser(userID), repository.ReservationFilter{UserID: userID})
}

// ListByDateRange returns reservations whose time lies in [start, end].
func (s *ReservationService) ListByDateRange(ctx context.Context, start, end time.Time) ([]model.Reservation, error) {
	if end.Before(start) {
		return nil, invalid("end", "before start")
	}
	return s.list(ctx, cache.ReservationsInRange(start, end), repository.ReservationFilter{From: &start, To: &end})
}

func (s *ReservationService) list(ctx context.Context, key string, f repository.ReservationFilter) ([]model.Reservation, error) {
	return cache.Fetch(ctx, s.cache, key, s.cacheTTL,
		func(ctx context.Context) ([]model.Reservation, error) { return s.store.ListReservations(ctx, f) })
}

// AvailableCapacity returns the free seats of the restaurant over
// [start, end].
func (s *ReservationService) AvailableCapacity(ctx context.Context, restaurantID uint64, start, end time.Time) (int, error) {
	return AvailableCapacity(ctx, s.store, restaurantID, start, end)
}

// HasCapacityForReservation reports whether a party of partySize fits in
// the occupancy window around at.
func (s *ReservationService) HasCapacityForReservation(ctx context.Context, restaurantID uint64, at time.Time, partySize int) (bool, error) {
	return HasCapacityForReservation(ctx, s.store, restaurantID, at, partySize)
}
