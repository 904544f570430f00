package service

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// OccupancyWindow is the assumed table turnover on each side of a booking.
const OccupancyWindow = time.Hour

// OccupancyBounds returns [at-OccupancyWindow, at+OccupancyWindow].
func OccupancyBounds(at time.Time) (time.Time, time.Time) {
	return at.Add(-OccupancyWindow), at.Add(OccupancyWindow)
}

// OccupiedSeats sums the party sizes of the active reservations in rs,
// skipping excludeID.
func OccupiedSeats(rs []model.Reservation, excludeID uint64) int {
	n := 0
	for _, r := range rs {
		if r.ID == excludeID && excludeID != 0 {
			continue
		}
		if r.Status.Active() {
			n += r.PartySize
		}
	}
	return n
}

// AvailableCapacity returns the free seats of a restaurant over
// [start, end], never less than zero.
func AvailableCapacity(ctx context.Context, q repository.Queries, restaurantID uint64, start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, invalid("window", "end before start")
	}
	rest, err := q.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return 0, err
	}
	return availableFor(ctx, q, rest, start, end, 0)
}

func availableFor(ctx context.Context, q repository.Queries, rest *model.Restaurant, start, end time.Time, excludeID uint64) (int, error) {
	rs, err := q.FindReservationsInWindow(ctx, rest.ID, start, end, model.ActiveStatuses)
	if err != nil {
		return 0, fmt.Errorf("load reservations in window: %w", err)
	}
	free := rest.Capacity - OccupiedSeats(rs, excludeID)
	if free < 0 {
		return 0, nil
	}
	return free, nil
}

// HasCapacityForReservation reports whether partySize fits in the occupancy
// window around at.
func HasCapacityForReservation(ctx context.Context, q repository.Queries, restaurantID uint64, at time.Time, partySize int) (bool, error) {
	start, end := OccupancyBounds(at)
	free, err := AvailableCapacity(ctx, q, restaurantID, start, end)
	if err != nil {
		return false, err
	}
	return free >= partySize, nil
}

// ensureCapacity fails with ErrInsufficientCapacity unless partySize fits
// around at, not counting the reservation excludeID.
func ensureCapacity(ctx context.Context, q repository.Queries, rest *model.Restaurant, at time.Time, partySize int, excludeID uint64) error {
	start, end := OccupancyBounds(at)
	free, err := availableFor(ctx, q, rest, start, end, excludeID)
	if err != nil {
		return err
	}
	if free < partySize {
		return fmt.Errorf("%w: %d seats requested, %d available", ErrInsufficientCapacity, partySize, free)
	}
	return nil
}
