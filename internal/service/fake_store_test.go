package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliyamo/table-reservation/internal/cache"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// memStore is an in-memory Store.  WithRestaurantLock takes no lock of its
// own so tests exercise the service's serialization alone.
type memStore struct {
	mu           sync.Mutex
	restaurants  map[uint64]model.Restaurant
	reservations map[uint64]model.Reservation
	nextID       uint64
	windowDelay  time.Duration
	getCalls     atomic.Int64
}

func newMemStore(restaurants ...model.Restaurant) *memStore {
	s := &memStore{
		restaurants:  map[uint64]model.Restaurant{},
		reservations: map[uint64]model.Reservation{},
	}
	for _, r := range restaurants {
		s.restaurants[r.ID] = r
	}
	return s
}

func (s *memStore) put(r model.Reservation) *model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	r.ID = s.nextID
	if r.Token == "" {
		r.Token = fmt.Sprintf("tok-%d", r.ID)
	}
	s.reservations[r.ID] = r
	return &r
}

func (s *memStore) status(id uint64) model.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reservations[id].Status
}

func (s *memStore) WithRestaurantLock(ctx context.Context, id uint64, fn func(q repository.Queries) error) error {
	if _, err := s.GetRestaurant(ctx, id); err != nil {
		return err
	}
	return fn(s)
}

func (s *memStore) GetRestaurant(_ context.Context, id uint64) (*model.Restaurant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.restaurants[id]
	if !ok {
		return nil, repository.ErrRestaurantNotFound
	}
	return &r, nil
}

func (s *memStore) GetReservation(_ context.Context, id uint64) (*model.Reservation, error) {
	s.getCalls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	return &r, nil
}

func (s *memStore) GetReservationByToken(_ context.Context, token string) (*model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reservations {
		if r.Token == token {
			return &r, nil
		}
	}
	return nil, repository.ErrReservationNotFound
}

func (s *memStore) FindReservationsInWindow(ctx context.Context, restaurantID uint64, start, end time.Time, statuses []model.Status) ([]model.Reservation, error) {
	out, err := s.ListReservations(ctx, repository.ReservationFilter{RestaurantID: restaurantID, From: &start, To: &end, Statuses: statuses})
	if s.windowDelay > 0 {
		time.Sleep(s.windowDelay)
	}
	return out, err
}

func (s *memStore) ListReservations(_ context.Context, f repository.ReservationFilter) ([]model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Reservation{}
	for _, r := range s.reservations {
		if f.RestaurantID != 0 && r.RestaurantID != f.RestaurantID {
			continue
		}
		if f.UserID != 0 && (r.UserID == nil || *r.UserID != f.UserID) {
			continue
		}
		if f.From != nil && r.ReservationTime.Before(*f.From) {
			continue
		}
		if f.To != nil && r.ReservationTime.After(*f.To) {
			continue
		}
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, r.Status) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func containsStatus(list []model.Status, s model.Status) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func (s *memStore) InsertReservation(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.reservations {
		if existing.Token == r.Token {
			return repository.ErrDuplicateToken
		}
	}
	s.nextID++
	r.ID = s.nextID
	s.reservations[r.ID] = *r
	return nil
}

func (s *memStore) UpdateReservation(_ context.Context, r *model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[r.ID]; !ok {
		return repository.ErrReservationNotFound
	}
	s.reservations[r.ID] = *r
	return nil
}

func (s *memStore) DeleteReservation(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[id]; !ok {
		return repository.ErrReservationNotFound
	}
	delete(s.reservations, id)
	return nil
}

// recordingCache remembers invalidated patterns.
type recordingCache struct {
	cache.NopCache
	mu          sync.Mutex
	invalidated []string
}

func (c *recordingCache) Invalidate(_ context.Context, patterns ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, patterns...)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ReservationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev queue.ReservationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) types() []queue.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]queue.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// stepClock advances by one second on every call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}
