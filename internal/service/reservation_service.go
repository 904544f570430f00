// Package service holds the reservation lifecycle engine: capacity checks,
// token issuing, state transitions and the cache and event side effects
// that follow every write.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/table-reservation/internal/cache"
	"github.com/iliyamo/table-reservation/internal/model"
	"github.com/iliyamo/table-reservation/internal/queue"
	"github.com/iliyamo/table-reservation/internal/repository"
)

// tokenAttempts bounds reissuing after a token collision.
const tokenAttempts = 3

// Store is the entity store plus a unit of work that holds the
// restaurant's row lock for its duration.
type Store interface {
	repository.Queries
	WithRestaurantLock(ctx context.Context, restaurantID uint64, fn func(q repository.Queries) error) error
}

// EventPublisher receives lifecycle events after commit.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ReservationEvent) error
}

// UserLookup resolves the optional user attached to a reservation.
type UserLookup interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

type ReservationService struct {
	store    Store
	cache    cache.Cache
	cacheTTL time.Duration
	tokens   TokenIssuer
	events   EventPublisher
	users    UserLookup
	locks    *KeyedMutex
	log      zerolog.Logger
	now      func() time.Time
}

type Option func(*ReservationService)

func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *ReservationService) { s.cache, s.cacheTTL = c, ttl }
}

func WithEvents(p EventPublisher) Option { return func(s *ReservationService) { s.events = p } }

func WithUsers(u UserLookup) Option { return func(s *ReservationService) { s.users = u } }

func WithTokens(t TokenIssuer) Option { return func(s *ReservationService) { s.tokens = t } }

func WithLogger(l zerolog.Logger) Option { return func(s *ReservationService) { s.log = l } }

func WithClock(now func() time.Time) Option { return func(s *ReservationService) { s.now = now } }

func NewReservationService(store Store, opts ...Option) *ReservationService {
	s := &ReservationService{
		store:    store,
		cache:    &cache.NopCache{},
		cacheTTL: time.Hour,
		tokens:   UUIDTokens{},
		locks:    NewKeyedMutex(),
		log:      zerolog.Nop(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Cache exposes the cache for the admin endpoints.
func (s *ReservationService) Cache() cache.Cache { return s.cache }

// CreateReservationInput carries the booking request.  IsGroupReservation
// and MenusRequired are optional overrides of the derived values.
type CreateReservationInput struct {
	RestaurantID       uint64
	UserID             *uint64
	CustomerName       string
	CustomerEmail      string
	CustomerPhone      string
	PartySize          int
	ReservationTime    time.Time
	MealType           string
	SpecialRequests    *string
	IsGroupReservation *bool
	MenusRequired      *int
}

func (in *CreateReservationInput) normalize() error {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.MealType = strings.TrimSpace(in.MealType)
	switch {
	case in.RestaurantID == 0:
		return invalid("restaurant_id", "required")
	case in.CustomerName == "":
		return invalid("customer_name", "required")
	case in.CustomerEmail == "":
		return invalid("customer_email", "required")
	case in.CustomerPhone == "":
		return invalid("customer_phone", "required")
	case in.PartySize <= 0:
		return invalid("party_size", "must be positive")
	case in.ReservationTime.IsZero():
		return invalid("reservation_time", "required")
	case in.MenusRequired != nil && *in.MenusRequired < 0:
		return invalid("menus_required", "must not be negative")
	}
	if _, err := mail.ParseAddress(in.CustomerEmail); err != nil {
		return invalid("customer_email", "malformed address")
	}
	in.ReservationTime = in.ReservationTime.UTC()
	return nil
}

// CreateReservation books a table.  The capacity check and the insert run
// under the restaurant lock so concurrent bookings cannot oversell.
func (s *ReservationService) CreateReservation(ctx context.Context, in CreateReservationInput) (*model.Reservation, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	userID := s.resolveUser(ctx, in.UserID)

	unlock := s.locks.Lock(in.RestaurantID)
	defer unlock()

	var res *model.Reservation
	err := s.store.WithRestaurantLock(ctx, in.RestaurantID, func(q repository.Queries) error {
		rest, err := q.GetRestaurant(ctx, in.RestaurantID)
		if err != nil {
			return err
		}
		if err := ensureCapacity(ctx, q, rest, in.ReservationTime, in.PartySize, 0); err != nil {
			return err
		}

		now := s.now()
		r := &model.Reservation{
			RestaurantID:    rest.ID,
			UserID:          userID,
			CustomerName:    in.CustomerName,
			CustomerEmail:   in.CustomerEmail,
			CustomerPhone:   in.CustomerPhone,
			ReservationTime: in.ReservationTime,
			MealType:        in.MealType,
			SpecialRequests: in.SpecialRequests,
			Status:          model.StatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		r.ApplyPartySize(in.PartySize, in.IsGroupReservation, in.MenusRequired)

		for attempt := 1; ; attempt++ {
			r.Token = s.tokens.Issue()
			err = q.InsertReservation(ctx, r)
			if !errors.Is(err, repository.ErrDuplicateToken) || attempt == tokenAttempts {
				break
			}
			s.log.Warn().Int("attempt", attempt).Msg("reservation token collision, reissuing")
		}
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, res, queue.EventCreated)
	return res, nil
}

func (s *ReservationService) resolveUser(ctx context.Context, id *uint64) *uint64 {
	if id == nil || *id == 0 {
		return nil
	}
	if s.users == nil {
		return id
	}
	if _, err := s.users.GetByID(ctx, *id); err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			s.log.Warn().Err(err).Uint64("user_id", *id).Msg("user lookup failed; booking anonymously")
		}
		return nil
	}
	return id
}

type lookupFunc func(ctx context.Context, q repository.Queries) (*model.Reservation, error)

func byID(id uint64) lookupFunc {
	return func(ctx context.Context, q repository.Queries) (*model.Reservation, error) {
		return q.GetReservation(ctx, id)
	}
}

func byToken(token string) lookupFunc {
	return func(ctx context.Context, q repository.Queries) (*model.Reservation, error) {
		if strings.TrimSpace(token) == "" {
			return nil, ErrReservationNotFound
		}
		return q.GetReservationByToken(ctx, token)
	}
}

// transition applies ev to the reservation found by lookup inside the
// restaurant lock.  A transition that makes the reservation count against
// capacity re-checks capacity first.  changed is false when the state
// machine treated the event as a no-op.
func (s *ReservationService) transition(ctx context.Context, lookup lookupFunc, ev model.Event, guard func(*model.Reservation) error) (res *model.Reservation, changed bool, err error) {
	current, err := lookup(ctx, s.store)
	if err != nil {
		return nil, false, err
	}

	unlock := s.locks.Lock(current.RestaurantID)
	defer unlock()

	err = s.store.WithRestaurantLock(ctx, current.RestaurantID, func(q repository.Queries) error {
		// Re-read under the lock; the row may have moved since.
		r, err := q.GetReservation(ctx, current.ID)
		if err != nil {
			return err
		}
		if guard != nil {
			if err := guard(r); err != nil {
				return err
			}
		}
		wasActive := r.Status.Active()
		next := *r
		ok, err := next.Apply(ev, s.now())
		if err != nil || !ok {
			res = r
			return err
		}
		if !wasActive && next.Status.Active() {
			rest, err := q.GetRestaurant(ctx, r.RestaurantID)
			if err != nil {
				return err
			}
			if err := ensureCapacity(ctx, q, rest, r.ReservationTime, r.PartySize, r.ID); err != nil {
				return err
			}
		}
		if err := q.UpdateReservation(ctx, &next); err != nil {
			return err
		}
		res, changed = &next, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if changed {
		s.afterWrite(ctx, res, queue.EventForStatus(res.Status))
	}
	return res, changed, nil
}

func (s *ReservationService) ConfirmReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	r, _, err := s.transition(ctx, byID(id), model.EventConfirm, nil)
	return r, err
}

func (s *ReservationService) ConfirmReservationByToken(ctx context.Context, token string) (*model.Reservation, error) {
	r, _, err := s.transition(ctx, byToken(token), model.EventConfirm, nil)
	return r, err
}

// CheckInReservation checks the party in, confirming a pending booking on
// the way.
func (s *ReservationService) CheckInReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	r, _, err := s.transition(ctx, byID(id), model.EventCheckIn, nil)
	return r, err
}

func (s *ReservationService) CheckInReservationByToken(ctx context.Context, token string) (*model.Reservation, error) {
	r, _, err := s.transition(ctx, byToken(token), model.EventCheckIn, nil)
	return r, err
}

// VerifyReservation completes a checked-in reservation.  For any other
// status it returns the reservation unchanged with verified false.
func (s *ReservationService) VerifyReservation(ctx context.Context, token string) (res *model.Reservation, verified bool, err error) {
	return s.transition(ctx, byToken(token), model.EventVerify, nil)
}

func (s *ReservationService) CancelReservation(ctx context.Context, id uint64) (*model.Reservation, error) {
	r, _, err := s.transition(ctx, byID(id), model.EventCancel, nil)
	return r, err
}

// CancelOwnReservation cancels a reservation on behalf of the user who
// made it.
func (s *ReservationService) CancelOwnReservation(ctx context.Context, id, userID uint64) (*model.Reservation, error) {
	guard := func(r *model.Reservation) error {
		if r.UserID == nil || *r.UserID != userID {
			return ErrForbidden
		}
		return nil
	}
	r, _, err := s.transition(ctx, byID(id), model.EventCancel, guard)
	return r, err
}

// ReservationPatch lists editable fields; nil fields are left untouched.
type ReservationPatch struct {
	CustomerName       *string
	CustomerEmail      *string
	CustomerPhone      *string
	MealType           *string
	SpecialRequests    *string
	PartySize          *int
	ReservationTime    *time.Time
	IsGroupReservation *bool
	MenusRequired      *int
}

func (p ReservationPatch) apply(r *model.Reservation) error {
	setText := func(field string, dst *string, v *string, required bool) error {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		if required && t == "" {
			return invalid(field, "required")
		}
		*dst = t
		return nil
	}
	if err := setText("customer_name", &r.CustomerName, p.CustomerName, true); err != nil {
		return err
	}
	if err := setText("customer_email", &r.CustomerEmail, p.CustomerEmail, true); err != nil {
		return err
	}
	if p.CustomerEmail != nil {
		if _, err := mail.ParseAddress(r.CustomerEmail); err != nil {
			return invalid("customer_email", "malformed address")
		}
	}
	if err := setText("customer_phone", &r.CustomerPhone, p.CustomerPhone, true); err != nil {
		return err
	}
	if err := setText("meal_type", &r.MealType, p.MealType, false); err != nil {
		return err
	}
	if p.SpecialRequests != nil {
		sr := *p.SpecialRequests
		r.SpecialRequests = &sr
	}
	if p.ReservationTime != nil {
		if p.ReservationTime.IsZero() {
			return invalid("reservation_time", "required")
		}
		r.ReservationTime = p.ReservationTime.UTC()
	}
	if p.PartySize != nil || p.IsGroupReservation != nil || p.MenusRequired != nil {
		size, group, menus := r.PartySize, p.IsGroupReservation, p.MenusRequired
		if p.PartySize != nil {
			if *p.PartySize <= 0 {
				return invalid("party_size", "must be positive")
			}
			size = *p.PartySize
		} else {
			// ApplyPartySize overwrites these fields, so keep copies.
			if group == nil {
				g := r.IsGroupReservation
				group = &g
			}
			if menus == nil {
				m := r.MenusRequired
				menus = &m
			}
		}
		if menus != nil && *menus < 0 {
			return invalid("menus_required", "must not be negative")
		}
		r.ApplyPartySize(size, group, menus)
	}
	return nil
}

// UpdateReservation edits a non-terminal reservation.  Moving or growing an
// active reservation re-checks capacity without counting its own seats.
func (s *ReservationService) UpdateReservation(ctx context.Context, id uint64, patch ReservationPatch) (*model.Reservation, error) {
	current, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(current.RestaurantID)
	defer unlock()

	var res *model.Reservation
	err = s.store.WithRestaurantLock(ctx, current.RestaurantID, func(q repository.Queries) error {
		r, err := q.GetReservation(ctx, id)
		if err != nil {
			return err
		}
		if r.Status.Terminal() {
			return fmt.Errorf("%w: %s reservation cannot be edited", model.ErrInvalidStateTransition, r.Status)
		}
		next := *r
		if err := patch.apply(&next); err != nil {
			return err
		}
		moved := !next.ReservationTime.Equal(r.ReservationTime) || next.PartySize != r.PartySize
		if next.Status.Active() && moved {
			rest, err := q.GetRestaurant(ctx, r.RestaurantID)
			if err != nil {
				return err
			}
			if err := ensureCapacity(ctx, q, rest, next.ReservationTime, next.PartySize, r.ID); err != nil {
				return err
			}
		}
		next.UpdatedAt = s.now()
		if err := q.UpdateReservation(ctx, &next); err != nil {
			return err
		}
		res = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, res)
	s.log.Info().Uint64("reservation_id", res.ID).Uint64("restaurant_id", res.RestaurantID).
		Str("status", string(res.Status)).Msg("reservation updated")
	return res, nil
}

// DeleteReservation removes the record outright, bypassing the state
// machine.
func (s *ReservationService) DeleteReservation(ctx context.Context, id uint64) error {
	r, err := s.store.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteReservation(ctx, id); err != nil {
		return err
	}
	s.afterWrite(ctx, r, queue.EventDeleted)
	return nil
}

// afterWrite runs the post-commit side effects of a lifecycle change.
func (s *ReservationService) afterWrite(ctx context.Context, r *model.Reservation, ev queue.EventType) {
	s.invalidate(ctx, r)
	s.log.Info().
		Str("event", string(ev)).
		Uint64("reservation_id", r.ID).
		Uint64("restaurant_id", r.RestaurantID).
		Str("status", string(r.Status)).
		Msg("reservation lifecycle change")
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, queue.NewReservationEvent(ev, r, s.now())); err != nil {
		s.log.Warn().Err(err).Uint64("reservation_id", r.ID).Str("event", string(ev)).Msg("publish event failed")
	}
}

// invalidationKeys lists every cached view that r can appear in.
func invalidationKeys(r *model.Reservation) []string {
	keys := []string{
		cache.ReservationByID(r.ID),
		cache.ReservationByToken(r.Token),
		cache.ReservationsByRestaurant(r.RestaurantID),
		cache.AllRanges(),
		cache.AllReservations(),
	}
	if r.UserID != nil {
		keys = append(keys, cache.ReservationsByUser(*r.UserID))
	}
	return keys
}

func (s *ReservationService) invalidate(ctx context.Context, r *model.Reservation) {
	if err := s.cache.Invalidate(ctx, invalidationKeys(r)...); err != nil {
		s.log.Warn().Err(err).Uint64("reservation_id", r.ID).Msg("cache invalidation failed")
	}
}
