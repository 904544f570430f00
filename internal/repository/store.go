package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ReservationFilter narrows ListReservations.  Zero fields are ignored; From
// and To bound reservation_time inclusively.
type ReservationFilter struct {
	RestaurantID uint64
	UserID       uint64
	From         *time.Time
	To           *time.Time
	Statuses     []model.Status
}

// Queries is the entity store surface used by the reservation engine.  It is
// implemented by *Store both outside and inside a transaction.
type Queries interface {
	GetRestaurant(ctx context.Context, id uint64) (*model.Restaurant, error)
	GetReservation(ctx context.Context, id uint64) (*model.Reservation, error)
	GetReservationByToken(ctx context.Context, token string) (*model.Reservation, error)
	FindReservationsInWindow(ctx context.Context, restaurantID uint64, start, end time.Time, statuses []model.Status) ([]model.Reservation, error)
	ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error)
	InsertReservation(ctx context.Context, r *model.Reservation) error
	UpdateReservation(ctx context.Context, r *model.Reservation) error
	DeleteReservation(ctx context.Context, id uint64) error
}

// Store runs queries against a pool or, inside InTx, against a transaction.
type Store struct {
	db *sql.DB
	q  DBTX
}

func NewStore(db *sql.DB) *Store { return &Store{db: db, q: db} }

// InTx runs fn inside a transaction.  The transaction commits when fn
// returns nil and rolls back otherwise.  Nested calls reuse the outer
// transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) (err error) {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(&Store{q: tx}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// WithRestaurantLock opens a transaction, takes a row lock on the
// restaurant and runs fn with the transactional store.  Concurrent callers
// for the same restaurant queue on the lock until the first commits.
func (s *Store) WithRestaurantLock(ctx context.Context, restaurantID uint64, fn func(q Queries) error) error {
	return s.InTx(ctx, func(tx *Store) error {
		if err := tx.LockRestaurant(ctx, restaurantID); err != nil {
			return err
		}
		return fn(tx)
	})
}

// LockRestaurant issues SELECT ... FOR UPDATE on the restaurant row.  It is
// only meaningful inside InTx.
func (s *Store) LockRestaurant(ctx context.Context, id uint64) error {
	var got uint64
	err := s.q.QueryRowContext(ctx, `SELECT id FROM restaurants WHERE id = ? FOR UPDATE`, id).Scan(&got)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRestaurantNotFound
	}
	if err != nil {
		return fmt.Errorf("lock restaurant %d: %w", id, err)
	}
	return nil
}
