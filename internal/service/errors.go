package service

import (
	"errors"

	"github.com/iliyamo/table-reservation/internal/repository"
)

// Lookup failures share identity with the repository sentinels so either
// can be matched with errors.Is.
var (
	ErrRestaurantNotFound  = repository.ErrRestaurantNotFound
	ErrReservationNotFound = repository.ErrReservationNotFound
)

var (
	ErrInsufficientCapacity = errors.New("insufficient capacity")
	ErrInvalidReservation   = errors.New("invalid reservation")
	ErrForbidden            = errors.New("forbidden")
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return "invalid " + e.Field + ": " + e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidReservation }

func invalid(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }
