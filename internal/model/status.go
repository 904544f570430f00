package model

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCheckedIn Status = "CHECKED_IN"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Event is an action that may move a reservation to another status.
type Event string

const (
	EventConfirm Event = "confirm"
	EventCancel  Event = "cancel"
	EventCheckIn Event = "check-in"
	EventVerify  Event = "verify"
)

// ErrInvalidStateTransition is matched by every *TransitionError.
var ErrInvalidStateTransition = errors.New("invalid state transition")

// TransitionError describes a rejected event.
type TransitionError struct {
	From  Status
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a reservation in status %s", e.Event, e.From)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidStateTransition }

// PENDING + check-in goes straight to CHECKED_IN: the confirmation is implied.
var transitions = map[Status]map[Event]Status{
	StatusPending: {
		EventConfirm: StatusConfirmed,
		EventCancel:  StatusCancelled,
		EventCheckIn: StatusCheckedIn,
	},
	StatusConfirmed: {
		EventCancel:  StatusCancelled,
		EventCheckIn: StatusCheckedIn,
	},
	StatusCheckedIn: {
		EventVerify: StatusCompleted,
	},
	StatusCompleted: {},
	StatusCancelled: {},
}

// ActiveStatuses are the statuses counted against restaurant capacity.
var ActiveStatuses = []Status{StatusConfirmed, StatusCheckedIn}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no event can leave s.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusCancelled }

// Active reports whether a reservation in s consumes capacity.
func (s Status) Active() bool { return s == StatusConfirmed || s == StatusCheckedIn }

// Next returns the status reached from s on e.
func (s Status) Next(e Event) (Status, error) {
	to, ok := transitions[s][e]
	if !ok {
		return s, &TransitionError{From: s, Event: e}
	}
	return to, nil
}

// Apply moves the reservation along the transition graph and stamps
// UpdatedAt.  Verify on anything but CHECKED_IN is a no-op and reports
// changed == false with a nil error.  On error the reservation is untouched.
func (r *Reservation) Apply(e Event, now time.Time) (changed bool, err error) {
	if e == EventVerify && r.Status != StatusCheckedIn {
		return false, nil
	}
	to, err := r.Status.Next(e)
	if err != nil {
		return false, err
	}
	r.Status = to
	r.UpdatedAt = now
	return true, nil
}
