// Package queue defines the reservation lifecycle events exchanged over the
// message broker, their publisher and the audit consumer.
package queue

import (
	"time"

	"github.com/iliyamo/table-reservation/internal/model"
)

// EventType doubles as the routing key on the topic exchange.
type EventType string

const (
	EventCreated   EventType = "reservation.created"
	EventConfirmed EventType = "reservation.confirmed"
	EventCheckedIn EventType = "reservation.checked_in"
	EventCompleted EventType = "reservation.completed"
	EventCancelled EventType = "reservation.cancelled"
	EventDeleted   EventType = "reservation.deleted"
)

// bindingKey matches every lifecycle event.
const bindingKey = "reservation.*"

// ReservationEvent is published after a lifecycle change commits.  It
// carries enough for consumers to log or notify without querying the
// database.  The check-in token is deliberately absent.
type ReservationEvent struct {
	Type            EventType `json:"type"`
	ReservationID   uint64    `json:"reservation_id"`
	RestaurantID    uint64    `json:"restaurant_id"`
	UserID          *uint64   `json:"user_id,omitempty"`
	Status          string    `json:"status"`
	PartySize       int       `json:"party_size"`
	ReservationTime string    `json:"reservation_time"`
	OccurredAt      string    `json:"occurred_at"`
}

// NewReservationEvent snapshots r for publishing.
func NewReservationEvent(t EventType, r *model.Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		Type:            t,
		ReservationID:   r.ID,
		RestaurantID:    r.RestaurantID,
		UserID:          r.UserID,
		Status:          string(r.Status),
		PartySize:       r.PartySize,
		ReservationTime: r.ReservationTime.UTC().Format(time.RFC3339),
		OccurredAt:      at.UTC().Format(time.RFC3339),
	}
}

// EventForStatus maps the status a transition lands on to its event type.
func EventForStatus(s model.Status) EventType {
	switch s {
	case model.StatusConfirmed:
		return EventConfirmed
	case model.StatusCheckedIn:
		return EventCheckedIn
	case model.StatusCompleted:
		return EventCompleted
	case model.StatusCancelled:
		return EventCancelled
	}
	return EventCreated
}
