package model

import "time"

// GroupPartySize is the party size from which a booking counts as a group
// reservation.
const GroupPartySize = 8

// Reservation records a table booking at a restaurant.  The Token is issued
// once at creation and acts as a bearer credential for check-in and
// verification, so it is only ever returned to the party that created the
// booking and to staff.
//
// Fields:
//  ID                 – primary key identifier.
//  RestaurantID       – restaurant being booked (required).
//  UserID             – user who made the booking (nil for anonymous).
//  CustomerName       – name the table is booked under.
//  CustomerEmail      – contact email.
//  CustomerPhone      – contact phone.
//  PartySize          – number of guests (always positive).
//  ReservationTime    – when the party is expected.
//  MealType           – free-text meal label (lunch, dinner, ...).
//  SpecialRequests    – optional notes from the customer.
//  IsGroupReservation – true for parties of GroupPartySize or more.
//  MenusRequired      – menus to prepare, defaults to PartySize.
//  Status             – lifecycle state, see Status.
//  Token              – unique opaque check-in credential.
//  CreatedAt          – creation timestamp, set once.
//  UpdatedAt          – timestamp of the last status change or edit.
type Reservation struct {
	ID                 uint64    `json:"id"`                         // reservations.id
	RestaurantID       uint64    `json:"restaurant_id"`              // reservations.restaurant_id
	UserID             *uint64   `json:"user_id,omitempty"`          // reservations.user_id (nullable)
	CustomerName       string    `json:"customer_name"`              // reservations.customer_name
	CustomerEmail      string    `json:"customer_email"`             // reservations.customer_email
	CustomerPhone      string    `json:"customer_phone"`             // reservations.customer_phone
	PartySize          int       `json:"party_size"`                 // reservations.party_size
	ReservationTime    time.Time `json:"reservation_time"`           // reservations.reservation_time
	MealType           string    `json:"meal_type"`                  // reservations.meal_type
	SpecialRequests    *string   `json:"special_requests,omitempty"` // reservations.special_requests (nullable)
	IsGroupReservation bool      `json:"is_group_reservation"`       // reservations.is_group_reservation
	MenusRequired      int       `json:"menus_required"`             // reservations.menus_required
	Status             Status    `json:"status"`                     // reservations.status
	Token              string    `json:"token,omitempty"`            // reservations.token
	CreatedAt          time.Time `json:"created_at"`                 // reservations.created_at
	UpdatedAt          time.Time `json:"updated_at"`                 // reservations.updated_at
}

// ApplyPartySize sets the party size and recomputes the derived fields.
// groupOverride may mark a smaller party as a group; it cannot clear the
// flag for parties of GroupPartySize or more.  menusOverride replaces the
// default of one menu per guest when positive.
func (r *Reservation) ApplyPartySize(size int, groupOverride *bool, menusOverride *int) {
	r.PartySize = size
	r.IsGroupReservation = size >= GroupPartySize || (groupOverride != nil && *groupOverride)
	r.MenusRequired = size
	if menusOverride != nil && *menusOverride > 0 {
		r.MenusRequired = *menusOverride
	}
}

// IsActive reports whether the reservation currently consumes capacity.
func (r *Reservation) IsActive() bool { return r.Status.Active() }
