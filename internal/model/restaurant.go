package model

import "time"

// Restaurant represents a venue that accepts table reservations.  Its
// Capacity is the total number of seats that may be occupied by active
// reservations inside one occupancy window.  This struct corresponds to a
// row in the `restaurants` table.
//
// Fields:
//  ID          – primary key identifier.
//  Name        – display name of the restaurant.
//  Description – optional free-text description.
//  Capacity    – total seating capacity (always positive).
//  LocationID  – reference to the location record (nil if unassigned).
//  CreatedAt   – creation timestamp.
type Restaurant struct {
	ID          uint64    `json:"id"`                    // restaurants.id
	Name        string    `json:"name"`                  // restaurants.name
	Description *string   `json:"description,omitempty"` // restaurants.description (nullable)
	Capacity    int       `json:"capacity"`              // restaurants.capacity
	LocationID  *uint64   `json:"location_id,omitempty"` // restaurants.location_id (nullable)
	CreatedAt   time.Time `json:"created_at"`            // restaurants.created_at
}
