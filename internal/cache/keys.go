package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// Key scopes accepted by the admin invalidation endpoint.
const (
	ScopeReservation  = "reservation"
	ScopeReservations = "reservations"
	ScopeRestaurant   = "restaurant"
	ScopeUser         = "user"
	ScopeRange        = "range"
)

func ReservationByID(id uint64) string { return "reservation:id:" + strconv.FormatUint(id, 10) }

// ReservationByToken keys the entry by the token's SHA-256 digest so the
// bearer secret never appears in the keyspace.
func ReservationByToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "reservation:token:" + hex.EncodeToString(sum[:])
}

func AllReservations() string { return "reservations:all" }

func ReservationsByRestaurant(id uint64) string {
	return "reservations:restaurant:" + strconv.FormatUint(id, 10)
}

func ReservationsByUser(id uint64) string {
	return "reservations:user:" + strconv.FormatUint(id, 10)
}

func ReservationsInRange(start, end time.Time) string {
	return "reservations:range:" + start.UTC().Format(time.RFC3339) + ":" + end.UTC().Format(time.RFC3339)
}

// AllRanges matches every cached date range listing.
func AllRanges() string { return "reservations:range:*" }

// ScopePattern maps an admin scope name to the wildcard it clears.  The
// boolean is false for unknown scopes.
func ScopePattern(scope string) (string, bool) {
	switch scope {
	case ScopeReservation:
		return "reservation:*", true
	case ScopeReservations:
		return "reservations:*", true
	case ScopeRestaurant:
		return "reservations:restaurant:*", true
	case ScopeUser:
		return "reservations:user:*", true
	case ScopeRange:
		return AllRanges(), true
	}
	return "", false
}
