// Package repository is the MySQL entity store.  Lookups that find nothing
// return one of the sentinel errors below instead of sql.ErrNoRows so the
// service layer can tell "absent" apart from a storage failure.
package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
)

var (
	ErrRestaurantNotFound  = errors.New("restaurant not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrUserNotFound        = errors.New("user not found")

	// ErrDuplicateToken is returned by InsertReservation when the unique
	// token index rejects the row.  Callers reissue the token and retry.
	ErrDuplicateToken = errors.New("duplicate reservation token")

	ErrEmailExists = errors.New("email already exists")
)

const mysqlDuplicateEntry = 1062

// duplicateKey reports whether err is a MySQL duplicate-entry error and, if
// so, returns the server message naming the violated key.
func duplicateKey(err error) (string, bool) {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
		return me.Message, true
	}
	return "", false
}

func isDuplicateOn(err error, key string) bool {
	msg, ok := duplicateKey(err)
	return ok && strings.Contains(msg, key)
}
