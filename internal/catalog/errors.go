package catalog

import (
	"errors"

	sqlite "modernc.org/sqlite"
)

// ErrLocationExists reports that an insert collided with the unique
// constraint on mixes.stored_location. This is the race backstop: two
// concurrent ingestions derived the same storage key, and this one
// lost.
var ErrLocationExists = errors.New("stored location already exists")

// SQLite extended result codes for constraint failures.
const (
	sqliteConstraintUnique     = 2067
	sqliteConstraintPrimaryKey = 1555
)

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqliteConstraintUnique || code == sqliteConstraintPrimaryKey
	}
	return false
}
