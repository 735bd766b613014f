package database

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a lookup by key or unique name matches no row
	ErrNotFound = errors.New("not found")

	// ErrNoTimedRides is returned by average speed computations when no ride
	// has a recorded duration
	ErrNoTimedRides = errors.New("no timed rides")

	// ErrSchemaTooNew is returned when the store records migrations this
	// build does not know about
	ErrSchemaTooNew = errors.New("database schema is newer than this build")
)

// MigrationError reports the migration unit that failed. Nothing from the
// invocation that produced it has been committed.
type MigrationError struct {
	Name string
	Err  error
}

func (e *MigrationError) Error() string {
	return fmt.Sprintf("migration %s failed: %v", e.Name, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// IsUniqueViolation reports whether err was caused by a UNIQUE constraint
func IsUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	if sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(sqliteErr.Error(), "UNIQUE")
}
