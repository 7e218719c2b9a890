package sqlite

import (
	"errors"

	sqlitedrv "modernc.org/sqlite"
)

var (
	ErrSubscriberExists   = errors.New("subscriber already exists")
	ErrSubscriberNotFound = errors.New("subscriber not found")
	ErrZoneNotFound       = errors.New("waste zone not found")

	// ErrDuplicateReminder marks a reminder row that already exists for the
	// same (subscriber, type, date). The dispatcher treats it as "already
	// handled", so it must stay distinguishable from any other write failure.
	ErrDuplicateReminder = errors.New("reminder already recorded")
)

// SQLite extended result codes for uniqueness violations.
const (
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

func isUniqueViolation(err error) bool {
	var serr *sqlitedrv.Error
	if !errors.As(err, &serr) {
		return false
	}
	return serr.Code() == sqliteConstraintUnique || serr.Code() == sqliteConstraintPrimaryKey
}
