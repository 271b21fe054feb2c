package store

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// Kind classifies store errors for callers that need more than a message.
type Kind int

const (
	// KindInternal is any failure not covered by a more specific kind.
	KindInternal Kind = iota
	// KindBusy is a transient lock/busy condition from SQLite. Write and
	// maintenance paths retry these; reads surface them as-is because the
	// serializer already rules out application-side writer overlap.
	KindBusy
	// KindConstraint is a referential or constraint violation.
	KindConstraint
	// KindMigration is a schema initialization/migration failure. Fatal:
	// no further operation may proceed.
	KindMigration
)

// Error is a typed store failure: a kind plus the underlying error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// ErrKind extracts the Kind from err, classifying raw sqlite3 errors when
// err is not already a store Error.
func ErrKind(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	if isBusy(err) {
		return KindBusy
	}
	if isConstraint(err) {
		return KindConstraint
	}
	return KindInternal
}

// isBusy reports whether err is a transient SQLITE_BUSY/SQLITE_LOCKED
// condition worth retrying at the transaction level.
func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func isConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}
