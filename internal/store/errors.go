package store

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// PersistenceConflictError indicates a write lost a race on a unique key:
// an order value or the per-course assessment unit.
type PersistenceConflictError struct {
	Table string
	Err   error
}

func (e *PersistenceConflictError) Error() string {
	return fmt.Sprintf("conflicting write to %s: %v", e.Table, e.Err)
}

func (e *PersistenceConflictError) Unwrap() error { return e.Err }

// NotFoundError indicates a referenced row does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// isUniqueViolation reports whether err is a unique-constraint failure on
// either backend.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		return pe.Code == "23505"
	}
	return false
}

// wrapWrite converts unique violations into PersistenceConflictError.
func wrapWrite(table string, err error) error {
	if isUniqueViolation(err) {
		return &PersistenceConflictError{Table: table, Err: err}
	}
	return fmt.Errorf("insert into %s: %w", table, err)
}
