package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("conflict")

// ErrForeignKey is returned when a write references a missing record or a
// delete would orphan dependent rows.
var ErrForeignKey = errors.New("foreign key violation")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translate maps driver errors onto the package sentinels so that raw
// postgres codes never leave the store.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pqErr.Constraint)
		case pqForeignKeyViolation:
			return fmt.Errorf("%w: %s", ErrForeignKey, pqErr.Constraint)
		}
	}
	return err
}

// validID reports whether id can be a primary key. Non-UUID identifiers can
// never match a row, so callers skip the round trip.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
