package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

type storageError string

func (e storageError) Error() string { return string(e) }

const (
	ErrNotFound         = storageError("not found")
	ErrConflict         = storageError("already exists")
	ErrInvalidReference = storageError("referenced entity does not exist")
	ErrInUse            = storageError("still referenced")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// wrapErr maps driver errors onto the package sentinels and adds context.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to %s: %w", op, ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return fmt.Errorf("failed to %s: %w (%s)", op, ErrConflict, pqErr.Constraint)
		case pqForeignKeyViolation:
			return fmt.Errorf("failed to %s: %w (%s)", op, ErrInvalidReference, pqErr.Constraint)
		}
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}
