package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrAtomicIncrementUnavailable means the counter functions are not provisioned in the database.
var ErrAtomicIncrementUnavailable = errors.New("atomic increment function is not available")

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqUndefinedFunction   = "42883"
)

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}

func asPQError(err error) (*pq.Error, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr, true
	}
	return nil, false
}

// mapIncrementError turns a missing counter function into ErrAtomicIncrementUnavailable.
func mapIncrementError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	if pqErr, ok := asPQError(err); ok && pqErr.Code == pqUndefinedFunction {
		return ErrAtomicIncrementUnavailable
	}
	return err
}
