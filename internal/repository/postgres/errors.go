package postgres

import (
	"errors"
	"fmt"

	"beps/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// IsPgDuplicateError checks if error is a unique constraint violation
func IsPgDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		return pgErr.Code == "23505"
	}
	return false
}

// IsPgNoRowsError checks if error is a "no rows" error
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsPgForeignKeyError checks if error is a foreign key violation
func IsPgForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23503 = foreign_key_violation
		return pgErr.Code == "23503"
	}
	return false
}

// IsPgTransientError reports failures worth retrying: deadlocks, serialization
// failures, statement timeouts and lost connections.
func IsPgTransientError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40P01", "40001", "57014", "55P03":
			return true
		}
		// Class 08 - connection exception
		return len(pgErr.Code) == 5 && pgErr.Code[:2] == "08"
	}
	return pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}

// classify tags transient errors with domain.ErrTransient so services can retry.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if IsPgTransientError(err) {
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	return err
}

// Classify is the exported form of classify for sub-packages.
func Classify(err error) error {
	return classify(err)
}
