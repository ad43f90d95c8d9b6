package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Domain-level database error sentinels.
var (
	// ErrNotFound is wrapped by every per-entity not-found error.
	ErrNotFound = errors.New("not found")

	ErrReferenceClientNotFound = fmt.Errorf("reference client %w", ErrNotFound)
	ErrProspectNotFound        = fmt.Errorf("prospect %w", ErrNotFound)
	ErrCampaignNotFound        = fmt.Errorf("campaign %w", ErrNotFound)
	ErrAssociationNotFound     = fmt.Errorf("campaign prospect %w", ErrNotFound)

	// Campaign prospect errors
	ErrDuplicateAssociation = errors.New("prospect is already attached to this campaign")

	// ErrPersistence marks storage failures: constraint violations nobody
	// expected, lost connections, aborted transactions.
	ErrPersistence = errors.New("persistence failure")
)

// Postgres SQLSTATE codes the repository reacts to.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// persistenceError wraps err so callers can match both ErrPersistence and the cause.
func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// pgError extracts the Postgres error code and constraint name, if any.
func pgError(err error) (code, constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName, true
	}
	return "", "", false
}
