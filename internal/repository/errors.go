package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors surfaced by the repositories.
var (
	// ErrSessionNotFound indicates no session row with the given id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionNotActive indicates the session exists but was already
	// completed. This is the expected outcome of losing a termination race,
	// not a failure.
	ErrSessionNotActive = errors.New("session not active")

	// ErrConflict indicates a serialization or deadlock failure; the whole
	// operation should be retried.
	ErrConflict = errors.New("persistence conflict")

	// ErrTableNotFound indicates no table row with the given id.
	ErrTableNotFound = errors.New("table not found")

	// ErrTableOccupied indicates the table already has an occupant.
	ErrTableOccupied = errors.New("table occupied")

	// ErrWalletNotFound indicates the user has no wallet row.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInsufficientCredit indicates the wallet balance is zero.
	ErrInsufficientCredit = errors.New("insufficient credit")

	// ErrRateNotFound indicates no usable rate row.
	ErrRateNotFound = errors.New("rate not found")
)

// retryable reports whether err is a postgres serialization (40001) or
// deadlock (40P01) failure that callers should map to ErrConflict.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
