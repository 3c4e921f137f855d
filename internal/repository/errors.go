// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"casino-tournaments/internal/pkg/lock"
)

// Common errors for repository operations.
var (
	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrDuplicateTournament = errors.New("tournament already exists")
	ErrTournamentClosed    = errors.New("tournament closed for entries")
	ErrTournamentFull      = errors.New("tournament is full")
	ErrTournamentNotActive = errors.New("tournament not active")
	ErrEntryNotFound       = errors.New("entry not found")
	ErrDuplicateEntry      = errors.New("entry already exists")
)

// PostgreSQL error codes checked by the repositories.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == pgForeignKeyViolation
}

// IsTransient reports whether err is a storage failure worth retrying:
// timeouts, dropped connections, serialization failures and deadlocks.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, lock.ErrLockTimeout) {
		return true
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return true
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	code := pgErrorCode(err)
	switch {
	case code == "40001", code == "40P01":
		return true
	case strings.HasPrefix(code, "08"):
		return true
	}
	return false
}
