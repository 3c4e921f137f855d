// Package service provides the tournament business logic: the score ledger,
// the lifecycle clock, the finalizer and the coordinator that fronts them.
package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"casino-tournaments/internal/repository"
)

// Error kinds. Every error returned by the services wraps exactly one of
// these, so callers classify with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrTransient    = errors.New("temporarily unavailable")
)

// Tournament errors.
var (
	ErrTournamentNotFound  = fmt.Errorf("%w: tournament not found", ErrNotFound)
	ErrNoSuchEntry         = fmt.Errorf("%w: wallet has not joined this tournament", ErrNotFound)
	ErrTournamentNotActive = fmt.Errorf("%w: tournament is not active", ErrInvalidState)
	ErrTournamentNotEnded  = fmt.Errorf("%w: tournament has not ended yet", ErrInvalidState)
	ErrTournamentClosed    = fmt.Errorf("%w: tournament is no longer accepting entries", ErrInvalidState)
	ErrAlreadyJoined       = fmt.Errorf("%w: wallet already joined this tournament", ErrConflict)
	ErrTournamentFull      = fmt.Errorf("%w: tournament is full", ErrConflict)
	ErrTournamentExists    = fmt.Errorf("%w: tournament already exists", ErrConflict)
)

// Input errors.
var (
	ErrInvalidAmount     = fmt.Errorf("%w: bet amount must be positive", ErrInvalidInput)
	ErrInvalidID         = fmt.Errorf("%w: malformed tournament id", ErrInvalidInput)
	ErrInvalidWallet     = fmt.Errorf("%w: malformed wallet address", ErrInvalidInput)
	ErrInvalidStatus     = fmt.Errorf("%w: unknown tournament status", ErrInvalidInput)
	ErrUnknownGame       = fmt.Errorf("%w: unknown game", ErrInvalidInput)
	ErrGameMismatch      = fmt.Errorf("%w: game does not count for this tournament", ErrInvalidInput)
	ErrInvalidTournament = fmt.Errorf("%w: invalid tournament", ErrInvalidInput)
)

var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Kind returns the name of the error kind err belongs to, or "internal".
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrTransient):
		return "transient"
	}
	return "internal"
}

// translate maps repository errors onto service errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repository.ErrEntryNotFound):
		return ErrNoSuchEntry
	case errors.Is(err, repository.ErrTournamentNotActive):
		return ErrTournamentNotActive
	case errors.Is(err, repository.ErrTournamentClosed):
		return ErrTournamentClosed
	case errors.Is(err, repository.ErrTournamentFull):
		return ErrTournamentFull
	case errors.Is(err, repository.ErrDuplicateEntry):
		return ErrAlreadyJoined
	case errors.Is(err, repository.ErrDuplicateTournament):
		return ErrTournamentExists
	case repository.IsTransient(err):
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return err
}

// ParseTournamentID validates a tournament id and returns its canonical form.
func ParseTournamentID(id string) (string, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return "", ErrInvalidID
	}
	return parsed.String(), nil
}

// NormalizeWallet validates an EVM address and returns it lower-cased.
func NormalizeWallet(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if !walletPattern.MatchString(addr) {
		return "", ErrInvalidWallet
	}
	return strings.ToLower(addr), nil
}
