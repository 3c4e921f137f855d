// Package model defines the data models for the tournament service.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TournamentStatus is the lifecycle state of a tournament.
type TournamentStatus string

// Tournament statuses. Completed is terminal.
const (
	StatusUpcoming  TournamentStatus = "upcoming"
	StatusActive    TournamentStatus = "active"
	StatusCompleted TournamentStatus = "completed"
)

// GameTypeAll marks a tournament that accepts rounds from any game.
const GameTypeAll = "all"

// Valid reports whether s is a known status.
func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusActive, StatusCompleted:
		return true
	}
	return false
}

// Tournament is a time-boxed competition players join.
type Tournament struct {
	ID               string           `json:"id" db:"id"`
	Name             string           `json:"name" db:"name"`
	Description      string           `json:"description" db:"description"`
	GameType         string           `json:"game_type" db:"game_type"`
	EntryFee         decimal.Decimal  `json:"entry_fee" db:"entry_fee"`
	PrizePool        decimal.Decimal  `json:"prize_pool" db:"prize_pool"`
	MaxParticipants  *int             `json:"max_participants" db:"max_participants"`
	ParticipantCount int              `json:"participant_count" db:"participant_count"`
	StartTime        time.Time        `json:"start_time" db:"start_time"`
	EndTime          time.Time        `json:"end_time" db:"end_time"`
	Status           TournamentStatus `json:"status" db:"status"`
	FinalizedAt      *time.Time       `json:"finalized_at,omitempty" db:"finalized_at"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

// IsFinalized reports whether results have been written.
func (t *Tournament) IsFinalized() bool {
	return t.FinalizedAt != nil
}

// IsFull reports whether the capacity limit has been reached.
func (t *Tournament) IsFull() bool {
	return t.MaxParticipants != nil && t.ParticipantCount >= *t.MaxParticipants
}

// AcceptsGame reports whether rounds of the given game count for this tournament.
func (t *Tournament) AcceptsGame(game string) bool {
	if t.GameType == "" || t.GameType == GameTypeAll || game == "" {
		return true
	}
	return t.GameType == game
}

// StatusAt returns the status the lifecycle clock converges to at now.
// Completed is sticky: a completed tournament never moves back.
func (t *Tournament) StatusAt(now time.Time) TournamentStatus {
	if t.Status == StatusCompleted {
		return StatusCompleted
	}
	switch {
	case !now.Before(t.EndTime):
		return StatusCompleted
	case !now.Before(t.StartTime):
		return StatusActive
	}
	return t.Status
}

// NewTournament holds the fields an operator supplies when creating a tournament.
type NewTournament struct {
	ID              string          `json:"id,omitempty"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	GameType        string          `json:"game_type"`
	EntryFee        decimal.Decimal `json:"entry_fee"`
	PrizePool       decimal.Decimal `json:"prize_pool"`
	MaxParticipants *int            `json:"max_participants,omitempty"`
	StartTime       time.Time       `json:"start_time"`
	EndTime         time.Time       `json:"end_time"`
}

// Entry is one player's participation in one tournament.
type Entry struct {
	ID             string          `json:"id" db:"id"`
	TournamentID   string          `json:"tournament_id" db:"tournament_id"`
	WalletAddress  string          `json:"wallet_address" db:"wallet_address"`
	Username       string          `json:"username,omitempty" db:"username"`
	TotalScore     decimal.Decimal `json:"total_score" db:"total_score"`
	GamesPlayed    int64           `json:"games_played" db:"games_played"`
	BestMultiplier decimal.Decimal `json:"best_multiplier" db:"best_multiplier"`
	TotalWagered   decimal.Decimal `json:"total_wagered" db:"total_wagered"`
	TotalWon       decimal.Decimal `json:"total_won" db:"total_won"`
	JoinedAt       time.Time       `json:"joined_at" db:"joined_at"`
}

// Clone returns a copy of the entry that shares no mutable state.
func (e *Entry) Clone() *Entry {
	c := *e
	return &c
}

// EntrySnapshot is the entry state returned after recording a round.
// Duplicate is set when the round had already been applied.
type EntrySnapshot struct {
	Entry
	Duplicate bool `json:"duplicate"`
}

// LeaderboardRow is an entry with its current 1-based rank.
type LeaderboardRow struct {
	Rank int `json:"rank"`
	Entry
}

// Result is the immutable final standing of a paid or unpaid rank.
type Result struct {
	TournamentID  string          `json:"tournament_id" db:"tournament_id"`
	WalletAddress string          `json:"wallet_address" db:"wallet_address"`
	Username      string          `json:"username,omitempty" db:"username"`
	FinalScore    decimal.Decimal `json:"final_score" db:"final_score"`
	Rank          int             `json:"rank" db:"rank"`
	PrizeAmount   decimal.Decimal `json:"prize_amount" db:"prize_amount"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// RankFunc turns the entries of an ended tournament into its results. Stores
// call it while the tournament is locked against concurrent rounds.
type RankFunc func(t *Tournament, entries []*Entry) []Result

// Round is one settled game round reported for a tournament entry.
// RoundID is the settlement transaction hash when known.
type Round struct {
	TournamentID  string          `json:"tournament_id"`
	WalletAddress string          `json:"wallet_address"`
	Game          string          `json:"game"`
	BetAmount     decimal.Decimal `json:"bet_amount"`
	Won           bool            `json:"won"`
	RoundID       string          `json:"round_id,omitempty"`
}

// RoundDelta is the increment a scored round applies to an entry.
type RoundDelta struct {
	TournamentID  string
	WalletAddress string
	Game          string
	RoundID       string
	BetAmount     decimal.Decimal
	Won           bool
	Multiplier    decimal.Decimal
	Score         decimal.Decimal
	WonAmount     decimal.Decimal
	At            time.Time
}

// TickResult lists the tournaments a lifecycle tick moved.
type TickResult struct {
	Started []string `json:"started"`
	Ended   []string `json:"ended"`
}

// FinalizationResult is the outcome of finalizing one tournament.
type FinalizationResult struct {
	TournamentID     string          `json:"tournament_id"`
	TournamentName   string          `json:"tournament_name"`
	PrizePool        decimal.Decimal `json:"prize_pool"`
	AlreadyFinalized bool            `json:"already_finalized"`
	EntryCount       int             `json:"entry_count"`
	Results          []Result        `json:"results"`
	FinalizedAt      time.Time       `json:"finalized_at"`
}

// BatchFinalization summarizes a finalize-overdue run.
type BatchFinalization struct {
	Finalized []string          `json:"finalized"`
	Skipped   []string          `json:"skipped"`
	Failed    map[string]string `json:"failed"`
}

// EventType names a change notification.
type EventType string

// Change notifications published by the services.
const (
	EventEntryJoined         EventType = "entry_joined"
	EventEntryUpdated        EventType = "entry_updated"
	EventStatusChanged       EventType = "status_changed"
	EventTournamentFinalized EventType = "tournament_finalized"
)

// Event is a change notification for one tournament.
type Event struct {
	Type         EventType `json:"type"`
	TournamentID string    `json:"tournament_id"`
	At           time.Time `json:"at"`
	Payload      any       `json:"payload,omitempty"`
}

// StatusChange is the payload of a status_changed event.
type StatusChange struct {
	Status TournamentStatus `json:"status"`
}
