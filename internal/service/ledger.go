package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"casino-tournaments/internal/model"
)

// LedgerStore is the storage the score ledger needs.
type LedgerStore interface {
	GetTournament(ctx context.Context, id string) (*model.Tournament, error)
	ApplyRound(ctx context.Context, d model.RoundDelta) (*model.Entry, bool, error)
}

// Amounts and scores are stored as NUMERIC(38,18).
const amountScale = 18

var maxAmount = decimal.New(1, 38-amountScale)

// storable reports whether d fits the amount columns without rounding.
func storable(d decimal.Decimal) bool {
	return d.Abs().LessThan(maxAmount) && d.Equal(d.Truncate(amountScale))
}

// ScoreLedger applies settled game rounds to tournament entries.
type ScoreLedger struct {
	store     LedgerStore
	policy    *ScoringPolicy
	publisher Publisher
}

// NewScoreLedger creates a new ScoreLedger instance.
func NewScoreLedger(store LedgerStore, policy *ScoringPolicy, publisher Publisher) *ScoreLedger {
	if policy == nil {
		policy = DefaultScoringPolicy()
	}
	return &ScoreLedger{store: store, policy: policy, publisher: orNop(publisher)}
}

// RecordRound adds one settled round to the player's entry and returns the
// updated entry. The tournament must be active and now before its end time.
// A round whose RoundID was already applied changes nothing and comes back
// with Duplicate set.
func (l *ScoreLedger) RecordRound(ctx context.Context, round model.Round, now time.Time) (*model.EntrySnapshot, error) {
	id, err := ParseTournamentID(round.TournamentID)
	if err != nil {
		return nil, err
	}
	wallet, err := NormalizeWallet(round.WalletAddress)
	if err != nil {
		return nil, err
	}
	if !round.BetAmount.IsPositive() || !storable(round.BetAmount) {
		return nil, ErrInvalidAmount
	}
	round.TournamentID = id
	round.WalletAddress = wallet
	round.Game = strings.ToLower(strings.TrimSpace(round.Game))
	// Transaction hashes are hex, so case does not distinguish rounds.
	round.RoundID = strings.ToLower(strings.TrimSpace(round.RoundID))

	if !l.policy.KnownGame(round.Game) {
		return nil, ErrUnknownGame
	}

	t, err := l.store.GetTournament(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if !t.AcceptsGame(round.Game) {
		return nil, ErrGameMismatch
	}
	if round.Game == "" && t.GameType != "" && t.GameType != model.GameTypeAll {
		round.Game = t.GameType
	}

	delta := l.policy.Score(round, now)
	if !storable(delta.Score) || !storable(delta.WonAmount) {
		return nil, ErrInvalidAmount
	}
	entry, duplicate, err := l.store.ApplyRound(ctx, delta)
	if err != nil {
		return nil, translate(err)
	}

	logger := log.With().
		Str("tournament_id", id).
		Str("wallet", wallet).
		Str("round_id", round.RoundID).
		Logger()

	if duplicate {
		logger.Debug().Msg("Round already recorded, skipping")
		return &model.EntrySnapshot{Entry: *entry, Duplicate: true}, nil
	}

	logger.Debug().
		Str("game", round.Game).
		Bool("won", round.Won).
		Str("score", delta.Score.String()).
		Str("total_score", entry.TotalScore.String()).
		Msg("Round recorded")

	l.publisher.Publish(newEvent(model.EventEntryUpdated, id, now, entry))

	return &model.EntrySnapshot{Entry: *entry}, nil
}
