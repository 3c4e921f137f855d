package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"casino-tournaments/internal/game"
	"casino-tournaments/internal/model"
)

// ScoringPolicy turns a settled round into a score increment.
type ScoringPolicy struct {
	games      *game.Registry
	defaultWin decimal.Decimal
	loss       decimal.Decimal
}

// NewScoringPolicy creates a scoring policy. Games missing from the registry
// are unknown; rounds that name no game score with defaultWin.
func NewScoringPolicy(games *game.Registry, defaultWin, loss decimal.Decimal) *ScoringPolicy {
	return &ScoringPolicy{games: games, defaultWin: defaultWin, loss: loss}
}

// DefaultScoringPolicy scores a win at twice the bet and a loss at zero for
// every built-in game.
func DefaultScoringPolicy() *ScoringPolicy {
	two := decimal.NewFromInt(2)
	games, err := game.NewBuiltinRegistry(two, nil)
	if err != nil {
		// built-in definitions are static
		panic(err)
	}
	return NewScoringPolicy(games, two, decimal.Zero)
}

// KnownGame reports whether tag names a registered game. The empty tag is accepted.
func (p *ScoringPolicy) KnownGame(tag string) bool {
	if tag == "" {
		return true
	}
	_, ok := p.games.Get(tag)
	return ok
}

// Multiplier returns the score multiplier for a round of the given game.
func (p *ScoringPolicy) Multiplier(tag string, won bool) decimal.Decimal {
	if !won {
		return p.loss
	}
	if g, ok := p.games.Get(tag); ok {
		return g.WinMultiplier()
	}
	return p.defaultWin
}

// Score computes the entry increment for a round settled at the given time.
func (p *ScoringPolicy) Score(round model.Round, at time.Time) model.RoundDelta {
	m := p.Multiplier(round.Game, round.Won)
	score := m.Mul(round.BetAmount)

	wonAmount := decimal.Zero
	if round.Won {
		wonAmount = score
	}

	return model.RoundDelta{
		TournamentID:  round.TournamentID,
		WalletAddress: round.WalletAddress,
		Game:          round.Game,
		RoundID:       round.RoundID,
		BetAmount:     round.BetAmount,
		Won:           round.Won,
		Multiplier:    m,
		Score:         score,
		WonAmount:     wonAmount,
		At:            at,
	}
}

// compareEntries orders entries by score descending, then earlier join, then
// wallet address, giving a total order.
func compareEntries(a, b *model.Entry) int {
	if c := a.TotalScore.Cmp(b.TotalScore); c != 0 {
		return -c
	}
	if !a.JoinedAt.Equal(b.JoinedAt) {
		if a.JoinedAt.Before(b.JoinedAt) {
			return -1
		}
		return 1
	}
	switch {
	case a.WalletAddress < b.WalletAddress:
		return -1
	case a.WalletAddress > b.WalletAddress:
		return 1
	}
	return 0
}

// RankEntries returns the entries sorted into final standing order.
// The input slice is not modified.
func RankEntries(entries []*model.Entry) []*model.Entry {
	ranked := make([]*model.Entry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		return compareEntries(ranked[i], ranked[j]) < 0
	})
	return ranked
}

// Leaderboard numbers ranked entries from 1.
func Leaderboard(entries []*model.Entry) []model.LeaderboardRow {
	ranked := RankEntries(entries)
	rows := make([]model.LeaderboardRow, len(ranked))
	for i, e := range ranked {
		rows[i] = model.LeaderboardRow{Rank: i + 1, Entry: *e}
	}
	return rows
}

// BuildResults assigns ranks and prizes to the top entries. Only paid ranks
// produce results.
func BuildResults(t *model.Tournament, entries []*model.Entry, prizes PrizeTable, at time.Time) []model.Result {
	ranked := RankEntries(entries)
	amounts := prizes.Distribute(t.PrizePool, len(ranked))

	results := make([]model.Result, len(amounts))
	for i, amount := range amounts {
		e := ranked[i]
		results[i] = model.Result{
			TournamentID:  t.ID,
			WalletAddress: e.WalletAddress,
			Username:      e.Username,
			FinalScore:    e.TotalScore,
			Rank:          i + 1,
			PrizeAmount:   amount,
			CreatedAt:     at,
		}
	}
	return results
}
