package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casino-tournaments/internal/model"
	"casino-tournaments/internal/repository"
)

// recorder is a Publisher that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []model.Event
}

func (r *recorder) Publish(evt model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) ofType(typ model.EventType) []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	store     *repository.MemoryStore
	events    *recorder
	ledger    *ScoreLedger
	clock     *LifecycleClock
	finalizer *Finalizer
	coord     *Coordinator
}

func newFixture() *fixture {
	store := repository.NewMemoryStore()
	events := &recorder{}
	ledger := NewScoreLedger(store, DefaultScoringPolicy(), events)
	clock := NewLifecycleClock(store, events)
	finalizer := NewFinalizer(store, DefaultPrizeTable(), events, 4)
	return &fixture{
		store:     store,
		events:    events,
		ledger:    ledger,
		clock:     clock,
		finalizer: finalizer,
		coord:     NewCoordinator(store, ledger, clock, finalizer, events),
	}
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func walletAddr(i int) string {
	return fmt.Sprintf("0x%040x", i)
}

// createTournament creates a tournament running from start to end with a 1000 prize pool.
func (f *fixture) createTournament(t require.TestingT, start, end time.Time, capacity *int) *model.Tournament {
	tr, err := f.coord.CreateTournament(context.Background(), model.NewTournament{
		Name:            "Dice Sprint",
		GameType:        "dice",
		EntryFee:        decimal.NewFromInt(5),
		PrizePool:       decimal.NewFromInt(1000),
		MaxParticipants: capacity,
		StartTime:       start,
		EndTime:         end,
	}, start.Add(-time.Hour))
	require.NoError(t, err)
	return tr
}

// activeTournament creates a tournament spanning [t0, t0+1h) and ticks it active.
func (f *fixture) activeTournament(t require.TestingT) *model.Tournament {
	tr := f.createTournament(t, t0, t0.Add(time.Hour), nil)
	_, err := f.clock.Tick(context.Background(), t0)
	require.NoError(t, err)
	return tr
}

func (f *fixture) join(t require.TestingT, tournamentID string, i int, at time.Time) *model.Entry {
	e, err := f.coord.Join(context.Background(), tournamentID, walletAddr(i), fmt.Sprintf("player%d", i), at)
	require.NoError(t, err)
	return e
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ============================================================================
// Score Ledger
// ============================================================================

func TestRecordRound_AppliesScore(t *testing.T) {
	f := newFixture()
	tr := f.activeTournament(t)
	f.join(t, tr.ID, 1, t0)

	snap, err := f.ledger.RecordRound(context.Background(), model.Round{
		TournamentID:  tr.ID,
		WalletAddress: walletAddr(1),
		Game:          "dice",
		BetAmount:     dec("25"),
		Won:           true,
		RoundID:       "0xaaa",
	}, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, snap.Duplicate)
	assert.True(t, snap.TotalScore.Equal(dec("50")))
	assert.True(t, snap.TotalWon.Equal(dec("50")))
	assert.True(t, snap.TotalWagered.Equal(dec("25")))
	assert.True(t, snap.BestMultiplier.Equal(dec("2")))
	assert.Equal(t, int64(1), snap.GamesPlayed)

	snap, err = f.ledger.RecordRound(context.Background(), model.Round{
		TournamentID:  tr.ID,
		WalletAddress: walletAddr(1),
		BetAmount:     dec("10"),
		Won:           false,
	}, t0.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, snap.TotalScore.Equal(dec("50")))
	assert.True(t, snap.TotalWon.Equal(dec("50")))
	assert.True(t, snap.TotalWagered.Equal(dec("35")))
	assert.Equal(t, int64(2), snap.GamesPlayed)

	assert.Len(t, f.events.ofType(model.EventEntryUpdated), 2)
}

func TestRecordRound_ReplayIsDuplicate(t *testing.T) {
	f := newFixture()
	tr := f.activeTournament(t)
	f.join(t, tr.ID, 1, t0)

	round := model.Round{
		TournamentID:  tr.ID,
		WalletAddress: walletAddr(1),
		Game:          "dice",
		BetAmount:     dec("10"),
		Won:           true,
		RoundID:       "0xbeef",
	}
	_, err := f.ledger.RecordRound(context.Background(), round, t0)
	require.NoError(t, err)

	snap, err := f.ledger.RecordRound(context.Background(), round, t0)
	require.NoError(t, err)
	assert.True(t, snap.Duplicate)
	assert.Equal(t, int64(1), snap.GamesPlayed)
	assert.True(t, snap.TotalScore.Equal(dec("20")))
	assert.Len(t, f.events.ofType(model.EventEntryUpdated), 1)
}

func TestRecordRound_ReplayIgnoresRoundIDCase(t *testing.T) {
	f := newFixture()
	tr := f.activeTournament(t)
	f.join(t, tr.ID, 1, t0)

	round := model.Round{
		TournamentID:  tr.ID,
		WalletAddress: walletAddr(1),
		Game:          "dice",
		BetAmount:     dec("10"),
		Won:           true,
		RoundID:       "0xabcdef01",
	}
	_, err := f.ledger.RecordRound(context.Background(), round, t0)
	require.NoError(t, err)

	round.RoundID = " 0xABCDEF01 "
	snap, err := f.ledger.RecordRound(context.Background(), round, t0)
	require.NoError(t, err)
	assert.True(t, snap.Duplicate)
	assert.Equal(t, int64(1), snap.GamesPlayed)
	assert.True(t, snap.TotalScore.Equal(dec("20")))
}

func TestRecordRound_SmallestStorableBet(t *testing.T) {
	f := newFixture()
	tr := f.activeTournament(t)
	f.join(t, tr.ID, 1, t0)

	snap, err := f.ledger.RecordRound(context.Background(), model.Round{
		TournamentID:  tr.ID,
		WalletAddress: walletAddr(1),
		Game:          "dice",
		BetAmount:     dec("0.000000000000000001"),
		Won:           true,
	}, t0)
	require.NoError(t, err)
	assert.True(t, snap.TotalScore.Equal(dec("0.000000000000000002")))
}

func TestRecordRound_WalletCaseInsensitive(t *testing.T) {
	f := newFixture()
	tr := f.activeTournament(t)

	mixed := "0xABCDEF0000000000000000000000000000000001"
	_, err := f.coord.Join(context.Background(), tr.ID, mixed, "", t0)
	require.NoError(t, err)

	snap, err := f.ledger.RecordRound(context.Background(), model.Round{
		TournamentID:  tr.ID,
		WalletAddress: "0xabcdef0000000000000000000000000000000001",
		BetAmount:     dec("1"),
		Won:           true,
	}, t0)
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0000000000000000000000000000000001", snap.WalletAddress)
}

func TestRecordRound_Errors(t *testing.T) {
	f := newFixture()
	tr := f.activeTournament(t)
	f.join(t, tr.ID, 1, t0)
	upcoming := f.createTournament(t, t0.Add(24*time.Hour), t0.Add(25*time.Hour), nil)
	f.join(t, upcoming.ID, 1, t0)

	valid := model.Round{
		TournamentID:  tr.ID,
		WalletAddress: walletAddr(1),
		Game:          "dice",
		BetAmount:     dec("10"),
		Won:           true,
	}

	tests := []struct {
		name   string
		mutate func(r *model.Round)
		at     time.Time
		want   error
		kind   error
	}{
		{"zero bet", func(r *model.Round) { r.BetAmount = decimal.Zero }, t0, ErrInvalidAmount, ErrInvalidInput},
		{"negative bet", func(r *model.Round) { r.BetAmount = dec("-1") }, t0, ErrInvalidAmount, ErrInvalidInput},
		{"bet too large", func(r *model.Round) { r.BetAmount = dec("1e21") }, t0, ErrInvalidAmount, ErrInvalidInput},
		{"bet past 18 decimals", func(r *model.Round) { r.BetAmount = dec("0.0000000000000000001") }, t0, ErrInvalidAmount, ErrInvalidInput},
		{"score too large", func(r *model.Round) { r.BetAmount = dec("60000000000000000000") }, t0, ErrInvalidAmount, ErrInvalidInput},
		{"bad id", func(r *model.Round) { r.TournamentID = "nope" }, t0, ErrInvalidID, ErrInvalidInput},
		{"bad wallet", func(r *model.Round) { r.WalletAddress = "0x123" }, t0, ErrInvalidWallet, ErrInvalidInput},
		{"unknown game", func(r *model.Round) { r.Game = "blackjack" }, t0, ErrUnknownGame, ErrInvalidInput},
		{"other game", func(r *model.Round) { r.Game = "slots" }, t0, ErrGameMismatch, ErrInvalidInput},
		{"not joined", func(r *model.Round) { r.WalletAddress = walletAddr(2) }, t0, ErrNoSuchEntry, ErrNotFound},
		{"missing tournament", func(r *model.Round) { r.TournamentID = "00000000-0000-0000-0000-000000000001" }, t0, ErrTournamentNotFound, ErrNotFound},
		{"upcoming", func(r *model.Round) { r.TournamentID = upcoming.ID }, t0, ErrTournamentNotActive, ErrInvalidState},
		{"after end", func(r *model.Round) {}, t0.Add(time.Hour), ErrTournamentNotActive, ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			_, err := f.ledger.RecordRound(context.Background(), r, tt.at)
			require.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	e, err := f.coord.GetEntry(context.Background(), tr.ID, walletAddr(1))
	require.NoError(t, err)
	assert.Equal(t, int64(0), e.GamesPlayed, "rejected rounds must not change the entry")
}

func TestRecordRound_AllGamesTournament(t *testing.T) {
	f := newFixture()
	tr, err := f.coord.CreateTournament(context.Background(), model.NewTournament{
		Name:      "Open Floor",
		PrizePool: dec("100"),
		StartTime: t0,
		EndTime:   t0.Add(time.Hour),
	}, t0)
	require.NoError(t, err)
	assert.Equal(t, model.GameTypeAll, tr.GameType)
	_, err = f.clock.Tick(context.Background(), t0)
	require.NoError(t, err)
	f.join(t, tr.ID, 1, t0)

	for _, g := range []string{"slots", "plinko", "videopoker"} {
		_, err := f.ledger.RecordRound(context.Background(), model.Round{
			TournamentID:  tr.ID,
			WalletAddress: walletAddr(1),
			Game:          g,
			BetAmount:     dec("1"),
			Won:           true,
		}, t0)
		require.NoError(t, err, g)
	}
}

// ============================================================================
// Coordinator
// ============================================================================

func TestJoin(t *testing.T) {
	f := newFixture()
	capacity := 1
	tr := f.createTournament(t, t0, t0.Add(time.Hour), &capacity)

	e := f.join(t, tr.ID, 1, t0.Add(-time.Minute))
	assert.Equal(t, walletAddr(1), e.WalletAddress)
	assert.Equal(t, "player1", e.Username)
	assert.True(t, e.TotalScore.IsZero())

	_, err := f.coord.Join(context.Background(), tr.ID, walletAddr(1), "", t0)
	assert.ErrorIs(t, err, ErrAlreadyJoined)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.coord.Join(context.Background(), tr.ID, walletAddr(2), "", t0)
	assert.ErrorIs(t, err, ErrTournamentFull)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = f.coord.Join(context.Background(), "00000000-0000-0000-0000-000000000001", walletAddr(2), "", t0)
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	_, err = f.coord.Join(context.Background(), tr.ID, "not-a-wallet", "", t0)
	assert.ErrorIs(t, err, ErrInvalidWallet)

	got, err := f.coord.GetTournament(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ParticipantCount)
	assert.Len(t, f.events.ofType(model.EventEntryJoined), 1)
}

func TestJoin_AfterEndTimeBeforeTick(t *testing.T) {
	f := newFixture()
	tr := f.activeTournament(t)

	_, err := f.coord.Join(context.Background(), tr.ID, walletAddr(1), "", tr.EndTime)
	assert.ErrorIs(t, err, ErrTournamentClosed)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCreateTournament_Validation(t *testing.T) {
	f := newFixture()
	zero := 0

	tests := []struct {
		name string
		in   model.NewTournament
		want error
	}{
		{"empty name", model.NewTournament{StartTime: t0, EndTime: t0.Add(time.Hour)}, ErrInvalidTournament},
		{"end before start", model.NewTournament{Name: "x", StartTime: t0, EndTime: t0}, ErrInvalidTournament},
		{"negative pool", model.NewTournament{Name: "x", PrizePool: dec("-1"), StartTime: t0, EndTime: t0.Add(time.Hour)}, ErrInvalidTournament},
		{"negative fee", model.NewTournament{Name: "x", EntryFee: dec("-1"), StartTime: t0, EndTime: t0.Add(time.Hour)}, ErrInvalidTournament},
		{"zero capacity", model.NewTournament{Name: "x", MaxParticipants: &zero, StartTime: t0, EndTime: t0.Add(time.Hour)}, ErrInvalidTournament},
		{"unknown game", model.NewTournament{Name: "x", GameType: "blackjack", StartTime: t0, EndTime: t0.Add(time.Hour)}, ErrUnknownGame},
		{"bad id", model.NewTournament{ID: "abc", Name: "x", StartTime: t0, EndTime: t0.Add(time.Hour)}, ErrInvalidID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.coord.CreateTournament(context.Background(), tt.in, t0)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	in := model.NewTournament{ID: "6f1c2a43-9f3e-4c55-8a7e-2d7a1b0c9e11", Name: "x", StartTime: t0, EndTime: t0.Add(time.Hour)}
	_, err := f.coord.CreateTournament(context.Background(), in, t0)
	require.NoError(t, err)
	_, err = f.coord.CreateTournament(context.Background(), in, t0)
	assert.ErrorIs(t, err, ErrTournamentExists)
}

func TestListTournaments(t *testing.T) {
	f := newFixture()
	later := f.createTournament(t, t0.Add(2*time.Hour), t0.Add(3*time.Hour), nil)
	first := f.createTournament(t, t0, t0.Add(time.Hour), nil)
	f.join(t, first.ID, 1, t0)
	f.join(t, first.ID, 2, t0)

	_, err := f.clock.Tick(context.Background(), t0)
	require.NoError(t, err)

	all, err := f.coord.ListTournaments(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, 2, all[0].ParticipantCount)
	assert.Equal(t, later.ID, all[1].ID)

	active, err := f.coord.ListTournaments(context.Background(), "active")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first.ID, active[0].ID)

	completed, err := f.coord.ListTournaments(context.Background(), "completed")
	require.NoError(t, err)
	assert.NotNil(t, completed)
	assert.Empty(t, completed)

	_, err = f.coord.ListTournaments(context.Background(), "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestLeaderboardAndResults(t *testing.T) {
	f := newFixture()
	tr := f.activeTournament(t)
	for i := 1; i <= 4; i++ {
		f.join(t, tr.ID, i, t0.Add(time.Duration(i)*time.Second))
	}
	bets := map[int]string{1: "10", 2: "40", 3: "30", 4: "40"}
	for i, bet := range bets {
		_, err := f.ledger.RecordRound(context.Background(), model.Round{
			TournamentID: tr.ID, WalletAddress: walletAddr(i), BetAmount: dec(bet), Won: true,
		}, t0.Add(time.Minute))
		require.NoError(t, err)
	}

	board, err := f.coord.Leaderboard(context.Background(), tr.ID)
	require.NoError(t, err)
	require.Len(t, board, 4)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, walletAddr(2), board[0].WalletAddress) // 80, joined before wallet 4
	assert.Equal(t, walletAddr(4), board[1].WalletAddress)
	assert.Equal(t, walletAddr(3), board[2].WalletAddress)
	assert.Equal(t, walletAddr(1), board[3].WalletAddress)
	assert.Equal(t, 4, board[3].Rank)

	results, err := f.coord.Results(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = f.finalizer.Finalize(context.Background(), tr.ID, tr.EndTime)
	require.NoError(t, err)

	results, err = f.coord.Results(context.Background(), tr.ID)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, res := range results {
		assert.Equal(t, board[i].WalletAddress, res.WalletAddress)
		assert.Equal(t, i+1, res.Rank)
		assert.True(t, res.FinalScore.Equal(board[i].TotalScore))
	}
	assert.True(t, results[0].PrizeAmount.Equal(dec("500")))
	assert.True(t, results[1].PrizeAmount.Equal(dec("300")))
	assert.True(t, results[2].PrizeAmount.Equal(dec("200")))
	assert.Equal(t, "player2", results[0].Username)

	_, err = f.coord.Leaderboard(context.Background(), "00000000-0000-0000-0000-000000000001")
	assert.ErrorIs(t, err, ErrTournamentNotFound)
}

func TestGetEntry(t *testing.T) {
	f := newFixture()
	tr := f.activeTournament(t)
	f.join(t, tr.ID, 1, t0)

	e, err := f.coord.GetEntry(context.Background(), tr.ID, walletAddr(1))
	require.NoError(t, err)
	assert.Equal(t, tr.ID, e.TournamentID)

	_, err = f.coord.GetEntry(context.Background(), tr.ID, walletAddr(2))
	assert.ErrorIs(t, err, ErrNoSuchEntry)
}

// ============================================================================
// Lifecycle Clock and Finalizer
// ============================================================================

func TestTick_StartAndEndWithinOneTick(t *testing.T) {
	f := newFixture()
	tr := f.createTournament(t, t0, t0.Add(time.Hour), nil)

	res, err := f.clock.Tick(context.Background(), t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{tr.ID}, res.Started)
	assert.Equal(t, []string{tr.ID}, res.Ended)

	got, err := f.coord.GetTournament(context.Background(), tr.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Nil(t, got.FinalizedAt, "the clock never writes results")
	assert.Len(t, f.events.ofType(model.EventStatusChanged), 2)

	res, err = f.clock.Tick(context.Background(), t0.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, res.Started)
	assert.Empty(t, res.Ended)
}

func TestFinalize_BeforeEnd(t *testing.T) {
	f := newFixture()
	tr := f.activeTournament(t)

	_, err := f.finalizer.Finalize(context.Background(), tr.ID, tr.EndTime.Add(-time.Nanosecond))
	assert.ErrorIs(t, err, ErrTournamentNotEnded)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = f.finalizer.Finalize(context.Background(), "00000000-0000-0000-0000-000000000001", tr.EndTime)
	assert.ErrorIs(t, err, ErrTournamentNotFound)

	_, err = f.finalizer.Finalize(context.Background(), "bogus", tr.EndTime)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestFinalize_AfterClockCompleted(t *testing.T) {
	f := newFixture()
	tr := f.activeTournament(t)
	f.join(t, tr.ID, 1, t0)

	_, err := f.clock.Tick(context.Background(), tr.EndTime)
	require.NoError(t, err)

	res, err := f.finalizer.Finalize(context.Background(), tr.ID, tr.EndTime.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, res.AlreadyFinalized)
	require.Len(t, res.Results, 1)
	assert.True(t, res.Results[0].PrizeAmount.Equal(dec("500")))
	assert.Len(t, f.events.ofType(model.EventTournamentFinalized), 1)
}

// roundDuringRanking records a round from another goroutine while the store
// ranks the entries of the tournament being finalized.
type roundDuringRanking struct {
	*repository.MemoryStore
	record func() error
	errs   chan error
}

func (s *roundDuringRanking) FinalizeTournament(ctx context.Context, id string, at time.Time, rank model.RankFunc) (bool, error) {
	return s.MemoryStore.FinalizeTournament(ctx, id, at, func(t *model.Tournament, entries []*model.Entry) []model.Result {
		go func() { s.errs <- s.record() }()
		return rank(t, entries)
	})
}

func TestFinalize_RoundInFlightDoesNotChangeStandings(t *testing.T) {
	f := newFixture()
	tr := f.activeTournament(t)
	f.join(t, tr.ID, 1, t0)
	f.join(t, tr.ID, 2, t0.Add(time.Second))

	_, err := f.ledger.RecordRound(context.Background(), model.Round{
		TournamentID: tr.ID, WalletAddress: walletAddr(1), BetAmount: dec("10"), Won: true,
	}, t0)
	require.NoError(t, err)

	store := &roundDuringRanking{
		MemoryStore: f.store,
		errs:        make(chan error, 1),
		record: func() error {
			_, err := f.ledger.RecordRound(context.Background(), model.Round{
				TournamentID: tr.ID, WalletAddress: walletAddr(2), BetAmount: dec("100"), Won: true,
			}, tr.EndTime.Add(-time.Millisecond))
			return err
		},
	}
	finalizer := NewFinalizer(store, DefaultPrizeTable(), nil, 1)

	res, err := finalizer.Finalize(context.Background(), tr.ID, tr.EndTime)
	require.NoError(t, err)
	assert.ErrorIs(t, <-store.errs, ErrTournamentNotActive)

	require.Len(t, res.Results, 2)
	assert.Equal(t, walletAddr(1), res.Results[0].WalletAddress)
	assert.True(t, res.Results[0].PrizeAmount.Equal(dec("500")))
	for _, r := range res.Results {
		e, err := f.coord.GetEntry(context.Background(), tr.ID, r.WalletAddress)
		require.NoError(t, err)
		assert.True(t, r.FinalScore.Equal(e.TotalScore), "%s: result %s, entry %s", r.WalletAddress, r.FinalScore, e.TotalScore)
	}
}

func TestFinalizeOverdue(t *testing.T) {
	f := newFixture()
	a := f.createTournament(t, t0, t0.Add(time.Hour), nil)
	b := f.createTournament(t, t0, t0.Add(2*time.Hour), nil)
	running := f.createTournament(t, t0, t0.Add(5*time.Hour), nil)
	f.join(t, a.ID, 1, t0)

	_, err := f.finalizer.Finalize(context.Background(), a.ID, a.EndTime)
	require.NoError(t, err)

	batch, err := f.finalizer.FinalizeOverdue(context.Background(), t0.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, batch.Finalized)
	assert.Empty(t, batch.Failed)

	got, err := f.coord.GetTournament(context.Background(), running.ID)
	require.NoError(t, err)
	assert.Nil(t, got.FinalizedAt)

	batch, err = f.finalizer.FinalizeOverdue(context.Background(), t0.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, batch.Finalized)
}

// failingStore times out when finalizing.
type failingStore struct {
	*repository.MemoryStore
}

func (failingStore) FinalizeTournament(context.Context, string, time.Time, model.RankFunc) (bool, error) {
	return false, fmt.Errorf("failed to lock tournament: %w", context.DeadlineExceeded)
}

func TestFinalizeOverdue_FailuresAreReported(t *testing.T) {
	f := newFixture()
	tr := f.createTournament(t, t0, t0.Add(time.Hour), nil)

	finalizer := NewFinalizer(failingStore{f.store}, DefaultPrizeTable(), nil, 2)
	batch, err := finalizer.FinalizeOverdue(context.Background(), t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, batch.Finalized)
	require.Contains(t, batch.Failed, tr.ID)

	_, err = finalizer.Finalize(context.Background(), tr.ID, t0.Add(2*time.Hour))
	assert.ErrorIs(t, err, ErrTransient)
}

// ============================================================================
// Errors
// ============================================================================

func TestKind(t *testing.T) {
	assert.Equal(t, "not_found", Kind(ErrNoSuchEntry))
	assert.Equal(t, "invalid_input", Kind(ErrInvalidAmount))
	assert.Equal(t, "invalid_state", Kind(ErrTournamentNotEnded))
	assert.Equal(t, "conflict", Kind(ErrTournamentFull))
	assert.Equal(t, "transient", Kind(translate(context.DeadlineExceeded)))
	assert.Equal(t, "internal", Kind(errors.New("boom")))
	assert.Equal(t, "not_found", Kind(fmt.Errorf("wrapped: %w", ErrTournamentNotFound)))
}

func TestNormalizeWallet(t *testing.T) {
	addr, err := NormalizeWallet("  0xAbCdEf0123456789aBcDeF0123456789AbCdEf01 ")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", addr)

	for _, bad := range []string{"", "0x", "abcdef0123456789abcdef0123456789abcdef01", "0xZZcdef0123456789abcdef0123456789abcdef01", "0xabcdef0123456789abcdef0123456789abcdef0"} {
		_, err := NormalizeWallet(bad)
		assert.ErrorIs(t, err, ErrInvalidWallet, bad)
	}
}
