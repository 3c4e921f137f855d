package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"casino-tournaments/internal/model"
)

// maxUsernameLen matches the username column width.
const maxUsernameLen = 255

// CoordinatorStore is the storage the coordinator reads and joins through.
type CoordinatorStore interface {
	Ping(ctx context.Context) error
	CreateTournament(ctx context.Context, t *model.Tournament) (*model.Tournament, error)
	GetTournament(ctx context.Context, id string) (*model.Tournament, error)
	ListTournaments(ctx context.Context, status model.TournamentStatus) ([]*model.Tournament, error)
	JoinTournament(ctx context.Context, e *model.Entry, now time.Time) (*model.Entry, error)
	GetEntry(ctx context.Context, tournamentID, wallet string) (*model.Entry, error)
	ListEntries(ctx context.Context, tournamentID string) ([]*model.Entry, error)
	ListResults(ctx context.Context, tournamentID string) ([]model.Result, error)
}

// Coordinator is the entry point for players and operators. It owns joins
// and read models and delegates scoring, lifecycle and finalization.
type Coordinator struct {
	store     CoordinatorStore
	ledger    *ScoreLedger
	clock     *LifecycleClock
	finalizer *Finalizer
	publisher Publisher
}

// NewCoordinator creates a new Coordinator instance.
func NewCoordinator(
	store CoordinatorStore,
	ledger *ScoreLedger,
	clock *LifecycleClock,
	finalizer *Finalizer,
	publisher Publisher,
) *Coordinator {
	return &Coordinator{
		store:     store,
		ledger:    ledger,
		clock:     clock,
		finalizer: finalizer,
		publisher: orNop(publisher),
	}
}

// Ping checks that the store is reachable.
func (c *Coordinator) Ping(ctx context.Context) error {
	return translate(c.store.Ping(ctx))
}

// CreateTournament validates and stores a new upcoming tournament.
// It backs the seed command and tests; there is no public route for it.
func (c *Coordinator) CreateTournament(ctx context.Context, in model.NewTournament, now time.Time) (*model.Tournament, error) {
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	id, err := ParseTournamentID(id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, ErrInvalidTournament
	}
	if !in.EndTime.After(in.StartTime) {
		return nil, ErrInvalidTournament
	}
	if in.EntryFee.IsNegative() || in.PrizePool.IsNegative() {
		return nil, ErrInvalidTournament
	}
	if in.MaxParticipants != nil && *in.MaxParticipants <= 0 {
		return nil, ErrInvalidTournament
	}

	gameType := strings.ToLower(strings.TrimSpace(in.GameType))
	if gameType == "" {
		gameType = model.GameTypeAll
	}
	if gameType != model.GameTypeAll && !c.ledger.policy.KnownGame(gameType) {
		return nil, ErrUnknownGame
	}

	t := &model.Tournament{
		ID:              id,
		Name:            name,
		Description:     strings.TrimSpace(in.Description),
		GameType:        gameType,
		EntryFee:        in.EntryFee,
		PrizePool:       in.PrizePool,
		MaxParticipants: in.MaxParticipants,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		Status:          model.StatusUpcoming,
		CreatedAt:       now,
	}

	created, err := c.store.CreateTournament(ctx, t)
	if err != nil {
		return nil, translate(err)
	}

	log.Info().
		Str("tournament_id", created.ID).
		Str("name", created.Name).
		Time("start_time", created.StartTime).
		Time("end_time", created.EndTime).
		Msg("Tournament created")

	return created, nil
}

// Join enters a wallet into an upcoming or active tournament.
func (c *Coordinator) Join(ctx context.Context, tournamentID, wallet, username string, now time.Time) (*model.Entry, error) {
	id, err := ParseTournamentID(tournamentID)
	if err != nil {
		return nil, err
	}
	addr, err := NormalizeWallet(wallet)
	if err != nil {
		return nil, err
	}
	username = strings.TrimSpace(username)
	if r := []rune(username); len(r) > maxUsernameLen {
		username = string(r[:maxUsernameLen])
	}

	entry, err := c.store.JoinTournament(ctx, &model.Entry{
		ID:            uuid.NewString(),
		TournamentID:  id,
		WalletAddress: addr,
		Username:      username,
		JoinedAt:      now,
	}, now)
	if err != nil {
		return nil, translate(err)
	}

	log.Info().
		Str("tournament_id", id).
		Str("wallet", addr).
		Msg("Wallet joined tournament")

	c.publisher.Publish(newEvent(model.EventEntryJoined, id, now, entry))

	return entry, nil
}

// ListTournaments returns tournaments ordered by start time with their
// participant counts. An empty status lists all of them.
func (c *Coordinator) ListTournaments(ctx context.Context, status string) ([]*model.Tournament, error) {
	s := model.TournamentStatus(strings.ToLower(strings.TrimSpace(status)))
	if s != "" && !s.Valid() {
		return nil, ErrInvalidStatus
	}

	tournaments, err := c.store.ListTournaments(ctx, s)
	if err != nil {
		return nil, translate(err)
	}
	if tournaments == nil {
		tournaments = []*model.Tournament{}
	}
	return tournaments, nil
}

// GetTournament returns one tournament.
func (c *Coordinator) GetTournament(ctx context.Context, tournamentID string) (*model.Tournament, error) {
	id, err := ParseTournamentID(tournamentID)
	if err != nil {
		return nil, err
	}
	t, err := c.store.GetTournament(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

// Leaderboard returns the entries ranked the way the Finalizer will rank them.
func (c *Coordinator) Leaderboard(ctx context.Context, tournamentID string) ([]model.LeaderboardRow, error) {
	t, err := c.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	entries, err := c.store.ListEntries(ctx, t.ID)
	if err != nil {
		return nil, translate(err)
	}
	return Leaderboard(entries), nil
}

// Results returns the stored results ordered by rank. Empty until the
// tournament is finalized.
func (c *Coordinator) Results(ctx context.Context, tournamentID string) ([]model.Result, error) {
	t, err := c.GetTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	results, err := c.store.ListResults(ctx, t.ID)
	if err != nil {
		return nil, translate(err)
	}
	if results == nil {
		results = []model.Result{}
	}
	return results, nil
}

// GetEntry returns one wallet's entry in a tournament.
func (c *Coordinator) GetEntry(ctx context.Context, tournamentID, wallet string) (*model.Entry, error) {
	id, err := ParseTournamentID(tournamentID)
	if err != nil {
		return nil, err
	}
	addr, err := NormalizeWallet(wallet)
	if err != nil {
		return nil, err
	}
	e, err := c.store.GetEntry(ctx, id, addr)
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

// RecordRound applies a settled round through the score ledger.
func (c *Coordinator) RecordRound(ctx context.Context, round model.Round, now time.Time) (*model.EntrySnapshot, error) {
	return c.ledger.RecordRound(ctx, round, now)
}

// Tick advances tournament statuses through the lifecycle clock.
func (c *Coordinator) Tick(ctx context.Context, now time.Time) (*model.TickResult, error) {
	return c.clock.Tick(ctx, now)
}

// Finalize finalizes one tournament.
func (c *Coordinator) Finalize(ctx context.Context, tournamentID string, now time.Time) (*model.FinalizationResult, error) {
	return c.finalizer.Finalize(ctx, tournamentID, now)
}

// FinalizeOverdue finalizes every ended tournament without results.
func (c *Coordinator) FinalizeOverdue(ctx context.Context, now time.Time) (*model.BatchFinalization, error) {
	return c.finalizer.FinalizeOverdue(ctx, now)
}
