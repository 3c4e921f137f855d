package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"casino-tournaments/internal/model"
)

// FinalizerStore is the storage the finalizer needs.
type FinalizerStore interface {
	GetTournament(ctx context.Context, id string) (*model.Tournament, error)
	ListResults(ctx context.Context, tournamentID string) ([]model.Result, error)
	ListFinalizable(ctx context.Context, now time.Time) ([]string, error)
	FinalizeTournament(ctx context.Context, id string, at time.Time, rank model.RankFunc) (bool, error)
}

// DefaultFinalizeConcurrency bounds parallel finalizations in a batch.
const DefaultFinalizeConcurrency = 4

// Finalizer ranks entries of ended tournaments and writes results exactly once.
type Finalizer struct {
	store       FinalizerStore
	prizes      PrizeTable
	publisher   Publisher
	concurrency int
}

// NewFinalizer creates a new Finalizer instance.
func NewFinalizer(store FinalizerStore, prizes PrizeTable, publisher Publisher, concurrency int) *Finalizer {
	if concurrency <= 0 {
		concurrency = DefaultFinalizeConcurrency
	}
	return &Finalizer{
		store:       store,
		prizes:      prizes,
		publisher:   orNop(publisher),
		concurrency: concurrency,
	}
}

// Finalize writes the results of an ended tournament. Calling it again, or
// concurrently, returns the stored results with AlreadyFinalized set and
// writes nothing.
func (f *Finalizer) Finalize(ctx context.Context, id string, now time.Time) (*model.FinalizationResult, error) {
	id, err := ParseTournamentID(id)
	if err != nil {
		return nil, err
	}

	t, err := f.store.GetTournament(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	if t.IsFinalized() {
		return f.alreadyFinalized(ctx, t)
	}
	if now.Before(t.EndTime) {
		return nil, ErrTournamentNotEnded
	}

	// Ranking runs inside the store's finalize transaction, against the
	// locked tournament and entries no round can change anymore.
	var (
		final      *model.Tournament
		results    []model.Result
		entryCount int
	)
	applied, err := f.store.FinalizeTournament(ctx, id, now, func(locked *model.Tournament, entries []*model.Entry) []model.Result {
		final = locked
		entryCount = len(entries)
		results = BuildResults(locked, entries, f.prizes, now)
		return results
	})
	if err != nil {
		return nil, translate(err)
	}
	if !applied {
		log.Debug().Str("tournament_id", id).Msg("Tournament finalized concurrently, returning stored results")
		current, err := f.store.GetTournament(ctx, id)
		if err != nil {
			return nil, translate(err)
		}
		return f.alreadyFinalized(ctx, current)
	}

	out := &model.FinalizationResult{
		TournamentID:   id,
		TournamentName: final.Name,
		PrizePool:      final.PrizePool,
		EntryCount:     entryCount,
		Results:        results,
		FinalizedAt:    now,
	}

	log.Info().
		Str("tournament_id", id).
		Int("entries", entryCount).
		Int("paid_ranks", len(results)).
		Str("prize_pool", final.PrizePool.String()).
		Msg("Tournament finalized")

	f.publisher.Publish(newEvent(model.EventTournamentFinalized, id, now, out))

	return out, nil
}

func (f *Finalizer) alreadyFinalized(ctx context.Context, t *model.Tournament) (*model.FinalizationResult, error) {
	results, err := f.store.ListResults(ctx, t.ID)
	if err != nil {
		return nil, translate(err)
	}

	out := &model.FinalizationResult{
		TournamentID:     t.ID,
		TournamentName:   t.Name,
		PrizePool:        t.PrizePool,
		AlreadyFinalized: true,
		EntryCount:       t.ParticipantCount,
		Results:          results,
	}
	if t.FinalizedAt != nil {
		out.FinalizedAt = *t.FinalizedAt
	}
	return out, nil
}

// FinalizeOverdue finalizes every ended tournament that has no results yet.
// Failures are reported per tournament and never abort the batch.
func (f *Finalizer) FinalizeOverdue(ctx context.Context, now time.Time) (*model.BatchFinalization, error) {
	ids, err := f.store.ListFinalizable(ctx, now)
	if err != nil {
		return nil, translate(err)
	}

	batch := &model.BatchFinalization{
		Finalized: []string{},
		Skipped:   []string{},
		Failed:    map[string]string{},
	}
	if len(ids) == 0 {
		return batch, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for _, id := range ids {
		g.Go(func() error {
			res, err := f.Finalize(gctx, id, now)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				log.Error().Err(err).Str("tournament_id", id).Msg("Failed to finalize tournament")
				batch.Failed[id] = err.Error()
			case res.AlreadyFinalized:
				batch.Skipped = append(batch.Skipped, id)
			default:
				batch.Finalized = append(batch.Finalized, id)
			}
			return nil
		})
	}
	_ = g.Wait()

	log.Info().
		Int("finalized", len(batch.Finalized)).
		Int("skipped", len(batch.Skipped)).
		Int("failed", len(batch.Failed)).
		Msg("Overdue tournaments processed")

	return batch, nil
}
