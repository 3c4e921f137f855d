package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"casino-tournaments/internal/model"
	"casino-tournaments/internal/pkg/lock"
)

// MemoryStore is an in-process store with the same semantics as
// PostgresStore. It backs local development (database.driver=memory) and the
// service tests.
//
// Structural changes (create, join, tick, finalize) take the write lock.
// Rounds take the read lock plus a per-entry key lock, so rounds for
// different entries proceed in parallel.
type MemoryStore struct {
	mu          sync.RWMutex
	tournaments map[string]*model.Tournament
	entries     map[string]map[string]*model.Entry
	results     map[string][]model.Result

	roundsMu sync.Mutex
	rounds   map[string]map[string]struct{}

	entryLocks *lock.KeyLock
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tournaments: make(map[string]*model.Tournament),
		entries:     make(map[string]map[string]*model.Entry),
		results:     make(map[string][]model.Result),
		rounds:      make(map[string]map[string]struct{}),
		entryLocks:  lock.NewKeyLock(),
	}
}

func entryKey(tournamentID, wallet string) string {
	return tournamentID + "/" + wallet
}

func cloneTournament(t *model.Tournament) *model.Tournament {
	c := *t
	if t.MaxParticipants != nil {
		m := *t.MaxParticipants
		c.MaxParticipants = &m
	}
	if t.FinalizedAt != nil {
		f := *t.FinalizedAt
		c.FinalizedAt = &f
	}
	return &c
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// CreateTournament stores a copy of t.
func (s *MemoryStore) CreateTournament(_ context.Context, t *model.Tournament) (*model.Tournament, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tournaments[t.ID]; ok {
		return nil, ErrDuplicateTournament
	}

	stored := cloneTournament(t)
	stored.ParticipantCount = 0
	stored.FinalizedAt = nil
	stored.UpdatedAt = stored.CreatedAt
	s.tournaments[t.ID] = stored
	s.entries[t.ID] = make(map[string]*model.Entry)

	return cloneTournament(stored), nil
}

// GetTournament retrieves a tournament by id.
func (s *MemoryStore) GetTournament(_ context.Context, id string) (*model.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tournaments[id]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	return cloneTournament(t), nil
}

// ListTournaments returns tournaments ordered by start time, optionally filtered by status.
func (s *MemoryStore) ListTournaments(_ context.Context, status model.TournamentStatus) ([]*model.Tournament, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Tournament
	for _, t := range s.tournaments {
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, cloneTournament(t))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ActivateStarted moves upcoming tournaments whose start time has passed to active.
func (s *MemoryStore) ActivateStarted(_ context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, t := range s.tournaments {
		if t.Status == model.StatusUpcoming && !t.StartTime.After(now) {
			t.Status = model.StatusActive
			t.UpdatedAt = time.Now()
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// CompleteEnded moves active tournaments whose end time has passed to completed.
func (s *MemoryStore) CompleteEnded(_ context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, t := range s.tournaments {
		if t.Status == model.StatusActive && !t.EndTime.After(now) {
			t.Status = model.StatusCompleted
			t.UpdatedAt = time.Now()
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// ListFinalizable returns ids of ended tournaments without results, oldest end first.
func (s *MemoryStore) ListFinalizable(_ context.Context, now time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var due []*model.Tournament
	for _, t := range s.tournaments {
		if t.FinalizedAt == nil && !t.EndTime.After(now) {
			due = append(due, t)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].EndTime.Equal(due[j].EndTime) {
			return due[i].EndTime.Before(due[j].EndTime)
		}
		return due[i].ID < due[j].ID
	})

	ids := make([]string, len(due))
	for i, t := range due {
		ids[i] = t.ID
	}
	return ids, nil
}

// FinalizeTournament ranks the entries and stores the results under the
// write lock, so no round can land between the read and the write. Returns
// false when the tournament was already finalized or has not ended by at.
func (s *MemoryStore) FinalizeTournament(_ context.Context, id string, at time.Time, rank model.RankFunc) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[id]
	if !ok {
		return false, ErrTournamentNotFound
	}
	if t.FinalizedAt != nil || t.EndTime.After(at) {
		return false, nil
	}

	results := rank(cloneTournament(t), s.sortedEntries(id))

	finalizedAt := at
	t.Status = model.StatusCompleted
	t.FinalizedAt = &finalizedAt
	t.UpdatedAt = time.Now()

	stored := make([]model.Result, len(results))
	copy(stored, results)
	sort.Slice(stored, func(i, j int) bool { return stored[i].Rank < stored[j].Rank })
	s.results[id] = stored

	return true, nil
}

// ListResults returns the stored results of a tournament ordered by rank.
func (s *MemoryStore) ListResults(_ context.Context, tournamentID string) ([]model.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.results[tournamentID]
	out := make([]model.Result, len(stored))
	copy(out, stored)
	return out, nil
}

// JoinTournament adds an entry if the tournament is open and has capacity.
func (s *MemoryStore) JoinTournament(_ context.Context, e *model.Entry, now time.Time) (*model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tournaments[e.TournamentID]
	if !ok {
		return nil, ErrTournamentNotFound
	}
	if t.Status == model.StatusCompleted || !t.EndTime.After(now) {
		return nil, ErrTournamentClosed
	}
	if _, joined := s.entries[e.TournamentID][e.WalletAddress]; joined {
		return nil, ErrDuplicateEntry
	}
	if t.IsFull() {
		return nil, ErrTournamentFull
	}

	stored := e.Clone()
	s.entries[e.TournamentID][e.WalletAddress] = stored
	t.ParticipantCount++
	t.UpdatedAt = time.Now()

	return stored.Clone(), nil
}

// ApplyRound adds a scored round to an entry with the same checks as the
// PostgreSQL implementation.
func (s *MemoryStore) ApplyRound(ctx context.Context, d model.RoundDelta) (*model.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tournaments[d.TournamentID]
	if !ok {
		return nil, false, ErrTournamentNotFound
	}
	e, joined := s.entries[d.TournamentID][d.WalletAddress]
	active := t.Status == model.StatusActive && t.FinalizedAt == nil && t.EndTime.After(d.At)

	var (
		snapshot  *model.Entry
		duplicate bool
	)
	err := s.entryLocks.WithLockContext(ctx, entryKey(d.TournamentID, d.WalletAddress), func() error {
		if d.RoundID != "" && s.claimRound(d.TournamentID, d.RoundID, joined && active) {
			if !joined {
				return ErrEntryNotFound
			}
			duplicate = true
			snapshot = e.Clone()
			return nil
		}
		if !joined {
			return ErrEntryNotFound
		}
		if !active {
			return ErrTournamentNotActive
		}

		e.TotalScore = e.TotalScore.Add(d.Score)
		e.GamesPlayed++
		if d.Multiplier.GreaterThan(e.BestMultiplier) {
			e.BestMultiplier = d.Multiplier
		}
		e.TotalWagered = e.TotalWagered.Add(d.BetAmount)
		e.TotalWon = e.TotalWon.Add(d.WonAmount)
		snapshot = e.Clone()
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return snapshot, duplicate, nil
}

// claimRound reports whether the round id was already recorded, recording it
// when claim is set.
func (s *MemoryStore) claimRound(tournamentID, roundID string, claim bool) bool {
	s.roundsMu.Lock()
	defer s.roundsMu.Unlock()

	seen := s.rounds[tournamentID]
	if _, ok := seen[roundID]; ok {
		return true
	}
	if claim {
		if seen == nil {
			seen = make(map[string]struct{})
			s.rounds[tournamentID] = seen
		}
		seen[roundID] = struct{}{}
	}
	return false
}

// GetEntry retrieves one player's entry.
func (s *MemoryStore) GetEntry(_ context.Context, tournamentID, wallet string) (*model.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[tournamentID][wallet]
	if !ok {
		return nil, ErrEntryNotFound
	}

	var snapshot *model.Entry
	_ = s.entryLocks.WithLock(entryKey(tournamentID, wallet), func() error {
		snapshot = e.Clone()
		return nil
	})
	return snapshot, nil
}

// ListEntries returns all entries of a tournament ordered by score, then
// join time, then wallet address.
func (s *MemoryStore) ListEntries(_ context.Context, tournamentID string) ([]*model.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedEntries(tournamentID), nil
}

// sortedEntries copies the entries of a tournament in ranking order. The
// caller holds mu.
func (s *MemoryStore) sortedEntries(tournamentID string) []*model.Entry {
	out := make([]*model.Entry, 0, len(s.entries[tournamentID]))
	for wallet, e := range s.entries[tournamentID] {
		_ = s.entryLocks.WithLock(entryKey(tournamentID, wallet), func() error {
			out = append(out, e.Clone())
			return nil
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].TotalScore.Cmp(out[j].TotalScore); c != 0 {
			return c > 0
		}
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].WalletAddress < out[j].WalletAddress
	})
	return out
}
