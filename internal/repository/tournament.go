package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"casino-tournaments/internal/model"
	"casino-tournaments/internal/pkg/db"
)

const tournamentColumns = `
	id, name, description, game_type, entry_fee, prize_pool, max_participants,
	participant_count, start_time, end_time, status, finalized_at, created_at, updated_at`

// TournamentRepository handles tournament persistence and lifecycle writes.
type TournamentRepository struct {
	pool *pgxpool.Pool
}

// NewTournamentRepository creates a new TournamentRepository instance.
func NewTournamentRepository(pool *pgxpool.Pool) *TournamentRepository {
	return &TournamentRepository{pool: pool}
}

func scanTournament(row pgx.Row) (*model.Tournament, error) {
	var t model.Tournament
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.GameType,
		&t.EntryFee,
		&t.PrizePool,
		&t.MaxParticipants,
		&t.ParticipantCount,
		&t.StartTime,
		&t.EndTime,
		&t.Status,
		&t.FinalizedAt,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTournament inserts a tournament. Status and counters come from t.
// Returns ErrDuplicateTournament if the id is taken.
func (r *TournamentRepository) CreateTournament(ctx context.Context, t *model.Tournament) (*model.Tournament, error) {
	const query = `
		INSERT INTO tournaments (id, name, description, game_type, entry_fee, prize_pool,
			max_participants, participant_count, start_time, end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10, $11, $11)
		RETURNING ` + tournamentColumns

	created, err := scanTournament(r.pool.QueryRow(ctx, query,
		t.ID, t.Name, t.Description, t.GameType, t.EntryFee, t.PrizePool,
		t.MaxParticipants, t.StartTime, t.EndTime, string(t.Status), t.CreatedAt,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateTournament
		}
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	return created, nil
}

// GetTournament retrieves a tournament by id.
// Returns ErrTournamentNotFound if the tournament does not exist.
func (r *TournamentRepository) GetTournament(ctx context.Context, id string) (*model.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t, err := scanTournament(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}

	return t, nil
}

// ListTournaments returns tournaments ordered by start time. An empty status
// returns every tournament.
func (r *TournamentRepository) ListTournaments(ctx context.Context, status model.TournamentStatus) ([]*model.Tournament, error) {
	query := `
		SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE ($1 = '' OR status = $1)
		ORDER BY start_time ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	var tournaments []*model.Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tournaments: %w", err)
	}

	return tournaments, nil
}

// ActivateStarted moves upcoming tournaments whose start time has passed to
// active and returns their ids. The status guard makes overlapping calls safe.
func (r *TournamentRepository) ActivateStarted(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
		UPDATE tournaments
		SET status = 'active', updated_at = NOW()
		WHERE status = 'upcoming' AND start_time <= $1
		RETURNING id
	`
	ids, err := r.queryIDs(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to activate tournaments: %w", err)
	}
	return ids, nil
}

// CompleteEnded moves active tournaments whose end time has passed to
// completed and returns their ids. Results are written by FinalizeTournament.
func (r *TournamentRepository) CompleteEnded(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
		UPDATE tournaments
		SET status = 'completed', updated_at = NOW()
		WHERE status = 'active' AND end_time <= $1
		RETURNING id
	`
	ids, err := r.queryIDs(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to complete tournaments: %w", err)
	}
	return ids, nil
}

func (r *TournamentRepository) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// ListFinalizable returns ids of tournaments that have ended but have no results yet.
func (r *TournamentRepository) ListFinalizable(ctx context.Context, now time.Time) ([]string, error) {
	const query = `
		SELECT id FROM tournaments
		WHERE finalized_at IS NULL AND end_time <= $1
		ORDER BY end_time ASC
	`
	ids, err := r.queryIDs(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list finalizable tournaments: %w", err)
	}
	return ids, nil
}

// FinalizeTournament locks the tournament, reads its entries, and stores the
// results rank builds from them in one transaction, marking the tournament
// completed and finalized. Rounds share lock the same row, so the entries
// rank sees are the final standings. It returns false without writing
// anything when the tournament was already finalized or has not ended by at.
// Returns ErrTournamentNotFound if the tournament does not exist.
func (r *TournamentRepository) FinalizeTournament(ctx context.Context, id string, at time.Time, rank model.RankFunc) (bool, error) {
	lockTournament := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`
	const markFinalized = `
		UPDATE tournaments
		SET status = 'completed', finalized_at = $2, updated_at = NOW()
		WHERE id = $1
	`
	const insertResult = `
		INSERT INTO tournament_results (tournament_id, rank, wallet_address, username, final_score, prize_amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tournament_id, rank) DO NOTHING
	`

	applied := false
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		t, err := scanTournament(tx.QueryRow(ctx, lockTournament, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to lock tournament: %w", err)
		}
		if t.IsFinalized() || t.EndTime.After(at) {
			return nil
		}

		entries, err := listEntries(ctx, tx, id)
		if err != nil {
			return err
		}
		results := rank(t, entries)

		if _, err := tx.Exec(ctx, markFinalized, id, at); err != nil {
			return fmt.Errorf("failed to mark tournament finalized: %w", err)
		}

		if len(results) > 0 {
			batch := &pgx.Batch{}
			for _, res := range results {
				batch.Queue(insertResult, id, res.Rank, res.WalletAddress, res.Username,
					res.FinalScore, res.PrizeAmount, res.CreatedAt)
			}
			br := tx.SendBatch(ctx, batch)
			for range results {
				if _, err := br.Exec(); err != nil {
					_ = br.Close()
					return fmt.Errorf("failed to insert result: %w", err)
				}
			}
			if err := br.Close(); err != nil {
				return fmt.Errorf("failed to insert results: %w", err)
			}
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return applied, nil
}
