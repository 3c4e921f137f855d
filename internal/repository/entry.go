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

const entryColumns = `
	id, tournament_id, wallet_address, username, total_score, games_played,
	best_multiplier, total_wagered, total_won, joined_at`

// errRoundSeen rolls back a round whose id was already recorded.
var errRoundSeen = errors.New("round already recorded")

// EntryRepository handles tournament entry persistence.
type EntryRepository struct {
	pool *pgxpool.Pool
}

// NewEntryRepository creates a new EntryRepository instance.
func NewEntryRepository(pool *pgxpool.Pool) *EntryRepository {
	return &EntryRepository{pool: pool}
}

func scanEntry(row pgx.Row) (*model.Entry, error) {
	var e model.Entry
	err := row.Scan(
		&e.ID,
		&e.TournamentID,
		&e.WalletAddress,
		&e.Username,
		&e.TotalScore,
		&e.GamesPlayed,
		&e.BestMultiplier,
		&e.TotalWagered,
		&e.TotalWon,
		&e.JoinedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// JoinTournament reserves a seat and inserts the entry in one transaction.
// The seat reservation is a conditional increment of participant_count, so
// the capacity limit holds under concurrent joins.
// Returns ErrTournamentNotFound, ErrTournamentClosed, ErrTournamentFull or ErrDuplicateEntry.
func (r *EntryRepository) JoinTournament(ctx context.Context, e *model.Entry, now time.Time) (*model.Entry, error) {
	const reserveSeat = `
		UPDATE tournaments
		SET participant_count = participant_count + 1, updated_at = NOW()
		WHERE id = $1
			AND status <> 'completed'
			AND end_time > $2
			AND (max_participants IS NULL OR participant_count < max_participants)
	`
	const insertEntry = `
		INSERT INTO tournament_entries (id, tournament_id, wallet_address, username, joined_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + entryColumns

	var joined *model.Entry
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, reserveSeat, e.TournamentID, now)
		if err != nil {
			return fmt.Errorf("failed to reserve seat: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return joinRejection(ctx, tx, e.TournamentID, e.WalletAddress, now)
		}

		joined, err = scanEntry(tx.QueryRow(ctx, insertEntry,
			e.ID, e.TournamentID, e.WalletAddress, e.Username, e.JoinedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateEntry
			}
			return fmt.Errorf("failed to insert entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return joined, nil
}

// joinRejection explains why no seat could be reserved.
func joinRejection(ctx context.Context, tx pgx.Tx, tournamentID, wallet string, now time.Time) error {
	var status string
	var endTime time.Time
	err := tx.QueryRow(ctx, `SELECT status, end_time FROM tournaments WHERE id = $1`, tournamentID).
		Scan(&status, &endTime)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrTournamentNotFound
		}
		return fmt.Errorf("failed to load tournament: %w", err)
	}
	if model.TournamentStatus(status) == model.StatusCompleted || !endTime.After(now) {
		return ErrTournamentClosed
	}

	joined, err := entryExists(ctx, tx, tournamentID, wallet)
	if err != nil {
		return err
	}
	if joined {
		return ErrDuplicateEntry
	}
	return ErrTournamentFull
}

func entryExists(ctx context.Context, tx pgx.Tx, tournamentID, wallet string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM tournament_entries WHERE tournament_id = $1 AND wallet_address = $2
		)
	`
	var exists bool
	if err := tx.QueryRow(ctx, query, tournamentID, wallet).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check entry: %w", err)
	}
	return exists, nil
}

// ApplyRound adds a scored round to an entry. The tournament must be active,
// not finalized, and its end time after d.At. The tournament row is share
// locked first, so a round either commits before FinalizeTournament reads the
// entries or is rejected after it. When d.RoundID is set the round is recorded
// in the same transaction; a replay applies nothing and reports duplicate.
// Returns ErrTournamentNotFound, ErrEntryNotFound or ErrTournamentNotActive.
func (r *EntryRepository) ApplyRound(ctx context.Context, d model.RoundDelta) (*model.Entry, bool, error) {
	const lockTournament = `SELECT id FROM tournaments WHERE id = $1 FOR SHARE`
	const recordRound = `
		INSERT INTO tournament_rounds (tournament_id, round_id, wallet_address, game, bet_amount, won, multiplier, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (tournament_id, round_id) DO NOTHING
	`
	const applyDelta = `
		UPDATE tournament_entries e
		SET total_score = e.total_score + $3,
			games_played = e.games_played + 1,
			best_multiplier = GREATEST(e.best_multiplier, $4),
			total_wagered = e.total_wagered + $5,
			total_won = e.total_won + $6
		FROM tournaments t
		WHERE e.tournament_id = $1
			AND e.wallet_address = $2
			AND t.id = e.tournament_id
			AND t.status = 'active'
			AND t.finalized_at IS NULL
			AND t.end_time > $7
		RETURNING e.id, e.tournament_id, e.wallet_address, e.username, e.total_score,
			e.games_played, e.best_multiplier, e.total_wagered, e.total_won, e.joined_at
	`

	var updated *model.Entry
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		if err := tx.QueryRow(ctx, lockTournament, d.TournamentID).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrTournamentNotFound
			}
			return fmt.Errorf("failed to lock tournament: %w", err)
		}

		if d.RoundID != "" {
			tag, err := tx.Exec(ctx, recordRound, d.TournamentID, d.RoundID, d.WalletAddress,
				d.Game, d.BetAmount, d.Won, d.Multiplier, d.At)
			if err != nil {
				if isForeignKeyViolation(err) {
					return ErrTournamentNotFound
				}
				return fmt.Errorf("failed to record round: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return errRoundSeen
			}
		}

		var err error
		updated, err = scanEntry(tx.QueryRow(ctx, applyDelta, d.TournamentID, d.WalletAddress,
			d.Score, d.Multiplier, d.BetAmount, d.WonAmount, d.At))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return roundRejection(ctx, tx, d.TournamentID, d.WalletAddress)
			}
			return fmt.Errorf("failed to apply round: %w", err)
		}
		return nil
	})
	if errors.Is(err, errRoundSeen) {
		current, err := r.GetEntry(ctx, d.TournamentID, d.WalletAddress)
		if err != nil {
			return nil, false, err
		}
		return current, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	return updated, false, nil
}

// roundRejection explains why a round matched no entry.
func roundRejection(ctx context.Context, tx pgx.Tx, tournamentID, wallet string) error {
	var found bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM tournaments WHERE id = $1)`, tournamentID).Scan(&found)
	if err != nil {
		return fmt.Errorf("failed to load tournament: %w", err)
	}
	if !found {
		return ErrTournamentNotFound
	}

	joined, err := entryExists(ctx, tx, tournamentID, wallet)
	if err != nil {
		return err
	}
	if !joined {
		return ErrEntryNotFound
	}
	return ErrTournamentNotActive
}

// GetEntry retrieves one player's entry.
// Returns ErrEntryNotFound if the wallet has not joined the tournament.
func (r *EntryRepository) GetEntry(ctx context.Context, tournamentID, wallet string) (*model.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM tournament_entries WHERE tournament_id = $1 AND wallet_address = $2`

	e, err := scanEntry(r.pool.QueryRow(ctx, query, tournamentID, wallet))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	return e, nil
}

// querier is the read side shared by pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ListEntries returns all entries of a tournament ordered by score, then
// join time, then wallet address.
func (r *EntryRepository) ListEntries(ctx context.Context, tournamentID string) ([]*model.Entry, error) {
	return listEntries(ctx, r.pool, tournamentID)
}

func listEntries(ctx context.Context, q querier, tournamentID string) ([]*model.Entry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM tournament_entries
		WHERE tournament_id = $1
		ORDER BY total_score DESC, joined_at ASC, wallet_address ASC`

	rows, err := q.Query(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	var entries []*model.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}
