package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"casino-tournaments/internal/model"
)

// ResultRepository reads final tournament standings.
// Results are written only by TournamentRepository.FinalizeTournament.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository instance.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// ListResults returns the stored results of a tournament ordered by rank.
func (r *ResultRepository) ListResults(ctx context.Context, tournamentID string) ([]model.Result, error) {
	const query = `
		SELECT tournament_id, wallet_address, username, final_score, rank, prize_amount, created_at
		FROM tournament_results
		WHERE tournament_id = $1
		ORDER BY rank ASC
	`

	rows, err := r.pool.Query(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Result, error) {
		var res model.Result
		err := row.Scan(
			&res.TournamentID,
			&res.WalletAddress,
			&res.Username,
			&res.FinalScore,
			&res.Rank,
			&res.PrizeAmount,
			&res.CreatedAt,
		)
		return res, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan results: %w", err)
	}

	return results, nil
}
