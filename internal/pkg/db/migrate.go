package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "tournaments table",
		sql: `
		CREATE TABLE IF NOT EXISTS tournaments (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			game_type VARCHAR(50) NOT NULL DEFAULT 'all',
			entry_fee NUMERIC(38,18) NOT NULL DEFAULT 0 CHECK (entry_fee >= 0),
			prize_pool NUMERIC(38,18) NOT NULL DEFAULT 0 CHECK (prize_pool >= 0),
			max_participants INT CHECK (max_participants IS NULL OR max_participants > 0),
			participant_count INT NOT NULL DEFAULT 0 CHECK (participant_count >= 0),
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'upcoming'
				CHECK (status IN ('upcoming', 'active', 'completed')),
			finalized_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CHECK (end_time > start_time)
		);
		CREATE INDEX IF NOT EXISTS idx_tournaments_status_start ON tournaments(status, start_time);
		CREATE INDEX IF NOT EXISTS idx_tournaments_unfinalized_end ON tournaments(end_time) WHERE finalized_at IS NULL;
		`,
	},
	{
		name: "tournament_entries table",
		sql: `
		CREATE TABLE IF NOT EXISTS tournament_entries (
			id UUID PRIMARY KEY,
			tournament_id UUID NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
			wallet_address VARCHAR(42) NOT NULL,
			username VARCHAR(255) NOT NULL DEFAULT '',
			total_score NUMERIC(38,18) NOT NULL DEFAULT 0,
			games_played BIGINT NOT NULL DEFAULT 0,
			best_multiplier NUMERIC(38,18) NOT NULL DEFAULT 0,
			total_wagered NUMERIC(38,18) NOT NULL DEFAULT 0,
			total_won NUMERIC(38,18) NOT NULL DEFAULT 0,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (tournament_id, wallet_address)
		);
		CREATE INDEX IF NOT EXISTS idx_entries_ranking ON tournament_entries(tournament_id, total_score DESC, joined_at ASC);
		`,
	},
	{
		name: "tournament_results table",
		sql: `
		CREATE TABLE IF NOT EXISTS tournament_results (
			tournament_id UUID NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
			rank INT NOT NULL CHECK (rank > 0),
			wallet_address VARCHAR(42) NOT NULL,
			username VARCHAR(255) NOT NULL DEFAULT '',
			final_score NUMERIC(38,18) NOT NULL,
			prize_amount NUMERIC(38,18) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (tournament_id, rank)
		);
		`,
	},
	{
		name: "tournament_rounds table",
		sql: `
		CREATE TABLE IF NOT EXISTS tournament_rounds (
			tournament_id UUID NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
			round_id VARCHAR(128) NOT NULL,
			wallet_address VARCHAR(42) NOT NULL,
			game VARCHAR(50) NOT NULL DEFAULT '',
			bet_amount NUMERIC(38,18) NOT NULL,
			won BOOLEAN NOT NULL,
			multiplier NUMERIC(38,18) NOT NULL,
			recorded_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (tournament_id, round_id)
		);
		`,
	},
}

// Migrate creates the schema. Every statement is idempotent so it is safe to
// run on each start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s) failed: %w", i+1, m.name, err)
		}
		log.Info().Int("migration", i+1).Msgf("Migration %d: %s created", i+1, m.name)
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
