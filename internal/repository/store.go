package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore bundles the PostgreSQL repositories behind one value so the
// services can depend on a single store.
type PostgresStore struct {
	*TournamentRepository
	*EntryRepository
	*ResultRepository

	pool *pgxpool.Pool
}

// NewPostgresStore creates repositories sharing one connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		TournamentRepository: NewTournamentRepository(pool),
		EntryRepository:      NewEntryRepository(pool),
		ResultRepository:     NewResultRepository(pool),
		pool:                 pool,
	}
}

// Ping checks that the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
