package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"casino-tournaments/internal/config"
	"casino-tournaments/internal/game"
	"casino-tournaments/internal/pkg/db"
	"casino-tournaments/internal/repository"
	"casino-tournaments/internal/service"
)

// store is everything the services need from storage.
type store interface {
	service.CoordinatorStore
	service.LedgerStore
	service.ClockStore
	service.FinalizerStore
}

// app holds the wired services for one command invocation.
type app struct {
	cfg   *config.Config
	store store
	coord *service.Coordinator
	pool  *db.Pool
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// openStore connects the configured storage driver. Postgres is migrated
// before use.
func openStore(ctx context.Context, cfg *config.Config) (store, *db.Pool, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn().Msg("Using in-memory store; data is lost on exit")
		return repository.NewMemoryStore(), nil, nil
	}

	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migrate(ctx, pool.Pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return repository.NewPostgresStore(pool.Pool), pool, nil
}

func scoringPolicy(cfg config.ScoringConfig) (*service.ScoringPolicy, error) {
	win := decimal.NewFromFloat(cfg.WinMultiplier)
	overrides := make(map[string]decimal.Decimal, len(cfg.GameMultipliers))
	for tag, m := range cfg.GameMultipliers {
		overrides[tag] = decimal.NewFromFloat(m)
	}

	games, err := game.NewBuiltinRegistry(win, overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to build game registry: %w", err)
	}

	log.Info().
		Int("game_count", games.Count()).
		Strs("games", games.Tags()).
		Str("win_multiplier", win.String()).
		Msg("Games registered")

	return service.NewScoringPolicy(games, win, decimal.NewFromFloat(cfg.LossMultiplier)), nil
}

func prizeTable(cfg config.PrizesConfig) (service.PrizeTable, error) {
	shares := make([]decimal.Decimal, len(cfg.Distribution))
	for i, s := range cfg.Distribution {
		shares[i] = decimal.NewFromFloat(s)
	}
	table, err := service.NewPrizeTable(shares, cfg.Precision)
	if err != nil {
		return service.PrizeTable{}, fmt.Errorf("invalid prize distribution: %w", err)
	}
	return table, nil
}

// newApp wires the services on top of the configured store. Events go to
// publisher, which may be nil.
func newApp(ctx context.Context, cfg *config.Config, publisher service.Publisher) (*app, error) {
	st, pool, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	policy, err := scoringPolicy(cfg.Scoring)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, err
	}
	prizes, err := prizeTable(cfg.Prizes)
	if err != nil {
		if pool != nil {
			pool.Close()
		}
		return nil, err
	}

	ledger := service.NewScoreLedger(st, policy, publisher)
	clock := service.NewLifecycleClock(st, publisher)
	finalizer := service.NewFinalizer(st, prizes, publisher, cfg.Scheduler.FinalizeConcurrency)

	return &app{
		cfg:   cfg,
		store: st,
		coord: service.NewCoordinator(st, ledger, clock, finalizer, publisher),
		pool:  pool,
	}, nil
}

var _ store = (*repository.PostgresStore)(nil)
var _ store = (*repository.MemoryStore)(nil)

// migratePool is used by the migrate command, which needs no services.
func migratePool(ctx context.Context, cfg *config.Config) error {
	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	return migrate(ctx, pool.Pool)
}

func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if err := db.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}
	return nil
}
