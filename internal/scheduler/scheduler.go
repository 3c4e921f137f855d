// Package scheduler drives the lifecycle clock and overdue finalization on
// fixed intervals inside the serve process.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"

	"casino-tournaments/internal/config"
	"casino-tournaments/internal/model"
)

// Runner is the work the scheduler triggers.
type Runner interface {
	Tick(ctx context.Context, now time.Time) (*model.TickResult, error)
	FinalizeOverdue(ctx context.Context, now time.Time) (*model.BatchFinalization, error)
}

// Job names.
const (
	TickJob     = "lifecycle-tick"
	FinalizeJob = "finalize-overdue"
)

// Scheduler runs the tick and finalize jobs. Each job is a singleton: a run
// that is still in progress when the next one is due delays it instead of
// overlapping.
type Scheduler struct {
	sched      gocron.Scheduler
	runner     Runner
	runTimeout time.Duration
	now        func() time.Time
	ctx        context.Context
	cancel     context.CancelFunc
}

// New registers both jobs. Nothing runs until Run is called.
func New(runner Runner, cfg config.SchedulerConfig) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	timeout := cfg.RunTimeout
	if timeout <= 0 {
		timeout = cfg.TickInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		sched:      sched,
		runner:     runner,
		runTimeout: timeout,
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}

	for _, j := range []struct {
		name  string
		every time.Duration
		fn    func()
	}{
		{TickJob, cfg.TickInterval, s.tick},
		{FinalizeJob, cfg.FinalizeInterval, s.finalize},
	} {
		if err := s.add(j.name, j.every, j.fn); err != nil {
			cancel()
			_ = sched.Shutdown()
			return nil, err
		}
	}
	return s, nil
}

func (s *Scheduler) add(name string, every time.Duration, fn func()) error {
	_, err := s.sched.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

// Run starts the jobs and blocks until ctx is cancelled, then waits for
// in-flight runs to stop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.sched.Start()
	log.Info().Int("jobs", len(s.sched.Jobs())).Msg("Scheduler started")

	<-ctx.Done()

	s.cancel()
	if err := s.sched.Shutdown(); err != nil {
		return fmt.Errorf("failed to stop scheduler: %w", err)
	}
	log.Info().Msg("Scheduler stopped")
	return nil
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(s.ctx, s.runTimeout)
	defer cancel()

	if _, err := s.runner.Tick(ctx, s.now()); err != nil {
		log.Error().Err(err).Str("job", TickJob).Msg("Scheduled run failed")
	}
}

func (s *Scheduler) finalize() {
	ctx, cancel := context.WithTimeout(s.ctx, s.runTimeout)
	defer cancel()

	res, err := s.runner.FinalizeOverdue(ctx, s.now())
	if err != nil {
		log.Error().Err(err).Str("job", FinalizeJob).Msg("Scheduled run failed")
		return
	}
	if len(res.Failed) > 0 {
		log.Warn().Int("failed", len(res.Failed)).Str("job", FinalizeJob).Msg("Some tournaments failed to finalize")
	}
}
