package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"casino-tournaments/internal/archive"
	"casino-tournaments/internal/bot"
	"casino-tournaments/internal/handler"
	"casino-tournaments/internal/live"
	"casino-tournaments/internal/scheduler"
	"casino-tournaments/internal/service"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, live feed and lifecycle scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts)
		},
	}
}

// worker is a background component that runs until its context ends.
type worker interface {
	Run(ctx context.Context) error
}

func serve(ctx context.Context, opts *rootOptions) error {
	cfg := opts.cfg

	hub := live.NewHub()
	publishers := service.Publishers{hub}
	workers := []worker{hub}

	if cfg.TelegramEnabled() {
		announcer, err := bot.New(cfg.Telegram)
		if err != nil {
			return err
		}
		publishers = append(publishers, announcer)
		workers = append(workers, announcer)
	}

	if cfg.ArchiveEnabled() {
		arch, err := archive.New(ctx, cfg.Archive)
		if err != nil {
			return err
		}
		publishers = append(publishers, arch)
		workers = append(workers, arch)
	}

	a, err := newApp(ctx, cfg, publishers)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(a.coord, cfg.Scheduler)
		if err != nil {
			return err
		}
		workers = append(workers, sched)
	} else {
		log.Info().Msg("In-process scheduler disabled; use the /internal routes to drive the lifecycle")
	}

	h := handler.NewTournamentHandler(a.coord, hub, nil)
	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: handler.NewRouter(h, handler.RouterConfig{
			SchedulerToken: cfg.Scheduler.TriggerToken,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, w := range workers {
		g.Go(func() error { return w.Run(gctx) })
	}

	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("HTTP server is starting...")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Service stopped with error")
		return err
	}

	log.Info().Msg("Service stopped gracefully")
	return nil
}
