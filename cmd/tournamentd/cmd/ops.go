package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"casino-tournaments/internal/config"
	"casino-tournaments/internal/model"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTickCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Advance tournament statuses once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.coord.Tick(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

func newFinalizeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "finalize [tournament-id]",
		Short: "Finalize one tournament, or every overdue tournament when no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts.cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 1 {
				res, err := a.coord.Finalize(cmd.Context(), args[0], time.Now())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			}

			res, err := a.coord.FinalizeOverdue(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if len(res.Failed) > 0 {
				return fmt.Errorf("%d tournament(s) failed to finalize", len(res.Failed))
			}
			return nil
		},
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.cfg.Database.Driver != config.DriverPostgres {
				return fmt.Errorf("migrate requires the %s driver", config.DriverPostgres)
			}
			if err := migratePool(cmd.Context(), opts.cfg); err != nil {
				return err
			}
			log.Info().Msg("Database migrations completed")
			return nil
		},
	}
}

type seedOptions struct {
	name            string
	description     string
	gameType        string
	entryFee        string
	prizePool       string
	maxParticipants int
	startsIn        time.Duration
	duration        time.Duration
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	so := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a tournament",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entryFee, err := decimal.NewFromString(so.entryFee)
			if err != nil {
				return fmt.Errorf("invalid --entry-fee: %w", err)
			}
			prizePool, err := decimal.NewFromString(so.prizePool)
			if err != nil {
				return fmt.Errorf("invalid --prize-pool: %w", err)
			}

			in := model.NewTournament{
				Name:        so.name,
				Description: so.description,
				GameType:    so.gameType,
				EntryFee:    entryFee,
				PrizePool:   prizePool,
			}
			if so.maxParticipants > 0 {
				in.MaxParticipants = &so.maxParticipants
			}

			now := time.Now().UTC()
			in.StartTime = now.Add(so.startsIn).Truncate(time.Second)
			in.EndTime = in.StartTime.Add(so.duration)

			a, err := newApp(cmd.Context(), opts.cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := a.coord.CreateTournament(cmd.Context(), in, now)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		},
	}

	f := cmd.Flags()
	f.StringVar(&so.name, "name", "", "tournament name")
	f.StringVar(&so.description, "description", "", "tournament description")
	f.StringVar(&so.gameType, "game", model.GameTypeAll, "game tag that counts, or \"all\"")
	f.StringVar(&so.entryFee, "entry-fee", "0", "entry fee in USDC")
	f.StringVar(&so.prizePool, "prize-pool", "0", "prize pool in USDC")
	f.IntVar(&so.maxParticipants, "max-participants", 0, "capacity, 0 for unlimited")
	f.DurationVar(&so.startsIn, "starts-in", 0, "delay before the tournament starts")
	f.DurationVar(&so.duration, "duration", time.Hour, "tournament length")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
