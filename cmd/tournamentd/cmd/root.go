package cmd

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"casino-tournaments/internal/config"
)

// rootOptions is shared by every subcommand.
type rootOptions struct {
	configPath string
	cfg        *config.Config
}

// NewRootCmd creates the tournamentd command tree. It is called once in main.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "tournamentd",
		Short:         "Casino tournament lifecycle, scoring and finalization service",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				log.Error().Err(err).Msg("Failed to load configuration")
				return err
			}
			setupLogging(cfg.Log)
			opts.cfg = cfg

			log.Debug().Str("driver", cfg.Database.Driver).Msg("Configuration loaded successfully")
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "config", "directory containing config.yaml")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newTickCmd(opts),
		newFinalizeCmd(opts),
		newMigrateCmd(opts),
		newSeedCmd(opts),
	)

	return rootCmd
}

func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "json" {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}

func init() {
	// Logs emitted before the config is read go to the console.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
}
