// Package config provides configuration management using viper.
// It supports loading from YAML files, a local .env file and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Prizes    PrizesConfig    `mapstructure:"prizes"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// SchedulerConfig controls the in-process lifecycle scheduler and the
// HTTP trigger endpoints used by external timers.
type SchedulerConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	TickInterval        time.Duration `mapstructure:"tick_interval"`
	FinalizeInterval    time.Duration `mapstructure:"finalize_interval"`
	RunTimeout          time.Duration `mapstructure:"run_timeout"`
	FinalizeConcurrency int           `mapstructure:"finalize_concurrency"`
	TriggerToken        string        `mapstructure:"trigger_token"`
}

// ScoringConfig holds the per-round multiplier policy.
type ScoringConfig struct {
	WinMultiplier   float64            `mapstructure:"win_multiplier"`
	LossMultiplier  float64            `mapstructure:"loss_multiplier"`
	GameMultipliers map[string]float64 `mapstructure:"game_multipliers"`
}

// PrizesConfig holds the prize distribution table, rank 1 first.
type PrizesConfig struct {
	Distribution []float64 `mapstructure:"distribution"`
	Precision    int32     `mapstructure:"precision"`
}

// TelegramConfig holds the results announcer configuration.
// An empty token disables the announcer.
type TelegramConfig struct {
	Token string  `mapstructure:"token"`
	Chats []int64 `mapstructure:"chats"`
}

// ArchiveConfig holds the S3-compatible results archive configuration.
// An empty bucket disables the archive.
type ArchiveConfig struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslMode,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in configPath, the working directory and ./config.
// A .env file in the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	// .env is a development convenience; a missing file is not an error
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase
	// e.g., DATABASE_HOST, SCHEDULER_TRIGGER_TOKEN, TELEGRAM_TOKEN
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.shutdown_timeout", "15s")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "casino")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "casino")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.tick_interval", "30s")
	v.SetDefault("scheduler.finalize_interval", "60s")
	v.SetDefault("scheduler.run_timeout", "20s")
	v.SetDefault("scheduler.finalize_concurrency", 4)
	v.SetDefault("scheduler.trigger_token", "")

	v.SetDefault("scoring.win_multiplier", 2)
	v.SetDefault("scoring.loss_multiplier", 0)

	v.SetDefault("prizes.distribution", []float64{0.5, 0.3, 0.2})
	v.SetDefault("prizes.precision", 6)

	// Keys without a default are invisible to AutomaticEnv on Unmarshal.
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chats", []int64{})

	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.prefix", "tournaments")
	v.SetDefault("archive.region", "auto")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.access_key_id", "")
	v.SetDefault("archive.secret_access_key", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Validate checks values that would otherwise fail deep inside the services.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Scoring.WinMultiplier < 0 || c.Scoring.LossMultiplier < 0 {
		return fmt.Errorf("scoring multipliers must not be negative")
	}
	for game, m := range c.Scoring.GameMultipliers {
		if m < 0 {
			return fmt.Errorf("scoring multiplier for %q must not be negative", game)
		}
	}

	var total float64
	for _, share := range c.Prizes.Distribution {
		if share < 0 {
			return fmt.Errorf("prize shares must not be negative")
		}
		total += share
	}
	// float tolerance; the exact check happens on the decimal table
	if total > 1.0000001 {
		return fmt.Errorf("prize shares sum to %.4f, must not exceed 1", total)
	}

	if c.Scheduler.Enabled && (c.Scheduler.TickInterval <= 0 || c.Scheduler.FinalizeInterval <= 0) {
		return fmt.Errorf("scheduler intervals must be positive")
	}

	return nil
}

// TelegramEnabled reports whether results should be announced on Telegram.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.Token != "" && len(c.Telegram.Chats) > 0
}

// ArchiveEnabled reports whether results should be archived to object storage.
func (c *Config) ArchiveEnabled() bool {
	return c.Archive.Bucket != ""
}
