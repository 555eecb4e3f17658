// Package config defines the top-level configuration for the bond game
// server and provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by BONDGAME_* environment
// variables.
type Config struct {
	Game     GameConfig     `toml:"game"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Sim      SimConfig      `toml:"sim"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// GameConfig holds the defaults applied when a new game code is first
// accessed. Moderators can still adjust them per game while the game sits
// in its first lobby.
type GameConfig struct {
	RoundsTotal   int     `toml:"rounds_total"`
	YearFraction  float64 `toml:"year_fraction"`
	BidSpreadBps  float64 `toml:"bid_spread_bps"`
	AskSpreadBps  float64 `toml:"ask_spread_bps"`
	CommissionBps float64 `toml:"commission_bps"`
	InitialCash   float64 `toml:"initial_cash"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ArchiveConfig holds S3-compatible object storage parameters for archiving
// finished games.
type ArchiveConfig struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters. ModeratorKey guards the
// moderator endpoints; when empty, anyone may drive the game (fine for a
// single-room workshop).
type ServerConfig struct {
	Port         int      `toml:"port"`
	CORSOrigins  []string `toml:"cors_origins"`
	ModeratorKey string   `toml:"moderator_key"`
}

// NotifyConfig holds chat announcement channels. All fields optional;
// leaving them empty disables announcements.
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	DiscordWebhook string   `toml:"discord_webhook"`
	Events         []string `toml:"events"`
}

// SimConfig holds parameters for the headless scripted run.
type SimConfig struct {
	ScenarioPath string `toml:"scenario_path"`
	GameCode     string `toml:"game_code"`
}

// Defaults returns a Config populated with reasonable default values.
// The game defaults mirror the classic three-round quarter-year setup.
func Defaults() Config {
	return Config{
		Game: GameConfig{
			RoundsTotal:   3,
			YearFraction:  0.25,
			BidSpreadBps:  20,
			AskSpreadBps:  20,
			CommissionBps: 10,
			InitialCash:   1_000_000,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "bondgame",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Archive: ArchiveConfig{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "bondgame-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Sim: SimConfig{
			ScenarioPath: "scenario.csv",
			GameCode:     "SIM",
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"sim":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, sim)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Game defaults
	if c.Game.RoundsTotal < 1 {
		errs = append(errs, "game: rounds_total must be >= 1")
	}
	if c.Game.YearFraction <= 0 || c.Game.YearFraction > 1 {
		errs = append(errs, fmt.Sprintf("game: year_fraction must be in (0, 1], got %g", c.Game.YearFraction))
	}
	if c.Game.BidSpreadBps < 0 || c.Game.AskSpreadBps < 0 {
		errs = append(errs, "game: spreads must not be negative")
	}
	if c.Game.CommissionBps < 0 {
		errs = append(errs, "game: commission_bps must not be negative")
	}
	if c.Game.InitialCash <= 0 {
		errs = append(errs, "game: initial_cash must be > 0")
	}

	// Postgres (only required for server mode; sim runs in memory)
	if strings.ToLower(c.Mode) == "server" {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}

		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}

		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if strings.ToLower(c.Mode) == "sim" {
		if strings.TrimSpace(c.Sim.ScenarioPath) == "" {
			errs = append(errs, "sim: scenario_path must not be empty")
		}
		if strings.TrimSpace(c.Sim.GameCode) == "" {
			errs = append(errs, "sim: game_code must not be empty")
		}
	}

	// Archive
	if c.Archive.Enabled {
		if c.Archive.Bucket == "" {
			errs = append(errs, "archive: bucket must not be empty when enabled")
		}
		if c.Archive.Region == "" {
			errs = append(errs, "archive: region must not be empty when enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
