package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies BONDGAME_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load. A missing file is not
// an error: defaults plus environment overrides are enough to run.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known BONDGAME_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Game defaults ──
	setInt(&cfg.Game.RoundsTotal, "BONDGAME_GAME_ROUNDS_TOTAL")
	setFloat64(&cfg.Game.YearFraction, "BONDGAME_GAME_YEAR_FRACTION")
	setFloat64(&cfg.Game.BidSpreadBps, "BONDGAME_GAME_BID_SPREAD_BPS")
	setFloat64(&cfg.Game.AskSpreadBps, "BONDGAME_GAME_ASK_SPREAD_BPS")
	setFloat64(&cfg.Game.CommissionBps, "BONDGAME_GAME_COMMISSION_BPS")
	setFloat64(&cfg.Game.InitialCash, "BONDGAME_GAME_INITIAL_CASH")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "BONDGAME_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "BONDGAME_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "BONDGAME_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "BONDGAME_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "BONDGAME_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "BONDGAME_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "BONDGAME_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "BONDGAME_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "BONDGAME_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "BONDGAME_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "BONDGAME_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "BONDGAME_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "BONDGAME_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "BONDGAME_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "BONDGAME_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "BONDGAME_REDIS_TLS_ENABLED")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "BONDGAME_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Endpoint, "BONDGAME_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "BONDGAME_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "BONDGAME_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "BONDGAME_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "BONDGAME_ARCHIVE_SECRET_KEY")
	setBool(&cfg.Archive.UseSSL, "BONDGAME_ARCHIVE_USE_SSL")
	setBool(&cfg.Archive.ForcePathStyle, "BONDGAME_ARCHIVE_FORCE_PATH_STYLE")

	// ── Server ──
	setInt(&cfg.Server.Port, "BONDGAME_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "BONDGAME_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.ModeratorKey, "BONDGAME_SERVER_MODERATOR_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "BONDGAME_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "BONDGAME_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhook, "BONDGAME_NOTIFY_DISCORD_WEBHOOK")
	setStringSlice(&cfg.Notify.Events, "BONDGAME_NOTIFY_EVENTS")

	// ── Sim ──
	setStr(&cfg.Sim.ScenarioPath, "BONDGAME_SIM_SCENARIO_PATH")
	setStr(&cfg.Sim.GameCode, "BONDGAME_SIM_GAME_CODE")

	// ── Top-level ──
	setStr(&cfg.Mode, "BONDGAME_MODE")
	setStr(&cfg.LogLevel, "BONDGAME_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
