package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/misionbonos/bondgame/internal/blob/s3"
	"github.com/misionbonos/bondgame/internal/cache/redis"
	"github.com/misionbonos/bondgame/internal/config"
	"github.com/misionbonos/bondgame/internal/domain"
	"github.com/misionbonos/bondgame/internal/notify"
	"github.com/misionbonos/bondgame/internal/store/postgres"
)

// Dependencies bundles the domain-level dependencies server mode operates
// on. Wire constructs them; the returned cleanup tears them down.
type Dependencies struct {
	SnapshotStore domain.SnapshotStore
	AuditStore    domain.AuditStore
	LockManager   domain.LockManager
	QuoteCache    domain.QuoteCache
	SignalBus     domain.SignalBus
	Archiver      domain.Archiver  // nil when archiving is disabled
	Notifier      *notify.Notifier // nil when no chat channel is configured
}

// Wire constructs the concrete PostgreSQL, Redis, and S3 implementations
// from the configuration. The cleanup function must be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.SnapshotStore = postgres.NewSnapshotStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.LockManager = redis.NewLockManager(redisClient)
	deps.QuoteCache = redis.NewQuoteCache(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- S3 archive (optional) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Archive.Endpoint,
			Region:         cfg.Archive.Region,
			Bucket:         cfg.Archive.Bucket,
			AccessKey:      cfg.Archive.AccessKey,
			SecretKey:      cfg.Archive.SecretKey,
			UseSSL:         cfg.Archive.UseSSL,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.AuditStore)
	}

	// --- Chat announcements (optional) ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhook != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhook))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, slog.Default())
	}

	return deps, cleanup, nil
}
