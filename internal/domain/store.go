package domain

import (
	"context"
	"io"
	"time"
)

// SnapshotStore persists whole game snapshots keyed by game code.
type SnapshotStore interface {
	// Load returns the snapshot for a game code, or ErrNotFound when the
	// code has never been saved.
	Load(ctx context.Context, code string) (Snapshot, error)

	// Save overwrites the stored snapshot. The snapshot's Version must
	// match the stored one; Save bumps it by one on success and returns
	// ErrVersionConflict on a stale write.
	Save(ctx context.Context, snap Snapshot) (Snapshot, error)

	// ListCodes returns all known game codes.
	ListCodes(ctx context.Context) ([]string, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	GameCode  string         `json:"game_code"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit log of moderator actions, order
// executions, and rejections.
type AuditStore interface {
	Log(ctx context.Context, gameCode, event string, detail map[string]any) error
	List(ctx context.Context, gameCode string, limit int) ([]AuditEntry, error)
}

// LockManager provides distributed locks. Every load-mutate-save cycle for
// a game code runs under its lock to serialize concurrent moderator and
// team actions.
type LockManager interface {
	// Acquire obtains the lock for key with the given TTL and returns an
	// unlock function. Returns ErrLockHeld when another party holds it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// QuoteCache caches published mid prices per (game code, round) so that
// read-heavy leaderboard polling does not hit the snapshot store.
type QuoteCache interface {
	SetMids(ctx context.Context, code string, round int, mids map[string]float64) error
	GetMids(ctx context.Context, code string, round int) (map[string]float64, error)
}

// SignalBus is a lightweight pub/sub used to push game events (published
// quotes, executed orders, state changes) to the WebSocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// BlobWriter uploads a blob to object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver preserves finished games in object storage for after-class
// review.
type Archiver interface {
	ArchiveGame(ctx context.Context, snap Snapshot) (string, error)
}
