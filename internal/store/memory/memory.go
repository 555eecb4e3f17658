// Package memory provides in-process implementations of the domain store
// interfaces. Sim mode runs entirely on them, and service tests use them to
// exercise the full load-mutate-save cycle without infrastructure.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/misionbonos/bondgame/internal/domain"
)

// SnapshotStore keeps snapshots in a map guarded by a mutex, with the same
// optimistic version semantics as the PostgreSQL implementation.
type SnapshotStore struct {
	mu    sync.Mutex
	snaps map[string]domain.Snapshot
}

// NewSnapshotStore creates an empty SnapshotStore.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{snaps: make(map[string]domain.Snapshot)}
}

// Load returns the snapshot for a game code.
func (s *SnapshotStore) Load(_ context.Context, code string) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.snaps[code]
	if !ok {
		return domain.Snapshot{}, domain.ErrNotFound
	}
	return snap.Clone(), nil
}

// Save stores the snapshot if its version matches the stored one, bumping
// the version by one. Version 0 means a fresh insert.
func (s *SnapshotStore) Save(_ context.Context, snap domain.Snapshot) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.snaps[snap.Game.Code]
	if snap.Version == 0 {
		if exists {
			return domain.Snapshot{}, domain.ErrVersionConflict
		}
	} else if !exists || current.Version != snap.Version {
		return domain.Snapshot{}, domain.ErrVersionConflict
	}

	next := snap.Clone()
	next.Version = snap.Version + 1
	s.snaps[snap.Game.Code] = next
	return next.Clone(), nil
}

// ListCodes returns all known game codes in sorted order.
func (s *SnapshotStore) ListCodes(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := make([]string, 0, len(s.snaps))
	for code := range s.snaps {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes, nil
}

// AuditStore keeps audit entries in a slice guarded by a mutex.
type AuditStore struct {
	mu      sync.Mutex
	nextID  int64
	entries []domain.AuditEntry
}

// NewAuditStore creates an empty AuditStore.
func NewAuditStore() *AuditStore {
	return &AuditStore{nextID: 1}
}

// Log appends one audit entry.
func (s *AuditStore) Log(_ context.Context, gameCode, event string, detail map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, domain.AuditEntry{
		ID:        s.nextID,
		GameCode:  gameCode,
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	s.nextID++
	return nil
}

// List returns the most recent entries for a game code, newest first.
func (s *AuditStore) List(_ context.Context, gameCode string, limit int) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}

	var out []domain.AuditEntry
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if s.entries[i].GameCode == gameCode {
			out = append(out, s.entries[i])
		}
	}
	return out, nil
}

// LockManager serializes per-key access with one mutex per key. TTLs are
// ignored; in-process callers cannot crash while holding a lock without
// taking the whole process down.
type LockManager struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLockManager creates an empty LockManager.
func NewLockManager() *LockManager {
	return &LockManager{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the key's lock is available and returns its unlock
// function.
func (lm *LockManager) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	lm.mu.Lock()
	l, ok := lm.locks[key]
	if !ok {
		l = &sync.Mutex{}
		lm.locks[key] = l
	}
	lm.mu.Unlock()

	l.Lock()
	var once sync.Once
	return func() { once.Do(l.Unlock) }, nil
}

// QuoteCache keeps published mids keyed by (game code, round).
type QuoteCache struct {
	mu   sync.Mutex
	mids map[string]map[string]float64
}

// NewQuoteCache creates an empty QuoteCache.
func NewQuoteCache() *QuoteCache {
	return &QuoteCache{mids: make(map[string]map[string]float64)}
}

func quoteCacheKey(code string, round int) string {
	return code + "#" + strconv.Itoa(round)
}

// SetMids stores the mid prices published for a round.
func (qc *QuoteCache) SetMids(_ context.Context, code string, round int, mids map[string]float64) error {
	cp := make(map[string]float64, len(mids))
	for k, v := range mids {
		cp[k] = v
	}

	qc.mu.Lock()
	defer qc.mu.Unlock()
	qc.mids[quoteCacheKey(code, round)] = cp
	return nil
}

// GetMids retrieves the mid prices for a round, or ErrNotFound.
func (qc *QuoteCache) GetMids(_ context.Context, code string, round int) (map[string]float64, error) {
	qc.mu.Lock()
	defer qc.mu.Unlock()

	mids, ok := qc.mids[quoteCacheKey(code, round)]
	if !ok {
		return nil, domain.ErrNotFound
	}

	cp := make(map[string]float64, len(mids))
	for k, v := range mids {
		cp[k] = v
	}
	return cp, nil
}

// SignalBus fans published payloads out to all in-process subscribers of a
// channel.
type SignalBus struct {
	mu   sync.Mutex
	subs map[string][]chan []byte
}

// NewSignalBus creates an empty SignalBus.
func NewSignalBus() *SignalBus {
	return &SignalBus{subs: make(map[string][]chan []byte)}
}

// Publish delivers the payload to every subscriber of the channel. Slow
// subscribers with full buffers miss the message rather than block the
// publisher.
func (sb *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	for _, ch := range sb.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber for the channel. The returned channel is
// closed when the context is cancelled.
func (sb *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte, 128)

	sb.mu.Lock()
	sb.subs[channel] = append(sb.subs[channel], ch)
	sb.mu.Unlock()

	go func() {
		<-ctx.Done()

		sb.mu.Lock()
		subs := sb.subs[channel]
		for i, c := range subs {
			if c == ch {
				sb.subs[channel] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
		sb.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// Compile-time interface checks.
var (
	_ domain.SnapshotStore = (*SnapshotStore)(nil)
	_ domain.AuditStore    = (*AuditStore)(nil)
	_ domain.LockManager   = (*LockManager)(nil)
	_ domain.QuoteCache    = (*QuoteCache)(nil)
	_ domain.SignalBus     = (*SignalBus)(nil)
)
