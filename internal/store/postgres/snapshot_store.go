package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/misionbonos/bondgame/internal/domain"
)

// SnapshotStore implements domain.SnapshotStore using a single JSONB row
// per game code. Saves are whole-state overwrites guarded by an optimistic
// version check, so a writer holding a stale snapshot fails instead of
// silently clobbering a newer one.
type SnapshotStore struct {
	pool *pgxpool.Pool
}

// NewSnapshotStore creates a SnapshotStore backed by the given pool.
func NewSnapshotStore(pool *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Load returns the snapshot for a game code.
func (s *SnapshotStore) Load(ctx context.Context, code string) (domain.Snapshot, error) {
	var (
		version int64
		state   []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT version, state FROM game_snapshots WHERE game_code = $1`, code,
	).Scan(&version, &state)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Snapshot{}, domain.ErrNotFound
		}
		return domain.Snapshot{}, fmt.Errorf("postgres: load snapshot %s: %w", code, err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(state, &snap); err != nil {
		return domain.Snapshot{}, fmt.Errorf("postgres: decode snapshot %s: %w", code, err)
	}
	snap.Version = version
	return snap, nil
}

// Save overwrites the stored snapshot. A snapshot with Version 0 is
// inserted as a new game; otherwise the update only applies when the
// stored version still matches, returning ErrVersionConflict on a stale
// write. The returned snapshot carries the bumped version.
func (s *SnapshotStore) Save(ctx context.Context, snap domain.Snapshot) (domain.Snapshot, error) {
	next := snap.Clone()
	next.Version = snap.Version + 1

	state, err := json.Marshal(next)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("postgres: encode snapshot %s: %w", snap.Game.Code, err)
	}

	if snap.Version == 0 {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO game_snapshots (game_code, version, state)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (game_code) DO NOTHING`,
			snap.Game.Code, next.Version, state,
		)
		if err != nil {
			return domain.Snapshot{}, fmt.Errorf("postgres: insert snapshot %s: %w", snap.Game.Code, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.Snapshot{}, domain.ErrVersionConflict
		}
		return next, nil
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE game_snapshots
		 SET version = $2, state = $3, updated_at = NOW()
		 WHERE game_code = $1 AND version = $4`,
		snap.Game.Code, next.Version, state, snap.Version,
	)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("postgres: update snapshot %s: %w", snap.Game.Code, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Snapshot{}, domain.ErrVersionConflict
	}
	return next, nil
}

// ListCodes returns all known game codes.
func (s *SnapshotStore) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT game_code FROM game_snapshots ORDER BY game_code`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list game codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("postgres: scan game code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// Compile-time interface check.
var _ domain.SnapshotStore = (*SnapshotStore)(nil)
