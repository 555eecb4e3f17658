package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/misionbonos/bondgame/internal/domain"
)

// AuditStore implements domain.AuditStore using PostgreSQL.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates an AuditStore backed by the given pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Log appends one audit entry.
func (s *AuditStore) Log(ctx context.Context, gameCode, event string, detail map[string]any) error {
	var detailJSON []byte
	if detail != nil {
		var err error
		detailJSON, err = json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("postgres: marshal audit detail: %w", err)
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_log (game_code, event, detail) VALUES ($1, $2, $3)`,
		gameCode, event, detailJSON,
	)
	if err != nil {
		return fmt.Errorf("postgres: audit log %s: %w", event, err)
	}
	return nil
}

// List returns the most recent audit entries for a game code.
func (s *AuditStore) List(ctx context.Context, gameCode string, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, game_code, event, detail, created_at
		 FROM audit_log
		 WHERE game_code = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		gameCode, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit log: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			e          domain.AuditEntry
			detailJSON []byte
		)
		if err := rows.Scan(&e.ID, &e.GameCode, &e.Event, &detailJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan audit entry: %w", err)
		}
		if len(detailJSON) > 0 {
			if err := json.Unmarshal(detailJSON, &e.Detail); err != nil {
				return nil, fmt.Errorf("postgres: decode audit detail: %w", err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Compile-time interface check.
var _ domain.AuditStore = (*AuditStore)(nil)
