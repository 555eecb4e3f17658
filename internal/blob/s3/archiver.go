package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/misionbonos/bondgame/internal/domain"
)

// ArchiveImpl implements domain.Archiver by serializing a finished game's
// snapshot to JSON and uploading it to object storage for after-class
// review.
//
// The snapshot stays in the primary store after archival. Removing it is a
// separate, explicit operator step once the archive has been verified.
type ArchiveImpl struct {
	writer domain.BlobWriter
	audit  domain.AuditStore
	now    func() time.Time
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, audit domain.AuditStore) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		audit:  audit,
		now:    time.Now,
	}
}

// ArchiveGame uploads the snapshot to games/{code}/{timestamp}.json,
// records the archival in the audit log, and returns the object path.
func (a *ArchiveImpl) ArchiveGame(ctx context.Context, snap domain.Snapshot) (string, error) {
	buf, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: archive game %s marshal: %w", snap.Game.Code, err)
	}

	path := archivePath(snap.Game.Code, a.now().UTC())
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive game %s upload: %w", snap.Game.Code, err)
	}

	if err := a.audit.Log(ctx, snap.Game.Code, "archive.game", map[string]any{
		"path":   path,
		"round":  snap.Game.CurrentRound,
		"teams":  len(snap.Teams),
		"orders": len(snap.Orders),
	}); err != nil {
		return path, fmt.Errorf("s3blob: archive game %s audit log: %w", snap.Game.Code, err)
	}

	return path, nil
}

// archivePath builds the S3 key for an archived game.
//
//	games/MB-001/2025-03-14T15-04-05Z.json
func archivePath(code string, ts time.Time) string {
	return fmt.Sprintf("games/%s/%s.json", code, ts.Format("2006-01-02T15-04-05Z"))
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
