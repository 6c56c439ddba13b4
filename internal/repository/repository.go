package repository

import (
	"context"
	"errors"

	"github.com/mr1hm/go-quake-feed/internal/models"
)

var ErrNotFound = errors.New("snapshot not found")

// SnapshotRepository keeps the most recent snapshot of each feed so a
// restarted process has something to show before its first fetch completes.
// Saving a feed replaces what was stored for it unless the stored snapshot
// was fetched later.
type SnapshotRepository interface {
	SaveSnapshot(ctx context.Context, snap *models.Snapshot) error
	LatestSnapshot(ctx context.Context, source string) (*models.Snapshot, error)
}
