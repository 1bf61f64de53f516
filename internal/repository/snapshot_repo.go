package repository

import (
	"context"

	"github.com/user/seo-snapshot-service/internal/entity"
)

// SnapshotRepository defines the interface for versioned snapshots.
type SnapshotRepository interface {
	// CreateNextVersion atomically increments the website's snapshot counter
	// and inserts a pending snapshot carrying the new version.
	CreateNextVersion(ctx context.Context, websiteID, ownerID, baseURL string) (*entity.Snapshot, error)
	GetByID(ctx context.Context, id string) (*entity.Snapshot, error)
	// Update writes state, progress and summary. It returns ErrSnapshotTerminal
	// when the stored snapshot is already terminal and ErrInvalidTransition
	// when the state would move backwards.
	Update(ctx context.Context, snapshot *entity.Snapshot) error
	// LatestCompleted returns ErrNotFound if the website has no completed snapshot.
	LatestCompleted(ctx context.Context, websiteID string) (*entity.Snapshot, error)
	ListByWebsite(ctx context.Context, websiteID string, limit int) ([]*entity.Snapshot, error)
	ListNonTerminal(ctx context.Context) ([]*entity.Snapshot, error)
}
