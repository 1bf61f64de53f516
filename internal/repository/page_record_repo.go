package repository

import (
	"context"

	"github.com/user/seo-snapshot-service/internal/entity"
)

// PageRecordRepository defines the interface for storing captured pages.
type PageRecordRepository interface {
	// Save inserts a page record. A second record for the same snapshot and
	// URL returns ErrDuplicatePage.
	Save(ctx context.Context, record *entity.PageRecord) error
	// ListBySnapshot returns a snapshot's pages ordered by URL.
	ListBySnapshot(ctx context.Context, snapshotID string) ([]*entity.PageRecord, error)
}
