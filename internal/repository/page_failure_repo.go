package repository

import (
	"context"

	"github.com/user/seo-snapshot-service/internal/entity"
)

// PageFailureRepository stores why individual pages of a scan failed.
type PageFailureRepository interface {
	Save(ctx context.Context, failure *entity.PageFailure) error
	ListBySnapshot(ctx context.Context, snapshotID string) ([]*entity.PageFailure, error)
}
