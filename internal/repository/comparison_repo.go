package repository

import (
	"context"

	"github.com/user/seo-snapshot-service/internal/entity"
)

// ComparisonRepository defines the interface for stored snapshot comparisons.
type ComparisonRepository interface {
	// Upsert stores a comparison keyed by (website, baseline, current) and
	// fills in its ID and CreatedAt.
	Upsert(ctx context.Context, comparison *entity.Comparison) error
	GetByID(ctx context.Context, id string) (*entity.Comparison, error)
	// ListByWebsite returns the newest comparisons first.
	ListByWebsite(ctx context.Context, websiteID string, limit int) ([]*entity.Comparison, error)
}
