package repository

import (
	"context"

	"github.com/user/seo-snapshot-service/internal/entity"
)

// WebsiteRepository defines the interface for tracked websites.
type WebsiteRepository interface {
	// Create returns ErrDuplicateWebsite if the owner already tracks the domain.
	Create(ctx context.Context, website *entity.Website) error
	GetByID(ctx context.Context, id string) (*entity.Website, error)
	// FindByDomain looks up an active website of the owner.
	FindByDomain(ctx context.Context, ownerID, domain string) (*entity.Website, error)
	// List returns the owner's active websites; an empty role matches all.
	List(ctx context.Context, ownerID string, role entity.WebsiteRole) ([]*entity.Website, error)
	// ListActive returns active websites of every owner.
	ListActive(ctx context.Context) ([]*entity.Website, error)
	Deactivate(ctx context.Context, id string) error
}
