package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/repository"
	"github.com/user/seo-snapshot-service/pkg/utils"
)

// WebsiteRequest describes a website to track. Zero values take defaults.
type WebsiteRequest struct {
	URL              string
	Name             string
	Role             entity.WebsiteRole
	CrawlCadenceDays int
	MaxPages         int
}

// WebsiteDefaults fills the optional fields of a WebsiteRequest.
type WebsiteDefaults struct {
	CrawlCadenceDays int
	MaxPages         int
}

// WebsiteManager registers websites and kicks off their scans.
type WebsiteManager interface {
	// ScanURL tracks the URL's domain if it is not tracked yet and starts
	// a new snapshot of it.
	ScanURL(ctx context.Context, ownerID string, req WebsiteRequest) (*entity.Website, *entity.SnapshotHandle, error)
	// AddWebsite tracks a new website. It fails with ErrWebsiteExists if
	// the owner already tracks the domain.
	AddWebsite(ctx context.Context, ownerID string, req WebsiteRequest) (*entity.Website, error)
	GetWebsite(ctx context.Context, ownerID, websiteID string) (*entity.Website, error)
	ListWebsites(ctx context.Context, ownerID string, role entity.WebsiteRole) ([]*entity.Website, error)
	DeactivateWebsite(ctx context.Context, ownerID, websiteID string) error
}

type websiteUseCase struct {
	websites  repository.WebsiteRepository
	snapshots SnapshotManager
	defaults  WebsiteDefaults
	logger    *zap.Logger
}

func NewWebsiteManager(websites repository.WebsiteRepository, snapshots SnapshotManager, defaults WebsiteDefaults, logger *zap.Logger) WebsiteManager {
	return &websiteUseCase{websites: websites, snapshots: snapshots, defaults: defaults, logger: logger}
}

func (uc *websiteUseCase) ScanURL(ctx context.Context, ownerID string, req WebsiteRequest) (*entity.Website, *entity.SnapshotHandle, error) {
	website, err := uc.ensureWebsite(ctx, ownerID, req)
	if err != nil {
		return nil, nil, err
	}
	handle, err := uc.snapshots.StartSnapshot(ctx, ownerID, website.ID)
	if err != nil {
		return nil, nil, err
	}
	return website, handle, nil
}

func (uc *websiteUseCase) ensureWebsite(ctx context.Context, ownerID string, req WebsiteRequest) (*entity.Website, error) {
	website, err := uc.newWebsite(ownerID, req)
	if err != nil {
		return nil, err
	}

	existing, err := uc.websites.FindByDomain(ctx, ownerID, website.Domain)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up website: %w", err)
	}

	err = uc.websites.Create(ctx, website)
	if errors.Is(err, repository.ErrDuplicateWebsite) {
		// Lost a race with a concurrent request for the same domain.
		return uc.websites.FindByDomain(ctx, ownerID, website.Domain)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create website: %w", err)
	}
	uc.logger.Info("Website tracked", zap.String("website_id", website.ID), zap.String("domain", website.Domain))
	return website, nil
}

func (uc *websiteUseCase) AddWebsite(ctx context.Context, ownerID string, req WebsiteRequest) (*entity.Website, error) {
	website, err := uc.newWebsite(ownerID, req)
	if err != nil {
		return nil, err
	}
	err = uc.websites.Create(ctx, website)
	if errors.Is(err, repository.ErrDuplicateWebsite) {
		return nil, ErrWebsiteExists
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create website: %w", err)
	}
	uc.logger.Info("Website tracked",
		zap.String("website_id", website.ID),
		zap.String("domain", website.Domain),
		zap.String("role", string(website.Role)),
	)
	return website, nil
}

func (uc *websiteUseCase) newWebsite(ownerID string, req WebsiteRequest) (*entity.Website, error) {
	u, err := utils.ParseHTTPURL(req.URL)
	if err != nil {
		return nil, ErrInvalidURL
	}
	domain, err := utils.DomainFromURL(u.String())
	if err != nil {
		return nil, ErrInvalidURL
	}

	role := req.Role
	if role == "" {
		role = entity.RolePrimary
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	w := &entity.Website{
		OwnerID:          ownerID,
		Domain:           domain,
		Name:             strings.TrimSpace(req.Name),
		Role:             role,
		BaseURL:          u.String(),
		CrawlCadenceDays: req.CrawlCadenceDays,
		MaxPages:         req.MaxPages,
		IsActive:         true,
	}
	if w.Name == "" {
		w.Name = domain
	}
	if w.CrawlCadenceDays <= 0 {
		w.CrawlCadenceDays = uc.defaults.CrawlCadenceDays
	}
	if w.MaxPages <= 0 {
		w.MaxPages = uc.defaults.MaxPages
	}
	return w, nil
}

func (uc *websiteUseCase) GetWebsite(ctx context.Context, ownerID, websiteID string) (*entity.Website, error) {
	return ownedWebsite(ctx, uc.websites, ownerID, websiteID)
}

func (uc *websiteUseCase) ListWebsites(ctx context.Context, ownerID string, role entity.WebsiteRole) ([]*entity.Website, error) {
	if role != "" && !role.Valid() {
		return nil, ErrInvalidRole
	}
	return uc.websites.List(ctx, ownerID, role)
}

func (uc *websiteUseCase) DeactivateWebsite(ctx context.Context, ownerID, websiteID string) error {
	if _, err := ownedWebsite(ctx, uc.websites, ownerID, websiteID); err != nil {
		return err
	}
	if err := uc.websites.Deactivate(ctx, websiteID); err != nil {
		return fmt.Errorf("failed to deactivate website: %w", err)
	}
	uc.logger.Info("Website deactivated", zap.String("website_id", websiteID))
	return nil
}
