package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/seo-snapshot-service/internal/diff"
	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/repository"
)

// CompetitorAnalyzer benchmarks a website against the owner's competitors.
type CompetitorAnalyzer interface {
	Analyze(ctx context.Context, ownerID, websiteID string) (*entity.CompetitiveAnalysis, error)
}

type competitorUseCase struct {
	websites  repository.WebsiteRepository
	snapshots repository.SnapshotRepository
	logger    *zap.Logger
}

func NewCompetitorAnalyzer(websites repository.WebsiteRepository, snapshots repository.SnapshotRepository, logger *zap.Logger) CompetitorAnalyzer {
	return &competitorUseCase{websites: websites, snapshots: snapshots, logger: logger}
}

// Analyze compares the latest completed snapshot of the website with the
// latest completed snapshot of every active competitor of the owner.
func (uc *competitorUseCase) Analyze(ctx context.Context, ownerID, websiteID string) (*entity.CompetitiveAnalysis, error) {
	primary, err := ownedWebsite(ctx, uc.websites, ownerID, websiteID)
	if err != nil {
		return nil, err
	}

	rivals, err := uc.websites.List(ctx, ownerID, entity.RoleCompetitor)
	if err != nil {
		return nil, fmt.Errorf("failed to list competitors: %w", err)
	}

	primarySnapshot, err := uc.latest(ctx, primary.ID)
	if err != nil {
		return nil, err
	}

	competitors := make([]diff.Competitor, 0, len(rivals))
	for _, w := range rivals {
		if w.ID == primary.ID {
			continue
		}
		sn, err := uc.latest(ctx, w.ID)
		if err != nil {
			return nil, err
		}
		competitors = append(competitors, diff.Competitor{Website: w, Snapshot: sn})
	}

	analysis := diff.Analyze(primary, primarySnapshot, competitors)
	uc.logger.Debug("Competitive analysis computed",
		zap.String("website_id", primary.ID),
		zap.Int("competitors", len(competitors)),
	)
	return analysis, nil
}

// latest returns nil without error when the website has no completed snapshot.
func (uc *competitorUseCase) latest(ctx context.Context, websiteID string) (*entity.Snapshot, error) {
	sn, err := uc.snapshots.LatestCompleted(ctx, websiteID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest snapshot of %s: %w", websiteID, err)
	}
	return sn, nil
}
