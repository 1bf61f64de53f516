package usecase

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/user/seo-snapshot-service/internal/diff"
	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/repository"
	"github.com/user/seo-snapshot-service/pkg/metrics"
)

// summaryWindow is how many recent comparisons the summary aggregates.
const summaryWindow = 5

// Comparator diffs completed snapshots of a website.
type Comparator interface {
	CompareSnapshots(ctx context.Context, ownerID, websiteID, baselineID, currentID string) (*entity.Comparison, error)
	GetComparison(ctx context.Context, ownerID, comparisonID string) (*entity.Comparison, error)
	ListComparisons(ctx context.Context, ownerID, websiteID string, limit int) ([]*entity.Comparison, error)
	Summary(ctx context.Context, ownerID, websiteID string) (*entity.ComparisonSummary, error)
}

type comparisonUseCase struct {
	websites    repository.WebsiteRepository
	snapshots   repository.SnapshotRepository
	pages       repository.PageRecordRepository
	comparisons repository.ComparisonRepository
	// Pages of completed snapshots never change, so they are cached by snapshot ID.
	pageCache *lru.Cache[string, []*entity.PageRecord]
	opts      diff.Options
	logger    *zap.Logger
}

func NewComparator(
	websites repository.WebsiteRepository,
	snapshots repository.SnapshotRepository,
	pages repository.PageRecordRepository,
	comparisons repository.ComparisonRepository,
	opts diff.Options,
	cacheSize int,
	logger *zap.Logger,
) (Comparator, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New[string, []*entity.PageRecord](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create page cache: %w", err)
	}
	return &comparisonUseCase{
		websites:    websites,
		snapshots:   snapshots,
		pages:       pages,
		comparisons: comparisons,
		pageCache:   cache,
		opts:        opts,
		logger:      logger,
	}, nil
}

func (uc *comparisonUseCase) CompareSnapshots(ctx context.Context, ownerID, websiteID, baselineID, currentID string) (*entity.Comparison, error) {
	if _, err := ownedWebsite(ctx, uc.websites, ownerID, websiteID); err != nil {
		return nil, err
	}

	var baseline, current []*entity.PageRecord
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		baseline, err = uc.completedPages(gctx, ownerID, websiteID, baselineID)
		return err
	})
	g.Go(func() (err error) {
		current, err = uc.completedPages(gctx, ownerID, websiteID, currentID)
		return err
	})
	if err := g.Wait(); err != nil {
		metrics.ComparisonsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	cmp := diff.Compare(baseline, current, uc.opts)
	cmp.WebsiteID = websiteID
	cmp.OwnerID = ownerID
	cmp.BaselineSnapshotID = baselineID
	cmp.CurrentSnapshotID = currentID

	if err := uc.comparisons.Upsert(ctx, cmp); err != nil {
		metrics.ComparisonsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to save comparison: %w", err)
	}

	metrics.ComparisonsTotal.WithLabelValues("success").Inc()
	uc.logger.Info("Snapshots compared",
		zap.String("comparison_id", cmp.ID),
		zap.String("baseline_snapshot_id", baselineID),
		zap.String("current_snapshot_id", currentID),
		zap.Int("pages_added", cmp.PagesAdded),
		zap.Int("pages_removed", cmp.PagesRemoved),
		zap.Int("pages_modified", cmp.PagesModified),
	)
	return cmp, nil
}

// completedPages validates a diff input and loads its pages.
func (uc *comparisonUseCase) completedPages(ctx context.Context, ownerID, websiteID, snapshotID string) ([]*entity.PageRecord, error) {
	sn, err := uc.snapshots.GetByID(ctx, snapshotID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && sn.OwnerID != ownerID) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	if sn.WebsiteID != websiteID {
		return nil, ErrSnapshotWebsiteMismatch
	}
	if sn.State != entity.StateCompleted {
		return nil, ErrSnapshotNotCompleted
	}

	if pages, ok := uc.pageCache.Get(snapshotID); ok {
		return pages, nil
	}
	pages, err := uc.pages.ListBySnapshot(ctx, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages of snapshot %s: %w", snapshotID, err)
	}
	uc.pageCache.Add(snapshotID, pages)
	return pages, nil
}

func (uc *comparisonUseCase) GetComparison(ctx context.Context, ownerID, comparisonID string) (*entity.Comparison, error) {
	cmp, err := uc.comparisons.GetByID(ctx, comparisonID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && cmp.OwnerID != ownerID) {
		return nil, ErrComparisonNotFound
	}
	if err != nil {
		return nil, err
	}
	return cmp, nil
}

func (uc *comparisonUseCase) ListComparisons(ctx context.Context, ownerID, websiteID string, limit int) ([]*entity.Comparison, error) {
	if _, err := ownedWebsite(ctx, uc.websites, ownerID, websiteID); err != nil {
		return nil, err
	}
	return uc.comparisons.ListByWebsite(ctx, websiteID, limit)
}

// Summary aggregates the most recent comparisons of a website.
func (uc *comparisonUseCase) Summary(ctx context.Context, ownerID, websiteID string) (*entity.ComparisonSummary, error) {
	recent, err := uc.ListComparisons(ctx, ownerID, websiteID, summaryWindow)
	if err != nil {
		return nil, err
	}

	summary := &entity.ComparisonSummary{TotalComparisons: len(recent)}
	if len(recent) == 0 {
		return summary, nil
	}

	trends := &entity.ComparisonTrends{}
	for _, c := range recent {
		trends.SEOImprovements += c.SEOImprovements
		trends.SEORegressions += c.SEORegressions
		trends.PagesAdded += c.PagesAdded
		trends.PagesRemoved += c.PagesRemoved
	}
	trends.NetSEOChange = trends.SEOImprovements - trends.SEORegressions
	summary.RecentTrends = trends
	summary.Latest = recent[0]
	return summary, nil
}
