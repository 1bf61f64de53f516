package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/repository"
	"github.com/user/seo-snapshot-service/pkg/metrics"
)

const interruptedMessage = "scan interrupted: the service stopped before it finished"

// SnapshotManager starts scans and reports on them.
type SnapshotManager interface {
	// StartSnapshot creates the next version of a website's snapshot and
	// scans it in the background. It returns as soon as the scan is queued.
	StartSnapshot(ctx context.Context, ownerID, websiteID string) (*entity.SnapshotHandle, error)
	GetSnapshotStatus(ctx context.Context, ownerID, snapshotID string) (*entity.SnapshotStatus, error)
	GetSnapshot(ctx context.Context, ownerID, snapshotID string) (*entity.Snapshot, error)
	ListSnapshots(ctx context.Context, ownerID, websiteID string, limit int) ([]*entity.Snapshot, error)
	ListPages(ctx context.Context, ownerID, snapshotID string) ([]*entity.PageRecord, error)
	ListFailures(ctx context.Context, ownerID, snapshotID string) ([]*entity.PageFailure, error)
	// RecoverInterrupted marks snapshots left non-terminal by a previous
	// process as failed and returns how many it marked.
	RecoverInterrupted(ctx context.Context) (int, error)
	// Shutdown cancels running scans and waits for them to stop.
	Shutdown(ctx context.Context) error
}

type snapshotUseCase struct {
	websites  repository.WebsiteRepository
	snapshots repository.SnapshotRepository
	pages     repository.PageRecordRepository
	failures  repository.PageFailureRepository
	progress  repository.ProgressCache
	lease     repository.ScanLease
	crawler   Crawler
	registry  *TaskRegistry
	cfg       ScanConfig
	logger    *zap.Logger
}

// NewSnapshotManager creates a new SnapshotManager use case.
func NewSnapshotManager(
	websites repository.WebsiteRepository,
	snapshots repository.SnapshotRepository,
	pages repository.PageRecordRepository,
	failures repository.PageFailureRepository,
	progress repository.ProgressCache,
	lease repository.ScanLease,
	crawler Crawler,
	registry *TaskRegistry,
	cfg ScanConfig,
	logger *zap.Logger,
) SnapshotManager {
	return &snapshotUseCase{
		websites:  websites,
		snapshots: snapshots,
		pages:     pages,
		failures:  failures,
		progress:  progress,
		lease:     lease,
		crawler:   crawler,
		registry:  registry,
		cfg:       cfg,
		logger:    logger,
	}
}

func (uc *snapshotUseCase) StartSnapshot(ctx context.Context, ownerID, websiteID string) (*entity.SnapshotHandle, error) {
	website, err := ownedWebsite(ctx, uc.websites, ownerID, websiteID)
	if err != nil {
		return nil, err
	}
	if !website.IsActive {
		return nil, ErrWebsiteInactive
	}

	sn, err := uc.snapshots.CreateNextVersion(ctx, website.ID, ownerID, website.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}
	if err := uc.progress.Put(ctx, sn.Status(), uc.cfg.ProgressTTL); err != nil {
		uc.logger.Warn("Failed to cache snapshot progress", zap.String("snapshot_id", sn.ID), zap.Error(err))
	}

	handle := sn.Handle()
	err = uc.registry.Go(sn.ID, func(taskCtx context.Context) {
		uc.crawler.Run(taskCtx, sn, website)
	})
	if err != nil {
		uc.markFailed(context.WithoutCancel(ctx), sn, err.Error(), "failed")
		return nil, err
	}

	metrics.SnapshotsTotal.WithLabelValues("started").Inc()
	uc.logger.Info("Snapshot queued",
		zap.String("snapshot_id", handle.ID),
		zap.String("website_id", website.ID),
		zap.Int("version", handle.Version),
	)
	return &handle, nil
}

// GetSnapshotStatus prefers the progress cache and falls back to the store.
func (uc *snapshotUseCase) GetSnapshotStatus(ctx context.Context, ownerID, snapshotID string) (*entity.SnapshotStatus, error) {
	cached, err := uc.progress.Get(ctx, snapshotID)
	switch {
	case err == nil && cached.OwnerID == ownerID:
		return cached, nil
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		uc.logger.Warn("Progress cache lookup failed", zap.String("snapshot_id", snapshotID), zap.Error(err))
	}

	sn, err := uc.GetSnapshot(ctx, ownerID, snapshotID)
	if err != nil {
		return nil, err
	}
	status := sn.Status()
	return &status, nil
}

func (uc *snapshotUseCase) GetSnapshot(ctx context.Context, ownerID, snapshotID string) (*entity.Snapshot, error) {
	sn, err := uc.snapshots.GetByID(ctx, snapshotID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && sn.OwnerID != ownerID) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return sn, nil
}

func (uc *snapshotUseCase) ListSnapshots(ctx context.Context, ownerID, websiteID string, limit int) ([]*entity.Snapshot, error) {
	if _, err := ownedWebsite(ctx, uc.websites, ownerID, websiteID); err != nil {
		return nil, err
	}
	return uc.snapshots.ListByWebsite(ctx, websiteID, limit)
}

func (uc *snapshotUseCase) ListPages(ctx context.Context, ownerID, snapshotID string) ([]*entity.PageRecord, error) {
	if _, err := uc.GetSnapshot(ctx, ownerID, snapshotID); err != nil {
		return nil, err
	}
	return uc.pages.ListBySnapshot(ctx, snapshotID)
}

func (uc *snapshotUseCase) ListFailures(ctx context.Context, ownerID, snapshotID string) ([]*entity.PageFailure, error) {
	if _, err := uc.GetSnapshot(ctx, ownerID, snapshotID); err != nil {
		return nil, err
	}
	return uc.failures.ListBySnapshot(ctx, snapshotID)
}

func (uc *snapshotUseCase) RecoverInterrupted(ctx context.Context) (int, error) {
	stale, err := uc.snapshots.ListNonTerminal(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list unfinished snapshots: %w", err)
	}

	marked := 0
	for _, sn := range stale {
		if uc.registry.Done(sn.ID) != nil {
			continue
		}
		// A live lease means another process is still scanning it.
		ok, err := uc.lease.Acquire(ctx, sn.ID, uc.cfg.HolderID, uc.cfg.LeaseTTL)
		if err != nil {
			return marked, fmt.Errorf("failed to check scan lease: %w", err)
		}
		if !ok {
			continue
		}
		if uc.markFailed(ctx, sn, interruptedMessage, "interrupted") {
			marked++
		}
		if err := uc.lease.Release(ctx, sn.ID, uc.cfg.HolderID); err != nil {
			uc.logger.Warn("Failed to release scan lease", zap.String("snapshot_id", sn.ID), zap.Error(err))
		}
	}
	if marked > 0 {
		uc.logger.Info("Marked interrupted snapshots as failed", zap.Int("count", marked))
	}
	return marked, nil
}

// markFailed moves sn to failed and counts it under outcome.
func (uc *snapshotUseCase) markFailed(ctx context.Context, sn *entity.Snapshot, reason, outcome string) bool {
	now := time.Now()
	sn.State = entity.StateFailed
	sn.CurrentStep = stepFailed
	sn.ErrorMessage = reason
	sn.CompletedAt = &now
	if err := uc.snapshots.Update(ctx, sn); err != nil {
		uc.logger.Error("Failed to mark snapshot as failed", zap.String("snapshot_id", sn.ID), zap.Error(err))
		return false
	}
	if err := uc.progress.Put(ctx, sn.Status(), uc.cfg.ProgressTTL); err != nil {
		uc.logger.Warn("Failed to cache snapshot progress", zap.String("snapshot_id", sn.ID), zap.Error(err))
	}
	metrics.SnapshotsTotal.WithLabelValues(outcome).Inc()
	return true
}

func (uc *snapshotUseCase) Shutdown(ctx context.Context) error {
	return uc.registry.Shutdown(ctx)
}

// ownedWebsite loads a website and hides websites of other owners.
func ownedWebsite(ctx context.Context, repo repository.WebsiteRepository, ownerID, websiteID string) (*entity.Website, error) {
	w, err := repo.GetByID(ctx, websiteID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && w.OwnerID != ownerID) {
		return nil, ErrWebsiteNotFound
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}
