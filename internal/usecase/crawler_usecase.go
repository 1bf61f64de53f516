package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/extractor"
	"github.com/user/seo-snapshot-service/internal/repository"
	"github.com/user/seo-snapshot-service/pkg/metrics"
	"github.com/user/seo-snapshot-service/pkg/utils"
)

// Progress steps shown to pollers.
const (
	stepDiscovering = "Discovering pages"
	stepReport      = "Generating report"
	stepCompleted   = "Completed"
	stepFailed      = "Failed"
)

// ScanConfig tunes the background scan.
type ScanConfig struct {
	// PolitenessDelay is the minimum gap between two page fetches of one scan.
	PolitenessDelay time.Duration
	ProgressTTL     time.Duration
	LeaseTTL        time.Duration
	// HolderID identifies this process when taking scan leases.
	HolderID string
}

// Crawler runs the scan of a single snapshot to completion.
type Crawler interface {
	Run(ctx context.Context, snapshot *entity.Snapshot, website *entity.Website)
}

type crawlerUseCase struct {
	snapshots  repository.SnapshotRepository
	pages      repository.PageRecordRepository
	failures   repository.PageFailureRepository
	discoverer repository.LinkDiscoverer
	fetcher    repository.PageFetcher
	progress   repository.ProgressCache
	lease      repository.ScanLease
	cfg        ScanConfig
	logger     *zap.Logger
}

// NewCrawlerUseCase creates the scan orchestrator.
func NewCrawlerUseCase(
	snapshots repository.SnapshotRepository,
	pages repository.PageRecordRepository,
	failures repository.PageFailureRepository,
	discoverer repository.LinkDiscoverer,
	fetcher repository.PageFetcher,
	progress repository.ProgressCache,
	lease repository.ScanLease,
	cfg ScanConfig,
	logger *zap.Logger,
) Crawler {
	return &crawlerUseCase{
		snapshots:  snapshots,
		pages:      pages,
		failures:   failures,
		discoverer: discoverer,
		fetcher:    fetcher,
		progress:   progress,
		lease:      lease,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run drives the snapshot through crawling, scanning and report generation.
// A cancelled ctx stops the scan and leaves the snapshot non-terminal; any
// other fatal error marks it failed.
func (uc *crawlerUseCase) Run(ctx context.Context, sn *entity.Snapshot, website *entity.Website) {
	log := uc.logger.With(zap.String("snapshot_id", sn.ID), zap.String("website_id", website.ID), zap.Int("version", sn.Version))

	ok, err := uc.lease.Acquire(ctx, sn.ID, uc.cfg.HolderID, uc.cfg.LeaseTTL)
	if err != nil {
		uc.fail(ctx, log, sn, fmt.Errorf("acquire scan lease: %w", err))
		return
	}
	if !ok {
		log.Warn("Snapshot is leased by another process, skipping")
		return
	}
	defer func() {
		if err := uc.lease.Release(context.WithoutCancel(ctx), sn.ID, uc.cfg.HolderID); err != nil {
			log.Warn("Failed to release scan lease", zap.Error(err))
		}
	}()

	metrics.ScansInFlight.Inc()
	defer metrics.ScansInFlight.Dec()

	log.Info("Scan started", zap.String("base_url", sn.BaseURL))
	startTime := time.Now()

	sn.State = entity.StateCrawling
	sn.CurrentStep = stepDiscovering
	if err := uc.save(ctx, sn); err != nil {
		uc.abort(ctx, log, sn, err)
		return
	}

	urls := uc.discoverer.Discover(ctx, sn.BaseURL)
	if ctx.Err() != nil {
		log.Info("Scan cancelled during discovery")
		return
	}
	if website.MaxPages > 0 && len(urls) > website.MaxPages {
		urls = urls[:website.MaxPages]
	}

	sn.State = entity.StateScanning
	sn.PagesDiscovered = len(urls)
	sn.CurrentStep = fmt.Sprintf("Analyzing page 0 of %d", len(urls))
	if err := uc.save(ctx, sn); err != nil {
		uc.abort(ctx, log, sn, err)
		return
	}

	limiter := rate.NewLimiter(rate.Every(uc.cfg.PolitenessDelay), 1)
	for i, u := range urls {
		if err := limiter.Wait(ctx); err != nil {
			log.Info("Scan cancelled", zap.Int("pages_done", i))
			return
		}

		sn.CurrentStep = fmt.Sprintf("Analyzing page %d of %d", i+1, len(urls))
		rec, pageErr := uc.capturePage(ctx, sn, u)
		if ctx.Err() != nil {
			log.Info("Scan cancelled", zap.Int("pages_done", i))
			return
		}
		if pageErr != nil {
			sn.PagesFailed++
			uc.recordFailure(ctx, log, sn, u, pageErr)
		} else {
			sn.PagesScraped++
			sn.Summary.Add(rec.Insights)
			metrics.PagesTotal.WithLabelValues("success", "").Inc()
		}

		if err := uc.save(ctx, sn); err != nil {
			uc.abort(ctx, log, sn, err)
			return
		}
		if err := uc.lease.Extend(ctx, sn.ID, uc.cfg.HolderID, uc.cfg.LeaseTTL); err != nil {
			if errors.Is(err, repository.ErrLeaseLost) {
				// The new holder owns the snapshot's writes from here on.
				log.Error("Scan lease taken over by another process, stopping", zap.Error(err))
				return
			}
			uc.abort(ctx, log, sn, fmt.Errorf("extend scan lease: %w", err))
			return
		}
	}

	sn.State = entity.StateGeneratingReport
	sn.CurrentStep = stepReport
	if err := uc.save(ctx, sn); err != nil {
		uc.abort(ctx, log, sn, err)
		return
	}

	now := time.Now()
	sn.State = entity.StateCompleted
	sn.CurrentStep = stepCompleted
	sn.CompletedAt = &now
	if err := uc.save(ctx, sn); err != nil {
		uc.abort(ctx, log, sn, err)
		return
	}

	metrics.SnapshotsTotal.WithLabelValues("completed").Inc()
	log.Info("Scan completed",
		zap.Int("pages_discovered", sn.PagesDiscovered),
		zap.Int("pages_scraped", sn.PagesScraped),
		zap.Int("pages_failed", sn.PagesFailed),
		zap.Int("total_insights", sn.Summary.TotalInsights),
		zap.Duration("duration", time.Since(startTime)),
	)
}

// capturePage fetches, extracts, classifies and stores one page.
func (uc *crawlerUseCase) capturePage(ctx context.Context, sn *entity.Snapshot, pageURL string) (*entity.PageRecord, error) {
	res, err := uc.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	facts, err := extractor.Extract(pageURL, res.HTML)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repository.ErrExtractionFailed, err)
	}
	insights := extractor.Classify(facts)

	rec := &entity.PageRecord{
		WebsiteID:       sn.WebsiteID,
		SnapshotID:      sn.ID,
		OwnerID:         sn.OwnerID,
		URL:             pageURL,
		URLPath:         utils.URLPath(pageURL),
		Title:           facts.Title,
		MetaDescription: facts.MetaDescription(),
		H1Tags:          facts.Heading("h1"),
		H2Tags:          facts.Heading("h2"),
		WordCount:       facts.WordCount,
		Facts:           *facts,
		Insights:        insights,
		ContentHash:     facts.ContentHash,
		ResponseTimeMS:  int(res.Duration.Milliseconds()),
		HTTPStatusCode:  res.HTTPStatusCode,
		CapturedAt:      time.Now(),
	}
	if err := uc.pages.Save(ctx, rec); err != nil {
		return nil, &persistError{err: err}
	}
	return rec, nil
}

// persistError marks a page that was captured but could not be stored.
type persistError struct{ err error }

func (e *persistError) Error() string { return "failed to save page record: " + e.err.Error() }
func (e *persistError) Unwrap() error { return e.err }

func (uc *crawlerUseCase) recordFailure(ctx context.Context, log *zap.Logger, sn *entity.Snapshot, pageURL string, pageErr error) {
	errorType := "unknown"
	var httpStatusCode int
	var statusErr *repository.HTTPStatusError
	var saveErr *persistError
	switch {
	case errors.As(pageErr, &statusErr):
		errorType = "restricted"
		httpStatusCode = statusErr.StatusCode
	case errors.Is(pageErr, repository.ErrCrawlTimeout):
		errorType = "timeout"
	case errors.Is(pageErr, repository.ErrNavigationFailed):
		errorType = "navigation"
	case errors.Is(pageErr, repository.ErrContentRestricted):
		errorType = "restricted"
	case errors.Is(pageErr, repository.ErrExtractionFailed):
		errorType = "extraction"
	case errors.As(pageErr, &saveErr):
		errorType = "persist"
	}
	metrics.PagesTotal.WithLabelValues("failure", errorType).Inc()
	log.Warn("Page capture failed", zap.String("url", pageURL), zap.String("error_type", errorType), zap.Error(pageErr))

	failure := &entity.PageFailure{
		SnapshotID:     sn.ID,
		URL:            pageURL,
		ErrorType:      errorType,
		FailureReason:  pageErr.Error(),
		HTTPStatusCode: httpStatusCode,
		AttemptedAt:    time.Now(),
	}
	if err := uc.failures.Save(ctx, failure); err != nil {
		// The failure still counts in PagesFailed.
		log.Warn("Failed to record page failure", zap.String("url", pageURL), zap.Error(err))
	}
}

// save persists progress to the store, then mirrors it into the cache.
func (uc *crawlerUseCase) save(ctx context.Context, sn *entity.Snapshot) error {
	if err := uc.snapshots.Update(ctx, sn); err != nil {
		return fmt.Errorf("failed to update snapshot: %w", err)
	}
	if err := uc.progress.Put(ctx, sn.Status(), uc.cfg.ProgressTTL); err != nil {
		uc.logger.Warn("Failed to cache snapshot progress", zap.String("snapshot_id", sn.ID), zap.Error(err))
	}
	return nil
}

// abort handles a failed progress write. Cancellation is not a failure.
func (uc *crawlerUseCase) abort(ctx context.Context, log *zap.Logger, sn *entity.Snapshot, err error) {
	if ctx.Err() != nil {
		log.Info("Scan cancelled")
		return
	}
	uc.fail(ctx, log, sn, err)
}

func (uc *crawlerUseCase) fail(ctx context.Context, log *zap.Logger, sn *entity.Snapshot, cause error) {
	log.Error("Scan failed", zap.Error(cause))
	metrics.SnapshotsTotal.WithLabelValues("failed").Inc()

	now := time.Now()
	sn.State = entity.StateFailed
	sn.CurrentStep = stepFailed
	sn.ErrorMessage = cause.Error()
	sn.CompletedAt = &now
	if err := uc.save(context.WithoutCancel(ctx), sn); err != nil {
		log.Error("Failed to mark snapshot as failed", zap.Error(err))
	}
}
