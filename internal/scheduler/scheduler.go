// Package scheduler starts a new snapshot for every website whose crawl
// cadence has elapsed.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/user/seo-snapshot-service/internal/repository"
	"github.com/user/seo-snapshot-service/internal/usecase"
)

// Scheduler periodically sweeps active websites for due snapshots.
type Scheduler struct {
	cron      *cron.Cron
	spec      string
	websites  repository.WebsiteRepository
	snapshots usecase.SnapshotManager
	logger    *zap.Logger
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// New validates spec, which accepts standard 5-field expressions and
// descriptors such as "@every 1h".
func New(spec string, websites repository.WebsiteRepository, snapshots usecase.SnapshotManager, logger *zap.Logger) (*Scheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid scheduler spec %q: %w", spec, err)
	}

	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger.Named("cron")))
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		spec:      spec,
		websites:  websites,
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}

	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to schedule sweep: %w", err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.String("spec", s.spec))
}

// Stop halts the schedule and waits for a running sweep or ctx expiry.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	cronCtx := s.cron.Stop()
	select {
	case <-cronCtx.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) sweep() {
	started, err := s.RunOnce(s.ctx)
	if err != nil {
		s.logger.Error("Scheduled sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("Scheduled sweep finished", zap.Int("snapshots_started", started))
}

// RunOnce starts a snapshot for every due website and returns how many
// were started. A website that cannot be scanned does not stop the sweep.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	websites, err := s.websites.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list websites: %w", err)
	}

	now := s.now()
	started := 0
	for _, w := range websites {
		if ctx.Err() != nil {
			return started, ctx.Err()
		}
		if !w.DueForSnapshot(now) {
			continue
		}
		handle, err := s.snapshots.StartSnapshot(ctx, w.OwnerID, w.ID)
		if errors.Is(err, usecase.ErrShuttingDown) {
			return started, err
		}
		if err != nil {
			s.logger.Warn("Failed to start scheduled snapshot", zap.String("website_id", w.ID), zap.Error(err))
			continue
		}
		started++
		s.logger.Debug("Scheduled snapshot started",
			zap.String("website_id", w.ID),
			zap.String("snapshot_id", handle.ID),
			zap.Int("version", handle.Version),
		)
	}
	return started, nil
}
