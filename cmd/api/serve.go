package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/seo-snapshot-service/internal/adapter/chromedp_crawler"
	"github.com/user/seo-snapshot-service/internal/adapter/colly_discoverer"
	"github.com/user/seo-snapshot-service/internal/adapter/memory"
	"github.com/user/seo-snapshot-service/internal/adapter/postgres"
	redis_adapter "github.com/user/seo-snapshot-service/internal/adapter/redis"
	"github.com/user/seo-snapshot-service/internal/delivery/http/handler"
	"github.com/user/seo-snapshot-service/internal/delivery/http/router"
	"github.com/user/seo-snapshot-service/internal/diff"
	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/repository"
	"github.com/user/seo-snapshot-service/internal/scheduler"
	"github.com/user/seo-snapshot-service/internal/usecase"
	"github.com/user/seo-snapshot-service/pkg/config"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, background scans and the crawl scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return serve(cmd.Context(), cfg, log)
		},
	}
}

// stores groups the record repositories of the configured driver.
type stores struct {
	websites    repository.WebsiteRepository
	snapshots   repository.SnapshotRepository
	pages       repository.PageRecordRepository
	failures    repository.PageFailureRepository
	comparisons repository.ComparisonRepository
	ping        handler.PingFunc
	close       func()
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	if cfg.StoreDriver == config.DriverMemory {
		log.Warn("Using the in-memory store; data is lost on restart")
		m := memory.NewStore()
		return &stores{
			websites:    m.Websites(),
			snapshots:   m.Snapshots(),
			pages:       m.Pages(),
			failures:    m.Failures(),
			comparisons: m.Comparisons(),
			close:       func() {},
		}, nil
	}

	dbpool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("unable to reach database: %w", err)
	}
	if err := postgres.Migrate(ctx, dbpool); err != nil {
		dbpool.Close()
		return nil, err
	}
	log.Info("PostgreSQL connection pool established")

	return &stores{
		websites:    postgres.NewWebsiteRepo(dbpool),
		snapshots:   postgres.NewSnapshotRepo(dbpool),
		pages:       postgres.NewPageRecordRepo(dbpool),
		failures:    postgres.NewPageFailureRepo(dbpool),
		comparisons: postgres.NewComparisonRepo(dbpool),
		ping:        dbpool.Ping,
		close:       dbpool.Close,
	}, nil
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	// --- Stores ---
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("unable to connect to Redis: %w", err)
	}
	log.Info("Redis connection established")

	progress := redis_adapter.NewProgressRepo(rdb)
	lease := redis_adapter.NewLeaseRepo(rdb)

	// --- Crawl adapters ---
	fetcher := chromedp_crawler.NewChromedpFetcher(cfg.UserAgent, cfg.PageLoadTimeout, cfg.RenderSettleDelay, log)
	defer fetcher.Close()
	discoverer := colly_discoverer.NewCollyDiscoverer(cfg.UserAgent, cfg.DiscoveryTimeout, log)

	// --- Use Cases ---
	scanCfg := usecase.ScanConfig{
		PolitenessDelay: cfg.PolitenessDelay,
		ProgressTTL:     cfg.ProgressTTL,
		LeaseTTL:        cfg.LeaseTTL,
		HolderID:        uuid.NewString(),
	}
	registry := usecase.NewTaskRegistry()
	crawler := usecase.NewCrawlerUseCase(st.snapshots, st.pages, st.failures, discoverer, fetcher, progress, lease, scanCfg, log)
	snapshots := usecase.NewSnapshotManager(st.websites, st.snapshots, st.pages, st.failures, progress, lease, crawler, registry, scanCfg, log)
	websites := usecase.NewWebsiteManager(st.websites, snapshots, usecase.WebsiteDefaults{
		CrawlCadenceDays: cfg.DefaultCrawlCadenceDays,
		MaxPages:         cfg.DefaultMaxPages,
	}, log)
	diffOpts := diff.DefaultOptions()
	diffOpts.WordCountThreshold = cfg.WordCountNoiseThreshold
	diffOpts.Weights[entity.BucketImmediate] = cfg.CriticalWeight
	diffOpts.Weights[entity.BucketNeedsAttention] = cfg.WarningWeight
	comparator, err := usecase.NewComparator(st.websites, st.snapshots, st.pages, st.comparisons, diffOpts, cfg.PageCacheSize, log)
	if err != nil {
		return err
	}
	competitors := usecase.NewCompetitorAnalyzer(st.websites, st.snapshots, log)

	if _, err := snapshots.RecoverInterrupted(ctx); err != nil {
		log.Error("Failed to recover interrupted snapshots", zap.Error(err))
	}

	// --- Scheduler ---
	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		sched, err = scheduler.New(cfg.SchedulerSpec, st.websites, snapshots, log)
		if err != nil {
			return err
		}
		sched.Start()
	}

	// --- HTTP Server ---
	pingers := map[string]handler.PingFunc{
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
	if st.ping != nil {
		pingers["postgres"] = st.ping
	}
	apiHandler := handler.NewHandler(websites, snapshots, comparator, competitors, pingers, log)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(apiHandler, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 70 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("Starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("could not listen on port %s: %w", cfg.ServerPort, err)
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Warn("Scheduler did not stop in time", zap.Error(err))
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// Cancelled scans stay non-terminal and are recovered on the next start.
	log.Info("Cancelling background scans", zap.Int("running", registry.Running()))
	if err := snapshots.Shutdown(shutdownCtx); err != nil {
		log.Warn("Background scans did not stop in time", zap.Error(err))
	}

	log.Info("Server exiting")
	return nil
}
