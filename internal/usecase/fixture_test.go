package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/seo-snapshot-service/internal/adapter/memory"
	redisrepo "github.com/user/seo-snapshot-service/internal/adapter/redis"
	"github.com/user/seo-snapshot-service/internal/diff"
	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/repository"
)

const owner = "owner-1"

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (*repository.FetchResult, error) {
	args := m.Called(ctx, url)
	res, _ := args.Get(0).(*repository.FetchResult)
	return res, args.Error(1)
}

type mockDiscoverer struct {
	mock.Mock
}

func (m *mockDiscoverer) Discover(ctx context.Context, baseURL string) []string {
	args := m.Called(ctx, baseURL)
	return args.Get(0).([]string)
}

type fixture struct {
	store       *memory.Store
	mr          *miniredis.Miniredis
	progress    repository.ProgressCache
	lease       repository.ScanLease
	fetcher     *mockFetcher
	discoverer  *mockDiscoverer
	registry    *TaskRegistry
	cfg         ScanConfig
	crawler     Crawler
	snapshots   SnapshotManager
	websites    WebsiteManager
	comparator  Comparator
	competitors CompetitorAnalyzer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{
		store:      memory.NewStore(),
		mr:         mr,
		progress:   redisrepo.NewProgressRepo(client),
		lease:      redisrepo.NewLeaseRepo(client),
		fetcher:    &mockFetcher{},
		discoverer: &mockDiscoverer{},
		registry:   NewTaskRegistry(),
		cfg: ScanConfig{
			ProgressTTL: time.Hour,
			LeaseTTL:    time.Minute,
			HolderID:    "test-holder",
		},
	}
	logger := zap.NewNop()

	f.crawler = NewCrawlerUseCase(f.store.Snapshots(), f.store.Pages(), f.store.Failures(),
		f.discoverer, f.fetcher, f.progress, f.lease, f.cfg, logger)
	f.snapshots = NewSnapshotManager(f.store.Websites(), f.store.Snapshots(), f.store.Pages(), f.store.Failures(),
		f.progress, f.lease, f.crawler, f.registry, f.cfg, logger)
	f.websites = NewWebsiteManager(f.store.Websites(), f.snapshots, WebsiteDefaults{CrawlCadenceDays: 7, MaxPages: 50}, logger)

	comparator, err := NewComparator(f.store.Websites(), f.store.Snapshots(), f.store.Pages(), f.store.Comparisons(),
		diff.DefaultOptions(), 8, logger)
	require.NoError(t, err)
	f.comparator = comparator
	f.competitors = NewCompetitorAnalyzer(f.store.Websites(), f.store.Snapshots(), logger)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = f.registry.Shutdown(ctx)
	})
	return f
}

// wait blocks until the background scan of a snapshot exits.
func (f *fixture) wait(t *testing.T, snapshotID string) {
	t.Helper()
	done := f.registry.Done(snapshotID)
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("scan %s did not finish", snapshotID)
	}
}

func (f *fixture) snapshot(t *testing.T, id string) *entity.Snapshot {
	t.Helper()
	sn, err := f.store.Snapshots().GetByID(context.Background(), id)
	require.NoError(t, err)
	return sn
}

func (f *fixture) addWebsite(t *testing.T, ownerID, rawURL string, role entity.WebsiteRole) *entity.Website {
	t.Helper()
	w, err := f.websites.AddWebsite(context.Background(), ownerID, WebsiteRequest{URL: rawURL, Role: role})
	require.NoError(t, err)
	return w
}

// completedSnapshot stores a finished snapshot holding the given pages.
func (f *fixture) completedSnapshot(t *testing.T, w *entity.Website, pages ...*entity.PageRecord) *entity.Snapshot {
	t.Helper()
	ctx := context.Background()
	sn, err := f.store.Snapshots().CreateNextVersion(ctx, w.ID, w.OwnerID, w.BaseURL)
	require.NoError(t, err)

	for _, p := range pages {
		p.SnapshotID = sn.ID
		p.WebsiteID = w.ID
		p.OwnerID = w.OwnerID
		require.NoError(t, f.store.Pages().Save(ctx, p))
		sn.PagesScraped++
		sn.Summary.Add(p.Insights)
	}
	now := time.Now()
	sn.PagesDiscovered = len(pages)
	sn.State = entity.StateCompleted
	sn.CompletedAt = &now
	require.NoError(t, f.store.Snapshots().Update(ctx, sn))
	return sn
}

func pageHTML(title, body string) string {
	return fmt.Sprintf(`<html lang="en"><head><title>%s</title>
<meta name="description" content="A page about %s"></head>
<body><h1>%s</h1><p>%s</p><img src="/logo.png"></body></html>`, title, title, title, body)
}

func fetched(url, html string) *repository.FetchResult {
	return &repository.FetchResult{URL: url, HTML: html, HTTPStatusCode: 200, Duration: 15 * time.Millisecond}
}
