package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/repository"
	"github.com/user/seo-snapshot-service/pkg/metrics"
)

func TestScanCapturesPagesAndFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pages := []string{"https://example.com/", "https://example.com/about", "https://example.com/private"}

	f.discoverer.On("Discover", mock.Anything, "https://example.com").Return(pages)
	f.fetcher.On("Fetch", mock.Anything, pages[0]).Return(fetched(pages[0], pageHTML("Home", "welcome")), nil)
	f.fetcher.On("Fetch", mock.Anything, pages[1]).Return(fetched(pages[1], pageHTML("", "no title here")), nil)
	f.fetcher.On("Fetch", mock.Anything, pages[2]).Return(nil, &repository.HTTPStatusError{StatusCode: 403})

	website, handle, err := f.websites.ScanURL(ctx, owner, WebsiteRequest{URL: "https://example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, handle.Version)
	assert.Equal(t, website.ID, handle.WebsiteID)
	assert.Equal(t, entity.StatePending, handle.State)
	f.wait(t, handle.ID)

	sn := f.snapshot(t, handle.ID)
	assert.Equal(t, entity.StateCompleted, sn.State)
	assert.Equal(t, 3, sn.PagesDiscovered)
	assert.Equal(t, 2, sn.PagesScraped)
	assert.Equal(t, 1, sn.PagesFailed)
	assert.Equal(t, "Completed", sn.CurrentStep)
	require.NotNil(t, sn.CompletedAt)
	assert.GreaterOrEqual(t, sn.Summary.CriticalIssues, 1, "untitled page is critical")
	assert.Equal(t, sn.Summary.CriticalIssues+sn.Summary.Warnings+sn.Summary.GoodPractices, sn.Summary.TotalInsights)

	records, err := f.snapshots.ListPages(ctx, owner, handle.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "https://example.com/", records[0].URL)
	assert.Equal(t, "Home", records[0].Title)
	assert.Equal(t, []string{"Home"}, records[0].H1Tags)
	assert.Equal(t, "/about", records[1].URLPath)
	assert.Equal(t, 15, records[0].ResponseTimeMS)

	failures, err := f.snapshots.ListFailures(ctx, owner, handle.ID)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "restricted", failures[0].ErrorType)
	assert.Equal(t, 403, failures[0].HTTPStatusCode)
	assert.Equal(t, pages[2], failures[0].URL)

	status, err := f.snapshots.GetSnapshotStatus(ctx, owner, handle.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateCompleted, status.State)
	assert.Equal(t, 2, status.PagesScraped)
}

func TestScanLabelsFailureTypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pages := []string{"https://example.com/slow", "https://example.com/broken"}

	f.discoverer.On("Discover", mock.Anything, mock.Anything).Return(pages)
	f.fetcher.On("Fetch", mock.Anything, pages[0]).Return(nil, repository.ErrCrawlTimeout)
	f.fetcher.On("Fetch", mock.Anything, pages[1]).Return(nil, repository.ErrNavigationFailed)

	_, handle, err := f.websites.ScanURL(ctx, owner, WebsiteRequest{URL: "https://example.com"})
	require.NoError(t, err)
	f.wait(t, handle.ID)

	sn := f.snapshot(t, handle.ID)
	assert.Equal(t, entity.StateCompleted, sn.State, "page failures never fail the scan")
	assert.Equal(t, 0, sn.PagesScraped)
	assert.Equal(t, 2, sn.PagesFailed)

	failures, err := f.snapshots.ListFailures(ctx, owner, handle.ID)
	require.NoError(t, err)
	types := map[string]string{}
	for _, pf := range failures {
		types[pf.URL] = pf.ErrorType
	}
	assert.Equal(t, map[string]string{pages[0]: "timeout", pages[1]: "navigation"}, types)
}

func TestScanTruncatesToMaxPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pages := []string{
		"https://example.com/a", "https://example.com/b",
		"https://example.com/c", "https://example.com/d",
	}
	f.discoverer.On("Discover", mock.Anything, mock.Anything).Return(pages)
	f.fetcher.On("Fetch", mock.Anything, mock.Anything).Return(fetched("", pageHTML("Page", "text")), nil)

	_, handle, err := f.websites.ScanURL(ctx, owner, WebsiteRequest{URL: "https://example.com", MaxPages: 2})
	require.NoError(t, err)
	f.wait(t, handle.ID)

	sn := f.snapshot(t, handle.ID)
	assert.Equal(t, 2, sn.PagesDiscovered)
	assert.Equal(t, 2, sn.PagesScraped)
	f.fetcher.AssertNumberOfCalls(t, "Fetch", 2)
	f.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, "https://example.com/c")
}

func TestScanWithoutLinksCompletesEmpty(t *testing.T) {
	f := newFixture(t)
	f.discoverer.On("Discover", mock.Anything, mock.Anything).Return([]string{})

	_, handle, err := f.websites.ScanURL(context.Background(), owner, WebsiteRequest{URL: "https://unreachable.example"})
	require.NoError(t, err)
	f.wait(t, handle.ID)

	sn := f.snapshot(t, handle.ID)
	assert.Equal(t, entity.StateCompleted, sn.State)
	assert.Zero(t, sn.PagesDiscovered)
	assert.Zero(t, sn.Summary.TotalInsights)
	f.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
}

func TestScanCancelledStaysNonTerminalUntilRecovered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	started := make(chan struct{})

	f.discoverer.On("Discover", mock.Anything, mock.Anything).Return([]string{"https://example.com/hang"})
	f.fetcher.On("Fetch", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		close(started)
		<-args.Get(0).(context.Context).Done()
	}).Return(nil, context.Canceled)

	_, handle, err := f.websites.ScanURL(ctx, owner, WebsiteRequest{URL: "https://example.com"})
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("fetch never started")
	}
	require.True(t, f.registry.Cancel(handle.ID))
	f.wait(t, handle.ID)
	interrupted := testutil.ToFloat64(metrics.SnapshotsTotal.WithLabelValues("interrupted"))

	sn := f.snapshot(t, handle.ID)
	assert.Equal(t, entity.StateScanning, sn.State)
	assert.Zero(t, sn.PagesFailed, "a cancelled page is neither scraped nor failed")

	marked, err := f.snapshots.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	sn = f.snapshot(t, handle.ID)
	assert.Equal(t, entity.StateFailed, sn.State)
	assert.Equal(t, interruptedMessage, sn.ErrorMessage)
	assert.Equal(t, interrupted+1, testutil.ToFloat64(metrics.SnapshotsTotal.WithLabelValues("interrupted")))

	status, err := f.snapshots.GetSnapshotStatus(ctx, owner, handle.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateFailed, status.State)
}

func TestRecoverSkipsSnapshotsLeasedElsewhere(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.addWebsite(t, owner, "https://example.com", entity.RolePrimary)
	sn, err := f.store.Snapshots().CreateNextVersion(ctx, w.ID, owner, w.BaseURL)
	require.NoError(t, err)

	ok, err := f.lease.Acquire(ctx, sn.ID, "other-replica", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	marked, err := f.snapshots.RecoverInterrupted(ctx)
	require.NoError(t, err)
	assert.Zero(t, marked)
	assert.Equal(t, entity.StatePending, f.snapshot(t, sn.ID).State)
}

func TestScanSkipsSnapshotLeasedElsewhere(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.addWebsite(t, owner, "https://example.com", entity.RolePrimary)
	sn, err := f.store.Snapshots().CreateNextVersion(ctx, w.ID, owner, w.BaseURL)
	require.NoError(t, err)

	ok, err := f.lease.Acquire(ctx, sn.ID, "other-replica", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	f.crawler.Run(ctx, sn, w)

	assert.Equal(t, entity.StatePending, f.snapshot(t, sn.ID).State)
	f.discoverer.AssertNotCalled(t, "Discover", mock.Anything, mock.Anything)
}

func TestScanFailsWhenLeaseStoreIsDown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.addWebsite(t, owner, "https://example.com", entity.RolePrimary)
	sn, err := f.store.Snapshots().CreateNextVersion(ctx, w.ID, owner, w.BaseURL)
	require.NoError(t, err)

	f.mr.Close()
	f.crawler.Run(ctx, sn, w)

	stored := f.snapshot(t, sn.ID)
	assert.Equal(t, entity.StateFailed, stored.State)
	assert.Contains(t, stored.ErrorMessage, "acquire scan lease")
}

func TestScanFailsWhenLeaseStoreGoesDownMidScan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pages := []string{"https://example.com/", "https://example.com/about"}
	w := f.addWebsite(t, owner, "https://example.com", entity.RolePrimary)
	sn, err := f.store.Snapshots().CreateNextVersion(ctx, w.ID, owner, w.BaseURL)
	require.NoError(t, err)

	f.discoverer.On("Discover", mock.Anything, mock.Anything).Return(pages)
	f.fetcher.On("Fetch", mock.Anything, pages[0]).
		Run(func(mock.Arguments) { f.mr.Close() }).
		Return(fetched(pages[0], pageHTML("Home", "welcome")), nil)

	f.crawler.Run(ctx, sn, w)

	stored := f.snapshot(t, sn.ID)
	assert.Equal(t, entity.StateFailed, stored.State)
	assert.Contains(t, stored.ErrorMessage, "extend scan lease")
	assert.Equal(t, 1, stored.PagesScraped)
	require.NotNil(t, stored.CompletedAt)
	f.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, pages[1])

	records, err := f.snapshots.ListPages(ctx, owner, sn.ID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestScanReclaimsExpiredLease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pages := []string{"https://example.com/", "https://example.com/about"}
	w := f.addWebsite(t, owner, "https://example.com", entity.RolePrimary)
	sn, err := f.store.Snapshots().CreateNextVersion(ctx, w.ID, owner, w.BaseURL)
	require.NoError(t, err)

	f.discoverer.On("Discover", mock.Anything, mock.Anything).Return(pages)
	f.fetcher.On("Fetch", mock.Anything, pages[0]).
		Run(func(mock.Arguments) { f.mr.Del("snapshot:lease:" + sn.ID) }).
		Return(fetched(pages[0], pageHTML("Home", "welcome")), nil)
	f.fetcher.On("Fetch", mock.Anything, pages[1]).Return(fetched(pages[1], pageHTML("About", "us")), nil)

	f.crawler.Run(ctx, sn, w)

	stored := f.snapshot(t, sn.ID)
	assert.Equal(t, entity.StateCompleted, stored.State)
	assert.Equal(t, 2, stored.PagesScraped)
}

func TestScanStopsWhenLeaseTakenOver(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pages := []string{"https://example.com/", "https://example.com/about"}
	w := f.addWebsite(t, owner, "https://example.com", entity.RolePrimary)
	sn, err := f.store.Snapshots().CreateNextVersion(ctx, w.ID, owner, w.BaseURL)
	require.NoError(t, err)

	f.discoverer.On("Discover", mock.Anything, mock.Anything).Return(pages)
	f.fetcher.On("Fetch", mock.Anything, pages[0]).
		Run(func(mock.Arguments) { require.NoError(t, f.mr.Set("snapshot:lease:"+sn.ID, "other-replica")) }).
		Return(fetched(pages[0], pageHTML("Home", "welcome")), nil)

	f.crawler.Run(ctx, sn, w)

	stored := f.snapshot(t, sn.ID)
	assert.Equal(t, entity.StateScanning, stored.State, "the new holder finishes the snapshot")
	assert.Empty(t, stored.ErrorMessage)
	f.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, pages[1])

	holder, err := f.mr.Get("snapshot:lease:" + sn.ID)
	require.NoError(t, err)
	assert.Equal(t, "other-replica", holder)
}

// failingSnapshots rejects exactly one Update call, counted from 1.
type failingSnapshots struct {
	repository.SnapshotRepository
	failOn int
	calls  int
}

func (r *failingSnapshots) Update(ctx context.Context, sn *entity.Snapshot) error {
	r.calls++
	if r.calls == r.failOn {
		return errors.New("connection reset by peer")
	}
	return r.SnapshotRepository.Update(ctx, sn)
}

func TestScanFailsWhenSnapshotStoreRejectsProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pages := []string{"https://example.com/", "https://example.com/about", "https://example.com/contact"}
	w := f.addWebsite(t, owner, "https://example.com", entity.RolePrimary)
	sn, err := f.store.Snapshots().CreateNextVersion(ctx, w.ID, owner, w.BaseURL)
	require.NoError(t, err)

	f.discoverer.On("Discover", mock.Anything, mock.Anything).Return(pages)
	for _, u := range pages {
		f.fetcher.On("Fetch", mock.Anything, u).Return(fetched(u, pageHTML("Page", "content")), nil)
	}

	// Updates: crawling, scanning, page 1, page 2.
	snapshots := &failingSnapshots{SnapshotRepository: f.store.Snapshots(), failOn: 4}
	crawler := NewCrawlerUseCase(snapshots, f.store.Pages(), f.store.Failures(),
		f.discoverer, f.fetcher, f.progress, f.lease, f.cfg, zap.NewNop())
	crawler.Run(ctx, sn, w)

	stored := f.snapshot(t, sn.ID)
	assert.Equal(t, entity.StateFailed, stored.State)
	assert.Contains(t, stored.ErrorMessage, "connection reset by peer")
	assert.Equal(t, "Failed", stored.CurrentStep)
	f.fetcher.AssertNotCalled(t, "Fetch", mock.Anything, pages[2])

	records, err := f.snapshots.ListPages(ctx, owner, sn.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2, "pages saved before the failure are kept")

	status, err := f.snapshots.GetSnapshotStatus(ctx, owner, sn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateFailed, status.State)
	assert.NotEmpty(t, status.ErrorMessage)
}

func TestStartSnapshotVersionsAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.discoverer.On("Discover", mock.Anything, mock.Anything).Return([]string{})

	w := f.addWebsite(t, owner, "https://example.com", entity.RolePrimary)
	started := testutil.ToFloat64(metrics.SnapshotsTotal.WithLabelValues("started"))
	first, err := f.snapshots.StartSnapshot(ctx, owner, w.ID)
	require.NoError(t, err)
	second, err := f.snapshots.StartSnapshot(ctx, owner, w.ID)
	require.NoError(t, err)
	f.wait(t, first.ID)
	f.wait(t, second.ID)

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, started+2, testutil.ToFloat64(metrics.SnapshotsTotal.WithLabelValues("started")))

	_, err = f.snapshots.StartSnapshot(ctx, "intruder", w.ID)
	assert.ErrorIs(t, err, ErrWebsiteNotFound)
	_, err = f.snapshots.GetSnapshotStatus(ctx, "intruder", first.ID)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	_, err = f.snapshots.ListPages(ctx, "intruder", first.ID)
	assert.ErrorIs(t, err, ErrSnapshotNotFound)
	_, err = f.snapshots.GetSnapshot(ctx, owner, "missing")
	assert.ErrorIs(t, err, ErrSnapshotNotFound)

	list, err := f.snapshots.ListSnapshots(ctx, owner, w.ID, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].Version)
}

func TestStartSnapshotRejectsInactiveWebsite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.addWebsite(t, owner, "https://example.com", entity.RolePrimary)
	require.NoError(t, f.websites.DeactivateWebsite(ctx, owner, w.ID))

	_, err := f.snapshots.StartSnapshot(ctx, owner, w.ID)
	assert.ErrorIs(t, err, ErrWebsiteInactive)
}

func TestStartSnapshotAfterShutdown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.addWebsite(t, owner, "https://example.com", entity.RolePrimary)
	require.NoError(t, f.snapshots.Shutdown(ctx))

	_, err := f.snapshots.StartSnapshot(ctx, owner, w.ID)
	require.ErrorIs(t, err, ErrShuttingDown)

	list, err := f.snapshots.ListSnapshots(ctx, owner, w.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, entity.StateFailed, list[0].State)
}

func TestSnapshotStatusFallsBackToStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	w := f.addWebsite(t, owner, "https://example.com", entity.RolePrimary)
	sn := f.completedSnapshot(t, w)

	f.mr.FlushAll()
	status, err := f.snapshots.GetSnapshotStatus(ctx, owner, sn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StateCompleted, status.State)
	assert.Equal(t, sn.ID, status.SnapshotID)
}
