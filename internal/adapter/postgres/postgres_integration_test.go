package postgres

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/repository"
)

// openTestDB connects to TEST_POSTGRES_URL and applies the schema.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	dsn := os.Getenv("TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, Migrate(ctx, db))
	return db
}

func createWebsite(t *testing.T, repo *WebsiteRepoImpl) *entity.Website {
	t.Helper()
	w := &entity.Website{
		OwnerID:          "owner-" + time.Now().Format("150405.000000000"),
		Domain:           "example.com",
		Name:             "Example",
		Role:             entity.RolePrimary,
		BaseURL:          "https://example.com",
		CrawlCadenceDays: 7,
		MaxPages:         50,
	}
	require.NoError(t, repo.Create(context.Background(), w))
	return w
}

func TestPostgresSnapshotVersions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	websites := NewWebsiteRepo(db)
	snapshots := NewSnapshotRepo(db)

	w := createWebsite(t, websites)
	assert.ErrorIs(t, websites.Create(ctx, &entity.Website{OwnerID: w.OwnerID, Domain: w.Domain, Role: entity.RolePrimary}), repository.ErrDuplicateWebsite)

	const n = 8
	versions := make(chan int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sn, err := snapshots.CreateNextVersion(ctx, w.ID, w.OwnerID, w.BaseURL)
			if assert.NoError(t, err) {
				versions <- sn.Version
			}
		}()
	}
	wg.Wait()
	close(versions)

	seen := map[int]bool{}
	for v := range versions {
		seen[v] = true
	}
	for v := 1; v <= n; v++ {
		assert.True(t, seen[v], "missing version %d", v)
	}

	stored, err := websites.GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, n, stored.SnapshotCount)
}

func TestPostgresSnapshotLifecycleAndPages(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	websites := NewWebsiteRepo(db)
	snapshots := NewSnapshotRepo(db)
	pages := NewPageRecordRepo(db)
	comparisons := NewComparisonRepo(db)

	w := createWebsite(t, websites)
	sn, err := snapshots.CreateNextVersion(ctx, w.ID, w.OwnerID, w.BaseURL)
	require.NoError(t, err)

	rec := &entity.PageRecord{
		WebsiteID:   w.ID,
		SnapshotID:  sn.ID,
		OwnerID:     w.OwnerID,
		URL:         "https://example.com/",
		URLPath:     "/",
		Title:       "Home",
		H1Tags:      []string{"Welcome"},
		Facts:       entity.Facts{Title: "Home", Headings: map[string][]string{"h1": {"Welcome"}}},
		Insights:    entity.NewInsights(),
		ContentHash: "abc",
		CapturedAt:  time.Now(),
	}
	require.NoError(t, pages.Save(ctx, rec))
	dup := *rec
	assert.ErrorIs(t, pages.Save(ctx, &dup), repository.ErrDuplicatePage)

	list, err := pages.ListBySnapshot(ctx, sn.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"Welcome"}, list[0].Facts.Heading("h1"))

	sn.State = entity.StateCompleted
	sn.PagesDiscovered, sn.PagesScraped = 1, 1
	now := time.Now()
	sn.CompletedAt = &now
	require.NoError(t, snapshots.Update(ctx, sn))
	sn.State = entity.StateFailed
	assert.ErrorIs(t, snapshots.Update(ctx, sn), repository.ErrSnapshotTerminal)

	latest, err := snapshots.LatestCompleted(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, sn.ID, latest.ID)

	cmp := &entity.Comparison{
		WebsiteID: w.ID, OwnerID: w.OwnerID, BaselineSnapshotID: sn.ID, CurrentSnapshotID: sn.ID,
		PageChanges: []entity.PageChange{}, InsightChanges: []entity.InsightChange{},
	}
	require.NoError(t, comparisons.Upsert(ctx, cmp))
	firstID := cmp.ID
	cmp.PagesAdded = 3
	require.NoError(t, comparisons.Upsert(ctx, cmp))
	assert.Equal(t, firstID, cmp.ID)

	got, err := comparisons.GetByID(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.PagesAdded)
}
