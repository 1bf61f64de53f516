package memory

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/repository"
)

func newWebsite(t *testing.T, s *Store, owner, domain string) *entity.Website {
	t.Helper()
	w := &entity.Website{OwnerID: owner, Domain: domain, Name: domain, Role: entity.RolePrimary, BaseURL: "https://" + domain}
	require.NoError(t, s.Websites().Create(context.Background(), w))
	return w
}

func TestWebsiteLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()

	w := newWebsite(t, s, "owner-1", "example.com")
	assert.NotEmpty(t, w.ID)
	assert.True(t, w.IsActive)

	dup := &entity.Website{OwnerID: "owner-1", Domain: "example.com"}
	assert.ErrorIs(t, s.Websites().Create(ctx, dup), repository.ErrDuplicateWebsite)

	other := &entity.Website{OwnerID: "owner-2", Domain: "example.com"}
	require.NoError(t, s.Websites().Create(ctx, other))

	found, err := s.Websites().FindByDomain(ctx, "owner-1", "example.com")
	require.NoError(t, err)
	assert.Equal(t, w.ID, found.ID)

	require.NoError(t, s.Websites().Deactivate(ctx, w.ID))
	_, err = s.Websites().FindByDomain(ctx, "owner-1", "example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	stored, err := s.Websites().GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	list, err := s.Websites().List(ctx, "owner-1", "")
	require.NoError(t, err)
	assert.Empty(t, list)

	// A deactivated domain may be tracked again.
	require.NoError(t, s.Websites().Create(ctx, &entity.Website{OwnerID: "owner-1", Domain: "example.com"}))
}

func TestCreateNextVersionIsAtomic(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := NewStore().WithClock(func() time.Time { return at })
	w := newWebsite(t, s, "o", "example.com")

	const n = 25
	versions := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sn, err := s.Snapshots().CreateNextVersion(ctx, w.ID, "o", w.BaseURL)
			if assert.NoError(t, err) {
				versions[i] = sn.Version
			}
		}(i)
	}
	wg.Wait()

	sort.Ints(versions)
	for i, v := range versions {
		assert.Equal(t, i+1, v)
	}
	stored, err := s.Websites().GetByID(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, n, stored.SnapshotCount)
	require.NotNil(t, stored.LastSnapshotAt)
	assert.Equal(t, at, *stored.LastSnapshotAt)
}

func TestSnapshotUpdateRules(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()
	w := newWebsite(t, s, "o", "example.com")

	sn, err := s.Snapshots().CreateNextVersion(ctx, w.ID, "o", w.BaseURL)
	require.NoError(t, err)
	assert.Equal(t, entity.StatePending, sn.State)

	sn.State = entity.StateScanning
	sn.PagesDiscovered = 3
	require.NoError(t, s.Snapshots().Update(ctx, sn))

	sn.State = entity.StateCrawling
	assert.ErrorIs(t, s.Snapshots().Update(ctx, sn), repository.ErrInvalidTransition)

	sn.State = entity.StateCompleted
	require.NoError(t, s.Snapshots().Update(ctx, sn))

	sn.State = entity.StateFailed
	assert.ErrorIs(t, s.Snapshots().Update(ctx, sn), repository.ErrSnapshotTerminal)

	latest, err := s.Snapshots().LatestCompleted(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, sn.ID, latest.ID)
	assert.Equal(t, 3, latest.PagesDiscovered)

	_, err = s.Snapshots().CreateNextVersion(ctx, w.ID, "o", w.BaseURL)
	require.NoError(t, err)
	pending, err := s.Snapshots().ListNonTerminal(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 2, pending[0].Version)

	all, err := s.Snapshots().ListByWebsite(ctx, w.ID, 1)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2, all[0].Version)
}

func TestPageRecordsAreUniquePerSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()

	require.NoError(t, s.Pages().Save(ctx, &entity.PageRecord{SnapshotID: "s1", URL: "https://example.com/b"}))
	require.NoError(t, s.Pages().Save(ctx, &entity.PageRecord{SnapshotID: "s1", URL: "https://example.com/a"}))
	require.NoError(t, s.Pages().Save(ctx, &entity.PageRecord{SnapshotID: "s2", URL: "https://example.com/a"}))
	assert.ErrorIs(t, s.Pages().Save(ctx, &entity.PageRecord{SnapshotID: "s1", URL: "https://example.com/a"}), repository.ErrDuplicatePage)

	pages, err := s.Pages().ListBySnapshot(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, "https://example.com/a", pages[0].URL)
}

func TestComparisonUpsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := NewStore()

	first := &entity.Comparison{WebsiteID: "w", BaselineSnapshotID: "a", CurrentSnapshotID: "b", PagesAdded: 1}
	require.NoError(t, s.Comparisons().Upsert(ctx, first))
	other := &entity.Comparison{WebsiteID: "w", BaselineSnapshotID: "b", CurrentSnapshotID: "c"}
	require.NoError(t, s.Comparisons().Upsert(ctx, other))
	again := &entity.Comparison{WebsiteID: "w", BaselineSnapshotID: "a", CurrentSnapshotID: "b", PagesAdded: 2}
	require.NoError(t, s.Comparisons().Upsert(ctx, again))

	assert.Equal(t, first.ID, again.ID)

	got, err := s.Comparisons().GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.PagesAdded)

	list, err := s.Comparisons().ListByWebsite(ctx, "w", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, again.ID, list[0].ID)
}
