package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/repository"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestProgressRoundTrip(t *testing.T) {
	t.Parallel()
	mr, client := newTestClient(t)
	repo := NewProgressRepo(client)
	ctx := context.Background()

	_, err := repo.Get(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)

	status := entity.SnapshotStatus{
		SnapshotID:      "s1",
		OwnerID:         "owner-1",
		State:           entity.StateScanning,
		CurrentStep:     "Analyzing page 2 of 5",
		PagesDiscovered: 5,
		PagesScraped:    1,
	}
	require.NoError(t, repo.Put(ctx, status, time.Minute))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", got.OwnerID)
	assert.Equal(t, entity.StateScanning, got.State)
	assert.Equal(t, 5, got.PagesDiscovered)

	mr.FastForward(2 * time.Minute)
	_, err = repo.Get(ctx, "s1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLeaseSingleOwner(t *testing.T) {
	t.Parallel()
	mr, client := newTestClient(t)
	lease := NewLeaseRepo(client)
	ctx := context.Background()

	ok, err := lease.Acquire(ctx, "s1", "node-a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lease.Acquire(ctx, "s1", "node-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, lease.Extend(ctx, "s1", "node-a", time.Minute))
	assert.ErrorIs(t, lease.Extend(ctx, "s1", "node-b", time.Minute), repository.ErrLeaseLost)

	// A foreign release leaves the lease in place.
	require.NoError(t, lease.Release(ctx, "s1", "node-b"))
	assert.True(t, mr.Exists(leaseKeyPrefix+"s1"))

	require.NoError(t, lease.Release(ctx, "s1", "node-a"))
	ok, err = lease.Acquire(ctx, "s1", "node-b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLeaseExpires(t *testing.T) {
	t.Parallel()
	mr, client := newTestClient(t)
	lease := NewLeaseRepo(client)
	ctx := context.Background()

	ok, err := lease.Acquire(ctx, "s1", "node-a", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	ok, err = lease.Acquire(ctx, "s1", "node-b", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLeaseExtendReclaimsExpiredKey(t *testing.T) {
	t.Parallel()
	mr, client := newTestClient(t)
	lease := NewLeaseRepo(client)
	ctx := context.Background()

	ok, err := lease.Acquire(ctx, "s1", "node-a", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)
	require.False(t, mr.Exists(leaseKeyPrefix+"s1"))

	require.NoError(t, lease.Extend(ctx, "s1", "node-a", time.Minute))
	holder, err := mr.Get(leaseKeyPrefix + "s1")
	require.NoError(t, err)
	assert.Equal(t, "node-a", holder)
	assert.Equal(t, time.Minute, mr.TTL(leaseKeyPrefix+"s1"))

	ok, err = lease.Acquire(ctx, "s1", "node-b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}
