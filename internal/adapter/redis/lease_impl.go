package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/seo-snapshot-service/internal/repository"
)

const leaseKeyPrefix = "snapshot:lease:"

// Holder-checked extend and release, so a stale process cannot touch a
// lease another process has taken over. Extend re-claims an expired key.
var (
	extendScript = redis.NewScript(`
local holder = redis.call("GET", KEYS[1])
if holder == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if not holder then
	redis.call("SET", KEYS[1], ARGV[1], "PX", ARGV[2])
	return 1
end
return 0`)
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// LeaseRepoImpl provides a concrete implementation for the ScanLease interface using Redis.
type LeaseRepoImpl struct {
	client *redis.Client
}

// NewLeaseRepo creates a new instance of LeaseRepoImpl.
func NewLeaseRepo(client *redis.Client) *LeaseRepoImpl {
	return &LeaseRepoImpl{client: client}
}

// Acquire claims the snapshot for holder. SETNX makes the claim atomic.
func (r *LeaseRepoImpl) Acquire(ctx context.Context, snapshotID, holder string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, leaseKeyPrefix+snapshotID, holder, ttl).Result()
}

// Extend refreshes the lease expiry. It fails with repository.ErrLeaseLost
// only when another holder owns the key.
func (r *LeaseRepoImpl) Extend(ctx context.Context, snapshotID, holder string, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, r.client, []string{leaseKeyPrefix + snapshotID}, holder, ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrLeaseLost
	}
	return nil
}

// Release drops the lease if holder still owns it.
func (r *LeaseRepoImpl) Release(ctx context.Context, snapshotID, holder string) error {
	return releaseScript.Run(ctx, r.client, []string{leaseKeyPrefix + snapshotID}, holder).Err()
}

var _ repository.ScanLease = (*LeaseRepoImpl)(nil)
