package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/repository"
)

const progressKeyPrefix = "snapshot:progress:"

// ProgressRepoImpl provides a concrete implementation for the ProgressCache interface using Redis.
type ProgressRepoImpl struct {
	client *redis.Client
}

// NewProgressRepo creates a new instance of ProgressRepoImpl.
func NewProgressRepo(client *redis.Client) *ProgressRepoImpl {
	return &ProgressRepoImpl{client: client}
}

func (r *ProgressRepoImpl) generateKey(snapshotID string) string {
	return fmt.Sprintf("%s%s", progressKeyPrefix, snapshotID)
}

// progressEntry keeps the owner alongside the public status fields.
type progressEntry struct {
	entity.SnapshotStatus
	OwnerID string `json:"owner_id"`
}

// Put stores the latest status of a snapshot with an expiry time.
func (r *ProgressRepoImpl) Put(ctx context.Context, status entity.SnapshotStatus, ttl time.Duration) error {
	payload, err := json.Marshal(progressEntry{SnapshotStatus: status, OwnerID: status.OwnerID})
	if err != nil {
		return err
	}
	// SETEX is atomic and sets the key with an expiry.
	return r.client.SetEx(ctx, r.generateKey(status.SnapshotID), payload, ttl).Err()
}

// Get returns the cached status or repository.ErrNotFound.
func (r *ProgressRepoImpl) Get(ctx context.Context, snapshotID string) (*entity.SnapshotStatus, error) {
	payload, err := r.client.Get(ctx, r.generateKey(snapshotID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var entry progressEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("decode cached progress: %w", err)
	}
	entry.SnapshotStatus.OwnerID = entry.OwnerID
	return &entry.SnapshotStatus, nil
}

var _ repository.ProgressCache = (*ProgressRepoImpl)(nil)
