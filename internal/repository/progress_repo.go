package repository

import (
	"context"
	"time"

	"github.com/user/seo-snapshot-service/internal/entity"
)

// ProgressCache holds the latest progress of running scans for fast polling.
type ProgressCache interface {
	Put(ctx context.Context, status entity.SnapshotStatus, ttl time.Duration) error
	// Get returns ErrNotFound when nothing is cached for the snapshot.
	Get(ctx context.Context, snapshotID string) (*entity.SnapshotStatus, error)
}

// ScanLease grants a single process the right to write a snapshot.
type ScanLease interface {
	// Acquire returns false if another holder owns the lease.
	Acquire(ctx context.Context, snapshotID, holder string, ttl time.Duration) (bool, error)
	Extend(ctx context.Context, snapshotID, holder string, ttl time.Duration) error
	Release(ctx context.Context, snapshotID, holder string) error
}
