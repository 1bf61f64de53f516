package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/seo-snapshot-service/internal/entity"
)

// PageFailureRepoImpl provides a concrete implementation for the PageFailureRepository interface using PostgreSQL.
type PageFailureRepoImpl struct {
	db *pgxpool.Pool
}

// NewPageFailureRepo creates a new instance of PageFailureRepoImpl.
func NewPageFailureRepo(db *pgxpool.Pool) *PageFailureRepoImpl {
	return &PageFailureRepoImpl{db: db}
}

// Save records why a page of a snapshot could not be captured.
func (r *PageFailureRepoImpl) Save(ctx context.Context, f *entity.PageFailure) error {
	query := `
		INSERT INTO page_failures (snapshot_id, url, error_type, failure_reason, http_status_code, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;
	`
	return r.db.QueryRow(ctx, query,
		f.SnapshotID,
		f.URL,
		f.ErrorType,
		f.FailureReason,
		f.HTTPStatusCode,
		f.AttemptedAt,
	).Scan(&f.ID)
}

// ListBySnapshot retrieves a snapshot's page failures in the order they happened.
func (r *PageFailureRepoImpl) ListBySnapshot(ctx context.Context, snapshotID string) ([]*entity.PageFailure, error) {
	query := `
		SELECT id, snapshot_id, url, error_type, failure_reason, http_status_code, attempted_at
		FROM page_failures
		WHERE snapshot_id = $1
		ORDER BY id ASC;
	`
	rows, err := r.db.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	failures := []*entity.PageFailure{}
	for rows.Next() {
		var f entity.PageFailure
		if err := rows.Scan(
			&f.ID,
			&f.SnapshotID,
			&f.URL,
			&f.ErrorType,
			&f.FailureReason,
			&f.HTTPStatusCode,
			&f.AttemptedAt,
		); err != nil {
			return nil, err
		}
		failures = append(failures, &f)
	}
	return failures, rows.Err()
}
