package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/repository"
)

const snapshotColumns = `id, website_id, owner_id, version, state, base_url, pages_discovered, pages_scraped,
	pages_failed, current_step, error_message, total_insights, critical_issues, warnings, good_practices,
	started_at, completed_at, updated_at`

// SnapshotRepoImpl provides a concrete implementation for the SnapshotRepository interface using PostgreSQL.
type SnapshotRepoImpl struct {
	db *pgxpool.Pool
}

// NewSnapshotRepo creates a new instance of SnapshotRepoImpl.
func NewSnapshotRepo(db *pgxpool.Pool) *SnapshotRepoImpl {
	return &SnapshotRepoImpl{db: db}
}

// CreateNextVersion bumps the website counter and inserts the snapshot in one
// transaction. The UPDATE row lock serializes concurrent callers.
func (r *SnapshotRepoImpl) CreateNextVersion(ctx context.Context, websiteID, ownerID, baseURL string) (*entity.Snapshot, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var version int
	err = tx.QueryRow(ctx, `
		UPDATE websites
		SET snapshot_count = snapshot_count + 1, last_snapshot_at = NOW(), updated_at = NOW()
		WHERE id = $1
		RETURNING snapshot_count;
	`, websiteID).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("increment snapshot counter: %w", err)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO snapshots (id, website_id, owner_id, version, state, base_url, current_step)
		VALUES ($1, $2, $3, $4, $5, $6, 'Queued')
		RETURNING `+snapshotColumns+`;
	`, uuid.NewString(), websiteID, ownerID, version, string(entity.StatePending), baseURL)
	sn, err := scanSnapshot(row)
	if err != nil {
		return nil, fmt.Errorf("insert snapshot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}
	return sn, nil
}

func (r *SnapshotRepoImpl) GetByID(ctx context.Context, id string) (*entity.Snapshot, error) {
	return scanSnapshot(r.db.QueryRow(ctx, `SELECT `+snapshotColumns+` FROM snapshots WHERE id = $1;`, id))
}

// Update locks the stored row, validates the state transition and writes
// progress, state and summary counters.
func (r *SnapshotRepoImpl) Update(ctx context.Context, sn *entity.Snapshot) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var current string
	err = tx.QueryRow(ctx, `SELECT state FROM snapshots WHERE id = $1 FOR UPDATE;`, sn.ID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	state := entity.ScanState(current)
	if state.IsTerminal() {
		return repository.ErrSnapshotTerminal
	}
	if !state.CanTransitionTo(sn.State) {
		return repository.ErrInvalidTransition
	}

	err = tx.QueryRow(ctx, `
		UPDATE snapshots SET
			state = $2,
			pages_discovered = $3,
			pages_scraped = $4,
			pages_failed = $5,
			current_step = $6,
			error_message = $7,
			total_insights = $8,
			critical_issues = $9,
			warnings = $10,
			good_practices = $11,
			completed_at = $12,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at;
	`,
		sn.ID,
		string(sn.State),
		sn.PagesDiscovered,
		sn.PagesScraped,
		sn.PagesFailed,
		sn.CurrentStep,
		sn.ErrorMessage,
		sn.Summary.TotalInsights,
		sn.Summary.CriticalIssues,
		sn.Summary.Warnings,
		sn.Summary.GoodPractices,
		sn.CompletedAt,
	).Scan(&sn.UpdatedAt)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *SnapshotRepoImpl) LatestCompleted(ctx context.Context, websiteID string) (*entity.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM snapshots
		WHERE website_id = $1 AND state = 'completed'
		ORDER BY version DESC
		LIMIT 1;
	`
	return scanSnapshot(r.db.QueryRow(ctx, query, websiteID))
}

func (r *SnapshotRepoImpl) ListByWebsite(ctx context.Context, websiteID string, limit int) ([]*entity.Snapshot, error) {
	if limit <= 0 {
		limit = 1000
	}
	query := `
		SELECT ` + snapshotColumns + `
		FROM snapshots
		WHERE website_id = $1
		ORDER BY version DESC
		LIMIT $2;
	`
	return r.list(ctx, query, websiteID, limit)
}

func (r *SnapshotRepoImpl) ListNonTerminal(ctx context.Context) ([]*entity.Snapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM snapshots
		WHERE state NOT IN ('completed', 'failed')
		ORDER BY started_at ASC;
	`
	return r.list(ctx, query)
}

func (r *SnapshotRepoImpl) list(ctx context.Context, query string, args ...any) ([]*entity.Snapshot, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := []*entity.Snapshot{}
	for rows.Next() {
		sn, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, sn)
	}
	return snapshots, rows.Err()
}

func scanSnapshot(row pgx.Row) (*entity.Snapshot, error) {
	var sn entity.Snapshot
	var state string
	err := row.Scan(
		&sn.ID,
		&sn.WebsiteID,
		&sn.OwnerID,
		&sn.Version,
		&state,
		&sn.BaseURL,
		&sn.PagesDiscovered,
		&sn.PagesScraped,
		&sn.PagesFailed,
		&sn.CurrentStep,
		&sn.ErrorMessage,
		&sn.Summary.TotalInsights,
		&sn.Summary.CriticalIssues,
		&sn.Summary.Warnings,
		&sn.Summary.GoodPractices,
		&sn.StartedAt,
		&sn.CompletedAt,
		&sn.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sn.State = entity.ScanState(state)
	return &sn, nil
}
