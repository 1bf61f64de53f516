package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/repository"
)

const comparisonColumns = `id, website_id, owner_id, baseline_snapshot_id, current_snapshot_id, pages_added,
	pages_removed, pages_modified, seo_improvements, seo_regressions, new_issues, resolved_issues,
	page_changes, insight_changes, created_at`

// ComparisonRepoImpl provides a concrete implementation for the ComparisonRepository interface using PostgreSQL.
type ComparisonRepoImpl struct {
	db *pgxpool.Pool
}

// NewComparisonRepo creates a new instance of ComparisonRepoImpl.
func NewComparisonRepo(db *pgxpool.Pool) *ComparisonRepoImpl {
	return &ComparisonRepoImpl{db: db}
}

// Upsert stores a comparison, replacing an earlier one of the same snapshot pair.
func (r *ComparisonRepoImpl) Upsert(ctx context.Context, c *entity.Comparison) error {
	pageChanges, err := json.Marshal(c.PageChanges)
	if err != nil {
		return fmt.Errorf("marshal page changes: %w", err)
	}
	insightChanges, err := json.Marshal(c.InsightChanges)
	if err != nil {
		return fmt.Errorf("marshal insight changes: %w", err)
	}

	query := `
		INSERT INTO comparisons (id, website_id, owner_id, baseline_snapshot_id, current_snapshot_id, pages_added,
			pages_removed, pages_modified, seo_improvements, seo_regressions, new_issues, resolved_issues,
			page_changes, insight_changes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (website_id, baseline_snapshot_id, current_snapshot_id) DO UPDATE SET
			pages_added = EXCLUDED.pages_added,
			pages_removed = EXCLUDED.pages_removed,
			pages_modified = EXCLUDED.pages_modified,
			seo_improvements = EXCLUDED.seo_improvements,
			seo_regressions = EXCLUDED.seo_regressions,
			new_issues = EXCLUDED.new_issues,
			resolved_issues = EXCLUDED.resolved_issues,
			page_changes = EXCLUDED.page_changes,
			insight_changes = EXCLUDED.insight_changes,
			created_at = NOW()
		RETURNING id, created_at;
	`
	return r.db.QueryRow(ctx, query,
		uuid.NewString(),
		c.WebsiteID,
		c.OwnerID,
		c.BaselineSnapshotID,
		c.CurrentSnapshotID,
		c.PagesAdded,
		c.PagesRemoved,
		c.PagesModified,
		c.SEOImprovements,
		c.SEORegressions,
		c.NewIssues,
		c.ResolvedIssues,
		pageChanges,
		insightChanges,
	).Scan(&c.ID, &c.CreatedAt)
}

func (r *ComparisonRepoImpl) GetByID(ctx context.Context, id string) (*entity.Comparison, error) {
	return scanComparison(r.db.QueryRow(ctx, `SELECT `+comparisonColumns+` FROM comparisons WHERE id = $1;`, id))
}

func (r *ComparisonRepoImpl) ListByWebsite(ctx context.Context, websiteID string, limit int) ([]*entity.Comparison, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + comparisonColumns + `
		FROM comparisons
		WHERE website_id = $1
		ORDER BY created_at DESC
		LIMIT $2;
	`
	rows, err := r.db.Query(ctx, query, websiteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comparisons := []*entity.Comparison{}
	for rows.Next() {
		c, err := scanComparison(rows)
		if err != nil {
			return nil, err
		}
		comparisons = append(comparisons, c)
	}
	return comparisons, rows.Err()
}

func scanComparison(row pgx.Row) (*entity.Comparison, error) {
	var c entity.Comparison
	var pageChanges, insightChanges []byte
	err := row.Scan(
		&c.ID,
		&c.WebsiteID,
		&c.OwnerID,
		&c.BaselineSnapshotID,
		&c.CurrentSnapshotID,
		&c.PagesAdded,
		&c.PagesRemoved,
		&c.PagesModified,
		&c.SEOImprovements,
		&c.SEORegressions,
		&c.NewIssues,
		&c.ResolvedIssues,
		&pageChanges,
		&insightChanges,
		&c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(pageChanges, &c.PageChanges); err != nil {
		return nil, fmt.Errorf("unmarshal page changes: %w", err)
	}
	if err := json.Unmarshal(insightChanges, &c.InsightChanges); err != nil {
		return nil, fmt.Errorf("unmarshal insight changes: %w", err)
	}
	return &c, nil
}

var (
	_ repository.WebsiteRepository     = (*WebsiteRepoImpl)(nil)
	_ repository.SnapshotRepository    = (*SnapshotRepoImpl)(nil)
	_ repository.PageRecordRepository  = (*PageRecordRepoImpl)(nil)
	_ repository.PageFailureRepository = (*PageFailureRepoImpl)(nil)
	_ repository.ComparisonRepository  = (*ComparisonRepoImpl)(nil)
)
