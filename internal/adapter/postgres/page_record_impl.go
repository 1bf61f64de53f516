package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/repository"
)

// PageRecordRepoImpl provides a concrete implementation for the PageRecordRepository interface using PostgreSQL.
type PageRecordRepoImpl struct {
	db *pgxpool.Pool
}

// NewPageRecordRepo creates a new instance of PageRecordRepoImpl.
func NewPageRecordRepo(db *pgxpool.Pool) *PageRecordRepoImpl {
	return &PageRecordRepoImpl{db: db}
}

// Save inserts a captured page. Page records are never updated.
func (r *PageRecordRepoImpl) Save(ctx context.Context, rec *entity.PageRecord) error {
	factsJSON, err := json.Marshal(rec.Facts)
	if err != nil {
		return fmt.Errorf("marshal facts: %w", err)
	}
	insightsJSON, err := json.Marshal(rec.Insights)
	if err != nil {
		return fmt.Errorf("marshal insights: %w", err)
	}

	id := uuid.NewString()
	query := `
		INSERT INTO page_records (id, website_id, snapshot_id, owner_id, url, url_path, title, meta_description,
			h1_tags, h2_tags, word_count, facts, insights, content_hash, response_time_ms, http_status_code, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
	`
	_, err = r.db.Exec(ctx, query,
		id,
		rec.WebsiteID,
		rec.SnapshotID,
		rec.OwnerID,
		rec.URL,
		rec.URLPath,
		rec.Title,
		rec.MetaDescription,
		nonNil(rec.H1Tags),
		nonNil(rec.H2Tags),
		rec.WordCount,
		factsJSON,
		insightsJSON,
		rec.ContentHash,
		rec.ResponseTimeMS,
		rec.HTTPStatusCode,
		rec.CapturedAt,
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicatePage
	}
	if err != nil {
		return err
	}
	rec.ID = id
	return nil
}

// ListBySnapshot retrieves every page captured by a snapshot, ordered by URL.
func (r *PageRecordRepoImpl) ListBySnapshot(ctx context.Context, snapshotID string) ([]*entity.PageRecord, error) {
	query := `
		SELECT id, website_id, snapshot_id, owner_id, url, url_path, title, meta_description, h1_tags, h2_tags,
			word_count, facts, insights, content_hash, response_time_ms, http_status_code, captured_at
		FROM page_records
		WHERE snapshot_id = $1
		ORDER BY url;
	`
	rows, err := r.db.Query(ctx, query, snapshotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*entity.PageRecord{}
	for rows.Next() {
		var rec entity.PageRecord
		var factsJSON, insightsJSON []byte
		if err := rows.Scan(
			&rec.ID,
			&rec.WebsiteID,
			&rec.SnapshotID,
			&rec.OwnerID,
			&rec.URL,
			&rec.URLPath,
			&rec.Title,
			&rec.MetaDescription,
			&rec.H1Tags,
			&rec.H2Tags,
			&rec.WordCount,
			&factsJSON,
			&insightsJSON,
			&rec.ContentHash,
			&rec.ResponseTimeMS,
			&rec.HTTPStatusCode,
			&rec.CapturedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(factsJSON, &rec.Facts); err != nil {
			return nil, fmt.Errorf("unmarshal facts of %s: %w", rec.URL, err)
		}
		if err := json.Unmarshal(insightsJSON, &rec.Insights); err != nil {
			return nil, fmt.Errorf("unmarshal insights of %s: %w", rec.URL, err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
