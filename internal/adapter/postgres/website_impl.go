package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/seo-snapshot-service/internal/entity"
	"github.com/user/seo-snapshot-service/internal/repository"
)

const websiteColumns = `id, owner_id, domain, name, role, base_url, crawl_cadence_days, max_pages,
	snapshot_count, last_snapshot_at, is_active, created_at, updated_at`

// WebsiteRepoImpl provides a concrete implementation for the WebsiteRepository interface using PostgreSQL.
type WebsiteRepoImpl struct {
	db *pgxpool.Pool
}

// NewWebsiteRepo creates a new instance of WebsiteRepoImpl.
func NewWebsiteRepo(db *pgxpool.Pool) *WebsiteRepoImpl {
	return &WebsiteRepoImpl{db: db}
}

func (r *WebsiteRepoImpl) Create(ctx context.Context, w *entity.Website) error {
	query := `
		INSERT INTO websites (id, owner_id, domain, name, role, base_url, crawl_cadence_days, max_pages)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING is_active, created_at, updated_at;
	`
	id := uuid.NewString()
	err := r.db.QueryRow(ctx, query,
		id, w.OwnerID, w.Domain, w.Name, string(w.Role), w.BaseURL, w.CrawlCadenceDays, w.MaxPages,
	).Scan(&w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if isUniqueViolation(err) {
		return repository.ErrDuplicateWebsite
	}
	if err != nil {
		return err
	}
	w.ID = id
	return nil
}

func (r *WebsiteRepoImpl) GetByID(ctx context.Context, id string) (*entity.Website, error) {
	row := r.db.QueryRow(ctx, `SELECT `+websiteColumns+` FROM websites WHERE id = $1;`, id)
	return scanWebsite(row)
}

func (r *WebsiteRepoImpl) FindByDomain(ctx context.Context, ownerID, domain string) (*entity.Website, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+websiteColumns+` FROM websites WHERE owner_id = $1 AND domain = $2 AND is_active;`,
		ownerID, domain)
	return scanWebsite(row)
}

func (r *WebsiteRepoImpl) List(ctx context.Context, ownerID string, role entity.WebsiteRole) ([]*entity.Website, error) {
	query := `
		SELECT ` + websiteColumns + `
		FROM websites
		WHERE owner_id = $1 AND is_active AND ($2 = '' OR role = $2)
		ORDER BY created_at ASC;
	`
	return r.list(ctx, query, ownerID, string(role))
}

func (r *WebsiteRepoImpl) ListActive(ctx context.Context) ([]*entity.Website, error) {
	return r.list(ctx, `SELECT `+websiteColumns+` FROM websites WHERE is_active ORDER BY created_at ASC;`)
}

func (r *WebsiteRepoImpl) list(ctx context.Context, query string, args ...any) ([]*entity.Website, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	websites := []*entity.Website{}
	for rows.Next() {
		w, err := scanWebsite(rows)
		if err != nil {
			return nil, err
		}
		websites = append(websites, w)
	}
	return websites, rows.Err()
}

// Deactivate soft-deletes a website; its snapshots stay readable.
func (r *WebsiteRepoImpl) Deactivate(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE websites SET is_active = FALSE, updated_at = NOW() WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanWebsite(row pgx.Row) (*entity.Website, error) {
	var w entity.Website
	var role string
	err := row.Scan(
		&w.ID,
		&w.OwnerID,
		&w.Domain,
		&w.Name,
		&role,
		&w.BaseURL,
		&w.CrawlCadenceDays,
		&w.MaxPages,
		&w.SnapshotCount,
		&w.LastSnapshotAt,
		&w.IsActive,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	w.Role = entity.WebsiteRole(role)
	return &w, nil
}
