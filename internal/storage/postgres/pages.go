package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"pageinsights/internal/model"
)

// PageRepository persists company pages keyed by their external page id.
type PageRepository struct {
	db Querier
}

// NewPageRepository constructs a PageRepository on the given pool.
func NewPageRepository(db Querier) *PageRepository {
	return &PageRepository{db: db}
}

const pageColumns = `id, page_id, name, url, linkedin_internal_id, description, website,
	industry, total_followers, head_count, specialities, profile_image_url, created_at, updated_at`

func scanPage(row pgx.Row) (*model.Page, error) {
	var p model.Page
	err := row.Scan(
		&p.ID,
		&p.PageID,
		&p.Name,
		&p.URL,
		&p.LinkedInInternalID,
		&p.Description,
		&p.Website,
		&p.Industry,
		&p.TotalFollowers,
		&p.HeadCount,
		&p.Specialities,
		&p.ProfileImageURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetByPageID looks a page up by its natural key.
func (r *PageRepository) GetByPageID(ctx context.Context, pageID string) (*model.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE page_id = $1`
	page, err := scanPage(r.db.QueryRow(ctx, query, pageID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get page %q: %w", pageID, err)
	}
	return page, nil
}

// Create inserts a new page row.
func (r *PageRepository) Create(ctx context.Context, page model.Page) (*model.Page, error) {
	query := `
		INSERT INTO pages (page_id, name, url, linkedin_internal_id, description, website,
			industry, total_followers, head_count, specialities, profile_image_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + pageColumns
	return scanPage(r.db.QueryRow(ctx, query,
		page.PageID,
		page.Name,
		page.URL,
		page.LinkedInInternalID,
		page.Description,
		page.Website,
		page.Industry,
		page.TotalFollowers,
		page.HeadCount,
		page.Specialities,
		page.ProfileImageURL,
	))
}

// update merges non-null incoming fields over the stored row; null
// incoming values never overwrite existing data.
func (r *PageRepository) update(ctx context.Context, page model.Page) (*model.Page, error) {
	query := `
		UPDATE pages SET
			name = $2,
			url = $3,
			linkedin_internal_id = COALESCE($4, linkedin_internal_id),
			description = COALESCE($5, description),
			website = COALESCE($6, website),
			industry = COALESCE($7, industry),
			total_followers = COALESCE($8, total_followers),
			head_count = COALESCE($9, head_count),
			specialities = COALESCE($10, specialities),
			profile_image_url = COALESCE($11, profile_image_url),
			updated_at = NOW()
		WHERE page_id = $1
		RETURNING ` + pageColumns
	return scanPage(r.db.QueryRow(ctx, query,
		page.PageID,
		page.Name,
		page.URL,
		page.LinkedInInternalID,
		page.Description,
		page.Website,
		page.Industry,
		page.TotalFollowers,
		page.HeadCount,
		page.Specialities,
		page.ProfileImageURL,
	))
}

// Upsert creates or merges a page by natural key, retrying once after
// a unique-constraint conflict (a concurrent crawl may have inserted
// the same key between the lookup and the insert).
func (r *PageRepository) Upsert(ctx context.Context, page model.Page) (*model.Page, error) {
	if page.PageID == "" {
		return nil, fmt.Errorf("page_id is required")
	}
	row, err := r.upsertOnce(ctx, page)
	if isUniqueViolation(err) {
		row, err = r.upsertOnce(ctx, page)
	}
	if err != nil {
		return nil, fmt.Errorf("upsert page %q: %w", page.PageID, err)
	}
	return row, nil
}

func (r *PageRepository) upsertOnce(ctx context.Context, page model.Page) (*model.Page, error) {
	_, err := r.GetByPageID(ctx, page.PageID)
	switch {
	case errors.Is(err, ErrNotFound):
		return r.Create(ctx, page)
	case err != nil:
		return nil, err
	}
	return r.update(ctx, page)
}

// PageFilter narrows ListPages. Nil fields match everything.
type PageFilter struct {
	Name         *string
	Industry     *string
	MinFollowers *int64
	MaxFollowers *int64
}

const pageFilterClause = `
	($1::text IS NULL OR name ILIKE '%' || $1 || '%')
	AND ($2::text IS NULL OR industry ILIKE '%' || $2 || '%')
	AND ($3::bigint IS NULL OR total_followers >= $3)
	AND ($4::bigint IS NULL OR total_followers <= $4)`

// ListPages returns a filtered page window, newest first.
func (r *PageRepository) ListPages(ctx context.Context, filter PageFilter, limit, offset int) ([]model.Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages WHERE` + pageFilterClause + `
		ORDER BY created_at DESC LIMIT $5 OFFSET $6`
	rows, err := r.db.Query(ctx, query,
		filter.Name, filter.Industry, filter.MinFollowers, filter.MaxFollowers, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []model.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page row: %w", err)
		}
		pages = append(pages, *page)
	}
	return pages, rows.Err()
}

// CountPages returns the total row count for the filter.
func (r *PageRepository) CountPages(ctx context.Context, filter PageFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM pages WHERE` + pageFilterClause
	var count int64
	err := r.db.QueryRow(ctx, query,
		filter.Name, filter.Industry, filter.MinFollowers, filter.MaxFollowers).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return count, nil
}
