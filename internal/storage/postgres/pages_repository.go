package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalpages/server/internal/domain/content"
)

type PageRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const pageColumns = `id, slug, title, body, status, created_by, created_at, updated_at, published_at`

func (r *PageRepository) CreatePage(ctx context.Context, page content.Page) (content.Page, error) {
	q := pick(r.pool, r.tx)
	_, err := q.Exec(ctx, `
INSERT INTO pages (id, slug, title, body, status, created_by, created_at, updated_at, published_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, page.ID, page.Slug, page.Title, page.Body, page.Status, page.CreatedBy,
		page.CreatedAt, page.UpdatedAt, page.PublishedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return content.Page{}, content.ErrSlugTaken
		}
		return content.Page{}, fmt.Errorf("create page: %w", err)
	}
	return page, nil
}

func (r *PageRepository) GetPage(ctx context.Context, id string) (content.Page, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE id = $1`, id)
	return scanPage(row)
}

func (r *PageRepository) GetPageBySlug(ctx context.Context, slug string) (content.Page, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `SELECT `+pageColumns+` FROM pages WHERE slug = $1`, slug)
	return scanPage(row)
}

func (r *PageRepository) ListPages(ctx context.Context, filters content.ListFilters) ([]content.Page, int, error) {
	q := pick(r.pool, r.tx)

	where := ` WHERE 1=1`
	args := []any{}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM pages`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count pages: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filters.Offset)
	query := `SELECT ` + pageColumns + ` FROM pages` + where +
		fmt.Sprintf(` ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var result []content.Page
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, page)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list pages: %w", err)
	}
	return result, total, nil
}

func (r *PageRepository) UpdatePage(ctx context.Context, page content.Page) error {
	q := pick(r.pool, r.tx)
	tag, err := q.Exec(ctx, `
UPDATE pages
   SET slug = $2,
       title = $3,
       body = $4,
       status = $5,
       updated_at = $6,
       published_at = $7
 WHERE id = $1
`, page.ID, page.Slug, page.Title, page.Body, page.Status, page.UpdatedAt, page.PublishedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return content.ErrSlugTaken
		}
		return fmt.Errorf("update page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return content.ErrPageNotFound
	}
	return nil
}

func (r *PageRepository) DeletePage(ctx context.Context, id string) error {
	q := pick(r.pool, r.tx)
	tag, err := q.Exec(ctx, `DELETE FROM pages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return content.ErrPageNotFound
	}
	return nil
}

func (r *PageRepository) CreateRevision(ctx context.Context, revision content.Revision) (content.Revision, error) {
	q := pick(r.pool, r.tx)
	_, err := q.Exec(ctx, `
INSERT INTO page_revisions (id, page_id, title, body, note, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, revision.ID, revision.PageID, revision.Title, revision.Body, revision.Note,
		revision.CreatedBy, revision.CreatedAt)
	if err != nil {
		return content.Revision{}, fmt.Errorf("create revision: %w", err)
	}
	return revision, nil
}

func (r *PageRepository) GetRevision(ctx context.Context, id string) (content.Revision, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `
SELECT id, page_id, title, body, note, created_by, created_at
  FROM page_revisions
 WHERE id = $1
`, id)

	var rev content.Revision
	if err := row.Scan(&rev.ID, &rev.PageID, &rev.Title, &rev.Body, &rev.Note,
		&rev.CreatedBy, &rev.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return content.Revision{}, content.ErrRevisionNotFound
		}
		return content.Revision{}, fmt.Errorf("get revision: %w", err)
	}
	return rev, nil
}

func (r *PageRepository) ListRevisions(ctx context.Context, pageID string, limit int) ([]content.Revision, error) {
	q := pick(r.pool, r.tx)
	if limit <= 0 {
		limit = 50
	}
	rows, err := q.Query(ctx, `
SELECT id, page_id, title, body, note, created_by, created_at
  FROM page_revisions
 WHERE page_id = $1
 ORDER BY created_at DESC
 LIMIT $2
`, pageID, limit)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer rows.Close()

	var result []content.Revision
	for rows.Next() {
		var rev content.Revision
		if err := rows.Scan(&rev.ID, &rev.PageID, &rev.Title, &rev.Body, &rev.Note,
			&rev.CreatedBy, &rev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		result = append(result, rev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	return result, nil
}

func scanPage(row pgx.Row) (content.Page, error) {
	var page content.Page
	err := row.Scan(
		&page.ID,
		&page.Slug,
		&page.Title,
		&page.Body,
		&page.Status,
		&page.CreatedBy,
		&page.CreatedAt,
		&page.UpdatedAt,
		&page.PublishedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return content.Page{}, content.ErrPageNotFound
		}
		return content.Page{}, fmt.Errorf("scan page: %w", err)
	}
	return page, nil
}
