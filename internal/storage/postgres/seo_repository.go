package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalpages/server/internal/domain/seo"
)

type SEORepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *SEORepository) UpsertMetadata(ctx context.Context, metadata seo.Metadata) (seo.Metadata, error) {
	q := pick(r.pool, r.tx)
	_, err := q.Exec(ctx, `
INSERT INTO seo_metadata (id, path, title, description, canonical, og_image, robots, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (path) DO UPDATE
   SET title = EXCLUDED.title,
       description = EXCLUDED.description,
       canonical = EXCLUDED.canonical,
       og_image = EXCLUDED.og_image,
       robots = EXCLUDED.robots,
       updated_at = EXCLUDED.updated_at
`, metadata.ID, metadata.Path, metadata.Title, metadata.Description,
		metadata.Canonical, metadata.OGImage, metadata.Robots,
		metadata.CreatedAt, metadata.UpdatedAt)
	if err != nil {
		return seo.Metadata{}, fmt.Errorf("upsert seo metadata: %w", err)
	}
	return r.GetMetadataByPath(ctx, metadata.Path)
}

func (r *SEORepository) GetMetadataByPath(ctx context.Context, path string) (seo.Metadata, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `
SELECT id, path, title, description, canonical, og_image, robots, created_at, updated_at
  FROM seo_metadata
 WHERE path = $1
`, path)

	var metadata seo.Metadata
	err := row.Scan(&metadata.ID, &metadata.Path, &metadata.Title, &metadata.Description,
		&metadata.Canonical, &metadata.OGImage, &metadata.Robots,
		&metadata.CreatedAt, &metadata.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return seo.Metadata{}, seo.ErrMetadataNotFound
		}
		return seo.Metadata{}, fmt.Errorf("get seo metadata: %w", err)
	}
	return metadata, nil
}

func (r *SEORepository) DeleteMetadata(ctx context.Context, path string) error {
	q := pick(r.pool, r.tx)
	tag, err := q.Exec(ctx, `DELETE FROM seo_metadata WHERE path = $1`, path)
	if err != nil {
		return fmt.Errorf("delete seo metadata: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return seo.ErrMetadataNotFound
	}
	return nil
}

func (r *SEORepository) ListMetadata(ctx context.Context) ([]seo.Metadata, error) {
	q := pick(r.pool, r.tx)
	rows, err := q.Query(ctx, `
SELECT id, path, title, description, canonical, og_image, robots, created_at, updated_at
  FROM seo_metadata
 ORDER BY path
`)
	if err != nil {
		return nil, fmt.Errorf("list seo metadata: %w", err)
	}
	defer rows.Close()

	var result []seo.Metadata
	for rows.Next() {
		var metadata seo.Metadata
		if err := rows.Scan(&metadata.ID, &metadata.Path, &metadata.Title, &metadata.Description,
			&metadata.Canonical, &metadata.OGImage, &metadata.Robots,
			&metadata.CreatedAt, &metadata.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan seo metadata: %w", err)
		}
		result = append(result, metadata)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list seo metadata: %w", err)
	}
	return result, nil
}
