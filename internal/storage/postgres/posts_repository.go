package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vitalpages/server/internal/domain/blog"
)

type PostRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const postColumns = `id, slug, title, excerpt, body, cover_image, category, tags,
       status, author_id, published_at, created_at, updated_at`

func (r *PostRepository) CreatePost(ctx context.Context, post blog.Post) (blog.Post, error) {
	q := pick(r.pool, r.tx)
	var publishedAt *time.Time
	if !post.PublishedAt.IsZero() {
		publishedAt = &post.PublishedAt
	}
	_, err := q.Exec(ctx, `
INSERT INTO posts (id, slug, title, excerpt, body, cover_image, category, tags,
                   status, author_id, published_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`, post.ID, post.Slug, post.Title, post.Excerpt, post.Body, post.CoverImage,
		post.Category, post.Tags, post.Status, post.AuthorID, publishedAt,
		post.CreatedAt, post.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return blog.Post{}, blog.ErrSlugTaken
		}
		return blog.Post{}, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

func (r *PostRepository) GetPost(ctx context.Context, id string) (blog.Post, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	return scanPost(row)
}

func (r *PostRepository) GetPostBySlug(ctx context.Context, slug string) (blog.Post, error) {
	q := pick(r.pool, r.tx)
	row := q.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = $1`, slug)
	return scanPost(row)
}

func (r *PostRepository) UpdatePost(ctx context.Context, post blog.Post) error {
	q := pick(r.pool, r.tx)
	var publishedAt *time.Time
	if !post.PublishedAt.IsZero() {
		publishedAt = &post.PublishedAt
	}
	tag, err := q.Exec(ctx, `
UPDATE posts
   SET slug = $2,
       title = $3,
       excerpt = $4,
       body = $5,
       cover_image = $6,
       category = $7,
       tags = $8,
       status = $9,
       published_at = $10,
       updated_at = $11
 WHERE id = $1
`, post.ID, post.Slug, post.Title, post.Excerpt, post.Body, post.CoverImage,
		post.Category, post.Tags, post.Status, publishedAt, post.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return blog.ErrSlugTaken
		}
		return fmt.Errorf("update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return blog.ErrPostNotFound
	}
	return nil
}

func (r *PostRepository) DeletePost(ctx context.Context, id string) error {
	q := pick(r.pool, r.tx)
	tag, err := q.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return blog.ErrPostNotFound
	}
	return nil
}

func (r *PostRepository) ListPosts(ctx context.Context, filters blog.ListFilters) ([]blog.Post, int, error) {
	q := pick(r.pool, r.tx)

	where := ` WHERE 1=1`
	args := []any{}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filters.Category != "" {
		args = append(args, filters.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if filters.Tag != "" {
		args = append(args, filters.Tag)
		where += fmt.Sprintf(" AND $%d = ANY(tags)", len(args))
	}

	var total int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM posts`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count posts: %w", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, filters.Offset)
	query := `SELECT ` + postColumns + ` FROM posts` + where +
		fmt.Sprintf(` ORDER BY coalesce(published_at, created_at) DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var result []blog.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list posts: %w", err)
	}
	return result, total, nil
}

func scanPost(row pgx.Row) (blog.Post, error) {
	var post blog.Post
	var publishedAt *time.Time
	err := row.Scan(
		&post.ID,
		&post.Slug,
		&post.Title,
		&post.Excerpt,
		&post.Body,
		&post.CoverImage,
		&post.Category,
		&post.Tags,
		&post.Status,
		&post.AuthorID,
		&publishedAt,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return blog.Post{}, blog.ErrPostNotFound
		}
		return blog.Post{}, fmt.Errorf("scan post: %w", err)
	}
	if publishedAt != nil {
		post.PublishedAt = *publishedAt
	}
	return post, nil
}
