package blog

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrSlugTaken    = errors.New("slug is already in use")
	ErrInvalidSlug  = errors.New("invalid slug")
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Post is a blog article on the marketing site.
type Post struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Title       string    `json:"title"`
	Excerpt     string    `json:"excerpt,omitempty"`
	Body        string    `json:"body"`
	CoverImage  string    `json:"cover_image,omitempty"`
	Category    string    `json:"category,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Status      string    `json:"status"`
	AuthorID    string    `json:"author_id"`
	PublishedAt time.Time `json:"published_at,omitzero"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListFilters narrows ListPosts results.
type ListFilters struct {
	Status   string
	Category string
	Tag      string
	Limit    int
	Offset   int
}

// Repository is the persistence contract for posts.
type Repository interface {
	CreatePost(ctx context.Context, post Post) (Post, error)
	GetPost(ctx context.Context, id string) (Post, error)
	GetPostBySlug(ctx context.Context, slug string) (Post, error)
	UpdatePost(ctx context.Context, post Post) error
	DeletePost(ctx context.Context, id string) error
	ListPosts(ctx context.Context, filters ListFilters) ([]Post, int, error)
}
