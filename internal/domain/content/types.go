package content

import (
	"context"
	"errors"
	"time"
)

// Page statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

var (
	ErrPageNotFound     = errors.New("page not found")
	ErrRevisionNotFound = errors.New("revision not found")
	ErrSlugTaken        = errors.New("slug is already taken")
	ErrInvalidSlug      = errors.New("slug must be lowercase letters, digits and hyphens")
)

// Page is a marketing-site page managed through the admin panel.
type Page struct {
	ID          string
	Slug        string
	Title       string
	Body        string
	Status      string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time
}

// Revision is an immutable snapshot of a page taken on every save.
type Revision struct {
	ID        string
	PageID    string
	Title     string
	Body      string
	Note      string
	CreatedBy string
	CreatedAt time.Time
}

// CreatePageParams contains parameters for creating a page.
type CreatePageParams struct {
	Slug      string
	Title     string
	Body      string
	CreatedBy string
}

// UpdatePageParams contains parameters for updating a page. A new revision is
// recorded before the update is applied.
type UpdatePageParams struct {
	Title     string
	Body      string
	Note      string
	UpdatedBy string
}

// ListFilters narrows page listings.
type ListFilters struct {
	Status string
	Limit  int
	Offset int
}

// Repository is the storage contract for pages and revisions.
type Repository interface {
	CreatePage(ctx context.Context, page Page) (Page, error)
	GetPage(ctx context.Context, id string) (Page, error)
	GetPageBySlug(ctx context.Context, slug string) (Page, error)
	ListPages(ctx context.Context, filters ListFilters) ([]Page, int, error)
	UpdatePage(ctx context.Context, page Page) error
	DeletePage(ctx context.Context, id string) error

	CreateRevision(ctx context.Context, revision Revision) (Revision, error)
	GetRevision(ctx context.Context, id string) (Revision, error)
	ListRevisions(ctx context.Context, pageID string, limit int) ([]Revision, error)
}
