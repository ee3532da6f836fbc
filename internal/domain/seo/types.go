package seo

import (
	"context"
	"errors"
	"time"
)

var ErrMetadataNotFound = errors.New("seo metadata not found")

// Metadata holds the per-path SEO fields the admin panel manages.
type Metadata struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Canonical   string    `json:"canonical,omitempty"`
	OGImage     string    `json:"og_image,omitempty"`
	Robots      string    `json:"robots,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Repository is the persistence contract for SEO metadata.
type Repository interface {
	UpsertMetadata(ctx context.Context, metadata Metadata) (Metadata, error)
	GetMetadataByPath(ctx context.Context, path string) (Metadata, error)
	DeleteMetadata(ctx context.Context, path string) error
	ListMetadata(ctx context.Context) ([]Metadata, error)
}
