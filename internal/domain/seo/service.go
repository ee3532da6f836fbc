package seo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/vitalpages/server/internal/sanitize"
)

// Service manages per-path SEO metadata and page analysis.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "seo").Logger(),
	}
}

// UpsertParams contains the metadata fields for a path.
type UpsertParams struct {
	Path        string
	Title       string
	Description string
	Canonical   string
	OGImage     string
	Robots      string
}

// Upsert creates or replaces the metadata for a path. Paths are normalized
// to a leading slash with no trailing slash.
func (s *Service) Upsert(ctx context.Context, params UpsertParams) (Metadata, error) {
	path, err := normalizePath(params.Path)
	if err != nil {
		return Metadata{}, err
	}

	now := time.Now().UTC()
	metadata := Metadata{
		ID:          ulid.Make().String(),
		Path:        path,
		Title:       sanitize.Text(params.Title),
		Description: sanitize.Text(params.Description),
		Canonical:   params.Canonical,
		OGImage:     params.OGImage,
		Robots:      params.Robots,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if existing, err := s.repo.GetMetadataByPath(ctx, path); err == nil {
		metadata.ID = existing.ID
		metadata.CreatedAt = existing.CreatedAt
	}

	saved, err := s.repo.UpsertMetadata(ctx, metadata)
	if err != nil {
		return Metadata{}, fmt.Errorf("upsert seo metadata: %w", err)
	}
	return saved, nil
}

func (s *Service) GetByPath(ctx context.Context, path string) (Metadata, error) {
	normalized, err := normalizePath(path)
	if err != nil {
		return Metadata{}, err
	}
	return s.repo.GetMetadataByPath(ctx, normalized)
}

func (s *Service) Delete(ctx context.Context, path string) error {
	normalized, err := normalizePath(path)
	if err != nil {
		return err
	}
	if _, err := s.repo.GetMetadataByPath(ctx, normalized); err != nil {
		return err
	}
	return s.repo.DeleteMetadata(ctx, normalized)
}

func (s *Service) List(ctx context.Context) ([]Metadata, error) {
	return s.repo.ListMetadata(ctx)
}

func normalizePath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if strings.Contains(path, "://") || strings.ContainsAny(path, " \t\r\n") {
		return "", fmt.Errorf("invalid path %q", path)
	}
	return path, nil
}
