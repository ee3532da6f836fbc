package content

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/vitalpages/server/internal/sanitize"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Publisher receives content lifecycle events (webhook fan-out).
type Publisher interface {
	Publish(ctx context.Context, event string, payload map[string]any)
}

// Service handles page management: CRUD, revisions, publishing and diffs.
type Service struct {
	repo      Repository
	publisher Publisher
	logger    zerolog.Logger
}

func NewService(repo Repository, publisher Publisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With().Str("component", "content").Logger(),
	}
}

// CreatePage creates a new draft page. The body is sanitized on write so
// stored HTML is always safe to render.
func (s *Service) CreatePage(ctx context.Context, params CreatePageParams) (Page, error) {
	if !slugPattern.MatchString(params.Slug) {
		return Page{}, ErrInvalidSlug
	}
	if _, err := s.repo.GetPageBySlug(ctx, params.Slug); err == nil {
		return Page{}, ErrSlugTaken
	}

	now := time.Now().UTC()
	page := Page{
		ID:        ulid.Make().String(),
		Slug:      params.Slug,
		Title:     sanitize.Text(params.Title),
		Body:      sanitize.HTML(params.Body),
		Status:    StatusDraft,
		CreatedBy: params.CreatedBy,
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.repo.CreatePage(ctx, page)
	if err != nil {
		return Page{}, fmt.Errorf("create page: %w", err)
	}

	// The initial revision captures the content as first saved.
	if _, err := s.repo.CreateRevision(ctx, Revision{
		ID:        ulid.Make().String(),
		PageID:    created.ID,
		Title:     created.Title,
		Body:      created.Body,
		Note:      "initial version",
		CreatedBy: params.CreatedBy,
		CreatedAt: now,
	}); err != nil {
		return Page{}, fmt.Errorf("create initial revision: %w", err)
	}

	s.logger.Info().Str("page_id", created.ID).Str("slug", created.Slug).Msg("page created")
	return created, nil
}

// UpdatePage applies an edit and records a revision of the new content.
func (s *Service) UpdatePage(ctx context.Context, id string, params UpdatePageParams) (Page, error) {
	page, err := s.repo.GetPage(ctx, id)
	if err != nil {
		return Page{}, err
	}

	page.Title = sanitize.Text(params.Title)
	page.Body = sanitize.HTML(params.Body)
	page.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdatePage(ctx, page); err != nil {
		return Page{}, fmt.Errorf("update page: %w", err)
	}

	if _, err := s.repo.CreateRevision(ctx, Revision{
		ID:        ulid.Make().String(),
		PageID:    page.ID,
		Title:     page.Title,
		Body:      page.Body,
		Note:      params.Note,
		CreatedBy: params.UpdatedBy,
		CreatedAt: page.UpdatedAt,
	}); err != nil {
		return Page{}, fmt.Errorf("create revision: %w", err)
	}

	return page, nil
}

// PublishPage transitions a page to published and emits page.published.
func (s *Service) PublishPage(ctx context.Context, id, publishedBy string) (Page, error) {
	page, err := s.repo.GetPage(ctx, id)
	if err != nil {
		return Page{}, err
	}

	now := time.Now().UTC()
	page.Status = StatusPublished
	page.PublishedAt = &now
	page.UpdatedAt = now

	if err := s.repo.UpdatePage(ctx, page); err != nil {
		return Page{}, fmt.Errorf("publish page: %w", err)
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, "page.published", map[string]any{
			"page_id":      page.ID,
			"slug":         page.Slug,
			"title":        page.Title,
			"published_by": publishedBy,
			"published_at": now.Format(time.RFC3339),
		})
	}

	s.logger.Info().Str("page_id", page.ID).Str("slug", page.Slug).Msg("page published")
	return page, nil
}

// UnpublishPage returns a page to draft.
func (s *Service) UnpublishPage(ctx context.Context, id string) (Page, error) {
	page, err := s.repo.GetPage(ctx, id)
	if err != nil {
		return Page{}, err
	}

	page.Status = StatusDraft
	page.PublishedAt = nil
	page.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdatePage(ctx, page); err != nil {
		return Page{}, fmt.Errorf("unpublish page: %w", err)
	}
	return page, nil
}

func (s *Service) GetPage(ctx context.Context, id string) (Page, error) {
	return s.repo.GetPage(ctx, id)
}

// GetPublishedBySlug serves the public site; drafts are invisible.
func (s *Service) GetPublishedBySlug(ctx context.Context, slug string) (Page, error) {
	page, err := s.repo.GetPageBySlug(ctx, slug)
	if err != nil {
		return Page{}, err
	}
	if page.Status != StatusPublished {
		return Page{}, ErrPageNotFound
	}
	return page, nil
}

func (s *Service) ListPages(ctx context.Context, filters ListFilters) ([]Page, int, error) {
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 50
	}
	return s.repo.ListPages(ctx, filters)
}

func (s *Service) DeletePage(ctx context.Context, id string) error {
	if _, err := s.repo.GetPage(ctx, id); err != nil {
		return err
	}
	return s.repo.DeletePage(ctx, id)
}

func (s *Service) ListRevisions(ctx context.Context, pageID string, limit int) ([]Revision, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListRevisions(ctx, pageID, limit)
}

// DiffRevisions compares two revisions of the same page.
func (s *Service) DiffRevisions(ctx context.Context, oldID, newID string) (DiffResult, error) {
	oldRev, err := s.repo.GetRevision(ctx, oldID)
	if err != nil {
		return DiffResult{}, err
	}
	newRev, err := s.repo.GetRevision(ctx, newID)
	if err != nil {
		return DiffResult{}, err
	}
	if oldRev.PageID != newRev.PageID {
		return DiffResult{}, fmt.Errorf("revisions belong to different pages")
	}
	return DiffText(oldRev.Body, newRev.Body), nil
}

// RestoreRevision copies an old revision onto the page head as a new
// revision, so a restore never loses history.
func (s *Service) RestoreRevision(ctx context.Context, revisionID, restoredBy string) (Page, error) {
	revision, err := s.repo.GetRevision(ctx, revisionID)
	if err != nil {
		return Page{}, err
	}

	return s.UpdatePage(ctx, revision.PageID, UpdatePageParams{
		Title:     revision.Title,
		Body:      revision.Body,
		Note:      "restored from revision " + revision.ID,
		UpdatedBy: restoredBy,
	})
}
