package blog

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

// Publisher receives post lifecycle events (webhook fan-out).
type Publisher interface {
	Publish(ctx context.Context, event string, payload map[string]any)
}

// Service handles blog post management.
type Service struct {
	repo      Repository
	publisher Publisher
	logger    zerolog.Logger
}

func NewService(repo Repository, publisher Publisher, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With().Str("component", "blog").Logger(),
	}
}

// CreatePostParams contains fields for a new draft post.
type CreatePostParams struct {
	Slug       string
	Title      string
	Excerpt    string
	Body       string
	CoverImage string
	Category   string
	Tags       []string
	AuthorID   string
}

func (s *Service) CreatePost(ctx context.Context, params CreatePostParams) (Post, error) {
	if !slugPattern.MatchString(params.Slug) {
		return Post{}, ErrInvalidSlug
	}
	if _, err := s.repo.GetPostBySlug(ctx, params.Slug); err == nil {
		return Post{}, ErrSlugTaken
	}

	now := time.Now().UTC()
	post := Post{
		ID:         ulid.Make().String(),
		Slug:       params.Slug,
		Title:      sanitize.Text(params.Title),
		Excerpt:    sanitize.Text(params.Excerpt),
		Body:       sanitize.HTML(params.Body),
		CoverImage: params.CoverImage,
		Category:   sanitize.Text(params.Category),
		Tags:       sanitize.TextSlice(params.Tags),
		Status:     StatusDraft,
		AuthorID:   params.AuthorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	created, err := s.repo.CreatePost(ctx, post)
	if err != nil {
		return Post{}, fmt.Errorf("create post: %w", err)
	}

	s.logger.Info().Str("post_id", created.ID).Str("slug", created.Slug).Msg("post created")
	return created, nil
}

// UpdatePostParams contains mutable post fields.
type UpdatePostParams struct {
	Title      string
	Excerpt    string
	Body       string
	CoverImage string
	Category   string
	Tags       []string
}

func (s *Service) UpdatePost(ctx context.Context, id string, params UpdatePostParams) (Post, error) {
	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return Post{}, err
	}

	post.Title = sanitize.Text(params.Title)
	post.Excerpt = sanitize.Text(params.Excerpt)
	post.Body = sanitize.HTML(params.Body)
	post.CoverImage = params.CoverImage
	post.Category = sanitize.Text(params.Category)
	post.Tags = sanitize.TextSlice(params.Tags)
	post.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return Post{}, fmt.Errorf("update post: %w", err)
	}
	return post, nil
}

// PublishPost transitions a post to published and emits post.published.
func (s *Service) PublishPost(ctx context.Context, id, publishedBy string) (Post, error) {
	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return Post{}, err
	}

	now := time.Now().UTC()
	post.Status = StatusPublished
	if post.PublishedAt.IsZero() {
		post.PublishedAt = now
	}
	post.UpdatedAt = now

	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return Post{}, fmt.Errorf("publish post: %w", err)
	}

	if s.publisher != nil {
		s.publisher.Publish(ctx, "post.published", map[string]any{
			"post_id":      post.ID,
			"slug":         post.Slug,
			"title":        post.Title,
			"published_by": publishedBy,
			"published_at": post.PublishedAt.Format(time.RFC3339),
		})
	}

	s.logger.Info().Str("post_id", post.ID).Str("slug", post.Slug).Msg("post published")
	return post, nil
}

func (s *Service) UnpublishPost(ctx context.Context, id string) (Post, error) {
	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return Post{}, err
	}

	post.Status = StatusDraft
	post.UpdatedAt = time.Now().UTC()

	if err := s.repo.UpdatePost(ctx, post); err != nil {
		return Post{}, fmt.Errorf("unpublish post: %w", err)
	}
	return post, nil
}

func (s *Service) GetPost(ctx context.Context, id string) (Post, error) {
	return s.repo.GetPost(ctx, id)
}

// GetPublishedBySlug serves the public blog; drafts are invisible.
func (s *Service) GetPublishedBySlug(ctx context.Context, slug string) (Post, error) {
	post, err := s.repo.GetPostBySlug(ctx, slug)
	if err != nil {
		return Post{}, err
	}
	if post.Status != StatusPublished {
		return Post{}, ErrPostNotFound
	}
	return post, nil
}

func (s *Service) ListPosts(ctx context.Context, filters ListFilters) ([]Post, int, error) {
	if filters.Limit <= 0 || filters.Limit > 100 {
		filters.Limit = 50
	}
	return s.repo.ListPosts(ctx, filters)
}

// ListPublished serves the public blog index.
func (s *Service) ListPublished(ctx context.Context, filters ListFilters) ([]Post, int, error) {
	filters.Status = StatusPublished
	return s.ListPosts(ctx, filters)
}

func (s *Service) DeletePost(ctx context.Context, id string) error {
	if _, err := s.repo.GetPost(ctx, id); err != nil {
		return err
	}
	return s.repo.DeletePost(ctx, id)
}
