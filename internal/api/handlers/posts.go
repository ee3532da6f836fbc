package handlers

import (
	"net/http"

	"github.com/vitalpages/server/internal/api/middleware"
	"github.com/vitalpages/server/internal/audit"
	"github.com/vitalpages/server/internal/domain/blog"
)

type PostsHandler struct {
	Blog      *blog.Service
	Analytics Tracker
	Audit     *audit.Logger
	Env       string
}

func NewPostsHandler(blogService *blog.Service, tracker Tracker, auditLogger *audit.Logger, env string) *PostsHandler {
	return &PostsHandler{Blog: blogService, Analytics: tracker, Audit: auditLogger, Env: env}
}

// ListPublished handles GET /api/v1/posts. Public listing of published posts,
// optionally filtered by category or tag.
func (h *PostsHandler) ListPublished(w http.ResponseWriter, r *http.Request) {
	filters := blog.ListFilters{
		Category: r.URL.Query().Get("category"),
		Tag:      r.URL.Query().Get("tag"),
		Limit:    queryInt(r, "limit", 20),
		Offset:   queryInt(r, "offset", 0),
	}

	posts, total, err := h.Blog.ListPublished(r.Context(), filters)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts, "total": total})
}

// GetPublished handles GET /api/v1/posts/{slug}.
func (h *PostsHandler) GetPublished(w http.ResponseWriter, r *http.Request) {
	post, err := h.Blog.GetPublishedBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, post)
	if h.Analytics != nil {
		h.Analytics.Track(r.Context(), "", "page_view", map[string]any{
			"page_path":  "/blog/" + post.Slug,
			"page_title": post.Title,
		})
	}
}

type createPostRequest struct {
	Slug       string   `json:"slug"`
	Title      string   `json:"title"`
	Excerpt    string   `json:"excerpt"`
	Body       string   `json:"body"`
	CoverImage string   `json:"cover_image"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
}

// Create handles POST /api/v1/admin/posts.
func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}

	actor := middleware.SessionClaims(r)
	post, err := h.Blog.CreatePost(r.Context(), blog.CreatePostParams{
		Slug:       req.Slug,
		Title:      req.Title,
		Excerpt:    req.Excerpt,
		Body:       req.Body,
		CoverImage: req.CoverImage,
		Category:   req.Category,
		Tags:       req.Tags,
		AuthorID:   actor.Subject,
	})
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("post_created", actor.Subject, "post", post.ID, audit.ClientIP(r), map[string]string{"slug": post.Slug})
	writeJSON(w, http.StatusCreated, post)
}

// List handles GET /api/v1/admin/posts. Drafts included.
func (h *PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := blog.ListFilters{
		Status:   r.URL.Query().Get("status"),
		Category: r.URL.Query().Get("category"),
		Tag:      r.URL.Query().Get("tag"),
		Limit:    queryInt(r, "limit", 50),
		Offset:   queryInt(r, "offset", 0),
	}

	posts, total, err := h.Blog.ListPosts(r.Context(), filters)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": posts, "total": total})
}

// Get handles GET /api/v1/admin/posts/{id}.
func (h *PostsHandler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.Blog.GetPost(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

type updatePostRequest struct {
	Title      string   `json:"title"`
	Excerpt    string   `json:"excerpt"`
	Body       string   `json:"body"`
	CoverImage string   `json:"cover_image"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
}

// Update handles PUT /api/v1/admin/posts/{id}.
func (h *PostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updatePostRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}

	post, err := h.Blog.UpdatePost(r.Context(), r.PathValue("id"), blog.UpdatePostParams{
		Title:      req.Title,
		Excerpt:    req.Excerpt,
		Body:       req.Body,
		CoverImage: req.CoverImage,
		Category:   req.Category,
		Tags:       req.Tags,
	})
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// Publish handles POST /api/v1/admin/posts/{id}/publish.
func (h *PostsHandler) Publish(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	id := r.PathValue("id")

	post, err := h.Blog.PublishPost(r.Context(), id, actor.Subject)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("post_published", actor.Subject, "post", id, audit.ClientIP(r), map[string]string{"slug": post.Slug})
	writeJSON(w, http.StatusOK, post)
}

// Unpublish handles POST /api/v1/admin/posts/{id}/unpublish.
func (h *PostsHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	id := r.PathValue("id")

	post, err := h.Blog.UnpublishPost(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("post_unpublished", actor.Subject, "post", id, audit.ClientIP(r), nil)
	writeJSON(w, http.StatusOK, post)
}

// Delete handles DELETE /api/v1/admin/posts/{id}.
func (h *PostsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	id := r.PathValue("id")

	if err := h.Blog.DeletePost(r.Context(), id); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("post_deleted", actor.Subject, "post", id, audit.ClientIP(r), nil)
	w.WriteHeader(http.StatusNoContent)
}
