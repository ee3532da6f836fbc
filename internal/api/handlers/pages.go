package handlers

import (
	"net/http"

	"github.com/vitalpages/server/internal/api/middleware"
	"github.com/vitalpages/server/internal/api/problem"
	"github.com/vitalpages/server/internal/audit"
	"github.com/vitalpages/server/internal/domain/content"
)

type PagesHandler struct {
	Content   *content.Service
	Analytics Tracker
	Audit     *audit.Logger
	Env       string
}

func NewPagesHandler(contentService *content.Service, tracker Tracker, auditLogger *audit.Logger, env string) *PagesHandler {
	return &PagesHandler{Content: contentService, Analytics: tracker, Audit: auditLogger, Env: env}
}

// GetPublished handles GET /api/v1/pages/{slug}. Only published pages are
// visible on the public surface.
func (h *PagesHandler) GetPublished(w http.ResponseWriter, r *http.Request) {
	page, err := h.Content.GetPublishedBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, page)
	if h.Analytics != nil {
		h.Analytics.Track(r.Context(), "", "page_view", map[string]any{
			"page_path":  "/" + page.Slug,
			"page_title": page.Title,
		})
	}
}

type createPageRequest struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Create handles POST /api/v1/admin/pages.
func (h *PagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createPageRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}

	actor := middleware.SessionClaims(r)
	page, err := h.Content.CreatePage(r.Context(), content.CreatePageParams{
		Slug:      req.Slug,
		Title:     req.Title,
		Body:      req.Body,
		CreatedBy: actor.Subject,
	})
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("page_created", actor.Subject, "page", page.ID, audit.ClientIP(r), map[string]string{"slug": page.Slug})
	writeJSON(w, http.StatusCreated, page)
}

// List handles GET /api/v1/admin/pages.
func (h *PagesHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := content.ListFilters{
		Status: r.URL.Query().Get("status"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	pages, total, err := h.Content.ListPages(r.Context(), filters)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": pages, "total": total})
}

// Get handles GET /api/v1/admin/pages/{id}.
func (h *PagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	page, err := h.Content.GetPage(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type updatePageRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Note  string `json:"note"`
}

// Update handles PUT /api/v1/admin/pages/{id}. A revision of the prior state
// is recorded before the update lands.
func (h *PagesHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updatePageRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}

	actor := middleware.SessionClaims(r)
	page, err := h.Content.UpdatePage(r.Context(), r.PathValue("id"), content.UpdatePageParams{
		Title:     req.Title,
		Body:      req.Body,
		Note:      req.Note,
		UpdatedBy: actor.Subject,
	})
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// Publish handles POST /api/v1/admin/pages/{id}/publish.
func (h *PagesHandler) Publish(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	id := r.PathValue("id")

	page, err := h.Content.PublishPage(r.Context(), id, actor.Subject)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("page_published", actor.Subject, "page", id, audit.ClientIP(r), map[string]string{"slug": page.Slug})
	writeJSON(w, http.StatusOK, page)
}

// Unpublish handles POST /api/v1/admin/pages/{id}/unpublish.
func (h *PagesHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	id := r.PathValue("id")

	page, err := h.Content.UnpublishPage(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("page_unpublished", actor.Subject, "page", id, audit.ClientIP(r), nil)
	writeJSON(w, http.StatusOK, page)
}

// Delete handles DELETE /api/v1/admin/pages/{id}.
func (h *PagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	id := r.PathValue("id")

	if err := h.Content.DeletePage(r.Context(), id); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("page_deleted", actor.Subject, "page", id, audit.ClientIP(r), nil)
	w.WriteHeader(http.StatusNoContent)
}

// ListRevisions handles GET /api/v1/admin/pages/{id}/revisions.
func (h *PagesHandler) ListRevisions(w http.ResponseWriter, r *http.Request) {
	revisions, err := h.Content.ListRevisions(r.Context(), r.PathValue("id"), queryInt(r, "limit", 20))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"revisions": revisions})
}

// DiffRevisions handles GET /api/v1/admin/pages/{id}/revisions/diff?from=&to=.
func (h *PagesHandler) DiffRevisions(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Both from and to revision IDs are required", nil, h.Env)
		return
	}

	diff, err := h.Content.DiffRevisions(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, diff)
}

// RestoreRevision handles POST /api/v1/admin/pages/{id}/revisions/{revisionID}/restore.
func (h *PagesHandler) RestoreRevision(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	revisionID := r.PathValue("revisionID")

	page, err := h.Content.RestoreRevision(r.Context(), revisionID, actor.Subject)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("page_restored", actor.Subject, "page", page.ID, audit.ClientIP(r), map[string]string{"revision_id": revisionID})
	writeJSON(w, http.StatusOK, page)
}
