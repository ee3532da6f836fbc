package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/vitalpages/server/internal/api/middleware"
	"github.com/vitalpages/server/internal/api/problem"
	"github.com/vitalpages/server/internal/audit"
	"github.com/vitalpages/server/internal/domain/blog"
	"github.com/vitalpages/server/internal/domain/seo"
)

type SEOHandler struct {
	SEO     *seo.Service
	Blog    *blog.Service
	Org     seo.Organization
	BaseURL string
	Audit   *audit.Logger
	Env     string
}

func NewSEOHandler(seoService *seo.Service, blogService *blog.Service, org seo.Organization, baseURL string, auditLogger *audit.Logger, env string) *SEOHandler {
	return &SEOHandler{SEO: seoService, Blog: blogService, Org: org, BaseURL: baseURL, Audit: auditLogger, Env: env}
}

// GetByPath handles GET /api/v1/seo?path=. Public so the site frontend can
// render meta tags server-side.
func (h *SEOHandler) GetByPath(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "path query parameter is required", nil, h.Env)
		return
	}

	metadata, err := h.SEO.GetByPath(r.Context(), path)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, metadata)
}

// List handles GET /api/v1/admin/seo.
func (h *SEOHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.SEO.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metadata": list})
}

type upsertSEORequest struct {
	Path        string `json:"path"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Canonical   string `json:"canonical"`
	OGImage     string `json:"og_image"`
	Robots      string `json:"robots"`
}

// Upsert handles PUT /api/v1/admin/seo.
func (h *SEOHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertSEORequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}

	actor := middleware.SessionClaims(r)
	metadata, err := h.SEO.Upsert(r.Context(), seo.UpsertParams{
		Path:        req.Path,
		Title:       req.Title,
		Description: req.Description,
		Canonical:   req.Canonical,
		OGImage:     req.OGImage,
		Robots:      req.Robots,
	})
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("seo_upserted", actor.Subject, "seo_metadata", metadata.ID, audit.ClientIP(r), map[string]string{"path": metadata.Path})
	writeJSON(w, http.StatusOK, metadata)
}

// Delete handles DELETE /api/v1/admin/seo?path=.
func (h *SEOHandler) Delete(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "path query parameter is required", nil, h.Env)
		return
	}

	if err := h.SEO.Delete(r.Context(), path); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Analyze handles POST /api/v1/admin/seo/analyze. The request body is raw
// HTML; the response lists findings like missing titles or heading problems.
func (h *SEOHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Unable to read request body", err, h.Env)
		return
	}

	analysis, err := seo.AnalyzeHTML(string(body))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Unable to parse HTML", err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// OrganizationJSONLD handles GET /api/v1/seo/jsonld/organization. The
// frontend embeds the document on every page.
func (h *SEOHandler) OrganizationJSONLD(w http.ResponseWriter, r *http.Request) {
	doc, err := seo.OrganizationDocument(h.Org)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Failed to build structured data", err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ArticleJSONLD handles GET /api/v1/seo/jsonld/articles/{slug}. Built from
// the published post so the markup always matches live content.
func (h *SEOHandler) ArticleJSONLD(w http.ResponseWriter, r *http.Request) {
	post, err := h.Blog.GetPublishedBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	article := seo.Article{
		Headline:      post.Title,
		Description:   post.Excerpt,
		URL:           h.BaseURL + "/blog/" + post.Slug,
		ImageURL:      post.CoverImage,
		PublisherName: h.Org.Name,
	}
	if !post.PublishedAt.IsZero() {
		article.Published = post.PublishedAt.Format(time.RFC3339)
	}
	if post.UpdatedAt.After(post.PublishedAt) {
		article.Modified = post.UpdatedAt.Format(time.RFC3339)
	}

	doc, err := seo.ArticleDocument(article)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Failed to build structured data", err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
