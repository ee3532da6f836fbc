package handlers

import (
	"net/http"

	"github.com/vitalpages/server/internal/api/middleware"
	"github.com/vitalpages/server/internal/api/problem"
	"github.com/vitalpages/server/internal/audit"
	"github.com/vitalpages/server/internal/domain/navigation"
)

type NavigationHandler struct {
	Navigation *navigation.Service
	Audit      *audit.Logger
	Env        string
}

func NewNavigationHandler(navService *navigation.Service, auditLogger *audit.Logger, env string) *NavigationHandler {
	return &NavigationHandler{Navigation: navService, Audit: auditLogger, Env: env}
}

// PublicTree handles GET /api/v1/navigation. Only visible items, nested one
// level deep.
func (h *NavigationHandler) PublicTree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.Navigation.VisibleTree(r.Context())
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"navigation": tree})
}

// List handles GET /api/v1/admin/navigation. Flat listing including hidden
// items.
func (h *NavigationHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Navigation.ListAll(r.Context())
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

type navigationItemRequest struct {
	Label    string `json:"label"`
	URL      string `json:"url"`
	ParentID string `json:"parent_id"`
	Position int    `json:"position"`
	Visible  bool   `json:"visible"`
}

// Create handles POST /api/v1/admin/navigation.
func (h *NavigationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req navigationItemRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}

	actor := middleware.SessionClaims(r)
	item, err := h.Navigation.CreateItem(r.Context(), navigation.CreateItemParams{
		Label:    req.Label,
		URL:      req.URL,
		ParentID: req.ParentID,
		Position: req.Position,
		Visible:  req.Visible,
	})
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("navigation_created", actor.Subject, "navigation_item", item.ID, audit.ClientIP(r), map[string]string{"label": item.Label})
	writeJSON(w, http.StatusCreated, item)
}

// Update handles PUT /api/v1/admin/navigation/{id}.
func (h *NavigationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req navigationItemRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}

	item, err := h.Navigation.UpdateItem(r.Context(), r.PathValue("id"), navigation.UpdateItemParams{
		Label:    req.Label,
		URL:      req.URL,
		ParentID: req.ParentID,
		Position: req.Position,
		Visible:  req.Visible,
	})
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// Delete handles DELETE /api/v1/admin/navigation/{id}.
func (h *NavigationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	id := r.PathValue("id")

	if err := h.Navigation.DeleteItem(r.Context(), id); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("navigation_deleted", actor.Subject, "navigation_item", id, audit.ClientIP(r), nil)
	w.WriteHeader(http.StatusNoContent)
}

type reorderRequest struct {
	OrderedIDs []string `json:"ordered_ids"`
}

// Reorder handles POST /api/v1/admin/navigation/reorder. Positions are
// assigned from the order of the submitted IDs.
func (h *NavigationHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}
	if len(req.OrderedIDs) == 0 {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "ordered_ids must not be empty", nil, h.Env)
		return
	}

	if err := h.Navigation.Reorder(r.Context(), req.OrderedIDs); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reordered"})
}
