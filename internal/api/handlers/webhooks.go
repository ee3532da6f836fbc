package handlers

import (
	"net/http"

	"github.com/vitalpages/server/internal/api/middleware"
	"github.com/vitalpages/server/internal/audit"
	"github.com/vitalpages/server/internal/domain/webhooks"
)

type WebhooksHandler struct {
	Webhooks *webhooks.Service
	Audit    *audit.Logger
	Env      string
}

func NewWebhooksHandler(webhookService *webhooks.Service, auditLogger *audit.Logger, env string) *WebhooksHandler {
	return &WebhooksHandler{Webhooks: webhookService, Audit: auditLogger, Env: env}
}

type createEndpointRequest struct {
	URL    string   `json:"url" validate:"required,url"`
	Events []string `json:"events" validate:"min=1,dive,required"`
}

// Create handles POST /api/v1/admin/webhooks. The signing secret appears in
// this response only.
func (h *WebhooksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createEndpointRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}
	if !validateStruct(w, r, req, h.Env) {
		return
	}

	actor := middleware.SessionClaims(r)
	endpoint, err := h.Webhooks.CreateEndpoint(r.Context(), webhooks.CreateEndpointParams{
		URL:    req.URL,
		Events: req.Events,
	})
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("webhook_created", actor.Subject, "webhook_endpoint", endpoint.ID, audit.ClientIP(r), map[string]string{"url": endpoint.URL})
	writeJSON(w, http.StatusCreated, endpoint)
}

// List handles GET /api/v1/admin/webhooks.
func (h *WebhooksHandler) List(w http.ResponseWriter, r *http.Request) {
	endpoints, err := h.Webhooks.ListEndpoints(r.Context())
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"endpoints": endpoints})
}

// Get handles GET /api/v1/admin/webhooks/{id}.
func (h *WebhooksHandler) Get(w http.ResponseWriter, r *http.Request) {
	endpoint, err := h.Webhooks.GetEndpoint(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, endpoint)
}

type updateEndpointRequest struct {
	URL    string   `json:"url" validate:"required,url"`
	Events []string `json:"events" validate:"min=1,dive,required"`
	Active bool     `json:"active"`
}

// Update handles PUT /api/v1/admin/webhooks/{id}.
func (h *WebhooksHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateEndpointRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}
	if !validateStruct(w, r, req, h.Env) {
		return
	}

	endpoint, err := h.Webhooks.UpdateEndpoint(r.Context(), r.PathValue("id"), webhooks.UpdateEndpointParams{
		URL:    req.URL,
		Events: req.Events,
		Active: req.Active,
	})
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, endpoint)
}

// Delete handles DELETE /api/v1/admin/webhooks/{id}.
func (h *WebhooksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	id := r.PathValue("id")

	if err := h.Webhooks.DeleteEndpoint(r.Context(), id); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("webhook_deleted", actor.Subject, "webhook_endpoint", id, audit.ClientIP(r), nil)
	w.WriteHeader(http.StatusNoContent)
}

// Deliveries handles GET /api/v1/admin/webhooks/{id}/deliveries.
func (h *WebhooksHandler) Deliveries(w http.ResponseWriter, r *http.Request) {
	deliveries, err := h.Webhooks.ListDeliveries(r.Context(), r.PathValue("id"), queryInt(r, "limit", 50))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deliveries": deliveries})
}

// Attempts handles GET /api/v1/admin/webhooks/{id}/attempts.
func (h *WebhooksHandler) Attempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.Webhooks.ListAttempts(r.Context(), r.PathValue("id"), queryInt(r, "limit", 50))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"attempts": attempts})
}
