package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/vitalpages/server/internal/api/middleware"
	"github.com/vitalpages/server/internal/api/problem"
	"github.com/vitalpages/server/internal/audit"
	"github.com/vitalpages/server/internal/domain/plugins"
)

type PluginsHandler struct {
	Plugins *plugins.Service
	Audit   *audit.Logger
	Env     string
}

func NewPluginsHandler(pluginService *plugins.Service, auditLogger *audit.Logger, env string) *PluginsHandler {
	return &PluginsHandler{Plugins: pluginService, Audit: auditLogger, Env: env}
}

type pluginJobResponse struct {
	Plugin *plugins.Plugin `json:"plugin,omitempty"`
	Job    *plugins.Job    `json:"job,omitempty"`
}

// Install handles POST /api/v1/admin/plugins. The request body is the plugin
// manifest in YAML.
func (h *PluginsHandler) Install(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Unable to read manifest", err, h.Env)
		return
	}

	manifest, err := plugins.ParseManifest(body)
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid plugin manifest", err, h.Env)
		return
	}

	actor := middleware.SessionClaims(r)
	plugin, job, err := h.Plugins.Install(r.Context(), manifest)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("plugin_installed", actor.Subject, "plugin", plugin.ID, audit.ClientIP(r), map[string]string{"name": plugin.Name})
	writeJSON(w, http.StatusCreated, pluginJobResponse{Plugin: &plugin, Job: job})
}

// List handles GET /api/v1/admin/plugins.
func (h *PluginsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Plugins.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plugins": list})
}

// Get handles GET /api/v1/admin/plugins/{id}.
func (h *PluginsHandler) Get(w http.ResponseWriter, r *http.Request) {
	plugin, err := h.Plugins.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, plugin)
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// SetEnabled handles PUT /api/v1/admin/plugins/{id}/enabled. Enable and
// disable both run the corresponding lifecycle hook as a queued job.
func (h *PluginsHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	var req setEnabledRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}

	actor := middleware.SessionClaims(r)
	id := r.PathValue("id")

	plugin, job, err := h.Plugins.SetEnabled(r.Context(), id, req.Enabled)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	action := "plugin_disabled"
	if req.Enabled {
		action = "plugin_enabled"
	}
	h.Audit.LogSuccess(action, actor.Subject, "plugin", id, audit.ClientIP(r), nil)
	writeJSON(w, http.StatusOK, pluginJobResponse{Plugin: &plugin, Job: job})
}

// Uninstall handles DELETE /api/v1/admin/plugins/{id}.
func (h *PluginsHandler) Uninstall(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	id := r.PathValue("id")

	job, err := h.Plugins.Uninstall(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("plugin_uninstalled", actor.Subject, "plugin", id, audit.ClientIP(r), nil)
	writeJSON(w, http.StatusAccepted, pluginJobResponse{Job: job})
}

// Run handles POST /api/v1/admin/plugins/{id}/run.
func (h *PluginsHandler) Run(w http.ResponseWriter, r *http.Request) {
	job, err := h.Plugins.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusAccepted, pluginJobResponse{Job: job})
}

// Jobs handles GET /api/v1/admin/plugins/jobs.
func (h *PluginsHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"jobs": h.Plugins.Jobs()})
}

// JobStatus handles GET /api/v1/admin/plugins/jobs/{jobID}.
func (h *PluginsHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	job, err := h.Plugins.JobStatus(r.PathValue("jobID"))
	if err != nil {
		if errors.Is(err, plugins.ErrJobNotFound) {
			problem.NotFound(w, r, err, h.Env)
			return
		}
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// CancelJob handles DELETE /api/v1/admin/plugins/jobs/{jobID}. Only queued
// jobs can be cancelled.
func (h *PluginsHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobID")
	if err := h.Plugins.CancelJob(jobID); err != nil {
		switch {
		case errors.Is(err, plugins.ErrJobNotFound):
			problem.NotFound(w, r, err, h.Env)
		case errors.Is(err, plugins.ErrNotCancelable):
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Job is no longer queued", err, h.Env)
		default:
			writeDomainError(w, r, err, h.Env)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled", "job_id": jobID})
}
