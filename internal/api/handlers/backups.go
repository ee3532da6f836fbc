package handlers

import (
	"net/http"
	"time"

	"github.com/vitalpages/server/internal/api/middleware"
	"github.com/vitalpages/server/internal/api/problem"
	"github.com/vitalpages/server/internal/audit"
	"github.com/vitalpages/server/internal/domain/backups"
	"github.com/vitalpages/server/internal/jobs"
)

type BackupsHandler struct {
	Backups  *backups.Service
	Enqueuer *jobs.Enqueuer
	Audit    *audit.Logger
	Env      string
}

func NewBackupsHandler(backupService *backups.Service, enqueuer *jobs.Enqueuer, auditLogger *audit.Logger, env string) *BackupsHandler {
	return &BackupsHandler{Backups: backupService, Enqueuer: enqueuer, Audit: auditLogger, Env: env}
}

// Run handles POST /api/v1/admin/backups. The dump runs on the backups queue
// so the request returns immediately.
func (h *BackupsHandler) Run(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)

	if err := h.Enqueuer.EnqueueBackup(r.Context(), "manual"); err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Failed to enqueue backup", err, h.Env)
		return
	}

	h.Audit.LogSuccess("backup_requested", actor.Subject, "backup", "", audit.ClientIP(r), nil)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "enqueued"})
}

type backupInfo struct {
	Path   string `json:"path"`
	SizeMB int    `json:"size_mb"`
	Age    string `json:"age"`
}

func toBackupInfos(list []backups.Backup) []backupInfo {
	infos := make([]backupInfo, 0, len(list))
	for _, b := range list {
		infos = append(infos, backupInfo{Path: b.Path, SizeMB: b.SizeMB, Age: b.Age.Round(time.Second).String()})
	}
	return infos
}

// List handles GET /api/v1/admin/backups.
func (h *BackupsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Backups.List()
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Failed to list backups", err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backups": toBackupInfos(list)})
}

// Prune handles POST /api/v1/admin/backups/prune. With ?dry_run=true the
// response lists what would be deleted without touching anything.
func (h *BackupsHandler) Prune(w http.ResponseWriter, r *http.Request) {
	dryRun := r.URL.Query().Get("dry_run") == "true"

	pruned, err := h.Backups.Prune(dryRun)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Failed to prune backups", err, h.Env)
		return
	}

	if !dryRun {
		actor := middleware.SessionClaims(r)
		h.Audit.LogSuccess("backups_pruned", actor.Subject, "backup", "", audit.ClientIP(r), nil)
	}
	writeJSON(w, http.StatusOK, map[string]any{"pruned": toBackupInfos(pruned), "dry_run": dryRun})
}
