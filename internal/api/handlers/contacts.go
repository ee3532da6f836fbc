package handlers

import (
	"errors"
	"net/http"

	"github.com/vitalpages/server/internal/api/middleware"
	"github.com/vitalpages/server/internal/audit"
	"github.com/vitalpages/server/internal/domain/contacts"
	"github.com/vitalpages/server/internal/metrics"
)

type ContactsHandler struct {
	Contacts  *contacts.Service
	Analytics Tracker
	Audit     *audit.Logger
	Env       string
}

func NewContactsHandler(contactService *contacts.Service, tracker Tracker, auditLogger *audit.Logger, env string) *ContactsHandler {
	return &ContactsHandler{Contacts: contactService, Analytics: tracker, Audit: auditLogger, Env: env}
}

type submitContactRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"omitempty,max=50"`
	Message      string `json:"message" validate:"required,max=5000"`
	CaptchaToken string `json:"captcha_token"`
}

// Submit handles POST /api/v1/contact. Public endpoint behind the public rate
// limit tier and captcha verification.
func (h *ContactsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitContactRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}
	if !validateStruct(w, r, req, h.Env) {
		return
	}

	submission, err := h.Contacts.Submit(r.Context(), contacts.SubmitParams{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Message:      req.Message,
		CaptchaToken: req.CaptchaToken,
		RemoteIP:     audit.ClientIP(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, contacts.ErrCaptchaFailed):
			metrics.ContactSubmissionsTotal.WithLabelValues("captcha_failed").Inc()
		default:
			metrics.ContactSubmissionsTotal.WithLabelValues("invalid").Inc()
		}
		writeDomainError(w, r, err, h.Env)
		return
	}

	metrics.ContactSubmissionsTotal.WithLabelValues("accepted").Inc()
	if h.Analytics != nil {
		h.Analytics.Track(r.Context(), submission.ID, "contact_submit", map[string]any{"source": "website"})
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": submission.ID, "status": "received"})
}

// List handles GET /api/v1/admin/contacts.
func (h *ContactsHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := contacts.ListFilters{
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if unread := r.URL.Query().Get("unread"); unread != "" {
		value := unread == "true"
		filters.Unread = &value
	}

	submissions, total, err := h.Contacts.ListSubmissions(r.Context(), filters)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"submissions": submissions, "total": total})
}

// Get handles GET /api/v1/admin/contacts/{id}.
func (h *ContactsHandler) Get(w http.ResponseWriter, r *http.Request) {
	submission, err := h.Contacts.GetSubmission(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, submission)
}

type markReadRequest struct {
	Read bool `json:"read"`
}

// MarkRead handles PUT /api/v1/admin/contacts/{id}/read.
func (h *ContactsHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}

	id := r.PathValue("id")
	if err := h.Contacts.MarkRead(r.Context(), id, req.Read); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "read": req.Read})
}

// Delete handles DELETE /api/v1/admin/contacts/{id}. Submissions hold patient
// contact details, so removal is audit-logged.
func (h *ContactsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	id := r.PathValue("id")

	if err := h.Contacts.DeleteSubmission(r.Context(), id); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("contact_deleted", actor.Subject, "contact_submission", id, audit.ClientIP(r), nil)
	w.WriteHeader(http.StatusNoContent)
}
