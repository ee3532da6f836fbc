package handlers

import (
	"encoding/base64"
	"net/http"

	"github.com/vitalpages/server/internal/api/middleware"
	"github.com/vitalpages/server/internal/api/problem"
	"github.com/vitalpages/server/internal/audit"
	"github.com/vitalpages/server/internal/domain/users"
)

type AdminUsersHandler struct {
	Users *users.Service
	Audit *audit.Logger
	Env   string
}

func NewAdminUsersHandler(userService *users.Service, auditLogger *audit.Logger, env string) *AdminUsersHandler {
	return &AdminUsersHandler{Users: userService, Audit: auditLogger, Env: env}
}

type createUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Create handles POST /api/v1/admin/users. The account starts inactive; an
// invitation email carries the setup link.
func (h *AdminUsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}

	actor := middleware.SessionClaims(r)
	user, err := h.Users.CreateUserAndInvite(r.Context(), users.CreateUserParams{
		Name:      req.Name,
		Email:     req.Email,
		Role:      req.Role,
		CreatedBy: actor.Subject,
	})
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("user_invited", actor.Subject, "user", user.ID, audit.ClientIP(r), map[string]string{"email": user.Email})
	writeJSON(w, http.StatusCreated, user)
}

// List handles GET /api/v1/admin/users.
func (h *AdminUsersHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := users.ListFilters{
		Role:   r.URL.Query().Get("role"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	if active := r.URL.Query().Get("active"); active != "" {
		value := active == "true"
		filters.Active = &value
	}

	list, total, err := h.Users.ListUsers(r.Context(), filters)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": list, "total": total})
}

// Get handles GET /api/v1/admin/users/{id}.
func (h *AdminUsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Update handles PUT /api/v1/admin/users/{id}.
func (h *AdminUsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}

	actor := middleware.SessionClaims(r)
	user, err := h.Users.UpdateUser(r.Context(), r.PathValue("id"), users.UpdateUserParams{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	}, actor.Subject)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetActive handles PUT /api/v1/admin/users/{id}/active.
func (h *AdminUsersHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req setActiveRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}

	actor := middleware.SessionClaims(r)
	id := r.PathValue("id")
	if !req.Active && actor.Subject == id {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Cannot deactivate your own account", nil, h.Env)
		return
	}

	if err := h.Users.SetActive(r.Context(), id, req.Active, actor.Subject); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "active": req.Active})
}

// Delete handles DELETE /api/v1/admin/users/{id}.
func (h *AdminUsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	id := r.PathValue("id")
	if actor.Subject == id {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Cannot delete your own account", nil, h.Env)
		return
	}

	if err := h.Users.DeleteUser(r.Context(), id, actor.Subject); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResendInvitation handles POST /api/v1/admin/users/{id}/invitations.
func (h *AdminUsersHandler) ResendInvitation(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	if err := h.Users.ResendInvitation(r.Context(), r.PathValue("id"), actor.Subject); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "invitation sent"})
}

type acceptInvitationRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// AcceptInvitation handles POST /api/v1/invitations/accept. Public: the token
// authenticates the request.
func (h *AdminUsersHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req acceptInvitationRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}

	if err := h.Users.AcceptInvitation(r.Context(), req.Token, req.Password); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "account activated"})
}

type enrollmentResponse struct {
	Secret          string   `json:"secret"`
	ProvisioningURI string   `json:"provisioning_uri"`
	QRCodePNG       string   `json:"qr_code_png"`
	BackupCodes     []string `json:"backup_codes"`
}

// BeginTwoFactorSetup handles POST /api/v1/admin/me/2fa/setup. The QR code is
// returned as base64 PNG; backup codes are shown this one time.
func (h *AdminUsersHandler) BeginTwoFactorSetup(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	enrollment, err := h.Users.BeginTwoFactorSetup(r.Context(), actor.Subject)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	writeJSON(w, http.StatusOK, enrollmentResponse{
		Secret:          enrollment.Secret,
		ProvisioningURI: enrollment.ProvisioningURI,
		QRCodePNG:       base64.StdEncoding.EncodeToString(enrollment.QRCodePNG),
		BackupCodes:     enrollment.BackupCodes,
	})
}

type twoFactorCodeRequest struct {
	Code string `json:"code"`
}

// ConfirmTwoFactorSetup handles POST /api/v1/admin/me/2fa/confirm.
func (h *AdminUsersHandler) ConfirmTwoFactorSetup(w http.ResponseWriter, r *http.Request) {
	var req twoFactorCodeRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}

	actor := middleware.SessionClaims(r)
	if err := h.Users.ConfirmTwoFactorSetup(r.Context(), actor.Subject, req.Code); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("2fa_enabled", actor.Subject, "user", actor.Subject, audit.ClientIP(r), nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "two-factor enabled"})
}

// RegenerateBackupCodes handles POST /api/v1/admin/me/2fa/backup-codes.
func (h *AdminUsersHandler) RegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	codes, err := h.Users.RegenerateBackupCodes(r.Context(), actor.Subject)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"backup_codes": codes})
}

// DisableTwoFactor handles DELETE /api/v1/admin/users/{id}/2fa. Admins can
// reset a locked-out colleague.
func (h *AdminUsersHandler) DisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	actor := middleware.SessionClaims(r)
	id := r.PathValue("id")
	if err := h.Users.DisableTwoFactor(r.Context(), id, actor.Subject); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.Audit.LogSuccess("2fa_disabled", actor.Subject, "user", id, audit.ClientIP(r), nil)
	writeJSON(w, http.StatusOK, map[string]string{"status": "two-factor disabled"})
}
