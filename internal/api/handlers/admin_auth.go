package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/vitalpages/server/internal/api/middleware"
	"github.com/vitalpages/server/internal/api/problem"
	"github.com/vitalpages/server/internal/audit"
	"github.com/vitalpages/server/internal/auth"
	"github.com/vitalpages/server/internal/domain/users"
)

type AdminAuthHandler struct {
	Users         *users.Service
	JWTManager    *auth.JWTManager
	Audit         *audit.Logger
	Env           string
	Secure        bool
	SessionExpiry time.Duration
}

func NewAdminAuthHandler(userService *users.Service, jwtManager *auth.JWTManager, auditLogger *audit.Logger, env string, secure bool, sessionExpiry time.Duration) *AdminAuthHandler {
	if sessionExpiry <= 0 {
		sessionExpiry = 24 * time.Hour
	}
	return &AdminAuthHandler{
		Users:         userService,
		JWTManager:    jwtManager,
		Audit:         auditLogger,
		Env:           env,
		Secure:        secure,
		SessionExpiry: sessionExpiry,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token             string   `json:"token,omitempty"`
	PendingToken      string   `json:"pending_token,omitempty"`
	TwoFactorRequired bool     `json:"two_factor_required"`
	ExpiresAt         string   `json:"expires_at,omitempty"`
	User              userInfo `json:"user"`
}

type userInfo struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Role             string `json:"role"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
}

func toUserInfo(user users.User) userInfo {
	return userInfo{
		ID:               user.ID,
		Name:             user.Name,
		Email:            user.Email,
		Role:             user.Role,
		TwoFactorEnabled: user.TwoFactorEnabled,
	}
}

// Login handles POST /api/v1/admin/login. Accounts with two-factor enabled
// receive a short-lived pending token instead of a session; the session is
// issued by Verify2FA after a correct code.
func (h *AdminAuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}
	if req.Email == "" || req.Password == "" {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Email and password are required", nil, h.Env)
		return
	}

	user, err := h.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.Audit.LogFailure("login", req.Email, audit.ClientIP(r), nil)
		if errors.Is(err, users.ErrInvalidCredentials) || errors.Is(err, users.ErrUserInactive) {
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid credentials", nil, h.Env)
			return
		}
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	if user.TwoFactorEnabled {
		pending, err := h.JWTManager.GeneratePending(user.ID, user.Role)
		if err != nil {
			problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
			return
		}
		writeJSON(w, http.StatusOK, loginResponse{
			PendingToken:      pending,
			TwoFactorRequired: true,
			User:              toUserInfo(user),
		})
		return
	}

	h.issueSession(w, r, user)
}

type verify2FARequest struct {
	PendingToken string `json:"pending_token"`
	Code         string `json:"code"`
}

// Verify2FA handles POST /api/v1/admin/login/2fa. Accepts a TOTP code or an
// unused backup code.
func (h *AdminAuthHandler) Verify2FA(w http.ResponseWriter, r *http.Request) {
	var req verify2FARequest
	if !decodeJSON(w, r, &req, h.Env) {
		return
	}

	claims, err := h.JWTManager.ValidatePending(req.PendingToken)
	if err != nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid or expired pending token", err, h.Env)
		return
	}

	if err := h.Users.VerifyTwoFactor(r.Context(), claims.Subject, req.Code); err != nil {
		h.Audit.LogFailure("login_2fa", claims.Subject, audit.ClientIP(r), nil)
		if errors.Is(err, users.ErrInvalidCode) {
			problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid two-factor code", nil, h.Env)
			return
		}
		writeDomainError(w, r, err, h.Env)
		return
	}

	user, err := h.Users.GetUser(r.Context(), claims.Subject)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	h.issueSession(w, r, user)
}

func (h *AdminAuthHandler) issueSession(w http.ResponseWriter, r *http.Request, user users.User) {
	token, err := h.JWTManager.GenerateSession(user.ID, user.Role)
	if err != nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
		return
	}

	_ = h.Users.RecordLogin(r.Context(), user.ID)
	h.Audit.LogSuccess("login", user.ID, "user", user.ID, audit.ClientIP(r), nil)

	// The cookie expires with the JWT inside it.
	expiresAt := time.Now().Add(h.SessionExpiry)
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		User:      toUserInfo(user),
	})
}

// Logout handles POST /api/v1/admin/logout.
func (h *AdminAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

// Me handles GET /api/v1/admin/me.
func (h *AdminAuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.SessionClaims(r)
	if claims == nil {
		problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", nil, h.Env)
		return
	}

	user, err := h.Users.GetUser(r.Context(), claims.Subject)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, toUserInfo(user))
}
