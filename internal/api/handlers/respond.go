package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vitalpages/server/internal/api/problem"
	"github.com/vitalpages/server/internal/domain/blog"
	"github.com/vitalpages/server/internal/domain/campaigns"
	"github.com/vitalpages/server/internal/domain/contacts"
	"github.com/vitalpages/server/internal/domain/content"
	"github.com/vitalpages/server/internal/domain/navigation"
	"github.com/vitalpages/server/internal/domain/plugins"
	"github.com/vitalpages/server/internal/domain/seo"
	"github.com/vitalpages/server/internal/domain/users"
	"github.com/vitalpages/server/internal/domain/webhooks"
	"github.com/vitalpages/server/internal/validation"
)

// Tracker forwards server-side analytics events. *analytics.Client satisfies
// it; handlers fire events after the response is decided and never let
// tracking failures surface to the caller.
type Tracker interface {
	Track(ctx context.Context, clientID, name string, params map[string]any)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, env string) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Invalid request body", err, env)
		return false
	}
	return true
}

// validateStruct runs tag validation on a decoded request body and writes a
// problem response listing the failing fields.
func validateStruct(w http.ResponseWriter, r *http.Request, req any, env string) bool {
	fields, err := validation.Struct(req)
	if err != nil {
		problem.Validation(w, r, err, env, fields)
		return false
	}
	return true
}

// queryInt parses an integer query parameter with a fallback.
func queryInt(r *http.Request, key string, fallback int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

var notFoundErrors = []error{
	content.ErrPageNotFound,
	content.ErrRevisionNotFound,
	blog.ErrPostNotFound,
	navigation.ErrItemNotFound,
	contacts.ErrSubmissionNotFound,
	campaigns.ErrCampaignNotFound,
	webhooks.ErrEndpointNotFound,
	webhooks.ErrDeliveryNotFound,
	seo.ErrMetadataNotFound,
	plugins.ErrPluginNotFound,
	users.ErrUserNotFound,
}

var conflictErrors = []error{
	content.ErrSlugTaken,
	blog.ErrSlugTaken,
	users.ErrEmailTaken,
	users.ErrUserAlreadyActive,
	plugins.ErrPluginExists,
	campaigns.ErrNotDraft,
}

var validationErrors = []error{
	content.ErrInvalidSlug,
	blog.ErrInvalidSlug,
	navigation.ErrCyclicParent,
	campaigns.ErrNoRecipients,
	webhooks.ErrUnknownEvent,
	plugins.ErrInvalidManifest,
	users.ErrInvalidToken,
}

// writeDomainError maps domain errors onto problem responses. Unknown errors
// become a 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, env string) {
	for _, candidate := range notFoundErrors {
		if errors.Is(err, candidate) {
			problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", err, env)
			return
		}
	}
	for _, candidate := range conflictErrors {
		if errors.Is(err, candidate) {
			problem.Write(w, r, http.StatusConflict, problem.TypeConflict, "Conflict", err, env)
			return
		}
	}
	for _, candidate := range validationErrors {
		if errors.Is(err, candidate) {
			problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Validation failed", err, env)
			return
		}
	}
	var urlErr validation.URLValidationError
	if errors.As(err, &urlErr) {
		problem.Validation(w, r, err, env, map[string]interface{}{urlErr.Field: urlErr.Message})
		return
	}
	if errors.Is(err, contacts.ErrCaptchaFailed) {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidation, "Captcha verification failed", err, env)
		return
	}
	problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, env)
}
