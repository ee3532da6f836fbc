package problem

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
)

const contentType = "application/problem+json"

// Problem type URIs used across the admin and public APIs.
const (
	TypeValidation   = "https://vitalpages.health/problems/validation-error"
	TypeUnauthorized = "https://vitalpages.health/problems/unauthorized"
	TypeForbidden    = "https://vitalpages.health/problems/forbidden"
	TypeNotFound     = "https://vitalpages.health/problems/not-found"
	TypeConflict     = "https://vitalpages.health/problems/conflict"
	TypeRateLimited  = "https://vitalpages.health/problems/rate-limited"
	TypeServerError  = "https://vitalpages.health/problems/server-error"
)

type ProblemDetails struct {
	Type     string                 `json:"type"`
	Title    string                 `json:"title"`
	Status   int                    `json:"status"`
	Detail   string                 `json:"detail,omitempty"`
	Instance string                 `json:"instance,omitempty"`
	Errors   map[string]interface{} `json:"errors,omitempty"`
}

type Option func(*ProblemDetails)

func WithDetail(detail string) Option {
	return func(p *ProblemDetails) {
		p.Detail = detail
	}
}

func WithErrors(errs map[string]interface{}) Option {
	return func(p *ProblemDetails) {
		p.Errors = errs
	}
}

func Write(w http.ResponseWriter, r *http.Request, status int, typ, title string, err error, env string, opts ...Option) {
	problem := ProblemDetails{
		Type:   typ,
		Title:  title,
		Status: status,
	}

	for _, opt := range opts {
		opt(&problem)
	}

	if problem.Detail == "" && err != nil {
		if env == "development" || env == "test" {
			problem.Detail = err.Error()
		} else {
			problem.Detail = http.StatusText(status)
		}
	}

	if problem.Instance == "" && r != nil {
		problem.Instance = r.URL.Path
	}

	if err != nil && status >= 500 {
		logger := zerolog.Ctx(r.Context())
		logger.Error().
			Err(err).
			Int("status", status).
			Str("type", typ).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Msg(title)
	} else if err != nil && status >= 400 {
		logger := zerolog.Ctx(r.Context())
		logger.Warn().
			Err(err).
			Int("status", status).
			Str("type", typ).
			Str("path", r.URL.Path).
			Str("method", r.Method).
			Msg(title)
	}

	WriteProblem(w, problem)
}

func WriteProblem(w http.ResponseWriter, problem ProblemDetails) {
	payload, err := json.Marshal(problem)
	if err != nil {
		fallback := fmt.Sprintf("{\"type\":\"about:blank\",\"title\":\"%s\",\"status\":500}", http.StatusText(http.StatusInternalServerError))
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(fallback))
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(problem.Status)
	_, _ = w.Write(payload)
}

// NotFound writes a standard 404 problem response.
func NotFound(w http.ResponseWriter, r *http.Request, err error, env string) {
	Write(w, r, http.StatusNotFound, TypeNotFound, "Not found", err, env)
}

// Validation writes a standard 400 problem response with per-field errors.
func Validation(w http.ResponseWriter, r *http.Request, err error, env string, fieldErrors map[string]interface{}) {
	opts := []Option{}
	if len(fieldErrors) > 0 {
		opts = append(opts, WithErrors(fieldErrors))
	}
	Write(w, r, http.StatusBadRequest, TypeValidation, "Validation failed", err, env, opts...)
}

// ServerError writes a standard 500 problem response.
func ServerError(w http.ResponseWriter, r *http.Request, err error, env string) {
	Write(w, r, http.StatusInternalServerError, TypeServerError, "Server error", err, env)
}

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
)
