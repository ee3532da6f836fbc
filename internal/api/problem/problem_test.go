package problem

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_DetailVisibleInDevelopment(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/pages/missing", nil)

	Write(rec, req, http.StatusNotFound, TypeNotFound, "Not found", errors.New("page missing"), "development")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var p ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, TypeNotFound, p.Type)
	assert.Equal(t, "page missing", p.Detail)
	assert.Equal(t, "/api/v1/pages/missing", p.Instance)
}

func TestWrite_DetailRedactedInProduction(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/pages", nil)

	Write(rec, req, http.StatusInternalServerError, TypeServerError, "Server error", errors.New("pq: connection refused"), "production")

	var p ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "Internal Server Error", p.Detail)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestValidation_IncludesFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/pages", nil)

	Validation(rec, req, nil, "test", map[string]interface{}{"slug": "required"})

	var p ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, http.StatusBadRequest, p.Status)
	assert.Equal(t, "required", p.Errors["slug"])
}
