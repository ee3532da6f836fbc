package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalpages/server/internal/auth"
	"github.com/vitalpages/server/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCorrelationID_GeneratesAndEchoes(t *testing.T) {
	handler := CorrelationID(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, GetRequestID(r.Context()))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	// upstream ID is honored
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-123")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "upstream-123", rec.Header().Get("X-Request-ID"))
}

func TestSecurityHeaders(t *testing.T) {
	handler := SecurityHeaders(false)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestRateLimit_LoginTierBlocksAfterBurst(t *testing.T) {
	cfg := config.RateLimitConfig{LoginPer15Minutes: 3}
	handler := WithRateLimitTierHandler(TierLogin)(RateLimit(cfg)(okHandler()))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", nil)
		req.RemoteAddr = "10.0.0.9:5000"
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "attempt %d", i+1)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", nil)
	req.RemoteAddr = "10.0.0.9:5000"
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// a different client is unaffected
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", nil)
	req.RemoteAddr = "10.0.0.10:5000"
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit_SpoofedForwardedForIgnored(t *testing.T) {
	cfg := config.RateLimitConfig{PublicPerMinute: 2}
	handler := RateLimit(cfg)(okHandler())

	// same direct peer rotating X-Forwarded-For must still share one bucket
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/pages", nil)
		req.RemoteAddr = "203.0.113.7:1000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("1.2.3.%d", i+1))
		handler.ServeHTTP(rec, req)
		if i == 2 {
			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		}
	}
}

func TestRateLimit_HealthExempt(t *testing.T) {
	cfg := config.RateLimitConfig{PublicPerMinute: 1}
	handler := RateLimit(cfg)(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.1.1.1:2000"
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestSessionAuth(t *testing.T) {
	manager, err := auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour, 5*time.Minute, "vitalpages")
	require.NoError(t, err)

	var gotRole string
	handler := SessionAuth(manager, "test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRole = SessionClaims(r).Role
	}))

	t.Run("missing credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	})

	t.Run("bearer token", func(t *testing.T) {
		token, err := manager.GenerateSession("user-1", "admin")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "admin", gotRole)
	})

	t.Run("session cookie", func(t *testing.T) {
		token, err := manager.GenerateSession("user-1", "editor")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/pages", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "editor", gotRole)
	})

	t.Run("pending token rejected", func(t *testing.T) {
		pending, err := manager.GeneratePending("user-1", "admin")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
		req.Header.Set("Authorization", "Bearer "+pending)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	manager, err := auth.NewJWTManager("0123456789abcdef0123456789abcdef", time.Hour, 5*time.Minute, "vitalpages")
	require.NoError(t, err)

	handler := SessionAuth(manager, "test")(RequireRole("test", "admin")(okHandler()))

	token, err := manager.GenerateSession("user-2", "editor")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/admin/users/u1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCORS_Whitelist(t *testing.T) {
	cfg := config.CORSConfig{AllowedOrigins: []string{"https://vitalpages.health"}}
	handler := CORS(cfg, zerolog.Nop())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pages", nil)
	req.Header.Set("Origin", "https://vitalpages.health")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "https://vitalpages.health", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/pages", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
