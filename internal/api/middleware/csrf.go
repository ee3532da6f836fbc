package middleware

import (
	"net/http"

	"github.com/gorilla/csrf"
)

// CSRFProtection wraps cookie-authenticated admin routes with the
// double-submit cookie pattern. Bearer-token API calls don't need it.
func CSRFProtection(authKey []byte, secure bool) func(http.Handler) http.Handler {
	opts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.RequestHeader("X-CSRF-Token"),
		csrf.ErrorHandler(http.HandlerFunc(csrfErrorHandler)),
	}

	return csrf.Protect(authKey, opts...)
}

func csrfErrorHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"type":"https://vitalpages.health/problems/csrf-failure","title":"CSRF token validation failed","status":403}`))
}

// CSRFToken extracts the per-request CSRF token for clients to echo back.
func CSRFToken(r *http.Request) string {
	return csrf.Token(r)
}
