package middleware

import (
	"context"
	"net/http"

	"github.com/vitalpages/server/internal/api/problem"
	"github.com/vitalpages/server/internal/auth"
)

// SessionCookieName carries the admin session JWT for browser clients.
const SessionCookieName = "vp_admin_session"

type contextKeyAuth string

const sessionClaimsKey contextKeyAuth = "sessionClaims"

// SessionAuth validates a full session token from either the Authorization
// header or the session cookie. Pending two-factor tokens are rejected here;
// they are only accepted by the 2FA verification endpoint.
func SessionAuth(manager *auth.JWTManager, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", auth.ErrMissingToken, env)
				return
			}

			token := bearerOrCookie(r)
			if token == "" {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Missing credentials", auth.ErrMissingToken, env)
				return
			}

			claims, err := manager.ValidateSession(token)
			if err != nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Invalid or expired session", err, env)
				return
			}

			ctx := contextWithSessionClaims(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route on the session role. Runs after SessionAuth.
func RequireRole(env string, roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := SessionClaims(r)
			if claims == nil {
				problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, "Unauthorized", auth.ErrMissingToken, env)
				return
			}
			if _, ok := allowed[claims.Role]; !ok {
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Insufficient permissions", nil, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerOrCookie(r *http.Request) string {
	if token, err := auth.TokenFromHeader(r.Header.Get("Authorization")); err == nil {
		return token
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func contextWithSessionClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, sessionClaimsKey, claims)
}

// SessionClaims returns the validated session claims, or nil outside
// SessionAuth.
func SessionClaims(r *http.Request) *auth.Claims {
	if r == nil {
		return nil
	}
	if claims, ok := r.Context().Value(sessionClaimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
