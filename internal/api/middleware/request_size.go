package middleware

import (
	"net/http"
)

const (
	// DefaultMaxBodySize is 1MB for public endpoints.
	DefaultMaxBodySize int64 = 1 << 20

	// AdminMaxBodySize is 5MB for admin endpoints, which carry page bodies
	// and campaign content.
	AdminMaxBodySize int64 = 5 << 20
)

// RequestSize caps incoming request bodies with http.MaxBytesReader. Bodies
// past the limit fail the handler's read with a 413.
func RequestSize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// PublicRequestSize limits request bodies to 1MB for public endpoints.
func PublicRequestSize() func(http.Handler) http.Handler {
	return RequestSize(DefaultMaxBodySize)
}

// AdminRequestSize limits request bodies to 5MB for admin endpoints.
func AdminRequestSize() func(http.Handler) http.Handler {
	return RequestSize(AdminMaxBodySize)
}
