package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Entry represents a single audit log entry with structured fields
type Entry struct {
	Timestamp    time.Time
	Action       string
	Actor        string
	ResourceType string
	ResourceID   string
	IPAddress    string
	Status       string // "success" or "failure"
	Details      map[string]string
}

// Logger provides structured audit logging for admin operations
type Logger struct {
	logger zerolog.Logger
}

// NewLogger creates a new audit logger on top of the service logger
func NewLogger(logger zerolog.Logger) *Logger {
	return &Logger{
		logger: logger.With().Str("component", "audit").Logger(),
	}
}

// Log writes an audit entry to the log output
func (l *Logger) Log(entry Entry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	event := l.logger.Info().
		Time("audit_time", entry.Timestamp).
		Str("action", entry.Action).
		Str("actor", entry.Actor).
		Str("status", entry.Status).
		Str("ip_address", entry.IPAddress)

	if entry.ResourceType != "" {
		event = event.Str("resource_type", entry.ResourceType)
	}
	if entry.ResourceID != "" {
		event = event.Str("resource_id", entry.ResourceID)
	}
	for k, v := range entry.Details {
		event = event.Str("detail_"+k, v)
	}
	event.Msg("audit")
}

// LogSuccess logs a successful admin operation
func (l *Logger) LogSuccess(action, actor, resourceType, resourceID, ipAddress string, details map[string]string) {
	l.Log(Entry{
		Action:       action,
		Actor:        actor,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Status:       "success",
		Details:      details,
	})
}

// LogFailure logs a failed admin operation
func (l *Logger) LogFailure(action, actor, ipAddress string, details map[string]string) {
	l.Log(Entry{
		Action:    action,
		Actor:     actor,
		IPAddress: ipAddress,
		Status:    "failure",
		Details:   details,
	})
}

// ClientIP gets the client IP from request headers or RemoteAddr
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

type contextKey string

const auditLoggerKey contextKey = "auditLogger"

// WithLogger adds an audit logger to the request context
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, auditLoggerKey, logger)
}

// FromContext retrieves the audit logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(auditLoggerKey).(*Logger); ok {
		return logger
	}
	return NewLogger(zerolog.Nop())
}
