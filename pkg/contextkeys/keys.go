// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import (
	"context"

	"github.com/fablekeep/fablekeep/pkg/authz"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// SubjectKey contains *authz.Subject
	// Set by: middleware.Auth (pkg/middleware/auth.go)
	// Required by: handlers that make authorization decisions
	// Type: *authz.Subject (nil means anonymous)
	SubjectKey Key = "subject"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.RequestID
	// Used by: Logger, response headers
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"
)

// WithSubject adds the authenticated subject to the context.
func WithSubject(ctx context.Context, subject *authz.Subject) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}

// GetSubject retrieves the authenticated subject, or nil for anonymous.
func GetSubject(ctx context.Context) *authz.Subject {
	if s, ok := ctx.Value(SubjectKey).(*authz.Subject); ok {
		return s
	}
	return nil
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}
