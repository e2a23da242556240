package service

import (
	"context"

	"herald/internal/privacy"

	"github.com/sirupsen/logrus"
)

// ContextKey is a package-local type to prevent context key collisions
type ContextKey string

// VerboseContextKey is the strongly-typed context key for verbose logging flag
const VerboseContextKey ContextKey = "verbose"

// Standard field names used across all logging calls
const (
	// Core identifiers
	LogFieldMessageID   = "message_id"
	LogFieldRecipientID = "recipient_id"
	LogFieldRequestID   = "request_id"
	LogFieldTraceID     = "trace_id"

	// Service and operation fields
	LogFieldService   = "service"
	LogFieldOperation = "operation"
	LogFieldComponent = "component"
	LogFieldMethod    = "method"

	// Broadcast fields
	LogFieldStatus  = "status"
	LogFieldOutcome = "outcome"
	LogFieldTarget  = "target"

	// Performance and metrics
	LogFieldDuration = "duration_ms"
	LogFieldCount    = "count"
	LogFieldSize     = "size_bytes"

	// Network fields
	LogFieldURL        = "url"
	LogFieldEndpoint   = "endpoint"
	LogFieldStatusCode = "status_code"
	LogFieldRemoteIP   = "remote_ip"
	LogFieldUserAgent  = "user_agent"

	// Error and debugging
	LogFieldErrorCode  = "error_code"
	LogFieldRetryCount = "retry_count"
	LogFieldAttempt    = "attempt"
)

// IsVerboseLogging checks if verbose logging is enabled from context
func IsVerboseLogging(ctx context.Context) bool {
	if verbose, ok := ctx.Value(VerboseContextKey).(bool); ok {
		return verbose
	}
	return false
}

// SanitizeRecipientID masks a recipient identifier for logging. In verbose
// mode the raw identifier is logged instead.
func SanitizeRecipientID(ctx context.Context, id string) string {
	if IsVerboseLogging(ctx) {
		return id
	}
	return privacy.MaskRecipientID(id)
}

// SanitizeContent completely hides broadcast text for privacy
func SanitizeContent(content string) string {
	if content == "" {
		return ""
	}
	return "[hidden]"
}

// LogWithContext creates a logger entry with the verbose flag attached
func LogWithContext(ctx context.Context, logger *logrus.Logger) *logrus.Entry {
	return logger.WithField("verbose", IsVerboseLogging(ctx))
}
