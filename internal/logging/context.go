package logging

import (
	"context"
	"log/slog"

	"tripfarm/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldFormType is the structured logging key for the submitted form variant.
	FieldFormType = "form_type"
	// FieldEventType classifies log lines for filtering (e.g. submission_rejected).
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step for a failure.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

// WithContext returns logger tagged with the request ID and form type carried
// by ctx, when present.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if ctx == nil {
		return logger
	}
	var args []any
	if rid, ok := services.RequestIDFromContext(ctx); ok {
		args = append(args, slog.String(FieldCorrelationID, rid))
	}
	if formType, ok := services.FormTypeFromContext(ctx); ok {
		args = append(args, slog.String(FieldFormType, formType))
	}
	if len(args) == 0 {
		return logger
	}
	return logger.With(args...)
}
