package services

import "context"

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	formTypeKey  contextKey = "form_type"
)

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithFormType annotates context with the submitted form variant.
func WithFormType(ctx context.Context, formType string) context.Context {
	if formType == "" {
		return ctx
	}
	return context.WithValue(ctx, formTypeKey, formType)
}

// FormTypeFromContext returns the form variant if present.
func FormTypeFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(formTypeKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
