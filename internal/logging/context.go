package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldView names the queue view a poll loop maintains (barber id, "position", ...).
	FieldView = "view"
	// FieldBarber is the standardized key for barber identifiers.
	FieldBarber = "barber"
	// FieldClientID is the standardized key for queue entry identifiers.
	FieldClientID = "client_id"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldEventType classifies a record for filtering (poll_fetch_failed, serve_failed, ...).
	FieldEventType = "event_type"
	// FieldErrorHint carries the next step an operator should take.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey string

const (
	viewKey      contextKey = "view"
	requestIDKey contextKey = "request_id"
)

// WithView tags ctx with the name of the view being refreshed.
func WithView(ctx context.Context, view string) context.Context {
	view = strings.TrimSpace(view)
	if view == "" {
		return ctx
	}
	return context.WithValue(ctx, viewKey, view)
}

// ViewFromContext returns the view tag, if any.
func ViewFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	view, ok := ctx.Value(viewKey).(string)
	return view, ok && view != ""
}

// WithRequestID tags ctx with a correlation identifier sent as X-Request-ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation identifier, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(requestIDKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if view, ok := ViewFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldView, view))
	}
	if rid, ok := RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldCorrelationID, rid))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
