package logging

import (
	"context"
	"log/slog"
)

type ctxKey int

const (
	instanceIDKey ctxKey = iota
	layoutIDKey
	componentIDKey
)

// WithInstanceID returns a context with the instance ID set.
func WithInstanceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, instanceIDKey, id)
}

// WithLayoutID returns a context with the layout page ID set.
func WithLayoutID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, layoutIDKey, id)
}

// WithComponentID returns a context with the component ID set.
func WithComponentID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, componentIDKey, id)
}

// InstanceID extracts the instance ID from the context, or "" if absent.
func InstanceID(ctx context.Context) string {
	v, _ := ctx.Value(instanceIDKey).(string)
	return v
}

// LayoutID extracts the layout page ID from the context, or "" if absent.
func LayoutID(ctx context.Context) string {
	v, _ := ctx.Value(layoutIDKey).(string)
	return v
}

// ComponentID extracts the component ID from the context, or "" if absent.
func ComponentID(ctx context.Context) string {
	v, _ := ctx.Value(componentIDKey).(string)
	return v
}

// LogWith returns a logger enriched with correlation IDs from the context.
// Only non-empty values are added as attributes.
func LogWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := InstanceID(ctx); id != "" {
		logger = logger.With(slog.String("instance_id", id))
	}
	if id := LayoutID(ctx); id != "" {
		logger = logger.With(slog.String("layout_id", id))
	}
	if id := ComponentID(ctx); id != "" {
		logger = logger.With(slog.String("component_id", id))
	}
	return logger
}

// CorrelationHandler wraps an slog.Handler, automatically injecting
// correlation IDs from the context into every log record.
// Use with slog.New(NewCorrelationHandler(inner)) so callers can use
// logger.InfoContext(ctx, ...) and IDs appear automatically.
type CorrelationHandler struct {
	inner slog.Handler
}

// NewCorrelationHandler wraps the given handler with automatic correlation ID injection.
func NewCorrelationHandler(inner slog.Handler) *CorrelationHandler {
	return &CorrelationHandler{inner: inner}
}

func (h *CorrelationHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *CorrelationHandler) Handle(ctx context.Context, r slog.Record) error {
	if v := InstanceID(ctx); v != "" {
		r.AddAttrs(slog.String("instance_id", v))
	}
	if v := LayoutID(ctx); v != "" {
		r.AddAttrs(slog.String("layout_id", v))
	}
	if v := ComponentID(ctx); v != "" {
		r.AddAttrs(slog.String("component_id", v))
	}
	return h.inner.Handle(ctx, r)
}

func (h *CorrelationHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *CorrelationHandler) WithGroup(name string) slog.Handler {
	return &CorrelationHandler{inner: h.inner.WithGroup(name)}
}
