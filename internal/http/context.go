package http

import (
	"context"
	"log/slog"

	"github.com/taisuke/takt/internal/logging"
	"github.com/taisuke/takt/internal/session"
)

type contextKey string

const (
	slugContextKey   contextKey = "slug"
	accessContextKey contextKey = "access"
	idContextKey     contextKey = "resource_id"
)

// ContextWithLogger attaches the request-scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request-scoped logger, if any.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}

// ContextWithSlug injects the event slug resolved from the request path.
func ContextWithSlug(ctx context.Context, slug string) context.Context {
	return context.WithValue(ctx, slugContextKey, slug)
}

// SlugFromContext extracts the event slug previously associated with the context.
func SlugFromContext(ctx context.Context) (string, bool) {
	slug, ok := ctx.Value(slugContextKey).(string)
	return slug, ok && slug != ""
}

// ContextWithResourceID injects the item or material identifier resolved from
// the request path.
func ContextWithResourceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idContextKey, id)
}

// ResourceIDFromContext extracts an identifier previously associated with the context.
func ResourceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(idContextKey).(string)
	return id, ok && id != ""
}

// ContextWithAccess records the verified access claims for the request.
func ContextWithAccess(ctx context.Context, claims session.Claims) context.Context {
	return context.WithValue(ctx, accessContextKey, claims)
}

// AccessFromContext extracts verified access claims if available.
func AccessFromContext(ctx context.Context) (session.Claims, bool) {
	claims, ok := ctx.Value(accessContextKey).(session.Claims)
	return claims, ok
}
