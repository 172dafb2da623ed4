package http

import (
	"context"
	"log/slog"

	"github.com/taisuke/takt/internal/logging"
)

func defaultLogger(logger *slog.Logger) *slog.Logger {
	return logging.OrDefault(logger)
}

// handlerLogger tags the request logger with the handler and, once routed,
// the event slug.
func handlerLogger(ctx context.Context, fallback *slog.Logger, handlerName, operation string, attrs ...any) *slog.Logger {
	if slug, ok := SlugFromContext(ctx); ok {
		attrs = append([]any{"slug", slug}, attrs...)
	}
	return logging.Scoped(ctx, fallback, "handler", handlerName, operation, attrs...)
}
