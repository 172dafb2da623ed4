package http

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/taisuke/takt/internal/session"
)

// AccessVerifier validates access tokens for an event.
type AccessVerifier interface {
	Verify(value, slug string, required session.Scope) (session.Claims, error)
}

// checkAccess looks for a cookie granting required on slug. An edit cookie
// also satisfies broadcast.
func checkAccess(verifier AccessVerifier, r *http.Request, slug string, required session.Scope) (session.Claims, error) {
	if verifier == nil {
		return session.Claims{}, session.ErrInvalidToken
	}
	candidates := []session.Scope{required}
	if required == session.ScopeBroadcast {
		candidates = append(candidates, session.ScopeEdit)
	}

	lastErr := session.ErrInvalidToken
	for _, scope := range candidates {
		cookie, err := r.Cookie(session.CookieName(scope))
		if err != nil || cookie.Value == "" {
			continue
		}
		claims, err := verifier.Verify(cookie.Value, slug, required)
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}
	return session.Claims{}, lastErr
}

// RequireAccess guards form actions of an event. Requests without a valid
// cookie are sent back to the page that offers the unlock form.
func RequireAccess(verifier AccessVerifier, required session.Scope, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			slug, ok := SlugFromContext(r.Context())
			if !ok {
				responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingSlug)
				return
			}

			claims, err := checkAccess(verifier, r, slug, required)
			if err != nil {
				kind := "invalid_token"
				if errors.Is(err, session.ErrExpiredToken) {
					kind = "expired_token"
				}
				responder.loggerFor(r.Context()).InfoContext(r.Context(), "access denied", "slug", slug, "scope", required, "reason", kind)
				responder.redirect(w, r, gatePath(slug, required), "", errLocked.Error())
				return
			}

			ctx := ContextWithAccess(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func gatePath(slug string, scope session.Scope) string {
	if scope == session.ScopeBroadcast {
		return eventPath(slug, "broadcast")
	}
	return eventPath(slug, "edit")
}

func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := ContextWithLogger(r.Context(), logger)
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			logger.DebugContext(ctx, "request started")
			next.ServeHTTP(rec, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", rec.status, "duration", time.Since(start))
		})
	}
}

// statusRecorder captures the response status. It forwards Hijack so the
// websocket upgrade still works behind the logger.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
