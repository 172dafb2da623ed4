package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/taisuke/takt/internal/application"
	"github.com/taisuke/takt/internal/timeline"
)

// APIHandler serves the machine readable representations of an event: the
// JSON view model, the calendar export and the QR code image.
type APIHandler struct {
	views     viewService
	location  *time.Location
	baseURL   string
	responder responder
	logger    *slog.Logger
}

func NewAPIHandler(views viewService, loc *time.Location, baseURL string, logger *slog.Logger) *APIHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = time.Local
	}
	return &APIHandler{views: views, location: loc, baseURL: baseURL, responder: newResponder(base), logger: base}
}

func (h *APIHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "APIHandler", operation, attrs...)
}

// Event returns the filtered view model. Viewers refetch it on every change
// notification.
func (h *APIHandler) Event(w http.ResponseWriter, r *http.Request) {
	view, ok := h.buildView(w, r)
	if !ok {
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, view)
}

// Calendar exports the filtered timeline as iCalendar.
func (h *APIHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	view, ok := h.buildView(w, r)
	if !ok {
		return
	}
	body, err := buildCalendar(view, h.location, shareURL(h.baseURL, r, view.Event.Slug, view.Filter))
	if err != nil {
		h.log(r.Context(), "Calendar").ErrorContext(r.Context(), "failed to build calendar", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+view.Event.Slug+`.ics"`)
	_, _ = w.Write([]byte(body))
}

// QRCode renders the share URL for the requested filter as a PNG.
func (h *APIHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	slug, ok := SlugFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingSlug)
		return
	}
	png, err := qrPNG(shareURL(h.baseURL, r, slug, timeline.ParseFilter(r.URL.Query())))
	if err != nil {
		h.log(r.Context(), "QRCode").ErrorContext(r.Context(), "failed to encode qr code", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusInternalServerError, nil)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(png)
}

func (h *APIHandler) buildView(w http.ResponseWriter, r *http.Request) (application.EventView, bool) {
	slug, ok := SlugFromContext(r.Context())
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingSlug)
		return application.EventView{}, false
	}
	view, err := h.views.BuildView(r.Context(), application.ViewParams{
		Slug:   slug,
		Filter: timeline.ParseFilter(r.URL.Query()),
	})
	if err != nil {
		if errors.Is(err, application.ErrNotFound) {
			h.responder.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{Message: "指定されたイベントが見つかりません。"})
			return application.EventView{}, false
		}
		h.responder.handleServiceError(r.Context(), w, err)
		return application.EventView{}, false
	}
	return view, true
}

// HealthFunc reports whether the server can reach its storage.
type HealthFunc func(ctx context.Context) error

func healthHandler(check HealthFunc, logger *slog.Logger) http.HandlerFunc {
	responder := newResponder(logger)
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				responder.writeError(r.Context(), w, http.StatusServiceUnavailable, err)
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
