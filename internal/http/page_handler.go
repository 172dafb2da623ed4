package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/taisuke/takt/internal/application"
	"github.com/taisuke/takt/internal/session"
	"github.com/taisuke/takt/internal/timeline"
)

type viewService interface {
	BuildView(ctx context.Context, params application.ViewParams) (application.EventView, error)
}

type eventLookup interface {
	GetEvent(ctx context.Context, slug string) (application.Event, error)
}

// PageHandler renders the HTML pages.
type PageHandler struct {
	views     viewService
	events    eventLookup
	access    AccessVerifier
	baseURL   string
	responder responder
	logger    *slog.Logger
}

// NewPageHandler constructs a PageHandler. baseURL, when set, is used for
// share links and QR codes instead of the request host.
func NewPageHandler(views viewService, events eventLookup, access AccessVerifier, baseURL string, logger *slog.Logger) *PageHandler {
	base := defaultLogger(logger)
	return &PageHandler{
		views:     views,
		events:    events,
		access:    access,
		baseURL:   baseURL,
		responder: newResponder(base),
		logger:    base,
	}
}

func (h *PageHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "PageHandler", operation, attrs...)
}

// Index renders the event creation form.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.notFound(w, r)
		return
	}
	h.responder.render(r.Context(), w, http.StatusOK, "index.html", h.basePage(r, ""))
}

// Viewer renders the filtered public timeline.
func (h *PageHandler) Viewer(w http.ResponseWriter, r *http.Request) {
	data, ok := h.viewPage(w, r, timeline.ParseFilter(r.URL.Query()))
	if !ok {
		return
	}
	h.responder.render(r.Context(), w, http.StatusOK, "viewer.html", data)
}

// Print renders the printable timeline with a QR code of the share URL.
func (h *PageHandler) Print(w http.ResponseWriter, r *http.Request) {
	data, ok := h.viewPage(w, r, timeline.ParseFilter(r.URL.Query()))
	if !ok {
		return
	}
	qr, err := qrDataURI(data.ShareURL)
	if err != nil {
		h.log(r.Context(), "Print").ErrorContext(r.Context(), "failed to encode qr code", "error", err)
	} else {
		data.QRCode = qr
	}
	h.responder.render(r.Context(), w, http.StatusOK, "print.html", data)
}

// Editor renders the editor, or the unlock form while locked.
func (h *PageHandler) Editor(w http.ResponseWriter, r *http.Request) {
	data, ok := h.viewPage(w, r, nil)
	if !ok {
		return
	}
	data.Scope = string(session.ScopeEdit)
	data.Title = data.Event.Title + " 編集"
	if _, err := checkAccess(h.access, r, data.Slug, session.ScopeEdit); err == nil {
		data.Unlocked = true
		data.Emoji = timeline.PresetEmoji()
		data.ContactRows = contactRows(data.Event.Contacts)
	}
	h.responder.render(r.Context(), w, http.StatusOK, "editor.html", data)
}

// Broadcast renders the announcement panel, or the unlock form while locked.
func (h *PageHandler) Broadcast(w http.ResponseWriter, r *http.Request) {
	slug, ok := SlugFromContext(r.Context())
	if !ok {
		h.notFound(w, r)
		return
	}
	event, err := h.events.GetEvent(r.Context(), slug)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	data := h.basePage(r, slug)
	data.Event = event
	data.Title = event.Title + " アナウンス"
	data.Scope = string(session.ScopeBroadcast)
	if _, err := checkAccess(h.access, r, slug, session.ScopeBroadcast); err == nil {
		data.Unlocked = true
	}
	h.responder.render(r.Context(), w, http.StatusOK, "broadcast.html", data)
}

func (h *PageHandler) viewPage(w http.ResponseWriter, r *http.Request, filter []string) (pageData, bool) {
	slug, ok := SlugFromContext(r.Context())
	if !ok {
		h.notFound(w, r)
		return pageData{}, false
	}
	view, err := h.views.BuildView(r.Context(), application.ViewParams{Slug: slug, Filter: filter})
	if err != nil {
		h.pageError(w, r, err)
		return pageData{}, false
	}

	data := h.basePage(r, slug)
	data.Title = view.Event.Title
	data.Event = view.Event
	data.View = view
	data.ShareURL = shareURL(h.baseURL, r, slug, view.Filter)
	data.ViewerHref = withFilter(eventPath(slug), view.Filter)
	data.PrintHref = withFilter(eventPath(slug, "print"), view.Filter)
	data.CalendarHref = withFilter(eventPath(slug, "calendar.ics"), view.Filter)
	data.APIHref = withFilter(apiPath(slug), view.Filter)
	return data, true
}

func (h *PageHandler) basePage(r *http.Request, slug string) pageData {
	query := r.URL.Query()
	return pageData{
		Slug:    slug,
		Message: query.Get("msg"),
		Error:   query.Get("err"),
	}
}

func (h *PageHandler) pageError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, application.ErrNotFound) {
		h.notFound(w, r)
		return
	}
	h.log(r.Context(), "render", "error_kind", application.ErrorKind(err)).ErrorContext(r.Context(), "failed to load page", "error", err)
	data := h.basePage(r, "")
	data.Error = userMessage(err)
	h.responder.render(r.Context(), w, http.StatusInternalServerError, "index.html", data)
}

func (h *PageHandler) notFound(w http.ResponseWriter, r *http.Request) {
	data := h.basePage(r, "")
	data.Error = "指定されたイベントが見つかりません。"
	h.responder.render(r.Context(), w, http.StatusNotFound, "index.html", data)
}
