package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/taisuke/takt/internal/application"
	"github.com/taisuke/takt/internal/session"
)

type eventService interface {
	CreateEvent(ctx context.Context, params application.CreateEventParams) (application.Event, error)
	UpdateEventInfo(ctx context.Context, params application.UpdateEventParams) (application.Event, error)
	Unlock(ctx context.Context, params application.UnlockParams) (application.UnlockResult, error)
	SetAnnouncement(ctx context.Context, slug, text string) (application.Event, error)
	ClearAnnouncement(ctx context.Context, slug string) (application.Event, error)
	ReplaceContacts(ctx context.Context, slug string, contacts []application.Contact) (application.Event, error)
}

// EventHandler serves the event level form actions: creation, event info,
// the password gate, contacts and the announcement.
type EventHandler struct {
	service   eventService
	responder responder
	logger    *slog.Logger
}

func NewEventHandler(service eventService, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	return &EventHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

// CreateEvent creates an event and unlocks its editor for the creator.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var form eventForm
	if err := decodeForm(w, r, &form); err != nil {
		h.responder.redirect(w, r, "/", "", errBadRequestBody.Error())
		return
	}

	event, err := h.service.CreateEvent(r.Context(), form.createParams())
	if err != nil {
		h.responder.redirectError(w, r, "/", err)
		return
	}

	result, err := h.service.Unlock(r.Context(), application.UnlockParams{
		Slug:     event.Slug,
		Password: form.Password,
		Scope:    session.ScopeEdit,
	})
	if err != nil {
		h.responder.redirectError(w, r, eventPath(event.Slug, "edit"), err)
		return
	}
	setAccessCookie(w, r, event.Slug, result.Token)

	h.log(r.Context(), "CreateEvent", "slug", event.Slug).InfoContext(r.Context(), "event created")
	h.responder.redirect(w, r, eventPath(event.Slug, "edit"), "イベントを作成しました。", "")
}

// UpdateEvent saves title, date, venue and optionally a new password.
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	slug, _ := SlugFromContext(r.Context())
	back := eventPath(slug, "edit")

	var form eventForm
	if err := decodeForm(w, r, &form); err != nil {
		h.responder.redirect(w, r, back, "", errBadRequestBody.Error())
		return
	}
	form.Slug = slug

	if _, err := h.service.UpdateEventInfo(r.Context(), application.UpdateEventParams(form.createParams())); err != nil {
		h.responder.redirectError(w, r, back, err)
		return
	}
	h.responder.redirect(w, r, back, "イベント情報を保存しました。", "")
}

// Unlock verifies the password and sets the access cookie for the scope.
func (h *EventHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	slug, _ := SlugFromContext(r.Context())

	var form unlockForm
	if err := decodeForm(w, r, &form); err != nil {
		h.responder.redirect(w, r, eventPath(slug, "edit"), "", errBadRequestBody.Error())
		return
	}
	params := form.params(slug)
	back := gatePath(slug, params.Scope)

	result, err := h.service.Unlock(r.Context(), params)
	if err != nil {
		h.responder.redirectError(w, r, back, err)
		return
	}
	setAccessCookie(w, r, slug, result.Token)

	h.log(r.Context(), "Unlock", "scope", string(params.Scope), "remember", params.Remember).InfoContext(r.Context(), "event unlocked")
	h.responder.redirect(w, r, back, "ロックを解除しました。", "")
}

// Lock drops every access cookie of the event.
func (h *EventHandler) Lock(w http.ResponseWriter, r *http.Request) {
	slug, _ := SlugFromContext(r.Context())
	for _, scope := range []session.Scope{session.ScopeEdit, session.ScopeBroadcast} {
		http.SetCookie(w, &http.Cookie{
			Name:     session.CookieName(scope),
			Value:    "",
			Path:     eventPath(slug),
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	h.responder.redirect(w, r, eventPath(slug), "ロックしました。", "")
}

// ReplaceContacts saves the emergency contact table.
func (h *EventHandler) ReplaceContacts(w http.ResponseWriter, r *http.Request) {
	slug, _ := SlugFromContext(r.Context())
	back := eventPath(slug, "edit")

	var form contactsForm
	if err := decodeForm(w, r, &form); err != nil {
		h.responder.redirect(w, r, back, "", errBadRequestBody.Error())
		return
	}
	if _, err := h.service.ReplaceContacts(r.Context(), slug, form.contacts()); err != nil {
		h.responder.redirectError(w, r, back, err)
		return
	}
	h.responder.redirect(w, r, back, "緊急連絡先を保存しました。", "")
}

// SetAnnouncement broadcasts a new announcement.
func (h *EventHandler) SetAnnouncement(w http.ResponseWriter, r *http.Request) {
	slug, _ := SlugFromContext(r.Context())
	back := eventPath(slug, "broadcast")

	var form announcementForm
	if err := decodeForm(w, r, &form); err != nil {
		h.responder.redirect(w, r, back, "", errBadRequestBody.Error())
		return
	}
	if _, err := h.service.SetAnnouncement(r.Context(), slug, form.Text); err != nil {
		h.responder.redirectError(w, r, back, err)
		return
	}
	if claims, ok := AccessFromContext(r.Context()); ok {
		h.log(r.Context(), "SetAnnouncement", "scope", string(claims.Scope)).InfoContext(r.Context(), "announcement published")
	}
	h.responder.redirect(w, r, back, "アナウンスを配信しました。", "")
}

// ClearAnnouncement removes the announcement.
func (h *EventHandler) ClearAnnouncement(w http.ResponseWriter, r *http.Request) {
	slug, _ := SlugFromContext(r.Context())
	back := eventPath(slug, "broadcast")

	if _, err := h.service.ClearAnnouncement(r.Context(), slug); err != nil {
		h.responder.redirectError(w, r, back, err)
		return
	}
	h.responder.redirect(w, r, back, "アナウンスを消しました。", "")
}

// setAccessCookie stores token for the event. Remembered tokens get an
// expiry, others live for the browser session.
func setAccessCookie(w http.ResponseWriter, r *http.Request, slug string, token session.Token) {
	cookie := &http.Cookie{
		Name:     session.CookieName(token.Scope),
		Value:    token.Value,
		Path:     eventPath(slug),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
	if token.Persistent {
		cookie.Expires = token.ExpiresAt
	}
	http.SetCookie(w, cookie)
}
