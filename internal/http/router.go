package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/taisuke/takt/internal/session"
)

// RealtimeServer streams change notifications for one event.
type RealtimeServer interface {
	Serve(w http.ResponseWriter, r *http.Request, slug string)
}

type RouterConfig struct {
	Pages      *PageHandler
	Events     *EventHandler
	Items      *ItemHandler
	Materials  *MaterialHandler
	API        *APIHandler
	Realtime   RealtimeServer
	Access     AccessVerifier
	Health     HealthFunc
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

// eventRoute is one endpoint below /e/{slug}. In path, ":id" matches any
// single segment and is exposed through ResourceIDFromContext.
type eventRoute struct {
	method  string
	path    string
	handler http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	logger := defaultLogger(cfg.Logger)

	edit := RequireAccess(cfg.Access, session.ScopeEdit, logger)
	broadcast := RequireAccess(cfg.Access, session.ScopeBroadcast, logger)

	var routes []eventRoute
	add := func(method, path string, h http.HandlerFunc, guard func(http.Handler) http.Handler) {
		if h == nil {
			return
		}
		var handler http.Handler = h
		if guard != nil {
			handler = guard(handler)
		}
		routes = append(routes, eventRoute{method: method, path: path, handler: handler})
	}

	if cfg.Pages != nil {
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Pages.Index(w, r)
		})
		add(http.MethodGet, "", cfg.Pages.Viewer, nil)
		add(http.MethodGet, "edit", cfg.Pages.Editor, nil)
		add(http.MethodGet, "broadcast", cfg.Pages.Broadcast, nil)
		add(http.MethodGet, "print", cfg.Pages.Print, nil)
	}

	if cfg.Events != nil {
		mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Events.CreateEvent(w, r)
		})
		add(http.MethodPost, "unlock", cfg.Events.Unlock, nil)
		add(http.MethodPost, "lock", cfg.Events.Lock, nil)
		add(http.MethodPost, "event", cfg.Events.UpdateEvent, edit)
		add(http.MethodPost, "contacts", cfg.Events.ReplaceContacts, edit)
		add(http.MethodPost, "broadcast", cfg.Events.SetAnnouncement, broadcast)
		add(http.MethodPost, "broadcast/clear", cfg.Events.ClearAnnouncement, broadcast)
	}

	if cfg.Items != nil {
		add(http.MethodPost, "items", cfg.Items.Create, edit)
		add(http.MethodPost, "items/:id", cfg.Items.Update, edit)
		add(http.MethodPost, "items/:id/delete", cfg.Items.Delete, edit)
		add(http.MethodPost, "labels/rename", cfg.Items.RenameLabel, edit)
		add(http.MethodPost, "labels/remove", cfg.Items.RemoveLabel, edit)
	}

	if cfg.Materials != nil {
		add(http.MethodPost, "materials", cfg.Materials.Create, edit)
		add(http.MethodPost, "materials/:id", cfg.Materials.Update, edit)
		add(http.MethodPost, "materials/:id/delete", cfg.Materials.Delete, edit)
	}

	if cfg.API != nil {
		add(http.MethodGet, "calendar.ics", cfg.API.Calendar, nil)
		add(http.MethodGet, "qr.png", cfg.API.QRCode, nil)
		mux.HandleFunc("/api/events/", func(w http.ResponseWriter, r *http.Request) {
			slug := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/events/"), "/")
			if slug == "" || strings.Contains(slug, "/") {
				http.NotFound(w, r)
				return
			}
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.API.Event(w, r.WithContext(ContextWithSlug(r.Context(), slug)))
		})
	}

	if cfg.Realtime != nil {
		add(http.MethodGet, "ws", func(w http.ResponseWriter, r *http.Request) {
			slug, _ := SlugFromContext(r.Context())
			cfg.Realtime.Serve(w, r, slug)
		}, nil)
	}

	mux.HandleFunc("/healthz", healthHandler(cfg.Health, logger))
	mux.HandleFunc("/e/", func(w http.ResponseWriter, r *http.Request) {
		dispatchEvent(w, r, routes)
	})

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func dispatchEvent(w http.ResponseWriter, r *http.Request, routes []eventRoute) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/e/"), "/")
	slug, tail, _ := strings.Cut(rest, "/")
	slug, err := url.PathUnescape(slug)
	if err != nil || slug == "" {
		http.NotFound(w, r)
		return
	}

	var allowed []string
	for _, route := range routes {
		id, ok := matchPath(route.path, tail)
		if !ok {
			continue
		}
		method := r.Method
		if method == http.MethodHead {
			method = http.MethodGet
		}
		if route.method != method {
			allowed = append(allowed, route.method)
			continue
		}
		ctx := ContextWithSlug(r.Context(), slug)
		if id != "" {
			ctx = ContextWithResourceID(ctx, id)
		}
		route.handler.ServeHTTP(w, r.WithContext(ctx))
		return
	}

	if len(allowed) > 0 {
		methodNotAllowed(w, allowed...)
		return
	}
	http.NotFound(w, r)
}

// matchPath compares a route pattern with the path after the slug.
func matchPath(pattern, path string) (string, bool) {
	if pattern == "" || path == "" {
		return "", pattern == path
	}
	want := strings.Split(pattern, "/")
	got := strings.Split(path, "/")
	if len(want) != len(got) {
		return "", false
	}
	var id string
	for i := range want {
		if want[i] == ":id" {
			if got[i] == "" {
				return "", false
			}
			id = got[i]
			continue
		}
		if want[i] != got[i] {
			return "", false
		}
	}
	return id, true
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
