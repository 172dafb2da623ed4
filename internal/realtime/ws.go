package realtime

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	readLimit    = 512
)

// WSHandler streams hub messages for one slug over a websocket.
type WSHandler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	ping     time.Duration
	logger   *slog.Logger
}

// NewWSHandler returns a handler using same-origin checks.
func NewWSHandler(hub *Hub, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		ping:   pingInterval,
		logger: logger.With("component", "realtime.WSHandler"),
	}
}

// Serve upgrades the request and streams messages for slug until the client
// goes away. The subscription exists before the handshake completes, so a
// client that has connected never misses a later change.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request, slug string) {
	messages, cancel := h.hub.Subscribe(slug)
	defer cancel()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", "slug", slug, "error", err)
		return
	}
	defer conn.Close()

	logger := h.logger.With("slug", slug, "remote", r.RemoteAddr)
	logger.DebugContext(r.Context(), "viewer connected")

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(readLimit)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.ping)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			logger.DebugContext(r.Context(), "viewer disconnected")
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				logger.DebugContext(r.Context(), "write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
