// Package realtime fans change notifications out to the open viewers of an
// event. Viewers react to any message by refetching the whole event.
package realtime

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const (
	TypeChange = "change"
	TypeTick   = "tick"
)

// Message is the payload streamed to viewers.
type Message struct {
	Type   string    `json:"type"`
	Slug   string    `json:"slug"`
	Topic  string    `json:"topic,omitempty"`
	At     time.Time `json:"at"`
	Origin string    `json:"origin,omitempty"`
}

// Relay forwards change messages to other server instances. The relay is
// responsible for delivering the message back into this hub as well.
type Relay interface {
	Publish(ctx context.Context, msg Message) error
}

type subscriber struct {
	ch chan Message
}

// Hub is a per-slug subscriber registry.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	buffer int
	relay  Relay
	now    func() time.Time
	logger *slog.Logger
}

// NewHub returns a Hub whose subscribers buffer up to buffer messages.
func NewHub(buffer int, now func() time.Time, logger *slog.Logger) *Hub {
	if buffer <= 0 {
		buffer = 8
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		buffer: buffer,
		now:    now,
		logger: logger.With("component", "realtime.Hub"),
	}
}

// SetRelay routes NotifyChange through relay instead of delivering locally.
func (h *Hub) SetRelay(relay Relay) {
	h.mu.Lock()
	h.relay = relay
	h.mu.Unlock()
}

// Subscribe registers a listener for slug. The returned cancel func must be
// called once; it closes the channel.
func (h *Hub) Subscribe(slug string) (<-chan Message, func()) {
	sub := &subscriber{ch: make(chan Message, h.buffer)}

	h.mu.Lock()
	set, ok := h.subs[slug]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[slug] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if set, ok := h.subs[slug]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(h.subs, slug)
				}
			}
			h.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// Deliver hands msg to every local subscriber of msg.Slug. A subscriber whose
// buffer is full misses the message.
func (h *Hub) Deliver(msg Message) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subs[msg.Slug] {
		select {
		case sub.ch <- msg:
			delivered++
		default:
			h.logger.Warn("dropping message for slow subscriber", "slug", msg.Slug, "type", msg.Type)
		}
	}
	return delivered
}

// NotifyChange publishes a change for slug, through the relay when one is set.
func (h *Hub) NotifyChange(ctx context.Context, slug, topic string) {
	msg := Message{Type: TypeChange, Slug: slug, Topic: topic, At: h.now()}

	h.mu.RLock()
	relay := h.relay
	h.mu.RUnlock()

	if relay != nil {
		err := relay.Publish(ctx, msg)
		if err == nil {
			return
		}
		h.logger.WarnContext(ctx, "relay publish failed, delivering locally", "slug", slug, "error", err)
	}
	h.Deliver(msg)
}

// Slugs returns the slugs that currently have subscribers, sorted.
func (h *Hub) Slugs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.subs))
	for slug := range h.subs {
		out = append(out, slug)
	}
	sort.Strings(out)
	return out
}

// SubscriberCount returns the number of local subscribers for slug.
func (h *Hub) SubscriberCount(slug string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[slug])
}
