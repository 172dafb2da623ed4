package application

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/taisuke/takt/internal/persistence"
	"github.com/taisuke/takt/internal/session"
)

type eventRepoStub struct {
	mu     sync.Mutex
	events map[string]Event
	err    error
}

func newEventRepoStub(events ...Event) *eventRepoStub {
	stub := &eventRepoStub{events: map[string]Event{}}
	for _, e := range events {
		stub.events[e.Slug] = e
	}
	return stub
}

func (s *eventRepoStub) CreateEvent(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, exists := s.events[event.Slug]; exists {
		return persistence.ErrDuplicate
	}
	s.events[event.Slug] = event
	return nil
}

func (s *eventRepoStub) UpdateEvent(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events[event.Slug] = event
	return nil
}

func (s *eventRepoStub) GetEventBySlug(_ context.Context, slug string) (Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[slug]
	if !ok {
		return Event{}, persistence.ErrNotFound
	}
	return event, nil
}

func (s *eventRepoStub) UpdateAnnouncement(_ context.Context, id string, text *string, updatedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for slug, e := range s.events {
		if e.ID == id {
			e.Announcement = text
			e.AnnouncementUpdatedAt = updatedAt
			s.events[slug] = e
			return nil
		}
	}
	return persistence.ErrNotFound
}

func (s *eventRepoStub) ReplaceContacts(_ context.Context, id string, contacts []Contact, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for slug, e := range s.events {
		if e.ID == id {
			e.Contacts = contacts
			e.UpdatedAt = updatedAt
			s.events[slug] = e
			return nil
		}
	}
	return persistence.ErrNotFound
}

type itemRepoStub struct {
	mu        sync.Mutex
	items     map[string]Item
	failOn    map[string]error
	updateLog []string
}

func newItemRepoStub(items ...Item) *itemRepoStub {
	stub := &itemRepoStub{items: map[string]Item{}, failOn: map[string]error{}}
	for _, item := range items {
		stub.items[item.ID] = item
	}
	return stub
}

func (s *itemRepoStub) CreateItem(_ context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
	return nil
}

func (s *itemRepoStub) UpdateItem(_ context.Context, item Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updateLog = append(s.updateLog, item.ID)
	if err := s.failOn[item.ID]; err != nil {
		return err
	}
	if _, ok := s.items[item.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.items[item.ID] = item
	return nil
}

func (s *itemRepoStub) GetItem(_ context.Context, id string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return Item{}, persistence.ErrNotFound
	}
	return item, nil
}

func (s *itemRepoStub) ListItemsByEvent(_ context.Context, eventID string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Item
	for _, item := range s.items {
		if item.EventID == eventID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *itemRepoStub) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

type materialRepoStub struct {
	mu        sync.Mutex
	materials map[string]Material
}

func newMaterialRepoStub(materials ...Material) *materialRepoStub {
	stub := &materialRepoStub{materials: map[string]Material{}}
	for _, m := range materials {
		stub.materials[m.ID] = m
	}
	return stub
}

func (s *materialRepoStub) CreateMaterial(_ context.Context, m Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materials[m.ID] = m
	return nil
}

func (s *materialRepoStub) UpdateMaterial(_ context.Context, m Material) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.materials[m.ID] = m
	return nil
}

func (s *materialRepoStub) GetMaterial(_ context.Context, id string) (Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.materials[id]
	if !ok {
		return Material{}, persistence.ErrNotFound
	}
	return m, nil
}

func (s *materialRepoStub) ListMaterialsByEvent(_ context.Context, eventID string) ([]Material, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Material
	for _, m := range s.materials {
		if m.EventID == eventID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (s *materialRepoStub) CountMaterialsByEvent(ctx context.Context, eventID string) (int, error) {
	list, err := s.ListMaterialsByEvent(ctx, eventID)
	return len(list), err
}

func (s *materialRepoStub) DeleteMaterial(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.materials, id)
	return nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	topics []string
}

func (n *recordingNotifier) NotifyChange(_ context.Context, slug, topic string) {
	n.mu.Lock()
	n.topics = append(n.topics, slug+":"+topic)
	n.mu.Unlock()
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.topics)
}

type tokenIssuerStub struct {
	issued []session.Scope
}

func (s *tokenIssuerStub) Issue(slug string, scope session.Scope, remember bool) (session.Token, error) {
	s.issued = append(s.issued, scope)
	return session.Token{Value: "token-" + slug, Scope: scope, Persistent: remember}, nil
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}

func fixedNow() func() time.Time {
	t := time.Date(2026, 10, 15, 10, 30, 0, 0, time.UTC)
	return func() time.Time { return t }
}

func strPtr(value string) *string {
	return &value
}

var testEvent = Event{ID: "event-1", Slug: "test-1", Title: "定期演奏会", Date: "2026-10-15", EditPassword: "secret"}
