package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/taisuke/takt/internal/application"
	"github.com/taisuke/takt/internal/persistence"
	"github.com/taisuke/takt/internal/timeline"
)

var (
	eventCounter    uint64
	itemCounter     uint64
	materialCounter uint64
)

var referenceTime = time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Event fixtures -----------------------------

// EventFixture represents a deterministic event record.
type EventFixture struct {
	ID        string
	Slug      string
	Title     string
	Date      string
	Venue     string
	Password  string
	Contacts  []application.Contact
	CreatedAt time.Time
}

// EventOption configures the generated event fixture.
type EventOption func(*EventFixture)

// NewEventFixture returns a deterministic event fixture with optional overrides.
func NewEventFixture(opts ...EventOption) EventFixture {
	idx := atomic.AddUint64(&eventCounter, 1)
	fixture := EventFixture{
		ID:        fmt.Sprintf("event-%03d", idx),
		Slug:      fmt.Sprintf("event-%03d", idx),
		Title:     fmt.Sprintf("定期演奏会 %03d", idx),
		Date:      referenceTime.Format("2006-01-02"),
		Venue:     "市民ホール",
		Password:  "secret",
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithEventID overrides the generated event ID.
func WithEventID(id string) EventOption {
	return func(f *EventFixture) { f.ID = id }
}

// WithEventSlug overrides the generated slug.
func WithEventSlug(slug string) EventOption {
	return func(f *EventFixture) { f.Slug = slug }
}

// WithEventPassword overrides the edit password.
func WithEventPassword(password string) EventOption {
	return func(f *EventFixture) { f.Password = password }
}

// WithEventContacts sets the emergency contacts.
func WithEventContacts(contacts ...application.Contact) EventOption {
	return func(f *EventFixture) { f.Contacts = contacts }
}

// Application returns the fixture as an application.Event value.
func (f EventFixture) Application() application.Event {
	return application.Event{
		ID:           f.ID,
		Slug:         f.Slug,
		Title:        f.Title,
		Date:         f.Date,
		Venue:        f.Venue,
		EditPassword: f.Password,
		Contacts:     append([]application.Contact(nil), f.Contacts...),
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

// Persistence returns the fixture as a persistence.Event record.
func (f EventFixture) Persistence() persistence.Event {
	contacts := make([]persistence.EmergencyContact, 0, len(f.Contacts))
	for _, c := range f.Contacts {
		contacts = append(contacts, persistence.EmergencyContact{Role: c.Role, Name: c.Name, Phone: c.Phone})
	}
	return persistence.Event{
		ID:                f.ID,
		Slug:              f.Slug,
		Title:             f.Title,
		Date:              f.Date,
		Venue:             f.Venue,
		EditPassword:      f.Password,
		EmergencyContacts: contacts,
		CreatedAt:         f.CreatedAt,
		UpdatedAt:         f.CreatedAt,
	}
}

// ----------------------------- Item fixtures ------------------------------

// ItemFixture represents a deterministic schedule item.
type ItemFixture struct {
	ID          string
	EventID     string
	Start       string
	End         string
	Title       string
	Targets     []string
	Assignees   []string
	MaterialIDs []string
	Emoji       string
}

// ItemOption configures the generated item fixture.
type ItemOption func(*ItemFixture)

// NewItemFixture returns an item for eventID starting at start ("HH:MM").
func NewItemFixture(eventID, start string, opts ...ItemOption) ItemFixture {
	idx := atomic.AddUint64(&itemCounter, 1)
	fixture := ItemFixture{
		ID:      fmt.Sprintf("item-%03d", idx),
		EventID: eventID,
		Start:   start,
		Title:   fmt.Sprintf("項目 %03d", idx),
		Targets: []string{timeline.Everyone},
		Emoji:   timeline.DefaultEmoji,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithItemID overrides the generated item ID.
func WithItemID(id string) ItemOption {
	return func(f *ItemFixture) { f.ID = id }
}

// WithItemTitle overrides the title.
func WithItemTitle(title string) ItemOption {
	return func(f *ItemFixture) { f.Title = title }
}

// WithItemEnd sets an end time ("HH:MM").
func WithItemEnd(end string) ItemOption {
	return func(f *ItemFixture) { f.End = end }
}

// WithItemTargets replaces the target labels.
func WithItemTargets(targets ...string) ItemOption {
	return func(f *ItemFixture) { f.Targets = targets }
}

// WithItemAssignees replaces the assignee labels.
func WithItemAssignees(assignees ...string) ItemOption {
	return func(f *ItemFixture) { f.Assignees = assignees }
}

// WithItemMaterials links material ids.
func WithItemMaterials(ids ...string) ItemOption {
	return func(f *ItemFixture) { f.MaterialIDs = ids }
}

// Application returns the fixture as an application.Item. It panics on
// malformed times, which only happens when a test is written wrongly.
func (f ItemFixture) Application() application.Item {
	item := application.Item{
		ID:          f.ID,
		EventID:     f.EventID,
		Start:       timeline.MustParseTimeOfDay(f.Start),
		Title:       f.Title,
		Targets:     timeline.NormalizeTargets(f.Targets),
		Assignees:   append([]string(nil), f.Assignees...),
		Emoji:       f.Emoji,
		MaterialIDs: append([]string(nil), f.MaterialIDs...),
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	if f.End != "" {
		end := timeline.MustParseTimeOfDay(f.End)
		item.End = &end
	}
	return item
}

// --------------------------- Material fixtures ----------------------------

// NewMaterialFixture returns a material for eventID pointing at url.
func NewMaterialFixture(eventID, title, url string) application.Material {
	idx := atomic.AddUint64(&materialCounter, 1)
	return application.Material{
		ID:        fmt.Sprintf("material-%03d", idx),
		EventID:   eventID,
		Title:     title,
		URL:       url,
		SortOrder: int(idx),
		CreatedAt: referenceTime,
	}
}
