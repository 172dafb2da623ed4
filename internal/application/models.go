package application

import (
	"time"

	"github.com/taisuke/takt/internal/session"
	"github.com/taisuke/takt/internal/timeline"
)

// Contact is one row of an event's emergency contact list.
type Contact struct {
	Role  string `json:"role"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Event is the top-level shared schedule.
type Event struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Date  string `json:"date"`
	Venue string `json:"venue"`
	// EditPassword is plaintext or an argon2id hash and is never rendered.
	EditPassword          string     `json:"-"`
	Announcement          *string    `json:"announcement"`
	AnnouncementUpdatedAt *time.Time `json:"announcement_updated_at"`
	Contacts              []Contact  `json:"emergency_contacts"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// Item is a single timeline row.
type Item struct {
	ID          string              `json:"id"`
	EventID     string              `json:"event_id"`
	Start       timeline.TimeOfDay  `json:"start_time"`
	End         *timeline.TimeOfDay `json:"end_time"`
	Title       string              `json:"title"`
	Location    string              `json:"location,omitempty"`
	Note        string              `json:"note,omitempty"`
	Targets     []string            `json:"targets"`
	Assignees   []string            `json:"assignees"`
	Emoji       string              `json:"emoji"`
	SortOrder   int                 `json:"sort_order"`
	MaterialIDs []string            `json:"material_ids"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (i Item) SlotID() string                { return i.ID }
func (i Item) SlotStart() timeline.TimeOfDay { return i.Start }
func (i Item) SlotOrder() int                { return i.SortOrder }
func (i Item) TargetLabels() []string        { return i.Targets }
func (i Item) AssigneeLabels() []string      { return i.Assignees }

// Material is a titled external link attached to an event.
type Material struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	SortOrder int       `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateEventParams captures the creation form.
type CreateEventParams struct {
	Slug     string
	Title    string
	Date     string
	Venue    string
	Password string
}

// UpdateEventParams overwrites the basic event fields. An empty Password keeps
// the current one.
type UpdateEventParams struct {
	Slug     string
	Title    string
	Date     string
	Venue    string
	Password string
}

// UnlockParams is an attempt to open the editor or broadcast panel.
type UnlockParams struct {
	Slug     string
	Password string
	Scope    session.Scope
	Remember bool
}

// UnlockResult carries the issued access token.
type UnlockResult struct {
	Event Event
	Token session.Token
}

// ItemInput captures caller provided schedule item fields.
type ItemInput struct {
	Start       string
	End         string
	Title       string
	Location    string
	Note        string
	Targets     []string
	Assignees   []string
	Emoji       string
	SortOrder   int
	MaterialIDs []string
}

// CreateItemParams wraps the data required to add an item.
type CreateItemParams struct {
	Slug  string
	Input ItemInput
}

// UpdateItemParams wraps the data required to overwrite an item.
type UpdateItemParams struct {
	Slug   string
	ItemID string
	Input  ItemInput
}

// LabelKind selects which label set a bulk operation touches.
type LabelKind string

const (
	LabelTarget   LabelKind = "target"
	LabelAssignee LabelKind = "assignee"
)

// RenameLabelParams renames a label on every item of an event.
type RenameLabelParams struct {
	Slug string
	Kind LabelKind
	From string
	To   string
}

// RemoveLabelParams removes a label from every item of an event.
type RemoveLabelParams struct {
	Slug  string
	Kind  LabelKind
	Label string
}

// BulkFailure records one item a bulk operation could not update.
type BulkFailure struct {
	ItemID    string
	ItemTitle string
	Err       error
}

// BulkResult aggregates the outcome of a bulk label operation.
type BulkResult struct {
	Attempted int
	Succeeded int
	Failed    []BulkFailure
}

// MaterialInput captures caller provided material fields.
type MaterialInput struct {
	Title string
	URL   string
}

// CreateMaterialParams wraps the data required to add a material.
type CreateMaterialParams struct {
	Slug  string
	Input MaterialInput
}

// UpdateMaterialParams wraps the data required to overwrite a material. A nil
// SortOrder keeps the current position.
type UpdateMaterialParams struct {
	Slug       string
	MaterialID string
	Input      MaterialInput
	SortOrder  *int
}

// ViewParams selects an event and an optional tag filter.
type ViewParams struct {
	Slug   string
	Filter []string
}

// LabelView is a label chip with its colour class.
type LabelView struct {
	Name   string `json:"name"`
	Color  string `json:"color"`
	Active bool   `json:"active,omitempty"`
}

// MaterialView is a material with its derived kind.
type MaterialView struct {
	Material
	Kind      timeline.MaterialKind `json:"kind"`
	Icon      string                `json:"icon"`
	KindLabel string                `json:"kind_label"`
}

// ItemView is an item with the values derived for display.
type ItemView struct {
	Item
	StartText      string         `json:"start"`
	EndText        string         `json:"end,omitempty"`
	Duration       string         `json:"duration,omitempty"`
	Current        bool           `json:"current"`
	TargetChips    []LabelView    `json:"target_chips"`
	AssigneeChips  []LabelView    `json:"assignee_chips"`
	LinkedMaterial []MaterialView `json:"linked_materials"`
}

// ViewGroup is a bucket of items sharing a start minute.
type ViewGroup struct {
	Start string     `json:"start"`
	Items []ItemView `json:"items"`
}

// OverlapWarning reports an assignee booked on two overlapping items.
type OverlapWarning struct {
	ItemID     string `json:"item_id"`
	ItemTitle  string `json:"item_title"`
	WithItemID string `json:"with_item_id"`
	WithTitle  string `json:"with_title"`
	Assignee   string `json:"assignee"`
	From       string `json:"from"`
}

// EventView is everything a viewer, editor or print page renders.
type EventView struct {
	Event       Event            `json:"event"`
	Filter      []string         `json:"filter"`
	Groups      []ViewGroup      `json:"groups"`
	Items       []Item           `json:"-"`
	Materials   []MaterialView   `json:"materials"`
	Targets     []LabelView      `json:"targets"`
	Assignees   []LabelView      `json:"assignees"`
	Warnings    []OverlapWarning `json:"warnings"`
	TotalItems  int              `json:"total_items"`
	ShownItems  int              `json:"shown_items"`
	GeneratedAt time.Time        `json:"generated_at"`
}
