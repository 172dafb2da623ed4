package persistence

import (
	"context"
	"time"
)

// EventRepository stores events. There is no delete operation.
type EventRepository interface {
	CreateEvent(ctx context.Context, event Event) error
	UpdateEvent(ctx context.Context, event Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	GetEventBySlug(ctx context.Context, slug string) (Event, error)
	UpdateAnnouncement(ctx context.Context, id string, text *string, updatedAt *time.Time) error
	ReplaceContacts(ctx context.Context, id string, contacts []EmergencyContact, updatedAt time.Time) error
}

// ScheduleItemRepository stores timeline rows.
type ScheduleItemRepository interface {
	CreateItem(ctx context.Context, item ScheduleItem) error
	UpdateItem(ctx context.Context, item ScheduleItem) error
	GetItem(ctx context.Context, id string) (ScheduleItem, error)
	ListItemsByEvent(ctx context.Context, eventID string) ([]ScheduleItem, error)
	DeleteItem(ctx context.Context, id string) error
}

// MaterialRepository stores event materials.
type MaterialRepository interface {
	CreateMaterial(ctx context.Context, material EventMaterial) error
	UpdateMaterial(ctx context.Context, material EventMaterial) error
	GetMaterial(ctx context.Context, id string) (EventMaterial, error)
	ListMaterialsByEvent(ctx context.Context, eventID string) ([]EventMaterial, error)
	CountMaterialsByEvent(ctx context.Context, eventID string) (int, error)
	DeleteMaterial(ctx context.Context, id string) error
}
