// Package adapters translates between the application models and the
// persistence records so services never see storage encodings.
package adapters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/taisuke/takt/internal/application"
	"github.com/taisuke/takt/internal/persistence"
	"github.com/taisuke/takt/internal/timeline"
)

// EventRepository adapts a persistence.EventRepository to application.EventRepository.
type EventRepository struct {
	repo persistence.EventRepository
}

func NewEventRepository(repo persistence.EventRepository) *EventRepository {
	return &EventRepository{repo: repo}
}

func (a *EventRepository) CreateEvent(ctx context.Context, event application.Event) error {
	return a.repo.CreateEvent(ctx, toPersistenceEvent(event))
}

func (a *EventRepository) UpdateEvent(ctx context.Context, event application.Event) error {
	return a.repo.UpdateEvent(ctx, toPersistenceEvent(event))
}

func (a *EventRepository) GetEventBySlug(ctx context.Context, slug string) (application.Event, error) {
	model, err := a.repo.GetEventBySlug(ctx, slug)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(model), nil
}

func (a *EventRepository) UpdateAnnouncement(ctx context.Context, id string, text *string, updatedAt *time.Time) error {
	return a.repo.UpdateAnnouncement(ctx, id, text, updatedAt)
}

func (a *EventRepository) ReplaceContacts(ctx context.Context, id string, contacts []application.Contact, updatedAt time.Time) error {
	return a.repo.ReplaceContacts(ctx, id, toPersistenceContacts(contacts), updatedAt)
}

// ItemRepository adapts a persistence.ScheduleItemRepository to application.ItemRepository.
type ItemRepository struct {
	repo persistence.ScheduleItemRepository
}

func NewItemRepository(repo persistence.ScheduleItemRepository) *ItemRepository {
	return &ItemRepository{repo: repo}
}

func (a *ItemRepository) CreateItem(ctx context.Context, item application.Item) error {
	return a.repo.CreateItem(ctx, toPersistenceItem(item))
}

func (a *ItemRepository) UpdateItem(ctx context.Context, item application.Item) error {
	return a.repo.UpdateItem(ctx, toPersistenceItem(item))
}

func (a *ItemRepository) GetItem(ctx context.Context, id string) (application.Item, error) {
	model, err := a.repo.GetItem(ctx, id)
	if err != nil {
		return application.Item{}, err
	}
	return toApplicationItem(model)
}

func (a *ItemRepository) ListItemsByEvent(ctx context.Context, eventID string) ([]application.Item, error) {
	models, err := a.repo.ListItemsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	items := make([]application.Item, 0, len(models))
	for _, model := range models {
		item, err := toApplicationItem(model)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (a *ItemRepository) DeleteItem(ctx context.Context, id string) error {
	return a.repo.DeleteItem(ctx, id)
}

// MaterialRepository adapts a persistence.MaterialRepository to application.MaterialRepository.
type MaterialRepository struct {
	repo persistence.MaterialRepository
}

func NewMaterialRepository(repo persistence.MaterialRepository) *MaterialRepository {
	return &MaterialRepository{repo: repo}
}

func (a *MaterialRepository) CreateMaterial(ctx context.Context, material application.Material) error {
	return a.repo.CreateMaterial(ctx, toPersistenceMaterial(material))
}

func (a *MaterialRepository) UpdateMaterial(ctx context.Context, material application.Material) error {
	return a.repo.UpdateMaterial(ctx, toPersistenceMaterial(material))
}

func (a *MaterialRepository) GetMaterial(ctx context.Context, id string) (application.Material, error) {
	model, err := a.repo.GetMaterial(ctx, id)
	if err != nil {
		return application.Material{}, err
	}
	return toApplicationMaterial(model), nil
}

func (a *MaterialRepository) ListMaterialsByEvent(ctx context.Context, eventID string) ([]application.Material, error) {
	models, err := a.repo.ListMaterialsByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	out := make([]application.Material, 0, len(models))
	for _, model := range models {
		out = append(out, toApplicationMaterial(model))
	}
	return out, nil
}

func (a *MaterialRepository) CountMaterialsByEvent(ctx context.Context, eventID string) (int, error) {
	return a.repo.CountMaterialsByEvent(ctx, eventID)
}

func (a *MaterialRepository) DeleteMaterial(ctx context.Context, id string) error {
	return a.repo.DeleteMaterial(ctx, id)
}

func toApplicationEvent(model persistence.Event) application.Event {
	contacts := make([]application.Contact, 0, len(model.EmergencyContacts))
	for _, c := range model.EmergencyContacts {
		contacts = append(contacts, application.Contact{Role: c.Role, Name: c.Name, Phone: c.Phone})
	}
	return application.Event{
		ID:                    model.ID,
		Slug:                  model.Slug,
		Title:                 model.Title,
		Date:                  model.Date,
		Venue:                 model.Venue,
		EditPassword:          model.EditPassword,
		Announcement:          cloneString(model.Announcement),
		AnnouncementUpdatedAt: cloneTime(model.AnnouncementUpdatedAt),
		Contacts:              contacts,
		CreatedAt:             model.CreatedAt,
		UpdatedAt:             model.UpdatedAt,
	}
}

func toPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		ID:                    event.ID,
		Slug:                  event.Slug,
		Title:                 event.Title,
		Date:                  event.Date,
		Venue:                 event.Venue,
		EditPassword:          event.EditPassword,
		Announcement:          cloneString(event.Announcement),
		AnnouncementUpdatedAt: cloneTime(event.AnnouncementUpdatedAt),
		EmergencyContacts:     toPersistenceContacts(event.Contacts),
		CreatedAt:             event.CreatedAt,
		UpdatedAt:             event.UpdatedAt,
	}
}

func toPersistenceContacts(contacts []application.Contact) []persistence.EmergencyContact {
	out := make([]persistence.EmergencyContact, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, persistence.EmergencyContact{Role: c.Role, Name: c.Name, Phone: c.Phone})
	}
	return out
}

func toApplicationItem(model persistence.ScheduleItem) (application.Item, error) {
	start, err := timeline.ParseTimeOfDay(model.StartTime)
	if err != nil {
		return application.Item{}, fmt.Errorf("item %s: start_time %q: %w", model.ID, model.StartTime, err)
	}
	var end *timeline.TimeOfDay
	if model.EndTime != nil && strings.TrimSpace(*model.EndTime) != "" {
		parsed, err := timeline.ParseTimeOfDay(*model.EndTime)
		if err != nil {
			return application.Item{}, fmt.Errorf("item %s: end_time %q: %w", model.ID, *model.EndTime, err)
		}
		end = &parsed
	}
	emoji := model.Emoji
	if emoji == "" {
		emoji = timeline.DefaultEmoji
	}
	return application.Item{
		ID:          model.ID,
		EventID:     model.EventID,
		Start:       start,
		End:         end,
		Title:       model.Title,
		Location:    derefString(model.Location),
		Note:        derefString(model.Note),
		Targets:     timeline.NormalizeTargets(timeline.SplitLabels(model.Target)),
		Assignees:   timeline.SplitLabels(derefString(model.Assignee)),
		Emoji:       emoji,
		SortOrder:   model.SortOrder,
		MaterialIDs: timeline.SplitLabels(derefString(model.MaterialIDs)),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}, nil
}

func toPersistenceItem(item application.Item) persistence.ScheduleItem {
	var end *string
	if item.End != nil {
		value := item.End.String()
		end = &value
	}
	return persistence.ScheduleItem{
		ID:          item.ID,
		EventID:     item.EventID,
		StartTime:   item.Start.String(),
		EndTime:     end,
		Title:       item.Title,
		Location:    optionalString(item.Location),
		Note:        optionalString(item.Note),
		Target:      timeline.JoinLabels(timeline.NormalizeTargets(item.Targets)),
		Assignee:    optionalString(timeline.JoinLabels(item.Assignees)),
		Emoji:       item.Emoji,
		SortOrder:   item.SortOrder,
		MaterialIDs: optionalString(timeline.JoinLabels(item.MaterialIDs)),
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func toApplicationMaterial(model persistence.EventMaterial) application.Material {
	return application.Material{
		ID:        model.ID,
		EventID:   model.EventID,
		Title:     model.Title,
		URL:       model.URL,
		SortOrder: model.SortOrder,
		CreatedAt: model.CreatedAt,
	}
}

func toPersistenceMaterial(material application.Material) persistence.EventMaterial {
	return persistence.EventMaterial{
		ID:        material.ID,
		EventID:   material.EventID,
		Title:     material.Title,
		URL:       material.URL,
		SortOrder: material.SortOrder,
		CreatedAt: material.CreatedAt,
	}
}

// optionalString stores blank values as NULL.
func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
