package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taisuke/takt/internal/persistence"
	"github.com/taisuke/takt/internal/timeline"
)

// EventLookup resolves an event by slug.
type EventLookup interface {
	GetEventBySlug(ctx context.Context, slug string) (Event, error)
}

// ItemRepository captures the persistence interactions needed for schedule items.
type ItemRepository interface {
	CreateItem(ctx context.Context, item Item) error
	UpdateItem(ctx context.Context, item Item) error
	GetItem(ctx context.Context, id string) (Item, error)
	ListItemsByEvent(ctx context.Context, eventID string) ([]Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// MaterialLister lists the materials of an event.
type MaterialLister interface {
	ListMaterialsByEvent(ctx context.Context, eventID string) ([]Material, error)
}

// ScheduleService orchestrates validation and persistence for timeline items.
type ScheduleService struct {
	events      EventLookup
	items       ItemRepository
	materials   MaterialLister
	notifier    ChangeNotifier
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewScheduleService wires dependencies for schedule operations.
func NewScheduleService(events EventLookup, items ItemRepository, materials MaterialLister, notifier ChangeNotifier, idGenerator func() string, now func() time.Time) *ScheduleService {
	return NewScheduleServiceWithLogger(events, items, materials, notifier, idGenerator, now, nil)
}

// NewScheduleServiceWithLogger wires dependencies with a specified logger.
func NewScheduleServiceWithLogger(events EventLookup, items ItemRepository, materials MaterialLister, notifier ChangeNotifier, idGenerator func() string, now func() time.Time, logger *slog.Logger) *ScheduleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &ScheduleService{
		events:      events,
		items:       items,
		materials:   materials,
		notifier:    defaultNotifier(notifier),
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *ScheduleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScheduleService", operation, attrs...)
}

// CreateItem validates the input and appends an item to the event's timeline.
func (s *ScheduleService) CreateItem(ctx context.Context, params CreateItemParams) (item Item, err error) {
	if s == nil {
		err = fmt.Errorf("ScheduleService is nil")
		return
	}
	logger := s.loggerWith(ctx, "CreateItem", "slug", params.Slug)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create item", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "item created", "item_id", item.ID)
	}()

	var event Event
	event, err = s.lookupEvent(ctx, params.Slug)
	if err != nil {
		return
	}

	var fields itemFields
	fields, err = s.validateItemInput(ctx, event.ID, params.Input)
	if err != nil {
		return
	}

	emoji := strings.TrimSpace(params.Input.Emoji)
	if emoji == "" {
		emoji = timeline.DetectEmoji(fields.title)
	}

	now := s.now()
	item = fields.apply(Item{
		ID:        s.idGenerator(),
		EventID:   event.ID,
		CreatedAt: now,
	})
	item.Emoji = emoji
	item.UpdatedAt = now

	if err = s.items.CreateItem(ctx, item); err != nil {
		err = mapScheduleRepoError(err)
		item = Item{}
		return
	}
	s.notifier.NotifyChange(ctx, event.Slug, TopicSchedule)
	return
}

// UpdateItem overwrites an item. A preset glyph follows the title when the
// caller left it unchanged; custom glyphs are kept.
func (s *ScheduleService) UpdateItem(ctx context.Context, params UpdateItemParams) (item Item, err error) {
	logger := s.loggerWith(ctx, "UpdateItem", "slug", params.Slug, "item_id", params.ItemID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update item", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "item updated")
	}()

	var event Event
	event, err = s.lookupEvent(ctx, params.Slug)
	if err != nil {
		return
	}

	var existing Item
	existing, err = s.ownedItem(ctx, event.ID, params.ItemID)
	if err != nil {
		return
	}

	var fields itemFields
	fields, err = s.validateItemInput(ctx, event.ID, params.Input)
	if err != nil {
		return
	}

	emoji := strings.TrimSpace(params.Input.Emoji)
	if emoji == "" || emoji == existing.Emoji {
		emoji = timeline.SuggestEmoji(fields.title, existing.Emoji)
	}

	item = fields.apply(existing)
	item.Emoji = emoji
	item.UpdatedAt = s.now()

	if err = s.items.UpdateItem(ctx, item); err != nil {
		err = mapScheduleRepoError(err)
		item = Item{}
		return
	}
	s.notifier.NotifyChange(ctx, event.Slug, TopicSchedule)
	return
}

// DeleteItem removes an item from the event's timeline.
func (s *ScheduleService) DeleteItem(ctx context.Context, slug, itemID string) (err error) {
	logger := s.loggerWith(ctx, "DeleteItem", "slug", slug, "item_id", itemID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete item", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "item deleted")
	}()

	var event Event
	event, err = s.lookupEvent(ctx, slug)
	if err != nil {
		return
	}
	if _, err = s.ownedItem(ctx, event.ID, itemID); err != nil {
		return
	}
	if err = s.items.DeleteItem(ctx, itemID); err != nil {
		err = mapScheduleRepoError(err)
		return
	}
	s.notifier.NotifyChange(ctx, event.Slug, TopicSchedule)
	return
}

// ListItems returns the event's items in timeline order.
func (s *ScheduleService) ListItems(ctx context.Context, slug string) (Event, []Item, error) {
	event, err := s.lookupEvent(ctx, slug)
	if err != nil {
		return Event{}, nil, err
	}
	items, err := s.items.ListItemsByEvent(ctx, event.ID)
	if err != nil {
		return Event{}, nil, mapScheduleRepoError(err)
	}
	timeline.SortSlots(items)
	return event, items, nil
}

// RenameLabel renames a target or assignee label on every item carrying it.
// Items are updated one by one; failures are collected and reported through
// ErrPartialFailure while the remaining items are still attempted.
func (s *ScheduleService) RenameLabel(ctx context.Context, params RenameLabelParams) (result BulkResult, err error) {
	from := strings.TrimSpace(params.From)
	to := strings.TrimSpace(params.To)

	vErr := validateLabelKind(params.Kind)
	if from == "" {
		vErr.add("from", "変更するラベルを選択してください")
	}
	if labelErr := timeline.ValidateLabel(to); labelErr != nil {
		vErr.add("to", labelMessage(labelErr))
	}
	if params.Kind == LabelTarget && (timeline.IsEveryone(from) || timeline.IsEveryone(to)) {
		vErr.add("from", "「全員」は変更できません")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if from == to {
		return
	}

	return s.bulkRelabel(ctx, "RenameLabel", params.Slug, params.Kind, func(labels []string) ([]string, bool) {
		return timeline.RenameLabel(labels, from, to)
	}, "from", from, "to", to)
}

// RemoveLabel removes a target or assignee label from every item carrying it.
// An item left without targets reverts to the everyone sentinel.
func (s *ScheduleService) RemoveLabel(ctx context.Context, params RemoveLabelParams) (result BulkResult, err error) {
	label := strings.TrimSpace(params.Label)

	vErr := validateLabelKind(params.Kind)
	if label == "" {
		vErr.add("label", "削除するラベルを選択してください")
	}
	if params.Kind == LabelTarget && timeline.IsEveryone(label) {
		vErr.add("label", "「全員」は削除できません")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	return s.bulkRelabel(ctx, "RemoveLabel", params.Slug, params.Kind, func(labels []string) ([]string, bool) {
		return timeline.RemoveLabel(labels, label)
	}, "label", label)
}

func (s *ScheduleService) bulkRelabel(ctx context.Context, operation, slug string, kind LabelKind, change func([]string) ([]string, bool), attrs ...any) (result BulkResult, err error) {
	logger := s.loggerWith(ctx, operation, append([]any{"slug", slug, "kind", string(kind)}, attrs...)...)
	defer func() {
		logger = logger.With("attempted", result.Attempted, "succeeded", result.Succeeded)
		if err != nil {
			logger.ErrorContext(ctx, "bulk label change failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "bulk label change applied")
	}()

	var event Event
	var items []Item
	event, items, err = s.ListItems(ctx, slug)
	if err != nil {
		return
	}

	for _, item := range items {
		labels := item.Targets
		if kind == LabelAssignee {
			labels = item.Assignees
		}
		updated, changed := change(labels)
		if !changed {
			continue
		}

		if kind == LabelTarget {
			item.Targets = timeline.NormalizeTargets(updated)
		} else {
			item.Assignees = updated
		}
		item.UpdatedAt = s.now()

		result.Attempted++
		if updateErr := s.items.UpdateItem(ctx, item); updateErr != nil {
			result.Failed = append(result.Failed, BulkFailure{ItemID: item.ID, ItemTitle: item.Title, Err: mapScheduleRepoError(updateErr)})
			continue
		}
		result.Succeeded++
	}

	if result.Succeeded > 0 {
		s.notifier.NotifyChange(ctx, event.Slug, TopicSchedule)
	}
	if len(result.Failed) > 0 {
		err = fmt.Errorf("%w: %d of %d items not updated", ErrPartialFailure, len(result.Failed), result.Attempted)
	}
	return
}

func (s *ScheduleService) lookupEvent(ctx context.Context, slug string) (Event, error) {
	if s.events == nil || s.items == nil {
		return Event{}, fmt.Errorf("schedule repositories not configured")
	}
	event, err := s.events.GetEventBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return Event{}, mapScheduleRepoError(err)
	}
	return event, nil
}

func (s *ScheduleService) ownedItem(ctx context.Context, eventID, itemID string) (Item, error) {
	item, err := s.items.GetItem(ctx, strings.TrimSpace(itemID))
	if err != nil {
		return Item{}, mapScheduleRepoError(err)
	}
	if item.EventID != eventID {
		return Item{}, ErrNotFound
	}
	return item, nil
}

// itemFields is a validated ItemInput.
type itemFields struct {
	start       timeline.TimeOfDay
	end         *timeline.TimeOfDay
	title       string
	location    string
	note        string
	targets     []string
	assignees   []string
	sortOrder   int
	materialIDs []string
}

func (f itemFields) apply(item Item) Item {
	item.Start = f.start
	item.End = f.end
	item.Title = f.title
	item.Location = f.location
	item.Note = f.note
	item.Targets = f.targets
	item.Assignees = f.assignees
	item.SortOrder = f.sortOrder
	item.MaterialIDs = f.materialIDs
	return item
}

func (s *ScheduleService) validateItemInput(ctx context.Context, eventID string, input ItemInput) (itemFields, error) {
	vErr := &ValidationError{}
	fields := itemFields{
		title:     strings.TrimSpace(input.Title),
		location:  strings.TrimSpace(input.Location),
		note:      strings.TrimSpace(input.Note),
		sortOrder: input.SortOrder,
	}

	if fields.title == "" {
		vErr.add("title", "タイトルを入力してください")
	}

	start, err := timeline.ParseTimeOfDay(input.Start)
	if err != nil {
		vErr.add("start_time", "開始時刻はHH:MM形式で入力してください")
	}
	fields.start = start

	if strings.TrimSpace(input.End) != "" {
		end, err := timeline.ParseTimeOfDay(input.End)
		if err != nil {
			vErr.add("end_time", "終了時刻はHH:MM形式で入力してください")
		} else {
			fields.end = &end
		}
	}

	fields.targets = timeline.NormalizeTargets(collectLabels(input.Targets, "targets", vErr))
	fields.assignees = collectLabels(input.Assignees, "assignees", vErr)

	if vErr.HasErrors() {
		return itemFields{}, vErr
	}

	ids, err := s.existingMaterialIDs(ctx, eventID, input.MaterialIDs)
	if err != nil {
		return itemFields{}, err
	}
	fields.materialIDs = ids
	return fields, nil
}

func (s *ScheduleService) existingMaterialIDs(ctx context.Context, eventID string, ids []string) ([]string, error) {
	requested := uniqueStrings(ids)
	if len(requested) == 0 {
		return nil, nil
	}
	if s.materials == nil {
		return nil, validationFailure("material_ids", "資料が見つかりません")
	}
	materials, err := s.materials.ListMaterialsByEvent(ctx, eventID)
	if err != nil {
		return nil, mapScheduleRepoError(err)
	}
	known := make(map[string]struct{}, len(materials))
	for _, m := range materials {
		known[m.ID] = struct{}{}
	}
	for _, id := range requested {
		if _, ok := known[id]; !ok {
			return nil, validationFailure("material_ids", "資料が見つかりません")
		}
	}
	return requested, nil
}

func collectLabels(values []string, field string, vErr *ValidationError) []string {
	var labels []string
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if err := timeline.ValidateLabel(trimmed); err != nil {
			vErr.add(field, labelMessage(err))
			continue
		}
		labels = append(labels, trimmed)
	}
	return uniqueStrings(labels)
}

func labelMessage(err error) string {
	if errors.Is(err, timeline.ErrLabelDelimiter) {
		return "ラベルにカンマ（,）は使用できません"
	}
	return "ラベルを入力してください"
}

func validateLabelKind(kind LabelKind) *ValidationError {
	vErr := &ValidationError{}
	if kind != LabelTarget && kind != LabelAssignee {
		vErr.add("kind", "ラベルの種類が不正です")
	}
	return vErr
}

func uniqueStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func mapScheduleRepoError(err error) error {
	if err == nil {
		return nil
	}
	if isNotFoundError(err) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		return validationFailure("title", "タイトルを入力してください")
	}
	if errors.Is(err, persistence.ErrForeignKeyViolation) {
		return ErrNotFound
	}
	return err
}
