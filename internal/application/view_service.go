package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/taisuke/takt/internal/scheduler"
	"github.com/taisuke/takt/internal/timeline"
)

// ItemLister lists the items of an event.
type ItemLister interface {
	ListItemsByEvent(ctx context.Context, eventID string) ([]Item, error)
}

// ViewService assembles the read model shared by the viewer, editor, print
// page and JSON API.
type ViewService struct {
	events    EventLookup
	items     ItemLister
	materials MaterialLister
	location  *time.Location
	now       func() time.Time
	warnings  *warningCache
	logger    *slog.Logger
}

// NewViewService constructs a ViewService. loc is the zone in which the
// "current" highlight is evaluated.
func NewViewService(events EventLookup, items ItemLister, materials MaterialLister, loc *time.Location, now func() time.Time) *ViewService {
	return NewViewServiceWithLogger(events, items, materials, loc, now, nil)
}

// NewViewServiceWithLogger constructs a ViewService with a specified logger.
func NewViewServiceWithLogger(events EventLookup, items ItemLister, materials MaterialLister, loc *time.Location, now func() time.Time, logger *slog.Logger) *ViewService {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &ViewService{
		events:    events,
		items:     items,
		materials: materials,
		location:  loc,
		now:       now,
		warnings:  newWarningCache(time.Minute, 256, now),
		logger:    defaultLogger(logger),
	}
}

// Location returns the zone used for time-dependent derivations.
func (s *ViewService) Location() *time.Location {
	return s.location
}

// BuildView loads an event with its items and materials, applies the filter
// and derives everything the pages render.
func (s *ViewService) BuildView(ctx context.Context, params ViewParams) (view EventView, err error) {
	if s == nil || s.events == nil || s.items == nil || s.materials == nil {
		err = fmt.Errorf("ViewService is not configured")
		return
	}
	filter := normalizeFilter(params.Filter)
	logger := serviceLogger(ctx, s.logger, "ViewService", "BuildView", "slug", params.Slug, "filter", strings.Join(filter, ","))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to build view", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "view built", "shown", view.ShownItems, "total", view.TotalItems)
	}()

	var event Event
	event, err = s.events.GetEventBySlug(ctx, strings.TrimSpace(params.Slug))
	if err != nil {
		err = mapScheduleRepoError(err)
		return
	}

	var items []Item
	items, err = s.items.ListItemsByEvent(ctx, event.ID)
	if err != nil {
		err = mapScheduleRepoError(err)
		return
	}
	timeline.SortSlots(items)

	var materials []Material
	materials, err = s.materials.ListMaterialsByEvent(ctx, event.ID)
	if err != nil {
		err = mapScheduleRepoError(err)
		return
	}
	materialViews := make([]MaterialView, 0, len(materials))
	for _, m := range materials {
		materialViews = append(materialViews, toMaterialView(m))
	}

	now := s.now().In(s.location)
	visible := make([]Item, 0, len(items))
	for _, item := range items {
		if timeline.Visible(item.Targets, item.Assignees, filter) {
			visible = append(visible, item)
		}
	}

	groups := timeline.GroupByStart(visible)
	viewGroups := make([]ViewGroup, 0, len(groups))
	for _, group := range groups {
		vg := ViewGroup{Start: group.Start, Items: make([]ItemView, 0, len(group.Items))}
		for _, item := range group.Items {
			vg.Items = append(vg.Items, buildItemView(item, materialViews, filter, now))
		}
		viewGroups = append(viewGroups, vg)
	}

	targets, assignees := timeline.CollectLabels(items)

	view = EventView{
		Event:       event,
		Filter:      filter,
		Groups:      viewGroups,
		Items:       items,
		Materials:   materialViews,
		Targets:     labelViews(targets, filter),
		Assignees:   labelViews(assignees, filter),
		Warnings:    s.overlapWarnings(event.ID, items),
		TotalItems:  len(items),
		ShownItems:  len(visible),
		GeneratedAt: now,
	}
	return
}

func (s *ViewService) overlapWarnings(eventID string, items []Item) []OverlapWarning {
	key := buildWarningCacheKey(eventID, items)
	if cached, ok := s.warnings.Get(key); ok {
		return cached
	}

	slots := make([]scheduler.Slot, 0, len(items))
	for _, item := range items {
		slots = append(slots, scheduler.Slot{
			ID:        item.ID,
			Title:     item.Title,
			Assignees: item.Assignees,
			Start:     item.Start,
			End:       item.End,
		})
	}

	var warnings []OverlapWarning
	for _, c := range scheduler.DetectConflicts(slots) {
		warnings = append(warnings, OverlapWarning{
			ItemID:     c.ItemID,
			ItemTitle:  c.ItemTitle,
			WithItemID: c.WithItemID,
			WithTitle:  c.WithTitle,
			Assignee:   c.Assignee,
			From:       c.OverlapFrom.Short(),
		})
	}

	s.warnings.Invalidate(eventID)
	s.warnings.Store(key, warnings)
	return warnings
}

func buildItemView(item Item, materials []MaterialView, filter []string, now time.Time) ItemView {
	linked := timeline.LinkedMaterials(item.MaterialIDs, materials, func(m MaterialView) string { return m.ID })
	view := ItemView{
		Item:           item,
		StartText:      item.Start.Short(),
		Current:        timeline.IsCurrent(item.Start, item.End, now),
		TargetChips:    labelViews(item.Targets, filter),
		AssigneeChips:  labelViews(item.Assignees, filter),
		LinkedMaterial: linked,
	}
	if item.End != nil {
		view.EndText = item.End.Short()
		view.Duration = timeline.FormatDuration(item.Start, *item.End)
	}
	return view
}

func toMaterialView(m Material) MaterialView {
	kind := timeline.ClassifyMaterial(m.URL)
	return MaterialView{
		Material:  m,
		Kind:      kind,
		Icon:      kind.Icon(),
		KindLabel: kind.Label(),
	}
}

func labelViews(labels []string, filter []string) []LabelView {
	if len(labels) == 0 {
		return nil
	}
	active := make(map[string]struct{}, len(filter))
	for _, f := range filter {
		active[f] = struct{}{}
	}
	out := make([]LabelView, 0, len(labels))
	for _, label := range labels {
		name := label
		if timeline.IsEveryone(label) {
			name = timeline.Everyone
		}
		_, on := active[label]
		out = append(out, LabelView{Name: name, Color: timeline.TagColor(label), Active: on})
	}
	return out
}

func normalizeFilter(filter []string) []string {
	return uniqueStrings(filter)
}
