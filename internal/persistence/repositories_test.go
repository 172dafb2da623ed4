package persistence_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taisuke/takt/internal/persistence"
	"github.com/taisuke/takt/internal/persistence/sqlite"
	"github.com/taisuke/takt/internal/testfixtures"
)

var (
	_ persistence.EventRepository        = (*sqlite.EventRepository)(nil)
	_ persistence.ScheduleItemRepository = (*sqlite.ScheduleItemRepository)(nil)
	_ persistence.MaterialRepository     = (*sqlite.MaterialRepository)(nil)
)

func strPtr(value string) *string {
	return &value
}

func TestRepositoryContracts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	harness := testfixtures.NewSQLiteHarness(t)
	defer harness.Close()

	var (
		events    persistence.EventRepository        = harness.Store.Events
		items     persistence.ScheduleItemRepository = harness.Store.Items
		materials persistence.MaterialRepository     = harness.Store.Materials
	)

	event := testfixtures.NewEventFixture(
		testfixtures.WithEventID("event-1"),
		testfixtures.WithEventSlug("contract"),
	).Persistence()

	t.Run("event slugs are unique", func(t *testing.T) {
		if err := events.CreateEvent(ctx, event); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
		dup := event
		dup.ID = "event-2"
		if err := events.CreateEvent(ctx, dup); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
		if _, err := events.GetEventBySlug(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("items keep nullable columns", func(t *testing.T) {
		base := testfixtures.ReferenceTime()
		item := persistence.ScheduleItem{
			ID:        "item-1",
			EventID:   event.ID,
			StartTime: "09:00:00",
			Title:     "集合",
			Target:    "全員",
			Emoji:     "📌",
			CreatedAt: base,
			UpdatedAt: base,
		}
		if err := items.CreateItem(ctx, item); err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
		stored, err := items.GetItem(ctx, "item-1")
		if err != nil {
			t.Fatalf("GetItem: %v", err)
		}
		if stored.EndTime != nil || stored.Location != nil || stored.Assignee != nil || stored.MaterialIDs != nil {
			t.Fatalf("expected NULL columns to stay nil, got %+v", stored)
		}

		stored.EndTime = strPtr("09:30:00")
		stored.Assignee = strPtr("田中")
		stored.UpdatedAt = base.Add(time.Minute)
		if err := items.UpdateItem(ctx, stored); err != nil {
			t.Fatalf("UpdateItem: %v", err)
		}
		list, err := items.ListItemsByEvent(ctx, event.ID)
		if err != nil {
			t.Fatalf("ListItemsByEvent: %v", err)
		}
		if len(list) != 1 || list[0].EndTime == nil || *list[0].EndTime != "09:30:00" {
			t.Fatalf("unexpected items %+v", list)
		}
		if err := items.DeleteItem(ctx, "item-1"); err != nil {
			t.Fatalf("DeleteItem: %v", err)
		}
		if err := items.DeleteItem(ctx, "item-1"); !errors.Is(err, persistence.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("materials belong to an existing event", func(t *testing.T) {
		orphan := persistence.EventMaterial{ID: "m-x", EventID: "nope", Title: "x", URL: "https://example.com", CreatedAt: testfixtures.ReferenceTime()}
		if err := materials.CreateMaterial(ctx, orphan); !errors.Is(err, persistence.ErrForeignKeyViolation) {
			t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
		}
		count, err := materials.CountMaterialsByEvent(ctx, event.ID)
		if err != nil || count != 0 {
			t.Fatalf("expected no materials, got %d, %v", count, err)
		}
	})
}
