package testfixtures

import (
	"context"
	"testing"

	"github.com/taisuke/takt/internal/application"
	"github.com/taisuke/takt/internal/timeline"
)

func TestServiceFactoryNewServices(t *testing.T) {
	factory := NewServiceFactory()
	harness := NewSQLiteHarness(t)
	services := factory.NewServices(t, harness)

	event, err := services.Events.CreateEvent(context.Background(), application.CreateEventParams{
		Slug: "fixture", Title: "発表会", Date: "2026-10-15", Password: "secret",
	})
	if err != nil {
		t.Fatalf("CreateEvent returned error: %v", err)
	}
	if event.ID != "id-1" {
		t.Fatalf("expected generated ID id-1, got %q", event.ID)
	}
	if !event.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), event.CreatedAt)
	}

	changes, cancel := services.Hub.Subscribe("fixture")
	defer cancel()

	if _, err := services.Schedule.CreateItem(context.Background(), application.CreateItemParams{
		Slug:  "fixture",
		Input: application.ItemInput{Start: "09:00", End: "09:30", Title: "集合"},
	}); err != nil {
		t.Fatalf("CreateItem returned error: %v", err)
	}
	select {
	case msg := <-changes:
		if msg.Slug != "fixture" || msg.Topic != application.TopicSchedule {
			t.Fatalf("unexpected change message %+v", msg)
		}
	default:
		t.Fatalf("expected a change notification on the hub")
	}

	view, err := services.Views.BuildView(context.Background(), application.ViewParams{Slug: "fixture"})
	if err != nil {
		t.Fatalf("BuildView returned error: %v", err)
	}
	if !view.Groups[0].Items[0].Current {
		t.Fatalf("expected item to be current at %v", factory.Clock.Now())
	}
	factory.Clock.At("09:45")
	view, err = services.Views.BuildView(context.Background(), application.ViewParams{Slug: "fixture"})
	if err != nil {
		t.Fatalf("BuildView returned error: %v", err)
	}
	if view.Groups[0].Items[0].Current {
		t.Fatalf("expected item to have ended at %v", factory.Clock.Now())
	}
}

func TestSQLiteHarnessSeeds(t *testing.T) {
	harness := NewSQLiteHarness(t)
	event := harness.SeedEvent(t, NewEventFixture(WithEventID("event-x"), WithEventSlug("seeded")))
	harness.SeedItems(t,
		NewItemFixture(event.ID, "10:00", WithItemTargets("staff")),
		NewItemFixture(event.ID, "09:00"),
	)

	items, err := harness.Items.ListItemsByEvent(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("ListItemsByEvent: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 seeded items, got %d", len(items))
	}
	timeline.SortSlots(items)
	if items[0].Start.Short() != "09:00" || items[1].Targets[0] != "staff" {
		t.Fatalf("unexpected items %+v", items)
	}
}
