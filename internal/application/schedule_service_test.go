package application

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/taisuke/takt/internal/timeline"
)

type scheduleHarness struct {
	svc       *ScheduleService
	items     *itemRepoStub
	materials *materialRepoStub
	notifier  *recordingNotifier
}

func newScheduleHarness(items ...Item) scheduleHarness {
	h := scheduleHarness{
		items:     newItemRepoStub(items...),
		materials: newMaterialRepoStub(Material{ID: "m1", EventID: "event-1", Title: "楽譜", URL: "https://example.com/score.pdf", SortOrder: 1}),
		notifier:  &recordingNotifier{},
	}
	h.svc = NewScheduleService(newEventRepoStub(testEvent), h.items, h.materials, h.notifier, sequentialIDs("item"), fixedNow())
	return h
}

func seedItem(id, start string, targets, assignees []string) Item {
	return Item{
		ID:        id,
		EventID:   "event-1",
		Start:     timeline.MustParseTimeOfDay(start),
		Title:     id,
		Targets:   targets,
		Assignees: assignees,
		Emoji:     timeline.DefaultEmoji,
	}
}

func TestScheduleService_CreateItem(t *testing.T) {
	t.Parallel()

	t.Run("defaults targets and detects emoji", func(t *testing.T) {
		h := newScheduleHarness()
		item, err := h.svc.CreateItem(context.Background(), CreateItemParams{
			Slug: "test-1",
			Input: ItemInput{
				Start:       "13:00",
				End:         "14:30",
				Title:       "リハーサル",
				Assignees:   []string{" 田中 ", "田中"},
				MaterialIDs: []string{"m1", "m1"},
			},
		})
		if err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
		if !reflect.DeepEqual(item.Targets, []string{timeline.Everyone}) {
			t.Fatalf("expected sentinel target, got %v", item.Targets)
		}
		if !reflect.DeepEqual(item.Assignees, []string{"田中"}) {
			t.Fatalf("unexpected assignees %v", item.Assignees)
		}
		if item.Emoji != "🎻" {
			t.Fatalf("expected rehearsal glyph, got %s", item.Emoji)
		}
		if item.End == nil || item.End.Short() != "14:30" {
			t.Fatalf("unexpected end %v", item.End)
		}
		if !reflect.DeepEqual(item.MaterialIDs, []string{"m1"}) {
			t.Fatalf("unexpected material ids %v", item.MaterialIDs)
		}
		if h.notifier.count() != 1 {
			t.Fatalf("expected one notification")
		}
	})

	t.Run("concrete targets replace the sentinel", func(t *testing.T) {
		h := newScheduleHarness()
		item, err := h.svc.CreateItem(context.Background(), CreateItemParams{
			Slug:  "test-1",
			Input: ItemInput{Start: "09:00", Title: "集合", Targets: []string{timeline.Everyone, "brass"}},
		})
		if err != nil {
			t.Fatalf("CreateItem: %v", err)
		}
		if !reflect.DeepEqual(item.Targets, []string{"brass"}) {
			t.Fatalf("expected brass only, got %v", item.Targets)
		}
	})

	t.Run("validates fields", func(t *testing.T) {
		h := newScheduleHarness()
		_, err := h.svc.CreateItem(context.Background(), CreateItemParams{
			Slug:  "test-1",
			Input: ItemInput{Start: "25:00", End: "x", Targets: []string{"a,b"}},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		for _, field := range []string{"title", "start_time", "end_time", "targets"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Errorf("expected %s error, got %v", field, vErr.FieldErrors)
			}
		}
		if h.notifier.count() != 0 {
			t.Fatalf("failed writes must not notify")
		}
	})

	t.Run("rejects materials from elsewhere", func(t *testing.T) {
		h := newScheduleHarness()
		_, err := h.svc.CreateItem(context.Background(), CreateItemParams{
			Slug:  "test-1",
			Input: ItemInput{Start: "09:00", Title: "集合", MaterialIDs: []string{"unknown"}},
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["material_ids"] == "" {
			t.Fatalf("expected material validation error, got %v", err)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		h := newScheduleHarness()
		_, err := h.svc.CreateItem(context.Background(), CreateItemParams{Slug: "nope", Input: ItemInput{Start: "09:00", Title: "x"}})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestScheduleService_UpdateItemEmoji(t *testing.T) {
	t.Parallel()

	preset := seedItem("a", "12:00", []string{timeline.Everyone}, nil)
	preset.Title = "リハーサル"
	preset.Emoji = "🎻"
	custom := seedItem("b", "12:00", []string{timeline.Everyone}, nil)
	custom.Emoji = "🦄"
	h := newScheduleHarness(preset, custom)

	updated, err := h.svc.UpdateItem(context.Background(), UpdateItemParams{
		Slug: "test-1", ItemID: "a",
		Input: ItemInput{Start: "12:00", Title: "昼食", Emoji: "🎻"},
	})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if updated.Emoji != "🍱" {
		t.Fatalf("expected preset glyph to follow title, got %s", updated.Emoji)
	}

	updated, err = h.svc.UpdateItem(context.Background(), UpdateItemParams{
		Slug: "test-1", ItemID: "b",
		Input: ItemInput{Start: "12:00", Title: "昼食", Emoji: "🦄"},
	})
	if err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}
	if updated.Emoji != "🦄" {
		t.Fatalf("expected custom glyph to be kept, got %s", updated.Emoji)
	}

	if _, err := h.svc.UpdateItem(context.Background(), UpdateItemParams{Slug: "test-1", ItemID: "missing", Input: ItemInput{Start: "12:00", Title: "x"}}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScheduleService_DeleteItem(t *testing.T) {
	t.Parallel()

	foreign := seedItem("other", "09:00", nil, nil)
	foreign.EventID = "event-2"
	h := newScheduleHarness(seedItem("a", "09:00", nil, nil), foreign)

	if err := h.svc.DeleteItem(context.Background(), "test-1", "other"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for item of another event, got %v", err)
	}
	if err := h.svc.DeleteItem(context.Background(), "test-1", "a"); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}
	_, items, err := h.svc.ListItems(context.Background(), "test-1")
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected no items, got %d", len(items))
	}
}

func TestScheduleService_RenameLabel(t *testing.T) {
	t.Parallel()

	t.Run("renames everywhere", func(t *testing.T) {
		h := newScheduleHarness(
			seedItem("a", "09:00", []string{"金管", "スタッフ"}, nil),
			seedItem("b", "10:00", []string{"スタッフ"}, nil),
			seedItem("c", "11:00", []string{timeline.Everyone}, nil),
		)
		result, err := h.svc.RenameLabel(context.Background(), RenameLabelParams{Slug: "test-1", Kind: LabelTarget, From: "スタッフ", To: "運営"})
		if err != nil {
			t.Fatalf("RenameLabel: %v", err)
		}
		if result.Attempted != 2 || result.Succeeded != 2 {
			t.Fatalf("unexpected result %+v", result)
		}
		a, _ := h.items.GetItem(context.Background(), "a")
		if !reflect.DeepEqual(a.Targets, []string{"金管", "運営"}) {
			t.Fatalf("unexpected targets %v", a.Targets)
		}
		if h.notifier.count() != 1 {
			t.Fatalf("expected a single notification for the bulk change")
		}
	})

	t.Run("renaming to itself touches nothing", func(t *testing.T) {
		h := newScheduleHarness(seedItem("a", "09:00", []string{"A", "B"}, nil))
		result, err := h.svc.RenameLabel(context.Background(), RenameLabelParams{Slug: "test-1", Kind: LabelTarget, From: "A", To: "A"})
		if err != nil || result.Attempted != 0 {
			t.Fatalf("expected no-op, got %+v, %v", result, err)
		}
		a, _ := h.items.GetItem(context.Background(), "a")
		if !reflect.DeepEqual(a.Targets, []string{"A", "B"}) || len(h.items.updateLog) != 0 {
			t.Fatalf("expected untouched item, got %v", a.Targets)
		}
	})

	t.Run("reports partial failure and continues", func(t *testing.T) {
		h := newScheduleHarness(
			seedItem("a", "09:00", nil, []string{"田中"}),
			seedItem("b", "10:00", nil, []string{"田中"}),
			seedItem("c", "11:00", nil, []string{"田中"}),
		)
		h.items.failOn["b"] = errors.New("database locked")

		result, err := h.svc.RenameLabel(context.Background(), RenameLabelParams{Slug: "test-1", Kind: LabelAssignee, From: "田中", To: "田中太郎"})
		if !errors.Is(err, ErrPartialFailure) {
			t.Fatalf("expected ErrPartialFailure, got %v", err)
		}
		if result.Attempted != 3 || result.Succeeded != 2 || len(result.Failed) != 1 || result.Failed[0].ItemID != "b" {
			t.Fatalf("unexpected result %+v", result)
		}
		c, _ := h.items.GetItem(context.Background(), "c")
		if !reflect.DeepEqual(c.Assignees, []string{"田中太郎"}) {
			t.Fatalf("expected later items to be updated, got %v", c.Assignees)
		}
	})

	t.Run("rejects invalid names", func(t *testing.T) {
		h := newScheduleHarness()
		for _, params := range []RenameLabelParams{
			{Slug: "test-1", Kind: LabelTarget, From: "A", To: "B,C"},
			{Slug: "test-1", Kind: LabelTarget, From: timeline.Everyone, To: "B"},
			{Slug: "test-1", Kind: "other", From: "A", To: "B"},
			{Slug: "test-1", Kind: LabelTarget, From: "", To: "B"},
		} {
			var vErr *ValidationError
			if _, err := h.svc.RenameLabel(context.Background(), params); !errors.As(err, &vErr) {
				t.Errorf("expected validation error for %+v, got %v", params, err)
			}
		}
	})
}

func TestScheduleService_RemoveLabel(t *testing.T) {
	t.Parallel()

	h := newScheduleHarness(
		seedItem("a", "09:00", []string{"金管"}, nil),
		seedItem("b", "10:00", []string{"金管", "打楽器"}, nil),
	)
	result, err := h.svc.RemoveLabel(context.Background(), RemoveLabelParams{Slug: "test-1", Kind: LabelTarget, Label: "金管"})
	if err != nil {
		t.Fatalf("RemoveLabel: %v", err)
	}
	if result.Succeeded != 2 {
		t.Fatalf("unexpected result %+v", result)
	}
	a, _ := h.items.GetItem(context.Background(), "a")
	if !reflect.DeepEqual(a.Targets, []string{timeline.Everyone}) {
		t.Fatalf("expected emptied targets to revert to sentinel, got %v", a.Targets)
	}
	b, _ := h.items.GetItem(context.Background(), "b")
	if !reflect.DeepEqual(b.Targets, []string{"打楽器"}) {
		t.Fatalf("unexpected targets %v", b.Targets)
	}
}
