package scheduler

import (
	"testing"

	"github.com/taisuke/takt/internal/timeline"
)

func tod(value string) timeline.TimeOfDay {
	return timeline.MustParseTimeOfDay(value)
}

func ptr(t timeline.TimeOfDay) *timeline.TimeOfDay {
	return &t
}

func TestDetectConflicts(t *testing.T) {
	t.Run("assignee overlap produces conflict", func(t *testing.T) {
		slots := []Slot{
			{ID: "b", Title: "搬入", Assignees: []string{"田中", "佐藤"}, Start: tod("10:30"), End: ptr(tod("11:30"))},
			{ID: "a", Title: "リハーサル", Assignees: []string{"田中"}, Start: tod("10:00"), End: ptr(tod("11:00"))},
		}

		conflicts := DetectConflicts(slots)
		if len(conflicts) != 1 {
			t.Fatalf("expected 1 conflict, got %d: %+v", len(conflicts), conflicts)
		}
		got := conflicts[0]
		if got.ItemID != "a" || got.WithItemID != "b" || got.Assignee != "田中" {
			t.Fatalf("unexpected conflict %+v", got)
		}
		if got.OverlapFrom.Short() != "10:30" {
			t.Fatalf("expected overlap from 10:30, got %s", got.OverlapFrom.Short())
		}
	})

	t.Run("back to back items do not conflict", func(t *testing.T) {
		slots := []Slot{
			{ID: "a", Assignees: []string{"田中"}, Start: tod("10:00"), End: ptr(tod("11:00"))},
			{ID: "b", Assignees: []string{"田中"}, Start: tod("11:00"), End: ptr(tod("12:00"))},
		}
		if conflicts := DetectConflicts(slots); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})

	t.Run("items without end time are ignored", func(t *testing.T) {
		slots := []Slot{
			{ID: "a", Assignees: []string{"田中"}, Start: tod("10:00")},
			{ID: "b", Assignees: []string{"田中"}, Start: tod("10:00"), End: ptr(tod("12:00"))},
		}
		if conflicts := DetectConflicts(slots); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})

	t.Run("different assignees never conflict", func(t *testing.T) {
		slots := []Slot{
			{ID: "a", Assignees: []string{"田中"}, Start: tod("10:00"), End: ptr(tod("12:00"))},
			{ID: "b", Assignees: []string{"佐藤"}, Start: tod("10:30"), End: ptr(tod("11:00"))},
		}
		if conflicts := DetectConflicts(slots); len(conflicts) != 0 {
			t.Fatalf("expected no conflicts, got %+v", conflicts)
		}
	})
}
