package scheduler

import (
	"sort"

	"github.com/taisuke/takt/internal/timeline"
)

// Slot is the part of a schedule item the overlap detector needs.
type Slot struct {
	ID        string
	Title     string
	Assignees []string
	Start     timeline.TimeOfDay
	End       *timeline.TimeOfDay
}

// Conflict reports an assignee booked on two items whose time ranges overlap.
type Conflict struct {
	ItemID      string
	ItemTitle   string
	WithItemID  string
	WithTitle   string
	Assignee    string
	OverlapFrom timeline.TimeOfDay
}

// DetectConflicts returns every assignee double-booking among slots. Slots
// without an end time occupy only their start minute and never conflict.
// Each pair is reported once per shared assignee, earlier item first.
func DetectConflicts(slots []Slot) []Conflict {
	timed := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		if slot.End == nil || !slot.Start.Before(*slot.End) || len(slot.Assignees) == 0 {
			continue
		}
		timed = append(timed, slot)
	}
	sort.SliceStable(timed, func(i, j int) bool {
		if timed[i].Start != timed[j].Start {
			return timed[i].Start.Before(timed[j].Start)
		}
		return timed[i].ID < timed[j].ID
	})

	var conflicts []Conflict
	for i, a := range timed {
		for _, b := range timed[i+1:] {
			if !b.Start.Before(*a.End) {
				break
			}
			for _, name := range sharedAssignees(a.Assignees, b.Assignees) {
				conflicts = append(conflicts, Conflict{
					ItemID:      a.ID,
					ItemTitle:   a.Title,
					WithItemID:  b.ID,
					WithTitle:   b.Title,
					Assignee:    name,
					OverlapFrom: b.Start,
				})
			}
		}
	}
	return conflicts
}

func sharedAssignees(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, name := range b {
		set[name] = struct{}{}
	}
	var out []string
	for _, name := range a {
		if _, ok := set[name]; ok {
			out = append(out, name)
		}
	}
	return out
}
