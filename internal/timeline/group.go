package timeline

import "sort"

// Slot is the ordering view of a schedule item.
type Slot interface {
	SlotID() string
	SlotStart() TimeOfDay
	SlotOrder() int
}

// Tagged exposes the label sets of a schedule item.
type Tagged interface {
	TargetLabels() []string
	AssigneeLabels() []string
}

// Group is a bucket of items sharing the same minute-resolution start time.
type Group[S Slot] struct {
	Start string
	Items []S
}

// SortSlots orders items by start time, then sort order, then id.
func SortSlots[S Slot](items []S) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.SlotStart() != b.SlotStart() {
			return a.SlotStart().Before(b.SlotStart())
		}
		if a.SlotOrder() != b.SlotOrder() {
			return a.SlotOrder() < b.SlotOrder()
		}
		return a.SlotID() < b.SlotID()
	})
}

// GroupByStart sorts items and buckets them by HH:MM start. Bucket order follows
// the sorted order, and items inside a bucket keep their sort-order ranking.
func GroupByStart[S Slot](items []S) []Group[S] {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]S, len(items))
	copy(sorted, items)
	SortSlots(sorted)

	var groups []Group[S]
	index := make(map[string]int)
	for _, item := range sorted {
		key := item.SlotStart().Short()
		i, ok := index[key]
		if !ok {
			index[key] = len(groups)
			groups = append(groups, Group[S]{Start: key})
			i = len(groups) - 1
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

// CollectLabels returns the distinct concrete targets and assignees across
// items in first-seen order. The sentinel target is omitted.
func CollectLabels[T Tagged](items []T) (targets, assignees []string) {
	seenTargets := map[string]struct{}{}
	seenAssignees := map[string]struct{}{}
	for _, item := range items {
		for _, label := range item.TargetLabels() {
			if IsEveryone(label) {
				continue
			}
			if _, ok := seenTargets[label]; ok {
				continue
			}
			seenTargets[label] = struct{}{}
			targets = append(targets, label)
		}
		for _, label := range item.AssigneeLabels() {
			if _, ok := seenAssignees[label]; ok {
				continue
			}
			seenAssignees[label] = struct{}{}
			assignees = append(assignees, label)
		}
	}
	return targets, assignees
}

// LinkedMaterials returns the materials referenced by ids, in ids order. Ids that
// no longer exist are skipped.
func LinkedMaterials[M any](ids []string, materials []M, idOf func(M) string) []M {
	if len(ids) == 0 || len(materials) == 0 {
		return nil
	}
	byID := make(map[string]M, len(materials))
	for _, m := range materials {
		byID[idOf(m)] = m
	}
	var out []M
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if m, ok := byID[id]; ok {
			out = append(out, m)
		}
	}
	return out
}
