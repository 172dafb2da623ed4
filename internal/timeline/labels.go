package timeline

import (
	"errors"
	"strings"
)

const (
	// Everyone is the sentinel target label meaning "visible to every audience".
	Everyone = "全員"
	// EveryoneAlias is the legacy spelling of Everyone. Both are accepted on read.
	EveryoneAlias = "all"

	labelDelimiter = ","
)

var (
	// ErrEmptyLabel is returned when a label is blank after trimming.
	ErrEmptyLabel = errors.New("label is required")
	// ErrLabelDelimiter is returned when a label contains the list delimiter.
	ErrLabelDelimiter = errors.New("label must not contain a comma")
)

// IsEveryone reports whether label is one of the "everyone" sentinel spellings.
func IsEveryone(label string) bool {
	trimmed := strings.TrimSpace(label)
	return trimmed == Everyone || strings.EqualFold(trimmed, EveryoneAlias)
}

// ContainsEveryone reports whether any label in the set is the sentinel.
func ContainsEveryone(labels []string) bool {
	for _, label := range labels {
		if IsEveryone(label) {
			return true
		}
	}
	return false
}

// ValidateLabel rejects labels that cannot round-trip through the comma-joined
// storage encoding.
func ValidateLabel(label string) error {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return ErrEmptyLabel
	}
	if strings.Contains(trimmed, labelDelimiter) {
		return ErrLabelDelimiter
	}
	return nil
}

// SplitLabels decodes a comma-joined label field. Labels are trimmed, blanks are
// dropped and duplicates keep their first position.
func SplitLabels(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return uniqueLabels(strings.Split(value, labelDelimiter))
}

// JoinLabels encodes a label set for storage.
func JoinLabels(labels []string) string {
	return strings.Join(uniqueLabels(labels), labelDelimiter)
}

// NormalizeTargets returns the target set as stored: trimmed, deduplicated and
// reverted to the sentinel when empty. Concrete labels win over the sentinel,
// the same way selecting a tag replaces it in ToggleTarget.
func NormalizeTargets(labels []string) []string {
	cleaned := uniqueLabels(labels)
	if len(cleaned) == 0 {
		return []string{Everyone}
	}
	concrete := make([]string, 0, len(cleaned))
	sentinel := ""
	for _, label := range cleaned {
		if IsEveryone(label) {
			if sentinel == "" {
				sentinel = label
			}
			continue
		}
		concrete = append(concrete, label)
	}
	if len(concrete) == 0 {
		return []string{sentinel}
	}
	return concrete
}

// ToggleTarget flips tag in the target set.
//
// Selecting the sentinel clears every other tag. Selecting a concrete tag while
// the sentinel is active replaces the sentinel. Removing the last concrete tag
// reverts to the sentinel.
func ToggleTarget(current []string, tag string) []string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return cloneLabels(current)
	}
	if IsEveryone(tag) {
		return []string{Everyone}
	}

	concrete := make([]string, 0, len(current)+1)
	found := false
	for _, label := range uniqueLabels(current) {
		if IsEveryone(label) {
			continue
		}
		if label == tag {
			found = true
			continue
		}
		concrete = append(concrete, label)
	}
	if !found {
		concrete = append(concrete, tag)
	}
	if len(concrete) == 0 {
		return []string{Everyone}
	}
	return concrete
}

// ToggleAssignee flips name in the assignee set. Assignees have no sentinel.
func ToggleAssignee(current []string, name string) []string {
	name = strings.TrimSpace(name)
	if name == "" {
		return cloneLabels(current)
	}
	out := make([]string, 0, len(current)+1)
	found := false
	for _, label := range uniqueLabels(current) {
		if label == name {
			found = true
			continue
		}
		out = append(out, label)
	}
	if !found {
		out = append(out, name)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// RenameLabel replaces from with to, keeping the position of the renamed label
// and the order of the rest. The boolean reports whether the set changed.
func RenameLabel(labels []string, from, to string) ([]string, bool) {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" || to == "" || from == to {
		return cloneLabels(labels), false
	}

	out := make([]string, 0, len(labels))
	changed := false
	for _, label := range labels {
		if label == from {
			label = to
			changed = true
		}
		out = append(out, label)
	}
	if !changed {
		return cloneLabels(labels), false
	}
	return uniqueLabels(out), true
}

// RemoveLabel drops label from the set. The boolean reports whether the set changed.
func RemoveLabel(labels []string, label string) ([]string, bool) {
	label = strings.TrimSpace(label)
	out := make([]string, 0, len(labels))
	changed := false
	for _, existing := range labels {
		if existing == label {
			changed = true
			continue
		}
		out = append(out, existing)
	}
	if len(out) == 0 {
		out = nil
	}
	return out, changed
}

func uniqueLabels(labels []string) []string {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		out = append(out, label)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cloneLabels(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	out := make([]string, len(labels))
	copy(out, labels)
	return out
}
