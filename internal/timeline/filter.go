package timeline

import (
	"net/url"
	"strings"
)

// Visible reports whether an item with the given targets and assignees is shown
// for the requested filter. An empty filter shows everything, the sentinel target
// shows the item under every filter, otherwise any overlap between the filter and
// the item's labels is enough.
func Visible(targets, assignees, filter []string) bool {
	active := uniqueLabels(filter)
	if len(active) == 0 {
		return true
	}
	if ContainsEveryone(targets) {
		return true
	}

	wanted := make(map[string]struct{}, len(active))
	for _, value := range active {
		wanted[value] = struct{}{}
	}
	for _, label := range targets {
		if _, ok := wanted[strings.TrimSpace(label)]; ok {
			return true
		}
	}
	for _, label := range assignees {
		if _, ok := wanted[strings.TrimSpace(label)]; ok {
			return true
		}
	}
	return false
}

// ParseFilter decodes the `t` query parameter into a filter set.
func ParseFilter(values url.Values) []string {
	if values == nil {
		return nil
	}
	var labels []string
	for _, raw := range values["t"] {
		labels = append(labels, SplitLabels(raw)...)
	}
	return uniqueLabels(labels)
}

// FilterQuery encodes a filter set as the query string used by share links.
// An empty filter yields an empty string.
func FilterQuery(filter []string) string {
	joined := JoinLabels(filter)
	if joined == "" {
		return ""
	}
	return url.Values{"t": []string{joined}}.Encode()
}
