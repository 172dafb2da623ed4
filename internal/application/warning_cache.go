package application

import (
	"strings"
	"sync"
	"time"
)

// warningCache keeps recently computed assignee overlap warnings so repeated
// page loads of an unchanged timeline skip the pairwise scan.
type warningCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]warningCacheEntry
}

type warningCacheEntry struct {
	warnings  []OverlapWarning
	expiresAt time.Time
}

func newWarningCache(ttl time.Duration, maxEntries int, now func() time.Time) *warningCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &warningCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]warningCacheEntry),
	}
}

func (c *warningCache) Get(key string) ([]OverlapWarning, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneWarnings(entry.warnings), true
}

func (c *warningCache) Store(key string, warnings []OverlapWarning) {
	if c == nil {
		return
	}
	cloned := cloneWarnings(warnings)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = warningCacheEntry{warnings: cloned, expiresAt: expiry}
}

// Invalidate drops every entry belonging to eventID.
func (c *warningCache) Invalidate(eventID string) {
	if c == nil {
		return
	}
	prefix := eventID + "|"
	c.mu.Lock()
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *warningCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *warningCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneWarnings(warnings []OverlapWarning) []OverlapWarning {
	if len(warnings) == 0 {
		return nil
	}
	out := make([]OverlapWarning, len(warnings))
	copy(out, warnings)
	return out
}

// buildWarningCacheKey fingerprints the fields overlap detection reads, so any
// edit to an item produces a new key.
func buildWarningCacheKey(eventID string, items []Item) string {
	builder := strings.Builder{}
	builder.WriteString(eventID)
	builder.WriteString("|")
	for _, item := range items {
		builder.WriteString(item.ID)
		builder.WriteString("@")
		builder.WriteString(item.Start.String())
		builder.WriteString("-")
		if item.End != nil {
			builder.WriteString(item.End.String())
		}
		builder.WriteString("#")
		builder.WriteString(strings.Join(item.Assignees, ","))
		builder.WriteString("#")
		builder.WriteString(item.Title)
		builder.WriteString(";")
	}
	return builder.String()
}
