package testfixtures

import (
	"strconv"
	"sync"
	"time"

	"github.com/taisuke/takt/internal/timeline"
)

// Clock is a manually driven time source. Tests move it across the event day
// to exercise the current-item highlight and token expiry.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// NowFunc is Now in the shape services take. A nil clock yields time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Advance moves the clock forward by d and returns the new instant.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

// At moves the clock to clock time value ("HH:MM") on its current day,
// keeping the zone.
func (c *Clock) At(value string) time.Time {
	tod := timeline.MustParseTimeOfDay(value)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = tod.On(c.now, c.now.Location())
	return c.now
}

// IDGenerator yields "<prefix>-1", "<prefix>-2", ... and is safe for use from
// concurrent handlers.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.prefix + "-" + strconv.Itoa(g.next)
}

// NextFunc is Next in the shape services take.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Issued reports how many identifiers have been handed out.
func (g *IDGenerator) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}
