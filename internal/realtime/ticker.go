package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// EveryMinute is the cron spec driving the "current item" refresh.
const EveryMinute = "* * * * *"

// Ticker sends a tick to every slug with local subscribers so open viewers
// re-evaluate which item is current.
type Ticker struct {
	cron *cron.Cron
	hub  *Hub
	now  func() time.Time
}

// NewTicker schedules ticks on spec in loc.
func NewTicker(hub *Hub, spec string, loc *time.Location, now func() time.Time) (*Ticker, error) {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	t := &Ticker{
		cron: cron.New(cron.WithLocation(loc)),
		hub:  hub,
		now:  now,
	}
	if _, err := t.cron.AddFunc(spec, func() { t.Tick() }); err != nil {
		return nil, fmt.Errorf("schedule ticker %q: %w", spec, err)
	}
	return t, nil
}

// Tick delivers one tick message per subscribed slug and returns how many
// subscribers received one.
func (t *Ticker) Tick() int {
	at := t.now()
	delivered := 0
	for _, slug := range t.hub.Slugs() {
		delivered += t.hub.Deliver(Message{Type: TypeTick, Slug: slug, At: at})
	}
	return delivered
}

// Start begins the schedule in its own goroutine.
func (t *Ticker) Start() {
	t.cron.Start()
}

// Stop halts the schedule and returns a context done once a running tick completes.
func (t *Ticker) Stop() context.Context {
	return t.cron.Stop()
}
