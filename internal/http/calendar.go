package http

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/taisuke/takt/internal/application"
)

// buildCalendar renders the visible items of view as VEVENTs on the event
// date in loc. Items without an end become zero-length events.
func buildCalendar(view application.EventView, loc *time.Location, link string) (string, error) {
	day, err := time.ParseInLocation("2006-01-02", view.Event.Date, loc)
	if err != nil {
		return "", fmt.Errorf("event date %q: %w", view.Event.Date, err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//Takt//Run of Show//JA")
	cal.SetXWRCalName(view.Event.Title)
	cal.SetXWRTimezone(loc.String())

	for _, group := range view.Groups {
		for _, item := range group.Items {
			start := item.Start.On(day, loc)
			end := start
			if item.End != nil {
				end = item.End.On(day, loc)
			}

			event := cal.AddEvent(item.ID + "@" + view.Event.Slug + ".takt")
			event.SetDtStampTime(item.UpdatedAt)
			event.SetStartAt(start)
			event.SetEndAt(end)
			event.SetSummary(strings.TrimSpace(item.Emoji + " " + item.Title))
			location := item.Location
			if location == "" {
				location = view.Event.Venue
			}
			if location != "" {
				event.SetLocation(location)
			}
			if description := itemDescription(item); description != "" {
				event.SetDescription(description)
			}
			if link != "" {
				event.SetURL(link)
			}
		}
	}
	return cal.Serialize(), nil
}

func itemDescription(item application.ItemView) string {
	var lines []string
	if len(item.Targets) > 0 {
		lines = append(lines, "対象: "+strings.Join(item.Targets, ", "))
	}
	if len(item.Assignees) > 0 {
		lines = append(lines, "担当: "+strings.Join(item.Assignees, ", "))
	}
	if item.Note != "" {
		lines = append(lines, item.Note)
	}
	for _, m := range item.LinkedMaterial {
		lines = append(lines, m.Title+": "+m.URL)
	}
	return strings.Join(lines, "\n")
}
