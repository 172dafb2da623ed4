package timeline

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeOfDay is returned by ParseTimeOfDay for malformed input.
var ErrInvalidTimeOfDay = errors.New("time must be HH:MM or HH:MM:SS")

// TimeOfDay is a wall-clock time without a date, stored with second precision.
type TimeOfDay struct {
	seconds int
}

// NewTimeOfDay builds a TimeOfDay from its components. Out of range values panic.
func NewTimeOfDay(hour, minute, second int) TimeOfDay {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		panic(fmt.Sprintf("timeline: invalid time of day %02d:%02d:%02d", hour, minute, second))
	}
	return TimeOfDay{seconds: hour*3600 + minute*60 + second}
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeOfDay{}, ErrInvalidTimeOfDay
	}

	limits := []int{23, 59, 59}
	fields := make([]int, 3)
	for i, part := range parts {
		if len(part) == 0 || len(part) > 2 {
			return TimeOfDay{}, ErrInvalidTimeOfDay
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > limits[i] {
			return TimeOfDay{}, ErrInvalidTimeOfDay
		}
		fields[i] = n
	}
	return NewTimeOfDay(fields[0], fields[1], fields[2]), nil
}

// MustParseTimeOfDay is ParseTimeOfDay for literals known to be valid.
func MustParseTimeOfDay(value string) TimeOfDay {
	t, err := ParseTimeOfDay(value)
	if err != nil {
		panic(err)
	}
	return t
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return t.seconds / 3600 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return t.seconds / 60 % 60 }

// Second returns the second component.
func (t TimeOfDay) Second() int { return t.seconds % 60 }

// Minutes returns the number of whole minutes since midnight.
func (t TimeOfDay) Minutes() int { return t.seconds / 60 }

// String renders the storage form HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

// Short renders the display form HH:MM, truncating seconds.
func (t TimeOfDay) Short() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// MarshalText encodes the storage form.
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText accepts anything ParseTimeOfDay does.
func (t *TimeOfDay) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeOfDay(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Before reports whether t is earlier than other.
func (t TimeOfDay) Before(other TimeOfDay) bool { return t.seconds < other.seconds }

// On places t on the calendar date of day in loc.
func (t TimeOfDay) On(day time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = day.Location()
	}
	y, m, d := day.In(loc).Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, loc)
}

// FormatDuration renders end-start as "{h}時間{m}分". Non-positive spans yield "".
func FormatDuration(start, end TimeOfDay) string {
	minutes := end.Minutes() - start.Minutes()
	if minutes <= 0 {
		return ""
	}
	hours, rest := minutes/60, minutes%60
	switch {
	case hours > 0 && rest > 0:
		return fmt.Sprintf("%d時間%d分", hours, rest)
	case hours > 0:
		return fmt.Sprintf("%d時間", hours)
	default:
		return fmt.Sprintf("%d分", rest)
	}
}

// IsCurrent reports whether now falls within [start, end] on now's own date.
// Items without an end are never current. Ranges that cross midnight are not
// special-cased.
func IsCurrent(start TimeOfDay, end *TimeOfDay, now time.Time) bool {
	if end == nil {
		return false
	}
	loc := now.Location()
	from := start.On(now, loc)
	to := end.On(now, loc)
	return !now.Before(from) && !now.After(to)
}
