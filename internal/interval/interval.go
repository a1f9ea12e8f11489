// Package interval provides half-open time interval arithmetic used by
// slot generation and conflict checks.
package interval

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Interval is a half-open time range [Start, End). The end is exclusive:
// an interval ending at 10:00 does not overlap one starting at 10:00.
type Interval struct {
	Start time.Time
	End   time.Time
}

// New returns the interval [start, start+d).
func New(start time.Time, d time.Duration) Interval {
	return Interval{Start: start, End: start.Add(d)}
}

// Overlaps reports whether two half-open intervals share any instant.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// OverlapsAny reports whether the interval overlaps any of the given set.
func (iv Interval) OverlapsAny(set []Interval) bool {
	for _, other := range set {
		if iv.Overlaps(other) {
			return true
		}
	}
	return false
}

// Contains reports whether other lies entirely within the interval.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Empty reports whether the interval has no extent.
func (iv Interval) Empty() bool {
	return !iv.End.After(iv.Start)
}

// ParseClock parses an "HH:MM" business-local clock value onto the given
// date. Seconds in the input ("HH:MM:SS") are tolerated and dropped.
func ParseClock(date time.Time, clock string) (time.Time, error) {
	parts := strings.Split(clock, ":")
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("invalid time format: %s", clock)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid hour in %q", clock)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("invalid minute in %q", clock)
	}

	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location()), nil
}

// ParseClockRange parses a start/end "HH:MM" pair onto the given date.
func ParseClockRange(date time.Time, startClock, endClock string) (Interval, error) {
	start, err := ParseClock(date, startClock)
	if err != nil {
		return Interval{}, fmt.Errorf("parse start time: %w", err)
	}
	end, err := ParseClock(date, endClock)
	if err != nil {
		return Interval{}, fmt.Errorf("parse end time: %w", err)
	}
	return Interval{Start: start, End: end}, nil
}

// FormatClock formats a timestamp as "HH:MM".
func FormatClock(t time.Time) string {
	return t.Format("15:04")
}
