// Package slots computes bookable start times for a business day.
package slots

import (
	"fmt"
	"time"

	"torbook/internal/calendar"
	"torbook/internal/interval"
	"torbook/internal/model"
)

// ProbeInterval is the fixed step used to enumerate candidate start times.
// It is a scheduling-resolution parameter independent of service duration:
// it governs how many distinct start times are offered, not how long an
// appointment occupies the calendar.
const ProbeInterval = 15 * time.Minute

// Slot is a candidate appointment interval satisfying all availability
// constraints.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Result is the outcome of slot generation for one business day.
type Result struct {
	Slots []Slot

	// Closed is set when the business does not open that day at all,
	// either because no hour rule exists or a closure range covers it.
	Closed bool
	// Reason carries the closure reason text, or "closed" for a day
	// without an hour rule.
	Reason string

	// DurationTooLong is set when the day is open but the requested
	// duration does not fit the open window at all.
	DurationTooLong bool
}

// Generate computes the ordered candidate start times for date given the
// calendar snapshot, the service duration, and the existing appointment set.
//
// The generator is pure: it performs no I/O and depends only on its inputs,
// including the injected now. The result is produced fresh per request and
// must not be cached, since appointment state changes between calls.
func Generate(snap *calendar.Snapshot, date time.Time, duration time.Duration, appointments []model.Appointment, now time.Time) (Result, error) {
	if duration <= 0 {
		return Result{}, fmt.Errorf("duration must be positive, got %s", duration)
	}

	if closed, reason := snap.ClosedOn(date); closed {
		return Result{Closed: true, Reason: reason}, nil
	}

	window, open, err := snap.OpenWindow(date)
	if err != nil {
		return Result{}, err
	}
	if !open {
		return Result{Closed: true, Reason: "closed"}, nil
	}

	if duration > window.Duration() {
		return Result{DurationTooLong: true}, nil
	}

	breaks := snap.BreaksFor(date)
	busy := busyIntervals(snap.BusinessID, date, appointments)
	sameDay := model.DateOnly(date).Equal(model.DateOnly(now))

	var result Result
	for t := window.Start; !t.Add(duration).After(window.End); t = t.Add(ProbeInterval) {
		candidate := interval.New(t, duration)

		// No same-minute or past bookings on the current day.
		if sameDay && !t.After(now) {
			continue
		}
		if candidate.OverlapsAny(breaks) {
			continue
		}
		if candidate.OverlapsAny(busy) {
			continue
		}

		result.Slots = append(result.Slots, Slot{Start: candidate.Start, End: candidate.End})
	}

	return result, nil
}

// busyIntervals collects the occupied intervals of non-cancelled,
// non-rejected appointments for the business on the given date.
func busyIntervals(businessID string, date time.Time, appointments []model.Appointment) []interval.Interval {
	var busy []interval.Interval
	for i := range appointments {
		a := &appointments[i]
		if a.BusinessID != businessID {
			continue
		}
		if !a.Status.OccupiesCalendar() {
			continue
		}
		if !a.OnDate(date) {
			continue
		}
		busy = append(busy, interval.Interval{Start: a.StartTime, End: a.EndTime})
	}
	return busy
}

// StartTimes returns the slots as ordered "HH:MM" strings for the API
// surface.
func (r Result) StartTimes() []string {
	out := make([]string, len(r.Slots))
	for i, s := range r.Slots {
		out[i] = interval.FormatClock(s.Start)
	}
	return out
}
