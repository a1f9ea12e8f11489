// Package calendar aggregates a business's working-hour rules, breaks and
// closure ranges into an immutable per-query snapshot.
package calendar

import (
	"context"
	"fmt"
	"time"

	"torbook/internal/interval"
	"torbook/internal/model"
)

// Snapshot is a read-only view of one business's calendar configuration.
// It is fetched once per availability query; an in-flight query completes
// against its snapshot even if the business reconfigures hours concurrently.
type Snapshot struct {
	BusinessID string                `json:"business_id"`
	Hours      []model.WeeklyHourRule `json:"hours"`
	Breaks     []model.BreakRule      `json:"breaks"`
	Closures   []model.ClosureRange   `json:"closures"`
	FetchedAt  time.Time              `json:"fetched_at"`
}

// RuleStore provides calendar rule reads.
type RuleStore interface {
	GetWeeklyHours(ctx context.Context, businessID string) ([]model.WeeklyHourRule, error)
	GetBreaks(ctx context.Context, businessID string) ([]model.BreakRule, error)
	GetClosures(ctx context.Context, businessID string) ([]model.ClosureRange, error)
}

// Loader fetches calendar snapshots.
type Loader struct {
	store RuleStore
}

// NewLoader creates a snapshot loader over the given rule store.
func NewLoader(store RuleStore) *Loader {
	return &Loader{store: store}
}

// Load fetches all calendar rules for a business as one snapshot.
func (l *Loader) Load(ctx context.Context, businessID string) (*Snapshot, error) {
	hours, err := l.store.GetWeeklyHours(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("load weekly hours: %w", err)
	}
	breaks, err := l.store.GetBreaks(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("load breaks: %w", err)
	}
	closures, err := l.store.GetClosures(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("load closures: %w", err)
	}

	return &Snapshot{
		BusinessID: businessID,
		Hours:      hours,
		Breaks:     breaks,
		Closures:   closures,
		FetchedAt:  time.Now(),
	}, nil
}

// ClosedOn reports whether the date is covered by any closure range and
// returns the reason of the first covering range. Overlapping ranges are
// permitted; any single covering range closes the whole date.
func (s *Snapshot) ClosedOn(date time.Time) (bool, string) {
	for i := range s.Closures {
		if s.Closures[i].Covers(date) {
			return true, s.Closures[i].Reason
		}
	}
	return false, ""
}

// HoursFor returns the hour rule for a day of week, or nil when the
// business is closed that day.
func (s *Snapshot) HoursFor(day time.Weekday) *model.WeeklyHourRule {
	for i := range s.Hours {
		if s.Hours[i].DayOfWeek == day {
			return &s.Hours[i]
		}
	}
	return nil
}

// BreaksFor returns the break intervals for a day of week anchored to the
// given date. Breaks that fail to parse are skipped; a break outside the
// open window is kept as-is since it simply has no effect there.
func (s *Snapshot) BreaksFor(date time.Time) []interval.Interval {
	day := date.Weekday()
	var out []interval.Interval
	for i := range s.Breaks {
		if s.Breaks[i].DayOfWeek != day {
			continue
		}
		iv, err := interval.ParseClockRange(date, s.Breaks[i].StartTime, s.Breaks[i].EndTime)
		if err != nil || iv.Empty() {
			continue
		}
		out = append(out, iv)
	}
	return out
}

// OpenWindow returns the open interval for the date, or false when no hour
// rule exists for that day of week.
func (s *Snapshot) OpenWindow(date time.Time) (interval.Interval, bool, error) {
	rule := s.HoursFor(date.Weekday())
	if rule == nil {
		return interval.Interval{}, false, nil
	}
	iv, err := interval.ParseClockRange(date, rule.StartTime, rule.EndTime)
	if err != nil {
		return interval.Interval{}, false, fmt.Errorf("hour rule for %s: %w", date.Weekday(), err)
	}
	return iv, true, nil
}
