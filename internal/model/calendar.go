package model

import "time"

// Business represents a bookable service business.
type Business struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	Slug               string    `json:"slug"`
	RequiresMembership bool      `json:"requires_membership"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// WeeklyHourRule defines working hours for one day of week.
// At most one active rule exists per (business, day); a day without a rule
// is closed. Times are business-local "HH:MM" strings with minute precision.
type WeeklyHourRule struct {
	ID         string       `json:"id"`
	BusinessID string       `json:"business_id"`
	DayOfWeek  time.Weekday `json:"day_of_week"` // 0 = Sunday
	StartTime  string       `json:"start_time"`  // "09:00"
	EndTime    string       `json:"end_time"`    // "18:00"
}

// BreakRule defines a recurring break within one day of week.
// A break lying partly or fully outside the day's hours is tolerated; the
// part outside the open window simply has no effect.
type BreakRule struct {
	ID         string       `json:"id"`
	BusinessID string       `json:"business_id"`
	DayOfWeek  time.Weekday `json:"day_of_week"`
	StartTime  string       `json:"start_time"`
	EndTime    string       `json:"end_time"`
}

// ClosureRange marks an inclusive date range in which the business is fully
// closed, overriding weekly hours and breaks.
type ClosureRange struct {
	ID         string    `json:"id"`
	BusinessID string    `json:"business_id"`
	StartDate  time.Time `json:"start_date"` // date only, inclusive
	EndDate    time.Time `json:"end_date"`   // date only, inclusive
	Reason     string    `json:"reason"`
}

// Covers reports whether the given date falls inside the closure range.
func (c *ClosureRange) Covers(date time.Time) bool {
	d := DateOnly(date)
	return !d.Before(DateOnly(c.StartDate)) && !d.After(DateOnly(c.EndDate))
}

// DateOnly truncates a timestamp to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
