package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"torbook/internal/model"
)

const dateFormat = "2006-01-02"

// SetWeeklyHours creates or replaces the hour rule for one day of week.
func (db *DB) SetWeeklyHours(ctx context.Context, rule *model.WeeklyHourRule) error {
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO business_hours (id, business_id, day_of_week, start_time, end_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(business_id, day_of_week) DO UPDATE SET
			start_time = excluded.start_time,
			end_time = excluded.end_time`,
		rule.ID, rule.BusinessID, int(rule.DayOfWeek), rule.StartTime, rule.EndTime,
	)
	if err != nil {
		return fmt.Errorf("set weekly hours: %w", err)
	}
	return nil
}

// DeleteWeeklyHours removes the hour rule for a day of week, closing that day.
func (db *DB) DeleteWeeklyHours(ctx context.Context, businessID string, day time.Weekday) error {
	_, err := db.ExecContext(ctx,
		"DELETE FROM business_hours WHERE business_id = ? AND day_of_week = ?",
		businessID, int(day),
	)
	return err
}

// GetWeeklyHours returns all hour rules for a business.
func (db *DB) GetWeeklyHours(ctx context.Context, businessID string) ([]model.WeeklyHourRule, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, business_id, day_of_week, start_time, end_time
		FROM business_hours WHERE business_id = ? ORDER BY day_of_week`,
		businessID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WeeklyHourRule
	for rows.Next() {
		var r model.WeeklyHourRule
		var day int
		if err := rows.Scan(&r.ID, &r.BusinessID, &day, &r.StartTime, &r.EndTime); err != nil {
			return nil, err
		}
		r.DayOfWeek = time.Weekday(day)
		out = append(out, r)
	}
	return out, rows.Err()
}

// AddBreak adds a recurring break for a day of week.
func (db *DB) AddBreak(ctx context.Context, br *model.BreakRule) error {
	if br.ID == "" {
		br.ID = uuid.NewString()
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO business_breaks (id, business_id, day_of_week, start_time, end_time)
		VALUES (?, ?, ?, ?, ?)`,
		br.ID, br.BusinessID, int(br.DayOfWeek), br.StartTime, br.EndTime,
	)
	if err != nil {
		return fmt.Errorf("add break: %w", err)
	}
	return nil
}

// DeleteBreak removes a break rule.
func (db *DB) DeleteBreak(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM business_breaks WHERE id = ?", id)
	return err
}

// GetBreaks returns all break rules for a business.
func (db *DB) GetBreaks(ctx context.Context, businessID string) ([]model.BreakRule, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, business_id, day_of_week, start_time, end_time
		FROM business_breaks WHERE business_id = ? ORDER BY day_of_week, start_time`,
		businessID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BreakRule
	for rows.Next() {
		var r model.BreakRule
		var day int
		if err := rows.Scan(&r.ID, &r.BusinessID, &day, &r.StartTime, &r.EndTime); err != nil {
			return nil, err
		}
		r.DayOfWeek = time.Weekday(day)
		out = append(out, r)
	}
	return out, rows.Err()
}

// AddClosure adds a closure range. Overlapping ranges are permitted.
func (db *DB) AddClosure(ctx context.Context, c *model.ClosureRange) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.EndDate.Before(c.StartDate) {
		return fmt.Errorf("closure end date before start date")
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO business_closures (id, business_id, start_date, end_date, reason)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.BusinessID, c.StartDate.Format(dateFormat), c.EndDate.Format(dateFormat), c.Reason,
	)
	if err != nil {
		return fmt.Errorf("add closure: %w", err)
	}
	return nil
}

// DeleteClosure removes a closure range.
func (db *DB) DeleteClosure(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx, "DELETE FROM business_closures WHERE id = ?", id)
	return err
}

// GetClosures returns all closure ranges for a business.
func (db *DB) GetClosures(ctx context.Context, businessID string) ([]model.ClosureRange, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, business_id, start_date, end_date, reason
		FROM business_closures WHERE business_id = ? ORDER BY start_date`,
		businessID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ClosureRange
	for rows.Next() {
		var c model.ClosureRange
		var startStr, endStr string
		if err := rows.Scan(&c.ID, &c.BusinessID, &startStr, &endStr, &c.Reason); err != nil {
			return nil, err
		}
		if c.StartDate, err = time.Parse(dateFormat, startStr); err != nil {
			return nil, fmt.Errorf("closure %s: bad start date %q", c.ID, startStr)
		}
		if c.EndDate, err = time.Parse(dateFormat, endStr); err != nil {
			return nil, fmt.Errorf("closure %s: bad end date %q", c.ID, endStr)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
