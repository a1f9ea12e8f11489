package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"torbook/internal/config"
	"torbook/internal/model"
)

// SyncBusinessesFromConfig applies businesses.yaml to the database. It
// upserts businesses by slug, replaces their calendar rules, upserts
// services by name, and deactivates anything that disappeared from config.
// Appointments are never touched.
func (db *DB) SyncBusinessesFromConfig(ctx context.Context, cfg *config.BusinessesConfig) error {
	if cfg == nil {
		return fmt.Errorf("businesses config is nil")
	}

	now := time.Now()
	seenSlugs := make(map[string]struct{})

	for _, bc := range cfg.Businesses {
		biz, err := db.GetBusinessBySlug(ctx, bc.Slug)
		if err != nil {
			return fmt.Errorf("load business %s: %w", bc.Slug, err)
		}
		id := uuid.NewString()
		if biz != nil {
			id = biz.ID
		}

		if err := db.UpsertBusiness(ctx, &model.Business{
			ID:                 id,
			Name:               bc.Name,
			Slug:               bc.Slug,
			RequiresMembership: bc.RequiresMembership,
			IsActive:           bc.IsActive,
		}); err != nil {
			return fmt.Errorf("sync business %s: %w", bc.Slug, err)
		}
		seenSlugs[bc.Slug] = struct{}{}

		if err := db.syncCalendarRules(ctx, id, bc); err != nil {
			return fmt.Errorf("sync calendar for %s: %w", bc.Slug, err)
		}
		if err := db.syncServices(ctx, id, bc.Services, now); err != nil {
			return fmt.Errorf("sync services for %s: %w", bc.Slug, err)
		}
	}

	// Deactivate businesses that disappeared from config.
	rows, err := db.QueryContext(ctx, `SELECT slug FROM businesses WHERE is_active = 1`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return err
		}
		if _, ok := seenSlugs[slug]; !ok {
			stale = append(stale, slug)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, slug := range stale {
		if _, err := db.ExecContext(ctx,
			`UPDATE businesses SET is_active = 0, updated_at = ? WHERE slug = ?`, now, slug,
		); err != nil {
			return fmt.Errorf("deactivate business %s: %w", slug, err)
		}
	}

	return nil
}

// syncCalendarRules replaces hours, breaks, and closures wholesale. The
// seed file is the source of truth for the calendar.
func (db *DB) syncCalendarRules(ctx context.Context, businessID string, bc config.BusinessConfig) error {
	for _, table := range []string{"business_hours", "business_breaks", "business_closures"} {
		if _, err := db.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE business_id = ?", table), businessID,
		); err != nil {
			return err
		}
	}

	for _, h := range bc.Hours {
		if err := db.SetWeeklyHours(ctx, &model.WeeklyHourRule{
			BusinessID: businessID,
			DayOfWeek:  time.Weekday(h.Day),
			StartTime:  h.Start,
			EndTime:    h.End,
		}); err != nil {
			return err
		}
	}

	for _, b := range bc.Breaks {
		if err := db.AddBreak(ctx, &model.BreakRule{
			BusinessID: businessID,
			DayOfWeek:  time.Weekday(b.Day),
			StartTime:  b.Start,
			EndTime:    b.End,
		}); err != nil {
			return err
		}
	}

	for _, cl := range bc.Closures {
		start, _ := time.Parse("2006-01-02", cl.StartDate)
		end, _ := time.Parse("2006-01-02", cl.EndDate)
		if err := db.AddClosure(ctx, &model.ClosureRange{
			BusinessID: businessID,
			StartDate:  start,
			EndDate:    end,
			Reason:     cl.Reason,
		}); err != nil {
			return err
		}
	}

	return nil
}

// syncServices upserts by name. Existing appointments keep their duration
// snapshots even when a service's duration changes here.
func (db *DB) syncServices(ctx context.Context, businessID string, services []config.ServiceConfig, now time.Time) error {
	seen := make(map[string]struct{})

	for _, sc := range services {
		var id string
		err := db.QueryRowContext(ctx,
			`SELECT id FROM services WHERE business_id = ? AND name = ?`,
			businessID, sc.Name,
		).Scan(&id)

		switch {
		case err == nil:
			_, err = db.ExecContext(ctx, `
				UPDATE services SET duration_minutes = ?, price = ?, is_active = 1, updated_at = ?
				WHERE id = ?`,
				sc.DurationMinutes, sc.Price, now, id,
			)
			if err != nil {
				return fmt.Errorf("update service %s: %w", sc.Name, err)
			}
		case err == sql.ErrNoRows:
			if err := db.CreateService(ctx, &model.Service{
				ID:              uuid.NewString(),
				BusinessID:      businessID,
				Name:            sc.Name,
				DurationMinutes: sc.DurationMinutes,
				Price:           sc.Price,
				IsActive:        true,
			}); err != nil {
				return fmt.Errorf("create service %s: %w", sc.Name, err)
			}
		default:
			return fmt.Errorf("load service %s: %w", sc.Name, err)
		}
		seen[sc.Name] = struct{}{}
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, name FROM services WHERE business_id = ? AND is_active = 1`, businessID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	type staleService struct{ id, name string }
	var stale []staleService
	for rows.Next() {
		var s staleService
		if err := rows.Scan(&s.id, &s.name); err != nil {
			return err
		}
		if _, ok := seen[s.name]; !ok {
			stale = append(stale, s)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, s := range stale {
		if err := db.DeactivateService(ctx, s.id); err != nil {
			return fmt.Errorf("deactivate service %s: %w", s.name, err)
		}
	}

	return nil
}
