package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"torbook/internal/model"
)

// CreateService inserts a service.
func (db *DB) CreateService(ctx context.Context, s *model.Service) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.DurationMinutes <= 0 {
		return fmt.Errorf("service duration must be positive")
	}
	if s.Price < 0 {
		return fmt.Errorf("service price cannot be negative")
	}
	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO services (id, business_id, name, duration_minutes, price, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.BusinessID, s.Name, s.DurationMinutes, s.Price, s.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}
	s.CreatedAt = now
	s.UpdatedAt = now
	return nil
}

// UpdateService updates a service's fields. Existing appointments are not
// resized: their end times were snapshotted at booking time.
func (db *DB) UpdateService(ctx context.Context, s *model.Service) error {
	if s.DurationMinutes <= 0 {
		return fmt.Errorf("service duration must be positive")
	}
	if s.Price < 0 {
		return fmt.Errorf("service price cannot be negative")
	}
	_, err := db.ExecContext(ctx, `
		UPDATE services SET name = ?, duration_minutes = ?, price = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		s.Name, s.DurationMinutes, s.Price, s.IsActive, time.Now(), s.ID,
	)
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	return nil
}

// DeactivateService marks a service inactive without deleting it.
func (db *DB) DeactivateService(ctx context.Context, id string) error {
	_, err := db.ExecContext(ctx,
		"UPDATE services SET is_active = 0, updated_at = ? WHERE id = ?",
		time.Now(), id,
	)
	return err
}

// GetService returns a service by id.
func (db *DB) GetService(ctx context.Context, id string) (*model.Service, error) {
	var s model.Service
	err := db.QueryRowContext(ctx, `
		SELECT id, business_id, name, duration_minutes, price, is_active, created_at, updated_at
		FROM services WHERE id = ?`, id,
	).Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMinutes, &s.Price, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListActiveServices returns the active services of a business.
func (db *DB) ListActiveServices(ctx context.Context, businessID string) ([]model.Service, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, business_id, name, duration_minutes, price, is_active, created_at, updated_at
		FROM services WHERE business_id = ? AND is_active = 1 ORDER BY name`,
		businessID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.BusinessID, &s.Name, &s.DurationMinutes, &s.Price, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
