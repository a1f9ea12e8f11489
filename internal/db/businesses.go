package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"torbook/internal/model"
)

// CreateBusiness inserts a business record.
func (db *DB) CreateBusiness(ctx context.Context, b *model.Business) error {
	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO businesses (id, name, slug, requires_membership, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.Name, b.Slug, b.RequiresMembership, b.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("create business: %w", err)
	}
	b.CreatedAt = now
	b.UpdatedAt = now
	return nil
}

// UpsertBusiness inserts or updates a business by slug. Used by the seed
// config sync.
func (db *DB) UpsertBusiness(ctx context.Context, b *model.Business) error {
	now := time.Now()
	_, err := db.ExecContext(ctx, `
		INSERT INTO businesses (id, name, slug, requires_membership, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			name = excluded.name,
			requires_membership = excluded.requires_membership,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at`,
		b.ID, b.Name, b.Slug, b.RequiresMembership, b.IsActive, now, now,
	)
	if err != nil {
		return fmt.Errorf("upsert business: %w", err)
	}
	return nil
}

// GetBusiness returns a business by id.
func (db *DB) GetBusiness(ctx context.Context, id string) (*model.Business, error) {
	return db.scanBusiness(db.QueryRowContext(ctx, `
		SELECT id, name, slug, requires_membership, is_active, created_at, updated_at
		FROM businesses WHERE id = ?`, id))
}

// GetBusinessBySlug returns a business by its public slug.
func (db *DB) GetBusinessBySlug(ctx context.Context, slug string) (*model.Business, error) {
	return db.scanBusiness(db.QueryRowContext(ctx, `
		SELECT id, name, slug, requires_membership, is_active, created_at, updated_at
		FROM businesses WHERE slug = ?`, slug))
}

func (db *DB) scanBusiness(row *sql.Row) (*model.Business, error) {
	var b model.Business
	err := row.Scan(&b.ID, &b.Name, &b.Slug, &b.RequiresMembership, &b.IsActive, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListActiveBusinesses returns all active businesses.
func (db *DB) ListActiveBusinesses(ctx context.Context) ([]model.Business, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, slug, requires_membership, is_active, created_at, updated_at
		FROM businesses WHERE is_active = 1 ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Business
	for rows.Next() {
		var b model.Business
		if err := rows.Scan(&b.ID, &b.Name, &b.Slug, &b.RequiresMembership, &b.IsActive, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
