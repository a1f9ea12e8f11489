package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"torbook/internal/model"
)

// GetMembershipStatus returns a client's membership status with a business.
// Absence of a record means NONE.
func (db *DB) GetMembershipStatus(ctx context.Context, businessID, clientID string) (model.MembershipStatus, error) {
	var status string
	err := db.QueryRowContext(ctx,
		"SELECT status FROM memberships WHERE business_id = ? AND client_id = ?",
		businessID, clientID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return model.MembershipNone, nil
	}
	if err != nil {
		return "", err
	}
	return model.MembershipStatus(status), nil
}

// RequestMembership creates a PENDING membership record. A previously
// rejected client may re-request; an already pending or approved record is
// left untouched.
func (db *DB) RequestMembership(ctx context.Context, businessID, clientID string) (*model.Membership, error) {
	current, err := db.GetMembershipStatus(ctx, businessID, clientID)
	if err != nil {
		return nil, err
	}
	if current == model.MembershipBlocked {
		return nil, fmt.Errorf("client is blocked by this business")
	}
	if current == model.MembershipPending || current == model.MembershipApproved {
		return db.getMembership(ctx, businessID, clientID)
	}

	now := time.Now()
	m := &model.Membership{
		ID:         uuid.NewString(),
		BusinessID: businessID,
		ClientID:   clientID,
		Status:     model.MembershipPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO memberships (id, business_id, client_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(business_id, client_id) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at`,
		m.ID, m.BusinessID, m.ClientID, string(m.Status), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("request membership: %w", err)
	}
	return m, nil
}

// SetMembershipStatus updates a membership decision (approve, reject, block).
func (db *DB) SetMembershipStatus(ctx context.Context, businessID, clientID string, status model.MembershipStatus) error {
	res, err := db.ExecContext(ctx, `
		UPDATE memberships SET status = ?, updated_at = ?
		WHERE business_id = ? AND client_id = ?`,
		string(status), time.Now(), businessID, clientID,
	)
	if err != nil {
		return fmt.Errorf("set membership status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("membership not found")
	}
	return nil
}

// ListMemberships returns all membership records of a business, optionally
// filtered by status.
func (db *DB) ListMemberships(ctx context.Context, businessID string, status model.MembershipStatus) ([]model.Membership, error) {
	query := `SELECT id, business_id, client_id, status, created_at, updated_at
		FROM memberships WHERE business_id = ?`
	args := []any{businessID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Membership
	for rows.Next() {
		var m model.Membership
		var s string
		if err := rows.Scan(&m.ID, &m.BusinessID, &m.ClientID, &s, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		m.Status = model.MembershipStatus(s)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (db *DB) getMembership(ctx context.Context, businessID, clientID string) (*model.Membership, error) {
	var m model.Membership
	var s string
	err := db.QueryRowContext(ctx, `
		SELECT id, business_id, client_id, status, created_at, updated_at
		FROM memberships WHERE business_id = ? AND client_id = ?`,
		businessID, clientID,
	).Scan(&m.ID, &m.BusinessID, &m.ClientID, &s, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	m.Status = model.MembershipStatus(s)
	return &m, nil
}
