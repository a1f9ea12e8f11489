package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"torbook/internal/model"
)

// ErrSlotTaken is returned when the proposed interval overlaps an existing
// occupying appointment at write time.
var ErrSlotTaken = errors.New("slot already taken")

// CreateAppointmentIfFree inserts the appointment only if its interval does
// not overlap any non-cancelled, non-rejected appointment of the same
// business. The conflict check and the insert run inside one transaction so
// that a concurrent commit cannot pass the check against a stale read.
func (db *DB) CreateAppointmentIfFree(ctx context.Context, a *model.Appointment) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	taken, err := overlapExists(ctx, tx, a.BusinessID, a.StartTime, a.EndTime, "")
	if err != nil {
		return fmt.Errorf("conflict check: %w", err)
	}
	if taken {
		return ErrSlotTaken
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO appointments (
			id, business_id, service_id, client_id, guest_name, guest_phone,
			start_time, end_time, status, client_notes, staff_notes, media_refs,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.BusinessID, a.ServiceID, nullable(a.ClientID), nullable(a.GuestName), nullable(a.GuestPhone),
		a.StartTime, a.EndTime, string(a.Status), a.ClientNotes, a.StaffNotes, encodeMediaRefs(a.MediaRefs),
		now, now,
	)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	return nil
}

// RescheduleAppointmentIfFree moves an appointment to a new interval,
// excluding the appointment's own prior interval from the conflict check.
// Status is unchanged by a reschedule.
func (db *DB) RescheduleAppointmentIfFree(ctx context.Context, id string, start, end time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var businessID string
	err = tx.QueryRowContext(ctx,
		"SELECT business_id FROM appointments WHERE id = ?", id,
	).Scan(&businessID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("appointment %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("load appointment: %w", err)
	}

	taken, err := overlapExists(ctx, tx, businessID, start, end, id)
	if err != nil {
		return fmt.Errorf("conflict check: %w", err)
	}
	if taken {
		return ErrSlotTaken
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE appointments SET start_time = ?, end_time = ?, updated_at = ?
		WHERE id = ?`,
		start, end, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update appointment times: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// RestoreAppointmentIfFree returns a cancelled or rejected appointment to
// PENDING. The appointment re-occupies its interval, so the conflict check
// runs again inside the same transaction.
func (db *DB) RestoreAppointmentIfFree(ctx context.Context, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var businessID string
	var start, end time.Time
	err = tx.QueryRowContext(ctx,
		"SELECT business_id, start_time, end_time FROM appointments WHERE id = ?", id,
	).Scan(&businessID, &start, &end)
	if err == sql.ErrNoRows {
		return fmt.Errorf("appointment %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("load appointment: %w", err)
	}

	taken, err := overlapExists(ctx, tx, businessID, start, end, id)
	if err != nil {
		return fmt.Errorf("conflict check: %w", err)
	}
	if taken {
		return ErrSlotTaken
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE appointments SET status = ?, updated_at = ?
		WHERE id = ?`,
		string(model.StatusPending), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("restore appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// overlapExists checks for an occupying appointment overlapping [start, end)
// using strict half-open semantics: touching endpoints do not conflict.
// excludeID skips the appointment's own row during a reschedule.
func overlapExists(ctx context.Context, tx *sql.Tx, businessID string, start, end time.Time, excludeID string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM appointments
		WHERE business_id = ?
		AND start_time < ? AND end_time > ?
		AND status NOT IN ('CANCELLED', 'REJECTED')`
	args := []any{businessID, end, start}
	if excludeID != "" {
		query += " AND id != ?"
		args = append(args, excludeID)
	}

	var count int
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetAppointment returns an appointment by id.
func (db *DB) GetAppointment(ctx context.Context, id string) (*model.Appointment, error) {
	row := db.QueryRowContext(ctx, selectAppointment+" WHERE id = ?", id)
	a, err := scanAppointment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetOccupyingAppointmentsOnDate returns the business's non-cancelled,
// non-rejected appointments starting on the given date, ordered by start
// time. This is the input to slot generation.
func (db *DB) GetOccupyingAppointmentsOnDate(ctx context.Context, businessID string, date time.Time) ([]model.Appointment, error) {
	dayStart := model.DateOnly(date)
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := db.QueryContext(ctx, selectAppointment+`
		WHERE business_id = ?
		AND start_time >= ? AND start_time < ?
		AND status NOT IN ('CANCELLED', 'REJECTED')
		ORDER BY start_time`,
		businessID, dayStart, dayEnd,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ListAppointmentsRange returns all appointments of a business in a time
// range regardless of status, ordered by start time. Used by reporting and
// audit export.
func (db *DB) ListAppointmentsRange(ctx context.Context, businessID string, from, to time.Time) ([]model.Appointment, error) {
	rows, err := db.QueryContext(ctx, selectAppointment+`
		WHERE business_id = ? AND start_time >= ? AND start_time < ?
		ORDER BY start_time`,
		businessID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// ListClientAppointments returns a registered client's appointments with a
// business.
func (db *DB) ListClientAppointments(ctx context.Context, businessID, clientID string) ([]model.Appointment, error) {
	rows, err := db.QueryContext(ctx, selectAppointment+`
		WHERE business_id = ? AND client_id = ?
		ORDER BY start_time DESC`,
		businessID, clientID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

// UpdateAppointmentStatus writes a new status. Transition validity is
// enforced by the booking layer before calling this.
func (db *DB) UpdateAppointmentStatus(ctx context.Context, id string, status model.Status) error {
	res, err := db.ExecContext(ctx,
		"UPDATE appointments SET status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("appointment %s not found", id)
	}
	return nil
}

// UpdateAppointmentNotes sets the staff-visible note field.
func (db *DB) UpdateAppointmentNotes(ctx context.Context, id, staffNotes string) error {
	_, err := db.ExecContext(ctx,
		"UPDATE appointments SET staff_notes = ?, updated_at = ? WHERE id = ?",
		staffNotes, time.Now(), id,
	)
	return err
}

const selectAppointment = `
	SELECT id, business_id, service_id, client_id, guest_name, guest_phone,
	       start_time, end_time, status, client_notes, staff_notes, media_refs,
	       created_at, updated_at
	FROM appointments`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*model.Appointment, error) {
	var a model.Appointment
	var clientID, guestName, guestPhone sql.NullString
	var status, mediaRefs string
	err := row.Scan(
		&a.ID, &a.BusinessID, &a.ServiceID, &clientID, &guestName, &guestPhone,
		&a.StartTime, &a.EndTime, &status, &a.ClientNotes, &a.StaffNotes, &mediaRefs,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.ClientID = clientID.String
	a.GuestName = guestName.String
	a.GuestPhone = guestPhone.String
	a.Status = model.Status(status)
	a.MediaRefs = decodeMediaRefs(mediaRefs)
	return &a, nil
}

func collectAppointments(rows *sql.Rows) ([]model.Appointment, error) {
	var out []model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func encodeMediaRefs(refs []string) string {
	if len(refs) == 0 {
		return ""
	}
	data, err := json.Marshal(refs)
	if err != nil {
		return ""
	}
	return string(data)
}

func decodeMediaRefs(s string) []string {
	if s == "" {
		return nil
	}
	var refs []string
	if err := json.Unmarshal([]byte(s), &refs); err != nil {
		return nil
	}
	return refs
}
