package model

import "time"

// Status represents appointment status.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// statusTransitions lists the allowed status changes. Restoring a cancelled
// or rejected appointment reopens it as PENDING; COMPLETED is final.
var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted},
	StatusRejected:  {StatusPending},
	StatusCancelled: {StatusPending},
	StatusCompleted: {},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransition reports whether the status change from s to next is allowed.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// OccupiesCalendar reports whether an appointment with this status still
// blocks its time interval. Cancelled and rejected appointments are kept
// for history but no longer occupy calendar space.
func (s Status) OccupiesCalendar() bool {
	return s != StatusCancelled && s != StatusRejected
}

// Reschedulable reports whether an appointment with this status may be
// moved to a new time.
func (s Status) Reschedulable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Appointment represents a committed booking.
//
// EndTime is a duration snapshot taken at creation: editing the service
// later must not resize appointments that already exist.
type Appointment struct {
	ID          string    `json:"id"`
	BusinessID  string    `json:"business_id"`
	ServiceID   string    `json:"service_id"`
	ClientID    string    `json:"client_id,omitempty"` // empty for guests
	GuestName   string    `json:"guest_name,omitempty"`
	GuestPhone  string    `json:"guest_phone,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Status      Status    `json:"status"`
	ClientNotes string    `json:"client_notes,omitempty"`
	StaffNotes  string    `json:"staff_notes,omitempty"`
	MediaRefs   []string  `json:"media_refs,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsGuest reports whether the appointment was booked without a registered
// client account.
func (a *Appointment) IsGuest() bool {
	return a.ClientID == ""
}

// OverlapsWith checks if two appointments occupy overlapping time.
// Uses half-open [start, end) semantics: touching endpoints do not overlap.
func (a *Appointment) OverlapsWith(other *Appointment) bool {
	return a.StartTime.Before(other.EndTime) && other.StartTime.Before(a.EndTime)
}

// OnDate reports whether the appointment starts on the given calendar date.
func (a *Appointment) OnDate(date time.Time) bool {
	y1, m1, d1 := a.StartTime.Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
