package model

import "time"

// MembershipStatus represents a client's approval status with a business.
type MembershipStatus string

const (
	MembershipNone     MembershipStatus = "NONE"
	MembershipPending  MembershipStatus = "PENDING"
	MembershipApproved MembershipStatus = "APPROVED"
	MembershipRejected MembershipStatus = "REJECTED"
	MembershipBlocked  MembershipStatus = "BLOCKED"
)

// Membership links a registered client to a business club.
type Membership struct {
	ID         string           `json:"id"`
	BusinessID string           `json:"business_id"`
	ClientID   string           `json:"client_id"`
	Status     MembershipStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// CanBook reports whether a client with this status may submit a booking
// at a membership-gated business.
func (s MembershipStatus) CanBook() bool {
	return s == MembershipApproved
}

// CanRequestJoin reports whether the client should be offered the
// join-request action instead of the booking form.
func (s MembershipStatus) CanRequestJoin() bool {
	return s == MembershipNone || s == MembershipRejected
}
