package booking

import (
	"errors"
	"fmt"
)

var (
	// ErrSlotNoLongerAvailable is returned when a commit loses the race for a slot.
	ErrSlotNoLongerAvailable = errors.New("slot no longer available")

	// ErrInvalidTransition is returned for a disallowed status change.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrMembershipRequired is returned when a business only accepts approved members.
	ErrMembershipRequired = errors.New("membership required")

	// ErrNotReschedulable is returned when an appointment cannot be moved.
	ErrNotReschedulable = errors.New("appointment cannot be rescheduled")

	// ErrDurationExceedsWindow is returned when a service does not fit the open window.
	ErrDurationExceedsWindow = errors.New("service duration exceeds open hours")

	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)

// ClosedError reports that a business is closed on the requested date.
type ClosedError struct {
	Reason string
}

func (e *ClosedError) Error() string {
	if e.Reason == "" {
		return "business closed"
	}
	return fmt.Sprintf("business closed: %s", e.Reason)
}

// IsClosed reports whether err indicates a closed date.
func IsClosed(err error) bool {
	var ce *ClosedError
	return errors.As(err, &ce)
}
