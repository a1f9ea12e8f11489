package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"torbook/internal/events"
	"torbook/internal/model"
)

// Approve confirms a pending appointment.
func (s *Service) Approve(ctx context.Context, appointmentID string) error {
	return s.transition(ctx, appointmentID, model.StatusConfirmed)
}

// Reject declines a pending appointment, freeing its interval.
func (s *Service) Reject(ctx context.Context, appointmentID string) error {
	return s.transition(ctx, appointmentID, model.StatusRejected)
}

// Complete marks a confirmed appointment as done.
func (s *Service) Complete(ctx context.Context, appointmentID string) error {
	return s.transition(ctx, appointmentID, model.StatusCompleted)
}

// Restore returns a cancelled or rejected appointment to PENDING. The
// interval must still be free; another booking may have taken it since.
func (s *Service) Restore(ctx context.Context, appointmentID string) error {
	a, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return fmt.Errorf("load appointment: %w", err)
	}
	if a == nil {
		return fmt.Errorf("appointment %s: %w", appointmentID, ErrNotFound)
	}
	if !a.Status.CanTransition(model.StatusPending) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, model.StatusPending)
	}

	if err := s.guard.Restore(ctx, a.BusinessID, appointmentID); err != nil {
		return err
	}

	s.metrics.IncStatusChange(string(model.StatusPending))
	s.bus.Publish(events.Event{
		Type:          events.TypeStatus,
		AppointmentID: appointmentID,
		BusinessID:    a.BusinessID,
		Status:        string(model.StatusPending),
	})
	s.logger.Info().
		Str("appointment_id", appointmentID).
		Str("from", string(a.Status)).
		Msg("appointment restored")
	return nil
}

// ManualBookRequest describes a booking entered by staff on a client's or
// walk-in's behalf.
type ManualBookRequest struct {
	BusinessID string
	ServiceID  string
	ClientID   string
	GuestName  string
	GuestPhone string
	Start      time.Time
	StaffNotes string
}

// ManualBook commits a staff-entered appointment. Membership gating does
// not apply and the appointment is CONFIRMED immediately.
func (s *Service) ManualBook(ctx context.Context, req ManualBookRequest) (*model.Appointment, error) {
	svc, err := s.store.GetService(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}
	if svc == nil || svc.BusinessID != req.BusinessID {
		return nil, fmt.Errorf("service %s: %w", req.ServiceID, ErrNotFound)
	}

	end := req.Start.Add(svc.Duration())
	if err := s.validateInterval(ctx, req.BusinessID, req.Start, end); err != nil {
		return nil, err
	}

	a := &model.Appointment{
		ID:         uuid.NewString(),
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		ClientID:   req.ClientID,
		GuestName:  req.GuestName,
		GuestPhone: req.GuestPhone,
		StartTime:  req.Start,
		EndTime:    end,
		Status:     model.StatusConfirmed,
		StaffNotes: req.StaffNotes,
	}

	if err := s.guard.Commit(ctx, a); err != nil {
		return nil, err
	}

	s.metrics.IncBooking(string(model.StatusConfirmed))
	s.bus.Publish(events.Event{
		Type:          events.TypeBooked,
		AppointmentID: a.ID,
		BusinessID:    a.BusinessID,
		Status:        string(model.StatusConfirmed),
	})
	s.logger.Info().
		Str("appointment_id", a.ID).
		Str("business_id", a.BusinessID).
		Time("start", a.StartTime).
		Msg("manual booking committed")
	return a, nil
}
