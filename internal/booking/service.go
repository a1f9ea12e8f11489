// Package booking orchestrates the booking flow: availability queries,
// atomic slot commits, and appointment lifecycle transitions.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"torbook/internal/calendar"
	"torbook/internal/events"
	"torbook/internal/metrics"
	"torbook/internal/model"
	"torbook/internal/slots"
)

// Store is the storage surface the booking service depends on.
type Store interface {
	Committer

	GetBusiness(ctx context.Context, id string) (*model.Business, error)
	GetService(ctx context.Context, id string) (*model.Service, error)
	GetAppointment(ctx context.Context, id string) (*model.Appointment, error)
	GetOccupyingAppointmentsOnDate(ctx context.Context, businessID string, date time.Time) ([]model.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id string, status model.Status) error
	GetMembershipStatus(ctx context.Context, businessID, clientID string) (model.MembershipStatus, error)
}

// Service runs the booking flow against a calendar snapshot source and the
// commit guard.
type Service struct {
	store    Store
	calendar calendar.SnapshotSource
	guard    *Guard
	metrics  *metrics.Metrics
	bus      *events.Bus
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a booking service.
func NewService(store Store, cal calendar.SnapshotSource, guard *Guard, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		calendar: cal,
		guard:    guard,
		metrics:  m,
		logger:   logger.With().Str("component", "booking").Logger(),
		now:      time.Now,
	}
}

// WithBus attaches an event bus; lifecycle events are published to it.
func (s *Service) WithBus(bus *events.Bus) *Service {
	s.bus = bus
	return s
}

// Availability returns bookable start times for a service on a date.
// excludeAppointmentID, when set, removes that appointment's interval from
// the occupied set so a reschedule can offer the client their own slot.
func (s *Service) Availability(ctx context.Context, businessID, serviceID string, date time.Time, excludeAppointmentID string) (slots.Result, error) {
	svc, err := s.store.GetService(ctx, serviceID)
	if err != nil {
		s.metrics.IncSlotQuery("error")
		return slots.Result{}, fmt.Errorf("load service: %w", err)
	}
	if svc == nil || svc.BusinessID != businessID {
		s.metrics.IncSlotQuery("error")
		return slots.Result{}, fmt.Errorf("service %s: %w", serviceID, ErrNotFound)
	}

	snap, err := s.calendar.Load(ctx, businessID)
	if err != nil {
		s.metrics.IncSlotQuery("error")
		return slots.Result{}, fmt.Errorf("load calendar: %w", err)
	}

	appointments, err := s.store.GetOccupyingAppointmentsOnDate(ctx, businessID, date)
	if err != nil {
		s.metrics.IncSlotQuery("error")
		return slots.Result{}, fmt.Errorf("load appointments: %w", err)
	}
	if excludeAppointmentID != "" {
		appointments = withoutAppointment(appointments, excludeAppointmentID)
	}

	result, err := slots.Generate(snap, date, svc.Duration(), appointments, s.now())
	if err != nil {
		s.metrics.IncSlotQuery("error")
		return slots.Result{}, err
	}
	if result.Closed {
		s.metrics.IncSlotQuery("closed")
	} else {
		s.metrics.IncSlotQuery("ok")
	}
	return result, nil
}

// BookRequest describes a client or guest booking attempt.
type BookRequest struct {
	BusinessID string
	ServiceID  string
	ClientID   string // empty for guests
	GuestName  string
	GuestPhone string
	Start      time.Time
	Notes      string
	MediaRefs  []string
}

// Book validates the requested slot against the live calendar and commits
// it. The initial status depends on membership: approved members get
// CONFIRMED, everyone else PENDING. Businesses that require membership
// reject guests and non-approved clients outright.
func (s *Service) Book(ctx context.Context, req BookRequest) (*model.Appointment, error) {
	biz, err := s.store.GetBusiness(ctx, req.BusinessID)
	if err != nil {
		return nil, fmt.Errorf("load business: %w", err)
	}
	if biz == nil || !biz.IsActive {
		return nil, fmt.Errorf("business %s: %w", req.BusinessID, ErrNotFound)
	}

	status, err := s.initialStatus(ctx, biz, req.ClientID)
	if err != nil {
		return nil, err
	}

	svc, err := s.store.GetService(ctx, req.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}
	if svc == nil || svc.BusinessID != req.BusinessID || !svc.IsActive {
		return nil, fmt.Errorf("service %s: %w", req.ServiceID, ErrNotFound)
	}

	end := req.Start.Add(svc.Duration())
	if err := s.validateInterval(ctx, req.BusinessID, req.Start, end); err != nil {
		return nil, err
	}

	a := &model.Appointment{
		ID:          uuid.NewString(),
		BusinessID:  req.BusinessID,
		ServiceID:   req.ServiceID,
		ClientID:    req.ClientID,
		GuestName:   req.GuestName,
		GuestPhone:  req.GuestPhone,
		StartTime:   req.Start,
		EndTime:     end,
		Status:      status,
		ClientNotes: req.Notes,
		MediaRefs:   req.MediaRefs,
	}

	if err := s.guard.Commit(ctx, a); err != nil {
		return nil, err
	}

	s.metrics.IncBooking(string(status))
	s.bus.Publish(events.Event{
		Type:          events.TypeBooked,
		AppointmentID: a.ID,
		BusinessID:    a.BusinessID,
		Status:        string(status),
	})
	s.logger.Info().
		Str("appointment_id", a.ID).
		Str("business_id", a.BusinessID).
		Time("start", a.StartTime).
		Str("status", string(status)).
		Msg("appointment booked")
	return a, nil
}

// Reschedule moves an appointment to a new start time. Duration is the
// appointment's own snapshot, not the service's current duration. Status is
// unchanged.
func (s *Service) Reschedule(ctx context.Context, appointmentID string, newStart time.Time) (*model.Appointment, error) {
	a, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("appointment %s: %w", appointmentID, ErrNotFound)
	}
	if !a.Status.Reschedulable() {
		return nil, fmt.Errorf("%w: status %s", ErrNotReschedulable, a.Status)
	}

	newEnd := newStart.Add(a.EndTime.Sub(a.StartTime))
	if err := s.validateInterval(ctx, a.BusinessID, newStart, newEnd); err != nil {
		return nil, err
	}

	if err := s.guard.Reschedule(ctx, a.BusinessID, appointmentID, newStart, newEnd); err != nil {
		return nil, err
	}

	s.metrics.IncReschedule()
	s.bus.Publish(events.Event{
		Type:          events.TypeRescheduled,
		AppointmentID: appointmentID,
		BusinessID:    a.BusinessID,
		Status:        string(a.Status),
	})
	s.logger.Info().
		Str("appointment_id", appointmentID).
		Time("start", newStart).
		Msg("appointment rescheduled")
	return s.store.GetAppointment(ctx, appointmentID)
}

// Cancel moves an appointment to CANCELLED, freeing its interval.
func (s *Service) Cancel(ctx context.Context, appointmentID string) error {
	return s.transition(ctx, appointmentID, model.StatusCancelled)
}

// initialStatus decides the committed status for a booking attempt.
func (s *Service) initialStatus(ctx context.Context, biz *model.Business, clientID string) (model.Status, error) {
	if clientID == "" {
		if biz.RequiresMembership {
			return "", ErrMembershipRequired
		}
		return model.StatusPending, nil
	}

	ms, err := s.store.GetMembershipStatus(ctx, biz.ID, clientID)
	if err != nil {
		return "", fmt.Errorf("load membership: %w", err)
	}
	if ms == model.MembershipBlocked {
		return "", ErrMembershipRequired
	}
	if ms.CanBook() {
		return model.StatusConfirmed, nil
	}
	if biz.RequiresMembership {
		return "", ErrMembershipRequired
	}
	return model.StatusPending, nil
}

// validateInterval checks the interval against open hours and breaks. The
// conflict check against other appointments happens inside the commit
// transaction, not here.
func (s *Service) validateInterval(ctx context.Context, businessID string, start, end time.Time) error {
	snap, err := s.calendar.Load(ctx, businessID)
	if err != nil {
		return fmt.Errorf("load calendar: %w", err)
	}

	if closed, reason := snap.ClosedOn(start); closed {
		return &ClosedError{Reason: reason}
	}

	window, open, err := snap.OpenWindow(start)
	if err != nil {
		return err
	}
	if !open {
		return &ClosedError{}
	}
	if start.Before(window.Start) || end.After(window.End) {
		if end.Sub(start) > window.End.Sub(window.Start) {
			return ErrDurationExceedsWindow
		}
		return fmt.Errorf("interval outside open hours")
	}

	for _, br := range snap.BreaksFor(start) {
		if start.Before(br.End) && br.Start.Before(end) {
			return fmt.Errorf("interval overlaps a break")
		}
	}

	if !start.After(s.now()) {
		return fmt.Errorf("start time is in the past")
	}
	return nil
}

// transition applies a status change after checking the transition table.
func (s *Service) transition(ctx context.Context, appointmentID string, to model.Status) error {
	a, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return fmt.Errorf("load appointment: %w", err)
	}
	if a == nil {
		return fmt.Errorf("appointment %s: %w", appointmentID, ErrNotFound)
	}
	if !a.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
	}
	if err := s.store.UpdateAppointmentStatus(ctx, appointmentID, to); err != nil {
		return err
	}

	s.metrics.IncStatusChange(string(to))
	s.bus.Publish(events.Event{
		Type:          events.TypeStatus,
		AppointmentID: appointmentID,
		BusinessID:    a.BusinessID,
		Status:        string(to),
	})
	s.logger.Info().
		Str("appointment_id", appointmentID).
		Str("from", string(a.Status)).
		Str("to", string(to)).
		Msg("status changed")
	return nil
}

func withoutAppointment(appointments []model.Appointment, id string) []model.Appointment {
	out := appointments[:0:0]
	for _, a := range appointments {
		if a.ID != id {
			out = append(out, a)
		}
	}
	return out
}
