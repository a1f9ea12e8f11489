package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"torbook/internal/booking"
	"torbook/internal/model"
)

// AppointmentResponse is the public view of an appointment.
type AppointmentResponse struct {
	ID          string   `json:"id"`
	BusinessID  string   `json:"business_id"`
	ServiceID   string   `json:"service_id"`
	ClientID    string   `json:"client_id,omitempty"`
	GuestName   string   `json:"guest_name,omitempty"`
	GuestPhone  string   `json:"guest_phone,omitempty"`
	Start       string   `json:"start"` // RFC 3339
	End         string   `json:"end"`
	Status      string   `json:"status"`
	ClientNotes string   `json:"client_notes,omitempty"`
	StaffNotes  string   `json:"staff_notes,omitempty"`
	MediaRefs   []string `json:"media_refs,omitempty"`
}

func appointmentResponse(a *model.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		BusinessID:  a.BusinessID,
		ServiceID:   a.ServiceID,
		ClientID:    a.ClientID,
		GuestName:   a.GuestName,
		GuestPhone:  a.GuestPhone,
		Start:       a.StartTime.Format(time.RFC3339),
		End:         a.EndTime.Format(time.RFC3339),
		Status:      string(a.Status),
		ClientNotes: a.ClientNotes,
		StaffNotes:  a.StaffNotes,
		MediaRefs:   a.MediaRefs,
	}
}

// BookAppointmentRequest is the request body for POST /api/appointments.
type BookAppointmentRequest struct {
	BusinessID string   `json:"business_id"`
	ServiceID  string   `json:"service_id"`
	ClientID   string   `json:"client_id,omitempty"`
	GuestName  string   `json:"guest_name,omitempty"`
	GuestPhone string   `json:"guest_phone,omitempty"`
	Start      string   `json:"start"` // RFC 3339
	Notes      string   `json:"notes,omitempty"`
	MediaRefs  []string `json:"media_refs,omitempty"`
}

// handleBook commits a client or guest booking.
// POST /api/appointments
func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	var req BookAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected RFC 3339")
		return
	}
	if req.ClientID == "" && req.GuestName == "" {
		writeError(w, http.StatusBadRequest, "client_id or guest_name is required")
		return
	}

	a, err := s.booking.Book(r.Context(), booking.BookRequest{
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		ClientID:   req.ClientID,
		GuestName:  req.GuestName,
		GuestPhone: req.GuestPhone,
		Start:      start,
		Notes:      req.Notes,
		MediaRefs:  req.MediaRefs,
	})
	if err != nil {
		s.writeBookingError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, appointmentResponse(a))
}

// ManualBookRequest is the request body for POST /api/appointments/manual.
type ManualBookRequest struct {
	BusinessID string `json:"business_id"`
	ServiceID  string `json:"service_id"`
	ClientID   string `json:"client_id,omitempty"`
	GuestName  string `json:"guest_name,omitempty"`
	GuestPhone string `json:"guest_phone,omitempty"`
	Start      string `json:"start"`
	StaffNotes string `json:"staff_notes,omitempty"`
}

// handleManualBook commits a staff-entered booking, confirmed immediately.
// POST /api/appointments/manual
func (s *HTTPServer) handleManualBook(w http.ResponseWriter, r *http.Request) {
	var req ManualBookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected RFC 3339")
		return
	}

	a, err := s.booking.ManualBook(r.Context(), booking.ManualBookRequest{
		BusinessID: req.BusinessID,
		ServiceID:  req.ServiceID,
		ClientID:   req.ClientID,
		GuestName:  req.GuestName,
		GuestPhone: req.GuestPhone,
		Start:      start,
		StaffNotes: req.StaffNotes,
	})
	if err != nil {
		s.writeBookingError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, appointmentResponse(a))
}

// handleGetAppointment returns one appointment.
// GET /api/appointments/{id}
func (s *HTTPServer) handleGetAppointment(w http.ResponseWriter, r *http.Request) {
	a, err := s.db.GetAppointment(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error().Err(err).Msg("load appointment")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	writeJSON(w, http.StatusOK, appointmentResponse(a))
}

// handleListAppointments returns appointments for a business over a range.
// GET /api/appointments?business_id=&from=YYYY-MM-DD&to=YYYY-MM-DD
func (s *HTTPServer) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	businessID := q.Get("business_id")
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "business_id is required")
		return
	}

	from, err := time.Parse("2006-01-02", q.Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from; expected YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", q.Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to; expected YYYY-MM-DD")
		return
	}

	appointments, err := s.db.ListAppointmentsRange(r.Context(), businessID, from, to.AddDate(0, 0, 1))
	if err != nil {
		s.logger.Error().Err(err).Msg("list appointments")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]AppointmentResponse, 0, len(appointments))
	for i := range appointments {
		out = append(out, appointmentResponse(&appointments[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// RescheduleRequest is the request body for the reschedule endpoint.
type RescheduleRequest struct {
	Start string `json:"start"` // RFC 3339
}

// handleReschedule moves an appointment, keeping its duration and status.
// POST /api/appointments/{id}/reschedule
func (s *HTTPServer) handleReschedule(w http.ResponseWriter, r *http.Request) {
	var req RescheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected RFC 3339")
		return
	}

	a, err := s.booking.Reschedule(r.Context(), r.PathValue("id"), start)
	if err != nil {
		s.writeBookingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appointmentResponse(a))
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	s.transitionEndpoint(w, r, s.booking.Cancel)
}

func (s *HTTPServer) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.transitionEndpoint(w, r, s.booking.Approve)
}

func (s *HTTPServer) handleReject(w http.ResponseWriter, r *http.Request) {
	s.transitionEndpoint(w, r, s.booking.Reject)
}

func (s *HTTPServer) handleComplete(w http.ResponseWriter, r *http.Request) {
	s.transitionEndpoint(w, r, s.booking.Complete)
}

func (s *HTTPServer) handleRestore(w http.ResponseWriter, r *http.Request) {
	s.transitionEndpoint(w, r, s.booking.Restore)
}

func (s *HTTPServer) transitionEndpoint(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) error) {
	id := r.PathValue("id")
	if err := op(r.Context(), id); err != nil {
		s.writeBookingError(w, err)
		return
	}

	a, err := s.db.GetAppointment(r.Context(), id)
	if err != nil || a == nil {
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}
	writeJSON(w, http.StatusOK, appointmentResponse(a))
}

func decodeJSON(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// writeBookingError maps booking layer errors to HTTP statuses.
func (s *HTTPServer) writeBookingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrSlotNoLongerAvailable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, booking.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, booking.ErrMembershipRequired):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrNotReschedulable),
		errors.Is(err, booking.ErrDurationExceedsWindow),
		booking.IsClosed(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error().Err(err).Msg("booking operation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
