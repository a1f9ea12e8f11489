package api

import (
	"net/http"
	"time"

	"torbook/internal/booking"
	"torbook/internal/interval"
	"torbook/internal/model"
)

// SessionResponse is the public view of a booking session.
type SessionResponse struct {
	ID            string `json:"id"`
	BusinessID    string `json:"business_id"`
	Step          string `json:"step"`
	ServiceID     string `json:"service_id,omitempty"`
	Date          string `json:"date,omitempty"`
	SlotStart     string `json:"slot_start,omitempty"` // RFC 3339
	AppointmentID string `json:"appointment_id,omitempty"`
}

func sessionResponse(sess *booking.Session) SessionResponse {
	resp := SessionResponse{
		ID:            sess.ID,
		BusinessID:    sess.BusinessID,
		Step:          string(sess.Step),
		ServiceID:     sess.ServiceID,
		AppointmentID: sess.AppointmentID,
	}
	if !sess.Date.IsZero() {
		resp.Date = sess.Date.Format("2006-01-02")
	}
	if !sess.SlotStart.IsZero() {
		resp.SlotStart = sess.SlotStart.Format(time.RFC3339)
	}
	return resp
}

// StartSessionRequest is the request body for POST /api/sessions.
type StartSessionRequest struct {
	BusinessID string `json:"business_id"`
	ClientID   string `json:"client_id,omitempty"`
	GuestName  string `json:"guest_name,omitempty"`
	GuestPhone string `json:"guest_phone,omitempty"`
}

// handleStartSession opens a step-by-step booking session.
// POST /api/sessions
func (s *HTTPServer) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.BusinessID == "" {
		writeError(w, http.StatusBadRequest, "business_id is required")
		return
	}
	if req.ClientID == "" && req.GuestName == "" {
		writeError(w, http.StatusBadRequest, "client_id or guest_name is required")
		return
	}

	biz, err := s.db.GetBusiness(r.Context(), req.BusinessID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if biz == nil || !biz.IsActive {
		writeError(w, http.StatusNotFound, "business not found")
		return
	}

	// Membership gates the whole session, not just the final submit.
	if req.ClientID == "" {
		if biz.RequiresMembership {
			writeError(w, http.StatusForbidden, "this business requires membership; guests cannot book")
			return
		}
	} else {
		status, err := s.db.GetMembershipStatus(r.Context(), req.BusinessID, req.ClientID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if status == model.MembershipBlocked {
			writeError(w, http.StatusForbidden, "booking is not permitted for this client")
			return
		}
		if biz.RequiresMembership && !status.CanBook() {
			if status.CanRequestJoin() {
				writeError(w, http.StatusForbidden, "membership required; request to join this business first")
				return
			}
			writeError(w, http.StatusForbidden, "membership request pending approval")
			return
		}
	}

	sess := booking.NewSession(req.BusinessID, req.ClientID)
	sess.GuestName = req.GuestName
	sess.GuestPhone = req.GuestPhone
	s.sessions.Put(sess)

	writeJSON(w, http.StatusCreated, sessionResponse(sess))
}

// handleGetSession returns the current session state.
// GET /api/sessions/{id}
func (s *HTTPServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(r.PathValue("id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found or expired")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

// handleSessionService picks the session's service.
// POST /api/sessions/{id}/service
func (s *HTTPServer) handleSessionService(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ServiceID string `json:"service_id"`
	}
	if err := decodeJSON(r, &req); err != nil || req.ServiceID == "" {
		writeError(w, http.StatusBadRequest, "service_id is required")
		return
	}

	sess := s.sessions.Get(r.PathValue("id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found or expired")
		return
	}

	svc, err := s.db.GetService(r.Context(), req.ServiceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if svc == nil || !svc.IsActive || svc.BusinessID != sess.BusinessID {
		writeError(w, http.StatusNotFound, "service not found")
		return
	}

	if err := sess.SelectService(req.ServiceID); err != nil {
		s.writeBookingError(w, err)
		return
	}
	s.sessions.Put(sess)
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

// handleSessionDate picks the session's date and returns the free slots on
// it, so the client can choose one in the next step.
// POST /api/sessions/{id}/date
func (s *HTTPServer) handleSessionDate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"` // YYYY-MM-DD
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date; expected YYYY-MM-DD")
		return
	}

	sess := s.sessions.Get(r.PathValue("id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found or expired")
		return
	}

	result, err := s.booking.Availability(r.Context(), sess.BusinessID, sess.ServiceID, date, "")
	if err != nil {
		s.writeBookingError(w, err)
		return
	}

	if err := sess.SelectDate(date); err != nil {
		s.writeBookingError(w, err)
		return
	}
	s.sessions.Put(sess)

	writeJSON(w, http.StatusOK, struct {
		SessionResponse
		Slots           []string `json:"slots"`
		Closed          bool     `json:"closed,omitempty"`
		Reason          string   `json:"reason,omitempty"`
		DurationTooLong bool     `json:"duration_too_long,omitempty"`
	}{
		SessionResponse: sessionResponse(sess),
		Slots:           result.StartTimes(),
		Closed:          result.Closed,
		Reason:          result.Reason,
		DurationTooLong: result.DurationTooLong,
	})
}

// handleSessionSlot picks a start time on the selected date.
// POST /api/sessions/{id}/slot
func (s *HTTPServer) handleSessionSlot(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Start string `json:"start"` // HH:MM on the selected date
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess := s.sessions.Get(r.PathValue("id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found or expired")
		return
	}
	if sess.Date.IsZero() {
		writeError(w, http.StatusUnprocessableEntity, "select a date first")
		return
	}

	start, err := interval.ParseClock(sess.Date, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected HH:MM")
		return
	}
	if err := sess.SelectSlot(start); err != nil {
		s.writeBookingError(w, err)
		return
	}
	s.sessions.Put(sess)
	writeJSON(w, http.StatusOK, sessionResponse(sess))
}

// handleSessionSubmit commits the selected slot. Any commit failure rejects
// the session; the client must start over.
// POST /api/sessions/{id}/submit
func (s *HTTPServer) handleSessionSubmit(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Get(r.PathValue("id"))
	if sess == nil {
		writeError(w, http.StatusNotFound, "session not found or expired")
		return
	}

	if err := sess.Submit(); err != nil {
		s.writeBookingError(w, err)
		return
	}

	a, err := s.booking.Book(r.Context(), booking.BookRequest{
		BusinessID: sess.BusinessID,
		ServiceID:  sess.ServiceID,
		ClientID:   sess.ClientID,
		GuestName:  sess.GuestName,
		GuestPhone: sess.GuestPhone,
		Start:      sess.SlotStart,
	})
	if err != nil {
		// Any commit failure ends the session; a submitted session never
		// stays stuck waiting for a retry that cannot succeed.
		_ = sess.Resolve(false, "")
		s.sessions.Put(sess)
		s.writeBookingError(w, err)
		return
	}

	_ = sess.Resolve(true, a.ID)
	s.sessions.Put(sess)

	writeJSON(w, http.StatusCreated, struct {
		SessionResponse
		Appointment AppointmentResponse `json:"appointment"`
	}{
		SessionResponse: sessionResponse(sess),
		Appointment:     appointmentResponse(a),
	})
}
