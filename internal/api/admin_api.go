package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"torbook/internal/model"
)

// Staff calendar administration. Rule changes invalidate the business's
// calendar snapshot cache through the invalidate hook when one is set.

func (s *HTTPServer) invalidateCalendar(r *http.Request, businessID string) {
	if s.invalidate != nil {
		s.invalidate(r.Context(), businessID)
	}
}

func (s *HTTPServer) businessBySlug(w http.ResponseWriter, r *http.Request) *model.Business {
	biz, err := s.db.GetBusinessBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.logger.Error().Err(err).Msg("load business")
		writeError(w, http.StatusInternalServerError, "internal error")
		return nil
	}
	if biz == nil {
		writeError(w, http.StatusNotFound, "business not found")
		return nil
	}
	return biz
}

// HoursRequest is the request body for PUT /api/businesses/{slug}/hours.
// Empty start and end close the day.
type HoursRequest struct {
	Day   int    `json:"day"` // 0 = Sunday
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// handleSetHours creates or replaces the hour rule for one day of week.
// PUT /api/businesses/{slug}/hours
func (s *HTTPServer) handleSetHours(w http.ResponseWriter, r *http.Request) {
	var req HoursRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Day < 0 || req.Day > 6 {
		writeError(w, http.StatusBadRequest, "day must be 0-6")
		return
	}

	biz := s.businessBySlug(w, r)
	if biz == nil {
		return
	}

	day := time.Weekday(req.Day)
	if req.Start == "" && req.End == "" {
		if err := s.db.DeleteWeeklyHours(r.Context(), biz.ID, day); err != nil {
			s.logger.Error().Err(err).Msg("delete hours")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	} else {
		err := s.db.SetWeeklyHours(r.Context(), &model.WeeklyHourRule{
			BusinessID: biz.ID,
			DayOfWeek:  day,
			StartTime:  req.Start,
			EndTime:    req.End,
		})
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	s.invalidateCalendar(r, biz.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// BreakRequest is the request body for POST /api/businesses/{slug}/breaks.
type BreakRequest struct {
	Day   int    `json:"day"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// handleAddBreak adds a recurring break.
// POST /api/businesses/{slug}/breaks
func (s *HTTPServer) handleAddBreak(w http.ResponseWriter, r *http.Request) {
	var req BreakRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Day < 0 || req.Day > 6 {
		writeError(w, http.StatusBadRequest, "day must be 0-6")
		return
	}

	biz := s.businessBySlug(w, r)
	if biz == nil {
		return
	}

	br := &model.BreakRule{
		BusinessID: biz.ID,
		DayOfWeek:  time.Weekday(req.Day),
		StartTime:  req.Start,
		EndTime:    req.End,
	}
	if err := s.db.AddBreak(r.Context(), br); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.invalidateCalendar(r, biz.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"id": br.ID})
}

// handleDeleteBreak removes a break rule.
// DELETE /api/businesses/{slug}/breaks/{id}
func (s *HTTPServer) handleDeleteBreak(w http.ResponseWriter, r *http.Request) {
	biz := s.businessBySlug(w, r)
	if biz == nil {
		return
	}
	if err := s.db.DeleteBreak(r.Context(), r.PathValue("id")); err != nil {
		s.logger.Error().Err(err).Msg("delete break")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.invalidateCalendar(r, biz.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ClosureRequest is the request body for POST /api/businesses/{slug}/closures.
type ClosureRequest struct {
	StartDate string `json:"start_date"` // YYYY-MM-DD, inclusive
	EndDate   string `json:"end_date"`   // YYYY-MM-DD, inclusive
	Reason    string `json:"reason,omitempty"`
}

// handleAddClosure adds a closed date range.
// POST /api/businesses/{slug}/closures
func (s *HTTPServer) handleAddClosure(w http.ResponseWriter, r *http.Request) {
	var req ClosureRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_date; expected YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_date; expected YYYY-MM-DD")
		return
	}

	biz := s.businessBySlug(w, r)
	if biz == nil {
		return
	}

	c := &model.ClosureRange{
		BusinessID: biz.ID,
		StartDate:  start,
		EndDate:    end,
		Reason:     req.Reason,
	}
	if err := s.db.AddClosure(r.Context(), c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.invalidateCalendar(r, biz.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"id": c.ID})
}

// handleDeleteClosure removes a closure range.
// DELETE /api/businesses/{slug}/closures/{id}
func (s *HTTPServer) handleDeleteClosure(w http.ResponseWriter, r *http.Request) {
	biz := s.businessBySlug(w, r)
	if biz == nil {
		return
	}
	if err := s.db.DeleteClosure(r.Context(), r.PathValue("id")); err != nil {
		s.logger.Error().Err(err).Msg("delete closure")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.invalidateCalendar(r, biz.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ServiceRequest is the request body for the service catalog endpoints.
type ServiceRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           int64  `json:"price"`
}

// handleCreateService adds a service to the catalog.
// POST /api/businesses/{slug}/services
func (s *HTTPServer) handleCreateService(w http.ResponseWriter, r *http.Request) {
	var req ServiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.DurationMinutes <= 0 {
		writeError(w, http.StatusBadRequest, "name and a positive duration are required")
		return
	}

	biz := s.businessBySlug(w, r)
	if biz == nil {
		return
	}

	svc := &model.Service{
		ID:              uuid.NewString(),
		BusinessID:      biz.ID,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		Price:           req.Price,
		IsActive:        true,
	}
	if err := s.db.CreateService(r.Context(), svc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": svc.ID})
}

// handleUpdateService edits a service. Existing appointments keep their
// duration snapshots.
// PUT /api/services/{id}
func (s *HTTPServer) handleUpdateService(w http.ResponseWriter, r *http.Request) {
	var req ServiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.DurationMinutes <= 0 {
		writeError(w, http.StatusBadRequest, "name and a positive duration are required")
		return
	}

	svc, err := s.db.GetService(r.Context(), r.PathValue("id"))
	if err != nil {
		s.logger.Error().Err(err).Msg("load service")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if svc == nil {
		writeError(w, http.StatusNotFound, "service not found")
		return
	}

	svc.Name = req.Name
	svc.DurationMinutes = req.DurationMinutes
	svc.Price = req.Price
	if err := s.db.UpdateService(r.Context(), svc); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDeactivateService removes a service from the catalog without
// touching its appointment history.
// POST /api/services/{id}/deactivate
func (s *HTTPServer) handleDeactivateService(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeactivateService(r.Context(), r.PathValue("id")); err != nil {
		s.logger.Error().Err(err).Msg("deactivate service")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NotesRequest is the request body for POST /api/appointments/{id}/notes.
type NotesRequest struct {
	StaffNotes string `json:"staff_notes"`
}

// handleSetNotes replaces the staff note on an appointment.
// POST /api/appointments/{id}/notes
func (s *HTTPServer) handleSetNotes(w http.ResponseWriter, r *http.Request) {
	var req NotesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.db.UpdateAppointmentNotes(r.Context(), r.PathValue("id"), req.StaffNotes); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListMemberships returns a business's membership records.
// GET /api/memberships?business_id=&status=
func (s *HTTPServer) handleListMemberships(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "business_id is required")
		return
	}

	status := model.MembershipStatus(r.URL.Query().Get("status"))
	memberships, err := s.db.ListMemberships(r.Context(), businessID, status)
	if err != nil {
		s.logger.Error().Err(err).Msg("list memberships")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]MembershipResponse, 0, len(memberships))
	for _, m := range memberships {
		out = append(out, MembershipResponse{
			BusinessID: m.BusinessID,
			ClientID:   m.ClientID,
			Status:     string(m.Status),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleClientAppointments returns a client's appointments with a business.
// GET /api/clients/{id}/appointments?business_id=
func (s *HTTPServer) handleClientAppointments(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		writeError(w, http.StatusBadRequest, "business_id is required")
		return
	}

	appointments, err := s.db.ListClientAppointments(r.Context(), businessID, r.PathValue("id"))
	if err != nil {
		s.logger.Error().Err(err).Msg("list client appointments")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]AppointmentResponse, 0, len(appointments))
	for i := range appointments {
		out = append(out, appointmentResponse(&appointments[i]))
	}
	writeJSON(w, http.StatusOK, out)
}
