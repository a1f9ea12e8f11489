package api

import (
	"net/http"
	"time"
)

// BusinessResponse is one business in the public listing.
type BusinessResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Slug               string `json:"slug"`
	RequiresMembership bool   `json:"requires_membership"`
}

// handleListBusinesses returns active businesses.
// GET /api/businesses
func (s *HTTPServer) handleListBusinesses(w http.ResponseWriter, r *http.Request) {
	businesses, err := s.db.ListActiveBusinesses(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list businesses")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]BusinessResponse, 0, len(businesses))
	for _, b := range businesses {
		out = append(out, BusinessResponse{
			ID:                 b.ID,
			Name:               b.Name,
			Slug:               b.Slug,
			RequiresMembership: b.RequiresMembership,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// ServiceResponse is one service in the public catalog. Price is omitted
// when the business chose not to publish it.
type ServiceResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	Price           *int64 `json:"price,omitempty"`
}

// handleListServices returns the active services of a business.
// GET /api/businesses/{slug}/services
func (s *HTTPServer) handleListServices(w http.ResponseWriter, r *http.Request) {
	biz, err := s.db.GetBusinessBySlug(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.logger.Error().Err(err).Msg("load business")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if biz == nil || !biz.IsActive {
		writeError(w, http.StatusNotFound, "business not found")
		return
	}

	services, err := s.db.ListActiveServices(r.Context(), biz.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("list services")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]ServiceResponse, 0, len(services))
	for _, svc := range services {
		resp := ServiceResponse{
			ID:              svc.ID,
			Name:            svc.Name,
			DurationMinutes: svc.DurationMinutes,
		}
		if !svc.HidePrice() {
			price := svc.Price
			resp.Price = &price
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, out)
}

// AvailabilityResponse is the response for GET /api/availability.
type AvailabilityResponse struct {
	Date            string   `json:"date"`
	Slots           []string `json:"slots"` // "HH:MM" start times
	Closed          bool     `json:"closed,omitempty"`
	Reason          string   `json:"reason,omitempty"`
	DurationTooLong bool     `json:"duration_too_long,omitempty"`
}

// handleAvailability returns bookable start times for a service on a date.
// GET /api/availability?business_id=&service_id=&date=YYYY-MM-DD&exclude_appointment=
func (s *HTTPServer) handleAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	businessID := q.Get("business_id")
	serviceID := q.Get("service_id")
	if businessID == "" || serviceID == "" {
		writeError(w, http.StatusBadRequest, "business_id and service_id are required")
		return
	}

	date, err := time.Parse("2006-01-02", q.Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	result, err := s.booking.Availability(r.Context(), businessID, serviceID, date, q.Get("exclude_appointment"))
	if err != nil {
		s.writeBookingError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AvailabilityResponse{
		Date:            date.Format("2006-01-02"),
		Slots:           result.StartTimes(),
		Closed:          result.Closed,
		Reason:          result.Reason,
		DurationTooLong: result.DurationTooLong,
	})
}
