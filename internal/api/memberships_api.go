package api

import (
	"net/http"

	"torbook/internal/model"
)

// MembershipRequest is the request body for POST /api/memberships/request.
type MembershipRequest struct {
	BusinessID string `json:"business_id"`
	ClientID   string `json:"client_id"`
}

// MembershipResponse reports a client's membership standing.
type MembershipResponse struct {
	BusinessID string `json:"business_id"`
	ClientID   string `json:"client_id"`
	Status     string `json:"status"`
}

// handleMembershipRequest lets a client ask to join a business.
// POST /api/memberships/request
func (s *HTTPServer) handleMembershipRequest(w http.ResponseWriter, r *http.Request) {
	var req MembershipRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.BusinessID == "" || req.ClientID == "" {
		writeError(w, http.StatusBadRequest, "business_id and client_id are required")
		return
	}

	biz, err := s.db.GetBusiness(r.Context(), req.BusinessID)
	if err != nil {
		s.logger.Error().Err(err).Msg("load business")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if biz == nil || !biz.IsActive {
		writeError(w, http.StatusNotFound, "business not found")
		return
	}

	m, err := s.db.RequestMembership(r.Context(), req.BusinessID, req.ClientID)
	if err != nil {
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, MembershipResponse{
		BusinessID: m.BusinessID,
		ClientID:   m.ClientID,
		Status:     string(m.Status),
	})
}

// MembershipDecision is the request body for POST /api/memberships/decide.
type MembershipDecision struct {
	BusinessID string `json:"business_id"`
	ClientID   string `json:"client_id"`
	Status     string `json:"status"` // APPROVED, REJECTED or BLOCKED
}

// handleMembershipDecide lets staff resolve a membership request.
// POST /api/memberships/decide
func (s *HTTPServer) handleMembershipDecide(w http.ResponseWriter, r *http.Request) {
	var req MembershipDecision
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	status := model.MembershipStatus(req.Status)
	switch status {
	case model.MembershipApproved, model.MembershipRejected, model.MembershipBlocked:
	default:
		writeError(w, http.StatusBadRequest, "status must be APPROVED, REJECTED or BLOCKED")
		return
	}

	if err := s.db.SetMembershipStatus(r.Context(), req.BusinessID, req.ClientID, status); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, MembershipResponse{
		BusinessID: req.BusinessID,
		ClientID:   req.ClientID,
		Status:     req.Status,
	})
}
