// internal/api/applicants.go
package api

import (
	"encoding/json"
	"net/http"

	"docverify/internal/common/errors"
	"docverify/internal/lifecycle"
	"docverify/internal/models"

	"github.com/gorilla/mux"
)

type applicantStatusRequestBody struct {
	Status    string                   `json:"status"`
	Notes     string                   `json:"notes"`
	Interview *models.InterviewDetails `json:"interview,omitempty"`
	Actor     string                   `json:"actor"`
}

// handleApplicantStatus moves an applicant through the review lifecycle.
func (s *Server) handleApplicantStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req applicantStatusRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, errors.NewValidationError("Request body is not valid JSON", err.Error()))
		return
	}
	if req.Status == "" {
		writeError(w, s.logger, errors.NewMissingFieldError("status"))
		return
	}
	if req.Actor == "" {
		writeError(w, s.logger, errors.NewMissingFieldError("actor"))
		return
	}

	applicant, err := s.applicants.Transition(r.Context(), id, lifecycle.ApplicantUpdate{
		Status:    req.Status,
		Notes:     req.Notes,
		Interview: req.Interview,
		Actor:     req.Actor,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, applicant)
}
