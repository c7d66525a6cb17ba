// internal/api/window.go
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"docverify/internal/common/errors"
)

type windowRequestBody struct {
	Deadline *time.Time `json:"deadline,omitempty"`
	Actor    string     `json:"actor"`
}

func (s *Server) handleGetWindow(w http.ResponseWriter, r *http.Request) {
	window, err := s.window.Get(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, window)
}

func (s *Server) handleOpenWindow(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeWindowRequest(w, r)
	if !ok {
		return
	}

	window, err := s.window.Open(r.Context(), req.Deadline, req.Actor)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, window)
}

func (s *Server) handleCloseWindow(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeWindowRequest(w, r)
	if !ok {
		return
	}

	window, err := s.window.Close(r.Context(), req.Actor)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, window)
}

func (s *Server) handleSetDeadline(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeWindowRequest(w, r)
	if !ok {
		return
	}
	if req.Deadline == nil {
		writeError(w, s.logger, errors.NewMissingFieldError("deadline"))
		return
	}

	window, err := s.window.SetDeadline(r.Context(), *req.Deadline, req.Actor)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, window)
}

func (s *Server) decodeWindowRequest(w http.ResponseWriter, r *http.Request) (*windowRequestBody, bool) {
	var req windowRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, errors.NewValidationError("Request body is not valid JSON", err.Error()))
		return nil, false
	}
	if req.Actor == "" {
		writeError(w, s.logger, errors.NewMissingFieldError("actor"))
		return nil, false
	}
	return &req, true
}
