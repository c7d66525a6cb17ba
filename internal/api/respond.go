// internal/api/respond.go
package api

import (
	"encoding/json"
	"net/http"

	"docverify/internal/common/errors"
	"docverify/internal/common/logger"
)

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Infrastructure
// details never leak; validation and conflict messages do, since the
// caller can act on them.
func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	status := errors.HTTPStatus(err)

	resp := errorResponse{Error: "Internal server error"}
	if se, ok := errors.AsStandardError(err); ok {
		resp.Code = string(se.Code)
		if status < http.StatusInternalServerError {
			resp.Error = se.Message
			resp.Details = se.Details
		} else {
			resp.Error = se.Message
		}
	}

	if status >= http.StatusInternalServerError {
		log.Error("Request failed", map[string]interface{}{"error": err.Error(), "status": status})
	}
	writeJSON(w, status, resp)
}
