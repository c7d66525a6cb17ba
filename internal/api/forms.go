// internal/api/forms.go
package api

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"docverify/internal/common/errors"
	"docverify/internal/models"
	"docverify/internal/pipeline"

	"github.com/gorilla/mux"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type submitRequestBody struct {
	OwnerID              string   `json:"ownerId"`
	FrontImage           string   `json:"frontImage"`
	BackImage            string   `json:"backImage"`
	FrontImageIV         string   `json:"frontImageIV"`
	BackImageIV          string   `json:"backImageIV"`
	TestResult           string   `json:"testResult"`
	EncryptedPayload     string   `json:"encryptedPayload"`
	PayloadIV            string   `json:"payloadIV"`
	ExtractionConfidence *float64 `json:"extractionConfidence"`
	StructureVersion     string   `json:"structureVersion,omitempty"`
}

type analyzeRequestBody struct {
	FrontImage string `json:"frontImage"`
	BackImage  string `json:"backImage"`
}

type submissionDetailResponse struct {
	*models.FormSubmission
	FrontImageURL string `json:"frontImageUrl,omitempty"`
	BackImageURL  string `json:"backImageUrl,omitempty"`
}

// handleSubmit runs the full intake pipeline.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, s.logger, errors.NewValidationError("Could not read request body", err.Error()))
		return
	}
	if err := validateAgainst(compiledSubmitSchema, body); err != nil {
		writeError(w, s.logger, err)
		return
	}

	var req submitRequestBody
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, s.logger, errors.NewValidationError("Request body is not valid JSON", err.Error()))
		return
	}

	result, err := s.submitter.Submit(r.Context(), &pipeline.SubmitRequest{
		OwnerID:              req.OwnerID,
		FrontImage:           req.FrontImage,
		BackImage:            req.BackImage,
		FrontImageIV:         req.FrontImageIV,
		BackImageIV:          req.BackImageIV,
		TestResult:           req.TestResult,
		EncryptedPayload:     req.EncryptedPayload,
		PayloadIV:            req.PayloadIV,
		ExtractionConfidence: req.ExtractionConfidence,
		StructureVersion:     req.StructureVersion,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// handleReprocess queues a background re-analysis of one submission.
func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	submission, err := s.submissions.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if err := s.submitter.Reprocess(r.Context(), submission.ID, submission.OwnerID); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// handleAnalyzePreview runs OCR without storing anything, so the client
// can show extracted fields for correction before submitting.
func (s *Server) handleAnalyzePreview(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, s.logger, errors.NewValidationError("Could not read request body", err.Error()))
		return
	}
	if err := validateAgainst(compiledAnalyzeSchema, body); err != nil {
		writeError(w, s.logger, err)
		return
	}

	var req analyzeRequestBody
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, s.logger, errors.NewValidationError("Request body is not valid JSON", err.Error()))
		return
	}

	front, err := decodePreviewImage(req.FrontImage, "front")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	back, err := decodePreviewImage(req.BackImage, "back")
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	mode := s.selector.ResolveMode()
	result, err := s.analyzer.Analyze(r.Context(), models.SubmissionImages{Front: front, Back: back}, mode)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mode":            result.Mode,
		"fields":          result.Fields,
		"avgConfidence":   result.AvgConfidence,
		"frontConfidence": result.FrontConfidence,
		"backConfidence":  result.BackConfidence,
	})
}

// handleGetSubmission returns one submission with signed image URLs.
// A presigner outage degrades the response to metadata only.
func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	submission, err := s.submissions.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	resp := submissionDetailResponse{FormSubmission: submission}
	if frontURL, err := s.signer.PresignGet(r.Context(), submission.FrontImageKey); err == nil {
		resp.FrontImageURL = frontURL
	} else {
		s.logger.Warn("Presigning front image failed", map[string]interface{}{
			"submissionId": id,
			"error":        err.Error(),
		})
	}
	if backURL, err := s.signer.PresignGet(r.Context(), submission.BackImageKey); err == nil {
		resp.BackImageURL = backURL
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleListSubmissions returns an owner's submissions.
func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("ownerId")
	if ownerID == "" {
		writeError(w, s.logger, errors.NewMissingFieldError("ownerId"))
		return
	}

	limit := queryInt(r, "limit", defaultListLimit)
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := queryInt(r, "offset", 0)

	list, err := s.submissions.ListByOwner(r.Context(), ownerID, limit, offset)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if list == nil {
		list = []*models.FormSubmission{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"submissions": list,
		"limit":       limit,
		"offset":      offset,
	})
}

type reviewRequestBody struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
	Reviewer string `json:"reviewer"`
}

// handleReview applies an approve/reject decision.
func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req reviewRequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, s.logger, errors.NewValidationError("Request body is not valid JSON", err.Error()))
		return
	}
	if req.Reviewer == "" {
		writeError(w, s.logger, errors.NewMissingFieldError("reviewer"))
		return
	}

	submission, err := s.reviews.Review(r.Context(), id, req.Decision, req.Notes, req.Reviewer)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, submission)
}

// handleUpdateExtractedData lets a reviewer correct extracted fields.
func (s *Server) handleUpdateExtractedData(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var data models.ExtractedData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, s.logger, errors.NewValidationError("Request body is not valid JSON", err.Error()))
		return
	}
	if data.AnalyzedAt.IsZero() {
		data.AnalyzedAt = time.Now().UTC()
	}

	if err := s.submissions.UpdateExtractedData(r.Context(), id, &data); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func decodePreviewImage(payload, side string) ([]byte, error) {
	if idx := strings.Index(payload, ","); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.NewImageDecodeError(side, err)
	}
	return data, nil
}
