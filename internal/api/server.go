// internal/api/server.go

// Package api exposes the HTTP surface: submission intake, OCR preview,
// review decisions, applicant lifecycle and window administration.
package api

import (
	"context"
	"net/http"
	"time"

	"docverify/internal/common/logger"
	"docverify/internal/lifecycle"
	"docverify/internal/models"
	"docverify/internal/ocr"
	"docverify/internal/pipeline"

	"github.com/gorilla/mux"
)

// submitService runs the submission pipeline.
type submitService interface {
	Submit(ctx context.Context, req *pipeline.SubmitRequest) (*pipeline.SubmitResult, error)
	Reprocess(ctx context.Context, submissionID, ownerID string) error
}

// submissionReader serves detail and listing reads.
type submissionReader interface {
	GetByID(ctx context.Context, id string) (*models.FormSubmission, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.FormSubmission, error)
	UpdateExtractedData(ctx context.Context, id string, data *models.ExtractedData) error
}

// reviewService decides pending submissions.
type reviewService interface {
	Review(ctx context.Context, id, decision, notes, reviewer string) (*models.FormSubmission, error)
}

// applicantService runs the applicant state machine.
type applicantService interface {
	Transition(ctx context.Context, id string, update lifecycle.ApplicantUpdate) (*models.Applicant, error)
}

// windowService administers the application window.
type windowService interface {
	Get(ctx context.Context) (*models.ApplicationWindow, error)
	Open(ctx context.Context, deadline *time.Time, actor string) (*models.ApplicationWindow, error)
	Close(ctx context.Context, actor string) (*models.ApplicationWindow, error)
	SetDeadline(ctx context.Context, deadline time.Time, actor string) (*models.ApplicationWindow, error)
}

// urlSigner issues read URLs for stored images.
type urlSigner interface {
	PresignGet(ctx context.Context, key string) (string, error)
}

// modeSelector picks the extraction mode for preview analyses.
type modeSelector interface {
	ResolveMode() string
}

// Server wires the handlers onto a router.
type Server struct {
	router      *mux.Router
	submitter   submitService
	submissions submissionReader
	reviews     reviewService
	applicants  applicantService
	window      windowService
	signer      urlSigner
	analyzer    ocr.Analyzer
	selector    modeSelector
	logger      logger.Logger
}

// Dependencies collects everything the server needs.
type Dependencies struct {
	Submitter   submitService
	Submissions submissionReader
	Reviews     reviewService
	Applicants  applicantService
	Window      windowService
	Signer      urlSigner
	Analyzer    ocr.Analyzer
	Selector    modeSelector
	Logger      logger.Logger
}

func NewServer(deps Dependencies) *Server {
	s := &Server{
		router:      mux.NewRouter(),
		submitter:   deps.Submitter,
		submissions: deps.Submissions,
		reviews:     deps.Reviews,
		applicants:  deps.Applicants,
		window:      deps.Window,
		signer:      deps.Signer,
		analyzer:    deps.Analyzer,
		selector:    deps.Selector,
		logger:      deps.Logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/forms/analyze", s.handleAnalyzePreview).Methods(http.MethodPost)
	api.HandleFunc("/forms", s.handleSubmit).Methods(http.MethodPost)
	api.HandleFunc("/forms", s.handleListSubmissions).Methods(http.MethodGet)
	api.HandleFunc("/forms/{id}", s.handleGetSubmission).Methods(http.MethodGet)
	api.HandleFunc("/forms/{id}/review", s.handleReview).Methods(http.MethodPatch)
	api.HandleFunc("/forms/{id}/extracted-data", s.handleUpdateExtractedData).Methods(http.MethodPatch)
	api.HandleFunc("/forms/{id}/reprocess", s.handleReprocess).Methods(http.MethodPost)

	api.HandleFunc("/applicants/{id}/status", s.handleApplicantStatus).Methods(http.MethodPatch)

	api.HandleFunc("/window", s.handleGetWindow).Methods(http.MethodGet)
	api.HandleFunc("/window/open", s.handleOpenWindow).Methods(http.MethodPost)
	api.HandleFunc("/window/close", s.handleCloseWindow).Methods(http.MethodPost)
	api.HandleFunc("/window/deadline", s.handleSetDeadline).Methods(http.MethodPatch)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
}

// Handler returns the root handler for an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
