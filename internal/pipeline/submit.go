// internal/pipeline/submit.go

// Package pipeline runs the document submission flow: validate, decode,
// upload both sides concurrently, then persist a single row. A failed
// insert compensates by deleting whatever was uploaded; the insert
// error is what the caller sees regardless of how compensation goes.
package pipeline

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/common/metrics"
	"docverify/internal/models"
	"docverify/internal/queue"
	"docverify/internal/repository"
	"docverify/internal/storage"

	"golang.org/x/sync/errgroup"
)

// submissionCreator is the single-row insert the pipeline performs.
type submissionCreator interface {
	Create(ctx context.Context, s *models.FormSubmission) error
}

// windowChecker gates submissions on the application window.
type windowChecker interface {
	IsOpen(ctx context.Context) (bool, error)
}

// SubmitRequest is a validated-and-decoded-on-entry submission payload.
// Images and the extraction payload are ciphertext; the IVs travel with
// them so the client can decrypt its own data later.
type SubmitRequest struct {
	OwnerID              string
	FrontImage           string   // base64 ciphertext, optionally a data URI
	BackImage            string   // base64 ciphertext, optionally a data URI
	FrontImageIV         string
	BackImageIV          string
	TestResult           string
	EncryptedPayload     string
	PayloadIV            string
	ExtractionConfidence *float64
	StructureVersion     string   // defaults to v1
}

// SubmitResult reports the stored submission.
type SubmitResult struct {
	SubmissionID  string `json:"submissionId"`
	ControlNumber string `json:"controlNumber"`
	Status        string `json:"status"`
}

// Submitter executes the submission pipeline.
type Submitter struct {
	store    storage.ObjectStore
	creator  submissionCreator
	window   windowChecker
	enqueuer queue.Enqueuer
	logger   logger.Logger
	now      func() time.Time
}

func NewSubmitter(store storage.ObjectStore, creator submissionCreator, window windowChecker, enqueuer queue.Enqueuer, log logger.Logger) *Submitter {
	return &Submitter{
		store:    store,
		creator:  creator,
		window:   window,
		enqueuer: enqueuer,
		logger:   log,
		now:      time.Now,
	}
}

// Submit runs the pipeline end to end. On success exactly two objects
// and one row exist; on failure neither does (modulo compensation
// failures, which are logged and surfaced to metrics only).
func (s *Submitter) Submit(ctx context.Context, req *SubmitRequest) (*SubmitResult, error) {
	start := s.now()

	if err := s.validate(ctx, req); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	front, err := decodeImage(req.FrontImage, "front")
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}
	back, err := decodeImage(req.BackImage, "back")
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	submissionID := repository.NewSubmissionID()
	controlNumber := repository.GenerateControlNumber()
	frontKey := storage.ObjectKey(submissionID, "front")
	backKey := storage.ObjectKey(submissionID, "back")

	s.logger.Info("Starting submission pipeline", map[string]interface{}{
		"submissionId":  submissionID,
		"controlNumber": controlNumber,
		"ownerId":       req.OwnerID,
	})

	uploaded, err := s.uploadBoth(ctx, frontKey, backKey, front, back)
	if err != nil {
		s.compensate(ctx, uploaded)
		metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	submission := &models.FormSubmission{
		ID:                   submissionID,
		OwnerID:              req.OwnerID,
		ControlNumber:        controlNumber,
		Status:               models.SubmissionStatusPending,
		TestResult:           req.TestResult,
		FrontImageKey:        frontKey,
		BackImageKey:         backKey,
		FrontImageIV:         req.FrontImageIV,
		BackImageIV:          req.BackImageIV,
		EncryptedPayload:     req.EncryptedPayload,
		PayloadIV:            req.PayloadIV,
		ExtractionConfidence: *req.ExtractionConfidence,
		StructureVersion:     req.StructureVersion,
	}
	if err := s.creator.Create(ctx, submission); err != nil {
		s.compensate(ctx, []string{frontKey, backKey})
		metrics.SubmissionsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	metrics.SubmissionsTotal.WithLabelValues("ok").Inc()
	metrics.SubmissionDuration.WithLabelValues("ok").Observe(s.now().Sub(start).Seconds())
	s.logger.Info("Submission stored", map[string]interface{}{
		"submissionId":  submissionID,
		"controlNumber": controlNumber,
	})

	return &SubmitResult{
		SubmissionID:  submissionID,
		ControlNumber: controlNumber,
		Status:        models.SubmissionStatusPending,
	}, nil
}

// Reprocess queues an out-of-band re-analysis of a stored submission.
// Enqueueing is fail-open, so a queue outage drops the task instead of
// failing the request.
func (s *Submitter) Reprocess(ctx context.Context, submissionID, ownerID string) error {
	if submissionID == "" {
		return errors.NewMissingFieldError("submissionId")
	}
	task, err := queue.NewOCRProcessTask(submissionID, ownerID)
	if err != nil {
		return errors.NewValidationError("Could not build analysis task", err.Error())
	}
	return s.enqueuer.Enqueue(ctx, task)
}

// validate rejects an incomplete payload before anything touches the
// network. Every encryption-era field is mandatory: the client ran OCR
// and encrypted the result before submitting, so a payload without it
// is malformed, not merely unanalyzed.
func (s *Submitter) validate(ctx context.Context, req *SubmitRequest) error {
	if req.OwnerID == "" {
		return errors.NewMissingFieldError("ownerId")
	}
	if req.FrontImage == "" {
		return errors.NewMissingFieldError("frontImage")
	}
	if req.BackImage == "" {
		return errors.NewMissingFieldError("backImage")
	}
	if req.FrontImageIV == "" {
		return errors.NewMissingFieldError("frontImageIV")
	}
	if req.BackImageIV == "" {
		return errors.NewMissingFieldError("backImageIV")
	}
	if req.TestResult == "" {
		return errors.NewMissingFieldError("testResult")
	}
	if req.TestResult != models.TestResultReactive && req.TestResult != models.TestResultNonReactive {
		return errors.NewValidationError("Invalid test result", "testResult must be reactive or non-reactive")
	}
	if req.EncryptedPayload == "" {
		return errors.NewMissingFieldError("encryptedPayload")
	}
	if req.PayloadIV == "" {
		return errors.NewMissingFieldError("payloadIV")
	}
	if req.ExtractionConfidence == nil {
		return errors.NewMissingFieldError("extractionConfidence")
	}
	switch req.StructureVersion {
	case "":
		req.StructureVersion = models.StructureVersionV1
	case models.StructureVersionV1, models.StructureVersionV2:
	default:
		return errors.NewValidationError("Invalid structure version", "structureVersion must be v1 or v2")
	}

	open, err := s.window.IsOpen(ctx)
	if err != nil {
		return err
	}
	if !open {
		return errors.NewValidationError("Applications are closed", "the application window is not open")
	}
	return nil
}

// uploadBoth fans out the two uploads and joins on both. The returned
// keys are the ones that made it to storage before the first error, so
// the caller can compensate precisely.
func (s *Submitter) uploadBoth(ctx context.Context, frontKey, backKey string, front, back []byte) ([]string, error) {
	results := make([]string, 2)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.store.Upload(gctx, frontKey, front); err != nil {
			return err
		}
		results[0] = frontKey
		return nil
	})
	g.Go(func() error {
		if err := s.store.Upload(gctx, backKey, back); err != nil {
			return err
		}
		results[1] = backKey
		return nil
	})
	err := g.Wait()

	var uploaded []string
	for _, key := range results {
		if key != "" {
			uploaded = append(uploaded, key)
		}
	}
	return uploaded, err
}

// compensate deletes the given keys. Failures are logged and counted;
// they never replace the error that triggered the rollback.
func (s *Submitter) compensate(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			compErr := errors.NewCompensationError(key, err)
			s.logger.Error("Compensating delete failed", map[string]interface{}{
				"key":   key,
				"error": compErr.Error(),
			})
			metrics.CompensationDeletes.WithLabelValues("failed").Inc()
			continue
		}
		metrics.CompensationDeletes.WithLabelValues("ok").Inc()
	}
}

// decodeImage strips an optional data-URI prefix and decodes base64.
func decodeImage(payload, side string) ([]byte, error) {
	if idx := strings.Index(payload, ","); idx >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.NewImageDecodeError(side, err)
	}
	if len(data) == 0 {
		return nil, errors.NewImageDecodeError(side, errors.NewValidationError("empty image payload", side))
	}
	return data, nil
}
