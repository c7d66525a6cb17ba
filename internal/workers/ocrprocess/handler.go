// internal/workers/ocrprocess/handler.go

// Package ocrprocess consumes ocr:process tasks: it fetches a stored
// submission, downloads both image sides, runs document analysis and
// persists the extracted fields. Delivery is at-least-once; rewriting
// the same extracted data on a replay is harmless.
package ocrprocess

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/common/metrics"
	"docverify/internal/models"
	"docverify/internal/queue"

	"github.com/hibiken/asynq"
)

// Handler processes ocr:process tasks.
type Handler struct {
	config *Config
	deps   Dependencies
	logger logger.Logger
}

func NewHandler(config *Config, deps Dependencies) *Handler {
	return &Handler{config: config, deps: deps, logger: deps.Logger}
}

// ProcessTask implements asynq.Handler.
func (h *Handler) ProcessTask(ctx context.Context, task *asynq.Task) error {
	start := time.Now()

	var payload queue.OCRProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		metrics.QueueJobsProcessed.WithLabelValues(queue.TaskOCRProcess, "invalid").Inc()
		return fmt.Errorf("undecodable payload: %v: %w", err, asynq.SkipRetry)
	}

	h.logger.Info("Processing OCR job", map[string]interface{}{
		"submissionId": payload.SubmissionID,
	})

	if err := h.process(ctx, payload); err != nil {
		metrics.QueueJobsProcessed.WithLabelValues(queue.TaskOCRProcess, "failed").Inc()
		h.logger.Error("OCR job failed", map[string]interface{}{
			"submissionId": payload.SubmissionID,
			"error":        err.Error(),
		})
		if !errors.IsRetryable(err) && errors.Code(err) != "" {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	metrics.QueueJobsProcessed.WithLabelValues(queue.TaskOCRProcess, "ok").Inc()
	metrics.QueueJobDuration.WithLabelValues(queue.TaskOCRProcess).Observe(time.Since(start).Seconds())
	return nil
}

func (h *Handler) process(ctx context.Context, payload queue.OCRProcessPayload) error {
	submission, err := h.deps.Submissions.GetByID(ctx, payload.SubmissionID)
	if err != nil {
		return err
	}

	front, err := h.deps.Images.Download(ctx, submission.FrontImageKey)
	if err != nil {
		return err
	}
	back, err := h.deps.Images.Download(ctx, submission.BackImageKey)
	if err != nil {
		return err
	}

	mode := h.deps.Selector.ResolveMode()
	result, err := h.deps.Analyzer.Analyze(ctx, models.SubmissionImages{Front: front, Back: back}, mode)
	if err != nil {
		return err
	}

	data := result.ToExtractedData(h.config.ReviewThreshold, time.Now().UTC())
	if err := h.deps.Submissions.UpdateExtractedData(ctx, submission.ID, data); err != nil {
		return err
	}

	h.logger.Info("OCR job complete", map[string]interface{}{
		"submissionId":  submission.ID,
		"mode":          mode,
		"avgConfidence": result.AvgConfidence,
		"needsReview":   data.NeedsReview,
	})
	return nil
}
