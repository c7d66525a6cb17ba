// internal/lifecycle/submission.go
package lifecycle

import (
	"context"
	"strings"

	"docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/models"
	"docverify/internal/queue"
	"docverify/internal/repository"
)

// Points credited when an approved submission lands.
const ocrApprovedPoints = 50

// submissionStore is the persistence surface the review machine needs.
type submissionStore interface {
	GetByID(ctx context.Context, id string) (*models.FormSubmission, error)
	UpdateReview(ctx context.Context, id, status, notes, reviewer string) (bool, error)
}

// SubmissionReviewService decides pending form submissions. Approval
// and rejection are terminal; deciding an already-decided submission is
// a conflict unless it re-states the same decision.
type SubmissionReviewService struct {
	store    submissionStore
	enqueuer queue.Enqueuer
	logger   logger.Logger
}

func NewSubmissionReviewService(store submissionStore, enqueuer queue.Enqueuer, log logger.Logger) *SubmissionReviewService {
	return &SubmissionReviewService{store: store, enqueuer: enqueuer, logger: log}
}

// Review applies a decision to a pending submission.
func (s *SubmissionReviewService) Review(ctx context.Context, id, decision, notes, reviewer string) (*models.FormSubmission, error) {
	if decision != models.SubmissionStatusApproved && decision != models.SubmissionStatusRejected {
		return nil, errors.NewValidationError("Invalid decision", "decision must be approved or rejected")
	}
	if decision == models.SubmissionStatusRejected && strings.TrimSpace(notes) == "" {
		return nil, errors.NewValidationError("Rejection requires notes", "notes must explain the rejection")
	}

	submission, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Re-stating the existing decision is idempotent.
	if submission.Status == decision {
		return submission, nil
	}
	if submission.Status != models.SubmissionStatusPending {
		return nil, errors.NewInvalidTransitionError(submission.Status, decision)
	}

	applied, err := s.store.UpdateReview(ctx, id, decision, notes, reviewer)
	if err != nil {
		return nil, err
	}
	if !applied {
		// Lost the race to another reviewer.
		return nil, errors.NewInvalidTransitionError(submission.Status, decision)
	}

	submission.Status = decision
	submission.ReviewNotes = notes
	submission.ReviewedBy = reviewer

	s.logger.Info("Submission reviewed", map[string]interface{}{
		"submissionId": id,
		"decision":     decision,
		"reviewer":     reviewer,
	})

	if decision == models.SubmissionStatusApproved {
		s.enqueueCredit(ctx, submission)
	}
	return submission, nil
}

// enqueueCredit emits the achievement job. The queue client is fail-open
// so a Redis outage cannot undo an approval.
func (s *SubmissionReviewService) enqueueCredit(ctx context.Context, submission *models.FormSubmission) {
	task, err := queue.NewAchievementCreditTask(
		submission.OwnerID,
		repository.AchievementEventOCRApproved,
		submission.ID,
		ocrApprovedPoints,
	)
	if err != nil {
		s.logger.Error("Building achievement task failed", map[string]interface{}{
			"submissionId": submission.ID,
			"error":        err.Error(),
		})
		return
	}
	_ = s.enqueuer.Enqueue(ctx, task)
}
