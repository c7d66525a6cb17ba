// internal/lifecycle/applicant.go

// Package lifecycle enforces the state machines for applicants, form
// submissions and the application window. Transition rules live here;
// the repositories only pin the expected current state.
package lifecycle

import (
	"context"
	"strings"
	"time"

	"docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/models"
)

// applicantStore is the persistence surface the applicant machine needs.
type applicantStore interface {
	GetByID(ctx context.Context, id string) (*models.Applicant, error)
	UpdateState(ctx context.Context, a *models.Applicant, expectedStatus string) (bool, error)
}

// applicantTransitions maps each status to the statuses reachable from it.
var applicantTransitions = map[string][]string{
	models.ApplicantStatusPending: {
		models.ApplicantStatusUnderReview,
	},
	models.ApplicantStatusUnderReview: {
		models.ApplicantStatusInterviewScheduled,
		models.ApplicantStatusApproved,
		models.ApplicantStatusRejected,
	},
	models.ApplicantStatusInterviewScheduled: {
		models.ApplicantStatusApproved,
		models.ApplicantStatusRejected,
	},
	// approved and rejected are terminal.
}

// ApplicantUpdate carries one requested transition.
type ApplicantUpdate struct {
	Status    string
	Notes     string
	Interview *models.InterviewDetails
	Actor     string
}

// ApplicantService runs the applicant state machine.
type ApplicantService struct {
	store    applicantStore
	notifier Notifier
	logger   logger.Logger
}

func NewApplicantService(store applicantStore, notifier Notifier, log logger.Logger) *ApplicantService {
	return &ApplicantService{store: store, notifier: notifier, logger: log}
}

// Transition applies an update. Re-saving the current status is a no-op
// that succeeds; any other move must be listed in the transition table
// and satisfy the per-state requirements.
func (s *ApplicantService) Transition(ctx context.Context, id string, update ApplicantUpdate) (*models.Applicant, error) {
	applicant, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Status == applicant.Status {
		return applicant, nil
	}

	if !transitionAllowed(applicant.Status, update.Status) {
		return nil, errors.NewInvalidTransitionError(applicant.Status, update.Status)
	}
	if err := validateRequirements(update); err != nil {
		return nil, err
	}

	from := applicant.Status
	applicant.Status = update.Status
	applicant.UpdatedBy = update.Actor
	if update.Notes != "" {
		applicant.ReviewNotes = update.Notes
	}
	if update.Status == models.ApplicantStatusInterviewScheduled {
		applicant.Interview = update.Interview
	}

	applied, err := s.store.UpdateState(ctx, applicant, from)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent writer moved the applicant first.
		return nil, errors.NewInvalidTransitionError(from, update.Status)
	}

	s.logger.Info("Applicant transitioned", map[string]interface{}{
		"applicantId": id,
		"from":        from,
		"to":          update.Status,
		"actor":       update.Actor,
	})
	s.notifyDecision(ctx, applicant)

	return applicant, nil
}

func transitionAllowed(from, to string) bool {
	for _, allowed := range applicantTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// validateRequirements checks the data each target state demands.
func validateRequirements(update ApplicantUpdate) error {
	switch update.Status {
	case models.ApplicantStatusRejected:
		if strings.TrimSpace(update.Notes) == "" {
			return errors.NewValidationError("Rejection requires notes", "notes must explain the rejection")
		}
	case models.ApplicantStatusInterviewScheduled:
		iv := update.Interview
		if iv == nil {
			return errors.NewMissingFieldError("interview")
		}
		if iv.At.IsZero() {
			return errors.NewMissingFieldError("interview.at")
		}
		switch iv.Mode {
		case models.InterviewModeOnsite:
			if iv.Location == "" {
				return errors.NewMissingFieldError("interview.location")
			}
		case models.InterviewModeOnline:
			if iv.Link == "" {
				return errors.NewMissingFieldError("interview.link")
			}
		default:
			return errors.NewValidationError("Invalid interview mode", "mode must be onsite or online")
		}
	}
	return nil
}

// notifyDecision sends a status email best-effort.
func (s *ApplicantService) notifyDecision(ctx context.Context, a *models.Applicant) {
	if s.notifier == nil || a.Email == "" {
		return
	}
	subject, body := decisionMessage(a)
	if subject == "" {
		return
	}
	if err := s.notifier.Notify(ctx, models.Notification{
		Recipient: a.Email,
		Channel:   models.NotificationChannelEmail,
		Subject:   subject,
		Body:      body,
	}); err != nil {
		s.logger.Warn("Applicant notification failed", map[string]interface{}{
			"applicantId": a.ID,
			"error":       err.Error(),
		})
	}
}

func decisionMessage(a *models.Applicant) (string, string) {
	switch a.Status {
	case models.ApplicantStatusInterviewScheduled:
		where := a.Interview.Location
		if a.Interview.Mode == models.InterviewModeOnline {
			where = a.Interview.Link
		}
		return "Interview scheduled",
			"Your interview is scheduled for " + a.Interview.At.Format(time.RFC1123) + " (" + a.Interview.Mode + ": " + where + ")."
	case models.ApplicantStatusApproved:
		return "Application approved", "Congratulations, your application has been approved."
	case models.ApplicantStatusRejected:
		return "Application update", "Your application was not approved. Notes: " + a.ReviewNotes
	}
	return "", ""
}
