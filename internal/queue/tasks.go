// internal/queue/tasks.go

// Package queue carries background work over Redis with at-least-once
// delivery. Handlers must tolerate replays.
package queue

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task types.
const (
	TaskOCRProcess        = "ocr:process"
	TaskAchievementCredit = "achievement:credit"
)

// OCRProcessPayload identifies the submission to analyze.
type OCRProcessPayload struct {
	SubmissionID string `json:"submissionId"`
	OwnerID      string `json:"ownerId"`
}

// AchievementCreditPayload identifies the credit to award.
type AchievementCreditPayload struct {
	OwnerID string `json:"ownerId"`
	Event   string `json:"event"`
	RefID   string `json:"refId"`
	Points  int    `json:"points"`
}

// NewOCRProcessTask builds the analysis task for a stored submission.
func NewOCRProcessTask(submissionID, ownerID string) (*asynq.Task, error) {
	payload, err := json.Marshal(OCRProcessPayload{SubmissionID: submissionID, OwnerID: ownerID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOCRProcess, payload), nil
}

// NewAchievementCreditTask builds the credit task emitted on approval.
func NewAchievementCreditTask(ownerID, event, refID string, points int) (*asynq.Task, error) {
	payload, err := json.Marshal(AchievementCreditPayload{OwnerID: ownerID, Event: event, RefID: refID, Points: points})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAchievementCredit, payload), nil
}
