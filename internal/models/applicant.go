// internal/models/applicant.go
package models

import "time"

// Applicant statuses.
const (
	ApplicantStatusPending            = "pending"
	ApplicantStatusUnderReview        = "under_review"
	ApplicantStatusInterviewScheduled = "interview_scheduled"
	ApplicantStatusApproved           = "approved"
	ApplicantStatusRejected           = "rejected"
)

// Interview modes.
const (
	InterviewModeOnsite = "onsite"
	InterviewModeOnline = "online"
)

// Applicant is a person moving through the review lifecycle.
type Applicant struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone,omitempty"`
	Status      string            `json:"status"`
	ReviewNotes string            `json:"reviewNotes,omitempty"`
	Interview   *InterviewDetails `json:"interview,omitempty"`
	UpdatedBy   string            `json:"updatedBy,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// InterviewDetails is required when an applicant moves to
// interview_scheduled. Location is set for onsite interviews, Link for
// online ones; the remaining fields are informational and carried
// through as given.
type InterviewDetails struct {
	At       time.Time `json:"at"`
	Mode     string    `json:"mode"`
	Location string    `json:"location,omitempty"`
	Link     string    `json:"link,omitempty"`
	Timezone string    `json:"timezone,omitempty"`
	Duration int       `json:"duration,omitempty"` // minutes
	Focus    string    `json:"focus,omitempty"`
}
