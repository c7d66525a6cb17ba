// internal/models/submission.go
package models

import "time"

// FormSubmission statuses. A submission is terminal once approved or rejected.
const (
	SubmissionStatusPending  = "pending"
	SubmissionStatusApproved = "approved"
	SubmissionStatusRejected = "rejected"
)

// Extraction modes for document analysis.
const (
	ExtractionModeQueries    = "queries"
	ExtractionModeCoordinate = "coordinate"
	ExtractionModeHybrid     = "hybrid"
)

// Test results reported on the physical form.
const (
	TestResultReactive    = "reactive"
	TestResultNonReactive = "non-reactive"
)

// Known layouts of the encrypted extraction payload.
const (
	StructureVersionV1 = "v1"
	StructureVersionV2 = "v2"
)

// FormSubmission is a stored verification form. Images and the
// extraction payload arrive encrypted client-side; the server keeps
// them opaque and stores the IVs the client needs to decrypt them.
type FormSubmission struct {
	ID                   string         `json:"id"`
	OwnerID              string         `json:"ownerId"`
	ControlNumber        string         `json:"controlNumber"`
	Status               string         `json:"status"`
	TestResult           string         `json:"testResult"`
	FrontImageKey        string         `json:"frontImageKey"`
	BackImageKey         string         `json:"backImageKey"`
	FrontImageIV         string         `json:"frontImageIV"`
	BackImageIV          string         `json:"backImageIV"`
	EncryptedPayload     string         `json:"encryptedPayload,omitempty"`
	PayloadIV            string         `json:"payloadIV,omitempty"`
	ExtractionConfidence float64        `json:"extractionConfidence"`
	StructureVersion     string         `json:"structureVersion"`
	ExtractedData        *ExtractedData `json:"extractedData,omitempty"`
	ReviewNotes          string         `json:"reviewNotes,omitempty"`
	ReviewedBy           string         `json:"reviewedBy,omitempty"`
	ReviewedAt           *time.Time     `json:"reviewedAt,omitempty"`
	CreatedAt            time.Time      `json:"createdAt"`
	UpdatedAt            time.Time      `json:"updatedAt"`
}

// ExtractedData carries the fields a server-side analysis read off the
// document plus the confidence bookkeeping used to route low-confidence
// results to review. The client-submitted extraction stays encrypted in
// EncryptedPayload; this struct only holds preview and re-analysis output.
type ExtractedData struct {
	Fields        map[string]ExtractedField `json:"fields"`
	AvgConfidence float64                   `json:"avgConfidence"`
	Mode          string                    `json:"mode"`
	NeedsReview   bool                      `json:"needsReview"`
	AnalyzedAt    time.Time                 `json:"analyzedAt"`
}

// ExtractedField is a single key/value pair read off the document.
type ExtractedField struct {
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

// SubmissionImages is the decoded pair of document sides handed to the
// submission pipeline.
type SubmissionImages struct {
	Front []byte
	Back  []byte
}
