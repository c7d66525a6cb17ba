// internal/ocr/analyzer.go

// Package ocr analyzes submitted document images and extracts form
// fields, routing low-confidence results to manual review.
package ocr

import (
	"context"
	"time"

	"docverify/internal/models"
)

// Analyzer extracts structured fields from the two sides of a document.
// Both sides are analyzed concurrently and a failure on either side
// fails the whole analysis.
type Analyzer interface {
	Analyze(ctx context.Context, images models.SubmissionImages, mode string) (*Result, error)
}

// Result is the outcome of one document analysis.
type Result struct {
	Fields          map[string]models.ExtractedField
	Mode            string
	FrontConfidence float64
	BackConfidence  float64
	AvgConfidence   float64
	FrontText       string
	BackText        string
}

// ToExtractedData converts an analysis result into the persisted shape,
// flagging it for review when the average confidence falls below the
// given threshold.
func (r *Result) ToExtractedData(reviewThreshold float64, analyzedAt time.Time) *models.ExtractedData {
	return &models.ExtractedData{
		Fields:        r.Fields,
		AvgConfidence: r.AvgConfidence,
		Mode:          r.Mode,
		NeedsReview:   r.AvgConfidence < reviewThreshold,
		AnalyzedAt:    analyzedAt,
	}
}
