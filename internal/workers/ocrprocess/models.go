// internal/workers/ocrprocess/models.go
package ocrprocess

import (
	"context"

	"docverify/internal/common/logger"
	"docverify/internal/models"
	"docverify/internal/ocr"
)

// submissionStore is the repository surface the worker needs.
type submissionStore interface {
	GetByID(ctx context.Context, id string) (*models.FormSubmission, error)
	UpdateExtractedData(ctx context.Context, id string, data *models.ExtractedData) error
}

// imageStore fetches the stored document sides.
type imageStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// modeSelector resolves the extraction mode per job.
type modeSelector interface {
	ResolveMode() string
}

// Dependencies wires the worker.
type Dependencies struct {
	Submissions submissionStore
	Images      imageStore
	Selector    modeSelector
	Analyzer    ocr.Analyzer
	Logger      logger.Logger
}

// Config holds the worker's confidence policy.
type Config struct {
	ReviewThreshold float64
}
