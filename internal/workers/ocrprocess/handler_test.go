package ocrprocess

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/models"
	"docverify/internal/ocr"
	"docverify/internal/queue"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeSubmissions struct {
	submission *models.FormSubmission
	getErr     error
	updated    *models.ExtractedData
	updateErr  error
}

func (f *fakeSubmissions) GetByID(ctx context.Context, id string) (*models.FormSubmission, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.submission, nil
}

func (f *fakeSubmissions) UpdateExtractedData(ctx context.Context, id string, data *models.ExtractedData) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = data
	return nil
}

type fakeImages struct {
	objects map[string][]byte
	err     error
}

func (f *fakeImages) Download(ctx context.Context, key string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.objects[key], nil
}

type fixedSelector struct {
	mode string
}

func (f *fixedSelector) ResolveMode() string { return f.mode }

type fakeAnalyzer struct {
	result   *ocr.Result
	err      error
	seenMode string
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, images models.SubmissionImages, mode string) (*ocr.Result, error) {
	f.seenMode = mode
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newHandler(t *testing.T, subs *fakeSubmissions, analyzer *fakeAnalyzer) *Handler {
	images := &fakeImages{objects: map[string][]byte{
		"forms/sub-1/front.enc": []byte("front"),
		"forms/sub-1/back.enc":  []byte("back"),
	}}
	return NewHandler(
		&Config{ReviewThreshold: 70},
		Dependencies{
			Submissions: subs,
			Images:      images,
			Selector:    &fixedSelector{mode: models.ExtractionModeHybrid},
			Analyzer:    analyzer,
			Logger:      logger.NewTestLogger(t),
		},
	)
}

func storedSubmission() *models.FormSubmission {
	return &models.FormSubmission{
		ID:            "sub-1",
		OwnerID:       "owner-1",
		Status:        models.SubmissionStatusPending,
		FrontImageKey: "forms/sub-1/front.enc",
		BackImageKey:  "forms/sub-1/back.enc",
	}
}

func ocrTask(t *testing.T) *asynq.Task {
	task, err := queue.NewOCRProcessTask("sub-1", "owner-1")
	require.NoError(t, err)
	return task
}

// ==========================
// Handler Tests
// ==========================

func TestHandler_ProcessTask_PersistsExtractedData(t *testing.T) {
	subs := &fakeSubmissions{submission: storedSubmission()}
	analyzer := &fakeAnalyzer{result: &ocr.Result{
		Fields:        map[string]models.ExtractedField{"firstName": {Value: "Juan", Confidence: 95}},
		Mode:          models.ExtractionModeHybrid,
		AvgConfidence: 92,
	}}
	h := newHandler(t, subs, analyzer)

	err := h.ProcessTask(context.Background(), ocrTask(t))

	require.NoError(t, err)
	assert.Equal(t, models.ExtractionModeHybrid, analyzer.seenMode)
	require.NotNil(t, subs.updated)
	assert.False(t, subs.updated.NeedsReview)
	assert.Equal(t, "Juan", subs.updated.Fields["firstName"].Value)
}

func TestHandler_ProcessTask_LowConfidenceFlagsReview(t *testing.T) {
	subs := &fakeSubmissions{submission: storedSubmission()}
	analyzer := &fakeAnalyzer{result: &ocr.Result{
		Mode:          models.ExtractionModeHybrid,
		AvgConfidence: 55,
	}}
	h := newHandler(t, subs, analyzer)

	err := h.ProcessTask(context.Background(), ocrTask(t))

	require.NoError(t, err)
	require.NotNil(t, subs.updated)
	assert.True(t, subs.updated.NeedsReview)
}

func TestHandler_ProcessTask_RetryableFailurePropagates(t *testing.T) {
	subs := &fakeSubmissions{submission: storedSubmission()}
	analyzer := &fakeAnalyzer{err: errors.NewOCRAnalysisFailedError(fmt.Errorf("throttled"))}
	h := newHandler(t, subs, analyzer)

	err := h.ProcessTask(context.Background(), ocrTask(t))

	require.Error(t, err)
	assert.False(t, stderrors.Is(err, asynq.SkipRetry), "retryable failures must stay retryable")
}

func TestHandler_ProcessTask_MissingSubmissionSkipsRetry(t *testing.T) {
	subs := &fakeSubmissions{getErr: errors.NewNotFoundError("submission", "sub-1")}
	h := newHandler(t, subs, &fakeAnalyzer{})

	err := h.ProcessTask(context.Background(), ocrTask(t))

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, asynq.SkipRetry), "a missing row will not appear on retry")
}

func TestHandler_ProcessTask_UndecodablePayloadSkipsRetry(t *testing.T) {
	h := newHandler(t, &fakeSubmissions{submission: storedSubmission()}, &fakeAnalyzer{})

	err := h.ProcessTask(context.Background(), asynq.NewTask(queue.TaskOCRProcess, []byte("{broken")))

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, asynq.SkipRetry))
}
