package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"testing"

	"docverify/internal/common/errors"
	"docverify/internal/common/logger"
	"docverify/internal/models"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeStore struct {
	mu          sync.Mutex
	uploads     map[string][]byte
	deletes     []string
	failUploads map[string]error // keyed by side substring
	failDelete  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{uploads: map[string][]byte{}, failUploads: map[string]error{}}
}

func (f *fakeStore) Upload(ctx context.Context, key string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for side, err := range f.failUploads {
		if containsSide(key, side) {
			return err
		}
	}
	f.uploads[key] = body
	return nil
}

func (f *fakeStore) Download(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploads[key], nil
}

func (f *fakeStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	f.deletes = append(f.deletes, key)
	delete(f.uploads, key)
	return nil
}

func (f *fakeStore) PresignGet(ctx context.Context, key string) (string, error) {
	return "https://signed.example/" + key, nil
}

func containsSide(key, side string) bool {
	return strings.Contains(key, "/"+side+"-")
}

type fakeCreator struct {
	created []*models.FormSubmission
	err     error
}

func (f *fakeCreator) Create(ctx context.Context, s *models.FormSubmission) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, s)
	return nil
}

type fakeWindow struct {
	open bool
	err  error
}

func (f *fakeWindow) IsOpen(ctx context.Context) (bool, error) {
	return f.open, f.err
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, task *asynq.Task) error {
	f.tasks = append(f.tasks, task)
	return nil
}

func validRequest() *SubmitRequest {
	img := base64.StdEncoding.EncodeToString([]byte("cipher-bytes"))
	confidence := 91.5
	return &SubmitRequest{
		OwnerID:              "owner-1",
		FrontImage:           img,
		BackImage:            img,
		FrontImageIV:         "aXYtZnJvbnQ=",
		BackImageIV:          "aXYtYmFjaw==",
		TestResult:           models.TestResultNonReactive,
		EncryptedPayload:     base64.StdEncoding.EncodeToString([]byte("encrypted-extraction")),
		PayloadIV:            "aXYtcGF5bG9hZA==",
		ExtractionConfidence: &confidence,
	}
}

type testDeps struct {
	store    *fakeStore
	creator  *fakeCreator
	window   *fakeWindow
	enqueuer *fakeEnqueuer
}

func newSubmitter(t *testing.T) (*Submitter, *testDeps) {
	deps := &testDeps{
		store:    newFakeStore(),
		creator:  &fakeCreator{},
		window:   &fakeWindow{open: true},
		enqueuer: &fakeEnqueuer{},
	}
	s := NewSubmitter(deps.store, deps.creator, deps.window, deps.enqueuer, logger.NewTestLogger(t))
	return s, deps
}

// ==========================
// Success Path Tests
// ==========================

func TestSubmitter_Submit_StoresTwoObjectsAndOneRow(t *testing.T) {
	s, deps := newSubmitter(t)
	req := validRequest()

	result, err := s.Submit(context.Background(), req)

	require.NoError(t, err)
	assert.Regexp(t, `^HTS-\d{8}-\d{3}$`, result.ControlNumber)
	assert.Equal(t, models.SubmissionStatusPending, result.Status)
	assert.Len(t, deps.store.uploads, 2)
	assert.Empty(t, deps.store.deletes)
	require.Len(t, deps.creator.created, 1)

	stored := deps.creator.created[0]
	assert.Equal(t, result.SubmissionID, stored.ID)
	assert.Equal(t, req.FrontImageIV, stored.FrontImageIV)
	assert.Equal(t, req.BackImageIV, stored.BackImageIV)
	assert.Equal(t, models.TestResultNonReactive, stored.TestResult)
	assert.Equal(t, req.EncryptedPayload, stored.EncryptedPayload)
	assert.Equal(t, req.PayloadIV, stored.PayloadIV)
	assert.InDelta(t, 91.5, stored.ExtractionConfidence, 0.01)
	assert.Equal(t, models.StructureVersionV1, stored.StructureVersion, "structure version defaults to v1")
	assert.Empty(t, deps.enqueuer.tasks, "submission itself must not queue work")
}

func TestSubmitter_Reprocess_QueuesAnalysisJob(t *testing.T) {
	s, deps := newSubmitter(t)

	err := s.Reprocess(context.Background(), "sub-1", "owner-1")

	require.NoError(t, err)
	assert.Len(t, deps.enqueuer.tasks, 1)
}

func TestSubmitter_Submit_DataURIPrefixAccepted(t *testing.T) {
	s, deps := newSubmitter(t)
	req := validRequest()
	req.FrontImage = "data:image/jpeg;base64," + req.FrontImage

	_, err := s.Submit(context.Background(), req)

	require.NoError(t, err)
	assert.Len(t, deps.store.uploads, 2)
}

// ==========================
// Validation Tests
// ==========================

func TestSubmitter_Submit_ValidationShortCircuits(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*SubmitRequest)
		wantCode errors.ErrorCode
	}{
		{name: "missing owner", mutate: func(r *SubmitRequest) { r.OwnerID = "" }, wantCode: errors.ErrCodeMissingField},
		{name: "missing front image", mutate: func(r *SubmitRequest) { r.FrontImage = "" }, wantCode: errors.ErrCodeMissingField},
		{name: "missing back image", mutate: func(r *SubmitRequest) { r.BackImage = "" }, wantCode: errors.ErrCodeMissingField},
		{name: "missing front IV", mutate: func(r *SubmitRequest) { r.FrontImageIV = "" }, wantCode: errors.ErrCodeMissingField},
		{name: "missing back IV", mutate: func(r *SubmitRequest) { r.BackImageIV = "" }, wantCode: errors.ErrCodeMissingField},
		{name: "missing test result", mutate: func(r *SubmitRequest) { r.TestResult = "" }, wantCode: errors.ErrCodeMissingField},
		{name: "unknown test result", mutate: func(r *SubmitRequest) { r.TestResult = "inconclusive" }, wantCode: errors.ErrCodeValidationFailed},
		{name: "missing encrypted payload", mutate: func(r *SubmitRequest) { r.EncryptedPayload = "" }, wantCode: errors.ErrCodeMissingField},
		{name: "missing payload IV", mutate: func(r *SubmitRequest) { r.PayloadIV = "" }, wantCode: errors.ErrCodeMissingField},
		{name: "missing confidence", mutate: func(r *SubmitRequest) { r.ExtractionConfidence = nil }, wantCode: errors.ErrCodeMissingField},
		{name: "unknown structure version", mutate: func(r *SubmitRequest) { r.StructureVersion = "v3" }, wantCode: errors.ErrCodeValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, deps := newSubmitter(t)
			req := validRequest()
			tt.mutate(req)

			_, err := s.Submit(context.Background(), req)

			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.Code(err))
			assert.Empty(t, deps.store.uploads)
			assert.Empty(t, deps.creator.created)
		})
	}
}

func TestSubmitter_Submit_ImagesAloneAreNotEnough(t *testing.T) {
	s, deps := newSubmitter(t)
	img := base64.StdEncoding.EncodeToString([]byte("cipher-bytes"))

	// Owner and images without the encryption envelope must stop at
	// validation, before any upload or insert is attempted.
	_, err := s.Submit(context.Background(), &SubmitRequest{
		OwnerID:    "owner-1",
		FrontImage: img,
		BackImage:  img,
	})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeMissingField, errors.Code(err))
	assert.Empty(t, deps.store.uploads)
	assert.Empty(t, deps.creator.created)
	assert.Empty(t, deps.enqueuer.tasks)
}

func TestSubmitter_Submit_ClosedWindowRejected(t *testing.T) {
	s, deps := newSubmitter(t)
	deps.window.open = false

	_, err := s.Submit(context.Background(), validRequest())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeValidationFailed, errors.Code(err))
	assert.Empty(t, deps.store.uploads)
}

func TestSubmitter_Submit_UndecodableImageRejectedBeforeUpload(t *testing.T) {
	s, deps := newSubmitter(t)
	req := validRequest()
	req.BackImage = "%%%not-base64%%%"

	_, err := s.Submit(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeImageDecodeFailed, errors.Code(err))
	assert.Empty(t, deps.store.uploads)
}

// ==========================
// Atomicity Tests
// ==========================

func TestSubmitter_Submit_SecondUploadFailureRollsBackFirst(t *testing.T) {
	s, deps := newSubmitter(t)
	uploadErr := errors.NewObjectStoreError("upload", fmt.Errorf("disk full"))
	deps.store.failUploads["back"] = uploadErr

	_, err := s.Submit(context.Background(), validRequest())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeObjectStoreFailed, errors.Code(err))
	assert.Empty(t, deps.store.uploads, "the surviving upload must be deleted")
	assert.Empty(t, deps.creator.created)
}

func TestSubmitter_Submit_InsertFailureDeletesBothObjects(t *testing.T) {
	s, deps := newSubmitter(t)
	insertErr := errors.NewDatabaseError("submissions.create", fmt.Errorf("connection refused"))
	deps.creator.err = insertErr

	_, err := s.Submit(context.Background(), validRequest())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDatabaseFailed, errors.Code(err))
	assert.Len(t, deps.store.deletes, 2)
	assert.Empty(t, deps.store.uploads)
}

func TestSubmitter_Submit_CompensationFailureNeverMasksOriginalError(t *testing.T) {
	s, deps := newSubmitter(t)
	insertErr := errors.NewDatabaseError("submissions.create", fmt.Errorf("connection refused"))
	deps.creator.err = insertErr
	deps.store.failDelete = fmt.Errorf("delete refused")

	_, err := s.Submit(context.Background(), validRequest())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDatabaseFailed, errors.Code(err),
		"caller must see the insert failure, not the compensation failure")
}
