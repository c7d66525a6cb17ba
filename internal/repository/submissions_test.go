package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"docverify/internal/common/errors"
	"docverify/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newSubmissionRepo(t *testing.T) (*SubmissionRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSubmissionRepository(db), mock
}

func pendingSubmission() *models.FormSubmission {
	return &models.FormSubmission{
		ID:                   "sub-1",
		OwnerID:              "owner-1",
		ControlNumber:        "HTS-12345678-042",
		Status:               models.SubmissionStatusPending,
		TestResult:           models.TestResultNonReactive,
		FrontImageKey:        "forms/sub-1/front.enc",
		BackImageKey:         "forms/sub-1/back.enc",
		FrontImageIV:         "aXYtZnJvbnQ=",
		BackImageIV:          "aXYtYmFjaw==",
		EncryptedPayload:     "ZW5jcnlwdGVkLXBheWxvYWQ=",
		PayloadIV:            "aXYtcGF5bG9hZA==",
		ExtractionConfidence: 91.5,
		StructureVersion:     models.StructureVersionV1,
	}
}

func submissionColumns() []string {
	return []string{
		"id", "owner_id", "control_number", "status", "test_result",
		"front_image_key", "back_image_key", "front_image_iv", "back_image_iv",
		"encrypted_payload", "payload_iv", "extraction_confidence", "structure_version",
		"extracted_data", "review_notes", "reviewed_by", "reviewed_at", "created_at", "updated_at",
	}
}

// ==========================
// Control Number Tests
// ==========================

func TestGenerateControlNumber_Format(t *testing.T) {
	for i := 0; i < 20; i++ {
		cn := GenerateControlNumber()
		assert.Regexp(t, regexp.MustCompile(`^HTS-\d{8}-\d{3}$`), cn)
	}
}

// ==========================
// Submission Tests
// ==========================

func TestSubmissionRepository_Create(t *testing.T) {
	repo, mock := newSubmissionRepo(t)

	mock.ExpectExec(`INSERT INTO form_submissions`).
		WithArgs("sub-1", "owner-1", "HTS-12345678-042", models.SubmissionStatusPending, models.TestResultNonReactive,
			"forms/sub-1/front.enc", "forms/sub-1/back.enc", "aXYtZnJvbnQ=", "aXYtYmFjaw==",
			"ZW5jcnlwdGVkLXBheWxvYWQ=", "aXYtcGF5bG9hZA==", 91.5, models.StructureVersionV1, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), pendingSubmission())

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepository_Create_UniqueViolationIsDuplicate(t *testing.T) {
	repo, mock := newSubmissionRepo(t)

	mock.ExpectExec(`INSERT INTO form_submissions`).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "form_submissions_control_number_key"})

	err := repo.Create(context.Background(), pendingSubmission())

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeDuplicateSubmission, errors.Code(err))
	assert.False(t, errors.IsRetryable(err))
}

func TestSubmissionRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newSubmissionRepo(t)

	mock.ExpectQuery(`SELECT id, owner_id, control_number`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), "missing")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.Code(err))
}

func TestSubmissionRepository_GetByID_DecodesExtractedData(t *testing.T) {
	repo, mock := newSubmissionRepo(t)
	now := time.Now()

	extracted := `{"fields":{"firstName":{"value":"Juan","confidence":91.5}},"avgConfidence":91.5,"mode":"hybrid","needsReview":false,"analyzedAt":"2026-08-28T10:00:00Z"}`
	mock.ExpectQuery(`SELECT id, owner_id, control_number`).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows(submissionColumns()).
			AddRow("sub-1", "owner-1", "HTS-12345678-042", "pending", "non-reactive",
				"forms/sub-1/front.enc", "forms/sub-1/back.enc", "aXYtZnJvbnQ=", "aXYtYmFjaw==",
				"ZW5jcnlwdGVkLXBheWxvYWQ=", "aXYtcGF5bG9hZA==", 91.5, "v1",
				[]byte(extracted), nil, nil, nil, now, now))

	s, err := repo.GetByID(context.Background(), "sub-1")

	require.NoError(t, err)
	require.NotNil(t, s.ExtractedData)
	assert.Equal(t, "Juan", s.ExtractedData.Fields["firstName"].Value)
	assert.InDelta(t, 91.5, s.ExtractedData.AvgConfidence, 0.01)
}

func TestSubmissionRepository_GetByID_CarriesEncryptionEnvelope(t *testing.T) {
	repo, mock := newSubmissionRepo(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, owner_id, control_number`).
		WithArgs("sub-1").
		WillReturnRows(sqlmock.NewRows(submissionColumns()).
			AddRow("sub-1", "owner-1", "HTS-12345678-042", "pending", "reactive",
				"forms/sub-1/front.enc", "forms/sub-1/back.enc", "aXYtZnJvbnQ=", "aXYtYmFjaw==",
				"ZW5jcnlwdGVkLXBheWxvYWQ=", "aXYtcGF5bG9hZA==", 88.25, "v2",
				nil, nil, nil, nil, now, now))

	s, err := repo.GetByID(context.Background(), "sub-1")

	require.NoError(t, err)
	assert.Equal(t, models.TestResultReactive, s.TestResult)
	assert.Equal(t, "aXYtZnJvbnQ=", s.FrontImageIV)
	assert.Equal(t, "aXYtYmFjaw==", s.BackImageIV)
	assert.Equal(t, "ZW5jcnlwdGVkLXBheWxvYWQ=", s.EncryptedPayload)
	assert.Equal(t, "aXYtcGF5bG9hZA==", s.PayloadIV)
	assert.InDelta(t, 88.25, s.ExtractionConfidence, 0.01)
	assert.Equal(t, models.StructureVersionV2, s.StructureVersion)
	assert.Nil(t, s.ExtractedData)
}

func TestSubmissionRepository_UpdateReview_OnlyPendingRowsMatch(t *testing.T) {
	repo, mock := newSubmissionRepo(t)

	mock.ExpectExec(`UPDATE form_submissions`).
		WithArgs("sub-1", models.SubmissionStatusApproved, "looks good", "reviewer-1", models.SubmissionStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := repo.UpdateReview(context.Background(), "sub-1", models.SubmissionStatusApproved, "looks good", "reviewer-1")

	require.NoError(t, err)
	assert.False(t, applied)
}

func TestSubmissionRepository_UpdateExtractedData_NotFound(t *testing.T) {
	repo, mock := newSubmissionRepo(t)

	mock.ExpectExec(`UPDATE form_submissions`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateExtractedData(context.Background(), "missing", &models.ExtractedData{Mode: models.ExtractionModeHybrid})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeNotFound, errors.Code(err))
}
