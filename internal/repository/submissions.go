// internal/repository/submissions.go

// Package repository wraps all relational access behind typed methods.
// Every write that guards a state transition is a single conditional
// statement so concurrent writers cannot interleave.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math/rand"
	"time"

	"docverify/internal/common/errors"
	"docverify/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// SubmissionRepository persists form submissions.
type SubmissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// GenerateControlNumber builds a control number from the tail of the
// current unix-millisecond timestamp plus a random 3-digit suffix:
// HTS-<8 digits>-<3 digits>.
func GenerateControlNumber() string {
	ms := fmt.Sprintf("%d", time.Now().UnixMilli())
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	return fmt.Sprintf("HTS-%s-%03d", ms, rand.Intn(1000))
}

// NewSubmissionID returns a fresh submission identifier.
func NewSubmissionID() string {
	return uuid.NewString()
}

// Create inserts a submission row. A control number collision surfaces
// as a duplicate-submission conflict rather than a generic DB error.
func (r *SubmissionRepository) Create(ctx context.Context, s *models.FormSubmission) error {
	var extracted []byte
	if s.ExtractedData != nil {
		data, err := json.Marshal(s.ExtractedData)
		if err != nil {
			return errors.NewDatabaseError("submissions.create", err)
		}
		extracted = data
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO form_submissions
			(id, owner_id, control_number, status, test_result,
			 front_image_key, back_image_key, front_image_iv, back_image_iv,
			 encrypted_payload, payload_iv, extraction_confidence, structure_version,
			 extracted_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())`,
		s.ID, s.OwnerID, s.ControlNumber, s.Status, s.TestResult,
		s.FrontImageKey, s.BackImageKey, s.FrontImageIV, s.BackImageIV,
		s.EncryptedPayload, s.PayloadIV, s.ExtractionConfidence, s.StructureVersion,
		nullableJSON(extracted),
	)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return errors.NewDuplicateSubmissionError(s.ControlNumber)
		}
		return errors.NewDatabaseError("submissions.create", err)
	}
	return nil
}

// GetByID fetches one submission.
func (r *SubmissionRepository) GetByID(ctx context.Context, id string) (*models.FormSubmission, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, control_number, status, test_result,
		       front_image_key, back_image_key, front_image_iv, back_image_iv,
		       encrypted_payload, payload_iv, extraction_confidence, structure_version,
		       extracted_data, review_notes, reviewed_by, reviewed_at, created_at, updated_at
		FROM form_submissions
		WHERE id = $1`, id)
	return scanSubmission(row, id)
}

// ListByOwner returns an owner's submissions, newest first.
func (r *SubmissionRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*models.FormSubmission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, control_number, status, test_result,
		       front_image_key, back_image_key, front_image_iv, back_image_iv,
		       encrypted_payload, payload_iv, extraction_confidence, structure_version,
		       extracted_data, review_notes, reviewed_by, reviewed_at, created_at, updated_at
		FROM form_submissions
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, ownerID, limit, offset)
	if err != nil {
		return nil, errors.NewDatabaseError("submissions.list", err)
	}
	defer rows.Close()

	var out []*models.FormSubmission
	for rows.Next() {
		s, err := scanSubmission(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("submissions.list", err)
	}
	return out, nil
}

// UpdateReview applies a review decision. The WHERE clause only matches
// pending rows, so a decided submission stays decided.
func (r *SubmissionRepository) UpdateReview(ctx context.Context, id, status, notes, reviewer string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE form_submissions
		SET status = $2, review_notes = $3, reviewed_by = $4, reviewed_at = now(), updated_at = now()
		WHERE id = $1 AND status = $5`,
		id, status, notes, reviewer, models.SubmissionStatusPending,
	)
	if err != nil {
		return false, errors.NewDatabaseError("submissions.review", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewDatabaseError("submissions.review", err)
	}
	return n > 0, nil
}

// UpdateExtractedData replaces the extracted field payload.
func (r *SubmissionRepository) UpdateExtractedData(ctx context.Context, id string, data *models.ExtractedData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.NewDatabaseError("submissions.extracted", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE form_submissions
		SET extracted_data = $2, updated_at = now()
		WHERE id = $1`, id, payload)
	if err != nil {
		return errors.NewDatabaseError("submissions.extracted", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("submissions.extracted", err)
	}
	if n == 0 {
		return errors.NewNotFoundError("submission", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row rowScanner, id string) (*models.FormSubmission, error) {
	var s models.FormSubmission
	var extracted []byte
	var notes, reviewedBy sql.NullString
	var reviewedAt sql.NullTime

	err := row.Scan(
		&s.ID, &s.OwnerID, &s.ControlNumber, &s.Status, &s.TestResult,
		&s.FrontImageKey, &s.BackImageKey, &s.FrontImageIV, &s.BackImageIV,
		&s.EncryptedPayload, &s.PayloadIV, &s.ExtractionConfidence, &s.StructureVersion,
		&extracted, &notes, &reviewedBy, &reviewedAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("submission", id)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("submissions.get", err)
	}

	if len(extracted) > 0 {
		var data models.ExtractedData
		if err := json.Unmarshal(extracted, &data); err != nil {
			return nil, errors.NewDatabaseError("submissions.get", err)
		}
		s.ExtractedData = &data
	}
	s.ReviewNotes = notes.String
	s.ReviewedBy = reviewedBy.String
	if reviewedAt.Valid {
		t := reviewedAt.Time
		s.ReviewedAt = &t
	}
	return &s, nil
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return b
}
