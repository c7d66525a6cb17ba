// internal/repository/applicants.go
package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"docverify/internal/common/errors"
	"docverify/internal/models"
)

// ApplicantRepository persists applicants and their lifecycle state.
type ApplicantRepository struct {
	db *sql.DB
}

func NewApplicantRepository(db *sql.DB) *ApplicantRepository {
	return &ApplicantRepository{db: db}
}

// GetByID fetches one applicant.
func (r *ApplicantRepository) GetByID(ctx context.Context, id string) (*models.Applicant, error) {
	var a models.Applicant
	var notes, phone, updatedBy sql.NullString
	var interview []byte

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, status, review_notes, interview, updated_by, created_at, updated_at
		FROM applicants
		WHERE id = $1`, id).Scan(
		&a.ID, &a.Name, &a.Email, &phone, &a.Status, &notes, &interview, &updatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("applicant", id)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("applicants.get", err)
	}

	a.Phone = phone.String
	a.ReviewNotes = notes.String
	a.UpdatedBy = updatedBy.String
	if len(interview) > 0 {
		var details models.InterviewDetails
		if err := json.Unmarshal(interview, &details); err != nil {
			return nil, errors.NewDatabaseError("applicants.get", err)
		}
		a.Interview = &details
	}
	return &a, nil
}

// UpdateState writes the applicant's new lifecycle state. The WHERE
// clause pins the expected current status so a concurrent transition
// loses cleanly instead of overwriting.
func (r *ApplicantRepository) UpdateState(ctx context.Context, a *models.Applicant, expectedStatus string) (bool, error) {
	var interview interface{}
	if a.Interview != nil {
		data, err := json.Marshal(a.Interview)
		if err != nil {
			return false, errors.NewDatabaseError("applicants.update", err)
		}
		interview = data
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE applicants
		SET status = $2, review_notes = $3, interview = $4, updated_by = $5, updated_at = now()
		WHERE id = $1 AND status = $6`,
		a.ID, a.Status, a.ReviewNotes, interview, a.UpdatedBy, expectedStatus,
	)
	if err != nil {
		return false, errors.NewDatabaseError("applicants.update", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewDatabaseError("applicants.update", err)
	}
	return n > 0, nil
}
