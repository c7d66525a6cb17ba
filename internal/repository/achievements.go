// internal/repository/achievements.go
package repository

import (
	"context"
	"database/sql"
	stderrors "errors"

	"docverify/internal/common/errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Achievement events.
const (
	AchievementEventOCRApproved    = "ocrApproved"
	AchievementEventEventCompleted = "eventCompleted"
)

// AchievementRepository records credits with an audit row per
// (owner, event, reference) so replays of the same job credit once.
type AchievementRepository struct {
	db *sql.DB
}

func NewAchievementRepository(db *sql.DB) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// AuditExists reports whether a credit was already recorded for this
// owner, event and reference.
func (r *AchievementRepository) AuditExists(ctx context.Context, ownerID, event, refID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM achievement_audit
			WHERE owner_id = $1 AND event = $2 AND ref_id = $3
		)`, ownerID, event, refID).Scan(&exists)
	if err != nil {
		return false, errors.NewDatabaseError("achievements.audit", err)
	}
	return exists, nil
}

// RecordCredit writes the audit row and the credit in one transaction.
// Returns false without error when the audit row already exists, which
// is how a redelivered job lands.
func (r *AchievementRepository) RecordCredit(ctx context.Context, ownerID, event, refID string, points int) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, errors.NewDatabaseError("achievements.credit", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO achievement_audit (id, owner_id, event, ref_id, created_at)
		VALUES ($1, $2, $3, $4, now())`,
		uuid.NewString(), ownerID, event, refID,
	)
	if err != nil {
		var pqErr *pq.Error
		if stderrors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return false, nil
		}
		return false, errors.NewDatabaseError("achievements.credit", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO achievement_credits (id, owner_id, event, ref_id, points, created_at)
		VALUES ($1, $2, $3, $4, $5, now())`,
		uuid.NewString(), ownerID, event, refID, points,
	)
	if err != nil {
		return false, errors.NewDatabaseError("achievements.credit", err)
	}

	if err := tx.Commit(); err != nil {
		return false, errors.NewDatabaseError("achievements.credit", err)
	}
	return true, nil
}
