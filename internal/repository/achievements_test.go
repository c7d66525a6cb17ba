package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAchievementRepo(t *testing.T) (*AchievementRepository, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewAchievementRepository(db), mock
}

func TestAchievementRepository_AuditExists(t *testing.T) {
	repo, mock := newAchievementRepo(t)

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("owner-1", AchievementEventOCRApproved, "sub-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.AuditExists(context.Background(), "owner-1", AchievementEventOCRApproved, "sub-1")

	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAchievementRepository_RecordCredit(t *testing.T) {
	repo, mock := newAchievementRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO achievement_audit`).
		WithArgs(sqlmock.AnyArg(), "owner-1", AchievementEventOCRApproved, "sub-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO achievement_credits`).
		WithArgs(sqlmock.AnyArg(), "owner-1", AchievementEventOCRApproved, "sub-1", 50).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	recorded, err := repo.RecordCredit(context.Background(), "owner-1", AchievementEventOCRApproved, "sub-1", 50)

	require.NoError(t, err)
	assert.True(t, recorded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAchievementRepository_RecordCredit_ReplayIsIdempotent(t *testing.T) {
	repo, mock := newAchievementRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO achievement_audit`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	recorded, err := repo.RecordCredit(context.Background(), "owner-1", AchievementEventOCRApproved, "sub-1", 50)

	require.NoError(t, err)
	assert.False(t, recorded)
	assert.NoError(t, mock.ExpectationsWereMet())
}
