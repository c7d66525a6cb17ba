// internal/repository/window.go
package repository

import (
	"context"
	"database/sql"
	"time"

	"docverify/internal/common/errors"
	"docverify/internal/models"
)

// WindowRepository persists the application window. All mutations are
// single conditional UPDATEs; callers learn from the row count whether
// the precondition held.
type WindowRepository struct {
	db *sql.DB
}

func NewWindowRepository(db *sql.DB) *WindowRepository {
	return &WindowRepository{db: db}
}

// Get returns the current window, which is the most recently created row.
func (r *WindowRepository) Get(ctx context.Context) (*models.ApplicationWindow, error) {
	var w models.ApplicationWindow
	var deadline sql.NullTime
	var updatedBy sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT id, is_open, deadline, auto_closed, updated_by, created_at, updated_at
		FROM application_window
		ORDER BY created_at DESC
		LIMIT 1`).Scan(&w.ID, &w.IsOpen, &deadline, &w.AutoClosed, &updatedBy, &w.CreatedAt, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("application window", "")
	}
	if err != nil {
		return nil, errors.NewDatabaseError("window.get", err)
	}

	if deadline.Valid {
		t := deadline.Time
		w.Deadline = &t
	}
	w.UpdatedBy = updatedBy.String
	return &w, nil
}

// Open opens a closed window and sets its deadline, clearing any
// auto-close marker from the previous cycle. Returns false when the
// window was already open.
func (r *WindowRepository) Open(ctx context.Context, id string, deadline *time.Time, actor string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE application_window
		SET is_open = true, deadline = $2, auto_closed = false, updated_by = $3, updated_at = now()
		WHERE id = $1 AND is_open = false`,
		id, nullableTime(deadline), actor,
	)
	if err != nil {
		return false, errors.NewDatabaseError("window.open", err)
	}
	return rowsAffected(res, "window.open")
}

// Close closes an open window on behalf of an admin, so the close is
// recorded as manual. Returns false when the window was already closed.
func (r *WindowRepository) Close(ctx context.Context, id, actor string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE application_window
		SET is_open = false, auto_closed = false, updated_by = $2, updated_at = now()
		WHERE id = $1 AND is_open = true`,
		id, actor,
	)
	if err != nil {
		return false, errors.NewDatabaseError("window.close", err)
	}
	return rowsAffected(res, "window.close")
}

// SetDeadline changes the deadline of an open window. Returns false
// when the window is closed.
func (r *WindowRepository) SetDeadline(ctx context.Context, id string, deadline time.Time, actor string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE application_window
		SET deadline = $2, updated_by = $3, updated_at = now()
		WHERE id = $1 AND is_open = true`,
		id, deadline, actor,
	)
	if err != nil {
		return false, errors.NewDatabaseError("window.deadline", err)
	}
	return rowsAffected(res, "window.deadline")
}

// CloseIfDeadlinePassed closes the window when its deadline is at or
// before now, marking the close as automatic and attributing it to the
// system principal. The same conditional UPDATE makes the minute tick
// idempotent.
func (r *WindowRepository) CloseIfDeadlinePassed(ctx context.Context, now time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE application_window
		SET is_open = false, auto_closed = true, updated_by = $2, updated_at = now()
		WHERE is_open = true AND deadline IS NOT NULL AND deadline <= $1`,
		now, models.SystemPrincipal,
	)
	if err != nil {
		return false, errors.NewDatabaseError("window.autoclose", err)
	}
	return rowsAffected(res, "window.autoclose")
}

func rowsAffected(res sql.Result, op string) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.NewDatabaseError(op, err)
	}
	return n > 0, nil
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
