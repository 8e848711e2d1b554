package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type FocusRepo struct {
	db *sql.DB
}

func NewFocusRepo(db *sql.DB) *FocusRepo {
	return &FocusRepo{db: db}
}

type FocusInsert struct {
	UserID    string
	Mode      string
	Duration  int
	TaskID    *string
	TaskTitle *string
	StartedAt time.Time
}

const focusColumns = `id, user_id, mode, duration, completed_duration, task_id, task_title,
	started_at, completed_at, completed`

func (r *FocusRepo) Insert(ctx context.Context, in FocusInsert) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO focus_sessions (id, user_id, mode, duration, task_id, task_title, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, in.UserID, in.Mode, in.Duration, in.TaskID, in.TaskTitle, in.StartedAt.UTC())
	if err != nil {
		return "", fmt.Errorf("focus insert: %w", err)
	}
	return id, nil
}

func (r *FocusRepo) Get(ctx context.Context, userID, id string) (*FocusSession, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+focusColumns+` FROM focus_sessions WHERE user_id = ? AND id = ?`, userID, id)
	return scanFocusRow(row)
}

func (r *FocusRepo) ListAll(ctx context.Context, userID string) ([]FocusSession, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+focusColumns+` FROM focus_sessions WHERE user_id = ? ORDER BY started_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("focus list: %w", err)
	}
	defer rows.Close()

	var out []FocusSession
	for rows.Next() {
		s, err := scanFocusRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("focus list rows: %w", err)
	}
	return out, nil
}

// MarkCompleted completes a running session. It reports false when the
// session was already completed.
func (r *FocusRepo) MarkCompleted(ctx context.Context, userID, id string, completedMinutes int, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE focus_sessions SET completed = 1, completed_duration = ?, completed_at = ?
		WHERE user_id = ? AND id = ? AND completed = 0
	`, completedMinutes, at.UTC(), userID, id)
	if err != nil {
		return false, fmt.Errorf("focus complete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("focus complete rows: %w", err)
	}
	return n > 0, nil
}

// Reopen undoes MarkCompleted so a failed completion can be retried.
func (r *FocusRepo) Reopen(ctx context.Context, userID, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE focus_sessions SET completed = 0, completed_duration = 0, completed_at = NULL
		WHERE user_id = ? AND id = ? AND completed = 1
	`, userID, id)
	if err != nil {
		return fmt.Errorf("focus reopen: %w", err)
	}
	return nil
}

func scanFocusRow(row scanner) (*FocusSession, error) {
	var (
		s           FocusSession
		taskID      sql.NullString
		taskTitle   sql.NullString
		completedAt sql.NullTime
		completed   int
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Mode, &s.Duration, &s.CompletedDuration, &taskID, &taskTitle,
		&s.StartedAt, &completedAt, &completed); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("focus scan: %w", err)
	}
	s.TaskID = nullString(taskID)
	s.TaskTitle = nullString(taskTitle)
	s.Completed = completed != 0
	if completedAt.Valid {
		v := completedAt.Time
		s.CompletedAt = &v
	}
	return &s, nil
}
