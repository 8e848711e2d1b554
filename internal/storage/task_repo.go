package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

type TaskRepo struct {
	db *sql.DB
}

func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

type TaskInsert struct {
	UserID           string
	Title            string
	Description      *string
	DueDate          civil.Date
	Priority         string
	Category         string
	HabitID          *string
	ReminderTime     *string
	EstimatedMinutes *int
}

const taskColumns = `id, user_id, title, description, completed, completed_at, due_date,
	priority, category, habit_id, reminder_time, estimated_minutes, xp_awarded, created_at`

func (r *TaskRepo) Insert(ctx context.Context, in TaskInsert) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (
			id, user_id, title, description,
			due_date, priority, category,
			habit_id, reminder_time, estimated_minutes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, in.UserID, in.Title, in.Description, in.DueDate.String(), in.Priority, in.Category,
		in.HabitID, in.ReminderTime, in.EstimatedMinutes, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("task insert: %w", err)
	}
	return id, nil
}

func (r *TaskRepo) Get(ctx context.Context, userID, id string) (*Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = ? AND id = ?`, userID, id)
	return scanTaskRow(row)
}

func (r *TaskRepo) ListAll(ctx context.Context, userID string) ([]Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY due_date ASC, created_at ASC`, userID)
}

func (r *TaskRepo) ListDueOn(ctx context.Context, userID string, day civil.Date) ([]Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = ? AND due_date = ? ORDER BY created_at ASC`, userID, day.String())
}

func (r *TaskRepo) ListByHabit(ctx context.Context, userID, habitID string) ([]Task, error) {
	return r.list(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = ? AND habit_id = ? ORDER BY due_date ASC`, userID, habitID)
}

func (r *TaskRepo) list(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("task list: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("task list rows: %w", err)
	}
	return out, nil
}

func (r *TaskRepo) CountIncomplete(ctx context.Context, userID string) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE user_id = ? AND completed = 0`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("task count incomplete: %w", err)
	}
	return n, nil
}

// SetCompleted flips the completion flag. It reports false when the task was
// already in the requested state, which lets callers treat a double toggle
// as a no-op.
func (r *TaskRepo) SetCompleted(ctx context.Context, userID, id string, completed bool, at time.Time, xpAwarded int) (bool, error) {
	var completedAt *time.Time
	if completed {
		utc := at.UTC()
		completedAt = &utc
	} else {
		xpAwarded = 0
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks SET completed = ?, completed_at = ?, xp_awarded = ?
		WHERE user_id = ? AND id = ? AND completed = ?
	`, boolToInt(completed), completedAt, xpAwarded, userID, id, boolToInt(!completed))
	if err != nil {
		return false, fmt.Errorf("task set completed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("task set completed rows: %w", err)
	}
	return n > 0, nil
}

func (r *TaskRepo) Update(ctx context.Context, t Task) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, due_date = ?, priority = ?, category = ?,
			reminder_time = ?, estimated_minutes = ?
		WHERE user_id = ? AND id = ?
	`, t.Title, t.Description, t.DueDate.String(), t.Priority, t.Category,
		t.ReminderTime, t.EstimatedMinutes, t.UserID, t.ID)
	if err != nil {
		return fmt.Errorf("task update: %w", err)
	}
	return nil
}

func (r *TaskRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return false, fmt.Errorf("task delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("task delete rows: %w", err)
	}
	return n > 0, nil
}

// deleteTasks removes the given tasks using q, so callers can batch it
// with other writes in one transaction.
func deleteTasks(ctx context.Context, q execer, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}
	res, err := q.ExecContext(ctx, `DELETE FROM tasks WHERE user_id = ? AND id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("task delete many: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("task delete many rows: %w", err)
	}
	return int(n), nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTaskRow(row scanner) (*Task, error) {
	var (
		t                Task
		description      sql.NullString
		completed        int
		completedAt      sql.NullTime
		dueDate          string
		habitID          sql.NullString
		reminderTime     sql.NullString
		estimatedMinutes sql.NullInt64
	)

	if err := row.Scan(
		&t.ID, &t.UserID, &t.Title, &description, &completed, &completedAt, &dueDate,
		&t.Priority, &t.Category, &habitID, &reminderTime, &estimatedMinutes, &t.XPAwarded, &t.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("task scan: %w", err)
	}

	due, err := civil.ParseDate(dueDate)
	if err != nil {
		return nil, fmt.Errorf("task %s due date: %w", t.ID, err)
	}
	t.DueDate = due
	t.Completed = completed != 0
	t.Description = nullString(description)
	t.HabitID = nullString(habitID)
	t.ReminderTime = nullString(reminderTime)
	if completedAt.Valid {
		v := completedAt.Time
		t.CompletedAt = &v
	}
	if estimatedMinutes.Valid {
		v := int(estimatedMinutes.Int64)
		t.EstimatedMinutes = &v
	}
	return &t, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
