package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

type HabitRepo struct {
	db *sql.DB
}

func NewHabitRepo(db *sql.DB) *HabitRepo {
	return &HabitRepo{db: db}
}

type HabitInsert struct {
	UserID       string
	Title        string
	Description  *string
	Frequency    string
	Category     string
	Color        string
	ReminderTime *string
	// CreatedAt defaults to now; weekly habits recur on its weekday.
	CreatedAt time.Time
}

const habitColumns = `id, user_id, title, description, frequency, category, color,
	reminder_time, streak, best_streak, created_at`

func (r *HabitRepo) Insert(ctx context.Context, in HabitInsert) (string, error) {
	id := uuid.NewString()
	created := in.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO habits (id, user_id, title, description, frequency, category, color, reminder_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, in.UserID, in.Title, in.Description, in.Frequency, in.Category, in.Color, in.ReminderTime, created.UTC())
	if err != nil {
		return "", fmt.Errorf("habit insert: %w", err)
	}
	return id, nil
}

// Get loads a habit together with its completion dates.
func (r *HabitRepo) Get(ctx context.Context, userID, id string) (*Habit, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE user_id = ? AND id = ?`, userID, id)
	h, err := scanHabitRow(row)
	if err != nil || h == nil {
		return h, err
	}
	dates, err := r.CompletedDates(ctx, id)
	if err != nil {
		return nil, err
	}
	h.CompletedDates = dates
	return h, nil
}

// ListAll loads every habit of the user with completion dates attached.
func (r *HabitRepo) ListAll(ctx context.Context, userID string) ([]Habit, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE user_id = ? ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("habit list: %w", err)
	}
	defer rows.Close()

	var out []Habit
	index := map[string]int{}
	for rows.Next() {
		h, err := scanHabitRow(rows)
		if err != nil {
			return nil, err
		}
		index[h.ID] = len(out)
		out = append(out, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("habit list rows: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	crows, err := r.db.QueryContext(ctx, `
		SELECT habit_id, completed_date FROM habit_completions
		WHERE user_id = ? ORDER BY completed_date ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("habit completions list: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var habitID, raw string
		if err := crows.Scan(&habitID, &raw); err != nil {
			return nil, fmt.Errorf("habit completions scan: %w", err)
		}
		i, ok := index[habitID]
		if !ok {
			continue
		}
		d, err := civil.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("habit %s completion date: %w", habitID, err)
		}
		out[i].CompletedDates = append(out[i].CompletedDates, d)
	}
	if err := crows.Err(); err != nil {
		return nil, fmt.Errorf("habit completions rows: %w", err)
	}
	return out, nil
}

func (r *HabitRepo) Update(ctx context.Context, h Habit) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE habits
		SET title = ?, description = ?, frequency = ?, category = ?, color = ?, reminder_time = ?
		WHERE user_id = ? AND id = ?
	`, h.Title, h.Description, h.Frequency, h.Category, h.Color, h.ReminderTime, h.UserID, h.ID)
	if err != nil {
		return fmt.Errorf("habit update: %w", err)
	}
	return nil
}

// SetStreak stores the current streak and raises best_streak to it when
// higher. best_streak is never lowered.
func (r *HabitRepo) SetStreak(ctx context.Context, userID, id string, streak int) (best int, err error) {
	err = r.db.QueryRowContext(ctx, `
		UPDATE habits SET streak = ?, best_streak = MAX(best_streak, ?)
		WHERE user_id = ? AND id = ?
		RETURNING best_streak
	`, streak, streak, userID, id).Scan(&best)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("habit set streak: %w", err)
	}
	return best, nil
}

// Delete removes the habit; its completion rows go with it via ON DELETE CASCADE.
// DeleteWithTasks removes a habit together with the given derived tasks in
// one transaction. Completion rows go with the habit through the cascade.
func (r *HabitRepo) DeleteWithTasks(ctx context.Context, userID, id string, taskIDs []string) (int, bool, error) {
	var (
		deleted int
		found   bool
	)
	err := WithTx(ctx, r.db, func(tx *sql.Tx) error {
		n, err := deleteTasks(ctx, tx, userID, taskIDs)
		if err != nil {
			return err
		}
		deleted = n
		res, err := tx.ExecContext(ctx, `DELETE FROM habits WHERE user_id = ? AND id = ?`, userID, id)
		if err != nil {
			return fmt.Errorf("habit delete: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("habit delete rows: %w", err)
		}
		found = rows > 0
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return deleted, found, nil
}

func (r *HabitRepo) CompletedDates(ctx context.Context, habitID string) ([]civil.Date, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT completed_date FROM habit_completions WHERE habit_id = ? ORDER BY completed_date ASC
	`, habitID)
	if err != nil {
		return nil, fmt.Errorf("habit completed dates: %w", err)
	}
	defer rows.Close()

	var out []civil.Date
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("habit completed dates scan: %w", err)
		}
		d, err := civil.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("habit %s completion date: %w", habitID, err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("habit completed dates rows: %w", err)
	}
	return out, nil
}

func scanHabitRow(row scanner) (*Habit, error) {
	var (
		h            Habit
		description  sql.NullString
		reminderTime sql.NullString
	)
	if err := row.Scan(
		&h.ID, &h.UserID, &h.Title, &description, &h.Frequency, &h.Category, &h.Color,
		&reminderTime, &h.Streak, &h.BestStreak, &h.CreatedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("habit scan: %w", err)
	}
	h.Description = nullString(description)
	h.ReminderTime = nullString(reminderTime)
	return &h, nil
}
