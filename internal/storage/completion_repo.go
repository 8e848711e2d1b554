package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
)

// CompletionRepo manages the per-habit completion-date set. Uniqueness of
// (habit_id, completed_date) is enforced by the schema.
type CompletionRepo struct {
	db *sql.DB
}

func NewCompletionRepo(db *sql.DB) *CompletionRepo {
	return &CompletionRepo{db: db}
}

// Insert adds day to the habit's completion set. It reports false when the
// day was already present.
func (r *CompletionRepo) Insert(ctx context.Context, userID, habitID string, day civil.Date) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO habit_completions (habit_id, user_id, completed_date, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(habit_id, completed_date) DO NOTHING
	`, habitID, userID, day.String(), time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("completion insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("completion insert rows: %w", err)
	}
	return n > 0, nil
}

// Delete removes exactly one day from the habit's completion set.
func (r *CompletionRepo) Delete(ctx context.Context, userID, habitID string, day civil.Date) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM habit_completions WHERE user_id = ? AND habit_id = ? AND completed_date = ?
	`, userID, habitID, day.String())
	if err != nil {
		return false, fmt.Errorf("completion delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("completion delete rows: %w", err)
	}
	return n > 0, nil
}

// CountByDay returns the number of habit completions per day in [from, to].
func (r *CompletionRepo) CountByDay(ctx context.Context, userID string, from, to civil.Date) (map[civil.Date]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT completed_date, COUNT(*)
		FROM habit_completions
		WHERE user_id = ? AND completed_date >= ? AND completed_date <= ?
		GROUP BY completed_date
	`, userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("completion count by day: %w", err)
	}
	defer rows.Close()

	out := map[civil.Date]int{}
	for rows.Next() {
		var raw string
		var n int
		if err := rows.Scan(&raw, &n); err != nil {
			return nil, fmt.Errorf("completion count scan: %w", err)
		}
		d, err := civil.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("completion count date: %w", err)
		}
		out[d] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("completion count rows: %w", err)
	}
	return out, nil
}
