package storage

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
)

type MoodRepo struct {
	db *sql.DB
}

func NewMoodRepo(db *sql.DB) *MoodRepo {
	return &MoodRepo{db: db}
}

func (r *MoodRepo) Insert(ctx context.Context, m MoodLog) (string, error) {
	id := uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO mood_logs (id, user_id, mood, energy, log_date, note) VALUES (?, ?, ?, ?, ?, ?)
	`, id, m.UserID, m.Mood, m.Energy, m.LogDate.String(), m.Note)
	if err != nil {
		return "", fmt.Errorf("mood insert: %w", err)
	}
	return id, nil
}

// ListRecent returns mood logs newest first.
func (r *MoodRepo) ListRecent(ctx context.Context, userID string, limit int) ([]MoodLog, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, mood, energy, log_date, note
		FROM mood_logs WHERE user_id = ?
		ORDER BY log_date DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("mood list: %w", err)
	}
	defer rows.Close()

	var out []MoodLog
	for rows.Next() {
		var (
			m      MoodLog
			energy sql.NullInt64
			raw    string
			note   sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Mood, &energy, &raw, &note); err != nil {
			return nil, fmt.Errorf("mood scan: %w", err)
		}
		d, err := civil.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("mood log date: %w", err)
		}
		m.LogDate = d
		m.Note = nullString(note)
		if energy.Valid {
			v := int(energy.Int64)
			m.Energy = &v
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mood list rows: %w", err)
	}
	return out, nil
}
