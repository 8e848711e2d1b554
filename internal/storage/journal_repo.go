package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JournalRepo struct {
	db *sql.DB
}

func NewJournalRepo(db *sql.DB) *JournalRepo {
	return &JournalRepo{db: db}
}

type JournalInsert struct {
	UserID    string
	Title     string
	Content   string
	Mood      int
	Tags      []string
	Sentiment string
	CreatedAt time.Time
}

func (r *JournalRepo) Insert(ctx context.Context, in JournalInsert) (string, error) {
	tags, err := encodeTags(in.Tags)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO journal_entries (id, user_id, title, content, mood, tags, sentiment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, in.UserID, in.Title, in.Content, in.Mood, tags, in.Sentiment, in.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("journal insert: %w", err)
	}
	return id, nil
}

func (r *JournalRepo) Get(ctx context.Context, userID, id string) (*JournalEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, content, mood, tags, sentiment, created_at, updated_at
		FROM journal_entries WHERE user_id = ? AND id = ?
	`, userID, id)
	return scanJournalRow(row)
}

func (r *JournalRepo) ListAll(ctx context.Context, userID string) ([]JournalEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, content, mood, tags, sentiment, created_at, updated_at
		FROM journal_entries WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("journal list: %w", err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		e, err := scanJournalRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal list rows: %w", err)
	}
	return out, nil
}

// CountCreatedBetween counts entries with from <= created_at < to.
func (r *JournalRepo) CountCreatedBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM journal_entries
		WHERE user_id = ? AND created_at >= ? AND created_at < ?
	`, userID, from.UTC(), to.UTC()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("journal count: %w", err)
	}
	return n, nil
}

func (r *JournalRepo) Update(ctx context.Context, e JournalEntry) error {
	tags, err := encodeTags(e.Tags)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE journal_entries SET title = ?, content = ?, mood = ?, tags = ?, updated_at = ?
		WHERE user_id = ? AND id = ?
	`, e.Title, e.Content, e.Mood, tags, time.Now().UTC(), e.UserID, e.ID)
	if err != nil {
		return fmt.Errorf("journal update: %w", err)
	}
	return nil
}

func (r *JournalRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM journal_entries WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return false, fmt.Errorf("journal delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("journal delete rows: %w", err)
	}
	return n > 0, nil
}

func encodeTags(tags []string) (*string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("marshal tags: %w", err)
	}
	s := string(data)
	return &s, nil
}

func scanJournalRow(row scanner) (*JournalEntry, error) {
	var (
		e         JournalEntry
		tagsRaw   sql.NullString
		updatedAt sql.NullTime
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Content, &e.Mood, &tagsRaw, &e.Sentiment, &e.CreatedAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("journal scan: %w", err)
	}
	if tagsRaw.Valid && tagsRaw.String != "" {
		if err := json.Unmarshal([]byte(tagsRaw.String), &e.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags: %w", err)
		}
	}
	if updatedAt.Valid {
		v := updatedAt.Time
		e.UpdatedAt = &v
	}
	return &e, nil
}
