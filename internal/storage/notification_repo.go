package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"arise/internal/notify"
)

// NotificationRepo is the reminders outbox. It implements notify.Scheduler:
// scheduling upserts by notification id, cancelling deletes.
type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

var _ notify.Scheduler = (*NotificationRepo)(nil)

func (r *NotificationRepo) Schedule(ctx context.Context, userID string, req notify.Request) error {
	var at *time.Time
	if req.Kind == notify.KindOneShot {
		v := req.At.UTC()
		at = &v
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scheduled_notifications (id, user_id, title, body, repeats, hour, minute, at, extra, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, id) DO UPDATE SET
			title = excluded.title, body = excluded.body, repeats = excluded.repeats,
			hour = excluded.hour, minute = excluded.minute, at = excluded.at,
			extra = excluded.extra, updated_at = excluded.updated_at
	`, req.ID, userID, req.Title, req.Body, boolToInt(req.Kind == notify.KindRepeating),
		req.Hour, req.Minute, at, req.TaskID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("notification schedule: %w", err)
	}
	return nil
}

func (r *NotificationRepo) Cancel(ctx context.Context, userID string, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM scheduled_notifications WHERE user_id = ? AND id = ?`, userID, id); err != nil {
		return fmt.Errorf("notification cancel: %w", err)
	}
	return nil
}

func (r *NotificationRepo) ListAll(ctx context.Context, userID string) ([]ScheduledNotification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, body, repeats, hour, minute, at, extra, updated_at
		FROM scheduled_notifications WHERE user_id = ?
		ORDER BY repeats DESC, at ASC, id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("notification list: %w", err)
	}
	defer rows.Close()

	var out []ScheduledNotification
	for rows.Next() {
		var (
			n       ScheduledNotification
			repeats int
			at      sql.NullTime
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &repeats, &n.Hour, &n.Minute, &at, &n.Extra, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("notification scan: %w", err)
		}
		n.Repeats = repeats != 0
		if at.Valid {
			v := at.Time
			n.At = &v
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notification rows: %w", err)
	}
	return out, nil
}
