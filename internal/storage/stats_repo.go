package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LevelFunc derives the cached level column from an XP total.
type LevelFunc func(xp int) int

type StatsRepo struct {
	db    *sql.DB
	level LevelFunc
	retry RetryPolicy
}

func NewStatsRepo(db *sql.DB, level LevelFunc, retry RetryPolicy) *StatsRepo {
	return &StatsRepo{db: db, level: level, retry: retry}
}

func (r *StatsRepo) Get(ctx context.Context, userID string) (*UserStats, error) {
	return getStats(ctx, r.db, userID)
}

func getStats(ctx context.Context, q execer, userID string) (*UserStats, error) {
	row := q.QueryRowContext(ctx, `SELECT user_id, xp, level, updated_at FROM user_stats WHERE user_id = ?`, userID)

	var s UserStats
	if err := row.Scan(&s.UserID, &s.XP, &s.Level, &s.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("stats get: %w", err)
	}
	return &s, nil
}

func (r *StatsRepo) GetOrCreate(ctx context.Context, userID string) (*UserStats, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO user_stats (user_id, xp, level, updated_at) VALUES (?, 0, 1, ?)
		ON CONFLICT(user_id) DO NOTHING
	`, userID, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("stats insert: %w", err)
	}
	return r.Get(ctx, userID)
}

// ApplyXP adds delta to the user's XP inside one transaction, clamping the
// total at zero, and records the event under key. A key that was already
// applied leaves XP untouched and returns the original event with
// applied=false.
func (r *StatsRepo) ApplyXP(ctx context.Context, userID, key, kind string, delta int) (ev XPEvent, applied bool, err error) {
	type result struct {
		ev      XPEvent
		applied bool
	}
	res, err := withRetry(ctx, r.retry, func() (result, error) {
		var out result
		err := WithTx(ctx, r.db, func(tx *sql.Tx) error {
			now := time.Now().UTC()
			// Claim the key first: the write takes the database lock, so the
			// read below cannot interleave with another writer.
			claim, err := tx.ExecContext(ctx, `
				INSERT INTO xp_events (key, user_id, kind, delta, xp_before, xp_after, created_at)
				VALUES (?, ?, ?, 0, 0, 0, ?)
				ON CONFLICT(key) DO NOTHING
			`, key, userID, kind, now)
			if err != nil {
				return fmt.Errorf("xp event claim: %w", err)
			}
			n, err := claim.RowsAffected()
			if err != nil {
				return fmt.Errorf("xp event rows: %w", err)
			}
			if n == 0 {
				prev, err := getXPEvent(ctx, tx, key)
				if err != nil {
					return err
				}
				out = result{ev: *prev}
				return nil
			}

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO user_stats (user_id, xp, level, updated_at) VALUES (?, 0, 1, ?)
				ON CONFLICT(user_id) DO NOTHING
			`, userID, now); err != nil {
				return fmt.Errorf("stats ensure: %w", err)
			}

			var before, after int
			if err := tx.QueryRowContext(ctx, `SELECT xp FROM user_stats WHERE user_id = ?`, userID).Scan(&before); err != nil {
				return fmt.Errorf("stats read xp: %w", err)
			}
			if err := tx.QueryRowContext(ctx, `
				UPDATE user_stats SET xp = MAX(0, xp + ?), updated_at = ?
				WHERE user_id = ?
				RETURNING xp
			`, delta, now, userID).Scan(&after); err != nil {
				return fmt.Errorf("stats increment xp: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `UPDATE user_stats SET level = ? WHERE user_id = ?`, r.level(after), userID); err != nil {
				return fmt.Errorf("stats update level: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE xp_events SET delta = ?, xp_before = ?, xp_after = ? WHERE key = ?
			`, after-before, before, after, key); err != nil {
				return fmt.Errorf("xp event record: %w", err)
			}

			out = result{
				ev: XPEvent{
					Key:       key,
					UserID:    userID,
					Kind:      kind,
					Delta:     after - before,
					XPBefore:  before,
					XPAfter:   after,
					CreatedAt: now,
				},
				applied: true,
			}
			return nil
		})
		return out, err
	})
	if err != nil {
		return XPEvent{}, false, err
	}
	return res.ev, res.applied, nil
}

func getXPEvent(ctx context.Context, q execer, key string) (*XPEvent, error) {
	var ev XPEvent
	err := q.QueryRowContext(ctx, `
		SELECT key, user_id, kind, delta, xp_before, xp_after, created_at
		FROM xp_events WHERE key = ?
	`, key).Scan(&ev.Key, &ev.UserID, &ev.Kind, &ev.Delta, &ev.XPBefore, &ev.XPAfter, &ev.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("xp event get: %w", err)
	}
	return &ev, nil
}

// ListEvents returns the most recent XP events for a user, newest first.
func (r *StatsRepo) ListEvents(ctx context.Context, userID string, limit int) ([]XPEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT key, user_id, kind, delta, xp_before, xp_after, created_at
		FROM xp_events WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("xp events list: %w", err)
	}
	defer rows.Close()

	var out []XPEvent
	for rows.Next() {
		var ev XPEvent
		if err := rows.Scan(&ev.Key, &ev.UserID, &ev.Kind, &ev.Delta, &ev.XPBefore, &ev.XPAfter, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("xp events scan: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("xp events rows: %w", err)
	}
	return out, nil
}
