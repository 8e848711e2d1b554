package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

// Upsert creates the category or updates the color of an existing one with
// the same name.
func (r *CategoryRepo) Upsert(ctx context.Context, userID, name, color string) (*Category, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, color) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, name) DO UPDATE SET color = excluded.color
	`, uuid.NewString(), userID, name, color)
	if err != nil {
		return nil, fmt.Errorf("category upsert: %w", err)
	}
	var c Category
	err = r.db.QueryRowContext(ctx, `SELECT id, user_id, name, color FROM categories WHERE user_id = ? AND name = ?`, userID, name).
		Scan(&c.ID, &c.UserID, &c.Name, &c.Color)
	if err != nil {
		return nil, fmt.Errorf("category get: %w", err)
	}
	return &c, nil
}

func (r *CategoryRepo) ListAll(ctx context.Context, userID string) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, name, color FROM categories WHERE user_id = ? ORDER BY name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("category list: %w", err)
	}
	defer rows.Close()

	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color); err != nil {
			return nil, fmt.Errorf("category scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("category rows: %w", err)
	}
	return out, nil
}

func (r *CategoryRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return false, fmt.Errorf("category delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("category delete rows: %w", err)
	}
	return n > 0, nil
}
