package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteRepository is a SQLite implementation of Repository.
// asked_at is stored as Unix microseconds.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite history repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Append stores entry.
func (r *SQLiteRepository) Append(ctx context.Context, entry *Entry) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO query_history (question, response, intent, asked_at) VALUES (?, ?, ?, ?)`,
		entry.Question, entry.Response, entry.Intent, entry.AskedAt.UTC().UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("insert query history: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert query history: %w", err)
	}
	entry.ID = id
	return nil
}

// Recent returns the newest entries first.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, question, response, intent, asked_at
		FROM query_history
		ORDER BY asked_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var (
			e     Entry
			asked int64
		)
		if err := rows.Scan(&e.ID, &e.Question, &e.Response, &e.Intent, &asked); err != nil {
			return nil, fmt.Errorf("scan query history: %w", err)
		}
		e.AskedAt = time.UnixMicro(asked).UTC()
		out = append(out, &e)
	}
	return out, rows.Err()
}

var _ Repository = (*SQLiteRepository)(nil)
