package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL history repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Append stores entry.
func (r *PostgresRepository) Append(ctx context.Context, entry *Entry) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO query_history (question, response, intent, asked_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		entry.Question, entry.Response, entry.Intent, entry.AskedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("insert query history: %w", err)
	}
	return nil
}

// Recent returns the newest entries first.
func (r *PostgresRepository) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, question, response, intent, asked_at
		FROM query_history
		ORDER BY asked_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Question, &e.Response, &e.Intent, &e.AskedAt); err != nil {
			return nil, fmt.Errorf("scan query history: %w", err)
		}
		e.AskedAt = e.AskedAt.UTC()
		out = append(out, &e)
	}
	return out, rows.Err()
}

var _ Repository = (*PostgresRepository)(nil)
