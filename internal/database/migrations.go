package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var postgresMigrations = []migration{
	{
		Version:     1,
		Description: "Float records",
		SQL: `
CREATE TABLE IF NOT EXISTS argo_floats (
    id BIGSERIAL PRIMARY KEY,
    platform_number TEXT NOT NULL,
    cycle_number INTEGER,
    file_name TEXT NOT NULL DEFAULT '',
    latitude DOUBLE PRECISION,
    longitude DOUBLE PRECISION,
    observation_time TIMESTAMPTZ,
    creation_time TIMESTAMPTZ,
    parameters TEXT[] NOT NULL DEFAULT '{}',
    profile_data JSONB NOT NULL DEFAULT '{}',
    data_mode TEXT NOT NULL DEFAULT 'Unknown',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT argo_floats_platform_cycle_key UNIQUE NULLS NOT DISTINCT (platform_number, cycle_number),
    CONSTRAINT argo_floats_position_pair CHECK ((latitude IS NULL) = (longitude IS NULL))
);

CREATE INDEX IF NOT EXISTS idx_argo_floats_observation_time ON argo_floats (observation_time);
`,
	},
	{
		Version:     2,
		Description: "Query history",
		SQL: `
CREATE TABLE IF NOT EXISTS query_history (
    id BIGSERIAL PRIMARY KEY,
    question TEXT NOT NULL,
    response TEXT NOT NULL,
    intent TEXT NOT NULL,
    asked_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_query_history_asked_at ON query_history (asked_at DESC);
`,
	},
}

var sqliteMigrations = []migration{
	{
		Version:     1,
		Description: "Float records",
		SQL: `
CREATE TABLE IF NOT EXISTS argo_floats (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    platform_number TEXT NOT NULL,
    cycle_number INTEGER,
    file_name TEXT NOT NULL DEFAULT '',
    latitude REAL,
    longitude REAL,
    observation_time INTEGER,
    creation_time INTEGER,
    parameters TEXT NOT NULL DEFAULT '[]',
    profile_data TEXT NOT NULL DEFAULT '{}',
    data_mode TEXT NOT NULL DEFAULT 'Unknown',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    CHECK ((latitude IS NULL) = (longitude IS NULL))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_argo_floats_platform_cycle
    ON argo_floats (platform_number, COALESCE(cycle_number, -2147483648));
CREATE INDEX IF NOT EXISTS idx_argo_floats_observation_time ON argo_floats (observation_time);
`,
	},
	{
		Version:     2,
		Description: "Query history",
		SQL: `
CREATE TABLE IF NOT EXISTS query_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    question TEXT NOT NULL,
    response TEXT NOT NULL,
    intent TEXT NOT NULL,
    asked_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_query_history_asked_at ON query_history (asked_at DESC);
`,
	},
	{
		Version:     3,
		Description: "Unix microsecond timestamps",
		SQL: `
UPDATE argo_floats SET
    observation_time = observation_time / 1000,
    creation_time = creation_time / 1000,
    created_at = created_at / 1000,
    updated_at = updated_at / 1000;

UPDATE query_history SET asked_at = asked_at / 1000;
`,
	},
}

const createMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    description TEXT NOT NULL,
    applied_at TIMESTAMP NOT NULL
)`

// MigrateSQLite applies pending migrations to a SQLite database.
func MigrateSQLite(ctx context.Context, db *sql.DB, logger zerolog.Logger) error {
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return err
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, m := range sqliteMigrations {
		if applied[m.Version] {
			continue
		}

		logger.Info().Int("version", m.Version).Str("description", m.Description).Msg("applying migration")

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// MigratePostgres applies pending migrations to a PostgreSQL database.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	if _, err := pool.Exec(ctx, createMigrationsTable); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	rows, err := pool.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}
	applied := make(map[int]bool)
	for rows.Next() {
		var v int32
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return err
		}
		applied[int(v)] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, m := range postgresMigrations {
		if applied[m.Version] {
			continue
		}

		logger.Info().Int("version", m.Version).Str("description", m.Description).Msg("applying migration")

		tx, err := pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(ctx, m.SQL); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}
		if _, err := tx.Exec(ctx,
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES ($1, $2, $3)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// MigrationVersion returns the highest applied SQLite migration version, or 0.
func MigrationVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, err
	}
	return int(v.Int64), nil
}
