// Package storage opens the float and history repositories for the configured driver.
package storage

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/argodesk/argodesk/internal/argofloat"
	"github.com/argodesk/argodesk/internal/database"
	"github.com/argodesk/argodesk/internal/history"
)

// Config selects and configures a storage backend.
type Config struct {
	// Driver is one of database.DriverPostgres, DriverSQLite or DriverMemory.
	Driver     string
	Postgres   database.Config
	SQLitePath string
	Clock      clockwork.Clock
	Logger     zerolog.Logger
}

// Storage bundles the repositories of one backend.
type Storage struct {
	Floats  argofloat.Repository
	History history.Repository
	Driver  string

	close func()
}

// Close releases the underlying connections.
func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open connects to the backend, applies migrations and builds the repositories.
func Open(ctx context.Context, cfg Config) (*Storage, error) {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	switch cfg.Driver {
	case database.DriverMemory:
		cfg.Logger.Warn().Msg("using in-memory storage, data is lost on restart")
		return &Storage{
			Floats:  argofloat.NewInMemoryRepository(cfg.Clock),
			History: history.NewInMemoryRepository(),
			Driver:  cfg.Driver,
		}, nil

	case database.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := database.MigrateSQLite(ctx, db, cfg.Logger); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		cfg.Logger.Info().Str("path", cfg.SQLitePath).Msg("sqlite storage ready")
		return &Storage{
			Floats:  argofloat.NewSQLiteRepository(db, cfg.Clock),
			History: history.NewSQLiteRepository(db),
			Driver:  cfg.Driver,
			close:   func() { _ = db.Close() },
		}, nil

	case database.DriverPostgres:
		pool, err := database.Connect(ctx, cfg.Postgres, cfg.Logger)
		if err != nil {
			return nil, err
		}
		if err := database.MigratePostgres(ctx, pool, cfg.Logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		cfg.Logger.Info().
			Str("host", cfg.Postgres.Host).
			Int("port", cfg.Postgres.Port).
			Str("database", cfg.Postgres.Database).
			Msg("database connected")
		return &Storage{
			Floats:  argofloat.NewPostgresRepository(pool, cfg.Clock),
			History: history.NewPostgresRepository(pool),
			Driver:  cfg.Driver,
			close:   pool.Close,
		}, nil
	}

	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}
