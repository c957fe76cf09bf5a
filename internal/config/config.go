// Package config loads argodesk configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/argodesk/argodesk/internal/database"
)

// Config holds runtime configuration shared by the API server and the worker.
type Config struct {
	Port        string
	Environment string
	LogLevel    zerolog.Level
	RequireTLS  bool

	// DataDir holds the backing files of ingested floats.
	DataDir        string
	MaxUploadBytes int64

	DBDriver   string
	Postgres   database.Config
	SQLitePath string

	OTelEnabled  bool
	OTLPEndpoint string

	PubSubProjectID    string
	PubSubSubscription string
	WorkerConcurrency  int

	FetchTimeout    time.Duration
	FetchMaxRetries uint64
}

// Load reads configuration from environment variables. Variables from files
// (default ".env") fill in anything not already set; a missing file is ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	p := &parser{}
	retries := p.integer("FETCH_MAX_RETRIES", 3)
	cfg := Config{
		Port:        p.str("APP_PORT", "8080"),
		Environment: p.str("APP_ENV", "development"),
		LogLevel:    p.level("LOG_LEVEL", zerolog.InfoLevel),
		RequireTLS:  p.boolean("REQUIRE_TLS", false),

		DataDir:        p.str("DATA_DIR", "./data"),
		MaxUploadBytes: p.int64Value("MAX_UPLOAD_BYTES", 100<<20),

		DBDriver: strings.ToLower(p.str("DB_DRIVER", database.DriverSQLite)),
		Postgres: database.Config{
			Host:            p.str("DB_HOST", "localhost"),
			Port:            p.integer("DB_PORT", 5432),
			User:            p.str("DB_USER", "argodesk"),
			Password:        p.str("DB_PASSWORD", "argodesk"),
			Database:        p.str("DB_NAME", "argodesk"),
			SSLMode:         p.str("DB_SSL_MODE", "disable"),
			MaxOpenConns:    p.integer("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    p.integer("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnectTimeout:  p.duration("DB_CONNECT_TIMEOUT", 30*time.Second),
		},
		SQLitePath: p.str("SQLITE_PATH", "argodesk.db"),

		OTelEnabled:  p.boolean("OTEL_ENABLED", false),
		OTLPEndpoint: p.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		PubSubProjectID:    p.str("PUBSUB_PROJECT_ID", ""),
		PubSubSubscription: p.str("PUBSUB_SUBSCRIPTION", "argodesk-ingest"),
		WorkerConcurrency:  p.integer("WORKER_CONCURRENCY", 3),

		FetchTimeout:    p.duration("FETCH_TIMEOUT", 60*time.Second),
	}

	switch cfg.DBDriver {
	case database.DriverPostgres, database.DriverSQLite, database.DriverMemory:
	default:
		p.fail("DB_DRIVER", fmt.Errorf("unknown driver %q", cfg.DBDriver))
	}
	if cfg.MaxUploadBytes < 0 {
		p.fail("MAX_UPLOAD_BYTES", errors.New("must not be negative"))
	}
	if cfg.WorkerConcurrency < 1 {
		p.fail("WORKER_CONCURRENCY", errors.New("must be at least 1"))
	}
	if retries < 0 {
		p.fail("FETCH_MAX_RETRIES", errors.New("must not be negative"))
	} else {
		cfg.FetchMaxRetries = uint64(retries)
	}

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}

// parser reads typed variables, collecting every failure.
type parser struct {
	errs []error
}

func (p *parser) fail(key string, err error) {
	p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p *parser) int64Value(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return d
}

func (p *parser) boolean(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return def
	}
	return b
}

func (p *parser) level(key string, def zerolog.Level) zerolog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(v))
	if err != nil {
		p.fail(key, err)
		return def
	}
	return lvl
}
