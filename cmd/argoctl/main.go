// Package main provides argoctl, an operator CLI for inspecting, ingesting
// and querying Argo profile files.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/argodesk/argodesk/internal/argofile"
	"github.com/argodesk/argodesk/internal/database"
	"github.com/argodesk/argodesk/internal/storage"
)

// Version is set at compile time via ldflags.
var Version = "dev"

// CLI is the argoctl command line.
type CLI struct {
	LogLevel string           `name:"log-level" env:"LOG_LEVEL" default:"warn" enum:"debug,info,warn,error" help:"Log level (${enum})."`
	Version  kong.VersionFlag `help:"Print version and exit."`

	Storage StorageFlags `embed:""`

	Inspect InspectCmd `cmd:"" help:"Parse profile files and print the normalized records."`
	Ingest  IngestCmd  `cmd:"" help:"Store local files or remote URLs."`
	Ask     AskCmd     `cmd:"" help:"Answer a free-text question about the stored floats."`
	History HistoryCmd `cmd:"" help:"Show recently asked questions."`
}

// StorageFlags select the backend shared with the API server.
type StorageFlags struct {
	Driver     string `name:"db-driver" env:"DB_DRIVER" default:"sqlite" enum:"postgres,sqlite,memory" help:"Storage driver (${enum})."`
	SQLitePath string `name:"sqlite-path" env:"SQLITE_PATH" default:"argodesk.db" help:"SQLite database file."`
	DBHost     string `name:"db-host" env:"DB_HOST" default:"localhost" help:"PostgreSQL host."`
	DBPort     int    `name:"db-port" env:"DB_PORT" default:"5432" help:"PostgreSQL port."`
	DBUser     string `name:"db-user" env:"DB_USER" default:"argodesk" help:"PostgreSQL user."`
	DBPassword string `name:"db-password" env:"DB_PASSWORD" default:"argodesk" help:"PostgreSQL password."`
	DBName     string `name:"db-name" env:"DB_NAME" default:"argodesk" help:"PostgreSQL database."`
	DBSSLMode  string `name:"db-ssl-mode" env:"DB_SSL_MODE" default:"disable" help:"PostgreSQL sslmode."`
}

func (f StorageFlags) config(logger zerolog.Logger) storage.Config {
	return storage.Config{
		Driver:     f.Driver,
		SQLitePath: f.SQLitePath,
		Postgres: database.Config{
			Host:         f.DBHost,
			Port:         f.DBPort,
			User:         f.DBUser,
			Password:     f.DBPassword,
			Database:     f.DBName,
			SSLMode:      f.DBSSLMode,
			MaxOpenConns: 4,
			MaxIdleConns: 1,
		},
		Clock:  clockwork.NewRealClock(),
		Logger: logger,
	}
}

// Runtime carries what every command needs.
type Runtime struct {
	Ctx     context.Context
	Out     io.Writer
	Logger  zerolog.Logger
	Storage StorageFlags
	Open    argofile.OpenFunc
}

// openStorage opens the configured backend.
func (rt *Runtime) openStorage() (*storage.Storage, error) {
	return storage.Open(rt.Ctx, rt.Storage.config(rt.Logger))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, argofile.OpenNetCDF); err != nil {
		fmt.Fprintln(os.Stderr, "argoctl:", err)
		stop()
		os.Exit(1)
	}
}

// run parses args and executes the selected command.
func run(ctx context.Context, args []string, out, errOut io.Writer, open argofile.OpenFunc) error {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("argoctl"),
		kong.Description("Inspect, ingest and query Argo float profile files."),
		kong.UsageOnError(),
		kong.Vars{"version": Version},
		kong.Writers(out, errOut),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(cli.LogLevel)
	if err != nil {
		return err
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: errOut}).Level(level).With().Timestamp().Logger()

	return kctx.Run(&Runtime{
		Ctx:     ctx,
		Out:     out,
		Logger:  logger,
		Storage: cli.Storage,
		Open:    open,
	})
}
