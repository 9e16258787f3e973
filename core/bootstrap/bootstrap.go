// Package bootstrap initializes shared infrastructure: logging and the optional archive database.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/roombot/core/archive"
	coreconfig "github.com/m3rciful/roombot/core/config"
	coredatabase "github.com/m3rciful/roombot/core/database"
	"github.com/m3rciful/roombot/core/game"
	"github.com/m3rciful/roombot/core/logger"
	"github.com/m3rciful/roombot/core/poll"
)

// Recorder archives finished sessions.
type Recorder interface {
	poll.Recorder
	game.Recorder
}

// Options control the bootstrap pipeline. Nil hooks use the defaults.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(context.Context, coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate    func(context.Context, coreconfig.DatabaseConfig) error
}

// Result exposes infrastructure initialized by Run.
type Result struct {
	// DB is nil when no archive database is configured.
	DB       *sqlx.DB
	Recorder Recorder
}

// Close releases the database, if any.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run initializes the logger and, when configured, connects the archive and applies migrations.
func Run(ctx context.Context, opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	dbCfg := opts.Config.Database
	if !dbCfg.Enabled() {
		logger.LogEvent(ctx, logger.DB, slog.LevelInfo, "archive.disabled", slog.String("status", "skip"))
		return &Result{Recorder: archive.Nop{}}, nil
	}

	connect := opts.Connect
	if connect == nil {
		connect = coredatabase.Connect
	}
	db, err := connect(ctx, dbCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}

	migrate := opts.Migrate
	if migrate == nil {
		migrate = coredatabase.RunMigrations
	}
	if err := migrate(ctx, dbCfg); err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
	}

	return &Result{DB: db, Recorder: archive.New(db)}, nil
}
