// Package cmd holds the process entry point shared by the roombot binaries.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m3rciful/roombot/core/app"
	"github.com/m3rciful/roombot/core/bootstrap"
	coreconfig "github.com/m3rciful/roombot/core/config"
	"github.com/m3rciful/roombot/core/logger"
)

// Runner is the part of app.App the entry point drives.
type Runner interface {
	Run(ctx context.Context) error
}

// Options describe how to load configuration, bootstrap dependencies, and run the bot.
// Zero-valued hooks fall back to the production implementations.
type Options struct {
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig     func(path string) (*coreconfig.Config, error)
	Bootstrap      func(ctx context.Context, opts bootstrap.Options) (*bootstrap.Result, error)
	NewApp         func(opts app.Options) (Runner, error)
	ShutdownLogger func() error
}

// Run loads configuration, bootstraps logging and the archive, and runs the bot until
// SIGINT or SIGTERM.
func Run(opts Options) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return run(ctx, opts)
}

func run(ctx context.Context, opts Options) error {
	opts = withDefaults(opts)

	cfgPath := os.Getenv(opts.ConfigEnvVar)
	if cfgPath == "" {
		cfgPath = opts.DefaultConfigPath
	}
	if cfgPath == "" {
		return fmt.Errorf("cmd: config path not provided via %s or DefaultConfigPath", opts.ConfigEnvVar)
	}

	log.Printf("loading config: %s", cfgPath)
	cfg, err := opts.LoadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	startedAt := time.Now()
	res, err := opts.Bootstrap(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	defer func() {
		if err := res.Close(); err != nil {
			log.Printf("database close error: %v", err)
		}
		if err := opts.ShutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	bot, err := opts.NewApp(app.Options{Config: cfg, Recorder: res.Recorder})
	if err != nil {
		return fmt.Errorf("cmd: build app: %w", err)
	}
	logger.LogEvent(ctx, logger.Component("app"), slog.LevelInfo, "startup.done",
		slog.String("status", "ok"),
		slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
	)

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("cmd: run: %w", err)
	}
	return nil
}

func withDefaults(opts Options) Options {
	if opts.ConfigEnvVar == "" {
		opts.ConfigEnvVar = "CONFIG_PATH"
	}
	if opts.LoadConfig == nil {
		opts.LoadConfig = coreconfig.Load
	}
	if opts.Bootstrap == nil {
		opts.Bootstrap = bootstrap.Run
	}
	if opts.NewApp == nil {
		opts.NewApp = func(o app.Options) (Runner, error) { return app.New(o) }
	}
	if opts.ShutdownLogger == nil {
		opts.ShutdownLogger = logger.Shutdown
	}
	return opts
}
