package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	coreconfig "github.com/m3rciful/roombot/core/config"
	"github.com/m3rciful/roombot/core/logger"
)

// DefaultMigrationsDir is used when database.migrations_dir is empty.
const DefaultMigrationsDir = "migrations"

const readyTimeout = 30 * time.Second

// RunMigrations applies every pending up migration from cfg.MigrationsDir.
func RunMigrations(ctx context.Context, cfg coreconfig.DatabaseConfig) error {
	dsn := URL(cfg)
	if err := WaitForPostgres(ctx, DSN(cfg), readyTimeout); err != nil {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "db.migrate",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return err
	}

	dir, err := migrationsPath(cfg.MigrationsDir)
	if err != nil {
		return err
	}
	files := listMigrationFiles(dir)
	attrs := []slog.Attr{
		slog.String("status", "ok"),
		slog.String("path", dir),
		slog.Int("files_total", len(files)),
	}
	if preview, truncated := logger.SummarizeStrings(files, 6); preview != "" {
		attrs = append(attrs, slog.String("files_preview", preview), slog.Bool("files_truncated", truncated))
	}
	logger.LogEvent(ctx, logger.MIG, slog.LevelDebug, "resolve", attrs...)

	m, err := migrate.New("file://"+filepath.ToSlash(dir), dsn)
	if err != nil {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "db.migrate",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("database: init migrations: %w", err)
	}
	defer m.Close()

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.LogEvent(ctx, logger.MIG, slog.LevelError, "apply",
			slog.String("status", "fail"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", logger.RoundMS(took)),
		)
		return fmt.Errorf("database: apply migrations: %w", upErr)
	}
	toVer, _, _ := m.Version()

	logger.LogEvent(ctx, logger.MIG, slog.LevelInfo, "summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int("files", len(appliedBetween(files, uint64(fromVer), uint64(toVer)))),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return nil
}

func migrationsPath(dir string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = DefaultMigrationsDir
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("database: migrations dir: %w", err)
	}
	return abs, nil
}

func listMigrationFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// appliedBetween returns the files with versions in (from, to].
func appliedBetween(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
