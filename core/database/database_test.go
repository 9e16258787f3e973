package database

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	coreconfig "github.com/m3rciful/roombot/core/config"
)

func TestDSN(t *testing.T) {
	cfg := coreconfig.DatabaseConfig{Host: "db", Port: "5432", User: "bot", Password: `p'w\d`, Name: "roombot", SSLMode: "disable"}
	want := `user='bot' password='p\'w\\d' host='db' port='5432' dbname='roombot' sslmode='disable'`
	if got := DSN(cfg); got != want {
		t.Fatalf("dsn = %s", got)
	}
	cfg.Password = "p@ss word"
	if got := URL(cfg); got != "postgres://bot:p%40ss%20word@db:5432/roombot?sslmode=disable" {
		t.Fatalf("url = %s", got)
	}
}

func TestMigrationFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"000002_game_scores.up.sql", "000001_poll_results.up.sql", "000001_poll_results.down.sql", "README"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	files := listMigrationFiles(dir)
	want := []string{"000001_poll_results.up.sql", "000002_game_scores.up.sql"}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("files = %v", files)
	}
	if got := appliedBetween(files, 1, 2); !reflect.DeepEqual(got, want[1:]) {
		t.Fatalf("applied = %v", got)
	}
	if got := appliedBetween(files, 2, 2); len(got) != 0 {
		t.Fatalf("nothing applied expected, got %v", got)
	}
}

func TestMigrationsPathDefault(t *testing.T) {
	p, err := migrationsPath("  ")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if filepath.Base(p) != DefaultMigrationsDir || !filepath.IsAbs(p) {
		t.Fatalf("path = %s", p)
	}
}
