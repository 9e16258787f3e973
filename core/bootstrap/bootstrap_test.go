package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/roombot/core/archive"
	coreconfig "github.com/m3rciful/roombot/core/config"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunWithoutDatabase(t *testing.T) {
	connected := false
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Connect: func(context.Context, coreconfig.DatabaseConfig) (*sqlx.DB, error) {
			connected = true
			return nil, nil
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if connected || res.DB != nil {
		t.Fatal("database must not be touched when disabled")
	}
	if _, ok := res.Recorder.(archive.Nop); !ok {
		t.Fatalf("recorder = %T", res.Recorder)
	}
	if err := res.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRunPropagatesFailures(t *testing.T) {
	cfg := &coreconfig.Config{Database: coreconfig.DatabaseConfig{Host: "db", Name: "roombot"}}
	boom := errors.New("boom")

	if _, err := Run(context.Background(), Options{Config: cfg, LoggerInit: func(*coreconfig.Config) error { return boom }}); !errors.Is(err, boom) {
		t.Fatalf("logger err = %v", err)
	}

	_, err := Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Connect: func(context.Context, coreconfig.DatabaseConfig) (*sqlx.DB, error) {
			return nil, boom
		},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("connect err = %v", err)
	}

	_, err = Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Connect: func(context.Context, coreconfig.DatabaseConfig) (*sqlx.DB, error) {
			return nil, nil
		},
		Migrate: func(context.Context, coreconfig.DatabaseConfig) error { return boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("migrate err = %v", err)
	}

	if _, err := Run(context.Background(), Options{}); err == nil {
		t.Fatal("nil config must fail")
	}
}

func TestBuildModules(t *testing.T) {
	cfg := &coreconfig.Config{Modules: []string{coreconfig.ModuleGame, coreconfig.ModulePoll}}
	mods := BuildModules(cfg, archive.Nop{})
	if len(mods.List) != 2 || mods.List[0].Name() != "game" || mods.List[1].Name() != "poll" {
		t.Fatalf("modules = %+v", mods.List)
	}
	if mods.Polls == nil || mods.Games == nil {
		t.Fatal("services must be exposed")
	}

	only := BuildModules(&coreconfig.Config{Modules: []string{coreconfig.ModulePoll}}, nil)
	if len(only.List) != 1 || only.Games != nil {
		t.Fatalf("poll only = %+v", only)
	}
}
