package config

import (
	"testing"
	"time"
)

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("VOLAKO_REMOTE_DSN", "")
	t.Setenv("VOLAKO_OWNER_ID", "")
	t.Setenv("VOLAKO_DATA_DIR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Defaults.Currency != "MGA" {
		t.Fatalf("default currency = %q, want MGA", cfg.Defaults.Currency)
	}
	if cfg.SyncInterval() != 60*time.Second {
		t.Fatalf("SyncInterval() = %s, want 60s", cfg.SyncInterval())
	}
	if !cfg.Sync.AutoSync {
		t.Fatal("auto-sync should default on")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("VOLAKO_REMOTE_DSN", "")
	t.Setenv("VOLAKO_OWNER_ID", "")
	t.Setenv("VOLAKO_DATA_DIR", "")

	cfg := DefaultConfig()
	cfg.Remote.DSN = "file:remote.db"
	cfg.Remote.OwnerID = "owner-1"
	cfg.Sync.IntervalSec = 120
	cfg.Defaults.Currency = "EUR"

	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !Exists() {
		t.Fatal("Exists() = false after Save")
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Remote.DSN != "file:remote.db" || loaded.Remote.OwnerID != "owner-1" {
		t.Fatalf("remote = %+v after round trip", loaded.Remote)
	}
	if loaded.SyncInterval() != 2*time.Minute {
		t.Fatalf("SyncInterval() = %s, want 2m", loaded.SyncInterval())
	}
	if loaded.Defaults.Currency != "EUR" {
		t.Fatalf("currency = %q, want EUR", loaded.Defaults.Currency)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("VOLAKO_REMOTE_DSN", "file:env.db")
	t.Setenv("VOLAKO_OWNER_ID", "env-owner")
	t.Setenv("VOLAKO_DATA_DIR", "")

	cfg := DefaultConfig()
	cfg.Remote.DSN = "file:file.db"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Remote.DSN != "file:env.db" {
		t.Fatalf("DSN = %q, want env override", loaded.Remote.DSN)
	}
	if loaded.Remote.OwnerID != "env-owner" {
		t.Fatalf("OwnerID = %q, want env override", loaded.Remote.OwnerID)
	}
}
