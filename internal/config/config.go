// Package config loads and persists the application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config holds all volako configuration.
type Config struct {
	General  GeneralConfig  `toml:"general"`
	Remote   RemoteConfig   `toml:"remote"`
	Sync     SyncConfig     `toml:"sync"`
	Defaults DefaultsConfig `toml:"defaults"`
	Daemon   DaemonConfig   `toml:"daemon"`
}

// GeneralConfig holds general preferences.
type GeneralConfig struct {
	DataDir string `toml:"data_dir,omitempty"`
}

// RemoteConfig holds the remote store connection settings.
type RemoteConfig struct {
	DSN     string `toml:"dsn,omitempty"`
	OwnerID string `toml:"owner_id,omitempty"`
}

// SyncConfig holds sync manager settings.
type SyncConfig struct {
	IntervalSec int  `toml:"interval_sec"`
	AutoSync    bool `toml:"auto_sync"`
}

// DefaultsConfig holds the user-preference defaults written on first run.
type DefaultsConfig struct {
	Theme    string `toml:"theme"`
	Language string `toml:"language"`
	Currency string `toml:"currency"`
}

// DaemonConfig holds daemon runtime settings.
type DaemonConfig struct {
	Addr         string `toml:"addr,omitempty"`
	EventsBuffer int    `toml:"events_buffer,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Sync: SyncConfig{
			IntervalSec: 60,
			AutoSync:    true,
		},
		Defaults: DefaultsConfig{
			Theme:    "light",
			Language: "fr",
			Currency: "MGA",
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8791",
			EventsBuffer: 200,
		},
	}
}

// SyncInterval returns the configured auto-sync interval.
func (c Config) SyncInterval() time.Duration {
	if c.Sync.IntervalSec < 1 {
		return 60 * time.Second
	}
	return time.Duration(c.Sync.IntervalSec) * time.Second
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "volako")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "volako")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the directory holding the local record store.
func (c Config) DataDir() string {
	if c.General.DataDir != "" {
		return c.General.DataDir
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "volako")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "volako")
}

// StorePath returns the full path to the local record store database.
func (c Config) StorePath() string {
	return filepath.Join(c.DataDir(), "records.db")
}

// Load reads the config file, returning defaults if it doesn't exist.
// A .env file in the working directory and VOLAKO_* environment variables
// override file values.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if dsn := os.Getenv("VOLAKO_REMOTE_DSN"); dsn != "" {
		cfg.Remote.DSN = dsn
	}
	if owner := os.Getenv("VOLAKO_OWNER_ID"); owner != "" {
		cfg.Remote.OwnerID = owner
	}
	if dir := os.Getenv("VOLAKO_DATA_DIR"); dir != "" {
		cfg.General.DataDir = dir
	}
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
