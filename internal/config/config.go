// Package config loads tabsync settings from YAML.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Blob backends.
const (
	BlobFile   = "file"
	BlobBolt   = "bolt"
	BlobMemory = "memory"
)

// Bus backends.
const (
	BusDir  = "dir"
	BusNone = "none"
)

// Config holds all tabsync settings.
type Config struct {
	Blob BlobConfig `yaml:"blob"`
	Bus  BusConfig  `yaml:"bus"`

	// RemoteReload reloads the stored snapshot when another context
	// announces a change.
	RemoteReload bool `yaml:"remote_reload"`

	LogLevel string `yaml:"log_level"` // debug | info | warn | error
}

// BlobConfig selects the durable store holding the snapshot.
type BlobConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"` // directory for file, database file for bolt
	Key     string `yaml:"key"`
}

// BusConfig selects the cross-context bus.
type BusConfig struct {
	Backend   string        `yaml:"backend"`
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Blob: BlobConfig{
			Backend: BlobFile,
			Path:    "./tabsync-data",
			Key:     "social_db",
		},
		Bus: BusConfig{
			Backend:   BusDir,
			Path:      "./tabsync-data/bus",
			Retention: time.Minute,
		},
		LogLevel: "info",
	}
}

// Load reads the config at path over the defaults. A missing file yields
// the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks backend names and required fields.
func (c Config) Validate() error {
	var errs []error

	switch c.Blob.Backend {
	case BlobFile, BlobBolt:
		if c.Blob.Path == "" {
			errs = append(errs, fmt.Errorf("blob.path is required for backend %q", c.Blob.Backend))
		}
	case BlobMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown blob.backend %q", c.Blob.Backend))
	}
	if c.Blob.Key == "" {
		errs = append(errs, errors.New("blob.key must not be empty"))
	}

	switch c.Bus.Backend {
	case BusDir:
		if c.Bus.Path == "" {
			errs = append(errs, errors.New("bus.path is required for backend \"dir\""))
		}
		if c.Bus.Retention <= 0 {
			errs = append(errs, errors.New("bus.retention must be positive"))
		}
	case BusNone:
	default:
		errs = append(errs, fmt.Errorf("unknown bus.backend %q", c.Bus.Backend))
	}

	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps a log_level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q", s)
	}
}
