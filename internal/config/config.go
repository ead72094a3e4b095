// Package config loads stockroom's YAML configuration file.
//
// Every field has a default, so a missing file is not an error. CLI flags
// override whatever the file sets.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when --config is not given.
const DefaultPath = "stockroom.yaml"

const defaultConfigYAML = `# stockroom configuration
database:
  driver: sqlite3
  dsn: stockroom.db

transactions:
  max_attempts: 5

allocation:
  timeout: 10s

reseller:
  base_url: ""
  api_key: ""
  timeout: 30s

log:
  level: info
`

// Duration is a time.Duration written as "10s" or "1m30s" in YAML.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		*d = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML writes the duration back in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type TransactionConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
}

type AllocationConfig struct {
	Timeout Duration `yaml:"timeout"`
}

type ResellerConfig struct {
	BaseURL string   `yaml:"base_url"`
	APIKey  string   `yaml:"api_key"`
	Timeout Duration `yaml:"timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Config models stockroom.yaml.
type Config struct {
	Database     DatabaseConfig    `yaml:"database"`
	Transactions TransactionConfig `yaml:"transactions"`
	Allocation   AllocationConfig  `yaml:"allocation"`
	Reseller     ResellerConfig    `yaml:"reseller"`
	Log          LogConfig         `yaml:"log"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	var c Config
	if err := yaml.Unmarshal([]byte(defaultConfigYAML), &c); err != nil {
		panic(fmt.Sprintf("config: default config does not parse: %v", err))
	}
	return c
}

// DefaultYAML returns the commented default configuration file.
func DefaultYAML() string {
	return defaultConfigYAML
}

// Load reads path over the defaults. A missing file yields the defaults
// when path is DefaultPath or empty; an explicitly named file must exist.
func Load(path string) (Config, error) {
	c := Default()
	explicit := path != "" && path != DefaultPath
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return c, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Validate checks values the rest of the program relies on.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("database.driver must be sqlite3 or pgx, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Transactions.MaxAttempts < 1 {
		return fmt.Errorf("transactions.max_attempts must be at least 1, got %d", c.Transactions.MaxAttempts)
	}
	if c.Allocation.Timeout < 0 || c.Reseller.Timeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level. Invalid values fall back to info.
func (c Config) SlogLevel() slog.Level {
	lvl, err := ParseLevel(c.Log.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}
