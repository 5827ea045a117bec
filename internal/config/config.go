// Package config reads and writes ledgercheck.yaml.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/ledgercheck/internal/anomaly"
	"github.com/cleared-dev/ledgercheck/internal/model"
	"github.com/cleared-dev/ledgercheck/internal/reconcile"
)

// FileName is the config file written by init.
const FileName = "ledgercheck.yaml"

// EnvPath names an environment variable that overrides the config path.
const EnvPath = "LEDGERCHECK_CONFIG"

// Config represents the top-level ledgercheck.yaml configuration.
type Config struct {
	Reconcile reconcile.Config        `yaml:"reconcile"`
	Suggest   reconcile.SuggestConfig `yaml:"suggest"`
	Anomaly   anomaly.Config          `yaml:"anomaly"`
	Logging   LoggingConfig           `yaml:"logging"`
	Server    ServerConfig            `yaml:"server"`
	RunLog    RunLogConfig            `yaml:"runlog"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // logrus level name, e.g. "info"
	Format string `yaml:"format"` // "text" or "json"
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// RunLogConfig points at the run log CSV. An empty path disables it.
type RunLogConfig struct {
	Path string `yaml:"path"`
}

// Path returns the config path from the environment, or FileName.
func Path() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	return FileName
}

// Load reads a ledgercheck.yaml file from disk. Environment variables in the
// file are expanded and unset keys keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with the stock matcher and scorer settings.
func Default() *Config {
	return &Config{
		Reconcile: reconcile.DefaultConfig(),
		Suggest:   reconcile.DefaultSuggestConfig(),
		Anomaly:   anomaly.DefaultConfig(),
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			MaxBodyBytes: 10 << 20,
		},
		RunLog: RunLogConfig{
			Path: "ledgercheck-runs.csv",
		},
	}
}

// Validate checks every section. Field names in errors carry the section prefix.
func (c *Config) Validate() error {
	sections := []struct {
		name string
		err  error
	}{
		{"reconcile", c.Reconcile.Validate()},
		{"suggest", c.Suggest.Validate()},
		{"anomaly", c.Anomaly.Validate()},
	}
	for _, s := range sections {
		var cerr *model.ConfigError
		if errors.As(s.err, &cerr) {
			return &model.ConfigError{Field: s.name + "." + cerr.Field, Reason: cerr.Reason}
		}
		if s.err != nil {
			return s.err
		}
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return &model.ConfigError{Field: "logging.format", Reason: `must be "text" or "json"`}
	}
	if c.Server.MaxBodyBytes <= 0 {
		return &model.ConfigError{Field: "server.max_body_bytes", Reason: "must be positive"}
	}
	return nil
}
