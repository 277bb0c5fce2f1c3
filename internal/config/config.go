// Package config provides configuration loading for the example server.
package config

import (
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the example server.
type Config struct {
	Listen  string        `yaml:"listen"`
	Logging LoggingConfig `yaml:"logging"`
	Hook    HookConfig    `yaml:"hook"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// HookConfig holds the request hook's exclusion rules.
type HookConfig struct {
	ExcludePaths    []string `yaml:"excludePaths"`
	ExcludePatterns []string `yaml:"excludePatterns"`
}

// MetricsConfig holds metrics endpoint configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// Load loads configuration from a file path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return LoadFromReader(f)
}

// LoadFromReader loads configuration from an io.Reader.
func LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var validLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// Validate checks the configuration for errors. Exclusion patterns are
// compiled here so an invalid pattern fails before the server starts.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address must not be empty")
	}

	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}

	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}

	for _, pattern := range c.Hook.ExcludePatterns {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", pattern, err)
		}
	}

	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return fmt.Errorf("metrics path must not be empty when metrics are enabled")
	}

	return nil
}
