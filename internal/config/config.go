// Package config provides unified configuration loading for stoch.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config contains all stoch configuration settings.
type Config struct {
	// Simulation contains settings for path generation and the ensemble
	// engine.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Data contains settings for market data loading and caching.
	Data DataConfig `json:"data" yaml:"data"`

	// Logging contains settings for operational and trace logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SimulationConfig configures path generation defaults.
type SimulationConfig struct {
	// Workers bounds ensemble parallelism. 0 means one worker per CPU.
	Workers int `json:"workers" yaml:"workers"`

	// DefaultPaths is the ensemble size used when a command does not
	// specify one.
	DefaultPaths int `json:"default_paths" yaml:"default_paths"`

	// DefaultSteps is the grid resolution used when a command does not
	// specify one.
	DefaultSteps int `json:"default_steps" yaml:"default_steps"`

	// BaseSeed seeds the deterministic per-path seed derivation.
	BaseSeed uint64 `json:"base_seed" yaml:"base_seed"`
}

// DataConfig configures market data sources.
type DataConfig struct {
	// Dir is the directory holding per-symbol CSV files. Supports
	// ${VAR} syntax for env vars.
	Dir string `json:"dir" yaml:"dir"`

	// CacheDB is the path to the SQLite price cache. Empty disables
	// caching.
	CacheDB string `json:"cache_db,omitempty" yaml:"cache_db,omitempty"`
}

// LoggingConfig configures stoch's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables run tracing to .stoch/trace.jsonl.
	// "trace" additionally includes per-iteration solver detail.
	Level string `json:"level" yaml:"level"`

	// TraceDir overrides the directory for trace.jsonl (default .stoch).
	TraceDir string `json:"trace_dir,omitempty" yaml:"trace_dir,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Workers:      0,
			DefaultPaths: 1000,
			DefaultSteps: 252,
			BaseSeed:     42,
		},
		Data: DataConfig{
			Dir: "data",
		},
		Logging: LoggingConfig{
			Level:    "info",
			TraceDir: ".stoch",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.stoch/config.yaml -> environment variables
func Load() (*Config, error) {
	config := Default()

	// Try to load from default config file
	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".stoch", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Expand environment variables in paths
	config.Data.Dir = expandEnvVars(config.Data.Dir)
	config.Data.CacheDB = expandEnvVars(config.Data.CacheDB)

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Simulation.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Simulation.Workers)
	}
	if c.Simulation.DefaultPaths < 1 {
		return fmt.Errorf("default_paths must be at least 1, got %d", c.Simulation.DefaultPaths)
	}
	if c.Simulation.DefaultSteps < 1 {
		return fmt.Errorf("default_steps must be at least 1, got %d", c.Simulation.DefaultSteps)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("STOCH_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Workers = n
		}
	}
	if v := os.Getenv("STOCH_DEFAULT_PATHS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.DefaultPaths = n
		}
	}
	if v := os.Getenv("STOCH_BASE_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Simulation.BaseSeed = n
		}
	}
	if v := os.Getenv("STOCH_DATA_DIR"); v != "" {
		config.Data.Dir = v
	}
	if v := os.Getenv("STOCH_CACHE_DB"); v != "" {
		config.Data.CacheDB = v
	}
	if v := os.Getenv("STOCH_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
