package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefault(t *testing.T) {
	config := Default()

	// Simulation defaults
	if config.Simulation.Workers != 0 {
		t.Errorf("expected Workers 0 (auto), got %d", config.Simulation.Workers)
	}
	if config.Simulation.DefaultPaths != 1000 {
		t.Errorf("expected DefaultPaths 1000, got %d", config.Simulation.DefaultPaths)
	}
	if config.Simulation.DefaultSteps != 252 {
		t.Errorf("expected DefaultSteps 252, got %d", config.Simulation.DefaultSteps)
	}
	if config.Simulation.BaseSeed != 42 {
		t.Errorf("expected BaseSeed 42, got %d", config.Simulation.BaseSeed)
	}

	// Data defaults
	if config.Data.Dir != "data" {
		t.Errorf("expected Data.Dir 'data', got '%s'", config.Data.Dir)
	}

	// Logging defaults
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
simulation:
  workers: 8
  default_paths: 5000
  base_seed: 1234

data:
  dir: /srv/prices
  cache_db: /srv/prices/cache.db

logging:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Simulation.Workers != 8 {
		t.Errorf("expected Workers 8, got %d", config.Simulation.Workers)
	}
	if config.Simulation.DefaultPaths != 5000 {
		t.Errorf("expected DefaultPaths 5000, got %d", config.Simulation.DefaultPaths)
	}
	if config.Simulation.BaseSeed != 1234 {
		t.Errorf("expected BaseSeed 1234, got %d", config.Simulation.BaseSeed)
	}
	if config.Data.Dir != "/srv/prices" {
		t.Errorf("expected Data.Dir '/srv/prices', got '%s'", config.Data.Dir)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("expected Logging.Level 'debug', got '%s'", config.Logging.Level)
	}

	// Unset fields keep defaults
	if config.Simulation.DefaultSteps != 252 {
		t.Errorf("expected DefaultSteps to keep default 252, got %d", config.Simulation.DefaultSteps)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	if _, err := LoadFromFile("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}

	tmpDir := t.TempDir()
	badPath := filepath.Join(tmpDir, "bad.yaml")
	if err := os.WriteFile(badPath, []byte("simulation: [not a map"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(badPath); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadFromFileExpandsEnvVars(t *testing.T) {
	t.Setenv("STOCH_TEST_PRICES", "/var/prices")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := "data:\n  dir: ${STOCH_TEST_PRICES}/csv\n"
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatal(err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if config.Data.Dir != "/var/prices/csv" {
		t.Errorf("expected expanded dir '/var/prices/csv', got '%s'", config.Data.Dir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"default is valid", func(c *Config) {}, ""},
		{"negative workers", func(c *Config) { c.Simulation.Workers = -1 }, "workers"},
		{"zero paths", func(c *Config) { c.Simulation.DefaultPaths = 0 }, "default_paths"},
		{"zero steps", func(c *Config) { c.Simulation.DefaultSteps = 0 }, "default_steps"},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, "log level"},
		{"empty log level ok", func(c *Config) { c.Logging.Level = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STOCH_WORKERS", "4")
	t.Setenv("STOCH_DEFAULT_PATHS", "250")
	t.Setenv("STOCH_BASE_SEED", "99")
	t.Setenv("STOCH_DATA_DIR", "/tmp/prices")
	t.Setenv("STOCH_LOG_LEVEL", "trace")

	config := Default()
	applyEnvOverrides(config)

	if config.Simulation.Workers != 4 {
		t.Errorf("Workers = %d, want 4", config.Simulation.Workers)
	}
	if config.Simulation.DefaultPaths != 250 {
		t.Errorf("DefaultPaths = %d, want 250", config.Simulation.DefaultPaths)
	}
	if config.Simulation.BaseSeed != 99 {
		t.Errorf("BaseSeed = %d, want 99", config.Simulation.BaseSeed)
	}
	if config.Data.Dir != "/tmp/prices" {
		t.Errorf("Data.Dir = %s, want /tmp/prices", config.Data.Dir)
	}
	if config.Logging.Level != "trace" {
		t.Errorf("Logging.Level = %s, want trace", config.Logging.Level)
	}
}

func TestEnvOverridesIgnoreUnparseable(t *testing.T) {
	t.Setenv("STOCH_WORKERS", "lots")

	config := Default()
	applyEnvOverrides(config)

	if config.Simulation.Workers != 0 {
		t.Errorf("Workers = %d, want default 0 for unparseable override", config.Simulation.Workers)
	}
}
