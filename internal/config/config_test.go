package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigWithDefaults(t *testing.T) {
	setTestEnv(t, nil)

	config, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, ".kmtracker.sqlite3"); config.DatabasePath != want {
		t.Errorf("Expected default database path %s, got %s", want, config.DatabasePath)
	}
	if config.Server.Host != "localhost" {
		t.Errorf("Expected default host 'localhost', got %s", config.Server.Host)
	}
	if config.Server.Port != 4101 {
		t.Errorf("Expected default port 4101, got %d", config.Server.Port)
	}
	if config.Server.StatsCacheTTL != 30*time.Second {
		t.Errorf("Expected default stats cache TTL 30s, got %v", config.Server.StatsCacheTTL)
	}
	if config.Logging.Level != "info" {
		t.Errorf("Expected default log level 'info', got %s", config.Logging.Level)
	}
	if config.Logging.File != "" {
		t.Errorf("Expected no log file by default, got %s", config.Logging.File)
	}
}

func TestLoadConfigFromEnvVars(t *testing.T) {
	setTestEnv(t, map[string]string{
		"KMTRACKER_DATABASE":        "/tmp/test.db",
		"KMTRACKER_HOST":            "0.0.0.0",
		"KMTRACKER_PORT":            "8080",
		"KMTRACKER_METRICS_PORT":    "9090",
		"KMTRACKER_METRICS_ENABLED": "false",
		"KMTRACKER_LOG_LEVEL":       "debug",
	})

	config, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.DatabasePath != "/tmp/test.db" {
		t.Errorf("Expected database path '/tmp/test.db', got %s", config.DatabasePath)
	}
	if config.Server.Host != "0.0.0.0" {
		t.Errorf("Expected host '0.0.0.0', got %s", config.Server.Host)
	}
	if config.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", config.Server.Port)
	}
	if config.Server.MetricsPort != 9090 {
		t.Errorf("Expected metrics port 9090, got %d", config.Server.MetricsPort)
	}
	if config.Server.MetricsEnabled {
		t.Error("Expected metrics to be disabled")
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level 'debug', got %s", config.Logging.Level)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	setTestEnv(t, nil)

	path := writeConfigFile(t, `
database = "/data/rides.sqlite3"

[server]
port = 5000
stats_cache_ttl = "2m"
rate_limit = 2.5

[logging]
level = "warn"
file = "/var/log/kmtracker.log"
`)

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.DatabasePath != "/data/rides.sqlite3" {
		t.Errorf("Expected database path from file, got %s", config.DatabasePath)
	}
	if config.Server.Port != 5000 {
		t.Errorf("Expected port 5000, got %d", config.Server.Port)
	}
	if config.Server.StatsCacheTTL != 2*time.Minute {
		t.Errorf("Expected stats cache TTL 2m, got %v", config.Server.StatsCacheTTL)
	}
	if config.Server.RateLimit != 2.5 {
		t.Errorf("Expected rate limit 2.5, got %v", config.Server.RateLimit)
	}
	// Unset keys keep their defaults
	if config.Server.Host != "localhost" {
		t.Errorf("Expected default host, got %s", config.Server.Host)
	}
	if config.Logging.Level != "warn" {
		t.Errorf("Expected log level 'warn', got %s", config.Logging.Level)
	}
	if config.Logging.File != "/var/log/kmtracker.log" {
		t.Errorf("Expected log file from config, got %s", config.Logging.File)
	}
}

func TestLoadConfigFromDefaultPath(t *testing.T) {
	dir := setTestEnv(t, nil)

	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(`database = "/from/xdg.db"`), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if config.DatabasePath != "/from/xdg.db" {
		t.Errorf("Expected database path from default config file, got %s", config.DatabasePath)
	}
}

func TestEnvVarsPrecedenceOverFile(t *testing.T) {
	setTestEnv(t, map[string]string{
		"KMTRACKER_DATABASE": "/from/env.db",
		"KMTRACKER_PORT":     "7000",
	})

	path := writeConfigFile(t, `
database = "/from/file.db"

[server]
port = 5000
`)

	config, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if config.DatabasePath != "/from/env.db" {
		t.Errorf("Expected env database path to win, got %s", config.DatabasePath)
	}
	if config.Server.Port != 7000 {
		t.Errorf("Expected env port to win, got %d", config.Server.Port)
	}
}

func TestHomeExpansion(t *testing.T) {
	setTestEnv(t, map[string]string{"KMTRACKER_DATABASE": "~/rides/km.sqlite3"})

	config, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "rides", "km.sqlite3"); config.DatabasePath != want {
		t.Errorf("Expected %s, got %s", want, config.DatabasePath)
	}

	if got, _ := ExpandHome("/abs/~/path"); got != "/abs/~/path" {
		t.Errorf("Expected absolute path unchanged, got %s", got)
	}
}

func TestMissingExplicitFile(t *testing.T) {
	setTestEnv(t, nil)

	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("Expected error for missing config file")
	}
}

func TestInvalidTOML(t *testing.T) {
	setTestEnv(t, nil)

	_, err := Load(writeConfigFile(t, `database = [`))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidationInvalidPort(t *testing.T) {
	tests := []struct {
		name string
		port string
	}{
		{"non-numeric", "abc"},
		{"zero", "0"},
		{"too large", "70000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setTestEnv(t, map[string]string{"KMTRACKER_PORT": tt.port})

			_, err := Load("")
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig for port %q, got %v", tt.port, err)
			}
		})
	}
}

func TestValidationInvalidLogLevel(t *testing.T) {
	setTestEnv(t, map[string]string{"KMTRACKER_LOG_LEVEL": "verbose"})

	_, err := Load("")
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidationValidLogLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			setTestEnv(t, map[string]string{"KMTRACKER_LOG_LEVEL": level})

			config, err := Load("")
			if err != nil {
				t.Fatalf("Failed to load config with log level %s: %v", level, err)
			}
			if config.Logging.Level != level {
				t.Errorf("Expected log level %s, got %s", level, config.Logging.Level)
			}
		})
	}
}

func TestValidationInvalidCacheTTL(t *testing.T) {
	setTestEnv(t, nil)

	_, err := Load(writeConfigFile(t, "[server]\nstats_cache_ttl = \"soon\"\n"))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

// setTestEnv clears all KMTRACKER_* variables, points XDG_CONFIG_HOME at an
// empty directory and sets vars. It returns the config directory.
func setTestEnv(t *testing.T, vars map[string]string) string {
	t.Helper()

	envVars := []string{
		"KMTRACKER_DATABASE", "KMTRACKER_HOST", "KMTRACKER_PORT",
		"KMTRACKER_METRICS_HOST", "KMTRACKER_METRICS_PORT", "KMTRACKER_METRICS_ENABLED",
		"KMTRACKER_LOG_LEVEL", "KMTRACKER_LOG_FILE",
	}
	for _, key := range envVars {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	for key, value := range vars {
		t.Setenv(key, value)
	}
	return dir
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}
