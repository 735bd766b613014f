package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	// FileName is the name of the config file looked up in the user's
	// config directory
	FileName = "kmtracker.toml"

	defaultDatabasePath  = "~/.kmtracker.sqlite3"
	defaultHost          = "localhost"
	defaultPort          = 4101
	defaultMetricsHost   = "localhost"
	defaultMetricsPort   = 4102
	defaultStatsCacheTTL = 30 * time.Second
	defaultRateLimit     = 10.0
	defaultRateBurst     = 20
	defaultLogLevel      = "info"
	defaultLogMaxSizeMB  = 10
	defaultLogMaxFiles   = 5
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds all application configuration
type Config struct {
	// DatabasePath is the SQLite file holding all rides; "~" is expanded
	DatabasePath string        `toml:"database"`
	Server       ServerConfig  `toml:"server"`
	Logging      LoggingConfig `toml:"logging"`
}

type ServerConfig struct {
	Host           string        `toml:"host"`
	Port           int           `toml:"port"`
	MetricsEnabled bool          `toml:"metrics_enabled"`
	MetricsHost    string        `toml:"metrics_host"`
	MetricsPort    int           `toml:"metrics_port"`
	StatsCacheTTL  time.Duration `toml:"stats_cache_ttl"`
	// RateLimit is the sustained request rate allowed per client IP
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
}

type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

func DefaultConfig() Config {
	return Config{
		DatabasePath: defaultDatabasePath,
		Server: ServerConfig{
			Host:           defaultHost,
			Port:           defaultPort,
			MetricsEnabled: true,
			MetricsHost:    defaultMetricsHost,
			MetricsPort:    defaultMetricsPort,
			StatsCacheTTL:  defaultStatsCacheTTL,
			RateLimit:      defaultRateLimit,
			RateBurst:      defaultRateBurst,
		},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
	}
}

// DefaultPath returns the config file used when none is given:
// $XDG_CONFIG_HOME/kmtracker.toml, falling back to ~/.config
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, FileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", FileName), nil
}

// Load builds the configuration from defaults, the TOML file at path and
// KMTRACKER_* environment variables, in that order. An empty path means
// DefaultPath, which may be missing; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	if err := loadFile(path, explicit, &cfg); err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	dbPath, err := ExpandHome(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	cfg.DatabasePath = dbPath
	if cfg.Logging.File != "" {
		if cfg.Logging.File, err = ExpandHome(cfg.Logging.File); err != nil {
			return nil, err
		}
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Pointer fields tell "unset" apart from zero values
type rawConfig struct {
	Database *string     `toml:"database"`
	Server   *rawServer  `toml:"server"`
	Logging  *rawLogging `toml:"logging"`
}

type rawServer struct {
	Host           *string  `toml:"host"`
	Port           *int     `toml:"port"`
	MetricsEnabled *bool    `toml:"metrics_enabled"`
	MetricsHost    *string  `toml:"metrics_host"`
	MetricsPort    *int     `toml:"metrics_port"`
	StatsCacheTTL  *string  `toml:"stats_cache_ttl"`
	RateLimit      *float64 `toml:"rate_limit"`
	RateBurst      *int     `toml:"rate_burst"`
}

type rawLogging struct {
	Level     *string `toml:"level"`
	File      *string `toml:"file"`
	MaxSizeMB *int    `toml:"max_size_mb"`
	MaxFiles  *int    `toml:"max_files"`
}

func loadFile(path string, required bool, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
	}
	return applyRaw(cfg, raw)
}

func applyRaw(cfg *Config, raw rawConfig) error {
	if raw.Database != nil {
		cfg.DatabasePath = *raw.Database
	}

	if s := raw.Server; s != nil {
		setIfPresent(&cfg.Server.Host, s.Host)
		setIfPresent(&cfg.Server.Port, s.Port)
		setIfPresent(&cfg.Server.MetricsEnabled, s.MetricsEnabled)
		setIfPresent(&cfg.Server.MetricsHost, s.MetricsHost)
		setIfPresent(&cfg.Server.MetricsPort, s.MetricsPort)
		setIfPresent(&cfg.Server.RateLimit, s.RateLimit)
		setIfPresent(&cfg.Server.RateBurst, s.RateBurst)
		if s.StatsCacheTTL != nil {
			ttl, err := time.ParseDuration(*s.StatsCacheTTL)
			if err != nil {
				return fmt.Errorf("%w: server.stats_cache_ttl: %v", ErrInvalidConfig, err)
			}
			cfg.Server.StatsCacheTTL = ttl
		}
	}

	if l := raw.Logging; l != nil {
		setIfPresent(&cfg.Logging.Level, l.Level)
		setIfPresent(&cfg.Logging.File, l.File)
		setIfPresent(&cfg.Logging.MaxSizeMB, l.MaxSizeMB)
		setIfPresent(&cfg.Logging.MaxFiles, l.MaxFiles)
	}
	return nil
}

func setIfPresent[V any](dst *V, src *V) {
	if src != nil {
		*dst = *src
	}
}

func applyEnvOverrides(cfg *Config) error {
	cfg.DatabasePath = getEnv("KMTRACKER_DATABASE", cfg.DatabasePath)
	cfg.Server.Host = getEnv("KMTRACKER_HOST", cfg.Server.Host)
	cfg.Server.MetricsHost = getEnv("KMTRACKER_METRICS_HOST", cfg.Server.MetricsHost)
	cfg.Logging.Level = getEnv("KMTRACKER_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.File = getEnv("KMTRACKER_LOG_FILE", cfg.Logging.File)

	var err error
	if cfg.Server.Port, err = getEnvInt("KMTRACKER_PORT", cfg.Server.Port); err != nil {
		return err
	}
	if cfg.Server.MetricsPort, err = getEnvInt("KMTRACKER_METRICS_PORT", cfg.Server.MetricsPort); err != nil {
		return err
	}
	if v := os.Getenv("KMTRACKER_METRICS_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: KMTRACKER_METRICS_ENABLED=%q", ErrInvalidConfig, v)
		}
		cfg.Server.MetricsEnabled = enabled
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, valueStr)
	}

	return value, nil
}

// ExpandHome replaces a leading "~" with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func validate(cfg Config) error {
	if strings.TrimSpace(cfg.DatabasePath) == "" {
		return fmt.Errorf("%w: database path must not be empty", ErrInvalidConfig)
	}
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging.level must be debug, info, warn or error", ErrInvalidConfig)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port out of range: %d", ErrInvalidConfig, cfg.Server.Port)
	}
	if cfg.Server.MetricsEnabled && (cfg.Server.MetricsPort <= 0 || cfg.Server.MetricsPort > 65535) {
		return fmt.Errorf("%w: server.metrics_port out of range: %d", ErrInvalidConfig, cfg.Server.MetricsPort)
	}
	if cfg.Server.StatsCacheTTL < 0 {
		return fmt.Errorf("%w: server.stats_cache_ttl must not be negative", ErrInvalidConfig)
	}
	if cfg.Server.RateLimit <= 0 || cfg.Server.RateBurst <= 0 {
		return fmt.Errorf("%w: server.rate_limit and server.rate_burst must be positive", ErrInvalidConfig)
	}
	if cfg.Logging.MaxSizeMB <= 0 || cfg.Logging.MaxFiles <= 0 {
		return fmt.Errorf("%w: logging.max_size_mb and logging.max_files must be positive", ErrInvalidConfig)
	}
	return nil
}
