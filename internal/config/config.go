// Package config loads the sieve service configuration from a TOML base
// file, an optional environment overlay, and SIEVE_ environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/sieve/pkg/database"
	"github.com/JaimeStill/sieve/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvSieveEnv             = "SIEVE_ENV"
	EnvSieveShutdownTimeout = "SIEVE_SHUTDOWN_TIMEOUT"
	EnvSieveVersion         = "SIEVE_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "SIEVE_DB_HOST",
	Port:            "SIEVE_DB_PORT",
	Name:            "SIEVE_DB_NAME",
	User:            "SIEVE_DB_USER",
	Password:        "SIEVE_DB_PASSWORD",
	SSLMode:         "SIEVE_DB_SSL_MODE",
	MaxOpenConns:    "SIEVE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "SIEVE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "SIEVE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "SIEVE_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Provider:         "SIEVE_STORAGE_PROVIDER",
	Root:             "SIEVE_STORAGE_ROOT",
	ContainerName:    "SIEVE_STORAGE_CONTAINER_NAME",
	ConnectionString: "SIEVE_STORAGE_CONNECTION_STRING",
	AccountURL:       "SIEVE_STORAGE_ACCOUNT_URL",
}

// Config is the root configuration for the sieve service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Log             LogConfig       `toml:"log"`
	Database        database.Config `toml:"database"`
	Storage         storage.Config  `toml:"storage"`
	API             APIConfig       `toml:"api"`
	Screening       ScreeningConfig `toml:"screening"`
	Stability       StabilityConfig `toml:"stability"`
	Jobs            JobsConfig      `toml:"jobs"`
	Materials       MaterialsConfig `toml:"materials"`
	Predictor       PredictorConfig `toml:"predictor"`
	Reference       ReferenceConfig `toml:"reference"`
	Inbox           InboxConfig     `toml:"inbox"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the SIEVE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvSieveEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Log.Merge(&overlay.Log)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.API.Merge(&overlay.API)
	c.Screening.Merge(&overlay.Screening)
	c.Stability.Merge(&overlay.Stability)
	c.Jobs.Merge(&overlay.Jobs)
	c.Materials.Merge(&overlay.Materials)
	c.Predictor.Merge(&overlay.Predictor)
	c.Reference.Merge(&overlay.Reference)
	c.Inbox.Merge(&overlay.Inbox)
}

// Finalize applies defaults, environment overrides, and validation to every
// section.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}

	sections := []struct {
		name     string
		finalize func() error
	}{
		{"server", c.Server.Finalize},
		{"log", c.Log.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"storage", func() error { return c.Storage.Finalize(storageEnv) }},
		{"api", c.API.Finalize},
		{"screening", c.Screening.Finalize},
		{"stability", c.Stability.Finalize},
		{"jobs", c.Jobs.Finalize},
		{"materials", c.Materials.Finalize},
		{"predictor", c.Predictor.Finalize},
		{"reference", c.Reference.Finalize},
		{"inbox", c.Inbox.Finalize},
	}

	for _, s := range sections {
		if err := s.finalize(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvSieveShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvSieveVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvSieveEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func envFloat(name string, dst *float64) {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envInt(name string, dst *int) {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func mustDuration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
