package config

import (
	"fmt"
	"time"
)

const (
	EnvJobsPollInterval = "SIEVE_JOBS_POLL_INTERVAL"
	EnvJobsTimeout      = "SIEVE_JOBS_TIMEOUT"
	EnvJobsWorkers      = "SIEVE_JOBS_WORKERS"
)

// JobsConfig controls how long stages 5 and 6 wait on compute jobs and how
// many candidates are evaluated at once. A job still running at Timeout
// leaves its candidate pending.
type JobsConfig struct {
	PollInterval string `toml:"poll_interval"`
	Timeout      string `toml:"timeout"`
	Workers      int    `toml:"workers"`
}

// PollIntervalDuration returns PollInterval as a time.Duration.
func (c *JobsConfig) PollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.PollInterval)
	return d
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *JobsConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *JobsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *JobsConfig) Merge(overlay *JobsConfig) {
	if overlay.PollInterval != "" {
		c.PollInterval = overlay.PollInterval
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
}

func (c *JobsConfig) loadDefaults() {
	if c.PollInterval == "" {
		c.PollInterval = "30s"
	}
	if c.Timeout == "" {
		c.Timeout = "6h"
	}
	if c.Workers == 0 {
		c.Workers = 16
	}
}

func (c *JobsConfig) loadEnv() {
	envString(EnvJobsPollInterval, &c.PollInterval)
	envString(EnvJobsTimeout, &c.Timeout)
	envInt(EnvJobsWorkers, &c.Workers)
}

func (c *JobsConfig) validate() error {
	poll, err := time.ParseDuration(c.PollInterval)
	if err != nil {
		return fmt.Errorf("invalid poll_interval: %w", err)
	}
	if poll <= 0 {
		return fmt.Errorf("poll_interval must be positive: %s", c.PollInterval)
	}
	timeout, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %s", c.Timeout)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive: %d", c.Workers)
	}
	return nil
}
