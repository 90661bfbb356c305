package config

import (
	"fmt"
	"time"
)

const (
	EnvInboxEnabled = "SIEVE_INBOX_ENABLED"
	EnvInboxDir     = "SIEVE_INBOX_DIR"
	EnvInboxSettle  = "SIEVE_INBOX_SETTLE"
)

// InboxConfig enables the directory watcher that starts a run for each
// formula list dropped into Dir.
type InboxConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
	Settle  string `toml:"settle"`
}

// SettleDuration returns Settle as a time.Duration.
func (c *InboxConfig) SettleDuration() time.Duration {
	d, _ := time.ParseDuration(c.Settle)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *InboxConfig) Finalize() error {
	if c.Dir == "" {
		c.Dir = "inbox"
	}
	if c.Settle == "" {
		c.Settle = "500ms"
	}

	envBool(EnvInboxEnabled, &c.Enabled)
	envString(EnvInboxDir, &c.Dir)
	envString(EnvInboxSettle, &c.Settle)

	if _, err := time.ParseDuration(c.Settle); err != nil {
		return fmt.Errorf("invalid settle: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay. Enabled only applies when
// the overlay turns the inbox on.
func (c *InboxConfig) Merge(overlay *InboxConfig) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.Dir != "" {
		c.Dir = overlay.Dir
	}
	if overlay.Settle != "" {
		c.Settle = overlay.Settle
	}
}
