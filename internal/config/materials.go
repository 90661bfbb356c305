package config

import (
	"fmt"
	"time"
)

// Materials providers.
const (
	MaterialsProviderHTTP = "http"
	MaterialsProviderFile = "file"
)

const (
	EnvMaterialsProvider           = "SIEVE_MATERIALS_PROVIDER"
	EnvMaterialsBaseURL            = "SIEVE_MATERIALS_BASE_URL"
	EnvMaterialsAPIKey             = "SIEVE_MATERIALS_API_KEY"
	EnvMaterialsPhasesFile         = "SIEVE_MATERIALS_PHASES_FILE"
	EnvMaterialsIncludeTheoretical = "SIEVE_MATERIALS_INCLUDE_THEORETICAL"
	EnvMaterialsTimeout            = "SIEVE_MATERIALS_TIMEOUT"
	EnvMaterialsConcurrency        = "SIEVE_MATERIALS_CONCURRENCY"
)

// MaterialsConfig selects where competing phases come from. The http
// provider queries a Materials Project style API; the file provider reads
// a JSON array of phases. Only experimentally observed phases are used
// unless IncludeTheoretical is set.
type MaterialsConfig struct {
	Provider           string `toml:"provider"`
	BaseURL            string `toml:"base_url"`
	APIKey             string `toml:"api_key"`
	PhasesFile         string `toml:"phases_file"`
	IncludeTheoretical bool   `toml:"include_theoretical"`
	Timeout            string `toml:"timeout"`
	Concurrency        int    `toml:"concurrency"`
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *MaterialsConfig) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *MaterialsConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *MaterialsConfig) Merge(overlay *MaterialsConfig) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.PhasesFile != "" {
		c.PhasesFile = overlay.PhasesFile
	}
	if overlay.IncludeTheoretical {
		c.IncludeTheoretical = true
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.Concurrency != 0 {
		c.Concurrency = overlay.Concurrency
	}
}

func (c *MaterialsConfig) loadDefaults() {
	if c.Provider == "" {
		c.Provider = MaterialsProviderHTTP
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://api.materialsproject.org"
	}
	if c.Timeout == "" {
		c.Timeout = "30s"
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
}

func (c *MaterialsConfig) loadEnv() {
	envString(EnvMaterialsProvider, &c.Provider)
	envString(EnvMaterialsBaseURL, &c.BaseURL)
	envString(EnvMaterialsAPIKey, &c.APIKey)
	envString(EnvMaterialsPhasesFile, &c.PhasesFile)
	envBool(EnvMaterialsIncludeTheoretical, &c.IncludeTheoretical)
	envString(EnvMaterialsTimeout, &c.Timeout)
	envInt(EnvMaterialsConcurrency, &c.Concurrency)
}

func (c *MaterialsConfig) validate() error {
	switch c.Provider {
	case MaterialsProviderHTTP:
		if c.BaseURL == "" {
			return fmt.Errorf("base_url required for http provider")
		}
	case MaterialsProviderFile:
		if c.PhasesFile == "" {
			return fmt.Errorf("phases_file required for file provider")
		}
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be positive: %d", c.Concurrency)
	}
	return nil
}
