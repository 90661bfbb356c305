package config

import (
	"fmt"
	"math"
)

const (
	EnvScreeningBandgapMin         = "SIEVE_SCREENING_BANDGAP_MIN"
	EnvScreeningBandgapMax         = "SIEVE_SCREENING_BANDGAP_MAX"
	EnvScreeningOxidationThreshold = "SIEVE_SCREENING_OXIDATION_THRESHOLD"
	EnvScreeningWorkers            = "SIEVE_SCREENING_WORKERS"
	EnvScreeningBatchSize          = "SIEVE_SCREENING_BATCH_SIZE"

	EnvStabilityTolerance        = "SIEVE_STABILITY_TOLERANCE"
	EnvStabilityMetastableCutoff = "SIEVE_STABILITY_METASTABLE_CUTOFF"
	EnvStabilityRecomputePhases  = "SIEVE_STABILITY_RECOMPUTE_PHASES"
)

// ScreeningConfig holds the thresholds and parallelism of stages 1 to 4.
// The bandgap window is closed and in eV.
type ScreeningConfig struct {
	BandgapMin         float64 `toml:"bandgap_min"`
	BandgapMax         float64 `toml:"bandgap_max"`
	OxidationThreshold float64 `toml:"oxidation_threshold"`
	Workers            int     `toml:"workers"`
	BatchSize          int     `toml:"batch_size"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ScreeningConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ScreeningConfig) Merge(overlay *ScreeningConfig) {
	if overlay.BandgapMin != 0 {
		c.BandgapMin = overlay.BandgapMin
	}
	if overlay.BandgapMax != 0 {
		c.BandgapMax = overlay.BandgapMax
	}
	if overlay.OxidationThreshold != 0 {
		c.OxidationThreshold = overlay.OxidationThreshold
	}
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.BatchSize != 0 {
		c.BatchSize = overlay.BatchSize
	}
}

func (c *ScreeningConfig) loadDefaults() {
	if c.BandgapMin == 0 && c.BandgapMax == 0 {
		c.BandgapMin = 1.0
		c.BandgapMax = 2.5
	}
	if c.OxidationThreshold == 0 {
		c.OxidationThreshold = 0.01
	}
	if c.Workers == 0 {
		c.Workers = 8
	}
	if c.BatchSize == 0 {
		c.BatchSize = 256
	}
}

func (c *ScreeningConfig) loadEnv() {
	envFloat(EnvScreeningBandgapMin, &c.BandgapMin)
	envFloat(EnvScreeningBandgapMax, &c.BandgapMax)
	envFloat(EnvScreeningOxidationThreshold, &c.OxidationThreshold)
	envInt(EnvScreeningWorkers, &c.Workers)
	envInt(EnvScreeningBatchSize, &c.BatchSize)
}

func (c *ScreeningConfig) validate() error {
	if math.IsNaN(c.BandgapMin) || math.IsNaN(c.BandgapMax) || c.BandgapMin > c.BandgapMax {
		return fmt.Errorf("invalid bandgap window [%g, %g]", c.BandgapMin, c.BandgapMax)
	}
	if c.OxidationThreshold < 0 || c.OxidationThreshold > 1 {
		return fmt.Errorf("oxidation_threshold must be within [0, 1]: %g", c.OxidationThreshold)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive: %d", c.Workers)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive: %d", c.BatchSize)
	}
	return nil
}

// StabilityConfig holds the hull classification bands in eV/atom.
// RecomputePhases relaxes every competing phase through the compute
// backend instead of trusting the database energies.
type StabilityConfig struct {
	Tolerance        float64 `toml:"tolerance"`
	MetastableCutoff float64 `toml:"metastable_cutoff"`
	RecomputePhases  bool    `toml:"recompute_phases"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *StabilityConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. RecomputePhases only
// applies when the overlay enables it.
func (c *StabilityConfig) Merge(overlay *StabilityConfig) {
	if overlay.Tolerance != 0 {
		c.Tolerance = overlay.Tolerance
	}
	if overlay.MetastableCutoff != 0 {
		c.MetastableCutoff = overlay.MetastableCutoff
	}
	if overlay.RecomputePhases {
		c.RecomputePhases = true
	}
}

func (c *StabilityConfig) loadDefaults() {
	if c.Tolerance == 0 {
		c.Tolerance = 1e-6
	}
	if c.MetastableCutoff == 0 {
		c.MetastableCutoff = 0.1
	}
}

func (c *StabilityConfig) loadEnv() {
	envFloat(EnvStabilityTolerance, &c.Tolerance)
	envFloat(EnvStabilityMetastableCutoff, &c.MetastableCutoff)
	envBool(EnvStabilityRecomputePhases, &c.RecomputePhases)
}

func (c *StabilityConfig) validate() error {
	if c.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative: %g", c.Tolerance)
	}
	if c.MetastableCutoff <= c.Tolerance {
		return fmt.Errorf("metastable_cutoff %g must exceed tolerance %g", c.MetastableCutoff, c.Tolerance)
	}
	return nil
}
