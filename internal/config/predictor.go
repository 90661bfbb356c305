package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Predictor runtimes.
const (
	PredictorRuntimeONNX   = "onnx"
	PredictorRuntimeLinear = "linear"
)

const (
	EnvPredictorRuntime     = "SIEVE_PREDICTOR_RUNTIME"
	EnvPredictorModelPath   = "SIEVE_PREDICTOR_MODEL_PATH"
	EnvPredictorLibraryPath = "SIEVE_PREDICTOR_LIBRARY_PATH"
	EnvPredictorInputName   = "SIEVE_PREDICTOR_INPUT_NAME"
	EnvPredictorOutputName  = "SIEVE_PREDICTOR_OUTPUT_NAME"

	EnvReferenceAbundance     = "SIEVE_REFERENCE_ABUNDANCE"
	EnvReferenceOxidation     = "SIEVE_REFERENCE_OXIDATION"
	EnvReferencePrototypes    = "SIEVE_REFERENCE_PROTOTYPES"
	EnvReferenceSubstitutions = "SIEVE_REFERENCE_SUBSTITUTIONS"
)

// PredictorConfig locates the trained bandgap model. Runtime defaults to
// onnx for .onnx model files and linear for everything else.
type PredictorConfig struct {
	Runtime     string `toml:"runtime"`
	ModelPath   string `toml:"model_path"`
	LibraryPath string `toml:"library_path"`
	InputName   string `toml:"input_name"`
	OutputName  string `toml:"output_name"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *PredictorConfig) Finalize() error {
	c.loadEnv()
	c.loadDefaults()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *PredictorConfig) Merge(overlay *PredictorConfig) {
	if overlay.Runtime != "" {
		c.Runtime = overlay.Runtime
	}
	if overlay.ModelPath != "" {
		c.ModelPath = overlay.ModelPath
	}
	if overlay.LibraryPath != "" {
		c.LibraryPath = overlay.LibraryPath
	}
	if overlay.InputName != "" {
		c.InputName = overlay.InputName
	}
	if overlay.OutputName != "" {
		c.OutputName = overlay.OutputName
	}
}

// loadDefaults runs after loadEnv so the runtime follows an overridden
// model path.
func (c *PredictorConfig) loadDefaults() {
	if c.ModelPath == "" {
		c.ModelPath = "models/bandgap.onnx"
	}
	if c.Runtime == "" {
		if strings.EqualFold(filepath.Ext(c.ModelPath), ".onnx") {
			c.Runtime = PredictorRuntimeONNX
		} else {
			c.Runtime = PredictorRuntimeLinear
		}
	}
	if c.InputName == "" {
		c.InputName = "features"
	}
	if c.OutputName == "" {
		c.OutputName = "bandgap"
	}
}

func (c *PredictorConfig) loadEnv() {
	envString(EnvPredictorRuntime, &c.Runtime)
	envString(EnvPredictorModelPath, &c.ModelPath)
	envString(EnvPredictorLibraryPath, &c.LibraryPath)
	envString(EnvPredictorInputName, &c.InputName)
	envString(EnvPredictorOutputName, &c.OutputName)
}

func (c *PredictorConfig) validate() error {
	if c.Runtime != PredictorRuntimeONNX && c.Runtime != PredictorRuntimeLinear {
		return fmt.Errorf("unknown runtime %q", c.Runtime)
	}
	return nil
}

// ReferenceConfig overrides the embedded reference tables with files.
type ReferenceConfig struct {
	Abundance     string `toml:"abundance"`
	Oxidation     string `toml:"oxidation"`
	Prototypes    string `toml:"prototypes"`
	Substitutions string `toml:"substitutions"`
}

// Finalize applies environment variable overrides. Empty paths keep the
// embedded tables.
func (c *ReferenceConfig) Finalize() error {
	envString(EnvReferenceAbundance, &c.Abundance)
	envString(EnvReferenceOxidation, &c.Oxidation)
	envString(EnvReferencePrototypes, &c.Prototypes)
	envString(EnvReferenceSubstitutions, &c.Substitutions)
	return nil
}

// Merge overwrites non-zero fields from overlay.
func (c *ReferenceConfig) Merge(overlay *ReferenceConfig) {
	if overlay.Abundance != "" {
		c.Abundance = overlay.Abundance
	}
	if overlay.Oxidation != "" {
		c.Oxidation = overlay.Oxidation
	}
	if overlay.Prototypes != "" {
		c.Prototypes = overlay.Prototypes
	}
	if overlay.Substitutions != "" {
		c.Substitutions = overlay.Substitutions
	}
}
