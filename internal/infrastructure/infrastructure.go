// Package infrastructure provides core service initialization for application startup.
// It assembles the dependencies shared by every domain system: logging, the
// database, blob storage, the reference tables, and the bandgap model.
package infrastructure

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JaimeStill/sieve/internal/config"
	"github.com/JaimeStill/sieve/internal/predictor"
	"github.com/JaimeStill/sieve/internal/reference"
	"github.com/JaimeStill/sieve/pkg/database"
	"github.com/JaimeStill/sieve/pkg/lifecycle"
	"github.com/JaimeStill/sieve/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// Reference and Model are loaded once and shared read-only.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Reference *reference.Tables
	Model     predictor.Model
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := cfg.Log.NewLogger(os.Stderr)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	tables, err := reference.Load(reference.Paths{
		Abundance:     cfg.Reference.Abundance,
		Oxidation:     cfg.Reference.Oxidation,
		Prototypes:    cfg.Reference.Prototypes,
		Substitutions: cfg.Reference.Substitutions,
	})
	if err != nil {
		return nil, fmt.Errorf("reference init failed: %w", err)
	}

	model, err := loadModel(&cfg.Predictor)
	if err != nil {
		return nil, fmt.Errorf("predictor init failed: %w", err)
	}

	logger.Info("bandgap model loaded", "runtime", cfg.Predictor.Runtime, "path", cfg.Predictor.ModelPath)

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Reference: tables,
		Model:     model,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
// A model holding native resources is closed on shutdown.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}

	if closer, ok := i.Model.(io.Closer); ok {
		i.Lifecycle.OnShutdown(func() {
			<-i.Lifecycle.Context().Done()
			if err := closer.Close(); err != nil {
				i.Logger.Error("bandgap model close failed", "error", err)
			}
		})
	}
	return nil
}

func loadModel(cfg *config.PredictorConfig) (predictor.Model, error) {
	switch cfg.Runtime {
	case config.PredictorRuntimeONNX:
		return predictor.NewONNXModel(predictor.ONNXOptions{
			LibraryPath: cfg.LibraryPath,
			ModelPath:   cfg.ModelPath,
			InputName:   cfg.InputName,
			OutputName:  cfg.OutputName,
		})
	case config.PredictorRuntimeLinear:
		return predictor.LoadLinear(cfg.ModelPath)
	default:
		return nil, fmt.Errorf("unknown predictor runtime: %q", cfg.Runtime)
	}
}
