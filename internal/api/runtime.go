package api

import (
	"github.com/JaimeStill/sieve/internal/checkpoint"
	"github.com/JaimeStill/sieve/internal/config"
	"github.com/JaimeStill/sieve/internal/infrastructure"
	"github.com/JaimeStill/sieve/pkg/pagination"
)

// Runtime extends Infrastructure with the settings and stores shared by
// every domain system of the API.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination    pagination.Config
	MaxUploadSize int64
	Checkpoints   *checkpoint.Store
}

// NewRuntime creates an API runtime with a module-scoped logger. The
// infrastructure systems themselves are shared, not copied.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	scoped := *infra
	scoped.Logger = infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &scoped,
		Pagination:     cfg.API.Pagination,
		MaxUploadSize:  cfg.API.MaxUploadSizeBytes(),
		Checkpoints:    checkpoint.New(infra.Storage, scoped.Logger),
	}
}
