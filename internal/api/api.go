// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/JaimeStill/sieve/internal/config"
	"github.com/JaimeStill/sieve/internal/infrastructure"
	"github.com/JaimeStill/sieve/pkg/lifecycle"
	"github.com/JaimeStill/sieve/pkg/middleware"
	"github.com/JaimeStill/sieve/pkg/module"
)

// API is the mounted HTTP module together with the domain systems behind it.
type API struct {
	Module *module.Module
	Domain *Domain
	logger *slog.Logger
}

// New creates the API module with all domain handlers and middleware.
func New(cfg *config.Config, infra *infrastructure.Infrastructure) (*API, error) {
	runtime := NewRuntime(cfg, infra)

	domain, err := NewDomain(runtime, cfg)
	if err != nil {
		return nil, fmt.Errorf("domain init failed: %w", err)
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.Logger(runtime.Logger))
	m.Use(middleware.Recover(runtime.Logger))
	m.Use(middleware.CORS(&cfg.API.CORS))

	return &API{Module: m, Domain: domain, logger: runtime.Logger}, nil
}

// Start resumes runs interrupted by the previous shutdown and starts the
// inbox watcher when enabled.
func (a *API) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() {
		if err := a.Domain.Runs.Recover(lc.Context()); err != nil {
			a.logger.Error("run recovery failed", "error", err)
		}
	})

	if a.Domain.Inbox != nil {
		if err := a.Domain.Inbox.Start(lc); err != nil {
			return fmt.Errorf("inbox start failed: %w", err)
		}
	}
	return nil
}
