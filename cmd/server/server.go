package main

import (
	"context"
	"fmt"
	"time"

	"github.com/JaimeStill/sieve/internal/config"
	"github.com/JaimeStill/sieve/internal/infrastructure"
	"github.com/JaimeStill/sieve/pkg/formatting"
)

// Server wires infrastructure, the API module, and the HTTP listener into
// one lifecycle.
type Server struct {
	infra    *infrastructure.Infrastructure
	modules  *Modules
	http     *httpServer
	shutdown time.Duration
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, err
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, err
	}

	infra.Logger.Info("server initialized",
		"addr", cfg.Server.Addr(),
		"version", cfg.Version,
		"bandgap_window", fmt.Sprintf("[%g, %g]", cfg.Screening.BandgapMin, cfg.Screening.BandgapMax),
		"oxidation_threshold", cfg.Screening.OxidationThreshold,
		"materials", cfg.Materials.Provider,
		"storage", cfg.Storage.Provider,
		"inbox", cfg.Inbox.Enabled,
		"max_upload", formatting.FormatBytes(cfg.API.MaxUploadSizeBytes(), 0),
	)

	return &Server{
		infra:    infra,
		modules:  modules,
		http:     newHTTPServer(&cfg.Server, modules.Router(), infra.Logger),
		shutdown: cfg.ShutdownTimeoutDuration(),
	}, nil
}

// Start registers every system with the lifecycle coordinator and begins
// serving. Startup hooks run in the background.
func (s *Server) Start() error {
	lc := s.infra.Lifecycle

	if err := s.infra.Start(); err != nil {
		return err
	}
	if err := s.modules.API.Start(lc); err != nil {
		return err
	}
	if err := s.http.Start(lc); err != nil {
		return err
	}

	go func() {
		lc.WaitForStartup()
		s.infra.Logger.Info("all subsystems ready", "database", s.infra.Database.Ready())
	}()

	return nil
}

// Run starts the server and blocks until ctx is cancelled, then shuts down
// within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	s.infra.Logger.Info("initiating shutdown", "timeout", s.shutdown)
	return s.infra.Lifecycle.Shutdown(s.shutdown)
}
