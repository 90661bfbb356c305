package main

import (
	"encoding/json"
	"net/http"

	"github.com/JaimeStill/sieve/internal/api"
	"github.com/JaimeStill/sieve/internal/config"
	"github.com/JaimeStill/sieve/internal/infrastructure"
	"github.com/JaimeStill/sieve/pkg/lifecycle"
	"github.com/JaimeStill/sieve/pkg/module"
)

// Modules holds the mounted HTTP modules and the readiness checks behind
// /readyz.
type Modules struct {
	API    *api.API
	checks map[string]lifecycle.ReadinessChecker
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	a, err := api.New(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{
		API: a,
		checks: map[string]lifecycle.ReadinessChecker{
			"lifecycle": infra.Lifecycle,
			"database":  infra.Database,
		},
	}, nil
}

// Router mounts every module beside the native probe endpoints.
func (m *Modules) Router() *module.Router {
	router := module.NewRouter()
	router.HandleNative("GET /healthz", m.healthz)
	router.HandleNative("GET /readyz", m.readyz)
	router.Mount(m.API.Module)
	return router
}

func (m *Modules) healthz(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (m *Modules) readyz(w http.ResponseWriter, _ *http.Request) {
	if pending := lifecycle.NotReady(m.checks); len(pending) > 0 {
		writeProbe(w, http.StatusServiceUnavailable, map[string]any{
			"status":  "not ready",
			"pending": pending,
		})
		return
	}
	writeProbe(w, http.StatusOK, map[string]any{"status": "ready"})
}

func writeProbe(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
