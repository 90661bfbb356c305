package api

import (
	"net/http"

	"github.com/JaimeStill/sieve/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	runtime *Runtime,
) {
	checkpoints := newCheckpointHandler(runtime.Storage, runtime.Logger)

	routes.Register(
		mux,
		domain.Runs.Handler(runtime.MaxUploadSize).Routes(),
		domain.Candidates.Handler().Routes(),
		domain.Jobs.Handler().Routes(),
		checkpoints.routes(),
	)
}
