package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"slices"

	"github.com/google/uuid"

	"github.com/JaimeStill/sieve/internal/candidates"
	"github.com/JaimeStill/sieve/internal/checkpoint"
	"github.com/JaimeStill/sieve/pkg/handlers"
	"github.com/JaimeStill/sieve/pkg/routes"
	"github.com/JaimeStill/sieve/pkg/storage"
)

var errInvalidCheckpoint = errors.New("invalid run id or stage")

// checkpointHandler serves the raw JSON Lines checkpoint written at each
// stage boundary of a run.
type checkpointHandler struct {
	store  storage.System
	logger *slog.Logger
}

func newCheckpointHandler(store storage.System, logger *slog.Logger) *checkpointHandler {
	return &checkpointHandler{
		store:  store,
		logger: logger.With("handler", "checkpoints"),
	}
}

func (h *checkpointHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/checkpoints",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "/{run}/{stage}", Handler: h.download},
		},
	}
}

func (h *checkpointHandler) download(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(r.PathValue("run"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidCheckpoint)
		return
	}

	stage := candidates.Stage(r.PathValue("stage"))
	if !slices.Contains(candidates.Stages, stage) {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, errInvalidCheckpoint)
		return
	}

	key := checkpoint.Key(runID, stage)
	body, err := h.store.Download(r.Context(), key)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", checkpoint.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(key)))
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}
