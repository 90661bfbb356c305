// Package checkpoint persists the candidate set at each stage boundary as
// JSON Lines in blob storage so an interrupted run can resume.
package checkpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/JaimeStill/sieve/internal/candidates"
	"github.com/JaimeStill/sieve/pkg/storage"
)

// ContentType is the media type of checkpoint blobs.
const ContentType = "application/x-ndjson"

// ErrNotFound indicates no checkpoint exists for the run or stage.
var ErrNotFound = errors.New("checkpoint not found")

// Store reads and writes stage checkpoints.
type Store struct {
	storage storage.System
	logger  *slog.Logger
}

// New creates a Store over blob storage.
func New(store storage.System, logger *slog.Logger) *Store {
	return &Store{
		storage: store,
		logger:  logger.With("system", "checkpoint"),
	}
}

// Key returns the blob key of a stage checkpoint.
func Key(runID uuid.UUID, stage candidates.Stage) string {
	return fmt.Sprintf("runs/%s/%s.jsonl", runID, stage)
}

// Write replaces the checkpoint of stage with items, one candidate per line.
func (s *Store) Write(ctx context.Context, runID uuid.UUID, stage candidates.Stage, items []candidates.Candidate) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, c := range items {
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encode candidate %s: %w", c.ID, err)
		}
	}

	key := Key(runID, stage)
	if err := s.storage.Upload(ctx, key, &buf, ContentType); err != nil {
		return fmt.Errorf("write checkpoint %s: %w", key, err)
	}

	s.logger.Debug("checkpoint written", "run_id", runID, "stage", stage, "count", len(items))
	return nil
}

// Read loads the checkpoint of stage.
func (s *Store) Read(ctx context.Context, runID uuid.UUID, stage candidates.Stage) ([]candidates.Candidate, error) {
	key := Key(runID, stage)

	rc, err := s.storage.Download(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("read checkpoint %s: %w", key, err)
	}
	defer rc.Close()

	items := make([]candidates.Candidate, 0)
	dec := json.NewDecoder(rc)
	for {
		var c candidates.Candidate
		if err := dec.Decode(&c); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("decode checkpoint %s line %d: %w", key, len(items)+1, err)
		}
		items = append(items, c)
	}

	return items, nil
}

// Latest returns the most advanced stage with a checkpoint and its
// candidates. Returns ErrNotFound when the run has no checkpoints.
func (s *Store) Latest(ctx context.Context, runID uuid.UUID) (candidates.Stage, []candidates.Candidate, error) {
	for _, stage := range slices.Backward(candidates.Stages) {
		ok, err := s.storage.Exists(ctx, Key(runID, stage))
		if err != nil {
			return "", nil, fmt.Errorf("check checkpoint %s: %w", stage, err)
		}
		if !ok {
			continue
		}

		items, err := s.Read(ctx, runID, stage)
		if err != nil {
			return "", nil, err
		}
		return stage, items, nil
	}

	return "", nil, fmt.Errorf("%w: run %s", ErrNotFound, runID)
}
