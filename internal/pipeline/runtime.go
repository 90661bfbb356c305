// Package pipeline runs candidates through the screening stages and
// records every decision.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/JaimeStill/sieve/internal/candidates"
	"github.com/JaimeStill/sieve/internal/checkpoint"
	"github.com/JaimeStill/sieve/internal/jobs"
	"github.com/JaimeStill/sieve/internal/materials"
	"github.com/JaimeStill/sieve/internal/oxidation"
	"github.com/JaimeStill/sieve/internal/predictor"
	"github.com/JaimeStill/sieve/internal/stability"
	"github.com/JaimeStill/sieve/internal/structure"
	"github.com/JaimeStill/sieve/internal/sustainability"
)

var (
	// ErrNotScreened indicates Evaluate was called before the offline
	// stages finished for the run.
	ErrNotScreened = errors.New("run has not completed screening")
	// ErrNoInput indicates a run with no compositions.
	ErrNoInput = errors.New("no compositions to screen")
)

// Recorder persists candidate records after each pass.
type Recorder interface {
	Save(ctx context.Context, items []candidates.Candidate) error
}

// Options tunes parallelism.
type Options struct {
	// Workers bounds concurrent batches in the offline stages.
	Workers int
	// BatchSize is the number of candidates per predictor call and worker chunk.
	BatchSize int
	// EvaluationWorkers bounds candidates waiting on compute jobs at once.
	EvaluationWorkers int
	// RecomputePhases relaxes each competing phase with the same profile as
	// the candidate instead of using database energies.
	RecomputePhases bool
}

// Runtime bundles the dependencies that pipeline stages require.
type Runtime struct {
	Predictor   *predictor.Predictor
	Ranker      *sustainability.Ranker
	Assigner    *structure.Assigner
	Oxidation   oxidation.Filter
	Stability   stability.Evaluator
	Phases      materials.Source
	Jobs        *jobs.Orchestrator
	Checkpoints *checkpoint.Store
	Recorder    Recorder
	Logger      *slog.Logger
	Options     Options
}

func (o Options) workers() int {
	return max(o.Workers, 1)
}

func (o Options) batchSize() int {
	return max(o.BatchSize, 1)
}

func (o Options) evaluationWorkers() int {
	return max(o.EvaluationWorkers, 1)
}
