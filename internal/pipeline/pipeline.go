package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/sieve/internal/candidates"
	"github.com/JaimeStill/sieve/internal/checkpoint"
)

type stageFunc func(ctx context.Context, items []candidates.Candidate) ([]candidates.Candidate, error)

type step struct {
	stage candidates.Stage
	run   stageFunc
}

// Runner executes screening runs. Every stage boundary is checkpointed, so
// calling Screen or Evaluate again for the same run resumes after the last
// completed stage.
type Runner struct {
	rt     *Runtime
	logger *slog.Logger
}

// New creates a Runner.
func New(rt *Runtime) *Runner {
	return &Runner{
		rt:     rt,
		logger: rt.Logger.With("system", "pipeline"),
	}
}

// Screen runs the offline stages (predict, rank, assign, oxidation) over
// inputs. Inputs are ignored when the run already has checkpoints.
func (r *Runner) Screen(ctx context.Context, runID uuid.UUID, inputs []string) ([]candidates.Candidate, error) {
	latest, items, err := r.rt.Checkpoints.Latest(ctx, runID)
	switch {
	case errors.Is(err, checkpoint.ErrNotFound):
		if len(inputs) == 0 {
			return nil, ErrNoInput
		}
		items = intake(runID, inputs)
		latest = candidates.StageIntake
		if err := r.rt.Checkpoints.Write(ctx, runID, latest, items); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		r.logger.Info("resuming run", "run_id", runID, "after", latest)
	}

	items, err = r.execute(ctx, runID, latest, items, []step{
		{candidates.StagePredict, r.predict},
		{candidates.StageRank, r.rank},
		{candidates.StageAssign, r.assign},
		{candidates.StageOxidation, r.oxidize},
	})
	if err != nil {
		return nil, err
	}

	if err := r.rt.Recorder.Save(ctx, items); err != nil {
		return nil, fmt.Errorf("record candidates: %w", err)
	}
	return items, nil
}

// Evaluate runs the stability and bandgap stages for the active candidates
// of a screened run. Pending candidates from an earlier pass are resumed.
func (r *Runner) Evaluate(ctx context.Context, runID uuid.UUID) ([]candidates.Candidate, error) {
	latest, items, err := r.rt.Checkpoints.Latest(ctx, runID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotScreened, runID)
	}
	if err != nil {
		return nil, err
	}
	if stageIndex(latest) < stageIndex(candidates.StageOxidation) {
		return nil, fmt.Errorf("%w: %s stopped after %s", ErrNotScreened, runID, latest)
	}

	resumed := 0
	for i := range items {
		if items[i].Status == candidates.StatusPending {
			items[i].Resume(items[i].Stage)
			resumed++
		}
	}
	if resumed > 0 {
		r.logger.Info("resuming pending candidates", "run_id", runID, "count", resumed)
	}

	items, err = r.execute(ctx, runID, candidates.StageOxidation, items, []step{
		{candidates.StageStability, r.stability},
		{candidates.StageBandgap, r.bandgap},
	})
	if err != nil {
		return nil, err
	}

	if err := r.rt.Recorder.Save(ctx, items); err != nil {
		return nil, fmt.Errorf("record candidates: %w", err)
	}
	return items, nil
}

func (r *Runner) execute(
	ctx context.Context,
	runID uuid.UUID,
	latest candidates.Stage,
	items []candidates.Candidate,
	steps []step,
) ([]candidates.Candidate, error) {
	for _, s := range steps {
		if stageIndex(s.stage) <= stageIndex(latest) {
			continue
		}

		start := time.Now()
		active := countActive(items)

		var err error
		items, err = s.run(ctx, items)
		if err != nil {
			return nil, fmt.Errorf("%s stage: %w", s.stage, err)
		}

		if err := r.rt.Checkpoints.Write(ctx, runID, s.stage, items); err != nil {
			return nil, err
		}

		r.logger.Info("stage complete",
			"run_id", runID,
			"stage", s.stage,
			"in", active,
			"out", countActive(items),
			"duration", time.Since(start),
		)
	}
	return items, nil
}

func stageIndex(s candidates.Stage) int {
	return slices.Index(candidates.Stages, s)
}

func countActive(items []candidates.Candidate) int {
	n := 0
	for i := range items {
		if items[i].Active() {
			n++
		}
	}
	return n
}
