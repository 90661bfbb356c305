package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/sieve/internal/candidates"
	"github.com/JaimeStill/sieve/internal/confirm"
	"github.com/JaimeStill/sieve/internal/jobs"
	"github.com/JaimeStill/sieve/internal/stability"
)

var (
	errPhasePending = errors.New("competing phase calculation pending")
	errPhaseFailed  = errors.New("competing phase calculation failed")
)

func (r *Runner) stability(ctx context.Context, items []candidates.Candidate) ([]candidates.Candidate, error) {
	err := r.eachCandidate(ctx, items,
		func(c *candidates.Candidate) bool { return c.EnergyAboveHull == nil },
		r.evaluateStability,
	)
	return items, err
}

func (r *Runner) bandgap(ctx context.Context, items []candidates.Candidate) ([]candidates.Candidate, error) {
	err := r.eachCandidate(ctx, items,
		func(c *candidates.Candidate) bool { return c.EnergyAboveHull != nil && c.FinalBandgap == nil },
		r.confirmBandgap,
	)
	return items, err
}

// evaluateStability relaxes the assigned structure, then places the relaxed
// energy against the hull of the candidate's competing phases.
func (r *Runner) evaluateStability(ctx context.Context, c *candidates.Candidate) error {
	if c.EnergyPerAtom == nil {
		out, err := r.rt.Jobs.Run(ctx, jobs.Spec{
			Identity:  identity(c),
			Structure: *c.Structure,
			Profile:   jobs.ProfileRelax,
		})
		if err != nil {
			return err
		}
		if c.RelaxJob == nil {
			if err := c.ApplyRelaxJob(out.Job); err != nil {
				return err
			}
		}
		if settle(c, candidates.StageStability, out) {
			return nil
		}

		if out.Result == nil || out.Result.EnergyPerAtom == nil {
			c.Drop(candidates.StageStability, candidates.ReasonCalculationFailed,
				fmt.Sprintf("job %s returned no energy", out.Job))
			return nil
		}

		relaxed := out.Result.Structure
		if relaxed == nil {
			relaxed = c.Structure
		}
		if err := c.ApplyRelaxation(relaxed, *out.Result.EnergyPerAtom); err != nil {
			return err
		}
	}

	entries, err := r.competingPhases(ctx, c)
	switch {
	case errors.Is(err, errPhasePending):
		c.Drop(candidates.StageStability, candidates.ReasonPending, err.Error())
		return nil
	case errors.Is(err, errPhaseFailed):
		c.Drop(candidates.StageStability, candidates.ReasonCalculationFailed, err.Error())
		return nil
	case err != nil:
		if ctx.Err() != nil {
			return err
		}
		r.logger.Warn("competing phases unavailable", "formula", c.Formula, "error", err)
		c.Drop(candidates.StageStability, candidates.ReasonPending, fmt.Sprintf("competing phases unavailable: %v", err))
		return nil
	}

	res, err := r.rt.Stability.Evaluate(stability.Entry{
		ID:            c.ID.String(),
		Composition:   c.Composition,
		EnergyPerAtom: *c.EnergyPerAtom,
	}, entries)
	if errors.Is(err, stability.ErrInsufficientCompetingPhases) {
		c.Drop(candidates.StageStability, candidates.ReasonInsufficientCompetingPhases, err.Error())
		return nil
	}
	if err != nil {
		c.Drop(candidates.StageStability, candidates.ReasonCalculationFailed, err.Error())
		return nil
	}

	if err := c.ApplyStability(res); err != nil {
		return err
	}

	if res.Label == stability.Unstable {
		c.Drop(candidates.StageStability, candidates.ReasonThermodynamicallyUnstable,
			fmt.Sprintf("%.4f eV/atom above hull", res.EnergyAboveHull))
		return nil
	}

	c.Note(candidates.StageStability, fmt.Sprintf("%s, %.4f eV/atom above hull", res.Label, res.EnergyAboveHull))
	c.Advance(candidates.StageStability)
	return nil
}

// competingPhases returns the phase diagram entries of the candidate's
// chemical system. With RecomputePhases set, each phase with a known
// structure is relaxed under the candidate's profile so energies compare
// like for like.
func (r *Runner) competingPhases(ctx context.Context, c *candidates.Candidate) ([]stability.Entry, error) {
	phases, err := r.rt.Phases.Phases(ctx, c.Composition.ElementSet())
	if err != nil {
		return nil, err
	}

	entries := make([]stability.Entry, 0, len(phases))
	for _, p := range phases {
		energy := p.EnergyPerAtom

		if r.rt.Options.RecomputePhases && p.Structure != nil {
			out, err := r.rt.Jobs.Run(ctx, jobs.Spec{
				Identity:  p.ID,
				Structure: *p.Structure,
				Profile:   jobs.ProfileRelax,
			})
			if err != nil {
				return nil, err
			}

			switch {
			case out.State == jobs.OutcomePending:
				return nil, fmt.Errorf("%w: %s", errPhasePending, p.ID)
			case out.State == jobs.OutcomeFailed:
				return nil, fmt.Errorf("%w: %s: %s", errPhaseFailed, p.ID, out.Message)
			case out.Result == nil || out.Result.EnergyPerAtom == nil:
				return nil, fmt.Errorf("%w: %s returned no energy", errPhaseFailed, p.ID)
			}
			energy = *out.Result.EnergyPerAtom
		}

		entries = append(entries, stability.Entry{
			ID:            p.ID,
			Composition:   p.Composition,
			EnergyPerAtom: energy,
		})
	}

	return entries, nil
}

// confirmBandgap runs the bandgap calculation on the relaxed structure and
// confirms the candidate when the result is trustworthy.
func (r *Runner) confirmBandgap(ctx context.Context, c *candidates.Candidate) error {
	s := c.RelaxedStructure
	if s == nil {
		s = c.Structure
	}

	out, err := r.rt.Jobs.Run(ctx, jobs.Spec{
		Identity:  identity(c),
		Structure: *s,
		Profile:   jobs.ProfileBandgap,
	})
	if err != nil {
		return err
	}
	if c.BandgapJob == nil {
		if err := c.ApplyBandgapJob(out.Job); err != nil {
			return err
		}
	}
	if settle(c, candidates.StageBandgap, out) {
		return nil
	}

	conf, err := confirm.Confirm(out.Result)
	if err != nil {
		c.Drop(candidates.StageBandgap, candidates.ReasonBandgapUnconfirmed, err.Error())
		return nil
	}
	if err := c.ApplyBandgap(conf); err != nil {
		return err
	}

	if !conf.Trustworthy {
		c.Drop(candidates.StageBandgap, candidates.ReasonBandgapUnconfirmed, "calculation not converged")
		return nil
	}

	c.Confirm()
	return nil
}

// settle drops c when out did not complete and reports whether it did.
func settle(c *candidates.Candidate, stage candidates.Stage, out jobs.Outcome) bool {
	switch out.State {
	case jobs.OutcomePending:
		c.Drop(stage, candidates.ReasonPending, fmt.Sprintf("job %s: %s", out.Job, out.Message))
		return true
	case jobs.OutcomeFailed:
		c.Drop(stage, candidates.ReasonCalculationFailed,
			fmt.Sprintf("job %s failed after %d attempts: %s", out.Job, out.Attempts, out.Message))
		return true
	}
	return false
}

// identity names the calculation of a candidate's assigned structure. The
// same composition in the same prototype shares jobs across runs.
func identity(c *candidates.Candidate) string {
	reduced, _ := c.Composition.Reduced()
	return reduced.Formula() + ":" + c.Structure.Prototype
}

// eachCandidate runs fn for every active candidate selected by want with
// bounded parallelism.
func (r *Runner) eachCandidate(
	ctx context.Context,
	items []candidates.Candidate,
	want func(*candidates.Candidate) bool,
	fn func(ctx context.Context, c *candidates.Candidate) error,
) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.rt.Options.evaluationWorkers())

	for i := range items {
		c := &items[i]
		if !c.Active() || !want(c) {
			continue
		}
		g.Go(func() error {
			if err := fn(gctx, c); err != nil {
				return fmt.Errorf("candidate %s: %w", c.Formula, err)
			}
			return nil
		})
	}

	return g.Wait()
}
