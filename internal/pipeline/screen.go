package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/sieve/internal/candidates"
	"github.com/JaimeStill/sieve/internal/composition"
	"github.com/JaimeStill/sieve/internal/oxidation"
	"github.com/JaimeStill/sieve/internal/structure"
	"github.com/JaimeStill/sieve/internal/sustainability"
)

// intake parses every input line into a candidate. Unparseable input is
// kept as a rejected candidate.
func intake(runID uuid.UUID, inputs []string) []candidates.Candidate {
	items := make([]candidates.Candidate, 0, len(inputs))
	for i, in := range inputs {
		in = strings.TrimSpace(in)
		comp, err := composition.Parse(in)
		if err != nil {
			items = append(items, candidates.Invalid(runID, i, in, err))
			continue
		}
		items = append(items, candidates.NewCandidate(runID, i, in, comp))
	}
	return items
}

func (r *Runner) predict(ctx context.Context, items []candidates.Candidate) ([]candidates.Candidate, error) {
	window := r.rt.Predictor.Window()

	err := r.eachBatch(ctx, items, func(ctx context.Context, batch []*candidates.Candidate) error {
		comps := make([]composition.Composition, len(batch))
		for k, c := range batch {
			comps[k] = c.Composition
		}

		preds, err := r.rt.Predictor.Predict(ctx, comps)
		if err != nil {
			return err
		}

		for k, c := range batch {
			p := preds[k]
			if p.Err != nil {
				c.Drop(candidates.StagePredict, candidates.ReasonInvalidComposition, p.Err.Error())
				continue
			}
			if math.IsNaN(p.Bandgap) || math.IsInf(p.Bandgap, 0) {
				c.Drop(candidates.StagePredict, candidates.ReasonBandgapOutOfWindow, "model returned a non-finite bandgap")
				continue
			}
			if err := c.ApplyPrediction(p.Bandgap); err != nil {
				return err
			}
			if !p.Accepted {
				c.Drop(candidates.StagePredict, candidates.ReasonBandgapOutOfWindow,
					fmt.Sprintf("%.3f eV outside [%.3f, %.3f]", p.Bandgap, window.Min, window.Max))
				continue
			}
			c.Advance(candidates.StagePredict)
		}
		return nil
	})
	return items, err
}

// rank scores active candidates and reorders the set by descending score.
// Inactive candidates follow in their existing order.
func (r *Runner) rank(_ context.Context, items []candidates.Candidate) ([]candidates.Candidate, error) {
	for i := range items {
		c := &items[i]
		if !c.Active() {
			continue
		}

		score, err := r.rt.Ranker.Score(c.Composition)
		if err != nil {
			c.Drop(candidates.StageRank, candidates.ReasonInvalidComposition, err.Error())
			continue
		}
		if err := c.ApplyScore(score); err != nil {
			return nil, err
		}
		c.Advance(candidates.StageRank)
	}

	sustainability.Rank(items, func(c candidates.Candidate) (float64, bool) {
		if !c.Active() || c.SustainabilityScore == nil {
			return 0, false
		}
		return *c.SustainabilityScore, true
	})
	return items, nil
}

func (r *Runner) assign(ctx context.Context, items []candidates.Candidate) ([]candidates.Candidate, error) {
	err := r.eachBatch(ctx, items, func(_ context.Context, batch []*candidates.Candidate) error {
		for _, c := range batch {
			matches, err := r.rt.Assigner.Assign(c.Composition)
			if errors.Is(err, structure.ErrNoMatch) {
				reduced, _ := c.Composition.Reduced()
				c.Drop(candidates.StageAssign, candidates.ReasonNoStructureMatch,
					fmt.Sprintf("no prototype for %s", reduced.Anonymized()))
				continue
			}
			if err != nil {
				return err
			}

			top := matches[0]
			if err := c.ApplyStructure(top.Structure, top.Probability); err != nil {
				return err
			}
			c.Advance(candidates.StageAssign)
		}
		return nil
	})
	return items, err
}

func (r *Runner) oxidize(ctx context.Context, items []candidates.Candidate) ([]candidates.Candidate, error) {
	err := r.eachBatch(ctx, items, func(_ context.Context, batch []*candidates.Candidate) error {
		for _, c := range batch {
			a, err := r.rt.Oxidation.Check(*c.Structure)
			if applyErr := c.ApplyOxidation(a.States, a.Probability); applyErr != nil {
				return applyErr
			}
			if errors.Is(err, oxidation.ErrImprobable) {
				c.Drop(candidates.StageOxidation, candidates.ReasonOxidationStateImprobable, err.Error())
				continue
			}
			if err != nil {
				return err
			}
			c.Advance(candidates.StageOxidation)
		}
		return nil
	})
	return items, err
}

// eachBatch splits the active candidates into batches and runs fn over
// them with bounded parallelism. Each batch owns its candidates.
func (r *Runner) eachBatch(
	ctx context.Context,
	items []candidates.Candidate,
	fn func(ctx context.Context, batch []*candidates.Candidate) error,
) error {
	var active []*candidates.Candidate
	for i := range items {
		if items[i].Active() {
			active = append(active, &items[i])
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.rt.Options.workers())

	for batch := range slices.Chunk(active, r.rt.Options.batchSize()) {
		g.Go(func() error {
			return fn(gctx, batch)
		})
	}

	return g.Wait()
}
