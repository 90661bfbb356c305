package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/sieve/internal/candidates"
	"github.com/JaimeStill/sieve/internal/checkpoint"
	"github.com/JaimeStill/sieve/internal/composition"
	"github.com/JaimeStill/sieve/internal/jobs"
	"github.com/JaimeStill/sieve/internal/materials"
	"github.com/JaimeStill/sieve/internal/oxidation"
	"github.com/JaimeStill/sieve/internal/pipeline"
	"github.com/JaimeStill/sieve/internal/predictor"
	"github.com/JaimeStill/sieve/internal/reference"
	"github.com/JaimeStill/sieve/internal/stability"
	"github.com/JaimeStill/sieve/internal/structure"
	"github.com/JaimeStill/sieve/internal/sustainability"
	"github.com/JaimeStill/sieve/pkg/storage"
)

var gaps = map[string]float32{
	"ZnO":  2.2,
	"NaO":  2.5,
	"NaCl": 5.8,
	"KF":   6.1,
	"FeS2": 0.9,
}

// fixedModel returns the bandgap registered for each composition's
// feature vector.
func fixedModel(t *testing.T) predictor.Model {
	t.Helper()

	byFeatures := make(map[string]float32, len(gaps))
	for formula, gap := range gaps {
		byFeatures[featureKey(t, composition.MustParse(formula))] = gap
	}

	return predictor.ModelFunc(func(_ context.Context, rows [][]float32) ([]float32, error) {
		out := make([]float32, len(rows))
		for i, row := range rows {
			gap, ok := byFeatures[fmt.Sprint(row)]
			if !ok {
				return nil, errors.New("unexpected composition")
			}
			out[i] = gap
		}
		return out, nil
	})
}

func featureKey(t *testing.T, c composition.Composition) string {
	features, err := predictor.Featurize(c)
	if err != nil {
		t.Fatalf("featurize %s: %v", c, err)
	}
	row := make([]float32, len(features))
	for i, f := range features {
		row[i] = float32(f)
	}
	return fmt.Sprint(row)
}

// engine completes every job immediately unless holdBandgap is set.
// failRelax fails every relaxation and unconverged leaves bandgap results
// electronically unconverged.
type engine struct {
	mu          sync.Mutex
	specs       map[uuid.UUID]jobs.Spec
	holdBandgap atomic.Bool
	submits     atomic.Int32

	relaxEnergy float64
	failRelax   bool
	unconverged bool
}

func newEngine() *engine {
	return &engine{specs: make(map[uuid.UUID]jobs.Spec), relaxEnergy: -3.5}
}

func (e *engine) Submit(_ context.Context, spec jobs.Spec) (uuid.UUID, error) {
	e.submits.Add(1)
	id := uuid.New()
	e.mu.Lock()
	e.specs[id] = spec
	e.mu.Unlock()
	return id, nil
}

func (e *engine) Status(_ context.Context, id uuid.UUID) (jobs.Status, error) {
	e.mu.Lock()
	spec := e.specs[id]
	e.mu.Unlock()

	switch spec.Profile {
	case jobs.ProfileRelax, jobs.ProfileRelaxLoose:
		if e.failRelax {
			return jobs.Status{State: jobs.StateFailed, Message: "ionic steps exhausted"}, nil
		}
		energy := e.relaxEnergy
		s := spec.Structure
		return jobs.Status{State: jobs.StateCompleted, Result: &jobs.Result{
			Structure:           &s,
			EnergyPerAtom:       &energy,
			ElectronicConverged: true,
			IonicConverged:      true,
		}}, nil
	case jobs.ProfileBandgap:
		if e.holdBandgap.Load() {
			return jobs.Status{State: jobs.StateRunning}, nil
		}
		vbm, cbm := 1.0, 3.2
		return jobs.Status{State: jobs.StateCompleted, Result: &jobs.Result{
			VBM:                 &vbm,
			CBM:                 &cbm,
			ElectronicConverged: !e.unconverged,
			IonicConverged:      true,
		}}, nil
	}
	return jobs.Status{State: jobs.StateFailed, Message: "unexpected profile"}, nil
}

type memRecorder struct {
	mu    sync.Mutex
	saved map[uuid.UUID]candidates.Candidate
}

func (m *memRecorder) Save(_ context.Context, items []candidates.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[uuid.UUID]candidates.Candidate)
	}
	for _, c := range items {
		m.saved[c.ID] = c
	}
	return nil
}

func phase(id, formula string, energy float64) materials.Phase {
	return materials.Phase{
		ID:            id,
		Composition:   composition.MustParse(formula),
		EnergyPerAtom: energy,
		Experimental:  true,
	}
}

func znoPhases() []materials.Phase {
	return []materials.Phase{
		phase("mp-79", "Zn", -1.26),
		phase("mp-12957", "O2", -4.95),
		phase("mp-1986", "ZnO2", -3.0),
	}
}

func newRunner(t *testing.T, sub jobs.Submitter, rec pipeline.Recorder) *pipeline.Runner {
	t.Helper()
	return newRunnerWithPhases(t, sub, rec, znoPhases())
}

func newRunnerWithPhases(t *testing.T, sub jobs.Submitter, rec pipeline.Recorder, known []materials.Phase) *pipeline.Runner {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tables, err := reference.Load(reference.Paths{})
	if err != nil {
		t.Fatalf("load reference tables: %v", err)
	}
	assigner, err := structure.NewAssigner(tables.Prototypes, tables.Substitutions)
	if err != nil {
		t.Fatalf("new assigner: %v", err)
	}

	phases := materials.NewStaticSource(known, false)

	return pipeline.New(&pipeline.Runtime{
		Predictor: predictor.New(fixedModel(t), predictor.Window{Min: 1, Max: 3}),
		Ranker:    sustainability.NewRanker(tables.Abundance),
		Assigner:  assigner,
		Oxidation: oxidation.Filter{
			Evaluator: oxidation.NewEvaluator(tables.Oxidation),
			Threshold: 0.05,
		},
		Stability: stability.Evaluator{Tolerance: 1e-6, MetastableCutoff: 0.1},
		Phases:    materials.NewCache(phases),
		Jobs: jobs.NewOrchestrator(sub, jobs.Options{
			PollInterval: time.Millisecond,
			Timeout:      50 * time.Millisecond,
		}, logger),
		Checkpoints: checkpoint.New(storage.NewLocal(t.TempDir(), logger), logger),
		Recorder:    rec,
		Logger:      logger,
		Options:     pipeline.Options{Workers: 2, BatchSize: 2, EvaluationWorkers: 2},
	})
}

func byFormula(items []candidates.Candidate) map[string]candidates.Candidate {
	out := make(map[string]candidates.Candidate, len(items))
	for _, c := range items {
		out[c.Formula] = c
	}
	return out
}

func reasonOf(c candidates.Candidate) candidates.Reason {
	if r := c.Reason(); r != nil {
		return *r
	}
	return ""
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	rec := &memRecorder{}
	runner := newRunner(t, newEngine(), rec)
	runID := uuid.New()

	screened, err := runner.Screen(ctx, runID, []string{"ZnO", "NaCl", "NaO", "KF", "FeS2"})
	if err != nil {
		t.Fatalf("screen: %v", err)
	}
	if len(screened) != 5 {
		t.Fatalf("screened %d candidates, want 5", len(screened))
	}

	passed := 0
	for _, c := range screened {
		if c.PredictedBandgap != nil && *c.PredictedBandgap >= 1 && *c.PredictedBandgap <= 3 {
			passed++
		}
	}
	if passed != 2 {
		t.Errorf("predictor passed %d, want 2", passed)
	}

	items, err := runner.Evaluate(ctx, runID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	got := byFormula(items)
	confirmed := 0
	for _, c := range items {
		if c.Status == candidates.StatusConfirmed {
			confirmed++
		}
	}
	if confirmed != 1 {
		t.Fatalf("confirmed %d, want 1", confirmed)
	}

	zno := got["ZnO"]
	if zno.Status != candidates.StatusConfirmed {
		t.Fatalf("ZnO status: got %s (%v)", zno.Status, zno.Events)
	}
	if zno.FinalBandgap == nil || *zno.FinalBandgap < 2.2-1e-9 || *zno.FinalBandgap > 2.2+1e-9 {
		t.Errorf("ZnO final bandgap: got %v", zno.FinalBandgap)
	}
	if zno.Stability == nil || *zno.Stability != stability.Stable {
		t.Errorf("ZnO stability: got %v", zno.Stability)
	}
	if zno.Trustworthy == nil || !*zno.Trustworthy {
		t.Error("ZnO should be trustworthy")
	}

	want := map[string]candidates.Reason{
		"NaCl": candidates.ReasonBandgapOutOfWindow,
		"KF":   candidates.ReasonBandgapOutOfWindow,
		"FeS2": candidates.ReasonBandgapOutOfWindow,
		"NaO":  candidates.ReasonOxidationStateImprobable,
	}
	for formula, reason := range want {
		c := got[formula]
		if r := reasonOf(c); r != reason {
			t.Errorf("%s reason: got %q, want %q", formula, r, reason)
		}
		if len(c.Events) == 0 {
			t.Errorf("%s has no audit trail", formula)
		}
	}

	if len(rec.saved) != 5 {
		t.Errorf("recorded %d candidates, want 5", len(rec.saved))
	}
}

func TestScreenResumesFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	runner := newRunner(t, newEngine(), &memRecorder{})
	runID := uuid.New()

	first, err := runner.Screen(ctx, runID, []string{"ZnO", "NaCl"})
	if err != nil {
		t.Fatalf("screen: %v", err)
	}

	again, err := runner.Screen(ctx, runID, nil)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}

	if len(again) != len(first) {
		t.Fatalf("got %d candidates, want %d", len(again), len(first))
	}
	for i := range first {
		if again[i].ID != first[i].ID {
			t.Errorf("candidate %d: got %s, want %s", i, again[i].ID, first[i].ID)
		}
	}
}

func TestRankOrdersActiveFirst(t *testing.T) {
	runner := newRunner(t, newEngine(), &memRecorder{})

	items, err := runner.Screen(context.Background(), uuid.New(), []string{"NaCl", "Xq2", "ZnO", "NaO"})
	if err != nil {
		t.Fatalf("screen: %v", err)
	}

	if items[0].SustainabilityScore == nil {
		t.Fatalf("first candidate unscored: %s", items[0].Formula)
	}
	for i := 1; i < len(items); i++ {
		prev, cur := items[i-1].SustainabilityScore, items[i].SustainabilityScore
		if prev == nil && cur != nil {
			t.Errorf("scored %s after unscored %s", items[i].Formula, items[i-1].Formula)
		}
		if prev != nil && cur != nil && *cur > *prev {
			t.Errorf("%s ranked below lower score", items[i].Formula)
		}
	}

	invalid := byFormula(items)["Xq2"]
	if reasonOf(invalid) != candidates.ReasonInvalidComposition {
		t.Errorf("Xq2 reason: got %q", reasonOf(invalid))
	}
}

func TestEvaluateRequiresScreening(t *testing.T) {
	runner := newRunner(t, newEngine(), &memRecorder{})

	_, err := runner.Evaluate(context.Background(), uuid.New())
	if !errors.Is(err, pipeline.ErrNotScreened) {
		t.Errorf("got %v, want ErrNotScreened", err)
	}
}

func TestScreenRequiresInput(t *testing.T) {
	runner := newRunner(t, newEngine(), &memRecorder{})

	_, err := runner.Screen(context.Background(), uuid.New(), nil)
	if !errors.Is(err, pipeline.ErrNoInput) {
		t.Errorf("got %v, want ErrNoInput", err)
	}
}

func TestEvaluateResumesPending(t *testing.T) {
	ctx := context.Background()
	eng := newEngine()
	eng.holdBandgap.Store(true)
	runner := newRunner(t, eng, &memRecorder{})
	runID := uuid.New()

	if _, err := runner.Screen(ctx, runID, []string{"ZnO"}); err != nil {
		t.Fatalf("screen: %v", err)
	}

	items, err := runner.Evaluate(ctx, runID)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if items[0].Status != candidates.StatusPending {
		t.Fatalf("status: got %s, want pending", items[0].Status)
	}
	if items[0].BandgapJob == nil {
		t.Error("bandgap job handle not recorded")
	}

	eng.holdBandgap.Store(false)
	relaxSubmits := eng.submits.Load()

	items, err = runner.Evaluate(ctx, runID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if items[0].Status != candidates.StatusConfirmed {
		t.Fatalf("status: got %s, want confirmed (%v)", items[0].Status, items[0].Events)
	}
	if got := eng.submits.Load() - relaxSubmits; got != 1 {
		t.Errorf("resume submitted %d jobs, want 1 (bandgap only)", got)
	}
}

func TestEvaluateTerminalOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		engine  func(*engine)
		phases  []materials.Phase
		status  candidates.Status
		reason  candidates.Reason
		submits int32
		check   func(t *testing.T, c candidates.Candidate)
	}{
		{
			name:    "relaxation fails after relaxed retry",
			engine:  func(e *engine) { e.failRelax = true },
			phases:  znoPhases(),
			status:  candidates.StatusFailed,
			reason:  candidates.ReasonCalculationFailed,
			submits: 2,
			check: func(t *testing.T, c candidates.Candidate) {
				if c.EnergyPerAtom != nil {
					t.Error("failed relaxation recorded an energy")
				}
				if c.RelaxJob == nil {
					t.Error("relax job handle not recorded")
				}
			},
		},
		{
			name:    "missing elemental phase",
			engine:  func(*engine) {},
			phases:  znoPhases()[1:],
			status:  candidates.StatusFailed,
			reason:  candidates.ReasonInsufficientCompetingPhases,
			submits: 1,
			check: func(t *testing.T, c candidates.Candidate) {
				if c.EnergyPerAtom == nil {
					t.Error("relaxed energy not recorded")
				}
				if c.EnergyAboveHull != nil {
					t.Error("energy above hull set without a hull")
				}
			},
		},
		{
			name:    "above the hull",
			engine:  func(e *engine) { e.relaxEnergy = -2.0 },
			phases:  znoPhases(),
			status:  candidates.StatusRejected,
			reason:  candidates.ReasonThermodynamicallyUnstable,
			submits: 1,
			check: func(t *testing.T, c candidates.Candidate) {
				if c.Stability == nil || *c.Stability != stability.Unstable {
					t.Errorf("stability: got %v", c.Stability)
				}
				if c.EnergyAboveHull == nil || *c.EnergyAboveHull <= 0.1 {
					t.Errorf("energy above hull: got %v", c.EnergyAboveHull)
				}
				if c.BandgapJob != nil {
					t.Error("unstable candidate reached the bandgap stage")
				}
			},
		},
		{
			name:    "unconverged bandgap",
			engine:  func(e *engine) { e.unconverged = true },
			phases:  znoPhases(),
			status:  candidates.StatusUnconfirmed,
			reason:  candidates.ReasonBandgapUnconfirmed,
			submits: 2,
			check: func(t *testing.T, c candidates.Candidate) {
				if c.Trustworthy == nil || *c.Trustworthy {
					t.Errorf("trustworthy: got %v", c.Trustworthy)
				}
				if c.FinalBandgap == nil {
					t.Error("final bandgap not recorded")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			eng := newEngine()
			tt.engine(eng)
			rec := &memRecorder{}
			runner := newRunnerWithPhases(t, eng, rec, tt.phases)
			runID := uuid.New()

			if _, err := runner.Screen(ctx, runID, []string{"ZnO"}); err != nil {
				t.Fatalf("screen: %v", err)
			}
			items, err := runner.Evaluate(ctx, runID)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if len(items) != 1 {
				t.Fatalf("got %d candidates, want 1", len(items))
			}

			c := items[0]
			if c.Status != tt.status {
				t.Errorf("status: got %s, want %s (%v)", c.Status, tt.status, c.Events)
			}
			if r := reasonOf(c); r != tt.reason {
				t.Errorf("reason: got %q, want %q", r, tt.reason)
			}
			if got := eng.submits.Load(); got != tt.submits {
				t.Errorf("submits: got %d, want %d", got, tt.submits)
			}

			saved, ok := rec.saved[c.ID]
			if !ok {
				t.Fatal("candidate not recorded")
			}
			if reasonOf(saved) != tt.reason {
				t.Errorf("recorded reason: got %q, want %q", reasonOf(saved), tt.reason)
			}
			if len(saved.Events) == 0 {
				t.Error("recorded candidate has no audit trail")
			}

			tt.check(t, c)
		})
	}
}
