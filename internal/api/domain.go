package api

import (
	"fmt"

	"github.com/JaimeStill/sieve/internal/candidates"
	"github.com/JaimeStill/sieve/internal/config"
	"github.com/JaimeStill/sieve/internal/inbox"
	"github.com/JaimeStill/sieve/internal/jobs"
	"github.com/JaimeStill/sieve/internal/materials"
	"github.com/JaimeStill/sieve/internal/oxidation"
	"github.com/JaimeStill/sieve/internal/pipeline"
	"github.com/JaimeStill/sieve/internal/predictor"
	"github.com/JaimeStill/sieve/internal/runs"
	"github.com/JaimeStill/sieve/internal/stability"
	"github.com/JaimeStill/sieve/internal/structure"
	"github.com/JaimeStill/sieve/internal/sustainability"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Jobs       jobs.System
	Candidates candidates.System
	Runs       runs.System
	Pipeline   *pipeline.Runner
	Inbox      *inbox.Watcher
}

// NewDomain creates all domain systems from the API runtime. The inbox
// watcher is only created when enabled.
func NewDomain(runtime *Runtime, cfg *config.Config) (*Domain, error) {
	db := runtime.Database.Connection()

	launchpad := jobs.NewLaunchpad(db, runtime.Logger, runtime.Pagination)
	candidatesSystem := candidates.New(db, runtime.Logger, runtime.Pagination)

	phases, err := newPhaseSource(runtime, &cfg.Materials)
	if err != nil {
		return nil, fmt.Errorf("materials: %w", err)
	}

	assigner, err := structure.NewAssigner(runtime.Reference.Prototypes, runtime.Reference.Substitutions)
	if err != nil {
		return nil, fmt.Errorf("structure assigner: %w", err)
	}

	runner := pipeline.New(&pipeline.Runtime{
		Predictor: predictor.New(runtime.Model, predictor.Window{
			Min: cfg.Screening.BandgapMin,
			Max: cfg.Screening.BandgapMax,
		}),
		Ranker:   sustainability.NewRanker(runtime.Reference.Abundance),
		Assigner: assigner,
		Oxidation: oxidation.Filter{
			Evaluator: oxidation.NewEvaluator(runtime.Reference.Oxidation),
			Threshold: cfg.Screening.OxidationThreshold,
		},
		Stability: stability.Evaluator{
			Tolerance:        cfg.Stability.Tolerance,
			MetastableCutoff: cfg.Stability.MetastableCutoff,
		},
		Phases: materials.NewCache(phases),
		Jobs: jobs.NewOrchestrator(launchpad, jobs.Options{
			PollInterval: cfg.Jobs.PollIntervalDuration(),
			Timeout:      cfg.Jobs.TimeoutDuration(),
		}, runtime.Logger),
		Checkpoints: runtime.Checkpoints,
		Recorder:    candidatesSystem,
		Logger:      runtime.Logger,
		Options: pipeline.Options{
			Workers:           cfg.Screening.Workers,
			BatchSize:         cfg.Screening.BatchSize,
			EvaluationWorkers: cfg.Jobs.Workers,
			RecomputePhases:   cfg.Stability.RecomputePhases,
		},
	})

	runsSystem := runs.New(
		db,
		runtime.Storage,
		candidatesSystem,
		runner,
		runtime.Lifecycle,
		runtime.Logger,
		runtime.Pagination,
	)

	d := &Domain{
		Jobs:       launchpad,
		Candidates: candidatesSystem,
		Runs:       runsSystem,
		Pipeline:   runner,
	}

	if cfg.Inbox.Enabled {
		d.Inbox = inbox.New(inbox.Options{
			Dir:    cfg.Inbox.Dir,
			Settle: cfg.Inbox.SettleDuration(),
		}, runsSystem, runtime.Logger)
	}

	return d, nil
}

func newPhaseSource(runtime *Runtime, cfg *config.MaterialsConfig) (materials.Source, error) {
	switch cfg.Provider {
	case config.MaterialsProviderFile:
		return materials.NewFileSource(cfg.PhasesFile, !cfg.IncludeTheoretical)
	case config.MaterialsProviderHTTP:
		return materials.NewHTTPSource(materials.HTTPOptions{
			BaseURL:          cfg.BaseURL,
			APIKey:           cfg.APIKey,
			ExperimentalOnly: !cfg.IncludeTheoretical,
			Timeout:          cfg.TimeoutDuration(),
			Concurrency:      cfg.Concurrency,
		}, runtime.Logger), nil
	default:
		return nil, fmt.Errorf("unknown provider: %q", cfg.Provider)
	}
}
