package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// OutcomeState is the orchestrator's verdict on a calculation.
type OutcomeState string

const (
	OutcomeCompleted OutcomeState = "completed"
	// OutcomePending means the job did not finish before the wait timeout.
	// It is still tracked by the submitter and may be resumed later.
	OutcomePending OutcomeState = "pending"
	// OutcomeFailed means the job and its relaxed retry both failed.
	OutcomeFailed OutcomeState = "failed"
)

// Outcome is the result of running a spec to completion, timeout, or failure.
type Outcome struct {
	State    OutcomeState `json:"state"`
	Result   *Result      `json:"result,omitempty"`
	Job      uuid.UUID    `json:"job"`
	Profile  Profile      `json:"profile"`
	Attempts int          `json:"attempts"`
	Message  string       `json:"message,omitempty"`
}

// Options configures orchestrator polling.
type Options struct {
	PollInterval time.Duration
	Timeout      time.Duration
}

// Orchestrator drives specs through a Submitter with at most one in-flight
// wait per spec key.
type Orchestrator struct {
	submitter Submitter
	logger    *slog.Logger
	opts      Options
	flight    singleflight.Group
}

// NewOrchestrator creates an Orchestrator over submitter.
func NewOrchestrator(submitter Submitter, opts Options, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		submitter: submitter,
		logger:    logger.With("system", "jobs"),
		opts:      opts,
	}
}

// Run submits spec and waits for it. A failed or, for profiles that require
// it, unconverged attempt is resubmitted once with the relaxed profile.
// Concurrent calls with the same spec key share one submission and wait.
func (o *Orchestrator) Run(ctx context.Context, spec Spec) (Outcome, error) {
	if spec.Identity == "" || !spec.Profile.Valid() {
		return Outcome{}, fmt.Errorf("%w: identity %q profile %q", ErrInvalidSpec, spec.Identity, spec.Profile)
	}

	v, err, shared := o.flight.Do(spec.Key(), func() (any, error) {
		return o.run(ctx, spec)
	})
	if err != nil {
		return Outcome{}, err
	}
	if shared {
		o.logger.Debug("joined in-flight job", "key", spec.Key())
	}
	return v.(Outcome), nil
}

func (o *Orchestrator) run(ctx context.Context, spec Spec) (Outcome, error) {
	out, err := o.attempt(ctx, spec)
	if err != nil {
		return Outcome{}, err
	}
	out.Attempts = 1
	if out.State != OutcomeFailed {
		return out, nil
	}

	relaxed, ok := spec.Profile.Relaxed()
	if !ok {
		return out, nil
	}

	o.logger.Warn("job failed, retrying with relaxed profile",
		"identity", spec.Identity,
		"profile", spec.Profile,
		"retry_profile", relaxed,
		"message", out.Message,
	)

	retry := spec
	retry.Profile = relaxed
	out, err = o.attempt(ctx, retry)
	if err != nil {
		return Outcome{}, err
	}
	out.Attempts = 2
	return out, nil
}

func (o *Orchestrator) attempt(ctx context.Context, spec Spec) (Outcome, error) {
	id, err := o.submitter.Submit(ctx, spec)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %s: %w", ErrSubmit, spec.Key(), err)
	}

	o.logger.Info("job submitted", "id", id, "identity", spec.Identity, "profile", spec.Profile)

	out := Outcome{Job: id, Profile: spec.Profile}

	status, err := o.wait(ctx, id)
	switch {
	case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
		out.State = OutcomePending
		out.Message = fmt.Sprintf("not finished after %s", o.opts.Timeout)
		o.logger.Warn("job timed out", "id", id, "timeout", o.opts.Timeout)
		return out, nil
	case err != nil:
		return Outcome{}, err
	}

	switch {
	case status.State == StateFailed:
		out.State = OutcomeFailed
		out.Message = status.Message
	case spec.Profile.RequiresConvergence() && !status.Result.Converged():
		out.State = OutcomeFailed
		out.Result = status.Result
		out.Message = "calculation did not converge"
	default:
		out.State = OutcomeCompleted
		out.Result = status.Result
	}

	o.logger.Info("job finished", "id", id, "outcome", out.State)
	return out, nil
}

func (o *Orchestrator) wait(ctx context.Context, id uuid.UUID) (Status, error) {
	waitCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	ticker := time.NewTicker(o.opts.PollInterval)
	defer ticker.Stop()

	for {
		status, err := o.submitter.Status(waitCtx, id)
		switch {
		case err == nil && status.State.Terminal():
			return status, nil
		case err != nil && waitCtx.Err() == nil:
			o.logger.Warn("job status query failed", "id", id, "error", err)
		}

		select {
		case <-waitCtx.Done():
			return Status{}, waitCtx.Err()
		case <-ticker.C:
		}
	}
}
