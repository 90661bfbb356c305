// Package jobs submits structures to an external first-principles compute
// engine and tracks their completion.
package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/sieve/internal/structure"
)

// Profile names a calculation parameter set.
type Profile string

const (
	ProfileRelax        Profile = "relax"
	ProfileRelaxLoose   Profile = "relax_loose"
	ProfileBandgap      Profile = "hse_bandgap"
	ProfileBandgapLoose Profile = "hse_bandgap_loose"
)

// Valid reports whether p is a known profile.
func (p Profile) Valid() bool {
	switch p {
	case ProfileRelax, ProfileRelaxLoose, ProfileBandgap, ProfileBandgapLoose:
		return true
	}
	return false
}

// Relaxed returns the profile with loosened convergence criteria, if one exists.
func (p Profile) Relaxed() (Profile, bool) {
	switch p {
	case ProfileRelax:
		return ProfileRelaxLoose, true
	case ProfileBandgap:
		return ProfileBandgapLoose, true
	}
	return "", false
}

// RequiresConvergence reports whether an unconverged result counts as a
// failed calculation. Bandgap results are kept and judged by the confirmer.
func (p Profile) RequiresConvergence() bool {
	return p == ProfileRelax || p == ProfileRelaxLoose
}

// State is the lifecycle state of a submitted job.
type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Terminal reports whether no further transitions occur.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Spec describes one calculation. Identity names the structure being
// calculated; together with Profile it identifies the job.
type Spec struct {
	Identity  string              `json:"identity"`
	Structure structure.Structure `json:"structure"`
	Profile   Profile             `json:"profile"`
}

// Key returns the deduplication key of the spec.
func (s Spec) Key() string {
	return s.Identity + "/" + string(s.Profile)
}

// Result holds the output artifacts of a completed calculation.
type Result struct {
	Structure           *structure.Structure `json:"structure,omitempty"`
	EnergyPerAtom       *float64             `json:"energy_per_atom,omitempty"`
	ElectronicConverged bool                 `json:"electronic_converged"`
	IonicConverged      bool                 `json:"ionic_converged"`
	VBM                 *float64             `json:"vbm,omitempty"`
	CBM                 *float64             `json:"cbm,omitempty"`
	Gap                 *float64             `json:"gap,omitempty"`
}

// Converged reports whether both electronic and ionic loops converged.
func (r *Result) Converged() bool {
	return r != nil && r.ElectronicConverged && r.IonicConverged
}

// Job is a persisted calculation request.
type Job struct {
	ID          uuid.UUID           `json:"id"`
	Identity    string              `json:"identity"`
	Profile     Profile             `json:"profile"`
	Structure   structure.Structure `json:"structure"`
	State       State               `json:"state"`
	Result      *Result             `json:"result,omitempty"`
	Message     *string             `json:"message,omitempty"`
	Worker      *string             `json:"worker,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	ClaimedAt   *time.Time          `json:"claimed_at,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// Status is a snapshot of a job's progress.
type Status struct {
	State   State   `json:"state"`
	Result  *Result `json:"result,omitempty"`
	Message string  `json:"message,omitempty"`
}

// Submitter is the external compute-job interface.
type Submitter interface {
	// Submit enqueues spec and returns its handle. Submitting a spec whose
	// key already exists returns the existing handle.
	Submit(ctx context.Context, spec Spec) (uuid.UUID, error)
	// Status reports the current state of a job.
	Status(ctx context.Context, id uuid.UUID) (Status, error)
}
