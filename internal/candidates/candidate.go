// Package candidates defines the screening record carried through the
// pipeline and its persistence.
package candidates

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/sieve/internal/composition"
	"github.com/JaimeStill/sieve/internal/confirm"
	"github.com/JaimeStill/sieve/internal/stability"
	"github.com/JaimeStill/sieve/internal/structure"
)

// Status is the disposition of a candidate.
type Status string

const (
	StatusActive      Status = "active"
	StatusRejected    Status = "rejected"
	StatusPending     Status = "pending"
	StatusFailed      Status = "failed"
	StatusUnconfirmed Status = "unconfirmed"
	StatusConfirmed   Status = "confirmed"
)

// Stage names a pipeline step.
type Stage string

const (
	StageIntake    Stage = "intake"
	StagePredict   Stage = "predict"
	StageRank      Stage = "rank"
	StageAssign    Stage = "assign"
	StageOxidation Stage = "oxidation"
	StageStability Stage = "stability"
	StageBandgap   Stage = "bandgap"
)

// Stages lists every stage in execution order.
var Stages = []Stage{
	StageIntake,
	StagePredict,
	StageRank,
	StageAssign,
	StageOxidation,
	StageStability,
	StageBandgap,
}

// Reason explains why a candidate left the active set.
type Reason string

const (
	ReasonBandgapOutOfWindow          Reason = "bandgap_out_of_window"
	ReasonInvalidComposition          Reason = "invalid_composition"
	ReasonNoStructureMatch            Reason = "no_structure_match"
	ReasonOxidationStateImprobable    Reason = "oxidation_state_improbable"
	ReasonInsufficientCompetingPhases Reason = "insufficient_competing_phases"
	ReasonThermodynamicallyUnstable   Reason = "thermodynamically_unstable"
	ReasonCalculationFailed           Reason = "calculation_failed"
	ReasonPending                     Reason = "pending"
	ReasonBandgapUnconfirmed          Reason = "bandgap_unconfirmed"
)

// Status returns the disposition a candidate takes when dropped for r.
func (r Reason) Status() Status {
	switch r {
	case ReasonPending:
		return StatusPending
	case ReasonCalculationFailed, ReasonInsufficientCompetingPhases:
		return StatusFailed
	case ReasonBandgapUnconfirmed:
		return StatusUnconfirmed
	default:
		return StatusRejected
	}
}

// Event is one audit trail entry.
type Event struct {
	Stage  Stage     `json:"stage"`
	Reason Reason    `json:"reason,omitempty"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// Candidate is a composition and every field derived from it. Each
// optional field is written by exactly one stage through its Apply method,
// which refuses to overwrite.
type Candidate struct {
	ID          uuid.UUID               `json:"id"`
	RunID       uuid.UUID               `json:"run_id"`
	Position    int                     `json:"position"`
	Input       string                  `json:"input"`
	Formula     string                  `json:"formula"`
	Composition composition.Composition `json:"composition"`
	Status      Status                  `json:"status"`
	Stage       Stage                   `json:"stage"`

	PredictedBandgap     *float64             `json:"predicted_bandgap,omitempty"`
	SustainabilityScore  *float64             `json:"sustainability_score,omitempty"`
	Structure            *structure.Structure `json:"structure,omitempty"`
	StructureProbability *float64             `json:"structure_probability,omitempty"`
	OxidationStates      map[string]int       `json:"oxidation_states,omitempty"`
	OxidationProbability *float64             `json:"oxidation_probability,omitempty"`

	RelaxJob            *uuid.UUID           `json:"relax_job,omitempty"`
	RelaxedStructure    *structure.Structure `json:"relaxed_structure,omitempty"`
	EnergyPerAtom       *float64             `json:"energy_per_atom,omitempty"`
	EnergyAboveHull     *float64             `json:"energy_above_hull,omitempty"`
	DecompositionEnergy *float64             `json:"decomposition_energy,omitempty"`
	HullEnergy          *float64             `json:"hull_energy,omitempty"`
	Stability           *stability.Label     `json:"stability,omitempty"`
	Decomposition       []stability.Product  `json:"decomposition,omitempty"`

	BandgapJob          *uuid.UUID `json:"bandgap_job,omitempty"`
	FinalBandgap        *float64   `json:"final_bandgap,omitempty"`
	ElectronicConverged *bool      `json:"electronic_converged,omitempty"`
	IonicConverged      *bool      `json:"ionic_converged,omitempty"`
	Trustworthy         *bool      `json:"trustworthy,omitempty"`

	Events []Event `json:"events"`
}

// NewCandidate creates an active candidate from a parsed composition.
func NewCandidate(runID uuid.UUID, position int, input string, c composition.Composition) Candidate {
	return Candidate{
		ID:          uuid.New(),
		RunID:       runID,
		Position:    position,
		Input:       input,
		Formula:     c.Formula(),
		Composition: c,
		Status:      StatusActive,
		Stage:       StageIntake,
		Events:      []Event{},
	}
}

// Invalid creates a candidate for input that could not be parsed, already
// dropped with ReasonInvalidComposition.
func Invalid(runID uuid.UUID, position int, input string, err error) Candidate {
	c := Candidate{
		ID:       uuid.New(),
		RunID:    runID,
		Position: position,
		Input:    input,
		Formula:  input,
		Status:   StatusActive,
		Stage:    StageIntake,
		Events:   []Event{},
	}
	c.Drop(StageIntake, ReasonInvalidComposition, err.Error())
	return c
}

// Active reports whether the candidate is still being screened.
func (c *Candidate) Active() bool {
	return c.Status == StatusActive
}

// Reason returns the reason of the most recent drop, if the candidate is
// not active or confirmed.
func (c *Candidate) Reason() *Reason {
	if c.Status == StatusActive || c.Status == StatusConfirmed {
		return nil
	}
	for i := len(c.Events) - 1; i >= 0; i-- {
		if r := c.Events[i].Reason; r != "" {
			return &r
		}
	}
	return nil
}

// Advance records that the candidate has passed stage.
func (c *Candidate) Advance(stage Stage) {
	c.Stage = stage
}

// Drop removes the candidate from the active set. The record is kept.
func (c *Candidate) Drop(stage Stage, reason Reason, detail string) {
	c.Status = reason.Status()
	c.Stage = stage
	c.Events = append(c.Events, Event{Stage: stage, Reason: reason, Detail: detail, At: time.Now().UTC()})
}

// Note appends an informational event.
func (c *Candidate) Note(stage Stage, detail string) {
	c.Events = append(c.Events, Event{Stage: stage, Detail: detail, At: time.Now().UTC()})
}

// Resume returns a pending candidate to the active set.
func (c *Candidate) Resume(stage Stage) {
	if c.Status != StatusPending {
		return
	}
	c.Status = StatusActive
	c.Note(stage, "resumed")
}

// Confirm marks the candidate as a confirmed photoactive candidate.
func (c *Candidate) Confirm() {
	c.Status = StatusConfirmed
	c.Stage = StageBandgap
	c.Note(StageBandgap, "confirmed")
}

// ApplyPrediction records the predicted bandgap.
func (c *Candidate) ApplyPrediction(bandgap float64) error {
	if c.PredictedBandgap != nil {
		return fieldSet("predicted_bandgap")
	}
	c.PredictedBandgap = &bandgap
	return nil
}

// ApplyScore records the sustainability score.
func (c *Candidate) ApplyScore(score float64) error {
	if c.SustainabilityScore != nil {
		return fieldSet("sustainability_score")
	}
	c.SustainabilityScore = &score
	return nil
}

// ApplyStructure records the top-ranked structure assignment.
func (c *Candidate) ApplyStructure(s structure.Structure, probability float64) error {
	if c.Structure != nil {
		return fieldSet("structure")
	}
	c.Structure = &s
	c.StructureProbability = &probability
	return nil
}

// ApplyOxidation records the most probable oxidation states.
func (c *Candidate) ApplyOxidation(states map[string]int, probability float64) error {
	if c.OxidationProbability != nil {
		return fieldSet("oxidation_probability")
	}
	c.OxidationStates = maps.Clone(states)
	c.OxidationProbability = &probability
	return nil
}

// ApplyRelaxJob records the relaxation job handle.
func (c *Candidate) ApplyRelaxJob(id uuid.UUID) error {
	if c.RelaxJob != nil {
		return fieldSet("relax_job")
	}
	c.RelaxJob = &id
	return nil
}

// ApplyRelaxation records the relaxed structure and its energy per atom.
func (c *Candidate) ApplyRelaxation(s *structure.Structure, energyPerAtom float64) error {
	if c.EnergyPerAtom != nil {
		return fieldSet("energy_per_atom")
	}
	c.RelaxedStructure = s
	c.EnergyPerAtom = &energyPerAtom
	return nil
}

// ApplyStability records the hull analysis.
func (c *Candidate) ApplyStability(r stability.Result) error {
	if c.EnergyAboveHull != nil {
		return fieldSet("energy_above_hull")
	}
	c.EnergyAboveHull = &r.EnergyAboveHull
	c.DecompositionEnergy = &r.DecompositionEnergy
	c.HullEnergy = &r.HullEnergy
	c.Stability = &r.Label
	c.Decomposition = r.Products
	return nil
}

// ApplyBandgapJob records the bandgap job handle.
func (c *Candidate) ApplyBandgapJob(id uuid.UUID) error {
	if c.BandgapJob != nil {
		return fieldSet("bandgap_job")
	}
	c.BandgapJob = &id
	return nil
}

// ApplyBandgap records the confirmed bandgap and convergence flags.
func (c *Candidate) ApplyBandgap(conf confirm.Confirmation) error {
	if c.FinalBandgap != nil {
		return fieldSet("final_bandgap")
	}
	c.FinalBandgap = &conf.Bandgap
	c.ElectronicConverged = &conf.ElectronicConverged
	c.IonicConverged = &conf.IonicConverged
	c.Trustworthy = &conf.Trustworthy
	return nil
}

func fieldSet(name string) error {
	return fmt.Errorf("%w: %s", ErrFieldSet, name)
}
