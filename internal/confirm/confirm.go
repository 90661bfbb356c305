// Package confirm extracts the final bandgap from an electronic-structure
// result and judges whether it can be trusted.
package confirm

import (
	"errors"
	"fmt"
	"math"

	"github.com/JaimeStill/sieve/internal/jobs"
)

// ErrUnconfirmed indicates a missing or malformed electronic-structure result.
var ErrUnconfirmed = errors.New("bandgap unconfirmed")

// Confirmation is the final bandgap of a candidate.
type Confirmation struct {
	Bandgap             float64 `json:"bandgap"`
	Trustworthy         bool    `json:"trustworthy"`
	ElectronicConverged bool    `json:"electronic_converged"`
	IonicConverged      bool    `json:"ionic_converged"`
	// FromEdges is true when the gap was computed as CBM - VBM.
	FromEdges bool `json:"from_edges"`
}

// Confirm derives the bandgap from band edges when both are present, and
// from the reported gap otherwise. The bandgap is clipped at zero.
// Trustworthy requires both electronic and ionic convergence.
func Confirm(r *jobs.Result) (Confirmation, error) {
	if r == nil {
		return Confirmation{}, fmt.Errorf("%w: no result", ErrUnconfirmed)
	}

	c := Confirmation{
		ElectronicConverged: r.ElectronicConverged,
		IonicConverged:      r.IonicConverged,
		Trustworthy:         r.ElectronicConverged && r.IonicConverged,
	}

	switch {
	case r.VBM != nil && r.CBM != nil:
		if !finite(*r.VBM) || !finite(*r.CBM) {
			return Confirmation{}, fmt.Errorf("%w: non-finite band edges", ErrUnconfirmed)
		}
		c.Bandgap = *r.CBM - *r.VBM
		c.FromEdges = true
	case r.Gap != nil:
		if !finite(*r.Gap) {
			return Confirmation{}, fmt.Errorf("%w: non-finite gap", ErrUnconfirmed)
		}
		c.Bandgap = *r.Gap
	default:
		return Confirmation{}, fmt.Errorf("%w: neither band edges nor gap reported", ErrUnconfirmed)
	}

	c.Bandgap = math.Max(c.Bandgap, 0)
	return c, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
