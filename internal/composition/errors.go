package composition

import "errors"

// Sentinel errors for composition parsing and construction.
var (
	ErrEmptyFormula   = errors.New("empty formula")
	ErrInvalidFormula = errors.New("invalid formula")
	ErrUnknownElement = errors.New("unknown element")
	ErrInvalidAmount  = errors.New("invalid element amount")
)
