package domain

import "errors"

// Sentinel errors for the engine's validation taxonomy. Callers match with
// errors.Is; the wrapped message carries the offending entity identifier.
var (
	// ErrInvalidCounterparty indicates a counterparty record that fails validation
	ErrInvalidCounterparty = errors.New("invalid counterparty")

	// ErrInvalidObligation indicates an obligation record that fails validation
	ErrInvalidObligation = errors.New("invalid obligation")

	// ErrDuplicateEntity indicates two supplied records share an identifier
	ErrDuplicateEntity = errors.New("duplicate entity")

	// ErrUnresolvedReference indicates an obligation pointing at a counterparty
	// that is not present in the supplied set
	ErrUnresolvedReference = errors.New("unresolved counterparty reference")

	// ErrInvalidHorizon indicates a non-positive forecast horizon or period length
	ErrInvalidHorizon = errors.New("invalid forecast horizon")

	// ErrInvalidPolicy indicates a structurally invalid optimizer policy.
	// Infeasibility is NOT an error: it is reported on the OptimizationResult.
	ErrInvalidPolicy = errors.New("invalid optimizer policy")

	// ErrNotFound indicates a repository lookup miss
	ErrNotFound = errors.New("not found")
)
