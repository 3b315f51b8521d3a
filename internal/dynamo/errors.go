package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for controller construction and simulation.
var (
	// ErrRankBounds indicates a state dimension outside [1, MaxRank].
	ErrRankBounds = errors.New("dynamo: rank out of bounds")

	// ErrDimensionMismatch indicates matrices or vectors of inconsistent size.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between model matrices")

	// ErrInvalidModel indicates a model that is well sized but unusable (NaN, Inf, zero output row).
	ErrInvalidModel = errors.New("dynamo: invalid model")

	// ErrNotInitialized indicates an update before the time baseline was set.
	ErrNotInitialized = errors.New("dynamo: controller used before initialization")

	// ErrInvalidState indicates a state vector with NaN or Inf entries.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrUnstable indicates the closed loop diverged past the configured limit.
	ErrUnstable = errors.New("dynamo: simulation unstable (state diverged)")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.3fs): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
