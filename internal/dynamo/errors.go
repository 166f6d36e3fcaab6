package dynamo

import (
	"errors"
	"fmt"
)

// Configuration errors. These are returned at load or construction time, never
// from inside a running step.
var (
	// ErrEmptySkeleton indicates a skeleton source without any coordinate pair.
	ErrEmptySkeleton = errors.New("dynamo: skeleton has no points")

	// ErrNonPositiveRadius indicates a skeleton influence radius <= 0.
	ErrNonPositiveRadius = errors.New("dynamo: skeleton radius must be positive")

	// ErrInvalidBox indicates a domain with a non-positive or non-finite extent.
	ErrInvalidBox = errors.New("dynamo: domain extents must be positive")

	// ErrInvalidStep indicates a non-positive grid spacing.
	ErrInvalidStep = errors.New("dynamo: grid step must be positive")

	// ErrEmptyCloud indicates a point cloud without particles.
	ErrEmptyCloud = errors.New("dynamo: point cloud has no particles")

	// ErrInvalidTimestep indicates a non-positive or non-finite dt.
	ErrInvalidTimestep = errors.New("dynamo: timestep must be positive")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")
)

// Runtime errors.
var (
	// ErrEscapedDomain indicates a particle travelled more than one domain width
	// in a single step, so a single wrap could not bring it back inside.
	ErrEscapedDomain = errors.New("dynamo: particle escaped the periodic domain")

	// ErrInvalidState indicates a NaN or Inf in positions or velocities.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrContextCanceled indicates the run was interrupted between steps.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")
)

// SimulationError wraps an error with the phase and step it occurred in.
type SimulationError struct {
	Phase   string
	Step    int
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("%s step %d: %v", e.Phase, e.Step, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
