package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/cloudmorph/internal/dynamo"
	"github.com/san-kum/cloudmorph/internal/skeleton"
	"github.com/san-kum/cloudmorph/internal/spatial"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	DefaultEvolveDt    = 0.1
	DefaultEvolveSteps = 60
	DefaultViscosity   = 2.0
	DefaultDamping     = 0.93
)

// AttractionParams configures the skeleton attraction phase.
type AttractionParams struct {
	Dt        float64
	Steps     int
	Viscosity float64
	Damping   float64
}

func DefaultAttractionParams() AttractionParams {
	return AttractionParams{
		Dt:        DefaultEvolveDt,
		Steps:     DefaultEvolveSteps,
		Viscosity: DefaultViscosity,
		Damping:   DefaultDamping,
	}
}

// Attraction pulls every particle toward its nearest skeleton point with a unit
// spring. Inside a point's influence radius the spring is replaced by pure
// viscous drag, and every step all velocities are scaled by Damping.
type Attraction struct {
	params AttractionParams
	spine  []r2.Vec
	width  []float64
	index  spatial.Index
	box    dynamo.Box

	acc    []r2.Vec
	damped int
}

func NewAttraction(sk *skeleton.Skeleton, index spatial.Index, p AttractionParams) (*Attraction, error) {
	if sk == nil || sk.Len() == 0 {
		return nil, dynamo.ErrEmptySkeleton
	}
	if index == nil || index.Len() != sk.Len() {
		return nil, fmt.Errorf("%w: index does not cover the skeleton", dynamo.ErrParameterBounds)
	}
	for i, w := range sk.Width {
		if !(w > 0) {
			return nil, fmt.Errorf("%w: point %d has radius %g", dynamo.ErrNonPositiveRadius, i, w)
		}
	}
	if err := validateDt(p.Dt); err != nil {
		return nil, err
	}
	if p.Steps < 0 {
		return nil, fmt.Errorf("%w: steps %d", dynamo.ErrParameterBounds, p.Steps)
	}
	if p.Viscosity < 0 || p.Damping < 0 || p.Damping > 1 {
		return nil, fmt.Errorf("%w: viscosity %g, damping %g", dynamo.ErrParameterBounds, p.Viscosity, p.Damping)
	}
	return &Attraction{
		params: p,
		spine:  sk.Pos,
		width:  sk.Width,
		index:  index,
		box:    sk.Box,
	}, nil
}

func (a *Attraction) Name() string    { return "evolve" }
func (a *Attraction) Steps() int      { return a.params.Steps }
func (a *Attraction) Box() dynamo.Box { return a.box }

// Damped returns how many particles were inside an influence radius at the
// start of the last step.
func (a *Attraction) Damped() int { return a.damped }

func (a *Attraction) Begin(c *dynamo.Cloud) error {
	return c.Validate()
}

func (a *Attraction) ensureScratch(n int) {
	if len(a.acc) != n {
		a.acc = make([]r2.Vec, n)
	}
}

// Accelerations evaluates the force field for the given state without
// modifying it. The returned slice is reused by the next call.
func (a *Attraction) Accelerations(pos, vel []r2.Vec) ([]r2.Vec, int) {
	a.ensureScratch(len(pos))
	dist, nearest := a.index.Query(pos)

	damped := 0
	for i := range pos {
		j := nearest[i]
		if dist[i] < a.width[j] {
			a.acc[i] = r2.Scale(-a.params.Viscosity, vel[i])
			damped++
			continue
		}
		a.acc[i] = r2.Sub(a.spine[j], pos[i])
	}
	return a.acc, damped
}

// Step advances the cloud by one timestep. All accelerations are computed
// from the previous state before any particle moves.
func (a *Attraction) Step(_ int, c *dynamo.Cloud) error {
	dt := a.params.Dt
	halfDt2 := 0.5 * dt * dt

	acc, damped := a.Accelerations(c.Pos, c.Vel)
	a.damped = damped

	for i := range c.Pos {
		c.Pos[i] = r2.Add(c.Pos[i], r2.Add(r2.Scale(dt, c.Vel[i]), r2.Scale(halfDt2, acc[i])))
		c.Vel[i] = r2.Scale(a.params.Damping, r2.Add(c.Vel[i], r2.Scale(dt, acc[i])))
	}

	a.box.Wrap(c.Pos)
	return nil
}

func validateDt(dt float64) error {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: got %g", dynamo.ErrInvalidTimestep, dt)
	}
	return nil
}
