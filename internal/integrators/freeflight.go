package integrators

import (
	"fmt"

	"github.com/san-kum/cloudmorph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	DefaultExplodeDt    = 0.1
	DefaultExplodeSteps = 20
)

// Explode moves particles in straight lines at constant velocity, wrapping at
// the domain edges.
type Explode struct {
	box   dynamo.Box
	dt    float64
	steps int
}

func NewExplode(box dynamo.Box, dt float64, steps int) (*Explode, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}
	if err := validateDt(dt); err != nil {
		return nil, err
	}
	if steps < 0 {
		return nil, fmt.Errorf("%w: steps %d", dynamo.ErrParameterBounds, steps)
	}
	return &Explode{box: box, dt: dt, steps: steps}, nil
}

func (e *Explode) Name() string                { return "explode" }
func (e *Explode) Steps() int                  { return e.steps }
func (e *Explode) Begin(c *dynamo.Cloud) error { return c.Validate() }

func (e *Explode) Step(_ int, c *dynamo.Cloud) error {
	for i := range c.Pos {
		c.Pos[i] = r2.Add(c.Pos[i], r2.Scale(e.dt, c.Vel[i]))
	}
	e.box.Wrap(c.Pos)
	return nil
}
