package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/stat"
)

// Box is the periodic simulation domain [0,X) × [0,Y).
type Box struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Validate reports ErrInvalidBox unless both extents are positive and finite.
func (b Box) Validate() error {
	if !(b.X > 0) || !(b.Y > 0) || math.IsInf(b.X, 0) || math.IsInf(b.Y, 0) {
		return fmt.Errorf("%w: got (%g, %g)", ErrInvalidBox, b.X, b.Y)
	}
	return nil
}

// Center returns the midpoint of the domain.
func (b Box) Center() r2.Vec {
	return r2.Vec{X: b.X / 2, Y: b.Y / 2}
}

// Cloud is the mutable particle state. Pos[i] and Vel[i] describe the same
// particle; the length never changes during a run.
type Cloud struct {
	Pos []r2.Vec
	Vel []r2.Vec
}

func NewCloud(n int) *Cloud {
	return &Cloud{
		Pos: make([]r2.Vec, n),
		Vel: make([]r2.Vec, n),
	}
}

func (c *Cloud) Len() int { return len(c.Pos) }

func (c *Cloud) Clone() *Cloud {
	out := NewCloud(len(c.Pos))
	copy(out.Pos, c.Pos)
	copy(out.Vel, c.Vel)
	return out
}

// Validate checks the cloud is non-empty with matching slices.
func (c *Cloud) Validate() error {
	if c == nil || len(c.Pos) == 0 {
		return ErrEmptyCloud
	}
	if len(c.Pos) != len(c.Vel) {
		return fmt.Errorf("%w: %d positions, %d velocities", ErrParameterBounds, len(c.Pos), len(c.Vel))
	}
	return nil
}

func (c *Cloud) IsValid() bool {
	for i := range c.Pos {
		if !finite(c.Pos[i]) || !finite(c.Vel[i]) {
			return false
		}
	}
	return true
}

// MeanSquaredVelocity returns the mean of |v|² over all particles.
func (c *Cloud) MeanSquaredVelocity() float64 {
	if len(c.Vel) == 0 {
		return 0
	}
	sq := make([]float64, len(c.Vel))
	for i, v := range c.Vel {
		sq[i] = r2.Norm2(v)
	}
	return stat.Mean(sq, nil)
}

func finite(v r2.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsNaN(v.Y) && !math.IsInf(v.X, 0) && !math.IsInf(v.Y, 0)
}

// Observer is notified after every completed step, once positions are wrapped.
type Observer interface {
	OnStep(phase string, step int, c *Cloud) error
}

type Metric interface {
	Name() string
	Observe(c *Cloud)
	Value() float64
	Reset()
}

// Tracer is implemented by metrics that keep one sample per observed step.
type Tracer interface {
	History() []float64
}
