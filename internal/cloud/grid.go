// Package cloud builds the initial particle distribution.
package cloud

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/cloudmorph/internal/dynamo"
	"github.com/san-kum/cloudmorph/internal/logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	DefaultStep     = 0.02
	DefaultVelSigma = 0.2
)

// Grid describes the lattice a cloud was laid out on.
type Grid struct {
	NumX, NumY int
}

func (g Grid) Len() int { return g.NumX * g.NumY }

// Dims returns the lattice dimensions for a box and spacing:
// floor(L/step)+1 points per axis.
func Dims(box dynamo.Box, step float64) (Grid, error) {
	if err := box.Validate(); err != nil {
		return Grid{}, err
	}
	if !(step > 0) || math.IsInf(step, 0) {
		return Grid{}, fmt.Errorf("%w: got %g", dynamo.ErrInvalidStep, step)
	}
	return Grid{
		NumX: int(box.X/step) + 1,
		NumY: int(box.Y/step) + 1,
	}, nil
}

// NewGrid lays particles on a uniform lattice covering [0,X]×[0,Y] including
// both boundary lines, row-major, and samples Gaussian velocities with standard
// deviation velSigma scaled per axis by the box extent.
func NewGrid(box dynamo.Box, step, velSigma float64, rng *rand.Rand) (*dynamo.Cloud, Grid, error) {
	grid, err := Dims(box, step)
	if err != nil {
		return nil, Grid{}, err
	}
	if velSigma < 0 || math.IsNaN(velSigma) {
		return nil, Grid{}, fmt.Errorf("%w: velocity sigma %g", dynamo.ErrParameterBounds, velSigma)
	}
	if rng == nil {
		return nil, Grid{}, errors.New("cloud: nil random source")
	}

	xs := axis(box.X, grid.NumX)
	ys := axis(box.Y, grid.NumY)

	c := dynamo.NewCloud(grid.Len())
	for i := range c.Pos {
		c.Pos[i] = r2.Vec{X: xs[i%grid.NumX], Y: ys[i/grid.NumX]}
	}
	for i := range c.Vel {
		c.Vel[i] = r2.Vec{
			X: rng.NormFloat64() * velSigma * box.X,
			Y: rng.NormFloat64() * velSigma * box.Y,
		}
	}

	logging.Logger().Info("point cloud initialized",
		"x_axis", grid.NumX, "y_axis", grid.NumY, "total", grid.Len())
	return c, grid, nil
}

// axis returns n evenly spaced coordinates covering [0, extent]. The last
// one is pinned to extent: Span can land an ulp short of it.
func axis(extent float64, n int) []float64 {
	if n == 1 {
		return []float64{0}
	}
	pts := floats.Span(make([]float64, n), 0, extent)
	pts[n-1] = extent
	return pts
}
