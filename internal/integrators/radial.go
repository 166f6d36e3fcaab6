package integrators

import (
	"fmt"
	"math"

	"github.com/charmbracelet/harmonica"
	"github.com/san-kum/cloudmorph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	DefaultImplodePeriods    = 0.5
	DefaultImplodeIterations = 40
)

// Profile shapes the implode scale factor over time.
type Profile string

const (
	// ProfileLinear is the triangle wave |1 - j*step|.
	ProfileLinear Profile = "linear"
	// ProfileSpring chases the same turning points with a critically damped
	// spring, giving eased contraction and rebound.
	ProfileSpring Profile = "spring"
)

// ImplodeParams configures a radial pulse around Center.
type ImplodeParams struct {
	Center              r2.Vec
	Periods             float64
	IterationsPerPeriod int
	Profile             Profile
}

// Implode scales every particle's offset from the center by a factor running
// 1 → 0 → 1 once per period. It is purely kinematic: positions are recomputed
// from the state captured in Begin and velocities are left alone.
type Implode struct {
	params ImplodeParams
	box    dynamo.Box
	iters  int
	step   float64
	origin []r2.Vec
	factor []float64
}

func NewImplode(box dynamo.Box, p ImplodeParams) (*Implode, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}
	if p.IterationsPerPeriod <= 0 {
		return nil, fmt.Errorf("%w: iterations per period %d", dynamo.ErrParameterBounds, p.IterationsPerPeriod)
	}
	if p.Periods < 0 || math.IsNaN(p.Periods) || math.IsInf(p.Periods, 0) {
		return nil, fmt.Errorf("%w: periods %g", dynamo.ErrParameterBounds, p.Periods)
	}
	switch p.Profile {
	case "":
		p.Profile = ProfileLinear
	case ProfileLinear, ProfileSpring:
	default:
		return nil, fmt.Errorf("unknown implode profile: %s", p.Profile)
	}

	im := &Implode{
		params: p,
		box:    box,
		iters:  int(p.Periods * float64(p.IterationsPerPeriod)),
		step:   2 / float64(p.IterationsPerPeriod),
	}
	im.factor = im.schedule()
	return im, nil
}

func (im *Implode) Name() string { return "implode" }

// Steps is numIterations+1: both the starting and final frame are rendered.
func (im *Implode) Steps() int { return im.iters + 1 }

// Factor returns the scale applied at frame j.
func (im *Implode) Factor(j int) float64 { return im.factor[j] }

func (im *Implode) Begin(c *dynamo.Cloud) error {
	if err := c.Validate(); err != nil {
		return err
	}
	im.origin = make([]r2.Vec, c.Len())
	copy(im.origin, c.Pos)
	return nil
}

func (im *Implode) Step(j int, c *dynamo.Cloud) error {
	if im.origin == nil {
		return fmt.Errorf("implode: Step called before Begin")
	}
	f := im.factor[j]
	center := im.params.Center
	for i, p := range im.origin {
		c.Pos[i] = r2.Add(center, r2.Scale(f, r2.Sub(p, center)))
	}
	im.box.Wrap(c.Pos)
	return nil
}

func (im *Implode) schedule() []float64 {
	out := make([]float64, im.iters+1)
	for j := range out {
		out[j] = math.Abs(1 - float64(j)*im.step)
	}
	if im.params.Profile != ProfileSpring {
		return out
	}

	// Each half period the linear profile heads for 0 or 1; the spring
	// chases that turning point instead of following the ramp.
	spring := harmonica.NewSpring(harmonica.FPS(im.params.IterationsPerPeriod), 12.0, 1.0)
	pos, vel := 1.0, 0.0
	for j := 1; j < len(out); j++ {
		target := 1.0
		if int(math.Floor(float64(j-1)*im.step))%2 == 0 {
			target = 0
		}
		pos, vel = spring.Update(pos, vel, target)
		out[j] = pos
	}
	return out
}
