package integrators_test

import (
	"math/rand"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/cloudmorph/internal/dynamo"
	"github.com/san-kum/cloudmorph/internal/integrators"
	"github.com/san-kum/cloudmorph/internal/skeleton"
	"github.com/san-kum/cloudmorph/internal/spatial"
	"gonum.org/v1/gonum/spatial/r2"
)

func lineSkeleton(n int, width float64) *skeleton.Skeleton {
	sk := &skeleton.Skeleton{
		Pos:   make([]r2.Vec, n),
		Width: make([]float64, n),
		Box:   dynamo.Box{X: 2, Y: 1},
	}
	for i := range sk.Pos {
		sk.Pos[i] = r2.Vec{X: 0.5 + float64(i)/float64(n), Y: 0.5}
		sk.Width[i] = width
	}
	return sk
}

func newAttraction(sk *skeleton.Skeleton, p integrators.AttractionParams) *integrators.Attraction {
	a, err := integrators.NewAttraction(sk, spatial.NewKDTree(sk.Pos), p)
	Expect(err).NotTo(HaveOccurred())
	return a
}

var _ = Describe("Attraction", func() {
	var (
		sk     *skeleton.Skeleton
		params integrators.AttractionParams
	)

	BeforeEach(func() {
		sk = lineSkeleton(100, 0.05)
		params = integrators.DefaultAttractionParams()
	})

	It("uses the unit spring outside the influence radius", func() {
		a := newAttraction(sk, params)
		pos := []r2.Vec{{X: 1.0, Y: 0.9}}
		vel := []r2.Vec{{X: 0.3, Y: -0.2}}

		acc, damped := a.Accelerations(pos, vel)
		Expect(damped).To(Equal(0))
		Expect(acc[0].X).To(BeNumerically("~", 0, 1e-12))
		Expect(acc[0].Y).To(BeNumerically("~", -0.4, 1e-12))
	})

	It("replaces the spring with viscous drag inside the influence radius", func() {
		a := newAttraction(sk, params)
		pos := []r2.Vec{{X: 1.0, Y: 0.52}, {X: 1.0, Y: 0.5}}
		vel := []r2.Vec{{X: 0.3, Y: -0.2}, {X: -1, Y: 2}}

		acc, damped := a.Accelerations(pos, vel)
		Expect(damped).To(Equal(2))
		for i := range pos {
			Expect(acc[i]).To(Equal(r2.Scale(-params.Viscosity, vel[i])))
		}
	})

	It("never applies the spring to particles that start a step in the damping zone", func() {
		rng := rand.New(rand.NewSource(11))
		c := dynamo.NewCloud(400)
		for i := range c.Pos {
			c.Pos[i] = r2.Vec{X: rng.Float64() * 2, Y: rng.Float64()}
			c.Vel[i] = r2.Vec{X: rng.NormFloat64() * 0.2, Y: rng.NormFloat64() * 0.2}
		}
		a := newAttraction(sk, params)
		idx := spatial.NewBruteForce(sk.Pos)
		Expect(a.Begin(c)).To(Succeed())

		for step := 0; step < 30; step++ {
			dist, nearest := idx.Query(c.Pos)
			acc, _ := a.Accelerations(c.Pos, c.Vel)
			for i := range c.Pos {
				if dist[i] < sk.Width[nearest[i]] {
					Expect(acc[i]).To(Equal(r2.Scale(-params.Viscosity, c.Vel[i])))
				}
			}
			Expect(a.Step(step, c)).To(Succeed())
		}
	})

	It("applies the position and velocity update of one step", func() {
		a := newAttraction(sk, params)
		c := dynamo.NewCloud(1)
		c.Pos[0] = r2.Vec{X: 1.0, Y: 0.9}
		c.Vel[0] = r2.Vec{X: 0.1, Y: 0}

		Expect(a.Step(0, c)).To(Succeed())

		dt := params.Dt
		Expect(c.Pos[0].X).To(BeNumerically("~", 1.0+0.1*dt, 1e-12))
		Expect(c.Pos[0].Y).To(BeNumerically("~", 0.9-0.5*0.4*dt*dt, 1e-12))
		Expect(c.Vel[0].X).To(BeNumerically("~", 0.1*params.Damping, 1e-12))
		Expect(c.Vel[0].Y).To(BeNumerically("~", -0.4*dt*params.Damping, 1e-12))
		Expect(a.Damped()).To(Equal(0))
	})

	It("does not increase the mean squared velocity of settled particles", func() {
		sk = &skeleton.Skeleton{
			Pos:   []r2.Vec{{X: 0.5, Y: 0.5}},
			Width: []float64{0.5},
			Box:   dynamo.Box{X: 1, Y: 1},
		}
		a := newAttraction(sk, params)

		rng := rand.New(rand.NewSource(5))
		c := dynamo.NewCloud(200)
		for i := range c.Pos {
			c.Pos[i] = r2.Vec{X: 0.5 + 0.1*(rng.Float64()-0.5), Y: 0.5 + 0.1*(rng.Float64()-0.5)}
			c.Vel[i] = r2.Vec{X: 0.01 * rng.NormFloat64(), Y: 0.01 * rng.NormFloat64()}
		}

		prev := c.MeanSquaredVelocity()
		for step := 0; step < 50; step++ {
			Expect(a.Step(step, c)).To(Succeed())
			Expect(a.Damped()).To(Equal(c.Len()))
			msv := c.MeanSquaredVelocity()
			Expect(msv).To(BeNumerically("<=", prev))
			prev = msv
		}
	})

	It("wraps particles that cross the domain edge", func() {
		a := newAttraction(sk, params)
		c := dynamo.NewCloud(1)
		c.Pos[0] = r2.Vec{X: 1.99, Y: 0.9}
		c.Vel[0] = r2.Vec{X: 1, Y: 0}

		Expect(a.Step(0, c)).To(Succeed())
		Expect(sk.Box.Contains(c.Pos[0])).To(BeTrue())
		Expect(c.Pos[0].X).To(BeNumerically("<", 0.5))
	})

	It("rejects invalid configuration", func() {
		idx := spatial.NewKDTree(sk.Pos)

		p := params
		p.Dt = 0
		_, err := integrators.NewAttraction(sk, idx, p)
		Expect(err).To(MatchError(dynamo.ErrInvalidTimestep))

		bad := lineSkeleton(3, 0)
		_, err = integrators.NewAttraction(bad, spatial.NewKDTree(bad.Pos), params)
		Expect(err).To(MatchError(dynamo.ErrNonPositiveRadius))

		_, err = integrators.NewAttraction(&skeleton.Skeleton{}, idx, params)
		Expect(err).To(MatchError(dynamo.ErrEmptySkeleton))

		p = params
		p.Damping = 1.5
		_, err = integrators.NewAttraction(sk, idx, p)
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))
	})

	It("reports zero steps when configured for none", func() {
		p := params
		p.Steps = 0
		a := newAttraction(sk, p)
		Expect(a.Steps()).To(Equal(0))
	})
})
