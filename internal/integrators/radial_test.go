package integrators_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/cloudmorph/internal/dynamo"
	"github.com/san-kum/cloudmorph/internal/integrators"
	"gonum.org/v1/gonum/spatial/r2"
)

func squareCloud() *dynamo.Cloud {
	c := dynamo.NewCloud(4)
	c.Pos[0] = r2.Vec{X: 0.25, Y: 0.25}
	c.Pos[1] = r2.Vec{X: 0.75, Y: 0.25}
	c.Pos[2] = r2.Vec{X: 0.25, Y: 0.75}
	c.Pos[3] = r2.Vec{X: 0.75, Y: 0.75}
	for i := range c.Vel {
		c.Vel[i] = r2.Vec{X: float64(i), Y: -float64(i)}
	}
	return c
}

func run(ph interface {
	Steps() int
	Begin(*dynamo.Cloud) error
	Step(int, *dynamo.Cloud) error
}, c *dynamo.Cloud) {
	Expect(ph.Begin(c)).To(Succeed())
	for j := 0; j < ph.Steps(); j++ {
		Expect(ph.Step(j, c)).To(Succeed())
	}
}

var _ = Describe("Implode", func() {
	box := dynamo.Box{X: 1, Y: 1}

	It("collapses onto the center after half a period", func() {
		im, err := integrators.NewImplode(box, integrators.ImplodeParams{
			Center: box.Center(), Periods: 0.5, IterationsPerPeriod: 40,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(im.Steps()).To(Equal(21))

		c := squareCloud()
		run(im, c)
		for _, p := range c.Pos {
			Expect(p.X).To(BeNumerically("~", 0.5, 1e-12))
			Expect(p.Y).To(BeNumerically("~", 0.5, 1e-12))
		}
	})

	It("returns to the original positions after a full period", func() {
		im, err := integrators.NewImplode(box, integrators.ImplodeParams{
			Center: box.Center(), Periods: 1, IterationsPerPeriod: 40,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(im.Factor(0)).To(Equal(1.0))
		Expect(im.Factor(20)).To(BeNumerically("~", 0, 1e-12))
		Expect(im.Factor(im.Steps() - 1)).To(BeNumerically("~", 1, 1e-12))

		c := squareCloud()
		want := c.Clone()
		run(im, c)
		for i := range c.Pos {
			Expect(c.Pos[i].X).To(BeNumerically("~", want.Pos[i].X, 1e-12))
			Expect(c.Pos[i].Y).To(BeNumerically("~", want.Pos[i].Y, 1e-12))
		}
	})

	It("passes velocities through untouched", func() {
		im, err := integrators.NewImplode(box, integrators.ImplodeParams{
			Center: box.Center(), Periods: 0.5, IterationsPerPeriod: 10,
		})
		Expect(err).NotTo(HaveOccurred())

		c := squareCloud()
		want := c.Clone()
		run(im, c)
		Expect(c.Vel).To(Equal(want.Vel))
	})

	It("wraps when the center is off the domain center", func() {
		im, err := integrators.NewImplode(box, integrators.ImplodeParams{
			Center: r2.Vec{X: 2, Y: 0.5}, Periods: 0.25, IterationsPerPeriod: 4,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(im.Steps()).To(Equal(2))

		c := dynamo.NewCloud(1)
		c.Pos[0] = r2.Vec{X: 0.1, Y: 0.5}
		Expect(im.Begin(c)).To(Succeed())
		Expect(im.Step(1, c)).To(Succeed())
		Expect(box.Contains(c.Pos[0])).To(BeTrue())
		Expect(c.Pos[0].X).To(BeNumerically("~", 0.05, 1e-12))
	})

	It("eases toward the same turning points with the spring profile", func() {
		im, err := integrators.NewImplode(box, integrators.ImplodeParams{
			Center: box.Center(), Periods: 0.5, IterationsPerPeriod: 40, Profile: integrators.ProfileSpring,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(im.Factor(0)).To(Equal(1.0))
		for j := 1; j < im.Steps(); j++ {
			Expect(im.Factor(j)).To(BeNumerically("<=", im.Factor(j-1)))
		}
		Expect(im.Factor(im.Steps() - 1)).To(BeNumerically("<", 0.05))
	})

	It("rejects invalid parameters", func() {
		_, err := integrators.NewImplode(box, integrators.ImplodeParams{Periods: 1})
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))

		_, err = integrators.NewImplode(box, integrators.ImplodeParams{Periods: -1, IterationsPerPeriod: 4})
		Expect(err).To(MatchError(dynamo.ErrParameterBounds))

		_, err = integrators.NewImplode(box, integrators.ImplodeParams{IterationsPerPeriod: 4, Profile: "bounce"})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Explode", func() {
	box := dynamo.Box{X: 1, Y: 1}

	It("leaves particles at rest where they are", func() {
		ex, err := integrators.NewExplode(box, 0.1, 25)
		Expect(err).NotTo(HaveOccurred())

		c := squareCloud()
		for i := range c.Vel {
			c.Vel[i] = r2.Vec{}
		}
		want := c.Clone()
		run(ex, c)
		Expect(c.Pos).To(Equal(want.Pos))
	})

	It("moves particles in straight lines with wrapping", func() {
		ex, err := integrators.NewExplode(box, 0.1, 3)
		Expect(err).NotTo(HaveOccurred())

		c := dynamo.NewCloud(1)
		c.Pos[0] = r2.Vec{X: 0.9, Y: 0.05}
		c.Vel[0] = r2.Vec{X: 1, Y: -1}
		run(ex, c)

		Expect(c.Pos[0].X).To(BeNumerically("~", 0.2, 1e-9))
		Expect(c.Pos[0].Y).To(BeNumerically("~", 0.75, 1e-9))
		Expect(c.Vel[0]).To(Equal(r2.Vec{X: 1, Y: -1}))
	})

	It("rejects a non-positive timestep", func() {
		_, err := integrators.NewExplode(box, 0, 3)
		Expect(err).To(MatchError(dynamo.ErrInvalidTimestep))
	})
})
