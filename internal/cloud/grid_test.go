package cloud

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/san-kum/cloudmorph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestNewGridUnitBox(t *testing.T) {
	g := NewWithT(t)

	c, grid, err := NewGrid(dynamo.Box{X: 1, Y: 1}, 0.5, 0.2, rand.New(rand.NewSource(1)))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(grid).To(Equal(Grid{NumX: 3, NumY: 3}))
	g.Expect(c.Len()).To(Equal(9))
	g.Expect(c.Vel).To(HaveLen(9))
	g.Expect(c.Pos[0]).To(Equal(r2.Vec{X: 0, Y: 0}))
	g.Expect(c.Pos[8]).To(Equal(r2.Vec{X: 1, Y: 1}))
}

func TestNewGridRowMajor(t *testing.T) {
	box := dynamo.Box{X: 2, Y: 1}
	c, grid, err := NewGrid(box, 0.5, 0, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("NewGrid failed: %v", err)
	}
	if grid.NumX != 5 || grid.NumY != 3 {
		t.Fatalf("expected 5x3 grid, got %dx%d", grid.NumX, grid.NumY)
	}

	for i, p := range c.Pos {
		col, row := i%grid.NumX, i/grid.NumX
		want := r2.Vec{X: float64(col) * 0.5, Y: float64(row) * 0.5}
		if math.Abs(p.X-want.X) > 1e-12 || math.Abs(p.Y-want.Y) > 1e-12 {
			t.Errorf("pos[%d] = %v, want %v", i, p, want)
		}
	}
}

func TestNewGridDeterministic(t *testing.T) {
	box := dynamo.Box{X: 3, Y: 1}
	a, _, err := NewGrid(box, 0.1, 0.2, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := NewGrid(box, 0.1, 0.2, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatal(err)
	}
	for i := range a.Vel {
		if a.Vel[i] != b.Vel[i] {
			t.Fatalf("velocity %d differs between identically seeded runs", i)
		}
	}
}

func TestNewGridVelocityScalesWithBox(t *testing.T) {
	box := dynamo.Box{X: 10, Y: 1}
	c, _, err := NewGrid(box, 0.05, 0.2, rand.New(rand.NewSource(7)))
	if err != nil {
		t.Fatal(err)
	}

	var sx, sy float64
	for _, v := range c.Vel {
		sx += v.X * v.X
		sy += v.Y * v.Y
	}
	n := float64(c.Len())
	stdX, stdY := math.Sqrt(sx/n), math.Sqrt(sy/n)

	if math.Abs(stdX-2.0) > 0.1 {
		t.Errorf("x velocity std = %.3f, want ~2.0", stdX)
	}
	if math.Abs(stdY-0.2) > 0.01 {
		t.Errorf("y velocity std = %.3f, want ~0.2", stdY)
	}
}

func TestNewGridErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tests := []struct {
		name  string
		box   dynamo.Box
		step  float64
		sigma float64
		want  error
	}{
		{"zero step", dynamo.Box{X: 1, Y: 1}, 0, 0.2, dynamo.ErrInvalidStep},
		{"negative step", dynamo.Box{X: 1, Y: 1}, -0.1, 0.2, dynamo.ErrInvalidStep},
		{"empty box", dynamo.Box{X: 0, Y: 1}, 0.1, 0.2, dynamo.ErrInvalidBox},
		{"negative sigma", dynamo.Box{X: 1, Y: 1}, 0.1, -1, dynamo.ErrParameterBounds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := NewGrid(tt.box, tt.step, tt.sigma, rng)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, _, err := NewGrid(dynamo.Box{X: 1, Y: 1}, 0.1, 0.2, nil); err == nil {
		t.Error("expected error for nil random source")
	}
}

func TestAxis(t *testing.T) {
	tests := []struct {
		extent float64
		n      int
		want   []float64
	}{
		{0.3, 1, []float64{0}},
		{1, 3, []float64{0, 0.5, 1}},
		{5.5, 276, nil},
	}
	for _, tt := range tests {
		got := axis(tt.extent, tt.n)
		if len(got) != tt.n {
			t.Fatalf("axis(%g, %d) has %d points", tt.extent, tt.n, len(got))
		}
		if got[0] != 0 || (tt.n > 1 && got[tt.n-1] != tt.extent) {
			t.Errorf("axis(%g, %d) spans [%g, %g]", tt.extent, tt.n, got[0], got[tt.n-1])
		}
		for i, w := range tt.want {
			if got[i] != w {
				t.Errorf("axis(%g, %d)[%d] = %g, want %g", tt.extent, tt.n, i, got[i], w)
			}
		}
	}
}
