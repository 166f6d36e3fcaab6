package integrators

import (
	"math/rand"
	"testing"

	"github.com/san-kum/cloudmorph/internal/cloud"
	"github.com/san-kum/cloudmorph/internal/dynamo"
	"github.com/san-kum/cloudmorph/internal/skeleton"
	"github.com/san-kum/cloudmorph/internal/spatial"
	"gonum.org/v1/gonum/spatial/r2"
)

func benchSkeleton(n int) *skeleton.Skeleton {
	raw := make([]r2.Vec, n)
	for i := range raw {
		t := float64(i) / float64(n)
		raw[i] = r2.Vec{X: 10 * t, Y: 1 + 0.5*float64(i%7)/7}
	}
	sk, err := skeleton.Normalize(raw, skeleton.DefaultOptions())
	if err != nil {
		panic(err)
	}
	return sk
}

func benchCloud(b *testing.B, box dynamo.Box) *dynamo.Cloud {
	c, _, err := cloud.NewGrid(box, 0.02, 0.2, rand.New(rand.NewSource(1)))
	if err != nil {
		b.Fatal(err)
	}
	return c
}

func BenchmarkAttractionKDTree(b *testing.B) {
	sk := benchSkeleton(4000)
	a, err := NewAttraction(sk, spatial.NewKDTree(sk.Pos), DefaultAttractionParams())
	if err != nil {
		b.Fatal(err)
	}
	c := benchCloud(b, sk.Box)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Step(i, c)
	}
}

func BenchmarkAttractionBrute(b *testing.B) {
	sk := benchSkeleton(4000)
	a, err := NewAttraction(sk, spatial.NewBruteForce(sk.Pos), DefaultAttractionParams())
	if err != nil {
		b.Fatal(err)
	}
	c := benchCloud(b, sk.Box)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.Step(i, c)
	}
}

func BenchmarkExplode(b *testing.B) {
	box := dynamo.Box{X: 5.5, Y: 1}
	ex, err := NewExplode(box, DefaultExplodeDt, DefaultExplodeSteps)
	if err != nil {
		b.Fatal(err)
	}
	c := benchCloud(b, box)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ex.Step(i, c)
	}
}
