package spatial

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/cloudmorph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

func randomPoints(rng *rand.Rand, n int, lx, ly float64) []r2.Vec {
	pts := make([]r2.Vec, n)
	for i := range pts {
		pts[i] = r2.Vec{X: rng.Float64() * lx, Y: rng.Float64() * ly}
	}
	return pts
}

func TestKDTreeMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	spine := randomPoints(rng, 500, 5.5, 1)
	queries := randomPoints(rng, 2000, 5.5, 1)

	kd := NewKDTree(spine)
	bf := NewBruteForce(spine)

	kdDist, kdIdx := kd.Query(queries)
	bfDist, _ := bf.Query(queries)

	for i := range queries {
		if math.Abs(kdDist[i]-bfDist[i]) > 1e-12 {
			t.Fatalf("query %d: kdtree dist %.12f, brute dist %.12f", i, kdDist[i], bfDist[i])
		}
		// The reported index must point at a skeleton point at that distance.
		d := r2.Norm(r2.Sub(queries[i], spine[kdIdx[i]]))
		if math.Abs(d-kdDist[i]) > 1e-12 {
			t.Fatalf("query %d: index %d is at %.12f, reported %.12f", i, kdIdx[i], d, kdDist[i])
		}
	}
}

func TestQueryCoincidentPoint(t *testing.T) {
	spine := []r2.Vec{{X: 0.25, Y: 0.25}, {X: 1, Y: 0.5}, {X: 2, Y: 0.75}}

	for _, kind := range []string{KindKDTree, KindBrute} {
		t.Run(kind, func(t *testing.T) {
			idx, err := New(kind, spine)
			if err != nil {
				t.Fatal(err)
			}
			dist, nearest := idx.Query([]r2.Vec{{X: 1, Y: 0.5}, {X: 2.1, Y: 0.75}})
			if dist[0] != 0 || nearest[0] != 1 {
				t.Errorf("coincident query: got dist %v idx %d", dist[0], nearest[0])
			}
			if math.Abs(dist[1]-0.1) > 1e-12 || nearest[1] != 2 {
				t.Errorf("offset query: got dist %v idx %d", dist[1], nearest[1])
			}
			if idx.Len() != 3 {
				t.Errorf("Len() = %d, want 3", idx.Len())
			}
		})
	}
}

func TestQueryEmptyBatch(t *testing.T) {
	idx := NewKDTree([]r2.Vec{{X: 1, Y: 1}})
	dist, nearest := idx.Query(nil)
	if len(dist) != 0 || len(nearest) != 0 {
		t.Errorf("expected empty results, got %v %v", dist, nearest)
	}
}

func TestNewErrors(t *testing.T) {
	if _, err := New(KindKDTree, nil); !errors.Is(err, dynamo.ErrEmptySkeleton) {
		t.Errorf("expected ErrEmptySkeleton, got %v", err)
	}
	if _, err := New("octree", []r2.Vec{{}}); err == nil {
		t.Error("expected error for unknown index kind")
	}
}

func BenchmarkKDTreeQuery(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	spine := randomPoints(rng, 5000, 5.5, 1)
	queries := randomPoints(rng, 10000, 5.5, 1)
	idx := NewKDTree(spine)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Query(queries)
	}
}

func BenchmarkBruteForceQuery(b *testing.B) {
	rng := rand.New(rand.NewSource(1))
	spine := randomPoints(rng, 5000, 5.5, 1)
	queries := randomPoints(rng, 1000, 5.5, 1)
	idx := NewBruteForce(spine)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Query(queries)
	}
}

type countingIndex struct {
	Index
	calls int
}

func (c *countingIndex) Query(q []r2.Vec) ([]float64, []int) {
	c.calls++
	return c.Index.Query(q)
}

func TestMemoReusesIdenticalQuery(t *testing.T) {
	spine := []r2.Vec{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}}
	inner := &countingIndex{Index: NewBruteForce(spine)}
	m := NewMemo(inner)

	pos := []r2.Vec{{X: 0.2, Y: 0.1}, {X: 1.9, Y: 0}}
	d1, i1 := m.Query(pos)
	d2, i2 := m.Query(pos)
	if inner.calls != 1 {
		t.Errorf("identical query searched %d times", inner.calls)
	}
	if d1[0] != d2[0] || i1[1] != i2[1] || i2[1] != 2 {
		t.Errorf("unexpected results %v %v / %v %v", d1, i1, d2, i2)
	}

	// the memo keeps its own copy, so moving the caller's slice is a miss
	pos[0].X = 0.9
	_, i3 := m.Query(pos)
	if inner.calls != 2 || i3[0] != 1 {
		t.Errorf("moved query: calls %d, nearest %v", inner.calls, i3)
	}

	if q, h := m.Stats(); q != 3 || h != 1 {
		t.Errorf("stats = %d queries, %d hits", q, h)
	}
	if m.Len() != 3 {
		t.Errorf("Len = %d", m.Len())
	}
}
