package spatial

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// BruteForce scans every point per query. Ties go to the lowest index.
type BruteForce struct {
	pts []r2.Vec
}

func NewBruteForce(pts []r2.Vec) *BruteForce {
	cp := make([]r2.Vec, len(pts))
	copy(cp, pts)
	return &BruteForce{pts: cp}
}

func (b *BruteForce) Len() int { return len(b.pts) }

func (b *BruteForce) Query(q []r2.Vec) ([]float64, []int) {
	dist := make([]float64, len(q))
	idx := make([]int, len(q))
	for i, p := range q {
		best, bestD2 := -1, math.Inf(1)
		for j, s := range b.pts {
			if d2 := r2.Norm2(r2.Sub(p, s)); d2 < bestD2 {
				best, bestD2 = j, d2
			}
		}
		dist[i] = math.Sqrt(bestD2)
		idx[i] = best
	}
	return dist, idx
}
