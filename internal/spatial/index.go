// Package spatial answers nearest-skeleton-point queries.
//
// Both implementations satisfy [Index] and are interchangeable: [KDTree] for
// realistic skeletons, [BruteForce] for a handful of points and as a reference
// in tests.
package spatial

import (
	"fmt"

	"github.com/san-kum/cloudmorph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// Index is built once over fixed points and queried many times.
type Index interface {
	// Query returns, for every q[i], the Euclidean distance to and the index
	// of its nearest indexed point.
	Query(q []r2.Vec) (dist []float64, idx []int)
	Len() int
}

const (
	KindKDTree = "kdtree"
	KindBrute  = "brute"
)

// Kinds lists the names New accepts.
func Kinds() []string { return []string{KindBrute, KindKDTree} }

// New builds an index of the named kind.
func New(kind string, pts []r2.Vec) (Index, error) {
	switch kind {
	case KindKDTree, KindBrute:
	default:
		return nil, fmt.Errorf("%w: unknown index kind %q", dynamo.ErrParameterBounds, kind)
	}
	if len(pts) == 0 {
		return nil, dynamo.ErrEmptySkeleton
	}
	switch kind {
	case KindKDTree:
		return NewKDTree(pts), nil
	default:
		return NewBruteForce(pts), nil
	}
}
