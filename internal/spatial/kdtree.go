package spatial

import (
	"math"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r2"
)

// node is a kd-tree point that remembers its position in the source slice,
// since building the tree reorders its input.
type node struct {
	p   r2.Vec
	idx int
}

func (n node) coord(d kdtree.Dim) float64 {
	if d == 0 {
		return n.p.X
	}
	return n.p.Y
}

func (n node) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return n.coord(d) - c.(node).coord(d)
}

func (n node) Dims() int { return 2 }

// Distance is squared Euclidean distance, as kdtree expects.
func (n node) Distance(c kdtree.Comparable) float64 {
	return r2.Norm2(r2.Sub(n.p, c.(node).p))
}

type nodes []node

func (p nodes) Index(i int) kdtree.Comparable         { return p[i] }
func (p nodes) Len() int                              { return len(p) }
func (p nodes) Pivot(d kdtree.Dim) int                { return plane{nodes: p, Dim: d}.Pivot() }
func (p nodes) Slice(start, end int) kdtree.Interface { return p[start:end] }

// plane sorts nodes along one dimension for median selection.
type plane struct {
	kdtree.Dim
	nodes
}

func (p plane) Less(i, j int) bool { return p.nodes[i].coord(p.Dim) < p.nodes[j].coord(p.Dim) }
func (p plane) Pivot() int         { return kdtree.Partition(p, kdtree.MedianOfMedians(p)) }
func (p plane) Slice(start, end int) kdtree.SortSlicer {
	p.nodes = p.nodes[start:end]
	return p
}
func (p plane) Swap(i, j int) { p.nodes[i], p.nodes[j] = p.nodes[j], p.nodes[i] }

// KDTree is a balanced 2-d tree over the skeleton points.
type KDTree struct {
	tree *kdtree.Tree
	n    int
}

func NewKDTree(pts []r2.Vec) *KDTree {
	ns := make(nodes, len(pts))
	for i, p := range pts {
		ns[i] = node{p: p, idx: i}
	}
	return &KDTree{tree: kdtree.New(ns, false), n: len(pts)}
}

func (t *KDTree) Len() int { return t.n }

func (t *KDTree) Query(q []r2.Vec) ([]float64, []int) {
	dist := make([]float64, len(q))
	idx := make([]int, len(q))
	for i, p := range q {
		got, d2 := t.tree.Nearest(node{p: p})
		dist[i] = math.Sqrt(d2)
		idx[i] = got.(node).idx
	}
	return dist, idx
}
