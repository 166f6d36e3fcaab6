package dynamo

import "gonum.org/v1/gonum/spatial/r2"

// Wrap applies one periodic wrap to every coordinate: negative values gain the
// axis extent, values >= the extent lose it. It does not loop, so a point that
// moved more than one extent in a single step stays outside; see Contains.
func (b Box) Wrap(pos []r2.Vec) {
	for i := range pos {
		pos[i].X = wrap(pos[i].X, b.X)
		pos[i].Y = wrap(pos[i].Y, b.Y)
	}
}

func wrap(v, l float64) float64 {
	switch {
	case v < 0:
		v += l
		// -tiny + l rounds to l.
		if v >= l {
			v = 0
		}
	case v >= l:
		v -= l
	}
	return v
}

// Contains reports whether p lies in [0,X) × [0,Y).
func (b Box) Contains(p r2.Vec) bool {
	return p.X >= 0 && p.X < b.X && p.Y >= 0 && p.Y < b.Y
}

// Escaped returns the index of the first particle outside the domain, or -1.
func (b Box) Escaped(pos []r2.Vec) int {
	for i, p := range pos {
		if !b.Contains(p) {
			return i
		}
	}
	return -1
}
