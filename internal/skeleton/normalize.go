// Package skeleton loads target curves and maps them into the simulation domain.
package skeleton

import (
	"fmt"
	"math"

	"github.com/san-kum/cloudmorph/internal/dynamo"
	"github.com/san-kum/cloudmorph/internal/logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
)

// Options control the mapping from raw coordinates to domain coordinates.
type Options struct {
	VertFactor float64 `yaml:"vert_factor"`
	Offset     float64 `yaml:"offset"`
	BaseWidth  float64 `yaml:"base_width"`
	Margin     float64 `yaml:"margin"`
	Height     float64 `yaml:"height"`
}

func DefaultOptions() Options {
	return Options{
		VertFactor: 0.5,
		Offset:     0.25,
		BaseWidth:  0.1,
		Margin:     0.5,
		Height:     1.0,
	}
}

// Bounds is the axis-aligned bounding box of the raw coordinates.
type Bounds struct {
	Min, Max r2.Vec
}

// Skeleton is the normalized target curve. It is not modified after Normalize.
type Skeleton struct {
	Pos   []r2.Vec
	Width []float64
	Box   dynamo.Box
	Raw   Bounds
}

func (s *Skeleton) Len() int { return len(s.Pos) }

// Normalize scales raw points by VertFactor, shifts them by Offset on both axes
// and derives the domain: X = (xMax-xMin)*VertFactor + Margin, Y = Height.
// Every point gets radius BaseWidth*VertFactor.
func Normalize(raw []r2.Vec, opts Options) (*Skeleton, error) {
	if len(raw) == 0 {
		return nil, dynamo.ErrEmptySkeleton
	}
	if !(opts.VertFactor > 0) {
		return nil, fmt.Errorf("%w: vertical factor %g", dynamo.ErrParameterBounds, opts.VertFactor)
	}
	width := opts.BaseWidth * opts.VertFactor
	if !(width > 0) || math.IsInf(width, 0) {
		return nil, fmt.Errorf("%w: got %g", dynamo.ErrNonPositiveRadius, width)
	}

	xs := make([]float64, len(raw))
	ys := make([]float64, len(raw))
	for i, p := range raw {
		xs[i], ys[i] = p.X, p.Y
	}
	bounds := Bounds{
		Min: r2.Vec{X: floats.Min(xs), Y: floats.Min(ys)},
		Max: r2.Vec{X: floats.Max(xs), Y: floats.Max(ys)},
	}

	offset := r2.Vec{X: opts.Offset, Y: opts.Offset}
	s := &Skeleton{
		Pos:   make([]r2.Vec, len(raw)),
		Width: make([]float64, len(raw)),
		Raw:   bounds,
		Box: dynamo.Box{
			X: (bounds.Max.X-bounds.Min.X)*opts.VertFactor + opts.Margin,
			Y: opts.Height,
		},
	}
	for i, p := range raw {
		s.Pos[i] = r2.Add(r2.Scale(opts.VertFactor, p), offset)
		s.Width[i] = width
	}
	if err := s.Box.Validate(); err != nil {
		return nil, err
	}

	logging.Logger().Info("skeleton normalized",
		"points", len(raw),
		"x_min", bounds.Min.X, "x_max", bounds.Max.X,
		"y_min", bounds.Min.Y, "y_max", bounds.Max.Y,
		"box_x", s.Box.X, "box_y", s.Box.Y)
	return s, nil
}

// Load reads and normalizes a skeleton file.
func Load(path string, f Format, opts Options) (*Skeleton, error) {
	raw, err := ReadFile(path, f)
	if err != nil {
		return nil, err
	}
	s, err := Normalize(raw, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
