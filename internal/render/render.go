// Package render rasterizes particle positions into frames.
//
// A Renderer owns its drawing context; there is no shared figure state, so
// two renderers can draw different domains side by side.
package render

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/gogpu/gg"
	"github.com/san-kum/cloudmorph/internal/dynamo"
	"github.com/san-kum/cloudmorph/internal/logging"
	xdraw "golang.org/x/image/draw"
	"gonum.org/v1/gonum/spatial/r2"
)

type Options struct {
	Scale        float64 `yaml:"scale" json:"scale"`
	MarkerRadius float64 `yaml:"marker_radius" json:"marker_radius"`
	Supersample  int     `yaml:"supersample" json:"supersample"`
	FPS          int     `yaml:"fps" json:"fps"`
	Background   string  `yaml:"background" json:"background"`
	Foreground   string  `yaml:"foreground" json:"foreground"`
}

// DefaultOptions draws one unit of domain as 120 pixels with small white
// dots on black.
func DefaultOptions() Options {
	return Options{
		Scale:        120,
		MarkerRadius: 1.2,
		Supersample:  2,
		FPS:          20,
		Background:   "#000000",
		Foreground:   "#ffffff",
	}
}

func (o Options) Validate() error {
	if !(o.Scale > 0) {
		return fmt.Errorf("%w: render scale must be positive, got %g", dynamo.ErrParameterBounds, o.Scale)
	}
	if !(o.MarkerRadius > 0) {
		return fmt.Errorf("%w: marker radius must be positive, got %g", dynamo.ErrParameterBounds, o.MarkerRadius)
	}
	if o.Supersample < 1 || o.Supersample > 8 {
		return fmt.Errorf("%w: supersample must be in [1, 8], got %d", dynamo.ErrParameterBounds, o.Supersample)
	}
	if o.FPS < 1 || o.FPS > 100 {
		return fmt.Errorf("%w: fps must be in [1, 100], got %d", dynamo.ErrParameterBounds, o.FPS)
	}
	if _, err := ParseColor(o.Background); err != nil {
		return err
	}
	if _, err := ParseColor(o.Foreground); err != nil {
		return err
	}
	return nil
}

// ParseColor accepts "#rrggbb" or "rrggbb".
func ParseColor(s string) (gg.RGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 || strings.Trim(strings.ToLower(hex), "0123456789abcdef") != "" {
		return gg.RGBA{}, fmt.Errorf("%w: invalid color %q", dynamo.ErrParameterBounds, s)
	}
	return gg.Hex(hex), nil
}

// Renderer maps the domain [0,X]×[0,Y] onto a canvas with y pointing up.
type Renderer struct {
	box    dynamo.Box
	opts   Options
	width  int
	height int
	bg     gg.RGBA
	fg     gg.RGBA
	dc     *gg.Context
}

func New(box dynamo.Box, opts Options) (*Renderer, error) {
	if err := box.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	bg, _ := ParseColor(opts.Background)
	fg, _ := ParseColor(opts.Foreground)
	w := max(1, int(math.Ceil(box.X*opts.Scale)))
	h := max(1, int(math.Ceil(box.Y*opts.Scale)))

	r := &Renderer{
		box:    box,
		opts:   opts,
		width:  w,
		height: h,
		bg:     bg,
		fg:     fg,
		dc:     gg.NewContext(w*opts.Supersample, h*opts.Supersample),
	}
	logging.Logger().Debug("renderer ready", "width", w, "height", h, "supersample", opts.Supersample)
	return r, nil
}

// Size returns the output frame dimensions in pixels.
func (r *Renderer) Size() (int, int) { return r.width, r.height }
func (r *Renderer) FPS() int         { return r.opts.FPS }

// Point converts a domain position to canvas pixel coordinates at output
// resolution.
func (r *Renderer) Point(p r2.Vec) (float64, float64) {
	return p.X * r.opts.Scale, (r.box.Y - p.Y) * r.opts.Scale
}

// Draw renders one frame. The returned image is owned by the caller.
func (r *Renderer) Draw(pos []r2.Vec) (image.Image, error) {
	k := float64(r.opts.Supersample)
	rad := r.opts.MarkerRadius * k

	r.dc.ClearWithColor(r.bg)
	r.dc.SetRGB(r.fg.R, r.fg.G, r.fg.B)
	for _, p := range pos {
		x, y := r.Point(p)
		r.dc.DrawCircle(x*k, y*k, rad)
	}
	if len(pos) > 0 {
		if err := r.dc.Fill(); err != nil {
			return nil, fmt.Errorf("fill markers: %w", err)
		}
	}

	img := r.dc.Image()
	if r.opts.Supersample == 1 {
		return img, nil
	}

	out := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	xdraw.ApproxBiLinear.Scale(out, out.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return out, nil
}

func (r *Renderer) Close() error {
	return r.dc.Close()
}
