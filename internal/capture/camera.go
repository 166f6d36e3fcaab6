// Package capture collects rendered frames and encodes them as an animated
// GIF.
package capture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"io"

	xdraw "golang.org/x/image/draw"
)

// DefaultLevels is the number of palette entries between background and
// foreground. Antialiased marker edges land on the intermediate shades.
const DefaultLevels = 16

var ErrNoFrames = errors.New("no frames captured")

// Camera holds every frame of a run in memory until EncodeGIF is called.
type Camera struct {
	palette color.Palette
	delay   int
	frames  []*image.Paletted
}

// NewCamera returns a camera whose palette ramps linearly from bg to fg.
// fps sets the per-frame delay in hundredths of a second.
func NewCamera(fps int, bg, fg color.Color, levels int) (*Camera, error) {
	if fps < 1 {
		return nil, fmt.Errorf("capture: fps must be positive, got %d", fps)
	}
	if levels < 2 || levels > 256 {
		return nil, fmt.Errorf("capture: palette levels must be in [2, 256], got %d", levels)
	}
	return &Camera{
		palette: Ramp(bg, fg, levels),
		delay:   max(1, 100/fps),
		frames:  make([]*image.Paletted, 0),
	}, nil
}

// Ramp interpolates n opaque colors from a to b inclusive.
func Ramp(a, b color.Color, n int) color.Palette {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	lerp := func(x, y uint32, t float64) uint8 {
		return uint8((float64(x)*(1-t) + float64(y)*t) / 257)
	}

	p := make(color.Palette, n)
	for i := range p {
		t := float64(i) / float64(n-1)
		p[i] = color.RGBA{R: lerp(ar, br, t), G: lerp(ag, bg, t), B: lerp(ab, bb, t), A: 0xff}
	}
	return p
}

// Snap quantizes img to the camera palette and appends it.
func (c *Camera) Snap(img image.Image) *image.Paletted {
	b := img.Bounds()
	frame := image.NewPaletted(image.Rect(0, 0, b.Dx(), b.Dy()), c.palette)
	xdraw.Draw(frame, frame.Bounds(), img, b.Min, xdraw.Src)
	c.frames = append(c.frames, frame)
	return frame
}

func (c *Camera) Len() int                    { return len(c.frames) }
func (c *Camera) Delay() int                  { return c.delay }
func (c *Camera) Reset()                      { c.frames = c.frames[:0] }
func (c *Camera) Frame(i int) *image.Paletted { return c.frames[i] }

// EncodeGIF writes all frames as a looping animation.
func (c *Camera) EncodeGIF(w io.Writer) error {
	if len(c.frames) == 0 {
		return ErrNoFrames
	}

	anim := gif.GIF{
		Image:     c.frames,
		Delay:     make([]int, len(c.frames)),
		LoopCount: 0,
	}
	for i := range anim.Delay {
		anim.Delay[i] = c.delay
	}
	if err := gif.EncodeAll(w, &anim); err != nil {
		return fmt.Errorf("encode gif: %w", err)
	}
	return nil
}
