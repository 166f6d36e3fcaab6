package capture

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"testing"

	"github.com/san-kum/cloudmorph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func newTestCamera(t *testing.T, fps int) *Camera {
	t.Helper()
	c, err := NewCamera(fps, color.Black, color.White, DefaultLevels)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestRamp(t *testing.T) {
	p := Ramp(color.Black, color.White, 3)
	want := []color.RGBA{
		{0, 0, 0, 0xff},
		{127, 127, 127, 0xff},
		{255, 255, 255, 0xff},
	}
	for i, c := range p {
		if c != want[i] {
			t.Errorf("entry %d: got %v, want %v", i, c, want[i])
		}
	}
}

func TestCameraSnap(t *testing.T) {
	c := newTestCamera(t, 20)

	img := solid(4, 3, color.White)
	img.Set(1, 1, color.Black)
	frame := c.Snap(img)

	if c.Len() != 1 {
		t.Fatalf("expected 1 frame, got %d", c.Len())
	}
	if frame.Bounds() != image.Rect(0, 0, 4, 3) {
		t.Errorf("unexpected bounds %v", frame.Bounds())
	}
	if idx := frame.ColorIndexAt(0, 0); int(idx) != DefaultLevels-1 {
		t.Errorf("expected white index %d, got %d", DefaultLevels-1, idx)
	}
	if idx := frame.ColorIndexAt(1, 1); idx != 0 {
		t.Errorf("expected black index 0, got %d", idx)
	}
}

func TestCameraEncodeGIF(t *testing.T) {
	c := newTestCamera(t, 20)
	for i := 0; i < 3; i++ {
		c.Snap(solid(8, 8, color.Gray{Y: uint8(i * 100)}))
	}

	var buf bytes.Buffer
	if err := c.EncodeGIF(&buf); err != nil {
		t.Fatal(err)
	}

	anim, err := gif.DecodeAll(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(anim.Image) != 3 {
		t.Errorf("expected 3 frames, got %d", len(anim.Image))
	}
	for i, d := range anim.Delay {
		if d != 5 {
			t.Errorf("frame %d: expected delay 5, got %d", i, d)
		}
	}
	if anim.LoopCount != 0 {
		t.Errorf("expected infinite loop, got %d", anim.LoopCount)
	}
}

func TestCameraEmpty(t *testing.T) {
	c := newTestCamera(t, 10)
	var buf bytes.Buffer
	if err := c.EncodeGIF(&buf); !errors.Is(err, ErrNoFrames) {
		t.Errorf("expected ErrNoFrames, got %v", err)
	}
	if buf.Len() != 0 {
		t.Error("nothing should be written without frames")
	}
}

func TestCameraReset(t *testing.T) {
	c := newTestCamera(t, 10)
	c.Snap(solid(2, 2, color.White))
	c.Snap(solid(2, 2, color.White))
	c.Reset()
	if c.Len() != 0 {
		t.Errorf("expected 0 frames after reset, got %d", c.Len())
	}
}

func TestNewCameraInvalid(t *testing.T) {
	if _, err := NewCamera(0, color.Black, color.White, 16); err == nil {
		t.Error("expected error for fps 0")
	}
	if _, err := NewCamera(10, color.Black, color.White, 1); err == nil {
		t.Error("expected error for 1 level")
	}
}

type dotDrawer struct{ calls int }

func (d *dotDrawer) Draw(pos []r2.Vec) (image.Image, error) {
	d.calls++
	return solid(2, 2, color.White), nil
}

type failingDrawer struct{}

func (failingDrawer) Draw(pos []r2.Vec) (image.Image, error) {
	return nil, errors.New("raster failed")
}

func TestRecorder(t *testing.T) {
	d := &dotDrawer{}
	rec := NewRecorder(d, newTestCamera(t, 10))
	c := dynamo.NewCloud(1)

	for j := 0; j < 4; j++ {
		if err := rec.OnStep("evolve", j, c); err != nil {
			t.Fatal(err)
		}
	}
	if d.calls != 4 || rec.Camera().Len() != 4 {
		t.Errorf("expected 4 draws and frames, got %d and %d", d.calls, rec.Camera().Len())
	}

	rec = NewRecorder(failingDrawer{}, newTestCamera(t, 10))
	if err := rec.OnStep("evolve", 0, c); err == nil {
		t.Error("expected draw error to propagate")
	}
}
