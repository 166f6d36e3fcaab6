package capture

import (
	"image"

	"github.com/san-kum/cloudmorph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

type Drawer interface {
	Draw(pos []r2.Vec) (image.Image, error)
}

// Recorder is a simulation observer that renders and captures one frame per
// step.
type Recorder struct {
	drawer Drawer
	camera *Camera
}

func NewRecorder(d Drawer, c *Camera) *Recorder {
	return &Recorder{drawer: d, camera: c}
}

func (r *Recorder) OnStep(phase string, step int, c *dynamo.Cloud) error {
	img, err := r.drawer.Draw(c.Pos)
	if err != nil {
		return err
	}
	r.camera.Snap(img)
	return nil
}

func (r *Recorder) Camera() *Camera { return r.camera }
