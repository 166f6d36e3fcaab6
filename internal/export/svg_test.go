package export

import (
	"strings"
	"testing"

	"github.com/san-kum/cloudmorph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestCloudToSVG(t *testing.T) {
	st := DefaultStyle()
	st.Scale = 100
	svg := CloudToSVG(dynamo.Box{X: 2, Y: 1}, []r2.Vec{{X: 0.5, Y: 0.25}, {X: 1.5, Y: 0.75}}, st)

	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatalf("malformed svg:\n%s", svg)
	}
	if !strings.Contains(svg, `width="200" height="100"`) {
		t.Error("expected 200x100 canvas")
	}
	if n := strings.Count(svg, "<circle"); n != 2 {
		t.Errorf("expected 2 circles, got %d", n)
	}
	// y is flipped
	if !strings.Contains(svg, `cx="50.0" cy="75.0"`) {
		t.Errorf("first particle misplaced:\n%s", svg)
	}
}

func TestSkeletonToSVG(t *testing.T) {
	st := DefaultStyle()
	st.Scale = 10
	spine := []r2.Vec{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}}
	svg := SkeletonToSVG(dynamo.Box{X: 2, Y: 1}, spine, []float64{0.05, 0.05, 0.05}, st)

	if n := strings.Count(svg, "<circle"); n != 3 {
		t.Errorf("expected 3 circles, got %d", n)
	}
	if !strings.Contains(svg, `d="M0.0,10.0 L10.0,0.0 L20.0,10.0"`) {
		t.Errorf("unexpected path:\n%s", svg)
	}
	if !strings.Contains(svg, `r="0.5"`) {
		t.Error("expected influence radius scaled to 0.5")
	}
}

func TestSkeletonToSVGEmpty(t *testing.T) {
	svg := SkeletonToSVG(dynamo.Box{X: 1, Y: 1}, nil, nil, DefaultStyle())
	if strings.Contains(svg, "<path") || !strings.HasSuffix(svg, "</svg>") {
		t.Errorf("unexpected empty output:\n%s", svg)
	}
}
