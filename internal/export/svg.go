package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/cloudmorph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// Style controls the look of exported SVGs. Scale is pixels per domain unit.
type Style struct {
	Scale      float64
	Radius     float64
	Background string
	Foreground string
}

func DefaultStyle() Style {
	return Style{
		Scale:      120,
		Radius:     1.2,
		Background: "#000000",
		Foreground: "#ffffff",
	}
}

func header(sb *strings.Builder, box dynamo.Box, st Style) (float64, float64) {
	width := box.X * st.Scale
	height := box.Y * st.Scale
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.2f %.2f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, st.Background)
	return width, height
}

// CloudToSVG draws every particle as a dot, y up, in the same frame as the
// rasterized animation.
func CloudToSVG(box dynamo.Box, pos []r2.Vec, st Style) string {
	var sb strings.Builder
	_, height := header(&sb, box, st)

	fmt.Fprintf(&sb, "<g fill=\"%s\">\n", st.Foreground)
	for _, p := range pos {
		fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
			p.X*st.Scale, height-p.Y*st.Scale, st.Radius)
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// SkeletonToSVG draws the spine as a polyline with a translucent disc of the
// influence radius around every point.
func SkeletonToSVG(box dynamo.Box, spine []r2.Vec, width []float64, st Style) string {
	var sb strings.Builder
	_, height := header(&sb, box, st)
	if len(spine) == 0 {
		sb.WriteString("</svg>")
		return sb.String()
	}

	fmt.Fprintf(&sb, "<g fill=\"%s\" fill-opacity=\"0.15\">\n", st.Foreground)
	for i, p := range spine {
		r := st.Radius
		if i < len(width) {
			r = width[i] * st.Scale
		}
		fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n",
			p.X*st.Scale, height-p.Y*st.Scale, r)
	}
	sb.WriteString("</g>\n")

	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, st.Foreground)
	for i, p := range spine {
		if i > 0 {
			sb.WriteString(" L")
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", p.X*st.Scale, height-p.Y*st.Scale)
	}
	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
