package viz

import (
	"math"
	"strings"

	"github.com/san-kum/cloudmorph/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r2"
)

// Braille cells are 2x4 dots:
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the dot at sub-pixel (x, y). The canvas is Width*2 by Height*4
// sub-pixels; out of range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

// Lit counts lit dots.
func (c *Canvas) Lit() int {
	n := 0
	for _, row := range c.Grid {
		for _, r := range row {
			for bits := int(r - blank); bits != 0; bits &= bits - 1 {
				n++
			}
		}
	}
	return n
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// project maps a domain point to sub-pixels with y up.
func (c *Canvas) project(box dynamo.Box, p r2.Vec) (int, int) {
	w, h := float64(c.Width*2), float64(c.Height*4)
	x := int(math.Floor(p.X / box.X * w))
	y := int(math.Floor((1 - p.Y/box.Y) * h))
	// the far edges belong to the last row and column
	if x == int(w) {
		x--
	}
	if y == int(h) {
		y--
	}
	return x, y
}

// Plot lights one dot per point of the domain box.
func (c *Canvas) Plot(box dynamo.Box, pts []r2.Vec) {
	for _, p := range pts {
		c.Set(c.project(box, p))
	}
}

// Polyline joins consecutive points.
func (c *Canvas) Polyline(box dynamo.Box, pts []r2.Vec) {
	if len(pts) == 1 {
		c.Plot(box, pts)
		return
	}
	for i := 1; i < len(pts); i++ {
		x0, y0 := c.project(box, pts[i-1])
		x1, y1 := c.project(box, pts[i])
		c.DrawLine(x0, y0, x1, y1)
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// FitCanvas sizes a canvas no wider than maxCols that keeps the box aspect
// ratio. Braille dots are roughly square at 2x4 per cell.
func FitCanvas(box dynamo.Box, maxCols int) *Canvas {
	cols := max(1, maxCols)
	rows := int(math.Ceil(box.Y * float64(cols*2) / box.X / 4))
	return NewCanvas(cols, max(1, rows))
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
