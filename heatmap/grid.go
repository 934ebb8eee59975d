// Package heatmap accumulates positions into a density grid and composites
// the smoothed density, plus per-entity uptime glyphs, onto a reference map.
package heatmap

import (
	"fmt"
	"image"

	"github.com/golang/geo/r2"
	"gocv.io/x/gocv"
)

// Grid counts positions per cell. It has the dimensions of the reference map
// and must be closed after use.
type Grid struct {
	Width, Height int

	cells gocv.Mat
	total int
}

func NewGrid(width, height int) *Grid {
	return &Grid{
		Width:  width,
		Height: height,
		cells:  gocv.Zeros(height, width, gocv.MatTypeCV32F),
	}
}

// Scale returns the per-axis factor that maps capture coordinates onto a grid
// of size ref.
func Scale(capture, ref image.Point) r2.Point {
	if capture.X <= 0 || capture.Y <= 0 {
		return r2.Point{X: 1, Y: 1}
	}
	return r2.Point{
		X: float64(ref.X) / float64(capture.X),
		Y: float64(ref.Y) / float64(capture.Y),
	}
}

// Add scales p and increments its cell. Positions that land outside the grid
// are dropped and Add reports false.
func (g *Grid) Add(p, scale r2.Point) bool {
	x := int(p.X * scale.X)
	y := int(p.Y * scale.Y)
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return false
	}
	g.cells.SetFloatAt(y, x, g.cells.GetFloatAt(y, x)+1)
	g.total++
	return true
}

// Total is the number of positions that landed in the grid
func (g *Grid) Total() int {
	return g.total
}

// Density blurs the counts with a kernel x kernel gaussian and normalizes the
// result so the peak is 1. An empty grid yields all zeros.
// The returned slice is row major with Width*Height entries.
func (g *Grid) Density(kernel int) ([]float32, error) {
	out := make([]float32, g.Width*g.Height)
	if g.total == 0 {
		return out, nil
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(g.cells, &blurred, image.Pt(kernel, kernel), 0, 0, gocv.BorderDefault)

	_, peak, _, _ := gocv.MinMaxLoc(blurred)
	if peak > 0 {
		blurred.DivideFloat(peak)
	}

	data, err := blurred.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("reading density: %w", err)
	}
	copy(out, data)
	return out, nil
}

func (g *Grid) Close() error {
	return g.cells.Close()
}
