package heatmap

import (
	"image"
	"image/color"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/travisano/unite-heatmap/types"
)

var orange = color.RGBA{255, 154, 0, 255}

func reference(w, h int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 80, 120, 0), h, w, gocv.MatTypeCV8UC3)
}

func TestGridAddDropsOutOfRange(t *testing.T) {
	g := NewGrid(100, 50)
	defer g.Close()
	one := r2.Point{X: 1, Y: 1}

	assert.True(t, g.Add(r2.Point{X: 10, Y: 10}, one))
	assert.True(t, g.Add(r2.Point{X: 99.9, Y: 49.9}, one))
	assert.False(t, g.Add(r2.Point{X: 100, Y: 10}, one))
	assert.False(t, g.Add(r2.Point{X: -1, Y: 10}, one))
	assert.False(t, g.Add(r2.Point{X: 40, Y: 40}, r2.Point{X: 2, Y: 2}))
	assert.Equal(t, 2, g.Total())
}

func TestDensity(t *testing.T) {
	g := NewGrid(60, 60)
	defer g.Close()

	empty, err := g.Density(25)
	require.NoError(t, err)
	assert.Len(t, empty, 3600)
	for _, v := range empty {
		require.Zero(t, v)
	}

	g.Add(r2.Point{X: 30, Y: 30}, r2.Point{X: 1, Y: 1})
	g.Add(r2.Point{X: 30, Y: 30}, r2.Point{X: 1, Y: 1})
	density, err := g.Density(25)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, density[30*60+30], 1e-5, "peak is normalized to one")
	assert.Zero(t, density[0], "cells beyond the kernel stay empty")
	assert.Greater(t, density[30*60+33], float32(0))
	assert.Less(t, density[30*60+33], density[30*60+30])
}

func TestScale(t *testing.T) {
	assert.Equal(t, r2.Point{X: 2, Y: 0.5}, Scale(image.Pt(100, 400), image.Pt(200, 200)))
	assert.Equal(t, r2.Point{X: 1, Y: 1}, Scale(image.Point{}, image.Pt(200, 200)))
}

func TestAlpha(t *testing.T) {
	s := DefaultStyle()
	assert.Zero(t, s.Alpha(0))
	assert.InDelta(t, 0.006+0.594*0.001, s.Alpha(0.001), 1e-9)
	assert.InDelta(t, 0.6, s.Alpha(1), 1e-9)

	s.Gain = 2
	assert.Equal(t, 0.8, s.Alpha(0.9), "opacity is capped")
}

func TestStyleValidate(t *testing.T) {
	require.NoError(t, DefaultStyle().Validate())

	s := DefaultStyle()
	s.Kernel = 24
	assert.Error(t, s.Validate())

	s = DefaultStyle()
	s.MaxAlpha = 0
	assert.Error(t, s.Validate())
}

func TestRenderEmptyLeavesReferenceUnchanged(t *testing.T) {
	base := reference(120, 80)
	defer base.Close()
	r := NewRenderer(DefaultStyle())

	out, err := r.Render(base, image.Pt(60, 40), []Layer{
		{Name: "team-a", Color: orange},
		{Name: "team-b", Color: color.RGBA{175, 76, 255, 255}},
	}, nil)
	require.NoError(t, err)
	defer out.Close()

	assert.Equal(t, base.ToBytes(), out.ToBytes())
}

func TestRenderTintsAroundPositions(t *testing.T) {
	base := reference(120, 80)
	defer base.Close()
	r := NewRenderer(DefaultStyle())

	// capture is half the reference size, so (30, 20) lands on (60, 40)
	out, err := r.Render(base, image.Pt(60, 40), []Layer{
		{Name: "team-a", Color: orange, Positions: []r2.Point{{X: 30, Y: 20}}},
	}, nil)
	require.NoError(t, err)
	defer out.Close()

	centre := out.GetVecbAt(40, 60)
	corner := out.GetVecbAt(0, 0)
	assert.Equal(t, gocv.Vecb{40, 80, 120}, corner)
	// 60% towards BGR (0, 154, 255)
	for c, want := range []float64{16, 124, 201} {
		assert.InDelta(t, want, float64(centre[c]), 1, "channel %d", c)
	}
}

func TestRenderEntities(t *testing.T) {
	base := reference(120, 80)
	defer base.Close()
	r := NewRenderer(DefaultStyle())

	t.Run("near the border is skipped", func(t *testing.T) {
		out, err := r.Render(base, image.Pt(120, 80), nil, []Entity{
			{Position: r2.Point{X: 5, Y: 40}, Uptime: 30, Class: types.SmallFeatures},
		})
		require.NoError(t, err)
		defer out.Close()
		assert.Equal(t, base.ToBytes(), out.ToBytes())
	})

	t.Run("inside is drawn", func(t *testing.T) {
		out, err := r.Render(base, image.Pt(120, 80), nil, []Entity{
			{Position: r2.Point{X: 40, Y: 40}, Uptime: 30, Class: types.LargeFeatures},
		})
		require.NoError(t, err)
		defer out.Close()
		assert.Equal(t, gocv.Vecb{0, 255, 255}, out.GetVecbAt(40, 40), "yellow dot at the centroid")
	})
}

// labelPixels counts pixels in the label box right of p that match want
func labelPixels(img gocv.Mat, p image.Point, want func(v gocv.Vecb) bool) int {
	n := 0
	for y := p.Y - 8; y < p.Y+5; y++ {
		for x := p.X + 8; x < p.X+50; x++ {
			if want(img.GetVecbAt(y, x)) {
				n++
			}
		}
	}
	return n
}

func TestRenderLabelColors(t *testing.T) {
	base := reference(120, 80)
	defer base.Close()
	r := NewRenderer(DefaultStyle())
	at := image.Pt(30, 40)

	// pixels are BGR
	green := func(v gocv.Vecb) bool { return v[1] >= 200 && v[2] <= 130 }
	yellow := func(v gocv.Vecb) bool { return v[1] >= 200 && v[2] >= 200 }

	camp, err := r.Render(base, image.Pt(120, 80), nil, []Entity{
		{Position: r2.Point{X: 30, Y: 40}, Uptime: 75, Class: types.SmallFeatures},
	})
	require.NoError(t, err)
	defer camp.Close()
	assert.Equal(t, gocv.Vecb{0, 255, 255}, camp.GetVecbAt(40, 30))
	assert.Positive(t, labelPixels(camp, at, green))
	assert.Zero(t, labelPixels(camp, at, yellow))

	landmark, err := r.Render(base, image.Pt(120, 80), nil, []Entity{
		{Position: r2.Point{X: 30, Y: 40}, Uptime: 75, Class: types.LargeFeatures},
	})
	require.NoError(t, err)
	defer landmark.Close()
	assert.Equal(t, gocv.Vecb{0, 255, 255}, landmark.GetVecbAt(40, 30))
	assert.Positive(t, labelPixels(landmark, at, yellow))
	assert.Zero(t, labelPixels(landmark, at, green))
}

func TestRenderRejectsGrayReference(t *testing.T) {
	base := gocv.Zeros(10, 10, gocv.MatTypeCV8U)
	defer base.Close()

	_, err := NewRenderer(DefaultStyle()).Render(base, image.Pt(10, 10), nil, nil)
	assert.Error(t, err)
}
