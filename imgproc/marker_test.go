package imgproc

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/travisano/unite-heatmap/types"
)

func emptyMasks(size int) MarkerMasks {
	return MarkerMasks{
		Core:  gocv.Zeros(size, size, gocv.MatTypeCV8U),
		TeamA: gocv.Zeros(size, size, gocv.MatTypeCV8U),
		TeamB: gocv.Zeros(size, size, gocv.MatTypeCV8U),
	}
}

func TestClassifyRejectsWeakCore(t *testing.T) {
	masks := emptyMasks(40)
	defer masks.Close()

	masks.Core.SetUCharAt(20, 20, 255)
	masks.Core.SetUCharAt(20, 21, 255)
	gocv.Circle(&masks.TeamA, image.Pt(20, 20), 10, white, 2)

	c := NewClassifier(DefaultConfig().Markers)
	_, ok := c.Classify(masks, Circle{Center: image.Pt(20, 20), Radius: 10})

	assert.False(t, ok, "a core of 2 pixels is below the minimum of 8")
}

func TestClassifyPicksDominantTeam(t *testing.T) {
	var tests = []struct {
		name string
		draw func(m MarkerMasks)
		want types.Category
	}{
		{
			name: "team a ring",
			draw: func(m MarkerMasks) { gocv.Circle(&m.TeamA, image.Pt(20, 20), 10, white, 2) },
			want: types.TeamA,
		},
		{
			name: "team b ring",
			draw: func(m MarkerMasks) { gocv.Circle(&m.TeamB, image.Pt(20, 20), 10, white, 2) },
			want: types.TeamB,
		},
		{
			name: "mostly team a",
			draw: func(m MarkerMasks) {
				gocv.Circle(&m.TeamA, image.Pt(20, 20), 10, white, 2)
				gocv.Rectangle(&m.TeamB, image.Rect(18, 8, 23, 13), white, -1)
			},
			want: types.TeamA,
		},
	}

	c := NewClassifier(DefaultConfig().Markers)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			masks := emptyMasks(40)
			defer masks.Close()
			gocv.Circle(&masks.Core, image.Pt(20, 20), 6, white, -1)
			tt.draw(masks)

			d, ok := c.Classify(masks, Circle{Center: image.Pt(20, 20), Radius: 10})

			require.True(t, ok)
			assert.Equal(t, tt.want, d.Category)
			assert.Equal(t, 20.0, d.Position.X)
			assert.Equal(t, 20.0, d.Position.Y)
			assert.Equal(t, 10.0, d.Radius)
			assert.GreaterOrEqual(t, d.Confidence, 5)
		})
	}
}

func TestClassifyRejectsColorlessRing(t *testing.T) {
	masks := emptyMasks(40)
	defer masks.Close()
	gocv.Circle(&masks.Core, image.Pt(20, 20), 6, white, -1)
	masks.TeamA.SetUCharAt(10, 20, 255)

	c := NewClassifier(DefaultConfig().Markers)
	_, ok := c.Classify(masks, Circle{Center: image.Pt(20, 20), Radius: 10})

	assert.False(t, ok)
}
