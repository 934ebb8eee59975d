package imgproc

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

var (
	bgrYellow = color.RGBA{R: 255, G: 200, B: 0, A: 255}
	bgrBlue   = color.RGBA{R: 0, G: 0, B: 255, A: 255}
)

// darkFrame returns a dark grey BGR frame
func darkFrame(width, height int) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(30, 30, 30, 0), height, width, gocv.MatTypeCV8UC3)
}

func TestSegmentIsPure(t *testing.T) {
	frame := darkFrame(64, 64)
	defer frame.Close()
	gocv.Circle(&frame, image.Pt(20, 20), 6, bgrYellow, -1)
	gocv.Rectangle(&frame, image.Rect(40, 40, 50, 50), bgrYellow, -1)

	cfg := DefaultConfig().Small.Segment
	cfg.PlayArea = 0

	first := Segment(frame, cfg)
	defer first.Close()
	second := Segment(frame, cfg)
	defer second.Close()

	assert.Equal(t, first.ToBytes(), second.ToBytes())
	assert.Greater(t, gocv.CountNonZero(first), 0)
}

func TestSegmentRangesAreORed(t *testing.T) {
	frame := darkFrame(60, 30)
	defer frame.Close()
	gocv.Rectangle(&frame, image.Rect(5, 5, 15, 15), bgrYellow, -1)
	gocv.Rectangle(&frame, image.Rect(35, 5, 45, 15), bgrBlue, -1)

	yellow := Range(10, 20, 120, 45, 255, 255)
	blue := Range(100, 100, 100, 130, 255, 255)

	only := Segment(frame, SegmentConfig{Ranges: []HSVRange{yellow}})
	defer only.Close()
	both := Segment(frame, SegmentConfig{Ranges: []HSVRange{yellow, blue}})
	defer both.Close()

	assert.Equal(t, 100, gocv.CountNonZero(only))
	assert.Equal(t, 200, gocv.CountNonZero(both))
}

func TestSegmentOpenRemovesSpeckle(t *testing.T) {
	frame := darkFrame(40, 40)
	defer frame.Close()
	gocv.Rectangle(&frame, image.Rect(20, 20, 28, 28), bgrYellow, -1)
	gocv.Rectangle(&frame, image.Rect(5, 5, 6, 6), bgrYellow, -1)

	raw := Segment(frame, SegmentConfig{Ranges: []HSVRange{Range(10, 20, 120, 45, 255, 255)}})
	defer raw.Close()
	require.NotZero(t, raw.GetUCharAt(5, 5), "speckle should survive plain thresholding")

	cleaned := Segment(frame, SegmentConfig{
		Ranges: []HSVRange{Range(10, 20, 120, 45, 255, 255)},
		Morph:  []Morph{{Op: MorphOpen, Kernel: 2}},
	})
	defer cleaned.Close()

	assert.Zero(t, cleaned.GetUCharAt(5, 5))
	assert.NotZero(t, cleaned.GetUCharAt(24, 24))
}

func TestSegmentPlayAreaMasksCorners(t *testing.T) {
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 200, 255, 0), 100, 100, gocv.MatTypeCV8UC3)
	defer frame.Close()

	mask := Segment(frame, SegmentConfig{
		Ranges:   []HSVRange{Range(10, 20, 120, 45, 255, 255)},
		PlayArea: 0.45,
	})
	defer mask.Close()

	assert.Zero(t, mask.GetUCharAt(1, 1))
	assert.Zero(t, mask.GetUCharAt(98, 98))
	assert.NotZero(t, mask.GetUCharAt(50, 50))
}
