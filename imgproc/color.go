package imgproc

import (
	"fmt"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// HSV is a display color in conventional units, used for overlay palettes
type HSV struct {
	H uint32  `yaml:"h"` // 0 <= H < 360
	S float64 `yaml:"s"` // 0 <= S <= 1
	V float64 `yaml:"v"` // 0 <= V <= 1
}

type Direction string

const (
	CW  Direction = "cw"
	CCW Direction = "ccw"
)

// Rotates the hue `H` by a number of `degrees` in the given `direction`, wrapping around 360
func (col *HSV) RotateHue(degrees uint32, direction Direction) error {
	degrees %= 360
	switch direction {
	case CW:
		col.H = (col.H + degrees) % 360
	case CCW:
		col.H = (col.H + 360 - degrees) % 360
	default:
		return fmt.Errorf("unknown direction: %q", direction)
	}
	return nil
}

// Complement returns the color with its hue rotated by 180 degrees
func (col HSV) Complement() HSV {
	col.RotateHue(180, CW)
	return col
}

// Converts an HSV color to RGBA, where `A` is implicitly set to 255 (solid)
func (col HSV) RGBA() color.RGBA {
	h := float64(col.H % 360)
	c := col.V * col.S
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := col.V - c

	var rp, gp, bp float64 // R' G' B'
	switch {
	case h < 60:
		rp, gp, bp = c, x, 0
	case h < 120:
		rp, gp, bp = x, c, 0
	case h < 180:
		rp, gp, bp = 0, c, x
	case h < 240:
		rp, gp, bp = 0, x, c
	case h < 300:
		rp, gp, bp = x, 0, c
	default:
		rp, gp, bp = c, 0, x
	}

	r := uint8(math.Round((rp + m) * 255))
	g := uint8(math.Round((gp + m) * 255))
	b := uint8(math.Round((bp + m) * 255))

	return color.RGBA{r, g, b, 255}
}

// HSVBound is a single HSV sample in OpenCV 8-bit units (H 0..180, S and V 0..255).
type HSVBound struct {
	H uint8 `yaml:"h"`
	S uint8 `yaml:"s"`
	V uint8 `yaml:"v"`
}

func (b HSVBound) scalar() gocv.Scalar {
	return gocv.NewScalar(float64(b.H), float64(b.S), float64(b.V), 0)
}

// HSVRange is an inclusive lower/upper bound pair.
type HSVRange struct {
	Lower HSVBound `yaml:"lower"`
	Upper HSVBound `yaml:"upper"`
}

// Range is shorthand for building an HSVRange from two triples.
func Range(lh, ls, lv, uh, us, uv uint8) HSVRange {
	return HSVRange{Lower: HSVBound{lh, ls, lv}, Upper: HSVBound{uh, us, uv}}
}

// Contains reports whether an OpenCV HSV sample lies inside the range.
func (r HSVRange) Contains(h, s, v uint8) bool {
	return h >= r.Lower.H && h <= r.Upper.H &&
		s >= r.Lower.S && s <= r.Upper.S &&
		v >= r.Lower.V && v <= r.Upper.V
}

func (r HSVRange) validate() error {
	if r.Lower.H > r.Upper.H || r.Lower.S > r.Upper.S || r.Lower.V > r.Upper.V {
		return fmt.Errorf("inverted hsv bounds %v > %v", r.Lower, r.Upper)
	}
	if r.Upper.H > 180 {
		return fmt.Errorf("hue upper bound %d exceeds 180", r.Upper.H)
	}
	return nil
}
