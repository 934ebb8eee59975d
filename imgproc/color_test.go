package imgproc

import (
	"fmt"
	"image/color"
	"testing"
)

func TestRotateHue(t *testing.T) {
	hsv := HSV{H: 0, S: 1, V: 1}

	hsv.RotateHue(1, CCW)

	if hsv.H != 359 {
		t.Error("expected hue of 359, got: ", hsv.H)
	}

	hsv.RotateHue(2, CW)

	if hsv.H != 1 {
		t.Error("expected hue of 1, got: ", hsv.H)
	}

	if err := hsv.RotateHue(10, "sideways"); err == nil {
		t.Error("expected error for unknown direction")
	}
}

func TestComplement(t *testing.T) {
	orange := HSV{H: 36, S: 1, V: 1}
	if got := orange.Complement().H; got != 216 {
		t.Errorf("expected hue 216, got %d", got)
	}
	if orange.H != 36 {
		t.Error("complement must not modify the receiver")
	}
}

func TestRGBA(t *testing.T) {
	var tests = []struct {
		hsv  HSV
		rgba color.RGBA
	}{
		{HSV{0, 0, 0}, color.RGBA{0, 0, 0, 255}},
		{HSV{0, 0, 1}, color.RGBA{255, 255, 255, 255}},
		{HSV{0, 1, 1}, color.RGBA{255, 0, 0, 255}},
		{HSV{120, 1, 1}, color.RGBA{0, 255, 0, 255}},
		{HSV{240, 1, 1}, color.RGBA{0, 0, 255, 255}},
		{HSV{300, 1, 1}, color.RGBA{255, 0, 255, 255}},
	}

	for _, tt := range tests {
		testname := fmt.Sprintf("HSV %v -> RGBA %v", tt.hsv, tt.rgba)
		t.Run(testname, func(t *testing.T) {
			res := tt.hsv.RGBA()
			if res != tt.rgba {
				t.Errorf("got %+v, want %+v", res, tt.rgba)
			}
		})
	}
}

func TestHSVRangeContains(t *testing.T) {
	orange := Range(0, 70, 70, 30, 255, 255)

	var tests = []struct {
		h, s, v uint8
		want    bool
	}{
		{15, 200, 200, true},
		{0, 70, 70, true},
		{30, 255, 255, true},
		{31, 200, 200, false},
		{15, 69, 200, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d,%d,%d", tt.h, tt.s, tt.v), func(t *testing.T) {
			if got := orange.Contains(tt.h, tt.s, tt.v); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
