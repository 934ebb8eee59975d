package imgproc

import (
	"image"

	"gocv.io/x/gocv"
)

// Segment thresholds a BGR frame with cfg and returns the cleaned binary
// mask. The caller owns the returned Mat.
func Segment(frame gocv.Mat, cfg SegmentConfig) gocv.Mat {
	hsv := ToHSV(frame)
	defer hsv.Close()
	return SegmentHSV(hsv, cfg)
}

// SegmentHSV is Segment for a frame that is already in HSV.
func SegmentHSV(hsv gocv.Mat, cfg SegmentConfig) gocv.Mat {
	mask := InRange(hsv, cfg.Ranges)

	if cfg.PlayArea > 0 {
		area := PlayAreaMask(mask.Cols(), mask.Rows(), cfg.PlayArea)
		gocv.BitwiseAnd(mask, area, &mask)
		area.Close()
	}

	for _, m := range cfg.Morph {
		applyMorph(&mask, m)
	}

	return mask
}

// InRange returns a mask that is set wherever hsv falls inside any of the ranges.
func InRange(hsv gocv.Mat, ranges []HSVRange) gocv.Mat {
	mask := gocv.Zeros(hsv.Rows(), hsv.Cols(), gocv.MatTypeCV8U)

	part := gocv.NewMat()
	defer part.Close()

	for _, r := range ranges {
		gocv.InRangeWithScalar(hsv, r.Lower.scalar(), r.Upper.scalar(), &part)
		gocv.BitwiseOr(mask, part, &mask)
	}

	return mask
}

// PlayAreaMask draws the filled ellipse covering the playable part of the minimap.
func PlayAreaMask(width, height int, fraction float64) gocv.Mat {
	mask := gocv.Zeros(height, width, gocv.MatTypeCV8U)
	center := image.Pt(width/2, height/2)
	axes := image.Pt(int(float64(width)*fraction), int(float64(height)*fraction))
	gocv.Ellipse(&mask, center, axes, 0, 0, 360, white, -1)
	return mask
}

func applyMorph(mask *gocv.Mat, m Morph) {
	kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Pt(m.Kernel, m.Kernel))
	defer kernel.Close()

	op := gocv.MorphOpen
	if m.Op == MorphClose {
		op = gocv.MorphClose
	}
	gocv.MorphologyEx(*mask, mask, op, kernel)
}
