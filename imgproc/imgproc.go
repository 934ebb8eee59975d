package imgproc

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var white = color.RGBA{255, 255, 255, 255}

// Returns the rectangle of `mat` that starts at the given fractions of its width and height
// and extends to the bottom right corner
func SearchArea(mat gocv.Mat, fx, fy float64) image.Rectangle {
	srcWidth := mat.Cols()
	srcHeight := mat.Rows()

	return image.Rect(int(float64(srcWidth)*fx), int(float64(srcHeight)*fy), srcWidth, srcHeight)
}

// Creates and returns a new Mat holding a copy of `rect` from the src Mat.
// The copy does not share memory with src, so src may be closed afterwards.
func Crop(mat gocv.Mat, rect image.Rectangle) gocv.Mat {
	rect = rect.Intersect(image.Rect(0, 0, mat.Cols(), mat.Rows()))
	region := mat.Region(rect)
	defer region.Close()
	return region.Clone()
}

// Converts a BGR Mat to OpenCV HSV
func ToHSV(mat gocv.Mat) gocv.Mat {
	hsv := gocv.NewMat()
	gocv.CvtColor(mat, &hsv, gocv.ColorBGRToHSV)
	return hsv
}

// Converts a BGR Mat to single channel grey
func ToGray(mat gocv.Mat) gocv.Mat {
	grey := gocv.NewMat()
	gocv.CvtColor(mat, &grey, gocv.ColorBGRToGray)
	return grey
}

// countWithin counts the non-zero pixels of mask that are also set in shape
func countWithin(mask, shape gocv.Mat) int {
	both := gocv.NewMat()
	defer both.Close()
	gocv.BitwiseAnd(mask, shape, &both)
	return gocv.CountNonZero(both)
}

func insideMargin(p image.Point, size image.Point, margin int) bool {
	return p.X >= margin && p.Y >= margin && p.X < size.X-margin && p.Y < size.Y-margin
}

func matSize(mat gocv.Mat) image.Point {
	return image.Pt(mat.Cols(), mat.Rows())
}
