package imgproc

import (
	"image"
	"math"

	"github.com/golang/geo/r2"
	"gocv.io/x/gocv"
)

// Circle is a Hough circle candidate
type Circle struct {
	Center image.Point
	Radius int
}

// Blob is a connected region of a binary mask that passed the shape filters
type Blob struct {
	Centroid    r2.Point
	Area        int
	Bounds      image.Rectangle
	Radius      float64 // radius of the disc with the same area, at least MinRadius
	Fill        float64
	Circularity float64
}

// FindCircles runs the Hough gradient transform over a grey image and drops
// candidates centred inside the edge margin.
func FindCircles(gray gocv.Mat, p CircleParams) []Circle {
	circles := gocv.NewMat()
	defer circles.Close()

	gocv.HoughCirclesWithParams(gray, &circles, gocv.HoughGradient, 1, p.MinDist, p.Param1, p.Param2, p.MinRadius, p.MaxRadius)

	size := matSize(gray)
	found := make([]Circle, 0, circles.Cols())
	for i := 0; i < circles.Cols(); i++ {
		v := circles.GetVecfAt(0, i)
		c := Circle{
			Center: image.Pt(int(math.Round(float64(v[0]))), int(math.Round(float64(v[1])))),
			Radius: int(math.Round(float64(v[2]))),
		}
		if !insideMargin(c.Center, size, p.EdgeMargin) {
			continue
		}
		found = append(found, c)
	}
	return found
}

// FindBlobs labels the 8-connected components of mask and keeps the ones
// passing the area, aspect, fill and circularity filters.
func FindBlobs(mask gocv.Mat, p BlobParams) []Blob {
	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	n := gocv.ConnectedComponentsWithStats(mask, &labels, &stats, &centroids)

	size := matSize(mask)
	var blobs []Blob
	// label 0 is the background
	for i := 1; i < n; i++ {
		area := int(stats.GetIntAt(i, int(gocv.CC_STAT_AREA)))
		if area < p.MinArea || area > p.MaxArea {
			continue
		}

		left := int(stats.GetIntAt(i, int(gocv.CC_STAT_LEFT)))
		top := int(stats.GetIntAt(i, int(gocv.CC_STAT_TOP)))
		width := int(stats.GetIntAt(i, int(gocv.CC_STAT_WIDTH)))
		height := int(stats.GetIntAt(i, int(gocv.CC_STAT_HEIGHT)))

		aspect := float64(width) / float64(height)
		if p.MinAspect > 0 && aspect < p.MinAspect {
			continue
		}
		if p.MaxAspect > 0 && aspect > p.MaxAspect {
			continue
		}

		fill := float64(area) / float64(width*height)
		if fill < p.MinFill {
			continue
		}

		centroid := r2.Point{X: centroids.GetDoubleAt(i, 0), Y: centroids.GetDoubleAt(i, 1)}
		center := image.Pt(int(centroid.X), int(centroid.Y))
		if !insideMargin(center, size, p.EdgeMargin) {
			continue
		}

		bounds := image.Rect(left, top, left+width, top+height)
		circularity := 0.0
		if p.MinCircularity > 0 {
			circularity = Circularity(area, crackPerimeter(labels, int32(i), bounds))
			if circularity < p.MinCircularity {
				continue
			}
		}

		blobs = append(blobs, Blob{
			Centroid:    centroid,
			Area:        area,
			Bounds:      bounds,
			Radius:      math.Max(math.Sqrt(float64(area)/math.Pi), p.MinRadius),
			Fill:        fill,
			Circularity: circularity,
		})
	}
	return blobs
}

// Circularity is 4*pi*area / perimeter^2, clamped to [0, 1].
func Circularity(area, perimeter int) float64 {
	if perimeter == 0 {
		return 0
	}
	c := 4 * math.Pi * float64(area) / float64(perimeter*perimeter)
	return math.Min(c, 1)
}

// crackPerimeter counts the pixel edges separating component `label` from
// anything else. For a digital disc it over-estimates the true perimeter by
// about 4/pi, so round blobs score roughly 0.78.
func crackPerimeter(labels gocv.Mat, label int32, bounds image.Rectangle) int {
	rows, cols := labels.Rows(), labels.Cols()
	outside := func(x, y int) bool {
		return x < 0 || y < 0 || x >= cols || y >= rows || labels.GetIntAt(y, x) != label
	}

	perimeter := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if labels.GetIntAt(y, x) != label {
				continue
			}
			if outside(x-1, y) {
				perimeter++
			}
			if outside(x+1, y) {
				perimeter++
			}
			if outside(x, y-1) {
				perimeter++
			}
			if outside(x, y+1) {
				perimeter++
			}
		}
	}
	return perimeter
}
