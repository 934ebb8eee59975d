package types

import (
	"fmt"
	"image"

	"github.com/golang/geo/r2"
)

// Category is the classification attached to a single detection
type Category string

const (
	TeamA        Category = "team-a"
	TeamB        Category = "team-b"
	SmallFeature Category = "small-feature"
	LargeFeature Category = "large-feature"
)

// SizeClass buckets small-feature detections by radius
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
)

// Radius at or below which a feature is considered small
const SmallRadiusLimit = 5

// ClassifySize returns the size class for a detection radius.
func ClassifySize(radius float64) SizeClass {
	if radius <= SmallRadiusLimit {
		return SizeSmall
	}
	return SizeMedium
}

// FeatureClass selects one of the detector pipelines.
type FeatureClass int

const (
	Marker FeatureClass = iota
	SmallFeatures
	LargeFeatures
)

func (c FeatureClass) String() string {
	switch c {
	case Marker:
		return "marker"
	case SmallFeatures:
		return "small-feature"
	case LargeFeatures:
		return "large-feature"
	default:
		return fmt.Sprintf("feature-class(%d)", int(c))
	}
}

// Detection is one classified finding in a single frame. Position is in
// region-local pixels. Radius is zero when the detector does not report one.
type Detection struct {
	Position   r2.Point
	Category   Category
	Radius     float64
	Size       SizeClass
	Frame      int
	Confidence int
	Zone       string
}

// Region is the minimap sub-window of a captured frame.
type Region struct {
	image.Rectangle
}

// NewRegion builds a Region from corner coordinates.
func NewRegion(x1, y1, x2, y2 int) Region {
	return Region{image.Rect(x1, y1, x2, y2)}
}

// Valid reports whether x2 > x1 and y2 > y1.
func (r Region) Valid() bool {
	return r.Max.X > r.Min.X && r.Max.Y > r.Min.Y
}

// Aspect returns width / height.
func (r Region) Aspect() float64 {
	if r.Dy() == 0 {
		return 0
	}
	return float64(r.Dx()) / float64(r.Dy())
}

func (r Region) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d) %dx%d", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y, r.Dx(), r.Dy())
}

// FrameDetections groups everything detected in one captured frame.
type FrameDetections struct {
	Index      int
	Markers    []Detection
	Small      []Detection
	Large      []Detection
	Dimensions image.Point
}
