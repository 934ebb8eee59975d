package imgproc

import (
	"github.com/golang/geo/r2"
	"gocv.io/x/gocv"

	"github.com/travisano/unite-heatmap/types"
)

// Detector is one feature-class pipeline run over a minimap crop
type Detector interface {
	Class() types.FeatureClass
	Detect(hsv, gray gocv.Mat, frame int) []types.Detection
}

// FeatureDetector finds small or large blob features from a color mask
type FeatureDetector struct {
	class    types.FeatureClass
	category types.Category
	cfg      FeatureConfig
}

func NewFeatureDetector(class types.FeatureClass, cfg FeatureConfig) *FeatureDetector {
	category := types.SmallFeature
	if class == types.LargeFeatures {
		category = types.LargeFeature
	}
	return &FeatureDetector{class: class, category: category, cfg: cfg}
}

func (d *FeatureDetector) Class() types.FeatureClass {
	return d.class
}

func (d *FeatureDetector) Detect(hsv, _ gocv.Mat, frame int) []types.Detection {
	mask := SegmentHSV(hsv, d.cfg.Segment)
	defer mask.Close()

	blobs := FindBlobs(mask, d.cfg.Blobs)
	found := make([]types.Detection, 0, len(blobs))
	for _, b := range blobs {
		found = append(found, types.Detection{
			Position:   b.Centroid,
			Category:   d.category,
			Radius:     b.Radius,
			Size:       types.ClassifySize(b.Radius),
			Frame:      frame,
			Confidence: b.Area,
		})
	}
	return found
}

// Analyzer runs every feature-class detector over a crop and sorts small and
// large features by objective zone.
type Analyzer struct {
	detectors []Detector
	zones     []Zone
}

// NewAnalyzer builds one detector per feature class from cfg.
func NewAnalyzer(cfg Config) *Analyzer {
	return &Analyzer{
		detectors: []Detector{
			NewClassifier(cfg.Markers),
			NewFeatureDetector(types.SmallFeatures, cfg.Feature(types.SmallFeatures)),
			NewFeatureDetector(types.LargeFeatures, cfg.Feature(types.LargeFeatures)),
		},
		zones: cfg.Zones,
	}
}

// Analyze is a pure function of the crop and may run concurrently for
// different frames.
func (a *Analyzer) Analyze(crop gocv.Mat, index int) types.FrameDetections {
	result := types.FrameDetections{Index: index, Dimensions: matSize(crop)}
	if crop.Empty() {
		return result
	}

	hsv := ToHSV(crop)
	defer hsv.Close()
	grey := ToGray(crop)
	defer grey.Close()

	for _, d := range a.detectors {
		found := d.Detect(hsv, grey, index)
		switch d.Class() {
		case types.Marker:
			result.Markers = append(result.Markers, found...)
		case types.SmallFeatures:
			for _, det := range found {
				if _, in := a.ZoneOf(det.Position, result.Dimensions.X, result.Dimensions.Y); in {
					continue
				}
				result.Small = append(result.Small, det)
			}
		case types.LargeFeatures:
			for _, det := range found {
				zone, in := a.ZoneOf(det.Position, result.Dimensions.X, result.Dimensions.Y)
				if !in && len(a.zones) > 0 {
					continue
				}
				det.Zone = zone
				result.Large = append(result.Large, det)
			}
		}
	}
	return result
}

// ZoneOf returns the first objective zone containing p in a crop of the given size.
func (a *Analyzer) ZoneOf(p r2.Point, width, height int) (string, bool) {
	if width == 0 || height == 0 {
		return "", false
	}
	fx, fy := p.X/float64(width), p.Y/float64(height)
	for _, z := range a.zones {
		if fx >= z.X1 && fx <= z.X2 && fy >= z.Y1 && fy <= z.Y2 {
			return z.Name, true
		}
	}
	return "", false
}
