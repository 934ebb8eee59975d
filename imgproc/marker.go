package imgproc

import (
	"github.com/golang/geo/r2"
	"gocv.io/x/gocv"

	"github.com/travisano/unite-heatmap/types"
)

// MarkerMasks are the per-frame masks the classifier samples from
type MarkerMasks struct {
	Core  gocv.Mat
	TeamA gocv.Mat
	TeamB gocv.Mat
}

func (m MarkerMasks) Close() {
	m.Core.Close()
	m.TeamA.Close()
	m.TeamB.Close()
}

// Classifier verifies player marker candidates and assigns them a team
type Classifier struct {
	cfg MarkerConfig
}

func NewClassifier(cfg MarkerConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

func (c *Classifier) Class() types.FeatureClass {
	return types.Marker
}

// Masks builds the core and team masks for one HSV frame.
func (c *Classifier) Masks(hsv gocv.Mat) MarkerMasks {
	return MarkerMasks{
		Core:  InRange(hsv, []HSVRange{c.cfg.Core}),
		TeamA: InRange(hsv, c.cfg.TeamA),
		TeamB: InRange(hsv, c.cfg.TeamB),
	}
}

// Detect finds circle candidates in gray and keeps the ones that classify.
func (c *Classifier) Detect(hsv, gray gocv.Mat, frame int) []types.Detection {
	masks := c.Masks(hsv)
	defer masks.Close()

	var markers []types.Detection
	for _, circle := range FindCircles(gray, c.cfg.Circles) {
		d, ok := c.Classify(masks, circle)
		if !ok {
			continue
		}
		d.Frame = frame
		markers = append(markers, d)
	}
	return markers
}

// Classify checks the white core of a candidate, then compares team colored
// pixels on a thin ring at its boundary. Candidates with a weak core or too
// little ring color are rejected.
func (c *Classifier) Classify(m MarkerMasks, circle Circle) (types.Detection, bool) {
	size := matSize(m.Core)

	disc := gocv.Zeros(size.Y, size.X, gocv.MatTypeCV8U)
	defer disc.Close()
	inner := circle.Radius - c.cfg.CoreInset
	if inner < 1 {
		inner = 1
	}
	gocv.Circle(&disc, circle.Center, inner, white, -1)

	if countWithin(m.Core, disc) < c.cfg.MinCorePixels {
		return types.Detection{}, false
	}

	ring := gocv.Zeros(size.Y, size.X, gocv.MatTypeCV8U)
	defer ring.Close()
	gocv.Circle(&ring, circle.Center, circle.Radius, white, c.cfg.RingThickness)

	teamA := countWithin(m.TeamA, ring)
	teamB := countWithin(m.TeamB, ring)
	total := teamA + teamB
	if total < c.cfg.MinRingPixels {
		return types.Detection{}, false
	}

	category := types.TeamB
	if teamA > teamB {
		category = types.TeamA
	}

	return types.Detection{
		Position:   r2.Point{X: float64(circle.Center.X), Y: float64(circle.Center.Y)},
		Category:   category,
		Radius:     float64(circle.Radius),
		Size:       types.ClassifySize(float64(circle.Radius)),
		Confidence: total,
	}, true
}
