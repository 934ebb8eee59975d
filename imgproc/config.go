package imgproc

import (
	"errors"
	"fmt"

	"github.com/travisano/unite-heatmap/types"
)

// ErrInvalidConfig wraps every detector configuration problem
var ErrInvalidConfig = errors.New("invalid detector config")

type MorphOp string

const (
	MorphOpen  MorphOp = "open"  // erode then dilate, drops speckle
	MorphClose MorphOp = "close" // dilate then erode, merges fragments
)

// Morph is one morphological cleanup step with a square kernel
type Morph struct {
	Op     MorphOp `yaml:"op"`
	Kernel int     `yaml:"kernel"`
}

type SegmentConfig struct {
	Ranges []HSVRange `yaml:"ranges"` // ORed
	Morph  []Morph    `yaml:"morph"`  // applied in order
	// PlayArea restricts the mask to a centred ellipse whose semi-axes are this
	// fraction of the crop size. Zero disables it.
	PlayArea float64 `yaml:"play_area"`
}

type CircleParams struct {
	MinRadius  int     `yaml:"min_radius"`
	MaxRadius  int     `yaml:"max_radius"`
	MinDist    float64 `yaml:"min_dist"`
	Param1     float64 `yaml:"param1"` // edge gradient threshold
	Param2     float64 `yaml:"param2"` // accumulator peak threshold
	EdgeMargin int     `yaml:"edge_margin"`
}

type BlobParams struct {
	MinArea        int     `yaml:"min_area"`
	MaxArea        int     `yaml:"max_area"`
	MinAspect      float64 `yaml:"min_aspect"` // 0 = unbounded
	MaxAspect      float64 `yaml:"max_aspect"` // 0 = unbounded
	MinFill        float64 `yaml:"min_fill"`
	MinCircularity float64 `yaml:"min_circularity"`
	EdgeMargin     int     `yaml:"edge_margin"`
	MinRadius      float64 `yaml:"min_radius"` // floor for the reported radius
}

type MarkerConfig struct {
	Circles       CircleParams `yaml:"circles"`
	Core          HSVRange     `yaml:"core"`
	CoreInset     int          `yaml:"core_inset"`
	MinCorePixels int          `yaml:"min_core_pixels"`
	TeamA         []HSVRange   `yaml:"team_a"`
	TeamB         []HSVRange   `yaml:"team_b"`
	RingThickness int          `yaml:"ring_thickness"`
	MinRingPixels int          `yaml:"min_ring_pixels"`
}

// FeatureConfig drives the generic blob pipeline for one feature class
type FeatureConfig struct {
	Segment SegmentConfig `yaml:"segment"`
	Blobs   BlobParams    `yaml:"blobs"`
}

type LocalizerConfig struct {
	SearchX         float64      `yaml:"search_x"` // fractional origin of the search area
	SearchY         float64      `yaml:"search_y"`
	Circles         CircleParams `yaml:"circles"`
	MinCircles      int          `yaml:"min_circles"`
	Window          int          `yaml:"window"`
	Stride          int          `yaml:"stride"`
	Padding         float64      `yaml:"padding"` // fraction of the larger side added on each edge
	TargetAspect    float64      `yaml:"target_aspect"`
	AspectTolerance float64      `yaml:"aspect_tolerance"`
	MinSize         int          `yaml:"min_size"`
	MaxSize         int          `yaml:"max_size"`
}

// Zone is a fractional rectangle of the minimap where large features live
type Zone struct {
	Name string  `yaml:"name"`
	X1   float64 `yaml:"x1"`
	Y1   float64 `yaml:"y1"`
	X2   float64 `yaml:"x2"`
	Y2   float64 `yaml:"y2"`
}

// Config holds every detector threshold. Treat it as immutable once validated.
type Config struct {
	Markers   MarkerConfig    `yaml:"markers"`
	Small     FeatureConfig   `yaml:"small_features"`
	Large     FeatureConfig   `yaml:"large_features"`
	Localizer LocalizerConfig `yaml:"localizer"`
	Zones     []Zone          `yaml:"zones"`
}

// Feature returns the blob configuration for a feature class.
func (c Config) Feature(class types.FeatureClass) FeatureConfig {
	if class == types.LargeFeatures {
		return c.Large
	}
	return c.Small
}

// DefaultConfig returns thresholds tuned for the Theia Sky Ruins minimap.
func DefaultConfig() Config {
	return Config{
		Markers: MarkerConfig{
			Circles: CircleParams{
				MinRadius: 8,
				MaxRadius: 14,
				MinDist:   15,
				Param1:    50,
				Param2:    15,
			},
			Core:          Range(0, 0, 210, 180, 35, 255),
			CoreInset:     2,
			MinCorePixels: 8,
			TeamA:         []HSVRange{Range(0, 70, 70, 30, 255, 255)},
			TeamB:         []HSVRange{Range(100, 30, 30, 160, 255, 255)},
			RingThickness: 2,
			MinRingPixels: 5,
		},
		Small: FeatureConfig{
			Segment: SegmentConfig{
				Ranges:   []HSVRange{Range(10, 20, 120, 45, 255, 255)},
				Morph:    []Morph{{Op: MorphOpen, Kernel: 2}},
				PlayArea: 0.45,
			},
			Blobs: BlobParams{
				MinArea:        3,
				MaxArea:        150,
				MinCircularity: 0.3,
				EdgeMargin:     3,
				MinRadius:      2,
			},
		},
		Large: FeatureConfig{
			Segment: SegmentConfig{
				Ranges:   []HSVRange{Range(18, 80, 140, 32, 255, 255)},
				Morph:    []Morph{{Op: MorphClose, Kernel: 3}},
				PlayArea: 0.45,
			},
			Blobs: BlobParams{
				MinArea:    80,
				MaxArea:    500,
				MinAspect:  0.5,
				MaxAspect:  2.0,
				MinFill:    0.3,
				EdgeMargin: 10,
			},
		},
		Localizer: LocalizerConfig{
			SearchX: 0.4,
			SearchY: 0.3,
			Circles: CircleParams{
				MinRadius: 5,
				MaxRadius: 18,
				MinDist:   8,
				Param1:    50,
				Param2:    12,
			},
			MinCircles:      5,
			Window:          180,
			Stride:          30,
			Padding:         0.25,
			TargetAspect:    1.0,
			AspectTolerance: 0.05,
			MinSize:         150,
			MaxSize:         450,
		},
		Zones: []Zone{
			{Name: "top", X1: 0.35, Y1: 0.05, X2: 0.65, Y2: 0.25},
			{Name: "center", X1: 0.35, Y1: 0.35, X2: 0.65, Y2: 0.65},
			{Name: "bottom", X1: 0.35, Y1: 0.75, X2: 0.65, Y2: 0.95},
		},
	}
}

// Validate reports every configuration error found, joined.
func (c Config) Validate() error {
	var errs []error
	add := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, section, err))
		}
	}

	add("markers.circles", c.Markers.Circles.validate())
	add("markers.core", c.Markers.Core.validate())
	if c.Markers.MinCorePixels <= 0 {
		add("markers", errors.New("min_core_pixels must be positive"))
	}
	if c.Markers.MinRingPixels <= 0 {
		add("markers", errors.New("min_ring_pixels must be positive"))
	}
	if c.Markers.RingThickness <= 0 {
		add("markers", errors.New("ring_thickness must be positive"))
	}
	if c.Markers.CoreInset < 0 || c.Markers.CoreInset >= c.Markers.Circles.MinRadius {
		add("markers", fmt.Errorf("core_inset %d must be within [0, min_radius)", c.Markers.CoreInset))
	}
	add("markers.team_a", validateRanges(c.Markers.TeamA))
	add("markers.team_b", validateRanges(c.Markers.TeamB))

	add("small_features", c.Small.validate())
	add("large_features", c.Large.validate())
	add("localizer", c.Localizer.validate())

	for _, z := range c.Zones {
		if z.Name == "" {
			add("zones", errors.New("zone without a name"))
		}
		if z.X1 < 0 || z.Y1 < 0 || z.X2 > 1 || z.Y2 > 1 || z.X1 >= z.X2 || z.Y1 >= z.Y2 {
			add("zones", fmt.Errorf("zone %q bounds must satisfy 0 <= x1 < x2 <= 1", z.Name))
		}
	}

	return errors.Join(errs...)
}

func validateRanges(ranges []HSVRange) error {
	if len(ranges) == 0 {
		return errors.New("at least one hsv range is required")
	}
	for _, r := range ranges {
		if err := r.validate(); err != nil {
			return err
		}
	}
	return nil
}

func (p CircleParams) validate() error {
	switch {
	case p.MinRadius <= 0:
		return errors.New("min_radius must be positive")
	case p.MaxRadius < p.MinRadius:
		return fmt.Errorf("max_radius %d < min_radius %d", p.MaxRadius, p.MinRadius)
	case p.MinDist <= 0:
		return errors.New("min_dist must be positive")
	case p.Param1 <= 0 || p.Param2 <= 0:
		return errors.New("param1 and param2 must be positive")
	case p.EdgeMargin < 0:
		return errors.New("edge_margin must not be negative")
	}
	return nil
}

func (f FeatureConfig) validate() error {
	if err := validateRanges(f.Segment.Ranges); err != nil {
		return err
	}
	for _, m := range f.Segment.Morph {
		if m.Op != MorphOpen && m.Op != MorphClose {
			return fmt.Errorf("unknown morph op %q", m.Op)
		}
		if m.Kernel <= 0 {
			return fmt.Errorf("morph kernel must be positive, got %d", m.Kernel)
		}
	}
	if f.Segment.PlayArea < 0 || f.Segment.PlayArea > 0.5 {
		return fmt.Errorf("play_area %.2f must be within [0, 0.5]", f.Segment.PlayArea)
	}

	b := f.Blobs
	switch {
	case b.MinArea <= 0 || b.MaxArea <= 0:
		return errors.New("blob areas must be positive")
	case b.MaxArea < b.MinArea:
		return fmt.Errorf("max_area %d < min_area %d", b.MaxArea, b.MinArea)
	case b.MinAspect < 0 || b.MaxAspect < 0:
		return errors.New("aspect bounds must not be negative")
	case b.MaxAspect > 0 && b.MaxAspect < b.MinAspect:
		return fmt.Errorf("max_aspect %.2f < min_aspect %.2f", b.MaxAspect, b.MinAspect)
	case b.MinFill < 0 || b.MinFill > 1:
		return errors.New("min_fill must be within [0, 1]")
	case b.MinCircularity < 0 || b.MinCircularity > 1:
		return errors.New("min_circularity must be within [0, 1]")
	case b.EdgeMargin < 0:
		return errors.New("edge_margin must not be negative")
	case b.MinRadius < 0:
		return errors.New("min_radius must not be negative")
	}
	return nil
}

func (l LocalizerConfig) validate() error {
	if err := l.Circles.validate(); err != nil {
		return err
	}
	switch {
	case l.SearchX < 0 || l.SearchX >= 1 || l.SearchY < 0 || l.SearchY >= 1:
		return errors.New("search origin must be within [0, 1)")
	case l.MinCircles <= 0:
		return errors.New("min_circles must be positive")
	case l.Window <= 0 || l.Stride <= 0:
		return errors.New("window and stride must be positive")
	case l.Padding < 0:
		return errors.New("padding must not be negative")
	case l.TargetAspect <= 0:
		return errors.New("target_aspect must be positive")
	case l.AspectTolerance <= 0:
		return errors.New("aspect_tolerance must be positive")
	case l.MinSize <= 0 || l.MaxSize < l.MinSize:
		return fmt.Errorf("size envelope [%d, %d] is invalid", l.MinSize, l.MaxSize)
	}
	return nil
}
