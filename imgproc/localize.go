package imgproc

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/travisano/unite-heatmap/types"
)

// Localizer finds the minimap inside a full screen capture from the cluster
// of player icons drawn on it
type Localizer struct {
	cfg LocalizerConfig
}

func NewLocalizer(cfg LocalizerConfig) *Localizer {
	return &Localizer{cfg: cfg}
}

// Locate returns the minimap region of frame in frame coordinates, or false
// when no convincing cluster of icons was found.
func (l *Localizer) Locate(frame gocv.Mat) (types.Region, bool) {
	if frame.Empty() {
		return types.Region{}, false
	}

	search := SearchArea(frame, l.cfg.SearchX, l.cfg.SearchY)
	area := frame.Region(search)
	defer area.Close()

	grey := ToGray(area)
	defer grey.Close()

	rect, ok := l.LocateCircles(FindCircles(grey, l.cfg.Circles), search.Size())
	if !ok {
		return types.Region{}, false
	}
	return types.Region{Rectangle: rect.Add(search.Min)}, true
}

// LocateCircles derives the minimap rectangle from circle candidates found in
// a search area of the given size. Coordinates are relative to the search area.
func (l *Localizer) LocateCircles(circles []Circle, size image.Point) (image.Rectangle, bool) {
	if len(circles) < l.cfg.MinCircles {
		return image.Rectangle{}, false
	}

	window, count := l.densestWindow(circles, size)
	if count < l.cfg.MinCircles {
		return image.Rectangle{}, false
	}

	var bounds image.Rectangle
	for _, c := range circles {
		if !c.Center.In(window) {
			continue
		}
		extent := image.Rect(c.Center.X-c.Radius, c.Center.Y-c.Radius, c.Center.X+c.Radius, c.Center.Y+c.Radius)
		bounds = bounds.Union(extent)
	}

	rect := padAround(bounds, l.cfg.Padding, l.cfg.TargetAspect).Intersect(image.Rectangle{Max: size})
	rect = forceAspect(rect, l.cfg.TargetAspect)

	w, h := rect.Dx(), rect.Dy()
	if w < l.cfg.MinSize || h < l.cfg.MinSize || w > l.cfg.MaxSize || h > l.cfg.MaxSize {
		return image.Rectangle{}, false
	}
	if math.Abs(float64(w)/float64(h)-l.cfg.TargetAspect) > l.cfg.AspectTolerance {
		return image.Rectangle{}, false
	}
	return rect, true
}

// densestWindow scans window origins at a fixed stride and returns the window
// enclosing the most circle centres. The first window found wins ties.
func (l *Localizer) densestWindow(circles []Circle, size image.Point) (image.Rectangle, int) {
	var best image.Rectangle
	bestCount := 0

	for y := 0; y < max(1, size.Y-l.cfg.Window); y += l.cfg.Stride {
		for x := 0; x < max(1, size.X-l.cfg.Window); x += l.cfg.Stride {
			window := image.Rect(x, y, x+l.cfg.Window, y+l.cfg.Window)
			count := 0
			for _, c := range circles {
				if c.Center.In(window) {
					count++
				}
			}
			if count > bestCount {
				best, bestCount = window, count
			}
		}
	}
	return best, bestCount
}

// padAround returns a rectangle of the target aspect centred on bounds whose
// larger side is the larger side of bounds plus padding on both edges.
func padAround(bounds image.Rectangle, padding, aspect float64) image.Rectangle {
	side := float64(max(bounds.Dx(), bounds.Dy())) * (1 + 2*padding)
	w, h := side, side
	if aspect >= 1 {
		h = side / aspect
	} else {
		w = side * aspect
	}
	cx := float64(bounds.Min.X+bounds.Max.X) / 2
	cy := float64(bounds.Min.Y+bounds.Max.Y) / 2
	return image.Rect(int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2))
}

// forceAspect shrinks the larger dimension of rect symmetrically around its
// centre until width / height matches aspect.
func forceAspect(rect image.Rectangle, aspect float64) image.Rectangle {
	w, h := rect.Dx(), rect.Dy()
	if w <= 0 || h <= 0 {
		return rect
	}

	if float64(w)/float64(h) > aspect {
		target := int(math.Round(float64(h) * aspect))
		rect.Min.X += (w - target) / 2
		rect.Max.X = rect.Min.X + target
	} else {
		target := int(math.Round(float64(w) / aspect))
		rect.Min.Y += (h - target) / 2
		rect.Max.Y = rect.Min.Y + target
	}
	return rect
}
