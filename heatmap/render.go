package heatmap

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/golang/geo/r2"
	"gocv.io/x/gocv"

	"github.com/travisano/unite-heatmap/types"
	"github.com/travisano/unite-heatmap/utils"
)

// Style controls how density turns into opacity.
// alpha = min((Floor + (1-Floor)*h) * Gain, MaxAlpha) for every cell with h > 0.
type Style struct {
	Floor    float64 `yaml:"floor"`
	Gain     float64 `yaml:"gain"`
	MaxAlpha float64 `yaml:"max_alpha"`
	Kernel   int     `yaml:"kernel"`
	// Entities closer than Border pixels to the map edge are not drawn
	Border int `yaml:"border"`
}

func DefaultStyle() Style {
	return Style{Floor: 0.01, Gain: 0.6, MaxAlpha: 0.8, Kernel: 25, Border: 10}
}

func (s Style) Validate() error {
	var errs []error
	if s.Floor < 0 || s.Floor >= 1 {
		errs = append(errs, fmt.Errorf("floor %v must be in [0, 1)", s.Floor))
	}
	if s.Gain <= 0 {
		errs = append(errs, fmt.Errorf("gain %v must be positive", s.Gain))
	}
	if s.MaxAlpha <= 0 || s.MaxAlpha > 1 {
		errs = append(errs, fmt.Errorf("max alpha %v must be in (0, 1]", s.MaxAlpha))
	}
	if s.Kernel <= 0 || s.Kernel%2 == 0 {
		errs = append(errs, fmt.Errorf("kernel %d must be odd and positive", s.Kernel))
	}
	if s.Border < 0 {
		errs = append(errs, fmt.Errorf("border %d must not be negative", s.Border))
	}
	return errors.Join(errs...)
}

// Alpha maps a normalized density to an opacity
func (s Style) Alpha(h float32) float64 {
	if h <= 0 {
		return 0
	}
	return math.Min((s.Floor+(1-s.Floor)*float64(h))*s.Gain, s.MaxAlpha)
}

// Layer is one position stream painted in one color.
type Layer struct {
	Name      string
	Color     color.RGBA
	Positions []r2.Point
}

// Entity is a persistent cluster drawn as a glyph with its uptime label.
type Entity struct {
	Position r2.Point
	Uptime   int
	Class    types.FeatureClass
}

// Glyph describes how one feature class is drawn.
type Glyph struct {
	Dot         int
	Color       color.RGBA
	LabelColor  color.RGBA
	LabelOffset image.Point
	FontScale   float64
}

var (
	yellow = color.RGBA{255, 255, 0, 255}
	green  = color.RGBA{0, 255, 0, 255}
)

// DefaultGlyphs draws both classes as a yellow dot; camp labels are green and
// landmark labels yellow.
func DefaultGlyphs() map[types.FeatureClass]Glyph {
	return map[types.FeatureClass]Glyph{
		types.SmallFeatures: {Dot: 3, Color: yellow, LabelColor: green, LabelOffset: image.Pt(8, 4), FontScale: 0.4},
		types.LargeFeatures: {Dot: 3, Color: yellow, LabelColor: yellow, LabelOffset: image.Pt(8, 4), FontScale: 0.4},
	}
}

type Renderer struct {
	style  Style
	glyphs map[types.FeatureClass]Glyph
}

func NewRenderer(style Style) *Renderer {
	return &Renderer{style: style, glyphs: DefaultGlyphs()}
}

// Render composites every layer onto a copy of base and draws the entities.
// Positions are in capture coordinates and are scaled from a capture of the
// given size to the size of base. With no positions and no entities the
// result is pixel identical to base.
func (r *Renderer) Render(base gocv.Mat, capture image.Point, layers []Layer, entities []Entity) (gocv.Mat, error) {
	if base.Empty() || base.Channels() != 3 {
		return gocv.NewMat(), errors.New("reference map must be a 3 channel image")
	}
	width, height := base.Cols(), base.Rows()
	scale := Scale(capture, image.Pt(width, height))

	src := base
	if !base.IsContinuous() {
		src = base.Clone()
		defer src.Close()
	}
	pixels := src.ToBytes()

	for _, layer := range layers {
		if err := r.paint(pixels, width, height, scale, layer); err != nil {
			return gocv.NewMat(), fmt.Errorf("painting %s: %w", layer.Name, err)
		}
	}

	out, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, pixels)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("building output image: %w", err)
	}
	// NewMatFromBytes shares the slice, detach the result from it
	defer out.Close()
	result := out.Clone()

	for _, e := range entities {
		r.drawEntity(&result, scale, e)
	}
	return result, nil
}

func (r *Renderer) paint(pixels []byte, width, height int, scale r2.Point, layer Layer) error {
	if len(layer.Positions) == 0 {
		return nil
	}

	grid := NewGrid(width, height)
	defer grid.Close()
	for _, p := range layer.Positions {
		grid.Add(p, scale)
	}

	density, err := grid.Density(r.style.Kernel)
	if err != nil {
		return err
	}

	// pixels are BGR
	tint := [3]float64{float64(layer.Color.B), float64(layer.Color.G), float64(layer.Color.R)}
	for i, h := range density {
		alpha := r.style.Alpha(h)
		if alpha == 0 {
			continue
		}
		px := pixels[i*3 : i*3+3]
		for c := range px {
			px[c] = uint8(float64(px[c])*(1-alpha) + tint[c]*alpha)
		}
	}
	return nil
}

func (r *Renderer) drawEntity(img *gocv.Mat, scale r2.Point, e Entity) {
	glyph, ok := r.glyphs[e.Class]
	if !ok {
		return
	}

	at := image.Pt(int(e.Position.X*scale.X), int(e.Position.Y*scale.Y))
	b := r.style.Border
	if at.X < b || at.Y < b || at.X >= img.Cols()-b || at.Y >= img.Rows()-b {
		return
	}

	if glyph.Dot > 0 {
		gocv.Circle(img, at, glyph.Dot, glyph.Color, -1)
	}
	gocv.PutTextWithParams(img, utils.FormatUptime(e.Uptime), at.Add(glyph.LabelOffset),
		gocv.FontHersheySimplex, glyph.FontScale, glyph.LabelColor, 1, gocv.LineAA, false)
}
