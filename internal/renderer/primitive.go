package renderer

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/ivlev/sketchstory/internal/director"
)

// ErrUnknownKind is returned when a shape tag has no primitive mapping
var ErrUnknownKind = errors.New("unknown shape kind")

const (
	arrowHeadLength = 10
	arrowHeadAngle  = math.Pi / 6
)

// PrimitiveKind is a surface-level drawable type
type PrimitiveKind string

const (
	PrimText   PrimitiveKind = "text"
	PrimRect   PrimitiveKind = "rect"
	PrimCircle PrimitiveKind = "circle"
	PrimLine   PrimitiveKind = "line"
	PrimPath   PrimitiveKind = "path"
)

type Point struct {
	X, Y float64
}

// Primitive is what a Surface stores and draws.
// Rect and circle use X, Y as the top-left corner of their bounds.
type Primitive struct {
	Kind PrimitiveKind

	X, Y          float64
	Width, Height float64
	Radius        float64

	// Line uses Paths[0] with two points; a path may hold several polylines.
	Paths [][]Point

	Text       string
	FontSize   float64
	FontFamily string

	Stroke      color.NRGBA
	Fill        *color.NRGBA
	StrokeWidth float64

	Opacity    float64
	Scale      float64
	Selectable bool
	Evented    bool
}

// Bounds returns the primitive's unscaled bounding box.
// Text bounds are estimated from the font size.
func (p Primitive) Bounds() (minX, minY, maxX, maxY float64) {
	switch p.Kind {
	case PrimRect:
		return p.X, p.Y, p.X + p.Width, p.Y + p.Height
	case PrimCircle:
		return p.X, p.Y, p.X + 2*p.Radius, p.Y + 2*p.Radius
	case PrimText:
		w := 0.6 * p.FontSize * float64(len([]rune(p.Text)))
		return p.X, p.Y, p.X + w, p.Y + 1.2*p.FontSize
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, path := range p.Paths {
		for _, pt := range path {
			minX, minY = math.Min(minX, pt.X), math.Min(minY, pt.Y)
			maxX, maxY = math.Max(maxX, pt.X), math.Max(maxY, pt.Y)
		}
	}
	if math.IsInf(minX, 1) {
		return 0, 0, 0, 0
	}
	return minX, minY, maxX, maxY
}

// Center is the pivot used for scaling.
func (p Primitive) Center() Point {
	minX, minY, maxX, maxY := p.Bounds()
	return Point{X: (minX + maxX) / 2, Y: (minY + maxY) / 2}
}

// ToNRGBA converts a style color to an image color.
func ToNRGBA(c director.Color) color.NRGBA {
	a := math.Max(0, math.Min(1, c.A))
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(math.Round(a * 255))}
}

// Translate converts a shape descriptor into a surface primitive after
// validating its geometry.
func Translate(s director.Shape) (Primitive, error) {
	if err := validate(s); err != nil {
		return Primitive{}, err
	}

	p := Primitive{
		Stroke:      ToNRGBA(s.Stroke),
		StrokeWidth: s.StrokeWidth,
		Opacity:     1,
		Scale:       1,
	}
	if s.Fill != nil {
		fill := ToNRGBA(*s.Fill)
		p.Fill = &fill
	}

	switch s.Kind {
	case director.KindText:
		p.Kind = PrimText
		p.X, p.Y = s.X, s.Y
		p.Text = s.Content
		p.FontSize = s.FontSize
		p.FontFamily = s.FontFamily
		// text is filled with its color, not stroked
		fill := p.Stroke
		p.Fill = &fill
	case director.KindRectangle:
		p.Kind = PrimRect
		p.X, p.Y = s.X, s.Y
		p.Width, p.Height = s.Width, s.Height
	case director.KindCircle:
		p.Kind = PrimCircle
		p.X, p.Y = s.X, s.Y
		p.Radius = s.Radius
	case director.KindLine:
		p.Kind = PrimLine
		p.Paths = [][]Point{{{s.X1, s.Y1}, {s.X2, s.Y2}}}
	case director.KindArrow:
		p.Kind = PrimPath
		p.Paths = arrowPaths(s.X1, s.Y1, s.X2, s.Y2)
	default:
		return Primitive{}, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}

	return p, nil
}

// arrowPaths is the shaft plus two head strokes meeting at the tip
func arrowPaths(x1, y1, x2, y2 float64) [][]Point {
	angle := math.Atan2(y2-y1, x2-x1)
	tip := Point{x2, y2}
	left := Point{
		X: x2 - arrowHeadLength*math.Cos(angle-arrowHeadAngle),
		Y: y2 - arrowHeadLength*math.Sin(angle-arrowHeadAngle),
	}
	right := Point{
		X: x2 - arrowHeadLength*math.Cos(angle+arrowHeadAngle),
		Y: y2 - arrowHeadLength*math.Sin(angle+arrowHeadAngle),
	}
	return [][]Point{
		{{x1, y1}, tip},
		{left, tip, right},
	}
}

func validate(s director.Shape) error {
	nums := []float64{s.X, s.Y, s.Width, s.Height, s.Radius, s.X1, s.Y1, s.X2, s.Y2, s.FontSize, s.StrokeWidth}
	for _, n := range nums {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return fmt.Errorf("non-finite geometry in %s shape", s.Kind)
		}
	}
	if s.Width < 0 || s.Height < 0 || s.Radius < 0 || s.StrokeWidth < 0 {
		return fmt.Errorf("negative size in %s shape", s.Kind)
	}
	if s.Kind == director.KindText && s.FontSize <= 0 {
		return fmt.Errorf("text shape needs a positive font size, got %v", s.FontSize)
	}
	return nil
}
