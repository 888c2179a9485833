package director

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrInvalidTimeline is returned for timelines that could not have come out of Compile
var ErrInvalidTimeline = errors.New("invalid timeline")

// timeEpsilon absorbs float noise when checking scene boundaries
const timeEpsilon = 1e-6

// Timeline is the compiled, ordered scene sequence for one generated story
type Timeline struct {
	ID            string    `yaml:"id" json:"id"`
	Topic         string    `yaml:"topic,omitempty" json:"topic,omitempty"`
	Style         StyleID   `yaml:"style" json:"style"`
	TotalDuration float64   `yaml:"total_duration" json:"totalDuration"` // Seconds
	CreatedAt     time.Time `yaml:"created_at" json:"createdAt"`
	Scenes        []Scene   `yaml:"scenes" json:"scenes"`
}

// Scene is one timed unit of the timeline
type Scene struct {
	Index       int     `yaml:"index" json:"index"`
	StartTime   float64 `yaml:"start_time" json:"startTime"` // Offset in seconds
	Duration    float64 `yaml:"duration" json:"duration"`
	DisplayText string  `yaml:"text" json:"text"`
	Style       StyleID `yaml:"style" json:"style"`
	Shapes      []Shape `yaml:"shapes" json:"shapes"`
}

// Validate checks the invariants Compile guarantees: a positive finite total,
// at most MaxScenes contiguous scenes covering [0, total) and a bounded shape
// count per scene.
func (tl *Timeline) Validate() error {
	total := tl.TotalDuration
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidDuration, total)
	}
	if len(tl.Scenes) > MaxScenes {
		return fmt.Errorf("%w: %d scenes, at most %d", ErrInvalidTimeline, len(tl.Scenes), MaxScenes)
	}
	expect := 0.0
	for i, s := range tl.Scenes {
		switch {
		case s.Index != i:
			return fmt.Errorf("%w: scene %d has index %d", ErrInvalidTimeline, i, s.Index)
		case !(s.Duration > 0) || math.IsInf(s.Duration, 0):
			return fmt.Errorf("%w: scene %d has duration %v", ErrInvalidTimeline, i, s.Duration)
		case math.Abs(s.StartTime-expect) > timeEpsilon:
			return fmt.Errorf("%w: scene %d starts at %v, want %v", ErrInvalidTimeline, i, s.StartTime, expect)
		case len(s.Shapes) > maxEnhancedShapes:
			return fmt.Errorf("%w: scene %d has %d shapes, at most %d", ErrInvalidTimeline, i, len(s.Shapes), maxEnhancedShapes)
		}
		expect = s.End()
	}
	if len(tl.Scenes) > 0 && math.Abs(expect-total) > timeEpsilon {
		return fmt.Errorf("%w: scenes end at %v, total is %v", ErrInvalidTimeline, expect, total)
	}
	return nil
}

// End returns the scene's exclusive end time in seconds.
func (s Scene) End() float64 {
	return s.StartTime + s.Duration
}

// ShapeKind tags the variant held by a Shape
type ShapeKind string

const (
	KindText      ShapeKind = "text"
	KindRectangle ShapeKind = "rectangle"
	KindCircle    ShapeKind = "circle"
	KindLine      ShapeKind = "line"
	KindArrow     ShapeKind = "arrow"
)

// Shape is a renderer-agnostic drawable primitive.
// Which geometry fields are meaningful depends on Kind:
//
//	text:      X, Y, Content, FontSize, FontFamily, Stroke (text color)
//	rectangle: X, Y, Width, Height, Stroke, Fill, StrokeWidth
//	circle:    X, Y (top-left of the bounding box), Radius, Stroke, Fill, StrokeWidth
//	line:      X1, Y1, X2, Y2, Stroke, StrokeWidth
//	arrow:     X1, Y1, X2, Y2, Stroke, StrokeWidth
type Shape struct {
	Kind ShapeKind `yaml:"kind" json:"kind"`

	X      float64 `yaml:"x,omitempty" json:"x,omitempty"`
	Y      float64 `yaml:"y,omitempty" json:"y,omitempty"`
	Width  float64 `yaml:"width,omitempty" json:"width,omitempty"`
	Height float64 `yaml:"height,omitempty" json:"height,omitempty"`
	Radius float64 `yaml:"radius,omitempty" json:"radius,omitempty"`

	X1 float64 `yaml:"x1,omitempty" json:"x1,omitempty"`
	Y1 float64 `yaml:"y1,omitempty" json:"y1,omitempty"`
	X2 float64 `yaml:"x2,omitempty" json:"x2,omitempty"`
	Y2 float64 `yaml:"y2,omitempty" json:"y2,omitempty"`

	Content    string  `yaml:"content,omitempty" json:"content,omitempty"`
	FontSize   float64 `yaml:"font_size,omitempty" json:"fontSize,omitempty"`
	FontFamily string  `yaml:"font_family,omitempty" json:"fontFamily,omitempty"`

	Stroke      Color   `yaml:"stroke" json:"stroke"`
	Fill        *Color  `yaml:"fill,omitempty" json:"fill,omitempty"` // nil means transparent
	StrokeWidth float64 `yaml:"stroke_width,omitempty" json:"strokeWidth,omitempty"`
}

// Color is an RGB triple with a fractional alpha in [0,1]
type Color struct {
	R uint8   `yaml:"r" json:"r"`
	G uint8   `yaml:"g" json:"g"`
	B uint8   `yaml:"b" json:"b"`
	A float64 `yaml:"a" json:"a"`
}

// WithAlpha returns a copy of c with its alpha replaced.
func (c Color) WithAlpha(a float64) Color {
	c.A = a
	return c
}

// CSS renders the color as an rgba() string for web front ends.
func (c Color) CSS() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %g)", c.R, c.G, c.B, c.A)
}
