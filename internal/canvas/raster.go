package canvas

import (
	"image"
	"image/color"
	"math"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/ivlev/sketchstory/internal/effects"
	"github.com/ivlev/sketchstory/internal/renderer"
)

const circleSegments = 64

func (c *Canvas) drawObject(dst *image.RGBA, obj *object, at time.Duration) {
	opacity := clamp01(obj.value(effects.Opacity, at))
	if opacity <= 0 {
		return
	}
	sx := obj.value(effects.ScaleX, at)
	sy := obj.value(effects.ScaleY, at)
	p := obj.prim
	pivot := p.Center()

	tf := func(pt renderer.Point) renderer.Point {
		return renderer.Point{X: pivot.X + (pt.X-pivot.X)*sx, Y: pivot.Y + (pt.Y-pivot.Y)*sy}
	}
	strokeWidth := p.StrokeWidth * (math.Abs(sx) + math.Abs(sy)) / 2
	stroke := fade(p.Stroke, opacity)

	switch p.Kind {
	case renderer.PrimRect:
		outline := transform(rectPoints(p.X, p.Y, p.Width, p.Height), tf)
		if p.Fill != nil {
			fillPolygon(dst, outline, fade(*p.Fill, opacity))
		}
		strokeClosed(dst, outline, strokeWidth, stroke)
	case renderer.PrimCircle:
		outline := transform(circlePoints(p.X+p.Radius, p.Y+p.Radius, p.Radius), tf)
		if p.Fill != nil {
			fillPolygon(dst, outline, fade(*p.Fill, opacity))
		}
		strokeClosed(dst, outline, strokeWidth, stroke)
	case renderer.PrimLine, renderer.PrimPath:
		for _, path := range p.Paths {
			pts := transform(path, tf)
			for i := 1; i < len(pts); i++ {
				strokeSegment(dst, pts[i-1], pts[i], strokeWidth, stroke)
			}
		}
	case renderer.PrimText:
		col := stroke
		if p.Fill != nil {
			col = fade(*p.Fill, opacity)
		}
		origin := tf(renderer.Point{X: p.X, Y: p.Y})
		c.drawText(dst, p.Text, origin, p.FontSize*(math.Abs(sx)+math.Abs(sy))/2, col)
	default:
		c.logger.Warn("unsupported primitive", "kind", p.Kind)
	}
}

func (c *Canvas) drawText(dst *image.RGBA, text string, origin renderer.Point, size float64, col color.NRGBA) {
	if size < 1 || text == "" {
		return
	}
	face, err := c.face(size)
	if err != nil {
		c.logger.Warn("font face unavailable", "size", size, "err", err)
		return
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.Int26_6(origin.X * 64),
			Y: fixed.Int26_6(origin.Y*64) + face.Metrics().Ascent,
		},
	}
	d.DrawString(text)
}

func (c *Canvas) face(size float64) (font.Face, error) {
	key := math.Round(size*2) / 2
	if f, ok := c.faces[key]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    key,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, err
	}
	c.faces[key] = f
	return f, nil
}

func fillPolygon(dst *image.RGBA, pts []renderer.Point, col color.NRGBA) {
	if len(pts) < 3 || col.A == 0 {
		return
	}
	b := dst.Bounds()
	r := vector.NewRasterizer(b.Dx(), b.Dy())
	r.MoveTo(float32(pts[0].X), float32(pts[0].Y))
	for _, pt := range pts[1:] {
		r.LineTo(float32(pt.X), float32(pt.Y))
	}
	r.ClosePath()
	r.Draw(dst, b, image.NewUniform(col), image.Point{})
}

func strokeClosed(dst *image.RGBA, pts []renderer.Point, width float64, col color.NRGBA) {
	for i := range pts {
		strokeSegment(dst, pts[i], pts[(i+1)%len(pts)], width, col)
	}
}

// strokeSegment fills the quad around a-b; each segment is its own pass so
// opposite windings never cancel.
func strokeSegment(dst *image.RGBA, a, b renderer.Point, width float64, col color.NRGBA) {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 || width <= 0 || col.A == 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	fillPolygon(dst, []renderer.Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}, col)
}

func rectPoints(x, y, w, h float64) []renderer.Point {
	return []renderer.Point{{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}}
}

func circlePoints(cx, cy, radius float64) []renderer.Point {
	pts := make([]renderer.Point, circleSegments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / circleSegments
		pts[i] = renderer.Point{X: cx + radius*math.Cos(a), Y: cy + radius*math.Sin(a)}
	}
	return pts
}

func transform(pts []renderer.Point, tf func(renderer.Point) renderer.Point) []renderer.Point {
	out := make([]renderer.Point, len(pts))
	for i, pt := range pts {
		out[i] = tf(pt)
	}
	return out
}

func fade(c color.NRGBA, opacity float64) color.NRGBA {
	c.A = uint8(math.Round(float64(c.A) * opacity))
	return c
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
