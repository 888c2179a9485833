package canvas

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"sync"
	"time"

	"github.com/skip2/go-qrcode"
	"github.com/tanema/gween/ease"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/ivlev/sketchstory/internal/effects"
	"github.com/ivlev/sketchstory/internal/renderer"
	"github.com/ivlev/sketchstory/internal/system"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 500

	qrSize   = 96
	qrMargin = 8
)

type object struct {
	id     renderer.ObjectID
	prim   renderer.Primitive
	tracks map[effects.Property]*effects.Track
}

// Canvas is an in-memory raster drawing surface. Animated properties are
// evaluated lazily against the canvas clock when a frame is rendered.
type Canvas struct {
	mu      sync.Mutex
	width   int
	height  int
	objects []*object
	nextID  renderer.ObjectID

	clock      func() time.Duration
	background color.Color
	stamp      string
	logger     *slog.Logger

	font  *opentype.Font
	faces map[float64]font.Face
}

type Option func(*Canvas)

// WithClock replaces the wall clock used to sample animations.
func WithClock(clock func() time.Duration) Option {
	return func(c *Canvas) { c.clock = clock }
}

// WithQRStamp adds a QR code encoding content to every exported image.
func WithQRStamp(content string) Option {
	return func(c *Canvas) { c.stamp = content }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Canvas) { c.logger = logger }
}

// New creates an empty canvas of the given size.
func New(width, height int, opts ...Option) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}

	start := time.Now()
	c := &Canvas{
		width:      width,
		height:     height,
		clock:      func() time.Duration { return time.Since(start) },
		background: color.White,
		logger:     slog.Default(),
		font:       f,
		faces:      make(map[float64]font.Face),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Canvas) Add(p renderer.Primitive) (renderer.ObjectID, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	c.objects = append(c.objects, &object{
		id:     c.nextID,
		prim:   p,
		tracks: make(map[effects.Property]*effects.Track),
	})
	return c.nextID, nil
}

func (c *Canvas) Animate(id renderer.ObjectID, prop effects.Property, to float64, d time.Duration, fn ease.TweenFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	obj := c.find(id)
	if obj == nil {
		return fmt.Errorf("object %d not on canvas", id)
	}
	switch prop {
	case effects.Opacity, effects.ScaleX, effects.ScaleY:
	default:
		return fmt.Errorf("property %q is not animatable", prop)
	}

	now := c.clock()
	from := obj.value(prop, now)
	obj.tracks[prop] = effects.NewTrack(from, to, now, d, fn)
	return nil
}

func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects = nil
}

func (c *Canvas) ObjectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.objects)
}

// ExportStillImage renders the current frame as PNG.
func (c *Canvas) ExportStillImage() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame := system.GetImage(image.Rect(0, 0, c.width, c.height))
	defer system.PutImage(frame)

	c.renderLocked(frame, c.clock())
	if c.stamp != "" {
		if err := c.drawStamp(frame); err != nil {
			c.logger.Warn("qr stamp skipped", "err", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Render draws the canvas as it looks at time at.
func (c *Canvas) Render(at time.Duration) *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	c.renderLocked(img, at)
	return img
}

func (c *Canvas) renderLocked(dst *image.RGBA, at time.Duration) {
	draw.Draw(dst, dst.Bounds(), image.NewUniform(c.background), image.Point{}, draw.Src)
	for _, obj := range c.objects {
		c.drawObject(dst, obj, at)
	}
}

func (c *Canvas) drawStamp(dst *image.RGBA) error {
	qr, err := qrcode.New(c.stamp, qrcode.Medium)
	if err != nil {
		return err
	}
	code := qr.Image(qrSize)
	b := dst.Bounds()
	at := image.Pt(b.Max.X-qrSize-qrMargin, b.Max.Y-qrSize-qrMargin)
	draw.Draw(dst, image.Rectangle{Min: at, Max: at.Add(image.Pt(qrSize, qrSize))}, code, image.Point{}, draw.Src)
	return nil
}

func (c *Canvas) find(id renderer.ObjectID) *object {
	for _, obj := range c.objects {
		if obj.id == id {
			return obj
		}
	}
	return nil
}

func (o *object) value(prop effects.Property, at time.Duration) float64 {
	if tr, ok := o.tracks[prop]; ok {
		return tr.Value(at)
	}
	if prop == effects.Opacity {
		return o.prim.Opacity
	}
	return o.prim.Scale
}

// ObjectState is the sampled appearance of one object
type ObjectState struct {
	ID      renderer.ObjectID      `json:"id"`
	Kind    renderer.PrimitiveKind `json:"kind"`
	Opacity float64                `json:"opacity"`
	ScaleX  float64                `json:"scaleX"`
	ScaleY  float64                `json:"scaleY"`
	Settled bool                   `json:"settled"`
}

// Snapshot samples every object at the current clock.
func (c *Canvas) Snapshot() []ObjectState {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock()
	out := make([]ObjectState, 0, len(c.objects))
	for _, obj := range c.objects {
		settled := true
		for _, tr := range obj.tracks {
			if !tr.Done(now) {
				settled = false
			}
		}
		out = append(out, ObjectState{
			ID:      obj.id,
			Kind:    obj.prim.Kind,
			Opacity: obj.value(effects.Opacity, now),
			ScaleX:  obj.value(effects.ScaleX, now),
			ScaleY:  obj.value(effects.ScaleY, now),
			Settled: settled,
		})
	}
	return out
}
