package effects

import (
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Property is an animatable attribute of a drawn object
type Property string

const (
	Opacity Property = "opacity"
	ScaleX  Property = "scaleX"
	ScaleY  Property = "scaleY"
)

// Target is a single drawn object an effect can animate
type Target interface {
	Animate(prop Property, to float64, d time.Duration, fn ease.TweenFunc) error
}

// Initial is the property state an object is created with before its effect runs
type Initial struct {
	Opacity float64
	Scale   float64
}

type Effect interface {
	Initial() Initial
	Apply(t Target) error
}

// Entrance grows an object from a small scale while fading it in
type Entrance struct {
	Duration  time.Duration
	FromScale float64
	Easing    ease.TweenFunc
}

// DefaultEntrance overshoots slightly on the way in.
func DefaultEntrance() *Entrance {
	return &Entrance{
		Duration:  600 * time.Millisecond,
		FromScale: 0.1,
		Easing:    ease.OutBack,
	}
}

func (e *Entrance) Initial() Initial {
	return Initial{Opacity: 0, Scale: e.FromScale}
}

func (e *Entrance) Apply(t Target) error {
	for _, prop := range []Property{Opacity, ScaleX, ScaleY} {
		if err := t.Animate(prop, 1, e.Duration, e.Easing); err != nil {
			return err
		}
	}
	return nil
}

// Track is one property animation anchored at a start time
type Track struct {
	tween *gween.Tween
	start time.Duration
	to    float64
	dur   time.Duration
}

// NewTrack animates from -> to over d starting at start.
func NewTrack(from, to float64, start, d time.Duration, fn ease.TweenFunc) *Track {
	if fn == nil {
		fn = ease.Linear
	}
	return &Track{
		tween: gween.New(float32(from), float32(to), float32(d.Seconds()), fn),
		start: start,
		to:    to,
		dur:   d,
	}
}

// Value samples the track at an absolute time.
func (t *Track) Value(at time.Duration) float64 {
	elapsed := at - t.start
	if elapsed < 0 {
		elapsed = 0
	}
	if elapsed >= t.dur {
		return t.to
	}
	v, _ := t.tween.Set(float32(elapsed.Seconds()))
	return float64(v)
}

// Done reports whether the track has reached its target at time at.
func (t *Track) Done(at time.Duration) bool {
	return at-t.start >= t.dur
}
