package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/ivlev/sketchstory/internal/director"
)

const (
	TickPeriod     = 500 * time.Millisecond
	StaggerDelay   = 300 * time.Millisecond
	ClearThreshold = 10
)

// ErrEmptyTimeline is returned by Play when there is nothing to play
var ErrEmptyTimeline = errors.New("timeline has no scenes")

// Renderer receives shape draw requests from fired scenes
type Renderer interface {
	Draw(shape director.Shape)
	Clear()
	ObjectCount() int
}

// Phase is the playback state machine position
type Phase int

const (
	Stopped Phase = iota
	Playing
	Paused
)

func (p Phase) String() string {
	switch p {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "playing":
		*p = Playing
	case "paused":
		*p = Paused
	case "stopped":
		*p = Stopped
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// State is a snapshot of playback
type State struct {
	Phase      Phase   `json:"phase"`
	Clock      float64 `json:"clock"` // Seconds
	Progress   float64 `json:"progress"`
	Fired      []int   `json:"fired"`
	Scenes     int     `json:"scenes"`
	TimelineID string  `json:"timelineId,omitempty"`
}

// Engine plays a timeline against a renderer. It is not safe for concurrent
// use: every method must run on the scheduler's thread.
type Engine struct {
	sched    Scheduler
	renderer Renderer
	listener Listener
	logger   *slog.Logger

	timeline   *director.Timeline
	phase      Phase
	clock      time.Duration
	progress   float64
	fired      map[int]bool
	cancelTick Cancel
}

// Option configures an Engine
type Option func(*Engine)

// WithListener sets the event listener.
func WithListener(l Listener) Option {
	return func(e *Engine) { e.listener = l }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// New creates a stopped engine with no timeline.
func New(sched Scheduler, r Renderer, opts ...Option) *Engine {
	e := &Engine{
		sched:    sched,
		renderer: r,
		logger:   slog.Default(),
		fired:    make(map[int]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Load stops any playback and arms tl.
func (e *Engine) Load(tl *director.Timeline) {
	e.Stop()
	e.timeline = tl
	if tl != nil {
		e.logger.Debug("timeline loaded", "id", tl.ID, "scenes", len(tl.Scenes), "total", tl.TotalDuration)
	}
}

// Timeline returns the armed timeline, or nil.
func (e *Engine) Timeline() *director.Timeline {
	return e.timeline
}

// Play starts a fresh play-through from Stopped or resumes from Paused.
func (e *Engine) Play() error {
	if e.timeline == nil || len(e.timeline.Scenes) == 0 {
		e.emit(Event{Type: EventNotice, Notice: NoticeEmptyTimeline})
		return ErrEmptyTimeline
	}

	switch e.phase {
	case Playing:
		return nil
	case Stopped:
		e.reset()
	}

	e.setPhase(Playing)
	e.cancelTick = e.sched.Every(TickPeriod, e.tick)
	return nil
}

// Pause halts the tick source and keeps clock and fired scenes.
func (e *Engine) Pause() {
	if e.phase != Playing {
		return
	}
	e.stopTick()
	e.setPhase(Paused)
}

// Stop halts playback, rewinds to zero and clears the surface.
func (e *Engine) Stop() {
	e.stopTick()
	e.reset()
	e.setPhase(Stopped)
}

// State returns a snapshot of the playback state.
func (e *Engine) State() State {
	st := State{
		Phase:    e.phase,
		Clock:    e.clock.Seconds(),
		Progress: e.progress,
		Fired:    make([]int, 0, len(e.fired)),
	}
	for i := range e.fired {
		st.Fired = append(st.Fired, i)
	}
	sort.Ints(st.Fired)
	if e.timeline != nil {
		st.Scenes = len(e.timeline.Scenes)
		st.TimelineID = e.timeline.ID
	}
	return st
}

func (e *Engine) tick() {
	if e.phase != Playing || e.timeline == nil {
		return
	}

	e.clock += TickPeriod
	now := e.clock.Seconds()
	total := e.timeline.TotalDuration
	e.progress = math.Min(100, 100*now/total)
	e.emit(Event{Type: EventProgress, Progress: e.progress, Clock: now})

	// scenes shorter than a tick are caught up in order instead of skipped
	for i, s := range e.timeline.Scenes {
		if s.StartTime > now || s.StartTime >= total {
			break
		}
		if !e.fired[i] {
			e.fire(i, s)
		}
	}

	if now >= total {
		e.complete()
	}
}

func (e *Engine) fire(i int, s director.Scene) {
	e.fired[i] = true
	e.logger.Debug("scene fired", "scene", i, "clock", e.clock.Seconds(), "shapes", len(s.Shapes))

	if e.renderer.ObjectCount() > ClearThreshold {
		e.renderer.Clear()
	}

	for j, shape := range s.Shapes {
		e.sched.After(time.Duration(j)*StaggerDelay, func() {
			e.renderer.Draw(shape)
		})
	}
	e.emit(Event{Type: EventFire, Scene: i, Clock: e.clock.Seconds(), Text: s.DisplayText})
}

func (e *Engine) complete() {
	e.stopTick()
	e.progress = 100
	e.setPhase(Stopped)
	e.logger.Info("playback complete", "timeline", e.timeline.ID, "fired", len(e.fired))
	e.emit(Event{Type: EventComplete, Progress: 100, Clock: e.clock.Seconds()})
}

func (e *Engine) reset() {
	e.clock = 0
	e.progress = 0
	e.fired = make(map[int]bool)
	e.renderer.Clear()
}

func (e *Engine) stopTick() {
	if e.cancelTick != nil {
		e.cancelTick()
		e.cancelTick = nil
	}
}

func (e *Engine) setPhase(p Phase) {
	if e.phase == p {
		return
	}
	e.phase = p
	e.emit(Event{Type: EventPhase, Phase: p, Progress: e.progress, Clock: e.clock.Seconds()})
}

func (e *Engine) emit(ev Event) {
	if e.listener != nil {
		e.listener(ev)
	}
}
