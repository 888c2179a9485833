// Package studio ties script generation, scene compilation and playback into
// one workflow shared by the CLI and the HTTP server.
package studio

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ivlev/sketchstory/internal/director"
	"github.com/ivlev/sketchstory/internal/engine"
	"github.com/ivlev/sketchstory/internal/i18n"
	"github.com/ivlev/sketchstory/internal/provider"
	"github.com/ivlev/sketchstory/internal/settings"
)

// Runner executes fn on the engine's thread and waits for it
type Runner interface {
	Do(fn func())
}

// RunnerFunc adapts a function to Runner
type RunnerFunc func(fn func())

func (f RunnerFunc) Do(fn func()) { f(fn) }

// Inline runs closures on the calling goroutine. Only for single-threaded use.
var Inline = RunnerFunc(func(fn func()) { fn() })

// Exporter renders the current drawing as PNG
type Exporter interface {
	Export() ([]byte, error)
}

// Request describes one generation
type Request struct {
	Topic    string           `json:"topic"`
	Duration float64          `json:"duration"`
	Voice    string           `json:"voice"`
	Style    director.StyleID `json:"style"`
	Enhance  bool             `json:"enhance"`
	Autoplay bool             `json:"autoplay"`
	Provider string           `json:"provider,omitempty"`
	Script   string           `json:"script,omitempty"`
}

// Result is what a generation produced
type Result struct {
	Timeline   *director.Timeline `json:"timeline"`
	Script     string             `json:"script"`
	Paragraphs []string           `json:"paragraphs"`
	Provider   string             `json:"provider"`
	Fallback   bool               `json:"fallback"`
}

// Studio owns one engine and the generation pipeline feeding it
type Studio struct {
	runner   Runner
	engine   *engine.Engine
	exporter Exporter
	director *director.Director
	store    settings.Store
	base     provider.Options
	logger   *slog.Logger

	onStatus     func(provider.Status)
	newGenerator func(name string, opts provider.Options) provider.Generator

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

type Option func(*Studio)

// WithProviderOptions sets the base options every generator is built from.
func WithProviderOptions(opts provider.Options) Option {
	return func(s *Studio) { s.base = opts }
}

// WithStatusListener receives retry and fallback reports.
func WithStatusListener(fn func(provider.Status)) Option {
	return func(s *Studio) { s.onStatus = fn }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Studio) { s.logger = logger }
}

// WithDirector replaces the scene compiler, e.g. to fix the seed.
func WithDirector(d *director.Director) Option {
	return func(s *Studio) { s.director = d }
}

// WithGeneratorFactory replaces provider.New.
func WithGeneratorFactory(fn func(name string, opts provider.Options) provider.Generator) Option {
	return func(s *Studio) { s.newGenerator = fn }
}

// New creates a studio. eng must only be touched through runner.
func New(runner Runner, eng *engine.Engine, exporter Exporter, store settings.Store, opts ...Option) *Studio {
	s := &Studio{
		runner:       runner,
		engine:       eng,
		exporter:     exporter,
		store:        store,
		director:     director.NewDirector(time.Now().UnixNano()),
		logger:       slog.Default(),
		newGenerator: provider.New,
		limiters:     make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings loads the current settings.
func (s *Studio) Settings(ctx context.Context) (settings.Settings, error) {
	return settings.Load(ctx, s.store)
}

// SaveSettings stores v.
func (s *Studio) SaveSettings(ctx context.Context, v settings.Settings) error {
	return settings.Save(ctx, s.store, v)
}

// ProviderOptions returns the base provider options merged with v.
func (s *Studio) ProviderOptions(v settings.Settings) provider.Options {
	return v.ProviderOptions(s.base)
}

// Generate produces a script, compiles it and arms the engine with the
// resulting timeline. Provider failures leave the armed timeline untouched.
func (s *Studio) Generate(ctx context.Context, req Request) (*Result, error) {
	if req.Duration <= 0 || math.IsNaN(req.Duration) || math.IsInf(req.Duration, 0) {
		return nil, fmt.Errorf("%w: got %v", director.ErrInvalidDuration, req.Duration)
	}
	cfg, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	name := req.Provider
	if name == "" {
		name = cfg.Provider
	}

	res := &Result{Provider: name, Script: req.Script}
	if strings.TrimSpace(req.Script) == "" {
		opts := cfg.ProviderOptions(s.base)
		opts.Limiter = s.limiter(name, opts)
		opts.Status = func(st provider.Status) {
			if st.Event == provider.StatusFallback {
				res.Fallback = true
			}
			if s.onStatus != nil {
				s.onStatus(st)
			}
		}
		gen := s.newGenerator(name, opts)
		res.Provider = gen.Name()

		s.logger.Info("generating script", "topic", req.Topic, "provider", gen.Name(), "duration", req.Duration)
		res.Script, err = gen.Generate(ctx, provider.Request{
			Topic:           req.Topic,
			DurationSeconds: int(math.Round(req.Duration)),
			VoiceStyle:      req.Voice,
			Locale:          i18n.Normalize(cfg.Language),
		})
		if err != nil {
			return nil, fmt.Errorf("generate script: %w", err)
		}
		if res.Fallback {
			res.Provider = provider.NameDemo
		}
	}

	tl, err := s.director.Compile(res.Script, req.Style, req.Duration)
	if err != nil {
		return nil, err
	}
	if req.Enhance {
		tl = s.director.Enhance(tl)
	}
	tl.Topic = req.Topic
	res.Timeline = tl
	res.Paragraphs = director.ScriptParagraphs(res.Script)

	var playErr error
	s.runner.Do(func() {
		s.engine.Load(tl)
		if req.Autoplay {
			playErr = s.engine.Play()
		}
	})
	s.logger.Info("timeline ready", "id", tl.ID, "scenes", len(tl.Scenes), "style", tl.Style)
	if playErr != nil {
		return res, playErr
	}
	return res, nil
}

// limiter returns the request limiter shared by every generation against name.
func (s *Studio) limiter(name string, opts provider.Options) *rate.Limiter {
	name = strings.ToLower(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[name]
	if !ok {
		l = provider.NewLimiter(opts.RequestsPerMin, opts.MaxRetries)
		s.limiters[name] = l
	}
	return l
}

// Load arms the engine with an existing timeline.
func (s *Studio) Load(tl *director.Timeline) {
	s.runner.Do(func() { s.engine.Load(tl) })
}

func (s *Studio) Play() error {
	var err error
	s.runner.Do(func() { err = s.engine.Play() })
	return err
}

func (s *Studio) Pause() {
	s.runner.Do(s.engine.Pause)
}

func (s *Studio) Stop() {
	s.runner.Do(s.engine.Stop)
}

func (s *Studio) State() engine.State {
	var st engine.State
	s.runner.Do(func() { st = s.engine.State() })
	return st
}

// Timeline returns the armed timeline, or nil.
func (s *Studio) Timeline() *director.Timeline {
	var tl *director.Timeline
	s.runner.Do(func() { tl = s.engine.Timeline() })
	return tl
}

// Export renders the current drawing. Before any generation it refuses with
// engine.ErrEmptyTimeline.
func (s *Studio) Export() ([]byte, error) {
	var (
		data []byte
		err  error
	)
	s.runner.Do(func() {
		tl := s.engine.Timeline()
		if tl == nil || len(tl.Scenes) == 0 {
			err = engine.ErrEmptyTimeline
			return
		}
		data, err = s.exporter.Export()
	})
	return data, err
}
