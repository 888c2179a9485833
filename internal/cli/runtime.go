package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ivlev/sketchstory/internal/canvas"
	"github.com/ivlev/sketchstory/internal/config"
	"github.com/ivlev/sketchstory/internal/engine"
	"github.com/ivlev/sketchstory/internal/provider"
	"github.com/ivlev/sketchstory/internal/renderer"
	"github.com/ivlev/sketchstory/internal/settings"
	"github.com/ivlev/sketchstory/internal/studio"
)

// runtime is one fully wired studio
type runtime struct {
	settings settings.Settings
	store    settings.Store
	canvas   *canvas.Canvas
	studio   *studio.Studio

	manual *engine.ManualScheduler
	loop   *engine.Loop
	closer []func()
}

type runtimeOptions struct {
	realtime bool
	listener func(locale string) engine.Listener
	status   func(locale string) func(provider.Status)
}

func (r *runtime) Close() {
	for i := len(r.closer) - 1; i >= 0; i-- {
		r.closer[i]()
	}
}

func (r *runtime) locale() string {
	return r.settings.Language
}

// advance moves the offline clock; it is a no-op in realtime mode.
func (r *runtime) advance(d time.Duration) {
	if r.manual != nil {
		r.manual.Advance(d)
	}
}

func openStore(c *config.Config) (settings.Store, func(), error) {
	var (
		store settings.Store
		closer = func() {}
	)
	switch c.SettingsBackend {
	case config.BackendMemory:
		store = settings.NewMemoryStore()
	case config.BackendValkey:
		vs, err := settings.NewValkeyStore(c.ValkeyAddr)
		if err != nil {
			return nil, nil, err
		}
		store, closer = vs, vs.Close
	default:
		store = settings.NewFileStore(c.SettingsPath)
	}
	seed := settings.Defaults().Merge(settings.Settings{
		Provider:  c.Provider,
		OpenAIKey: c.OpenAIKey,
		GeminiKey: c.GeminiKey,
		GrokKey:   c.GrokKey,
		Language:  c.Language,
	})
	return settings.NewLayered(store, seed), closer, nil
}

func providerOptions(c *config.Config) provider.Options {
	return provider.Options{
		RequestsPerMin: c.RateLimitPerMin,
		RequestTimeout: c.RequestTimeout,
		MaxRetries:     c.MaxRetries,
		Backoff:        c.RetryBackoff,
		Logger:         slog.Default(),
	}
}

func newRuntime(ctx context.Context, c *config.Config, opts runtimeOptions) (*runtime, error) {
	store, closeStore, err := openStore(c)
	if err != nil {
		return nil, err
	}
	rt := &runtime{store: store, closer: []func(){closeStore}}

	rt.settings, err = settings.Load(ctx, store)
	if err != nil {
		rt.Close()
		return nil, err
	}

	var (
		sched      engine.Scheduler
		runner     studio.Runner
		canvasOpts = []canvas.Option{canvas.WithLogger(slog.Default())}
	)
	if opts.realtime {
		rt.loop = engine.NewLoop()
		rt.closer = append(rt.closer, rt.loop.Close)
		sched, runner = rt.loop, rt.loop
	} else {
		rt.manual = engine.NewManualScheduler()
		sched, runner = rt.manual, studio.Inline
		canvasOpts = append(canvasOpts, canvas.WithClock(rt.manual.Now))
	}
	if c.QRStamp != "" {
		canvasOpts = append(canvasOpts, canvas.WithQRStamp(c.QRStamp))
	}

	rt.canvas, err = canvas.New(c.Width, c.Height, canvasOpts...)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("canvas: %w", err)
	}
	adapter := renderer.NewAdapter(rt.canvas, nil, slog.Default())

	engineOpts := []engine.Option{engine.WithLogger(slog.Default())}
	if opts.listener != nil {
		engineOpts = append(engineOpts, engine.WithListener(opts.listener(rt.locale())))
	}
	eng := engine.New(sched, adapter, engineOpts...)

	studioOpts := []studio.Option{
		studio.WithProviderOptions(providerOptions(c)),
		studio.WithLogger(slog.Default()),
	}
	if opts.status != nil {
		studioOpts = append(studioOpts, studio.WithStatusListener(opts.status(rt.locale())))
	}
	rt.studio = studio.New(runner, eng, adapter, store, studioOpts...)
	return rt, nil
}
