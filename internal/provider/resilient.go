package provider

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultMaxRetries = 2
	DefaultBackoff    = 2 * time.Second
)

// StatusEvent describes what the resilient wrapper is doing
type StatusEvent string

const (
	StatusRetrying StatusEvent = "retrying"
	StatusFallback StatusEvent = "fallback"
)

// Status is reported while a generation retries or falls back
type Status struct {
	Event    StatusEvent
	Provider string
	Reason   Kind
	Attempt  int
	Wait     time.Duration
}

type StatusFunc func(Status)

// Resilient retries overloaded remotes and substitutes the fallback
// generator when the remote stays overloaded or is unreachable.
type Resilient struct {
	remote     Generator
	fallback   Generator
	maxRetries int
	backoff    time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	status     StatusFunc
	logger     *slog.Logger
}

func NewResilient(remote, fallback Generator, opts Options) *Resilient {
	r := &Resilient{
		remote:     remote,
		fallback:   fallback,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		sleep:      opts.Sleep,
		status:     opts.Status,
		logger:     opts.logger().With("provider", remote.Name()),
	}
	if r.maxRetries <= 0 {
		r.maxRetries = DefaultMaxRetries
	}
	if r.backoff <= 0 {
		r.backoff = DefaultBackoff
	}
	if r.sleep == nil {
		r.sleep = sleepContext
	}
	return r
}

func (r *Resilient) Name() string { return r.remote.Name() }

// Remote returns the wrapped generator.
func (r *Resilient) Remote() Generator { return r.remote }

func (r *Resilient) Generate(ctx context.Context, req Request) (string, error) {
	for attempt := 1; ; attempt++ {
		text, err := r.remote.Generate(ctx, req)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		kind, ok := KindOf(err)
		if !ok {
			return "", err
		}
		switch kind {
		case Overloaded:
			if attempt > r.maxRetries {
				return r.useFallback(ctx, req, kind, attempt, err)
			}
			wait := time.Duration(attempt) * r.backoff
			r.logger.Warn("provider overloaded, retrying", "attempt", attempt, "wait", wait)
			r.report(Status{Event: StatusRetrying, Provider: r.remote.Name(), Reason: kind, Attempt: attempt, Wait: wait})
			if err := r.sleep(ctx, wait); err != nil {
				return "", err
			}
		case NetworkFailure:
			return r.useFallback(ctx, req, kind, attempt, err)
		default:
			return "", err
		}
	}
}

func (r *Resilient) useFallback(ctx context.Context, req Request, kind Kind, attempt int, cause error) (string, error) {
	r.logger.Warn("using fallback generator", "reason", kind, "fallback", r.fallback.Name(), "err", cause)
	r.report(Status{Event: StatusFallback, Provider: r.remote.Name(), Reason: kind, Attempt: attempt})
	return r.fallback.Generate(ctx, req)
}

func (r *Resilient) report(s Status) {
	if r.status != nil {
		r.status(s)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
