package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	NameDemo   = "demo"
	NameOpenAI = "openai"
	NameGemini = "gemini"
	NameGrok   = "grok"

	DefaultRequestsPerMin = 20
)

// Request is what a generator turns into a narrative script
type Request struct {
	Topic           string
	DurationSeconds int
	VoiceStyle      string
	Locale          string
}

// Generator produces a narrative script for a topic
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Options configures generators built by New
type Options struct {
	OpenAIKey string
	GeminiKey string
	GrokKey   string

	// Endpoint overrides, mostly for tests
	OpenAIURL string
	GeminiURL string
	GrokURL   string

	HTTPClient     *http.Client
	// Limiter is shared by every generator built for one provider. When nil
	// each generator gets its own from NewLimiter.
	Limiter        *rate.Limiter
	RequestsPerMin int
	RequestTimeout time.Duration
	Locale         string
	MaxRetries     int
	Backoff        time.Duration
	Sleep          func(ctx context.Context, d time.Duration) error
	Status         StatusFunc
	Logger         *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) httpClient() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	timeout := o.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func (o Options) limiter() *rate.Limiter {
	if o.Limiter != nil {
		return o.Limiter
	}
	return NewLimiter(o.RequestsPerMin, o.MaxRetries)
}

// NewLimiter builds the outbound request limiter for one provider. The burst
// covers a first attempt plus every overload retry.
func NewLimiter(requestsPerMin, maxRetries int) *rate.Limiter {
	if requestsPerMin <= 0 {
		requestsPerMin = DefaultRequestsPerMin
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	return rate.NewLimiter(rate.Limit(float64(requestsPerMin)/60.0), maxRetries+1)
}

// Names lists the selectable providers.
func Names() []string {
	return []string{NameDemo, NameOpenAI, NameGemini, NameGrok}
}

// NewRaw builds the bare generator for name with no retry or fallback.
func NewRaw(name string, opts Options) (Generator, error) {
	switch strings.ToLower(name) {
	case NameDemo, "":
		return NewDemo(opts.Locale), nil
	case NameOpenAI:
		return NewOpenAI(opts.OpenAIKey, opts), nil
	case NameGemini:
		return NewGemini(opts.GeminiKey, opts), nil
	case NameGrok:
		return NewGrok(opts.GrokKey, opts), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", name)
	}
}

// New builds the generator for name. Remote providers are wrapped with the
// overload retry and demo fallback policy. Unknown names fall back to demo.
func New(name string, opts Options) Generator {
	g, err := NewRaw(name, opts)
	if err != nil {
		opts.logger().Warn("falling back to demo provider", "err", err)
		return NewDemo(opts.Locale)
	}
	if g.Name() == NameDemo {
		return g
	}
	return NewResilient(g, NewDemo(opts.Locale), opts)
}

// RequiresKey reports whether the provider needs a credential.
func RequiresKey(name string) bool {
	switch strings.ToLower(name) {
	case NameOpenAI, NameGemini, NameGrok:
		return true
	}
	return false
}

// DisplayName is the human-facing provider label.
func DisplayName(name string) string {
	switch strings.ToLower(name) {
	case NameOpenAI:
		return "OpenAI"
	case NameGemini:
		return "Gemini"
	case NameGrok:
		return "Grok"
	default:
		return "Demo"
	}
}
