package provider

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testOptions() Options {
	return Options{
		RequestsPerMin: 600000,
		Sleep:          func(context.Context, time.Duration) error { return nil },
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		topic string
		want  Category
	}{
		{"startup", CategoryBusiness},
		{"Moja firma", CategoryBusiness},
		{"Jak działa fotosynteza", CategoryEducation},
		{"learn Go", CategoryEducation},
		{"Sales funnel", CategoryMarketing},
		{"Nowa technologia", CategoryTechnology},
		{"writing code", CategoryTechnology},
		{"coffee", CategoryGeneric},
		{"startup code", CategoryBusiness},
	}
	for _, tt := range tests {
		if got := Classify(tt.topic); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.topic, got, tt.want)
		}
	}
}

func TestDemoScript(t *testing.T) {
	d := NewDemo("pl")
	text, err := d.Generate(context.Background(), Request{Topic: "startup"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.HasPrefix(text, "🚀 startup\n\n") {
		t.Errorf("Expected title section first, got %q", text[:20])
	}
	if n := len(strings.Split(text, "\n\n")); n != 4 {
		t.Errorf("Expected 4 sections, got %d", n)
	}

	again, _ := d.Generate(context.Background(), Request{Topic: "startup"})
	if again != text {
		t.Error("Expected deterministic output")
	}

	en, _ := d.Generate(context.Background(), Request{Topic: "coffee", Locale: "en"})
	if !strings.HasPrefix(en, "✨ coffee") || !strings.Contains(en, "demo script") {
		t.Errorf("Unexpected English generic script: %q", en)
	}
}

func TestOpenAIGenerate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Errorf("Unexpected auth header %q", r.Header.Get("Authorization"))
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("Bad request body: %v", err)
		}
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"Scene one\n\nScene two"}}]}`)
	}))
	defer srv.Close()

	opts := testOptions()
	opts.OpenAIURL = srv.URL
	c := NewOpenAI("sk-test", opts)

	text, err := c.Generate(context.Background(), Request{Topic: "coffee", DurationSeconds: 40, VoiceStyle: "calm"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "Scene one\n\nScene two" {
		t.Errorf("Unexpected text %q", text)
	}
	if got.Model != openAIModel || got.MaxTokens != 1500 || len(got.Messages) != 2 {
		t.Errorf("Unexpected request %+v", got)
	}
	if !strings.Contains(got.Messages[0].Content, "calm") || !strings.Contains(got.Messages[0].Content, "40") {
		t.Errorf("System prompt misses voice or duration: %q", got.Messages[0].Content)
	}
	if !strings.Contains(got.Messages[1].Content, "coffee") {
		t.Errorf("User prompt misses topic: %q", got.Messages[1].Content)
	}
}

func TestChatClientErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"unauthorized", 401, `{"error":{"message":"bad key"}}`, Unauthorized},
		{"forbidden", 403, `{}`, Unauthorized},
		{"rate limited", 429, `{"error":{"message":"slow down"}}`, RateLimited},
		{"overloaded", 503, `{"error":{"message":"The model is overloaded"}}`, Overloaded},
		{"server error", 500, `oops`, MalformedResponse},
		{"no choices", 200, `{"choices":[]}`, MalformedResponse},
		{"not json", 200, `<html>`, MalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			opts := testOptions()
			opts.GrokURL = srv.URL
			_, err := NewGrok("key", opts).Generate(context.Background(), Request{Topic: "x"})
			if !IsKind(err, tt.want) {
				t.Errorf("Expected %s, got %v", tt.want, err)
			}
		})
	}
}

func TestMissingCredential(t *testing.T) {
	for _, g := range []Generator{NewOpenAI("", testOptions()), NewGemini(" ", testOptions()), NewGrok("", testOptions())} {
		if _, err := g.Generate(context.Background(), Request{Topic: "x"}); !IsKind(err, MissingCredential) {
			t.Errorf("%s: expected missing credential, got %v", g.Name(), err)
		}
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	opts := testOptions()
	opts.OpenAIURL = url
	_, err := NewOpenAI("key", opts).Generate(context.Background(), Request{Topic: "x"})
	if !IsKind(err, NetworkFailure) {
		t.Errorf("Expected network failure, got %v", err)
	}
}

func TestGeminiGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "gm-key" {
			t.Errorf("Expected key query parameter, got %q", r.URL.RawQuery)
		}
		var req geminiRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.SafetySettings) != 4 || req.GenerationConfig.TopK != 40 {
			t.Errorf("Unexpected request %+v", req)
		}
		if len(req.Contents) != 1 || !strings.Contains(req.Contents[0].Parts[0].Text, "kawa") {
			t.Errorf("Prompt misses topic: %+v", req.Contents)
		}
		io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"Gemini script"}]}}]}`)
	}))
	defer srv.Close()

	opts := testOptions()
	opts.GeminiURL = srv.URL
	text, err := NewGemini("gm-key", opts).Generate(context.Background(), Request{Topic: "kawa"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "Gemini script" {
		t.Errorf("Unexpected text %q", text)
	}
}

func TestGeminiErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   Kind
	}{
		{"invalid key", 400, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT","details":[{"reason":"API_KEY_INVALID"}]}}`, Unauthorized},
		{"quota", 429, `{"error":{"message":"Quota exceeded","status":"RESOURCE_EXHAUSTED"}}`, RateLimited},
		{"overloaded", 503, `{"error":{"message":"The model is overloaded. Please try again later.","status":"UNAVAILABLE"}}`, Overloaded},
		{"blocked", 200, `{"promptFeedback":{"blockReason":"SAFETY"}}`, MalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			opts := testOptions()
			opts.GeminiURL = srv.URL
			_, err := NewGemini("key", opts).Generate(context.Background(), Request{Topic: "x"})
			if !IsKind(err, tt.want) {
				t.Errorf("Expected %s, got %v", tt.want, err)
			}
		})
	}
}

type scriptedGenerator struct {
	calls   int
	results []error
	text    string
}

func (s *scriptedGenerator) Name() string { return "scripted" }

func (s *scriptedGenerator) Generate(ctx context.Context, req Request) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.results) && s.results[i] != nil {
		return "", s.results[i]
	}
	return s.text, nil
}

func overloaded() error { return &Error{Kind: Overloaded, Provider: "scripted"} }

func TestResilientRetriesOverload(t *testing.T) {
	remote := &scriptedGenerator{results: []error{overloaded()}, text: "remote text"}
	var waits []time.Duration
	var statuses []Status
	opts := testOptions()
	opts.Sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	opts.Status = func(s Status) { statuses = append(statuses, s) }

	r := NewResilient(remote, NewDemo("en"), opts)
	text, err := r.Generate(context.Background(), Request{Topic: "startup"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "remote text" {
		t.Errorf("Expected remote text, got %q", text)
	}
	if remote.calls != 2 {
		t.Errorf("Expected 2 remote calls, got %d", remote.calls)
	}
	if len(waits) != 1 || waits[0] != 2*time.Second {
		t.Errorf("Expected one 2s wait, got %v", waits)
	}
	for _, s := range statuses {
		if s.Event == StatusFallback {
			t.Error("Did not expect fallback")
		}
	}
}

func TestResilientFallsBackAfterRetries(t *testing.T) {
	remote := &scriptedGenerator{results: []error{overloaded(), overloaded(), overloaded()}}
	var waits []time.Duration
	var last Status
	opts := testOptions()
	opts.Sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}
	opts.Status = func(s Status) { last = s }

	text, err := NewResilient(remote, NewDemo("pl"), opts).Generate(context.Background(), Request{Topic: "startup"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != Script("startup", "pl") {
		t.Errorf("Expected demo script, got %q", text)
	}
	if remote.calls != 3 {
		t.Errorf("Expected 3 remote calls, got %d", remote.calls)
	}
	if len(waits) != 2 || waits[0] != 2*time.Second || waits[1] != 4*time.Second {
		t.Errorf("Expected waits [2s 4s], got %v", waits)
	}
	if last.Event != StatusFallback || last.Reason != Overloaded {
		t.Errorf("Expected fallback status, got %+v", last)
	}
}

func TestResilientNetworkFallback(t *testing.T) {
	remote := &scriptedGenerator{results: []error{&Error{Kind: NetworkFailure, Provider: "scripted", Err: errors.New("dial")}}}
	var fellBack int32
	opts := testOptions()
	opts.Status = func(s Status) {
		if s.Event == StatusFallback {
			atomic.AddInt32(&fellBack, 1)
		}
	}

	text, err := NewResilient(remote, NewDemo("en"), opts).Generate(context.Background(), Request{Topic: "coffee"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.HasPrefix(text, "✨ coffee") || remote.calls != 1 || fellBack != 1 {
		t.Errorf("Expected immediate demo fallback, got calls=%d text=%q", remote.calls, text)
	}
}

func TestResilientPropagates(t *testing.T) {
	for _, kind := range []Kind{Unauthorized, RateLimited, MissingCredential, MalformedResponse} {
		remote := &scriptedGenerator{results: []error{&Error{Kind: kind, Provider: "scripted"}}}
		_, err := NewResilient(remote, NewDemo("en"), testOptions()).Generate(context.Background(), Request{Topic: "x"})
		if !IsKind(err, kind) {
			t.Errorf("Expected %s to propagate, got %v", kind, err)
		}
	}
}

func TestResilientCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	remote := &scriptedGenerator{results: []error{overloaded(), overloaded(), overloaded()}}
	opts := testOptions()
	opts.Sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := NewResilient(remote, NewDemo("en"), opts).Generate(ctx, Request{Topic: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if remote.calls != 1 {
		t.Errorf("Expected no retries after cancel, got %d calls", remote.calls)
	}
}

func TestNewRegistry(t *testing.T) {
	if g := New("demo", testOptions()); g.Name() != NameDemo {
		t.Errorf("Expected demo, got %s", g.Name())
	}
	if g := New("nonsense", testOptions()); g.Name() != NameDemo {
		t.Errorf("Expected unknown provider to fall back to demo, got %s", g.Name())
	}
	g := New("gemini", testOptions())
	if _, ok := g.(*Resilient); !ok {
		t.Errorf("Expected remote provider to be wrapped, got %T", g)
	}
	if _, err := NewRaw("nonsense", testOptions()); err == nil {
		t.Error("Expected error for unknown raw provider")
	}
}

func TestRetryBackoffNotStretchedByLimiter(t *testing.T) {
	var (
		mu    sync.Mutex
		stamp []time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamp = append(stamp, time.Now())
		n := len(stamp)
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, `{"choices":[{"message":{"content":"after retry"}}]}`)
	}))
	defer srv.Close()

	backoff := 200 * time.Millisecond
	g := New(NameOpenAI, Options{OpenAIKey: "k", OpenAIURL: srv.URL, Backoff: backoff})
	text, err := g.Generate(context.Background(), Request{Topic: "startup"})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if text != "after retry" {
		t.Errorf("Expected remote text, got %q", text)
	}
	if len(stamp) != 2 {
		t.Fatalf("Expected 2 requests, got %d", len(stamp))
	}
	gap := stamp[1].Sub(stamp[0])
	if gap < backoff || gap > backoff+500*time.Millisecond {
		t.Errorf("Expected retry after %v, got %v", backoff, gap)
	}
}

func TestNewLimiter(t *testing.T) {
	l := NewLimiter(0, 0)
	if l.Burst() != DefaultMaxRetries+1 {
		t.Errorf("Expected burst %d, got %d", DefaultMaxRetries+1, l.Burst())
	}
	if l.Limit() != rate.Limit(float64(DefaultRequestsPerMin)/60) {
		t.Errorf("Unexpected limit %v", l.Limit())
	}

	shared := NewLimiter(60, 1)
	opts := Options{OpenAIKey: "k", Limiter: shared}
	if NewOpenAI("k", opts).limiter != shared || NewGemini("k", opts).limiter != shared {
		t.Error("Expected generators to use the shared limiter")
	}
}
