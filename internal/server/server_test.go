package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ivlev/sketchstory/internal/canvas"
	"github.com/ivlev/sketchstory/internal/director"
	"github.com/ivlev/sketchstory/internal/engine"
	"github.com/ivlev/sketchstory/internal/renderer"
	"github.com/ivlev/sketchstory/internal/settings"
	"github.com/ivlev/sketchstory/internal/studio"
)

type testEnv struct {
	srv   *httptest.Server
	run   studio.RunnerFunc
	hub   *Hub
	sched *engine.ManualScheduler
	store *settings.MemoryStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := NewHub(nil)
	go hub.Run(ctx)

	sched := engine.NewManualScheduler()
	c, err := canvas.New(200, 120, canvas.WithClock(sched.Now))
	if err != nil {
		t.Fatalf("canvas.New failed: %v", err)
	}
	adapter := renderer.NewAdapter(c, nil, nil)
	eng := engine.New(sched, adapter, engine.WithListener(EventListener(hub, "en")))
	store := settings.NewMemoryStore()

	// handlers run on server goroutines; serialize engine access
	lock := make(chan struct{}, 1)
	runner := studio.RunnerFunc(func(fn func()) {
		lock <- struct{}{}
		defer func() { <-lock }()
		fn()
	})
	st := studio.New(runner, eng, adapter, store, studio.WithDirector(director.NewDirector(7)))

	srv := httptest.NewServer(New(st, hub, "http://localhost:5173", nil).Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, run: runner, hub: hub, sched: sched, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, e.srv.URL+path, &buf)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestPlayBeforeGenerate(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/playback/play", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("Expected 409, got %d", resp.StatusCode)
	}
	body := decode[errorBody](t, resp)
	if body.Error != "EMPTY_TIMELINE" || body.Message != "Najpierw wygeneruj animację" {
		t.Errorf("Unexpected error body %+v", body)
	}

	if resp := env.do(t, http.MethodGet, "/api/v1/export.png?lang=en", nil); resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected export refusal, got %d", resp.StatusCode)
	}
}

func TestGenerateAndPlayback(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/generate", studio.Request{Topic: "startup", Duration: 40})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	res := decode[studio.Result](t, resp)
	if len(res.Timeline.Scenes) != 4 || res.Provider != "demo" {
		t.Fatalf("Unexpected result %+v", res)
	}

	st := decode[engine.State](t, env.do(t, http.MethodPost, "/api/v1/playback/play", nil))
	if st.Phase != engine.Playing {
		t.Errorf("Expected playing, got %s", st.Phase)
	}
	st = decode[engine.State](t, env.do(t, http.MethodPost, "/api/v1/playback/pause", nil))
	if st.Phase != engine.Paused {
		t.Errorf("Expected paused, got %s", st.Phase)
	}
	st = decode[engine.State](t, env.do(t, http.MethodPost, "/api/v1/playback/stop", nil))
	if st.Phase != engine.Stopped || st.Clock != 0 {
		t.Errorf("Expected stopped at zero, got %+v", st)
	}

	resp = env.do(t, http.MethodGet, "/api/v1/export.png", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Errorf("Expected PNG export, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Error("Expected CORS header")
	}
}

func TestGenerateRejectsNegativeDuration(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/api/v1/generate?lang=en", studio.Request{Topic: "x", Duration: -5})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}
	if body := decode[errorBody](t, resp); body.Error != "INVALID_DURATION" {
		t.Errorf("Unexpected error body %+v", body)
	}
}

func TestSettingsEndpoints(t *testing.T) {
	env := newTestEnv(t)

	view := decode[settingsView](t, env.do(t, http.MethodGet, "/api/v1/settings", nil))
	if view.Provider != "demo" || view.Status != "Tryb demo - podstawowe scenariusze" {
		t.Errorf("Unexpected default view %+v", view)
	}

	resp := env.do(t, http.MethodPut, "/api/v1/settings", settings.Settings{Provider: "gemini", GeminiKey: "gm-secret-key", Language: "en-US"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	view = decode[settingsView](t, resp)
	if view.GeminiKey != "*********-key" || view.Status != "Gemini - connected" || view.Language != "en" {
		t.Errorf("Unexpected saved view %+v", view)
	}
	if v, _, _ := env.store.Get(context.Background(), settings.KeyGemini); v != "gm-secret-key" {
		t.Errorf("Expected raw key in store, got %q", v)
	}

	if resp := env.do(t, http.MethodPut, "/api/v1/settings", settings.Settings{Provider: "skynet"}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown provider, got %d", resp.StatusCode)
	}
}

func TestWebsocketStream(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodPost, "/api/v1/generate", studio.Request{Topic: "startup", Duration: 4})

	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws/playback"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var hello Message
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("Expected state greeting: %v", err)
	}
	if hello.Type != engine.EventPhase {
		t.Errorf("Expected phase greeting, got %s", hello.Type)
	}

	deadline := time.Now().Add(5 * time.Second)
	for env.hub.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	env.do(t, http.MethodPost, "/api/v1/playback/play", nil)
	env.run(func() { env.sched.Advance(time.Second) })

	var fire Message
	for fire.Type != engine.EventFire {
		if err := conn.ReadJSON(&fire); err != nil {
			t.Fatalf("Expected fire event: %v", err)
		}
	}
	if fire.Scene != 0 || fire.Message != "Scene 1: 🚀 startup" {
		t.Errorf("Unexpected fire message %+v", fire)
	}
}
