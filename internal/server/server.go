// Package server exposes the studio over HTTP and streams playback events
// over a websocket.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/ivlev/sketchstory/internal/director"
	"github.com/ivlev/sketchstory/internal/engine"
	"github.com/ivlev/sketchstory/internal/i18n"
	"github.com/ivlev/sketchstory/internal/provider"
	"github.com/ivlev/sketchstory/internal/settings"
	"github.com/ivlev/sketchstory/internal/studio"
)

// DefaultDuration applies when a generate request omits the duration
const DefaultDuration = 30

// Message is what websocket clients receive
type Message struct {
	engine.Event
	Message string `json:"message,omitempty"`
}

type Server struct {
	studio *studio.Studio
	hub    *Hub
	logger *slog.Logger
	origin string
}

func New(st *studio.Studio, hub *Hub, origin string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{studio: st, hub: hub, logger: logger, origin: origin}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(Logging(s.logger))
	if s.origin != "" {
		r.Use(CORS(s.origin))
	}

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/generate", s.handleGenerate).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/playback/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/playback/{action:play|pause|stop}", s.handlePlayback).Methods(http.MethodPost, http.MethodOptions)
	api.HandleFunc("/export.png", s.handleExport).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	api.HandleFunc("/settings", s.handlePutSettings).Methods(http.MethodPut, http.MethodOptions)
	api.HandleFunc("/settings/test", s.handleTestSettings).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/ws/playback", s.handleWS)
	return r
}

// EventListener returns an engine listener that broadcasts every event.
func EventListener(hub *Hub, locale string) engine.Listener {
	return func(ev engine.Event) {
		msg := Message{Event: ev}
		switch ev.Type {
		case engine.EventNotice:
			msg.Message = studio.NoticeMessage(ev.Notice, locale)
		case engine.EventFire:
			msg.Message = i18n.T(locale, "SCENE_FIRED", ev.Scene+1, ev.Text)
		case engine.EventComplete:
			msg.Message = i18n.T(locale, "PLAYBACK_DONE")
		}
		publishJSON(hub, msg)
	}
}

// StatusListener returns a provider status callback that broadcasts retry
// and fallback reports.
func StatusListener(hub *Hub, locale string) func(provider.Status) {
	return func(st provider.Status) {
		publishJSON(hub, Message{
			Event:   engine.Event{Type: engine.EventNotice, Notice: string(st.Event)},
			Message: studio.StatusMessage(st, locale),
		})
	}
}

func publishJSON(hub *Hub, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		hub.logger.Error("encode websocket message", "err", err)
		return
	}
	hub.Publish(data)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) locale(r *http.Request) string {
	if l := r.URL.Query().Get("lang"); l != "" {
		return i18n.Normalize(l)
	}
	cfg, err := s.studio.Settings(r.Context())
	if err != nil {
		return i18n.DefaultLocale
	}
	return i18n.Normalize(cfg.Language)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	} else {
		s.logger.Warn("request rejected", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorBody{Error: code, Message: studio.UserMessage(err, s.locale(r))})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, engine.ErrEmptyTimeline):
		return http.StatusConflict, engine.NoticeEmptyTimeline
	case errors.Is(err, director.ErrInvalidDuration):
		return http.StatusBadRequest, "INVALID_DURATION"
	}
	kind, ok := provider.KindOf(err)
	if !ok {
		return http.StatusInternalServerError, "GENERIC"
	}
	switch kind {
	case provider.MissingCredential:
		return http.StatusPreconditionFailed, "MISSING_CREDENTIAL"
	case provider.RateLimited:
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case provider.Overloaded:
		return http.StatusServiceUnavailable, "OVERLOADED"
	case provider.Unauthorized:
		return http.StatusBadGateway, "UNAUTHORIZED"
	case provider.NetworkFailure:
		return http.StatusBadGateway, "NETWORK"
	default:
		return http.StatusBadGateway, "MALFORMED"
	}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req studio.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "BAD_REQUEST", Message: err.Error()})
		return
	}
	if req.Duration == 0 {
		req.Duration = DefaultDuration
	}
	res, err := s.studio.Generate(r.Context(), req)
	if err != nil && (res == nil || !errors.Is(err, engine.ErrEmptyTimeline)) {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePlayback(w http.ResponseWriter, r *http.Request) {
	switch mux.Vars(r)["action"] {
	case "play":
		if err := s.studio.Play(); err != nil {
			s.writeError(w, r, err)
			return
		}
	case "pause":
		s.studio.Pause()
	case "stop":
		s.studio.Stop()
	}
	writeJSON(w, http.StatusOK, s.studio.State())
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.studio.State())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.studio.Export()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="sketchstory.png"`)
	w.Write(data)
}

type settingsView struct {
	settings.Settings
	Status    string   `json:"status"`
	Providers []string `json:"providers"`
}

func (s *Server) settingsView(v settings.Settings) settingsView {
	return settingsView{Settings: v.Masked(), Status: settings.StatusLine(v), Providers: provider.Names()}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	v, err := s.studio.Settings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.settingsView(v))
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var update settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "BAD_REQUEST", Message: err.Error()})
		return
	}
	if update.Provider != "" && !slices.Contains(provider.Names(), update.Provider) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "BAD_REQUEST", Message: fmt.Sprintf("unknown provider %q", update.Provider)})
		return
	}

	current, err := s.studio.Settings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	next := current.Merge(update)
	if update.Language != "" {
		next.Language = i18n.Normalize(update.Language)
	}
	if err := s.studio.SaveSettings(r.Context(), next); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("settings saved", "provider", next.Provider, "language", next.Language)
	writeJSON(w, http.StatusOK, s.settingsView(next))
}

func (s *Server) handleTestSettings(w http.ResponseWriter, r *http.Request) {
	v, err := s.studio.Settings(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts := s.studio.ProviderOptions(v)
	if r.URL.Query().Get("all") != "" {
		writeJSON(w, http.StatusOK, settings.TestAll(r.Context(), v, opts))
		return
	}

	name := provider.DisplayName(v.Provider)
	if err := settings.TestConnection(r.Context(), v, opts); err != nil {
		writeJSON(w, http.StatusOK, []settings.TestResult{{
			Provider: v.Provider,
			Message:  i18n.T(v.Language, "TEST_FAILED", name, studio.UserMessage(err, v.Language)),
		}})
		return
	}
	writeJSON(w, http.StatusOK, []settings.TestResult{{
		Provider: v.Provider,
		OK:       true,
		Message:  i18n.T(v.Language, "TEST_OK", name),
	}})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	// late joiners get the current state first
	st := s.studio.State()
	hello, err := json.Marshal(Message{Event: engine.Event{
		Type:     engine.EventPhase,
		Phase:    st.Phase,
		Progress: st.Progress,
		Clock:    st.Clock,
	}})
	if err != nil {
		hello = nil
	}
	s.hub.attach(conn, hello)
}
