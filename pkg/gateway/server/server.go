package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/voicedesk/voicedesk/pkg/core/reply"
	"github.com/voicedesk/voicedesk/pkg/core/voice/stt"
	"github.com/voicedesk/voicedesk/pkg/core/voice/tts"
	"github.com/voicedesk/voicedesk/pkg/gateway/config"
	"github.com/voicedesk/voicedesk/pkg/gateway/handlers"
	"github.com/voicedesk/voicedesk/pkg/gateway/metrics"
	"github.com/voicedesk/voicedesk/pkg/gateway/mw"
	"github.com/voicedesk/voicedesk/pkg/gateway/stream/session"
	"github.com/voicedesk/voicedesk/pkg/gateway/stream/sessions"
)

// Dependencies carries the collaborators the server routes to.
type Dependencies struct {
	Store       *sessions.Store
	Transcriber stt.Transcriber
	Synthesizer tts.Synthesizer
	Replies     reply.Generator
	Greeter     session.Greeter
	Metrics     *metrics.Metrics
}

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	deps   Dependencies
	mux    *http.ServeMux
}

func New(cfg config.Config, logger *slog.Logger, deps Dependencies) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger,
		deps:   deps,
		mux:    http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{Config: s.cfg})
	s.mux.Handle("/status", handlers.StatusHandler{Store: s.deps.Store})
	if s.deps.Metrics != nil {
		s.mux.Handle("/metrics", s.deps.Metrics.Handler())
	}

	s.mux.Handle("/media-stream", handlers.StreamHandler{
		Config:      s.cfg,
		Logger:      s.logger,
		Store:       s.deps.Store,
		Transcriber: s.deps.Transcriber,
		Synthesizer: s.deps.Synthesizer,
		Replies:     s.deps.Replies,
		Greeter:     s.deps.Greeter,
		Metrics:     s.deps.Metrics,
	})

	s.mux.Handle("/", handlers.NotFoundHandler{})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// HTTPServer builds the net/http server with the gateway's timeouts. Write
// timeout stays unset: the media-stream websocket outlives any sane value.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		IdleTimeout:       60 * time.Second,
	}
}
