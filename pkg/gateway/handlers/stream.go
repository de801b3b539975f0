package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicedesk/voicedesk/pkg/core/reply"
	"github.com/voicedesk/voicedesk/pkg/core/voice/stt"
	"github.com/voicedesk/voicedesk/pkg/core/voice/tts"
	"github.com/voicedesk/voicedesk/pkg/gateway/config"
	"github.com/voicedesk/voicedesk/pkg/gateway/metrics"
	"github.com/voicedesk/voicedesk/pkg/gateway/mw"
	"github.com/voicedesk/voicedesk/pkg/gateway/stream/session"
	"github.com/voicedesk/voicedesk/pkg/gateway/stream/sessions"
)

// StreamHandler accepts the telephony provider's media-stream websocket and
// hands the connection to a call session.
type StreamHandler struct {
	Config      config.Config
	Logger      *slog.Logger
	Store       *sessions.Store
	Transcriber stt.Transcriber
	Synthesizer tts.Synthesizer
	Replies     reply.Generator
	Greeter     session.Greeter
	Metrics     *metrics.Metrics
}

func (h StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reqID, _ := mw.RequestIDFrom(r.Context())
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	upgrader := websocket.Upgrader{
		HandshakeTimeout: h.Config.HandshakeTimeout,
		// The media stream arrives from the telephony provider, not a
		// browser, so the Origin header carries no signal here.
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "request_id", reqID, "error", err)
		return
	}
	defer conn.Close()

	sess, err := session.New(session.Dependencies{
		Conn:        conn,
		Logger:      logger,
		Store:       h.Store,
		Transcriber: h.Transcriber,
		Synthesizer: h.Synthesizer,
		Replies:     h.Replies,
		Greeter:     h.Greeter,
		Metrics:     h.Metrics,
		RequestID:   reqID,
		Config: session.Config{
			MinFlushDuration: h.Config.MinFlushDuration,
			MaxSilenceGap:    h.Config.MaxSilenceGap,
			MinAudioFloor:    h.Config.MinAudioFloor,
			SampleRate:       h.Config.SampleRate,
			OutboundEncoding: h.Config.OutboundEncoding,
			ChunkBytes:       h.Config.ChunkBytes,
			ChunkInterval:    h.Config.ChunkInterval,
			IdleTick:         h.Config.IdleTick,
			PingInterval:     h.Config.PingInterval,
			WriteTimeout:     h.Config.WriteTimeout,
			ReadTimeout:      h.Config.ReadTimeout,
			MaxMessageBytes:  h.Config.MaxMessageBytes,
			MaxCallDuration:  h.Config.MaxCallDuration,
			PipelineTimeout:  h.Config.PipelineTimeout,
			MaxHistoryTurns:  h.Config.MaxHistoryTurns,
		},
	})
	if err != nil {
		logger.Error("session setup failed", "request_id", reqID, "error", err)
		return
	}

	start := time.Now()
	if err := sess.Run(); err != nil {
		logger.Warn("session ended with error", "request_id", reqID, "error", err, "duration", time.Since(start))
		return
	}
	logger.Info("session ended", "request_id", reqID, "duration", time.Since(start))
}
