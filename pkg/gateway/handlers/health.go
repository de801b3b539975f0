package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/voicedesk/voicedesk/pkg/gateway/config"
	"github.com/voicedesk/voicedesk/pkg/gateway/stream/sessions"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// ReadyHandler reports whether the gateway's configuration is serviceable.
type ReadyHandler struct {
	Config config.Config
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK     bool     `json:"ok"`
		Issues []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)
	if h.Config.SampleRate <= 0 {
		issues = append(issues, "sample rate must be > 0")
	}
	if h.Config.MinFlushDuration <= 0 || h.Config.MaxSilenceGap <= 0 || h.Config.MinAudioFloor <= 0 {
		issues = append(issues, "accumulator thresholds must be > 0")
	}
	if h.Config.MinAudioFloor > h.Config.MinFlushDuration {
		issues = append(issues, "audio floor must be <= min flush duration")
	}
	if h.Config.ChunkBytes <= 0 || h.Config.ChunkInterval <= 0 {
		issues = append(issues, "outbound pacing must be > 0")
	}
	if h.Config.STTAPIKey == "" {
		issues = append(issues, "stt api key not configured")
	}
	if h.Config.TTSAPIKey == "" {
		issues = append(issues, "tts api key not configured")
	}

	ok := len(issues) == 0
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(readyResp{OK: ok, Issues: issues})
}

// StatusHandler serves the live-call snapshot.
type StatusHandler struct {
	Store *sessions.Store
}

func (h StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(h.Store.Status())
}
