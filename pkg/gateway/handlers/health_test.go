package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/voicedesk/voicedesk/pkg/gateway/config"
	"github.com/voicedesk/voicedesk/pkg/gateway/stream/sessions"
)

func serviceableConfig() config.Config {
	return config.Config{
		MinFlushDuration: 800 * time.Millisecond,
		MaxSilenceGap:    2 * time.Second,
		MinAudioFloor:    500 * time.Millisecond,
		SampleRate:       8000,
		ChunkBytes:       640,
		ChunkInterval:    20 * time.Millisecond,
		STTAPIKey:        "sk-1",
		TTSAPIKey:        "sk-2",
	}
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler{}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "ok\n" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestReadyHandlerOK(t *testing.T) {
	rec := httptest.NewRecorder()
	ReadyHandler{Config: serviceableConfig()}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestReadyHandlerReportsIssues(t *testing.T) {
	cfg := serviceableConfig()
	cfg.STTAPIKey = ""
	cfg.MinAudioFloor = time.Second // above min flush

	rec := httptest.NewRecorder()
	ReadyHandler{Config: cfg}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		OK     bool     `json:"ok"`
		Issues []string `json:"issues"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.OK || len(resp.Issues) != 2 {
		t.Fatalf("resp = %+v, want 2 issues", resp)
	}
}

func TestStatusHandler(t *testing.T) {
	store := sessions.NewStore(time.Minute)
	store.Register("CA1", sessions.Handle{})
	store.Conversation("CA1", "biz", 0)

	rec := httptest.NewRecorder()
	StatusHandler{Store: store}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var st sessions.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if st.ActiveCalls != 1 || st.ConversationsInMemory != 1 {
		t.Fatalf("status = %+v", st)
	}
	if st.UptimeSeconds < 0 {
		t.Fatalf("uptime = %v", st.UptimeSeconds)
	}
}

func TestStatusHandlerMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	StatusHandler{Store: sessions.NewStore(time.Minute)}.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
