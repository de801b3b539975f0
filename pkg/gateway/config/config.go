package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr string

	// Media stream accumulator tuning.
	MinFlushDuration time.Duration
	MaxSilenceGap    time.Duration
	MinAudioFloor    time.Duration
	SampleRate       int

	// Outbound audio pacing.
	OutboundEncoding string // mulaw|pcm
	ChunkBytes       int
	ChunkInterval    time.Duration

	// Websocket plumbing.
	MaxMessageBytes    int64
	PingInterval       time.Duration
	WriteTimeout       time.Duration
	ReadTimeout        time.Duration
	HandshakeTimeout   time.Duration
	MaxCallDuration    time.Duration
	PipelineTimeout    time.Duration
	IdleTick           time.Duration

	// Conversation memory.
	ConversationGrace time.Duration
	MaxHistoryTurns   int

	// Speech-to-text.
	STTBaseURL  string
	STTAPIKey   string
	STTModel    string
	STTLanguage string

	// Text-to-speech, primary and optional fallback.
	TTSBaseURL         string
	TTSAPIKey          string
	TTSModel           string
	TTSVoice           string
	TTSFallbackBaseURL string
	TTSFallbackAPIKey  string
	TTSFallbackModel   string
	TTSFallbackVoice   string

	// Reply rules.
	RulesPath string

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ShutdownGracePeriod time.Duration
	MetricsNamespace    string
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("VOICEDESK_ADDR", ":8080"),
		MinFlushDuration:    envDurationOr("VOICEDESK_MIN_FLUSH_MS", 800*time.Millisecond),
		MaxSilenceGap:       envDurationOr("VOICEDESK_MAX_SILENCE_GAP_MS", 2*time.Second),
		MinAudioFloor:       envDurationOr("VOICEDESK_MIN_AUDIO_FLOOR_MS", 500*time.Millisecond),
		SampleRate:          envIntOr("VOICEDESK_SAMPLE_RATE", 8000),
		OutboundEncoding:    envOr("VOICEDESK_OUTBOUND_ENCODING", "mulaw"),
		ChunkBytes:          envIntOr("VOICEDESK_CHUNK_BYTES", 640),
		ChunkInterval:       envDurationOr("VOICEDESK_CHUNK_INTERVAL_MS", 20*time.Millisecond),
		MaxMessageBytes:     envInt64Or("VOICEDESK_MAX_MESSAGE_BYTES", 1<<20),
		PingInterval:        envDurationOr("VOICEDESK_WS_PING_INTERVAL", 20*time.Second),
		WriteTimeout:        envDurationOr("VOICEDESK_WS_WRITE_TIMEOUT", 5*time.Second),
		ReadTimeout:         envDurationOr("VOICEDESK_WS_READ_TIMEOUT", 90*time.Second),
		HandshakeTimeout:    envDurationOr("VOICEDESK_WS_HANDSHAKE_TIMEOUT", 5*time.Second),
		MaxCallDuration:     envDurationOr("VOICEDESK_MAX_CALL_DURATION", time.Hour),
		PipelineTimeout:     envDurationOr("VOICEDESK_PIPELINE_TIMEOUT", 30*time.Second),
		IdleTick:            envDurationOr("VOICEDESK_IDLE_TICK", 250*time.Millisecond),
		ConversationGrace:   envDurationOr("VOICEDESK_CONVERSATION_GRACE", 5*time.Minute),
		MaxHistoryTurns:     envIntOr("VOICEDESK_MAX_HISTORY_TURNS", 40),
		STTBaseURL:          envOr("VOICEDESK_STT_BASE_URL", "https://api.openai.com/v1"),
		STTAPIKey:           strings.TrimSpace(os.Getenv("VOICEDESK_STT_API_KEY")),
		STTModel:            envOr("VOICEDESK_STT_MODEL", "whisper-1"),
		STTLanguage:         envOr("VOICEDESK_STT_LANGUAGE", "en"),
		TTSBaseURL:          envOr("VOICEDESK_TTS_BASE_URL", "https://api.openai.com/v1"),
		TTSAPIKey:           strings.TrimSpace(os.Getenv("VOICEDESK_TTS_API_KEY")),
		TTSModel:            envOr("VOICEDESK_TTS_MODEL", "tts-1"),
		TTSVoice:            envOr("VOICEDESK_TTS_VOICE", "alloy"),
		TTSFallbackBaseURL:  strings.TrimSpace(os.Getenv("VOICEDESK_TTS_FALLBACK_BASE_URL")),
		TTSFallbackAPIKey:   strings.TrimSpace(os.Getenv("VOICEDESK_TTS_FALLBACK_API_KEY")),
		TTSFallbackModel:    envOr("VOICEDESK_TTS_FALLBACK_MODEL", "tts-1"),
		TTSFallbackVoice:    envOr("VOICEDESK_TTS_FALLBACK_VOICE", "alloy"),
		RulesPath:           envOr("VOICEDESK_RULES_PATH", "rules.yaml"),
		ReadHeaderTimeout:   envDurationOr("VOICEDESK_READ_HEADER_TIMEOUT", 10*time.Second),
		ShutdownGracePeriod: envDurationOr("VOICEDESK_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
		MetricsNamespace:    envOr("VOICEDESK_METRICS_NAMESPACE", "voicedesk"),
	}

	if cfg.MinFlushDuration <= 0 {
		return Config{}, fmt.Errorf("VOICEDESK_MIN_FLUSH_MS must be > 0")
	}
	if cfg.MaxSilenceGap <= 0 {
		return Config{}, fmt.Errorf("VOICEDESK_MAX_SILENCE_GAP_MS must be > 0")
	}
	if cfg.MinAudioFloor <= 0 {
		return Config{}, fmt.Errorf("VOICEDESK_MIN_AUDIO_FLOOR_MS must be > 0")
	}
	if cfg.MinAudioFloor > cfg.MinFlushDuration {
		return Config{}, fmt.Errorf("VOICEDESK_MIN_AUDIO_FLOOR_MS must be <= VOICEDESK_MIN_FLUSH_MS")
	}
	if cfg.SampleRate <= 0 {
		return Config{}, fmt.Errorf("VOICEDESK_SAMPLE_RATE must be > 0")
	}
	switch cfg.OutboundEncoding {
	case "mulaw", "pcm":
	default:
		return Config{}, fmt.Errorf("VOICEDESK_OUTBOUND_ENCODING must be one of mulaw|pcm")
	}
	if cfg.ChunkBytes <= 0 {
		return Config{}, fmt.Errorf("VOICEDESK_CHUNK_BYTES must be > 0")
	}
	if cfg.ChunkInterval <= 0 {
		return Config{}, fmt.Errorf("VOICEDESK_CHUNK_INTERVAL_MS must be > 0")
	}
	if cfg.MaxMessageBytes <= 0 {
		return Config{}, fmt.Errorf("VOICEDESK_MAX_MESSAGE_BYTES must be > 0")
	}
	if cfg.PingInterval <= 0 {
		return Config{}, fmt.Errorf("VOICEDESK_WS_PING_INTERVAL must be > 0")
	}
	if cfg.WriteTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICEDESK_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout < 0 {
		return Config{}, fmt.Errorf("VOICEDESK_WS_READ_TIMEOUT must be >= 0")
	}
	if cfg.HandshakeTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICEDESK_WS_HANDSHAKE_TIMEOUT must be > 0")
	}
	if cfg.MaxCallDuration <= 0 {
		return Config{}, fmt.Errorf("VOICEDESK_MAX_CALL_DURATION must be > 0")
	}
	if cfg.PipelineTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICEDESK_PIPELINE_TIMEOUT must be > 0")
	}
	if cfg.IdleTick <= 0 {
		return Config{}, fmt.Errorf("VOICEDESK_IDLE_TICK must be > 0")
	}
	if cfg.ConversationGrace < 0 {
		return Config{}, fmt.Errorf("VOICEDESK_CONVERSATION_GRACE must be >= 0")
	}
	if cfg.MaxHistoryTurns < 0 {
		return Config{}, fmt.Errorf("VOICEDESK_MAX_HISTORY_TURNS must be >= 0")
	}
	if strings.TrimSpace(cfg.STTBaseURL) == "" {
		return Config{}, fmt.Errorf("VOICEDESK_STT_BASE_URL must not be empty")
	}
	if strings.TrimSpace(cfg.TTSBaseURL) == "" {
		return Config{}, fmt.Errorf("VOICEDESK_TTS_BASE_URL must not be empty")
	}
	if cfg.TTSFallbackBaseURL != "" && cfg.TTSFallbackAPIKey == "" {
		return Config{}, fmt.Errorf("VOICEDESK_TTS_FALLBACK_API_KEY must be set when a fallback base URL is configured")
	}
	if strings.TrimSpace(cfg.RulesPath) == "" {
		return Config{}, fmt.Errorf("VOICEDESK_RULES_PATH must not be empty")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICEDESK_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("VOICEDESK_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
