// Package metrics exposes the gateway's Prometheus instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the gateway.
type Metrics struct {
	registry *prometheus.Registry

	// Call metrics
	CallsActive  prometheus.Gauge
	CallsTotal   *prometheus.CounterVec
	CallDuration prometheus.Histogram

	// Pipeline metrics
	UtterancesTotal   *prometheus.CounterVec
	PipelineDuration  *prometheus.HistogramVec
	PipelineErrors    *prometheus.CounterVec
	TTSFallbacksTotal prometheus.Counter
	BargeInsTotal     prometheus.Counter

	// Audio metrics
	AudioBytesTotal *prometheus.CounterVec
}

// New creates a Metrics instance with all metrics registered on a private
// registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "voicedesk"
	}

	registry := prometheus.NewRegistry()

	callsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "calls_active",
			Help:      "Number of calls currently streaming",
		},
	)

	callsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total number of calls handled",
		},
		[]string{"status"},
	)

	callDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Call duration in seconds",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	utterancesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "utterances_total",
			Help:      "Caller utterances flushed into the pipeline",
		},
		[]string{"outcome"},
	)

	pipelineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each pipeline stage",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"stage"},
	)

	pipelineErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_errors_total",
			Help:      "Pipeline failures by stage",
		},
		[]string{"stage"},
	)

	ttsFallbacksTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tts_fallbacks_total",
			Help:      "Times synthesis fell back to the secondary provider",
		},
	)

	bargeInsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "barge_ins_total",
			Help:      "Times a caller interrupted playback",
		},
	)

	audioBytesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_total",
			Help:      "Audio bytes moved over media streams",
		},
		[]string{"direction"},
	)

	registry.MustRegister(
		callsActive,
		callsTotal,
		callDuration,
		utterancesTotal,
		pipelineDuration,
		pipelineErrors,
		ttsFallbacksTotal,
		bargeInsTotal,
		audioBytesTotal,
	)

	return &Metrics{
		registry:          registry,
		CallsActive:       callsActive,
		CallsTotal:        callsTotal,
		CallDuration:      callDuration,
		UtterancesTotal:   utterancesTotal,
		PipelineDuration:  pipelineDuration,
		PipelineErrors:    pipelineErrors,
		TTSFallbacksTotal: ttsFallbacksTotal,
		BargeInsTotal:     bargeInsTotal,
		AudioBytesTotal:   audioBytesTotal,
	}
}

// Handler returns the HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCallStart records a call going live.
func (m *Metrics) RecordCallStart() {
	if m == nil {
		return
	}
	m.CallsActive.Inc()
}

// RecordCallEnd records a call finishing.
func (m *Metrics) RecordCallEnd(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CallsActive.Dec()
	m.CallsTotal.WithLabelValues(status).Inc()
	m.CallDuration.Observe(duration.Seconds())
}

// RecordUtterance records one flushed utterance and its fate.
func (m *Metrics) RecordUtterance(outcome string) {
	if m == nil {
		return
	}
	m.UtterancesTotal.WithLabelValues(outcome).Inc()
}

// RecordStage records one pipeline stage's latency.
func (m *Metrics) RecordStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.PipelineDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordStageError records a pipeline stage failure.
func (m *Metrics) RecordStageError(stage string) {
	if m == nil {
		return
	}
	m.PipelineErrors.WithLabelValues(stage).Inc()
}

// RecordBargeIn records a caller interrupting playback.
func (m *Metrics) RecordBargeIn() {
	if m == nil {
		return
	}
	m.BargeInsTotal.Inc()
}

// RecordAudioBytes records audio volume in one direction.
func (m *Metrics) RecordAudioBytes(direction string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.AudioBytesTotal.WithLabelValues(direction).Add(float64(n))
}

// RecordTTSFallback records a fallback synthesis.
func (m *Metrics) RecordTTSFallback() {
	if m == nil {
		return
	}
	m.TTSFallbacksTotal.Inc()
}
