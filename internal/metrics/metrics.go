// Package metrics holds the Prometheus instruments of the ingest service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_ingest"

// Metrics contains all Prometheus metrics for the voice ingest service.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	// Session metrics
	ActiveSessions   prometheus.Gauge
	SessionsOpened   prometheus.Counter
	SessionsClosed   *prometheus.CounterVec
	FramesReceived   prometheus.Counter
	FramesDropped    prometheus.Counter
	DegradedSessions prometheus.Counter

	// Chunk metrics
	ChunksDecided *prometheus.CounterVec
	ChunkEnergy   prometheus.Histogram
	ChunkBytes    prometheus.Histogram

	// Provider metrics
	TranscriptionRequests *prometheus.CounterVec
	TranscriptionDuration prometheus.Histogram
	SynthesisRequests     *prometheus.CounterVec
	SynthesisDuration     prometheus.Histogram
	PhraseCacheHits       prometheus.Counter
	ProviderCost          *prometheus.CounterVec

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewRegistry returns a registry preloaded with the Go and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return reg
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Current number of open ingest sessions",
		}),
		SessionsOpened: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_opened_total",
			Help:      "Total number of sessions opened",
		}),
		SessionsClosed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Total number of sessions closed, by reason",
		}, []string{"reason"}),
		FramesReceived: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Total number of PCM frames accepted",
		}),
		FramesDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Total number of frames rejected as malformed",
		}),
		DegradedSessions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_signals_total",
			Help:      "Total number of degraded-transcription signals raised",
		}),
		ChunksDecided: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_total",
			Help:      "Buffered chunks by gate decision",
		}, []string{"decision"}),
		ChunkEnergy: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_mean_square",
			Help:      "Mean-square energy of buffered chunks",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 10),
		}),
		ChunkBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chunk_payload_bytes",
			Help:      "Size of encoded chunk payloads",
			Buckets:   prometheus.ExponentialBuckets(1024, 2, 12),
		}),
		TranscriptionRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_requests_total",
			Help:      "Transcription requests by outcome",
		}, []string{"outcome"}),
		TranscriptionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_duration_seconds",
			Help:      "Duration of transcription requests",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		SynthesisRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "synthesis_requests_total",
			Help:      "Synthesis requests by outcome",
		}, []string{"outcome"}),
		SynthesisDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "synthesis_duration_seconds",
			Help:      "Duration of synthesis requests",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		PhraseCacheHits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phrase_cache_hits_total",
			Help:      "Synthesis requests served from the phrase cache",
		}),
		ProviderCost: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_cost_usd_total",
			Help:      "Estimated provider spend in USD, by kind and model",
		}, []string{"kind", "model"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// SessionOpened records a new session.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsOpened.Inc()
	m.ActiveSessions.Inc()
}

// SessionClosed records a session leaving the table.
func (m *Metrics) SessionClosed(reason string) {
	if m == nil {
		return
	}
	m.SessionsClosed.WithLabelValues(reason).Inc()
	m.ActiveSessions.Dec()
}

// FrameReceived counts an accepted frame.
func (m *Metrics) FrameReceived() {
	if m == nil {
		return
	}
	m.FramesReceived.Inc()
}

// FrameDropped counts a malformed frame.
func (m *Metrics) FrameDropped() {
	if m == nil {
		return
	}
	m.FramesDropped.Inc()
}

// Degraded counts a degraded signal.
func (m *Metrics) Degraded() {
	if m == nil {
		return
	}
	m.DegradedSessions.Inc()
}

// ChunkDecided records a gate decision for a chunk with the given energy.
func (m *Metrics) ChunkDecided(decision string, energy float64) {
	if m == nil {
		return
	}
	m.ChunksDecided.WithLabelValues(decision).Inc()
	m.ChunkEnergy.Observe(energy)
}

// ChunkEncoded records the payload size of a dispatched chunk.
func (m *Metrics) ChunkEncoded(bytes int) {
	if m == nil {
		return
	}
	m.ChunkBytes.Observe(float64(bytes))
}

// Transcription records a finished transcription request.
func (m *Metrics) Transcription(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.TranscriptionRequests.WithLabelValues(outcome).Inc()
	m.TranscriptionDuration.Observe(d.Seconds())
}

// Synthesis records a finished synthesis request.
func (m *Metrics) Synthesis(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.SynthesisRequests.WithLabelValues(outcome).Inc()
	m.SynthesisDuration.Observe(d.Seconds())
}

// PhraseCacheHit counts a phrase served from cache.
func (m *Metrics) PhraseCacheHit() {
	if m == nil {
		return
	}
	m.PhraseCacheHits.Inc()
}

// Cost adds an estimated provider charge.
func (m *Metrics) Cost(kind, model string, usd float64) {
	if m == nil || usd <= 0 {
		return
	}
	m.ProviderCost.WithLabelValues(kind, model).Add(usd)
}

// HTTPRequest records one served HTTP request.
func (m *Metrics) HTTPRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
