package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the voice bot service.
type Metrics struct {
	// Inbound audio metrics
	FramesReceived prometheus.Counter
	BytesReceived  prometheus.Counter
	DecodeErrors   prometheus.Counter

	// Outbound audio metrics
	FramesSent prometheus.Counter
	BytesSent  prometheus.Counter

	// Session metrics
	ActiveSessions    prometheus.Gauge
	SessionsCreated   *prometheus.CounterVec
	SessionsDestroyed prometheus.Counter
	SessionsExpired   prometheus.Counter
	SessionDuration   prometheus.Histogram

	// Dialog metrics
	TurnsProcessed      prometheus.Counter
	TurnsUnrecognized   prometheus.Counter
	InterviewsCompleted *prometheus.CounterVec
	TurnDuration        prometheus.Histogram

	// External service metrics
	TranscriptionRequests prometheus.Counter
	TranscriptionFailures prometheus.Counter
	TranscriptionLatency  prometheus.Histogram
	SynthesisRequests     prometheus.Counter
	SynthesisFailures     prometheus.Counter
	SynthesisLatency      prometheus.Histogram

	// HTTP API metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		// Inbound audio metrics
		FramesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_frames_received_total",
			Help: "Total number of inbound audio frames received",
		}),
		BytesReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_audio_bytes_received_total",
			Help: "Total inbound audio bytes received",
		}),
		DecodeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_decode_errors_total",
			Help: "Total number of inbound audio chunks dropped due to decode errors",
		}),

		// Outbound audio metrics
		FramesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_frames_sent_total",
			Help: "Total number of outbound audio frames sent",
		}),
		BytesSent: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_audio_bytes_sent_total",
			Help: "Total outbound audio bytes sent",
		}),

		// Session metrics
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voicebot_active_sessions",
			Help: "Current number of active interview sessions",
		}),
		SessionsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebot_sessions_created_total",
			Help: "Total number of sessions created",
		}, []string{"bot_type", "channel"}),
		SessionsDestroyed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_sessions_destroyed_total",
			Help: "Total number of sessions destroyed",
		}),
		SessionsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_sessions_expired_total",
			Help: "Total number of sessions removed by the inactivity timeout",
		}),
		SessionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicebot_session_duration_seconds",
			Help:    "Duration of interview sessions in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~17 minutes
		}),

		// Dialog metrics
		TurnsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_turns_processed_total",
			Help: "Total number of user turns fully processed",
		}),
		TurnsUnrecognized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_turns_unrecognized_total",
			Help: "Total number of turns that could not be classified as yes or no",
		}),
		InterviewsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebot_interviews_completed_total",
			Help: "Total number of interviews reaching a verdict",
		}, []string{"eligible"}),
		TurnDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicebot_turn_duration_seconds",
			Help:    "End-to-end processing time of one user turn",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~2 minutes
		}),

		// External service metrics
		TranscriptionRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_transcription_requests_total",
			Help: "Total number of transcription requests sent",
		}),
		TranscriptionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_transcription_failures_total",
			Help: "Total number of failed transcription requests",
		}),
		TranscriptionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicebot_transcription_latency_seconds",
			Help:    "Latency of transcription requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		SynthesisRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_synthesis_requests_total",
			Help: "Total number of synthesis requests sent",
		}),
		SynthesisFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicebot_synthesis_failures_total",
			Help: "Total number of failed synthesis requests",
		}),
		SynthesisLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicebot_synthesis_latency_seconds",
			Help:    "Latency of synthesis requests",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),

		// HTTP API metrics
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebot_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "voicebot_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebot_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// RecordFrameReceived counts one inbound audio frame.
func (m *Metrics) RecordFrameReceived(bytes int) {
	m.FramesReceived.Inc()
	m.BytesReceived.Add(float64(bytes))
}

// RecordDecodeError counts a dropped inbound chunk.
func (m *Metrics) RecordDecodeError() {
	m.DecodeErrors.Inc()
}

// RecordFrameSent counts one outbound audio frame.
func (m *Metrics) RecordFrameSent(bytes int) {
	m.FramesSent.Inc()
	m.BytesSent.Add(float64(bytes))
}

// RecordSessionCreated counts a new session on the given channel.
func (m *Metrics) RecordSessionCreated(botType, channel string) {
	m.SessionsCreated.WithLabelValues(botType, channel).Inc()
}

// RecordSessionDestroyed counts a finished session and its duration.
func (m *Metrics) RecordSessionDestroyed(durationSeconds float64) {
	m.SessionsDestroyed.Inc()
	m.SessionDuration.Observe(durationSeconds)
}

// RecordSessionExpired counts a session removed by the inactivity sweep.
func (m *Metrics) RecordSessionExpired() {
	m.SessionsExpired.Inc()
}

// SetActiveSessions sets the current number of live sessions.
func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

// RecordTurn counts one processed turn and its end-to-end duration.
func (m *Metrics) RecordTurn(durationSeconds float64, unrecognized bool) {
	m.TurnsProcessed.Inc()
	m.TurnDuration.Observe(durationSeconds)
	if unrecognized {
		m.TurnsUnrecognized.Inc()
	}
}

// RecordInterviewCompleted counts a finished interview by verdict.
func (m *Metrics) RecordInterviewCompleted(eligible bool) {
	label := "false"
	if eligible {
		label = "true"
	}
	m.InterviewsCompleted.WithLabelValues(label).Inc()
}

// RecordTranscription counts one transcription request.
func (m *Metrics) RecordTranscription(latencySeconds float64, failed bool) {
	m.TranscriptionRequests.Inc()
	m.TranscriptionLatency.Observe(latencySeconds)
	if failed {
		m.TranscriptionFailures.Inc()
	}
}

// RecordSynthesis counts one synthesis request.
func (m *Metrics) RecordSynthesis(latencySeconds float64, failed bool) {
	m.SynthesisRequests.Inc()
	m.SynthesisLatency.Observe(latencySeconds)
	if failed {
		m.SynthesisFailures.Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error.
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
