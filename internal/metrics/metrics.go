package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the ASR service.
type Metrics struct {
	SessionsActive  prometheus.Gauge
	SessionsStarted prometheus.Counter
	SessionsStopped prometheus.Counter

	WorkersSpawned prometheus.Counter
	WorkersFree    prometheus.Gauge

	FramesReceived  prometheus.Counter
	FramesConverted prometheus.Counter
	FrameErrors     prometheus.Counter

	TextCaptured   prometheus.Counter
	EmptyResults   prometheus.Counter
	ResultTimeouts prometheus.Counter
	EngineFailures prometheus.Counter

	FinalizeDuration   prometheus.Histogram
	TranscribeDuration prometheus.Histogram
}

// New creates and registers all metrics against the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "asr_sessions_active",
			Help: "Current number of active transcription sessions",
		}),
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "asr_sessions_started_total",
			Help: "Total number of sessions started",
		}),
		SessionsStopped: factory.NewCounter(prometheus.CounterOpts{
			Name: "asr_sessions_stopped_total",
			Help: "Total number of sessions stopped",
		}),
		WorkersSpawned: factory.NewCounter(prometheus.CounterOpts{
			Name: "asr_workers_spawned_total",
			Help: "Total number of transcription workers created",
		}),
		WorkersFree: factory.NewGauge(prometheus.GaugeOpts{
			Name: "asr_workers_free",
			Help: "Current number of idle pooled workers",
		}),
		FramesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "asr_frames_received_total",
			Help: "Total number of audio frames routed to sessions",
		}),
		FramesConverted: factory.NewCounter(prometheus.CounterOpts{
			Name: "asr_frames_converted_total",
			Help: "Total number of frames reformatted by the external converter",
		}),
		FrameErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "asr_frame_errors_total",
			Help: "Total number of per-frame processing errors",
		}),
		TextCaptured: factory.NewCounter(prometheus.CounterOpts{
			Name: "asr_text_captured_total",
			Help: "Total number of transcription results emitted",
		}),
		EmptyResults: factory.NewCounter(prometheus.CounterOpts{
			Name: "asr_empty_results_total",
			Help: "Total number of sessions finalized with an empty transcript",
		}),
		ResultTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "asr_result_timeouts_total",
			Help: "Total number of finalizations that timed out waiting for a result",
		}),
		EngineFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "asr_engine_failures_total",
			Help: "Total number of engine errors inside worker loops",
		}),
		FinalizeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_finalize_duration_seconds",
			Help:    "Time spent finalizing a session, including the result wait",
			Buckets: prometheus.DefBuckets,
		}),
		TranscribeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "asr_transcribe_duration_seconds",
			Help:    "Engine time per transcribed stream",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
