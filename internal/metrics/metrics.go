// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gateway_sessions_active",
		Help: "Currently active media sessions",
	})

	SessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_sessions_total",
		Help: "Total sessions created",
	})

	FramesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_frames_received_total",
		Help: "Frames received by track kind",
	}, []string{"kind"})

	FramesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_frames_dropped_total",
		Help: "Frames dropped by the bounded buffer by track kind",
	}, []string{"kind"})

	FramesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_video_frames_processed_total",
		Help: "Video frames that completed the pipeline",
	})

	DetectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_detections_total",
		Help: "Total wound detections emitted",
	})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_inference_duration_seconds",
		Help:    "Inference call latency by backend",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1.0, 2.0},
	}, []string{"backend"})

	InferenceErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_inference_errors_total",
		Help: "Inference failures by backend and error type",
	}, []string{"backend", "error_type"})

	AudioWindowsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gateway_audio_windows_processed_total",
		Help: "Audio windows that completed acoustic analysis",
	})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gateway_acoustic_analysis_duration_seconds",
		Help:    "Acoustic window analysis latency",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1.0},
	})

	EventsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_events_emitted_total",
		Help: "Events successfully sent over the data channel, by type",
	}, []string{"event_type"})

	EventsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_events_skipped_total",
		Help: "Events dropped because the data channel was not open, by type",
	}, []string{"event_type"})

	WorkerPoolActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "gateway_workerpool_active_slots",
		Help: "In-use slots in a shared CPU-bound worker pool, by pool name",
	}, []string{"pool"})
)
