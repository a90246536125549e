// Package metrics exposes Prometheus instruments for the capture pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Capture loop
	framesCapturedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hskvision_frames_captured_total",
		Help: "Frames read from the capture source",
	}, []string{"kind"})

	readErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hskvision_source_read_errors_total",
		Help: "Failed reads from the capture source",
	}, []string{"kind"})

	captureActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hskvision_capture_active",
		Help: "1 while a capture session is running",
	})

	measuredFPS = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hskvision_measured_fps",
		Help: "Most recent frame rate measurement",
	})

	framesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hskvision_subscriber_frames_dropped_total",
		Help: "Frames overwritten in a subscriber mailbox before being read",
	})

	// Motion
	motionEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hskvision_motion_events_total",
		Help: "Motion edges observed",
	}, []string{"edge"})

	// Recorder
	recorderState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hskvision_recorder_state",
		Help: "Recorder state (0 stopped, 1 starting, 2 started, 3 stopping)",
	})

	recordingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hskvision_recordings_total",
		Help: "Finished recordings by outcome",
	}, []string{"outcome"})

	recordedFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hskvision_recorded_frames_total",
		Help: "Frames appended to video files",
	})

	// Notifications
	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hskvision_notifications_total",
		Help: "Notification deliveries by notifier and outcome",
	}, []string{"notifier", "outcome"})

	// Text detection
	textDetectDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hskvision_text_detect_duration_seconds",
		Help:    "Time spent running the text detection network",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
	})

	textRegionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hskvision_text_regions_total",
		Help: "Text regions kept after suppression",
	})

	// Tool calls
	toolCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hskvision_tool_calls_total",
		Help: "Tool invocations by name and outcome",
	}, []string{"tool", "outcome"})
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
	OutcomeSaved   = "saved"
	OutcomeAborted = "aborted"
	OutcomeDropped = "dropped"
)
