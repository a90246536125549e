package metrics

import "time"

// IncrementFramesCaptured counts one frame read from a source of the given kind.
func IncrementFramesCaptured(kind string) {
	framesCapturedTotal.WithLabelValues(kind).Inc()
}

// IncrementReadErrors counts one failed source read.
func IncrementReadErrors(kind string) {
	readErrorsTotal.WithLabelValues(kind).Inc()
}

// SetCaptureActive flips the capture gauge.
func SetCaptureActive(active bool) {
	if active {
		captureActive.Set(1)
		return
	}
	captureActive.Set(0)
}

// SetMeasuredFPS records the latest measurement.
func SetMeasuredFPS(fps float64) {
	measuredFPS.Set(fps)
}

// AddFramesDropped adds frames lost by slow subscribers.
func AddFramesDropped(n uint64) {
	framesDroppedTotal.Add(float64(n))
}

// IncrementMotionEvent counts a motion edge ("started" or "stopped").
func IncrementMotionEvent(edge string) {
	motionEventsTotal.WithLabelValues(edge).Inc()
}

// SetRecorderState publishes the numeric recorder state.
func SetRecorderState(state int) {
	recorderState.Set(float64(state))
}

// IncrementRecordings counts a finished recording.
func IncrementRecordings(outcome string) {
	recordingsTotal.WithLabelValues(outcome).Inc()
}

// IncrementRecordedFrames counts one frame appended to a video.
func IncrementRecordedFrames() {
	recordedFramesTotal.Inc()
}

// IncrementNotifications counts a delivery attempt.
func IncrementNotifications(notifier, outcome string) {
	notificationsTotal.WithLabelValues(notifier, outcome).Inc()
}

// ObserveTextDetect records one network run and the regions it kept.
func ObserveTextDetect(d time.Duration, regions int) {
	textDetectDuration.Observe(d.Seconds())
	textRegionsTotal.Add(float64(regions))
}

// IncrementToolCalls counts one tool invocation.
func IncrementToolCalls(tool, outcome string) {
	toolCallsTotal.WithLabelValues(tool, outcome).Inc()
}
