package capture

import "time"

// EventKind names what happened in the capture loop.
type EventKind string

const (
	EventFramePublished   EventKind = "frame-published"
	EventFPSMeasured      EventKind = "fps-measured"
	EventMotionStarted    EventKind = "motion-started"
	EventMotionStopped    EventKind = "motion-stopped"
	EventVideoSaved       EventKind = "video-saved"
	EventRecordingAborted EventKind = "recording-aborted"
	EventStopped          EventKind = "stopped"
)

// Event is delivered to Options.OnEvent. Only the fields relevant to Kind
// are set.
type Event struct {
	Kind     EventKind `json:"kind"`
	Session  string    `json:"session"`
	Time     time.Time `json:"time"`
	Seq      uint64    `json:"seq,omitempty"`
	FPS      float64   `json:"fps,omitempty"`
	Basename string    `json:"basename,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}
