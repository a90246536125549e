package recorder

// State is the recording lifecycle. The writer is open only in StateStarted
// and StateStopping.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateStarted
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateStarted:
		return "started"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Event drives a state transition.
type Event int

const (
	// EventMotionStarted and EventMotionStopped mirror the detector edges.
	EventMotionStarted Event = iota
	EventMotionStopped
	// EventForceStop ends the current recording regardless of motion, e.g.
	// when motion detection is switched off.
	EventForceStop

	// Outcomes of the recorder's own side effects.
	EventOpened
	EventOpenFailed
	EventClosed
	EventAborted
)

func (e Event) String() string {
	switch e {
	case EventMotionStarted:
		return "motion-started"
	case EventMotionStopped:
		return "motion-stopped"
	case EventForceStop:
		return "force-stop"
	case EventOpened:
		return "opened"
	case EventOpenFailed:
		return "open-failed"
	case EventClosed:
		return "closed"
	case EventAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Next returns the state that follows s on e. Pairs without a transition
// leave the state unchanged.
func Next(s State, e Event) State {
	switch e {
	case EventMotionStarted:
		if s == StateStopped || s == StateStopping {
			return StateStarting
		}
	case EventMotionStopped, EventForceStop:
		if s == StateStarting || s == StateStarted {
			return StateStopping
		}
	case EventOpened:
		if s == StateStarting {
			return StateStarted
		}
	case EventOpenFailed:
		if s == StateStarting {
			return StateStopped
		}
	case EventClosed:
		if s == StateStopping {
			return StateStopped
		}
	case EventAborted:
		return StateStopped
	}
	return s
}
