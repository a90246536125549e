package motion

// Edge is the transition reported for a frame.
type Edge int

const (
	// EdgeNone means the motion state did not change.
	EdgeNone Edge = iota
	// EdgeStarted fires on the first frame with motion after a quiet period.
	EdgeStarted
	// EdgeStopped fires on the first quiet frame after motion.
	EdgeStopped
)

func (e Edge) String() string {
	switch e {
	case EdgeStarted:
		return "started"
	case EdgeStopped:
		return "stopped"
	default:
		return "none"
	}
}

// Hysteresis turns a per-frame presence flag into transitions. A continuously
// active scene yields one EdgeStarted and then EdgeNone until it goes quiet.
type Hysteresis struct {
	active bool
}

// Update feeds one frame's presence flag and returns the resulting edge.
func (h *Hysteresis) Update(present bool) Edge {
	switch {
	case present && !h.active:
		h.active = true
		return EdgeStarted
	case !present && h.active:
		h.active = false
		return EdgeStopped
	default:
		return EdgeNone
	}
}

// Active reports whether the last update saw motion.
func (h *Hysteresis) Active() bool { return h.active }

// Reset forgets the current state without emitting an edge.
func (h *Hysteresis) Reset() { h.active = false }
