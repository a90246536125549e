package source

import (
	"image"
	"sync"

	"github.com/hardsoftkoop/hsk-vision/internal/frame"
)

// Memory serves a fixed list of frames. It is used to drive the pipeline from
// frames that are already decoded, such as a still loaded by the control
// server, and by tests.
type Memory struct {
	mu     sync.Mutex
	frames []frame.Frame
	next   int
	closed bool
	onRead func(n int)
}

// NewMemory returns a source that yields frames in order and then reports
// ErrEndOfStream.
func NewMemory(frames ...frame.Frame) *Memory {
	return &Memory{frames: frames}
}

// OnRead installs a hook called before each read with the zero-based index of
// the frame about to be returned.
func (m *Memory) OnRead(fn func(n int)) {
	m.mu.Lock()
	m.onRead = fn
	m.mu.Unlock()
}

func (m *Memory) Read() (frame.Frame, error) {
	m.mu.Lock()
	hook := m.onRead
	n := m.next
	if m.closed || n >= len(m.frames) {
		m.mu.Unlock()
		return frame.Frame{}, ErrEndOfStream
	}
	m.next++
	f := m.frames[n].Clone()
	m.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	if f.Seq == 0 {
		f.Seq = uint64(n + 1)
	}
	return f, nil
}

func (m *Memory) Size() image.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return image.Point{}
	}
	return m.frames[0].Size()
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
