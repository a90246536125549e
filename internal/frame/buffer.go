package frame

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Subscription.Next once the subscription or its
// buffer has been closed.
var ErrClosed = errors.New("frame buffer closed")

// Buffer is a single-slot holder for the most recently published frame.
//
// Publish and Latest copy outside the lock and only swap the held frame
// under it, so a frame handed to a reader is never touched by a later Publish.
type Buffer struct {
	mu        sync.Mutex
	latest    Frame
	has       bool
	closed    bool
	published uint64
	subs      map[*Subscription]struct{}
}

// Stats is a snapshot of buffer counters.
type Stats struct {
	Published   uint64 `json:"published"`
	Subscribers int    `json:"subscribers"`
	Dropped     uint64 `json:"dropped"`
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{subs: make(map[*Subscription]struct{})}
}

// Publish replaces the held frame with a private copy of f and offers that
// copy to every subscriber. It never blocks on readers. The copy is made
// before the lock is taken; the held frame is never modified afterwards.
func (b *Buffer) Publish(f Frame) {
	owned := f.Clone()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.latest = owned
	b.has = true
	b.published++
	for s := range b.subs {
		s.offer(owned)
	}
}

// Latest returns a copy of the newest frame. The boolean is false until the
// first Publish.
func (b *Buffer) Latest() (Frame, bool) {
	b.mu.Lock()
	held, ok := b.latest, b.has
	b.mu.Unlock()
	if !ok {
		return Frame{}, false
	}
	return held.Clone(), true
}

// Reset forgets the held frame, typically when a capture session ends.
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.latest = Frame{}
	b.has = false
	b.mu.Unlock()
}

// Subscribe registers a drop-oldest mailbox that receives every published
// frame the reader manages to keep up with.
func (b *Buffer) Subscribe() *Subscription {
	s := &Subscription{
		ch:   make(chan Frame, 1),
		done: make(chan struct{}),
		buf:  b,
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.closeLocked()
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Stats returns current counters, including drops summed over live
// subscriptions.
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := Stats{Published: b.published, Subscribers: len(b.subs)}
	for s := range b.subs {
		st.Dropped += s.dropped
	}
	return st
}

// Close releases all subscribers. Later publishes are ignored.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.closeLocked()
		delete(b.subs, s)
	}
}

// Subscription is a single-slot mailbox fed by a Buffer. Only one goroutine
// should call Next.
type Subscription struct {
	ch      chan Frame
	done    chan struct{}
	buf     *Buffer
	dropped uint64 // guarded by buf.mu
	closed  bool   // guarded by buf.mu
}

// offer must be called with buf.mu held. The publisher is the only sender, so
// after draining a stale frame the send cannot block.
func (s *Subscription) offer(f Frame) {
	select {
	case s.ch <- f:
		return
	default:
	}
	select {
	case <-s.ch:
		s.dropped++
	default:
	}
	select {
	case s.ch <- f:
	default:
		s.dropped++
	}
}

// Next blocks until a frame is available, the context ends or the
// subscription is closed. The frame is shared with other readers and must
// not be modified; Clone it first.
func (s *Subscription) Next(ctx context.Context) (Frame, error) {
	select {
	case f := <-s.ch:
		return f, nil
	default:
	}
	select {
	case f := <-s.ch:
		return f, nil
	case <-s.done:
		return Frame{}, ErrClosed
	case <-ctx.Done():
		return Frame{}, ctx.Err()
	}
}

// Dropped returns how many frames were overwritten before this subscriber
// consumed them.
func (s *Subscription) Dropped() uint64 {
	s.buf.mu.Lock()
	defer s.buf.mu.Unlock()
	return s.dropped
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.buf.mu.Lock()
	defer s.buf.mu.Unlock()
	s.closeLocked()
	delete(s.buf.subs, s)
}

func (s *Subscription) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}
