// Package capture runs the per-session capture loop: read a frame, detect
// motion, drive the recorder, publish the frame for consumers.
package capture

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hardsoftkoop/hsk-vision/internal/frame"
	"github.com/hardsoftkoop/hsk-vision/internal/logger"
	"github.com/hardsoftkoop/hsk-vision/internal/metrics"
	"github.com/hardsoftkoop/hsk-vision/internal/motion"
	"github.com/hardsoftkoop/hsk-vision/internal/notify"
	"github.com/hardsoftkoop/hsk-vision/internal/recorder"
	"github.com/hardsoftkoop/hsk-vision/internal/source"
)

// DefaultMeasureFrames is the window of the throughput measurement.
const DefaultMeasureFrames = 100

// Session identifies one run of the capture loop.
type Session struct {
	ID      string    `json:"id"`
	Source  string    `json:"source"`
	Camera  string    `json:"camera"`
	Started time.Time `json:"started"`
}

// Opener opens a source by identifier.
type Opener func(identifier string) (source.Source, error)

// Notifier receives motion alerts. Dispatch must not block.
type Notifier interface {
	Dispatch(msg notify.Message) bool
}

// Detector turns frames into motion edges. *motion.Detector is the
// production implementation; a session gets a fresh one.
type Detector interface {
	Detect(f *frame.Frame) motion.Result
	// Reset re-arms the start edge and keeps the background.
	Reset()
	// ResetModel forgets the background as well.
	ResetModel()
}

// Options configures a Worker.
type Options struct {
	Buffer *frame.Buffer
	Open   Opener

	Motion        motion.Config
	MotionEnabled bool
	// NewDetector builds the per-session detector. Defaults to motion.New.
	NewDetector func(motion.Config) Detector

	// Recorder is the template for each session's recorder. Callbacks are
	// installed by the worker, and the logger is tagged with the session.
	Recorder recorder.Options

	MeasureFrames int

	// Camera labels alerts. Empty uses the source identifier.
	Camera string
	// Host names this machine in alerts. Empty uses os.Hostname.
	Host     string
	Notifier Notifier

	Logger *logrus.Entry
	// OnEvent is called on the capture goroutine. It must not block or call
	// back into the worker.
	OnEvent func(Event)
	// Now is the clock used for throughput measurement.
	Now func() time.Time
}

// Worker owns at most one capture goroutine at a time.
type Worker struct {
	opts Options

	mu      sync.Mutex
	session *Session
	rec     *recorder.Recorder
	done    chan struct{}

	stop          atomic.Bool
	motionEnabled atomic.Bool
	forceStop     atomic.Bool
	relearn       atomic.Bool
	measure       atomic.Bool
	fpsBits       atomic.Uint64
	frames        atomic.Uint64
}

// NewWorker returns an idle worker.
func NewWorker(opts Options) *Worker {
	if opts.Buffer == nil {
		opts.Buffer = frame.NewBuffer()
	}
	if opts.Open == nil {
		opts.Open = func(id string) (source.Source, error) { return source.Open(id, source.Options{}) }
	}
	if opts.NewDetector == nil {
		opts.NewDetector = func(cfg motion.Config) Detector { return motion.New(cfg) }
	}
	if opts.MeasureFrames < 1 {
		opts.MeasureFrames = DefaultMeasureFrames
	}
	if opts.Host == "" {
		opts.Host, _ = os.Hostname()
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logger.Discard())
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	w := &Worker{opts: opts}
	w.motionEnabled.Store(opts.MotionEnabled)
	return w
}

// Buffer returns the buffer frames are published to.
func (w *Worker) Buffer() *frame.Buffer { return w.opts.Buffer }

// Start opens identifier and runs the capture loop on a new goroutine. A
// running loop is stopped first. An unavailable source is returned as an
// error and no goroutine is started.
func (w *Worker) Start(identifier string) (Session, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.stopLocked()

	src, err := w.opts.Open(identifier)
	if err != nil {
		return Session{}, err
	}

	camera := w.opts.Camera
	if camera == "" {
		camera = identifier
	}
	sess := Session{
		ID:      uuid.NewString(),
		Source:  identifier,
		Camera:  camera,
		Started: time.Now(),
	}
	log := w.opts.Logger.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"source":     identifier,
	})

	recOpts := w.opts.Recorder
	recLog := recOpts.Logger
	if recLog == nil {
		recLog = w.opts.Logger.WithField("component", "recorder")
	}
	recOpts.Logger = recLog.WithFields(logrus.Fields{
		"session_id": sess.ID,
		"source":     identifier,
	})
	recOpts.OnSaved = func(basename string) {
		w.emit(Event{Kind: EventVideoSaved, Session: sess.ID, Basename: basename})
	}
	recOpts.OnAborted = func(basename string, err error) {
		w.emit(Event{Kind: EventRecordingAborted, Session: sess.ID, Basename: basename, Reason: err.Error()})
	}
	rec := recorder.New(recOpts)
	if fps := w.MeasuredFPS(); fps > 0 {
		rec.SetMeasuredFPS(fps)
	}

	w.stop.Store(false)
	w.forceStop.Store(false)
	w.relearn.Store(false)
	w.frames.Store(0)
	w.opts.Buffer.Reset()

	done := make(chan struct{})
	w.session = &sess
	w.rec = rec
	w.done = done

	kind := "unknown"
	if t, err := source.Parse(identifier); err == nil {
		kind = t.Kind.String()
	}

	log.Info("Capture started")
	metrics.SetCaptureActive(true)
	go w.run(loop{
		src:      src,
		session:  sess,
		kind:     kind,
		rec:      rec,
		detector: w.opts.NewDetector(w.opts.Motion),
		log:      log,
		done:     done,
	})
	return sess, nil
}

// Stop ends the capture loop and waits for it to exit. It reports whether a
// loop was running.
func (w *Worker) Stop() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopLocked()
}

func (w *Worker) stopLocked() bool {
	if w.done == nil {
		return false
	}
	running := !closed(w.done)
	w.stop.Store(true)
	<-w.done
	w.done = nil
	return running
}

// Running reports whether the capture loop is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done != nil && !closed(w.done)
}

// SetMotionDetection switches motion detection. Switching it off ends any
// recording in progress. Switching it back on relearns the background, which
// went stale while no frames were modeled.
func (w *Worker) SetMotionDetection(enabled bool) {
	was := w.motionEnabled.Swap(enabled)
	switch {
	case was && !enabled:
		w.forceStop.Store(true)
	case !was && enabled:
		w.relearn.Store(true)
	}
}

// MotionDetection reports whether motion detection is on.
func (w *Worker) MotionDetection() bool { return w.motionEnabled.Load() }

// StopRecording ends the current recording and re-arms the motion edge, so a
// scene that is still moving starts a new file on the next frame.
func (w *Worker) StopRecording() { w.forceStop.Store(true) }

// MeasureFPS requests a one-shot throughput measurement over the next
// MeasureFrames frames. The result arrives as an EventFPSMeasured.
func (w *Worker) MeasureFPS() { w.measure.Store(true) }

// MeasuredFPS returns the last measurement, or zero.
func (w *Worker) MeasuredFPS() float64 {
	return math.Float64frombits(w.fpsBits.Load())
}

// Status is a snapshot of the worker.
type Status struct {
	Running       bool     `json:"running"`
	Session       *Session `json:"session,omitempty"`
	MotionEnabled bool     `json:"motion_enabled"`
	Recording     string   `json:"recording"`
	MeasuredFPS   float64  `json:"measured_fps,omitempty"`
	Frames        uint64   `json:"frames"`
}

func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()

	st := Status{
		Running:       w.done != nil && !closed(w.done),
		MotionEnabled: w.motionEnabled.Load(),
		Recording:     recorder.StateStopped.String(),
		MeasuredFPS:   w.MeasuredFPS(),
		Frames:        w.frames.Load(),
	}
	if w.session != nil {
		s := *w.session
		st.Session = &s
	}
	if w.rec != nil {
		st.Recording = w.rec.State().String()
	}
	return st
}

type loop struct {
	src      source.Source
	session  Session
	kind     string
	rec      *recorder.Recorder
	detector Detector
	log      *logrus.Entry
	done     chan struct{}
}

// measurement counts frames for MeasureFPS.
type measurement struct {
	active bool
	start  time.Time
	count  int
}

func (w *Worker) run(l loop) {
	reason := "stopped"
	defer func() {
		if c, ok := l.detector.(io.Closer); ok {
			if err := c.Close(); err != nil {
				l.log.WithError(err).Warn("Failed to release motion detector")
			}
		}
		if err := l.rec.Close(); err != nil {
			l.log.WithError(err).Warn("Failed to close recorder")
		}
		if err := l.src.Close(); err != nil {
			l.log.WithError(err).Warn("Failed to close source")
		}
		metrics.SetCaptureActive(false)
		l.log.WithField("reason", reason).Info("Capture stopped")
		w.emit(Event{Kind: EventStopped, Session: l.session.ID, Reason: reason})
		close(l.done)
	}()

	var meas measurement
	for !w.stop.Load() {
		f, err := l.src.Read()
		if errors.Is(err, source.ErrEndOfStream) {
			reason = "end of stream"
			return
		}
		if err != nil {
			l.log.WithError(err).Error("Failed to read frame")
			metrics.IncrementReadErrors(l.kind)
			reason = fmt.Sprintf("read error: %v", err)
			return
		}
		metrics.IncrementFramesCaptured(l.kind)

		if w.forceStop.Swap(false) {
			l.rec.Handle(recorder.EventForceStop)
			l.detector.Reset()
		}

		if w.relearn.Swap(false) {
			l.detector.ResetModel()
		}
		if w.motionEnabled.Load() {
			w.detect(l, &f)
		}

		if err := l.rec.Step(f); err != nil {
			l.log.WithError(err).Warn("Recording step failed")
		}

		f = f.ToRGB()
		w.opts.Buffer.Publish(f)
		w.frames.Add(1)
		w.emit(Event{Kind: EventFramePublished, Session: l.session.ID, Seq: f.Seq})

		w.measureStep(l, &meas)
	}
}

func (w *Worker) detect(l loop, f *frame.Frame) {
	res := l.detector.Detect(f)
	switch res.Edge {
	case motion.EdgeStarted:
		l.rec.Handle(recorder.EventMotionStarted)
		metrics.IncrementMotionEvent(res.Edge.String())
		l.log.WithField("regions", len(res.Regions)).Info("Motion started")
		w.emit(Event{Kind: EventMotionStarted, Session: l.session.ID, Seq: f.Seq})
		if w.opts.Notifier != nil {
			w.opts.Notifier.Dispatch(notify.Message{
				Camera:  l.session.Camera,
				Host:    w.opts.Host,
				Session: l.session.ID,
				Time:    time.Now(),
			})
		}
	case motion.EdgeStopped:
		l.rec.Handle(recorder.EventMotionStopped)
		metrics.IncrementMotionEvent(res.Edge.String())
		l.log.Info("Motion stopped")
		w.emit(Event{Kind: EventMotionStopped, Session: l.session.ID, Seq: f.Seq})
	}
}

func (w *Worker) measureStep(l loop, m *measurement) {
	if !m.active {
		if w.measure.Swap(false) {
			m.active = true
			m.count = 0
			m.start = w.opts.Now()
		}
		return
	}

	m.count++
	if m.count < w.opts.MeasureFrames {
		return
	}
	m.active = false

	elapsed := w.opts.Now().Sub(m.start).Seconds()
	if elapsed <= 0 {
		l.log.Warn("Throughput measurement elapsed no time")
		return
	}
	fps := float64(m.count) / elapsed
	w.fpsBits.Store(math.Float64bits(fps))
	l.rec.SetMeasuredFPS(fps)
	metrics.SetMeasuredFPS(fps)
	l.log.WithField("fps", fps).Info("Throughput measured")
	w.emit(Event{Kind: EventFPSMeasured, Session: l.session.ID, FPS: fps})
}

func (w *Worker) emit(e Event) {
	if w.opts.OnEvent == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	w.opts.OnEvent(e)
}

func closed(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
