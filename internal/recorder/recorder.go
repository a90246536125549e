// Package recorder turns motion edges into video files. Each motion period
// produces a cover still (<basename>.jpg) and a Motion-JPEG video
// (<basename>.avi) in the media directory.
package recorder

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"github.com/hardsoftkoop/hsk-vision/internal/frame"
	"github.com/hardsoftkoop/hsk-vision/internal/logger"
	"github.com/hardsoftkoop/hsk-vision/internal/metrics"
)

// BasenameLayout names recordings after their start time.
const BasenameLayout = "2006-01-02+15:04:05"

// DefaultFPS is used when no rate was configured or measured.
const DefaultFPS = 30.0

// ErrWriterOpen is returned by Step when the video file could not be opened.
// The recorder is back in StateStopped and capture can continue.
var ErrWriterOpen = errors.New("video writer could not be opened")

// DimensionMismatchError reports a frame whose size differs from the one the
// writer was opened with.
type DimensionMismatchError struct {
	Want image.Point
	Got  image.Point
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("frame size %dx%d does not match recording size %dx%d",
		e.Got.X, e.Got.Y, e.Want.X, e.Want.Y)
}

// Options configures a Recorder.
type Options struct {
	// MediaDir receives the output files. It is created on first use.
	MediaDir string
	// FPS fixes the output rate. Zero uses the measured rate, else DefaultFPS.
	FPS float64
	// CoverQuality is the JPEG quality of the cover still.
	CoverQuality int
	// NewWriter opens the video file. Defaults to the MJPEG AVI writer.
	NewWriter WriterFactory

	Logger *logrus.Entry
	// Now is the clock used for basenames.
	Now func() time.Time

	// OnSaved is called after a recording was closed normally.
	OnSaved func(basename string)
	// OnAborted is called after a recording was discarded.
	OnAborted func(basename string, err error)
}

// DefaultMediaDir returns $HOME/Videos/Gazer.
func DefaultMediaDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, "Videos", "Gazer"), nil
}

// Recorder executes the side effects of the recording state machine. Step
// and Handle must be called from a single goroutine; State may be read from
// any goroutine.
type Recorder struct {
	opts  Options
	state atomic.Int32

	writer      VideoWriter
	size        image.Point
	basename    string
	measuredFPS float64
	frames      int
	// flush appends the current frame before closing. Set when motion
	// stopped, cleared by a forced stop.
	flush bool
}

// New returns a stopped recorder.
func New(opts Options) *Recorder {
	if opts.CoverQuality <= 0 {
		opts.CoverQuality = 90
	}
	if opts.NewWriter == nil {
		opts.NewWriter = NewMJPEGWriterFactory(opts.CoverQuality)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logger.Discard())
	}
	return &Recorder{opts: opts}
}

// State returns the current state.
func (r *Recorder) State() State { return State(r.state.Load()) }

func (r *Recorder) setState(s State) {
	r.state.Store(int32(s))
	metrics.SetRecorderState(int(s))
}

// Handle applies e to the current state and returns the new state.
func (r *Recorder) Handle(e Event) State {
	from := r.State()
	to := Next(from, e)
	switch {
	case e == EventForceStop:
		r.flush = false
	case to != from:
		r.flush = to == StateStopping && e == EventMotionStopped
	}
	if to != from {
		r.opts.Logger.WithFields(logrus.Fields{
			"event": e.String(),
			"from":  from.String(),
			"to":    to.String(),
		}).Debug("Recorder transition")
		r.setState(to)
	}
	return to
}

// Basename returns the basename of the current or last recording.
func (r *Recorder) Basename() string { return r.basename }

// SetMeasuredFPS sets the rate used when no rate is configured.
func (r *Recorder) SetMeasuredFPS(fps float64) { r.measuredFPS = fps }

// FPS returns the rate the next recording will be opened with.
func (r *Recorder) FPS() float64 {
	switch {
	case r.opts.FPS > 0:
		return r.opts.FPS
	case r.measuredFPS > 0:
		return r.measuredFPS
	default:
		return DefaultFPS
	}
}

// Step performs the work of the current state for f. Errors concern only the
// recording; the recorder is always left in a consistent state.
func (r *Recorder) Step(f frame.Frame) error {
	switch r.State() {
	case StateStarting:
		if err := r.open(f); err != nil {
			r.Handle(EventOpenFailed)
			return err
		}
		r.Handle(EventOpened)
		return r.write(f)
	case StateStarted:
		return r.write(f)
	case StateStopping:
		if r.flush {
			r.flush = false
			if err := r.write(f); err != nil {
				return err
			}
		}
		err := r.finish()
		r.Handle(EventClosed)
		return err
	}
	return nil
}

// Close finishes any open recording and stops the recorder. It is safe to
// call repeatedly.
func (r *Recorder) Close() error {
	err := r.finish()
	r.setState(StateStopped)
	return err
}

func (r *Recorder) open(f frame.Frame) error {
	// A restart from StateStopping still holds the previous file.
	if r.writer != nil {
		if err := r.finish(); err != nil {
			r.opts.Logger.WithError(err).Warn("Failed to close previous recording")
		}
	}

	if err := os.MkdirAll(r.opts.MediaDir, 0o755); err != nil {
		return fmt.Errorf("%w: create media dir: %v", ErrWriterOpen, err)
	}

	r.basename = r.nextBasename(r.opts.Now())
	log := r.opts.Logger.WithField("basename", r.basename)

	cover := r.path(".jpg")
	if err := imaging.Save(f.Image(), cover, imaging.JPEGQuality(r.opts.CoverQuality)); err != nil {
		log.WithError(err).Warn("Failed to write cover image")
	}

	fps := r.FPS()
	w, err := r.opts.NewWriter(r.path(".avi"), f.Size(), fps)
	if err != nil {
		log.WithError(err).Error("Failed to open video writer")
		return fmt.Errorf("%w: %v", ErrWriterOpen, err)
	}

	r.writer = w
	r.size = f.Size()
	r.frames = 0
	log.WithFields(logrus.Fields{
		"width":  r.size.X,
		"height": r.size.Y,
		"fps":    fps,
	}).Info("Recording started")
	return nil
}

func (r *Recorder) write(f frame.Frame) error {
	if r.writer == nil {
		return nil
	}
	if got := f.Size(); got != r.size {
		err := &DimensionMismatchError{Want: r.size, Got: got}
		r.abort(err)
		return err
	}
	if err := r.writer.WriteFrame(f); err != nil {
		err = fmt.Errorf("write frame: %w", err)
		r.abort(err)
		return err
	}
	r.frames++
	metrics.IncrementRecordedFrames()
	return nil
}

// finish closes the writer and reports the recording as saved.
func (r *Recorder) finish() error {
	if r.writer == nil {
		return nil
	}
	err := r.writer.Close()
	r.writer = nil

	log := r.opts.Logger.WithFields(logrus.Fields{
		"basename": r.basename,
		"frames":   r.frames,
	})
	if err != nil {
		log.WithError(err).Error("Failed to finalize recording")
		metrics.IncrementRecordings(metrics.OutcomeError)
		return fmt.Errorf("close %s: %w", r.basename, err)
	}
	log.Info("Recording saved")
	metrics.IncrementRecordings(metrics.OutcomeSaved)
	if r.opts.OnSaved != nil {
		r.opts.OnSaved(r.basename)
	}
	return nil
}

// abort discards the current recording and its files.
func (r *Recorder) abort(cause error) {
	if r.writer != nil {
		_ = r.writer.Close()
		r.writer = nil
	}
	for _, ext := range []string{".avi", ".jpg"} {
		if err := os.Remove(r.path(ext)); err != nil && !os.IsNotExist(err) {
			r.opts.Logger.WithError(err).Warn("Failed to remove partial recording")
		}
	}
	r.opts.Logger.WithError(cause).WithField("basename", r.basename).Warn("Recording aborted")
	metrics.IncrementRecordings(metrics.OutcomeAborted)
	r.Handle(EventAborted)
	if r.opts.OnAborted != nil {
		r.opts.OnAborted(r.basename, cause)
	}
}

func (r *Recorder) path(ext string) string {
	return filepath.Join(r.opts.MediaDir, r.basename+ext)
}

// nextBasename formats t and appends -2, -3, ... until neither output file
// exists.
func (r *Recorder) nextBasename(t time.Time) string {
	base := t.Format(BasenameLayout)
	name := base
	for i := 2; r.taken(name); i++ {
		name = fmt.Sprintf("%s-%d", base, i)
	}
	return name
}

func (r *Recorder) taken(name string) bool {
	for _, ext := range []string{".jpg", ".avi"} {
		if _, err := os.Stat(filepath.Join(r.opts.MediaDir, name+ext)); err == nil {
			return true
		}
	}
	return false
}
