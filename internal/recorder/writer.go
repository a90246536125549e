package recorder

import (
	"fmt"
	"image"
	"math"

	"github.com/icza/mjpeg"

	"github.com/hardsoftkoop/hsk-vision/internal/frame"
	"github.com/hardsoftkoop/hsk-vision/internal/imaging"
)

// VideoWriter appends frames to an open video file.
type VideoWriter interface {
	WriteFrame(f frame.Frame) error
	Close() error
}

// WriterFactory opens a writer for path with a fixed frame size and rate.
type WriterFactory func(path string, size image.Point, fps float64) (VideoWriter, error)

// MJPEGWriter writes Motion-JPEG AVI files without native dependencies.
type MJPEGWriter struct {
	aw      mjpeg.AviWriter
	quality int
	closed  bool
}

// NewMJPEGWriterFactory returns a factory producing MJPEGWriters that encode
// frames at the given JPEG quality.
func NewMJPEGWriterFactory(quality int) WriterFactory {
	return func(path string, size image.Point, fps float64) (VideoWriter, error) {
		rate := int32(math.Round(fps))
		if rate < 1 {
			rate = 1
		}
		aw, err := mjpeg.New(path, int32(size.X), int32(size.Y), rate)
		if err != nil {
			return nil, fmt.Errorf("create avi %s: %w", path, err)
		}
		return &MJPEGWriter{aw: aw, quality: quality}, nil
	}
}

func (w *MJPEGWriter) WriteFrame(f frame.Frame) error {
	data, err := imaging.EncodeJPEG(f.Image(), w.quality)
	if err != nil {
		return err
	}
	return w.aw.AddFrame(data)
}

// Close finalizes the AVI index. Calling it twice is a no-op.
func (w *MJPEGWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.aw.Close()
}
