//go:build withcv

package recorder

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/hardsoftkoop/hsk-vision/internal/frame"
)

// CVWriter writes MJPG video through OpenCV.
type CVWriter struct {
	vw     *gocv.VideoWriter
	closed bool
}

// NewCVWriterFactory returns a factory backed by gocv.VideoWriterFile.
func NewCVWriterFactory() (WriterFactory, error) {
	return func(path string, size image.Point, fps float64) (VideoWriter, error) {
		vw, err := gocv.VideoWriterFile(path, "MJPG", fps, size.X, size.Y, true)
		if err != nil {
			return nil, fmt.Errorf("open video writer %s: %w", path, err)
		}
		if !vw.IsOpened() {
			vw.Close()
			return nil, fmt.Errorf("open video writer %s: not opened", path)
		}
		return &CVWriter{vw: vw}, nil
	}, nil
}

func (w *CVWriter) WriteFrame(f frame.Frame) error {
	bgr := toBGR(f)
	mat, err := gocv.NewMatFromBytes(bgr.Height, bgr.Width, gocv.MatTypeCV8UC3, bgr.Pix)
	if err != nil {
		return err
	}
	defer mat.Close()
	return w.vw.Write(mat)
}

func (w *CVWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.vw.Close()
}

// toBGR returns a tightly packed 3-channel BGR copy of f.
func toBGR(f frame.Frame) frame.Frame {
	if f.Layout == frame.LayoutBGR {
		return f.Clone()
	}
	out := frame.New(f.Width, f.Height, frame.LayoutBGR)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			r, g, b := f.RGBAt(x, y)
			out.SetRGB(x, y, r, g, b)
		}
	}
	return out
}
