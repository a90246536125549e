//go:build withcv

package source

import (
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"

	"github.com/hardsoftkoop/hsk-vision/internal/frame"
)

// Device reads frames from an OpenCV VideoCapture, either a camera or a video
// file. Frames come out in BGR layout.
type Device struct {
	vc   *gocv.VideoCapture
	mat  gocv.Mat
	size image.Point
	seq  uint64
}

func openCamera(index int, opts Options) (Source, error) {
	vc, err := gocv.OpenVideoCapture(index)
	if err != nil {
		return nil, fmt.Errorf("%w: camera %d: %v", ErrSourceUnavailable, index, err)
	}
	if opts.Width > 0 && opts.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(opts.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(opts.Height))
	}
	return newDevice(vc, fmt.Sprintf("camera %d", index))
}

func openVideo(path string, _ Options) (Source, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: video %s: %v", ErrSourceUnavailable, path, err)
	}
	return newDevice(vc, path)
}

func newDevice(vc *gocv.VideoCapture, name string) (*Device, error) {
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s did not open", ErrSourceUnavailable, name)
	}
	return &Device{
		vc:  vc,
		mat: gocv.NewMat(),
		size: image.Pt(
			int(vc.Get(gocv.VideoCaptureFrameWidth)),
			int(vc.Get(gocv.VideoCaptureFrameHeight)),
		),
	}, nil
}

// Read grabs the next frame. An unsuccessful grab or an empty matrix is the
// end of the stream.
func (d *Device) Read() (frame.Frame, error) {
	if ok := d.vc.Read(&d.mat); !ok || d.mat.Empty() {
		return frame.Frame{}, ErrEndOfStream
	}

	layout := frame.LayoutBGR
	switch d.mat.Channels() {
	case 1:
		layout = frame.LayoutGray
	case 4:
		gocv.CvtColor(d.mat, &d.mat, gocv.ColorBGRAToBGR)
	}

	// ToBytes copies, so the matrix can be reused for the next grab.
	pix := d.mat.ToBytes()
	width, height := d.mat.Cols(), d.mat.Rows()

	d.seq++
	return frame.Frame{
		Pix:    pix,
		Width:  width,
		Height: height,
		Stride: width * layout.Channels(),
		Layout: layout,
		Seq:    d.seq,
		Time:   time.Now(),
	}, nil
}

// Size returns the resolution the device reported when opened.
func (d *Device) Size() image.Point { return d.size }

// FPS returns the frame rate advertised by the device, which is often zero or
// wrong for webcams.
func (d *Device) FPS() float64 { return d.vc.Get(gocv.VideoCaptureFPS) }

func (d *Device) Close() error {
	d.mat.Close()
	return d.vc.Close()
}
