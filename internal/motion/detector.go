// Package motion detects movement in a frame stream with an adaptive
// background model and reports it as edge-triggered transitions.
package motion

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"

	"github.com/hardsoftkoop/hsk-vision/internal/frame"
	imgproc "github.com/hardsoftkoop/hsk-vision/internal/imaging"
)

// Config holds the detector parameters. DefaultConfig matches the values the
// recorder was tuned with.
type Config struct {
	History         int
	VarThreshold    float64
	DetectShadows   bool
	BinaryThreshold uint8

	// KernelSize is the side of the structuring element used for the opening.
	KernelSize       int
	ErodeIterations  int
	DilateIterations int

	// MinArea discards foreground blobs smaller than this many pixels
	// (measured at processing resolution). Zero keeps every blob.
	MinArea int

	// ProcessWidth downscales wider frames before modeling. Zero processes at
	// native resolution.
	ProcessWidth int

	// Draw outlines detected regions on the frame.
	Draw      bool
	DrawColor color.RGBA
}

// DefaultConfig returns history 500, variance threshold 16 with shadow
// detection, binarization at 25, and a 9x9 opening of one erosion followed by
// three dilations.
func DefaultConfig() Config {
	return Config{
		History:          500,
		VarThreshold:     16,
		DetectShadows:    true,
		BinaryThreshold:  25,
		KernelSize:       9,
		ErodeIterations:  1,
		DilateIterations: 3,
		Draw:             true,
		DrawColor:        color.RGBA{R: 255, A: 255},
	}
}

// Result describes one processed frame.
type Result struct {
	Edge    Edge
	Present bool
	// Regions are the bounding rectangles of foreground blobs in frame
	// coordinates.
	Regions []image.Rectangle
}

// Detector owns the background model and hysteresis for one capture session.
// It is not safe for concurrent use; the capture goroutine owns it.
type Detector struct {
	cfg        Config
	model      Subtractor
	hysteresis Hysteresis
}

// New returns a detector with an empty background model.
func New(cfg Config) *Detector {
	if cfg.KernelSize < 1 {
		cfg.KernelSize = 1
	}
	return &Detector{
		cfg:   cfg,
		model: newSubtractor(cfg),
	}
}

// Detect runs one frame through the model and returns the motion edge. When
// drawing is enabled the detected regions are outlined on f in place.
func (d *Detector) Detect(f *frame.Frame) Result {
	gray := f.Gray()

	scaleX, scaleY := 1.0, 1.0
	if d.cfg.ProcessWidth > 0 && f.Width > d.cfg.ProcessWidth {
		small := imaging.Resize(gray, d.cfg.ProcessWidth, 0, imaging.Box)
		gray = toGray(effect.Grayscale(small))
		scaleX = float64(f.Width) / float64(gray.Bounds().Dx())
		scaleY = float64(f.Height) / float64(gray.Bounds().Dy())
	}

	mask := d.Mask(gray)

	comps := imgproc.Components(mask, d.cfg.MinArea)
	regions := make([]image.Rectangle, 0, len(comps))
	for _, c := range comps {
		regions = append(regions, scaleRect(c.Bounds, scaleX, scaleY).Intersect(f.Bounds()))
	}

	present := len(regions) > 0
	res := Result{
		Edge:    d.hysteresis.Update(present),
		Present: present,
		Regions: regions,
	}

	if d.cfg.Draw {
		for _, r := range regions {
			f.DrawRect(r, d.cfg.DrawColor, 2)
		}
	}
	return res
}

// Mask updates the background model with gray and returns the cleaned binary
// foreground mask: thresholded, eroded, then dilated.
func (d *Detector) Mask(gray *image.Gray) *image.Gray {
	raw := d.model.Apply(gray)
	bin := segment.Threshold(raw, d.cfg.BinaryThreshold)

	radius := float64(d.cfg.KernelSize / 2)
	if radius < 1 || (d.cfg.ErodeIterations == 0 && d.cfg.DilateIterations == 0) {
		return bin
	}

	var img image.Image = bin
	for i := 0; i < d.cfg.ErodeIterations; i++ {
		img = effect.Erode(img, radius)
	}
	for i := 0; i < d.cfg.DilateIterations; i++ {
		img = effect.Dilate(img, radius)
	}
	return toGray(img)
}

// InMotion reports whether the last processed frame was part of a motion
// period.
func (d *Detector) InMotion() bool { return d.hysteresis.Active() }

// Reset clears the hysteresis so the next frame with motion reports
// EdgeStarted again. The background model is kept.
func (d *Detector) Reset() { d.hysteresis.Reset() }

// ResetModel discards the learned background as well. The next frame
// becomes the new background.
func (d *Detector) ResetModel() {
	d.hysteresis.Reset()
	d.model.Reset()
}

// Close releases the background model.
func (d *Detector) Close() error { return d.model.Close() }

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.Pix[y*out.Stride+x] = uint8(r >> 8)
		}
	}
	return out
}

func scaleRect(r image.Rectangle, sx, sy float64) image.Rectangle {
	if sx == 1 && sy == 1 {
		return r
	}
	return image.Rect(
		int(float64(r.Min.X)*sx),
		int(float64(r.Min.Y)*sy),
		int(float64(r.Max.X)*sx+0.5),
		int(float64(r.Max.Y)*sy+0.5),
	)
}
