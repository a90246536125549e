// Package textdetect locates text in still images with an EAST-style network
// and decodes its output into oriented boxes.
package textdetect

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"

	"github.com/hardsoftkoop/hsk-vision/internal/metrics"
)

// ErrNoNetwork is returned when detection is requested without a model.
var ErrNoNetwork = errors.New("text detection model not loaded")

// Blob is a planar (channel, row, column) network input for one image in RGB
// channel order.
type Blob struct {
	Width  int
	Height int
	Data   []float32
}

// Network runs the detection model on a blob.
type Network interface {
	Forward(b Blob) (Maps, error)
}

// Config holds the detector parameters.
type Config struct {
	InputWidth    int
	InputHeight   int
	ConfThreshold float32
	NMSThreshold  float32
	// Mean is subtracted from the R, G and B channels.
	Mean [3]float32
}

// DefaultConfig returns a 320x320 input, confidence 0.5, overlap 0.4 and
// the ImageNet channel means.
func DefaultConfig() Config {
	return Config{
		InputWidth:    320,
		InputHeight:   320,
		ConfThreshold: 0.5,
		NMSThreshold:  0.4,
		Mean:          [3]float32{123.68, 116.78, 103.94},
	}
}

// Detector finds text regions in images.
type Detector struct {
	cfg Config
	net Network
}

// NewDetector returns a detector running net. The input size must be a
// multiple of 32.
func NewDetector(net Network, cfg Config) (*Detector, error) {
	if cfg.InputWidth <= 0 || cfg.InputHeight <= 0 || cfg.InputWidth%32 != 0 || cfg.InputHeight%32 != 0 {
		return nil, fmt.Errorf("input size %dx%d must be a positive multiple of 32", cfg.InputWidth, cfg.InputHeight)
	}
	return &Detector{cfg: cfg, net: net}, nil
}

// Config returns the detector configuration.
func (d *Detector) Config() Config { return d.cfg }

// Detect returns the text regions of img in image coordinates, most
// confident first.
func (d *Detector) Detect(img image.Image) ([]Region, error) {
	if d.net == nil {
		return nil, ErrNoNetwork
	}
	start := time.Now()

	blob := d.Blob(img)
	maps, err := d.net.Forward(blob)
	if err != nil {
		return nil, fmt.Errorf("run text detection: %w", err)
	}

	dets, err := Decode(maps, d.cfg.ConfThreshold)
	if err != nil {
		return nil, fmt.Errorf("decode text detection: %w", err)
	}

	keep := NMS(dets, d.cfg.ConfThreshold, d.cfg.NMSThreshold)
	kept := make([]Detection, len(keep))
	for i, k := range keep {
		kept[i] = dets[k]
	}

	b := img.Bounds()
	regions := Rescale(kept, image.Pt(b.Dx(), b.Dy()), image.Pt(d.cfg.InputWidth, d.cfg.InputHeight))
	for i := range regions {
		regions[i].Bounds = regions[i].Bounds.Add(b.Min)
		regions[i].Rect.Center = regions[i].Rect.Center.add(Point{float64(b.Min.X), float64(b.Min.Y)})
	}
	metrics.ObserveTextDetect(time.Since(start), len(regions))
	return regions, nil
}

// Blob resizes img to the network input and subtracts the channel means.
func (d *Detector) Blob(img image.Image) Blob {
	w, h := d.cfg.InputWidth, d.cfg.InputHeight
	resized := imaging.Resize(img, w, h, imaging.Linear)

	plane := w * h
	data := make([]float32, 3*plane)
	for y := 0; y < h; y++ {
		row := resized.Pix[y*resized.Stride:]
		for x := 0; x < w; x++ {
			i := y*w + x
			px := row[x*4:]
			data[i] = float32(px[0]) - d.cfg.Mean[0]
			data[plane+i] = float32(px[1]) - d.cfg.Mean[1]
			data[2*plane+i] = float32(px[2]) - d.cfg.Mean[2]
		}
	}
	return Blob{Width: w, Height: h, Data: data}
}
