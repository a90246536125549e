package motion

import "image"

// Mask values written by BackgroundModel.Apply.
const (
	MaskBackground uint8 = 0
	MaskShadow     uint8 = 127
	MaskForeground uint8 = 255
)

const (
	initialVariance = 15.0
	minVariance     = 4.0
	maxVariance     = 5 * initialVariance
	// A pixel darker than the background by a ratio in [shadowTau, 1) is a
	// shadow rather than an object.
	shadowTau = 0.5
)

// Subtractor classifies pixels of a grayscale frame against a learned
// background. Apply returns a mask of MaskBackground, MaskShadow and
// MaskForeground values with the frame's size and learns from the frame.
type Subtractor interface {
	Apply(gray *image.Gray) *image.Gray
	Reset()
	Close() error
}

// BackgroundModel is an adaptive per-pixel Gaussian background estimate over
// luminance. Each pixel keeps a running mean and variance; a pixel whose
// squared distance to the mean exceeds VarThreshold times its variance is
// foreground.
//
// The learning rate is 1/n for the first History frames and 1/History after
// that, so the model converges quickly on start-up and then forgets slowly.
type BackgroundModel struct {
	history      int
	varThreshold float64
	shadows      bool

	width, height int
	mean          []float32
	variance      []float32
	frames        int
}

// NewBackgroundModel returns an empty model. The first frame applied becomes
// the initial background.
func NewBackgroundModel(history int, varThreshold float64, detectShadows bool) *BackgroundModel {
	if history < 1 {
		history = 1
	}
	return &BackgroundModel{
		history:      history,
		varThreshold: varThreshold,
		shadows:      detectShadows,
	}
}

// Frames returns how many frames the model has learned from since its last
// reset.
func (m *BackgroundModel) Frames() int { return m.frames }

// Reset drops all learned statistics.
func (m *BackgroundModel) Reset() {
	m.mean = nil
	m.variance = nil
	m.frames = 0
	m.width, m.height = 0, 0
}

// Close is a no-op; the model holds only Go memory.
func (m *BackgroundModel) Close() error { return nil }

// Apply classifies every pixel of gray against the model, then updates the
// model with gray. A change of dimensions restarts the model.
func (m *BackgroundModel) Apply(gray *image.Gray) *image.Gray {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	mask := image.NewGray(image.Rect(0, 0, w, h))

	if m.mean == nil || w != m.width || h != m.height {
		m.width, m.height = w, h
		m.mean = make([]float32, w*h)
		m.variance = make([]float32, w*h)
		for y := 0; y < h; y++ {
			row := gray.Pix[y*gray.Stride:]
			for x := 0; x < w; x++ {
				m.mean[y*w+x] = float32(row[x])
				m.variance[y*w+x] = initialVariance
			}
		}
		m.frames = 1
		return mask
	}

	m.frames++
	n := m.frames
	if n > m.history {
		n = m.history
	}
	alpha := float32(1.0 / float64(n))
	threshold := float32(m.varThreshold)

	for y := 0; y < h; y++ {
		row := gray.Pix[y*gray.Stride:]
		out := mask.Pix[y*mask.Stride:]
		for x := 0; x < w; x++ {
			i := y*w + x
			v := float32(row[x])
			mean := m.mean[i]
			variance := m.variance[i]
			d := v - mean
			d2 := d * d

			switch {
			case d2 < threshold*variance:
				out[x] = MaskBackground
			case m.shadows && mean > 0 && v < mean && v >= shadowTau*mean:
				out[x] = MaskShadow
			default:
				out[x] = MaskForeground
			}

			mean += alpha * d
			variance += alpha * (d2 - variance)
			if variance < minVariance {
				variance = minVariance
			} else if variance > maxVariance {
				variance = maxVariance
			}
			m.mean[i] = mean
			m.variance[i] = variance
		}
	}
	return mask
}
