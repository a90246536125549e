//go:build withcv

package motion

import (
	"image"

	"gocv.io/x/gocv"
)

func newSubtractor(cfg Config) Subtractor {
	return NewMOG2(cfg.History, cfg.VarThreshold, cfg.DetectShadows)
}

// MOG2 is OpenCV's Gaussian mixture background subtractor. Its mask uses the
// same 0/127/255 encoding as BackgroundModel.
type MOG2 struct {
	history      int
	varThreshold float64
	shadows      bool

	sub  gocv.BackgroundSubtractorMOG2
	mask gocv.Mat
}

// NewMOG2 returns a subtractor with an empty model.
func NewMOG2(history int, varThreshold float64, detectShadows bool) *MOG2 {
	if history < 1 {
		history = 1
	}
	return &MOG2{
		history:      history,
		varThreshold: varThreshold,
		shadows:      detectShadows,
		sub:          gocv.NewBackgroundSubtractorMOG2WithParams(history, varThreshold, detectShadows),
		mask:         gocv.NewMat(),
	}
}

func (m *MOG2) Apply(gray *image.Gray) *image.Gray {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))

	packed := make([]byte, w*h)
	for y := 0; y < h; y++ {
		copy(packed[y*w:(y+1)*w], gray.Pix[y*gray.Stride:y*gray.Stride+w])
	}
	src, err := gocv.NewMatFromBytes(h, w, gocv.MatTypeCV8U, packed)
	if err != nil {
		return out
	}
	defer src.Close()

	m.sub.Apply(src, &m.mask)
	if data := m.mask.ToBytes(); len(data) >= w*h {
		copy(out.Pix, data[:w*h])
	}
	return out
}

// Reset replaces the OpenCV model, which has no way to forget in place.
func (m *MOG2) Reset() {
	_ = m.sub.Close()
	m.sub = gocv.NewBackgroundSubtractorMOG2WithParams(m.history, m.varThreshold, m.shadows)
}

func (m *MOG2) Close() error {
	if err := m.sub.Close(); err != nil {
		return err
	}
	return m.mask.Close()
}
