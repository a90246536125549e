package textdetect

import (
	"fmt"
	"runtime"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Layout is the memory order of the model's tensors.
type Layout string

const (
	LayoutNCHW Layout = "nchw"
	LayoutNHWC Layout = "nhwc"
)

// ParseLayout accepts "nchw" or "nhwc" in any case.
func ParseLayout(s string) (Layout, error) {
	switch l := Layout(strings.ToLower(s)); l {
	case LayoutNCHW, LayoutNHWC:
		return l, nil
	default:
		return "", fmt.Errorf("unknown tensor layout %q", s)
	}
}

// ONNXConfig describes an EAST model exported to ONNX.
type ONNXConfig struct {
	ModelPath string
	// LibraryPath points at the onnxruntime shared library. Empty uses the
	// platform default.
	LibraryPath  string
	InputName    string
	ScoreName    string
	GeometryName string
	Layout       Layout
	InputWidth   int
	InputHeight  int
}

// DefaultONNXConfig returns the tensor names produced by tf2onnx for the
// frozen EAST graph.
func DefaultONNXConfig() ONNXConfig {
	return ONNXConfig{
		InputName:    "input_images:0",
		ScoreName:    "feature_fusion/Conv_7/Sigmoid:0",
		GeometryName: "feature_fusion/concat_3:0",
		Layout:       LayoutNHWC,
		InputWidth:   320,
		InputHeight:  320,
	}
}

var envMu sync.Mutex

func initEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("error initializing onnxruntime: %w", err)
	}
	return nil
}

// ONNXNetwork runs the model with onnxruntime. Forward calls are serialized
// because the session is bound to fixed tensors.
type ONNXNetwork struct {
	mu       sync.Mutex
	cfg      ONNXConfig
	session  *ort.AdvancedSession
	input    *ort.Tensor[float32]
	scores   *ort.Tensor[float32]
	geometry *ort.Tensor[float32]
}

// NewONNXNetwork loads the model and allocates its tensors.
func NewONNXNetwork(cfg ONNXConfig) (*ONNXNetwork, error) {
	if err := initEnvironment(cfg.LibraryPath); err != nil {
		return nil, err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()
	options.SetIntraOpNumThreads(runtime.NumCPU())

	w, h := int64(cfg.InputWidth), int64(cfg.InputHeight)
	gw, gh := w/Stride, h/Stride

	inputShape := ort.NewShape(1, 3, h, w)
	scoreShape := ort.NewShape(1, 1, gh, gw)
	geometryShape := ort.NewShape(1, 5, gh, gw)
	if cfg.Layout == LayoutNHWC {
		inputShape = ort.NewShape(1, h, w, 3)
		scoreShape = ort.NewShape(1, gh, gw, 1)
		geometryShape = ort.NewShape(1, gh, gw, 5)
	}

	n := &ONNXNetwork{cfg: cfg}
	if n.input, err = ort.NewEmptyTensor[float32](inputShape); err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}
	if n.scores, err = ort.NewEmptyTensor[float32](scoreShape); err != nil {
		n.Destroy()
		return nil, fmt.Errorf("error creating score tensor: %w", err)
	}
	if n.geometry, err = ort.NewEmptyTensor[float32](geometryShape); err != nil {
		n.Destroy()
		return nil, fmt.Errorf("error creating geometry tensor: %w", err)
	}

	n.session, err = ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{cfg.InputName},
		[]string{cfg.ScoreName, cfg.GeometryName},
		[]ort.ArbitraryTensor{n.input},
		[]ort.ArbitraryTensor{n.scores, n.geometry},
		options,
	)
	if err != nil {
		n.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}
	return n, nil
}

// Forward copies b into the input tensor, runs the session and returns the
// outputs in planar layout.
func (n *ONNXNetwork) Forward(b Blob) (Maps, error) {
	if b.Width != n.cfg.InputWidth || b.Height != n.cfg.InputHeight {
		return Maps{}, fmt.Errorf("blob %dx%d does not match model input %dx%d",
			b.Width, b.Height, n.cfg.InputWidth, n.cfg.InputHeight)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.cfg.Layout == LayoutNHWC {
		interleave(n.input.GetData(), b.Data, 3, b.Width*b.Height)
	} else {
		copy(n.input.GetData(), b.Data)
	}

	if err := n.session.Run(); err != nil {
		return Maps{}, fmt.Errorf("error running session: %w", err)
	}

	gw, gh := b.Width/Stride, b.Height/Stride
	m := Maps{
		Width:    gw,
		Height:   gh,
		Scores:   make([]float32, gw*gh),
		Geometry: make([]float32, 5*gw*gh),
	}
	if n.cfg.Layout == LayoutNHWC {
		planarize(m.Scores, n.scores.GetData(), 1, gw*gh)
		planarize(m.Geometry, n.geometry.GetData(), 5, gw*gh)
	} else {
		copy(m.Scores, n.scores.GetData())
		copy(m.Geometry, n.geometry.GetData())
	}
	return m, nil
}

// Destroy releases the session and tensors.
func (n *ONNXNetwork) Destroy() {
	if n.session != nil {
		n.session.Destroy()
	}
	if n.input != nil {
		n.input.Destroy()
	}
	if n.scores != nil {
		n.scores.Destroy()
	}
	if n.geometry != nil {
		n.geometry.Destroy()
	}
}

// interleave converts planar src (channels x plane) to pixel-interleaved dst.
func interleave(dst, src []float32, channels, plane int) {
	for c := 0; c < channels; c++ {
		for i := 0; i < plane; i++ {
			dst[i*channels+c] = src[c*plane+i]
		}
	}
}

// planarize converts pixel-interleaved src to planar dst.
func planarize(dst, src []float32, channels, plane int) {
	for c := 0; c < channels; c++ {
		for i := 0; i < plane; i++ {
			dst[c*plane+i] = src[i*channels+c]
		}
	}
}
