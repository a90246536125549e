package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/hardsoftkoop/hsk-vision/internal/frame"
	imgproc "github.com/hardsoftkoop/hsk-vision/internal/imaging"
	"github.com/hardsoftkoop/hsk-vision/internal/metrics"
	"github.com/hardsoftkoop/hsk-vision/internal/ocr"
	"github.com/hardsoftkoop/hsk-vision/internal/textdetect"
)

var (
	// ErrNoFrame is returned by frame tools before anything was published.
	ErrNoFrame = errors.New("no frame available")

	// ErrNotRunning is returned by tools that need an active capture.
	ErrNotRunning = errors.New("capture is not running")

	// ErrOCRUnavailable is returned when no OCR engine is configured.
	ErrOCRUnavailable = errors.New("OCR is not available")
)

// Outline thresholds used by image_outline.
const (
	outlineLow       = 100
	outlineHigh      = 200
	outlineMinPixels = 10
)

// defaultMinConfidence applies to the edge-density fallback.
const defaultMinConfidence = 0.3

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "capture_start", "text_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	log := s.log.WithField("tool", params.Name)
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		log.WithError(err).Warn("Tool call failed")
		metrics.IncrementToolCalls(params.Name, metrics.OutcomeError)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	log.Debug("Tool call succeeded")
	metrics.IncrementToolCalls(params.Name, metrics.OutcomeSuccess)

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	// Capture control
	case "capture_start":
		return s.handleCaptureStart(args)
	case "capture_stop":
		return s.handleCaptureStop()
	case "capture_status":
		return s.worker.Status(), nil
	case "motion_detection":
		return s.handleMotionDetection(args)
	case "recording_stop":
		return s.handleRecordingStop()
	case "fps_measure":
		return s.handleFPSMeasure()
	case "frame_snapshot":
		return s.handleFrameSnapshot(args)

	// Stills
	case "image_load":
		return s.handleImageLoad(args)
	case "image_crop":
		return s.handleImageCrop(args)
	case "image_outline":
		return s.handleImageOutline(args)

	// Text
	case "text_detect":
		return s.handleTextDetect(args)
	case "ocr":
		return s.handleOCR(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// image returns the still at path, or the latest frame when path is empty.
func (s *Server) image(path string) (image.Image, error) {
	if path != "" {
		return s.cache.Load(path)
	}
	f, ok := s.worker.Buffer().Latest()
	if !ok {
		return nil, ErrNoFrame
	}
	return f.Image(), nil
}

// === Capture Control Handlers ===

type captureStartArgs struct {
	Source string `json:"source"`
}

func (s *Server) handleCaptureStart(args json.RawMessage) (interface{}, error) {
	var a captureStartArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	sess, err := s.worker.Start(a.Source)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

type captureStopResult struct {
	Stopped bool `json:"stopped"`
}

func (s *Server) handleCaptureStop() (interface{}, error) {
	return captureStopResult{Stopped: s.worker.Stop()}, nil
}

type motionDetectionArgs struct {
	Enabled *bool `json:"enabled"`
}

type motionDetectionResult struct {
	MotionEnabled bool `json:"motion_enabled"`
}

func (s *Server) handleMotionDetection(args json.RawMessage) (interface{}, error) {
	var a motionDetectionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Enabled == nil {
		return nil, errors.New("enabled is required")
	}
	s.worker.SetMotionDetection(*a.Enabled)
	return motionDetectionResult{MotionEnabled: s.worker.MotionDetection()}, nil
}

func (s *Server) handleRecordingStop() (interface{}, error) {
	if !s.worker.Running() {
		return nil, ErrNotRunning
	}
	s.worker.StopRecording()
	return s.worker.Status(), nil
}

type fpsMeasureResult struct {
	Measuring bool    `json:"measuring"`
	LastFPS   float64 `json:"last_fps,omitempty"`
}

func (s *Server) handleFPSMeasure() (interface{}, error) {
	if !s.worker.Running() {
		return nil, ErrNotRunning
	}
	s.worker.MeasureFPS()
	return fpsMeasureResult{Measuring: true, LastFPS: s.worker.MeasuredFPS()}, nil
}

type frameSnapshotArgs struct {
	Path string `json:"path"`
}

type frameSnapshotResult struct {
	Seq    uint64                `json:"seq"`
	Width  int                   `json:"width"`
	Height int                   `json:"height"`
	Path   string                `json:"path,omitempty"`
	Image  *imgproc.EncodedImage `json:"image,omitempty"`
}

func (s *Server) handleFrameSnapshot(args json.RawMessage) (interface{}, error) {
	var a frameSnapshotArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	f, ok := s.worker.Buffer().Latest()
	if !ok {
		return nil, ErrNoFrame
	}
	res := frameSnapshotResult{Seq: f.Seq, Width: f.Width, Height: f.Height}
	img := f.Image()

	if a.Path != "" {
		if err := imaging.Save(img, a.Path); err != nil {
			return nil, fmt.Errorf("failed to save frame: %w", err)
		}
		res.Path = filepath.Clean(a.Path)
		return res, nil
	}

	enc, err := imgproc.EncodePNG(img)
	if err != nil {
		return nil, err
	}
	res.Image = enc
	return res, nil
}

// === Still Image Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

type imageLoadResult struct {
	*imgproc.ImageInfo
	Displayed bool `json:"displayed"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	info, err := imgproc.LoadImageInfo(s.cache, a.Path)
	if err != nil {
		return nil, err
	}

	res := imageLoadResult{ImageInfo: info}
	if !s.worker.Running() {
		img, err := s.cache.Load(a.Path)
		if err != nil {
			return nil, err
		}
		s.worker.Buffer().Publish(frame.FromImage(img))
		res.Displayed = true
	}
	return res, nil
}

type imageCropArgs struct {
	Path  string  `json:"path"`
	X1    int     `json:"x1"`
	Y1    int     `json:"y1"`
	X2    int     `json:"x2"`
	Y2    int     `json:"y2"`
	Scale float64 `json:"scale"`
}

func (s *Server) handleImageCrop(args json.RawMessage) (interface{}, error) {
	var a imageCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}
	img, err := s.image(a.Path)
	if err != nil {
		return nil, err
	}
	r := image.Rect(a.X1, a.Y1, a.X2, a.Y2).Add(img.Bounds().Min)
	cropped, err := imgproc.Crop(img, r, a.Scale)
	if err != nil {
		return nil, err
	}
	return imgproc.EncodePNG(cropped)
}

type imageOutlineArgs struct {
	Path      string `json:"path"`
	MinPixels int    `json:"min_pixels"`
}

type imageOutlineResult struct {
	Shapes int                   `json:"shapes"`
	Bounds []ocr.Bounds          `json:"bounds"`
	Image  *imgproc.EncodedImage `json:"image"`
}

func (s *Server) handleImageOutline(args json.RawMessage) (interface{}, error) {
	var a imageOutlineArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.MinPixels <= 0 {
		a.MinPixels = outlineMinPixels
	}
	img, err := s.image(a.Path)
	if err != nil {
		return nil, err
	}

	out := imgproc.Outline(img, outlineLow, outlineHigh, a.MinPixels)
	enc, err := imgproc.EncodePNG(out.Image)
	if err != nil {
		return nil, err
	}
	res := imageOutlineResult{Shapes: out.Shapes, Bounds: make([]ocr.Bounds, 0, len(out.Bounds)), Image: enc}
	for _, b := range out.Bounds {
		res.Bounds = append(res.Bounds, ocr.BoundsOf(b))
	}
	return res, nil
}

// === Text Handlers ===

// Detection methods reported by text_detect.
const (
	methodEAST        = "east"
	methodEdgeDensity = "edge-density"
	methodTesseract   = "tesseract-layout"
)

type textDetectArgs struct {
	Path          string   `json:"path"`
	Annotate      bool     `json:"annotate"`
	MinConfidence *float64 `json:"min_confidence"`
}

type regionResult struct {
	Bounds     ocr.Bounds `json:"bounds"`
	CenterX    float64    `json:"center_x"`
	CenterY    float64    `json:"center_y"`
	Width      float64    `json:"width"`
	Height     float64    `json:"height"`
	Angle      float64    `json:"angle"`
	Confidence float32    `json:"confidence"`
}

type textDetectResult struct {
	Method    string                `json:"method"`
	Count     int                   `json:"count"`
	Regions   []regionResult        `json:"regions"`
	Annotated *imgproc.EncodedImage `json:"annotated,omitempty"`
}

// textRegions runs the network when one is loaded and the edge-density
// heuristic otherwise.
func (s *Server) textRegions(img image.Image, minConfidence float64) ([]textdetect.Region, string, error) {
	if s.detector != nil {
		regions, err := s.detector.Detect(img)
		return regions, methodEAST, err
	}
	return textdetect.EdgeDensity(img, minConfidence), methodEdgeDensity, nil
}

func (s *Server) handleTextDetect(args json.RawMessage) (interface{}, error) {
	var a textDetectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	minConf := defaultMinConfidence
	if a.MinConfidence != nil {
		minConf = *a.MinConfidence
	}
	img, err := s.image(a.Path)
	if err != nil {
		return nil, err
	}

	regions, method, err := s.textRegions(img, minConf)
	if err != nil {
		return nil, err
	}

	res := textDetectResult{
		Method:  method,
		Count:   len(regions),
		Regions: make([]regionResult, 0, len(regions)),
	}
	for _, r := range regions {
		res.Regions = append(res.Regions, regionResult{
			Bounds:     ocr.BoundsOf(r.Bounds),
			CenterX:    r.Rect.Center.X,
			CenterY:    r.Rect.Center.Y,
			Width:      r.Rect.Width,
			Height:     r.Rect.Height,
			Angle:      r.Rect.Angle,
			Confidence: r.Confidence,
		})
	}
	if a.Annotate {
		enc, err := imgproc.EncodePNG(textdetect.Annotate(img, regions))
		if err != nil {
			return nil, err
		}
		res.Annotated = enc
	}
	return res, nil
}

type ocrArgs struct {
	Path          string `json:"path"`
	DetectRegions bool   `json:"detect_regions"`
}

type ocrResult struct {
	*ocr.Result
	Method string `json:"method,omitempty"`
}

func (s *Server) handleOCR(args json.RawMessage) (interface{}, error) {
	if s.ocr == nil {
		return nil, ErrOCRUnavailable
	}
	var a ocrArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.image(a.Path)
	if err != nil {
		return nil, err
	}

	var (
		rects  []image.Rectangle
		method string
	)
	if a.DetectRegions {
		if s.detector != nil {
			regions, err := s.detector.Detect(img)
			if err != nil {
				return nil, err
			}
			for _, r := range regions {
				rects = append(rects, imgproc.ClampRect(r.Bounds, img.Bounds()))
			}
			method = methodEAST
		} else {
			rects, err = s.ocr.Blocks(img, 0)
			if err != nil {
				return nil, err
			}
			method = methodTesseract
		}
		if len(rects) == 0 {
			return ocrResult{Result: &ocr.Result{Blocks: []ocr.Block{}}, Method: method}, nil
		}
	}

	res, err := s.ocr.Recognize(img, rects)
	if err != nil {
		return nil, err
	}
	return ocrResult{Result: res, Method: method}, nil
}
