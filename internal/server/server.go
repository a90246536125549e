package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hardsoftkoop/hsk-vision/internal/capture"
	"github.com/hardsoftkoop/hsk-vision/internal/imaging"
	"github.com/hardsoftkoop/hsk-vision/internal/logger"
	"github.com/hardsoftkoop/hsk-vision/internal/ocr"
	"github.com/hardsoftkoop/hsk-vision/internal/textdetect"
)

// ProtocolVersion is the MCP revision announced by initialize.
const ProtocolVersion = "2024-11-05"

// eventQueueSize bounds the capture events waiting to be written.
const eventQueueSize = 64

// Recognizer is the OCR collaborator.
type Recognizer interface {
	Recognize(img image.Image, rects []image.Rectangle) (*ocr.Result, error)
	Blocks(img image.Image, minConfidence float64) ([]image.Rectangle, error)
}

// Deps are the collaborators the tools operate on. Worker is required;
// Detector and OCR are optional.
type Deps struct {
	Worker   *capture.Worker
	Cache    *imaging.ImageCache
	Detector *textdetect.Detector
	OCR      Recognizer
	Logger   *logrus.Entry
	Version  string
}

// Server handles MCP protocol communication
type Server struct {
	worker   *capture.Worker
	cache    *imaging.ImageCache
	detector *textdetect.Detector
	ocr      Recognizer
	log      *logrus.Entry
	version  string

	events chan capture.Event

	mu  sync.Mutex
	enc *json.Encoder
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// New creates a server around deps.
func New(deps Deps) *Server {
	if deps.Cache == nil {
		deps.Cache = imaging.NewImageCache(0)
	}
	if deps.Logger == nil {
		deps.Logger = logrus.NewEntry(logger.Discard())
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	return &Server{
		worker:   deps.Worker,
		cache:    deps.Cache,
		detector: deps.Detector,
		ocr:      deps.OCR,
		log:      deps.Logger,
		version:  deps.Version,
		events:   make(chan capture.Event, eventQueueSize),
	}
}

// PushEvent queues a capture event for delivery as a notifications/capture
// message. It never blocks: when the queue is full the event is dropped.
// Frame-published events are not forwarded.
func (s *Server) PushEvent(e capture.Event) {
	if e.Kind == capture.EventFramePublished {
		return
	}
	select {
	case s.events <- e:
	default:
		s.log.WithField("kind", e.Kind).Warn("Event queue full, dropping event")
	}
}

// Run reads requests from in, one per line, and writes responses and event
// notifications to out until in is exhausted or ctx ends. Queued events are
// flushed before Run returns.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	s.mu.Lock()
	s.enc = json.NewEncoder(out)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.pumpEvents(ctx)
	}()
	defer func() {
		cancel()
		wg.Wait()
	}()

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		// Increase buffer size for large requests
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, 1024*1024)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				scanErr <- nil
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					return fmt.Errorf("scanner error: %w", err)
				}
				return nil
			}
			s.handleLine(line)
		}
	}
}

func (s *Server) handleLine(line []byte) {
	if len(line) == 0 {
		return
	}
	var req MCPRequest
	if err := json.Unmarshal(line, &req); err != nil {
		s.log.WithError(err).Warn("Failed to parse request")
		s.write(&MCPResponse{
			JSONRPC: "2.0",
			Error:   &MCPError{Code: -32700, Message: "Parse error", Data: err.Error()},
		})
		return
	}
	if resp := s.handleRequest(&req); resp != nil {
		s.write(resp)
	}
}

func (s *Server) pumpEvents(ctx context.Context) {
	for {
		select {
		case e := <-s.events:
			s.writeEvent(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-s.events:
					s.writeEvent(e)
				default:
					return
				}
			}
		}
	}
}

func (s *Server) writeEvent(e capture.Event) {
	s.write(&MCPNotification{
		JSONRPC: "2.0",
		Method:  "notifications/capture",
		Params:  e,
	})
}

// write serializes v as one line. Responses and notifications share out.
func (s *Server) write(v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enc == nil {
		return
	}
	if err := s.enc.Encode(v); err != nil {
		s.log.WithError(err).Error("Failed to encode response")
	}
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "hsk-vision",
				"version": s.version,
			},
		},
	}
}
