package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func noArgs() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

func optionalPath(desc string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": desc,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Capture control
		{
			Name:        "capture_start",
			Description: "Start capturing from a camera (\"camera:0\" or \"0\"), a video file, a still image, a directory of images or a glob. A running capture is stopped first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"source": map[string]interface{}{
						"type":        "string",
						"description": "Source identifier",
					},
				},
				"required": []string{"source"},
			},
		},
		{
			Name:        "capture_stop",
			Description: "Stop the running capture and wait until the source is released. Any recording in progress is saved.",
			InputSchema: noArgs(),
		},
		{
			Name:        "capture_status",
			Description: "Report the capture session, motion detection switch, recording state, frame count and measured frame rate.",
			InputSchema: noArgs(),
		},
		{
			Name:        "motion_detection",
			Description: "Switch motion detection on or off. While on, motion starts a recording and sends an alert; switching off ends the current recording.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"enabled": map[string]interface{}{
						"type":        "boolean",
						"description": "Whether motion detection should run",
					},
				},
				"required": []string{"enabled"},
			},
		},
		{
			Name:        "recording_stop",
			Description: "Close the current recording. If the scene is still moving a new recording starts on the next frame.",
			InputSchema: noArgs(),
		},
		{
			Name:        "fps_measure",
			Description: "Measure the capture frame rate over the next frames. The result arrives as an fps-measured notification and is used for recordings when no rate is configured.",
			InputSchema: noArgs(),
		},
		{
			Name:        "frame_snapshot",
			Description: "Return the latest captured frame as base64 PNG, or save it to a file when a path is given.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": optionalPath("Optional output file; the format follows the extension"),
				},
			},
		},

		// Stills
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions and format. When no capture is running the image is shown as the current frame.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_crop",
			Description: "Crop a rectangular region from an image (or the latest frame) and return it as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": optionalPath("Image file; the latest frame when omitted"),
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge X coordinate (0-based)",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge Y coordinate (0-based)",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Right edge X coordinate (exclusive)",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Bottom edge Y coordinate (exclusive)",
					},
					"scale": map[string]interface{}{
						"type":        "number",
						"description": "Optional scale factor (e.g., 2.0 to double size). Default 1.0",
						"default":     1.0,
					},
				},
				"required": []string{"x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "image_outline",
			Description: "Draw the edge contours of an image, each shape in its own color on black, and report the shape bounds.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": optionalPath("Image file; the latest frame when omitted"),
					"min_pixels": map[string]interface{}{
						"type":        "integer",
						"description": "Skip edge groups smaller than this. Default 10",
						"default":     10,
					},
				},
			},
		},

		// Text
		{
			Name:        "text_detect",
			Description: "Find oriented text regions with the EAST network, or with an edge-density heuristic when no model is loaded.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": optionalPath("Image file; the latest frame when omitted"),
					"annotate": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return the image with numbered boxes as base64 PNG",
					},
					"min_confidence": map[string]interface{}{
						"type":        "number",
						"description": "Heuristic confidence threshold (0-1). Default 0.3",
						"default":     0.3,
					},
				},
			},
		},
		{
			Name:        "ocr",
			Description: "Read the text of an image. With detect_regions the text regions are found first and read one by one in order.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": optionalPath("Image file; the latest frame when omitted"),
					"detect_regions": map[string]interface{}{
						"type":        "boolean",
						"description": "Restrict recognition to detected text regions",
					},
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
