// Package server implements the control surface of hsk-vision as an MCP
// (Model Context Protocol) server.
//
// The server speaks JSON-RPC 2.0 over stdio, one message per line. It drives
// the capture worker, reads the latest published frame, and runs the still
// image tools (text detection, OCR, outlines) on demand.
//
// # Protocol
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// Capture events (motion started or stopped, video saved or aborted, frame
// rate measured, capture stopped) are pushed to the client as
// notifications/capture messages. Per-frame events are not forwarded.
// Responses and notifications share stdout and are written one at a time.
//
// # Available Tools
//
// Capture control:
//   - capture_start: Open a source and start the capture loop
//   - capture_stop: Stop the loop and release the source
//   - capture_status: Session, switches and counters
//   - motion_detection: Switch motion-triggered recording
//   - recording_stop: Close the current recording
//   - fps_measure: Measure the capture frame rate
//   - frame_snapshot: Latest frame as PNG or saved to a file
//
// Stills:
//   - image_load: Load an image and show it when nothing is captured
//   - image_crop: Extract a rectangular region
//   - image_outline: Edge contours drawn per shape
//
// Text:
//   - text_detect: Oriented text regions (EAST network or edge heuristic)
//   - ocr: Tesseract recognition, optionally per detected region
//
// Tools that take an optional path operate on the latest published frame
// when the path is omitted.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// # Usage
//
//	srv := server.New(server.Deps{Worker: worker, OCR: &ocr.Recognizer{}})
//	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
package server
