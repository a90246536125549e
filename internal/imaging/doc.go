// Package imaging holds the still-image helpers shared by the capture
// pipeline and the control tools: loading and caching, cropping and encoding,
// Canny edges, connected components, and simple drawing.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with the origin at the top-left corner.
// Rectangles are image.Rectangle values and therefore half-open: Min is
// inclusive, Max is exclusive.
//
// # Binary Masks
//
// Edge maps and motion masks are *image.Gray values where any non-zero pixel
// is set. Components labels such masks with 8-connectivity.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The remaining functions are
// stateless; callers that share a mutable image must synchronize themselves.
package imaging
