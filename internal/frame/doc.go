// Package frame defines the pixel buffer that flows through the capture
// pipeline and the single-slot buffer that hands the newest frame to readers.
//
// # Frames
//
// A Frame is a tightly described pixel buffer: width, height, row stride and a
// color layout tag (RGB, BGR or single-channel gray). Sources such as OpenCV
// cameras deliver BGR; the capture loop normalizes to RGB before publishing so
// that every consumer sees one layout.
//
// Frames are treated as immutable once published. Code that wants to draw on a
// frame it did not produce must Clone it first.
//
// # Buffer
//
// Buffer holds at most one frame. Publish stores a private copy and replaces
// whatever was there; Latest returns a fresh copy to the caller. Nothing is
// queued: a reader that is slower than the producer simply skips frames.
//
// Readers that want to be woken for every new frame use Subscribe, which
// returns a single-slot mailbox. When a newer frame arrives before the old one
// was consumed, the old one is dropped and counted. Subscribers share the
// held copy and treat it as read-only.
//
// # Thread Safety
//
// Buffer and Subscription are safe for concurrent use. A Frame value is not
// synchronized; share it only after publication.
package frame
