// Package source opens pull-style frame sources: OpenCV cameras and video
// files (built with the withcv tag) and directories or globs of still images.
package source

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hardsoftkoop/hsk-vision/internal/frame"
)

var (
	// ErrSourceUnavailable means the device or file could not be opened. It is
	// fatal to the capture session and is not retried.
	ErrSourceUnavailable = errors.New("frame source unavailable")

	// ErrEndOfStream is returned by Read when the source has no more frames.
	// It is a normal termination, not a failure.
	ErrEndOfStream = errors.New("end of stream")
)

// Source produces frames on demand. Implementations are used from a single
// goroutine and need no internal locking.
type Source interface {
	// Read blocks until the next frame is available. It returns
	// ErrEndOfStream when the stream is exhausted.
	Read() (frame.Frame, error)

	// Size reports the frame dimensions announced by the source when it was
	// opened. Individual frames may still differ.
	Size() image.Point

	Close() error
}

// Kind tells which backend an identifier resolves to.
type Kind int

const (
	KindCamera Kind = iota
	KindVideo
	KindImages
)

func (k Kind) String() string {
	switch k {
	case KindCamera:
		return "camera"
	case KindVideo:
		return "video"
	case KindImages:
		return "images"
	default:
		return "unknown"
	}
}

// Options tunes how a source is opened.
type Options struct {
	// Width and Height request a capture resolution from cameras. Zero keeps
	// the device default.
	Width  int
	Height int

	// Interval paces still-image sequences to mimic a live device. Zero reads
	// as fast as files decode.
	Interval time.Duration

	// Loop restarts still-image sequences instead of ending the stream.
	Loop bool
}

// Target is a parsed source identifier.
type Target struct {
	Kind   Kind
	Camera int
	Path   string
}

var videoExtensions = map[string]bool{
	".avi":  true,
	".mp4":  true,
	".mkv":  true,
	".mov":  true,
	".webm": true,
	".m4v":  true,
	".mjpg": true,
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// Parse resolves an identifier. Accepted forms are "camera:N" or a bare camera
// index, a video file path, an image file, a directory of images, or a glob
// pattern matching images.
func Parse(identifier string) (Target, error) {
	id := strings.TrimSpace(identifier)
	if id == "" {
		return Target{}, fmt.Errorf("%w: empty source identifier", ErrSourceUnavailable)
	}

	if rest, ok := strings.CutPrefix(id, "camera:"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			return Target{}, fmt.Errorf("%w: invalid camera index %q", ErrSourceUnavailable, rest)
		}
		return Target{Kind: KindCamera, Camera: n}, nil
	}
	if n, err := strconv.Atoi(id); err == nil && n >= 0 {
		return Target{Kind: KindCamera, Camera: n}, nil
	}

	if strings.ContainsAny(id, "*?[") {
		return Target{Kind: KindImages, Path: id}, nil
	}

	info, err := os.Stat(id)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if info.IsDir() {
		return Target{Kind: KindImages, Path: id}, nil
	}

	ext := strings.ToLower(filepath.Ext(id))
	switch {
	case imageExtensions[ext]:
		return Target{Kind: KindImages, Path: id}, nil
	case videoExtensions[ext]:
		return Target{Kind: KindVideo, Path: id}, nil
	default:
		return Target{}, fmt.Errorf("%w: unsupported file type %q", ErrSourceUnavailable, ext)
	}
}

// Open parses identifier and opens the matching backend. Every failure wraps
// ErrSourceUnavailable.
func Open(identifier string, opts Options) (Source, error) {
	target, err := Parse(identifier)
	if err != nil {
		return nil, err
	}
	switch target.Kind {
	case KindCamera:
		return openCamera(target.Camera, opts)
	case KindVideo:
		return openVideo(target.Path, opts)
	default:
		return OpenImages(target.Path, opts)
	}
}
