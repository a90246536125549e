package source

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/hardsoftkoop/hsk-vision/internal/frame"
)

// ImageSequence replays still images in lexical order as if they came from a
// camera. It backs file-based capture when OpenCV is not compiled in.
type ImageSequence struct {
	paths    []string
	next     int
	size     image.Point
	interval time.Duration
	loop     bool
	last     time.Time
	seq      uint64
	sleep    func(time.Duration)
}

// OpenImages lists the images under path, which may be a directory, a single
// file or a glob pattern. The first image is decoded eagerly to learn the
// sequence dimensions.
func OpenImages(path string, opts Options) (*ImageSequence, error) {
	paths, err := listImages(path)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no images found at %s", ErrSourceUnavailable, path)
	}

	first, err := imaging.Open(paths[0], imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrSourceUnavailable, paths[0], err)
	}

	return &ImageSequence{
		paths:    paths,
		size:     first.Bounds().Size(),
		interval: opts.Interval,
		loop:     opts.Loop,
		sleep:    time.Sleep,
	}, nil
}

func listImages(path string) ([]string, error) {
	var candidates []string
	if strings.ContainsAny(path, "*?[") {
		matches, err := filepath.Glob(path)
		if err != nil {
			return nil, fmt.Errorf("%w: bad pattern %q: %v", ErrSourceUnavailable, path, err)
		}
		candidates = matches
	} else {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		if !info.IsDir() {
			return []string{path}, nil
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read directory: %v", ErrSourceUnavailable, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				candidates = append(candidates, filepath.Join(path, e.Name()))
			}
		}
	}

	paths := candidates[:0]
	for _, p := range candidates {
		if imageExtensions[strings.ToLower(filepath.Ext(p))] {
			paths = append(paths, p)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// Read decodes the next image. When the list is exhausted it returns
// ErrEndOfStream, or starts over if the sequence loops.
func (s *ImageSequence) Read() (frame.Frame, error) {
	if s.next >= len(s.paths) {
		if !s.loop {
			return frame.Frame{}, ErrEndOfStream
		}
		s.next = 0
	}

	if s.interval > 0 && !s.last.IsZero() {
		if wait := s.interval - time.Since(s.last); wait > 0 {
			s.sleep(wait)
		}
	}

	path := s.paths[s.next]
	s.next++

	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return frame.Frame{}, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	s.last = time.Now()
	s.seq++
	f := frame.FromImage(img)
	f.Seq = s.seq
	f.Time = s.last
	return f, nil
}

// Size returns the dimensions of the first image.
func (s *ImageSequence) Size() image.Point { return s.size }

// Len returns the number of images in one pass.
func (s *ImageSequence) Len() int { return len(s.paths) }

// Close is a no-op; files are opened per read.
func (s *ImageSequence) Close() error { return nil }
