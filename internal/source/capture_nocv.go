//go:build !withcv

package source

import "fmt"

func openCamera(index int, _ Options) (Source, error) {
	return nil, fmt.Errorf("%w: camera %d requires a build with -tags withcv", ErrSourceUnavailable, index)
}

func openVideo(path string, _ Options) (Source, error) {
	return nil, fmt.Errorf("%w: video %s requires a build with -tags withcv", ErrSourceUnavailable, path)
}
