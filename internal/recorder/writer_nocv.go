//go:build !withcv

package recorder

import "errors"

// NewCVWriterFactory reports that OpenCV support is not compiled in.
func NewCVWriterFactory() (WriterFactory, error) {
	return nil, errors.New("opencv writer requires the withcv build tag")
}
