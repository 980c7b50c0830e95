//go:build !tesseract

package ocr

import "image"

// Available reports whether Tesseract support is compiled in.
func Available() bool { return false }

// ReadLabel always fails with ErrUnavailable in builds without Tesseract.
func (r *Reader) ReadLabel(image.Image) (string, error) {
	return "", ErrUnavailable
}
