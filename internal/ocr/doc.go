// Package ocr reads printed form labels from answer sheets using Tesseract.
//
// A structure may declare a label region; after a sheet is aligned, that
// region is cropped, scaled up and handed to a Reader. Only printed text is
// supported; handwriting is out of scope.
//
// # Build Tags
//
// The Tesseract binding (gosseract/v2) needs cgo and the Tesseract
// libraries, so it is only compiled with the "tesseract" build tag:
//
//	go build -tags tesseract ./cmd/omr
//
// Without the tag, NewReader still exists but every ReadLabel call returns
// ErrUnavailable, and Available reports false.
//
// # Prerequisites
//
// Tesseract and the language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
package ocr
