package ocr

import "errors"

// ErrUnavailable is returned when the binary was built without Tesseract.
var ErrUnavailable = errors.New("ocr support not compiled in (build with -tags tesseract)")

// DefaultLanguage is the Tesseract language used when none is configured.
const DefaultLanguage = "eng"

// Reader extracts a single line of printed text from an image.
//
// A Reader is safe for concurrent use; each call uses its own Tesseract
// client.
type Reader struct {
	// Language is a Tesseract language code such as "eng" or "deu".
	Language string
	// Whitelist, when set, restricts recognition to these characters.
	Whitelist string
}

// NewReader returns a Reader for language, falling back to DefaultLanguage.
func NewReader(language string) *Reader {
	if language == "" {
		language = DefaultLanguage
	}
	return &Reader{Language: language}
}
