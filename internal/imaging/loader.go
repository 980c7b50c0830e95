package imaging

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

var (
	// ErrDecode is returned when a page file cannot be opened or decoded.
	ErrDecode = errors.New("page decode failed")
	// ErrTooLarge is returned when a page exceeds the loader's pixel budget.
	ErrTooLarge = errors.New("page exceeds pixel budget")
)

// DefaultMaxPixels is the pixel budget used when none is configured.
const DefaultMaxPixels = 100_000_000

// PageLoader decodes sheet images into PixelBuffers and keeps the most
// recently used pages in memory.
//
// Pages are keyed by path and rotation, so the same file loaded with two
// different rotations occupies two entries. When the cache holds more than
// its capacity, the oldest entry is dropped.
//
// PageLoader is safe for concurrent use by multiple goroutines.
//
// # Example Usage
//
//	loader := imaging.NewPageLoader(8, imaging.DefaultMaxPixels)
//	page, err := loader.Load("/scans/sheet-001.png", 90)
//	if errors.Is(err, imaging.ErrTooLarge) {
//	    // abort the batch
//	}
type PageLoader struct {
	mu        sync.RWMutex
	pages     map[string]*PixelBuffer
	order     []string
	capacity  int
	maxPixels int
}

// NewPageLoader creates a loader holding at most capacity decoded pages.
// A capacity <= 0 disables caching; maxPixels <= 0 selects DefaultMaxPixels.
func NewPageLoader(capacity, maxPixels int) *PageLoader {
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &PageLoader{
		pages:     make(map[string]*PixelBuffer),
		capacity:  capacity,
		maxPixels: maxPixels,
	}
}

// MaxPixels returns the loader's pixel budget.
func (l *PageLoader) MaxPixels() int { return l.maxPixels }

// Load returns the page at path rotated clockwise by rotation degrees.
//
// # Errors
//
//   - wraps ErrDecode if the file cannot be opened or is not a supported image
//   - wraps ErrTooLarge if the declared dimensions exceed the pixel budget
func (l *PageLoader) Load(path string, rotation int) (*PixelBuffer, error) {
	rotation = NormalizeRotation(rotation)
	key := cacheKey(path, rotation)

	l.mu.RLock()
	if page, ok := l.pages[key]; ok {
		l.mu.RUnlock()
		return page, nil
	}
	l.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(l.maxPixels) {
		return nil, fmt.Errorf("%w: %s is %dx%d, budget %d pixels",
			ErrTooLarge, path, cfg.Width, cfg.Height, l.maxPixels)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	img, err := imaging.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	page := FromImage(Rotate(img, rotation))

	l.store(key, page)
	return page, nil
}

func (l *PageLoader) store(key string, page *PixelBuffer) {
	if l.capacity <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.pages[key]; ok {
		return
	}
	l.pages[key] = page
	l.order = append(l.order, key)
	for len(l.order) > l.capacity {
		delete(l.pages, l.order[0])
		l.order = l.order[1:]
	}
}

// Evict drops every cached rotation of path.
func (l *PageLoader) Evict(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.order[:0]
	for _, key := range l.order {
		if keyPath(key) == path {
			delete(l.pages, key)
			continue
		}
		kept = append(kept, key)
	}
	l.order = kept
}

// Clear removes all pages from the cache.
func (l *PageLoader) Clear() {
	l.mu.Lock()
	l.pages = make(map[string]*PixelBuffer)
	l.order = nil
	l.mu.Unlock()
}

// Len returns the number of cached pages.
func (l *PageLoader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pages)
}

func cacheKey(path string, rotation int) string {
	return strconv.Itoa(rotation) + "|" + path
}

func keyPath(key string) string {
	_, path, _ := strings.Cut(key, "|")
	return path
}
