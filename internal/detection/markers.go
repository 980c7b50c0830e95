package detection

import (
	"image"
	"math"
	"sort"

	"github.com/ironsheep/omr-tools/internal/imaging"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge (inclusive)
	Y1 int `json:"y1"` // Top edge (inclusive)
	X2 int `json:"x2"` // Right edge (exclusive)
	Y2 int `json:"y2"` // Bottom edge (exclusive)
}

// Rect converts b to an image.Rectangle.
func (b Bounds) Rect() image.Rectangle { return image.Rect(b.X1, b.Y1, b.X2, b.Y2) }

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Candidate is a dark square that could serve as a registration marker.
type Candidate struct {
	Bounds Bounds `json:"bounds"`
	Center Point  `json:"center"`
	Width  int    `json:"width"`
	Height int    `json:"height"`

	// Fill is the fraction of the bounding box covered by ink.
	Fill float64 `json:"fill"`

	// Confidence indicates how closely the component matches a solid square
	// (0.0 to 1.0).
	Confidence float64 `json:"confidence"`
}

// Options bounds what counts as a marker.
type Options struct {
	// Darkness is the luma below which a pixel is ink.
	Darkness int
	// MinSize and MaxSize bound both sides of the bounding box, in pixels.
	MinSize int
	MaxSize int
	// MinFill is the minimum ink coverage of the bounding box.
	MinFill float64
	// Squareness is the minimum ratio of the shorter to the longer side.
	Squareness float64
}

// DefaultOptions accepts solid squares between 8 and 96 pixels.
func DefaultOptions() Options {
	return Options{
		Darkness:   96,
		MinSize:    8,
		MaxSize:    96,
		MinFill:    0.8,
		Squareness: 0.8,
	}
}

// component is a connected group of ink pixels.
type component struct {
	minX, minY int
	maxX, maxY int
	pixels     int
}

// SuggestMarkers returns the marker candidates on page, best first.
func SuggestMarkers(page *imaging.PixelBuffer, opts Options) []Candidate {
	width, height := page.Width, page.Height
	ink := make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			ink[y*width+x] = int(grayValue(page, x, y)) < opts.Darkness
		}
	}

	visited := make([]bool, width*height)
	candidates := make([]Candidate, 0)
	for i, isInk := range ink {
		if !isInk || visited[i] {
			continue
		}
		c := floodFill(ink, visited, i%width, i/width, width, height)
		if cand, ok := evaluate(c, opts); ok {
			candidates = append(candidates, cand)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return cornerDistance(candidates[i].Center, width, height) < cornerDistance(candidates[j].Center, width, height)
	})
	return candidates
}

func evaluate(c component, opts Options) (Candidate, bool) {
	w := c.maxX - c.minX + 1
	h := c.maxY - c.minY + 1
	if w < opts.MinSize || h < opts.MinSize || w > opts.MaxSize || h > opts.MaxSize {
		return Candidate{}, false
	}

	squareness := float64(min(w, h)) / float64(max(w, h))
	fill := float64(c.pixels) / float64(w*h)
	if squareness < opts.Squareness || fill < opts.MinFill {
		return Candidate{}, false
	}

	return Candidate{
		Bounds: Bounds{X1: c.minX, Y1: c.minY, X2: c.maxX + 1, Y2: c.maxY + 1},
		Center: Point{
			X: (c.minX + c.maxX + 1) / 2,
			Y: (c.minY + c.maxY + 1) / 2,
		},
		Width:      w,
		Height:     h,
		Fill:       fill,
		Confidence: squareness * fill,
	}, true
}

// floodFill collects the 8-connected ink component containing (startX,
// startY). It uses an explicit stack so large components cannot overflow
// the goroutine stack.
func floodFill(ink, visited []bool, startX, startY, width, height int) component {
	c := component{minX: startX, minY: startY, maxX: startX, maxY: startY}
	stack := []int{startY*width + startX}
	visited[stack[0]] = true

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%width, i/width

		c.pixels++
		c.minX, c.maxX = min(c.minX, x), max(c.maxX, x)
		c.minY, c.maxY = min(c.minY, y), max(c.maxY, y)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				nx, ny := x+dx, y+dy
				if nx < 0 || nx >= width || ny < 0 || ny >= height {
					continue
				}
				n := ny*width + nx
				if ink[n] && !visited[n] {
					visited[n] = true
					stack = append(stack, n)
				}
			}
		}
	}
	return c
}

// grayValue converts a pixel to grayscale using ITU-R BT.601 luminance weights.
func grayValue(page *imaging.PixelBuffer, x, y int) uint8 {
	r, g, b := page.RGB(x, y)
	return uint8(float64(r)*0.299 + float64(g)*0.587 + float64(b)*0.114)
}

func cornerDistance(p Point, width, height int) float64 {
	dx := math.Min(float64(p.X), float64(width-p.X))
	dy := math.Min(float64(p.Y), float64(height-p.Y))
	return math.Hypot(dx, dy)
}

// FarthestPair returns the two candidates farthest apart, which give the
// most stable rotation estimate. With a single candidate ok is true and b
// equals a.
func FarthestPair(candidates []Candidate) (a, b Candidate, ok bool) {
	switch len(candidates) {
	case 0:
		return Candidate{}, Candidate{}, false
	case 1:
		return candidates[0], candidates[0], true
	}

	best := -1.0
	for i := range candidates {
		for j := i + 1; j < len(candidates); j++ {
			d := math.Hypot(
				float64(candidates[i].Center.X-candidates[j].Center.X),
				float64(candidates[i].Center.Y-candidates[j].Center.Y),
			)
			if d > best {
				best, a, b = d, candidates[i], candidates[j]
			}
		}
	}
	return a, b, true
}
