package histogram

import (
	"image"
	"math"
)

// Buckets is the number of brightness levels tracked.
const Buckets = 256

// Histogram counts sampled bubble brightness values in [0, 255].
//
// Besides the counts it tracks the occupied range, the most frequent value
// and the current black/white thresholds. A histogram created with examples
// enabled additionally keeps one thumbnail per bucket: the first bubble that
// landed there.
//
// A Histogram is not safe for concurrent use. Batch analysis gives every
// worker its own histogram and merges them afterwards.
type Histogram struct {
	counts   [Buckets]int
	examples []image.Image

	minIndex int
	maxIndex int
	maxValue int
	mode     int
	sum      int

	black int
	white int
}

// New returns an empty histogram with thresholds black=0 and white=255.
// When keepExamples is true the histogram retains one thumbnail per bucket.
func New(keepExamples bool) *Histogram {
	h := &Histogram{black: 0, white: Buckets - 1}
	if keepExamples {
		h.examples = make([]image.Image, Buckets)
	}
	h.Reset()
	return h
}

// Reset clears every count and example. Thresholds are preserved.
func (h *Histogram) Reset() {
	h.counts = [Buckets]int{}
	for i := range h.examples {
		h.examples[i] = nil
	}
	h.minIndex = Buckets
	h.maxIndex = 0
	h.maxValue = 0
	h.mode = 0
	h.sum = 0
}

func clampIndex(i int) int {
	return min(max(i, 0), Buckets-1)
}

// Increase adds one observation at brightness i. Values outside [0, 255]
// are clamped.
func (h *Histogram) Increase(i int) {
	i = clampIndex(i)
	h.counts[i]++
	h.sum++
	h.minIndex = min(h.minIndex, i)
	h.maxIndex = max(h.maxIndex, i)
	if h.counts[i] > h.maxValue {
		h.maxValue = h.counts[i]
		h.mode = i
	}
}

// Count returns the number of observations at brightness i.
func (h *Histogram) Count(i int) int {
	if i < 0 || i >= Buckets {
		return 0
	}
	return h.counts[i]
}

// Counts returns a copy of all bucket counts.
func (h *Histogram) Counts() [Buckets]int { return h.counts }

// Sum returns the total number of observations.
func (h *Histogram) Sum() int { return h.sum }

// MinIndex returns the smallest occupied bucket, or 256 when empty.
func (h *Histogram) MinIndex() int { return h.minIndex }

// MaxIndex returns the largest occupied bucket, or 0 when empty.
func (h *Histogram) MaxIndex() int { return h.maxIndex }

// MaxValue returns the count of the most frequent bucket.
func (h *Histogram) MaxValue() int { return h.maxValue }

// Mode returns the most frequent bucket. On ties the bucket that first
// reached the top count wins.
func (h *Histogram) Mode() int { return h.mode }

// Average returns the mean brightness, or 0 for an empty histogram.
func (h *Histogram) Average() float64 {
	if h.sum == 0 {
		return 0
	}
	var total int
	for i, c := range h.counts {
		total += i * c
	}
	return float64(total) / float64(h.sum)
}

// LogMedian returns the first bucket at which the log of the cumulative
// count reaches half the log of the total count. It returns 0 when no
// bucket qualifies.
func (h *Histogram) LogMedian() int {
	if h.sum == 0 {
		return 0
	}
	threshold := math.Log(float64(h.sum)) / 2
	cumulative := 0
	for i := 0; i < Buckets-1; i++ {
		cumulative += h.counts[i]
		if cumulative > 1 && math.Log(float64(cumulative)) >= threshold {
			return i
		}
	}
	return 0
}

// BlackThreshold returns the brightness below which a bubble is filled.
func (h *Histogram) BlackThreshold() int { return h.black }

// WhiteThreshold returns the brightness at or above which a bubble is empty.
func (h *Histogram) WhiteThreshold() int { return h.white }

// SetBlackThreshold sets the black threshold, clamped to [0, 255]. The white
// threshold is raised to match if necessary.
func (h *Histogram) SetBlackThreshold(v int) {
	h.black = clampIndex(v)
	if h.white < h.black {
		h.white = h.black
	}
}

// SetWhiteThreshold sets the white threshold, clamped to [0, 255]. The black
// threshold is lowered to match if necessary.
func (h *Histogram) SetWhiteThreshold(v int) {
	h.white = clampIndex(v)
	if h.black > h.white {
		h.black = h.white
	}
}

// GuessThreshold derives both thresholds from the log-median and the mode.
// Black lies halfway from the log-median to the mode and white three
// quarters of the way, capped two levels below the mode.
func (h *Histogram) GuessThreshold() {
	median := float64(h.LogMedian())
	mode := float64(h.mode)

	black := int(median + (mode-median)*0.5)
	white := int(median + (mode-median)*0.75)
	if white > h.mode-2 {
		white = h.mode - 2
	}

	h.SetBlackThreshold(black)
	h.SetWhiteThreshold(white)
}

// KeepsExamples reports whether the histogram retains thumbnails.
func (h *Histogram) KeepsExamples() bool { return h.examples != nil }

// Example returns the thumbnail stored for bucket i, if any.
func (h *Histogram) Example(i int) image.Image {
	if h.examples == nil || i < 0 || i >= Buckets {
		return nil
	}
	return h.examples[i]
}

// SetExample stores img as the thumbnail for bucket i. It is a no-op for
// histograms without examples.
func (h *Histogram) SetExample(i int, img image.Image) {
	if h.examples == nil || i < 0 || i >= Buckets {
		return
	}
	h.examples[i] = img
}

// Merge adds every observation of other into h.
//
// Examples are only copied into buckets that have none yet, so merging
// per-sheet histograms in sheet order keeps the example of the earliest
// sheet. The mode is recomputed by an ascending scan and ties resolve to the
// lowest bucket.
func (h *Histogram) Merge(other *Histogram) {
	if other == nil || other.sum == 0 {
		return
	}
	for i, c := range other.counts {
		h.counts[i] += c
		if h.examples != nil && h.examples[i] == nil && other.Example(i) != nil {
			h.examples[i] = other.Example(i)
		}
	}
	h.sum += other.sum
	h.minIndex = min(h.minIndex, other.minIndex)
	h.maxIndex = max(h.maxIndex, other.maxIndex)

	h.maxValue, h.mode = 0, 0
	for i, c := range h.counts {
		if c > h.maxValue {
			h.maxValue = c
			h.mode = i
		}
	}
}
