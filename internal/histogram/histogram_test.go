package histogram

import (
	"image"
	"math/rand"
	"testing"
)

func fill(h *Histogram, values map[int]int) {
	for v, n := range values {
		for i := 0; i < n; i++ {
			h.Increase(v)
		}
	}
}

func TestNew(t *testing.T) {
	h := New(false)
	if h.BlackThreshold() != 0 || h.WhiteThreshold() != 255 {
		t.Errorf("thresholds: got %d/%d, want 0/255", h.BlackThreshold(), h.WhiteThreshold())
	}
	if h.MinIndex() != 256 || h.MaxIndex() != 0 || h.Sum() != 0 {
		t.Errorf("empty state: min %d max %d sum %d", h.MinIndex(), h.MaxIndex(), h.Sum())
	}
	if h.KeepsExamples() {
		t.Error("New(false) should not keep examples")
	}
	if h.LogMedian() != 0 || h.Average() != 0 {
		t.Error("empty histogram should report zero median and average")
	}
}

func TestIncrease(t *testing.T) {
	h := New(false)
	fill(h, map[int]int{40: 2, 200: 5, 210: 1})

	if h.Sum() != 8 {
		t.Errorf("Sum = %d, want 8", h.Sum())
	}
	if h.MinIndex() != 40 || h.MaxIndex() != 210 {
		t.Errorf("range: got [%d,%d], want [40,210]", h.MinIndex(), h.MaxIndex())
	}
	if h.Mode() != 200 || h.MaxValue() != 5 {
		t.Errorf("mode: got %d (%d), want 200 (5)", h.Mode(), h.MaxValue())
	}
	if h.Count(40) != 2 || h.Count(-1) != 0 || h.Count(256) != 0 {
		t.Error("Count returned unexpected values")
	}

	h.Increase(-10)
	h.Increase(999)
	if h.Count(0) != 1 || h.Count(255) != 1 {
		t.Error("out-of-range values should be clamped into the end buckets")
	}
}

func TestMode_FirstToReachWins(t *testing.T) {
	h := New(false)
	h.Increase(100)
	h.Increase(50)
	h.Increase(50)
	h.Increase(100)

	if h.Mode() != 50 {
		t.Errorf("Mode = %d, want 50 (reached 2 first)", h.Mode())
	}
}

func TestAverage(t *testing.T) {
	h := New(false)
	fill(h, map[int]int{10: 1, 30: 3})
	if got := h.Average(); got != 25 {
		t.Errorf("Average = %v, want 25", got)
	}
}

func TestLogMedian(t *testing.T) {
	tests := []struct {
		name   string
		values map[int]int
		want   int
	}{
		// ln(100)/2 = ln(10): the first bucket where the running total passes 10.
		{"spread", map[int]int{20: 4, 60: 7, 220: 89}, 60},
		{"single bucket", map[int]int{128: 9}, 128},
		// A lone observation never passes the "cumulative > 1" gate.
		{"one observation", map[int]int{5: 1}, 0},
		// Bucket 255 is never examined.
		{"top bucket only", map[int]int{255: 50}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(false)
			fill(h, tt.values)
			if got := h.LogMedian(); got != tt.want {
				t.Errorf("LogMedian = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGuessThreshold(t *testing.T) {
	h := New(false)
	fill(h, map[int]int{20: 4, 60: 7, 220: 89})
	h.GuessThreshold()

	// median 60, mode 220: black = 60+80 = 140, white = 60+120 = 180.
	if h.BlackThreshold() != 140 || h.WhiteThreshold() != 180 {
		t.Errorf("thresholds: got %d/%d, want 140/180", h.BlackThreshold(), h.WhiteThreshold())
	}
}

func TestGuessThreshold_WhiteCappedBelowMode(t *testing.T) {
	h := New(false)
	fill(h, map[int]int{200: 3, 201: 20})
	h.GuessThreshold()

	// median 201 == mode: black = 201, white capped at 199 and black pushed down.
	if h.WhiteThreshold() != 199 || h.BlackThreshold() != 199 {
		t.Errorf("thresholds: got %d/%d, want 199/199", h.BlackThreshold(), h.WhiteThreshold())
	}
}

func TestThresholdSetters(t *testing.T) {
	tests := []struct {
		name         string
		black, white int
		apply        func(h *Histogram)
		wantB, wantW int
	}{
		{"black pushes white", 50, 100, func(h *Histogram) { h.SetBlackThreshold(150) }, 150, 150},
		{"white pushes black", 50, 100, func(h *Histogram) { h.SetWhiteThreshold(20) }, 20, 20},
		{"black clamped low", 50, 100, func(h *Histogram) { h.SetBlackThreshold(-5) }, 0, 100},
		{"white clamped high", 50, 100, func(h *Histogram) { h.SetWhiteThreshold(400) }, 50, 255},
		{"black clamped high", 50, 100, func(h *Histogram) { h.SetBlackThreshold(300) }, 255, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(false)
			h.SetWhiteThreshold(tt.white)
			h.SetBlackThreshold(tt.black)
			tt.apply(h)
			if h.BlackThreshold() != tt.wantB || h.WhiteThreshold() != tt.wantW {
				t.Errorf("thresholds: got %d/%d, want %d/%d",
					h.BlackThreshold(), h.WhiteThreshold(), tt.wantB, tt.wantW)
			}
		})
	}
}

func TestThresholdOrdering_Random(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	h := New(false)
	for i := 0; i < 2000; i++ {
		switch rng.Intn(3) {
		case 0:
			h.SetBlackThreshold(rng.Intn(600) - 200)
		case 1:
			h.SetWhiteThreshold(rng.Intn(600) - 200)
		default:
			h.Reset()
			for n := rng.Intn(50); n > 0; n-- {
				h.Increase(rng.Intn(256))
			}
			h.GuessThreshold()
		}
		b, w := h.BlackThreshold(), h.WhiteThreshold()
		if b < 0 || w > 255 || b > w {
			t.Fatalf("step %d: invalid thresholds %d/%d", i, b, w)
		}
	}
}

func TestReset_KeepsThresholds(t *testing.T) {
	h := New(true)
	fill(h, map[int]int{10: 3})
	h.SetExample(10, image.NewRGBA(image.Rect(0, 0, 1, 1)))
	h.SetBlackThreshold(70)
	h.Reset()

	if h.Sum() != 0 || h.Count(10) != 0 || h.Example(10) != nil {
		t.Error("Reset should clear counts and examples")
	}
	if h.BlackThreshold() != 70 {
		t.Errorf("Reset changed the black threshold to %d", h.BlackThreshold())
	}
}

func TestExamples(t *testing.T) {
	thumb := image.NewRGBA(image.Rect(0, 0, 2, 2))

	without := New(false)
	without.SetExample(3, thumb)
	if without.Example(3) != nil {
		t.Error("histogram without examples should ignore SetExample")
	}

	with := New(true)
	with.SetExample(3, thumb)
	with.SetExample(300, thumb)
	if with.Example(3) != thumb {
		t.Error("Example(3) should return the stored thumbnail")
	}
	if with.Example(-1) != nil {
		t.Error("Example(-1) should be nil")
	}
}

func TestMerge(t *testing.T) {
	first := image.NewRGBA(image.Rect(0, 0, 1, 1))
	second := image.NewRGBA(image.Rect(0, 0, 2, 2))

	global := New(true)
	a := New(true)
	fill(a, map[int]int{30: 2, 200: 3})
	a.SetExample(30, first)
	b := New(true)
	fill(b, map[int]int{30: 3, 220: 1})
	b.SetExample(30, second)
	b.SetExample(220, second)

	global.Merge(a)
	global.Merge(b)
	global.Merge(nil)
	global.Merge(New(false))

	if global.Sum() != 9 {
		t.Errorf("Sum = %d, want 9", global.Sum())
	}
	if global.Count(30) != 5 || global.Count(220) != 1 {
		t.Errorf("counts: 30=%d 220=%d", global.Count(30), global.Count(220))
	}
	if global.MinIndex() != 30 || global.MaxIndex() != 220 {
		t.Errorf("range: [%d,%d]", global.MinIndex(), global.MaxIndex())
	}
	if global.Mode() != 30 || global.MaxValue() != 5 {
		t.Errorf("mode: %d (%d), want 30 (5)", global.Mode(), global.MaxValue())
	}
	if global.Example(30) != first {
		t.Error("the first merged example should win")
	}
	if global.Example(220) != second {
		t.Error("empty example slots should be filled from later merges")
	}
}

func TestMerge_TieResolvesToLowestBucket(t *testing.T) {
	global := New(false)
	a := New(false)
	fill(a, map[int]int{180: 2})
	b := New(false)
	fill(b, map[int]int{90: 2})

	global.Merge(a)
	global.Merge(b)
	if global.Mode() != 90 {
		t.Errorf("Mode = %d, want 90", global.Mode())
	}
}
