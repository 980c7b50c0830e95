package detection

import (
	"image"
	"testing"

	"github.com/ironsheep/omr-tools/internal/imaging"
)

// createTestPage returns a white page with the given rectangles filled black.
func createTestPage(width, height int, rects ...image.Rectangle) *imaging.PixelBuffer {
	page := imaging.NewPixelBuffer(width, height)
	imaging.Fill(page, page.Bounds(), 255, 255, 255)
	for _, r := range rects {
		imaging.Fill(page, r, 0, 0, 0)
	}
	return page
}

func TestSuggestMarkers(t *testing.T) {
	page := createTestPage(200, 200,
		image.Rect(22, 22, 38, 38),     // marker
		image.Rect(160, 150, 176, 166), // marker
		image.Rect(60, 60, 90, 66),     // bar: not square
		image.Rect(60, 100, 64, 104),   // speck: too small
	)
	// Ring: square but hollow
	imaging.Fill(page, image.Rect(100, 20, 130, 50), 0, 0, 0)
	imaging.Fill(page, image.Rect(104, 24, 126, 46), 255, 255, 255)

	got := SuggestMarkers(page, DefaultOptions())

	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2: %+v", len(got), got)
	}
	want := []Point{{30, 30}, {168, 158}}
	for i, c := range got {
		if c.Center != want[i] {
			t.Errorf("candidate %d: center %v, want %v", i, c.Center, want[i])
		}
		if c.Width != 16 || c.Height != 16 || c.Fill != 1 || c.Confidence != 1 {
			t.Errorf("candidate %d: %+v", i, c)
		}
	}
	if got[0].Bounds.Rect() != image.Rect(22, 22, 38, 38) {
		t.Errorf("bounds: got %v", got[0].Bounds.Rect())
	}
}

func TestSuggestMarkers_Options(t *testing.T) {
	page := createTestPage(200, 200, image.Rect(20, 20, 140, 140))

	tests := []struct {
		name  string
		opts  func(o *Options)
		count int
	}{
		{"too large by default", func(o *Options) {}, 0},
		{"larger max size", func(o *Options) { o.MaxSize = 150 }, 1},
		{"darkness excludes black", func(o *Options) { o.MaxSize = 150; o.Darkness = 0 }, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.opts(&opts)
			if got := SuggestMarkers(page, opts); len(got) != tt.count {
				t.Errorf("got %d candidates, want %d", len(got), tt.count)
			}
		})
	}
}

func TestSuggestMarkers_Empty(t *testing.T) {
	if got := SuggestMarkers(createTestPage(50, 50), DefaultOptions()); len(got) != 0 {
		t.Errorf("blank page: got %+v", got)
	}
}

func TestSuggestMarkers_RanksByCornerDistance(t *testing.T) {
	page := createTestPage(300, 300,
		image.Rect(140, 140, 156, 156), // centre of the page
		image.Rect(270, 10, 286, 26),   // top-right corner
	)
	got := SuggestMarkers(page, DefaultOptions())
	if len(got) != 2 || got[0].Center != (Point{278, 18}) {
		t.Errorf("got %+v, want the corner square first", got)
	}
}

func TestFarthestPair(t *testing.T) {
	at := func(x, y int) Candidate { return Candidate{Center: Point{x, y}} }

	if _, _, ok := FarthestPair(nil); ok {
		t.Error("no candidates: ok should be false")
	}
	a, b, ok := FarthestPair([]Candidate{at(5, 5)})
	if !ok || a != b {
		t.Errorf("single candidate: got %v %v %v", a, b, ok)
	}
	a, b, ok = FarthestPair([]Candidate{at(10, 10), at(50, 50), at(190, 180), at(100, 20)})
	if !ok || a.Center != (Point{10, 10}) || b.Center != (Point{190, 180}) {
		t.Errorf("got %v %v", a.Center, b.Center)
	}
}
