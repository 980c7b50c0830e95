package imaging

import (
	"image"
	"image/color"
	"testing"
)

func TestCaptureTemplate(t *testing.T) {
	page := FromImage(createPatternImage(20, 20))

	tmpl := CaptureTemplate(page, 10, 10, 4, 4)
	if tmpl.Width != 4 || tmpl.Height != 4 {
		t.Fatalf("dimensions: got %dx%d, want 4x4", tmpl.Width, tmpl.Height)
	}
	// Top-left of the patch is page pixel (8,8): red quadrant.
	if r, g, b := tmpl.RGB(0, 0); r != 255 || g != 0 || b != 0 {
		t.Errorf("RGB(0,0) = (%d,%d,%d), want red", r, g, b)
	}
	// Bottom-right of the patch is page pixel (11,11): white quadrant.
	if r, g, b := tmpl.RGB(3, 3); r != 255 || g != 255 || b != 255 {
		t.Errorf("RGB(3,3) = (%d,%d,%d), want white", r, g, b)
	}
}

func TestCaptureTemplate_OutsidePageIsBlack(t *testing.T) {
	page := FromImage(createInMemoryImage(10, 10, color.White))

	tmpl := CaptureTemplate(page, 0, 0, 6, 6)
	if r, g, b := tmpl.RGB(0, 0); r != 0 || g != 0 || b != 0 {
		t.Errorf("pixel outside page = (%d,%d,%d), want black", r, g, b)
	}
	if r, _, _ := tmpl.RGB(3, 3); r != 255 {
		t.Errorf("pixel inside page = %d, want 255", r)
	}

	far := CaptureTemplate(page, 100, 100, 3, 3)
	if got := ChannelSum(far, far.Bounds()); got != 0 {
		t.Errorf("patch entirely off page should be black, sum %d", got)
	}
}

func TestThumbnail(t *testing.T) {
	page := FromImage(createPatternImage(40, 40))

	thumb := Thumbnail(page, image.Rect(0, 0, 10, 10), 24, 24)
	if thumb == nil {
		t.Fatal("Thumbnail returned nil")
	}
	if b := thumb.Bounds(); b.Dx() != 24 || b.Dy() != 24 {
		t.Errorf("dimensions: got %dx%d, want 24x24", b.Dx(), b.Dy())
	}
	if r, g, b, _ := thumb.At(5, 5).RGBA(); r>>8 != 255 || g != 0 || b != 0 {
		t.Errorf("thumbnail of red quadrant has colour (%d,%d,%d)", r>>8, g>>8, b>>8)
	}

	if Thumbnail(page, image.Rect(50, 50, 60, 60), 24, 24) != nil {
		t.Error("Thumbnail outside the page should be nil")
	}
}

func TestZoom(t *testing.T) {
	page := FromImage(createInMemoryImage(10, 20, color.White))

	tests := []struct {
		factor        float64
		width, height int
	}{
		{2, 20, 40},
		{0.5, 5, 10},
		{1, 10, 20},
		{0, 10, 20},
	}
	for _, tt := range tests {
		got := Zoom(page, tt.factor)
		if got.Width != tt.width || got.Height != tt.height {
			t.Errorf("Zoom(%v): got %dx%d, want %dx%d", tt.factor, got.Width, got.Height, tt.width, tt.height)
		}
	}
}

func TestNormalizeRotation(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 0}, {90, 90}, {180, 180}, {270, 270}, {360, 0},
		{-90, 270}, {450, 90}, {100, 90},
	}
	for _, tt := range tests {
		if got := NormalizeRotation(tt.in); got != tt.want {
			t.Errorf("NormalizeRotation(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRotate_Clockwise(t *testing.T) {
	// 4x2 image with a single red pixel at the top-left.
	img := createInMemoryImage(4, 2, color.White)
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		degrees       int
		width, height int
		red           image.Point
	}{
		{0, 4, 2, image.Pt(0, 0)},
		{90, 2, 4, image.Pt(1, 0)},
		{180, 4, 2, image.Pt(3, 1)},
		{270, 2, 4, image.Pt(0, 3)},
	}
	for _, tt := range tests {
		buf := FromImage(Rotate(img, tt.degrees))
		if buf.Width != tt.width || buf.Height != tt.height {
			t.Errorf("Rotate(%d): got %dx%d, want %dx%d", tt.degrees, buf.Width, buf.Height, tt.width, tt.height)
			continue
		}
		if _, g, _ := buf.RGB(tt.red.X, tt.red.Y); g != 0 {
			t.Errorf("Rotate(%d): expected red pixel at %v", tt.degrees, tt.red)
		}
	}
}

func TestDrawLabel(t *testing.T) {
	img := createInMemoryImage(30, 20, color.White)
	DrawLabel(img, 2, 2, 2, "?", color.RGBA{255, 0, 0, 255}, nil)

	// Top row of '?' is "111".
	if c := img.RGBAAt(2, 2); c.G != 0 {
		t.Errorf("expected glyph pixel at (2,2), got %v", c)
	}
	if w, h := LabelSize("12", 2); w != 16 || h != 14 {
		t.Errorf("LabelSize = %dx%d, want 16x14", w, h)
	}

	// Drawing off the image must not panic.
	DrawLabel(img, 28, 18, 3, "0.5", color.Black, color.White)
}

func TestDrawRect(t *testing.T) {
	img := createInMemoryImage(20, 20, color.White)
	DrawRect(img, image.Rect(5, 5, 10, 10), color.RGBA{0, 0, 255, 255}, 1)

	if c := img.RGBAAt(4, 7); c.R != 0 || c.B != 255 {
		t.Errorf("left edge not drawn: %v", c)
	}
	if c := img.RGBAAt(7, 7); c.R != 255 {
		t.Errorf("interior should be untouched: %v", c)
	}
	DrawRect(img, image.Rect(-5, -5, 30, 30), color.Black, 3)
}

func TestDrawCorners(t *testing.T) {
	img := createInMemoryImage(30, 30, color.White)
	DrawCorners(img, image.Rect(5, 5, 25, 25), color.Black, 4)

	for _, p := range []image.Point{{5, 5}, {9, 5}, {5, 9}, {25, 25}, {21, 25}, {25, 5}, {5, 25}} {
		if c := img.RGBAAt(p.X, p.Y); c.R != 0 {
			t.Errorf("expected tick pixel at %v, got %v", p, c)
		}
	}
	for _, p := range []image.Point{{15, 5}, {5, 15}, {15, 15}, {10, 5}} {
		if c := img.RGBAAt(p.X, p.Y); c.R != 255 {
			t.Errorf("pixel %v should be untouched, got %v", p, c)
		}
	}
}
