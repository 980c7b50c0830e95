package imaging

import (
	"image"
	"image/color"
	"testing"
)

// createInMemoryImage returns a solid-colour RGBA image.
func createInMemoryImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// createPatternImage returns an image with red, green, blue and white quadrants.
func createPatternImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var c color.RGBA
			switch {
			case x < width/2 && y < height/2:
				c = color.RGBA{255, 0, 0, 255}
			case x >= width/2 && y < height/2:
				c = color.RGBA{0, 255, 0, 255}
			case x < width/2:
				c = color.RGBA{0, 0, 255, 255}
			default:
				c = color.RGBA{255, 255, 255, 255}
			}
			img.Set(x, y, c)
		}
	}
	return img
}

func TestFromImage(t *testing.T) {
	buf := FromImage(createPatternImage(10, 8))

	if buf.Width != 10 || buf.Height != 8 {
		t.Fatalf("dimensions: got %dx%d, want 10x8", buf.Width, buf.Height)
	}
	if len(buf.Pix) != 10*8*3 {
		t.Fatalf("Pix length: got %d, want %d", len(buf.Pix), 10*8*3)
	}

	tests := []struct {
		name    string
		x, y    int
		r, g, b uint8
	}{
		{"top-left red", 1, 1, 255, 0, 0},
		{"top-right green", 8, 1, 0, 255, 0},
		{"bottom-left blue", 1, 6, 0, 0, 255},
		{"bottom-right white", 8, 6, 255, 255, 255},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, g, b := buf.RGB(tt.x, tt.y)
			if r != tt.r || g != tt.g || b != tt.b {
				t.Errorf("RGB(%d,%d) = (%d,%d,%d), want (%d,%d,%d)", tt.x, tt.y, r, g, b, tt.r, tt.g, tt.b)
			}
		})
	}
}

func TestFromImage_OffsetBounds(t *testing.T) {
	img := image.NewNRGBA(image.Rect(5, 5, 9, 9))
	img.Set(5, 5, color.NRGBA{10, 20, 30, 255})

	buf := FromImage(img)
	if buf.Width != 4 || buf.Height != 4 {
		t.Fatalf("dimensions: got %dx%d, want 4x4", buf.Width, buf.Height)
	}
	if r, g, b := buf.RGB(0, 0); r != 10 || g != 20 || b != 30 {
		t.Errorf("RGB(0,0) = (%d,%d,%d), want (10,20,30)", r, g, b)
	}
}

func TestPixelBuffer_OutOfBoundsIsBlack(t *testing.T) {
	buf := FromImage(createInMemoryImage(4, 4, color.White))

	for _, p := range []image.Point{{-1, 0}, {0, -1}, {4, 0}, {0, 4}} {
		if r, g, b := buf.RGB(p.X, p.Y); r != 0 || g != 0 || b != 0 {
			t.Errorf("RGB(%d,%d) = (%d,%d,%d), want black", p.X, p.Y, r, g, b)
		}
		if c := buf.At(p.X, p.Y).(color.RGBA); c != (color.RGBA{0, 0, 0, 255}) {
			t.Errorf("At(%d,%d) = %v, want opaque black", p.X, p.Y, c)
		}
	}

	buf.SetRGB(10, 10, 1, 2, 3) // ignored
}

func TestPixelBuffer_RGBARoundTrip(t *testing.T) {
	src := FromImage(createPatternImage(6, 6))
	back := FromImage(src.RGBA())

	if string(back.Pix) != string(src.Pix) {
		t.Error("RGBA conversion should preserve every pixel")
	}
	if c := src.RGBA().RGBAAt(0, 0); c.A != 255 {
		t.Errorf("alpha: got %d, want 255", c.A)
	}
}

func TestPixelBuffer_Clone(t *testing.T) {
	src := NewPixelBuffer(2, 2)
	dup := src.Clone()
	dup.SetRGB(0, 0, 9, 9, 9)

	if r, _, _ := src.RGB(0, 0); r != 0 {
		t.Error("Clone should not share pixel storage")
	}
}

func TestNewPixelBuffer_NegativeSize(t *testing.T) {
	buf := NewPixelBuffer(-3, 5)
	if buf.Width != 0 || len(buf.Pix) != 0 {
		t.Errorf("got width %d, %d bytes; want an empty buffer", buf.Width, len(buf.Pix))
	}
}

func TestChannelSum(t *testing.T) {
	buf := FromImage(createInMemoryImage(4, 4, color.RGBA{10, 20, 30, 255}))

	tests := []struct {
		name string
		r    image.Rectangle
		want int64
	}{
		{"whole image", image.Rect(0, 0, 4, 4), 16 * 60},
		{"single pixel", image.Rect(1, 1, 2, 2), 60},
		{"clipped", image.Rect(2, 2, 10, 10), 4 * 60},
		{"outside", image.Rect(5, 5, 8, 8), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChannelSum(buf, tt.r); got != tt.want {
				t.Errorf("ChannelSum = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFill(t *testing.T) {
	buf := FromImage(createInMemoryImage(4, 4, color.White))
	Fill(buf, image.Rect(-2, -2, 2, 2), 0, 0, 0)

	if r, _, _ := buf.RGB(1, 1); r != 0 {
		t.Error("filled pixel should be black")
	}
	if r, _, _ := buf.RGB(2, 2); r != 255 {
		t.Error("pixel outside the fill should stay white")
	}
}

func TestAbsDiff(t *testing.T) {
	page := FromImage(createInMemoryImage(6, 6, color.White))
	Fill(page, image.Rect(2, 2, 4, 4), 0, 0, 0)
	tmpl := CaptureTemplate(page, 3, 3, 2, 2)

	if got := AbsDiff(page, tmpl, 2, 2); got != 0 {
		t.Errorf("AbsDiff at match = %d, want 0", got)
	}
	// One column of the window is white where the template is black.
	if got := AbsDiff(page, tmpl, 3, 2); got != 2*3*255 {
		t.Errorf("AbsDiff shifted = %d, want %d", got, 2*3*255)
	}
}
