package imaging

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/clone"
)

// PixelBuffer is a packed 8-bit RGB raster.
//
// Pixels are stored row by row, three bytes per pixel in R, G, B order.
// PixelBuffer implements image.Image so it can be handed to the imaging and
// x/image libraries directly. Reads outside the raster yield opaque black.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewPixelBuffer allocates a black buffer of the given size. Negative
// dimensions are treated as zero.
func NewPixelBuffer(width, height int) *PixelBuffer {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &PixelBuffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*3),
	}
}

// FromImage converts any image into a PixelBuffer anchored at (0,0).
// The alpha channel is discarded.
func FromImage(img image.Image) *PixelBuffer {
	if pb, ok := img.(*PixelBuffer); ok {
		return pb
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		rgba = clone.AsRGBA(img)
	}

	bounds := rgba.Bounds()
	buf := NewPixelBuffer(bounds.Dx(), bounds.Dy())
	for y := 0; y < buf.Height; y++ {
		src := rgba.PixOffset(bounds.Min.X, bounds.Min.Y+y)
		dst := y * buf.Width * 3
		for x := 0; x < buf.Width; x++ {
			buf.Pix[dst] = rgba.Pix[src]
			buf.Pix[dst+1] = rgba.Pix[src+1]
			buf.Pix[dst+2] = rgba.Pix[src+2]
			src += 4
			dst += 3
		}
	}
	return buf
}

// RGBA expands the buffer into an opaque *image.RGBA.
func (b *PixelBuffer) RGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for i, j := 0, 0; i < len(b.Pix); i, j = i+3, j+4 {
		out.Pix[j] = b.Pix[i]
		out.Pix[j+1] = b.Pix[i+1]
		out.Pix[j+2] = b.Pix[i+2]
		out.Pix[j+3] = 0xff
	}
	return out
}

// Clone returns a deep copy of the buffer.
func (b *PixelBuffer) Clone() *PixelBuffer {
	out := &PixelBuffer{Width: b.Width, Height: b.Height, Pix: make([]uint8, len(b.Pix))}
	copy(out.Pix, b.Pix)
	return out
}

// PixOffset returns the index of the first byte of pixel (x, y).
func (b *PixelBuffer) PixOffset(x, y int) int {
	return (y*b.Width + x) * 3
}

// InBounds reports whether (x, y) lies inside the raster.
func (b *PixelBuffer) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// RGB returns the channels of pixel (x, y), or black when out of bounds.
func (b *PixelBuffer) RGB(x, y int) (r, g, bl uint8) {
	if !b.InBounds(x, y) {
		return 0, 0, 0
	}
	i := b.PixOffset(x, y)
	return b.Pix[i], b.Pix[i+1], b.Pix[i+2]
}

// SetRGB writes pixel (x, y). Writes outside the raster are ignored.
func (b *PixelBuffer) SetRGB(x, y int, r, g, bl uint8) {
	if !b.InBounds(x, y) {
		return
	}
	i := b.PixOffset(x, y)
	b.Pix[i], b.Pix[i+1], b.Pix[i+2] = r, g, bl
}

// ColorModel implements image.Image.
func (b *PixelBuffer) ColorModel() color.Model { return color.RGBAModel }

// Bounds implements image.Image.
func (b *PixelBuffer) Bounds() image.Rectangle { return image.Rect(0, 0, b.Width, b.Height) }

// At implements image.Image.
func (b *PixelBuffer) At(x, y int) color.Color {
	r, g, bl := b.RGB(x, y)
	return color.RGBA{R: r, G: g, B: bl, A: 0xff}
}
