package imaging

import "image"

// ChannelSum returns the sum of R+G+B over every pixel of r that lies
// inside the buffer. Pixels outside the buffer contribute nothing.
func ChannelSum(b *PixelBuffer, r image.Rectangle) int64 {
	r = r.Intersect(b.Bounds())
	var sum int64
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := b.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			sum += int64(b.Pix[i]) + int64(b.Pix[i+1]) + int64(b.Pix[i+2])
			i += 3
		}
	}
	return sum
}

// Fill paints r with a solid colour, clipped to the buffer.
func Fill(b *PixelBuffer, r image.Rectangle, red, green, blue uint8) {
	r = r.Intersect(b.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		i := b.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			b.Pix[i], b.Pix[i+1], b.Pix[i+2] = red, green, blue
			i += 3
		}
	}
}
