package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// CaptureTemplate copies the width x height patch of page centred on
// (cx, cy). Parts of the patch that fall outside the page are black.
func CaptureTemplate(page *PixelBuffer, cx, cy, width, height int) *PixelBuffer {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	left, top := cx-width/2, cy-height/2

	canvas := imaging.New(width, height, color.Black)
	src := image.Rect(left, top, left+width, top+height).Intersect(page.Bounds())
	if !src.Empty() {
		patch := imaging.Crop(page, src)
		canvas = imaging.Paste(canvas, patch, image.Pt(src.Min.X-left, src.Min.Y-top))
	}
	return FromImage(canvas)
}

// Thumbnail crops r out of page and scales it to width x height using
// nearest-neighbour sampling. It returns nil when r does not overlap the page
// or the target size is empty.
func Thumbnail(page *PixelBuffer, r image.Rectangle, width, height int) image.Image {
	r = r.Intersect(page.Bounds())
	if r.Empty() || width < 1 || height < 1 {
		return nil
	}
	return imaging.Resize(imaging.Crop(page, r), width, height, imaging.NearestNeighbor)
}

// Zoom rescales the whole page by factor. Factors <= 0 or equal to 1 return
// the page unchanged.
func Zoom(page *PixelBuffer, factor float64) *PixelBuffer {
	if factor <= 0 || factor == 1 {
		return page
	}
	w := int(float64(page.Width) * factor)
	h := int(float64(page.Height) * factor)
	if w < 1 || h < 1 {
		return page
	}
	return FromImage(imaging.Resize(page, w, h, imaging.Linear))
}

// NormalizeRotation maps any multiple of 90 degrees onto 0, 90, 180 or 270.
// Other angles are rounded down to the previous quarter turn.
func NormalizeRotation(degrees int) int {
	d := ((degrees % 360) + 360) % 360
	return d - d%90
}

// Rotate turns img clockwise by degrees, which is normalized first.
func Rotate(img image.Image, degrees int) image.Image {
	switch NormalizeRotation(degrees) {
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	}
	return img
}
