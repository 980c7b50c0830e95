package registration

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/ironsheep/omr-tools/internal/imaging"
)

// Warp resamples page through t with nearest-neighbour sampling. The result
// has the page's size; pixels with no source are black. The identity
// transform returns page itself.
func Warp(page *imaging.PixelBuffer, t Transform) *imaging.PixelBuffer {
	if page == nil || t.Kind == Identity {
		return page
	}
	dst := image.NewRGBA(page.Bounds())
	draw.NearestNeighbor.Transform(dst, t.Matrix(), page.RGBA(), page.Bounds(), draw.Src, nil)
	return imaging.FromImage(dst)
}
