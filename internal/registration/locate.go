package registration

import (
	"image"

	"github.com/ironsheep/omr-tools/internal/imaging"
	"github.com/ironsheep/omr-tools/internal/structure"
)

// LocateMarker finds the marker's template on page and returns the centre of
// the best match.
//
// The search window starts SearchRadius pixels above and to the left of the
// template's nominal top-left corner and spans 2*SearchRadius positions on
// each axis, clipped so the template stays inside the page. The candidate
// with the smallest sum of absolute RGB differences wins; ties keep the
// first candidate in row-major scan order.
//
// When the clipped window is empty the marker's reference position is
// returned unchanged. The second result is false when the marker has no
// template or the page is nil.
func LocateMarker(page *imaging.PixelBuffer, m *structure.RegistrationMarker) (image.Point, bool) {
	tmpl := m.Template()
	if page == nil || tmpl == nil || tmpl.Width == 0 || tmpl.Height == 0 {
		return image.Point{}, false
	}

	r := m.SearchRadius()
	startY := max(m.Y()-r-tmpl.Height/2, 0)
	startX := max(m.X()-r-tmpl.Width/2, 0)
	endY := min(startY+2*r, page.Height-tmpl.Height)
	endX := min(startX+2*r, page.Width-tmpl.Width)

	if startY >= endY || startX >= endX {
		return m.Point(), true
	}

	best := int64(-1)
	var foundX, foundY int
	for y := startY; y < endY; y++ {
		for x := startX; x < endX; x++ {
			diff := imaging.AbsDiff(page, tmpl, x, y)
			if best < 0 || diff < best {
				best = diff
				foundX, foundY = x, y
			}
		}
	}
	return image.Pt(foundX+tmpl.Width/2, foundY+tmpl.Height/2), true
}

// LocateMarkers locates every marker of st on page. Markers that could not
// be searched are absent from the result.
func LocateMarkers(page *imaging.PixelBuffer, st *structure.Structure) map[*structure.RegistrationMarker]image.Point {
	found := make(map[*structure.RegistrationMarker]image.Point)
	for _, m := range st.RegistrationMarkers() {
		if p, ok := LocateMarker(page, m); ok {
			found[m] = p
		}
	}
	return found
}
