package structure

import (
	"image"

	"github.com/ironsheep/omr-tools/internal/imaging"
)

const (
	defaultMarkerSize   = 32
	defaultSearchRadius = 16
)

// RegistrationMarker is a distinctive printed feature used to align scans
// with the reference sheet.
//
// X and Y give the marker centre on the reference sheet. ImageWidth and
// ImageHeight give the size of the template captured around that centre,
// and SearchRadius bounds how far the marker may have drifted on a scan.
type RegistrationMarker struct {
	x, y         int
	imageWidth   int
	imageHeight  int
	searchRadius int
	template     *imaging.PixelBuffer
	revision     uint64
	// revision at the last CaptureTemplate
	captured uint64
}

// NewRegistrationMarker creates a 32x32 marker centred on (x, y) with a
// search radius of 16 pixels.
func NewRegistrationMarker(x, y int) *RegistrationMarker {
	return &RegistrationMarker{
		x:            x,
		y:            y,
		imageWidth:   defaultMarkerSize,
		imageHeight:  defaultMarkerSize,
		searchRadius: defaultSearchRadius,
	}
}

func (m *RegistrationMarker) touch() { m.revision++ }

// Revision increases whenever the marker's position, size, search radius or
// template changes.
func (m *RegistrationMarker) Revision() uint64 { return m.revision }

func (m *RegistrationMarker) X() int { return m.x }
func (m *RegistrationMarker) Y() int { return m.y }

// Point returns the marker centre.
func (m *RegistrationMarker) Point() image.Point { return image.Pt(m.x, m.y) }

// SetX moves the marker centre horizontally.
func (m *RegistrationMarker) SetX(x int) {
	m.x = x
	m.touch()
}

// SetY moves the marker centre vertically.
func (m *RegistrationMarker) SetY(y int) {
	m.y = y
	m.touch()
}

func (m *RegistrationMarker) ImageWidth() int   { return m.imageWidth }
func (m *RegistrationMarker) ImageHeight() int  { return m.imageHeight }
func (m *RegistrationMarker) SearchRadius() int { return m.searchRadius }

// SetImageWidth sets the template width; values below 1 are clamped.
func (m *RegistrationMarker) SetImageWidth(w int) {
	m.imageWidth = max(w, 1)
	m.touch()
}

// SetImageHeight sets the template height; values below 1 are clamped.
func (m *RegistrationMarker) SetImageHeight(h int) {
	m.imageHeight = max(h, 1)
	m.touch()
}

// SetSearchRadius sets the search radius; negative values are clamped to 0.
func (m *RegistrationMarker) SetSearchRadius(r int) {
	m.searchRadius = max(r, 0)
	m.touch()
}

// Template returns the captured marker pixels, or nil if none was captured.
func (m *RegistrationMarker) Template() *imaging.PixelBuffer { return m.template }

// CaptureTemplate copies the marker's pixels out of the unaligned reference
// page. A nil page clears the template.
func (m *RegistrationMarker) CaptureTemplate(page *imaging.PixelBuffer) {
	if page == nil {
		m.template = nil
	} else {
		m.template = imaging.CaptureTemplate(page, m.x, m.y, m.imageWidth, m.imageHeight)
	}
	m.touch()
	m.captured = m.revision
}

// TemplateStale reports whether the marker has no template or was edited
// after the template was captured.
func (m *RegistrationMarker) TemplateStale() bool {
	return m.template == nil || m.captured != m.revision
}
