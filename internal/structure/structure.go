package structure

import (
	"errors"
	"image"
	"slices"
	"sort"

	"github.com/ironsheep/omr-tools/internal/imaging"
)

// MaxMarkers is the number of registration markers a structure may hold.
const MaxMarkers = 2

// ErrTooManyMarkers is returned when adding a marker beyond MaxMarkers.
var ErrTooManyMarkers = errors.New("structure already has two registration markers")

// Structure is the layout shared by every sheet of a project.
type Structure struct {
	groups  []*QuestionGroup
	markers []*RegistrationMarker

	// LabelRegion is an optional aligned-page rectangle holding a printed
	// form label. The zero rectangle disables label reading.
	LabelRegion image.Rectangle

	groupsRevision  uint64
	markersRevision uint64
}

// New returns an empty structure.
func New() *Structure { return &Structure{} }

// AddQuestionGroup appends g to the structure.
func (s *Structure) AddQuestionGroup(g *QuestionGroup) {
	if g == nil || slices.Contains(s.groups, g) {
		return
	}
	s.groups = append(s.groups, g)
	s.groupsRevision++
}

// RemoveQuestionGroup removes g and reports whether it was present.
func (s *Structure) RemoveQuestionGroup(g *QuestionGroup) bool {
	i := slices.Index(s.groups, g)
	if i < 0 {
		return false
	}
	s.groups = slices.Delete(s.groups, i, i+1)
	// Keep the summed revision monotonic after losing g's contribution.
	s.groupsRevision += g.Revision() + 1
	return true
}

// QuestionGroups returns the groups ordered by IndexOffset. Groups with the
// same offset keep their insertion order.
func (s *Structure) QuestionGroups() []*QuestionGroup {
	out := slices.Clone(s.groups)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IndexOffset() < out[j].IndexOffset()
	})
	return out
}

// AddRegistrationMarker appends m. At most MaxMarkers markers are allowed.
func (s *Structure) AddRegistrationMarker(m *RegistrationMarker) error {
	if m == nil || slices.Contains(s.markers, m) {
		return nil
	}
	if len(s.markers) >= MaxMarkers {
		return ErrTooManyMarkers
	}
	s.markers = append(s.markers, m)
	s.markersRevision++
	return nil
}

// RemoveRegistrationMarker removes m and reports whether it was present.
func (s *Structure) RemoveRegistrationMarker(m *RegistrationMarker) bool {
	i := slices.Index(s.markers, m)
	if i < 0 {
		return false
	}
	s.markers = slices.Delete(s.markers, i, i+1)
	s.markersRevision += m.Revision() + 1
	return true
}

// RegistrationMarkers returns the markers in insertion order. The first
// marker anchors translation; the second adds rotation and scale.
func (s *Structure) RegistrationMarkers() []*RegistrationMarker {
	return slices.Clone(s.markers)
}

// CaptureTemplates captures every marker's template from the unaligned
// reference page.
func (s *Structure) CaptureTemplates(page *imaging.PixelBuffer) {
	for _, m := range s.markers {
		m.CaptureTemplate(page)
	}
}

// RegistrationRevision changes whenever anything that affects marker
// location changes.
func (s *Structure) RegistrationRevision() uint64 {
	rev := s.markersRevision
	for _, m := range s.markers {
		rev += m.Revision()
	}
	return rev
}

// LayoutRevision changes whenever anything that affects bubble sampling
// changes.
func (s *Structure) LayoutRevision() uint64 {
	rev := s.groupsRevision
	for _, g := range s.groups {
		rev += g.Revision()
	}
	return rev
}
