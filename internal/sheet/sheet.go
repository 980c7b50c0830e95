package sheet

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"

	"github.com/ironsheep/omr-tools/internal/histogram"
	"github.com/ironsheep/omr-tools/internal/imaging"
	"github.com/ironsheep/omr-tools/internal/registration"
	"github.com/ironsheep/omr-tools/internal/structure"
)

var (
	// ErrNoPage is returned by Analyze when called without a page.
	ErrNoPage = errors.New("no page to analyze")
	// ErrCellOutOfRange is returned for bubble coordinates outside a group.
	ErrCellOutOfRange = errors.New("cell out of range")
)

// Sheet is one scanned answer sheet and everything derived from it.
type Sheet struct {
	// ID identifies the sheet within a project. It defaults to the file name.
	ID       string
	FilePath string
	// FormLabel holds text read from the structure's label region, if any.
	FormLabel string

	rotation int

	histogram *histogram.Histogram

	markers         map[*structure.RegistrationMarker]image.Point
	markersRevision uint64
	transform       registration.Transform

	brightness     map[*structure.QuestionGroup][][]int
	layoutRevision uint64

	answers      map[*structure.QuestionGroup][][]Answer
	overrides    map[*structure.QuestionGroup][][]Override
	answersValid bool

	studentNumber string
	checkLetter   string
}

// New creates an unanalyzed sheet for the image at path.
func New(path string) *Sheet {
	return &Sheet{
		ID:        filepath.Base(path),
		FilePath:  path,
		histogram: histogram.New(false),
		transform: registration.IdentityTransform(),
		overrides: make(map[*structure.QuestionGroup][][]Override),
	}
}

// FileName returns the base name of the sheet's image file.
func (s *Sheet) FileName() string { return filepath.Base(s.FilePath) }

// Rotation returns the clockwise rotation applied when loading the page.
func (s *Sheet) Rotation() int { return s.rotation }

// SetRotation changes the load rotation and invalidates all derived data.
func (s *Sheet) SetRotation(degrees int) {
	degrees = imaging.NormalizeRotation(degrees)
	if degrees == s.rotation {
		return
	}
	s.rotation = degrees
	s.InvalidateRegistration()
}

// Histogram returns the sheet's own brightness histogram.
func (s *Sheet) Histogram() *histogram.Histogram { return s.histogram }

// Transform returns the alignment transform from the last analysis.
func (s *Sheet) Transform() registration.Transform { return s.transform }

// MarkerLocation reports where m was found on the last analysis.
func (s *Sheet) MarkerLocation(m *structure.RegistrationMarker) (image.Point, bool) {
	p, ok := s.markers[m]
	return p, ok
}

// InvalidateRegistration drops marker locations and everything derived
// from them.
func (s *Sheet) InvalidateRegistration() {
	s.markers = nil
	s.transform = registration.IdentityTransform()
	s.InvalidateBrightness()
}

// InvalidateBrightness drops sampled brightness and the answers built on it.
func (s *Sheet) InvalidateBrightness() {
	s.brightness = nil
	s.histogram.Reset()
	s.InvalidateAnswers()
}

// InvalidateAnswers drops classified answers. Overrides are kept.
func (s *Sheet) InvalidateAnswers() {
	s.answers = nil
	s.answersValid = false
	s.studentNumber = ""
	s.checkLetter = ""
}

// Fresh reports whether every cached layer is current for st, so that
// Analyze would not need the page.
func (s *Sheet) Fresh(st *structure.Structure) bool {
	return s.markers != nil && s.markersRevision == st.RegistrationRevision() &&
		s.brightness != nil && s.layoutRevision == st.LayoutRevision()
}

// Analyze locates markers, aligns page and samples every question group,
// reusing any cached layer that is still current for st.
//
// Newly sampled values are added to global when it is non-nil. When every
// layer is current nothing is sampled and global is left untouched; use
// Contribute to replay cached values.
func (s *Sheet) Analyze(page *imaging.PixelBuffer, st *structure.Structure, global *histogram.Histogram) error {
	if page == nil {
		return ErrNoPage
	}

	if s.markers == nil || s.markersRevision != st.RegistrationRevision() {
		s.InvalidateBrightness()
		s.markers = registration.LocateMarkers(page, st)
		s.markersRevision = st.RegistrationRevision()
		s.transform = registration.ComputeTransform(st.RegistrationMarkers(), s.MarkerLocation)
	}

	if s.brightness == nil || s.layoutRevision != st.LayoutRevision() {
		s.InvalidateAnswers()
		s.dropStaleOverrides()
		s.histogram.Reset()
		aligned := registration.Warp(page, s.transform)
		s.brightness = make(map[*structure.QuestionGroup][][]int)
		for _, g := range st.QuestionGroups() {
			s.brightness[g] = SampleGroup(aligned, g, s.histogram, global)
		}
		s.layoutRevision = st.LayoutRevision()
		s.histogram.GuessThreshold()
	}
	return nil
}

// Aligned returns page warped by the sheet's current transform.
func (s *Sheet) Aligned(page *imaging.PixelBuffer) *imaging.PixelBuffer {
	return registration.Warp(page, s.transform)
}

// Contribute adds every cached brightness value to h.
func (s *Sheet) Contribute(h *histogram.Histogram) {
	for _, grid := range s.brightness {
		for _, row := range grid {
			for _, v := range row {
				h.Increase(v)
			}
		}
	}
}

// Analyzed reports whether brightness has been sampled.
func (s *Sheet) Analyzed() bool { return s.brightness != nil }

// Brightness returns the sampled brightness of a bubble. Unknown bubbles
// report 255.
func (s *Sheet) Brightness(g *structure.QuestionGroup, row, col int) int {
	grid := s.brightness[g]
	if row < 0 || row >= len(grid) || col < 0 || col >= len(grid[row]) {
		return histogram.Buckets - 1
	}
	return grid[row][col]
}

// CalculateAnswers classifies every bubble of g with the given thresholds.
// It does nothing if g has not been sampled.
func (s *Sheet) CalculateAnswers(g *structure.QuestionGroup, black, white int) {
	grid, ok := s.brightness[g]
	if !ok {
		return
	}
	if s.answers == nil {
		s.answers = make(map[*structure.QuestionGroup][][]Answer)
	}
	out := make([][]Answer, len(grid))
	for row := range grid {
		out[row] = make([]Answer, len(grid[row]))
		for col, b := range grid[row] {
			out[row][col] = Classify(b, black, white)
		}
	}
	s.answers[g] = out
	s.refreshDerived(g)
}

// HasAnswers reports whether any group has been classified.
func (s *Sheet) HasAnswers() bool { return s.answers != nil }

// ClassifiedAnswer returns the classifier's verdict for a bubble, ignoring
// overrides.
func (s *Sheet) ClassifiedAnswer(g *structure.QuestionGroup, row, col int) Answer {
	grid := s.answers[g]
	if row < 0 || row >= len(grid) || col < 0 || col >= len(grid[row]) {
		return Uncertain
	}
	return grid[row][col]
}

// Answer returns the effective state of a bubble: a non-Auto override wins
// over the classified value.
func (s *Sheet) Answer(g *structure.QuestionGroup, row, col int) Answer {
	if o := s.AnswerOverride(g, row, col); o != Auto {
		return Answer(o)
	}
	return s.ClassifiedAnswer(g, row, col)
}

// AnswerOverride returns the manual override of a bubble. Overrides made
// for a different row or column count of g read as Auto.
func (s *Sheet) AnswerOverride(g *structure.QuestionGroup, row, col int) Override {
	grid := s.overrides[g]
	if !fitsGroup(grid, g) || row < 0 || row >= len(grid) || col < 0 || col >= len(grid[row]) {
		return Auto
	}
	return grid[row][col]
}

// fitsGroup reports whether grid has the shape of g's bubble grid.
func fitsGroup(grid [][]Override, g *structure.QuestionGroup) bool {
	if len(grid) != g.RowCount() {
		return false
	}
	for _, line := range grid {
		if len(line) != g.ColumnCount() {
			return false
		}
	}
	return true
}

func (s *Sheet) overrideGrid(g *structure.QuestionGroup) [][]Override {
	if grid := s.overrides[g]; fitsGroup(grid, g) {
		return grid
	}
	grid := make([][]Override, g.RowCount())
	for i := range grid {
		grid[i] = make([]Override, g.ColumnCount())
	}
	s.overrides[g] = grid
	return grid
}

// dropStaleOverrides forgets the overrides of groups whose row or column
// count changed since they were set.
func (s *Sheet) dropStaleOverrides() {
	for g, grid := range s.overrides {
		if !fitsGroup(grid, g) {
			delete(s.overrides, g)
		}
	}
}

// SetOverride sets the manual override of a bubble directly.
func (s *Sheet) SetOverride(g *structure.QuestionGroup, row, col int, o Override) error {
	if row < 0 || row >= g.RowCount() || col < 0 || col >= g.ColumnCount() {
		return fmt.Errorf("%w: (%d,%d) in %dx%d group", ErrCellOutOfRange, row, col, g.RowCount(), g.ColumnCount())
	}
	s.overrideGrid(g)[row][col] = o
	s.refreshDerived(g)
	return nil
}

// ToggleOverride cycles a bubble's override Auto -> ForceFilled ->
// ForceEmpty -> Auto and returns the new value.
func (s *Sheet) ToggleOverride(g *structure.QuestionGroup, row, col int) (Override, error) {
	o := s.AnswerOverride(g, row, col).next()
	if err := s.SetOverride(g, row, col, o); err != nil {
		return Auto, err
	}
	return o, nil
}

// Overrides calls fn for every bubble of g with a non-Auto override.
func (s *Sheet) Overrides(g *structure.QuestionGroup, fn func(row, col int, o Override)) {
	if !fitsGroup(s.overrides[g], g) {
		return
	}
	for row, line := range s.overrides[g] {
		for col, o := range line {
			if o != Auto {
				fn(row, col, o)
			}
		}
	}
}

// ClearOverrides resets every override of the sheet.
func (s *Sheet) ClearOverrides() {
	s.overrides = make(map[*structure.QuestionGroup][][]Override)
	for g := range s.answers {
		s.refreshDerived(g)
	}
	s.validate()
}

// refreshDerived recomputes the identifiers read from g and the sheet's
// validity after g's answers or overrides changed.
func (s *Sheet) refreshDerived(g *structure.QuestionGroup) {
	if _, ok := s.answers[g]; !ok {
		return
	}
	switch g.Orientation() {
	case structure.StudentNumber:
		number := ""
		for q := 0; q < g.Questions(); q++ {
			number += s.Choices(g, q)
		}
		s.studentNumber = number
	case structure.CheckLetter:
		s.checkLetter = s.Choices(g, 0)
	}
	s.validate()
}

// Choices returns the labels of the effectively filled alternatives of
// question in g, or "" when g has not been classified.
func (s *Sheet) Choices(g *structure.QuestionGroup, question int) string {
	if _, ok := s.answers[g]; !ok {
		return ""
	}
	return g.Choices(question, func(row, col int) bool {
		return s.Answer(g, row, col) == Filled
	})
}

func (s *Sheet) validate() {
	if s.answers == nil {
		s.answersValid = false
		return
	}
	for g, grid := range s.answers {
		for row, line := range grid {
			for col, a := range line {
				if a == Uncertain && s.AnswerOverride(g, row, col) == Auto {
					s.answersValid = false
					return
				}
			}
		}
	}
	s.answersValid = true
}

// AnswersValid reports whether every classified bubble is resolved.
func (s *Sheet) AnswersValid() bool { return s.answersValid }

// Status reports NotAnalyzed until answers exist, then Analyzed or
// AnalyzedWithErrors depending on AnswersValid.
func (s *Sheet) Status() Status {
	switch {
	case s.answers == nil:
		return NotAnalyzed
	case s.answersValid:
		return Analyzed
	}
	return AnalyzedWithErrors
}

// StudentNumber returns the digits read from student-number groups.
func (s *Sheet) StudentNumber() string { return s.studentNumber }

// CheckLetter returns the letter read from the check-letter group.
func (s *Sheet) CheckLetter() string { return s.checkLetter }

// StudentID returns the student number followed by the check letter.
func (s *Sheet) StudentID() string { return s.studentNumber + s.checkLetter }
