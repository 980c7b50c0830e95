package structure

import (
	"fmt"
	"strconv"
)

// Orientation selects how the grid of a question group maps onto questions
// and alternatives.
type Orientation int

const (
	// Vertical groups have one question per row and one alternative per column.
	Vertical Orientation = iota
	// Horizontal groups have one question per column and one alternative per row.
	Horizontal
	// StudentNumber groups encode one digit per row.
	StudentNumber
	// CheckLetter groups encode a single check letter over a 2x10 grid.
	CheckLetter
)

var orientationNames = [...]string{"vertical", "horizontal", "student-number", "check-letter"}

// String returns the persisted name of the orientation.
func (o Orientation) String() string {
	if o < 0 || int(o) >= len(orientationNames) {
		return "orientation(" + strconv.Itoa(int(o)) + ")"
	}
	return orientationNames[o]
}

// ParseOrientation converts a persisted name back into an Orientation.
func ParseOrientation(s string) (Orientation, error) {
	for i, name := range orientationNames {
		if name == s {
			return Orientation(i), nil
		}
	}
	return Vertical, fmt.Errorf("unknown orientation %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o Orientation) MarshalText() ([]byte, error) {
	if o < 0 || int(o) >= len(orientationNames) {
		return nil, fmt.Errorf("invalid orientation %d", int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Orientation) UnmarshalText(text []byte) error {
	v, err := ParseOrientation(string(text))
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// Graded reports whether groups of this orientation contribute to scores.
func (o Orientation) Graded() bool {
	return o.layout().graded()
}

// checkLetters is the 2x10 check-letter table, indexed [row][column].
var checkLetters = [2][10]string{
	{"A", "B", "C", "D", "E", "F", "H", "J", "K", "L"},
	{"M", "N", "P", "R", "S", "T", "U", "V", "W", ""},
}

// layout holds the per-orientation behaviour of a question group.
type layout interface {
	questions(rows, cols int) int
	alternatives(rows, cols int) int
	cell(question, alternative int) (row, col int)
	alternative(i int) string
	rowLabel(g *QuestionGroup, row int) string
	columnLabel(g *QuestionGroup, col int) string
	choices(g *QuestionGroup, question int, filled func(row, col int) bool) string
	graded() bool
}

var layouts = [...]layout{
	Vertical:      verticalLayout{},
	Horizontal:    horizontalLayout{},
	StudentNumber: studentNumberLayout{},
	CheckLetter:   checkLetterLayout{},
}

func (o Orientation) layout() layout {
	if o < 0 || int(o) >= len(layouts) {
		return verticalLayout{}
	}
	return layouts[o]
}

func letter(i int) string { return string(rune('A' + i)) }

// scanChoices concatenates the labels of every filled alternative of question.
func scanChoices(l layout, g *QuestionGroup, question int, filled func(row, col int) bool) string {
	var out []byte
	for alt := 0; alt < g.Alternatives(); alt++ {
		row, col := l.cell(question, alt)
		if filled(row, col) {
			out = append(out, l.alternative(alt)...)
		}
	}
	return string(out)
}

type verticalLayout struct{}

func (verticalLayout) questions(rows, _ int) int                    { return rows }
func (verticalLayout) alternatives(_, cols int) int                 { return cols }
func (verticalLayout) cell(q, a int) (int, int)                     { return q, a }
func (verticalLayout) alternative(i int) string                     { return letter(i) }
func (verticalLayout) graded() bool                                 { return true }
func (verticalLayout) columnLabel(_ *QuestionGroup, col int) string { return letter(col) }
func (verticalLayout) rowLabel(g *QuestionGroup, row int) string {
	return strconv.Itoa(g.QuestionNumber(row))
}
func (l verticalLayout) choices(g *QuestionGroup, q int, filled func(int, int) bool) string {
	return scanChoices(l, g, q, filled)
}

type horizontalLayout struct{}

func (horizontalLayout) questions(_, cols int) int                 { return cols }
func (horizontalLayout) alternatives(rows, _ int) int              { return rows }
func (horizontalLayout) cell(q, a int) (int, int)                  { return a, q }
func (horizontalLayout) alternative(i int) string                  { return letter(i) }
func (horizontalLayout) graded() bool                              { return true }
func (horizontalLayout) rowLabel(_ *QuestionGroup, row int) string { return letter(row) }
func (horizontalLayout) columnLabel(g *QuestionGroup, col int) string {
	return strconv.Itoa(g.QuestionNumber(col))
}
func (l horizontalLayout) choices(g *QuestionGroup, q int, filled func(int, int) bool) string {
	return scanChoices(l, g, q, filled)
}

type studentNumberLayout struct{ verticalLayout }

func (studentNumberLayout) alternative(i int) string { return strconv.Itoa(i) }
func (studentNumberLayout) graded() bool             { return false }
func (studentNumberLayout) columnLabel(_ *QuestionGroup, col int) string {
	return strconv.Itoa(col)
}
func (studentNumberLayout) rowLabel(_ *QuestionGroup, row int) string {
	return strconv.Itoa(row+1) + "."
}
func (l studentNumberLayout) choices(g *QuestionGroup, q int, filled func(int, int) bool) string {
	return scanChoices(l, g, q, filled)
}

type checkLetterLayout struct{ verticalLayout }

func (checkLetterLayout) graded() bool                           { return false }
func (checkLetterLayout) rowLabel(*QuestionGroup, int) string    { return "" }
func (checkLetterLayout) columnLabel(*QuestionGroup, int) string { return "" }
func (checkLetterLayout) alternative(i int) string {
	if i < 0 || i >= len(checkLetters[0]) {
		return ""
	}
	return checkLetters[0][i]
}

// choices ignores question and scans the whole grid row by row, returning
// the letter of the first filled bubble.
func (checkLetterLayout) choices(g *QuestionGroup, _ int, filled func(int, int) bool) string {
	if g.RowCount() < 2 || g.ColumnCount() < 10 {
		return ""
	}
	for row := 0; row < 2; row++ {
		for col := 0; col < 10; col++ {
			if filled(row, col) {
				return checkLetters[row][col]
			}
		}
	}
	return ""
}
