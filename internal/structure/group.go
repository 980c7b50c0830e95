package structure

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

// ErrOutOfRange is returned when a question or alternative index falls
// outside a group's answer key.
var ErrOutOfRange = errors.New("index out of range")

const (
	defaultRows         = 10
	defaultColumns      = 4
	defaultBubbleWidth  = 10
	defaultBubbleHeight = 10
	minBubbleSize       = 2
)

// QuestionGroup is a rectangular grid of bubbles on the reference sheet.
//
// LeftX/TopY and RightX/BottomY are the centres of the corner bubbles in
// reference-sheet pixels. A QuestionGroup is not safe for concurrent
// mutation.
type QuestionGroup struct {
	leftX, topY     int
	rightX, bottomY int

	rowCount    int
	columnCount int
	indexOffset int

	bubbleWidth  int
	bubbleHeight int

	orientation Orientation
	answerKey   [][]bool

	revision    uint64
	keyRevision uint64
}

// NewQuestionGroup creates a vertical 10x4 group spanning the given corner
// bubble centres.
func NewQuestionGroup(leftX, topY, rightX, bottomY int) *QuestionGroup {
	g := &QuestionGroup{
		rowCount:     defaultRows,
		columnCount:  defaultColumns,
		bubbleWidth:  defaultBubbleWidth,
		bubbleHeight: defaultBubbleHeight,
		orientation:  Vertical,
	}
	g.setRect(leftX, topY, rightX, bottomY)
	g.allocateKey()
	return g
}

func (g *QuestionGroup) setRect(leftX, topY, rightX, bottomY int) {
	if rightX < leftX {
		leftX, rightX = rightX, leftX
	}
	if bottomY < topY {
		topY, bottomY = bottomY, topY
	}
	g.leftX = max(leftX, 0)
	g.topY = max(topY, 0)
	g.rightX = max(rightX, g.leftX)
	g.bottomY = max(bottomY, g.topY)
}

func (g *QuestionGroup) touch() { g.revision++ }

// Revision increases whenever a property that affects sampling changes.
func (g *QuestionGroup) Revision() uint64 { return g.revision }

// KeyRevision increases whenever the answer key changes.
func (g *QuestionGroup) KeyRevision() uint64 { return g.keyRevision }

func (g *QuestionGroup) LeftX() int   { return g.leftX }
func (g *QuestionGroup) TopY() int    { return g.topY }
func (g *QuestionGroup) RightX() int  { return g.rightX }
func (g *QuestionGroup) BottomY() int { return g.bottomY }

// Width is the horizontal distance between the first and last bubble centres.
func (g *QuestionGroup) Width() int { return g.rightX - g.leftX }

// Height is the vertical distance between the first and last bubble centres.
func (g *QuestionGroup) Height() int { return g.bottomY - g.topY }

// Bounds returns the rectangle spanned by the corner bubble centres.
func (g *QuestionGroup) Bounds() image.Rectangle {
	return image.Rect(g.leftX, g.topY, g.rightX, g.bottomY)
}

// SetLeftX moves the left edge, clamped to [0, RightX].
func (g *QuestionGroup) SetLeftX(x int) {
	g.leftX = min(max(x, 0), g.rightX)
	g.touch()
}

// SetTopY moves the top edge, clamped to [0, BottomY].
func (g *QuestionGroup) SetTopY(y int) {
	g.topY = min(max(y, 0), g.bottomY)
	g.touch()
}

// SetRightX moves the right edge; it never passes LeftX.
func (g *QuestionGroup) SetRightX(x int) {
	g.rightX = max(x, g.leftX)
	g.touch()
}

// SetBottomY moves the bottom edge; it never passes TopY.
func (g *QuestionGroup) SetBottomY(y int) {
	g.bottomY = max(y, g.topY)
	g.touch()
}

// SetBounds replaces all four edges at once. The rectangle is canonicalized
// and clamped to non-negative coordinates.
func (g *QuestionGroup) SetBounds(r image.Rectangle) {
	g.setRect(r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)
	g.touch()
}

// Translate moves the group by (dx, dy). Edges are clamped at zero.
func (g *QuestionGroup) Translate(dx, dy int) {
	g.setRect(g.leftX+dx, g.topY+dy, g.rightX+dx, g.bottomY+dy)
	g.touch()
}

func (g *QuestionGroup) RowCount() int    { return g.rowCount }
func (g *QuestionGroup) ColumnCount() int { return g.columnCount }

// SetRowCount changes the number of bubble rows. Counts below one are
// clamped to one. The answer key is reallocated when the shape changes.
func (g *QuestionGroup) SetRowCount(n int) {
	n = max(n, 1)
	if n == g.rowCount {
		return
	}
	g.rowCount = n
	g.allocateKey()
	g.touch()
}

// SetColumnCount changes the number of bubble columns. Counts below one are
// clamped to one. The answer key is reallocated when the shape changes.
func (g *QuestionGroup) SetColumnCount(n int) {
	n = max(n, 1)
	if n == g.columnCount {
		return
	}
	g.columnCount = n
	g.allocateKey()
	g.touch()
}

func (g *QuestionGroup) BubbleWidth() int  { return g.bubbleWidth }
func (g *QuestionGroup) BubbleHeight() int { return g.bubbleHeight }

// SetBubbleWidth sets the sampled bubble width; values below 2 are clamped.
func (g *QuestionGroup) SetBubbleWidth(w int) {
	g.bubbleWidth = max(w, minBubbleSize)
	g.touch()
}

// SetBubbleHeight sets the sampled bubble height; values below 2 are clamped.
func (g *QuestionGroup) SetBubbleHeight(h int) {
	g.bubbleHeight = max(h, minBubbleSize)
	g.touch()
}

// IndexOffset is the number of questions that precede this group.
func (g *QuestionGroup) IndexOffset() int { return g.indexOffset }

// SetIndexOffset changes the question numbering base of the group.
func (g *QuestionGroup) SetIndexOffset(offset int) {
	g.indexOffset = max(offset, 0)
	g.touch()
}

// QuestionNumber returns the project-wide number of question q. The first
// question of the group is numbered IndexOffset.
func (g *QuestionGroup) QuestionNumber(q int) int { return g.indexOffset + q }

func (g *QuestionGroup) Orientation() Orientation { return g.orientation }

// SetOrientation changes the orientation. CheckLetter forces the grid to
// 2 rows by 10 columns. The answer key is reallocated.
func (g *QuestionGroup) SetOrientation(o Orientation) {
	g.orientation = o
	if o == CheckLetter {
		g.rowCount = 2
		g.columnCount = 10
	}
	g.allocateKey()
	g.touch()
}

// Questions returns how many questions the group holds.
func (g *QuestionGroup) Questions() int {
	return g.orientation.layout().questions(g.rowCount, g.columnCount)
}

// Alternatives returns how many alternatives each question offers.
func (g *QuestionGroup) Alternatives() int {
	return g.orientation.layout().alternatives(g.rowCount, g.columnCount)
}

// Cell maps a question and alternative to the bubble's grid position.
func (g *QuestionGroup) Cell(question, alternative int) (row, col int) {
	return g.orientation.layout().cell(question, alternative)
}

// AlternativeLabel returns the printed label of alternative i.
func (g *QuestionGroup) AlternativeLabel(i int) string {
	return g.orientation.layout().alternative(i)
}

// RowLabel returns the caption printed beside bubble row.
func (g *QuestionGroup) RowLabel(row int) string {
	return g.orientation.layout().rowLabel(g, row)
}

// ColumnLabel returns the caption printed above bubble col.
func (g *QuestionGroup) ColumnLabel(col int) string {
	return g.orientation.layout().columnLabel(g, col)
}

// Choices concatenates the labels of the alternatives of question for which
// filled reports true. filled is called with grid coordinates.
func (g *QuestionGroup) Choices(question int, filled func(row, col int) bool) string {
	return g.orientation.layout().choices(g, question, filled)
}

func (g *QuestionGroup) allocateKey() {
	q, a := g.Questions(), g.Alternatives()
	g.answerKey = make([][]bool, q)
	for i := range g.answerKey {
		g.answerKey[i] = make([]bool, a)
	}
	g.keyRevision++
}

// CorrectAnswer reports whether alternative is marked correct for question.
// Out-of-range indices report false.
func (g *QuestionGroup) CorrectAnswer(question, alternative int) bool {
	if question < 0 || question >= len(g.answerKey) {
		return false
	}
	row := g.answerKey[question]
	if alternative < 0 || alternative >= len(row) {
		return false
	}
	return row[alternative]
}

// SetCorrectAnswer marks or unmarks alternative as correct for question.
func (g *QuestionGroup) SetCorrectAnswer(question, alternative int, correct bool) error {
	if question < 0 || question >= len(g.answerKey) ||
		alternative < 0 || alternative >= len(g.answerKey[question]) {
		return fmt.Errorf("%w: question %d alternative %d in %dx%d key",
			ErrOutOfRange, question, alternative, g.Questions(), g.Alternatives())
	}
	if g.answerKey[question][alternative] != correct {
		g.answerKey[question][alternative] = correct
		g.keyRevision++
	}
	return nil
}

// CorrectChoices returns the labels of the correct alternatives of question.
func (g *QuestionGroup) CorrectChoices(question int) string {
	var out []byte
	for alt := 0; alt < g.Alternatives(); alt++ {
		if g.CorrectAnswer(question, alt) {
			out = append(out, g.AlternativeLabel(alt)...)
		}
	}
	return string(out)
}

// SetCorrectChoices replaces the correct alternatives of question with the
// ones whose labels appear in choices.
func (g *QuestionGroup) SetCorrectChoices(question int, choices string) error {
	if question < 0 || question >= g.Questions() {
		return fmt.Errorf("%w: question %d of %d", ErrOutOfRange, question, g.Questions())
	}
	for alt := 0; alt < g.Alternatives(); alt++ {
		label := g.AlternativeLabel(alt)
		selected := label != "" && strings.Contains(choices, label)
		if err := g.SetCorrectAnswer(question, alt, selected); err != nil {
			return err
		}
	}
	return nil
}
