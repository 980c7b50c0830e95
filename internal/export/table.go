package export

import (
	"strconv"

	"github.com/ironsheep/omr-tools/internal/grading"
	"github.com/ironsheep/omr-tools/internal/sheet"
	"github.com/ironsheep/omr-tools/internal/structure"
)

// column is one graded question.
type column struct {
	group    *structure.QuestionGroup
	question int
}

func gradedColumns(st *structure.Structure) []column {
	var cols []column
	for _, g := range st.QuestionGroups() {
		if !g.Orientation().Graded() {
			continue
		}
		for q := 0; q < g.Questions(); q++ {
			cols = append(cols, column{group: g, question: q})
		}
	}
	return cols
}

func header(cols []column) []string {
	out := []string{"image", "studentId"}
	for _, c := range cols {
		out = append(out, strconv.Itoa(c.group.QuestionNumber(c.question)))
	}
	return out
}

// StudentID returns the student id read from s, or the sheet id when none
// was read.
func StudentID(s *sheet.Sheet) string {
	if id := s.StudentID(); id != "" {
		return id
	}
	return s.ID
}

func answerRows(sheets []*sheet.Sheet, cols []column) [][]string {
	rows := make([][]string, 0, len(sheets))
	for _, s := range sheets {
		row := []string{s.FileName(), StudentID(s)}
		for _, c := range cols {
			row = append(row, s.Choices(c.group, c.question))
		}
		rows = append(rows, row)
	}
	return rows
}

// result is one sheet's per-question scores and total.
type result struct {
	image     string
	studentID string
	scores    []float64
	total     float64
}

func results(sheets []*sheet.Sheet, st *structure.Structure, cols []column, scheme grading.Scheme) []result {
	groups := st.QuestionGroups()
	out := make([]result, 0, len(sheets))
	for _, s := range sheets {
		r := result{image: s.FileName(), studentID: StudentID(s), scores: make([]float64, len(cols))}
		for i, c := range cols {
			r.scores[i] = scheme.Score(s, c.group, c.question)
		}
		r.total = scheme.TotalScore(s, groups)
		out = append(out, r)
	}
	return out
}

func formatScore(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
