package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ironsheep/omr-tools/internal/grading"
	"github.com/ironsheep/omr-tools/internal/sheet"
	"github.com/ironsheep/omr-tools/internal/structure"
)

// WriteAnswersCSV writes one row per sheet holding the chosen alternatives
// of every graded question, e.g. "A" or "BD".
func WriteAnswersCSV(w io.Writer, sheets []*sheet.Sheet, st *structure.Structure) error {
	cols := gradedColumns(st)
	cw := csv.NewWriter(w)
	if err := cw.Write(header(cols)); err != nil {
		return fmt.Errorf("write answers: %w", err)
	}
	if err := cw.WriteAll(answerRows(sheets, cols)); err != nil {
		return fmt.Errorf("write answers: %w", err)
	}
	return nil
}

// WriteResultsCSV writes one row per sheet holding the score of every
// graded question followed by the total.
func WriteResultsCSV(w io.Writer, sheets []*sheet.Sheet, st *structure.Structure, scheme grading.Scheme) error {
	cols := gradedColumns(st)
	cw := csv.NewWriter(w)
	if err := cw.Write(append(header(cols), "total")); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	for _, r := range results(sheets, st, cols, scheme) {
		row := []string{r.image, r.studentID}
		for _, v := range r.scores {
			row = append(row, formatScore(v))
		}
		row = append(row, formatScore(r.total))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
