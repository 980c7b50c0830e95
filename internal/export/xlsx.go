package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ironsheep/omr-tools/internal/grading"
	"github.com/ironsheep/omr-tools/internal/sheet"
	"github.com/ironsheep/omr-tools/internal/structure"
)

// Worksheet names used by WriteResultsXLSX.
const (
	AnswersSheet = "Answers"
	ResultsSheet = "Results"
)

// WriteResultsXLSX writes a workbook with two worksheets: the chosen
// alternatives of every sheet and the scores of every sheet. Scores are
// stored as numbers.
func WriteResultsXLSX(w io.Writer, sheets []*sheet.Sheet, st *structure.Structure, scheme grading.Scheme) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", AnswersSheet); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	if _, err := f.NewSheet(ResultsSheet); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	cols := gradedColumns(st)
	head := header(cols)

	answers := [][]any{toRow(head)}
	for _, r := range answerRows(sheets, cols) {
		answers = append(answers, toRow(r))
	}
	if err := setRows(f, AnswersSheet, answers); err != nil {
		return err
	}

	scores := [][]any{append(toRow(head), "total")}
	for _, r := range results(sheets, st, cols, scheme) {
		row := []any{r.image, r.studentID}
		for _, v := range r.scores {
			row = append(row, v)
		}
		scores = append(scores, append(row, r.total))
	}
	if err := setRows(f, ResultsSheet, scores); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func toRow(values []string) []any {
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}

func setRows(f *excelize.File, name string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write workbook: %s row %d: %w", name, i+1, err)
		}
	}
	return nil
}
