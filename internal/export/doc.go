// Package export writes analysis results for use outside the tool: the
// chosen alternatives and per-question scores of every sheet as CSV or as
// an Excel workbook, and an annotated feedback image per sheet.
//
// Only graded groups (vertical and horizontal) produce columns. The second
// column identifies the student; when a sheet has no student number it
// falls back to the sheet id.
package export
