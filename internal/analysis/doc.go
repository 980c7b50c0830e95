// Package analysis drives batch analysis of answer sheets.
//
// Run fans sheets out to a bounded worker pool. Each worker loads a page,
// aligns it and samples its bubbles into a private histogram; once the pool
// has drained, the private histograms are merged into the global one in
// sheet order, thresholds are guessed and answers are classified.
//
// # Errors
//
// A page that cannot be decoded is reported as a SheetError wrapping
// ErrDecodeFailure; the sheet is left unanalyzed and the batch continues.
// A page larger than the loader's pixel budget aborts the whole batch with
// an error wrapping ErrResourceExhausted. Failing to find a registration
// marker is not an error.
package analysis
