// Package structure describes the printed layout of an answer sheet: the
// registration markers used to align scans and the question groups whose
// bubbles are sampled.
//
// Every entity carries a revision counter that increases on each mutation.
// Structure.RegistrationRevision and Structure.LayoutRevision summarize those
// counters so that derived per-sheet data can be checked for staleness
// without any change notification.
package structure
