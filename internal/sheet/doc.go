// Package sheet holds the per-scan analysis state: located markers, the
// alignment transform, sampled bubble brightness, classified answers and
// manual overrides.
//
// Derived data is cached in three layers. Marker locations are stamped with
// the structure's registration revision, brightness with its layout
// revision, and answers are rebuilt whenever brightness is. A stale stamp
// causes Analyze to recompute that layer and everything below it.
//
// A Sheet is owned by a single goroutine at a time. Batch analysis hands
// each sheet to exactly one worker.
package sheet
