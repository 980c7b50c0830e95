// Package histogram accumulates bubble brightness values and derives the
// black and white thresholds used to classify bubbles.
package histogram
