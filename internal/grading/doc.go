// Package grading scores classified answer sheets against the answer keys
// of their question groups.
package grading
