// Package project ties a sheet structure, its scanned sheets, the global
// histogram and a grading scheme into one unit that can be saved to and
// loaded from a YAML file.
//
// Sheet paths are stored relative to the project file when the images live
// beside it or below it, so a project directory can be moved as a whole.
// Marker templates are not stored; they are captured again from the
// reference sheet before the next analysis.
package project
