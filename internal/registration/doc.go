// Package registration aligns scanned pages with the reference sheet.
//
// Alignment happens in three steps:
//
//  1. LocateMarker searches a window around each registration marker's
//     reference position for the best match of its captured template.
//  2. ComputeTransform turns the located markers into an identity,
//     translation or similarity Transform.
//  3. Warp resamples the page through that Transform so that bubble
//     positions on the aligned page match the reference sheet.
//
// A marker that cannot be searched (no template, empty page) is reported as
// not located. That is not an error: the transform simply degrades to a
// lesser kind.
package registration
