// Package detection finds candidate registration markers on a scanned sheet.
//
// A registration marker is a solid dark square printed near the edge of the
// form. Candidates help an operator place the structure's markers without
// measuring them by hand.
//
// # Algorithm
//
//  1. Thresholding: pixels darker than Options.Darkness (ITU-R BT.601 luma)
//     count as ink
//  2. Components: ink pixels are grouped by an 8-connected flood fill
//  3. Filtering: components outside the size range, or whose bounding box is
//     not square enough or not filled enough, are dropped
//  4. Ranking: by confidence, then by distance to the nearest page corner
//
// # Confidence Scores
//
// Confidence is squareness × fill, where squareness is the ratio of the
// shorter to the longer side of the bounding box and fill is the fraction of
// the box covered by ink:
//   - 1.0 = Solid square
//   - Lower values indicate rectangles, rings or ragged blobs
//
// # Coordinate System
//
// Bounds use the image convention: (X1, Y1) inclusive, (X2, Y2) exclusive.
// Centre points match the marker centre used by the structure model.
package detection
