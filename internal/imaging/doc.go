// Package imaging provides the raster primitives used by the OMR pipeline.
//
// Scanned pages are decoded once into a PixelBuffer, a packed 8-bit RGB
// raster with a top-left origin. Everything downstream (marker search,
// bubble sampling, feedback rendering) reads pixels from PixelBuffer values
// and never touches the original decoded image again.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, Min is inclusive and Max is exclusive (image.Rectangle)
//
// # Thread Safety
//
// The PageLoader type is safe for concurrent use. A PixelBuffer is treated as
// immutable once it has been returned by the loader; callers that need to
// draw on a page must work on a copy.
//
// # Resource Limits
//
// PageLoader checks the declared dimensions of every page before decoding it.
// Pages whose pixel count exceeds the configured budget are rejected with
// ErrTooLarge so that a single oversized scan cannot exhaust memory.
package imaging
