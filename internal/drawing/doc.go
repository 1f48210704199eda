// Package drawing lowers a finalized record into a layered third-angle
// orthographic drawing document and encodes it as DXF or SVG.
//
// The front view carries the part outline at its record coordinates; the
// top and right views are thickness projections translated above and to
// the right of it. Views never rotate. Every document carries the full
// layer set even when a layer is empty, so the DXF layer table is stable
// across parts.
package drawing
