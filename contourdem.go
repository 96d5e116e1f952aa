// Package contourdem rasterizes SVG contour drawings into digital elevation
// models.
//
// Each closed outline in the drawing is a contour. Contours are labeled by
// their 1-based position in document order and every grid pixel takes the
// label of the contour that contains it, or 0 if none does.
package contourdem

import "context"

// A Coord is a pixel coordinate.
type Coord struct {
	X int
	Y int
}

// A TileCoord is a tile coordinate.
type TileCoord struct {
	C int // Column.
	R int // Row.
}

// A Raster is a source of samples addressed by pixel coordinates. Samples
// outside the raster are NaN.
type Raster interface {
	Samples(ctx context.Context, coords []Coord) ([]float64, error)
	Size() (int, int)
}
