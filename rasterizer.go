package contourdem

import (
	"context"

	"seehuhn.de/go/geom/vec"
)

// A RowFunc returns the values of row y.
type RowFunc func(ctx context.Context, y int) ([]float64, error)

// A RowRasterizer computes the elevation of every pixel in a row from a set
// of contours and their spatial index. It never modifies its inputs, so a
// single RowRasterizer can be shared by many goroutines.
type RowRasterizer struct {
	contours []Contour
	index    *SpatialIndex
	width    int
}

// NewRowRasterizer returns a new RowRasterizer for rows of width pixels.
// index must index contours by their IDs.
func NewRowRasterizer(contours []Contour, index *SpatialIndex, width int) *RowRasterizer {
	return &RowRasterizer{
		contours: contours,
		index:    index,
		width:    width,
	}
}

// Width returns the number of pixels in each row.
func (r *RowRasterizer) Width() int {
	return r.width
}

// Row returns the elevations of row y. A pixel takes the label of the
// contour containing it. When several contours contain a pixel the highest
// label, i.e. the contour drawn last, wins. Pixels not contained by any
// contour are 0.
func (r *RowRasterizer) Row(y int) []float64 {
	row := make([]float64, r.width)
	for x := range r.width {
		p := vec.Vec2{X: float64(x), Y: float64(y)}
		candidates := r.index.QueryPoint(p.X, p.Y)
		for i := len(candidates) - 1; i >= 0; i-- {
			contour := &r.contours[candidates[i]]
			if contour.Contains(p) {
				row[x] = float64(contour.Label)
				break
			}
		}
	}
	return row
}

// Rasterize is a RowFunc that returns r.Row(y).
func (r *RowRasterizer) Rasterize(ctx context.Context, y int) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.Row(y), nil
}
