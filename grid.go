package contourdem

import (
	"context"
	"math"
)

// A Grid is a row-major grid of elevations. Row 0 is the top of the drawing.
type Grid struct {
	width  int
	height int
	values []float64
}

// NewGrid returns a new Grid of the given size with all values 0.
func NewGrid(width, height int) *Grid {
	return &Grid{
		width:  width,
		height: height,
		values: make([]float64, width*height),
	}
}

// AssembleGrid stacks rows into a Grid. Every row must have exactly width
// values.
func AssembleGrid(width int, rows [][]float64) (*Grid, error) {
	g := NewGrid(width, len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, &ShapeError{Row: y, Len: len(row), Width: width}
		}
		copy(g.values[y*width:(y+1)*width], row)
	}
	return g, nil
}

// Size returns g's width and height.
func (g *Grid) Size() (int, int) {
	return g.width, g.height
}

// At returns the value at (x, y).
func (g *Grid) At(x, y int) float64 {
	return g.values[y*g.width+x]
}

// Row returns row y. The returned slice must not be modified.
func (g *Grid) Row(y int) []float64 {
	return g.values[y*g.width : (y+1)*g.width : (y+1)*g.width]
}

// Range returns the minimum and maximum values in g. It returns 0, 0 for an
// empty grid.
func (g *Grid) Range() (float64, float64) {
	if len(g.values) == 0 {
		return 0, 0
	}
	minValue, maxValue := g.values[0], g.values[0]
	for _, value := range g.values[1:] {
		minValue = min(minValue, value)
		maxValue = max(maxValue, value)
	}
	return minValue, maxValue
}

// Samples returns the values at coords. Coordinates outside g are NaN.
func (g *Grid) Samples(ctx context.Context, coords []Coord) ([]float64, error) {
	samples := make([]float64, len(coords))
	for i, coord := range coords {
		if coord.X < 0 || g.width <= coord.X || coord.Y < 0 || g.height <= coord.Y {
			samples[i] = math.NaN()
			continue
		}
		samples[i] = g.At(coord.X, coord.Y)
	}
	return samples, nil
}
