package contourdem

import (
	"context"
	"math"
)

// InterpolateBilinear returns the values of raster at the fractional pixel
// coordinates coords, where pixel centers have integer coordinates.
// Coordinates more than half a pixel outside raster are NaN.
func InterpolateBilinear(ctx context.Context, raster Raster, coords [][]float64) ([]float64, error) {
	width, height := raster.Size()
	result := make([]float64, len(coords))
	rasterCoords := make([]Coord, 0, 4*len(coords))
	indexes := make([]int, 0, len(coords))
	weights := make([][2]float64, 0, len(coords))
	for i, coord := range coords {
		x, y := coord[0], coord[1]
		if !(-0.5 <= x && x <= float64(width)-0.5 && -0.5 <= y && y <= float64(height)-0.5) {
			result[i] = math.NaN()
			continue
		}
		x = min(max(x, 0), float64(width-1))
		y = min(max(y, 0), float64(height-1))
		x0, y0 := int(x), int(y)
		x1, y1 := min(x0+1, width-1), min(y0+1, height-1)
		rasterCoords = append(rasterCoords,
			Coord{X: x0, Y: y0},
			Coord{X: x1, Y: y0},
			Coord{X: x0, Y: y1},
			Coord{X: x1, Y: y1},
		)
		indexes = append(indexes, i)
		weights = append(weights, [2]float64{x - float64(x0), y - float64(y0)})
	}
	if len(indexes) == 0 {
		return result, nil
	}

	samples, err := raster.Samples(ctx, rasterCoords)
	if err != nil {
		return nil, err
	}
	for j, i := range indexes {
		dx, dy := weights[j][0], weights[j][1]
		result[i] = 0 +
			samples[4*j+0]*(1-dx)*(1-dy) +
			samples[4*j+1]*dx*(1-dy) +
			samples[4*j+2]*(1-dx)*dy +
			samples[4*j+3]*dx*dy
	}
	return result, nil
}
