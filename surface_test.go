package contourdem

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestSampleIndexes(t *testing.T) {
	for _, tc := range []struct {
		n        int
		maxCells int
		expected []int
	}{
		{n: 1, maxCells: 200, expected: []int{0}},
		{n: 2, maxCells: 200, expected: []int{0, 1}},
		{n: 5, maxCells: 200, expected: []int{0, 1, 2, 3, 4}},
		{n: 10, maxCells: 3, expected: []int{0, 3, 6, 9}},
		{n: 11, maxCells: 3, expected: []int{0, 4, 8, 10}},
	} {
		assert.Equal(t, tc.expected, sampleIndexes(tc.n, tc.maxCells))
	}
}

func TestColumnProfile(t *testing.T) {
	grid, err := AssembleGrid(4, [][]float64{
		{0, 3, math.NaN(), math.NaN()},
		{1, 2, 5, math.NaN()},
		{0, 0, 0, math.NaN()},
	})
	assert.NoError(t, err)
	profile := columnProfile(grid, []int{0, 1, 2, 3})
	assert.Equal(t, []float64{1, 3, 5}, profile[:3])
	assert.True(t, math.IsNaN(profile[3]))
	assert.Equal(t, []float64{3, 5}, columnProfile(grid, []int{1, 2}))
}

func TestTerrainColor(t *testing.T) {
	assert.Equal(t, color.RGBA{R: 51, G: 51, B: 153, A: 0xff}, terrainColor(0))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 0xff}, terrainColor(1))
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 153, A: 0xff}, terrainColor(0.5))
}

func countNonWhite(img *image.RGBA) int {
	count := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0xff || img.Pix[i+1] != 0xff || img.Pix[i+2] != 0xff {
			count++
		}
	}
	return count
}

func TestSurfaceRenderer(t *testing.T) {
	rows := make([][]float64, 8)
	for y := range rows {
		rows[y] = make([]float64, 10)
		for x := range rows[y] {
			if 2 <= x && x < 8 && 2 <= y && y < 6 {
				rows[y][x] = 1
			}
		}
	}
	rows[4][4] = 2
	grid, err := AssembleGrid(10, rows)
	assert.NoError(t, err)

	renderer := NewSurfaceRenderer(WithImageSize(320, 240))
	img := renderer.Render(grid)
	assert.Equal(t, image.Rect(0, 0, 320, 240), img.Bounds())
	withoutWall := countNonWhite(img)
	assert.True(t, withoutWall > 0)

	wallImg := NewSurfaceRenderer(WithImageSize(320, 240), WithWall(true)).Render(grid)
	assert.NotEqual(t, img.Pix, wallImg.Pix)

	var buffer bytes.Buffer
	assert.NoError(t, renderer.RenderGrid(&buffer, grid))
	decoded, err := png.Decode(&buffer)
	assert.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 320, 240), decoded.Bounds())
	assert.Equal(t, ".png", renderer.Extension())
}

func TestSurfaceRendererEmptyGrid(t *testing.T) {
	img := NewSurfaceRenderer(WithImageSize(100, 100)).Render(NewGrid(0, 0))
	assert.Equal(t, 0, countNonWhite(img))
}

func TestSurfaceRendererDownsamples(t *testing.T) {
	grid := NewGrid(1000, 3)
	img := NewSurfaceRenderer(WithImageSize(200, 100), WithMaxCells(10)).Render(grid)
	assert.True(t, countNonWhite(img) > 0)
}
