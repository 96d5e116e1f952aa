package contourdem_test

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-contourdem"
)

// rasterize rasterizes svg and returns the grid as rows.
func rasterize(t *testing.T, svg string, options ...contourdem.RunnerOption) [][]float64 {
	t.Helper()
	doc, err := contourdem.ParseDocument(strings.NewReader(svg))
	assert.NoError(t, err)
	runner, err := contourdem.NewRunner(options...)
	assert.NoError(t, err)
	grid, err := runner.RunDocument(t.Context(), doc)
	assert.NoError(t, err)
	width, height := grid.Size()
	rows := make([][]float64, height)
	for y := range rows {
		rows[y] = append(make([]float64, 0, width), grid.Row(y)...)
	}
	return rows
}

func TestRasterize(t *testing.T) {
	for _, tc := range []struct {
		name     string
		svg      string
		expected [][]float64
	}{
		{
			name: "full_canvas",
			svg:  `<svg width="4" height="4"><path d="M0 0 L4 0 L4 4 L0 4 Z"/></svg>`,
			expected: [][]float64{
				{1, 1, 1, 1},
				{1, 1, 1, 1},
				{1, 1, 1, 1},
				{1, 1, 1, 1},
			},
		},
		{
			name: "overlap_highest_label_wins",
			svg:  `<svg width="4" height="4"><path d="M0 0 L4 0 L4 4 L0 4 Z"/><path d="M0 0 L4 0 L4 4 L0 4 Z"/></svg>`,
			expected: [][]float64{
				{2, 2, 2, 2},
				{2, 2, 2, 2},
				{2, 2, 2, 2},
				{2, 2, 2, 2},
			},
		},
		{
			name: "uncovered",
			svg:  `<svg width="4" height="3"><path d="M0 0 L1 0 L1 1 L0 1 Z"/></svg>`,
			expected: [][]float64{
				{1, 1, 0, 0},
				{1, 1, 0, 0},
				{0, 0, 0, 0},
			},
		},
		{
			name: "nested",
			svg:  `<svg width="5" height="5"><polygon points="0,0 4,0 4,4 0,4"/><polygon points="1,1 3,1 3,3 1,3"/><path d="M2 2 L2 2"/></svg>`,
			expected: [][]float64{
				{1, 1, 1, 1, 1},
				{1, 2, 2, 2, 1},
				{1, 2, 3, 2, 1},
				{1, 2, 2, 2, 1},
				{1, 1, 1, 1, 1},
			},
		},
		{
			name: "empty_document",
			svg:  `<svg width="3" height="2"></svg>`,
			expected: [][]float64{
				{0, 0, 0},
				{0, 0, 0},
			},
		},
		{
			name: "fractional_size",
			svg:  `<svg width="2.5" height="1.2"><path d="M0 0 L2.5 0 L2.5 1.2 L0 1.2 Z"/></svg>`,
			expected: [][]float64{
				{1, 1, 1},
				{1, 1, 1},
			},
		},
		{
			name:     "zero_size",
			svg:      `<svg width="0" height="0"><path d="M0 0 L1 0 L1 1 Z"/></svg>`,
			expected: [][]float64{},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, rasterize(t, tc.svg))
		})
	}
}

func TestRasterizeScaleConsistency(t *testing.T) {
	actual := rasterize(t, `<svg width="8" height="8" viewBox="0 0 4 4"><path d="M0 0 L2 0 L2 2 L0 2 Z"/></svg>`)
	assert.Equal(t, 8, len(actual))
	for y, row := range actual {
		assert.Equal(t, 8, len(row))
		for x, value := range row {
			expected := 0.0
			if x <= 4 && y <= 4 {
				expected = 1
			}
			assert.Equal(t, expected, value, "(%d, %d)", x, y)
		}
	}
}

func TestRasterizeScaleInvariance(t *testing.T) {
	shapes := [][]float64{
		{0.5, 0.5, 3, 0.5, 3, 2.5, 0.5, 3.5},
		{1, 1, 3.5, 1.5, 2, 3.5},
		{2.25, 0, 4, 1.75, 2.25, 3.5, 0.5, 1.75},
	}
	svg := func(factor float64) string {
		var sb strings.Builder
		fmt.Fprintf(&sb, `<svg width="16" height="12" viewBox="0 0 %g %g">`, 4*factor, 3*factor)
		for _, shape := range shapes {
			sb.WriteString(`<polygon points="`)
			for i := 0; i < len(shape); i += 2 {
				fmt.Fprintf(&sb, "%g,%g ", shape[i]*factor, shape[i+1]*factor)
			}
			sb.WriteString(`"/>`)
		}
		sb.WriteString(`</svg>`)
		return sb.String()
	}

	expected := rasterize(t, svg(1))
	assert.Equal(t, 12, len(expected))
	for _, factor := range []float64{0.25, 0.5, 2, 4, 64} {
		assert.Equal(t, expected, rasterize(t, svg(factor)), "factor=%g", factor)
	}
}

func TestRasterizeDeterministic(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	var sb strings.Builder
	sb.WriteString(`<svg width="64" height="48">`)
	for range 40 {
		x, y := r.Float64()*64, r.Float64()*48
		w, h := r.Float64()*20, r.Float64()*20
		fmt.Fprintf(&sb, `<path d="M%g %g L%g %g L%g %g Z"/>`, x, y, x+w, y+h/3, x+w/2, y+h)
	}
	sb.WriteString(`</svg>`)
	svg := sb.String()

	expected := rasterize(t, svg, contourdem.WithSchedulerOptions(contourdem.WithWorkers(1)))
	nonZero := 0
	for _, row := range expected {
		for _, value := range row {
			if value != 0 {
				nonZero++
			}
		}
	}
	assert.True(t, nonZero > 0)

	for _, workers := range []int{2, 3, 8, 64} {
		actual := rasterize(t, svg, contourdem.WithSchedulerOptions(contourdem.WithWorkers(workers)))
		assert.Equal(t, expected, actual, "workers=%d", workers)
	}
}

func TestRowRasterizer(t *testing.T) {
	doc, err := contourdem.ParseDocument(strings.NewReader(`<svg width="4" height="4"><path d="M1 0 L3 0 L3 4 L1 4 Z"/></svg>`))
	assert.NoError(t, err)
	contours := contourdem.LoadContours(doc)
	rowRasterizer := contourdem.NewRowRasterizer(contours, contourdem.NewSpatialIndex(contours), 4)
	assert.Equal(t, 4, rowRasterizer.Width())
	assert.Equal(t, []float64{0, 1, 1, 1}, rowRasterizer.Row(2))

	row, err := rowRasterizer.Rasterize(t.Context(), 0)
	assert.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 1, 1}, row)
}

func BenchmarkRasterize(b *testing.B) {
	r := rand.New(rand.NewPCG(5, 6))
	var sb strings.Builder
	sb.WriteString(`<svg width="256" height="256">`)
	for i := range 64 {
		radius := 128 - 2*float64(i)
		cx, cy := 128+r.Float64()*8-4, 128+r.Float64()*8-4
		fmt.Fprintf(&sb, `<polygon points="%g,%g %g,%g %g,%g %g,%g"/>`,
			cx, cy-radius, cx+radius, cy, cx, cy+radius, cx-radius, cy)
	}
	sb.WriteString(`</svg>`)
	doc, err := contourdem.ParseDocument(strings.NewReader(sb.String()))
	assert.NoError(b, err)
	runner, err := contourdem.NewRunner()
	assert.NoError(b, err)
	b.ResetTimer()
	for range b.N {
		_, err := runner.RunDocument(b.Context(), doc)
		assert.NoError(b, err)
	}
}
