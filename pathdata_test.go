package contourdem

import (
	"math"
	"testing"

	"github.com/alecthomas/assert/v2"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

func TestParsePathData(t *testing.T) {
	square := &path.Data{}
	square.MoveTo(vec.Vec2{X: 0, Y: 0})
	square.LineTo(vec.Vec2{X: 10, Y: 0})
	square.LineTo(vec.Vec2{X: 10, Y: 10})
	square.Close()

	relative := &path.Data{}
	relative.MoveTo(vec.Vec2{X: 1, Y: 1})
	relative.LineTo(vec.Vec2{X: 3, Y: 1})
	relative.LineTo(vec.Vec2{X: 3, Y: 3})
	relative.Close()

	horizontalVertical := &path.Data{}
	horizontalVertical.MoveTo(vec.Vec2{X: 0, Y: 0})
	horizontalVertical.LineTo(vec.Vec2{X: 5, Y: 0})
	horizontalVertical.LineTo(vec.Vec2{X: 5, Y: 5})
	horizontalVertical.LineTo(vec.Vec2{X: 0, Y: 5})
	horizontalVertical.Close()

	compact := &path.Data{}
	compact.MoveTo(vec.Vec2{X: 10, Y: -2.5})
	compact.LineTo(vec.Vec2{X: 0.5, Y: 0.5})

	quadratic := &path.Data{}
	quadratic.MoveTo(vec.Vec2{X: 0, Y: 0})
	quadratic.QuadTo(vec.Vec2{X: 5, Y: 5}, vec.Vec2{X: 10, Y: 0})
	quadratic.QuadTo(vec.Vec2{X: 15, Y: -5}, vec.Vec2{X: 20, Y: 0})

	cubic := &path.Data{}
	cubic.MoveTo(vec.Vec2{X: 0, Y: 0})
	cubic.CubeTo(vec.Vec2{X: 0, Y: 5}, vec.Vec2{X: 5, Y: 5}, vec.Vec2{X: 5, Y: 0})
	cubic.CubeTo(vec.Vec2{X: 5, Y: -5}, vec.Vec2{X: 10, Y: -5}, vec.Vec2{X: 10, Y: 0})

	afterClose := &path.Data{}
	afterClose.MoveTo(vec.Vec2{X: 0, Y: 0})
	afterClose.LineTo(vec.Vec2{X: 1, Y: 0})
	afterClose.LineTo(vec.Vec2{X: 1, Y: 1})
	afterClose.Close()
	afterClose.MoveTo(vec.Vec2{X: 0, Y: 0})
	afterClose.LineTo(vec.Vec2{X: 2, Y: 2})

	degenerateArc := &path.Data{}
	degenerateArc.MoveTo(vec.Vec2{X: 0, Y: 0})
	degenerateArc.LineTo(vec.Vec2{X: 10, Y: 0})

	for _, tc := range []struct {
		name     string
		d        string
		expected *path.Data
	}{
		{name: "empty", d: "", expected: &path.Data{}},
		{name: "whitespace", d: " \n\t", expected: &path.Data{}},
		{name: "absolute", d: "M 0 0 L 10 0 L 10 10 Z", expected: square},
		{name: "implicit_lineto", d: "M0,0 10,0 10,10z", expected: square},
		{name: "relative", d: "m1 1 l 2 0 0 2 z", expected: relative},
		{name: "horizontal_vertical", d: "M0 0H5V5h-5z", expected: horizontalVertical},
		{name: "compact_numbers", d: "M1e1-2.5.5.5", expected: compact},
		{name: "quadratic", d: "M0 0Q5 5 10 0T20 0", expected: quadratic},
		{name: "cubic", d: "M0 0C0 5 5 5 5 0S10 -5 10 0", expected: cubic},
		{name: "drawing_after_close", d: "M0 0L1 0L1 1ZL2 2", expected: afterClose},
		{name: "degenerate_arc", d: "M0 0 A0 5 0 0 1 10 0", expected: degenerateArc},
	} {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := ParsePathData(tc.d)
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestParsePathDataErrors(t *testing.T) {
	for _, tc := range []struct {
		name        string
		d           string
		expectedErr error
	}{
		{name: "missing_moveto", d: "L0 0", expectedErr: errExpectedMoveTo},
		{name: "unknown_command", d: "X0 0", expectedErr: errExpectedMoveTo},
		{name: "odd_coordinates", d: "M0", expectedErr: errUnexpectedEOF},
		{name: "truncated_cubic", d: "M0 0 C1 1 2 2", expectedErr: errUnexpectedEOF},
		{name: "number_after_close", d: "M0 0 L1 0 Z 1"},
		{name: "invalid_number", d: "M0 0 L x 1"},
		{name: "invalid_flag", d: "M0 0 A 1 1 0 2 0 1 1"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePathData(tc.d)
			if tc.expectedErr != nil {
				assert.IsError(t, err, tc.expectedErr)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestParsePathDataArc(t *testing.T) {
	for _, tc := range []struct {
		name string
		d    string
	}{
		{name: "half_circle", d: "M0 0 A5 5 0 0 1 10 0"},
		{name: "radii_too_small", d: "M0 0 A1 1 0 0 1 10 0"},
		{name: "relative", d: "M0 0 a5 5 0 1 1 10 0"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data, err := ParsePathData(tc.d)
			assert.NoError(t, err)
			assert.Equal(t, path.CmdMoveTo, data.Cmds[0])
			assert.True(t, len(data.Cmds) > 1)
			for _, cmd := range data.Cmds[1:] {
				assert.Equal(t, path.CmdCubeTo, cmd)
			}
			assert.Equal(t, 1+3*(len(data.Cmds)-1), len(data.Coords))
			assert.Equal(t, vec.Vec2{X: 10, Y: 0}, data.Coords[len(data.Coords)-1])

			// Every on-curve point lies on the upper half of the circle
			// centered at (5, 0) with radius 5.
			center := vec.Vec2{X: 5, Y: 0}
			for i := 0; i < len(data.Coords); i += 3 {
				pt := data.Coords[i]
				assert.True(t, math.Abs(pt.Sub(center).Length()-5) < 1e-9)
				assert.True(t, pt.Y < 1e-9)
			}
		})
	}
}

func TestParsePoints(t *testing.T) {
	data, err := parsePoints("0,0 4,0 4,4")
	assert.NoError(t, err)
	expected := &path.Data{}
	expected.MoveTo(vec.Vec2{X: 0, Y: 0})
	expected.LineTo(vec.Vec2{X: 4, Y: 0})
	expected.LineTo(vec.Vec2{X: 4, Y: 4})
	expected.Close()
	assert.Equal(t, expected, data)

	_, err = parsePoints("0,0 4")
	assert.IsError(t, err, errUnexpectedEOF)

	empty, err := parsePoints("")
	assert.NoError(t, err)
	assert.Equal(t, &path.Data{}, empty)
}
