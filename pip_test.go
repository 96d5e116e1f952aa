package contourdem

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"seehuhn.de/go/geom/vec"
)

func TestOnSegment(t *testing.T) {
	a, b := vec.Vec2{X: 0, Y: 0}, vec.Vec2{X: 4, Y: 2}
	for _, tc := range []struct {
		name     string
		p        vec.Vec2
		expected bool
	}{
		{name: "start", p: a, expected: true},
		{name: "end", p: b, expected: true},
		{name: "middle", p: vec.Vec2{X: 2, Y: 1}, expected: true},
		{name: "beyond_end", p: vec.Vec2{X: 6, Y: 3}, expected: false},
		{name: "beside", p: vec.Vec2{X: 2, Y: 1.01}, expected: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, onSegment(tc.p, a, b))
		})
	}
}

func TestRingsContain(t *testing.T) {
	triangle := []vec.Vec2{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 4}}
	for _, tc := range []struct {
		name     string
		rings    [][]vec.Vec2
		p        vec.Vec2
		expected bool
	}{
		{name: "inside", rings: [][]vec.Vec2{triangle}, p: vec.Vec2{X: 1, Y: 1}, expected: true},
		{name: "hypotenuse", rings: [][]vec.Vec2{triangle}, p: vec.Vec2{X: 2, Y: 2}, expected: true},
		{name: "implicit_closing_edge", rings: [][]vec.Vec2{triangle}, p: vec.Vec2{X: 0, Y: 3}, expected: true},
		{name: "outside", rings: [][]vec.Vec2{triangle}, p: vec.Vec2{X: 3, Y: 3}, expected: false},
		{name: "no_rings", p: vec.Vec2{X: 0, Y: 0}, expected: false},
		{name: "single_vertex_on", rings: [][]vec.Vec2{{{X: 1, Y: 1}}}, p: vec.Vec2{X: 1, Y: 1}, expected: true},
		{name: "single_vertex_off", rings: [][]vec.Vec2{{{X: 1, Y: 1}}}, p: vec.Vec2{X: 1, Y: 2}, expected: false},
		{name: "two_vertices_on", rings: [][]vec.Vec2{{{X: 0, Y: 0}, {X: 2, Y: 2}}}, p: vec.Vec2{X: 1, Y: 1}, expected: true},
		{name: "two_vertices_off", rings: [][]vec.Vec2{{{X: 0, Y: 0}, {X: 2, Y: 2}}}, p: vec.Vec2{X: 1, Y: 0}, expected: false},
		{
			name: "overlapping_rings_cancel",
			rings: [][]vec.Vec2{
				{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}},
				{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}},
			},
			p:        vec.Vec2{X: 2, Y: 2},
			expected: false,
		},
		{
			name: "self_intersecting",
			rings: [][]vec.Vec2{
				{{X: 0, Y: 0}, {X: 4, Y: 4}, {X: 4, Y: 0}, {X: 0, Y: 4}},
			},
			p:        vec.Vec2{X: 3, Y: 2},
			expected: true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ringsContain(tc.rings, tc.p))
		})
	}
}
