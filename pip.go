package contourdem

import (
	"math"

	"seehuhn.de/go/geom/vec"
)

// onSegmentEpsilon is the tolerance, relative to the segment's length, used
// when deciding whether a point lies on a segment.
const onSegmentEpsilon = 1e-9

// ringsContain returns true if p lies on the boundary of any ring or inside
// an odd number of rings. Each ring is implicitly closed. Rings with fewer
// than three vertices contain only their boundary.
func ringsContain(rings [][]vec.Vec2, p vec.Vec2) bool {
	inside := false
	for _, ring := range rings {
		n := len(ring)
		for i, j := 0, n-1; i < n; j, i = i, i+1 {
			a, b := ring[j], ring[i]
			if onSegment(p, a, b) {
				return true
			}
			if (a.Y > p.Y) != (b.Y > p.Y) && p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
				inside = !inside
			}
		}
	}
	return inside
}

// onSegment returns true if p lies on the segment from a to b.
func onSegment(p, a, b vec.Vec2) bool {
	if p.X < min(a.X, b.X) || max(a.X, b.X) < p.X || p.Y < min(a.Y, b.Y) || max(a.Y, b.Y) < p.Y {
		return false
	}
	ab := b.Sub(a)
	ap := p.Sub(a)
	cross := ab.X*ap.Y - ab.Y*ap.X
	return math.Abs(cross) <= onSegmentEpsilon*max(ab.Length(), 1)
}
