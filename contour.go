package contourdem

import (
	"math"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// defaultFlatness is the default curve flattening tolerance in pixels.
const defaultFlatness = 0.25

// A SamplingMode determines how contour vertices are extracted from paths.
type SamplingMode int

const (
	// SampleSegmentStarts takes the start point of every segment, including
	// the implicit closing segment of a closed subpath. Curves contribute
	// only their start point and the end point of an open subpath is
	// dropped. Elliptical arcs are split into cubic pieces spanning at most
	// π/8 when parsed, so an arc contributes one vertex per piece. This is
	// lossy for curved contours but exact for polygons drawn with
	// closepath.
	SampleSegmentStarts SamplingMode = iota

	// FlattenCurves approximates curves with line segments no further than
	// the flattening tolerance from the true curve.
	FlattenCurves
)

func (m SamplingMode) String() string {
	switch m {
	case SampleSegmentStarts:
		return "segment-starts"
	case FlattenCurves:
		return "flatten-curves"
	default:
		return "unknown"
	}
}

// A Contour is a closed outline of constant elevation in pixel space.
type Contour struct {
	ID    int          // Index in document order, starting at 0.
	Label int          // Elevation label, ID+1.
	Rings [][]vec.Vec2 // One ring per subpath.
	BBox  rect.Rect
}

// Empty returns true if c has no vertices.
func (c *Contour) Empty() bool {
	for _, ring := range c.Rings {
		if len(ring) > 0 {
			return false
		}
	}
	return true
}

// Contains returns true if p is inside c or on its boundary. Rings are
// combined with the even-odd rule so inner rings cut holes.
func (c *Contour) Contains(p vec.Vec2) bool {
	if p.X < c.BBox.LLx || c.BBox.URx < p.X || p.Y < c.BBox.LLy || c.BBox.URy < p.Y {
		return false
	}
	return ringsContain(c.Rings, p)
}

// A LoaderOption sets an option on contour loading.
type LoaderOption func(*loader)

type loader struct {
	mode     SamplingMode
	flatness float64
}

// WithCurveFlattening flattens curves to within flatness pixels instead of
// sampling segment start points.
func WithCurveFlattening(flatness float64) LoaderOption {
	return func(l *loader) {
		l.mode = FlattenCurves
		l.flatness = flatness
	}
}

// WithSamplingMode sets the sampling mode.
func WithSamplingMode(mode SamplingMode) LoaderOption {
	return func(l *loader) {
		l.mode = mode
	}
}

// LoadContours returns the contours of doc in pixel space, in document
// order. Document coordinates are mapped to pixels by subtracting the
// viewBox origin and then multiplying by doc.Scale(), so a point at the
// viewBox's top left corner maps to pixel (0, 0).
func LoadContours(doc *Document, options ...LoaderOption) []Contour {
	l := &loader{
		mode:     SampleSegmentStarts,
		flatness: defaultFlatness,
	}
	for _, option := range options {
		option(l)
	}
	if !(l.flatness > 0) {
		l.flatness = defaultFlatness
	}

	scaleX, scaleY := doc.Scale()
	var originX, originY float64
	if doc.ViewBox != nil {
		originX, originY = doc.ViewBox.X, doc.ViewBox.Y
	}
	toPixel := func(v vec.Vec2) vec.Vec2 {
		return vec.Vec2{
			X: (v.X - originX) * scaleX,
			Y: (v.Y - originY) * scaleY,
		}
	}

	contours := make([]Contour, 0, len(doc.Paths))
	for i, pathElement := range doc.Paths {
		var rings [][]vec.Vec2
		switch l.mode {
		case FlattenCurves:
			rings = l.flattenedRings(pathElement.Data, toPixel)
		default:
			rings = segmentStartRings(pathElement.Data, toPixel)
		}
		contours = append(contours, Contour{
			ID:    i,
			Label: i + 1,
			Rings: rings,
			BBox:  ringsBBox(rings),
		})
	}
	return contours
}

// segmentStartRings returns the start point of every segment of p, grouped
// by subpath.
func segmentStartRings(p *path.Data, toPixel func(vec.Vec2) vec.Vec2) [][]vec.Vec2 {
	var rings [][]vec.Vec2
	var ring []vec.Vec2
	var current, subpathStart vec.Vec2
	flush := func() {
		if len(ring) > 0 {
			rings = append(rings, ring)
		}
		ring = nil
	}

	coordIdx := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			flush()
			current = p.Coords[coordIdx]
			subpathStart = current
			coordIdx++
		case path.CmdLineTo:
			ring = append(ring, toPixel(current))
			current = p.Coords[coordIdx]
			coordIdx++
		case path.CmdQuadTo:
			ring = append(ring, toPixel(current))
			current = p.Coords[coordIdx+1]
			coordIdx += 2
		case path.CmdCubeTo:
			ring = append(ring, toPixel(current))
			current = p.Coords[coordIdx+2]
			coordIdx += 3
		case path.CmdClose:
			if current != subpathStart {
				ring = append(ring, toPixel(current))
			}
			current = subpathStart
			flush()
		}
	}
	flush()
	return rings
}

// flattenedRings returns the vertices of p with curves flattened, grouped by
// subpath.
func (l *loader) flattenedRings(p *path.Data, toPixel func(vec.Vec2) vec.Vec2) [][]vec.Vec2 {
	var rings [][]vec.Vec2
	var ring []vec.Vec2
	var current, subpathStart vec.Vec2
	emit := func(pt vec.Vec2) {
		ring = append(ring, pt)
	}
	flush := func() {
		if n := len(ring); n > 1 && ring[n-1] == ring[0] {
			ring = ring[:n-1]
		}
		if len(ring) > 0 {
			rings = append(rings, ring)
		}
		ring = nil
	}

	coordIdx := 0
	for _, cmd := range p.Cmds {
		switch cmd {
		case path.CmdMoveTo:
			flush()
			current = toPixel(p.Coords[coordIdx])
			subpathStart = current
			emit(current)
			coordIdx++
		case path.CmdLineTo:
			current = toPixel(p.Coords[coordIdx])
			emit(current)
			coordIdx++
		case path.CmdQuadTo:
			p1, p2 := toPixel(p.Coords[coordIdx]), toPixel(p.Coords[coordIdx+1])
			flattenQuadratic(current, p1, p2, l.flatness, emit)
			current = p2
			coordIdx += 2
		case path.CmdCubeTo:
			p1, p2, p3 := toPixel(p.Coords[coordIdx]), toPixel(p.Coords[coordIdx+1]), toPixel(p.Coords[coordIdx+2])
			flattenCubic(current, p1, p2, p3, l.flatness, emit)
			current = p3
			coordIdx += 3
		case path.CmdClose:
			current = subpathStart
			flush()
		}
	}
	flush()
	return rings
}

// flattenQuadratic calls emit with the points after p0 of a polyline
// approximating the quadratic Bézier p0, p1, p2.
func flattenQuadratic(p0, p1, p2 vec.Vec2, flatness float64, emit func(vec.Vec2)) {
	// e = (P0 - 2*P1 + P2) / 4
	e := p0.Sub(p1.Mul(2)).Add(p2).Mul(0.25)
	n := 1
	if err := e.Length(); err > flatness {
		n = int(math.Ceil(math.Sqrt(err / flatness)))
	}
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		omt := 1 - t
		emit(p0.Mul(omt * omt).Add(p1.Mul(2 * omt * t)).Add(p2.Mul(t * t)))
	}
}

// flattenCubic calls emit with the points after p0 of a polyline
// approximating the cubic Bézier p0, p1, p2, p3, using Wang's formula for the
// number of segments.
func flattenCubic(p0, p1, p2, p3 vec.Vec2, flatness float64, emit func(vec.Vec2)) {
	d1 := p0.Sub(p1.Mul(2)).Add(p2)
	d2 := p1.Sub(p2.Mul(2)).Add(p3)
	n := 1
	if m := max(d1.Length(), d2.Length()); m > 0 {
		if nFloat := math.Sqrt(3 * m / (4 * flatness)); nFloat > 1 {
			n = int(math.Ceil(nFloat))
		}
	}
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		omt := 1 - t
		omt2 := omt * omt
		t2 := t * t
		emit(p0.Mul(omt2 * omt).Add(p1.Mul(3 * omt2 * t)).Add(p2.Mul(3 * omt * t2)).Add(p3.Mul(t2 * t)))
	}
}

// ringsBBox returns the bounding box of all vertices in rings. The bounding
// box of no vertices is the zero rect.
func ringsBBox(rings [][]vec.Vec2) rect.Rect {
	first := true
	var bbox rect.Rect
	for _, ring := range rings {
		for _, v := range ring {
			if first {
				bbox = rect.Rect{LLx: v.X, LLy: v.Y, URx: v.X, URy: v.Y}
				first = false
				continue
			}
			bbox.LLx = min(bbox.LLx, v.X)
			bbox.LLy = min(bbox.LLy, v.Y)
			bbox.URx = max(bbox.URx, v.X)
			bbox.URy = max(bbox.URy, v.Y)
		}
	}
	return bbox
}
