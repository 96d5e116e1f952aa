package contourdem

import (
	"fmt"
	"math"
	"strconv"

	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

// maxArcSpan is the maximum angle in radians that a single cubic Bézier is
// allowed to span when approximating an elliptical arc.
const maxArcSpan = math.Pi / 8

// ParsePathData parses the SVG path data in d. Arcs are converted to cubic
// Béziers. An empty string returns an empty path.
func ParsePathData(d string) (*path.Data, error) {
	p := &pathDataParser{
		scanner: pathDataScanner{s: d},
		data:    &path.Data{},
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.data, nil
}

// parsePoints parses the points attribute of a polygon element into a closed
// path.
func parsePoints(s string) (*path.Data, error) {
	scanner := pathDataScanner{s: s}
	data := &path.Data{}
	for i := 0; !scanner.done(); i++ {
		x, err := scanner.number()
		if err != nil {
			return nil, err
		}
		if scanner.done() {
			return nil, errUnexpectedEOF
		}
		y, err := scanner.number()
		if err != nil {
			return nil, err
		}
		if i == 0 {
			data.MoveTo(vec.Vec2{X: x, Y: y})
		} else {
			data.LineTo(vec.Vec2{X: x, Y: y})
		}
	}
	if len(data.Cmds) > 0 {
		data.Close()
	}
	return data, nil
}

// A pathDataScanner splits SVG path data into commands, numbers, and flags.
type pathDataScanner struct {
	s   string
	pos int
}

func (s *pathDataScanner) skipSeparators() {
	for s.pos < len(s.s) {
		switch s.s[s.pos] {
		case ' ', '\t', '\n', '\r', '\f', ',':
			s.pos++
		default:
			return
		}
	}
}

// done reports whether only separators remain.
func (s *pathDataScanner) done() bool {
	s.skipSeparators()
	return s.pos >= len(s.s)
}

// command consumes and returns the next command letter, if there is one.
func (s *pathDataScanner) command() (byte, bool) {
	s.skipSeparators()
	if s.pos >= len(s.s) {
		return 0, false
	}
	switch c := s.s[s.pos]; c {
	case 'M', 'm', 'L', 'l', 'H', 'h', 'V', 'v', 'C', 'c', 'S', 's', 'Q', 'q', 'T', 't', 'A', 'a', 'Z', 'z':
		s.pos++
		return c, true
	default:
		return 0, false
	}
}

// number consumes and returns the next number.
func (s *pathDataScanner) number() (float64, error) {
	s.skipSeparators()
	if s.pos >= len(s.s) {
		return 0, errUnexpectedEOF
	}
	start := s.pos
	if c := s.s[s.pos]; c == '+' || c == '-' {
		s.pos++
	}
	digits := s.digits()
	if s.pos < len(s.s) && s.s[s.pos] == '.' {
		s.pos++
		digits += s.digits()
	}
	if digits == 0 {
		return 0, fmt.Errorf("invalid number at offset %d", start)
	}
	if s.pos < len(s.s) && (s.s[s.pos] == 'e' || s.s[s.pos] == 'E') {
		exponent := s.pos + 1
		if exponent < len(s.s) && (s.s[exponent] == '+' || s.s[exponent] == '-') {
			exponent++
		}
		if exponent < len(s.s) && isDigit(s.s[exponent]) {
			s.pos = exponent
			s.digits()
		}
	}
	return strconv.ParseFloat(s.s[start:s.pos], 64)
}

// flag consumes and returns the next arc flag. Flags need not be separated
// from the following value.
func (s *pathDataScanner) flag() (bool, error) {
	s.skipSeparators()
	if s.pos >= len(s.s) {
		return false, errUnexpectedEOF
	}
	switch s.s[s.pos] {
	case '0':
		s.pos++
		return false, nil
	case '1':
		s.pos++
		return true, nil
	default:
		return false, fmt.Errorf("invalid flag at offset %d", s.pos)
	}
}

func (s *pathDataScanner) digits() int {
	start := s.pos
	for s.pos < len(s.s) && isDigit(s.s[s.pos]) {
		s.pos++
	}
	return s.pos - start
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

// A pathDataParser builds a path.Data from SVG path data.
type pathDataParser struct {
	scanner      pathDataScanner
	data         *path.Data
	current      vec.Vec2
	subpathStart vec.Vec2
	lastControl  vec.Vec2
	lastCommand  byte
	closed       bool
}

func (p *pathDataParser) parse() error {
	if p.scanner.done() {
		return nil
	}
	command, ok := p.scanner.command()
	if !ok || (command != 'M' && command != 'm') {
		return errExpectedMoveTo
	}
	for {
		if err := p.execute(command); err != nil {
			return err
		}
		if p.scanner.done() {
			return nil
		}
		if next, ok := p.scanner.command(); ok {
			command = next
			continue
		}
		// Further arguments repeat the previous command, except that
		// arguments after a moveto are implicit linetos.
		switch command {
		case 'Z', 'z':
			return fmt.Errorf("unexpected %q at offset %d", p.scanner.s[p.scanner.pos], p.scanner.pos)
		case 'M':
			command = 'L'
		case 'm':
			command = 'l'
		}
	}
}

// point reads a coordinate pair relative to origin.
func (p *pathDataParser) point(origin vec.Vec2) (vec.Vec2, error) {
	x, err := p.scanner.number()
	if err != nil {
		return vec.Vec2{}, err
	}
	y, err := p.scanner.number()
	if err != nil {
		return vec.Vec2{}, err
	}
	return vec.Vec2{X: origin.X + x, Y: origin.Y + y}, nil
}

func (p *pathDataParser) execute(command byte) error {
	relative := 'a' <= command && command <= 'z'
	upper := command
	if relative {
		upper -= 'a' - 'A'
	}
	var origin vec.Vec2
	if relative {
		origin = p.current
	}

	// A drawing command directly after a closepath starts a new subpath at
	// the previous subpath's start.
	if p.closed && upper != 'M' && upper != 'Z' {
		p.data.MoveTo(p.current)
		p.closed = false
	}

	switch upper {
	case 'M':
		pt, err := p.point(origin)
		if err != nil {
			return err
		}
		p.data.MoveTo(pt)
		p.current, p.subpathStart = pt, pt
		p.closed = false
	case 'L':
		pt, err := p.point(origin)
		if err != nil {
			return err
		}
		p.data.LineTo(pt)
		p.current = pt
	case 'H':
		x, err := p.scanner.number()
		if err != nil {
			return err
		}
		pt := vec.Vec2{X: origin.X + x, Y: p.current.Y}
		p.data.LineTo(pt)
		p.current = pt
	case 'V':
		y, err := p.scanner.number()
		if err != nil {
			return err
		}
		pt := vec.Vec2{X: p.current.X, Y: origin.Y + y}
		p.data.LineTo(pt)
		p.current = pt
	case 'C':
		var points [3]vec.Vec2
		for i := range points {
			var err error
			if points[i], err = p.point(origin); err != nil {
				return err
			}
		}
		p.data.CubeTo(points[0], points[1], points[2])
		p.lastControl, p.current = points[1], points[2]
	case 'S':
		c1 := p.current
		if p.lastCommand == 'C' || p.lastCommand == 'S' {
			c1 = p.current.Mul(2).Sub(p.lastControl)
		}
		c2, err := p.point(origin)
		if err != nil {
			return err
		}
		pt, err := p.point(origin)
		if err != nil {
			return err
		}
		p.data.CubeTo(c1, c2, pt)
		p.lastControl, p.current = c2, pt
	case 'Q':
		c, err := p.point(origin)
		if err != nil {
			return err
		}
		pt, err := p.point(origin)
		if err != nil {
			return err
		}
		p.data.QuadTo(c, pt)
		p.lastControl, p.current = c, pt
	case 'T':
		c := p.current
		if p.lastCommand == 'Q' || p.lastCommand == 'T' {
			c = p.current.Mul(2).Sub(p.lastControl)
		}
		pt, err := p.point(origin)
		if err != nil {
			return err
		}
		p.data.QuadTo(c, pt)
		p.lastControl, p.current = c, pt
	case 'A':
		var radii [3]float64
		for i := range radii {
			var err error
			if radii[i], err = p.scanner.number(); err != nil {
				return err
			}
		}
		largeArc, err := p.scanner.flag()
		if err != nil {
			return err
		}
		sweep, err := p.scanner.flag()
		if err != nil {
			return err
		}
		pt, err := p.point(origin)
		if err != nil {
			return err
		}
		p.arcTo(radii[0], radii[1], radii[2], largeArc, sweep, pt)
		p.current = pt
	case 'Z':
		p.data.Close()
		p.current = p.subpathStart
		p.closed = true
	}
	p.lastCommand = upper
	return nil
}

// arcTo appends cubic Béziers approximating the elliptical arc from the
// current point to end, following the SVG arc parameterization.
func (p *pathDataParser) arcTo(rx, ry, rotation float64, largeArc, sweep bool, end vec.Vec2) {
	start := p.current
	rx, ry = math.Abs(rx), math.Abs(ry)
	switch {
	case start == end:
		return
	case rx == 0 || ry == 0:
		p.data.LineTo(end)
		return
	}

	rotX := rotation * math.Pi / 180
	cx, cy := findEllipseCenter(&rx, &ry, rotX, start.X, start.Y, end.X, end.Y, sweep, largeArc)

	startAngle := math.Atan2(start.Y-cy, start.X-cx) - rotX
	endAngle := math.Atan2(end.Y-cy, end.X-cx) - rotX
	arcBig := math.Abs(endAngle-startAngle) > math.Pi

	etaStart := math.Atan2(math.Sin(startAngle)/ry, math.Cos(startAngle)/rx)
	etaEnd := math.Atan2(math.Sin(endAngle)/ry, math.Cos(endAngle)/rx)
	deltaEta := etaEnd - etaStart
	if arcBig != largeArc {
		if deltaEta < 0 {
			deltaEta += 2 * math.Pi
		} else {
			deltaEta -= 2 * math.Pi
		}
	}
	if deltaEta < 0 && sweep {
		deltaEta += 2 * math.Pi
	} else if deltaEta >= 0 && !sweep {
		deltaEta -= 2 * math.Pi
	}

	// L. Maisonobe, "Drawing an elliptical arc using polylines, quadratic or
	// cubic Bézier curves", 2003.
	segments := int(math.Abs(deltaEta)/maxArcSpan) + 1
	dEta := deltaEta / float64(segments)
	tde := math.Tan(dEta / 2)
	alpha := math.Sin(dEta) * (math.Sqrt(4+3*tde*tde) - 1) / 3

	sinTheta, cosTheta := math.Sin(rotX), math.Cos(rotX)
	last := start
	lastTangent := ellipseTangent(rx, ry, sinTheta, cosTheta, etaStart)
	for i := 1; i <= segments; i++ {
		eta := etaStart + dEta*float64(i)
		pt := end
		if i != segments {
			pt = ellipsePoint(rx, ry, sinTheta, cosTheta, eta, cx, cy)
		}
		tangent := ellipseTangent(rx, ry, sinTheta, cosTheta, eta)
		p.data.CubeTo(last.Add(lastTangent.Mul(alpha)), pt.Sub(tangent.Mul(alpha)), pt)
		last, lastTangent = pt, tangent
	}
}

// ellipseTangent returns the tangent of a rotated ellipse with radii a and b
// at parameter eta.
func ellipseTangent(a, b, sinTheta, cosTheta, eta float64) vec.Vec2 {
	aSinEta := a * math.Sin(eta)
	bCosEta := b * math.Cos(eta)
	return vec.Vec2{
		X: -aSinEta*cosTheta - bCosEta*sinTheta,
		Y: -aSinEta*sinTheta + bCosEta*cosTheta,
	}
}

// ellipsePoint returns the point of a rotated ellipse centered at (cx, cy)
// at parameter eta.
func ellipsePoint(a, b, sinTheta, cosTheta, eta, cx, cy float64) vec.Vec2 {
	aCosEta := a * math.Cos(eta)
	bSinEta := b * math.Sin(eta)
	return vec.Vec2{
		X: cx + aCosEta*cosTheta - bSinEta*sinTheta,
		Y: cy + aCosEta*sinTheta + bSinEta*cosTheta,
	}
}

// findEllipseCenter returns the center of the ellipse through the start and
// end points. If no such ellipse exists then ra and rb are scaled up,
// preserving their ratio, until one does.
func findEllipseCenter(ra, rb *float64, rotX, startX, startY, endX, endY float64, sweep, largeArc bool) (float64, float64) {
	cos, sin := math.Cos(rotX), math.Sin(rotX)

	// Translate the start point to the origin, rotate the ellipse's axes onto
	// the coordinate axes, and scale x so that the ellipse is a circle of
	// radius rb.
	nx, ny := endX-startX, endY-startY
	nx, ny = nx*cos+ny*sin, -nx*sin+ny*cos
	nx *= *rb / *ra

	midX, midY := nx/2, ny/2
	midLenSq := midX*midX + midY*midY

	var hr float64
	if *rb**rb < midLenSq {
		nrb := math.Sqrt(midLenSq)
		if *ra == *rb {
			*ra = nrb
		} else {
			*ra = *ra * nrb / *rb
		}
		*rb = nrb
	} else {
		hr = math.Sqrt(*rb**rb-midLenSq) / math.Sqrt(midLenSq)
	}

	var cx, cy float64
	if sweep == largeArc {
		cx, cy = midX+midY*hr, midY-midX*hr
	} else {
		cx, cy = midX-midY*hr, midY+midX*hr
	}

	cx *= *ra / *rb
	return cx*cos - cy*sin + startX, cx*sin + cy*cos + startY
}
