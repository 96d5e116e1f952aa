package contourdem

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
	"seehuhn.de/go/geom/vec"
)

const (
	defaultImageWidth  = 800
	defaultImageHeight = 600
	defaultMaxCells    = 200
	defaultZScale      = 0.25
	surfaceMargin      = 32
	axisHalfWidth      = 0.75
)

// A colorStop is a position in a color map.
type colorStop struct {
	t       float64
	r, g, b float64
}

// terrainColorMap runs from deep water through lowland greens and highland
// browns to snow.
var terrainColorMap = []colorStop{
	{t: 0.00, r: 0.20, g: 0.20, b: 0.60},
	{t: 0.15, r: 0.00, g: 0.60, b: 1.00},
	{t: 0.25, r: 0.00, g: 0.80, b: 0.40},
	{t: 0.50, r: 1.00, g: 1.00, b: 0.60},
	{t: 0.75, r: 0.50, g: 0.36, b: 0.33},
	{t: 1.00, r: 1.00, g: 1.00, b: 1.00},
}

// A SurfaceRenderer renders grids as 3D surfaces in isometric projection.
type SurfaceRenderer struct {
	imageWidth  int
	imageHeight int
	maxCells    int
	zScale      float64
	wall        bool
}

// A SurfaceRendererOption sets an option on a SurfaceRenderer.
type SurfaceRendererOption func(*SurfaceRenderer)

// NewSurfaceRenderer returns a new SurfaceRenderer with the given options.
func NewSurfaceRenderer(options ...SurfaceRendererOption) *SurfaceRenderer {
	s := &SurfaceRenderer{
		imageWidth:  defaultImageWidth,
		imageHeight: defaultImageHeight,
		maxCells:    defaultMaxCells,
		zScale:      defaultZScale,
	}
	for _, option := range options {
		option(s)
	}
	s.imageWidth = max(s.imageWidth, 2*surfaceMargin+1)
	s.imageHeight = max(s.imageHeight, 2*surfaceMargin+1)
	s.maxCells = max(s.maxCells, 1)
	return s
}

// WithImageSize sets the size of the rendered image.
func WithImageSize(width, height int) SurfaceRendererOption {
	return func(s *SurfaceRenderer) {
		s.imageWidth = width
		s.imageHeight = height
	}
}

// WithMaxCells sets the maximum number of cells drawn along each axis. Larger
// grids are downsampled.
func WithMaxCells(maxCells int) SurfaceRendererOption {
	return func(s *SurfaceRenderer) {
		s.maxCells = maxCells
	}
}

// WithWall sets whether a wall of bars showing the elevation profile of the
// last row is drawn along the front edge.
func WithWall(wall bool) SurfaceRendererOption {
	return func(s *SurfaceRenderer) {
		s.wall = wall
	}
}

// WithZScale sets the height of the highest elevation relative to the
// larger of the grid's width and height.
func WithZScale(zScale float64) SurfaceRendererOption {
	return func(s *SurfaceRenderer) {
		s.zScale = zScale
	}
}

// Extension implements GridRenderer.
func (s *SurfaceRenderer) Extension() string {
	return ".png"
}

// RenderGrid implements GridRenderer.
func (s *SurfaceRenderer) RenderGrid(w io.Writer, grid *Grid) error {
	return png.Encode(w, s.Render(grid))
}

// A surfaceProjection maps grid coordinates and elevations to image
// coordinates.
type surfaceProjection struct {
	minZ, rangeZ float64
	zTop         float64
	scale        float64
	offset       vec.Vec2
}

// isometric returns the unscaled isometric projection of (x, y, z).
func isometric(x, y, z float64) vec.Vec2 {
	return vec.Vec2{
		X: (x - y) * math.Sqrt(3) / 2,
		Y: (x+y)/2 - z,
	}
}

// project returns the image coordinates of the grid point (x, y) with
// elevation value.
func (p *surfaceProjection) project(x, y, value float64) vec.Vec2 {
	z := 0.0
	if !math.IsNaN(value) {
		z = (value - p.minZ) / p.rangeZ * p.zTop
	}
	return isometric(x, y, z).Mul(p.scale).Add(p.offset)
}

// Render returns grid rendered as an image.
func (s *SurfaceRenderer) Render(grid *Grid) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, s.imageWidth, s.imageHeight))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	width, height := grid.Size()
	if width == 0 || height == 0 {
		return img
	}

	xs := sampleIndexes(width, s.maxCells)
	ys := sampleIndexes(height, s.maxCells)
	maxX, maxY := float64(width-1), float64(height-1)

	minZ, maxZ := grid.Range()
	p := &surfaceProjection{
		minZ:   minZ,
		rangeZ: maxZ - minZ,
		zTop:   s.zScale * max(maxX, maxY, 1),
	}
	if !(p.rangeZ > 0) {
		p.rangeZ = 1
	}

	// Fit the bounding box of the surface into the image.
	bounds := vec.Vec2{X: math.Inf(1), Y: math.Inf(1)}
	boundsMax := vec.Vec2{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, corner := range [][3]float64{
		{0, 0, 0}, {maxX, 0, 0}, {0, maxY, 0}, {maxX, maxY, 0},
		{0, 0, p.zTop}, {maxX, 0, p.zTop}, {0, maxY, p.zTop}, {maxX, maxY, p.zTop},
	} {
		v := isometric(corner[0], corner[1], corner[2])
		bounds = vec.Vec2{X: min(bounds.X, v.X), Y: min(bounds.Y, v.Y)}
		boundsMax = vec.Vec2{X: max(boundsMax.X, v.X), Y: max(boundsMax.Y, v.Y)}
	}
	size := boundsMax.Sub(bounds)
	available := vec.Vec2{
		X: float64(s.imageWidth - 2*surfaceMargin),
		Y: float64(s.imageHeight - 2*surfaceMargin),
	}
	p.scale = min(available.X/max(size.X, 1), available.Y/max(size.Y, 1))
	p.offset = vec.Vec2{
		X: surfaceMargin + (available.X-size.X*p.scale)/2,
		Y: surfaceMargin + (available.Y-size.Y*p.scale)/2,
	}.Sub(bounds.Mul(p.scale))

	r := &polygonFiller{dst: img}

	// Draw quads back to front, one diagonal at a time.
	for d := 0; d <= len(xs)+len(ys)-4; d++ {
		for i := max(0, d-(len(ys)-2)); i <= min(d, len(xs)-2); i++ {
			j := d - i
			x0, x1 := xs[i], xs[i+1]
			y0, y1 := ys[j], ys[j+1]
			v00, v10 := grid.At(x0, y0), grid.At(x1, y0)
			v11, v01 := grid.At(x1, y1), grid.At(x0, y1)
			r.fill(terrainColor(p.normalize((v00+v10+v11+v01)/4)),
				p.project(float64(x0), float64(y0), v00),
				p.project(float64(x1), float64(y0), v10),
				p.project(float64(x1), float64(y1), v11),
				p.project(float64(x0), float64(y1), v01),
			)
		}
	}

	// The wall stands on the front edge and shows each column's highest
	// elevation.
	if s.wall {
		y := ys[len(ys)-1]
		profile := columnProfile(grid, xs)
		for i := range len(xs) - 1 {
			x0, x1 := xs[i], xs[i+1]
			value := profile[i]
			if !(value > minZ) {
				continue
			}
			r.fill(shade(terrainColor(p.normalize(value)), 0.7),
				p.project(float64(x0), float64(y), minZ),
				p.project(float64(x1), float64(y), minZ),
				p.project(float64(x1), float64(y), value),
				p.project(float64(x0), float64(y), value),
			)
		}
	}

	origin := p.project(0, 0, minZ)
	for _, axis := range []struct {
		label string
		end   vec.Vec2
	}{
		{label: "X", end: p.project(maxX, 0, minZ)},
		{label: "Y", end: p.project(0, maxY, minZ)},
		{label: "Z " + strconv.FormatFloat(maxZ, 'g', 6, 64), end: p.project(0, 0, maxZ)},
	} {
		r.line(color.Black, origin, axis.end)
		drawLabel(img, axis.label, axis.end)
	}

	return img
}

// normalize returns value scaled to [0, 1] by p's elevation range.
func (p *surfaceProjection) normalize(value float64) float64 {
	if math.IsNaN(value) {
		return 0
	}
	return min(max((value-p.minZ)/p.rangeZ, 0), 1)
}

// columnProfile returns the maximum value of each column in xs, ignoring
// NaNs.
func columnProfile(grid *Grid, xs []int) []float64 {
	_, height := grid.Size()
	profile := make([]float64, len(xs))
	for i, x := range xs {
		profile[i] = math.NaN()
		for y := range height {
			switch value := grid.At(x, y); {
			case math.IsNaN(value):
			case math.IsNaN(profile[i]) || value > profile[i]:
				profile[i] = value
			}
		}
	}
	return profile
}

// sampleIndexes returns at most maxCells+1 evenly spaced indexes in [0, n)
// including 0 and n-1.
func sampleIndexes(n, maxCells int) []int {
	stride := max((n-1+maxCells-1)/maxCells, 1)
	indexes := make([]int, 0, (n-1)/stride+2)
	for i := 0; i < n-1; i += stride {
		indexes = append(indexes, i)
	}
	return append(indexes, n-1)
}

// terrainColor returns the color of t in terrainColorMap.
func terrainColor(t float64) color.RGBA {
	for i := 1; i < len(terrainColorMap); i++ {
		c0, c1 := terrainColorMap[i-1], terrainColorMap[i]
		if t > c1.t && i < len(terrainColorMap)-1 {
			continue
		}
		f := min(max((t-c0.t)/(c1.t-c0.t), 0), 1)
		return color.RGBA{
			R: uint8(math.Round(255 * (c0.r + f*(c1.r-c0.r)))),
			G: uint8(math.Round(255 * (c0.g + f*(c1.g-c0.g)))),
			B: uint8(math.Round(255 * (c0.b + f*(c1.b-c0.b)))),
			A: 0xff,
		}
	}
	return color.RGBA{A: 0xff}
}

// shade returns c darkened by factor.
func shade(c color.RGBA, factor float64) color.RGBA {
	return color.RGBA{
		R: uint8(float64(c.R) * factor),
		G: uint8(float64(c.G) * factor),
		B: uint8(float64(c.B) * factor),
		A: c.A,
	}
}

// A polygonFiller fills small polygons in dst, rasterizing each over its own
// bounding box only.
type polygonFiller struct {
	dst *image.RGBA
	z   *vector.Rasterizer
}

// fill fills the polygon points with c.
func (f *polygonFiller) fill(c color.Color, points ...vec.Vec2) {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, point := range points {
		minX, minY = min(minX, point.X), min(minY, point.Y)
		maxX, maxY = max(maxX, point.X), max(maxY, point.Y)
	}
	rect := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1,
	)
	if !rect.In(f.dst.Bounds()) {
		rect = rect.Intersect(f.dst.Bounds())
		if rect.Empty() {
			return
		}
	}
	origin := vec.Vec2{X: float64(rect.Min.X), Y: float64(rect.Min.Y)}

	if f.z == nil {
		f.z = vector.NewRasterizer(rect.Dx(), rect.Dy())
	} else {
		f.z.Reset(rect.Dx(), rect.Dy())
	}
	for i, point := range points {
		local := point.Sub(origin)
		if i == 0 {
			f.z.MoveTo(float32(local.X), float32(local.Y))
		} else {
			f.z.LineTo(float32(local.X), float32(local.Y))
		}
	}
	f.z.ClosePath()
	f.z.Draw(f.dst, rect, image.NewUniform(c), image.Point{})
}

// line draws a line from a to b with c.
func (f *polygonFiller) line(c color.Color, a, b vec.Vec2) {
	d := b.Sub(a)
	length := d.Length()
	if length == 0 {
		return
	}
	n := vec.Vec2{X: -d.Y, Y: d.X}.Mul(axisHalfWidth / length)
	f.fill(c, a.Add(n), b.Add(n), b.Sub(n), a.Sub(n))
}

// drawLabel draws label next to p.
func drawLabel(dst draw.Image, label string, p vec.Vec2) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.Black,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(int(p.X)+4, int(p.Y)-4),
	}
	d.DrawString(label)
}
