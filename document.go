package contourdem

import (
	"encoding/xml"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/net/html/charset"
	"seehuhn.de/go/geom/path"
)

// MaxGridCells is the largest number of cells in a rasterized grid. Each
// dimension is also limited to MaxGridCells.
const MaxGridCells = 1 << 28

// A ViewBox is an SVG viewBox.
type ViewBox struct {
	X, Y, W, H float64
}

// A PathElement is a contour outline in document coordinates.
type PathElement struct {
	Element string // "path" or "polygon".
	ID      string
	Data    *path.Data
}

// A Document is a parsed SVG contour drawing.
type Document struct {
	Width   float64
	Height  float64
	ViewBox *ViewBox
	Paths   []PathElement
}

// elements whose descendants are never rendered directly.
var skippedContainers = map[string]bool{
	"clipPath": true,
	"defs":     true,
	"marker":   true,
	"mask":     true,
	"pattern":  true,
	"symbol":   true,
}

// ParseDocument parses an SVG document from r. Only the root's size and
// viewBox and the outlines of <path> and <polygon> elements are read.
func ParseDocument(r io.Reader) (*Document, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	var doc *Document
	skipDepth := 0
FOR:
	for {
		token, err := decoder.Token()
		switch {
		case errors.Is(err, io.EOF):
			break FOR
		case err != nil:
			return nil, &ParseError{Err: err}
		}

		switch se := token.(type) {
		case xml.StartElement:
			if doc == nil {
				if se.Name.Local != "svg" {
					return nil, &ParseError{Element: se.Name.Local, Err: errMissingSVGRoot}
				}
				if doc, err = parseSVGElement(se); err != nil {
					return nil, err
				}
				continue
			}
			if skipDepth > 0 || skippedContainers[se.Name.Local] {
				skipDepth++
				continue
			}
			switch se.Name.Local {
			case "path":
				pathElement, err := parsePathElement(se)
				if err != nil {
					return nil, err
				}
				doc.Paths = append(doc.Paths, pathElement)
			case "polygon":
				pathElement, err := parsePolygonElement(se)
				if err != nil {
					return nil, err
				}
				doc.Paths = append(doc.Paths, pathElement)
			}
		case xml.EndElement:
			if skipDepth > 0 {
				skipDepth--
			}
		}
	}

	if doc == nil {
		return nil, &ParseError{Err: errMissingSVGRoot}
	}
	return doc, nil
}

// GridSize returns the dimensions of the grid rasterized from d.
func (d *Document) GridSize() (int, int) {
	return int(math.Ceil(d.Width)), int(math.Ceil(d.Height))
}

// Scale returns the factors that map document coordinates to pixels.
func (d *Document) Scale() (float64, float64) {
	if d.ViewBox == nil {
		return 1, 1
	}
	return d.Width / d.ViewBox.W, d.Height / d.ViewBox.H
}

func parseSVGElement(se xml.StartElement) (*Document, error) {
	doc := &Document{}
	var width, height string
	for _, attr := range se.Attr {
		switch attr.Name.Local {
		case "width":
			width = attr.Value
		case "height":
			height = attr.Value
		case "viewBox":
			viewBox, err := parseViewBox(attr.Value)
			if err != nil {
				return nil, &ParseError{Element: "svg", Attr: "viewBox", Err: err}
			}
			doc.ViewBox = viewBox
		}
	}

	var err error
	switch {
	case width != "":
		if doc.Width, err = parseLength(width); err != nil {
			return nil, &ParseError{Element: "svg", Attr: "width", Err: err}
		}
	case doc.ViewBox != nil:
		doc.Width = doc.ViewBox.W
	default:
		return nil, &ParseError{Element: "svg", Attr: "width", Err: errMissingSize}
	}
	switch {
	case height != "":
		if doc.Height, err = parseLength(height); err != nil {
			return nil, &ParseError{Element: "svg", Attr: "height", Err: err}
		}
	case doc.ViewBox != nil:
		doc.Height = doc.ViewBox.H
	default:
		return nil, &ParseError{Element: "svg", Attr: "height", Err: errMissingSize}
	}

	gridWidth, gridHeight := math.Ceil(doc.Width), math.Ceil(doc.Height)
	switch {
	case gridWidth > MaxGridCells:
		return nil, &ParseError{Element: "svg", Attr: "width", Err: errSizeTooLarge}
	case gridHeight > MaxGridCells:
		return nil, &ParseError{Element: "svg", Attr: "height", Err: errSizeTooLarge}
	case gridWidth*gridHeight > MaxGridCells:
		return nil, &ParseError{Element: "svg", Err: errSizeTooLarge}
	}
	return doc, nil
}

// parseLength parses a length in pixels. A "px" suffix is allowed.
func parseLength(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "px")
	f, err := strconv.ParseFloat(s, 64)
	switch {
	case err != nil:
		return 0, err
	case f < 0 || math.IsNaN(f) || math.IsInf(f, 0):
		return 0, errNegativeSize
	default:
		return f, nil
	}
}

func parseViewBox(s string) (*ViewBox, error) {
	fields := splitOnCommaOrSpace(s)
	if len(fields) != 4 {
		return nil, errInvalidViewBox
	}
	var values [4]float64
	for i, field := range fields {
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		values[i] = f
	}
	if values[2] <= 0 || values[3] <= 0 {
		return nil, errNonPositiveScale
	}
	return &ViewBox{X: values[0], Y: values[1], W: values[2], H: values[3]}, nil
}

func parsePathElement(se xml.StartElement) (PathElement, error) {
	pathElement := PathElement{
		Element: "path",
		Data:    &path.Data{},
	}
	for _, attr := range se.Attr {
		switch attr.Name.Local {
		case "id":
			pathElement.ID = attr.Value
		case "d":
			data, err := ParsePathData(attr.Value)
			if err != nil {
				return PathElement{}, &ParseError{Element: "path", Attr: "d", Err: err}
			}
			pathElement.Data = data
		}
	}
	return pathElement, nil
}

func parsePolygonElement(se xml.StartElement) (PathElement, error) {
	pathElement := PathElement{
		Element: "polygon",
		Data:    &path.Data{},
	}
	for _, attr := range se.Attr {
		switch attr.Name.Local {
		case "id":
			pathElement.ID = attr.Value
		case "points":
			data, err := parsePoints(attr.Value)
			if err != nil {
				return PathElement{}, &ParseError{Element: "polygon", Attr: "points", Err: err}
			}
			pathElement.Data = data
		}
	}
	return pathElement, nil
}

// splitOnCommaOrSpace splits s on commas and whitespace.
func splitOnCommaOrSpace(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}
