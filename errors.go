package contourdem

import (
	"errors"
	"fmt"
)

var (
	errMissingSVGRoot   = errors.New("missing svg root element")
	errMissingSize      = errors.New("missing width or height")
	errInvalidViewBox   = errors.New("invalid viewBox")
	errUnexpectedEOF    = errors.New("unexpected end of path data")
	errExpectedMoveTo   = errors.New("path data must start with a moveto")
	errNegativeSize     = errors.New("negative size")
	errNonPositiveScale = errors.New("non-positive scale")
	errSizeTooLarge     = errors.New("size too large")
)

// A ParseError is returned when a document cannot be parsed.
type ParseError struct {
	Element string // Element being parsed, if known.
	Attr    string // Attribute being parsed, if known.
	Err     error
}

func (e *ParseError) Error() string {
	switch {
	case e.Element != "" && e.Attr != "":
		return fmt.Sprintf("parse error: <%s %s>: %v", e.Element, e.Attr, e.Err)
	case e.Element != "":
		return fmt.Sprintf("parse error: <%s>: %v", e.Element, e.Err)
	default:
		return fmt.Sprintf("parse error: %v", e.Err)
	}
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// A ShapeError is returned when a rasterized row does not have the grid's
// width.
type ShapeError struct {
	Row   int
	Len   int
	Width int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("row %d: got %d values, want %d", e.Row, e.Len, e.Width)
}

// A RowError is returned when computing a row fails.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
