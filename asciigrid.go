package contourdem

import (
	"bufio"
	"io"
	"math"
	"strconv"
)

// ASCIIGridNoData is the NODATA_value written by ASCIIGridWriter.
const ASCIIGridNoData = -9999

// An ASCIIGridWriter writes grids in the Esri ASCII grid format with the same
// georeferencing as GeoTIFFWriter.
type ASCIIGridWriter struct{}

// NewASCIIGridWriter returns a new ASCIIGridWriter.
func NewASCIIGridWriter() *ASCIIGridWriter {
	return &ASCIIGridWriter{}
}

// Extension implements GridWriter.
func (w *ASCIIGridWriter) Extension() string {
	return ".asc"
}

// WriteGrid implements GridWriter.
func (w *ASCIIGridWriter) WriteGrid(dst io.Writer, grid *Grid) error {
	width, height := grid.Size()
	bw := bufio.NewWriter(dst)
	buf := make([]byte, 0, 64)
	writeHeader := func(key string, value []byte) error {
		buf = append(buf[:0], key...)
		buf = append(buf, ' ')
		buf = append(buf, value...)
		buf = append(buf, '\n')
		_, err := bw.Write(buf)
		return err
	}
	for _, header := range []struct {
		key   string
		value []byte
	}{
		{"ncols", strconv.AppendInt(nil, int64(width), 10)},
		{"nrows", strconv.AppendInt(nil, int64(height), 10)},
		{"xllcorner", []byte("0")},
		{"yllcorner", strconv.AppendFloat(nil, float64(height)-float64(height)*DegreesPerPixel, 'g', -1, 64)},
		{"cellsize", strconv.AppendFloat(nil, DegreesPerPixel, 'g', -1, 64)},
		{"NODATA_value", strconv.AppendInt(nil, ASCIIGridNoData, 10)},
	} {
		if err := writeHeader(header.key, header.value); err != nil {
			return err
		}
	}

	for y := range height {
		buf = buf[:0]
		for x, value := range grid.Row(y) {
			if x > 0 {
				buf = append(buf, ' ')
			}
			if math.IsNaN(value) {
				buf = strconv.AppendInt(buf, ASCIIGridNoData, 10)
			} else {
				buf = strconv.AppendFloat(buf, value, 'g', -1, 64)
			}
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}
