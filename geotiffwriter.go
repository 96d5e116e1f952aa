package contourdem

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"io"
	"math"
)

const (
	defaultTileSize = 256

	// DegreesPerPixel is the size of a pixel in the rasters written.
	DegreesPerPixel = 0.0001
)

// TIFF field types.
const (
	tiffTypeShort  = 3
	tiffTypeLong   = 4
	tiffTypeDouble = 12
)

// TIFF compression schemes.
const (
	compressionNone        = 1
	compressionLZW         = 5
	compressionDeflate     = 8
	compressionDeflateOld  = 32946
	sampleFormatIEEEFloat  = 3
	photometricBlackIsZero = 1
)

var (
	errEmptyGrid    = errors.New("empty grid")
	errFileTooLarge = errors.New("file too large for classic TIFF")
)

// A GeoTIFFWriter writes grids as single-band float32 GeoTIFFs in WGS 84
// with a pixel size of DegreesPerPixel. The origin of the raster is (0,
// height) and row 0 is the northernmost row.
type GeoTIFFWriter struct {
	tileSize         int
	compressionLevel int
}

// A GeoTIFFWriterOption sets an option on a GeoTIFFWriter.
type GeoTIFFWriterOption func(*GeoTIFFWriter)

// NewGeoTIFFWriter returns a new GeoTIFFWriter with the given options.
func NewGeoTIFFWriter(options ...GeoTIFFWriterOption) *GeoTIFFWriter {
	w := &GeoTIFFWriter{
		tileSize:         defaultTileSize,
		compressionLevel: zlib.DefaultCompression,
	}
	for _, option := range options {
		option(w)
	}
	// Tile dimensions must be multiples of 16.
	w.tileSize = max(16, (w.tileSize+15)/16*16)
	return w
}

// WithTileSize sets the tile width and length. It is rounded up to a
// multiple of 16.
func WithTileSize(tileSize int) GeoTIFFWriterOption {
	return func(w *GeoTIFFWriter) {
		w.tileSize = tileSize
	}
}

// WithCompressionLevel sets the zlib compression level.
func WithCompressionLevel(compressionLevel int) GeoTIFFWriterOption {
	return func(w *GeoTIFFWriter) {
		w.compressionLevel = compressionLevel
	}
}

// Extension implements GridWriter.
func (w *GeoTIFFWriter) Extension() string {
	return ".tif"
}

// A tiffEntry is an IFD entry with its value encoded in little-endian byte
// order.
type tiffEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	data  []byte
}

func shortEntry(tag uint16, values ...uint16) tiffEntry {
	data := make([]byte, 0, 2*len(values))
	for _, value := range values {
		data = binary.LittleEndian.AppendUint16(data, value)
	}
	return tiffEntry{tag: tag, typ: tiffTypeShort, count: uint32(len(values)), data: data}
}

func longEntry(tag uint16, values ...uint32) tiffEntry {
	data := make([]byte, 0, 4*len(values))
	for _, value := range values {
		data = binary.LittleEndian.AppendUint32(data, value)
	}
	return tiffEntry{tag: tag, typ: tiffTypeLong, count: uint32(len(values)), data: data}
}

func doubleEntry(tag uint16, values ...float64) tiffEntry {
	data := make([]byte, 0, 8*len(values))
	for _, value := range values {
		data = binary.LittleEndian.AppendUint64(data, math.Float64bits(value))
	}
	return tiffEntry{tag: tag, typ: tiffTypeDouble, count: uint32(len(values)), data: data}
}

// WriteGrid implements GridWriter.
func (w *GeoTIFFWriter) WriteGrid(dst io.Writer, grid *Grid) error {
	width, height := grid.Size()
	if width == 0 || height == 0 {
		return errEmptyGrid
	}

	tilesAcross := (width + w.tileSize - 1) / w.tileSize
	tilesDown := (height + w.tileSize - 1) / w.tileSize
	tiles := make([][]byte, 0, tilesAcross*tilesDown)
	tileByteCounts := make([]uint32, 0, tilesAcross*tilesDown)
	for r := range tilesDown {
		for c := range tilesAcross {
			tile, err := w.encodeTile(grid, TileCoord{C: c, R: r})
			if err != nil {
				return err
			}
			tiles = append(tiles, tile)
			tileByteCounts = append(tileByteCounts, uint32(len(tile)))
		}
	}

	tileOffsetsEntry := longEntry(324, make([]uint32, len(tiles))...)
	entries := []tiffEntry{
		longEntry(256, uint32(width)),
		longEntry(257, uint32(height)),
		shortEntry(258, 32),
		shortEntry(259, compressionDeflate),
		shortEntry(262, photometricBlackIsZero),
		shortEntry(277, 1),
		shortEntry(284, 1),
		shortEntry(317, 1),
		shortEntry(322, uint16(w.tileSize)),
		shortEntry(323, uint16(w.tileSize)),
		tileOffsetsEntry,
		longEntry(325, tileByteCounts...),
		shortEntry(339, sampleFormatIEEEFloat),
		doubleEntry(tagModelPixelScale, DegreesPerPixel, DegreesPerPixel, 0),
		doubleEntry(tagModelTiepoint, 0, 0, 0, 0, float64(height), 0),
		shortEntry(tagGeoKeyDirectory, encodeGeoKeys(wgs84GeoKeys())...),
	}

	// Lay out the file: header, IFD, values too large for the IFD, tiles.
	offset := int64(8 + 2 + 12*len(entries) + 4)
	valueOffsets := make([]uint32, len(entries))
	for i, entry := range entries {
		if len(entry.data) <= 4 {
			continue
		}
		valueOffsets[i] = uint32(offset)
		offset += int64(len(entry.data) + len(entry.data)%2)
	}
	for i, tile := range tiles {
		binary.LittleEndian.PutUint32(tileOffsetsEntry.data[4*i:], uint32(offset))
		offset += int64(len(tile))
	}
	if offset > math.MaxUint32 {
		return errFileTooLarge
	}

	bw := bufio.NewWriter(dst)
	header := make([]byte, 0, 8+2+12*len(entries)+4)
	header = append(header, 'I', 'I')
	header = binary.LittleEndian.AppendUint16(header, 42)
	header = binary.LittleEndian.AppendUint32(header, 8)
	header = binary.LittleEndian.AppendUint16(header, uint16(len(entries)))
	for i, entry := range entries {
		header = binary.LittleEndian.AppendUint16(header, entry.tag)
		header = binary.LittleEndian.AppendUint16(header, entry.typ)
		header = binary.LittleEndian.AppendUint32(header, entry.count)
		if len(entry.data) <= 4 {
			var value [4]byte
			copy(value[:], entry.data)
			header = append(header, value[:]...)
		} else {
			header = binary.LittleEndian.AppendUint32(header, valueOffsets[i])
		}
	}
	header = binary.LittleEndian.AppendUint32(header, 0)
	if _, err := bw.Write(header); err != nil {
		return err
	}
	for _, entry := range entries {
		if len(entry.data) <= 4 {
			continue
		}
		if _, err := bw.Write(entry.data); err != nil {
			return err
		}
		if len(entry.data)%2 != 0 {
			if err := bw.WriteByte(0); err != nil {
				return err
			}
		}
	}
	for _, tile := range tiles {
		if _, err := bw.Write(tile); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// encodeTile returns the compressed samples of the tile at tileCoord. Samples
// beyond the edge of grid are 0.
func (w *GeoTIFFWriter) encodeTile(grid *Grid, tileCoord TileCoord) ([]byte, error) {
	width, height := grid.Size()
	tileData := make([]byte, 4*w.tileSize*w.tileSize)
	for y := range w.tileSize {
		gridY := tileCoord.R*w.tileSize + y
		if gridY >= height {
			break
		}
		row := grid.Row(gridY)
		for x := range w.tileSize {
			gridX := tileCoord.C*w.tileSize + x
			if gridX >= width {
				break
			}
			binary.LittleEndian.PutUint32(tileData[4*(y*w.tileSize+x):], math.Float32bits(float32(row[gridX])))
		}
	}

	var buffer bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buffer, w.compressionLevel)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(tileData); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}
