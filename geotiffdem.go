package contourdem

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"slices"

	"github.com/google/tiff"
	_ "github.com/google/tiff/bigtiff"
	_ "github.com/google/tiff/geotiff"
	"github.com/maypok86/otter/v2"
	"golang.org/x/image/tiff/lzw"
)

var errShortRead = errors.New("short read")

// A GeoTIFFDEM is an open single-band float32 tiled GeoTIFF, such as those
// written by GeoTIFFWriter.
type GeoTIFFDEM struct {
	file                      *os.File
	compression               uint16
	imageWidth                int
	imageLength               int
	tileWidth                 int
	tileLength                int
	tilesAcross               int
	tilesDown                 int
	tileOffsets               []uint64
	tileByteCounts            []uint64
	tileSampleCount           int
	tileByteCountUncompressed int
	tileCacheSizeBytes        int
	tileSamplesCache          *otter.Cache[TileCoord, []float32]
	srid                      int
	scaleX                    float64
	scaleY                    float64
	originX                   float64
	originY                   float64
}

// A GeoTIFFDEMOption sets an option on a GeoTIFFDEM.
type GeoTIFFDEMOption func(*GeoTIFFDEM)

// A geoTIFFIFD is a struct into which github.com/google/tiff can unmarshal an
// IFD.
type geoTIFFIFD struct {
	ImageWidth                uint32    `tiff:"field,tag=256"`
	ImageLength               uint32    `tiff:"field,tag=257"`
	BitsPerSample             uint16    `tiff:"field,tag=258"`
	Compression               uint16    `tiff:"field,tag=259"`
	PhotometricInterpretation uint16    `tiff:"field,tag=262"`
	SamplesPerPixel           uint16    `tiff:"field,tag=277"`
	PlanarConfiguration       uint16    `tiff:"field,tag=284"`
	Predictor                 uint16    `tiff:"field,tag=317"`
	TileWidth                 uint16    `tiff:"field,tag=322"`
	TileLength                uint16    `tiff:"field,tag=323"`
	TileOffsets               []uint64  `tiff:"field,tag=324"`
	TileByteCounts            []uint64  `tiff:"field,tag=325"`
	SampleFormat              uint16    `tiff:"field,tag=339"`
	ModelPixelScaleTag        []float64 `tiff:"field,tag=33550"`
	ModelTiepointTag          []float64 `tiff:"field,tag=33922"`
	GeoKeyDirectoryTag        []uint16  `tiff:"field,tag=34735"`
	GeoDoubleParamsTag        []float64 `tiff:"field,tag=34736"`
	GeoASCIIParamsTag         string    `tiff:"field,tag=34737"`
}

// OpenGeoTIFFDEM opens the GeoTIFF filename in fsys.
func OpenGeoTIFFDEM(fsys fs.FS, filename string, options ...GeoTIFFDEMOption) (*GeoTIFFDEM, error) {
	var err error
	ok := false

	d := &GeoTIFFDEM{
		tileCacheSizeBytes: 16 << 20, // 16MB.
	}
	for _, option := range options {
		option(d)
	}

	file, err := fsys.Open(filename)
	if err != nil {
		return nil, err
	}
	if _, ok := file.(*os.File); !ok {
		_ = file.Close()
		return nil, errors.ErrUnsupported
	}
	d.file = file.(*os.File)
	defer func() {
		if !ok {
			_ = d.file.Close()
		}
	}()

	tiffTIFF, err := tiff.Parse(d.file, tiff.GetTagSpace("GeoTIFF"), nil)
	if err != nil {
		return nil, err
	}

	if len(tiffTIFF.IFDs()) != 1 {
		return nil, fmt.Errorf("found %d IFDs, expected 1", len(tiffTIFF.IFDs()))
	}

	var ifd geoTIFFIFD
	if err := tiff.UnmarshalIFD(tiffTIFF.IFDs()[0], &ifd); err != nil {
		return nil, err
	}

	switch ifd.Compression {
	case compressionNone, compressionLZW, compressionDeflate, compressionDeflateOld:
	default:
		return nil, fmt.Errorf("compression %d: %w", ifd.Compression, errors.ErrUnsupported)
	}
	if ifd.BitsPerSample != 32 ||
		ifd.PhotometricInterpretation != photometricBlackIsZero ||
		ifd.SamplesPerPixel != 1 ||
		ifd.PlanarConfiguration != 1 ||
		ifd.Predictor > 1 ||
		ifd.SampleFormat != sampleFormatIEEEFloat ||
		ifd.TileWidth == 0 || ifd.TileLength == 0 ||
		len(ifd.ModelPixelScaleTag) != 3 || ifd.ModelPixelScaleTag[2] != 0 ||
		len(ifd.ModelTiepointTag) != 6 || ifd.ModelTiepointTag[2] != 0 || ifd.ModelTiepointTag[5] != 0 {
		return nil, errors.ErrUnsupported
	}

	d.compression = ifd.Compression
	d.imageWidth = int(ifd.ImageWidth)
	d.imageLength = int(ifd.ImageLength)
	d.tileWidth = int(ifd.TileWidth)
	d.tileLength = int(ifd.TileLength)
	d.tilesAcross = (d.imageWidth + d.tileWidth - 1) / d.tileWidth
	d.tilesDown = (d.imageLength + d.tileLength - 1) / d.tileLength
	tilesPerImage := d.tilesAcross * d.tilesDown
	if len(ifd.TileByteCounts) != tilesPerImage || len(ifd.TileOffsets) != tilesPerImage {
		return nil, errors.New("incorrect number of tile byte counts or offsets")
	}
	d.tileOffsets = ifd.TileOffsets
	d.tileByteCounts = ifd.TileByteCounts
	d.tileSampleCount = d.tileWidth * d.tileLength
	d.tileByteCountUncompressed = d.tileSampleCount * int(ifd.BitsPerSample) / 8

	tileCacheCount := max(d.tileCacheSizeBytes/d.tileByteCountUncompressed, 1)
	d.tileSamplesCache, err = otter.New(&otter.Options[TileCoord, []float32]{
		MaximumSize: tileCacheCount,
	})
	if err != nil {
		return nil, err
	}

	if ifd.GeoKeyDirectoryTag != nil {
		geoKeys, err := ParseGeoKeys(ifd.GeoKeyDirectoryTag, ifd.GeoDoubleParamsTag, []byte(ifd.GeoASCIIParamsTag))
		if err != nil {
			return nil, err
		}
		if srid, ok := geoKeys.SRID(); ok {
			d.srid = srid
		}
	}

	scaleX, scaleY := ifd.ModelPixelScaleTag[0], ifd.ModelPixelScaleTag[1]
	if !(scaleX > 0) || !(scaleY > 0) {
		return nil, errors.ErrUnsupported
	}
	if i, j := ifd.ModelTiepointTag[0], ifd.ModelTiepointTag[1]; i != 0 || j != 0 {
		return nil, errors.ErrUnsupported
	}
	d.scaleX = scaleX
	d.scaleY = scaleY
	d.originX = ifd.ModelTiepointTag[3]
	d.originY = ifd.ModelTiepointTag[4]

	ok = true
	return d, nil
}

// WithTileCacheSize sets the maximum size in bytes of decoded tiles kept in
// memory.
func WithTileCacheSize(tileCacheSize int) GeoTIFFDEMOption {
	return func(d *GeoTIFFDEM) {
		d.tileCacheSizeBytes = tileCacheSize
	}
}

func (d *GeoTIFFDEM) Close() error {
	return d.file.Close()
}

// Size returns d's width and height in pixels.
func (d *GeoTIFFDEM) Size() (int, int) {
	return d.imageWidth, d.imageLength
}

// SRID returns the EPSG code of d's CRS, or 0 if it is unknown.
func (d *GeoTIFFDEM) SRID() int {
	return d.srid
}

// PixelCoord returns the fractional pixel coordinate of the model coordinate
// (x, y). Pixel centers have integer coordinates.
func (d *GeoTIFFDEM) PixelCoord(x, y float64) (float64, float64) {
	return (x-d.originX)/d.scaleX - 0.5, (d.originY-y)/d.scaleY - 0.5
}

// Sample returns a single sample from d.
func (d *GeoTIFFDEM) Sample(ctx context.Context, coord Coord) (float64, error) {
	tileCoord, ok := d.tileCoord(coord)
	if !ok {
		return math.NaN(), nil
	}
	tileSamples, err := d.getTileSamplesCached(ctx, tileCoord)
	if err != nil {
		return 0, err
	}
	return d.tileSample(tileSamples, coord), nil
}

// Samples returns multiple samples from d. It is significantly faster than
// calling [Sample] for each coordinate.
func (d *GeoTIFFDEM) Samples(ctx context.Context, coords []Coord) ([]float64, error) {
	samples := make([]float64, len(coords))

	// Group indexes by tile coord.
	indexesByTileCoord := make(map[TileCoord][]int)
	for index, coord := range coords {
		tileCoord, ok := d.tileCoord(coord)
		if !ok {
			samples[index] = math.NaN()
			continue
		}
		indexesByTileCoord[tileCoord] = append(indexesByTileCoord[tileCoord], index)
	}

	// Populate samples one tile at a time.
	for tileCoord, indexes := range indexesByTileCoord {
		slices.Sort(indexes)
		tileSamples, err := d.getTileSamplesCached(ctx, tileCoord)
		if err != nil {
			return nil, err
		}
		for _, index := range indexes {
			samples[index] = d.tileSample(tileSamples, coords[index])
		}
	}

	return samples, nil
}

// getCompressedTileData returns the compressed tile data for the tile at
// tileCoord.
func (d *GeoTIFFDEM) getCompressedTileData(tileCoord TileCoord) ([]byte, error) {
	tileIndex := tileCoord.C + d.tilesAcross*tileCoord.R
	tileByteCount := d.tileByteCounts[tileIndex]
	tileOffset := d.tileOffsets[tileIndex]
	compressedData := make([]byte, tileByteCount)
	switch n, err := d.file.ReadAt(compressedData, int64(tileOffset)); {
	case n == int(tileByteCount):
		return compressedData, nil
	case err != nil && !errors.Is(err, io.EOF):
		return nil, err
	default:
		return nil, errShortRead
	}
}

// decompressTileData decompresses the tile data in compressedData.
func (d *GeoTIFFDEM) decompressTileData(compressedData []byte) ([]byte, error) {
	var r io.Reader
	switch d.compression {
	case compressionNone:
		if len(compressedData) < d.tileByteCountUncompressed {
			return nil, errShortRead
		}
		return compressedData[:d.tileByteCountUncompressed], nil
	case compressionLZW:
		lzwReader := lzw.NewReader(bytes.NewReader(compressedData), lzw.MSB, 8)
		defer lzwReader.Close()
		r = lzwReader
	default:
		zlibReader, err := zlib.NewReader(bytes.NewReader(compressedData))
		if err != nil {
			return nil, err
		}
		defer zlibReader.Close()
		r = zlibReader
	}
	tileData := make([]byte, d.tileByteCountUncompressed)
	if _, err := io.ReadFull(r, tileData); err != nil {
		return nil, err
	}
	return tileData, nil
}

// decodeTileData decodes tileData.
func (d *GeoTIFFDEM) decodeTileData(tileData []byte) []float32 {
	tileSamples := make([]float32, d.tileSampleCount)
	for i := range d.tileSampleCount {
		b := binary.LittleEndian.Uint32(tileData[i*4 : (i+1)*4])
		tileSamples[i] = math.Float32frombits(b)
	}
	return tileSamples
}

// getTileSamples returns the tile samples at tileCoord.
func (d *GeoTIFFDEM) getTileSamples(ctx context.Context, tileCoord TileCoord) ([]float32, error) {
	compressedTileData, err := d.getCompressedTileData(tileCoord)
	if err != nil {
		return nil, err
	}
	tileData, err := d.decompressTileData(compressedTileData)
	if err != nil {
		return nil, err
	}
	return d.decodeTileData(tileData), nil
}

// getTileSamplesCached returns the tile at tileCoord using d's cache.
func (d *GeoTIFFDEM) getTileSamplesCached(ctx context.Context, tileCoord TileCoord) ([]float32, error) {
	return d.tileSamplesCache.Get(ctx, tileCoord, otter.LoaderFunc[TileCoord, []float32](d.getTileSamples))
}

// tileCoord returns the tile coord for a given pixel coordinate.
func (d *GeoTIFFDEM) tileCoord(coord Coord) (TileCoord, bool) {
	if coord.X < 0 || d.imageWidth <= coord.X || coord.Y < 0 || d.imageLength <= coord.Y {
		return TileCoord{}, false
	}
	return TileCoord{
		C: coord.X / d.tileWidth,
		R: coord.Y / d.tileLength,
	}, true
}

// tileSample returns the sample from tileSamples at coord.
func (d *GeoTIFFDEM) tileSample(tileSamples []float32, coord Coord) float64 {
	return float64(tileSamples[coord.X%d.tileWidth+(coord.Y%d.tileLength)*d.tileWidth])
}
