package contourdem

import (
	"cmp"
	"errors"
	"maps"
	"slices"
)

var errGeoKeys = errors.New("invalid GeoKey directory")

// TIFF tags used in GeoTIFF files.
const (
	tagModelPixelScale  = 33550
	tagModelTiepoint    = 33922
	tagGeoKeyDirectory  = 34735
	tagGeoDoubleParams  = 34736
	tagGeoASCIIParams   = 34737
	geoKeyDirectoryRev1 = 1
)

type GeoKey uint16

const (
	GeoKeyGTModelType  GeoKey = 1024
	GeoKeyGTRasterType GeoKey = 1025
	GeoKeyGTCitation   GeoKey = 1026

	GeoKeyGeodeticCRS            GeoKey = 2048
	GeoKeyGeogCitation           GeoKey = 2049
	GeoKeyGeodeticDatum          GeoKey = 2050
	GeoKeyPrimeMeridian          GeoKey = 2051
	GeoKeyAngularUnits           GeoKey = 2054
	GeoKeyGeogAngularUnitSize    GeoKey = 2055
	GeoKeyEllipsoid              GeoKey = 2056
	GeoKeyEllipsoidSemiMajorAxis GeoKey = 2057
	GeoKeyEllipsoidInvFlattening GeoKey = 2059
	GeoKeyPrimeMeridianLongitude GeoKey = 2061

	GeoKeyProjectedCRS GeoKey = 3072

	GeoKeyVertical      GeoKey = 4096
	GeoKeyVerticalUnits GeoKey = 4099
)

// Values of GeoKeyGTModelType and GeoKeyGTRasterType.
const (
	ModelTypeProjected  = 1
	ModelTypeGeographic = 2

	RasterPixelIsArea  = 1
	RasterPixelIsPoint = 2
)

// SRIDWGS84 is the SRID of WGS 84 geographic coordinates.
const SRIDWGS84 = 4326

type ParsedGeoKeys struct {
	Params       map[GeoKey]int
	DoubleParams map[GeoKey]float64
	ASCIIParams  map[GeoKey]string
}

// SRID returns the EPSG code of the CRS described by p, preferring a
// projected CRS over a geographic one.
func (p *ParsedGeoKeys) SRID() (int, bool) {
	if srid, ok := p.Params[GeoKeyProjectedCRS]; ok {
		return srid, true
	}
	srid, ok := p.Params[GeoKeyGeodeticCRS]
	return srid, ok
}

func ParseGeoKeys(directory []uint16, doubleParams []float64, asciiParams []byte) (*ParsedGeoKeys, error) {
	if len(directory) < 4 {
		return nil, errGeoKeys
	}

	if keyDirectoryVersion := int(directory[0]); keyDirectoryVersion != 1 {
		return nil, errGeoKeys
	}
	if keyRevision := int(directory[1]); keyRevision != geoKeyDirectoryRev1 {
		return nil, errGeoKeys
	}
	if minorRevision := int(directory[2]); minorRevision != 0 && minorRevision != 1 {
		return nil, errGeoKeys
	}
	numberOfKeys := int(directory[3])
	if len(directory) != 4+4*numberOfKeys {
		return nil, errGeoKeys
	}

	parsedGeoKeys := &ParsedGeoKeys{
		Params:       make(map[GeoKey]int),
		DoubleParams: make(map[GeoKey]float64),
		ASCIIParams:  make(map[GeoKey]string),
	}
	for i := range numberOfKeys {
		keyValues := directory[4+4*i : 4+4*(i+1)]
		key := GeoKey(keyValues[0])
		tiffTagLocation := int(keyValues[1])
		numberOfValues := int(keyValues[2])
		switch tiffTagLocation {
		case 0:
			if numberOfValues != 1 {
				return nil, errGeoKeys
			}
			parsedGeoKeys.Params[key] = int(keyValues[3])
		case tagGeoDoubleParams:
			index := int(keyValues[3])
			if numberOfValues != 1 {
				return nil, errors.ErrUnsupported
			}
			if index >= len(doubleParams) {
				return nil, errGeoKeys
			}
			parsedGeoKeys.DoubleParams[key] = doubleParams[index]
		case tagGeoASCIIParams:
			index := int(keyValues[3])
			if index+numberOfValues > len(asciiParams) {
				return nil, errGeoKeys
			}
			parsedGeoKeys.ASCIIParams[key] = string(asciiParams[index : index+numberOfValues])
		default:
			return nil, errors.ErrUnsupported
		}
	}
	return parsedGeoKeys, nil
}

// encodeGeoKeys returns a GeoKey directory containing params, which are
// stored directly in the directory, sorted by key.
func encodeGeoKeys(params map[GeoKey]int) []uint16 {
	keys := slices.SortedFunc(maps.Keys(params), cmp.Compare[GeoKey])
	directory := make([]uint16, 0, 4+4*len(keys))
	directory = append(directory, 1, geoKeyDirectoryRev1, 0, uint16(len(keys)))
	for _, key := range keys {
		directory = append(directory, uint16(key), 0, 1, uint16(params[key]))
	}
	return directory
}

// wgs84GeoKeys returns the GeoKeys of a raster in WGS 84 geographic
// coordinates with pixel-is-area semantics.
func wgs84GeoKeys() map[GeoKey]int {
	return map[GeoKey]int{
		GeoKeyGTModelType:   ModelTypeGeographic,
		GeoKeyGTRasterType:  RasterPixelIsArea,
		GeoKeyGeodeticCRS:   SRIDWGS84,
		GeoKeyAngularUnits:  9102, // Degree.
		GeoKeyGeodeticDatum: 6326, // WGS 84.
	}
}
