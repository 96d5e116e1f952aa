package contourdem

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/twpayne/go-proj/v10"
)

// A DEMService returns elevations from the DEMs in a DEMSet.
type DEMService struct {
	demSet *DEMSet
	mutex  sync.Mutex
	pjs    map[string]*proj.PJ
}

// NewDEMService returns a new DEMService that reads DEMs from demSet.
func NewDEMService(demSet *DEMSet) *DEMService {
	return &DEMService{
		demSet: demSet,
		pjs:    make(map[string]*proj.PJ),
	}
}

// Elevation returns the interpolated elevations at coords, given as
// longitude, latitude pairs in EPSG:4326, in the DEM of the job with index
// index. Elevations outside the DEM, or of a DEM that does not exist, are
// NaN.
func (s *DEMService) Elevation(ctx context.Context, index int, coords [][]float64) ([]float64, error) {
	dem, err := s.demSet.DEM(index)
	switch {
	case err != nil:
		return nil, err
	case dem == nil:
		return nanSlice(len(coords)), nil
	}
	if srid := dem.SRID(); srid != 0 && srid != SRIDWGS84 {
		return nil, fmt.Errorf("DEM %d: EPSG:%d: %w", index, srid, errors.ErrUnsupported)
	}

	pixelCoords := make([][]float64, len(coords))
	for i, coord := range coords {
		x, y := dem.PixelCoord(coord[0], coord[1])
		pixelCoords[i] = []float64{x, y}
	}
	return InterpolateBilinear(ctx, dem, pixelCoords)
}

// ElevationCRS returns the interpolated elevations at coords, given in the
// axis order of crs, in the DEM of the job with index index.
func (s *DEMService) ElevationCRS(ctx context.Context, index int, crs string, coords [][]float64) ([]float64, error) {
	coords4326, err := s.transform(crs, coords)
	if err != nil {
		return nil, err
	}
	return s.Elevation(ctx, index, coords4326)
}

// transform returns coords transformed from crs to longitude, latitude pairs
// in EPSG:4326.
func (s *DEMService) transform(crs string, coords [][]float64) ([][]float64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	pj, ok := s.pjs[crs]
	if !ok {
		var err error
		pj, err = proj.NewCRSToCRS(crs, "EPSG:4326", nil)
		if err != nil {
			return nil, err
		}
		s.pjs[crs] = pj
	}

	coords4326 := make([][]float64, len(coords))
	for i, coord := range coords {
		c, err := pj.Forward(proj.NewCoord(coord[0], coord[1], 0, 0))
		if err != nil {
			return nil, err
		}
		// EPSG:4326 has latitude first.
		coords4326[i] = []float64{c[1], c[0]}
	}
	return coords4326, nil
}

func nanSlice(n int) []float64 {
	result := make([]float64, n)
	for i := range result {
		result[i] = math.NaN()
	}
	return result
}
