package contourdem

import (
	"errors"
	"io/fs"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// A DEMFilenameFunc returns the filename of the DEM of the job with index
// index.
type DEMFilenameFunc func(index int) string

// A DEMSet is a set of DEMs written by a batch of jobs, addressed by job
// index. It is safe for concurrent use.
type DEMSet struct {
	mutex             sync.Mutex
	fsys              fs.FS
	filenameFunc      DEMFilenameFunc
	missingDEMs       sync.Map
	geoTIFFDEMOptions []GeoTIFFDEMOption
	cacheSize         int
	demCache          *lru.Cache[int, *GeoTIFFDEM]
}

// A DEMSetOption sets an option on a DEMSet.
type DEMSetOption func(*DEMSet)

// NewDEMSet returns a new DEMSet reading from fsys with the given options.
func NewDEMSet(fsys fs.FS, options ...DEMSetOption) (*DEMSet, error) {
	s := &DEMSet{
		fsys: fsys,
		filenameFunc: func(index int) string {
			return OutputFilename(index, ".tif")
		},
		cacheSize: 32,
	}
	for _, option := range options {
		option(s)
	}

	var err error
	s.demCache, err = lru.NewWithEvict(s.cacheSize, func(key int, value *GeoTIFFDEM) {
		_ = value.Close()
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// WithDEMCacheSize sets the number of DEMs kept open.
func WithDEMCacheSize(cacheSize int) DEMSetOption {
	return func(s *DEMSet) {
		s.cacheSize = cacheSize
	}
}

func WithDEMFilenameFunc(filenameFunc DEMFilenameFunc) DEMSetOption {
	return func(s *DEMSet) {
		s.filenameFunc = filenameFunc
	}
}

func WithGeoTIFFDEMOptions(geoTIFFDEMOptions ...GeoTIFFDEMOption) DEMSetOption {
	return func(s *DEMSet) {
		s.geoTIFFDEMOptions = geoTIFFDEMOptions
	}
}

// DEM returns the DEM of the job with index index, or nil if it does not
// exist. The returned DEM is owned by s and must not be closed.
func (s *DEMSet) DEM(index int) (*GeoTIFFDEM, error) {
	if _, ok := s.missingDEMs.Load(index); ok {
		missingDEMCacheHits.Inc()
		return nil, nil
	}

	if dem, ok := s.demCache.Get(index); ok {
		demCacheHits.Inc()
		return dem, nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.missingDEMs.Load(index); ok {
		missingDEMCacheHits.Inc()
		return nil, nil
	}

	if dem, ok := s.demCache.Get(index); ok {
		demCacheHits.Inc()
		return dem, nil
	}

	demCacheMisses.Inc()

	dem, err := s.openDEM(index)
	if err != nil || dem == nil {
		return nil, err
	}

	if eviction := s.demCache.Add(index, dem); eviction {
		demCacheEvictions.Inc()
	}

	return dem, nil
}

// Close closes all open DEMs.
func (s *DEMSet) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.demCache.Purge()
	return nil
}

// openDEM opens the DEM of the job with index index.
func (s *DEMSet) openDEM(index int) (*GeoTIFFDEM, error) {
	filename := s.filenameFunc(index)
	switch dem, err := OpenGeoTIFFDEM(s.fsys, filename, s.geoTIFFDEMOptions...); {
	case errors.Is(err, fs.ErrNotExist):
		s.missingDEMs.Store(index, struct{}{})
		missingDEMCacheMisses.Inc()
		return nil, nil
	case err != nil:
		return nil, err
	default:
		return dem, nil
	}
}
