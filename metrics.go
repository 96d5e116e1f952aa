package contourdem

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contourdem_jobs_total",
		Help: "The total number of jobs run",
	})
	jobFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contourdem_job_failures_total",
		Help: "The total number of jobs that failed",
	})
	rowsRasterizedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contourdem_rows_rasterized_total",
		Help: "The total number of grid rows rasterized",
	})
	gridCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contourdem_grid_cache_hits_total",
		Help: "The total number of hits on the grid cache",
	})
	gridCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contourdem_grid_cache_misses_total",
		Help: "The total number of misses on the grid cache",
	})
	missingDEMCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contourdem_missing_dem_cache_hits_total",
		Help: "The total number of hits on the missing DEM cache",
	})
	missingDEMCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contourdem_missing_dem_cache_misses_total",
		Help: "The total number of misses on the missing DEM cache",
	})
	demCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contourdem_dem_cache_hits_total",
		Help: "The total number of hits on the open DEM cache",
	})
	demCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contourdem_dem_cache_misses_total",
		Help: "The total number of misses on the open DEM cache",
	})
	demCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contourdem_dem_cache_evictions_total",
		Help: "The total number of evictions from the open DEM cache",
	})
)
