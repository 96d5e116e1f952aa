package contourdem

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// A Job is a request to rasterize one document.
type Job struct {
	Index     int    // Index of the job in its batch, used in output filenames.
	Input     string // Path of the SVG document.
	OutputDir string // Directory for output files. Empty means no output files.
}

// A Result is the result of running a Job.
type Result struct {
	Job     Job
	RunID   uuid.UUID
	Grid    *Grid
	Outputs []string // Output files written, in writer order.
	Cached  bool     // True if the grid came from the grid cache.
}

// A GridWriter encodes a grid as a raster file.
type GridWriter interface {
	Extension() string
	WriteGrid(w io.Writer, grid *Grid) error
}

// A GridRenderer renders a grid as an image.
type GridRenderer interface {
	Extension() string
	RenderGrid(w io.Writer, grid *Grid) error
}

// A Runner runs jobs.
type Runner struct {
	logger           *zap.Logger
	logTag           string
	loaderOptions    []LoaderOption
	schedulerOptions []SchedulerOption
	writers          []GridWriter
	renderers        []GridRenderer
	gridCacheSize    int
	gridCache        *lru.Cache[string, *Grid]
}

// A RunnerOption sets an option on a Runner.
type RunnerOption func(*Runner)

// NewRunner returns a new Runner with the given options.
func NewRunner(options ...RunnerOption) (*Runner, error) {
	r := &Runner{
		logger:        zap.NewNop(),
		logTag:        "Runner:",
		gridCacheSize: 16,
	}
	for _, option := range options {
		option(r)
	}

	if r.gridCacheSize > 0 {
		var err error
		r.gridCache, err = lru.New[string, *Grid](r.gridCacheSize)
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithLoaderOptions sets the options used to load contours.
func WithLoaderOptions(loaderOptions ...LoaderOption) RunnerOption {
	return func(r *Runner) {
		r.loaderOptions = loaderOptions
	}
}

// WithSchedulerOptions sets the options used to schedule rows.
func WithSchedulerOptions(schedulerOptions ...SchedulerOption) RunnerOption {
	return func(r *Runner) {
		r.schedulerOptions = schedulerOptions
	}
}

// WithGridWriters sets the raster writers run on each grid.
func WithGridWriters(writers ...GridWriter) RunnerOption {
	return func(r *Runner) {
		r.writers = writers
	}
}

// WithGridRenderers sets the renderers run on each grid.
func WithGridRenderers(renderers ...GridRenderer) RunnerOption {
	return func(r *Runner) {
		r.renderers = renderers
	}
}

// WithGridCacheSize sets the number of grids cached by document content. Zero
// disables the cache.
func WithGridCacheSize(gridCacheSize int) RunnerOption {
	return func(r *Runner) {
		r.gridCacheSize = gridCacheSize
	}
}

// OutputFilename returns the name of the output file of the job with index
// index with extension ext.
func OutputFilename(index int, ext string) string {
	return fmt.Sprintf("dem_%d%s", index, ext)
}

// Run runs job. The grid is always computed in full before any output file
// is written.
func (r *Runner) Run(ctx context.Context, job Job) (*Result, error) {
	jobsTotal.Inc()
	result, err := r.run(ctx, job)
	if err != nil {
		jobFailuresTotal.Inc()
		return nil, fmt.Errorf("job %d: %s: %w", job.Index, job.Input, err)
	}
	return result, nil
}

func (r *Runner) run(ctx context.Context, job Job) (*Result, error) {
	start := time.Now()
	result := &Result{
		Job:   job,
		RunID: uuid.New(),
	}
	logger := r.logger.With(
		zap.String("runID", result.RunID.String()),
		zap.Int("index", job.Index),
		zap.String("input", job.Input),
	)
	logger.Info(r.logTag + "start job")

	data, err := os.ReadFile(job.Input)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256(data)
	key := hex.EncodeToString(digest[:])
	if r.gridCache != nil {
		if grid, ok := r.gridCache.Get(key); ok {
			gridCacheHits.Inc()
			result.Grid = grid
			result.Cached = true
		} else {
			gridCacheMisses.Inc()
		}
	}

	if result.Grid == nil {
		doc, err := ParseDocument(bytes.NewReader(data))
		if err != nil {
			logger.Error(r.logTag+"parse document failed", zap.Error(err))
			return nil, err
		}
		if result.Grid, err = r.rasterize(ctx, logger, doc); err != nil {
			return nil, err
		}
		if r.gridCache != nil {
			r.gridCache.Add(key, result.Grid)
		}
	}

	if job.OutputDir != "" {
		if result.Outputs, err = r.writeOutputs(job, result.Grid); err != nil {
			logger.Error(r.logTag+"write outputs failed", zap.Error(err))
			return nil, err
		}
	}

	width, height := result.Grid.Size()
	logger.Info(r.logTag+"finish job",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Bool("cached", result.Cached),
		zap.Strings("outputs", result.Outputs),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// RunDocument rasterizes doc without caching or writing outputs.
func (r *Runner) RunDocument(ctx context.Context, doc *Document) (*Grid, error) {
	return r.rasterize(ctx, r.logger, doc)
}

func (r *Runner) rasterize(ctx context.Context, logger *zap.Logger, doc *Document) (*Grid, error) {
	width, height := doc.GridSize()
	contours := LoadContours(doc, r.loaderOptions...)
	index := NewSpatialIndex(contours)
	logger.Debug(r.logTag+"loaded contours",
		zap.Int("contours", len(contours)),
		zap.Int("indexed", index.Len()),
		zap.Int("width", width),
		zap.Int("height", height),
	)

	rowRasterizer := NewRowRasterizer(contours, index, width)
	rows, err := RasterizeRows(ctx, height, rowRasterizer.Rasterize, r.schedulerOptions...)
	if err != nil {
		logger.Error(r.logTag+"rasterize failed", zap.Error(err))
		return nil, err
	}
	return AssembleGrid(width, rows)
}

func (r *Runner) writeOutputs(job Job, grid *Grid) ([]string, error) {
	if err := os.MkdirAll(job.OutputDir, 0o777); err != nil {
		return nil, err
	}
	var outputs []string
	for _, writer := range r.writers {
		filename := filepath.Join(job.OutputDir, OutputFilename(job.Index, writer.Extension()))
		if err := writeFile(filename, func(w io.Writer) error {
			return writer.WriteGrid(w, grid)
		}); err != nil {
			return nil, err
		}
		outputs = append(outputs, filename)
	}
	for _, renderer := range r.renderers {
		filename := filepath.Join(job.OutputDir, OutputFilename(job.Index, renderer.Extension()))
		if err := writeFile(filename, func(w io.Writer) error {
			return renderer.RenderGrid(w, grid)
		}); err != nil {
			return nil, err
		}
		outputs = append(outputs, filename)
	}
	return outputs, nil
}

// writeFile creates filename and writes its contents with write. The file
// is removed if write fails.
func writeFile(filename string, write func(io.Writer) error) (err error) {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			_ = os.Remove(filename)
		}
	}()
	return write(file)
}
