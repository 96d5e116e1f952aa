package contourdem

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// A ProgressFunc is called with the number of completed rows and the total
// number of rows. Calls are serialized and done increases by one on each
// call.
type ProgressFunc func(done, total int)

// A SchedulerOption sets an option on row scheduling.
type SchedulerOption func(*scheduler)

type scheduler struct {
	workers  int
	progress ProgressFunc
}

// WithWorkers sets the number of rows computed concurrently. Values less
// than one use runtime.GOMAXPROCS(0).
func WithWorkers(workers int) SchedulerOption {
	return func(s *scheduler) {
		s.workers = workers
	}
}

// WithProgress sets a function called after each row completes.
func WithProgress(progress ProgressFunc) SchedulerOption {
	return func(s *scheduler) {
		s.progress = progress
	}
}

// RasterizeRows computes rows 0 to height-1 with rowFunc on a bounded pool of
// goroutines and returns them in row order, regardless of the order in which
// they complete. If any row fails, including by panicking, RasterizeRows
// returns the first failure as a *RowError and no rows.
func RasterizeRows(ctx context.Context, height int, rowFunc RowFunc, options ...SchedulerOption) ([][]float64, error) {
	s := &scheduler{}
	for _, option := range options {
		option(s)
	}
	if s.workers < 1 {
		s.workers = runtime.GOMAXPROCS(0)
	}

	rows := make([][]float64, height)
	var mutex sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for y := range height {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &RowError{Row: y, Err: fmt.Errorf("panic: %v", r)}
				}
			}()
			row, err := rowFunc(gctx, y)
			if err != nil {
				return &RowError{Row: y, Err: err}
			}
			rows[y] = row
			rowsRasterizedTotal.Inc()
			if s.progress != nil {
				mutex.Lock()
				done++
				s.progress(done, height)
				mutex.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rows, nil
}
