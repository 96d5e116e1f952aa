package contourdem_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/twpayne/go-contourdem"
)

func TestRasterizeRowsOrder(t *testing.T) {
	const height = 64
	rowFunc := func(ctx context.Context, y int) ([]float64, error) {
		time.Sleep(time.Duration(rand.IntN(200)) * time.Microsecond)
		return []float64{float64(y), float64(2 * y)}, nil
	}
	for _, workers := range []int{0, 1, 4, 100} {
		rows, err := contourdem.RasterizeRows(t.Context(), height, rowFunc, contourdem.WithWorkers(workers))
		assert.NoError(t, err)
		assert.Equal(t, height, len(rows))
		for y, row := range rows {
			assert.Equal(t, []float64{float64(y), float64(2 * y)}, row)
		}
	}
}

func TestRasterizeRowsZeroHeight(t *testing.T) {
	rows, err := contourdem.RasterizeRows(t.Context(), 0, func(ctx context.Context, y int) ([]float64, error) {
		panic("unreachable")
	})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(rows))
}

func TestRasterizeRowsError(t *testing.T) {
	errRow := errors.New("row")
	rows, err := contourdem.RasterizeRows(t.Context(), 100, func(ctx context.Context, y int) ([]float64, error) {
		if y == 17 {
			return nil, errRow
		}
		return []float64{0}, nil
	}, contourdem.WithWorkers(4))
	assert.Zero(t, rows)
	assert.IsError(t, err, errRow)
	var rowError *contourdem.RowError
	assert.True(t, errors.As(err, &rowError))
	assert.Equal(t, 17, rowError.Row)
}

func TestRasterizeRowsPanic(t *testing.T) {
	rows, err := contourdem.RasterizeRows(t.Context(), 10, func(ctx context.Context, y int) ([]float64, error) {
		if y == 3 {
			panic("boom")
		}
		return []float64{0}, nil
	}, contourdem.WithWorkers(2))
	assert.Zero(t, rows)
	var rowError *contourdem.RowError
	assert.True(t, errors.As(err, &rowError))
	assert.Equal(t, 3, rowError.Row)
	assert.True(t, strings.Contains(err.Error(), "boom"))
}

func TestRasterizeRowsFailFast(t *testing.T) {
	errRow := errors.New("row")
	var mutex sync.Mutex
	started := 0
	_, err := contourdem.RasterizeRows(t.Context(), 1000, func(ctx context.Context, y int) ([]float64, error) {
		mutex.Lock()
		started++
		mutex.Unlock()
		if y == 0 {
			return nil, errRow
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
			return []float64{0}, nil
		}
	}, contourdem.WithWorkers(2))
	assert.IsError(t, err, errRow)
	mutex.Lock()
	defer mutex.Unlock()
	assert.True(t, started < 1000)
}

func TestRasterizeRowsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	rows, err := contourdem.RasterizeRows(ctx, 10, func(ctx context.Context, y int) ([]float64, error) {
		return []float64{0}, nil
	})
	assert.Zero(t, rows)
	assert.IsError(t, err, context.Canceled)
}

func TestRasterizeRowsProgress(t *testing.T) {
	var dones []int
	var totals []int
	_, err := contourdem.RasterizeRows(t.Context(), 20, func(ctx context.Context, y int) ([]float64, error) {
		return []float64{0}, nil
	}, contourdem.WithWorkers(4), contourdem.WithProgress(func(done, total int) {
		dones = append(dones, done)
		totals = append(totals, total)
	}))
	assert.NoError(t, err)
	assert.Equal(t, 20, len(dones))
	for i := range dones {
		assert.Equal(t, i+1, dones[i])
		assert.Equal(t, 20, totals[i])
	}
}
