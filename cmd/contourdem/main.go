package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/twpayne/go-contourdem"
)

func run() error {
	in := flag.String("in", ".", "directory containing SVG contour drawings")
	out := flag.String("out", os.Getenv("CONTOURDEM_OUT"), "output directory")
	flatten := flag.Float64("flatten", 0, "flatten curves to this tolerance in pixels, 0 samples segment starts")
	workers := flag.Int("workers", 0, "number of row workers, 0 means GOMAXPROCS")
	ascii := flag.Bool("ascii", false, "also write Esri ASCII grids")
	plot := flag.Bool("plot", false, "also render surface plots")
	wall := flag.Bool("wall", true, "draw the elevation profile wall in surface plots")
	verbose := flag.Bool("verbose", false, "verbose logging")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flag.Parse()

	if *out == "" {
		return errors.New("syntax: contourdem -out directory [-in directory]")
	}

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	inputs, err := filepath.Glob(filepath.Join(*in, "*.svg"))
	if err != nil {
		return err
	}
	slices.Sort(inputs)

	var loaderOptions []contourdem.LoaderOption
	if *flatten > 0 {
		loaderOptions = append(loaderOptions, contourdem.WithCurveFlattening(*flatten))
	}
	writers := []contourdem.GridWriter{contourdem.NewGeoTIFFWriter()}
	if *ascii {
		writers = append(writers, contourdem.NewASCIIGridWriter())
	}
	var renderers []contourdem.GridRenderer
	if *plot {
		renderers = append(renderers, contourdem.NewSurfaceRenderer(contourdem.WithWall(*wall)))
	}

	runner, err := contourdem.NewRunner(
		contourdem.WithLogger(logger),
		contourdem.WithLoaderOptions(loaderOptions...),
		contourdem.WithSchedulerOptions(contourdem.WithWorkers(*workers)),
		contourdem.WithGridWriters(writers...),
		contourdem.WithGridRenderers(renderers...),
	)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	for index, input := range inputs {
		result, err := runner.Run(ctx, contourdem.Job{
			Index:     index,
			Input:     input,
			OutputDir: *out,
		})
		if err != nil {
			return err
		}
		for _, output := range result.Outputs {
			fmt.Println(output)
		}
	}
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
