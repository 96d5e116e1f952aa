package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/twpayne/go-contourdem"
)

func run() error {
	demPath := flag.String("dem-path", os.Getenv("CONTOURDEM_OUT"), "path to DEMs written by contourdem")
	crs := flag.String("crs", "", "CRS of the coordinates, given in its axis order instead of latitude longitude")
	flag.Parse()

	if flag.NArg() != 3 {
		return errors.New("syntax: contourdem-sample index latitude longitude")
	}
	index, err := strconv.Atoi(flag.Arg(0))
	if err != nil {
		return err
	}
	lat, err := strconv.ParseFloat(flag.Arg(1), 64)
	if err != nil {
		return err
	}
	lon, err := strconv.ParseFloat(flag.Arg(2), 64)
	if err != nil {
		return err
	}

	demSet, err := contourdem.NewDEMSet(os.DirFS(*demPath))
	if err != nil {
		return err
	}
	defer demSet.Close()

	ds := contourdem.NewDEMService(demSet)
	ctx := context.Background()

	var elevations []float64
	if *crs == "" {
		elevations, err = ds.Elevation(ctx, index, [][]float64{{lon, lat}})
	} else {
		// lat and lon hold the first and second axes of crs.
		elevations, err = ds.ElevationCRS(ctx, index, *crs, [][]float64{{lat, lon}})
	}
	if err != nil {
		return err
	}
	fmt.Println(elevations[0])

	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
