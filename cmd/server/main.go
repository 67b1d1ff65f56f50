package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/paulmach/orb"

	"github.com/bhurtyalkritan/SpatialPlanning/internal/api"
	"github.com/bhurtyalkritan/SpatialPlanning/internal/log"
	"github.com/bhurtyalkritan/SpatialPlanning/internal/obstacle"
	"github.com/bhurtyalkritan/SpatialPlanning/internal/planner"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	dataDir := flag.String("data", "data", "directory with GeoJSON obstacle files")
	buffer := flag.Float64("buffer", 0.001, "no-fly zone safety margin in degrees")
	trafficAgents := flag.Int("traffic", 2, "number of simulated traffic agents (0 disables)")
	logLevel := flag.String("loglevel", "info", "log level: debug, info, warn, error")
	logDir := flag.String("logdir", "", "log directory (empty logs to stderr)")
	flag.Parse()

	lg := log.New(*logLevel, *logDir)

	store, err := obstacle.LoadStore(*dataDir, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading obstacle store: %v\n", err)
		os.Exit(1)
	}

	field, err := obstacle.NewField(store.NoFlyRegions(), *buffer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "building obstacle field: %v\n", err)
		os.Exit(1)
	}
	terrain := obstacle.NewTerrain(store.ElevationSamples(), store.Buildings())

	var traffic obstacle.TrafficSource
	if *trafficAgents > 0 {
		// Agents spawn around the DC dataset's center.
		traffic = obstacle.NewSimulatedTraffic(*trafficAgents, orb.Point{-77.02, 38.90}, time.Now())
	}

	p := planner.New(planner.Environment{
		Field:   field,
		Terrain: terrain,
		Traffic: traffic,
	}, lg)

	server := api.NewServer(p, store, field, traffic, lg)

	lg.Info("planning server listening",
		"addr", *addr,
		"noFlyZones", len(field.Zones()),
		"bufferDegrees", *buffer,
		"trafficAgents", *trafficAgents)

	if err := http.ListenAndServe(*addr, server); err != nil {
		lg.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
