package obstacle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/bhurtyalkritan/SpatialPlanning/internal/log"
)

// Building is a footprint with a roof height in meters.
type Building struct {
	Footprint orb.Polygon
	Height    float64
}

// ElevationSample is a terrain spot elevation in meters.
type ElevationSample struct {
	Point     orb.Point
	Elevation float64
}

// LandingZone is a designated landing point.
type LandingZone struct {
	Point orb.Point
	Name  string
}

// Store loads and serves the geospatial inputs the planner consumes:
// no-fly zones, buildings, spot elevations, and landing zones.
type Store struct {
	noFly      []orb.Polygon
	buildings  []Building
	elevations []ElevationSample
	landing    []LandingZone
}

const (
	noFlyFile     = "no_fly_zones.geojson"
	buildingsFile = "buildings.geojson"
	elevationFile = "topography_spot_elevations.geojson"
	landingFile   = "landing_zones.geojson"
)

// LoadStore reads the GeoJSON files under dataDir. Missing files are
// tolerated (logged and skipped) so a bare no-fly-zone dataset still
// serves.
func LoadStore(dataDir string, lg *log.Logger) (*Store, error) {
	s := &Store{}

	if data, err := os.ReadFile(filepath.Join(dataDir, noFlyFile)); err == nil {
		polys, err := parsePolygons(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", noFlyFile, err)
		}
		s.noFly = polys
	} else {
		lg.Warn("no-fly zone file unavailable", "file", noFlyFile, "err", err)
	}

	if data, err := os.ReadFile(filepath.Join(dataDir, buildingsFile)); err == nil {
		bldgs, err := parseBuildings(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", buildingsFile, err)
		}
		s.buildings = bldgs
	} else {
		lg.Warn("buildings file unavailable", "file", buildingsFile, "err", err)
	}

	if data, err := os.ReadFile(filepath.Join(dataDir, elevationFile)); err == nil {
		elevs, err := parseElevations(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", elevationFile, err)
		}
		s.elevations = elevs
	} else {
		lg.Warn("elevation file unavailable", "file", elevationFile, "err", err)
	}

	if data, err := os.ReadFile(filepath.Join(dataDir, landingFile)); err == nil {
		zones, err := parseLandingZones(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", landingFile, err)
		}
		s.landing = zones
	} else {
		lg.Warn("landing zone file unavailable", "file", landingFile, "err", err)
	}

	lg.Info("obstacle store loaded",
		"noFlyZones", len(s.noFly),
		"buildings", len(s.buildings),
		"elevationSamples", len(s.elevations),
		"landingZones", len(s.landing))
	return s, nil
}

// NewStore builds a store from in-memory data; used by tests and by
// callers that source their own geometry.
func NewStore(noFly []orb.Polygon, buildings []Building, elevations []ElevationSample, landing []LandingZone) *Store {
	return &Store{noFly: noFly, buildings: buildings, elevations: elevations, landing: landing}
}

func (s *Store) NoFlyRegions() []orb.Polygon         { return s.noFly }
func (s *Store) Buildings() []Building               { return s.buildings }
func (s *Store) ElevationSamples() []ElevationSample { return s.elevations }
func (s *Store) LandingZones() []LandingZone         { return s.landing }

// WeatherFront returns the advisory weather polygon as GeoJSON. The
// planner treats weather as risk input only, never a hard exclusion.
func (s *Store) WeatherFront() *geojson.FeatureCollection {
	ring := orb.Ring{
		{-77.05, 38.85},
		{-77.02, 38.85},
		{-77.02, 38.88},
		{-77.05, 38.88},
		{-77.05, 38.85},
	}
	f := geojson.NewFeature(orb.Polygon{ring})
	f.Properties["description"] = "Rain area"
	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	return fc
}

// parsePolygons extracts every Polygon and MultiPolygon from a GeoJSON
// feature collection.
func parsePolygons(data []byte) ([]orb.Polygon, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	var polygons []orb.Polygon
	for _, feature := range fc.Features {
		switch g := feature.Geometry.(type) {
		case orb.Polygon:
			polygons = append(polygons, g)
		case orb.MultiPolygon:
			polygons = append(polygons, g...)
		}
	}
	return polygons, nil
}

func parseBuildings(data []byte) ([]Building, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	var buildings []Building
	for _, feature := range fc.Features {
		height := feature.Properties.MustFloat64("HEIGHT", 0)
		switch g := feature.Geometry.(type) {
		case orb.Polygon:
			buildings = append(buildings, Building{Footprint: g, Height: height})
		case orb.MultiPolygon:
			for _, poly := range g {
				buildings = append(buildings, Building{Footprint: poly, Height: height})
			}
		}
	}
	return buildings, nil
}

// Spot elevations carry the elevation as a third coordinate, which
// orb's 2D point type drops, so this file is decoded by hand.
func parseElevations(data []byte) ([]ElevationSample, error) {
	var fc struct {
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, err
	}

	var samples []ElevationSample
	for _, feature := range fc.Features {
		if feature.Geometry.Type != "Point" || len(feature.Geometry.Coordinates) < 3 {
			continue
		}
		c := feature.Geometry.Coordinates
		samples = append(samples, ElevationSample{
			Point:     orb.Point{c[0], c[1]},
			Elevation: c[2],
		})
	}
	return samples, nil
}

func parseLandingZones(data []byte) ([]LandingZone, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	var zones []LandingZone
	for _, feature := range fc.Features {
		pt, ok := feature.Geometry.(orb.Point)
		if !ok {
			continue
		}
		zones = append(zones, LandingZone{
			Point: pt,
			Name:  feature.Properties.MustString("name", ""),
		})
	}
	return zones, nil
}
