// Package api exposes the planner over JSON HTTP for the presentation
// layer: plan, replan, smooth, plus obstacle and status endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/bhurtyalkritan/SpatialPlanning/internal/log"
	"github.com/bhurtyalkritan/SpatialPlanning/internal/obstacle"
	"github.com/bhurtyalkritan/SpatialPlanning/internal/planner"
)

const planCacheSize = 128

// Server wires the planner and obstacle data behind HTTP handlers.
type Server struct {
	planner *planner.Planner
	store   *obstacle.Store
	field   *obstacle.Field
	traffic obstacle.TrafficSource
	lg      *log.Logger
	cache   *lru.Cache[string, planner.PlanResult]
	router  *mux.Router
}

func NewServer(p *planner.Planner, store *obstacle.Store, field *obstacle.Field, traffic obstacle.TrafficSource, lg *log.Logger) *Server {
	cache, _ := lru.New[string, planner.PlanResult](planCacheSize)
	s := &Server{
		planner: p,
		store:   store,
		field:   field,
		traffic: traffic,
		lg:      lg,
		cache:   cache,
		router:  mux.NewRouter(),
	}

	s.router.HandleFunc("/plan", s.corsMiddleware(s.handlePlan)).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/replan", s.corsMiddleware(s.handleReplan)).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/smooth", s.corsMiddleware(s.handleSmooth)).Methods(http.MethodPost, http.MethodOptions)
	s.router.HandleFunc("/health", s.corsMiddleware(s.handleHealth)).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/obstacles", s.corsMiddleware(s.handleObstacles)).Methods(http.MethodGet, http.MethodOptions)
	s.router.HandleFunc("/landingzones", s.corsMiddleware(s.handleLandingZones)).Methods(http.MethodGet, http.MethodOptions)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// corsMiddleware allows the browser front end to call from any origin.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

// PlanRequest is the /plan body. Config fields left at zero take the
// server defaults, except the cost weights and batteryCapacityMAh:
// an explicit zero there is meaningful and is kept.
type PlanRequest struct {
	Start  planner.Waypoint `json:"start"`
	Goal   planner.Waypoint `json:"goal"`
	Config planner.Config   `json:"config"`
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	key := cacheKey("plan", req)
	if cached, ok := s.cache.Get(key); ok {
		s.lg.Debug("plan cache hit", "key", key)
		writeJSON(w, cached)
		return
	}

	s.lg.Info("plan request",
		"start", []float64{req.Start.Lon, req.Start.Lat},
		"goal", []float64{req.Goal.Lon, req.Goal.Lat})

	res, err := s.planner.Plan(r.Context(), req.Start, req.Goal, req.Config)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.cache.Add(key, res)
	writeJSON(w, res)
}

// ReplanRequest is the /replan body: the waypoints already flown, the
// vehicle's current position, and the unchanged goal.
type ReplanRequest struct {
	Traversed []planner.Waypoint `json:"traversed"`
	Current   planner.Waypoint   `json:"current"`
	Goal      planner.Waypoint   `json:"goal"`
	Config    planner.Config     `json:"config"`
}

func (s *Server) handleReplan(w http.ResponseWriter, r *http.Request) {
	var req ReplanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	s.lg.Info("replan request",
		"traversed", len(req.Traversed),
		"current", []float64{req.Current.Lon, req.Current.Lat})

	res, err := s.planner.Replan(r.Context(), req.Traversed, req.Current, req.Goal, req.Config)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, res)
}

// SmoothRequest is the /smooth body.
type SmoothRequest struct {
	Path   []planner.Waypoint `json:"path"`
	Config planner.Config     `json:"config"`
}

type SmoothResponse struct {
	Path []planner.Waypoint `json:"path"`
}

func (s *Server) handleSmooth(w http.ResponseWriter, r *http.Request) {
	var req SmoothRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	path, err := s.planner.Smooth(req.Path, req.Config)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, SmoothResponse{Path: path})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"status":           "ready",
		"noFlyZones":       len(s.field.Zones()),
		"bufferDegrees":    s.field.Buffer(),
		"buildings":        len(s.store.Buildings()),
		"elevationSamples": len(s.store.ElevationSamples()),
		"uptimeSeconds":    int(time.Since(s.lg.Start).Seconds()),
	})
}

// handleObstacles returns the current obstacle picture for rendering:
// buffered zones, the advisory weather front, and a traffic snapshot.
func (s *Server) handleObstacles(w http.ResponseWriter, r *http.Request) {
	zones := geojson.NewFeatureCollection()
	for _, poly := range s.field.Zones() {
		zones.Append(geojson.NewFeature(poly))
	}

	var traffic []obstacle.Dynamic
	if s.traffic != nil {
		traffic = s.traffic.ObstaclesAt(time.Now())
	}

	writeJSON(w, map[string]interface{}{
		"noFlyZones": zones,
		"weather":    s.store.WeatherFront(),
		"traffic":    traffic,
	})
}

func (s *Server) handleLandingZones(w http.ResponseWriter, r *http.Request) {
	fc := geojson.NewFeatureCollection()
	for _, lz := range s.store.LandingZones() {
		f := geojson.NewFeature(orb.Point(lz.Point))
		f.Properties["name"] = lz.Name
		fc.Append(f)
	}
	writeJSON(w, fc)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// cacheKey hashes a request by its JSON encoding; identical requests
// replay the cached result.
func cacheKey(kind string, req interface{}) string {
	data, err := json.Marshal(req)
	if err != nil {
		return kind
	}
	return kind + ":" + string(data)
}
