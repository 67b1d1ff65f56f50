package planner

import (
	"errors"

	"github.com/paulmach/orb"
)

// ErrInvalidConfig is returned before any search runs when the request
// configuration is out of range. Every other planning outcome,
// including infeasibility, is reported in PlanResult rather than as an
// error, so the service keeps serving after any failed plan.
var ErrInvalidConfig = errors.New("invalid planner config")

// Status classifies a planning outcome.
type Status string

const (
	// StatusOK: a feasible path was found within the budget.
	StatusOK Status = "ok"
	// StatusInfeasible: no route can exist under the current
	// constraints (blocked endpoints, battery short of even a straight
	// line). Callers may relax constraints and retry.
	StatusInfeasible Status = "infeasible"
	// StatusBudgetExhausted: the search budget ran out without a
	// recorded solution; feasibility is unknown.
	StatusBudgetExhausted Status = "budget_exhausted"
	// StatusStranded: a re-plan found no feasible continuation from the
	// vehicle's current position. Safety-critical; surfaced
	// immediately.
	StatusStranded Status = "stranded"
)

// Waypoint is an immutable 3D coordinate on a path.
type Waypoint struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
	Alt float64 `json:"alt,omitempty"`
}

func (w Waypoint) Point() orb.Point { return orb.Point{w.Lon, w.Lat} }

// WaypointAt lifts a 2D point to a waypoint at the given altitude.
func WaypointAt(p orb.Point, alt float64) Waypoint {
	return Waypoint{Lon: p[0], Lat: p[1], Alt: alt}
}

// PlanResult is the planner's complete answer: the path (empty unless
// StatusOK) plus derived metrics.
type PlanResult struct {
	ID             string     `json:"id"`
	Status         Status     `json:"status"`
	Path           []Waypoint `json:"path"`
	DistanceMeters float64    `json:"distanceMeters"`
	BatteryUsedMAh float64    `json:"batteryUsedMAh"`
	RiskScore      float64    `json:"riskScore"`
	NoiseExposure  float64    `json:"noiseExposure"`
	Cost           float64    `json:"cost"`
	Iterations     int        `json:"iterations"`
	ElapsedMillis  int64      `json:"elapsedMs"`
	Message        string     `json:"message,omitempty"`
}

// Feasible reports whether the result carries a usable path.
func (r PlanResult) Feasible() bool { return r.Status == StatusOK }
