package planner

import (
	"math"
	"time"

	"github.com/paulmach/orb"

	"github.com/bhurtyalkritan/SpatialPlanning/internal/geometry"
	"github.com/bhurtyalkritan/SpatialPlanning/internal/obstacle"
)

// Environment is the planner's read-only view of the world. Every
// method is side-effect-free and safe to call concurrently from
// search workers.
type Environment struct {
	Field   *obstacle.Field
	Terrain *obstacle.Terrain
	Traffic obstacle.TrafficSource
}

// Risk and noise horizons: beyond these ground distances a point
// contributes nothing to the respective term.
const (
	riskHorizonMeters    = 500.0
	trafficHorizonMeters = 200.0
	costSampleMeters     = 100.0
)

// trafficAt samples the dynamic obstacles current at t; nil-safe.
func (e Environment) trafficAt(t time.Time) []obstacle.Dynamic {
	if e.Traffic == nil {
		return nil
	}
	return e.Traffic.ObstaclesAt(t)
}

// SegmentFeasible implements the feasibility contract: the straight
// segment a-b flown at alt crosses no buffered zone, keeps the
// vertical clearance over terrain and buildings, stays at or below the
// ceiling, and avoids every dynamic obstacle's exclusion region.
func (e Environment) SegmentFeasible(a, b orb.Point, alt float64, cfg Config, dyn []obstacle.Dynamic) bool {
	if alt > cfg.MaxAltitude {
		return false
	}
	if e.Field != nil && !e.Field.SegmentClear(a, b) {
		return false
	}
	if e.Terrain != nil {
		if e.Terrain.ObstructionAlong(a, b)+cfg.VerticalClearance > alt {
			return false
		}
	}
	for _, d := range dyn {
		if d.Blocks(a, b, alt) {
			return false
		}
	}
	return true
}

// riskAt scores proximity danger at p in [0,1]: closeness to no-fly
// boundaries and to live traffic.
func (e Environment) riskAt(p orb.Point, dyn []obstacle.Dynamic) float64 {
	risk := 0.0

	if e.Field != nil {
		d := e.Field.DistanceTo(p) * geometry.MetersPerDegree
		if d < riskHorizonMeters {
			risk = 1 - d/riskHorizonMeters
		}
	}

	for _, o := range dyn {
		d := geometry.Distance(p, o.Position) * geometry.MetersPerDegree
		if d < trafficHorizonMeters {
			if r := 1 - d/trafficHorizonMeters; r > risk {
				risk = r
			}
		}
	}

	return risk
}

// noiseAt scores ground noise exposure at p in [0,1].
func (e Environment) noiseAt(p orb.Point) float64 {
	if e.Terrain == nil {
		return 0
	}
	return e.Terrain.NoiseAt(p)
}

// segmentMetrics holds a segment's contribution to each cost term.
// dist is haversine meters; risk and noise are risk-meters and
// noise-meters (per-meter score integrated along the segment), so all
// three terms share a scale before weighting.
type segmentMetrics struct {
	dist  float64
	risk  float64
	noise float64
}

// evaluateSegment integrates the cost terms along a-b by sampling.
func (e Environment) evaluateSegment(a, b orb.Point, dyn []obstacle.Dynamic) segmentMetrics {
	dist := geometry.DistanceMeters(a, b)

	samples := int(dist/costSampleMeters) + 2
	var riskSum, noiseSum float64
	for i := 0; i <= samples; i++ {
		p := geometry.Lerp(a, b, float64(i)/float64(samples))
		riskSum += e.riskAt(p, dyn)
		noiseSum += e.noiseAt(p)
	}
	mean := 1.0 / float64(samples+1)

	return segmentMetrics{
		dist:  dist,
		risk:  riskSum * mean * dist,
		noise: noiseSum * mean * dist,
	}
}

// pathCost is the accumulated multi-objective cost at a tree node.
type pathCost struct {
	dist  float64
	risk  float64
	noise float64
}

func (c pathCost) add(m segmentMetrics) pathCost {
	return pathCost{
		dist:  c.dist + m.dist,
		risk:  c.risk + m.risk,
		noise: c.noise + m.noise,
	}
}

// weighted collapses the terms to a scalar, each normalized by the
// straight-line start-goal distance so the weights compare like for
// like.
func (c pathCost) weighted(cfg Config, baseline float64) float64 {
	if baseline <= 0 {
		baseline = 1
	}
	return (cfg.DistanceWeight*c.dist + cfg.RiskWeight*c.risk + cfg.NoiseWeight*c.noise) / baseline
}

// evaluatePath computes full-path metrics for a result.
func (e Environment) evaluatePath(path []Waypoint, cfg Config, dyn []obstacle.Dynamic) (dist, battery, risk, noise float64) {
	var cost pathCost
	for i := 0; i+1 < len(path); i++ {
		cost = cost.add(e.evaluateSegment(path[i].Point(), path[i+1].Point(), dyn))
	}
	return cost.dist, cfg.batteryFor(cost.dist), cost.risk, cost.noise
}

// samplingBounds is the rectangle candidates are drawn from: the
// start-goal bounding box expanded by the configured margin.
func samplingBounds(start, goal orb.Point, margin float64) (minX, minY, maxX, maxY float64) {
	minX = math.Min(start[0], goal[0]) - margin
	maxX = math.Max(start[0], goal[0]) + margin
	minY = math.Min(start[1], goal[1]) - margin
	maxY = math.Max(start[1], goal[1]) + margin
	return
}
