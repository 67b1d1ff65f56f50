package planner

import (
	"time"

	"github.com/paulmach/orb"

	"github.com/bhurtyalkritan/SpatialPlanning/internal/geometry"
)

// Smooth reduces a feasible path's waypoint count without
// reintroducing collisions. The first and last points are preserved,
// every output segment is re-checked for feasibility, and the output
// never strays farther than the configured corridor from the input.
// Smoothing an already-smoothed path returns it unchanged, with or
// without spline refinement enabled.
func (p *Planner) Smooth(path []Waypoint, cfg Config) ([]Waypoint, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dyn := p.env.trafficAt(time.Now())
	return p.smoothPath(path, cfg, dyn), nil
}

// shortcut greedily connects each accepted point to the farthest later
// waypoint it can reach feasibly. The probe always starts from the
// last accepted output point, so a kept waypoint never tests against a
// stale reference.
func shortcut(path []Waypoint, feasible func(a, b orb.Point) bool) []Waypoint {
	if len(path) <= 2 {
		return path
	}

	out := []Waypoint{path[0]}
	current := 0
	for current < len(path)-1 {
		last := out[len(out)-1]
		farthest := current
		for next := current + 1; next < len(path); next++ {
			if feasible(last.Point(), path[next].Point()) {
				farthest = next
			}
		}
		if farthest == current {
			farthest = current + 1
		}
		out = append(out, path[farthest])
		current = farthest
	}
	return out
}

// splineSamplesPerSegment controls how densely the curve is resampled
// before the per-segment feasibility re-check.
const splineSamplesPerSegment = 8

// refineSpline fits a Catmull-Rom curve through the shortcut waypoints
// and resamples it. Each span is accepted only when every resampled
// sub-segment is feasible and every sample stays within the corridor
// tolerance of the original path; otherwise that span falls back to
// the straight segment.
func refineSpline(path, original []Waypoint, corridor float64, feasible func(a, b orb.Point) bool) []Waypoint {
	if len(path) < 3 {
		return path
	}

	alt := path[0].Alt
	origPts := make([]orb.Point, len(original))
	for i, w := range original {
		origPts[i] = w.Point()
	}

	out := []Waypoint{path[0]}
	for i := 0; i+1 < len(path); i++ {
		p0 := path[max(i-1, 0)].Point()
		p1 := path[i].Point()
		p2 := path[i+1].Point()
		p3 := path[min(i+2, len(path)-1)].Point()

		span := make([]orb.Point, 0, splineSamplesPerSegment)
		ok := true
		prev := p1
		for s := 1; s <= splineSamplesPerSegment; s++ {
			t := float64(s) / float64(splineSamplesPerSegment)
			pt := p2
			if s < splineSamplesPerSegment {
				pt = catmullRom(p0, p1, p2, p3, t)
			}
			if distToPolyline(pt, origPts) > corridor || !feasible(prev, pt) {
				ok = false
				break
			}
			span = append(span, pt)
			prev = pt
		}

		if ok {
			for _, pt := range span {
				out = append(out, WaypointAt(pt, alt))
			}
		} else {
			// Curve clipped an obstacle or left the corridor: keep the
			// straight segment.
			out = append(out, path[i+1])
		}
	}
	return out
}

// catmullRom evaluates the centripetal-free (uniform) Catmull-Rom
// curve through p1..p2 at t in [0,1].
func catmullRom(p0, p1, p2, p3 orb.Point, t float64) orb.Point {
	t2 := t * t
	t3 := t2 * t
	interp := func(a, b, c, d float64) float64 {
		return 0.5 * ((2 * b) +
			(-a+c)*t +
			(2*a-5*b+4*c-d)*t2 +
			(-a+3*b-3*c+d)*t3)
	}
	return orb.Point{
		interp(p0[0], p1[0], p2[0], p3[0]),
		interp(p0[1], p1[1], p2[1], p3[1]),
	}
}

// distToPolyline is the degree-space distance from p to the nearest
// segment of the polyline.
func distToPolyline(p orb.Point, line []orb.Point) float64 {
	if len(line) == 0 {
		return 0
	}
	if len(line) == 1 {
		return geometry.Distance(p, line[0])
	}
	best := geometry.PointToSegment(p, line[0], line[1])
	for i := 1; i+1 < len(line); i++ {
		if d := geometry.PointToSegment(p, line[i], line[i+1]); d < best {
			best = d
		}
	}
	return best
}
