package planner

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/bhurtyalkritan/SpatialPlanning/internal/geometry"
	"github.com/bhurtyalkritan/SpatialPlanning/internal/log"
	"github.com/bhurtyalkritan/SpatialPlanning/internal/obstacle"
)

// Planner runs multi-objective RRT* searches over an Environment. It
// is stateless between calls: every Plan builds a fresh tree, and the
// only cross-call state is the injected world view.
type Planner struct {
	env Environment
	lg  *log.Logger
}

func New(env Environment, lg *log.Logger) *Planner {
	if lg == nil {
		lg = log.Discard()
	}
	return &Planner{env: env, lg: lg}
}

// Environment exposes the planner's world view; the re-planner uses it
// to sample traffic between plans.
func (p *Planner) Environment() Environment { return p.env }

// solution tracks the best goal connection recorded so far.
type solution struct {
	mu     sync.Mutex
	found  bool
	parent int
	cost   pathCost
	score  float64
}

func (s *solution) offer(parent int, cost pathCost, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.found || score < s.score {
		s.found = true
		s.parent = parent
		s.cost = cost
		s.score = score
	}
}

// Plan searches for a path from start to goal under cfg. Invalid
// configurations return ErrInvalidConfig before any search. Every
// other outcome is a PlanResult, including infeasibility and an
// exhausted budget. The call always returns within the configured time
// budget (or the caller's context deadline, whichever is sooner).
func (p *Planner) Plan(ctx context.Context, start, goal Waypoint, cfg Config) (PlanResult, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return PlanResult{}, err
	}

	began := time.Now()
	res := PlanResult{ID: uuid.New().String()}
	alt := cfg.CruiseAltitude
	sp, gp := start.Point(), goal.Point()
	dyn := p.env.trafficAt(began)
	baseline := geometry.DistanceMeters(sp, gp)

	// Pre-checks that prove infeasibility without searching.
	if p.env.Field != nil {
		if p.env.Field.Contains(sp) {
			return p.finish(res, StatusInfeasible, "start is inside a no-fly zone", began), nil
		}
		if p.env.Field.Contains(gp) {
			return p.finish(res, StatusInfeasible, "goal is inside a no-fly zone", began), nil
		}
	}
	if cfg.batteryFor(baseline) > cfg.BatteryCapacity {
		// No route can be shorter than the straight line.
		return p.finish(res, StatusInfeasible,
			fmt.Sprintf("battery %.1f mAh cannot cover the %.0f m minimum distance",
				cfg.BatteryCapacity, baseline), began), nil
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.TimeBudget())
	defer cancel()

	tree := newSearchTree(sp)
	best := &solution{}

	// The direct connection is a valid first candidate; search
	// continues past it for multi-objective improvement.
	if p.env.SegmentFeasible(sp, gp, alt, cfg, dyn) {
		seg := p.env.evaluateSegment(sp, gp, dyn)
		if cfg.batteryFor(seg.dist) <= cfg.BatteryCapacity {
			c := pathCost{}.add(seg)
			best.offer(0, c, c.weighted(cfg, baseline))
		}
	}

	minX, minY, maxX, maxY := samplingBounds(sp, gp, cfg.SamplingMargin)
	baseSeed := cfg.Seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}

	var iters atomic.Int64
	g, wctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Workers; w++ {
		rng := rand.New(rand.NewSource(baseSeed + int64(w)))
		g.Go(func() error {
			for {
				select {
				case <-wctx.Done():
					return nil
				default:
				}
				if iters.Add(1) > int64(cfg.MaxIterations) {
					return nil
				}

				// Goal-biased sampling.
				target := gp
				if rng.Float64() >= cfg.GoalBias {
					target = orb.Point{
						minX + rng.Float64()*(maxX-minX),
						minY + rng.Float64()*(maxY-minY),
					}
				}

				nearID, nearPt, ok := tree.nearest(target)
				if !ok {
					continue
				}

				// Steer toward the sample, clipped to the step length.
				d := geometry.Distance(nearPt, target)
				if d == 0 {
					continue
				}
				newPt := target
				if d > cfg.StepLength {
					newPt = geometry.Lerp(nearPt, target, cfg.StepLength/d)
				}

				if !p.env.SegmentFeasible(nearPt, newPt, alt, cfg, dyn) {
					continue
				}
				seg := p.env.evaluateSegment(nearPt, newPt, dyn)

				newID := tree.extend(newPt, nearID, seg, p.env, cfg, alt, dyn, baseline)
				if newID < 0 {
					continue
				}

				// Goal connection; record and keep searching.
				if geometry.Distance(newPt, gp) <= cfg.GoalTolerance &&
					p.env.SegmentFeasible(newPt, gp, alt, cfg, dyn) {
					total := tree.costOf(newID).add(p.env.evaluateSegment(newPt, gp, dyn))
					if cfg.batteryFor(total.dist) <= cfg.BatteryCapacity {
						best.offer(newID, total, total.weighted(cfg, baseline))
					}
				}
			}
		})
	}
	g.Wait()

	res.Iterations = int(iters.Load())

	best.mu.Lock()
	found, parent := best.found, best.parent
	best.mu.Unlock()

	if !found {
		p.lg.Debug("search exhausted without a solution",
			"iterations", res.Iterations, "treeNodes", tree.size())
		return p.finish(res, StatusBudgetExhausted,
			"search budget exhausted without a feasible path", began), nil
	}

	pts := append(tree.pathTo(parent), gp)
	path := make([]Waypoint, len(pts))
	for i, pt := range pts {
		path[i] = WaypointAt(pt, alt)
	}

	path = p.smoothPath(path, cfg, dyn)
	res.Path = path
	res.DistanceMeters, res.BatteryUsedMAh, res.RiskScore, res.NoiseExposure =
		p.env.evaluatePath(path, cfg, dyn)
	res.Cost = pathCost{
		dist:  res.DistanceMeters,
		risk:  res.RiskScore,
		noise: res.NoiseExposure,
	}.weighted(cfg, baseline)
	res.Status = StatusOK
	res.ElapsedMillis = time.Since(began).Milliseconds()

	p.lg.Info("plan complete",
		"id", res.ID,
		"waypoints", len(path),
		"distanceMeters", res.DistanceMeters,
		"batteryUsedMAh", res.BatteryUsedMAh,
		"iterations", res.Iterations,
		"elapsedMs", res.ElapsedMillis)
	return res, nil
}

func (p *Planner) finish(res PlanResult, status Status, msg string, began time.Time) PlanResult {
	res.Status = status
	res.Message = msg
	res.ElapsedMillis = time.Since(began).Milliseconds()
	p.lg.Info("plan finished without a path", "id", res.ID, "status", string(status), "reason", msg)
	return res
}

// smoothPath runs the post-processing pipeline under the same
// feasibility view the search used. The pipeline is a fixed point on
// its own output: a path the shortcut pass cannot change is returned
// as-is, and a refined curve is kept only when it is itself stable
// under the shortcut pass, so a second call reproduces the first.
func (p *Planner) smoothPath(path []Waypoint, cfg Config, dyn []obstacle.Dynamic) []Waypoint {
	feasible := func(a, b orb.Point) bool {
		return p.env.SegmentFeasible(a, b, cfg.CruiseAltitude, cfg, dyn)
	}
	out := shortcut(path, feasible)
	if !cfg.SplineRefinement || pathsEqual(out, path) {
		return out
	}
	refined := refineSpline(out, path, cfg.SmoothTolerance, feasible)
	if !pathsEqual(shortcut(refined, feasible), refined) {
		return out
	}
	return refined
}

func pathsEqual(a, b []Waypoint) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
