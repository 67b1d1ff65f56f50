package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/paulmach/orb"

	"github.com/bhurtyalkritan/SpatialPlanning/internal/geometry"
	"github.com/bhurtyalkritan/SpatialPlanning/internal/log"
)

// Replan plans a continuation from the vehicle's current position to
// goal, preserving the already-traversed waypoints. The returned path
// is the traversed prefix, then the current position, then the new
// tail. When no feasible continuation exists the result is
// StatusStranded, not the infeasibility status of an initial plan.
func (p *Planner) Replan(ctx context.Context, traversed []Waypoint, current, goal Waypoint, cfg Config) (PlanResult, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return PlanResult{}, err
	}

	// Battery already spent getting here comes off the budget.
	flown := flownMeters(traversed, current)
	remaining := cfg.BatteryCapacity - cfg.batteryFor(flown)
	if remaining <= 0 {
		return PlanResult{
			Status:  StatusStranded,
			Message: "battery exhausted at current position",
		}, nil
	}

	tailCfg := cfg
	tailCfg.BatteryCapacity = remaining
	res, err := p.Plan(ctx, current, goal, tailCfg)
	if err != nil {
		return PlanResult{}, err
	}
	if !res.Feasible() {
		res.Status = StatusStranded
		res.Message = fmt.Sprintf("no feasible continuation from current position: %s", res.Message)
		res.Path = nil
		return res, nil
	}

	// Splice: traversed waypoints are never replanned.
	full := make([]Waypoint, 0, len(traversed)+len(res.Path))
	full = append(full, traversed...)
	full = append(full, res.Path...)
	res.Path = full

	dyn := p.env.trafficAt(time.Now())
	res.DistanceMeters, res.BatteryUsedMAh, res.RiskScore, res.NoiseExposure =
		p.env.evaluatePath(full, cfg, dyn)
	return res, nil
}

// flownMeters is the ground distance covered: the traversed polyline
// plus the leg from its last waypoint to the current position.
func flownMeters(traversed []Waypoint, current Waypoint) float64 {
	if len(traversed) == 0 {
		return 0
	}
	pts := make([]orb.Point, 0, len(traversed)+1)
	for _, w := range traversed {
		pts = append(pts, w.Point())
	}
	pts = append(pts, current.Point())
	return geometry.PathLengthMeters(pts)
}

// ReplanEventType labels re-planner notifications.
type ReplanEventType string

const (
	// EventReplanned: the remaining path was invalidated and replaced.
	EventReplanned ReplanEventType = "replanned"
	// EventStranded: no feasible continuation after the retry limit.
	EventStranded ReplanEventType = "stranded"
)

// ReplanEvent is pushed to the re-planner's event channel.
type ReplanEvent struct {
	Type   ReplanEventType
	Result PlanResult
	Reason string
	At     time.Time
}

// Replanner watches an in-flight mission: on every tick (or explicit
// trigger) it revalidates the remaining path against fresh traffic and
// remaining battery, replanning the tail when a segment goes
// infeasible. A replan arriving while another is in flight cancels the
// stale one. Traversed waypoints are never touched.
type Replanner struct {
	planner *Planner
	cfg     Config
	goal    Waypoint
	lg      *log.Logger

	mu        sync.Mutex
	path      []Waypoint
	traversed int // index of the last waypoint reached
	position  Waypoint
	retries   int
	cancel    context.CancelFunc
	seq       int

	trigger chan struct{}
	events  chan ReplanEvent
}

// NewReplanner supervises result's path toward goal. The result must
// be feasible.
func NewReplanner(p *Planner, result PlanResult, goal Waypoint, cfg Config, lg *log.Logger) (*Replanner, error) {
	if !result.Feasible() || len(result.Path) == 0 {
		return nil, fmt.Errorf("replanner requires a feasible initial plan, got status %q", result.Status)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if lg == nil {
		lg = log.Discard()
	}
	return &Replanner{
		planner:  p,
		cfg:      cfg,
		goal:     goal,
		lg:       lg,
		path:     result.Path,
		position: result.Path[0],
		trigger:  make(chan struct{}, 1),
		events:   make(chan ReplanEvent, 16),
	}, nil
}

// Events delivers replan and stranded notifications.
func (r *Replanner) Events() <-chan ReplanEvent { return r.events }

// CurrentPath returns a snapshot of the full mission path.
func (r *Replanner) CurrentPath() []Waypoint {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Waypoint, len(r.path))
	copy(out, r.path)
	return out
}

// Advance records flight progress: the vehicle has reached waypoint
// index reached and now sits at pos. Indexes never move backward.
func (r *Replanner) Advance(reached int, pos Waypoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if reached > r.traversed && reached < len(r.path) {
		r.traversed = reached
	}
	r.position = pos
}

// Trigger requests an immediate validity check, e.g. on a new
// dynamic-obstacle report or a battery threshold crossing.
func (r *Replanner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run revalidates on every tick until ctx is done.
func (r *Replanner) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.mu.Lock()
			if r.cancel != nil {
				r.cancel()
			}
			r.mu.Unlock()
			return
		case <-ticker.C:
			r.Check(ctx)
		case <-r.trigger:
			r.Check(ctx)
		}
	}
}

// Check revalidates the remaining path; if any remaining segment is no
// longer feasible it kicks off a replan, cancelling any replan already
// in flight so only the newest result can apply.
func (r *Replanner) Check(ctx context.Context) {
	r.mu.Lock()
	pos := r.position
	idx := r.traversed
	remaining := append([]Waypoint{pos}, r.path[idx+1:]...)
	traversedPrefix := make([]Waypoint, idx+1)
	copy(traversedPrefix, r.path[:idx+1])
	r.mu.Unlock()

	if r.remainingValid(remaining, traversedPrefix, pos) {
		return
	}

	r.lg.Info("remaining path invalidated, replanning",
		"traversed", idx, "remainingWaypoints", len(remaining))

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel() // stale replan must not race the new one
	}
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.seq++
	seq := r.seq
	r.mu.Unlock()

	go r.replanTail(cctx, seq, traversedPrefix, pos)
}

// remainingValid checks every not-yet-flown segment against current
// traffic and the battery still available.
func (r *Replanner) remainingValid(remaining, traversedPrefix []Waypoint, pos Waypoint) bool {
	env := r.planner.Environment()
	dyn := env.trafficAt(time.Now())

	budget := r.cfg.BatteryCapacity - r.cfg.batteryFor(flownMeters(traversedPrefix, pos))
	var ahead float64
	for i := 0; i+1 < len(remaining); i++ {
		a, b := remaining[i], remaining[i+1]
		if !env.SegmentFeasible(a.Point(), b.Point(), a.Alt, r.cfg, dyn) {
			return false
		}
		ahead += geometry.DistanceMeters(a.Point(), b.Point())
	}
	return r.cfg.batteryFor(ahead) <= budget
}

func (r *Replanner) replanTail(ctx context.Context, seq int, traversedPrefix []Waypoint, pos Waypoint) {
	res, err := r.planner.Replan(ctx, traversedPrefix, pos, r.goal, r.cfg)
	if err != nil {
		r.lg.Error("replan error", "err", err)
		return
	}

	r.mu.Lock()
	if seq != r.seq {
		// A newer replan superseded this one while it ran.
		r.mu.Unlock()
		return
	}

	if res.Feasible() {
		r.path = res.Path
		r.retries = 0
		r.mu.Unlock()
		r.emit(ctx, ReplanEvent{Type: EventReplanned, Result: res, At: time.Now()})
		return
	}

	r.retries++
	retries := r.retries
	r.mu.Unlock()

	if retries >= r.cfg.ReplanRetryLimit {
		r.lg.Warn("stranded: no feasible continuation", "retries", retries)
		r.emit(ctx, ReplanEvent{
			Type:   EventStranded,
			Result: res,
			Reason: res.Message,
			At:     time.Now(),
		})
		return
	}
	r.lg.Info("replan attempt failed, will retry", "attempt", retries, "reason", res.Message)
}

func (r *Replanner) emit(ctx context.Context, ev ReplanEvent) {
	select {
	case r.events <- ev:
	case <-ctx.Done():
	}
}
