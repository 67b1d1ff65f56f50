package planner

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/bhurtyalkritan/SpatialPlanning/internal/geometry"
	"github.com/bhurtyalkritan/SpatialPlanning/internal/obstacle"
)

var (
	dcStart = Waypoint{Lon: -77.05, Lat: 38.90}
	dcGoal  = Waypoint{Lon: -77.00, Lat: 38.90}
)

// testConfig is deterministic: fixed seed, one worker.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Seed = 42
	cfg.Workers = 1
	cfg.MaxIterations = 4000
	cfg.TimeBudgetMillis = 5000
	return cfg
}

func emptyPlanner(t *testing.T) (*Planner, *obstacle.Field) {
	t.Helper()
	field, err := obstacle.NewField(nil, 0)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	return New(Environment{Field: field}, nil), field
}

func plannerWithZones(t *testing.T, zones ...orb.Polygon) (*Planner, *obstacle.Field) {
	t.Helper()
	field, err := obstacle.NewField(zones, 0)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	return New(Environment{Field: field}, nil), field
}

// assertPathClear verifies the collision-free invariant against the
// same field the path was planned with.
func assertPathClear(t *testing.T, field *obstacle.Field, path []Waypoint) {
	t.Helper()
	for i := 0; i+1 < len(path); i++ {
		if !field.SegmentClear(path[i].Point(), path[i+1].Point()) {
			t.Errorf("segment %d (%v -> %v) crosses a no-fly zone", i, path[i], path[i+1])
		}
	}
}

func TestPlanDirectPath(t *testing.T) {
	p, _ := emptyPlanner(t)

	res, err := p.Plan(context.Background(), dcStart, dcGoal, testConfig())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Status != StatusOK {
		t.Fatalf("expected status ok, got %q (%s)", res.Status, res.Message)
	}
	if len(res.Path) != 2 {
		t.Fatalf("unobstructed plan should be [start, goal], got %d waypoints", len(res.Path))
	}
	if res.Path[0].Lon != dcStart.Lon || res.Path[0].Lat != dcStart.Lat {
		t.Errorf("path must begin at start, got %+v", res.Path[0])
	}
	if res.Path[1].Lon != dcGoal.Lon || res.Path[1].Lat != dcGoal.Lat {
		t.Errorf("path must end at goal, got %+v", res.Path[1])
	}

	wantBattery := res.DistanceMeters / 1000 * 30
	if math.Abs(res.BatteryUsedMAh-wantBattery) > 1e-6 {
		t.Errorf("battery: expected %.4f mAh, got %.4f", wantBattery, res.BatteryUsedMAh)
	}

	// ~4.3 km between the two DC points
	if res.DistanceMeters < 4000 || res.DistanceMeters > 4700 {
		t.Errorf("expected ~4.3km, got %v m", res.DistanceMeters)
	}
}

func TestPlanAvoidsSpanningZone(t *testing.T) {
	// Blocks the straight line but leaves room to route south or north.
	wall := orb.Polygon{{
		{-77.03, 38.893},
		{-77.02, 38.893},
		{-77.02, 38.907},
		{-77.03, 38.907},
		{-77.03, 38.893},
	}}
	p, field := plannerWithZones(t, wall)

	res, err := p.Plan(context.Background(), dcStart, dcGoal, testConfig())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if res.Status == StatusOK {
		assertPathClear(t, field, res.Path)
		if len(res.Path) < 3 {
			t.Errorf("a detour needs intermediate waypoints, got %d", len(res.Path))
		}
	} else if res.Status != StatusBudgetExhausted && res.Status != StatusInfeasible {
		t.Errorf("expected ok, infeasible, or budget_exhausted, got %q", res.Status)
	}
	// Never the blocked straight segment.
	if len(res.Path) == 2 {
		t.Error("plan must not return the blocked straight segment")
	}
}

func TestPlanZeroBattery(t *testing.T) {
	p, _ := emptyPlanner(t)
	cfg := testConfig()
	cfg.BatteryCapacity = 0

	res, err := p.Plan(context.Background(), dcStart, dcGoal, cfg)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Status != StatusInfeasible {
		t.Errorf("zero battery: expected infeasible, got %q", res.Status)
	}
}

func TestPlanInsufficientBattery(t *testing.T) {
	p, _ := emptyPlanner(t)
	cfg := testConfig()
	cfg.BatteryCapacity = 10 // needs ~130 mAh for the direct line

	res, err := p.Plan(context.Background(), dcStart, dcGoal, cfg)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Status != StatusInfeasible {
		t.Errorf("expected infeasible, got %q", res.Status)
	}
}

func TestPlanEndpointInsideZone(t *testing.T) {
	zone := orb.Polygon{{
		{-77.06, 38.89},
		{-77.04, 38.89},
		{-77.04, 38.91},
		{-77.06, 38.91},
		{-77.06, 38.89},
	}}
	p, _ := plannerWithZones(t, zone)

	res, err := p.Plan(context.Background(), dcStart, dcGoal, testConfig())
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Status != StatusInfeasible {
		t.Errorf("start inside a zone: expected infeasible, got %q", res.Status)
	}
}

func TestPlanInvalidConfig(t *testing.T) {
	p, _ := emptyPlanner(t)

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative weight", func(c *Config) { c.RiskWeight = -0.1 }},
		{"weight above one", func(c *Config) { c.DistanceWeight = 1.5 }},
		{"negative battery", func(c *Config) { c.BatteryCapacity = -1 }},
		{"negative usage rate", func(c *Config) { c.BatteryUsageRate = -5 }},
		{"goal bias one", func(c *Config) { c.GoalBias = 1 }},
		{"cruise above ceiling", func(c *Config) { c.CruiseAltitude = 200 }},
	}

	for _, tc := range cases {
		cfg := testConfig()
		tc.mutate(&cfg)
		_, err := p.Plan(context.Background(), dcStart, dcGoal, cfg)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", tc.name, err)
		}
	}
}

func TestPlanBatteryConstraintHolds(t *testing.T) {
	wall := orb.Polygon{{
		{-77.03, 38.893},
		{-77.02, 38.893},
		{-77.02, 38.907},
		{-77.03, 38.907},
		{-77.03, 38.893},
	}}
	p, _ := plannerWithZones(t, wall)
	cfg := testConfig()

	res, err := p.Plan(context.Background(), dcStart, dcGoal, cfg)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Status != StatusOK {
		t.Skipf("no solution found in budget (%s); battery property vacuous", res.Status)
	}
	if res.BatteryUsedMAh > cfg.BatteryCapacity {
		t.Errorf("battery used %.2f exceeds capacity %.2f", res.BatteryUsedMAh, cfg.BatteryCapacity)
	}
	if got := res.DistanceMeters / 1000 * cfg.BatteryUsageRate; math.Abs(got-res.BatteryUsedMAh) > 1e-6 {
		t.Errorf("battery accounting mismatch: %v vs %v", got, res.BatteryUsedMAh)
	}
}

func TestPlanDeterministicWithSeed(t *testing.T) {
	wall := orb.Polygon{{
		{-77.03, 38.893},
		{-77.02, 38.893},
		{-77.02, 38.907},
		{-77.03, 38.907},
		{-77.03, 38.893},
	}}
	p, _ := plannerWithZones(t, wall)
	cfg := testConfig()

	a, err := p.Plan(context.Background(), dcStart, dcGoal, cfg)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	b, err := p.Plan(context.Background(), dcStart, dcGoal, cfg)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	if a.Status != b.Status {
		t.Fatalf("same seed, different status: %q vs %q", a.Status, b.Status)
	}
	if len(a.Path) != len(b.Path) {
		t.Fatalf("same seed, different path lengths: %d vs %d", len(a.Path), len(b.Path))
	}
	for i := range a.Path {
		if a.Path[i] != b.Path[i] {
			t.Errorf("waypoint %d differs: %+v vs %+v", i, a.Path[i], b.Path[i])
		}
	}
}

func TestPlanMoreBudgetNeverWorse(t *testing.T) {
	wall := orb.Polygon{{
		{-77.03, 38.893},
		{-77.02, 38.893},
		{-77.02, 38.907},
		{-77.03, 38.907},
		{-77.03, 38.893},
	}}
	p, _ := plannerWithZones(t, wall)

	small := testConfig()
	small.MaxIterations = 400
	large := testConfig()
	large.MaxIterations = 4000

	a, err := p.Plan(context.Background(), dcStart, dcGoal, small)
	if err != nil {
		t.Fatalf("Plan small: %v", err)
	}
	b, err := p.Plan(context.Background(), dcStart, dcGoal, large)
	if err != nil {
		t.Fatalf("Plan large: %v", err)
	}

	if a.Status == StatusOK && b.Status != StatusOK {
		t.Fatal("more budget lost a previously found solution")
	}
	if a.Status == StatusOK && b.Status == StatusOK {
		if b.Cost > a.Cost+1e-9 {
			t.Errorf("more budget worsened cost: %v -> %v", a.Cost, b.Cost)
		}
	}
}

func TestPlanReturnsWithinTimeBudget(t *testing.T) {
	// A wall taller than the sampling region: no sample can ever get
	// around it, so the search runs until the clock cuts it off.
	wall := orb.Polygon{{
		{-77.03, 38.80},
		{-77.02, 38.80},
		{-77.02, 39.00},
		{-77.03, 39.00},
		{-77.03, 38.80},
	}}
	p, _ := plannerWithZones(t, wall)

	cfg := testConfig()
	cfg.TimeBudgetMillis = 300
	cfg.MaxIterations = 1_000_000

	began := time.Now()
	res, err := p.Plan(context.Background(), dcStart, dcGoal, cfg)
	elapsed := time.Since(began)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Status == StatusOK {
		t.Fatal("walled-off goal should not be reachable")
	}
	if elapsed > 3*time.Second {
		t.Errorf("plan overran its time budget: took %v", elapsed)
	}
}

func TestPlanWithParallelWorkers(t *testing.T) {
	p, field := emptyPlanner(t)
	cfg := testConfig()
	cfg.Workers = 4
	cfg.Seed = 0 // workers draw independent streams

	res, err := p.Plan(context.Background(), dcStart, dcGoal, cfg)
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if res.Status != StatusOK {
		t.Fatalf("expected ok, got %q", res.Status)
	}
	assertPathClear(t, field, res.Path)
}

func TestRiskFallsOffWithDistance(t *testing.T) {
	p, _ := plannerWithZones(t, orb.Polygon{{
		{-77.03, 38.903},
		{-77.02, 38.903},
		{-77.02, 38.91},
		{-77.03, 38.91},
		{-77.03, 38.903},
	}})
	env := p.Environment()

	near := env.riskAt(orb.Point{-77.025, 38.90}, nil)  // ~330 m south
	far := env.riskAt(orb.Point{-77.025, 38.85}, nil)   // ~5.9 km south
	inside := env.riskAt(orb.Point{-77.025, 38.905}, nil)

	if near <= 0 || near > 1 {
		t.Errorf("near the zone: expected risk in (0,1], got %v", near)
	}
	if far != 0 {
		t.Errorf("beyond the horizon: expected 0, got %v", far)
	}
	if inside != 1 {
		t.Errorf("inside the zone: expected 1, got %v", inside)
	}

	// Traffic proximity contributes the same way.
	dyn := []obstacle.Dynamic{{Position: orb.Point{-77.025, 38.85}, Radius: 0.002}}
	if got := env.riskAt(orb.Point{-77.025, 38.8505}, dyn); got <= far {
		t.Errorf("nearby traffic should raise risk, got %v", got)
	}
}

func TestEvaluateSegmentDistance(t *testing.T) {
	env := Environment{}
	m := env.evaluateSegment(dcStart.Point(), dcGoal.Point(), nil)
	want := geometry.DistanceMeters(dcStart.Point(), dcGoal.Point())
	if math.Abs(m.dist-want) > 1e-9 {
		t.Errorf("expected %v, got %v", want, m.dist)
	}
	if m.risk != 0 || m.noise != 0 {
		t.Errorf("empty environment should score zero risk/noise, got %v/%v", m.risk, m.noise)
	}
}
