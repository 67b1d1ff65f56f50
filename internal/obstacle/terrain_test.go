package obstacle

import (
	"testing"
	"time"

	"github.com/paulmach/orb"
)

func TestTerrainElevationAt(t *testing.T) {
	samples := []ElevationSample{
		{Point: orb.Point{-77.05, 38.90}, Elevation: 10},
		{Point: orb.Point{-77.00, 38.90}, Elevation: 50},
	}
	terrain := NewTerrain(samples, nil)

	if e := terrain.ElevationAt(orb.Point{-77.049, 38.901}); e != 10 {
		t.Errorf("near the west sample: expected 10, got %v", e)
	}
	if e := terrain.ElevationAt(orb.Point{-77.001, 38.899}); e != 50 {
		t.Errorf("near the east sample: expected 50, got %v", e)
	}

	empty := NewTerrain(nil, nil)
	if e := empty.ElevationAt(orb.Point{0, 0}); e != 0 {
		t.Errorf("no samples: expected 0, got %v", e)
	}
}

func TestTerrainObstructionAlong(t *testing.T) {
	building := Building{
		Footprint: orb.Polygon{{
			{-77.022, 38.898},
			{-77.018, 38.898},
			{-77.018, 38.902},
			{-77.022, 38.902},
			{-77.022, 38.898},
		}},
		Height: 45,
	}
	terrain := NewTerrain(nil, []Building{building})

	// Segment overflying the building
	h := terrain.ObstructionAlong(orb.Point{-77.05, 38.90}, orb.Point{-77.00, 38.90})
	if h < 45 {
		t.Errorf("expected obstruction >= building height 45, got %v", h)
	}

	// Segment well clear of it
	h = terrain.ObstructionAlong(orb.Point{-77.05, 38.95}, orb.Point{-77.00, 38.95})
	if h != 0 {
		t.Errorf("expected no obstruction, got %v", h)
	}
}

func TestTerrainNoiseAt(t *testing.T) {
	building := Building{
		Footprint: orb.Polygon{{
			{-77.022, 38.898},
			{-77.018, 38.898},
			{-77.018, 38.902},
			{-77.022, 38.902},
			{-77.022, 38.898},
		}},
		Height: 45,
	}
	terrain := NewTerrain(nil, []Building{building})

	if n := terrain.NoiseAt(orb.Point{-77.02, 38.90}); n != 1 {
		t.Errorf("over the building: expected noise 1, got %v", n)
	}
	if n := terrain.NoiseAt(orb.Point{-77.20, 38.90}); n != 0 {
		t.Errorf("far from any building: expected noise 0, got %v", n)
	}
}

func TestDynamicBlocks(t *testing.T) {
	d := Dynamic{
		Position:    orb.Point{-77.02, 38.90},
		Altitude:    80,
		Radius:      0.003,
		VerticalSep: 30,
	}

	a, b := orb.Point{-77.05, 38.90}, orb.Point{-77.00, 38.90}

	if !d.Blocks(a, b, 90) {
		t.Error("segment through the disc inside the vertical band should be blocked")
	}
	if d.Blocks(a, b, 140) {
		t.Error("segment 60m above the agent should not be blocked")
	}
	if d.Blocks(orb.Point{-77.05, 38.95}, orb.Point{-77.00, 38.95}, 90) {
		t.Error("segment far from the agent should not be blocked")
	}
}

func TestSimulatedTrafficDeterministic(t *testing.T) {
	epoch := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	st := NewSimulatedTraffic(2, orb.Point{-77.02, 38.90}, epoch)

	at0 := st.ObstaclesAt(epoch)
	if len(at0) != 2 {
		t.Fatalf("expected 2 agents, got %d", len(at0))
	}
	if at0[0].Position != (orb.Point{-77.02, 38.90}) {
		t.Errorf("agent 0 at epoch should sit at its origin, got %v", at0[0].Position)
	}
	if at0[0].ID == at0[1].ID {
		t.Error("agents must have distinct ids")
	}

	// Same query time, same answer
	again := st.ObstaclesAt(epoch)
	if again[1].Position != at0[1].Position {
		t.Error("positions must be a pure function of time")
	}

	// Later query drifts
	later := st.ObstaclesAt(epoch.Add(time.Hour))
	if later[0].Position == at0[0].Position {
		t.Error("agents should drift over an hour")
	}
}
