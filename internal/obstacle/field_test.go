package obstacle

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

// A unit no-fly square centered on (-77.02, 38.90), the DC dataset's
// neighborhood.
func dcSquare() orb.Polygon {
	return orb.Polygon{{
		{-77.025, 38.895},
		{-77.015, 38.895},
		{-77.015, 38.905},
		{-77.025, 38.905},
		{-77.025, 38.895},
	}}
}

func TestFieldContains(t *testing.T) {
	f, err := NewField([]orb.Polygon{dcSquare()}, 0)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}

	if !f.Contains(orb.Point{-77.02, 38.90}) {
		t.Error("center of the zone should be contained")
	}
	if f.Contains(orb.Point{-77.05, 38.90}) {
		t.Error("point well outside the zone should not be contained")
	}
}

func TestFieldSegmentClear(t *testing.T) {
	f, err := NewField([]orb.Polygon{dcSquare()}, 0)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}

	// Straight through the zone
	if f.SegmentClear(orb.Point{-77.05, 38.90}, orb.Point{-77.00, 38.90}) {
		t.Error("segment through the zone should be blocked")
	}
	// Well south of the zone
	if !f.SegmentClear(orb.Point{-77.05, 38.88}, orb.Point{-77.00, 38.88}) {
		t.Error("segment south of the zone should be clear")
	}
	// Entirely inside the zone: no boundary crossing, midpoint catches it
	if f.SegmentClear(orb.Point{-77.022, 38.899}, orb.Point{-77.018, 38.901}) {
		t.Error("segment inside the zone should be blocked")
	}
}

func TestFieldNegativeBufferRejected(t *testing.T) {
	if _, err := NewField(nil, -0.001); err == nil {
		t.Error("expected error for negative buffer distance")
	}
	f, _ := NewField(nil, 0)
	if err := f.SetBuffer(-1); err == nil {
		t.Error("expected error from SetBuffer with negative distance")
	}
}

func TestFieldBufferRebuild(t *testing.T) {
	f, err := NewField([]orb.Polygon{dcSquare()}, 0)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}

	// Skims just outside the unbuffered zone
	a := orb.Point{-77.05, 38.894}
	b := orb.Point{-77.00, 38.894}
	if !f.SegmentClear(a, b) {
		t.Fatal("segment just outside the zone should start out clear")
	}

	// Growing the margin must recompute the union and block it
	if err := f.SetBuffer(0.005); err != nil {
		t.Fatalf("SetBuffer: %v", err)
	}
	if f.SegmentClear(a, b) {
		t.Error("segment should be blocked after the buffer grows")
	}
}

func TestFieldRemovesContainedPolygons(t *testing.T) {
	inner := orb.Polygon{{
		{-77.022, 38.898},
		{-77.018, 38.898},
		{-77.018, 38.902},
		{-77.022, 38.902},
		{-77.022, 38.898},
	}}
	f, err := NewField([]orb.Polygon{dcSquare(), inner}, 0)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	if n := len(f.Zones()); n != 1 {
		t.Errorf("contained polygon should be dropped: expected 1 zone, got %d", n)
	}
}

func TestFieldMergesOverlappingPolygons(t *testing.T) {
	other := orb.Polygon{{
		{-77.020, 38.900},
		{-77.000, 38.900},
		{-77.000, 38.920},
		{-77.020, 38.920},
		{-77.020, 38.900},
	}}
	f, err := NewField([]orb.Polygon{dcSquare(), other}, 0)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	if n := len(f.Zones()); n != 1 {
		t.Fatalf("overlapping polygons should merge: expected 1 zone, got %d", n)
	}
	// Inside the hull of the pair but inside neither input polygon.
	if !f.Contains(orb.Point{-77.022, 38.908}) {
		t.Error("merged hull should cover the gap between the inputs")
	}
}

func TestFieldDistanceTo(t *testing.T) {
	f, err := NewField([]orb.Polygon{dcSquare()}, 0)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}

	if d := f.DistanceTo(orb.Point{-77.02, 38.90}); d != 0 {
		t.Errorf("inside the zone: expected 0, got %v", d)
	}

	// 0.005 degrees due south of the bottom edge
	d := f.DistanceTo(orb.Point{-77.02, 38.89})
	if math.Abs(d-0.005) > 1e-6 {
		t.Errorf("expected distance ~0.005, got %v", d)
	}

	empty, _ := NewField(nil, 0)
	if d := empty.DistanceTo(orb.Point{0, 0}); !math.IsInf(d, 1) {
		t.Errorf("empty field: expected +Inf, got %v", d)
	}
}

func TestBufferPolygonGrowsBound(t *testing.T) {
	poly := dcSquare()
	buffered := BufferPolygon(poly, 0.002)

	ob := poly.Bound()
	bb := buffered.Bound()

	if bb.Min[0] > ob.Min[0]-0.0019 || bb.Max[0] < ob.Max[0]+0.0019 {
		t.Errorf("buffered bound should extend ~0.002 in longitude: %v vs %v", bb, ob)
	}
	if bb.Min[1] > ob.Min[1]-0.0019 || bb.Max[1] < ob.Max[1]+0.0019 {
		t.Errorf("buffered bound should extend ~0.002 in latitude: %v vs %v", bb, ob)
	}
}

func TestBufferPolygonZeroDistance(t *testing.T) {
	poly := dcSquare()
	out := BufferPolygon(poly, 0)
	if len(out) != 1 || len(out[0]) != len(poly[0]) {
		t.Errorf("zero buffer should leave the outer ring unchanged, got %v", out)
	}
}
