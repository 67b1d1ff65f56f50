package obstacle

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/bhurtyalkritan/SpatialPlanning/internal/geometry"
)

// Terrain answers vertical-clearance questions: ground elevation at a
// point (nearest spot sample) and the tallest obstruction under a
// segment (terrain plus any building the segment overflies).
type Terrain struct {
	elevTree *rtreego.Rtree
	bldTree  *rtreego.Rtree
	samples  int
}

type elevEntry struct {
	sample ElevationSample
	loc    rtreego.Point
}

func (e *elevEntry) Bounds() rtreego.Rect { return e.loc.ToRect(1e-9) }

type buildingEntry struct {
	building Building
	bbox     rtreego.Rect
}

func (e *buildingEntry) Bounds() rtreego.Rect { return e.bbox }

func NewTerrain(samples []ElevationSample, buildings []Building) *Terrain {
	t := &Terrain{
		elevTree: rtreego.NewTree(2, 25, 50),
		bldTree:  rtreego.NewTree(2, 25, 50),
	}
	for _, s := range samples {
		t.elevTree.Insert(&elevEntry{sample: s, loc: rtreego.Point{s.Point[0], s.Point[1]}})
		t.samples++
	}
	for _, b := range buildings {
		if len(b.Footprint) == 0 || len(b.Footprint[0]) < 3 {
			continue
		}
		bbox, err := polyBounds(b.Footprint)
		if err != nil {
			continue
		}
		t.bldTree.Insert(&buildingEntry{building: b, bbox: bbox})
	}
	return t
}

// ElevationAt returns the ground elevation (m) at p from the nearest
// spot sample, or 0 when no samples are loaded.
func (t *Terrain) ElevationAt(p orb.Point) float64 {
	if t.samples == 0 {
		return 0
	}
	item := t.elevTree.NearestNeighbor(rtreego.Point{p[0], p[1]})
	e, ok := item.(*elevEntry)
	if !ok || e == nil {
		return 0
	}
	return e.sample.Elevation
}

// ObstructionAlong returns the highest obstruction (m) under segment
// a-b: max of terrain elevation sampled along the segment and the top
// of any building the segment crosses or starts/ends over.
func (t *Terrain) ObstructionAlong(a, b orb.Point) float64 {
	highest := math.Max(t.ElevationAt(a), t.ElevationAt(b))

	// Terrain varies slowly; sampling every ~250 m is plenty for spot
	// elevations.
	const sampleStep = 250.0
	if t.samples > 0 {
		steps := int(geometry.DistanceMeters(a, b)/sampleStep) + 1
		for i := 1; i < steps; i++ {
			p := geometry.Lerp(a, b, float64(i)/float64(steps))
			if e := t.ElevationAt(p); e > highest {
				highest = e
			}
		}
	}

	for _, e := range t.buildingsNear(a, b) {
		bld := e.building
		over := geometry.SegmentIntersectsPolygon(a, b, bld.Footprint) ||
			planar.PolygonContains(bld.Footprint, a) ||
			planar.PolygonContains(bld.Footprint, b)
		if !over {
			continue
		}
		top := bld.Height + t.ElevationAt(bld.Footprint[0][0])
		if top > highest {
			highest = top
		}
	}

	return highest
}

// NoiseAt scores how built-up the area around p is, in [0,1]. Used as
// the per-meter noise-exposure term: flying over or near buildings
// exposes more people to rotor noise.
func (t *Terrain) NoiseAt(p orb.Point) float64 {
	if t.bldTree.Size() == 0 {
		return 0
	}

	// ~300 m horizon in degree space.
	const horizon = 300.0 / geometry.MetersPerDegree

	loc := rtreego.Point{p[0], p[1]}
	best := math.Inf(1)
	for _, item := range t.bldTree.NearestNeighbors(3, loc) {
		e, ok := item.(*buildingEntry)
		if !ok || e == nil {
			continue
		}
		if planar.PolygonContains(e.building.Footprint, p) {
			return 1
		}
		if d := planar.DistanceFrom(e.building.Footprint, p); d < best {
			best = d
		}
	}
	if best >= horizon {
		return 0
	}
	return 1 - best/horizon
}

func (t *Terrain) buildingsNear(a, b orb.Point) []*buildingEntry {
	minX := math.Min(a[0], b[0])
	minY := math.Min(a[1], b[1])
	maxX := math.Max(a[0], b[0])
	maxY := math.Max(a[1], b[1])

	bbox, err := rtreego.NewRect(
		rtreego.Point{minX, minY},
		[]float64{math.Max(maxX-minX, 1e-9), math.Max(maxY-minY, 1e-9)},
	)
	if err != nil {
		return nil
	}

	results := t.bldTree.SearchIntersect(bbox)
	entries := make([]*buildingEntry, 0, len(results))
	for _, item := range results {
		if e, ok := item.(*buildingEntry); ok {
			entries = append(entries, e)
		}
	}
	return entries
}
