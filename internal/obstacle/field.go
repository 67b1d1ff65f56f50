// Package obstacle models the static and dynamic exclusion regions the
// planner plans against: buffered no-fly polygons, buildings, spot
// elevations, and live air traffic.
package obstacle

import (
	"fmt"
	"math"
	"sync"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/bhurtyalkritan/SpatialPlanning/internal/geometry"
)

// simplifyEpsilon trims no-fly polygon vertices on rebuild; ~2 m at the
// equator, conservative enough to preserve topology.
const simplifyEpsilon = 0.00002

// Field is the union of all buffered no-fly polygons as a spatial
// predicate. Reads are safe from any goroutine; changing the polygons
// or the buffer distance rebuilds the index under the write lock.
type Field struct {
	mu     sync.RWMutex
	source []orb.Polygon
	buffer float64
	zones  []orb.Polygon
	tree   *rtreego.Rtree
}

type zoneEntry struct {
	poly orb.Polygon
	bbox rtreego.Rect
}

func (z *zoneEntry) Bounds() rtreego.Rect { return z.bbox }

// NewField builds a field from raw no-fly polygons, each expanded by
// the buffer distance (degrees). The buffer must be non-negative.
func NewField(polygons []orb.Polygon, buffer float64) (*Field, error) {
	if buffer < 0 {
		return nil, fmt.Errorf("buffer distance must be non-negative, got %v", buffer)
	}
	f := &Field{source: polygons, buffer: buffer}
	f.rebuild()
	return f, nil
}

// SetBuffer changes the safety margin and recomputes the union.
func (f *Field) SetBuffer(buffer float64) error {
	if buffer < 0 {
		return fmt.Errorf("buffer distance must be non-negative, got %v", buffer)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buffer = buffer
	f.rebuildLocked()
	return nil
}

// SetPolygons replaces the input polygons and recomputes the union.
func (f *Field) SetPolygons(polygons []orb.Polygon) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.source = polygons
	f.rebuildLocked()
}

func (f *Field) rebuild() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rebuildLocked()
}

func (f *Field) rebuildLocked() {
	buffered := make([]orb.Polygon, 0, len(f.source))
	for _, poly := range f.source {
		if len(poly) == 0 || len(poly[0]) < 3 {
			continue
		}
		b := BufferPolygon(poly, f.buffer)
		buffered = append(buffered, geometry.SimplifyPolygon(b, simplifyEpsilon))
	}

	// Polygons fully inside another contribute nothing to the union;
	// overlapping ones collapse to their hull so every zone is disjoint.
	f.zones = mergeOverlapping(removeContained(buffered))

	f.tree = rtreego.NewTree(2, 25, 50)
	for _, poly := range f.zones {
		bbox, err := polyBounds(poly)
		if err != nil {
			continue
		}
		f.tree.Insert(&zoneEntry{poly: poly, bbox: bbox})
	}
}

// Contains reports whether the point lies inside any buffered zone.
func (f *Field) Contains(p orb.Point) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, e := range f.searchLocked(p, p) {
		if planar.PolygonContains(e.poly, p) {
			return true
		}
	}
	return false
}

// SegmentClear reports whether the straight segment a-b avoids every
// zone: no boundary crossing, neither endpoint inside, and the
// midpoint outside (catches a segment entirely within a zone).
func (f *Field) SegmentClear(a, b orb.Point) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	mid := geometry.Midpoint(a, b)
	for _, e := range f.searchLocked(a, b) {
		if geometry.SegmentIntersectsPolygon(a, b, e.poly) {
			return false
		}
		if planar.PolygonContains(e.poly, a) || planar.PolygonContains(e.poly, b) {
			return false
		}
		if planar.PolygonContains(e.poly, mid) {
			return false
		}
	}
	return true
}

// DistanceTo returns the degree-space distance from p to the nearest
// zone boundary, 0 if p is inside a zone, and +Inf when there are no
// zones at all.
func (f *Field) DistanceTo(p orb.Point) float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.tree.Size() == 0 {
		return math.Inf(1)
	}

	loc := rtreego.Point{p[0], p[1]}
	best := math.Inf(1)
	for _, item := range f.tree.NearestNeighbors(3, loc) {
		e, ok := item.(*zoneEntry)
		if !ok || e == nil {
			continue
		}
		if planar.PolygonContains(e.poly, p) {
			return 0
		}
		if d := planar.DistanceFrom(e.poly, p); d < best {
			best = d
		}
	}
	return best
}

// Zones returns a snapshot of the buffered zones.
func (f *Field) Zones() []orb.Polygon {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]orb.Polygon, len(f.zones))
	copy(out, f.zones)
	return out
}

// Buffer returns the current safety margin in degrees.
func (f *Field) Buffer() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.buffer
}

// searchLocked returns zones whose bounding boxes intersect the
// bounding box of segment a-b. Caller holds at least the read lock.
func (f *Field) searchLocked(a, b orb.Point) []*zoneEntry {
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

	results := f.tree.SearchIntersect(bbox)
	entries := make([]*zoneEntry, 0, len(results))
	for _, item := range results {
		if e, ok := item.(*zoneEntry); ok {
			entries = append(entries, e)
		}
	}
	return entries
}

// removeContained drops polygons fully contained in another polygon.
func removeContained(polygons []orb.Polygon) []orb.Polygon {
	if len(polygons) <= 1 {
		return polygons
	}

	contained := make([]bool, len(polygons))
	for i := 0; i < len(polygons); i++ {
		if contained[i] {
			continue
		}
		for j := 0; j < len(polygons); j++ {
			if i == j || contained[j] {
				continue
			}
			if polygonContainedIn(polygons[i], polygons[j]) {
				contained[i] = true
				break
			}
			if polygonContainedIn(polygons[j], polygons[i]) {
				contained[j] = true
			}
		}
	}

	result := make([]orb.Polygon, 0, len(polygons))
	for i, poly := range polygons {
		if !contained[i] {
			result = append(result, poly)
		}
	}
	return result
}

// mergeOverlapping replaces each pair of intersecting polygons with the
// convex hull of their combined vertices, repeating until all zones are
// disjoint. The hull overapproximates the union, which only enlarges
// the exclusion region.
func mergeOverlapping(polygons []orb.Polygon) []orb.Polygon {
	for merged := true; merged; {
		merged = false
		for i := 0; i < len(polygons) && !merged; i++ {
			for j := i + 1; j < len(polygons); j++ {
				if !polygonsOverlap(polygons[i], polygons[j]) {
					continue
				}
				pts := make([]orb.Point, 0, len(polygons[i][0])+len(polygons[j][0]))
				pts = append(pts, polygons[i][0]...)
				pts = append(pts, polygons[j][0]...)
				ring := orb.Ring(geometry.ConvexHull(pts))
				if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
					ring = append(ring, ring[0])
				}
				polygons[i] = orb.Polygon{ring}
				polygons = append(polygons[:j], polygons[j+1:]...)
				merged = true
				break
			}
		}
	}
	return polygons
}

// polygonsOverlap reports whether a and b intersect (boundary crossing
// or one inside the other).
func polygonsOverlap(a, b orb.Polygon) bool {
	if len(a) == 0 || len(b) == 0 || len(a[0]) == 0 || len(b[0]) == 0 {
		return false
	}
	if !a.Bound().Intersects(b.Bound()) {
		return false
	}
	ring := a[0]
	for i := 0; i+1 < len(ring); i++ {
		if geometry.SegmentIntersectsPolygon(ring[i], ring[i+1], b) {
			return true
		}
	}
	return planar.PolygonContains(b, ring[0]) || planar.PolygonContains(a, b[0][0])
}

// polygonContainedIn reports whether a is fully inside b.
func polygonContainedIn(a, b orb.Polygon) bool {
	if len(a) == 0 || len(b) == 0 || len(a[0]) == 0 || len(b[0]) == 0 {
		return false
	}
	ab, bb := a.Bound(), b.Bound()
	if !boundContainedIn(ab, bb) {
		return false
	}
	for _, v := range a[0] {
		if !planar.PolygonContains(b, v) {
			return false
		}
	}
	return true
}

func boundContainedIn(a, b orb.Bound) bool {
	return a.Min[0] >= b.Min[0] && a.Max[0] <= b.Max[0] &&
		a.Min[1] >= b.Min[1] && a.Max[1] <= b.Max[1]
}

// polyBounds computes the rtreego rect for a polygon's bounding box.
func polyBounds(poly orb.Polygon) (rtreego.Rect, error) {
	bound := poly.Bound()
	return rtreego.NewRect(
		rtreego.Point{bound.Min[0], bound.Min[1]},
		[]float64{
			math.Max(bound.Max[0]-bound.Min[0], 1e-9),
			math.Max(bound.Max[1]-bound.Min[1], 1e-9),
		},
	)
}
