// Package geometry holds the planar predicates the planner and obstacle
// field are built on: segment intersection, point-to-segment distance,
// convex hulls, and polyline simplification. All coordinates are
// lon/lat degrees in orb.Point order (X=lon, Y=lat).
package geometry

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// MetersPerDegree is the approximate ground distance of one degree of
// latitude; used to convert degree-space tolerances to meters.
const MetersPerDegree = 111_000.0

// Distance is the Euclidean distance in degree space. Fine for
// comparisons over the small extents a single plan covers.
func Distance(a, b orb.Point) float64 {
	dx := a[0] - b[0]
	dy := a[1] - b[1]
	return math.Sqrt(dx*dx + dy*dy)
}

// DistanceMeters is the haversine ground distance between two points.
func DistanceMeters(a, b orb.Point) float64 {
	return geo.Distance(a, b)
}

// PathLengthMeters sums the haversine lengths of a polyline's segments.
func PathLengthMeters(pts []orb.Point) float64 {
	var total float64
	for i := 0; i+1 < len(pts); i++ {
		total += geo.Distance(pts[i], pts[i+1])
	}
	return total
}

// SegmentsIntersect reports whether segments a1-a2 and b1-b2 cross.
// Segments that merely share an endpoint are not considered to
// intersect, so polygon edges meeting at a vertex don't self-report.
func SegmentsIntersect(a1, a2, b1, b2 orb.Point) bool {
	if (a1 == b1 && a2 == b2) || (a1 == b2 && a2 == b1) {
		return false
	}
	if a1 == b1 || a1 == b2 || a2 == b1 || a2 == b2 {
		return false
	}

	d1 := direction(b1, b2, a1)
	d2 := direction(b1, b2, a2)
	d3 := direction(a1, a2, b1)
	d4 := direction(a1, a2, b2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	// Collinear overlap cases.
	if d1 == 0 && onSegment(b1, b2, a1) {
		return true
	}
	if d2 == 0 && onSegment(b1, b2, a2) {
		return true
	}
	if d3 == 0 && onSegment(a1, a2, b1) {
		return true
	}
	if d4 == 0 && onSegment(a1, a2, b2) {
		return true
	}

	return false
}

// direction is the cross product orientation test of p3 about p1-p2.
func direction(p1, p2, p3 orb.Point) float64 {
	return (p3[0]-p1[0])*(p2[1]-p1[1]) - (p2[0]-p1[0])*(p3[1]-p1[1])
}

// onSegment reports whether q, known collinear with p-r, lies within
// the segment's bounding box.
func onSegment(p, r, q orb.Point) bool {
	return q[0] <= math.Max(p[0], r[0]) && q[0] >= math.Min(p[0], r[0]) &&
		q[1] <= math.Max(p[1], r[1]) && q[1] >= math.Min(p[1], r[1])
}

// SegmentIntersectsRing reports whether segment a-b crosses any edge of
// the ring.
func SegmentIntersectsRing(a, b orb.Point, ring orb.Ring) bool {
	n := len(ring)
	for i := 0; i < n; i++ {
		if SegmentsIntersect(a, b, ring[i], ring[(i+1)%n]) {
			return true
		}
	}
	return false
}

// SegmentIntersectsPolygon checks the segment against the polygon's
// outer ring. Holes are ignored: a no-fly zone's interior is blocked
// regardless of cutouts.
func SegmentIntersectsPolygon(a, b orb.Point, poly orb.Polygon) bool {
	if len(poly) == 0 {
		return false
	}
	return SegmentIntersectsRing(a, b, poly[0])
}

// PointToSegment returns the degree-space distance from p to the
// closest point of segment a-b.
func PointToSegment(p, a, b orb.Point) float64 {
	dx := b[0] - a[0]
	dy := b[1] - a[1]
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Distance(p, a)
	}
	t := ((p[0]-a[0])*dx + (p[1]-a[1])*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	closest := orb.Point{a[0] + t*dx, a[1] + t*dy}
	return Distance(p, closest)
}

// Midpoint of segment a-b.
func Midpoint(a, b orb.Point) orb.Point {
	return orb.Point{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
}

// Lerp interpolates from a toward b by t in [0,1].
func Lerp(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}

// ConvexHull computes the convex hull of a point set using a Graham
// scan. The input slice is not modified. Returns the hull in
// counter-clockwise order without a closing duplicate.
func ConvexHull(points []orb.Point) []orb.Point {
	if len(points) < 3 {
		return points
	}

	pts := make([]orb.Point, len(points))
	copy(pts, points)

	// Lowest Y, then lowest X, is the pivot.
	start := 0
	for i := 1; i < len(pts); i++ {
		if pts[i][1] < pts[start][1] ||
			(pts[i][1] == pts[start][1] && pts[i][0] < pts[start][0]) {
			start = i
		}
	}
	pts[0], pts[start] = pts[start], pts[0]
	pivot := pts[0]

	rest := pts[1:]
	sort.Slice(rest, func(i, j int) bool {
		ai := math.Atan2(rest[i][1]-pivot[1], rest[i][0]-pivot[0])
		aj := math.Atan2(rest[j][1]-pivot[1], rest[j][0]-pivot[0])
		if ai != aj {
			return ai < aj
		}
		return Distance(pivot, rest[i]) < Distance(pivot, rest[j])
	})

	hull := []orb.Point{pivot, rest[0]}
	for i := 1; i < len(rest); i++ {
		for len(hull) > 1 && cross(hull[len(hull)-2], hull[len(hull)-1], rest[i]) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, rest[i])
	}

	return hull
}

// cross is the cross product of vectors (b-a) and (c-a).
func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}
