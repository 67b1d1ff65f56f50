package obstacle

import (
	"math"

	"github.com/paulmach/orb"
)

// BufferPolygon expands a polygon's outer ring outward by dist degrees
// using mitered edge offsets. A zero distance returns the polygon with
// only its outer ring. Holes are dropped: a buffered no-fly zone is
// solid regardless of interior cutouts.
func BufferPolygon(poly orb.Polygon, dist float64) orb.Polygon {
	if len(poly) == 0 {
		return poly
	}
	ring := closeRing(poly[0])
	if dist == 0 || len(ring) < 4 {
		return orb.Polygon{ring}
	}
	return orb.Polygon{offsetRing(ring, dist)}
}

// closeRing guarantees first == last.
func closeRing(ring orb.Ring) orb.Ring {
	if len(ring) == 0 {
		return ring
	}
	if ring[0] != ring[len(ring)-1] {
		out := make(orb.Ring, len(ring)+1)
		copy(out, ring)
		out[len(ring)] = ring[0]
		return out
	}
	return ring
}

// offsetRing shifts each edge outward by dist along its normal and
// rebuilds vertices from consecutive edge intersections. Works on the
// open vertex list (closing duplicate stripped, re-added at the end).
func offsetRing(ring orb.Ring, dist float64) orb.Ring {
	open := ring[:len(ring)-1]
	n := len(open)

	// For a counter-clockwise ring the outward normal of edge (dx,dy)
	// is (dy,-dx); clockwise flips the sign.
	sign := 1.0
	if signedArea(open) > 0 {
		sign = -1.0
	}

	type line struct {
		p, q orb.Point
	}
	offset := make([]line, n)
	for i := 0; i < n; i++ {
		a, b := open[i], open[(i+1)%n]
		dx, dy := b[0]-a[0], b[1]-a[1]
		mag := math.Sqrt(dx*dx + dy*dy)
		if mag == 0 {
			offset[i] = line{a, b}
			continue
		}
		nx, ny := sign*dy/mag, sign*-dx/mag
		offset[i] = line{
			orb.Point{a[0] + nx*dist, a[1] + ny*dist},
			orb.Point{b[0] + nx*dist, b[1] + ny*dist},
		}
	}

	out := make(orb.Ring, 0, n+1)
	for i := 0; i < n; i++ {
		prev := offset[(i+n-1)%n]
		cur := offset[i]
		pt, ok := lineIntersection(prev.p, prev.q, cur.p, cur.q)
		if !ok {
			// Parallel adjacent edges: the offset endpoints coincide.
			pt = cur.p
		}
		out = append(out, pt)
	}
	out = append(out, out[0])
	return out
}

// signedArea of an open vertex list; positive for clockwise in this
// convention (shoelace with the Y term leading).
func signedArea(pts []orb.Point) float64 {
	var area float64
	n := len(pts)
	for i := 0; i < n; i++ {
		a, b := pts[i], pts[(i+1)%n]
		area += a[0]*b[1] - b[0]*a[1]
	}
	return -area / 2
}

// lineIntersection returns the intersection of the infinite lines
// through a1-a2 and b1-b2, and false when they are (near) parallel.
func lineIntersection(a1, a2, b1, b2 orb.Point) (orb.Point, bool) {
	d1x, d1y := a2[0]-a1[0], a2[1]-a1[1]
	d2x, d2y := b2[0]-b1[0], b2[1]-b1[1]
	denom := d1x*d2y - d1y*d2x
	if math.Abs(denom) < 1e-15 {
		return orb.Point{}, false
	}
	t := ((b1[0]-a1[0])*d2y - (b1[1]-a1[1])*d2x) / denom
	return orb.Point{a1[0] + t*d1x, a1[1] + t*d1y}, true
}
