package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// SimplifyRing reduces a ring's vertex count using Douglas-Peucker.
// Closed rings (first == last) are re-closed after simplification; if
// simplification would collapse the ring below a triangle, the input is
// returned unchanged.
func SimplifyRing(ring orb.Ring, epsilon float64) orb.Ring {
	if len(ring) <= 3 {
		return ring
	}

	n := len(ring)
	const closeThreshold = 1e-9
	isClosed := math.Abs(ring[0][0]-ring[n-1][0]) < closeThreshold &&
		math.Abs(ring[0][1]-ring[n-1][1]) < closeThreshold

	var simplified []orb.Point
	if isClosed {
		open := []orb.Point(ring[:n-1])
		simplified = douglasPeucker(append(open, open[0]), epsilon)
		if len(simplified) > 1 {
			simplified = simplified[:len(simplified)-1]
			if len(simplified) >= 3 {
				simplified = append(simplified, simplified[0])
			} else {
				return ring
			}
		}
	} else {
		simplified = douglasPeucker(ring, epsilon)
	}

	return orb.Ring(simplified)
}

// SimplifyPolygon simplifies every ring of a polygon.
func SimplifyPolygon(poly orb.Polygon, epsilon float64) orb.Polygon {
	out := make(orb.Polygon, len(poly))
	for i, ring := range poly {
		out[i] = SimplifyRing(ring, epsilon)
	}
	return out
}

func douglasPeucker(points []orb.Point, epsilon float64) []orb.Point {
	if len(points) <= 2 {
		return points
	}

	dmax := 0.0
	index := 0
	end := len(points) - 1

	for i := 1; i < end; i++ {
		d := perpendicularDistance(points[i], points[0], points[end])
		if d > dmax {
			index = i
			dmax = d
		}
	}

	if dmax > epsilon {
		left := douglasPeucker(points[0:index+1], epsilon)
		right := douglasPeucker(points[index:], epsilon)

		result := make([]orb.Point, 0, len(left)+len(right)-1)
		result = append(result, left[:len(left)-1]...)
		result = append(result, right...)
		return result
	}

	return []orb.Point{points[0], points[end]}
}

// perpendicularDistance is the distance from point to the infinite line
// through lineStart and lineEnd.
func perpendicularDistance(point, lineStart, lineEnd orb.Point) float64 {
	dx := lineEnd[0] - lineStart[0]
	dy := lineEnd[1] - lineStart[1]

	mag := math.Sqrt(dx*dx + dy*dy)
	if mag > 0 {
		dx /= mag
		dy /= mag
	}

	pvx := point[0] - lineStart[0]
	pvy := point[1] - lineStart[1]

	pvdot := dx*pvx + dy*pvy

	ax := pvx - pvdot*dx
	ay := pvy - pvdot*dy

	return math.Sqrt(ax*ax + ay*ay)
}
