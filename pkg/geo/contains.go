package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// boundaryEpsilon is the tolerance used when deciding whether a point sits
// exactly on a polygon edge. Coordinates are WGS84 degrees, so this is far
// below any meaningful ground distance.
const boundaryEpsilon = 1e-12

// Contains reports whether point p lies inside geometry g. Points follow the
// orb convention: p[0] is longitude, p[1] is latitude.
//
// The test is even-odd ray casting over every ring, which handles interior
// rings (holes) naturally. Boundary policy: a point exactly on an edge or
// vertex counts as inside. The check gates a delegate's permission to report,
// and rejecting someone standing on their own boundary is the worse failure.
//
// Contains is a pure function and safe for concurrent use.
func Contains(p orb.Point, g orb.Geometry) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return polygonContains(geom, p)
	case orb.MultiPolygon:
		for _, poly := range geom {
			if polygonContains(poly, p) {
				return true
			}
		}

		return false
	default:
		return false
	}
}

func polygonContains(poly orb.Polygon, p orb.Point) bool {
	if len(poly) == 0 {
		return false
	}

	crossings := 0

	for _, ring := range poly {
		if len(ring) < 3 {
			continue
		}

		for i := 0; i < len(ring)-1; i++ {
			a, b := ring[i], ring[i+1]

			if onSegment(p, a, b) {
				return true
			}

			if rayIntersects(p, a, b) {
				crossings++
			}
		}
	}

	return crossings%2 == 1
}

// rayIntersects reports whether a ray cast from p towards +X crosses the
// segment a-b. The half-open Y comparison makes vertices count exactly once.
func rayIntersects(p, a, b orb.Point) bool {
	if (a[1] > p[1]) == (b[1] > p[1]) {
		return false
	}

	x := a[0] + (p[1]-a[1])*(b[0]-a[0])/(b[1]-a[1])

	return x > p[0]
}

// onSegment reports whether p lies on the segment a-b.
func onSegment(p, a, b orb.Point) bool {
	cross := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
	if math.Abs(cross) > boundaryEpsilon {
		return false
	}

	return p[0] >= math.Min(a[0], b[0])-boundaryEpsilon &&
		p[0] <= math.Max(a[0], b[0])+boundaryEpsilon &&
		p[1] >= math.Min(a[1], b[1])-boundaryEpsilon &&
		p[1] <= math.Max(a[1], b[1])+boundaryEpsilon
}
