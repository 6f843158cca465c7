package geo_test

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"

	"github.com/et-mohedano/demo-delegados/pkg/geo"
)

// unitSquare is the polygon (0,0) (1,0) (1,1) (0,1), closed.
var unitSquare = orb.Polygon{
	{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}},
}

// squareWithHole has an interior ring from (0.25,0.25) to (0.75,0.75).
var squareWithHole = orb.Polygon{
	{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}},
	{{0.25, 0.25}, {0.75, 0.25}, {0.75, 0.75}, {0.25, 0.75}, {0.25, 0.25}},
}

func TestContains_Polygon(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		point orb.Point
		want  bool
	}{
		{"center", orb.Point{0.5, 0.5}, true},
		{"near corner inside", orb.Point{0.001, 0.001}, true},
		{"outside right", orb.Point{1.5, 0.5}, false},
		{"outside above", orb.Point{0.5, 5}, false},
		{"far away", orb.Point{5, 5}, false},
		{"negative quadrant", orb.Point{-0.5, -0.5}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, geo.Contains(tc.point, unitSquare))
		})
	}
}

// Boundary policy: points exactly on an edge or vertex are inside.
func TestContains_BoundaryPolicy(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		point orb.Point
	}{
		{"bottom edge", orb.Point{0.5, 0}},
		{"top edge", orb.Point{0.5, 1}},
		{"left edge", orb.Point{0, 0.5}},
		{"right edge", orb.Point{1, 0.5}},
		{"corner", orb.Point{0, 0}},
		{"opposite corner", orb.Point{1, 1}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.True(t, geo.Contains(tc.point, unitSquare))
		})
	}
}

func TestContains_Hole(t *testing.T) {
	t.Parallel()

	t.Run("between outer ring and hole", func(t *testing.T) {
		t.Parallel()

		assert.True(t, geo.Contains(orb.Point{0.1, 0.1}, squareWithHole))
	})

	t.Run("inside hole is outside", func(t *testing.T) {
		t.Parallel()

		assert.False(t, geo.Contains(orb.Point{0.5, 0.5}, squareWithHole))
	})

	t.Run("hole edge is inside", func(t *testing.T) {
		t.Parallel()

		assert.True(t, geo.Contains(orb.Point{0.5, 0.25}, squareWithHole))
	})
}

func TestContains_MultiPolygon(t *testing.T) {
	t.Parallel()

	mp := orb.MultiPolygon{
		unitSquare,
		{{{10, 10}, {11, 10}, {11, 11}, {10, 11}, {10, 10}}},
	}

	assert.True(t, geo.Contains(orb.Point{0.5, 0.5}, mp))
	assert.True(t, geo.Contains(orb.Point{10.5, 10.5}, mp))
	assert.False(t, geo.Contains(orb.Point{5, 5}, mp))
}

func TestContains_UnsupportedGeometry(t *testing.T) {
	t.Parallel()

	assert.False(t, geo.Contains(orb.Point{0, 0}, orb.Point{0, 0}))
	assert.False(t, geo.Contains(orb.Point{0, 0},
		orb.LineString{{0, 0}, {1, 1}}))
}

// Concave polygons exercise the even-odd crossing count beyond convex cases.
func TestContains_Concave(t *testing.T) {
	t.Parallel()

	// A "U" shape: the notch between the arms is outside.
	u := orb.Polygon{{
		{0, 0}, {3, 0}, {3, 3}, {2, 3}, {2, 1}, {1, 1}, {1, 3}, {0, 3}, {0, 0},
	}}

	assert.True(t, geo.Contains(orb.Point{0.5, 2}, u), "left arm")
	assert.True(t, geo.Contains(orb.Point{2.5, 2}, u), "right arm")
	assert.False(t, geo.Contains(orb.Point{1.5, 2}, u), "notch")
	assert.True(t, geo.Contains(orb.Point{1.5, 0.5}, u), "base")
}
