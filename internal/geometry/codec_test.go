package geometry

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squarePolygon() orb.Polygon {
	return orb.Polygon{orb.Ring{{0, 0}, {0, 1}, {1, 1}, {1, 0}, {0, 0}}}
}

func shapeOf(g orb.Geometry) Shape {
	return geojson.NewFeature(g)
}

func TestCandidateFromShapes(t *testing.T) {
	t.Run("exactly one polygon", func(t *testing.T) {
		poly, err := CandidateFromShapes([]Shape{shapeOf(squarePolygon())})
		require.NoError(t, err)
		assert.True(t, poly.Equal(squarePolygon()))
	})

	t.Run("empty layer", func(t *testing.T) {
		_, err := CandidateFromShapes(nil)
		assert.ErrorIs(t, err, ErrExactlyOnePolygon)
	})

	t.Run("two shapes never picks a winner", func(t *testing.T) {
		shapes := []Shape{shapeOf(squarePolygon()), shapeOf(squarePolygon())}
		_, err := CandidateFromShapes(shapes)
		assert.ErrorIs(t, err, ErrExactlyOnePolygon)
	})

	t.Run("non-polygon shape", func(t *testing.T) {
		line := orb.LineString{{0, 0}, {1, 1}}
		_, err := CandidateFromShapes([]Shape{shapeOf(line)})
		assert.ErrorIs(t, err, ErrNotPolygon)
	})

	t.Run("unclosed ring gets closed", func(t *testing.T) {
		open := orb.Polygon{orb.Ring{{0, 0}, {0, 1}, {1, 1}, {1, 0}}}
		poly, err := CandidateFromShapes([]Shape{shapeOf(open)})
		require.NoError(t, err)
		ring := poly[0]
		assert.Len(t, ring, 5)
		assert.True(t, ring[0].Equal(ring[len(ring)-1]))
	})

	t.Run("degenerate ring", func(t *testing.T) {
		tiny := orb.Polygon{orb.Ring{{0, 0}, {1, 1}}}
		_, err := CandidateFromShapes([]Shape{shapeOf(tiny)})
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})
}

func TestPolygonRoundTrip(t *testing.T) {
	encoded, err := EncodePolygon(squarePolygon())
	require.NoError(t, err)

	decoded, err := DecodePolygon(encoded)
	require.NoError(t, err)
	assert.True(t, decoded.Equal(squarePolygon()))

	// a second round trip must be stable
	again, err := EncodePolygon(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, encoded, again)
}

func TestDecodePolygon(t *testing.T) {
	t.Run("malformed json", func(t *testing.T) {
		_, err := DecodePolygon(`{"type":"Polygon",`)
		assert.ErrorIs(t, err, ErrInvalidGeometry)
	})

	t.Run("wrong geometry type", func(t *testing.T) {
		_, err := DecodePolygon(`{"type":"Point","coordinates":[0,0]}`)
		assert.ErrorIs(t, err, ErrNotPolygon)
	})

	t.Run("multipolygon rejected", func(t *testing.T) {
		_, err := DecodePolygon(`{"type":"MultiPolygon","coordinates":[[[[0,0],[0,1],[1,1],[0,0]]]]}`)
		assert.ErrorIs(t, err, ErrNotPolygon)
	})
}

func TestAreaShapeStyling(t *testing.T) {
	raw, err := EncodePolygon(squarePolygon())
	require.NoError(t, err)

	active, err := AreaShape("a1", raw, true, map[string]interface{}{"serviceName": "Plumbing"})
	require.NoError(t, err)
	inactive, err := AreaShape("a2", raw, false, nil)
	require.NoError(t, err)

	assert.Equal(t, "a1", active.Properties["areaId"])
	assert.Equal(t, "Plumbing", active.Properties["serviceName"])
	assert.Equal(t, true, active.Properties["active"])
	assert.NotEqual(t, active.Properties["style"], inactive.Properties["style"])
}

func TestPolygonContains(t *testing.T) {
	poly := squarePolygon()
	assert.True(t, PolygonContains(poly, orb.Point{0.5, 0.5}))
	assert.False(t, PolygonContains(poly, orb.Point{2, 2}))
}

func TestPolygonBound(t *testing.T) {
	b := PolygonBound(squarePolygon())
	assert.Equal(t, orb.Point{0, 0}, b.Min)
	assert.Equal(t, orb.Point{1, 1}, b.Max)
}
