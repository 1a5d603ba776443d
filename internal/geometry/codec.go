// Package geometry converts between the map toolkit's shape representation
// (GeoJSON features) and the canonical GeoJSON Polygon persisted by the
// gateway, and enforces the single-polygon rule on every candidate.
package geometry

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

var (
	// ErrExactlyOnePolygon is returned when the transient shape layer holds
	// zero or more than one shape.
	ErrExactlyOnePolygon = errors.New("exactly one polygon required")

	// ErrNotPolygon is returned when a candidate shape is not a Polygon.
	ErrNotPolygon = errors.New("geometry must be a single polygon")

	// ErrInvalidGeometry is returned for malformed or empty geometry.
	ErrInvalidGeometry = errors.New("invalid geometry")
)

// Shape is the interchange form for one drawn shape: a GeoJSON feature as the
// map toolkit emits it. Non-geometry metadata is ignored on decode.
type Shape = *geojson.Feature

// CandidateFromShapes extracts the candidate polygon from the transient shape
// layer. The layer must contain exactly one shape and that shape must be a
// Polygon; anything else fails validation without picking a winner.
func CandidateFromShapes(shapes []Shape) (orb.Polygon, error) {
	if len(shapes) != 1 {
		return nil, ErrExactlyOnePolygon
	}
	if shapes[0] == nil || shapes[0].Geometry == nil {
		return nil, ErrInvalidGeometry
	}
	poly, ok := shapes[0].Geometry.(orb.Polygon)
	if !ok {
		return nil, ErrNotPolygon
	}
	if len(poly) == 0 || len(poly[0]) < 3 {
		return nil, ErrInvalidGeometry
	}
	return closeRings(poly), nil
}

// closeRings ensures every ring is closed (first point == last point) so the
// encoded form matches the gateway's wire contract.
func closeRings(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(p))
	for i, ring := range p {
		if len(ring) > 0 && !ring[0].Equal(ring[len(ring)-1]) {
			closed := make(orb.Ring, len(ring)+1)
			copy(closed, ring)
			closed[len(ring)] = ring[0]
			out[i] = closed
		} else {
			out[i] = ring
		}
	}
	return out
}

// DecodePolygon parses the JSON-serialized GeoJSON geometry used across the
// gateway boundary and requires it to be a Polygon.
func DecodePolygon(raw string) (orb.Polygon, error) {
	g, err := geojson.UnmarshalGeometry([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	poly, ok := g.Geometry().(orb.Polygon)
	if !ok {
		return nil, ErrNotPolygon
	}
	if len(poly) == 0 || len(poly[0]) < 4 {
		return nil, ErrInvalidGeometry
	}
	return poly, nil
}

// EncodePolygon serializes a polygon to the gateway's wire form.
func EncodePolygon(p orb.Polygon) (string, error) {
	if len(p) == 0 {
		return "", ErrInvalidGeometry
	}
	data, err := geojson.NewGeometry(closeRings(p)).MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Style carries the rendering hints attached to a persisted area's shape.
// Active and inactive areas are visually distinct on the map.
type Style struct {
	Color       string  `json:"color"`
	FillColor   string  `json:"fillColor"`
	FillOpacity float64 `json:"fillOpacity"`
	DashArray   string  `json:"dashArray,omitempty"`
}

func styleFor(active bool) Style {
	if active {
		return Style{Color: "#1d4ed8", FillColor: "#3b82f6", FillOpacity: 0.3}
	}
	return Style{Color: "#6b7280", FillColor: "#9ca3af", FillOpacity: 0.15, DashArray: "6 4"}
}

// AreaShape renders one persisted area back into the map's shape form. The
// areaID property is the click-to-select handle; style depends on the active
// flag.
func AreaShape(areaID string, raw string, active bool, props map[string]interface{}) (Shape, error) {
	poly, err := DecodePolygon(raw)
	if err != nil {
		return nil, err
	}
	f := geojson.NewFeature(poly)
	f.ID = areaID
	f.Properties = geojson.Properties{
		"areaId": areaID,
		"active": active,
		"style":  styleFor(active),
	}
	for k, v := range props {
		f.Properties[k] = v
	}
	return f, nil
}

// PolygonBound returns the bounding box used to focus the view on an area
// when it enters editing.
func PolygonBound(p orb.Polygon) orb.Bound {
	return p.Bound()
}

// PolygonContains reports whether the point lies inside the polygon,
// honoring interior rings.
func PolygonContains(p orb.Polygon, pt orb.Point) bool {
	return planar.PolygonContains(p, pt)
}
