package geom

import (
	"github.com/twpayne/go-geos"
)

// GeometryType represents the dimension class of a feature class.
//
// Multi-part geometries belong to the class of their parts: a MultiLineString
// is a LineString class geometry, a MultiPolygon a Polygon class geometry.
type GeometryType int

const (
	// GeometryTypePoint represents point and multipoint geometries.
	GeometryTypePoint GeometryType = iota

	// GeometryTypeLineString represents line and multiline geometries.
	GeometryTypeLineString

	// GeometryTypePolygon represents polygon and multipolygon geometries.
	GeometryTypePolygon

	// GeometryTypeUnknown is returned for empty or mixed collections.
	GeometryTypeUnknown GeometryType = -1
)

// String returns the string representation of the geometry type.
func (g GeometryType) String() string {
	switch g {
	case GeometryTypePoint:
		return "Point"
	case GeometryTypeLineString:
		return "LineString"
	case GeometryTypePolygon:
		return "Polygon"
	default:
		return "Unknown"
	}
}

// ParseGeometryType is the inverse of GeometryType.String.
func ParseGeometryType(s string) GeometryType {
	switch s {
	case "Point":
		return GeometryTypePoint
	case "LineString":
		return GeometryTypeLineString
	case "Polygon":
		return GeometryTypePolygon
	default:
		return GeometryTypeUnknown
	}
}

// TypeOf classifies a GEOS geometry.
//
// Geometry collections are classified by their components when all of them
// share a class, otherwise GeometryTypeUnknown is returned.
func TypeOf(g *geos.Geom) GeometryType {
	if g == nil {
		return GeometryTypeUnknown
	}
	switch g.TypeID() {
	case geos.TypeIDPoint, geos.TypeIDMultiPoint:
		return GeometryTypePoint
	case geos.TypeIDLineString, geos.TypeIDLinearRing, geos.TypeIDMultiLineString:
		return GeometryTypeLineString
	case geos.TypeIDPolygon, geos.TypeIDMultiPolygon:
		return GeometryTypePolygon
	case geos.TypeIDGeometryCollection:
		result := GeometryTypeUnknown
		for i := 0; i < g.NumGeometries(); i++ {
			t := TypeOf(g.Geometry(i))
			if t == GeometryTypeUnknown {
				return GeometryTypeUnknown
			}
			if result != GeometryTypeUnknown && result != t {
				return GeometryTypeUnknown
			}
			result = t
		}
		return result
	default:
		return GeometryTypeUnknown
	}
}

// Fragments returns the single-part components of g whose class is t.
//
// Components of other classes and empty components are dropped. The returned
// geometries are clones and do not share storage with g.
func Fragments(g *geos.Geom, t GeometryType) []*geos.Geom {
	if g == nil || g.IsEmpty() {
		return nil
	}

	switch g.TypeID() {
	case geos.TypeIDMultiPoint, geos.TypeIDMultiLineString,
		geos.TypeIDMultiPolygon, geos.TypeIDGeometryCollection:
		var parts []*geos.Geom
		for i := 0; i < g.NumGeometries(); i++ {
			parts = append(parts, Fragments(g.Geometry(i), t)...)
		}
		return parts
	}

	if TypeOf(g) != t {
		return nil
	}
	return []*geos.Geom{g.Clone()}
}

// Polygonal returns the polygonal part of g as a single geometry.
//
// Overlay results of two polygons may contain points or lines where the
// operands touch; those are discarded. Returns nil when no area remains.
func Polygonal(g *geos.Geom) *geos.Geom {
	if g == nil || g.IsEmpty() {
		return nil
	}

	switch g.TypeID() {
	case geos.TypeIDPolygon, geos.TypeIDMultiPolygon:
		return g
	}

	var result *geos.Geom
	for _, part := range Fragments(g, GeometryTypePolygon) {
		if result == nil {
			result = part
			continue
		}
		result = result.Union(part)
	}
	if result == nil || result.IsEmpty() {
		return nil
	}
	return result
}

// UnionAll unions a list of geometries pairwise.
//
// Returns nil for an empty list.
func UnionAll(geoms []*geos.Geom) *geos.Geom {
	var result *geos.Geom
	for _, g := range geoms {
		if g == nil || g.IsEmpty() {
			continue
		}
		if result == nil {
			result = g.Clone()
			continue
		}
		result = result.Union(g)
	}
	return result
}

// GeometryBounds calculates the bounding box of a geometry.
func GeometryBounds(g *geos.Geom) Bounds {
	if g == nil || g.IsEmpty() {
		return Bounds{}
	}
	box := g.Bounds()
	return Bounds{
		MinX: box.MinX,
		MinY: box.MinY,
		MaxX: box.MaxX,
		MaxY: box.MaxY,
	}
}
