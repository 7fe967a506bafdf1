package geom

import (
	"math"
	"testing"

	"github.com/twpayne/go-geos"
)

func mustWKT(t *testing.T, wkt string) *geos.Geom {
	t.Helper()
	g, err := geos.NewGeomFromWKT(wkt)
	if err != nil {
		t.Fatalf("parse %q: %v", wkt, err)
	}
	return g
}

// TestGeometryTypes tests geometry type enumeration
func TestGeometryTypes(t *testing.T) {
	tests := []struct {
		geomType GeometryType
		expected string
	}{
		{GeometryTypePoint, "Point"},
		{GeometryTypeLineString, "LineString"},
		{GeometryTypePolygon, "Polygon"},
		{GeometryTypeUnknown, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if tt.geomType.String() != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, tt.geomType.String())
			}
			if got := ParseGeometryType(tt.expected); got != tt.geomType {
				t.Errorf("ParseGeometryType(%q) = %v, want %v", tt.expected, got, tt.geomType)
			}
		})
	}
}

func TestTypeOf(t *testing.T) {
	tests := []struct {
		wkt      string
		expected GeometryType
	}{
		{"POINT (1 2)", GeometryTypePoint},
		{"MULTIPOINT ((1 2), (3 4))", GeometryTypePoint},
		{"LINESTRING (0 0, 1 1)", GeometryTypeLineString},
		{"MULTILINESTRING ((0 0, 1 1), (2 2, 3 3))", GeometryTypeLineString},
		{"POLYGON ((0 0, 1 0, 1 1, 0 1, 0 0))", GeometryTypePolygon},
		{"GEOMETRYCOLLECTION (POINT (1 1), POINT (2 2))", GeometryTypePoint},
		{"GEOMETRYCOLLECTION (POINT (1 1), LINESTRING (0 0, 1 1))", GeometryTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.wkt, func(t *testing.T) {
			if got := TypeOf(mustWKT(t, tt.wkt)); got != tt.expected {
				t.Errorf("TypeOf(%s) = %v, want %v", tt.wkt, got, tt.expected)
			}
		})
	}
}

func TestFragments(t *testing.T) {
	g := mustWKT(t, "GEOMETRYCOLLECTION (POINT (5 5), LINESTRING (0 0, 1 0), MULTILINESTRING ((2 0, 3 0), (4 0, 6 0)))")

	lines := Fragments(g, GeometryTypeLineString)
	if len(lines) != 3 {
		t.Fatalf("expected 3 line fragments, got %d", len(lines))
	}
	total := 0.0
	for _, l := range lines {
		if l.TypeID() != geos.TypeIDLineString {
			t.Errorf("fragment type = %s, want LineString", l.Type())
		}
		total += l.Length()
	}
	if math.Abs(total-4) > 1e-9 {
		t.Errorf("total fragment length = %f, want 4", total)
	}

	points := Fragments(g, GeometryTypePoint)
	if len(points) != 1 {
		t.Errorf("expected 1 point fragment, got %d", len(points))
	}

	if polys := Fragments(g, GeometryTypePolygon); len(polys) != 0 {
		t.Errorf("expected no polygon fragments, got %d", len(polys))
	}

	if frags := Fragments(mustWKT(t, "LINESTRING EMPTY"), GeometryTypeLineString); frags != nil {
		t.Errorf("expected nil for empty geometry, got %d fragments", len(frags))
	}
}

func TestPolygonal(t *testing.T) {
	// Two squares sharing an edge with a third touching at a corner
	a := mustWKT(t, "POLYGON ((0 0, 2 0, 2 2, 0 2, 0 0))")
	b := mustWKT(t, "MULTIPOLYGON (((1 0, 3 0, 3 2, 1 2, 1 0)), ((2 2, 4 2, 4 4, 2 4, 2 2)))")

	result := Polygonal(a.Intersection(b))
	if result == nil {
		t.Fatal("expected polygonal result")
	}
	if TypeOf(result) != GeometryTypePolygon {
		t.Errorf("result type = %s, want polygonal", result.Type())
	}
	if math.Abs(result.Area()-2) > 1e-9 {
		t.Errorf("area = %f, want 2", result.Area())
	}

	// Touching only at a corner leaves no area
	c := mustWKT(t, "POLYGON ((2 2, 3 2, 3 3, 2 3, 2 2))")
	if got := Polygonal(a.Intersection(c)); got != nil {
		t.Errorf("expected nil for corner contact, got %s", got.ToWKT())
	}
}

func TestUnionAll(t *testing.T) {
	if UnionAll(nil) != nil {
		t.Error("UnionAll(nil) should be nil")
	}

	u := UnionAll([]*geos.Geom{
		mustWKT(t, "POLYGON ((0 0, 2 0, 2 2, 0 2, 0 0))"),
		mustWKT(t, "POLYGON ((1 0, 3 0, 3 2, 1 2, 1 0))"),
	})
	if math.Abs(u.Area()-6) > 1e-9 {
		t.Errorf("union area = %f, want 6", u.Area())
	}
}

func TestGeometryBounds(t *testing.T) {
	b := GeometryBounds(mustWKT(t, "LINESTRING (1 5, 4 2)"))
	want := Bounds{MinX: 1, MinY: 2, MaxX: 4, MaxY: 5}
	if b != want {
		t.Errorf("GeometryBounds = %+v, want %+v", b, want)
	}
	if !GeometryBounds(nil).IsZero() {
		t.Error("bounds of nil geometry should be zero")
	}
}
