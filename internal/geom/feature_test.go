package geom

import (
	"testing"
)

// TestFeatureClass tests field bookkeeping and copying
func TestFeatureClass(t *testing.T) {
	fc := NewFeatureClass("Reefs", GeometryTypePolygon, "EPSG:32755")
	fc.AddField(Field{Name: "Reef", Type: FieldTypeString})
	fc.AddField(Field{Name: "Depth", Type: FieldTypeInteger})
	fc.AddField(Field{Name: "Depth", Type: FieldTypeDouble})

	if len(fc.Fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fc.Fields))
	}
	if f, _ := fc.Field("Depth"); f.Type != FieldTypeDouble {
		t.Errorf("Depth type = %v, want Double", f.Type)
	}
	if fc.HasField("Missing") {
		t.Error("HasField(Missing) should be false")
	}

	fc.Append(Feature{
		Geometry:   mustWKT(t, "POLYGON ((0 0, 1 0, 1 1, 0 1, 0 0))"),
		Attributes: map[string]interface{}{"Reef": "North"},
	})
	fc.Append(Feature{Geometry: mustWKT(t, "POLYGON ((2 2, 3 2, 3 3, 2 3, 2 2))")})

	if fc.Features[0].ID != 1 || fc.Features[1].ID != 2 {
		t.Errorf("IDs = %d,%d want 1,2", fc.Features[0].ID, fc.Features[1].ID)
	}
	if fc.Features[1].Attributes == nil {
		t.Error("Append should initialise attributes")
	}

	want := Bounds{MinX: 0, MinY: 0, MaxX: 3, MaxY: 3}
	if got := fc.Bounds(); got != want {
		t.Errorf("Bounds = %+v, want %+v", got, want)
	}

	cp := fc.Copy("Copy")
	cp.Features[0].Attributes["Reef"] = "South"
	if fc.Features[0].Attributes["Reef"] != "North" {
		t.Error("Copy should not share attribute maps")
	}
	if cp.Name != "Copy" || cp.SpatialRef != "EPSG:32755" {
		t.Errorf("Copy metadata = %q %q", cp.Name, cp.SpatialRef)
	}

	if err := RequireFields(fc, "Reef", "Depth"); err != nil {
		t.Errorf("RequireFields: %v", err)
	}
	if err := RequireFields(fc, "Reef", "Zone"); err == nil {
		t.Error("expected ErrUnknownField")
	}
}

// TestLayerSelection tests that selections are views over the source
func TestLayerSelection(t *testing.T) {
	fc := NewFeatureClass("Events", GeometryTypeLineString, "")
	for _, wkt := range []string{
		"LINESTRING (0 0, 50 0)",
		"LINESTRING (0 0, 150 0)",
		"LINESTRING (0 0, 250 0)",
	} {
		fc.Append(Feature{Geometry: mustWKT(t, wkt)})
	}

	lyr := NewLayer("Events_lyr", fc)
	if lyr.SelectionCount() != 3 {
		t.Fatalf("new layer should select all, got %d", lyr.SelectionCount())
	}

	lyr.Select(func(f *Feature) bool { return f.Geometry.Length() > 100 })
	if lyr.SelectionCount() != 2 {
		t.Fatalf("expected 2 selected, got %d", lyr.SelectionCount())
	}
	rows := lyr.Rows()
	if rows[0].ID != 2 || rows[1].ID != 3 {
		t.Errorf("selected IDs = %d,%d want 2,3", rows[0].ID, rows[1].ID)
	}
	if fc.FeatureCount() != 3 {
		t.Error("selection must not modify the source")
	}
	if lyr.ClassName() != "Events" {
		t.Errorf("layer class name = %q", lyr.ClassName())
	}
}

func TestInferFieldType(t *testing.T) {
	tests := []struct {
		value    interface{}
		expected FieldType
	}{
		{"reef", FieldTypeString},
		{float64(3), FieldTypeInteger},
		{3.5, FieldTypeDouble},
		{int64(7), FieldTypeInteger},
		{true, FieldTypeString},
		{nil, FieldTypeString},
	}
	for _, tt := range tests {
		if got := InferFieldType(tt.value); got != tt.expected {
			t.Errorf("InferFieldType(%v) = %v, want %v", tt.value, got, tt.expected)
		}
	}
}
