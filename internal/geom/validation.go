package geom

import (
	"fmt"
	"math"
	"strconv"
)

// ValidateGeometry checks that a feature geometry can take part in overlay.
//
// Invalid polygons (self-intersections, bad ring orientation) make GEOS
// overlay fail or return garbage, so they are rejected up front.
func ValidateGeometry(f *Feature) error {
	if f == nil {
		return &ErrInvalidGeometry{Reason: "feature is nil"}
	}
	if f.Geometry == nil {
		return &ErrInvalidGeometry{FeatureID: f.ID, Reason: "geometry is nil"}
	}
	if f.Geometry.IsEmpty() {
		// Empty geometries are allowed and never overlap anything
		return nil
	}
	if TypeOf(f.Geometry) == GeometryTypeUnknown {
		return &ErrInvalidGeometry{
			FeatureID: f.ID,
			Reason:    fmt.Sprintf("unsupported geometry %s", f.Geometry.Type()),
		}
	}
	if !f.Geometry.IsValid() {
		return &ErrInvalidGeometry{
			FeatureID: f.ID,
			Reason:    f.Geometry.IsValidReason(),
		}
	}
	return nil
}

// ValidateFeatureClass validates every feature of a class and checks that
// all geometries belong to the class geometry type.
func ValidateFeatureClass(fc *FeatureClass) error {
	if fc == nil {
		return fmt.Errorf("feature class is nil")
	}
	for i := range fc.Features {
		f := &fc.Features[i]
		if err := ValidateGeometry(f); err != nil {
			return fmt.Errorf("feature class %q: %w", fc.Name, err)
		}
		if f.Geometry.IsEmpty() {
			continue
		}
		if got := TypeOf(f.Geometry); got != fc.GeometryType {
			return &ErrGeometryTypeMismatch{Class: fc.Name, Expected: fc.GeometryType, Got: got}
		}
	}
	return nil
}

// ValidateDistance checks a buffer distance: finite and not negative.
func ValidateDistance(name string, d float64) error {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return &ErrInvalidParameter{Name: name, Value: strconv.FormatFloat(d, 'g', -1, 64), Reason: "must be finite"}
	}
	if d < 0 {
		return &ErrInvalidParameter{Name: name, Value: strconv.FormatFloat(d, 'g', -1, 64), Reason: "must not be negative"}
	}
	return nil
}

// ParseDistance parses a numeric tool parameter and validates it with
// ValidateDistance.
func ParseDistance(name, value string) (float64, error) {
	d, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &ErrInvalidParameter{Name: name, Value: value, Reason: "not a number"}
	}
	if err := ValidateDistance(name, d); err != nil {
		return 0, err
	}
	return d, nil
}

// CompatibleSpatialRefs reports whether two spatial references can be
// overlaid. An empty reference is unspecified and matches anything.
func CompatibleSpatialRefs(a, b string) error {
	if a == "" || b == "" || a == b {
		return nil
	}
	return &ErrSpatialRefMismatch{Left: a, Right: b}
}
