// Package geom holds the in-memory feature model shared by the overlay
// stages, the dataset readers and the workspace container.
package geom

import (
	"fmt"
	"math"

	"github.com/twpayne/go-geos"
)

// FieldType is the storage type of an attribute field.
type FieldType int

const (
	FieldTypeString FieldType = iota
	FieldTypeInteger
	FieldTypeDouble
)

// String returns the string representation of the field type.
func (t FieldType) String() string {
	switch t {
	case FieldTypeInteger:
		return "Integer"
	case FieldTypeDouble:
		return "Double"
	default:
		return "String"
	}
}

// ParseFieldType is the inverse of FieldType.String.
func ParseFieldType(s string) FieldType {
	switch s {
	case "Integer":
		return FieldTypeInteger
	case "Double":
		return FieldTypeDouble
	default:
		return FieldTypeString
	}
}

// InferFieldType guesses a field type from an attribute value.
func InferFieldType(v interface{}) FieldType {
	switch n := v.(type) {
	case int, int32, int64:
		return FieldTypeInteger
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return FieldTypeInteger
		}
		return FieldTypeDouble
	case float32:
		return FieldTypeDouble
	default:
		return FieldTypeString
	}
}

// Field describes one attribute column of a feature class.
type Field struct {
	Name string    `json:"name"`
	Type FieldType `json:"type"`
}

// Feature is one geometry with its attributes.
type Feature struct {
	// ID is the object identifier, unique within its feature class.
	ID int64
	// Geometry is owned by the feature.
	Geometry *geos.Geom
	// Attributes maps field names to values (string, float64, int64, bool or nil).
	Attributes map[string]interface{}
}

// Attribute returns a specific attribute value by name.
func (f *Feature) Attribute(name string) (interface{}, bool) {
	val, ok := f.Attributes[name]
	return val, ok
}

// Source is anything the overlay stages can read features from: a
// FeatureClass, or a Layer selecting a subset of one.
type Source interface {
	ClassName() string
	ClassFields() []Field
	ClassGeometryType() GeometryType
	ClassSpatialRef() string
	Rows() []Feature
}

// FeatureClass is a named, homogeneous collection of features.
type FeatureClass struct {
	Name         string
	GeometryType GeometryType
	// SpatialRef names the coordinate reference system, e.g. "EPSG:32755".
	// Empty means unspecified.
	SpatialRef string
	Fields     []Field
	Features   []Feature
}

// NewFeatureClass creates an empty feature class.
func NewFeatureClass(name string, t GeometryType, spatialRef string) *FeatureClass {
	return &FeatureClass{
		Name:         name,
		GeometryType: t,
		SpatialRef:   spatialRef,
	}
}

func (fc *FeatureClass) ClassName() string               { return fc.Name }
func (fc *FeatureClass) ClassFields() []Field            { return fc.Fields }
func (fc *FeatureClass) ClassGeometryType() GeometryType { return fc.GeometryType }
func (fc *FeatureClass) ClassSpatialRef() string         { return fc.SpatialRef }
func (fc *FeatureClass) Rows() []Feature                 { return fc.Features }

// FeatureCount returns the number of features in the class.
func (fc *FeatureClass) FeatureCount() int {
	return len(fc.Features)
}

// Field returns the field definition with the given name.
func (fc *FeatureClass) Field(name string) (Field, bool) {
	return findField(fc.Fields, name)
}

// HasField reports whether the class defines the named field.
func (fc *FeatureClass) HasField(name string) bool {
	_, ok := fc.Field(name)
	return ok
}

// AddField appends a field definition, replacing an existing definition
// with the same name in place.
func (fc *FeatureClass) AddField(f Field) {
	for i := range fc.Fields {
		if fc.Fields[i].Name == f.Name {
			fc.Fields[i] = f
			return
		}
	}
	fc.Fields = append(fc.Fields, f)
}

// Append adds a feature, assigning the next object ID when f.ID is zero.
func (fc *FeatureClass) Append(f Feature) {
	if f.ID == 0 {
		f.ID = int64(len(fc.Features) + 1)
	}
	if f.Attributes == nil {
		f.Attributes = make(map[string]interface{})
	}
	fc.Features = append(fc.Features, f)
}

// Bounds returns the union of all feature bounds.
func (fc *FeatureClass) Bounds() Bounds {
	return rowsBounds(fc.Features)
}

// Copy returns a copy of the class with cloned geometries and attribute maps.
func (fc *FeatureClass) Copy(name string) *FeatureClass {
	out := &FeatureClass{
		Name:         name,
		GeometryType: fc.GeometryType,
		SpatialRef:   fc.SpatialRef,
		Fields:       append([]Field(nil), fc.Fields...),
		Features:     make([]Feature, len(fc.Features)),
	}
	for i, f := range fc.Features {
		attrs := make(map[string]interface{}, len(f.Attributes))
		for k, v := range f.Attributes {
			attrs[k] = v
		}
		var g *geos.Geom
		if f.Geometry != nil {
			g = f.Geometry.Clone()
		}
		out.Features[i] = Feature{ID: f.ID, Geometry: g, Attributes: attrs}
	}
	return out
}

// RequireFields returns ErrUnknownField for the first name src does not define.
func RequireFields(src Source, names ...string) error {
	for _, name := range names {
		if _, ok := findField(src.ClassFields(), name); !ok {
			return &ErrUnknownField{Class: src.ClassName(), Field: name}
		}
	}
	return nil
}

// Layer is a selection view over a feature class.
//
// Layers never copy features; they record the indices of the selected rows.
type Layer struct {
	Name      string
	Source    *FeatureClass
	Selection []int
}

// NewLayer creates a layer over fc with every feature selected.
func NewLayer(name string, fc *FeatureClass) *Layer {
	sel := make([]int, len(fc.Features))
	for i := range sel {
		sel[i] = i
	}
	return &Layer{Name: name, Source: fc, Selection: sel}
}

func (l *Layer) ClassName() string               { return l.Source.Name }
func (l *Layer) ClassFields() []Field            { return l.Source.Fields }
func (l *Layer) ClassGeometryType() GeometryType { return l.Source.GeometryType }
func (l *Layer) ClassSpatialRef() string         { return l.Source.SpatialRef }

// Rows returns the selected features in source order.
func (l *Layer) Rows() []Feature {
	rows := make([]Feature, len(l.Selection))
	for i, idx := range l.Selection {
		rows[i] = l.Source.Features[idx]
	}
	return rows
}

// SelectionCount returns the number of selected features.
func (l *Layer) SelectionCount() int {
	return len(l.Selection)
}

// Select replaces the selection with the features matching pred
// (NEW_SELECTION semantics).
func (l *Layer) Select(pred func(f *Feature) bool) {
	l.Selection = l.Selection[:0]
	for i := range l.Source.Features {
		if pred(&l.Source.Features[i]) {
			l.Selection = append(l.Selection, i)
		}
	}
}

func findField(fields []Field, name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func rowsBounds(rows []Feature) Bounds {
	var b Bounds
	for _, f := range rows {
		b = b.Union(GeometryBounds(f.Geometry))
	}
	return b
}

// Float converts a numeric attribute value to float64.
func Float(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("value %v (%T) is not numeric", v, v)
	}
}
