package geom

import (
	"fmt"
)

// ErrInvalidGeometry indicates a geometry that cannot take part in an operation
type ErrInvalidGeometry struct {
	FeatureID int64
	Reason    string
}

func (e *ErrInvalidGeometry) Error() string {
	if e.FeatureID != 0 {
		return fmt.Sprintf("invalid geometry (feature %d): %s", e.FeatureID, e.Reason)
	}
	return fmt.Sprintf("invalid geometry: %s", e.Reason)
}

// ErrUnknownField indicates a field name that does not exist in a feature class
type ErrUnknownField struct {
	Class string
	Field string
}

func (e *ErrUnknownField) Error() string {
	return fmt.Sprintf("feature class %q has no field %q", e.Class, e.Field)
}

// ErrGeometryTypeMismatch indicates an operation received the wrong geometry class
type ErrGeometryTypeMismatch struct {
	Class    string
	Expected GeometryType
	Got      GeometryType
}

func (e *ErrGeometryTypeMismatch) Error() string {
	return fmt.Sprintf("feature class %q: expected %v geometry, got %v",
		e.Class, e.Expected, e.Got)
}

// ErrSpatialRefMismatch indicates two inputs use different spatial references
type ErrSpatialRefMismatch struct {
	Left, Right string
}

func (e *ErrSpatialRefMismatch) Error() string {
	return fmt.Sprintf("spatial reference mismatch: %q vs %q", e.Left, e.Right)
}

// ErrInvalidParameter indicates a tool parameter outside its valid range
type ErrInvalidParameter struct {
	Name   string
	Value  string
	Reason string
}

func (e *ErrInvalidParameter) Error() string {
	return fmt.Sprintf("invalid parameter %s=%q: %s", e.Name, e.Value, e.Reason)
}
