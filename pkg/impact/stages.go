package impact

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/twpayne/go-geos"

	"github.com/beetlebugorg/reefimpact/internal/geom"
)

// Field names written by Clip.
const (
	ShapeAreaField   = "Shape_Area"
	ShapeLengthField = "Shape_Length"
)

// ctxCheckInterval is how many rows a stage processes between
// cancellation checks.
const ctxCheckInterval = 256

// AddGeometryLength returns a copy of fc with a Double field holding the
// planar length of each feature geometry. An existing field of the same
// name is replaced and its values recomputed.
func AddGeometryLength(fc *geom.FeatureClass, field string) (*geom.FeatureClass, error) {
	if field == "" {
		return nil, &geom.ErrInvalidParameter{Name: "field", Reason: "must not be empty"}
	}
	if fc.FeatureCount() > 0 && fc.GeometryType != geom.GeometryTypeLineString {
		return nil, &geom.ErrGeometryTypeMismatch{
			Class:    fc.Name,
			Expected: geom.GeometryTypeLineString,
			Got:      fc.GeometryType,
		}
	}

	out := fc.Copy(fc.Name)
	out.AddField(geom.Field{Name: field, Type: geom.FieldTypeDouble})
	for i := range out.Features {
		f := &out.Features[i]
		length := 0.0
		if f.Geometry != nil && !f.Geometry.IsEmpty() {
			length = f.Geometry.Length()
		}
		f.Attributes[field] = length
	}
	return out, nil
}

// SelectByAttribute returns a layer over fc selecting the features whose
// field value satisfies pred.
func SelectByAttribute(fc *geom.FeatureClass, field string, pred func(v interface{}) bool) (*geom.Layer, error) {
	if err := geom.RequireFields(fc, field); err != nil {
		return nil, err
	}
	layer := geom.NewLayer(fc.Name+"_lyr", fc)
	layer.Select(func(f *geom.Feature) bool {
		return pred(f.Attributes[field])
	})
	return layer, nil
}

// SelectLongerThan selects the features whose numeric length field is
// strictly greater than bound. Null or non-numeric values never match.
func SelectLongerThan(fc *geom.FeatureClass, field string, bound float64) (*geom.Layer, error) {
	return SelectByAttribute(fc, field, func(v interface{}) bool {
		n, err := geom.Float(v)
		if err != nil {
			return false
		}
		return n > bound
	})
}

// Intersect overlays events with target polygons.
//
// Every intersecting (event, target) pair yields one record per fragment of
// dimension out; components of other dimensions are dropped and
// non-overlapping pairs produce nothing. Records carry all attributes of
// both inputs: FID_<events>, the event fields, FID_<targets>, the target
// fields. Duplicate names are suffixed _1, _2, ...
func Intersect(ctx context.Context, events, targets geom.Source, out geom.GeometryType) (*geom.FeatureClass, error) {
	if err := requireType(targets, geom.GeometryTypePolygon); err != nil {
		return nil, err
	}
	if err := geom.CompatibleSpatialRefs(events.ClassSpatialRef(), targets.ClassSpatialRef()); err != nil {
		return nil, err
	}
	if out == geom.GeometryTypeUnknown {
		return nil, &geom.ErrInvalidParameter{Name: "output_type", Value: out.String(), Reason: "must be Point, LineString or Polygon"}
	}
	if et := events.ClassGeometryType(); len(events.Rows()) > 0 && et != geom.GeometryTypeUnknown && out > et {
		return nil, &geom.ErrInvalidParameter{
			Name:   "output_type",
			Value:  out.String(),
			Reason: fmt.Sprintf("cannot exceed the dimension of %s input %q", et, events.ClassName()),
		}
	}

	spatialRef := events.ClassSpatialRef()
	if spatialRef == "" {
		spatialRef = targets.ClassSpatialRef()
	}
	result := geom.NewFeatureClass(events.ClassName()+"_Intersect", out, spatialRef)

	join := newFieldJoin()
	eventFID := join.add(result, "FID_"+events.ClassName(), geom.FieldTypeInteger)
	eventFields := make([]string, len(events.ClassFields()))
	for i, f := range events.ClassFields() {
		eventFields[i] = join.add(result, f.Name, f.Type)
	}
	targetFID := join.add(result, "FID_"+targets.ClassName(), geom.FieldTypeInteger)
	targetFields := make([]string, len(targets.ClassFields()))
	for i, f := range targets.ClassFields() {
		targetFields[i] = join.add(result, f.Name, f.Type)
	}

	targetRows := targets.Rows()
	idx := geom.NewIndex(targetRows)

	for i, ev := range events.Rows() {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if ev.Geometry == nil || ev.Geometry.IsEmpty() {
			continue
		}

		for _, j := range idx.Search(geom.GeometryBounds(ev.Geometry)) {
			tg := targetRows[j]
			if !ev.Geometry.Intersects(tg.Geometry) {
				continue
			}
			overlay := ev.Geometry.Intersection(tg.Geometry)
			if overlay == nil {
				return nil, &geom.ErrInvalidGeometry{FeatureID: ev.ID, Reason: "intersection failed"}
			}

			for _, frag := range geom.Fragments(overlay, out) {
				attrs := make(map[string]interface{}, len(result.Fields))
				attrs[eventFID] = ev.ID
				for k, f := range events.ClassFields() {
					attrs[eventFields[k]] = ev.Attributes[f.Name]
				}
				attrs[targetFID] = tg.ID
				for k, f := range targets.ClassFields() {
					attrs[targetFields[k]] = tg.Attributes[f.Name]
				}
				result.Append(geom.Feature{Geometry: frag, Attributes: attrs})
			}
		}
	}

	return result, nil
}

// fieldJoin assigns unique output names when two inputs are joined.
type fieldJoin struct {
	used map[string]bool
}

func newFieldJoin() *fieldJoin {
	return &fieldJoin{used: make(map[string]bool)}
}

// add defines a field on fc under a unique name and returns that name.
func (j *fieldJoin) add(fc *geom.FeatureClass, name string, t geom.FieldType) string {
	unique := name
	for n := 1; j.used[unique]; n++ {
		unique = name + "_" + strconv.Itoa(n)
	}
	j.used[unique] = true
	fc.AddField(geom.Field{Name: unique, Type: t})
	return unique
}

// Buffer expands every input geometry by distance with round ends and
// joins, approximating quarter circles with quadSegs segments.
//
// With a non-empty dissolve list, buffers are grouped by the tuple of
// dissolve field values and each group is unioned into one feature that
// keeps only the dissolve fields; groups appear in the order their first
// member appears in the input. An empty dissolve list keeps every feature
// and all its attributes. Empty buffers are dropped.
func Buffer(ctx context.Context, in geom.Source, distance float64, dissolve []string, quadSegs int) (*geom.FeatureClass, error) {
	if err := geom.ValidateDistance("buffer_distance", distance); err != nil {
		return nil, err
	}
	if quadSegs < 1 {
		return nil, &geom.ErrInvalidParameter{Name: "quad_segments", Value: strconv.Itoa(quadSegs), Reason: "must be at least 1"}
	}
	if err := geom.RequireFields(in, dissolve...); err != nil {
		return nil, err
	}

	result := geom.NewFeatureClass(in.ClassName()+"_Buffer", geom.GeometryTypePolygon, in.ClassSpatialRef())

	type group struct {
		attrs map[string]interface{}
		parts []*geos.Geom
	}
	var order []string
	groups := make(map[string]*group)

	if len(dissolve) == 0 {
		result.Fields = append(result.Fields, in.ClassFields()...)
	} else {
		for _, name := range dissolve {
			f, _ := fieldOf(in, name)
			result.AddField(f)
		}
	}

	for i, f := range in.Rows() {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if f.Geometry == nil || f.Geometry.IsEmpty() {
			continue
		}
		buffered := geom.Polygonal(f.Geometry.Buffer(distance, quadSegs))
		if buffered == nil {
			continue
		}

		if len(dissolve) == 0 {
			attrs := make(map[string]interface{}, len(f.Attributes))
			for k, v := range f.Attributes {
				attrs[k] = v
			}
			result.Append(geom.Feature{Geometry: buffered, Attributes: attrs})
			continue
		}

		key := dissolveKey(f, dissolve)
		g, ok := groups[key]
		if !ok {
			g = &group{attrs: make(map[string]interface{}, len(dissolve))}
			for _, name := range dissolve {
				g.attrs[name] = f.Attributes[name]
			}
			groups[key] = g
			order = append(order, key)
		}
		g.parts = append(g.parts, buffered)
	}

	for _, key := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g := groups[key]
		merged := geom.Polygonal(geom.UnionAll(g.parts))
		if merged == nil {
			continue
		}
		result.Append(geom.Feature{Geometry: merged, Attributes: g.attrs})
	}

	return result, nil
}

// dissolveKey encodes the dissolve field values of f. The type is part of
// the key so that the string "1" and the number 1 form different groups.
func dissolveKey(f geom.Feature, fields []string) string {
	var sb strings.Builder
	for _, name := range fields {
		v := f.Attributes[name]
		fmt.Fprintf(&sb, "%T:%v\x1f", v, v)
	}
	return sb.String()
}

// Clip cuts every input geometry to the union of the clip polygons it
// overlaps. Input attributes are kept; Shape_Area and Shape_Length are
// recomputed from the clipped geometry. Features left without area are
// dropped.
func Clip(ctx context.Context, in, clip geom.Source) (*geom.FeatureClass, error) {
	if err := requireType(in, geom.GeometryTypePolygon); err != nil {
		return nil, err
	}
	if err := requireType(clip, geom.GeometryTypePolygon); err != nil {
		return nil, err
	}
	if err := geom.CompatibleSpatialRefs(in.ClassSpatialRef(), clip.ClassSpatialRef()); err != nil {
		return nil, err
	}

	spatialRef := in.ClassSpatialRef()
	if spatialRef == "" {
		spatialRef = clip.ClassSpatialRef()
	}
	result := geom.NewFeatureClass(in.ClassName()+"_Clip", geom.GeometryTypePolygon, spatialRef)
	result.Fields = append(result.Fields, in.ClassFields()...)
	result.AddField(geom.Field{Name: ShapeAreaField, Type: geom.FieldTypeDouble})
	result.AddField(geom.Field{Name: ShapeLengthField, Type: geom.FieldTypeDouble})

	clipRows := clip.Rows()
	idx := geom.NewIndex(clipRows)

	for i, f := range in.Rows() {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if f.Geometry == nil || f.Geometry.IsEmpty() {
			continue
		}

		var overlapping []*geos.Geom
		for _, j := range idx.Search(geom.GeometryBounds(f.Geometry)) {
			if f.Geometry.Intersects(clipRows[j].Geometry) {
				overlapping = append(overlapping, clipRows[j].Geometry)
			}
		}
		if len(overlapping) == 0 {
			continue
		}

		mask := geom.UnionAll(overlapping)
		clipped := geom.Polygonal(f.Geometry.Intersection(mask))
		if clipped == nil {
			continue
		}

		attrs := make(map[string]interface{}, len(f.Attributes)+2)
		for k, v := range f.Attributes {
			attrs[k] = v
		}
		attrs[ShapeAreaField] = clipped.Area()
		attrs[ShapeLengthField] = clipped.Length()
		result.Append(geom.Feature{Geometry: clipped, Attributes: attrs})
	}

	return result, nil
}

// CalculateArea sets a Double field on every feature of fc to its planar
// area converted to square meters with linearUnitMeters.
func CalculateArea(fc *geom.FeatureClass, field string, linearUnitMeters float64) error {
	if field == "" {
		return &geom.ErrInvalidParameter{Name: "field", Reason: "must not be empty"}
	}
	if math.IsNaN(linearUnitMeters) || math.IsInf(linearUnitMeters, 0) || linearUnitMeters <= 0 {
		return &geom.ErrInvalidParameter{
			Name:   "linear_unit_meters",
			Value:  strconv.FormatFloat(linearUnitMeters, 'g', -1, 64),
			Reason: "must be positive",
		}
	}

	factor := linearUnitMeters * linearUnitMeters
	fc.AddField(geom.Field{Name: field, Type: geom.FieldTypeDouble})
	for i := range fc.Features {
		f := &fc.Features[i]
		area := 0.0
		if f.Geometry != nil && !f.Geometry.IsEmpty() {
			area = f.Geometry.Area() * factor
		}
		f.Attributes[field] = area
	}
	return nil
}

// requireType fails unless src holds geometries of type t. A source with
// no rows is accepted whatever its declared type.
func requireType(src geom.Source, t geom.GeometryType) error {
	if len(src.Rows()) == 0 {
		return nil
	}
	if got := src.ClassGeometryType(); got != t {
		return &geom.ErrGeometryTypeMismatch{Class: src.ClassName(), Expected: t, Got: got}
	}
	return nil
}

func fieldOf(src geom.Source, name string) (geom.Field, bool) {
	for _, f := range src.ClassFields() {
		if f.Name == name {
			return f, true
		}
	}
	return geom.Field{}, false
}
