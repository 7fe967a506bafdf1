package impact

import (
	"github.com/beetlebugorg/reefimpact/internal/dataset"
	"github.com/beetlebugorg/reefimpact/internal/geom"
)

// Feature model types, re-exported for callers outside this module.
type (
	FeatureClass = geom.FeatureClass
	Feature      = geom.Feature
	Field        = geom.Field
	Layer        = geom.Layer
	Source       = geom.Source
	Bounds       = geom.Bounds
	GeometryType = geom.GeometryType
)

// Geometry classes accepted by Intersect.
const (
	Point      = geom.GeometryTypePoint
	LineString = geom.GeometryTypeLineString
	Polygon    = geom.GeometryTypePolygon
)

// LoadDataset reads a GeoJSON FeatureCollection into a feature class
// named after the file's base name.
func LoadDataset(path string) (*FeatureClass, error) {
	return dataset.Load(path)
}
