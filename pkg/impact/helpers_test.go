package impact

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"

	"github.com/beetlebugorg/reefimpact/internal/geom"
)

func mustWKT(t *testing.T, wkt string) *geos.Geom {
	t.Helper()
	g, err := geos.NewGeomFromWKT(wkt)
	require.NoError(t, err, "parse %s", wkt)
	return g
}

// classOf builds a feature class from WKT and attribute maps.
func classOf(t *testing.T, name string, gt geom.GeometryType, fields []geom.Field, rows ...interface{}) *geom.FeatureClass {
	t.Helper()
	require.Equal(t, 0, len(rows)%2, "rows must be (wkt, attrs) pairs")

	fc := geom.NewFeatureClass(name, gt, "")
	fc.Fields = fields
	for i := 0; i < len(rows); i += 2 {
		attrs, _ := rows[i+1].(map[string]interface{})
		fc.Append(geom.Feature{
			Geometry:   mustWKT(t, rows[i].(string)),
			Attributes: attrs,
		})
	}
	return fc
}

func reefField() []geom.Field {
	return []geom.Field{{Name: "Reef", Type: geom.FieldTypeString}}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const reefsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"Reef": "Alpha"},
     "geometry": {"type": "Polygon", "coordinates": [[[20,0],[120,0],[120,100],[20,100],[20,0]]]}}
  ]
}`

const trawlGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"Vessel": "V1"},
     "geometry": {"type": "LineString", "coordinates": [[0,50],[150,50]]}},
    {"type": "Feature", "properties": {"Vessel": "V2"},
     "geometry": {"type": "LineString", "coordinates": [[30,20],[130,20]]}},
    {"type": "Feature", "properties": {"Vessel": "V3"},
     "geometry": {"type": "LineString", "coordinates": [[30,80],[80,80]]}}
  ]
}`

const potsGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"Set": 1},
     "geometry": {"type": "Point", "coordinates": [50,50]}},
    {"type": "Feature", "properties": {"Set": 2},
     "geometry": {"type": "Point", "coordinates": [500,500]}}
  ]
}`

const squareGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"Reef": "Square"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[100,0],[100,100],[0,100],[0,0]]]}}
  ]
}`
