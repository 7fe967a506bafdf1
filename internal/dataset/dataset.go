// Package dataset reads event and target datasets from GeoJSON
// FeatureCollection files into feature classes.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/beetlebugorg/reefimpact/internal/geom"
	"github.com/twpayne/go-geos"
)

// Description identifies a dataset on disk.
type Description struct {
	// Path is the cleaned dataset path.
	Path string
	// BaseName is the file name without directory or extension.
	// It is the run identifier used to name every output.
	BaseName string
	// Format is the lower-case file extension without the dot.
	Format string
}

// supportedFormats lists the accepted file extensions.
var supportedFormats = map[string]bool{
	"geojson": true,
	"json":    true,
}

// ErrUnsupportedFormat indicates a dataset file type the reader cannot decode
type ErrUnsupportedFormat struct {
	Path   string
	Format string
}

func (e *ErrUnsupportedFormat) Error() string {
	return fmt.Sprintf("unsupported dataset format %q: %s", e.Format, e.Path)
}

// Describe checks that a dataset exists and derives its base name.
func Describe(path string) (Description, error) {
	clean := filepath.Clean(path)

	info, err := os.Stat(clean)
	if err != nil {
		return Description{}, fmt.Errorf("describe dataset: %w", err)
	}
	if info.IsDir() {
		return Description{}, fmt.Errorf("describe dataset: %s is a directory", clean)
	}

	ext := filepath.Ext(clean)
	format := strings.ToLower(strings.TrimPrefix(ext, "."))
	if !supportedFormats[format] {
		return Description{}, &ErrUnsupportedFormat{Path: clean, Format: format}
	}

	return Description{
		Path:     clean,
		BaseName: strings.TrimSuffix(filepath.Base(clean), ext),
		Format:   format,
	}, nil
}

// Load reads a dataset into a feature class named after its base name.
func Load(path string) (*geom.FeatureClass, error) {
	desc, err := Describe(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(desc.Path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	fc, err := Decode(f, desc.BaseName)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", desc.Path, err)
	}
	return fc, nil
}

type featureCollection struct {
	Type     string           `json:"type"`
	CRS      *crs             `json:"crs,omitempty"`
	Features []geojsonFeature `json:"features"`
}

// crs is the legacy (2008) GeoJSON named coordinate reference system member.
type crs struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

type geojsonFeature struct {
	Type       string          `json:"type"`
	ID         interface{}     `json:"id,omitempty"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties json.RawMessage `json:"properties"`
}

// Decode reads a GeoJSON FeatureCollection into a feature class.
//
// Features with a null geometry are skipped. Fields are defined in the order
// their names first appear in the document; the type of a field is inferred
// from its first non-null value.
func Decode(r io.Reader, name string) (*geom.FeatureClass, error) {
	var doc featureCollection
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse GeoJSON: %w", err)
	}
	if doc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected FeatureCollection, got %q", doc.Type)
	}

	spatialRef := ""
	if doc.CRS != nil {
		spatialRef = NormalizeCRS(doc.CRS.Properties.Name)
	}

	fc := geom.NewFeatureClass(name, geom.GeometryTypeUnknown, spatialRef)
	typed := make(map[string]bool)

	for i, feature := range doc.Features {
		if len(feature.Geometry) == 0 || bytes.Equal(bytes.TrimSpace(feature.Geometry), []byte("null")) {
			continue
		}

		g, err := geos.NewGeomFromGeoJSON(string(feature.Geometry))
		if err != nil {
			return nil, fmt.Errorf("feature %d: parse geometry: %w", i, err)
		}

		keys, attrs, err := decodeProperties(feature.Properties)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}

		for _, key := range keys {
			v := attrs[key]
			if !fc.HasField(key) {
				fc.AddField(geom.Field{Name: key, Type: geom.FieldTypeString})
			}
			if v != nil && !typed[key] {
				fc.AddField(geom.Field{Name: key, Type: geom.InferFieldType(v)})
				typed[key] = true
			}
		}

		if fc.GeometryType == geom.GeometryTypeUnknown && !g.IsEmpty() {
			fc.GeometryType = geom.TypeOf(g)
		}

		fc.Append(geom.Feature{Geometry: g, Attributes: attrs})
	}

	if err := geom.ValidateFeatureClass(fc); err != nil {
		return nil, err
	}

	return fc, nil
}

// decodeProperties decodes a GeoJSON properties object, returning its keys
// in document order alongside the values.
func decodeProperties(raw json.RawMessage) ([]string, map[string]interface{}, error) {
	attrs := make(map[string]interface{})
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, attrs, nil
	}

	if err := json.Unmarshal(raw, &attrs); err != nil {
		return nil, nil, fmt.Errorf("parse properties: %w", err)
	}

	// Walk the object a second time to recover key order
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("parse properties: %w", err)
	}
	keys := make([]string, 0, len(attrs))
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("parse properties: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("parse properties: unexpected token %v", tok)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, nil, fmt.Errorf("parse properties: %w", err)
		}
		keys = append(keys, key)
	}

	return keys, attrs, nil
}

var urnEPSG = regexp.MustCompile(`(?i)^urn:ogc:def:crs:EPSG:[^:]*:(\d+)$`)

// NormalizeCRS maps the common spellings of an EPSG code to "EPSG:<code>".
// Other names are returned unchanged.
func NormalizeCRS(name string) string {
	name = strings.TrimSpace(name)
	if m := urnEPSG.FindStringSubmatch(name); m != nil {
		return "EPSG:" + m[1]
	}
	if strings.HasPrefix(strings.ToUpper(name), "EPSG:") {
		return "EPSG:" + name[len("EPSG:"):]
	}
	return name
}
