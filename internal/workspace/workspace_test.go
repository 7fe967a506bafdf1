package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"

	"github.com/beetlebugorg/reefimpact/internal/geom"
)

func testClass(t *testing.T) *geom.FeatureClass {
	t.Helper()
	fc := geom.NewFeatureClass("Trawl_Final", geom.GeometryTypePolygon, "EPSG:32755")
	fc.AddField(geom.Field{Name: "Reef", Type: geom.FieldTypeString})
	fc.AddField(geom.Field{Name: "Count", Type: geom.FieldTypeInteger})
	fc.AddField(geom.Field{Name: "Shape_Area", Type: geom.FieldTypeDouble})

	for _, wkt := range []string{
		"POLYGON ((0 0, 10 0, 10 10, 0 10, 0 0))",
		"POLYGON ((20 0, 30 0, 30 5, 20 5, 20 0))",
	} {
		g, err := geos.NewGeomFromWKT(wkt)
		require.NoError(t, err)
		fc.Append(geom.Feature{
			Geometry: g,
			Attributes: map[string]interface{}{
				"Reef":       "Outer",
				"Count":      int64(3),
				"Shape_Area": g.Area(),
			},
		})
	}
	return fc
}

func TestCreateSaveLoad(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	ws, err := Create(ctx, dir, "Trawl")
	require.NoError(t, err)
	defer ws.Close()

	assert.Equal(t, filepath.Join(dir, "Trawl.gdb"), ws.Path())
	assert.Equal(t, "Trawl", ws.Name())

	version, dirty, err := ws.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	fc := testClass(t)
	require.NoError(t, ws.Save(ctx, fc))

	loaded, err := ws.Load(ctx, "Trawl_Final")
	require.NoError(t, err)

	assert.Equal(t, geom.GeometryTypePolygon, loaded.GeometryType)
	assert.Equal(t, "EPSG:32755", loaded.SpatialRef)
	if diff := cmp.Diff(fc.Fields, loaded.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, 2, loaded.FeatureCount())
	for i := range fc.Features {
		want, got := fc.Features[i], loaded.Features[i]
		assert.Equal(t, want.ID, got.ID)
		assert.True(t, want.Geometry.Equals(got.Geometry), "geometry %d differs", i)
		if diff := cmp.Diff(want.Attributes, got.Attributes); diff != "" {
			t.Errorf("attributes %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestSaveOverwritesClass(t *testing.T) {
	ctx := context.Background()
	ws, err := Create(ctx, t.TempDir(), "Trawl")
	require.NoError(t, err)
	defer ws.Close()

	fc := testClass(t)
	require.NoError(t, ws.Save(ctx, fc))

	fc.Features = fc.Features[:1]
	require.NoError(t, ws.Save(ctx, fc))

	loaded, err := ws.Load(ctx, fc.Name)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.FeatureCount())

	classes, err := ws.List(ctx)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, ClassInfo{Name: "Trawl_Final", GeometryType: geom.GeometryTypePolygon, FeatureCount: 1}, classes[0])
}

func TestCreateReplacesExisting(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	ws, err := Create(ctx, dir, "Trawl")
	require.NoError(t, err)
	require.NoError(t, ws.Save(ctx, testClass(t)))
	require.NoError(t, ws.RecordRun(ctx, "run-1", map[string]string{"bound": "100"}))
	require.NoError(t, ws.Close())

	ws, err = Create(ctx, dir, "Trawl")
	require.NoError(t, err)
	defer ws.Close()

	classes, err := ws.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, classes, "a recreated workspace starts empty")

	ids, err := ws.RunIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLoadMissingClass(t *testing.T) {
	ctx := context.Background()
	ws, err := Create(ctx, t.TempDir(), "Trawl")
	require.NoError(t, err)
	defer ws.Close()

	_, err = ws.Load(ctx, "Nope")
	var notFound *ErrClassNotFound
	assert.True(t, errors.As(err, &notFound), "got %v", err)
}

func TestCreateBadDirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := Create(ctx, filepath.Join(dir, "missing"), "Trawl")
	assert.True(t, errors.Is(err, os.ErrNotExist), "got %v", err)

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Create(ctx, file, "Trawl")
	assert.Error(t, err)
}

func TestOpenExisting(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	ws, err := Create(ctx, dir, "Trawl")
	require.NoError(t, err)
	require.NoError(t, ws.RecordRun(ctx, "run-1", nil))
	require.NoError(t, ws.Close())

	ws, err = Open(ctx, filepath.Join(dir, "Trawl.gdb"))
	require.NoError(t, err)
	defer ws.Close()

	assert.Equal(t, "Trawl", ws.Name())
	ids, err := ws.RunIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1"}, ids)
}
