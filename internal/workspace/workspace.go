// Package workspace implements the per-run spatial data container.
//
// A workspace is a single SQLite file named <name>.gdb holding every
// intermediate and final feature class of one run. Creating a workspace
// always replaces any container of the same name.
package workspace

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/twpayne/go-geos"
	_ "modernc.org/sqlite"

	"github.com/beetlebugorg/reefimpact/internal/geom"
)

// Extension is appended to the run name to form the container file name.
const Extension = ".gdb"

// sideFiles are SQLite companions removed together with the container.
var sideFiles = []string{"-journal", "-wal", "-shm"}

// ErrClassNotFound indicates a feature class missing from the workspace
type ErrClassNotFound struct {
	Name string
}

func (e *ErrClassNotFound) Error() string {
	return fmt.Sprintf("feature class %q not found in workspace", e.Name)
}

// Workspace is an open per-run container.
type Workspace struct {
	db     *sql.DB
	path   string
	name   string
	logger *slog.Logger
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the logger used for workspace and migration messages.
func WithLogger(logger *slog.Logger) Option {
	return func(ws *Workspace) {
		if logger != nil {
			ws.logger = logger
		}
	}
}

// Path returns the container file path.
func Path(dir, name string) string {
	return filepath.Join(dir, name+Extension)
}

// Create creates a fresh workspace <dir>/<name>.gdb, replacing any existing
// container with the same name.
//
// Fails if dir is not an existing, writable directory.
func Create(ctx context.Context, dir, name string, opts ...Option) (*Workspace, error) {
	if err := checkWritableDir(dir); err != nil {
		return nil, err
	}

	path := Path(dir, name)
	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing workspace: %w", err)
	}
	for _, suffix := range sideFiles {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove existing workspace: %w", err)
		}
	}

	ws, err := open(ctx, path, name, opts...)
	if err != nil {
		return nil, err
	}
	ws.logger.Debug("workspace created", "path", path)
	return ws, nil
}

// Open opens an existing workspace file.
func Open(ctx context.Context, path string, opts ...Option) (*Workspace, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}
	name := filepath.Base(path)
	name = name[:len(name)-len(filepath.Ext(name))]
	return open(ctx, path, name, opts...)
}

func open(ctx context.Context, path, name string, opts ...Option) (*Workspace, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open workspace: %w", err)
	}
	// SQLite allows one writer; a single connection keeps stages ordered.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open workspace: %w", err)
	}

	ws := &Workspace{
		db:     db,
		path:   path,
		name:   name,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(ws)
	}

	if err := ws.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}

	return ws, nil
}

func checkWritableDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output directory: %s is not a directory", dir)
	}

	probe, err := os.CreateTemp(dir, ".reefimpact-*")
	if err != nil {
		return fmt.Errorf("output directory not writable: %w", err)
	}
	probe.Close()
	return os.Remove(probe.Name())
}

// Path returns the container file path.
func (ws *Workspace) Path() string { return ws.path }

// Name returns the run name the workspace was created for.
func (ws *Workspace) Name() string { return ws.name }

// Close closes the underlying database.
func (ws *Workspace) Close() error {
	return ws.db.Close()
}

// RecordRun stores the run identifier and its parameters.
func (ws *Workspace) RecordRun(ctx context.Context, runID string, params interface{}) error {
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode run params: %w", err)
	}
	_, err = ws.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, name, params) VALUES (?, ?, ?)`,
		runID, ws.name, string(data))
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RunIDs returns the identifiers of the runs recorded in the workspace.
func (ws *Workspace) RunIDs(ctx context.Context) ([]string, error) {
	rows, err := ws.db.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// fieldRecord is the stored form of a field definition.
type fieldRecord struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Save writes a feature class, replacing any class with the same name.
func (ws *Workspace) Save(ctx context.Context, fc *geom.FeatureClass) error {
	fields := make([]fieldRecord, len(fc.Fields))
	for i, f := range fc.Fields {
		fields[i] = fieldRecord{Name: f.Name, Type: f.Type.String()}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	tx, err := ws.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save %s: %w", fc.Name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM features WHERE class_name = ?`, fc.Name); err != nil {
		return fmt.Errorf("save %s: %w", fc.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM feature_classes WHERE name = ?`, fc.Name); err != nil {
		return fmt.Errorf("save %s: %w", fc.Name, err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO feature_classes (name, geometry_type, spatial_ref, fields, feature_count)
		 VALUES (?, ?, ?, ?, ?)`,
		fc.Name, fc.GeometryType.String(), fc.SpatialRef, string(fieldsJSON), len(fc.Features))
	if err != nil {
		return fmt.Errorf("save %s: %w", fc.Name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO features (class_name, fid, geometry, attributes) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save %s: %w", fc.Name, err)
	}
	defer stmt.Close()

	for _, f := range fc.Features {
		var wkb []byte
		if f.Geometry != nil {
			wkb = f.Geometry.ToWKB()
		}
		attrs, err := json.Marshal(f.Attributes)
		if err != nil {
			return fmt.Errorf("save %s: feature %d: %w", fc.Name, f.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, fc.Name, f.ID, wkb, string(attrs)); err != nil {
			return fmt.Errorf("save %s: feature %d: %w", fc.Name, f.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save %s: %w", fc.Name, err)
	}

	ws.logger.Debug("feature class saved", "class", fc.Name, "features", len(fc.Features))
	return nil
}

// Load reads a feature class back from the workspace.
func (ws *Workspace) Load(ctx context.Context, name string) (*geom.FeatureClass, error) {
	var geomType, spatialRef, fieldsJSON string
	err := ws.db.QueryRowContext(ctx,
		`SELECT geometry_type, spatial_ref, fields FROM feature_classes WHERE name = ?`, name).
		Scan(&geomType, &spatialRef, &fieldsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &ErrClassNotFound{Name: name}
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	var records []fieldRecord
	if err := json.Unmarshal([]byte(fieldsJSON), &records); err != nil {
		return nil, fmt.Errorf("load %s: decode fields: %w", name, err)
	}

	fc := geom.NewFeatureClass(name, geom.ParseGeometryType(geomType), spatialRef)
	for _, r := range records {
		fc.AddField(geom.Field{Name: r.Name, Type: geom.ParseFieldType(r.Type)})
	}

	rows, err := ws.db.QueryContext(ctx,
		`SELECT fid, geometry, attributes FROM features WHERE class_name = ? ORDER BY fid`, name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			fid   int64
			wkb   []byte
			attrs string
		)
		if err := rows.Scan(&fid, &wkb, &attrs); err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}

		var g *geos.Geom
		if len(wkb) > 0 {
			g, err = geos.NewGeomFromWKB(wkb)
			if err != nil {
				return nil, fmt.Errorf("load %s: feature %d: %w", name, fid, err)
			}
		}

		values, err := decodeAttributes(attrs, fc)
		if err != nil {
			return nil, fmt.Errorf("load %s: feature %d: %w", name, fid, err)
		}

		fc.Append(geom.Feature{ID: fid, Geometry: g, Attributes: values})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}

	return fc, nil
}

// decodeAttributes restores attribute values with the Go types their
// field definitions call for.
func decodeAttributes(data string, fc *geom.FeatureClass) (map[string]interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()

	raw := make(map[string]interface{})
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}

	for k, v := range raw {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		field, _ := fc.Field(k)
		if field.Type == geom.FieldTypeDouble {
			f, err := n.Float64()
			if err != nil {
				return nil, err
			}
			raw[k] = f
			continue
		}
		if i, err := n.Int64(); err == nil && field.Type == geom.FieldTypeInteger {
			raw[k] = i
			continue
		}
		f, err := n.Float64()
		if err != nil {
			return nil, err
		}
		raw[k] = f
	}

	return raw, nil
}

// ClassInfo summarises a stored feature class.
type ClassInfo struct {
	Name         string
	GeometryType geom.GeometryType
	FeatureCount int
}

// List returns the stored feature classes in the order they were saved.
func (ws *Workspace) List(ctx context.Context) ([]ClassInfo, error) {
	rows, err := ws.db.QueryContext(ctx,
		`SELECT name, geometry_type, feature_count FROM feature_classes ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list feature classes: %w", err)
	}
	defer rows.Close()

	var classes []ClassInfo
	for rows.Next() {
		var (
			info     ClassInfo
			geomType string
		)
		if err := rows.Scan(&info.Name, &geomType, &info.FeatureCount); err != nil {
			return nil, fmt.Errorf("list feature classes: %w", err)
		}
		info.GeometryType = geom.ParseGeometryType(geomType)
		classes = append(classes, info)
	}
	return classes, rows.Err()
}
