// Package config loads optional tool settings from a JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"unicode/utf8"
)

// DefaultConfigPath is the path to the canonical defaults file.
const DefaultConfigPath = "config/areaimpact.defaults.json"

// Default values used when a field is not set.
const (
	DefaultLinkField        = "Reef"
	DefaultLengthField      = "LENGTH"
	DefaultAreaField        = "Area_m2"
	DefaultQuadSegments     = 8
	DefaultLinearUnitMeters = 1.0
	DefaultCSVDelimiter     = ","
	DefaultCacheBytes       = 256 * 1024 * 1024
)

// Config holds tool settings. Every field is optional; the Get* methods
// return defaults for fields left unset.
type Config struct {
	// LinkField is the target attribute linking results to targets.
	LinkField *string `json:"link_field,omitempty"`
	// LengthField is the derived geometry length attribute of line events.
	LengthField *string `json:"length_field,omitempty"`
	// AreaField is the computed area attribute of point-event results.
	AreaField *string `json:"area_field,omitempty"`

	// QuadSegments is the number of segments per quarter circle in buffers.
	QuadSegments *int `json:"quad_segments,omitempty"`
	// LinearUnitMeters converts one dataset coordinate unit to meters.
	LinearUnitMeters *float64 `json:"linear_unit_meters,omitempty"`

	CSVDelimiter *string `json:"csv_delimiter,omitempty"`

	// Workers is the batch worker count; 0 means one per CPU.
	Workers *int `json:"workers,omitempty"`
	// CacheBytes bounds the in-memory target dataset cache.
	CacheBytes *int64 `json:"cache_bytes,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// DefaultConfig returns a Config with every field set to its default.
func DefaultConfig() *Config {
	return &Config{
		LinkField:        ptrString(DefaultLinkField),
		LengthField:      ptrString(DefaultLengthField),
		AreaField:        ptrString(DefaultAreaField),
		QuadSegments:     ptrInt(DefaultQuadSegments),
		LinearUnitMeters: ptrFloat64(DefaultLinearUnitMeters),
		CSVDelimiter:     ptrString(DefaultCSVDelimiter),
		Workers:          ptrInt(0),
		CacheBytes:       ptrInt64(DefaultCacheBytes),
	}
}

// Load loads a Config from a JSON file.
// The file must have a .json extension and be under 1MB. Fields omitted
// from the file keep their defaults, so partial configs are safe.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	for name, v := range map[string]*string{
		"link_field":   c.LinkField,
		"length_field": c.LengthField,
		"area_field":   c.AreaField,
	} {
		if v != nil && *v == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}

	if c.QuadSegments != nil && *c.QuadSegments < 1 {
		return fmt.Errorf("quad_segments must be at least 1, got %d", *c.QuadSegments)
	}

	if c.LinearUnitMeters != nil {
		v := *c.LinearUnitMeters
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("linear_unit_meters must be positive, got %f", v)
		}
	}

	if c.CSVDelimiter != nil {
		d := *c.CSVDelimiter
		if utf8.RuneCountInString(d) != 1 || d == "\"" || d == "\r" || d == "\n" {
			return fmt.Errorf("csv_delimiter must be a single character other than quote or newline, got %q", d)
		}
	}

	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}

	if c.CacheBytes != nil && *c.CacheBytes < 0 {
		return fmt.Errorf("cache_bytes must be non-negative, got %d", *c.CacheBytes)
	}

	return nil
}

// GetLinkField returns the link_field value or the default.
func (c *Config) GetLinkField() string {
	if c.LinkField == nil {
		return DefaultLinkField
	}
	return *c.LinkField
}

// GetLengthField returns the length_field value or the default.
func (c *Config) GetLengthField() string {
	if c.LengthField == nil {
		return DefaultLengthField
	}
	return *c.LengthField
}

// GetAreaField returns the area_field value or the default.
func (c *Config) GetAreaField() string {
	if c.AreaField == nil {
		return DefaultAreaField
	}
	return *c.AreaField
}

// GetQuadSegments returns the quad_segments value or the default.
func (c *Config) GetQuadSegments() int {
	if c.QuadSegments == nil {
		return DefaultQuadSegments
	}
	return *c.QuadSegments
}

// GetLinearUnitMeters returns the linear_unit_meters value or the default.
func (c *Config) GetLinearUnitMeters() float64 {
	if c.LinearUnitMeters == nil {
		return DefaultLinearUnitMeters
	}
	return *c.LinearUnitMeters
}

// GetCSVDelimiter returns the delimiter as a rune.
func (c *Config) GetCSVDelimiter() rune {
	if c.CSVDelimiter == nil || *c.CSVDelimiter == "" {
		return ','
	}
	r, _ := utf8.DecodeRuneInString(*c.CSVDelimiter)
	return r
}

// GetWorkers returns the workers value or the default (0).
func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

// GetCacheBytes returns the cache_bytes value or the default.
func (c *Config) GetCacheBytes() int64 {
	if c.CacheBytes == nil {
		return DefaultCacheBytes
	}
	return *c.CacheBytes
}
