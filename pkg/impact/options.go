package impact

import (
	"io"
	"log/slog"

	"github.com/beetlebugorg/reefimpact/internal/config"
)

// Options configures a pipeline run.
type Options struct {
	// LinkField is the target attribute that links results back to
	// targets. It is the dissolve key of the buffer stage and the first
	// exported column. Default "Reef".
	LinkField string

	// LengthField is the derived length attribute used by the line
	// pipeline's selection. Default "LENGTH".
	LengthField string

	// AreaField is the area attribute computed by the point pipeline.
	// Default "Area_m2".
	AreaField string

	// QuadSegments is the number of segments used to approximate a
	// quarter circle in buffers. Default 8.
	QuadSegments int

	// LinearUnitMeters converts one coordinate unit to meters when
	// computing AreaField. Default 1 (metric projected data).
	LinearUnitMeters float64

	// CSVDelimiter separates exported columns. Default ','.
	CSVDelimiter rune

	// Cache, when set, supplies target datasets so that runs sharing
	// targets decode them once.
	Cache *DatasetCache

	Logger *slog.Logger
}

// Option is a functional option for Run.
type Option func(*Options)

// DefaultOptions returns options with the default field names and a
// logger that discards output.
func DefaultOptions() Options {
	return Options{
		LinkField:        config.DefaultLinkField,
		LengthField:      config.DefaultLengthField,
		AreaField:        config.DefaultAreaField,
		QuadSegments:     config.DefaultQuadSegments,
		LinearUnitMeters: config.DefaultLinearUnitMeters,
		CSVDelimiter:     ',',
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithConfig applies the values of a loaded configuration file.
func WithConfig(cfg *config.Config) Option {
	return func(o *Options) {
		if cfg == nil {
			return
		}
		o.LinkField = cfg.GetLinkField()
		o.LengthField = cfg.GetLengthField()
		o.AreaField = cfg.GetAreaField()
		o.QuadSegments = cfg.GetQuadSegments()
		o.LinearUnitMeters = cfg.GetLinearUnitMeters()
		o.CSVDelimiter = cfg.GetCSVDelimiter()
	}
}

// WithCache shares a target dataset cache between runs.
func WithCache(cache *DatasetCache) Option {
	return func(o *Options) {
		o.Cache = cache
	}
}

// WithLinkField overrides the link field name.
func WithLinkField(name string) Option {
	return func(o *Options) {
		o.LinkField = name
	}
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
