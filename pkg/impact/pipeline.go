package impact

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"

	"github.com/beetlebugorg/reefimpact/internal/dataset"
	"github.com/beetlebugorg/reefimpact/internal/geom"
	"github.com/beetlebugorg/reefimpact/internal/workspace"
)

// Suffixes of the feature classes a run stores in its workspace.
const (
	EventsSuffix    = "_Events"
	IntersectSuffix = "_Intersect"
	BufferSuffix    = "_Buffer"
	FinalSuffix     = "_Final"
	CSVSuffix       = "_Area.csv"
)

// StageCounts records the number of features produced by each stage.
type StageCounts struct {
	Events      int `json:"events"`
	Selected    int `json:"selected"`
	Intersected int `json:"intersected"`
	Buffered    int `json:"buffered"`
	Final       int `json:"final"`
}

// Result describes a completed run.
type Result struct {
	RunID    string
	Kind     Kind
	BaseName string
	// Workspace is the path of the <base>.gdb container.
	Workspace string
	// CSVPath is the path of the exported <base>_Area.csv table.
	CSVPath string
	// Rows is the number of data rows in the CSV.
	Rows   int
	Counts StageCounts
	// TotalArea is the sum of the exported area column. It is reported
	// only; the CSV holds one row per final feature.
	TotalArea float64
	Duration  time.Duration
}

// Run executes one pipeline end to end.
//
// The run is named after the events dataset base name. Its workspace
// <OutDir>/<base>.gdb is recreated, so rerunning with the same inputs
// replaces every output. Stages run strictly in order and cancellation is
// checked between them.
func Run(ctx context.Context, params Params, opts ...Option) (*Result, error) {
	o := buildOptions(opts)
	start := time.Now()

	// Stage 1: parameters and workspace
	if err := geom.ValidateDistance("buffer_distance", params.BufferDistance); err != nil {
		return nil, err
	}
	if params.Kind == KindLines {
		if err := geom.ValidateDistance("length_bound", params.LengthBound); err != nil {
			return nil, err
		}
	}

	desc, err := dataset.Describe(params.Events)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	if _, err := dataset.Describe(params.Targets); err != nil {
		return nil, fmt.Errorf("targets: %w", err)
	}

	base := desc.BaseName
	logger := o.Logger.With("run", base, "pipeline", params.Kind.String())
	runID := uuid.NewString()

	events, err := dataset.Load(desc.Path)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	targets, err := loadTargets(params.Targets, o.Cache)
	if err != nil {
		return nil, fmt.Errorf("targets: %w", err)
	}
	if err := geom.RequireFields(targets, o.LinkField); err != nil {
		return nil, err
	}

	ws, err := workspace.Create(ctx, params.OutDir, base, workspace.WithLogger(o.Logger))
	if err != nil {
		return nil, err
	}
	defer ws.Close()

	if err := ws.RecordRun(ctx, runID, params); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:     runID,
		Kind:      params.Kind,
		BaseName:  base,
		Workspace: ws.Path(),
		CSVPath:   filepath.Join(params.OutDir, base+CSVSuffix),
	}
	result.Counts.Events = events.FeatureCount()

	// Stage 2: preparation and selection
	var (
		overlayInput geom.Source = events
		overlayType              = geom.GeometryTypePoint
	)
	if params.Kind == KindLines {
		logger.Info("Selecting fishing events...")
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		prepared, err := AddGeometryLength(events, o.LengthField)
		if err != nil {
			return nil, fmt.Errorf("add geometry length: %w", err)
		}
		prepared.Name = base + EventsSuffix
		if err := ws.Save(ctx, prepared); err != nil {
			return nil, err
		}

		selected, err := SelectLongerThan(prepared, o.LengthField, params.LengthBound)
		if err != nil {
			return nil, fmt.Errorf("select events: %w", err)
		}
		overlayInput = selected
		overlayType = geom.GeometryTypeLineString
	}
	result.Counts.Selected = len(overlayInput.Rows())
	logger.Debug("events selected", "total", result.Counts.Events, "selected", result.Counts.Selected)

	// Stage 3: overlay
	logger.Info("Intersecting fishing with polygons...")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	intersected, err := Intersect(ctx, overlayInput, targets, overlayType)
	if err != nil {
		return nil, fmt.Errorf("intersect: %w", err)
	}
	intersected.Name = base + IntersectSuffix
	if err := ws.Save(ctx, intersected); err != nil {
		return nil, err
	}
	result.Counts.Intersected = intersected.FeatureCount()

	// Stage 4: expand and re-clip
	logger.Info("Buffering...")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buffered, err := Buffer(ctx, intersected, params.BufferDistance, []string{o.LinkField}, o.QuadSegments)
	if err != nil {
		return nil, fmt.Errorf("buffer: %w", err)
	}
	buffered.Name = base + BufferSuffix
	if err := ws.Save(ctx, buffered); err != nil {
		return nil, err
	}
	result.Counts.Buffered = buffered.FeatureCount()

	logger.Info("Clipping...")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	final, err := Clip(ctx, buffered, targets)
	if err != nil {
		return nil, fmt.Errorf("clip: %w", err)
	}
	final.Name = base + FinalSuffix

	areaField := ShapeAreaField
	if params.Kind == KindPoints {
		if err := CalculateArea(final, o.AreaField, o.LinearUnitMeters); err != nil {
			return nil, fmt.Errorf("calculate area: %w", err)
		}
		areaField = o.AreaField
	}
	if err := ws.Save(ctx, final); err != nil {
		return nil, err
	}
	result.Counts.Final = final.FeatureCount()

	// Stage 5: summarize and export
	logger.Info("Exporting attribute table...")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := ExportCSV(final, []string{o.LinkField, areaField}, result.CSVPath, o.CSVDelimiter)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	result.Rows = rows
	result.TotalArea = totalArea(final, areaField)
	result.Duration = time.Since(start)

	logger.Info("run complete",
		"run_id", runID,
		"rows", rows,
		"total_area", result.TotalArea,
		"csv", result.CSVPath,
		"duration", result.Duration)

	return result, nil
}

func loadTargets(path string, cache *DatasetCache) (*geom.FeatureClass, error) {
	if cache != nil {
		return cache.Load(path)
	}
	return dataset.Load(path)
}

func totalArea(fc *geom.FeatureClass, field string) float64 {
	areas := make([]float64, 0, fc.FeatureCount())
	for _, f := range fc.Features {
		if v, err := geom.Float(f.Attributes[field]); err == nil {
			areas = append(areas, v)
		}
	}
	return floats.Sum(areas)
}
