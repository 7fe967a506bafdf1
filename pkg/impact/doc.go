// Package impact estimates the target (reef) area disturbed by fishing
// events.
//
// Two pipelines compose the same geoprocessing stages:
//
//   - Lines: AddGeometryLength, SelectLongerThan, Intersect (line output),
//     Buffer dissolved on the link field, Clip to the full target set, and
//     ExportCSV of (link, Shape_Area).
//   - Points: Intersect (point output), Buffer, Clip, CalculateArea and
//     ExportCSV of (link, Area_m2).
//
// Each stage is a function from feature collections to a new feature
// class. Run wires them together and stores every stage output in a
// per-run workspace named after the events dataset.
//
// # Basic Usage
//
//	params, err := impact.ParseArgs(impact.KindLines, []string{
//	    "trawl.geojson", "100", "10", "reefs.geojson", "out",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := impact.Run(ctx, params, impact.WithLogger(slog.Default()))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%s: %d rows, %.1f m²\n", result.CSVPath, result.Rows, result.TotalArea)
//
// # Batch Runs
//
// RunBatch runs several event datasets against shared targets, decoding
// the targets once:
//
//	results, errs := impact.RunBatch(ctx, params, impact.DefaultBatchOptions())
//
// # Using Stages Directly
//
// The stages operate on geom.Source values and can be composed freely:
//
//	hits, err := impact.Intersect(ctx, events, reefs, geom.GeometryTypePoint)
//	zones, err := impact.Buffer(ctx, hits, 25, []string{"Reef"}, 8)
//	final, err := impact.Clip(ctx, zones, reefs)
//
// Geometry operations are performed by GEOS. Distances and areas are
// planar, in the units of the dataset coordinates.
package impact
