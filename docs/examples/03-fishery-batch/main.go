package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/beetlebugorg/reefimpact/pkg/impact"
)

func main() {
	paths, err := filepath.Glob("fisheries/*.geojson")
	if err != nil {
		log.Fatal(err)
	}

	var params []impact.Params
	for _, path := range paths {
		params = append(params, impact.Params{
			Kind:           impact.KindPoints,
			Events:         path,
			BufferDistance: 15,
			Targets:        "reefs.geojson",
			OutDir:         "out",
		})
	}

	results, errs := impact.RunBatch(context.Background(), params, impact.BatchOptions{
		Parallel:   true,
		Workers:    4,
		SkipErrors: true,
		Progress: func(done, total int) {
			fmt.Printf("\rRuns: %d/%d", done, total)
		},
		ErrorLog: os.Stderr,
	})
	fmt.Println()

	for _, r := range results {
		fmt.Printf("%-24s %6d rows %12.1f\n", r.BaseName, r.Rows, r.TotalArea)
	}
	if len(errs) > 0 {
		fmt.Printf("%d fisheries failed\n", len(errs))
		os.Exit(1)
	}
}
