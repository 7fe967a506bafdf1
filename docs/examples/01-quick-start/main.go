package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/beetlebugorg/reefimpact/pkg/impact"
)

func main() {
	// Trawl tracks longer than 100m, buffered by 10m, against reef polygons
	params, err := impact.ParseArgs(impact.KindLines, []string{
		"trawl.geojson", "100", "10", "reefs.geojson", "out",
	})
	if err != nil {
		log.Fatal(err)
	}

	result, err := impact.Run(context.Background(), params, impact.WithLogger(slog.Default()))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Run: %s (%s)\n", result.BaseName, result.RunID)
	fmt.Printf("Workspace: %s\n", result.Workspace)
	fmt.Printf("Table: %s (%d rows)\n", result.CSVPath, result.Rows)
	fmt.Printf("Total impacted area: %.1f\n", result.TotalArea)
}
