package main

import (
	"context"
	"fmt"
	"log"

	"github.com/beetlebugorg/reefimpact/pkg/impact"
)

func main() {
	ctx := context.Background()

	pots, err := impact.LoadDataset("pots.geojson")
	if err != nil {
		log.Fatal(err)
	}
	reefs, err := impact.LoadDataset("reefs.geojson")
	if err != nil {
		log.Fatal(err)
	}

	// Pot drops that landed on a reef
	hits, err := impact.Intersect(ctx, pots, reefs, impact.Point)
	if err != nil {
		log.Fatal(err)
	}

	// 25m disturbance radius, one polygon per reef
	zones, err := impact.Buffer(ctx, hits, 25, []string{"Reef"}, 8)
	if err != nil {
		log.Fatal(err)
	}

	final, err := impact.Clip(ctx, zones, reefs)
	if err != nil {
		log.Fatal(err)
	}
	if err := impact.CalculateArea(final, "Area_m2", 1); err != nil {
		log.Fatal(err)
	}

	for _, f := range final.Features {
		fmt.Printf("%-20v %10.1f m²\n", f.Attributes["Reef"], f.Attributes["Area_m2"])
	}
}
