package impact

import (
	"fmt"

	"github.com/beetlebugorg/reefimpact/internal/geom"
)

// Kind selects one of the two pipelines.
type Kind int

const (
	// KindLines is the length-filtered line event pipeline.
	KindLines Kind = iota
	// KindPoints is the point event pipeline.
	KindPoints
)

// String returns the command name of the pipeline.
func (k Kind) String() string {
	switch k {
	case KindLines:
		return "lines"
	case KindPoints:
		return "points"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a command name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "lines":
		return KindLines, nil
	case "points":
		return KindPoints, nil
	default:
		return 0, fmt.Errorf("unknown pipeline %q (want lines or points)", s)
	}
}

// Params are the positional tool parameters of one run.
type Params struct {
	Kind   Kind   `json:"kind"`
	Events string `json:"events"`
	// LengthBound is only used by KindLines.
	LengthBound    float64 `json:"length_bound,omitempty"`
	BufferDistance float64 `json:"buffer_distance"`
	Targets        string  `json:"targets"`
	OutDir         string  `json:"out_dir"`
}

// ParseArgs parses positional arguments for a pipeline.
//
// KindLines expects: events, length bound, buffer distance, targets, output
// directory. KindPoints expects: events, buffer distance, targets, output
// directory. Numeric arguments must be finite and non-negative.
func ParseArgs(kind Kind, args []string) (Params, error) {
	p := Params{Kind: kind}

	switch kind {
	case KindLines:
		if len(args) != 5 {
			return Params{}, fmt.Errorf("lines: expected 5 arguments (events lengthBound bufferDist targets outdir), got %d", len(args))
		}
		bound, err := geom.ParseDistance("length_bound", args[1])
		if err != nil {
			return Params{}, err
		}
		dist, err := geom.ParseDistance("buffer_distance", args[2])
		if err != nil {
			return Params{}, err
		}
		p.Events, p.LengthBound, p.BufferDistance = args[0], bound, dist
		p.Targets, p.OutDir = args[3], args[4]

	case KindPoints:
		if len(args) != 4 {
			return Params{}, fmt.Errorf("points: expected 4 arguments (events bufferDist targets outdir), got %d", len(args))
		}
		dist, err := geom.ParseDistance("buffer_distance", args[1])
		if err != nil {
			return Params{}, err
		}
		p.Events, p.BufferDistance = args[0], dist
		p.Targets, p.OutDir = args[2], args[3]

	default:
		return Params{}, fmt.Errorf("unknown pipeline kind %d", int(kind))
	}

	paths := []struct{ name, value string }{
		{"events", p.Events},
		{"targets", p.Targets},
		{"outdir", p.OutDir},
	}
	for _, path := range paths {
		if path.value == "" {
			return Params{}, &geom.ErrInvalidParameter{Name: path.name, Value: path.value, Reason: "must not be empty"}
		}
	}

	return p, nil
}
