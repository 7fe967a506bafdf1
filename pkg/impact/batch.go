package impact

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/beetlebugorg/reefimpact/internal/config"
	"github.com/beetlebugorg/reefimpact/internal/dataset"
)

// BatchOptions controls concurrent execution of several runs.
type BatchOptions struct {
	// Parallel enables concurrent runs using a worker pool.
	Parallel bool

	// Workers is the number of runs executed at once.
	// If 0, defaults to runtime.NumCPU(). Only used when Parallel is true.
	Workers int

	// SkipErrors continues with the remaining runs when one fails and
	// collects the errors. When false, the first error cancels the batch.
	SkipErrors bool

	// Progress is called after each run finishes, successfully or not,
	// with the number of runs finished so far and the total.
	Progress func(done, total int)

	// ErrorLog receives one line per failed run.
	ErrorLog io.Writer
}

// DefaultBatchOptions returns batch options with sensible defaults.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		Parallel:   true,
		Workers:    runtime.NumCPU(),
		SkipErrors: true,
	}
}

// RunBatch executes one run per Params entry.
//
// Runs typically differ only in their events dataset (one per fishery) and
// share targets, which are decoded once through a DatasetCache unless one
// is supplied with WithCache. Every run writes its own workspace, so two
// entries resolving to the same output directory and base name are
// rejected up front.
//
// Results are returned in input order; failed runs are omitted and their
// errors returned in the error slice.
//
// Example:
//
//	results, errs := impact.RunBatch(ctx, params, impact.BatchOptions{
//	    Parallel:   true,
//	    Workers:    4,
//	    SkipErrors: true,
//	    Progress: func(done, total int) {
//	        fmt.Printf("\rRuns: %d/%d", done, total)
//	    },
//	    ErrorLog: os.Stderr,
//	})
func RunBatch(ctx context.Context, params []Params, opts BatchOptions, runOpts ...Option) ([]*Result, []error) {
	if len(params) == 0 {
		return []*Result{}, nil
	}

	if err := checkDistinctRuns(params); err != nil {
		return nil, []error{err}
	}

	if buildOptions(runOpts).Cache == nil {
		shared := []Option{WithCache(NewDatasetCache(config.DefaultCacheBytes))}
		runOpts = append(shared, runOpts...)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !opts.Parallel {
		return runBatchSerial(ctx, params, opts, runOpts)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(params) {
		workers = len(params)
	}

	type runResult struct {
		index  int
		result *Result
		err    error
	}

	jobs := make(chan int, len(params))
	results := make(chan runResult, len(params))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				if err := ctx.Err(); err != nil {
					results <- runResult{index: index, err: err}
					continue
				}
				res, err := Run(ctx, params[index], runOpts...)
				results <- runResult{index: index, result: res, err: err}
			}
		}()
	}

	for i := range params {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	byIndex := make(map[int]*Result)
	var errs []error
	var firstErr error
	done := 0

	for r := range results {
		done++
		if opts.Progress != nil {
			opts.Progress(done, len(params))
		}

		if r.err != nil {
			err := fmt.Errorf("%s: %w", params[r.index].Events, r.err)
			if opts.ErrorLog != nil {
				fmt.Fprintf(opts.ErrorLog, "Error running %s: %v\n", params[r.index].Kind, err)
			}
			if opts.SkipErrors {
				errs = append(errs, err)
				continue
			}
			if firstErr == nil {
				firstErr = err
				cancel()
			}
			continue
		}

		byIndex[r.index] = r.result
	}

	if firstErr != nil {
		return nil, []error{firstErr}
	}

	ordered := make([]*Result, 0, len(byIndex))
	for i := range params {
		if res, ok := byIndex[i]; ok {
			ordered = append(ordered, res)
		}
	}
	return ordered, errs
}

// runBatchSerial runs one at a time (Parallel=false).
func runBatchSerial(ctx context.Context, params []Params, opts BatchOptions, runOpts []Option) ([]*Result, []error) {
	results := make([]*Result, 0, len(params))
	var errs []error

	for i, p := range params {
		res, err := Run(ctx, p, runOpts...)
		if opts.Progress != nil {
			opts.Progress(i+1, len(params))
		}
		if err != nil {
			err = fmt.Errorf("%s: %w", p.Events, err)
			if opts.ErrorLog != nil {
				fmt.Fprintf(opts.ErrorLog, "Error running %s: %v\n", p.Kind, err)
			}
			if opts.SkipErrors && ctx.Err() == nil {
				errs = append(errs, err)
				continue
			}
			return nil, []error{err}
		}
		results = append(results, res)
	}

	return results, errs
}

// checkDistinctRuns rejects batches where two runs would share a workspace.
func checkDistinctRuns(params []Params) error {
	seen := make(map[string]string, len(params))
	for _, p := range params {
		desc, err := dataset.Describe(p.Events)
		if err != nil {
			// Reported by the run itself
			continue
		}
		key := filepath.Join(filepath.Clean(p.OutDir), desc.BaseName)
		if other, ok := seen[key]; ok {
			return fmt.Errorf("runs %s and %s would both write %s", other, p.Events, key)
		}
		seen[key] = p.Events
	}
	return nil
}
