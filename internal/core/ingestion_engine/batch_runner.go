package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/docingest/internal/core"
)

// ErrBatchPartial is returned by a continue-on-error run in which at least one
// file failed.
var ErrBatchPartial = errors.New("batch finished with failures")

// FileFailure records one file that could not be ingested.
type FileFailure struct {
	Path string `json:"path"`
	Err  error  `json:"-"`
}

// BatchReport summarises a batch run. Files lists every eligible file; Ingested
// counts those that were written. Files that neither succeeded nor failed were
// skipped after an abort or cancellation.
type BatchReport struct {
	Files    []string      `json:"files"`
	Ingested int           `json:"ingested"`
	Records  int           `json:"records"`
	Failures []FileFailure `json:"failures,omitempty"`
}

// Skipped is the number of eligible files that were never ingested.
func (r *BatchReport) Skipped() int {
	return len(r.Files) - r.Ingested - len(r.Failures)
}

// Summary renders the report for humans.
func (r *BatchReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d file(s), %d record(s) written", r.Ingested, r.Records)
	if n := r.Skipped(); n > 0 {
		fmt.Fprintf(&b, ", %d skipped", n)
	}
	if len(r.Failures) > 0 {
		fmt.Fprintf(&b, ", %d failed:", len(r.Failures))
		for _, f := range r.Failures {
			fmt.Fprintf(&b, "\n  %s: %v", f.Path, f.Err)
		}
	}
	return b.String()
}

// BatchRunner ingests every eligible file of a location.
type BatchRunner struct {
	source          core.SourceLister
	ingestor        Ingestor
	workers         int
	continueOnError bool
	logger          *slog.Logger
}

// RunnerOption configures a BatchRunner.
type RunnerOption func(*BatchRunner)

// WithWorkers ingests up to n files concurrently. Default is 1.
func WithWorkers(n int) RunnerOption {
	return func(r *BatchRunner) {
		if n < 1 {
			n = 1
		}
		r.workers = n
	}
}

// WithContinueOnError keeps going after a failed file and reports every
// failure instead of aborting on the first one.
func WithContinueOnError(v bool) RunnerOption {
	return func(r *BatchRunner) {
		r.continueOnError = v
	}
}

// WithRunnerLogger sets a custom logger.
func WithRunnerLogger(logger *slog.Logger) RunnerOption {
	return func(r *BatchRunner) {
		r.logger = logger
	}
}

func NewBatchRunner(source core.SourceLister, ingestor Ingestor, opts ...RunnerOption) *BatchRunner {
	r := &BatchRunner{
		source:   source,
		ingestor: ingestor,
		workers:  1,
		logger:   slog.Default().With("component", "batch-runner"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run ingests the direct children of location whose names end with ext, in
// name order. By default the first failure aborts the remaining files.
func (r *BatchRunner) Run(ctx context.Context, location, ext string) (*BatchReport, error) {
	files, err := r.source.List(ctx, location, ext)
	if err != nil {
		return nil, err
	}

	report := &BatchReport{}
	for _, f := range files {
		report.Files = append(report.Files, f.Path)
	}
	r.logger.Info("starting batch", "location", location, "ext", ext, "files", len(files), "workers", r.workers)

	var (
		mu      sync.Mutex
		aborted bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for _, f := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := r.ingestor.Ingest(gctx, f)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if !r.continueOnError && aborted {
					// cut short by an earlier failure
					return err
				}
				r.logger.Error("ingestion failed", "path", f.Path, "err", err)
				report.Failures = append(report.Failures, FileFailure{Path: f.Path, Err: err})
				if !r.continueOnError {
					aborted = true
					return err
				}
				return nil
			}
			report.Ingested++
			report.Records += n
			return nil
		})
	}

	waitErr := g.Wait()
	slices.SortFunc(report.Failures, func(a, b FileFailure) int { return strings.Compare(a.Path, b.Path) })
	if waitErr != nil {
		return report, waitErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	if len(report.Failures) > 0 {
		return report, fmt.Errorf("%w: %d of %d file(s) failed", ErrBatchPartial, len(report.Failures), len(files))
	}

	r.logger.Info("batch complete", "location", location, "files", len(files), "records", report.Records)
	return report, nil
}
