package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sink receives each FileReport in discovery order, e.g. to render it.
type Sink interface {
	File(r FileReport) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(FileReport) error

func (f SinkFunc) File(r FileReport) error { return f(r) }

// Runner manages the processing of a batch of notebooks.
type Runner struct {
	proc    *Processor
	workers int
	sink    Sink
	log     *zap.Logger
}

// NewRunner creates a runner. workers below 1 means sequential processing.
// sink may be nil.
func NewRunner(proc *Processor, workers int, sink Sink, log *zap.Logger) *Runner {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{proc: proc, workers: workers, sink: sink, log: log}
}

// Run processes every path and returns the run-wide summary. A failing
// file never stops the run; only cancellation or a sink error does.
func (r *Runner) Run(ctx context.Context, paths []string) (RunSummary, error) {
	agg := NewAggregator(r.proc.Options().Mode)
	emit := func(rep FileReport) error {
		agg.Add(rep)
		if r.sink == nil {
			return nil
		}
		if err := r.sink.File(rep); err != nil {
			return fmt.Errorf("reporting %s: %w", rep.Path, err)
		}
		return nil
	}

	if r.workers == 1 || len(paths) < 2 {
		for _, p := range paths {
			if err := ctx.Err(); err != nil {
				return agg.Summary(), err
			}
			r.log.Debug("processing notebook", zap.String("path", p))
			if err := emit(r.proc.ProcessFile(ctx, p)); err != nil {
				return agg.Summary(), err
			}
		}
		return agg.Summary(), ctx.Err()
	}

	reports, err := r.processParallel(ctx, paths)
	if err != nil {
		return agg.Summary(), err
	}
	for _, rep := range reports {
		if err := emit(rep); err != nil {
			return agg.Summary(), err
		}
	}
	return agg.Summary(), nil
}

// processParallel formats up to r.workers files at once. Reports keep the
// order of paths.
func (r *Runner) processParallel(ctx context.Context, paths []string) ([]FileReport, error) {
	reports := make([]FileReport, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r.log.Debug("processing notebook", zap.String("path", p))
			reports[i] = r.proc.ProcessFile(gctx, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, ctx.Err()
}
