package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bartekus/nbfmt/internal/celldiff"
	"github.com/bartekus/nbfmt/internal/formatter"
	"github.com/bartekus/nbfmt/internal/notebook"
)

// Options configure how each notebook is processed.
type Options struct {
	Mode   Mode
	Format formatter.Options
	// DiffContext is the number of context lines around each change, or
	// celldiff.FullContext.
	DiffContext         int
	CheckExecutionOrder bool
}

// DefaultOptions writes notebooks with black's defaults and full-context
// diffs.
func DefaultOptions() Options {
	return Options{
		Mode:        ModeWrite,
		Format:      formatter.DefaultOptions(),
		DiffContext: celldiff.FullContext,
	}
}

// Processor drives one notebook through evaluation and decides whether to
// rewrite it.
type Processor struct {
	fmt  CellFormatter
	opts Options
	log  *zap.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(f CellFormatter, opts Options, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Mode == "" {
		opts.Mode = ModeWrite
	}
	return &Processor{fmt: f, opts: opts, log: log}
}

// Options returns the processor's configuration.
func (p *Processor) Options() Options { return p.opts }

// ProcessFile reads, evaluates and, in write mode, rewrites the notebook
// at path. Failures to read or write are recorded on the report.
func (p *Processor) ProcessFile(ctx context.Context, path string) FileReport {
	nb, err := notebook.Read(path)
	if err != nil {
		p.log.Warn("cannot process notebook", zap.String("path", path), zap.Error(err))
		return FileReport{Path: path, Err: err}
	}
	return p.ProcessNotebook(ctx, nb)
}

// ProcessNotebook evaluates every code cell of nb in order. In write mode,
// changed cells get their formatted source and the notebook is persisted
// if it has a path; cells with syntax errors stay verbatim. Check and diff
// modes never touch nb.
func (p *Processor) ProcessNotebook(ctx context.Context, nb *notebook.Notebook) FileReport {
	report := FileReport{Path: nb.Path, Cells: []CellResult{}}

	for i, cell := range nb.Cells {
		if !cell.IsCode() {
			continue
		}
		if err := ctx.Err(); err != nil {
			report.Err = err
			return report
		}
		res := EvaluateCell(ctx, p.fmt, i+1, cell.Source, p.opts.Format, p.opts.DiffContext)
		report.Cells = append(report.Cells, res)
	}

	if p.opts.CheckExecutionOrder {
		order := notebook.CheckExecutionOrder(nb.Cells)
		report.ExecutionOrder = &order
	}

	if p.opts.Mode != ModeWrite || report.ChangedCount() == 0 {
		return report
	}

	for _, res := range report.Cells {
		if res.Outcome == OutcomeChanged {
			nb.Cells[res.CellIndex-1].SetSource(*res.Formatted)
		}
	}
	if nb.Path == "" {
		return report
	}
	if err := nb.Write(); err != nil {
		p.log.Warn("cannot write notebook", zap.String("path", nb.Path), zap.Error(err))
		report.Err = fmt.Errorf("writing %s: %w", nb.Path, err)
		return report
	}
	report.Written = true
	p.log.Info("reformatted notebook", zap.String("path", nb.Path), zap.Int("cells", report.ChangedCount()))
	return report
}
